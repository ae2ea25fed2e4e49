package metrics

import (
	"net/http"
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	Entities = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_entities_total",
		Help: "Queries and documents by kind and status reached",
	}, []string{"kind", "status"})

	ProcessingSeconds = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "legal_processing_seconds",
		Help:    "Time from processing start to terminal state",
		Buckets: prometheus.DefBuckets,
	}, []string{"kind"})

	WhatsAppSent = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_whatsapp_sent_total",
		Help: "Outbound WhatsApp sends by result",
	}, []string{"result"})

	CacheLookups = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "legal_cache_lookups_total",
		Help: "Responder cache lookups by store and result",
	}, []string{"store", "result"})

	once sync.Once
)

func Init() {
	once.Do(func() {
		prometheus.MustRegister(Entities, ProcessingSeconds, WhatsAppSent, CacheLookups)
	})
}

// Handler returns an http.Handler for Prometheus scraping
func Handler() http.Handler {
	return promhttp.Handler()
}
