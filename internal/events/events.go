// Package events announces query and document status changes to other
// services. Publishing is best effort; a failed publish never changes the
// entity's status.
package events

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/nats-io/nats.go"

	"github.com/kenyawebs/Tana-Delta/internal/models"
)

const (
	KindQuery    = "query"
	KindDocument = "document"
)

type StatusChanged struct {
	Kind      string        `json:"kind"`
	ID        string        `json:"id"`
	Status    models.Status `json:"status"`
	Source    models.Source `json:"source"`
	Error     string        `json:"error,omitempty"`
	Timestamp time.Time     `json:"timestamp"`
}

type Publisher interface {
	Publish(ctx context.Context, ev StatusChanged) error
	Close() error
}

// MessageWriter is the keyed write the Kafka producer offers.
type MessageWriter interface {
	PublishMessage(ctx context.Context, key string, value []byte) error
	Close() error
}

type KafkaPublisher struct {
	w MessageWriter
}

func NewKafkaPublisher(w MessageWriter) *KafkaPublisher {
	return &KafkaPublisher{w: w}
}

// Publish keys by entity id so one entity's events stay ordered within a
// partition.
func (p *KafkaPublisher) Publish(ctx context.Context, ev StatusChanged) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.w.PublishMessage(ctx, ev.ID, data)
}

func (p *KafkaPublisher) Close() error { return p.w.Close() }

type NATSPublisher struct {
	nc      *nats.Conn
	subject string
}

func NewNATSPublisher(url, subject string) (*NATSPublisher, error) {
	nc, err := nats.Connect(url)
	if err != nil {
		return nil, err
	}
	return &NATSPublisher{nc: nc, subject: subject}, nil
}

// Publish sends to "<subject>.<kind>", e.g. legal.entity.status.query.
func (p *NATSPublisher) Publish(_ context.Context, ev StatusChanged) error {
	data, err := json.Marshal(ev)
	if err != nil {
		return err
	}
	return p.nc.Publish(p.subject+"."+ev.Kind, data)
}

func (p *NATSPublisher) Close() error {
	return p.nc.Drain()
}

type Nop struct{}

func (Nop) Publish(context.Context, StatusChanged) error { return nil }
func (Nop) Close() error                                 { return nil }

// Recorder keeps published events in memory.
type Recorder struct {
	mu     sync.Mutex
	events []StatusChanged
}

func (r *Recorder) Publish(_ context.Context, ev StatusChanged) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.events = append(r.events, ev)
	return nil
}

func (r *Recorder) Close() error { return nil }

func (r *Recorder) Events() []StatusChanged {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]StatusChanged(nil), r.events...)
}
