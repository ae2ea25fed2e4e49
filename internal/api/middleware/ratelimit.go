package middleware

import (
	"net"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
	"golang.org/x/time/rate"
)

type IPRateLimiter struct {
	visitors sync.Map
	rps      rate.Limit
	burst    int
	log      *zap.SugaredLogger
	stop     chan struct{}
	once     sync.Once
}

type visitor struct {
	limiter  *rate.Limiter
	mu       sync.Mutex
	lastSeen time.Time
}

// NewIPRateLimiter allows perMinute requests per client IP with a small
// burst. Idle visitors are forgotten after five minutes; Close stops the
// sweeper.
func NewIPRateLimiter(perMinute int, log *zap.SugaredLogger) *IPRateLimiter {
	l := &IPRateLimiter{
		rps:   rate.Limit(float64(perMinute) / 60.0),
		burst: 5,
		log:   log,
		stop:  make(chan struct{}),
	}
	go l.cleanupVisitors()
	return l
}

func (l *IPRateLimiter) getLimiter(ip string) *rate.Limiter {
	now := time.Now()
	v, _ := l.visitors.LoadOrStore(ip, &visitor{limiter: rate.NewLimiter(l.rps, l.burst), lastSeen: now})
	vi := v.(*visitor)
	vi.mu.Lock()
	vi.lastSeen = now
	vi.mu.Unlock()
	return vi.limiter
}

func (l *IPRateLimiter) cleanupVisitors() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-l.stop:
			return
		case <-ticker.C:
		}
		cutoff := time.Now().Add(-5 * time.Minute)
		l.visitors.Range(func(k, v any) bool {
			vi := v.(*visitor)
			vi.mu.Lock()
			idle := vi.lastSeen.Before(cutoff)
			vi.mu.Unlock()
			if idle {
				l.visitors.Delete(k)
			}
			return true
		})
	}
}

func (l *IPRateLimiter) Close() {
	l.once.Do(func() { close(l.stop) })
}

func (l *IPRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := getIP(c)
		if !l.getLimiter(ip).Allow() {
			l.log.Warnw("rate limit exceeded", "ip", ip, "path", c.Path())
			return tooMany(c)
		}
		return c.Next()
	}
}

func tooMany(c *fiber.Ctx) error {
	return c.Status(fiber.StatusTooManyRequests).JSON(fiber.Map{"status": "error", "message": "rate limit exceeded"})
}

func getIP(c *fiber.Ctx) string {
	ip := c.IP()
	if ip == "" {
		ip = "unknown"
	}
	host, _, err := net.SplitHostPort(ip)
	if err == nil {
		return host
	}
	return ip
}
