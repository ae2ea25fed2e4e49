package middleware

import (
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// RedisRateLimiter counts requests per client IP in fixed windows shared by
// every instance behind the same Redis.
type RedisRateLimiter struct {
	Redis  *redis.Client
	Prefix string
	Limit  int
	Window time.Duration
	log    *zap.SugaredLogger
}

func NewRedisRateLimiter(r *redis.Client, prefix string, limit int, window time.Duration, log *zap.SugaredLogger) *RedisRateLimiter {
	return &RedisRateLimiter{Redis: r, Prefix: prefix, Limit: limit, Window: window, log: log}
}

// Handler lets requests through when Redis is unavailable.
func (r *RedisRateLimiter) Handler() fiber.Handler {
	return func(c *fiber.Ctx) error {
		ip := getIP(c)
		key := fmt.Sprintf("%s:ratelimit:%s", r.Prefix, ip)
		ctx := c.UserContext()

		count, err := r.Redis.Incr(ctx, key).Result()
		if err != nil {
			r.log.Errorw("rate limiter unavailable", "err", err)
			return c.Next()
		}
		if count == 1 {
			r.Redis.Expire(ctx, key, r.Window)
		}
		if count > int64(r.Limit) {
			r.log.Warnw("rate limit exceeded", "ip", ip, "path", c.Path())
			return tooMany(c)
		}
		return c.Next()
	}
}
