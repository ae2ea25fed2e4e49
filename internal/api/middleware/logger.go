package middleware

import (
	"time"

	"github.com/gofiber/fiber/v2"
	"go.uber.org/zap"
)

// RequestLogger writes one access log line per request; requests that end
// in an error are logged at error level.
func RequestLogger(log *zap.SugaredLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		latency := time.Since(start)
		status := c.Response().StatusCode()
		if err != nil {
			log.Errorw("http request error",
				"method", c.Method(),
				"path", c.Path(),
				"ip", c.IP(),
				"status", status,
				"latency", latency,
				"err", err,
			)
			return err
		}
		log.Infow("http request",
			"method", c.Method(),
			"path", c.Path(),
			"ip", c.IP(),
			"status", status,
			"latency", latency,
		)
		return nil
	}
}
