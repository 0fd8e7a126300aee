// middleware/request_log.go
package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
)

// RequestLogger logs one line per request.
func RequestLogger(log *slog.Logger) fiber.Handler {
	if log == nil {
		log = slog.Default()
	}
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		status := c.Response().StatusCode()
		if err != nil {
			if fe, ok := err.(*fiber.Error); ok {
				status = fe.Code
			}
		}
		attrs := []any{
			"method", c.Method(),
			"path", c.Path(),
			"status", status,
			"latency", time.Since(start),
		}
		if id := ConnectionID(c); id != "" {
			attrs = append(attrs, "conn_id", id)
		}
		switch {
		case status >= fiber.StatusInternalServerError:
			log.Error("http_request", attrs...)
		case status >= fiber.StatusBadRequest:
			log.Warn("http_request", attrs...)
		default:
			log.Debug("http_request", attrs...)
		}
		return err
	}
}
