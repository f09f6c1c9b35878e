package http

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/jhoicas/crm-api/internal/infrastructure/metrics"
	"github.com/jhoicas/crm-api/pkg/logger"
)

// RequestLogger registra cada petición con zerolog y alimenta las métricas HTTP.
func RequestLogger(log *logger.Logger, m *metrics.HTTPMetrics) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()
		if err != nil {
			// deja que el ErrorHandler escriba la respuesta antes de leer el status
			if herr := c.App().ErrorHandler(c, err); herr != nil {
				_ = c.SendStatus(fiber.StatusInternalServerError)
			}
		}
		elapsed := time.Since(start)
		status := c.Response().StatusCode()

		if m != nil {
			m.Observe(c.Method(), c.Route().Path, status, elapsed)
		}
		ev := log.Info()
		if status >= fiber.StatusInternalServerError {
			ev = log.Error()
		}
		ev.Str("method", c.Method()).
			Str("path", c.Path()).
			Int("status", status).
			Dur("latency", elapsed).
			Int64("user_id", GetUserID(c)).
			Msg("http")
		return nil
	}
}
