package middleware

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playmaxx/playmaxx/internal/session"
)

// Audit emits one structured log line per request, tagged with the session
// stage observed once the handler has run.
func Audit(logger *slog.Logger, state SessionState) fiber.Handler {
	return func(c *fiber.Ctx) error {
		start := time.Now()
		err := c.Next()

		attrs := []any{
			slog.String("method", c.Method()),
			slog.String("path", c.Path()),
			slog.Int("status", c.Response().StatusCode()),
			slog.Duration("duration", time.Since(start)),
		}
		if requestID := RequestIDFrom(c); requestID != "" {
			attrs = append(attrs, slog.String("request_id", requestID))
		}
		if state != nil {
			attrs = append(attrs, slog.String("stage", stageOf(state).String()))
		}
		if location := c.GetRespHeader(fiber.HeaderLocation); location != "" {
			attrs = append(attrs, slog.String("location", location))
		}
		if err != nil {
			attrs = append(attrs, slog.Any("error", err))
			logger.Error("request completed", attrs...)
			return err
		}

		logger.Info("request completed", attrs...)
		return nil
	}
}

func stageOf(state SessionState) session.Stage {
	if !state.Initialized() {
		return session.StageAnonymous
	}
	return state.Stage()
}
