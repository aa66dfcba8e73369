package middleware

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"github.com/playmaxx/playmaxx/internal/logging"
)

const loginRateKeyPrefix = "playmaxx:rl:login:"

// LoginRateLimit limits login attempts per mobile number (or IP when absent)
// using Redis if available. Keys carry a fingerprint, never the number itself.
func LoginRateLimit(cache *redis.Client, maxPerMin int, logger *slog.Logger) fiber.Handler {
	if maxPerMin <= 0 {
		maxPerMin = 5
	}
	return func(c *fiber.Ctx) error {
		if cache == nil || c.Method() != fiber.MethodPost {
			return c.Next() // no-op without Redis
		}
		var req struct {
			Mobile string `json:"mobile" form:"mobile"`
		}
		_ = c.BodyParser(&req)
		subject := strings.TrimSpace(req.Mobile)
		if subject == "" {
			subject = c.IP()
		}
		key := loginRateKeyPrefix + logging.Fingerprint(subject)
		cnt, err := cache.Incr(c.UserContext(), key).Result()
		if err != nil {
			logger.Warn("login rate limit unavailable", slog.Any("error", err))
			return c.Next() // fail-open on cache errors
		}
		if cnt == 1 {
			cache.Expire(c.UserContext(), key, time.Minute)
		}
		if cnt > int64(maxPerMin) {
			return fiber.NewError(http.StatusTooManyRequests, "too many login attempts, try again later")
		}
		return c.Next()
	}
}
