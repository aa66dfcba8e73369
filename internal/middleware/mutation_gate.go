package middleware

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
)

const (
	mutationKeyPrefix = "playmaxx:mutation:v1:"
	inProgressMarker  = "__in_progress__"
)

// MutationGate rejects a session mutation with 409 while another one is in
// flight. With a Redis client the reservation is shared by every process
// using the same session store; without one it is local to this process.
// The ttl bounds how long a crashed holder can block others.
func MutationGate(cache *redis.Client, scope string, ttl time.Duration, logger *slog.Logger) fiber.Handler {
	if cache == nil {
		var mu sync.Mutex
		return func(c *fiber.Ctx) error {
			if !mu.TryLock() {
				return fiber.NewError(fiber.StatusConflict, "another session change is in progress")
			}
			defer mu.Unlock()
			return c.Next()
		}
	}

	key := mutationKeyPrefix + scope
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()

		reserved, err := cache.SetNX(ctx, key, inProgressMarker, ttl).Result()
		if err != nil {
			logger.Error("mutation reservation failed", slog.String("key", key), slog.Any("error", err))
			return fiber.NewError(fiber.StatusInternalServerError, "mutation reservation failure")
		}
		if !reserved {
			return fiber.NewError(fiber.StatusConflict, "another session change is in progress")
		}

		defer func() {
			releaseCtx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
			defer cancel()
			if err := cache.Del(releaseCtx, key).Err(); err != nil {
				logger.Warn("mutation release failed", slog.String("key", key), slog.Any("error", err))
			}
		}()
		return c.Next()
	}
}
