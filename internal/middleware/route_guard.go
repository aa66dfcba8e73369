package middleware

import (
	"github.com/gofiber/fiber/v2"

	"github.com/playmaxx/playmaxx/internal/guard"
	"github.com/playmaxx/playmaxx/internal/session"
)

// SessionState is the read side of the session controller.
type SessionState interface {
	Stage() session.Stage
	Initialized() bool
}

// RouteGuard applies guard.Evaluate to every request. While the session is
// still being restored it answers 204 and performs no redirect.
func RouteGuard(state SessionState) fiber.Handler {
	return func(c *fiber.Ctx) error {
		d := guard.Evaluate(c.Path(), state.Stage(), state.Initialized())
		switch {
		case d.Pending:
			return c.SendStatus(fiber.StatusNoContent)
		case d.Allowed:
			return c.Next()
		default:
			return c.Redirect(d.RedirectTo, fiber.StatusSeeOther)
		}
	}
}
