package routes

import (
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/redis/go-redis/v9"

	"github.com/playmaxx/playmaxx/internal/auth"
	"github.com/playmaxx/playmaxx/internal/banner"
	"github.com/playmaxx/playmaxx/internal/config"
	"github.com/playmaxx/playmaxx/internal/dashboard"
	"github.com/playmaxx/playmaxx/internal/middleware"
	"github.com/playmaxx/playmaxx/internal/notification"
	"github.com/playmaxx/playmaxx/internal/session"
)

const mutationTTL = 30 * time.Second

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg           config.Config
	Controller    *auth.Controller
	Dashboard     *dashboard.Service
	Notifications *notification.Service
	Rotator       *banner.Rotator
	Store         session.Store
	Cache         *redis.Client
	Logger        *slog.Logger
}

// Setup configures middlewares and all screens.
func Setup(app *fiber.App, d Deps) error {
	app.Use(recover.New())
	app.Use(middleware.RequestID())
	if d.Cfg.AppEnv == "development" {
		// Plain text access log in desired format: [HH:MM:SS] 200 -  145ms METHOD /path
		app.Use(logger.New(logger.Config{
			Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
			TimeFormat: "15:04:05",
			TimeZone:   "Local",
		}))
	}
	app.Use(middleware.Audit(d.Logger, d.Controller))
	app.Use(middleware.RouteGuard(d.Controller))

	RegisterHealthRoutes(app, d)

	h := &screens{
		ctrl:   d.Controller,
		dash:   d.Dashboard,
		notes:  d.Notifications,
		rot:    d.Rotator,
		logger: d.Logger,
	}
	gate := middleware.MutationGate(d.Cache, d.Cfg.AppName, mutationTTL, d.Logger)
	rateLimiter := middleware.LoginRateLimit(d.Cache, d.Cfg.LoginAttempts, d.Logger)

	app.Get("/", h.splash)

	app.Get("/login", h.loginScreen)
	app.Post("/login", rateLimiter, gate, h.login)

	app.Get("/mpin", h.mpinScreen)
	app.Post("/mpin", gate, h.validateMpin)
	app.Post("/mpin/switch-account", gate, h.logout)

	app.Get("/dashboard", h.dashboard)
	app.Post("/dashboard/refresh", h.refresh)
	app.Get("/dashboard/banners", h.banners)

	app.Get("/profile", h.profile)
	app.Post("/profile/notifications/toggle", h.toggleNotifications)
	app.Get("/notifications", h.notifications)

	app.Post("/logout", gate, h.logout)
	app.Post("/lock", gate, h.lock)

	return nil
}
