package server

import (
	"context"
	"log/slog"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playmaxx/playmaxx/internal/auth"
	"github.com/playmaxx/playmaxx/internal/banner"
	"github.com/playmaxx/playmaxx/internal/config"
	"github.com/playmaxx/playmaxx/internal/dashboard"
	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/infra"
	"github.com/playmaxx/playmaxx/internal/notification"
	"github.com/playmaxx/playmaxx/internal/routes"
	"github.com/playmaxx/playmaxx/internal/session"
)

// Server wraps the Fiber application and the session controller it serves.
type Server struct {
	app    *fiber.App
	cfg    config.Config
	ctrl   *auth.Controller
	logger *slog.Logger
}

// New builds the controller and screen services on top of the opened
// backends and delegates route wiring to routes.Setup.
func New(cfg config.Config, backends *infra.Backends, logger *slog.Logger) (*Server, error) {
	api := gateway.NewClient(cfg.APIBaseURL, cfg.AdminID, cfg.RequestTimeout, logger)
	store := session.NewStore(backends.KV)
	ctrl := auth.New(store, api, logger)

	app := fiber.New(fiber.Config{
		AppName:               cfg.AppName,
		ReadTimeout:           30 * time.Second,
		WriteTimeout:          30 * time.Second,
		DisableStartupMessage: cfg.AppEnv != "development",
	})

	err := routes.Setup(app, routes.Deps{
		Cfg:           cfg,
		Controller:    ctrl,
		Dashboard:     dashboard.NewService(api, ctrl, cfg.CDNBaseURL, logger),
		Notifications: notification.NewService(api, ctrl, logger),
		Rotator:       banner.NewRotator(cfg.BannerInterval),
		Store:         store,
		Cache:         backends.Cache,
		Logger:        logger,
	})
	if err != nil {
		return nil, err
	}

	return &Server{app: app, cfg: cfg, ctrl: ctrl, logger: logger}, nil
}

// Controller exposes the session controller.
func (s *Server) Controller() *auth.Controller { return s.ctrl }

// Listen restores the persisted session in the background and starts the
// HTTP server. Screens answer 204 until the restore finishes.
func (s *Server) Listen(ctx context.Context) error {
	go func() {
		if err := s.ctrl.Initialize(ctx); err != nil {
			s.logger.Error("restore session", slog.Any("error", err))
			return
		}
		s.logger.Info("session restored", slog.String("stage", s.ctrl.Stage().String()))
	}()
	return s.app.Listen(s.cfg.Address())
}

// Shutdown gracefully stops the HTTP server.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.app.ShutdownWithContext(ctx)
}
