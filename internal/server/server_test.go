package server

import (
	"context"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/playmaxx/playmaxx/internal/config"
	"github.com/playmaxx/playmaxx/internal/infra"
	"github.com/playmaxx/playmaxx/internal/logging"
	"github.com/playmaxx/playmaxx/internal/session"
)

func TestNewServesGuardedScreens(t *testing.T) {
	ctx := context.Background()
	cfg := config.Config{
		AppName:        "playmaxx",
		AppEnv:         "test",
		APIBaseURL:     "http://127.0.0.1:1/api/apis/",
		StoreEngine:    session.EngineMemory,
		RequestTimeout: time.Second,
	}
	backends, err := infra.Open(ctx, cfg)
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer backends.Close()

	srv, err := New(cfg, backends, logging.Discard())
	if err != nil {
		t.Fatalf("new: %v", err)
	}

	resp, err := srv.app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusNoContent {
		t.Fatalf("expected %d before restore, got %d", fiber.StatusNoContent, resp.StatusCode)
	}

	if err := srv.Controller().Initialize(ctx); err != nil {
		t.Fatalf("initialize: %v", err)
	}
	resp, err = srv.app.Test(httptest.NewRequest(fiber.MethodGet, "/dashboard", nil))
	if err != nil {
		t.Fatalf("app.Test: %v", err)
	}
	if resp.StatusCode != fiber.StatusSeeOther || resp.Header.Get(fiber.HeaderLocation) != "/login" {
		t.Fatalf("expected redirect to /login, got %d %q", resp.StatusCode, resp.Header.Get(fiber.HeaderLocation))
	}
}
