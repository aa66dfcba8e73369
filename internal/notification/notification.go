package notification

import (
	"bytes"
	"context"
	"encoding/json"
	"log/slog"

	"github.com/playmaxx/playmaxx/internal/auth"
	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/session"
)

const (
	defaultTitle  = "Notification"
	failedMessage = "Failed to load notifications"
	toggleMessage = "Failed to update notification setting"
)

// Notification is one entry of the user's notification list.
type Notification struct {
	ID      session.FlexID `json:"id"`
	Title   string         `json:"title"`
	Message string         `json:"message"`
	Date    string         `json:"date,omitempty"`
}

// UnmarshalJSON reads the backend shape, where the body may arrive as
// Description or Message and the date as Date or CreatedAt.
func (n *Notification) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID          session.FlexID `json:"Id"`
		Title       string         `json:"Title"`
		Description string         `json:"Description"`
		Message     string         `json:"Message"`
		Date        string         `json:"Date"`
		CreatedAt   string         `json:"CreatedAt"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	*n = Notification{ID: wire.ID, Title: firstOf(wire.Title, defaultTitle), Message: firstOf(wire.Description, wire.Message), Date: firstOf(wire.Date, wire.CreatedAt)}
	return nil
}

// Decode returns the notifications in raw, or an empty list when raw is not
// an array of notifications.
func Decode(raw json.RawMessage) []Notification {
	list := []Notification{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return list
	}
	if err := json.Unmarshal(raw, &list); err != nil {
		return []Notification{}
	}
	return list
}

// Gateway is the backend surface used by the service.
type Gateway interface {
	Notifications(ctx context.Context, t gateway.Tokens) (gateway.Response, error)
	SetNotificationStatus(ctx context.Context, t gateway.Tokens, enabled bool) (gateway.Response, error)
}

// Preferences persists the push preference. *auth.Controller satisfies it.
type Preferences interface {
	auth.Authorized
	SetNotificationEnabled(ctx context.Context, enabled bool) (session.PrimarySession, error)
}

// Service lists notifications and toggles the push preference.
type Service struct {
	api    Gateway
	prefs  Preferences
	logger *slog.Logger
}

// NewService constructs the notification service.
func NewService(api Gateway, prefs Preferences, logger *slog.Logger) *Service {
	return &Service{api: api, prefs: prefs, logger: logger}
}

// List fetches the user's notifications.
func (s *Service) List(ctx context.Context) ([]Notification, error) {
	tokens, err := auth.RequireTokens(s.prefs)
	if err != nil {
		return nil, err
	}
	resp, err := s.api.Notifications(ctx, tokens)
	norm := gateway.Normalize(resp, err)
	if d, expired := auth.Expire(ctx, s.prefs, norm); expired != nil {
		auth.LogDowngrade(s.logger, d, slog.String("call", "list"))
		return nil, expired
	}
	if !norm.Status {
		return nil, auth.Failure(norm, err, failedMessage)
	}
	return Decode(norm.Result), nil
}

// Toggle flips the push preference and returns the new value. A true result
// from the backend is authoritative; otherwise the flipped value is kept.
func (s *Service) Toggle(ctx context.Context) (bool, error) {
	tokens, err := auth.RequireTokens(s.prefs)
	if err != nil {
		return false, err
	}
	want := !s.prefs.Snapshot().Primary.NotificationEnabled

	resp, err := s.api.SetNotificationStatus(ctx, tokens, want)
	norm := gateway.Normalize(resp, err)
	if d, expired := auth.Expire(ctx, s.prefs, norm); expired != nil {
		auth.LogDowngrade(s.logger, d, slog.String("call", "toggle"))
		return false, expired
	}
	if !norm.Status {
		return false, auth.Failure(norm, err, toggleMessage)
	}

	enabled := want
	var confirmed bool
	if json.Unmarshal(norm.Result, &confirmed) == nil && confirmed {
		enabled = true
	}
	if _, err := s.prefs.SetNotificationEnabled(ctx, enabled); err != nil {
		return false, err
	}
	s.logger.Info("notification preference updated", slog.Bool("enabled", enabled))
	return enabled, nil
}

func firstOf(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}
