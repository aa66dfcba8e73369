package auth

import (
	"context"
	"log/slog"

	"github.com/playmaxx/playmaxx/internal/gateway"
)

// Authorized is what screens issuing authenticated calls need from the
// controller.
type Authorized interface {
	Tokens() (gateway.Tokens, bool)
	Snapshot() State
	HandleExpiry(ctx context.Context, sig gateway.Signal) Downgrade
}

// RequireTokens returns the token pair, or a login expiry error when the
// session is not Verified. No network call is made in that case.
func RequireTokens(a Authorized) (gateway.Tokens, error) {
	tokens, ok := a.Tokens()
	if !ok {
		return gateway.Tokens{}, ExpiryError(gateway.SignalLoginExpired)
	}
	return tokens, nil
}

// Expire routes the expiry signal carried by resp through the controller and
// returns the downgrade along with the error to surface. The error is nil
// when resp carries no signal.
func Expire(ctx context.Context, a Authorized, resp gateway.Response) (Downgrade, error) {
	sig := gateway.Classify(resp)
	if sig == gateway.SignalNone {
		return Downgrade{}, nil
	}
	return a.HandleExpiry(ctx, sig), ExpiryError(sig)
}

// LogDowngrade records a downgrade once: only the caller that changed the
// stage logs it, and a failed store clear is always reported.
func LogDowngrade(logger *slog.Logger, d Downgrade, attrs ...any) {
	if d.Err != nil {
		logger.Error("expired session still persisted", append(attrs, slog.String("signal", d.Signal.String()), slog.Any("error", d.Err))...)
	}
	if d.Navigate {
		logger.Warn("session downgraded", append(attrs, slog.String("signal", d.Signal.String()), slog.String("stage", d.Stage.String()))...)
	}
}
