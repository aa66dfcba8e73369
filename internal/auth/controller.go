package auth

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"sync"

	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/logging"
	"github.com/playmaxx/playmaxx/internal/session"
)

// Fallback messages when the backend does not provide one.
const (
	MessageLoginFailed   = "Login failed"
	MessageMpinFailed    = "MPIN validation failed"
	MessageLandingFailed = "Failed to load data"
)

// Gateway is the subset of the backend API the controller drives.
type Gateway interface {
	LandingData(ctx context.Context) (gateway.Response, error)
	Login(ctx context.Context, mobile, password, pushToken string) (gateway.Response, error)
	ValidateMpin(ctx context.Context, userToken, mpin, pushToken string) (gateway.Response, error)
	ClearLoginSession(ctx context.Context, t gateway.Tokens) (gateway.Response, error)
	ClearMpinSession(ctx context.Context, t gateway.Tokens) (gateway.Response, error)
}

// State is a point-in-time copy of the controller's session state.
type State struct {
	Stage        session.Stage
	Primary      session.PrimarySession
	Elevated     session.ElevatedSession
	MasterConfig session.MasterConfig
	Initialized  bool
}

// Downgrade describes the outcome of an expiry signal. Navigate is true only
// for the caller whose signal actually changed the stage. Err is set when the
// store could not be cleared; the in-memory session is reset regardless, but
// the dead token may still be persisted.
type Downgrade struct {
	Signal   gateway.Signal
	Stage    session.Stage
	Navigate bool
	Err      error
}

// Controller owns the session lifecycle and is the only writer of the store.
// It is safe for concurrent use: state reads and commits happen under mu,
// network calls happen outside it, and the four session mutations are
// serialized by op.
type Controller struct {
	store  session.Store
	api    Gateway
	logger *slog.Logger

	op sync.Mutex

	mu          sync.RWMutex
	primary     session.PrimarySession
	elevated    session.ElevatedSession
	master      session.MasterConfig
	initialized bool
}

// New builds a controller in the Anonymous stage. Initialize must run before
// its stage is trusted.
func New(store session.Store, api Gateway, logger *slog.Logger) *Controller {
	if logger == nil {
		logger = logging.Discard()
	}
	return &Controller{store: store, api: api, logger: logger}
}

// Initialize restores the sessions persisted on the device. It never calls the
// network and may be called more than once. The controller is marked
// initialized even when the store fails, leaving the stage Anonymous.
func (c *Controller) Initialize(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	var firstErr *Error
	keep := func(e *Error) {
		if firstErr == nil {
			firstErr = e
		}
	}

	// Elevated cleanup runs only once the primary record has been read.
	primary, hasPrimary, err := c.store.PrimarySession(ctx)
	primaryKnown := err == nil
	if err != nil {
		hasPrimary = false
		if errors.Is(err, session.ErrCorruptRecord) {
			primaryKnown = true
			c.logger.Warn("discarding corrupt login session record", slog.Any("error", err))
			if err := c.store.ClearPrimaryAndElevated(ctx); err != nil {
				keep(storageError(err))
			}
		} else {
			keep(readError(err))
		}
	}

	elevated, hasElevated, err := c.store.ElevatedSession(ctx)
	corrupt := err != nil && errors.Is(err, session.ErrCorruptRecord)
	if err != nil {
		hasElevated = false
		if !corrupt {
			keep(readError(err))
		}
	}
	if primaryKnown && (corrupt || (hasElevated && !hasPrimary)) {
		c.logger.Warn("discarding orphan mpin session record", slog.Bool("corrupt", corrupt))
		hasElevated = false
		if err := c.store.ClearElevated(ctx); err != nil {
			keep(storageError(err))
		}
	}

	master, hasMaster, err := c.store.MasterConfig(ctx)
	if err != nil {
		hasMaster = false
		if !errors.Is(err, session.ErrCorruptRecord) {
			keep(readError(err))
		}
	}

	c.mu.Lock()
	c.primary, c.elevated, c.master = session.PrimarySession{}, session.ElevatedSession{}, nil
	if hasPrimary {
		c.primary = primary
	}
	if hasElevated {
		c.elevated = elevated
	}
	if hasMaster {
		c.master = master
	}
	c.initialized = true
	stage := session.DeriveStage(c.primary, c.elevated)
	c.mu.Unlock()

	if firstErr != nil {
		c.logger.Error("restore session failed", slog.Any("error", firstErr.Err))
		return firstErr
	}
	c.logger.Info("session restored", slog.String("stage", stage.String()))
	return nil
}

// LoadLandingData refreshes the master configuration. It does not affect the stage.
func (c *Controller) LoadLandingData(ctx context.Context) (session.MasterConfig, error) {
	resp, err := c.api.LandingData(ctx)
	norm := gateway.Normalize(resp, err)
	if !norm.Status || !norm.HasResult() {
		return nil, Failure(norm, err, MessageLandingFailed)
	}
	var master session.MasterConfig
	if err := json.Unmarshal(norm.Result, &master); err != nil || master == nil {
		return nil, &Error{Kind: KindAPI, Message: MessageLandingFailed, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.SetMasterConfig(ctx, master); err != nil {
		return nil, storageError(err)
	}
	c.master = master
	return master, nil
}

// Login exchanges credentials for a login token. Any PIN session left on the
// device is dropped, so a successful login always lands on Authenticated.
func (c *Controller) Login(ctx context.Context, mobile, password string) (session.PrimarySession, error) {
	mobile = strings.TrimSpace(mobile)
	if mobile == "" {
		return session.PrimarySession{}, validationError(MessageMobileRequired)
	}
	if err := ValidatePassword(password); err != nil {
		return session.PrimarySession{}, err
	}

	c.op.Lock()
	defer c.op.Unlock()

	resp, err := c.api.Login(ctx, mobile, password, c.pushToken(ctx))
	norm := gateway.Normalize(resp, err)
	if !norm.Status || !norm.HasResult() {
		c.logger.Info("login rejected", slog.String("mobile_fp", logging.Fingerprint(mobile)), slog.Int("status_code", norm.StatusCode))
		return session.PrimarySession{}, Failure(norm, err, MessageLoginFailed)
	}
	var primary session.PrimarySession
	if err := json.Unmarshal(norm.Result, &primary); err != nil || !primary.Present() {
		return session.PrimarySession{}, &Error{Kind: KindAPI, Message: MessageLoginFailed, Err: err}
	}
	if primary.Mobile == "" {
		primary.Mobile = mobile
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if err := c.store.ClearElevated(ctx); err != nil {
		return session.PrimarySession{}, storageError(err)
	}
	c.elevated = session.ElevatedSession{}
	if err := c.store.SetPrimarySession(ctx, primary); err != nil {
		return session.PrimarySession{}, storageError(err)
	}
	c.primary = primary
	c.logger.Info("login succeeded", slog.String("mobile_fp", logging.Fingerprint(mobile)))
	return primary, nil
}

// ValidateMpin exchanges the login token and PIN for a PIN token. A 401 from
// the backend ends the whole session.
func (c *Controller) ValidateMpin(ctx context.Context, pin string) (session.ElevatedSession, error) {
	pin = strings.TrimSpace(pin)
	if pin == "" {
		return session.ElevatedSession{}, validationError(MessagePinInvalid)
	}

	c.op.Lock()
	defer c.op.Unlock()

	c.mu.RLock()
	primary := c.primary
	c.mu.RUnlock()
	if !primary.Present() {
		return session.ElevatedSession{}, validationError(MessageLoginRequired)
	}

	resp, err := c.api.ValidateMpin(ctx, primary.UserToken, pin, c.pushToken(ctx))
	norm := gateway.Normalize(resp, err)
	if !norm.Status {
		if gateway.Classify(norm) == gateway.SignalLoginExpired {
			c.logout(ctx)
			return session.ElevatedSession{}, ExpiryError(gateway.SignalLoginExpired)
		}
		return session.ElevatedSession{}, Failure(norm, err, MessageMpinFailed)
	}
	elevated, err := decodeElevated(norm.Result)
	if err != nil {
		return session.ElevatedSession{}, &Error{Kind: KindAPI, Message: MessageMpinFailed, Err: err}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.primary.UserToken != primary.UserToken {
		// The login session ended while the PIN call was in flight.
		return session.ElevatedSession{}, ExpiryError(gateway.SignalLoginExpired)
	}
	if err := c.store.SetElevatedSession(ctx, elevated); err != nil {
		return session.ElevatedSession{}, storageError(err)
	}
	c.elevated = elevated
	c.logger.Info("mpin verified", slog.Int("banners", len(elevated.Banners)))
	return elevated, nil
}

// Logout ends the session. The backend is told on a best-effort basis; local
// records are always cleared.
func (c *Controller) Logout(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()
	return c.logout(ctx)
}

func (c *Controller) logout(ctx context.Context) error {
	if tokens, ok := c.Tokens(); ok {
		resp, err := c.api.ClearLoginSession(ctx, tokens)
		if norm := gateway.Normalize(resp, err); !norm.Status {
			c.logger.Warn("backend logout failed", slog.String("msg", norm.Msg), slog.Int("status_code", norm.StatusCode))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearAllLocked(ctx, "logout")
}

// ClearMpinSession drops the PIN session only, returning to Authenticated.
func (c *Controller) ClearMpinSession(ctx context.Context) error {
	c.op.Lock()
	defer c.op.Unlock()

	if tokens, ok := c.Tokens(); ok {
		resp, err := c.api.ClearMpinSession(ctx, tokens)
		if norm := gateway.Normalize(resp, err); !norm.Status {
			c.logger.Warn("backend mpin logout failed", slog.String("msg", norm.Msg), slog.Int("status_code", norm.StatusCode))
		}
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	return c.clearElevatedLocked(ctx, "lock")
}

// HandleExpiry applies an expiry signal reported by any authenticated call.
// Concurrent callers reporting the same expiry observe one transition: only
// the first gets Navigate=true, later ones find the stage already downgraded.
func (c *Controller) HandleExpiry(ctx context.Context, sig gateway.Signal) Downgrade {
	c.mu.Lock()
	defer c.mu.Unlock()

	stage := session.DeriveStage(c.primary, c.elevated)
	out := Downgrade{Signal: sig, Stage: stage}
	switch sig {
	case gateway.SignalLoginExpired:
		if stage == session.StageAnonymous {
			return out
		}
		if err := c.clearAllLocked(ctx, "login_expired"); err != nil {
			out.Err = err
		}
	case gateway.SignalMpinExpired:
		if stage != session.StageVerified {
			return out
		}
		if err := c.clearElevatedLocked(ctx, "mpin_expired"); err != nil {
			out.Err = err
		}
	default:
		return out
	}
	out.Stage = session.DeriveStage(c.primary, c.elevated)
	out.Navigate = true
	return out
}

// SetNotificationEnabled rewrites the stored push preference.
func (c *Controller) SetNotificationEnabled(ctx context.Context, enabled bool) (session.PrimarySession, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.primary.Present() {
		return session.PrimarySession{}, validationError(MessageLoginRequired)
	}
	updated := c.primary
	updated.NotificationEnabled = enabled
	if err := c.store.SetPrimarySession(ctx, updated); err != nil {
		return session.PrimarySession{}, storageError(err)
	}
	c.primary = updated
	return updated, nil
}

// Snapshot returns a copy of the current state.
func (c *Controller) Snapshot() State {
	c.mu.RLock()
	defer c.mu.RUnlock()
	elevated := c.elevated
	if elevated.Banners != nil {
		elevated.Banners = append([]session.Banner(nil), elevated.Banners...)
	}
	return State{
		Stage:        session.DeriveStage(c.primary, c.elevated),
		Primary:      c.primary,
		Elevated:     elevated,
		MasterConfig: c.master,
		Initialized:  c.initialized,
	}
}

// Stage returns the stage derived from the current sessions.
func (c *Controller) Stage() session.Stage {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return session.DeriveStage(c.primary, c.elevated)
}

// Initialized reports whether Initialize has completed.
func (c *Controller) Initialized() bool {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.initialized
}

// Tokens returns the credential pair for authenticated calls; ok is false
// unless the session is Verified.
func (c *Controller) Tokens() (gateway.Tokens, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	t := gateway.Tokens{UserToken: c.primary.UserToken, PinToken: c.elevated.PinToken}
	return t, session.DeriveStage(c.primary, c.elevated) == session.StageVerified
}

// clearAllLocked resets both sessions. The in-memory state is reset even when
// the store fails so the process never keeps acting on an ended session.
func (c *Controller) clearAllLocked(ctx context.Context, reason string) error {
	err := c.store.ClearPrimaryAndElevated(ctx)
	c.primary = session.PrimarySession{}
	c.elevated = session.ElevatedSession{}
	if err != nil {
		c.logger.Error("clear login session failed", slog.String("reason", reason), slog.Any("error", err))
		return storageError(err)
	}
	c.logger.Info("login session cleared", slog.String("reason", reason))
	return nil
}

func (c *Controller) clearElevatedLocked(ctx context.Context, reason string) error {
	err := c.store.ClearElevated(ctx)
	c.elevated = session.ElevatedSession{}
	if err != nil {
		c.logger.Error("clear mpin session failed", slog.String("reason", reason), slog.Any("error", err))
		return storageError(err)
	}
	c.logger.Info("mpin session cleared", slog.String("reason", reason))
	return nil
}

func (c *Controller) pushToken(ctx context.Context) string {
	token, err := c.store.FCMToken(ctx)
	if err != nil {
		c.logger.Warn("read push token failed", slog.Any("error", err))
		return ""
	}
	return token
}
