package auth

import (
	"errors"
	"strings"

	"github.com/playmaxx/playmaxx/internal/gateway"
)

// Kind classifies every failure the controller reports.
type Kind int

const (
	KindUnknown Kind = iota
	// KindValidation is raised before any network call and never touches the session.
	KindValidation
	// KindNetwork is a transport failure without a structured response.
	KindNetwork
	// KindAPI is a structured backend failure that is not an expiry signal.
	KindAPI
	// KindLoginExpired means the login token is dead; the session was fully cleared.
	KindLoginExpired
	// KindMpinExpired means the PIN token is dead; only the PIN session was cleared.
	KindMpinExpired
	// KindStorage means the backend call succeeded but the device store failed.
	KindStorage
)

func (k Kind) String() string {
	switch k {
	case KindValidation:
		return "validation"
	case KindNetwork:
		return "network"
	case KindAPI:
		return "api"
	case KindLoginExpired:
		return "login_expired"
	case KindMpinExpired:
		return "mpin_expired"
	case KindStorage:
		return "storage"
	default:
		return "unknown"
	}
}

// User-facing messages.
const (
	MessageSessionExpired = "Session expired. Please login again."
	MessageMpinExpired    = "MPIN session expired. Please enter your MPIN again."
	MessageLoginRequired  = "Please login to continue"
	MessageStorage        = "Could not save session on this device"
	MessageStorageRead    = "Could not read session on this device"
)

// Error is the only error type returned by Controller operations. Message is
// safe to show to the user; Err keeps the cause for logs.
type Error struct {
	Kind    Kind
	Message string
	Err     error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return e.Message + ": " + e.Err.Error()
	}
	return e.Message
}

func (e *Error) Unwrap() error { return e.Err }

// SessionExpired reports whether the failure forced a session downgrade.
func (e *Error) SessionExpired() bool {
	return e.Kind == KindLoginExpired || e.Kind == KindMpinExpired
}

// KindOf returns the Kind of err, or KindUnknown for foreign errors.
func KindOf(err error) Kind {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Kind
	}
	return KindUnknown
}

// MessageOf returns the user-facing message of err.
func MessageOf(err error) string {
	var authErr *Error
	if errors.As(err, &authErr) {
		return authErr.Message
	}
	if err == nil {
		return ""
	}
	return err.Error()
}

func validationError(msg string) *Error {
	return &Error{Kind: KindValidation, Message: msg}
}

func storageError(err error) *Error {
	return &Error{Kind: KindStorage, Message: MessageStorage, Err: err}
}

func readError(err error) *Error {
	return &Error{Kind: KindStorage, Message: MessageStorageRead, Err: err}
}

// ExpiryError builds the error reported after a downgrade for signal.
func ExpiryError(sig gateway.Signal) *Error {
	switch sig {
	case gateway.SignalLoginExpired:
		return &Error{Kind: KindLoginExpired, Message: MessageSessionExpired}
	case gateway.SignalMpinExpired:
		return &Error{Kind: KindMpinExpired, Message: MessageMpinExpired}
	default:
		return nil
	}
}

// Failure converts a failed backend call into the taxonomy. Expiry signals
// are handled by the caller before this is reached.
func Failure(resp gateway.Response, err error, fallback string) *Error {
	if errors.Is(err, gateway.ErrNetwork) {
		return &Error{Kind: KindNetwork, Message: gateway.NetworkErrorMessage, Err: err}
	}
	msg := strings.TrimSpace(resp.Msg)
	if msg == "" {
		msg = fallback
	}
	return &Error{Kind: KindAPI, Message: msg, Err: err}
}
