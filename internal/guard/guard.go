// Package guard decides which screens are reachable for a session stage.
package guard

import (
	"strings"

	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/session"
)

// Screen paths.
const (
	Splash        = "/"
	Login         = "/login"
	Mpin          = "/mpin"
	Dashboard     = "/dashboard"
	Profile       = "/profile"
	Notifications = "/notifications"
	Logout        = "/logout"
	Lock          = "/lock"
)

// Class groups screens by the stage they require.
type Class int

const (
	ClassUnknown Class = iota
	// ClassEntry is reachable from every stage.
	ClassEntry
	// ClassLoginOnly is rejected once the user is past login.
	ClassLoginOnly
	// ClassPinStep requires Authenticated and rejects Verified.
	ClassPinStep
	// ClassProtected requires Verified.
	ClassProtected
	// ClassPublic is infrastructure such as health checks, outside the flow.
	ClassPublic
)

var classes = map[string]Class{
	Splash:        ClassEntry,
	Login:         ClassLoginOnly,
	Mpin:          ClassPinStep,
	Dashboard:     ClassProtected,
	Profile:       ClassProtected,
	Notifications: ClassProtected,
	Logout:        ClassEntry,
	Lock:          ClassProtected,
	"/healthz":    ClassPublic,
}

// Classify returns the class of a request path. Sub-paths inherit the class
// of their screen, so /dashboard/refresh is protected.
func Classify(path string) Class {
	path = clean(path)
	if c, ok := classes[path]; ok {
		return c
	}
	if i := strings.Index(path[1:], "/"); i >= 0 {
		if c, ok := classes[path[:i+1]]; ok && c != ClassEntry {
			return c
		}
	}
	return ClassUnknown
}

// Decision is the outcome of a guard evaluation. Exactly one of Pending,
// Allowed, or a non-empty RedirectTo holds.
type Decision struct {
	Allowed    bool
	Pending    bool
	RedirectTo string
}

// Allow maps (screen, stage) to allow or redirect.
func Allow(screen string, stage session.Stage) Decision {
	switch Classify(screen) {
	case ClassEntry, ClassPublic:
		return Decision{Allowed: true}
	case ClassLoginOnly:
		if stage == session.StageAnonymous {
			return Decision{Allowed: true}
		}
	case ClassPinStep:
		if stage == session.StageAuthenticated {
			return Decision{Allowed: true}
		}
	case ClassProtected:
		if stage == session.StageVerified {
			return Decision{Allowed: true}
		}
	default:
		return Decision{RedirectTo: Splash}
	}
	return Decision{RedirectTo: Landing(stage)}
}

// Evaluate is Allow deferred until the session has been restored.
func Evaluate(screen string, stage session.Stage, initialized bool) Decision {
	if !initialized && Classify(screen) != ClassPublic {
		return Decision{Pending: true}
	}
	return Allow(screen, stage)
}

// Landing is the screen a stage rests on.
func Landing(stage session.Stage) string {
	switch stage {
	case session.StageVerified:
		return Dashboard
	case session.StageAuthenticated:
		return Mpin
	default:
		return Login
	}
}

// ExpiryTarget is where an expiry signal sends the user.
func ExpiryTarget(sig gateway.Signal) string {
	switch sig {
	case gateway.SignalLoginExpired:
		return Login
	case gateway.SignalMpinExpired:
		return Mpin
	default:
		return ""
	}
}

func clean(path string) string {
	if path == "" {
		return Splash
	}
	if !strings.HasPrefix(path, "/") {
		path = "/" + path
	}
	if len(path) > 1 {
		path = strings.TrimRight(path, "/")
		if path == "" {
			return Splash
		}
	}
	return path
}
