package session

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// Stage describes how far the user has progressed through the two-step
// sign-in. It is always derived from the stored sessions, never stored.
type Stage int

const (
	StageAnonymous Stage = iota
	StageAuthenticated
	StageVerified
)

func (s Stage) String() string {
	switch s {
	case StageAuthenticated:
		return "authenticated"
	case StageVerified:
		return "verified"
	default:
		return "anonymous"
	}
}

// PrimarySession is the identity established by mobile + password login.
// Field names follow the LoginTokenData record returned by the backend.
type PrimarySession struct {
	UserToken           string `json:"user_token"`
	Name                string `json:"Name"`
	Mobile              string `json:"MobileNo"`
	NotificationEnabled bool   `json:"NotificationEnabled,omitempty"`
}

// Present reports whether the session carries a usable login token.
func (p PrimarySession) Present() bool {
	return strings.TrimSpace(p.UserToken) != ""
}

// Banner is a dashboard promotion delivered with the PIN token.
type Banner struct {
	ID        FlexID `json:"Id"`
	Title     string `json:"Title"`
	ImagePath string `json:"Image"`
}

// ElevatedSession is the second-factor authorization established by the PIN.
type ElevatedSession struct {
	PinToken string   `json:"pin_token"`
	Banners  []Banner `json:"banners"`
}

// Present reports whether the session carries a usable PIN token.
func (e ElevatedSession) Present() bool {
	return strings.TrimSpace(e.PinToken) != ""
}

// DeriveStage computes the stage from the two sessions. An elevated session
// without a primary one does not count.
func DeriveStage(primary PrimarySession, elevated ElevatedSession) Stage {
	switch {
	case primary.Present() && elevated.Present():
		return StageVerified
	case primary.Present():
		return StageAuthenticated
	default:
		return StageAnonymous
	}
}

// MasterConfig is the admin/landing configuration object. Its shape is owned
// by the backend; only the contact fields are read by the client.
type MasterConfig map[string]any

// Value returns the field as a string, formatting numbers as the backend sends
// them. Missing fields yield "".
func (m MasterConfig) Value(key string) string {
	v, ok := m[key]
	if !ok || v == nil {
		return ""
	}
	switch t := v.(type) {
	case string:
		return t
	case float64:
		return fmt.Sprintf("%.0f", t)
	default:
		return fmt.Sprint(t)
	}
}

func (m MasterConfig) WhatsappNo() string   { return m.Value("WhatsappNo") }
func (m MasterConfig) TelegramLink() string { return m.Value("TelegramLink") }
func (m MasterConfig) MobileNo() string     { return m.Value("MobileNo") }

// FlexID accepts identifiers sent either as JSON numbers or strings.
type FlexID string

func (id *FlexID) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		*id = ""
		return nil
	}
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		*id = FlexID(s)
		return nil
	}
	var n json.Number
	if err := json.Unmarshal(data, &n); err != nil {
		return fmt.Errorf("flex id: %w", err)
	}
	*id = FlexID(n.String())
	return nil
}
