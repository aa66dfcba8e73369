package auth

import (
	"bytes"
	"encoding/json"
	"errors"

	"github.com/playmaxx/playmaxx/internal/session"
)

var errEmptyPinToken = errors.New("pin token missing from result")

// decodeElevated accepts the PIN validation result either as a bare token
// (string or number) or as an object carrying pin_token and banners.
func decodeElevated(raw json.RawMessage) (session.ElevatedSession, error) {
	raw = bytes.TrimSpace(raw)
	var e session.ElevatedSession
	switch {
	case len(raw) == 0:
		return e, errEmptyPinToken
	case raw[0] == '{':
		if err := json.Unmarshal(raw, &e); err != nil {
			return session.ElevatedSession{}, err
		}
	case raw[0] == '"':
		if err := json.Unmarshal(raw, &e.PinToken); err != nil {
			return session.ElevatedSession{}, err
		}
	default:
		var n json.Number
		if err := json.Unmarshal(raw, &n); err != nil {
			return session.ElevatedSession{}, err
		}
		e.PinToken = n.String()
	}
	if !e.Present() {
		return session.ElevatedSession{}, errEmptyPinToken
	}
	if e.Banners == nil {
		e.Banners = []session.Banner{}
	}
	return e, nil
}
