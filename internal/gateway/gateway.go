package gateway

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"strconv"
)

// Backend status codes with a meaning for the session lifecycle.
const (
	StatusLoginExpired = 401
	StatusMpinExpired  = 412
)

// NetworkErrorMessage is the message surfaced when no structured response exists.
const NetworkErrorMessage = "Network error"

// ErrNetwork marks transport failures that produced no structured response.
var ErrNetwork = errors.New("network error")

// Response is the uniform shape of every backend answer. Failures returned as
// errors carry the same shape in *Error.
type Response struct {
	Status     bool            `json:"status"`
	Result     json.RawMessage `json:"result,omitempty"`
	Msg        string          `json:"msg,omitempty"`
	StatusCode int             `json:"status_code,omitempty"`
}

// UnmarshalJSON accepts status_code (or statusCode) as a number or a numeric string.
func (r *Response) UnmarshalJSON(data []byte) error {
	var wire struct {
		Status        bool            `json:"status"`
		Result        json.RawMessage `json:"result"`
		Msg           string          `json:"msg"`
		StatusCode    json.RawMessage `json:"status_code"`
		StatusCodeAlt json.RawMessage `json:"statusCode"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	r.Status = wire.Status
	r.Result = wire.Result
	r.Msg = wire.Msg
	r.StatusCode = 0
	for _, raw := range []json.RawMessage{wire.StatusCode, wire.StatusCodeAlt} {
		if code := parseCode(raw); code != 0 {
			r.StatusCode = code
			break
		}
	}
	return nil
}

func parseCode(raw json.RawMessage) int {
	raw = bytes.Trim(bytes.TrimSpace(raw), `"`)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return 0
	}
	code, err := strconv.Atoi(string(raw))
	if err != nil {
		return 0
	}
	return code
}

// HasResult reports whether the response carries a non-null result.
func (r Response) HasResult() bool {
	trimmed := bytes.TrimSpace(r.Result)
	return len(trimmed) > 0 && !bytes.Equal(trimmed, []byte("null"))
}

// Error is a failed call normalized to the Response shape.
type Error struct {
	Response Response
	Err      error
}

func (e *Error) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s (status_code=%d): %v", e.Response.Msg, e.Response.StatusCode, e.Err)
	}
	return fmt.Sprintf("%s (status_code=%d)", e.Response.Msg, e.Response.StatusCode)
}

func (e *Error) Unwrap() error { return e.Err }

// Normalize folds a returned response and a returned error into one Response,
// so callers never branch on which of the two carried the failure.
func Normalize(resp Response, err error) Response {
	if err == nil {
		return resp
	}
	var gwErr *Error
	if errors.As(err, &gwErr) {
		return gwErr.Response
	}
	return Response{Status: false, Msg: NetworkErrorMessage}
}

// Signal classifies a response for the session lifecycle.
type Signal int

const (
	SignalNone Signal = iota
	SignalMpinExpired
	SignalLoginExpired
)

func (s Signal) String() string {
	switch s {
	case SignalLoginExpired:
		return "login_expired"
	case SignalMpinExpired:
		return "mpin_expired"
	default:
		return "none"
	}
}

// Classify maps a normalized response to its expiry signal.
func Classify(resp Response) Signal {
	switch resp.StatusCode {
	case StatusLoginExpired:
		return SignalLoginExpired
	case StatusMpinExpired:
		return SignalMpinExpired
	default:
		return SignalNone
	}
}

// Tokens is the credential pair sent with every authenticated call.
type Tokens struct {
	UserToken string `json:"user_token"`
	PinToken  string `json:"pin_token"`
}

// Complete reports whether both tokens are set.
func (t Tokens) Complete() bool {
	return t.UserToken != "" && t.PinToken != ""
}

// Market selects one of the game lists shown on the dashboard.
type Market string

const (
	MarketMain     Market = "main"
	MarketStarline Market = "starline"
	MarketDelhi    Market = "delhi"
)

// Markets lists every market in display order.
var Markets = []Market{MarketMain, MarketStarline, MarketDelhi}

func (m Market) endpoint() (string, error) {
	switch m {
	case MarketMain:
		return "TodayGames", nil
	case MarketStarline:
		return "TodayGames_Starline", nil
	case MarketDelhi:
		return "TodayGames_Delhi", nil
	default:
		return "", fmt.Errorf("unknown market %q", string(m))
	}
}
