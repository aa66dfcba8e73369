package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/gofiber/fiber/v2"
)

const userAgent = "playmaxx-client"

// Client calls the backend JSON API. Every method returns a Response; failures
// are additionally reported as *Error carrying the same normalized Response.
type Client struct {
	http    *fiber.Client
	baseURL string
	adminID int
	timeout time.Duration
	logger  *slog.Logger
}

// NewClient builds a backend client rooted at baseURL.
func NewClient(baseURL string, adminID int, timeout time.Duration, logger *slog.Logger) *Client {
	if !strings.HasSuffix(baseURL, "/") {
		baseURL += "/"
	}
	return &Client{
		http: &fiber.Client{
			UserAgent:   userAgent,
			JSONEncoder: json.Marshal,
			JSONDecoder: json.Unmarshal,
		},
		baseURL: baseURL,
		adminID: adminID,
		timeout: timeout,
		logger:  logger,
	}
}

// AdminID returns the tenant identifier sent with public calls.
func (c *Client) AdminID() int { return c.adminID }

type landingRequest struct {
	AdminID int `json:"AdminId"`
}

type loginRequest struct {
	UserName   string `json:"UserName"`
	Password   string `json:"Password"`
	AdminID    int    `json:"AdminId"`
	TokenValue string `json:"TokenValue"`
}

type validateMpinRequest struct {
	UserToken  string `json:"user_token"`
	Mpin       string `json:"Mpin"`
	TokenValue string `json:"TokenValue"`
}

type notificationStatusRequest struct {
	Tokens
	NotificationEnabled bool `json:"NotificationEnabled"`
}

// LandingData fetches the master configuration.
func (c *Client) LandingData(ctx context.Context) (Response, error) {
	return c.post(ctx, "LandingData", landingRequest{AdminID: c.adminID})
}

// Login exchanges mobile and password for a login token.
func (c *Client) Login(ctx context.Context, mobile, password, pushToken string) (Response, error) {
	return c.post(ctx, "Login", loginRequest{UserName: mobile, Password: password, AdminID: c.adminID, TokenValue: pushToken})
}

// ValidateMpin exchanges the login token and PIN for a PIN token.
func (c *Client) ValidateMpin(ctx context.Context, userToken, mpin, pushToken string) (Response, error) {
	return c.post(ctx, "ValidateMpin", validateMpinRequest{UserToken: userToken, Mpin: mpin, TokenValue: pushToken})
}

// MyBalance returns the wallet balance in result.
func (c *Client) MyBalance(ctx context.Context, t Tokens) (Response, error) {
	return c.post(ctx, "GetMyBalance", t)
}

// TodayGames returns the game list of one market.
func (c *Client) TodayGames(ctx context.Context, m Market, t Tokens) (Response, error) {
	endpoint, err := m.endpoint()
	if err != nil {
		return Response{Status: false, Msg: err.Error()}, &Error{Response: Response{Msg: err.Error()}, Err: err}
	}
	return c.post(ctx, endpoint, t)
}

// Notifications returns the user's notifications.
func (c *Client) Notifications(ctx context.Context, t Tokens) (Response, error) {
	return c.post(ctx, "Notification", t)
}

// SetNotificationStatus updates the push preference.
func (c *Client) SetNotificationStatus(ctx context.Context, t Tokens, enabled bool) (Response, error) {
	return c.post(ctx, "SetNotificationStatus", notificationStatusRequest{Tokens: t, NotificationEnabled: enabled})
}

// ClearLoginSession revokes both tokens on the backend.
func (c *Client) ClearLoginSession(ctx context.Context, t Tokens) (Response, error) {
	return c.post(ctx, "ClearLoginSession", t)
}

// ClearMpinSession revokes the PIN token on the backend.
func (c *Client) ClearMpinSession(ctx context.Context, t Tokens) (Response, error) {
	return c.post(ctx, "ClearMpinSession", t)
}

func (c *Client) post(ctx context.Context, endpoint string, body any) (Response, error) {
	if err := ctx.Err(); err != nil {
		return networkFailure(endpoint, err)
	}
	timeout := c.timeout
	if deadline, ok := ctx.Deadline(); ok {
		if remaining := time.Until(deadline); timeout <= 0 || remaining < timeout {
			timeout = remaining
		}
	}

	start := time.Now()
	agent := c.http.Post(c.baseURL + endpoint)
	agent.JSON(body)
	if timeout > 0 {
		agent.Timeout(timeout)
	}
	code, raw, errs := agent.Bytes()
	if len(errs) > 0 {
		c.logger.Warn("backend call failed", slog.String("endpoint", endpoint), slog.Duration("duration", time.Since(start)), slog.Any("error", errors.Join(errs...)))
		return networkFailure(endpoint, errors.Join(errs...))
	}

	var resp Response
	decodeErr := json.Unmarshal(raw, &resp)

	c.logger.Debug("backend call completed",
		slog.String("endpoint", endpoint),
		slog.Int("http_status", code),
		slog.Bool("status", resp.Status),
		slog.Int("status_code", resp.StatusCode),
		slog.Duration("duration", time.Since(start)),
	)

	if code >= fiber.StatusBadRequest {
		if decodeErr != nil {
			resp = Response{}
		}
		resp.Status = false
		if resp.StatusCode == 0 {
			resp.StatusCode = code
		}
		if resp.Msg == "" {
			resp.Msg = NetworkErrorMessage
		}
		return resp, &Error{Response: resp, Err: fmt.Errorf("%s: http %d", endpoint, code)}
	}
	if decodeErr != nil {
		resp = Response{Status: false, Msg: NetworkErrorMessage}
		return resp, &Error{Response: resp, Err: fmt.Errorf("%s: decode response: %w", endpoint, decodeErr)}
	}
	return resp, nil
}

func networkFailure(endpoint string, err error) (Response, error) {
	resp := Response{Status: false, Msg: NetworkErrorMessage}
	return resp, &Error{Response: resp, Err: fmt.Errorf("%s: %w: %v", endpoint, ErrNetwork, err)}
}
