package dashboard

import (
	"bytes"
	"encoding/json"
	"strconv"
	"strings"

	"github.com/playmaxx/playmaxx/internal/notification"
	"github.com/playmaxx/playmaxx/internal/session"
)

// Game is one entry of a market's game list.
type Game struct {
	ID       session.FlexID `json:"id"`
	Title    string         `json:"title"`
	SubTitle string         `json:"subtitle"`
	Result   string         `json:"result,omitempty"`
}

// UnmarshalJSON reads the backend shape, where the title may arrive as Title
// or GameName and the subtitle as SubTitle or Time.
func (g *Game) UnmarshalJSON(data []byte) error {
	var wire struct {
		ID       session.FlexID `json:"Id"`
		Title    string         `json:"Title"`
		GameName string         `json:"GameName"`
		SubTitle string         `json:"SubTitle"`
		Time     string         `json:"Time"`
		Result   session.FlexID `json:"Result"`
	}
	if err := json.Unmarshal(data, &wire); err != nil {
		return err
	}
	g.ID = wire.ID
	g.Title = wire.Title
	if g.Title == "" {
		g.Title = wire.GameName
	}
	g.SubTitle = wire.SubTitle
	if g.SubTitle == "" {
		g.SubTitle = wire.Time
	}
	g.Result = string(wire.Result)
	return nil
}

// Games holds the three market lists. Lists are never nil.
type Games struct {
	Main     []Game `json:"main"`
	Starline []Game `json:"starline"`
	Delhi    []Game `json:"delhi"`
}

// Banner is a promotion with its image resolved against the CDN.
type Banner struct {
	ID       string `json:"id"`
	Title    string `json:"title"`
	ImageURL string `json:"image_url"`
}

// Contact carries the support channels from the master configuration.
type Contact struct {
	WhatsappNo   string `json:"whatsapp_no,omitempty"`
	TelegramLink string `json:"telegram_link,omitempty"`
	MobileNo     string `json:"mobile_no,omitempty"`
}

// User is the part of the login session shown on screens.
type User struct {
	Name                string `json:"name"`
	Mobile              string `json:"mobile"`
	NotificationEnabled bool   `json:"notification_enabled"`
}

// View is the assembled home screen.
type View struct {
	User          User                        `json:"user"`
	Balance       float64                     `json:"balance"`
	Games         Games                       `json:"games"`
	Banners       []Banner                    `json:"banners"`
	Contact       Contact                     `json:"contact"`
	Notifications []notification.Notification `json:"notifications,omitempty"`
}

// Profile is the profile screen.
type Profile struct {
	User    User    `json:"user"`
	Balance float64 `json:"balance"`
	Contact Contact `json:"contact"`
}

// parseBalance accepts the balance as a JSON number or a numeric string.
// Anything else reads as zero.
func parseBalance(raw json.RawMessage) float64 {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 {
		return 0
	}
	if raw[0] == '"' {
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0
		}
		v, err := strconv.ParseFloat(strings.TrimSpace(s), 64)
		if err != nil {
			return 0
		}
		return v
	}
	var v float64
	if err := json.Unmarshal(raw, &v); err != nil {
		return 0
	}
	return v
}

// decodeGames returns the list in raw, or an empty list when raw is not an
// array of games.
func decodeGames(raw json.RawMessage) []Game {
	games := []Game{}
	if trimmed := bytes.TrimSpace(raw); len(trimmed) == 0 || trimmed[0] != '[' {
		return games
	}
	if err := json.Unmarshal(raw, &games); err != nil {
		return []Game{}
	}
	return games
}

func userOf(p session.PrimarySession) User {
	return User{Name: p.Name, Mobile: p.Mobile, NotificationEnabled: p.NotificationEnabled}
}

func contactOf(m session.MasterConfig) Contact {
	return Contact{WhatsappNo: m.WhatsappNo(), TelegramLink: m.TelegramLink(), MobileNo: m.MobileNo()}
}
