package dashboard

import (
	"context"
	"log/slog"
	"strings"

	"golang.org/x/sync/errgroup"

	"github.com/playmaxx/playmaxx/internal/auth"
	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/notification"
	"github.com/playmaxx/playmaxx/internal/session"
)

// Gateway is the backend surface read by the home and profile screens.
type Gateway interface {
	MyBalance(ctx context.Context, t gateway.Tokens) (gateway.Response, error)
	TodayGames(ctx context.Context, m gateway.Market, t gateway.Tokens) (gateway.Response, error)
	Notifications(ctx context.Context, t gateway.Tokens) (gateway.Response, error)
}

// Service assembles the home and profile screens from parallel backend reads.
type Service struct {
	api     Gateway
	session auth.Authorized
	cdnURL  string
	logger  *slog.Logger
}

// NewService builds a dashboard service. Banner images are resolved against cdnURL.
func NewService(api Gateway, sess auth.Authorized, cdnURL string, logger *slog.Logger) *Service {
	if cdnURL != "" && !strings.HasSuffix(cdnURL, "/") {
		cdnURL += "/"
	}
	return &Service{api: api, session: sess, cdnURL: cdnURL, logger: logger}
}

// Load fetches the balance and the three market lists in parallel.
func (s *Service) Load(ctx context.Context) (View, error) {
	return s.load(ctx, false)
}

// Refresh is Load plus the notification list.
func (s *Service) Refresh(ctx context.Context) (View, error) {
	return s.load(ctx, true)
}

func (s *Service) load(ctx context.Context, withNotifications bool) (View, error) {
	tokens, err := auth.RequireTokens(s.session)
	if err != nil {
		return View{}, err
	}
	snap := s.session.Snapshot()
	view := View{
		User:    userOf(snap.Primary),
		Games:   Games{Main: []Game{}, Starline: []Game{}, Delhi: []Game{}},
		Banners: s.banners(snap.Elevated.Banners),
		Contact: contactOf(snap.MasterConfig),
	}
	markets := map[gateway.Market]*[]Game{
		gateway.MarketMain:     &view.Games.Main,
		gateway.MarketStarline: &view.Games.Starline,
		gateway.MarketDelhi:    &view.Games.Delhi,
	}

	// One slot per call; each goroutine writes only its own slot and its own
	// field of view.
	expired := make([]error, len(gateway.Markets)+2)
	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		norm, err := s.fetch(ctx, "balance", func() (gateway.Response, error) { return s.api.MyBalance(gctx, tokens) })
		if err != nil {
			expired[0] = err
			return err
		}
		if norm.Status {
			view.Balance = parseBalance(norm.Result)
		}
		return nil
	})
	for i, m := range gateway.Markets {
		dst := markets[m]
		g.Go(func() error {
			norm, err := s.fetch(ctx, string(m), func() (gateway.Response, error) { return s.api.TodayGames(gctx, m, tokens) })
			if err != nil {
				expired[i+1] = err
				return err
			}
			if norm.Status {
				*dst = decodeGames(norm.Result)
			}
			return nil
		})
	}
	if withNotifications {
		g.Go(func() error {
			norm, err := s.fetch(ctx, "notifications", func() (gateway.Response, error) { return s.api.Notifications(gctx, tokens) })
			if err != nil {
				expired[len(expired)-1] = err
				return err
			}
			view.Notifications = []notification.Notification{}
			if norm.Status {
				view.Notifications = notification.Decode(norm.Result)
			}
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return View{}, strongest(expired)
	}
	return view, nil
}

// Profile fetches the balance shown on the profile screen.
func (s *Service) Profile(ctx context.Context) (Profile, error) {
	tokens, err := auth.RequireTokens(s.session)
	if err != nil {
		return Profile{}, err
	}
	norm, err := s.fetch(ctx, "balance", func() (gateway.Response, error) { return s.api.MyBalance(ctx, tokens) })
	if err != nil {
		return Profile{}, err
	}
	snap := s.session.Snapshot()
	p := Profile{User: userOf(snap.Primary), Contact: contactOf(snap.MasterConfig)}
	if norm.Status {
		p.Balance = parseBalance(norm.Result)
	}
	return p, nil
}

// fetch runs one call and routes an expiry signal through the controller with
// the caller's context, which outlives the group's. Other failures are
// logged and left to the caller's defaults.
func (s *Service) fetch(ctx context.Context, name string, call func() (gateway.Response, error)) (gateway.Response, error) {
	resp, err := call()
	norm := gateway.Normalize(resp, err)
	if d, expired := auth.Expire(ctx, s.session, norm); expired != nil {
		auth.LogDowngrade(s.logger, d, slog.String("call", name), slog.Int("status_code", norm.StatusCode))
		return norm, expired
	}
	if !norm.Status {
		s.logger.Warn("dashboard call failed", slog.String("call", name), slog.String("msg", norm.Msg))
	}
	return norm, nil
}

func (s *Service) banners(in []session.Banner) []Banner {
	out := make([]Banner, 0, len(in))
	for _, b := range in {
		out = append(out, Banner{ID: string(b.ID), Title: b.Title, ImageURL: s.imageURL(b.ImagePath)})
	}
	return out
}

func (s *Service) imageURL(path string) string {
	if path == "" || strings.HasPrefix(path, "http://") || strings.HasPrefix(path, "https://") {
		return path
	}
	return s.cdnURL + strings.TrimLeft(path, "/")
}

// strongest picks the expiry to surface when several calls reported one:
// login expiry outranks PIN expiry.
func strongest(errs []error) error {
	var out error
	for _, err := range errs {
		switch auth.KindOf(err) {
		case auth.KindLoginExpired:
			return err
		case auth.KindMpinExpired:
			if out == nil {
				out = err
			}
		}
	}
	return out
}
