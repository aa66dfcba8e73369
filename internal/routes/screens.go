package routes

import (
	"bufio"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"github.com/playmaxx/playmaxx/internal/auth"
	"github.com/playmaxx/playmaxx/internal/banner"
	"github.com/playmaxx/playmaxx/internal/dashboard"
	"github.com/playmaxx/playmaxx/internal/gateway"
	"github.com/playmaxx/playmaxx/internal/guard"
	"github.com/playmaxx/playmaxx/internal/middleware"
	"github.com/playmaxx/playmaxx/internal/notification"
	"github.com/playmaxx/playmaxx/internal/session"
)

var errRotationEnded = errors.New("banner rotation ended")

type screens struct {
	ctrl   *auth.Controller
	dash   *dashboard.Service
	notes  *notification.Service
	rot    *banner.Rotator
	logger *slog.Logger
}

type loginInput struct {
	Mobile   string `json:"mobile" form:"mobile"`
	Password string `json:"password" form:"password"`
}

type mpinInput struct {
	Pin string `json:"pin" form:"pin"`
}

// splash refreshes the landing configuration and forwards to the screen the
// current stage rests on. A failed refresh keeps the cached configuration.
func (h *screens) splash(c *fiber.Ctx) error {
	if _, err := h.ctrl.LoadLandingData(c.UserContext()); err != nil {
		h.logger.Warn("landing data refresh failed", slog.String("request_id", middleware.RequestIDFrom(c)), slog.Any("error", err))
	}
	return c.Redirect(guard.Landing(h.ctrl.Stage()), fiber.StatusSeeOther)
}

func (h *screens) loginScreen(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"screen":  "login",
		"contact": contactOf(h.ctrl),
	})
}

func (h *screens) login(c *fiber.Ctx) error {
	var in loginInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := auth.ValidateMobile(in.Mobile); err != nil {
		return h.fail(c, err)
	}
	if err := auth.ValidatePassword(in.Password); err != nil {
		return h.fail(c, err)
	}
	if _, err := h.ctrl.Login(c.UserContext(), in.Mobile, in.Password); err != nil {
		return h.fail(c, err)
	}
	return c.Redirect(guard.Mpin, fiber.StatusSeeOther)
}

func (h *screens) mpinScreen(c *fiber.Ctx) error {
	primary := h.ctrl.Snapshot().Primary
	return c.JSON(fiber.Map{
		"screen": "mpin",
		"name":   primary.Name,
		"mobile": primary.Mobile,
	})
}

func (h *screens) validateMpin(c *fiber.Ctx) error {
	var in mpinInput
	if err := c.BodyParser(&in); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid body")
	}
	if err := auth.ValidatePin(in.Pin); err != nil {
		return h.fail(c, err)
	}
	if _, err := h.ctrl.ValidateMpin(c.UserContext(), in.Pin); err != nil {
		return h.fail(c, err)
	}
	return c.Redirect(guard.Dashboard, fiber.StatusSeeOther)
}

func (h *screens) dashboard(c *fiber.Ctx) error {
	view, err := h.dash.Load(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

func (h *screens) refresh(c *fiber.Ctx) error {
	view, err := h.dash.Refresh(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(view)
}

// banners streams the visible banner index as server-sent events. The
// rotation stops when the client goes away or the session leaves Verified.
func (h *screens) banners(c *fiber.Ctx) error {
	count := len(h.ctrl.Snapshot().Elevated.Banners)
	c.Set(fiber.HeaderContentType, "text/event-stream")
	c.Set(fiber.HeaderCacheControl, "no-cache")
	c.Set(fiber.HeaderConnection, "keep-alive")

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		ctx, cancel := context.WithCancel(context.Background())
		defer cancel()
		if err := writeBanner(w, 0); err != nil {
			return
		}
		err := h.rot.Run(ctx, count, func(index int) error {
			if h.ctrl.Stage() != session.StageVerified {
				return errRotationEnded
			}
			return writeBanner(w, index)
		})
		if err != nil && !errors.Is(err, errRotationEnded) {
			h.logger.Debug("banner stream closed", slog.Any("error", err))
		}
	})
	return nil
}

func (h *screens) profile(c *fiber.Ctx) error {
	p, err := h.dash.Profile(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(p)
}

func (h *screens) toggleNotifications(c *fiber.Ctx) error {
	enabled, err := h.notes.Toggle(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"notification_enabled": enabled})
}

func (h *screens) notifications(c *fiber.Ctx) error {
	list, err := h.notes.List(c.UserContext())
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(fiber.Map{"notifications": list})
}

func (h *screens) logout(c *fiber.Ctx) error {
	if err := h.ctrl.Logout(c.UserContext()); err != nil {
		return h.fail(c, err)
	}
	return c.Redirect(guard.Login, fiber.StatusSeeOther)
}

func (h *screens) lock(c *fiber.Ctx) error {
	if err := h.ctrl.ClearMpinSession(c.UserContext()); err != nil {
		return h.fail(c, err)
	}
	return c.Redirect(guard.Mpin, fiber.StatusSeeOther)
}

// fail maps controller errors onto responses. Expiry becomes a redirect to
// the screen the signal points at; everything else carries the user-facing
// message.
func (h *screens) fail(c *fiber.Ctx, err error) error {
	kind := auth.KindOf(err)
	switch kind {
	case auth.KindLoginExpired:
		return c.Redirect(guard.ExpiryTarget(gateway.SignalLoginExpired), fiber.StatusSeeOther)
	case auth.KindMpinExpired:
		return c.Redirect(guard.ExpiryTarget(gateway.SignalMpinExpired), fiber.StatusSeeOther)
	}

	status := fiber.StatusInternalServerError
	switch kind {
	case auth.KindValidation:
		status = fiber.StatusUnprocessableEntity
	case auth.KindAPI:
		status = fiber.StatusBadRequest
	case auth.KindNetwork:
		status = fiber.StatusBadGateway
	case auth.KindStorage:
		h.logger.Error("session storage failed", slog.String("request_id", middleware.RequestIDFrom(c)), slog.Any("error", err))
	default:
		return err
	}
	return c.Status(status).JSON(fiber.Map{"message": auth.MessageOf(err), "kind": kind.String()})
}

func contactOf(ctrl *auth.Controller) fiber.Map {
	master := ctrl.Snapshot().MasterConfig
	return fiber.Map{
		"whatsapp": master.WhatsappNo(),
		"telegram": master.TelegramLink(),
		"mobile":   master.MobileNo(),
	}
}

func writeBanner(w *bufio.Writer, index int) error {
	payload, err := json.Marshal(fiber.Map{"index": index})
	if err != nil {
		return err
	}
	if _, err := fmt.Fprintf(w, "event: banner\ndata: %s\n\n", payload); err != nil {
		return err
	}
	return w.Flush()
}
