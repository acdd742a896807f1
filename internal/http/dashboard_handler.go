package http

import (
	"errors"
	"log/slog"

	"github.com/gofiber/fiber/v2"

	"trafficlens/internal/dashboard"
	"trafficlens/internal/selection"
)

// DomainsResponse lists every facet's domain.
type DomainsResponse struct {
	Sites     []string `json:"sites"`
	OSTypes   []string `json:"os_types"`
	Browsers  []string `json:"browsers"`
	Threshold int64    `json:"threshold"`
}

// SessionResponse is the full state of one session.
type SessionResponse struct {
	ID         string              `json:"id"`
	Selections map[string][]string `json:"selections"`
	Views      dashboard.Snapshot  `json:"views"`
}

// UpdateResponse reports the views an event recomputed and the new state.
type UpdateResponse struct {
	Facet      selection.Facet     `json:"facet"`
	Recomputed []dashboard.View    `json:"recomputed"`
	Selections map[string][]string `json:"selections"`
	Views      dashboard.Snapshot  `json:"views"`
}

// SelectionRequest replaces a facet's selection.
type SelectionRequest struct {
	Values []string `json:"values"`
}

// ClickRequest is a click on one bar.
type ClickRequest struct {
	Value string `json:"value"`
}

// DomainsIndexAction returns the facet domains.
func DomainsIndexAction(ctx *Context) error {
	dc := ctx.Sessions.Context()
	d := dc.Domains()
	return ctx.JSON(DomainsResponse{
		Sites:     nonNil(d.Sites.Values()),
		OSTypes:   nonNil(d.OSTypes.Values()),
		Browsers:  nonNil(d.Browsers.Values()),
		Threshold: dc.Threshold(),
	})
}

// SessionCreateAction starts a session with everything selected.
func SessionCreateAction(ctx *Context) error {
	id, session := ctx.Sessions.Create()
	ctx.Logger.Info("Dashboard session started", slog.String("session_id", id))

	return ctx.Status(fiber.StatusCreated).JSON(SessionResponse{
		ID:         id,
		Selections: session.Selections().Values(),
		Views:      session.Views(),
	})
}

// SessionShowAction returns a session's selections and views.
func SessionShowAction(ctx *Context) error {
	id := ctx.Params("id")

	var resp SessionResponse
	err := ctx.Sessions.With(id, func(s *dashboard.Session) error {
		resp = SessionResponse{
			ID:         id,
			Selections: s.Selections().Values(),
			Views:      s.Views(),
		}
		return nil
	})
	if err != nil {
		return err
	}

	return ctx.JSON(resp)
}

// SessionDeleteAction ends a session.
func SessionDeleteAction(ctx *Context) error {
	id := ctx.Params("id")
	if err := ctx.Sessions.Delete(id); err != nil {
		return err
	}

	ctx.Logger.Info("Dashboard session ended", slog.String("session_id", id))
	return ctx.SendStatus(fiber.StatusNoContent)
}

// SelectionUpdateAction handles the multi-value selector of one facet.
func SelectionUpdateAction(ctx *Context) error {
	facet, err := selection.ParseFacet(ctx.Params("facet"))
	if err != nil {
		return err
	}

	var req SelectionRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return applyEvent(ctx, facet, func(s *dashboard.Session) (dashboard.Update, error) {
		return s.OnSelectionChanged(facet, req.Values)
	})
}

// BarClickAction handles a click on a bar of the os or browser chart.
func BarClickAction(ctx *Context) error {
	facet, err := selection.ParseFacet(ctx.Params("facet"))
	if err != nil {
		return err
	}

	var req ClickRequest
	if err := ctx.BodyParser(&req); err != nil {
		return fiber.NewError(fiber.StatusBadRequest, "invalid request body")
	}

	return applyEvent(ctx, facet, func(s *dashboard.Session) (dashboard.Update, error) {
		return s.OnBarClicked(facet, req.Value)
	})
}

func applyEvent(ctx *Context, facet selection.Facet, event func(*dashboard.Session) (dashboard.Update, error)) error {
	id := ctx.Params("id")

	var update dashboard.Update
	err := ctx.Sessions.With(id, func(s *dashboard.Session) error {
		var err error
		update, err = event(s)
		return err
	})
	if err != nil {
		if errors.Is(err, selection.ErrEmptySelection) || errors.Is(err, selection.ErrUnknownCategoryValue) {
			ctx.Logger.Warn("Selection change rejected",
				slog.String("session_id", id),
				slog.String("facet", facet.String()),
				slog.Any("error", err))
		}
		return err
	}

	return ctx.JSON(UpdateResponse{
		Facet:      update.Facet,
		Recomputed: update.Recomputed,
		Selections: update.Selections.Values(),
		Views:      update.Views,
	})
}

func nonNil(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
