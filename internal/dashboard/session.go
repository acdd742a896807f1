package dashboard

import (
	"fmt"

	"trafficlens/internal/analytics"
	"trafficlens/internal/selection"
)

// Update describes the outcome of one accepted event.
type Update struct {
	Facet      selection.Facet      `json:"facet"`
	Recomputed []View               `json:"recomputed"`
	Selections analytics.Selections `json:"-"`
	Views      Snapshot             `json:"views"`
}

// Session is one viewer's selections and views.
type Session struct {
	ctx        *Context
	selections analytics.Selections
	views      Snapshot
}

// Context returns the shared data behind the session.
func (s *Session) Context() *Context {
	return s.ctx
}

// Selections returns a copy of the current selections.
func (s *Session) Selections() analytics.Selections {
	return s.selections.Clone()
}

// Views returns the current views.
func (s *Session) Views() Snapshot {
	return s.views
}

// OnSelectionChanged replaces facet's selection with values and recomputes
// the views that depend on it. An empty or out-of-domain selection is
// rejected and the session is left as it was.
func (s *Session) OnSelectionChanged(facet selection.Facet, values []string) (Update, error) {
	return s.apply(facet, func(set *selection.Set) error {
		return set.Replace(values)
	})
}

// OnBarClicked applies a bar click: clicking the only selected value
// selects the whole domain again, clicking anything else selects just that
// value. The dependent views are then recomputed.
func (s *Session) OnBarClicked(facet selection.Facet, value string) (Update, error) {
	return s.apply(facet, func(set *selection.Set) error {
		return set.Toggle(value)
	})
}

func (s *Session) apply(facet selection.Facet, mutate func(*selection.Set) error) (Update, error) {
	if !facet.Valid() {
		return Update{}, fmt.Errorf("%w: %d", selection.ErrUnknownFacet, int(facet))
	}

	next := s.selections.Clone()
	if err := mutate(next.For(facet)); err != nil {
		return Update{}, err
	}
	s.selections = next

	recomputed := Dependents(facet)
	for _, v := range recomputed {
		s.ctx.rebuild(&s.views, v, s.selections)
	}

	return Update{
		Facet:      facet,
		Recomputed: recomputed,
		Selections: s.selections.Clone(),
		Views:      s.views,
	}, nil
}
