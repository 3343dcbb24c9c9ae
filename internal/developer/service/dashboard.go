package service

import (
	"context"
	"time"

	"go.opentelemetry.io/otel/attribute"

	"devconnect/internal/developer/registry"
	"devconnect/internal/developer/view"
	dErrors "devconnect/pkg/domain-errors"
)

// Move steps the dashboard one page.
type Move string

const (
	MoveNone Move = ""
	MoveNext Move = "next"
	MovePrev Move = "prev"
)

func (m Move) IsValid() bool {
	return m == MoveNone || m == MoveNext || m == MovePrev
}

// DashboardUpdate changes the session's browse controls. Nil fields are left
// alone. Search, role and sort are applied before Page and Move.
type DashboardUpdate struct {
	Search *string
	Role   *view.RoleFilter
	Sort   *view.SortOrder
	Page   *int
	Move   Move
}

// Dashboard is the session's browse state and the page it produces.
type Dashboard struct {
	Query view.Query
	Page  view.Page
}

// Dashboard returns the current page of the session's browse state.
func (s *Service) Dashboard(ctx context.Context) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "developer.Dashboard")
	defer span.End()

	var out Dashboard
	err := s.withWorkspace(ctx, func(reg *registry.Registry, browse *view.State) error {
		out = s.current(ctx, reg, browse)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return &out, nil
}

// UpdateDashboard applies the update to the browse state and returns the
// resulting page. Changing search, role or sort returns to page 1.
func (s *Service) UpdateDashboard(ctx context.Context, upd DashboardUpdate) (*Dashboard, error) {
	ctx, span := s.tracer.Start(ctx, "developer.UpdateDashboard")
	defer span.End()

	if !upd.Move.IsValid() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeInvalidInput, "move must be next or prev"))
	}
	if upd.Page != nil && upd.Move != MoveNone {
		return nil, s.fail(span, dErrors.New(dErrors.CodeInvalidInput, "page and move cannot be combined"))
	}

	var out Dashboard
	err := s.withWorkspace(ctx, func(reg *registry.Registry, browse *view.State) error {
		if upd.Search != nil {
			browse.SetSearch(*upd.Search)
		}
		if upd.Role != nil {
			browse.SetRole(*upd.Role)
		}
		if upd.Sort != nil {
			browse.SetSort(*upd.Sort)
		}
		records := reg.List(ctx)
		switch {
		case upd.Page != nil:
			browse.SetPage(records, *upd.Page)
		case upd.Move == MoveNext:
			browse.Next(records)
		case upd.Move == MovePrev:
			browse.Prev(records)
		}
		out = s.current(ctx, reg, browse)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.Int("developer.page", out.Page.Page))
	return &out, nil
}

func (s *Service) current(ctx context.Context, reg *registry.Registry, browse *view.State) Dashboard {
	start := time.Now()
	page := browse.Current(reg.List(ctx))
	s.metrics.ObserveBrowse("dashboard", time.Since(start), page.Total)
	return Dashboard{Query: browse.Query(), Page: page}
}
