// Package service exposes the developer directory operations for the
// caller's session workspace.
package service

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"devconnect/internal/audit"
	"devconnect/internal/developer/metrics"
	"devconnect/internal/developer/models"
	"devconnect/internal/developer/registry"
	"devconnect/internal/developer/view"
	"devconnect/internal/workspace"
	"devconnect/pkg/attrs"
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/sentinel"
	"devconnect/pkg/requestcontext"
)

const tracerName = "devconnect/developer"

// Workspaces resolves a session to its workspace.
type Workspaces interface {
	Get(ctx context.Context, sessionID id.SessionID) (*workspace.Workspace, error)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// Service runs developer operations against the caller's workspace.
type Service struct {
	workspaces     Workspaces
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	tracer         trace.Tracer
}

type Option func(*Service)

func WithLogger(logger *slog.Logger) Option {
	return func(s *Service) {
		s.logger = logger
	}
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(s *Service) {
		s.metrics = m
	}
}

func WithAuditPublisher(publisher AuditPublisher) Option {
	return func(s *Service) {
		s.auditPublisher = publisher
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

// New constructs a Service.
func New(workspaces Workspaces, opts ...Option) *Service {
	s := &Service{
		workspaces: workspaces,
		logger:     slog.Default(),
		tracer:     otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Browse derives a page for an explicit query without touching the session's
// browse state.
func (s *Service) Browse(ctx context.Context, q view.Query) (*view.Page, error) {
	ctx, span := s.tracer.Start(ctx, "developer.Browse", trace.WithAttributes(
		attribute.String("developer.sort", string(q.Sort)),
		attribute.String("developer.role", string(q.Role)),
	))
	defer span.End()

	var page view.Page
	err := s.withWorkspace(ctx, func(reg *registry.Registry, _ *view.State) error {
		start := time.Now()
		page = view.Derive(reg.List(ctx), q)
		s.metrics.ObserveBrowse("query", time.Since(start), page.Total)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	span.SetAttributes(attribute.Int("developer.total", page.Total))
	return &page, nil
}

// List returns every record in the caller's workspace in insertion order.
func (s *Service) List(ctx context.Context) ([]models.Developer, error) {
	ctx, span := s.tracer.Start(ctx, "developer.List")
	defer span.End()

	var out []models.Developer
	err := s.withWorkspace(ctx, func(reg *registry.Registry, _ *view.State) error {
		out = reg.List(ctx)
		return nil
	})
	if err != nil {
		return nil, s.fail(span, err)
	}
	return out, nil
}

func (s *Service) Get(ctx context.Context, devID id.DeveloperID) (*models.Developer, error) {
	ctx, span := s.tracer.Start(ctx, "developer.Get", trace.WithAttributes(attribute.String("developer.id", devID.String())))
	defer span.End()

	var dev models.Developer
	err := s.withWorkspace(ctx, func(reg *registry.Registry, _ *view.State) error {
		var err error
		dev, err = reg.Get(ctx, devID)
		return err
	})
	if err != nil {
		s.metrics.IncrementOperation("get", outcome(err))
		return nil, s.fail(span, translate(err, "developer not found"))
	}
	s.metrics.IncrementOperation("get", "ok")
	return &dev, nil
}

// Add validates the draft and stores it under a fresh id.
func (s *Service) Add(ctx context.Context, draft models.Draft) (*models.Developer, error) {
	ctx, span := s.tracer.Start(ctx, "developer.Add")
	defer span.End()

	var dev models.Developer
	err := s.withWorkspace(ctx, func(reg *registry.Registry, _ *view.State) error {
		var err error
		dev, err = reg.Add(ctx, draft)
		return err
	})
	if err != nil {
		s.metrics.IncrementOperation("add", outcome(err))
		return nil, s.fail(span, translate(err, "developer not found"))
	}
	span.SetAttributes(attribute.String("developer.id", dev.ID.String()))
	s.metrics.IncrementOperation("add", "ok")
	s.logAudit(ctx, audit.ActionDeveloperCreated, "developer_id", dev.ID.String(), "role", string(dev.Role))
	return &dev, nil
}

// Update merges the patch into the record. Unknown ids are reported as
// not found and leave the workspace unchanged.
func (s *Service) Update(ctx context.Context, devID id.DeveloperID, patch models.Patch) (*models.Developer, error) {
	ctx, span := s.tracer.Start(ctx, "developer.Update", trace.WithAttributes(attribute.String("developer.id", devID.String())))
	defer span.End()

	if patch.IsEmpty() {
		return nil, s.fail(span, dErrors.New(dErrors.CodeValidation, "at least one field is required"))
	}

	var dev models.Developer
	err := s.withWorkspace(ctx, func(reg *registry.Registry, _ *view.State) error {
		var err error
		dev, err = reg.Update(ctx, devID, patch)
		return err
	})
	if err != nil {
		s.metrics.IncrementOperation("update", outcome(err))
		return nil, s.fail(span, translate(err, "developer not found"))
	}
	s.metrics.IncrementOperation("update", "ok")
	s.logAudit(ctx, audit.ActionDeveloperUpdated, "developer_id", devID.String())
	return &dev, nil
}

func (s *Service) Delete(ctx context.Context, devID id.DeveloperID) error {
	ctx, span := s.tracer.Start(ctx, "developer.Delete", trace.WithAttributes(attribute.String("developer.id", devID.String())))
	defer span.End()

	err := s.withWorkspace(ctx, func(reg *registry.Registry, _ *view.State) error {
		return reg.Delete(ctx, devID)
	})
	if err != nil {
		s.metrics.IncrementOperation("delete", outcome(err))
		return s.fail(span, translate(err, "developer not found"))
	}
	s.metrics.IncrementOperation("delete", "ok")
	s.logAudit(ctx, audit.ActionDeveloperDeleted, "developer_id", devID.String())
	return nil
}

// withWorkspace runs fn under the caller's workspace lock.
func (s *Service) withWorkspace(ctx context.Context, fn func(*registry.Registry, *view.State) error) error {
	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	ws, err := s.workspaces.Get(ctx, sessionID)
	if err != nil {
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to load workspace")
	}
	return ws.Do(fn)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
	userID := requestcontext.UserID(ctx)
	if !userID.IsNil() {
		attributes = append(attributes, "user_id", userID.String())
	}
	if requestID := requestcontext.RequestID(ctx); requestID != "" {
		attributes = append(attributes, "request_id", requestID)
	}
	args := append(attributes, "event", string(action), "log_type", "audit")
	if s.logger != nil {
		s.logger.InfoContext(ctx, string(action), args...)
	}
	if s.auditPublisher == nil {
		return
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    attrs.ExtractString(attributes, "user_id"),
		SessionID: requestcontext.SessionID(ctx).String(),
		Action:    action,
		Subject:   attrs.ExtractString(attributes, "developer_id"),
		RequestID: attrs.ExtractString(attributes, "request_id"),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(action), "error", err)
	}
}

// translate maps store facts to domain errors. Domain errors pass through.
func translate(err error, notFoundMsg string) error {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return dErrors.New(dErrors.CodeNotFound, notFoundMsg)
	case errors.Is(err, registry.ErrIDExhausted):
		return dErrors.Wrap(err, dErrors.CodeInternal, "failed to allocate developer id")
	}
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, "developer operation failed")
}

func outcome(err error) string {
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		return "not_found"
	case dErrors.HasCode(err, dErrors.CodeValidation), dErrors.HasCode(err, dErrors.CodeInvalidInput):
		return "invalid"
	}
	return "error"
}
