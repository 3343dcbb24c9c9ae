package handler

//go:generate mockgen -source=handler.go -destination=mocks/mocks.go -package=mocks Service

import (
	"context"
	"errors"
	"log/slog"
	"math"
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"

	"devconnect/internal/audit"
	"devconnect/internal/auth/lockout"
	"devconnect/internal/auth/models"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/httputil"
	"devconnect/pkg/requestcontext"
)

// Service defines the auth operations the handler depends on.
type Service interface {
	Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResult, error)
	Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error)
	Logout(ctx context.Context) error
	Me(ctx context.Context) (*models.User, error)
	Session(ctx context.Context) (*models.User, error)
	Activity(ctx context.Context) ([]audit.Event, error)
}

// Middleware wraps a handler, e.g. token authentication.
type Middleware func(http.Handler) http.Handler

// Handler serves the /auth endpoints.
type Handler struct {
	service      Service
	logger       *slog.Logger
	requireAuth  Middleware
	optionalAuth Middleware
}

// New constructs an auth handler. requireAuth guards logout and me;
// optionalAuth resolves the identity for the session probe.
func New(service Service, logger *slog.Logger, requireAuth, optionalAuth Middleware) *Handler {
	return &Handler{
		service:      service,
		logger:       logger,
		requireAuth:  requireAuth,
		optionalAuth: optionalAuth,
	}
}

func (h *Handler) Register(r chi.Router) {
	r.Post("/auth/signup", h.HandleSignup)
	r.Post("/auth/login", h.HandleLogin)
	r.With(h.requireAuth).Post("/auth/logout", h.HandleLogout)
	r.With(h.requireAuth).Get("/auth/me", h.HandleMe)
	r.With(h.optionalAuth).Get("/auth/session", h.HandleSession)
	r.With(h.requireAuth).Get("/auth/activity", h.HandleActivity)
}

// HandleSignup handles POST /auth/signup.
func (h *Handler) HandleSignup(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.SignupRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.Signup(ctx, req)
	if err != nil {
		h.writeServiceError(ctx, w, "signup failed", err)
		return
	}
	h.logger.InfoContext(ctx, "user signed up",
		"request_id", requestID,
		"user_id", result.User.ID.String(),
	)
	httputil.WriteJSON(w, http.StatusCreated, models.FromAuthResult(result, requestcontext.Now(ctx)))
}

// HandleLogin handles POST /auth/login.
func (h *Handler) HandleLogin(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	requestID := requestcontext.RequestID(ctx)

	req, ok := httputil.DecodeAndPrepare[models.LoginRequest](w, r, h.logger, ctx, requestID)
	if !ok {
		return
	}
	result, err := h.service.Login(ctx, req)
	if err != nil {
		var locked *lockout.LockedError
		if errors.As(err, &locked) {
			h.logger.WarnContext(ctx, "login locked",
				"request_id", requestID,
				"retry_after", locked.RetryAfter.String(),
			)
			writeLocked(w, err, locked)
			return
		}
		h.writeServiceError(ctx, w, "login failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FromAuthResult(result, requestcontext.Now(ctx)))
}

// HandleLogout handles POST /auth/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	if err := h.service.Logout(ctx); err != nil {
		h.writeServiceError(ctx, w, "logout failed", err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleMe handles GET /auth/me.
func (h *Handler) HandleMe(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.Me(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "load current user failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FromUser(user))
}

// HandleSession handles GET /auth/session. It never answers 401.
func (h *Handler) HandleSession(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	user, err := h.service.Session(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "session lookup failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.SessionResponse{
		Authenticated: user != nil,
		User:          models.FromUser(user),
	})
}

// HandleActivity handles GET /auth/activity.
func (h *Handler) HandleActivity(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	events, err := h.service.Activity(ctx)
	if err != nil {
		h.writeServiceError(ctx, w, "load activity failed", err)
		return
	}
	httputil.WriteJSON(w, http.StatusOK, models.FromEvents(events))
}

func (h *Handler) writeServiceError(ctx context.Context, w http.ResponseWriter, msg string, err error) {
	requestID := requestcontext.RequestID(ctx)
	if dErrors.HasCode(err, dErrors.CodeInternal) {
		h.logger.ErrorContext(ctx, msg, "request_id", requestID, "error", err)
	} else {
		h.logger.WarnContext(ctx, msg, "request_id", requestID, "error", err)
	}
	httputil.WriteError(w, err)
}

func writeLocked(w http.ResponseWriter, err error, locked *lockout.LockedError) {
	seconds := int64(math.Ceil(locked.RetryAfter.Seconds()))
	message := "too many failed login attempts"
	if de, ok := dErrors.As(err); ok {
		message = de.Message
	}
	w.Header().Set("Retry-After", strconv.FormatInt(seconds, 10))
	httputil.WriteJSON(w, http.StatusTooManyRequests, models.LockoutResponse{
		Error:       string(dErrors.CodeTooManyRequests),
		Description: message,
		RetryAfter:  seconds,
	})
}
