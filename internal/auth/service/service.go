// Package service implements signup, login, logout and session lookup.
package service

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"time"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"devconnect/internal/audit"
	"devconnect/internal/auth/lockout"
	"devconnect/internal/auth/metrics"
	"devconnect/internal/auth/models"
	"devconnect/internal/jwttoken"
	"devconnect/pkg/attrs"
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/email"
	"devconnect/pkg/platform/secrets"
	"devconnect/pkg/platform/sentinel"
	"devconnect/pkg/requestcontext"
)

const (
	tracerName      = "devconnect/auth"
	DefaultTokenTTL = 24 * time.Hour
)

var errInvalidCredentials = dErrors.New(dErrors.CodeUnauthorized, "invalid email or password")

// UserStore persists accounts.
type UserStore interface {
	Create(ctx context.Context, user *models.User) error
	FindByID(ctx context.Context, userID id.UserID) (*models.User, error)
	FindByEmail(ctx context.Context, address string) (*models.User, error)
}

type TokenIssuer interface {
	GenerateAccessToken(userID id.UserID, sessionID id.SessionID, expiresIn time.Duration) (jwttoken.Issued, error)
}

// Revoker records logged-out token ids.
type Revoker interface {
	RevokeToken(ctx context.Context, jti string, ttl time.Duration) error
}

type PasswordHasher interface {
	Hash(password string) (string, error)
	Verify(password, hash string) error
}

// LoginThrottle tracks failed logins per email key.
type LoginThrottle interface {
	Check(identifier string, now time.Time) (time.Duration, bool)
	RecordFailure(identifier string, now time.Time) lockout.Record
	Clear(identifier string)
}

// SessionDropper discards per-session state on logout.
type SessionDropper interface {
	Drop(ctx context.Context, sessionID id.SessionID)
}

type AuditPublisher interface {
	Emit(ctx context.Context, base audit.Event) error
}

// ActivityReader lists a user's recorded audit events, oldest first.
type ActivityReader interface {
	ListByUser(ctx context.Context, userID string) ([]audit.Event, error)
}

// Service owns the account and session lifecycle.
type Service struct {
	users          UserStore
	tokens         TokenIssuer
	revoker        Revoker
	hasher         PasswordHasher
	throttle       LoginThrottle
	sessions       SessionDropper
	tokenTTL       time.Duration
	logger         *slog.Logger
	metrics        *metrics.Metrics
	auditPublisher AuditPublisher
	activity       ActivityReader
	tracer         trace.Tracer

	dummyOnce sync.Once
	dummyHash string
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

func WithActivityReader(reader ActivityReader) Option {
	return func(s *Service) {
		s.activity = reader
	}
}

func WithTokenTTL(ttl time.Duration) Option {
	return func(s *Service) {
		if ttl > 0 {
			s.tokenTTL = ttl
		}
	}
}

func WithHasher(h PasswordHasher) Option {
	return func(s *Service) {
		if h != nil {
			s.hasher = h
		}
	}
}

func WithLoginThrottle(t LoginThrottle) Option {
	return func(s *Service) {
		if t != nil {
			s.throttle = t
		}
	}
}

func WithSessionDropper(d SessionDropper) Option {
	return func(s *Service) {
		s.sessions = d
	}
}

func WithTracer(tracer trace.Tracer) Option {
	return func(s *Service) {
		if tracer != nil {
			s.tracer = tracer
		}
	}
}

func New(users UserStore, tokens TokenIssuer, revoker Revoker, opts ...Option) *Service {
	s := &Service{
		users:    users,
		tokens:   tokens,
		revoker:  revoker,
		hasher:   secrets.NewHasher(0),
		throttle: lockout.New(),
		tokenTTL: DefaultTokenTTL,
		logger:   slog.Default(),
		tracer:   otel.Tracer(tracerName),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Signup creates an account and signs the new user in.
func (s *Service) Signup(ctx context.Context, req *models.SignupRequest) (*models.AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Signup")
	defer span.End()

	hash, err := s.hasher.Hash(req.Password)
	if err != nil {
		s.metrics.IncrementOutcome("signup", "invalid")
		return nil, s.fail(span, passThrough(err, "failed to hash password"))
	}
	user, err := models.NewUser(id.NewUserID(), req.Name, req.Email, hash, requestcontext.Now(ctx))
	if err != nil {
		s.metrics.IncrementOutcome("signup", "invalid")
		return nil, s.fail(span, err)
	}
	if err := s.users.Create(ctx, user); err != nil {
		if errors.Is(err, sentinel.ErrAlreadyUsed) {
			s.metrics.IncrementOutcome("signup", "conflict")
			return nil, s.fail(span, dErrors.New(dErrors.CodeConflict, "email already registered"))
		}
		s.metrics.IncrementOutcome("signup", "error")
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to create user"))
	}

	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.IncrementUsersCreated()
	s.metrics.IncrementOutcome("signup", "ok")
	s.logAudit(ctx, audit.ActionUserCreated,
		"user_id", user.ID.String(),
		"session_id", result.SessionID.String(),
	)
	return result, nil
}

// Login checks credentials and issues a fresh session token. Repeated
// failures for an email lock it for the throttle window.
func (s *Service) Login(ctx context.Context, req *models.LoginRequest) (*models.AuthResult, error) {
	ctx, span := s.tracer.Start(ctx, "auth.Login")
	defer span.End()

	now := requestcontext.Now(ctx)
	key := email.Key(req.Email)
	if retryAfter, locked := s.throttle.Check(key, now); locked {
		s.metrics.IncrementOutcome("login", "locked")
		return nil, s.fail(span, lockedError(retryAfter))
	}

	user, err := s.users.FindByEmail(ctx, key)
	switch {
	case errors.Is(err, sentinel.ErrNotFound):
		// Burn a hash comparison so unknown emails take as long as bad passwords.
		_ = s.hasher.Verify(req.Password, s.fallbackHash())
		return nil, s.fail(span, s.loginFailed(ctx, key, now))
	case err != nil:
		s.metrics.IncrementOutcome("login", "error")
		return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user"))
	}

	if err := s.hasher.Verify(req.Password, user.PasswordHash); err != nil {
		if !errors.Is(err, secrets.ErrMismatch) {
			s.metrics.IncrementOutcome("login", "error")
			return nil, s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to verify password"))
		}
		return nil, s.fail(span, s.loginFailed(ctx, key, now))
	}

	s.throttle.Clear(key)
	result, err := s.issue(ctx, user)
	if err != nil {
		return nil, s.fail(span, err)
	}
	s.metrics.IncrementOutcome("login", "ok")
	s.logAudit(ctx, audit.ActionLoginSucceeded,
		"user_id", user.ID.String(),
		"session_id", result.SessionID.String(),
	)
	return result, nil
}

// Logout revokes the caller's token for the rest of its lifetime and
// discards the session's workspace.
func (s *Service) Logout(ctx context.Context) error {
	ctx, span := s.tracer.Start(ctx, "auth.Logout")
	defer span.End()

	sessionID := requestcontext.SessionID(ctx)
	if sessionID.IsNil() {
		return s.fail(span, dErrors.New(dErrors.CodeUnauthorized, "authentication required"))
	}
	if info, ok := requestcontext.Token(ctx); ok && info.JTI != "" {
		remaining := info.ExpiresAt.Sub(requestcontext.Now(ctx))
		if remaining > 0 {
			if err := s.revoker.RevokeToken(ctx, info.JTI, remaining); err != nil {
				s.metrics.IncrementOutcome("logout", "error")
				return s.fail(span, dErrors.Wrap(err, dErrors.CodeInternal, "failed to revoke token"))
			}
		}
	}
	if s.sessions != nil {
		s.sessions.Drop(ctx, sessionID)
	}
	s.metrics.IncrementOutcome("logout", "ok")
	s.logAudit(ctx, audit.ActionLogout, "session_id", sessionID.String())
	return nil
}

// Me returns the authenticated user.
func (s *Service) Me(ctx context.Context) (*models.User, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	user, err := s.users.FindByID(ctx, userID)
	if err != nil {
		if errors.Is(err, sentinel.ErrNotFound) {
			return nil, dErrors.New(dErrors.CodeUnauthorized, "user no longer exists")
		}
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load user")
	}
	return user, nil
}

// Session reports the signed-in user, or nil when the request is anonymous.
// An unknown user is treated as anonymous.
func (s *Service) Session(ctx context.Context) (*models.User, error) {
	if requestcontext.UserID(ctx).IsNil() {
		return nil, nil
	}
	user, err := s.Me(ctx)
	if dErrors.HasCode(err, dErrors.CodeUnauthorized) {
		return nil, nil
	}
	return user, err
}

// Activity returns the caller's audit trail, most recent first. Without a
// reader it is always empty.
func (s *Service) Activity(ctx context.Context) ([]audit.Event, error) {
	userID := requestcontext.UserID(ctx)
	if userID.IsNil() {
		return nil, dErrors.New(dErrors.CodeUnauthorized, "authentication required")
	}
	if s.activity == nil {
		return []audit.Event{}, nil
	}
	events, err := s.activity.ListByUser(ctx, userID.String())
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to load activity")
	}
	slices.Reverse(events)
	return events, nil
}

func (s *Service) issue(ctx context.Context, user *models.User) (*models.AuthResult, error) {
	sessionID := id.NewSessionID()
	issued, err := s.tokens.GenerateAccessToken(user.ID, sessionID, s.tokenTTL)
	if err != nil {
		return nil, dErrors.Wrap(err, dErrors.CodeInternal, "failed to issue token")
	}
	return &models.AuthResult{
		Token:     issued.Token,
		SessionID: sessionID,
		ExpiresAt: issued.ExpiresAt,
		User:      user,
	}, nil
}

// loginFailed counts the failure and returns the error for the caller. The
// failure that trips the lock already answers with the lockout.
func (s *Service) loginFailed(ctx context.Context, key string, now time.Time) error {
	rec := s.throttle.RecordFailure(key, now)
	if rec.IsLocked(now) {
		s.metrics.IncrementLockouts()
		s.metrics.IncrementOutcome("login", "locked")
		s.logAudit(ctx, audit.ActionLoginLocked, "subject", key)
		return lockedError(rec.RetryAfter(now))
	}
	s.metrics.IncrementOutcome("login", "invalid")
	s.logAudit(ctx, audit.ActionLoginFailed, "subject", key, "failures", rec.FailureCount)
	return errInvalidCredentials
}

func (s *Service) fallbackHash() string {
	s.dummyOnce.Do(func() {
		s.dummyHash, _ = s.hasher.Hash("devconnect-unknown-user")
	})
	return s.dummyHash
}

func lockedError(retryAfter time.Duration) error {
	return dErrors.Wrap(&lockout.LockedError{RetryAfter: retryAfter}, dErrors.CodeTooManyRequests, "too many failed login attempts")
}

func passThrough(err error, msg string) error {
	if _, ok := dErrors.As(err); ok {
		return err
	}
	return dErrors.Wrap(err, dErrors.CodeInternal, msg)
}

func (s *Service) fail(span trace.Span, err error) error {
	span.RecordError(err)
	span.SetStatus(codes.Error, err.Error())
	return err
}

func (s *Service) logAudit(ctx context.Context, action audit.Action, attributes ...any) {
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
	userID := attrs.ExtractString(attributes, "user_id")
	if userID == "" {
		if fromCtx := requestcontext.UserID(ctx); !fromCtx.IsNil() {
			userID = fromCtx.String()
		}
	}
	if err := s.auditPublisher.Emit(ctx, audit.Event{
		UserID:    userID,
		SessionID: attrs.ExtractString(attributes, "session_id"),
		Action:    action,
		Subject:   attrs.ExtractString(attributes, "subject"),
		RequestID: attrs.ExtractString(attributes, "request_id"),
	}); err != nil && s.logger != nil {
		s.logger.WarnContext(ctx, "failed to publish audit event", "event", string(action), "error", err)
	}
}
