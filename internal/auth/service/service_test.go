package service

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"devconnect/internal/audit"
	"devconnect/internal/auth/lockout"
	"devconnect/internal/auth/models"
	"devconnect/internal/auth/store/revocation"
	userstore "devconnect/internal/auth/store/user"
	"devconnect/internal/jwttoken"
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/secrets"
	"devconnect/pkg/requestcontext"
)

type recordingDropper struct {
	dropped []id.SessionID
}

func (d *recordingDropper) Drop(_ context.Context, sessionID id.SessionID) {
	d.dropped = append(d.dropped, sessionID)
}

type failingUserStore struct {
	*userstore.InMemoryUserStore
	err error
}

func (f failingUserStore) FindByEmail(context.Context, string) (*models.User, error) {
	return nil, f.err
}

type AuthServiceSuite struct {
	suite.Suite
	service   *Service
	users     *userstore.InMemoryUserStore
	trl       *revocation.InMemoryTRL
	jwt       *jwttoken.JWTService
	dropper   *recordingDropper
	auditLog  *audit.InMemoryStore
	logBuffer *bytes.Buffer
	now       time.Time
	ctx       context.Context
}

func TestAuthServiceSuite(t *testing.T) {
	suite.Run(t, new(AuthServiceSuite))
}

func (s *AuthServiceSuite) SetupTest() {
	s.now = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)
	s.users = userstore.New()
	s.trl = revocation.NewInMemoryTRL()
	s.jwt = jwttoken.NewJWTService("test-key", "devconnect", jwttoken.WithClock(func() time.Time { return s.now }))
	s.dropper = &recordingDropper{}
	s.auditLog = audit.NewInMemoryStore(0)
	s.logBuffer = &bytes.Buffer{}

	s.service = New(s.users, s.jwt, s.trl,
		WithHasher(secrets.NewHasher(bcrypt.MinCost)),
		WithLoginThrottle(lockout.New(lockout.WithMaxAttempts(3), lockout.WithWindow(15*time.Minute))),
		WithSessionDropper(s.dropper),
		WithTokenTTL(time.Hour),
		WithAuditPublisher(appendOnEmit{s.auditLog}),
		WithActivityReader(s.auditLog),
		WithLogger(slog.New(slog.NewTextHandler(s.logBuffer, nil))),
	)
	s.ctx = requestcontext.WithTime(context.Background(), s.now)
}

func (s *AuthServiceSuite) signup(name, address, password string) *models.AuthResult {
	res, err := s.service.Signup(s.ctx, &models.SignupRequest{Name: name, Email: address, Password: password})
	s.Require().NoError(err)
	return res
}

// authed builds the context RequireAuth would produce for res.
func (s *AuthServiceSuite) authed(res *models.AuthResult) context.Context {
	claims, err := s.jwt.ValidateToken(res.Token)
	s.Require().NoError(err)
	ctx := requestcontext.WithUserID(s.ctx, res.User.ID)
	ctx = requestcontext.WithSessionID(ctx, res.SessionID)
	return requestcontext.WithToken(ctx, requestcontext.TokenInfo{JTI: claims.ID, ExpiresAt: claims.ExpiresAt.Time})
}

func (s *AuthServiceSuite) TestSignup() {
	s.Run("creates user and issues token", func() {
		res := s.signup("Haripriya", "hari@example.com", "secret1")
		s.NotEmpty(res.Token)
		s.False(res.SessionID.IsNil())
		s.Equal(s.now.Add(time.Hour), res.ExpiresAt)
		s.Equal("Haripriya", res.User.Name)
		s.NotEqual("secret1", res.User.PasswordHash)

		stored, err := s.users.FindByEmail(s.ctx, "HARI@example.com")
		s.Require().NoError(err)
		s.Equal(res.User.ID, stored.ID)

		events, err := s.auditLog.ListByUser(s.ctx, res.User.ID.String())
		s.Require().NoError(err)
		s.Require().Len(events, 1)
		s.Equal(audit.ActionUserCreated, events[0].Action)
		s.Contains(s.logBuffer.String(), "log_type=audit")
	})

	s.Run("duplicate email is a conflict regardless of case", func() {
		_, err := s.service.Signup(s.ctx, &models.SignupRequest{Name: "Other", Email: "Hari@Example.com", Password: "secret2"})
		s.True(dErrors.HasCode(err, dErrors.CodeConflict))
	})

	s.Run("invalid email is an invariant violation", func() {
		_, err := s.service.Signup(s.ctx, &models.SignupRequest{Name: "X", Email: "nope", Password: "secret2"})
		s.True(dErrors.HasCode(err, dErrors.CodeInvariantViolation))
	})
}

func (s *AuthServiceSuite) TestLogin() {
	signed := s.signup("Krishna", "krishna@example.com", "secret1")

	s.Run("correct credentials issue a new session", func() {
		res, err := s.service.Login(s.ctx, &models.LoginRequest{Email: " KRISHNA@example.com", Password: "secret1"})
		s.Require().NoError(err)
		s.Equal(signed.User.ID, res.User.ID)
		s.NotEqual(signed.SessionID, res.SessionID)
	})

	s.Run("wrong password", func() {
		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "krishna@example.com", Password: "wrong"})
		s.ErrorIs(err, errInvalidCredentials)
	})

	s.Run("unknown email looks the same as a wrong password", func() {
		_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "ghost@example.com", Password: "whatever"})
		s.ErrorIs(err, errInvalidCredentials)
	})

	s.Run("store failure is internal", func() {
		svc := New(failingUserStore{InMemoryUserStore: s.users, err: errors.New("db down")}, s.jwt, s.trl,
			WithHasher(secrets.NewHasher(bcrypt.MinCost)))
		_, err := svc.Login(s.ctx, &models.LoginRequest{Email: "krishna@example.com", Password: "secret1"})
		s.True(dErrors.HasCode(err, dErrors.CodeInternal))
	})
}

func (s *AuthServiceSuite) TestLockout() {
	s.signup("Locked", "locked@example.com", "secret1")
	bad := &models.LoginRequest{Email: "locked@example.com", Password: "wrong"}

	for i := 0; i < 2; i++ {
		_, err := s.service.Login(s.ctx, bad)
		s.ErrorIs(err, errInvalidCredentials)
	}

	_, err := s.service.Login(s.ctx, bad)
	s.Require().True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
	var locked *lockout.LockedError
	s.Require().True(errors.As(err, &locked))
	s.Equal(15*time.Minute, locked.RetryAfter)

	s.Run("correct password is refused while locked", func() {
		later := requestcontext.WithTime(context.Background(), s.now.Add(5*time.Minute))
		_, err := s.service.Login(later, &models.LoginRequest{Email: "locked@example.com", Password: "secret1"})
		s.True(dErrors.HasCode(err, dErrors.CodeTooManyRequests))
		s.Require().True(errors.As(err, &locked))
		s.Equal(10*time.Minute, locked.RetryAfter)
	})

	s.Run("lock lifts after the window", func() {
		after := requestcontext.WithTime(context.Background(), s.now.Add(16*time.Minute))
		_, err := s.service.Login(after, &models.LoginRequest{Email: "locked@example.com", Password: "secret1"})
		s.NoError(err)
	})
}

func (s *AuthServiceSuite) TestSuccessfulLoginClearsFailures() {
	s.signup("Reset", "reset@example.com", "secret1")
	bad := &models.LoginRequest{Email: "reset@example.com", Password: "wrong"}
	good := &models.LoginRequest{Email: "reset@example.com", Password: "secret1"}

	for i := 0; i < 2; i++ {
		_, _ = s.service.Login(s.ctx, bad)
	}
	_, err := s.service.Login(s.ctx, good)
	s.Require().NoError(err)

	for i := 0; i < 2; i++ {
		_, err = s.service.Login(s.ctx, bad)
		s.ErrorIs(err, errInvalidCredentials)
	}
}

func (s *AuthServiceSuite) TestLogout() {
	res := s.signup("Out", "out@example.com", "secret1")
	ctx := s.authed(res)
	info, _ := requestcontext.Token(ctx)

	s.Require().NoError(s.service.Logout(ctx))

	revoked, err := s.trl.IsRevoked(s.ctx, info.JTI)
	s.Require().NoError(err)
	s.True(revoked)
	s.Equal([]id.SessionID{res.SessionID}, s.dropper.dropped)

	s.Run("anonymous logout is unauthorized", func() {
		err := s.service.Logout(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})
}

func (s *AuthServiceSuite) TestMeAndSession() {
	res := s.signup("Me", "me@example.com", "secret1")
	ctx := s.authed(res)

	me, err := s.service.Me(ctx)
	s.Require().NoError(err)
	s.Equal("me@example.com", me.Email)

	user, err := s.service.Session(ctx)
	s.Require().NoError(err)
	s.Equal(res.User.ID, user.ID)

	s.Run("anonymous", func() {
		_, err := s.service.Me(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))

		user, err := s.service.Session(s.ctx)
		s.NoError(err)
		s.Nil(user)
	})

	s.Run("unknown user is anonymous for session", func() {
		ghost := requestcontext.WithUserID(s.ctx, id.NewUserID())
		user, err := s.service.Session(ghost)
		s.NoError(err)
		s.Nil(user)
	})
}

func (s *AuthServiceSuite) TestActivity() {
	res := s.signup("Act", "act@example.com", "secret1")
	_, err := s.service.Login(s.ctx, &models.LoginRequest{Email: "act@example.com", Password: "secret1"})
	s.Require().NoError(err)
	s.signup("Else", "else@example.com", "secret1")

	events, err := s.service.Activity(s.authed(res))
	s.Require().NoError(err)
	s.Require().Len(events, 2)
	s.Equal(audit.ActionLoginSucceeded, events[0].Action)
	s.Equal(audit.ActionUserCreated, events[1].Action)

	s.Run("anonymous is unauthorized", func() {
		_, err := s.service.Activity(s.ctx)
		s.True(dErrors.HasCode(err, dErrors.CodeUnauthorized))
	})

	s.Run("no reader means an empty trail", func() {
		svc := New(s.users, s.jwt, s.trl, WithHasher(secrets.NewHasher(bcrypt.MinCost)))
		events, err := svc.Activity(s.authed(res))
		s.Require().NoError(err)
		s.Empty(events)
	})
}

// appendOnEmit writes audit events straight to the store.
type appendOnEmit struct {
	store *audit.InMemoryStore
}

func (a appendOnEmit) Emit(ctx context.Context, event audit.Event) error {
	return a.store.Append(ctx, event)
}
