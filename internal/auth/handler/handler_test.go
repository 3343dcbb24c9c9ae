package handler

import (
	"bytes"
	"log/slog"
	"net/http"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"go.uber.org/mock/gomock"

	"devconnect/internal/audit"
	"devconnect/internal/auth/handler/mocks"
	"devconnect/internal/auth/lockout"
	"devconnect/internal/auth/models"
	id "devconnect/pkg/domain"
	dErrors "devconnect/pkg/domain-errors"
	"devconnect/pkg/platform/httputil"
	"devconnect/pkg/requestcontext"
	"devconnect/pkg/testutil"
)

type AuthHandlerSuite struct {
	suite.Suite
}

func TestAuthHandlerSuite(t *testing.T) {
	suite.Run(t, new(AuthHandlerSuite))
}

var fixedNow = time.Date(2024, 6, 15, 12, 0, 0, 0, time.UTC)

// pinTime stands in for the request middleware so expires_in is deterministic.
func pinTime(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		next.ServeHTTP(w, r.WithContext(requestcontext.WithTime(r.Context(), fixedNow)))
	})
}

// denyAll rejects like RequireAuth does for a missing token.
func denyAll(http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteError(w, dErrors.New(dErrors.CodeUnauthorized, "Missing or invalid Authorization header"))
	})
}

func passThrough(next http.Handler) http.Handler { return next }

func (s *AuthHandlerSuite) newHandler(t *testing.T, requireAuth Middleware) (*mocks.MockService, http.Handler) {
	ctrl := gomock.NewController(t)
	svc := mocks.NewMockService(ctrl)
	logger := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))

	r := chi.NewRouter()
	r.Use(pinTime)
	New(svc, logger, requireAuth, passThrough).Register(r)
	return svc, r
}

func sampleUser() *models.User {
	return &models.User{ID: id.NewUserID(), Name: "Haripriya", Email: "hari@example.com", PasswordHash: "hash"}
}

func sampleResult(u *models.User) *models.AuthResult {
	return &models.AuthResult{
		Token:     "signed.jwt.token",
		SessionID: id.NewSessionID(),
		ExpiresAt: fixedNow.Add(24 * time.Hour),
		User:      u,
	}
}

func (s *AuthHandlerSuite) TestSignup() {
	s.T().Run("201 with token and user", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		u := sampleUser()
		svc.EXPECT().Signup(gomock.Any(), &models.SignupRequest{
			Name: "Haripriya", Email: "hari@example.com", Password: "secret1",
		}).Return(sampleResult(u), nil)

		rr := testutil.Do(router, testutil.NewRawRequest(t, http.MethodPost, "/auth/signup",
			`{"name":" Haripriya ","email":" hari@example.com ","password":"secret1"}`))

		require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
		got := testutil.Decode[models.TokenResponse](t, rr)
		assert.Equal(t, "signed.jwt.token", got.AccessToken)
		assert.Equal(t, "Bearer", got.TokenType)
		assert.Equal(t, int64(86400), got.ExpiresIn)
		require.NotNil(t, got.User)
		assert.Equal(t, u.ID.String(), got.User.ID)
		assert.NotContains(t, rr.Body.String(), "hash")
	})

	s.T().Run("validation errors never reach the service", func(t *testing.T) {
		cases := map[string]string{
			"name is required":                       `{"name":"","email":"a@b.co","password":"secret1"}`,
			"invalid email format":                   `{"name":"A","email":"nope","password":"secret1"}`,
			"password must be at least 6 characters": `{"name":"A","email":"a@b.co","password":"abc"}`,
		}
		for msg, body := range cases {
			_, router := s.newHandler(t, passThrough)
			rr := testutil.Do(router, testutil.NewRawRequest(t, http.MethodPost, "/auth/signup", body))
			testutil.AssertError(t, rr, http.StatusBadRequest, string(dErrors.CodeValidation))
			assert.Contains(t, rr.Body.String(), msg)
		}
	})

	s.T().Run("duplicate email is 409", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		svc.EXPECT().Signup(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeConflict, "email already registered"))

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup",
			map[string]string{"name": "A", "email": "a@b.co", "password": "secret1"}))
		testutil.AssertError(t, rr, http.StatusConflict, string(dErrors.CodeConflict))
	})

	s.T().Run("malformed body is 400", func(t *testing.T) {
		_, router := s.newHandler(t, passThrough)
		rr := testutil.Do(router, testutil.NewRawRequest(t, http.MethodPost, "/auth/signup", `{"name":`))
		testutil.AssertError(t, rr, http.StatusBadRequest, string(dErrors.CodeBadRequest))
	})
}

func (s *AuthHandlerSuite) TestLogin() {
	s.T().Run("200 with token", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		svc.EXPECT().Login(gomock.Any(), &models.LoginRequest{Email: "hari@example.com", Password: "secret1"}).
			Return(sampleResult(sampleUser()), nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "hari@example.com", "password": "secret1"}))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		assert.Equal(t, "signed.jwt.token", testutil.Decode[models.TokenResponse](t, rr).AccessToken)
	})

	s.T().Run("bad credentials are 401", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, dErrors.New(dErrors.CodeUnauthorized, "invalid email or password"))

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "hari@example.com", "password": "nope"}))
		testutil.AssertError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
		assert.Contains(t, rr.Body.String(), "invalid email or password")
	})

	s.T().Run("lockout is 429 with retry_after", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		locked := dErrors.Wrap(&lockout.LockedError{RetryAfter: 90*time.Second + 300*time.Millisecond},
			dErrors.CodeTooManyRequests, "too many failed login attempts")
		svc.EXPECT().Login(gomock.Any(), gomock.Any()).Return(nil, locked)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login",
			map[string]string{"email": "hari@example.com", "password": "nope"}))
		require.Equal(t, http.StatusTooManyRequests, rr.Code)
		assert.Equal(t, "91", rr.Header().Get("Retry-After"))
		got := testutil.Decode[models.LockoutResponse](t, rr)
		assert.Equal(t, "too_many_requests", got.Error)
		assert.Equal(t, int64(91), got.RetryAfter)
	})
}

func (s *AuthHandlerSuite) TestLogout() {
	s.T().Run("204", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		svc.EXPECT().Logout(gomock.Any()).Return(nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/logout", nil))
		assert.Equal(t, http.StatusNoContent, rr.Code)
		assert.Empty(t, rr.Body.String())
	})

	s.T().Run("requires auth", func(t *testing.T) {
		_, router := s.newHandler(t, denyAll)
		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/logout", nil))
		testutil.AssertError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *AuthHandlerSuite) TestMe() {
	s.T().Run("returns current user", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		u := sampleUser()
		svc.EXPECT().Me(gomock.Any()).Return(u, nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/me", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		got := testutil.Decode[models.UserResponse](t, rr)
		assert.Equal(t, models.UserResponse{ID: u.ID.String(), Name: u.Name, Email: u.Email}, got)
	})

	s.T().Run("requires auth", func(t *testing.T) {
		_, router := s.newHandler(t, denyAll)
		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/me", nil))
		testutil.AssertError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}

func (s *AuthHandlerSuite) TestSession() {
	s.T().Run("anonymous", func(t *testing.T) {
		svc, router := s.newHandler(t, denyAll)
		svc.EXPECT().Session(gomock.Any()).Return(nil, nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/session", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"authenticated":false,"user":null}`, rr.Body.String())
	})

	s.T().Run("signed in", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		u := sampleUser()
		svc.EXPECT().Session(gomock.Any()).Return(u, nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/session", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		got := testutil.Decode[models.SessionResponse](t, rr)
		assert.True(t, got.Authenticated)
		require.NotNil(t, got.User)
		assert.Equal(t, u.Email, got.User.Email)
	})
}

func (s *AuthHandlerSuite) TestActivity() {
	s.T().Run("lists the caller's events", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		svc.EXPECT().Activity(gomock.Any()).Return([]audit.Event{
			{Action: audit.ActionLoginSucceeded, SessionID: "s-1", Timestamp: fixedNow},
			{Action: audit.ActionUserCreated, Timestamp: fixedNow.Add(-time.Hour)},
		}, nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/activity", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		got := testutil.Decode[models.ActivityResponse](t, rr)
		require.Equal(t, 2, got.Total)
		assert.Equal(t, "login_succeeded", got.Events[0].Action)
		assert.Equal(t, "s-1", got.Events[0].SessionID)
		assert.True(t, fixedNow.Equal(got.Events[0].Timestamp))
	})

	s.T().Run("empty trail is an empty list", func(t *testing.T) {
		svc, router := s.newHandler(t, passThrough)
		svc.EXPECT().Activity(gomock.Any()).Return([]audit.Event{}, nil)

		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/activity", nil))
		require.Equal(t, http.StatusOK, rr.Code)
		assert.JSONEq(t, `{"events":[],"total":0}`, rr.Body.String())
	})

	s.T().Run("requires auth", func(t *testing.T) {
		_, router := s.newHandler(t, denyAll)
		rr := testutil.Do(router, testutil.NewJSONRequest(t, http.MethodGet, "/auth/activity", nil))
		testutil.AssertError(t, rr, http.StatusUnauthorized, string(dErrors.CodeUnauthorized))
	})
}
