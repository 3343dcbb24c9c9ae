package httptransport

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"golang.org/x/crypto/bcrypt"

	"devconnect/internal/audit"
	authhandler "devconnect/internal/auth/handler"
	"devconnect/internal/auth/lockout"
	authmodels "devconnect/internal/auth/models"
	authservice "devconnect/internal/auth/service"
	"devconnect/internal/auth/store/revocation"
	userstore "devconnect/internal/auth/store/user"
	devhandler "devconnect/internal/developer/handler"
	"devconnect/internal/developer/registry"
	devservice "devconnect/internal/developer/service"
	"devconnect/internal/jwttoken"
	"devconnect/internal/platform/metrics"
	"devconnect/internal/workspace"
	"devconnect/pkg/platform/circuit"
	"devconnect/pkg/platform/middleware/auth"
	"devconnect/pkg/platform/secrets"
	"devconnect/pkg/testutil"
)

// RouterSuite drives the assembled router with in-memory backends.
type RouterSuite struct {
	suite.Suite
	router     http.Handler
	workspaces *workspace.Manager
	stopAudit  context.CancelFunc
	auditDone  chan error
}

func TestRouterSuite(t *testing.T) {
	suite.Run(t, new(RouterSuite))
}

func (s *RouterSuite) SetupTest() {
	log := slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil))
	reg := prometheus.NewRegistry()

	s.workspaces = workspace.NewManager(
		workspace.WithIDGenerator(func() registry.IDGenerator { return registry.NewSequenceGenerator(3) }),
		workspace.WithLogger(log),
	)
	auditStore := audit.NewInMemoryStore(0)
	auditQueue := audit.NewQueue(64)
	worker := audit.NewWorker(auditStore, auditQueue.Events())
	ctx, cancel := context.WithCancel(context.Background())
	s.stopAudit = cancel
	s.auditDone = make(chan error, 1)
	go func() { s.auditDone <- worker.Run(ctx) }()

	trl := revocation.NewInMemoryTRL()
	tokens := jwttoken.NewJWTService("router-test-key", "devconnect")
	authSvc := authservice.New(userstore.New(), tokens, trl,
		authservice.WithHasher(secrets.NewHasher(bcrypt.MinCost)),
		authservice.WithLoginThrottle(lockout.New(lockout.WithMaxAttempts(2))),
		authservice.WithSessionDropper(s.workspaces),
		authservice.WithAuditPublisher(auditQueue),
		authservice.WithActivityReader(auditStore),
		authservice.WithLogger(log),
	)
	devSvc := devservice.New(s.workspaces,
		devservice.WithAuditPublisher(auditQueue),
		devservice.WithLogger(log),
	)

	validator := jwttoken.NewJWTServiceAdapter(tokens)
	requireAuth := auth.RequireAuth(validator, trl, log)

	s.router = NewRouter(Deps{
		Logger:      log,
		Metrics:     metrics.New(reg),
		Gatherer:    reg,
		Auth:        authhandler.New(authSvc, log, requireAuth, auth.OptionalAuth(validator, trl, log)),
		Developers:  devhandler.New(devSvc, log, 6),
		RequireAuth: requireAuth,
	})
}

func (s *RouterSuite) TearDownTest() {
	s.stopAudit()
	s.Require().NoError(<-s.auditDone)
}

func (s *RouterSuite) signup(t *testing.T, address string) string {
	rr := testutil.Do(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/signup",
		map[string]string{"name": "Tester", "email": address, "password": "secret1"}))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	return testutil.Decode[authmodels.TokenResponse](t, rr).AccessToken
}

func (s *RouterSuite) TestHealthAndMetrics() {
	t := s.T()
	rr := testutil.Do(s.router, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"ok"}`, rr.Body.String())
	assert.NotEmpty(t, rr.Header().Get("X-Request-ID"))

	rr = testutil.Do(s.router, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "devconnect_http_request_duration_seconds")
}

func (s *RouterSuite) TestHealthReportsFailingDependency() {
	t := s.T()
	h := NewRouter(Deps{
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Auth:        registrarFunc(nil),
		Developers:  registrarFunc(nil),
		RequireAuth: func(next http.Handler) http.Handler { return next },
		Checks: map[string]HealthCheck{
			"redis": func(context.Context) error { return errors.New("down") },
		},
	})
	rr := testutil.Do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rr.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"redis":"unavailable"}}`, rr.Body.String())
}

func (s *RouterSuite) TestHealthReportsDegradedFallback() {
	t := s.T()
	breaker := circuit.New("revocation-redis", circuit.WithFailureThreshold(1))
	breaker.RecordFailure()

	h := NewRouter(Deps{
		Logger:      slog.New(slog.NewTextHandler(&bytes.Buffer{}, nil)),
		Auth:        registrarFunc(nil),
		Developers:  registrarFunc(nil),
		RequireAuth: func(next http.Handler) http.Handler { return next },
		Checks: map[string]HealthCheck{
			"revocation": func(context.Context) error { return breaker.Err() },
			"postgres":   func(context.Context) error { return nil },
		},
	})
	rr := testutil.Do(h, httptest.NewRequest(http.MethodGet, "/health", nil))
	assert.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"status":"degraded","checks":{"revocation":"degraded","postgres":"ok"}}`, rr.Body.String())
}

func (s *RouterSuite) TestActivityTrail() {
	t := s.T()
	token := s.signup(t, "trail@example.com")
	other := s.signup(t, "quiet@example.com")

	rr := testutil.Do(s.router, testutil.WithBearer(testutil.NewRawRequest(t, http.MethodPost, "/developers",
		`{"name":"A","role":"Backend","tech_stack":["Go"],"experience":3,"joining_date":"2024-01-01"}`), token))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())

	activity := func(bearer string) authmodels.ActivityResponse {
		rr := testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/auth/activity", nil), bearer))
		require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
		return testutil.Decode[authmodels.ActivityResponse](t, rr)
	}

	require.Eventually(t, func() bool { return activity(token).Total == 2 }, time.Second, 5*time.Millisecond)
	trail := activity(token)
	assert.Equal(t, "developer_created", trail.Events[0].Action)
	assert.Equal(t, "user_created", trail.Events[1].Action)

	require.Eventually(t, func() bool { return activity(other).Total == 1 }, time.Second, 5*time.Millisecond)
	assert.Equal(t, "user_created", activity(other).Events[0].Action)

	rr = testutil.Do(s.router, httptest.NewRequest(http.MethodGet, "/auth/activity", nil))
	testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func (s *RouterSuite) TestDeveloperRoutesRequireAuth() {
	t := s.T()
	rr := testutil.Do(s.router, httptest.NewRequest(http.MethodGet, "/developers", nil))
	testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized")
}

func (s *RouterSuite) TestSessionLifecycle() {
	t := s.T()
	token := s.signup(t, "life@example.com")

	// Seeded browse, most experienced first.
	rr := testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/developers?sort=experience-high", nil), token))
	require.Equal(t, http.StatusOK, rr.Code, rr.Body.String())
	page := testutil.Decode[devhandler.PageResponse](t, rr)
	require.Len(t, page.Developers, 2)
	assert.Equal(t, "2", page.Developers[0].ID)
	assert.Equal(t, "1", page.Developers[1].ID)

	// Add, then read back.
	rr = testutil.Do(s.router, testutil.WithBearer(testutil.NewRawRequest(t, http.MethodPost, "/developers",
		`{"name":"A","role":"Backend","tech_stack":["Go"],"experience":3,"joining_date":"2024-01-01"}`), token))
	require.Equal(t, http.StatusCreated, rr.Code, rr.Body.String())
	created := testutil.Decode[devhandler.DeveloperResponse](t, rr)
	assert.Equal(t, "3", created.ID)

	rr = testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/developers/3", nil), token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, "A", testutil.Decode[devhandler.DeveloperResponse](t, rr).Name)

	// Delete a seed record.
	rr = testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodDelete, "/developers/1", nil), token))
	require.Equal(t, http.StatusNoContent, rr.Code)
	rr = testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/developers/1", nil), token))
	testutil.AssertError(t, rr, http.StatusNotFound, "not_found")

	// Another session sees the untouched seed.
	other := s.signup(t, "other@example.com")
	rr = testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/developers/all", nil), other))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Equal(t, 2, testutil.Decode[devhandler.ListResponse](t, rr).Total)

	// Logout revokes the token and drops the workspace.
	before := s.workspaces.Len()
	rr = testutil.Do(s.router, testutil.WithBearer(testutil.NewJSONRequest(t, http.MethodPost, "/auth/logout", nil), token))
	require.Equal(t, http.StatusNoContent, rr.Code, rr.Body.String())
	assert.Equal(t, before-1, s.workspaces.Len())

	rr = testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/developers", nil), token))
	testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.Do(s.router, testutil.WithBearer(httptest.NewRequest(http.MethodGet, "/auth/session", nil), token))
	require.Equal(t, http.StatusOK, rr.Code)
	assert.JSONEq(t, `{"authenticated":false,"user":null}`, rr.Body.String())
}

func (s *RouterSuite) TestLoginLockout() {
	t := s.T()
	s.signup(t, "lock@example.com")
	bad := map[string]string{"email": "lock@example.com", "password": "wrong-pw"}

	rr := testutil.Do(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", bad))
	testutil.AssertError(t, rr, http.StatusUnauthorized, "unauthorized")

	rr = testutil.Do(s.router, testutil.NewJSONRequest(t, http.MethodPost, "/auth/login", bad))
	require.Equal(t, http.StatusTooManyRequests, rr.Code)
	body := testutil.Decode[authmodels.LockoutResponse](t, rr)
	assert.Equal(t, int64((15 * time.Minute).Seconds()), body.RetryAfter)
}

func (s *RouterSuite) TestUnknownRoute() {
	rr := testutil.Do(s.router, httptest.NewRequest(http.MethodGet, "/nope", nil))
	testutil.AssertError(s.T(), rr, http.StatusNotFound, "not_found")
}

type registrarFunc func(r chi.Router)

func (f registrarFunc) Register(r chi.Router) {
	if f != nil {
		f(r)
	}
}
