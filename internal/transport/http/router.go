// Package httptransport assembles the HTTP surface: shared middleware, the
// auth and developer routes, health and metrics.
package httptransport

import (
	"context"
	"errors"
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	chimw "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"devconnect/internal/platform/metrics"
	"devconnect/internal/platform/middleware"
	"devconnect/pkg/platform/circuit"
	"devconnect/pkg/platform/httputil"
)

// RouteRegistrar mounts a feature's routes.
type RouteRegistrar interface {
	Register(r chi.Router)
}

// HealthCheck reports whether a dependency is usable. An error wrapping
// circuit.ErrOpen marks the dependency degraded: requests are still served
// from a fallback, so /health keeps answering 200.
type HealthCheck func(ctx context.Context) error

// Deps is everything the router needs from main.
type Deps struct {
	Logger         *slog.Logger
	Metrics        *metrics.Metrics
	Gatherer       prometheus.Gatherer
	RequestTimeout time.Duration

	Auth        RouteRegistrar
	Developers  RouteRegistrar
	RequireAuth func(http.Handler) http.Handler

	// Checks run by /health, keyed by dependency name.
	Checks map[string]HealthCheck
}

// NewRouter wires all public endpoints. Developer routes sit behind
// RequireAuth; auth routes apply their own guards.
func NewRouter(d Deps) http.Handler {
	timeout := d.RequestTimeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}

	r := chi.NewRouter()
	r.Use(middleware.Recovery(d.Logger))
	r.Use(chimw.RealIP)
	r.Use(middleware.RequestID)
	r.Use(middleware.Logger(d.Logger))
	r.Use(middleware.Latency(d.Metrics))

	r.Get("/health", healthHandler(d.Checks))
	if d.Gatherer != nil {
		r.Handle("/metrics", promhttp.HandlerFor(d.Gatherer, promhttp.HandlerOpts{}))
	}

	r.Group(func(r chi.Router) {
		r.Use(chimw.Timeout(timeout))
		r.Use(middleware.ContentTypeJSON)
		d.Auth.Register(r)

		r.Group(func(r chi.Router) {
			r.Use(d.RequireAuth)
			d.Developers.Register(r)
		})
	})

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusNotFound, httputil.ErrorResponse{Error: "not_found", Description: "route not found"})
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		httputil.WriteJSON(w, http.StatusMethodNotAllowed, httputil.ErrorResponse{Error: "method_not_allowed"})
	})
	return r
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

func healthHandler(checks map[string]HealthCheck) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := healthResponse{Status: "ok"}
		status := http.StatusOK
		if len(checks) > 0 {
			resp.Checks = make(map[string]string, len(checks))
			ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
			defer cancel()
			for name, check := range checks {
				err := check(ctx)
				switch {
				case err == nil:
					resp.Checks[name] = "ok"
				case errors.Is(err, circuit.ErrOpen):
					resp.Checks[name] = "degraded"
					resp.Status = "degraded"
				default:
					resp.Checks[name] = "unavailable"
					resp.Status = "degraded"
					status = http.StatusServiceUnavailable
				}
			}
		}
		httputil.WriteJSON(w, status, resp)
	}
}
