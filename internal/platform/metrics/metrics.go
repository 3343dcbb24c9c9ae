// Package metrics holds the HTTP-level Prometheus collectors.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the HTTP Prometheus metrics for the application
type Metrics struct {
	RequestDuration  *prometheus.HistogramVec
	RequestsInFlight prometheus.Gauge
}

// New creates HTTP metrics registered on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		RequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devconnect_http_request_duration_seconds",
			Help:    "HTTP request latency by method, route pattern and status",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),
		RequestsInFlight: f.NewGauge(prometheus.GaugeOpts{
			Name: "devconnect_http_requests_in_flight",
			Help: "HTTP requests currently being served",
		}),
	}
}

// ObserveRequest records one finished request.
func (m *Metrics) ObserveRequest(method, route, status string, d time.Duration) {
	if m != nil {
		m.RequestDuration.WithLabelValues(method, route, status).Observe(d.Seconds())
	}
}

func (m *Metrics) IncInFlight() {
	if m != nil {
		m.RequestsInFlight.Inc()
	}
}

func (m *Metrics) DecInFlight() {
	if m != nil {
		m.RequestsInFlight.Dec()
	}
}
