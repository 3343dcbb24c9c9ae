package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the developer directory.
type Metrics struct {
	// Registry mutations and lookups by operation and outcome
	Operations *prometheus.CounterVec

	// Time spent deriving a page (filter, sort, paginate)
	BrowseLatency *prometheus.HistogramVec

	// Records matched by the last browse, by source ("query" or "dashboard")
	BrowseResults *prometheus.HistogramVec
}

// New creates developer metrics registered on reg. A nil reg builds
// unregistered collectors, which keeps tests independent of the global registry.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		Operations: f.NewCounterVec(prometheus.CounterOpts{
			Name: "devconnect_developer_operations_total",
			Help: "Developer registry operations by operation and outcome",
		}, []string{"operation", "outcome"}), // outcome: "ok", "not_found", "invalid", "error"

		BrowseLatency: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devconnect_developer_browse_duration_seconds",
			Help:    "Duration of deriving a page of developers",
			Buckets: []float64{0.0001, 0.00025, 0.0005, 0.001, 0.0025, 0.005, 0.01, 0.025},
		}, []string{"source"}),

		BrowseResults: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "devconnect_developer_browse_results",
			Help:    "Number of developers matching a browse query",
			Buckets: prometheus.ExponentialBuckets(1, 2, 8),
		}, []string{"source"}),
	}
}

// IncrementOperation records a registry operation outcome.
func (m *Metrics) IncrementOperation(operation, outcome string) {
	if m != nil {
		m.Operations.WithLabelValues(operation, outcome).Inc()
	}
}

// ObserveBrowse records how long a browse took and how many records matched.
func (m *Metrics) ObserveBrowse(source string, d time.Duration, matched int) {
	if m != nil {
		m.BrowseLatency.WithLabelValues(source).Observe(d.Seconds())
		m.BrowseResults.WithLabelValues(source).Observe(float64(matched))
	}
}
