package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the auth Prometheus collectors.
type Metrics struct {
	UsersCreated prometheus.Counter
	Outcomes     *prometheus.CounterVec
	Lockouts     prometheus.Counter
}

// New creates auth metrics registered on reg. A nil reg leaves them unregistered.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		UsersCreated: f.NewCounter(prometheus.CounterOpts{
			Name: "devconnect_users_created_total",
			Help: "Total number of users created in the system",
		}),
		Outcomes: f.NewCounterVec(prometheus.CounterOpts{
			Name: "devconnect_auth_outcomes_total",
			Help: "Auth operations by operation and outcome",
		}, []string{"operation", "outcome"}),
		Lockouts: f.NewCounter(prometheus.CounterOpts{
			Name: "devconnect_auth_lockouts_total",
			Help: "Accounts locked after repeated failed logins",
		}),
	}
}

// IncrementUsersCreated increments the users created counter by 1
func (m *Metrics) IncrementUsersCreated() {
	if m != nil {
		m.UsersCreated.Inc()
	}
}

func (m *Metrics) IncrementOutcome(operation, outcome string) {
	if m != nil {
		m.Outcomes.WithLabelValues(operation, outcome).Inc()
	}
}

func (m *Metrics) IncrementLockouts() {
	if m != nil {
		m.Lockouts.Inc()
	}
}
