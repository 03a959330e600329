package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the pass lifecycle module.
type Metrics struct {
	Applications *prometheus.CounterVec
	Decisions    *prometheus.CounterVec
	Cancelled    prometheus.Counter
	Expired      prometheus.Counter
}

// New creates a new Metrics instance with all pass module metrics registered.
func New() *Metrics {
	return &Metrics{
		Applications: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outpass_pass_applications_total",
			Help: "Total pass applications by kind and outcome",
		}, []string{"kind", "outcome"}),
		Decisions: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outpass_pass_decisions_total",
			Help: "Total guardian and warden decisions by actor and action",
		}, []string{"actor", "action"}),
		Cancelled: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outpass_pass_cancellations_total",
			Help: "Total passes cancelled by their owner before approval",
		}),
		Expired: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outpass_pass_expirations_total",
			Help: "Total passes transitioned to EXPIRED after their window lapsed",
		}),
	}
}

// RecordApplication counts one apply attempt.
func (m *Metrics) RecordApplication(kind, outcome string) {
	m.Applications.WithLabelValues(kind, outcome).Inc()
}

// RecordDecision counts one guardian or warden decision.
func (m *Metrics) RecordDecision(actor, action string) {
	m.Decisions.WithLabelValues(actor, action).Inc()
}
