package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics provides observability for the gate module.
type Metrics struct {
	Scans       *prometheus.CounterVec
	LateReturns prometheus.Counter
	MissedExits prometheus.Counter
}

// New creates a new Metrics instance with all gate module metrics registered.
func New() *Metrics {
	return &Metrics{
		Scans: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "outpass_gate_scans_total",
			Help: "Total gate scans by requested type and outcome",
		}, []string{"scan_type", "outcome"}),
		LateReturns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outpass_gate_late_returns_total",
			Help: "Total check-ins recorded after the pass deadline",
		}),
		MissedExits: promauto.NewCounter(prometheus.CounterOpts{
			Name: "outpass_gate_missed_exits_total",
			Help: "Total check-ins whose pass was never scanned out",
		}),
	}
}

// RecordScan counts one scan attempt.
func (m *Metrics) RecordScan(scanType, outcome string) {
	m.Scans.WithLabelValues(scanType, outcome).Inc()
}
