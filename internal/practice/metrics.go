package practice

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics tracks live session counts.
type Metrics struct {
	started   *prometheus.CounterVec
	completed *prometheus.CounterVec
	active    prometheus.Gauge
}

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		started: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certprep",
			Name:      "sessions_started_total",
			Help:      "Practice sessions started.",
		}, []string{"test_type"}),
		completed: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certprep",
			Name:      "sessions_completed_total",
			Help:      "Practice sessions completed, by how they ended.",
		}, []string{"reason"}),
		active: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "certprep",
			Name:      "sessions_live",
			Help:      "Sessions currently held in memory.",
		}),
	}
}

func (m *Metrics) sessionStarted(testType string) {
	if m == nil {
		return
	}
	m.started.WithLabelValues(testType).Inc()
	m.active.Inc()
}

func (m *Metrics) sessionCompleted(timedOut bool) {
	if m == nil {
		return
	}
	reason := "submitted"
	if timedOut {
		reason = "timed_out"
	}
	m.completed.WithLabelValues(reason).Inc()
}

func (m *Metrics) sessionEvicted() {
	if m == nil {
		return
	}
	m.active.Dec()
}
