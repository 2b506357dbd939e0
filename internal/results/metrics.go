package results

import (
	"context"
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics exports attempt counters and score distribution.
type Metrics struct {
	attempts *prometheus.CounterVec
	scores   *prometheus.HistogramVec
	dropped  prometheus.Counter
	failed   prometheus.Counter
}

var _ Recorder = (*Metrics)(nil)

func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		attempts: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "certprep",
			Name:      "attempts_total",
			Help:      "Completed practice tests.",
		}, []string{"certification", "test_type", "timed_out"}),
		scores: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "certprep",
			Name:      "attempt_score_percentage",
			Help:      "Score percentage of completed practice tests.",
			Buckets:   prometheus.LinearBuckets(10, 10, 10),
		}, []string{"certification", "test_type"}),
		dropped: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "certprep",
			Name:      "result_queue_dropped_total",
			Help:      "Attempts dropped because the result queue was full.",
		}),
		failed: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "certprep",
			Name:      "result_record_failures_total",
			Help:      "Attempts a recorder failed to store.",
		}),
	}
}

func (m *Metrics) RecordAttempt(_ context.Context, attempt Attempt) error {
	m.attempts.WithLabelValues(attempt.CertificationID, attempt.TestType, strconv.FormatBool(attempt.Report.TimedOut)).Inc()
	m.scores.WithLabelValues(attempt.CertificationID, attempt.TestType).Observe(float64(attempt.Report.Percentage))
	return nil
}

func (m *Metrics) Dropped() {
	if m != nil {
		m.dropped.Inc()
	}
}

func (m *Metrics) Failed() {
	if m != nil {
		m.failed.Inc()
	}
}
