package results

import (
	"context"
	"time"

	"github.com/rs/zerolog"
)

// AsyncSink hands attempts to a background worker so session completion
// never waits on storage.
type AsyncSink struct {
	recorder Recorder
	queue    chan Attempt
	timeout  time.Duration
	metrics  *Metrics
	logger   zerolog.Logger
	done     chan struct{}
}

func NewAsyncSink(recorder Recorder, queueSize int, timeout time.Duration, metrics *Metrics, logger zerolog.Logger) *AsyncSink {
	if queueSize <= 0 {
		queueSize = 256
	}
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &AsyncSink{
		recorder: recorder,
		queue:    make(chan Attempt, queueSize),
		timeout:  timeout,
		metrics:  metrics,
		logger:   logger.With().Str("component", "result_worker").Logger(),
		done:     make(chan struct{}),
	}
}

// Enqueue never blocks. It returns false when the queue is full.
func (a *AsyncSink) Enqueue(attempt Attempt) bool {
	select {
	case a.queue <- attempt:
		return true
	default:
		a.metrics.Dropped()
		a.logger.Error().
			Str("attempt_id", attempt.AttemptID.String()).
			Str("session_id", attempt.SessionID.String()).
			Msg("result queue full, attempt dropped")
		return false
	}
}

// Run drains the queue until ctx is cancelled, then flushes what is left.
func (a *AsyncSink) Run(ctx context.Context) error {
	defer close(a.done)
	for {
		select {
		case <-ctx.Done():
			a.flush()
			return ctx.Err()
		case attempt := <-a.queue:
			a.handle(attempt)
		}
	}
}

// Done is closed once Run has returned.
func (a *AsyncSink) Done() <-chan struct{} {
	return a.done
}

func (a *AsyncSink) flush() {
	for {
		select {
		case attempt := <-a.queue:
			a.handle(attempt)
		default:
			return
		}
	}
}

func (a *AsyncSink) handle(attempt Attempt) {
	ctx, cancel := context.WithTimeout(context.Background(), a.timeout)
	defer cancel()

	if err := a.recorder.RecordAttempt(ctx, attempt); err != nil {
		a.metrics.Failed()
		a.logger.Warn().Err(err).Str("attempt_id", attempt.AttemptID.String()).Msg("record attempt failed")
		return
	}
	a.logger.Debug().
		Str("attempt_id", attempt.AttemptID.String()).
		Int("percentage", attempt.Report.Percentage).
		Msg("attempt recorded")
}
