package session

import (
	"context"
	"time"
)

// Ticker is driven by a Clock. Tick reports whether the target is done.
type Ticker interface {
	Tick() bool
}

// Clock delivers one tick per interval to a target until it completes.
type Clock struct {
	interval time.Duration
}

func NewClock(interval time.Duration) *Clock {
	if interval <= 0 {
		interval = time.Second
	}
	return &Clock{interval: interval}
}

// Run blocks until the target completes or ctx is cancelled.
func (c *Clock) Run(ctx context.Context, target Ticker) error {
	t := time.NewTicker(c.interval)
	defer t.Stop()
	return Drive(ctx, t.C, target)
}

// Drive forwards ticks to target. It returns nil once the target reports
// completion and ctx.Err() on cancellation.
func Drive(ctx context.Context, ticks <-chan time.Time, target Ticker) error {
	for {
		select {
		case <-ctx.Done():
			return ctx.Err()
		case _, ok := <-ticks:
			if !ok {
				return nil
			}
			if target.Tick() {
				return nil
			}
		}
	}
}
