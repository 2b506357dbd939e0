package results

import (
	"context"
	"errors"
)

// Fanout delivers an attempt to every recorder, joining their errors.
type Fanout []Recorder

func (f Fanout) RecordAttempt(ctx context.Context, attempt Attempt) error {
	var errs []error
	for _, r := range f {
		if r == nil {
			continue
		}
		if err := r.RecordAttempt(ctx, attempt); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

// Chain runs recorders in order and stops at the first failure, so later
// stages only see attempts that earlier stages accepted.
type Chain []Recorder

func (c Chain) RecordAttempt(ctx context.Context, attempt Attempt) error {
	for _, r := range c {
		if r == nil {
			continue
		}
		if err := r.RecordAttempt(ctx, attempt); err != nil {
			return err
		}
	}
	return nil
}
