package results

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/certprep/internal/session"
)

// Attempt is a completed practice session together with who took it.
type Attempt struct {
	AttemptID       uuid.UUID           `json:"attempt_id"`
	SessionID       uuid.UUID           `json:"session_id"`
	UserID          uuid.UUID           `json:"user_id"`
	CertificationID string              `json:"certification_id"`
	TestType        string              `json:"test_type"`
	Report          session.ScoreReport `json:"report"`
	CompletedAt     time.Time           `json:"completed_at"`
}

// Recorder persists or forwards an attempt.
type Recorder interface {
	RecordAttempt(ctx context.Context, attempt Attempt) error
}

// RecorderFunc adapts a function to Recorder.
type RecorderFunc func(ctx context.Context, attempt Attempt) error

func (f RecorderFunc) RecordAttempt(ctx context.Context, attempt Attempt) error {
	return f(ctx, attempt)
}
