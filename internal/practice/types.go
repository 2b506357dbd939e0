package practice

import (
	"errors"
	"time"

	"github.com/google/uuid"

	"github.com/gokatarajesh/certprep/internal/question"
	"github.com/gokatarajesh/certprep/internal/session"
)

var (
	ErrSessionNotFound = errors.New("session not found")
	ErrNotCompleted    = errors.New("session still in progress")
	ErrUnknownTestType = errors.New("unknown test type")
)

// StartRequest describes a new practice test.
type StartRequest struct {
	UserID           uuid.UUID `json:"-"`
	CertificationID  string    `json:"certification_id"`
	TestType         string    `json:"test_type"`
	Domains          []string  `json:"domains"`
	TimeLimitSeconds int       `json:"time_limit_seconds"`
}

// QuestionView is a question as the test taker sees it. The correct option
// is never included; the explanation appears once the session is completed.
type QuestionView struct {
	Index            int               `json:"index"`
	ID               string            `json:"id"`
	Prompt           string            `json:"prompt"`
	Options          []question.Option `json:"options"`
	Domain           string            `json:"domain"`
	Difficulty       string            `json:"difficulty"`
	SelectedOptionID string            `json:"selected_option_id,omitempty"`
	Explanation      string            `json:"explanation,omitempty"`
}

// View is the public projection of a live session.
type View struct {
	SessionID        uuid.UUID            `json:"session_id"`
	CertificationID  string               `json:"certification_id"`
	TestType         string               `json:"test_type"`
	State            session.State        `json:"state"`
	CurrentIndex     int                  `json:"current_index"`
	Total            int                  `json:"total"`
	Answered         int                  `json:"answered"`
	RemainingSeconds int                  `json:"remaining_seconds"`
	Current          *QuestionView        `json:"current,omitempty"`
	Report           *session.ScoreReport `json:"report,omitempty"`
	UpdatedAt        time.Time            `json:"updated_at"`
}

// Completed reports whether the view carries a final report.
func (v View) Completed() bool {
	return v.State == session.StateCompleted
}

// Options tunes the manager.
type Options struct {
	TickInterval       time.Duration
	SecondsPerQuestion int
	CompletedRetention time.Duration
	SweepInterval      time.Duration
	Metrics            *Metrics
	Now                func() time.Time
}

func (o Options) withDefaults() Options {
	if o.TickInterval <= 0 {
		o.TickInterval = time.Second
	}
	if o.SecondsPerQuestion <= 0 {
		o.SecondsPerQuestion = 90
	}
	if o.CompletedRetention <= 0 {
		o.CompletedRetention = 10 * time.Minute
	}
	if o.SweepInterval <= 0 {
		o.SweepInterval = time.Minute
	}
	if o.Now == nil {
		o.Now = time.Now
	}
	return o
}
