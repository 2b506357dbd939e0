package results

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/certprep/internal/db"
	"github.com/gokatarajesh/certprep/internal/db/repository"
)

type attemptRepository interface {
	Record(ctx context.Context, params db.InsertAttemptParams, answers []db.AttemptAnswer) (db.Attempt, error)
	ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]db.Attempt, error)
}

// Summary is one row of a user's attempt history.
type Summary struct {
	AttemptID       uuid.UUID `json:"attempt_id"`
	SessionID       uuid.UUID `json:"session_id"`
	CertificationID string    `json:"certification_id"`
	TestType        string    `json:"test_type"`
	Total           int       `json:"total"`
	Correct         int       `json:"correct"`
	Percentage      int       `json:"percentage"`
	TimedOut        bool      `json:"timed_out"`
	CompletedAt     time.Time `json:"completed_at"`
}

// Store writes attempts to Postgres.
type Store struct {
	repo attemptRepository
}

var _ Recorder = (*Store)(nil)

func NewStore(repo attemptRepository) *Store {
	return &Store{repo: repo}
}

func (s *Store) RecordAttempt(ctx context.Context, attempt Attempt) error {
	params := db.InsertAttemptParams{
		AttemptID:       repository.PgUUID(attempt.AttemptID),
		SessionID:       repository.PgUUID(attempt.SessionID),
		UserID:          repository.PgUUID(attempt.UserID),
		CertificationID: attempt.CertificationID,
		TestType:        attempt.TestType,
		TotalQuestions:  int32(attempt.Report.Total),
		CorrectCount:    int32(attempt.Report.Correct),
		Percentage:      int32(attempt.Report.Percentage),
		TimedOut:        attempt.Report.TimedOut,
		CompletedAt:     pgtype.Timestamptz{Time: attempt.CompletedAt.UTC(), Valid: true},
	}

	answers := make([]db.AttemptAnswer, len(attempt.Report.Breakdown))
	for i, r := range attempt.Report.Breakdown {
		answers[i] = db.AttemptAnswer{
			Position:         int32(i),
			QuestionID:       r.QuestionID,
			SelectedOptionID: pgtype.Text{String: r.SelectedOptionID, Valid: r.Answered()},
			CorrectOptionID:  r.CorrectOptionID,
			IsCorrect:        r.IsCorrect,
		}
	}

	if _, err := s.repo.Record(ctx, params, answers); err != nil {
		return fmt.Errorf("record attempt %s: %w", attempt.AttemptID, err)
	}
	return nil
}

// History returns the user's latest attempts, newest first.
func (s *Store) History(ctx context.Context, userID uuid.UUID, limit int) ([]Summary, error) {
	rows, err := s.repo.ListByUser(ctx, userID, limit)
	if err != nil {
		return nil, fmt.Errorf("list attempts: %w", err)
	}
	out := make([]Summary, 0, len(rows))
	for _, row := range rows {
		out = append(out, Summary{
			AttemptID:       uuid.UUID(row.AttemptID.Bytes),
			SessionID:       uuid.UUID(row.SessionID.Bytes),
			CertificationID: row.CertificationID,
			TestType:        row.TestType,
			Total:           int(row.TotalQuestions),
			Correct:         int(row.CorrectCount),
			Percentage:      int(row.Percentage),
			TimedOut:        row.TimedOut,
			CompletedAt:     row.CompletedAt.Time,
		})
	}
	return out, nil
}
