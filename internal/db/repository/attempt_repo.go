package repository

import (
	"context"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5/pgtype"

	"github.com/gokatarajesh/certprep/internal/db"
)

type attemptStore interface {
	RecordAttempt(ctx context.Context, arg db.InsertAttemptParams, answers []db.AttemptAnswer) (db.Attempt, error)
	ListAttemptsByUser(ctx context.Context, arg db.ListAttemptsByUserParams) ([]db.Attempt, error)
}

// AttemptRepository persists finished practice tests.
type AttemptRepository struct {
	store attemptStore
}

// NewAttemptRepository constructs a new attempt repository.
func NewAttemptRepository(store attemptStore) *AttemptRepository {
	return &AttemptRepository{store: store}
}

// Record stores the attempt row together with its per-question breakdown.
func (r *AttemptRepository) Record(ctx context.Context, params db.InsertAttemptParams, answers []db.AttemptAnswer) (db.Attempt, error) {
	return r.store.RecordAttempt(ctx, params, answers)
}

// ListByUser returns the most recent attempts of a user, newest first.
func (r *AttemptRepository) ListByUser(ctx context.Context, userID uuid.UUID, limit int) ([]db.Attempt, error) {
	if limit <= 0 {
		limit = 20
	}
	return r.store.ListAttemptsByUser(ctx, db.ListAttemptsByUserParams{
		UserID: PgUUID(userID),
		Limit:  int32(limit),
	})
}

// PgUUID converts a uuid into its pgtype form; uuid.Nil maps to NULL.
func PgUUID(id uuid.UUID) pgtype.UUID {
	if id == uuid.Nil {
		return pgtype.UUID{}
	}
	return pgtype.UUID{Bytes: id, Valid: true}
}
