package db

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgtype"
)

// DBTX is satisfied by *pgxpool.Pool, *pgx.Conn and pgx.Tx.
type DBTX interface {
	Exec(context.Context, string, ...interface{}) (pgconn.CommandTag, error)
	Query(context.Context, string, ...interface{}) (pgx.Rows, error)
	QueryRow(context.Context, string, ...interface{}) pgx.Row
}

type beginner interface {
	Begin(ctx context.Context) (pgx.Tx, error)
}

// Queries holds the hand-maintained SQL used by the repositories.
type Queries struct {
	db DBTX
}

func New(db DBTX) *Queries {
	return &Queries{db: db}
}

// WithTx returns a Queries bound to tx.
func (q *Queries) WithTx(tx pgx.Tx) *Queries {
	return &Queries{db: tx}
}

// InTx runs fn inside a transaction when the underlying handle can open one.
func (q *Queries) InTx(ctx context.Context, fn func(*Queries) error) error {
	b, ok := q.db.(beginner)
	if !ok {
		return fn(q)
	}
	return pgx.BeginFunc(ctx, b, func(tx pgx.Tx) error {
		return fn(q.WithTx(tx))
	})
}

const listCertifications = `
SELECT c.certification_id, c.name, c.vendor,
       COALESCE(array_agg(DISTINCT q.domain ORDER BY q.domain) FILTER (WHERE q.domain IS NOT NULL), '{}')::text[]
FROM certifications c
LEFT JOIN questions q ON q.certification_id = c.certification_id
GROUP BY c.certification_id, c.name, c.vendor
ORDER BY c.name`

func (q *Queries) ListCertifications(ctx context.Context) ([]Certification, error) {
	rows, err := q.db.Query(ctx, listCertifications)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Certification
	for rows.Next() {
		var c Certification
		if err := rows.Scan(&c.CertificationID, &c.Name, &c.Vendor, &c.Domains); err != nil {
			return nil, err
		}
		items = append(items, c)
	}
	return items, rows.Err()
}

const certificationExists = `SELECT EXISTS(SELECT 1 FROM certifications WHERE certification_id = $1)`

func (q *Queries) CertificationExists(ctx context.Context, certificationID string) (bool, error) {
	var exists bool
	err := q.db.QueryRow(ctx, certificationExists, certificationID).Scan(&exists)
	return exists, err
}

const getQuestionPool = `
SELECT question_id, certification_id, position, prompt, options, correct_option_id, explanation, domain, difficulty
FROM questions
WHERE certification_id = $1
  AND (cardinality($2::text[]) = 0 OR domain = ANY($2::text[]))
ORDER BY position, question_id`

type GetQuestionPoolParams struct {
	CertificationID string
	Domains         []string
}

func (q *Queries) GetQuestionPool(ctx context.Context, arg GetQuestionPoolParams) ([]Question, error) {
	domains := arg.Domains
	if domains == nil {
		domains = []string{}
	}
	rows, err := q.db.Query(ctx, getQuestionPool, arg.CertificationID, domains)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Question
	for rows.Next() {
		var i Question
		if err := rows.Scan(
			&i.QuestionID,
			&i.CertificationID,
			&i.Position,
			&i.Prompt,
			&i.Options,
			&i.CorrectOptionID,
			&i.Explanation,
			&i.Domain,
			&i.Difficulty,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

const insertAttempt = `
INSERT INTO attempts (attempt_id, session_id, user_id, certification_id, test_type,
                      total_questions, correct_count, percentage, timed_out, completed_at)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
RETURNING attempt_id, session_id, user_id, certification_id, test_type,
          total_questions, correct_count, percentage, timed_out, completed_at`

type InsertAttemptParams struct {
	AttemptID       pgtype.UUID
	SessionID       pgtype.UUID
	UserID          pgtype.UUID
	CertificationID string
	TestType        string
	TotalQuestions  int32
	CorrectCount    int32
	Percentage      int32
	TimedOut        bool
	CompletedAt     pgtype.Timestamptz
}

func (q *Queries) InsertAttempt(ctx context.Context, arg InsertAttemptParams) (Attempt, error) {
	row := q.db.QueryRow(ctx, insertAttempt,
		arg.AttemptID,
		arg.SessionID,
		arg.UserID,
		arg.CertificationID,
		arg.TestType,
		arg.TotalQuestions,
		arg.CorrectCount,
		arg.Percentage,
		arg.TimedOut,
		arg.CompletedAt,
	)
	var i Attempt
	err := row.Scan(
		&i.AttemptID,
		&i.SessionID,
		&i.UserID,
		&i.CertificationID,
		&i.TestType,
		&i.TotalQuestions,
		&i.CorrectCount,
		&i.Percentage,
		&i.TimedOut,
		&i.CompletedAt,
	)
	return i, err
}

const insertAttemptAnswer = `
INSERT INTO attempt_answers (attempt_id, position, question_id, selected_option_id, correct_option_id, is_correct)
VALUES ($1, $2, $3, $4, $5, $6)`

func (q *Queries) InsertAttemptAnswer(ctx context.Context, arg AttemptAnswer) error {
	_, err := q.db.Exec(ctx, insertAttemptAnswer,
		arg.AttemptID,
		arg.Position,
		arg.QuestionID,
		arg.SelectedOptionID,
		arg.CorrectOptionID,
		arg.IsCorrect,
	)
	if err != nil {
		return fmt.Errorf("insert answer %s: %w", arg.QuestionID, err)
	}
	return nil
}

const listAttemptsByUser = `
SELECT attempt_id, session_id, user_id, certification_id, test_type,
       total_questions, correct_count, percentage, timed_out, completed_at
FROM attempts
WHERE user_id = $1
ORDER BY completed_at DESC
LIMIT $2`

type ListAttemptsByUserParams struct {
	UserID pgtype.UUID
	Limit  int32
}

func (q *Queries) ListAttemptsByUser(ctx context.Context, arg ListAttemptsByUserParams) ([]Attempt, error) {
	rows, err := q.db.Query(ctx, listAttemptsByUser, arg.UserID, arg.Limit)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var items []Attempt
	for rows.Next() {
		var i Attempt
		if err := rows.Scan(
			&i.AttemptID,
			&i.SessionID,
			&i.UserID,
			&i.CertificationID,
			&i.TestType,
			&i.TotalQuestions,
			&i.CorrectCount,
			&i.Percentage,
			&i.TimedOut,
			&i.CompletedAt,
		); err != nil {
			return nil, err
		}
		items = append(items, i)
	}
	return items, rows.Err()
}

// RecordAttempt inserts an attempt and its answers atomically.
func (q *Queries) RecordAttempt(ctx context.Context, arg InsertAttemptParams, answers []AttemptAnswer) (Attempt, error) {
	var saved Attempt
	err := q.InTx(ctx, func(tx *Queries) error {
		attempt, err := tx.InsertAttempt(ctx, arg)
		if err != nil {
			return fmt.Errorf("insert attempt: %w", err)
		}
		for _, ans := range answers {
			ans.AttemptID = attempt.AttemptID
			if err := tx.InsertAttemptAnswer(ctx, ans); err != nil {
				return err
			}
		}
		saved = attempt
		return nil
	})
	return saved, err
}
