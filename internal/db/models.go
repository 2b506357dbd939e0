package db

import (
	"github.com/jackc/pgx/v5/pgtype"
)

// Certification mirrors the certifications table joined with its domains.
type Certification struct {
	CertificationID string
	Name            string
	Vendor          string
	Domains         []string
}

// Question mirrors a questions row. Options is the raw jsonb payload.
type Question struct {
	QuestionID      string
	CertificationID string
	Position        int32
	Prompt          string
	Options         []byte
	CorrectOptionID string
	Explanation     string
	Domain          string
	Difficulty      string
}

// Attempt mirrors an attempts row.
type Attempt struct {
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

// AttemptAnswer mirrors an attempt_answers row.
type AttemptAnswer struct {
	AttemptID        pgtype.UUID
	Position         int32
	QuestionID       string
	SelectedOptionID pgtype.Text
	CorrectOptionID  string
	IsCorrect        bool
}
