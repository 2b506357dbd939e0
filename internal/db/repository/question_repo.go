package repository

import (
	"context"

	"github.com/gokatarajesh/certprep/internal/db"
)

type questionStore interface {
	GetQuestionPool(ctx context.Context, arg db.GetQuestionPoolParams) ([]db.Question, error)
	ListCertifications(ctx context.Context) ([]db.Certification, error)
	CertificationExists(ctx context.Context, certificationID string) (bool, error)
}

// QuestionRepository wraps the question bank queries.
type QuestionRepository struct {
	store questionStore
}

func NewQuestionRepository(store questionStore) *QuestionRepository {
	return &QuestionRepository{store: store}
}

// FetchPool returns the questions of a certification in authoring order,
// optionally restricted to domains.
func (r *QuestionRepository) FetchPool(ctx context.Context, certificationID string, domains []string) ([]db.Question, error) {
	return r.store.GetQuestionPool(ctx, db.GetQuestionPoolParams{
		CertificationID: certificationID,
		Domains:         domains,
	})
}

// ListCertifications returns every certification with its domain tags.
func (r *QuestionRepository) ListCertifications(ctx context.Context) ([]db.Certification, error) {
	return r.store.ListCertifications(ctx)
}

// Exists reports whether the certification is known.
func (r *QuestionRepository) Exists(ctx context.Context, certificationID string) (bool, error) {
	return r.store.CertificationExists(ctx, certificationID)
}
