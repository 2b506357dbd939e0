package question

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/db"
)

type bankRepository interface {
	FetchPool(ctx context.Context, certificationID string, domains []string) ([]db.Question, error)
	ListCertifications(ctx context.Context) ([]db.Certification, error)
	Exists(ctx context.Context, certificationID string) (bool, error)
}

// Service serves question pools from the Postgres bank with a cache in front.
type Service struct {
	repo   bankRepository
	cache  PoolCache
	logger zerolog.Logger
}

var (
	_ Source  = (*Service)(nil)
	_ Catalog = (*Service)(nil)
)

func NewService(repo bankRepository, cache PoolCache, logger zerolog.Logger) *Service {
	return &Service{
		repo:   repo,
		cache:  cache,
		logger: logger.With().Str("component", "question_service").Logger(),
	}
}

// FetchQuestions returns the certification's pool, filtered by domains, in
// authoring order. Records that fail validation are skipped.
func (s *Service) FetchQuestions(ctx context.Context, certificationID string, domains []string) ([]Question, error) {
	if s.cache != nil {
		if cached, err := s.cache.Get(ctx, certificationID, domains); err == nil && cached != nil {
			return cached, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Str("certification_id", certificationID).Msg("question cache read failed")
		}
	}

	rows, err := s.repo.FetchPool(ctx, certificationID, domains)
	if err != nil {
		return nil, fmt.Errorf("fetch question pool: %w", err)
	}
	if len(rows) == 0 {
		exists, err := s.repo.Exists(ctx, certificationID)
		if err != nil {
			return nil, fmt.Errorf("lookup certification: %w", err)
		}
		if !exists {
			return nil, ErrCertificationNotFound
		}
	}

	pool := make([]Question, 0, len(rows))
	for _, row := range rows {
		q, err := toDomain(row)
		if err != nil {
			s.logger.Warn().Err(err).Str("question_id", row.QuestionID).Msg("skipping malformed question")
			continue
		}
		pool = append(pool, q)
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, certificationID, domains, pool); err != nil {
			s.logger.Warn().Err(err).Str("certification_id", certificationID).Msg("question cache write failed")
		}
	}
	return pool, nil
}

// ListCertifications returns the catalog.
func (s *Service) ListCertifications(ctx context.Context) ([]Certification, error) {
	rows, err := s.repo.ListCertifications(ctx)
	if err != nil {
		return nil, fmt.Errorf("list certifications: %w", err)
	}
	certs := make([]Certification, 0, len(rows))
	for _, row := range rows {
		certs = append(certs, Certification{
			ID:      row.CertificationID,
			Name:    row.Name,
			Vendor:  row.Vendor,
			Domains: row.Domains,
		})
	}
	return certs, nil
}

func toDomain(row db.Question) (Question, error) {
	var options []Option
	if err := json.Unmarshal(row.Options, &options); err != nil {
		return Question{}, fmt.Errorf("decode options: %w", err)
	}
	q := Question{
		ID:              row.QuestionID,
		Prompt:          row.Prompt,
		Options:         options,
		CorrectOptionID: row.CorrectOptionID,
		Explanation:     row.Explanation,
		Domain:          row.Domain,
		Difficulty:      row.Difficulty,
	}
	if err := Validate(q); err != nil {
		return Question{}, err
	}
	return q, nil
}

// Validate checks that a question can be scored.
func Validate(q Question) error {
	if q.ID == "" {
		return fmt.Errorf("question has no id")
	}
	if len(q.Options) < 2 {
		return fmt.Errorf("question %s: need at least two options", q.ID)
	}
	seen := make(map[string]struct{}, len(q.Options))
	for _, opt := range q.Options {
		if _, dup := seen[opt.ID]; dup || opt.ID == "" {
			return fmt.Errorf("question %s: invalid option id %q", q.ID, opt.ID)
		}
		seen[opt.ID] = struct{}{}
	}
	if !q.HasOption(q.CorrectOptionID) {
		return fmt.Errorf("question %s: correct option %q not among options", q.ID, q.CorrectOptionID)
	}
	return nil
}
