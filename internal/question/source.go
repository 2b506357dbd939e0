package question

import (
	"context"
	"errors"
	"sort"
)

// ErrCertificationNotFound is returned when a certification id is unknown.
var ErrCertificationNotFound = errors.New("certification not found")

// Source supplies the ordered question pool of a certification.
// Implementations must return a stable order (authoring position, then id)
// so truncating the pool is deterministic.
type Source interface {
	FetchQuestions(ctx context.Context, certificationID string, domains []string) ([]Question, error)
}

// Catalog lists the certifications a Source can serve.
type Catalog interface {
	ListCertifications(ctx context.Context) ([]Certification, error)
}

// MemorySource keeps the question bank in process. Questions are served in
// the order they were added.
type MemorySource struct {
	certs     []Certification
	questions map[string][]Question
}

var (
	_ Source  = (*MemorySource)(nil)
	_ Catalog = (*MemorySource)(nil)
)

func NewMemorySource() *MemorySource {
	return &MemorySource{questions: map[string][]Question{}}
}

// Add registers a certification with its questions in authoring order.
func (m *MemorySource) Add(cert Certification, questions ...Question) {
	if len(cert.Domains) == 0 {
		cert.Domains = domainsOf(questions)
	}
	if _, ok := m.questions[cert.ID]; !ok {
		m.certs = append(m.certs, cert)
	}
	m.questions[cert.ID] = append(m.questions[cert.ID], questions...)
}

func (m *MemorySource) FetchQuestions(_ context.Context, certificationID string, domains []string) ([]Question, error) {
	pool, ok := m.questions[certificationID]
	if !ok {
		return nil, ErrCertificationNotFound
	}
	return FilterByDomain(pool, domains), nil
}

func (m *MemorySource) ListCertifications(_ context.Context) ([]Certification, error) {
	out := make([]Certification, len(m.certs))
	copy(out, m.certs)
	return out, nil
}

// FilterByDomain keeps questions whose domain is in domains, preserving
// order. An empty filter returns a copy of the whole pool.
func FilterByDomain(pool []Question, domains []string) []Question {
	if len(domains) == 0 {
		out := make([]Question, len(pool))
		copy(out, pool)
		return out
	}
	allowed := make(map[string]struct{}, len(domains))
	for _, d := range domains {
		allowed[d] = struct{}{}
	}
	out := make([]Question, 0, len(pool))
	for _, q := range pool {
		if _, ok := allowed[q.Domain]; ok {
			out = append(out, q)
		}
	}
	return out
}

func domainsOf(questions []Question) []string {
	seen := map[string]struct{}{}
	var out []string
	for _, q := range questions {
		if _, ok := seen[q.Domain]; ok || q.Domain == "" {
			continue
		}
		seen[q.Domain] = struct{}{}
		out = append(out, q.Domain)
	}
	sort.Strings(out)
	return out
}
