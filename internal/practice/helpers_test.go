package practice

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/question"
	"github.com/gokatarajesh/certprep/internal/results"
	ws "github.com/gokatarajesh/certprep/pkg/http/ws"
)

func sampleSource() *question.MemorySource {
	src := question.NewMemorySource()
	opts := []question.Option{{ID: "a", Text: "A"}, {ID: "b", Text: "B"}, {ID: "c", Text: "C"}}
	src.Add(question.Certification{ID: "aws-ccp", Name: "AWS Cloud Practitioner", Vendor: "AWS"},
		question.Question{ID: "q1", Prompt: "One?", Options: opts, CorrectOptionID: "a", Explanation: "A is right.", Domain: "compute"},
		question.Question{ID: "q2", Prompt: "Two?", Options: opts, CorrectOptionID: "b", Domain: "storage"},
		question.Question{ID: "q3", Prompt: "Three?", Options: opts, CorrectOptionID: "c", Domain: "compute"},
	)
	return src
}

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2026, 5, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type attemptRecorder struct {
	mu       sync.Mutex
	attempts []results.Attempt
}

func (r *attemptRecorder) Enqueue(a results.Attempt) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.attempts = append(r.attempts, a)
	return true
}

func (r *attemptRecorder) all() []results.Attempt {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]results.Attempt(nil), r.attempts...)
}

type fakeNotifier struct {
	mu     sync.Mutex
	msgs   map[uuid.UUID][]ws.Message
	closed []uuid.UUID
}

func newFakeNotifier() *fakeNotifier {
	return &fakeNotifier{msgs: map[uuid.UUID][]ws.Message{}}
}

func (n *fakeNotifier) Broadcast(sessionID uuid.UUID, msg ws.Message) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.msgs[sessionID] = append(n.msgs[sessionID], msg)
	return nil
}

func (n *fakeNotifier) CloseSession(sessionID uuid.UUID) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.closed = append(n.closed, sessionID)
}

func (n *fakeNotifier) types(sessionID uuid.UUID) []string {
	n.mu.Lock()
	defer n.mu.Unlock()
	var out []string
	for _, m := range n.msgs[sessionID] {
		out = append(out, m.Type)
	}
	return out
}

type memSnapshots struct {
	mu    sync.Mutex
	saved map[uuid.UUID]Snapshot
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{saved: map[uuid.UUID]Snapshot{}}
}

func (s *memSnapshots) Save(_ context.Context, ownerID uuid.UUID, view View) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.saved[view.SessionID] = Snapshot{OwnerID: ownerID, View: view}
	return nil
}

func (s *memSnapshots) Load(_ context.Context, sessionID uuid.UUID) (*Snapshot, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	snap, ok := s.saved[sessionID]
	if !ok {
		return nil, nil
	}
	return &snap, nil
}

func (s *memSnapshots) Delete(_ context.Context, sessionID uuid.UUID) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.saved, sessionID)
	return nil
}

type fixture struct {
	manager   *Manager
	attempts  *attemptRecorder
	notifier  *fakeNotifier
	snapshots *memSnapshots
	clock     *fakeClock
}

// newFixture builds a manager whose countdown only advances when tickInterval
// is short enough to matter in the test.
func newFixture(tickInterval time.Duration) *fixture {
	f := &fixture{
		attempts:  &attemptRecorder{},
		notifier:  newFakeNotifier(),
		snapshots: newMemSnapshots(),
		clock:     newFakeClock(),
	}
	f.manager = NewManager(sampleSource(), f.attempts, f.snapshots, f.notifier, Options{
		TickInterval:       tickInterval,
		CompletedRetention: time.Minute,
		Now:                f.clock.Now,
	}, zerolog.Nop())
	return f
}
