package practice

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/gokatarajesh/certprep/internal/question"
	"github.com/gokatarajesh/certprep/internal/results"
	"github.com/gokatarajesh/certprep/internal/session"
	ws "github.com/gokatarajesh/certprep/pkg/http/ws"
)

type attemptQueue interface {
	Enqueue(attempt results.Attempt) bool
}

type snapshotStore interface {
	Save(ctx context.Context, ownerID uuid.UUID, view View) error
	Load(ctx context.Context, sessionID uuid.UUID) (*Snapshot, error)
	Delete(ctx context.Context, sessionID uuid.UUID) error
}

// Notifier pushes events to clients following a session. *ws.Hub satisfies it.
type Notifier interface {
	Broadcast(sessionID uuid.UUID, msg ws.Message) error
	CloseSession(sessionID uuid.UUID)
}

const snapshotTimeout = 2 * time.Second

// liveSession guards one engine. Every engine call happens under mu.
type liveSession struct {
	mu              sync.Mutex
	id              uuid.UUID
	attemptID       uuid.UUID
	ownerID         uuid.UUID
	certificationID string
	engine          *session.Session
	cancel          context.CancelFunc
	completedAt     time.Time
}

// Manager owns the live practice sessions of this process.
type Manager struct {
	source    question.Source
	attempts  attemptQueue
	snapshots snapshotStore
	notifier  Notifier
	opts      Options
	logger    zerolog.Logger

	mu   sync.RWMutex
	live map[uuid.UUID]*liveSession
}

// NewManager wires a session manager. attempts, snapshots and notifier may
// be nil.
func NewManager(source question.Source, attempts attemptQueue, snapshots snapshotStore, notifier Notifier, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		source:    source,
		attempts:  attempts,
		snapshots: snapshots,
		notifier:  notifier,
		opts:      opts.withDefaults(),
		logger:    logger.With().Str("component", "practice_manager").Logger(),
		live:      make(map[uuid.UUID]*liveSession),
	}
}

// Start builds a session from the certification's question pool and starts
// its countdown.
func (m *Manager) Start(ctx context.Context, req StartRequest) (View, error) {
	if req.CertificationID == "" {
		return View{}, fmt.Errorf("certification_id is required: %w", session.ErrInvalidArgument)
	}

	testType := session.TestQuick
	if req.TestType != "" {
		tt, ok := session.TestTypeByName(req.TestType)
		if !ok {
			return View{}, fmt.Errorf("%w: %q", ErrUnknownTestType, req.TestType)
		}
		testType = tt
	}

	pool, err := m.source.FetchQuestions(ctx, req.CertificationID, req.Domains)
	if err != nil {
		return View{}, fmt.Errorf("fetch questions: %w", err)
	}
	pool = session.Select(pool, testType, req.Domains)
	if len(pool) == 0 {
		return View{}, session.ErrInsufficientQuestions
	}

	// The default budget follows the questions actually served, which may
	// be fewer than the test type asks for.
	timeLimit := req.TimeLimitSeconds
	if timeLimit == 0 {
		timeLimit = len(pool) * m.opts.SecondsPerQuestion
	}

	ls := &liveSession{
		id:              uuid.New(),
		attemptID:       uuid.New(),
		ownerID:         req.UserID,
		certificationID: req.CertificationID,
	}
	engine, err := session.New(pool, testType, nil, timeLimit, session.SinkFunc(func(report session.ScoreReport) {
		m.onComplete(ls, report)
	}))
	if err != nil {
		return View{}, err
	}

	clockCtx, cancel := context.WithCancel(context.Background())
	ls.engine = engine
	ls.cancel = cancel

	m.mu.Lock()
	m.live[ls.id] = ls
	m.mu.Unlock()
	m.opts.Metrics.sessionStarted(testType.Name)

	go m.runClock(clockCtx, ls)

	ls.mu.Lock()
	view := m.viewLocked(ls)
	m.saveSnapshot(ls.ownerID, view)
	ls.mu.Unlock()

	m.logger.Info().
		Str("session_id", ls.id.String()).
		Str("certification_id", req.CertificationID).
		Str("test_type", testType.Name).
		Int("questions", view.Total).
		Int("time_limit_seconds", timeLimit).
		Msg("session started")

	return view, nil
}

// View returns the current state of a session. Evicted sessions are served
// from their last snapshot.
func (m *Manager) View(ctx context.Context, sessionID, userID uuid.UUID) (View, error) {
	if ls, err := m.lookup(sessionID, userID); err == nil {
		ls.mu.Lock()
		defer ls.mu.Unlock()
		return m.viewLocked(ls), nil
	}

	snap, err := m.loadSnapshot(ctx, sessionID, userID)
	if err != nil {
		return View{}, err
	}
	return snap.View, nil
}

// SelectAnswer records optionID as the answer to questionID.
func (m *Manager) SelectAnswer(ctx context.Context, sessionID, userID uuid.UUID, questionID, optionID string) (View, error) {
	return m.mutate(sessionID, userID, func(s *session.Session) error {
		return s.SelectAnswer(questionID, optionID)
	})
}

func (m *Manager) Advance(ctx context.Context, sessionID, userID uuid.UUID) (View, error) {
	return m.mutate(sessionID, userID, (*session.Session).Advance)
}

func (m *Manager) Retreat(ctx context.Context, sessionID, userID uuid.UUID) (View, error) {
	return m.mutate(sessionID, userID, (*session.Session).Retreat)
}

// GoTo moves the cursor to index.
func (m *Manager) GoTo(ctx context.Context, sessionID, userID uuid.UUID, index int) (View, error) {
	return m.mutate(sessionID, userID, func(s *session.Session) error {
		return s.GoTo(index)
	})
}

// Submit completes the session and returns its report.
func (m *Manager) Submit(ctx context.Context, sessionID, userID uuid.UUID) (session.ScoreReport, error) {
	var report session.ScoreReport
	_, err := m.mutate(sessionID, userID, func(s *session.Session) error {
		r, err := s.Submit()
		report = r
		return err
	})
	return report, err
}

// Result returns the final report and discards the session.
func (m *Manager) Result(ctx context.Context, sessionID, userID uuid.UUID) (session.ScoreReport, error) {
	ls, err := m.lookup(sessionID, userID)
	if err != nil {
		snap, err := m.loadSnapshot(ctx, sessionID, userID)
		if err != nil {
			return session.ScoreReport{}, err
		}
		if snap.View.Report == nil {
			return session.ScoreReport{}, ErrNotCompleted
		}
		m.deleteSnapshot(sessionID)
		return *snap.View.Report, nil
	}

	ls.mu.Lock()
	report, ok := ls.engine.Report()
	ls.mu.Unlock()
	if !ok {
		return session.ScoreReport{}, ErrNotCompleted
	}

	m.discard(ls)
	m.deleteSnapshot(sessionID)
	return report, nil
}

// Live reports how many sessions are held in memory.
func (m *Manager) Live() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.live)
}

// Run evicts completed sessions after the retention window until ctx is
// cancelled, then stops every remaining clock.
func (m *Manager) Run(ctx context.Context) error {
	ticker := time.NewTicker(m.opts.SweepInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			m.Close()
			return ctx.Err()
		case <-ticker.C:
			m.Sweep()
		}
	}
}

// Sweep evicts completed sessions older than the retention window. Their
// snapshots stay in Redis until the TTL expires.
func (m *Manager) Sweep() int {
	cutoff := m.opts.Now().Add(-m.opts.CompletedRetention)

	m.mu.RLock()
	var expired []*liveSession
	for _, ls := range m.live {
		ls.mu.Lock()
		if ls.engine.State() == session.StateCompleted && ls.completedAt.Before(cutoff) {
			expired = append(expired, ls)
		}
		ls.mu.Unlock()
	}
	m.mu.RUnlock()

	for _, ls := range expired {
		m.discard(ls)
	}
	if len(expired) > 0 {
		m.logger.Debug().Int("evicted", len(expired)).Msg("completed sessions evicted")
	}
	return len(expired)
}

// Close stops every clock and forgets all live sessions.
func (m *Manager) Close() {
	m.mu.Lock()
	sessions := make([]*liveSession, 0, len(m.live))
	for _, ls := range m.live {
		sessions = append(sessions, ls)
	}
	m.mu.Unlock()

	for _, ls := range sessions {
		m.discard(ls)
	}
}

func (m *Manager) lookup(sessionID, userID uuid.UUID) (*liveSession, error) {
	m.mu.RLock()
	ls, ok := m.live[sessionID]
	m.mu.RUnlock()
	if !ok || !owns(ls.ownerID, userID) {
		return nil, ErrSessionNotFound
	}
	return ls, nil
}

// owns lets anonymous sessions be driven by anyone holding the id.
func owns(ownerID, userID uuid.UUID) bool {
	return ownerID == uuid.Nil || ownerID == userID
}

func (m *Manager) mutate(sessionID, userID uuid.UUID, fn func(*session.Session) error) (View, error) {
	ls, err := m.lookup(sessionID, userID)
	if err != nil {
		return View{}, err
	}

	ls.mu.Lock()
	defer ls.mu.Unlock()

	if err := fn(ls.engine); err != nil {
		m.logger.Debug().Err(err).Str("session_id", sessionID.String()).Msg("operation rejected")
		return View{}, err
	}
	view := m.viewLocked(ls)
	m.saveSnapshot(ls.ownerID, view)
	return view, nil
}

func (m *Manager) discard(ls *liveSession) {
	m.mu.Lock()
	_, ok := m.live[ls.id]
	delete(m.live, ls.id)
	m.mu.Unlock()
	if !ok {
		return
	}

	ls.cancel()
	if m.notifier != nil {
		m.notifier.CloseSession(ls.id)
	}
	m.opts.Metrics.sessionEvicted()
}

type tickFunc func() bool

func (f tickFunc) Tick() bool { return f() }

func (m *Manager) runClock(ctx context.Context, ls *liveSession) {
	err := session.NewClock(m.opts.TickInterval).Run(ctx, tickFunc(func() bool {
		return m.tick(ls)
	}))
	if err != nil && !errors.Is(err, context.Canceled) {
		m.logger.Warn().Err(err).Str("session_id", ls.id.String()).Msg("session clock stopped")
	}
}

func (m *Manager) tick(ls *liveSession) bool {
	ls.mu.Lock()
	defer ls.mu.Unlock()

	done := ls.engine.Tick()
	view := m.viewLocked(ls)
	if !done {
		m.notify(ls.id, ws.TypeSessionTick, ws.SessionTickPayload{
			SessionID:        ls.id.String(),
			RemainingSeconds: view.RemainingSeconds,
		})
	}
	m.saveSnapshot(ls.ownerID, view)
	return done
}

// onComplete runs inside the engine with ls.mu held.
func (m *Manager) onComplete(ls *liveSession, report session.ScoreReport) {
	ls.completedAt = m.opts.Now()
	if ls.cancel != nil {
		ls.cancel()
	}
	m.opts.Metrics.sessionCompleted(report.TimedOut)

	m.notify(ls.id, ws.TypeSessionCompleted, ws.SessionCompletedPayload{
		SessionID:  ls.id.String(),
		Total:      report.Total,
		Correct:    report.Correct,
		Percentage: report.Percentage,
		TimedOut:   report.TimedOut,
	})

	m.logger.Info().
		Str("session_id", ls.id.String()).
		Int("correct", report.Correct).
		Int("total", report.Total).
		Int("percentage", report.Percentage).
		Bool("timed_out", report.TimedOut).
		Msg("session completed")

	if m.attempts == nil {
		return
	}
	m.attempts.Enqueue(results.Attempt{
		AttemptID:       ls.attemptID,
		SessionID:       ls.id,
		UserID:          ls.ownerID,
		CertificationID: ls.certificationID,
		TestType:        ls.engine.TestType().Name,
		Report:          report,
		CompletedAt:     ls.completedAt,
	})
}

// viewLocked must be called with ls.mu held.
func (m *Manager) viewLocked(ls *liveSession) View {
	e := ls.engine
	answers := e.Answers()
	view := View{
		SessionID:        ls.id,
		CertificationID:  ls.certificationID,
		TestType:         e.TestType().Name,
		State:            e.State(),
		CurrentIndex:     e.CurrentIndex(),
		Total:            e.Len(),
		Answered:         len(answers),
		RemainingSeconds: e.RemainingSeconds(),
		UpdatedAt:        m.opts.Now(),
	}

	q := e.Current()
	current := &QuestionView{
		Index:            view.CurrentIndex,
		ID:               q.ID,
		Prompt:           q.Prompt,
		Options:          append([]question.Option(nil), q.Options...),
		Domain:           q.Domain,
		Difficulty:       q.Difficulty,
		SelectedOptionID: answers[q.ID],
	}
	if report, ok := e.Report(); ok {
		view.Report = &report
		current.Explanation = q.Explanation
	}
	view.Current = current
	return view
}

func (m *Manager) notify(sessionID uuid.UUID, msgType string, payload interface{}) {
	if m.notifier == nil {
		return
	}
	msg, err := ws.NewMessage(msgType, payload)
	if err != nil {
		m.logger.Warn().Err(err).Str("type", msgType).Msg("encode ws message failed")
		return
	}
	if err := m.notifier.Broadcast(sessionID, msg); err != nil {
		m.logger.Debug().Err(err).Str("session_id", sessionID.String()).Msg("broadcast failed")
	}
}

// saveSnapshot is called with ls.mu held so snapshots land in mutation order.
func (m *Manager) saveSnapshot(ownerID uuid.UUID, view View) {
	if m.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := m.snapshots.Save(ctx, ownerID, view); err != nil {
		m.logger.Warn().Err(err).Str("session_id", view.SessionID.String()).Msg("snapshot save failed")
	}
}

func (m *Manager) loadSnapshot(ctx context.Context, sessionID, userID uuid.UUID) (*Snapshot, error) {
	if m.snapshots == nil {
		return nil, ErrSessionNotFound
	}
	snap, err := m.snapshots.Load(ctx, sessionID)
	if err != nil {
		return nil, fmt.Errorf("load snapshot: %w", err)
	}
	if snap == nil || !owns(snap.OwnerID, userID) {
		return nil, ErrSessionNotFound
	}
	return snap, nil
}

func (m *Manager) deleteSnapshot(sessionID uuid.UUID) {
	if m.snapshots == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), snapshotTimeout)
	defer cancel()
	if err := m.snapshots.Delete(ctx, sessionID); err != nil {
		m.logger.Warn().Err(err).Str("session_id", sessionID.String()).Msg("snapshot delete failed")
	}
}
