package session

import (
	"fmt"

	"github.com/gokatarajesh/certprep/internal/question"
)

// Session is one attempt at a timed practice test. It is not safe for
// concurrent use; callers serialize every call.
type Session struct {
	questions    []question.Question
	position     map[string]int
	currentIndex int
	answers      map[string]string
	remaining    int
	state        State
	testType     TestType
	sink         ResultSink
	report       *ScoreReport
}

// New filters pool by domains (empty means all), keeps at most
// testType.QuestionCount questions in pool order and starts the countdown.
// It fails only when nothing matches; a smaller pool is used as is.
func New(pool []question.Question, testType TestType, domains []string, timeLimitSeconds int, sink ResultSink) (*Session, error) {
	if timeLimitSeconds <= 0 {
		return nil, fmt.Errorf("time limit must be positive, got %d: %w", timeLimitSeconds, ErrInvalidArgument)
	}
	if testType.QuestionCount <= 0 {
		return nil, fmt.Errorf("test type %q has no questions: %w", testType.Name, ErrInvalidArgument)
	}

	selected := Select(pool, testType, domains)
	if len(selected) == 0 {
		return nil, ErrInsufficientQuestions
	}
	position := make(map[string]int, len(selected))
	for i, q := range selected {
		position[q.ID] = i
	}

	return &Session{
		questions: selected,
		position:  position,
		answers:   make(map[string]string),
		remaining: timeLimitSeconds,
		state:     StateInProgress,
		testType:  testType,
		sink:      sink,
	}, nil
}

// Select returns the questions a session over pool would hold: the domain
// matches in pool order, duplicates dropped, capped at testType.QuestionCount.
// Options are copied so the result shares nothing with pool.
func Select(pool []question.Question, testType TestType, domains []string) []question.Question {
	filtered := question.FilterByDomain(pool, domains)
	selected := make([]question.Question, 0, max(0, min(len(filtered), testType.QuestionCount)))
	seen := make(map[string]struct{}, cap(selected))
	for _, q := range filtered {
		if len(selected) >= testType.QuestionCount {
			break
		}
		if _, dup := seen[q.ID]; dup {
			continue
		}
		seen[q.ID] = struct{}{}
		q.Options = append([]question.Option(nil), q.Options...)
		selected = append(selected, q)
	}
	return selected
}

// SelectAnswer records optionID as the answer to questionID, replacing any
// earlier choice.
func (s *Session) SelectAnswer(questionID, optionID string) error {
	if s.state != StateInProgress {
		return ErrInvalidState
	}
	idx, ok := s.position[questionID]
	if !ok {
		return fmt.Errorf("question %q not in session: %w", questionID, ErrInvalidArgument)
	}
	if !s.questions[idx].HasOption(optionID) {
		return fmt.Errorf("option %q not in question %q: %w", optionID, questionID, ErrInvalidArgument)
	}
	s.answers[questionID] = optionID
	return nil
}

// Advance moves to the next question; it stays put on the last one.
func (s *Session) Advance() error {
	if s.state != StateInProgress {
		return ErrInvalidState
	}
	if s.currentIndex < len(s.questions)-1 {
		s.currentIndex++
	}
	return nil
}

// Retreat moves to the previous question; it stays put on the first one.
func (s *Session) Retreat() error {
	if s.state != StateInProgress {
		return ErrInvalidState
	}
	if s.currentIndex > 0 {
		s.currentIndex--
	}
	return nil
}

// GoTo jumps to the question at index.
func (s *Session) GoTo(index int) error {
	if s.state != StateInProgress {
		return ErrInvalidState
	}
	if index < 0 || index >= len(s.questions) {
		return fmt.Errorf("index %d out of range [0,%d): %w", index, len(s.questions), ErrInvalidArgument)
	}
	s.currentIndex = index
	return nil
}

// Tick consumes one second. Reaching zero submits the session. Ticks on a
// completed session are ignored. It reports whether the session is completed.
func (s *Session) Tick() bool {
	if s.state != StateInProgress {
		return true
	}
	if s.remaining > 0 {
		s.remaining--
	}
	if s.remaining == 0 {
		s.complete(true)
	}
	return s.state == StateCompleted
}

// Submit scores the session and emits the report to the sink.
func (s *Session) Submit() (ScoreReport, error) {
	if s.state != StateInProgress {
		return ScoreReport{}, ErrInvalidState
	}
	return s.complete(false), nil
}

func (s *Session) complete(timedOut bool) ScoreReport {
	report := Score(s.questions, s.answers)
	report.TimedOut = timedOut
	s.state = StateCompleted
	s.report = &report
	if s.sink != nil {
		s.sink.Record(report)
	}
	return report
}

// Score grades every question against answers. Unanswered questions count
// as incorrect.
func Score(questions []question.Question, answers map[string]string) ScoreReport {
	report := ScoreReport{
		Total:     len(questions),
		Breakdown: make([]QuestionResult, 0, len(questions)),
	}
	for _, q := range questions {
		selected := answers[q.ID]
		correct := selected != "" && selected == q.CorrectOptionID
		if correct {
			report.Correct++
		}
		report.Breakdown = append(report.Breakdown, QuestionResult{
			QuestionID:       q.ID,
			SelectedOptionID: selected,
			CorrectOptionID:  q.CorrectOptionID,
			IsCorrect:        correct,
		})
	}
	report.Percentage = Percentage(report.Correct, report.Total)
	return report
}

// Percentage is round-half-up of 100*correct/total; 0 when total is 0.
func Percentage(correct, total int) int {
	if total <= 0 {
		return 0
	}
	return (200*correct + total) / (2 * total)
}

func (s *Session) State() State { return s.state }

func (s *Session) TestType() TestType { return s.testType }

func (s *Session) CurrentIndex() int { return s.currentIndex }

func (s *Session) RemainingSeconds() int { return s.remaining }

// Len returns the number of questions in the session.
func (s *Session) Len() int { return len(s.questions) }

// Current returns the question under the cursor.
func (s *Session) Current() question.Question { return s.questions[s.currentIndex] }

// Questions returns a copy of the session's question list.
func (s *Session) Questions() []question.Question {
	out := make([]question.Question, len(s.questions))
	for i, q := range s.questions {
		q.Options = append([]question.Option(nil), q.Options...)
		out[i] = q
	}
	return out
}

// Answers returns a copy of the answer map.
func (s *Session) Answers() map[string]string {
	out := make(map[string]string, len(s.answers))
	for k, v := range s.answers {
		out[k] = v
	}
	return out
}

// Report returns the score report once the session has completed.
func (s *Session) Report() (ScoreReport, bool) {
	if s.report == nil {
		return ScoreReport{}, false
	}
	return *s.report, true
}
