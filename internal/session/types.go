package session

import "strings"

// State is the lifecycle phase of a Session.
type State string

const (
	StateInProgress State = "in_progress"
	StateCompleted  State = "completed"
)

// TestType selects how many questions a session draws from the pool.
type TestType struct {
	Name          string `json:"name"`
	QuestionCount int    `json:"question_count"`
}

// Preset test types.
var (
	TestQuick    = TestType{Name: "quick", QuestionCount: 10}
	TestStandard = TestType{Name: "standard", QuestionCount: 25}
	TestFull     = TestType{Name: "full", QuestionCount: 50}
)

// TestTypes lists the presets in ascending size.
func TestTypes() []TestType {
	return []TestType{TestQuick, TestStandard, TestFull}
}

// TestTypeByName resolves a preset, case-insensitively.
func TestTypeByName(name string) (TestType, bool) {
	for _, tt := range TestTypes() {
		if strings.EqualFold(tt.Name, name) {
			return tt, true
		}
	}
	return TestType{}, false
}

// QuestionResult is the scored outcome of one question.
type QuestionResult struct {
	QuestionID       string `json:"question_id"`
	SelectedOptionID string `json:"selected_option_id,omitempty"` // empty when unanswered
	CorrectOptionID  string `json:"correct_option_id"`
	IsCorrect        bool   `json:"is_correct"`
}

// Answered reports whether an option was selected.
func (r QuestionResult) Answered() bool {
	return r.SelectedOptionID != ""
}

// ScoreReport is the computed outcome of a submitted session.
type ScoreReport struct {
	Total      int              `json:"total"`
	Correct    int              `json:"correct"`
	Percentage int              `json:"percentage"`
	TimedOut   bool             `json:"timed_out"`
	Breakdown  []QuestionResult `json:"breakdown"`
}

// ResultSink receives the report of a completed session exactly once.
// Record must not block on I/O; the engine does not wait for delivery.
type ResultSink interface {
	Record(report ScoreReport)
}

// SinkFunc adapts a function to ResultSink.
type SinkFunc func(ScoreReport)

func (f SinkFunc) Record(report ScoreReport) { f(report) }
