package session

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/gokatarajesh/certprep/internal/question"
)

type recordingSink struct {
	reports []ScoreReport
}

func (r *recordingSink) Record(report ScoreReport) {
	r.reports = append(r.reports, report)
}

func samplePool(n int, domains ...string) []question.Question {
	pool := make([]question.Question, n)
	for i := range pool {
		domain := "general"
		if len(domains) > 0 {
			domain = domains[i%len(domains)]
		}
		pool[i] = question.Question{
			ID:     fmt.Sprintf("q%d", i+1),
			Prompt: fmt.Sprintf("Question %d", i+1),
			Options: []question.Option{
				{ID: "a", Text: "A"},
				{ID: "b", Text: "B"},
				{ID: "c", Text: "C"},
			},
			CorrectOptionID: "a",
			Domain:          domain,
			Difficulty:      question.DifficultyMedium,
		}
	}
	return pool
}

func fiveOf() TestType { return TestType{Name: "five", QuestionCount: 5} }

func TestNewTakesWholePoolInOrder(t *testing.T) {
	s, err := New(samplePool(5), fiveOf(), nil, 60, nil)
	require.NoError(t, err)

	qs := s.Questions()
	require.Len(t, qs, 5)
	for i, q := range qs {
		assert.Equal(t, fmt.Sprintf("q%d", i+1), q.ID)
	}
	assert.Equal(t, StateInProgress, s.State())
	assert.Equal(t, 0, s.CurrentIndex())
	assert.Equal(t, 60, s.RemainingSeconds())
	assert.Empty(t, s.Answers())
}

func TestNewFiltersByDomain(t *testing.T) {
	pool := samplePool(5)
	pool[1].Domain = "security"
	pool[3].Domain = "security"

	s, err := New(pool, fiveOf(), []string{"security"}, 60, nil)
	require.NoError(t, err)
	qs := s.Questions()
	require.Len(t, qs, 2)
	assert.Equal(t, "q2", qs[0].ID)
	assert.Equal(t, "q4", qs[1].ID)

	_, err = New(pool, fiveOf(), []string{"networking"}, 60, nil)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)
}

func TestNewTruncatesToTestTypeAndToleratesSmallPool(t *testing.T) {
	s, err := New(samplePool(30), TestQuick, nil, 60, nil)
	require.NoError(t, err)
	assert.Equal(t, 10, s.Len())

	s, err = New(samplePool(3), TestFull, nil, 60, nil)
	require.NoError(t, err)
	assert.Equal(t, 3, s.Len())
}

func TestNewRejectsEmptyPoolAndBadArguments(t *testing.T) {
	_, err := New(nil, TestQuick, nil, 60, nil)
	assert.ErrorIs(t, err, ErrInsufficientQuestions)

	_, err = New(samplePool(2), TestQuick, nil, 0, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)

	_, err = New(samplePool(2), TestType{Name: "empty"}, nil, 60, nil)
	assert.ErrorIs(t, err, ErrInvalidArgument)
}

func TestNewSkipsDuplicateIDs(t *testing.T) {
	pool := samplePool(3)
	pool[2].ID = "q1"

	s, err := New(pool, TestQuick, nil, 60, nil)
	require.NoError(t, err)
	assert.Equal(t, 2, s.Len())
}

func TestNewDoesNotAliasPool(t *testing.T) {
	pool := samplePool(2)
	s, err := New(pool, TestQuick, nil, 60, nil)
	require.NoError(t, err)

	pool[0].ID = "mutated"
	pool[1].Options[0].ID = "z"
	qs := s.Questions()
	assert.Equal(t, "q1", qs[0].ID)
	assert.Equal(t, "a", qs[1].Options[0].ID)
}

func TestQuestionsReturnsIndependentOptions(t *testing.T) {
	s, err := New(samplePool(1), TestQuick, nil, 60, nil)
	require.NoError(t, err)

	qs := s.Questions()
	qs[0].Options[1].ID = "hijacked"

	assert.ErrorIs(t, s.SelectAnswer("q1", "hijacked"), ErrInvalidArgument)
	require.NoError(t, s.SelectAnswer("q1", "b"))
	assert.Equal(t, "b", s.Questions()[0].Options[1].ID)
}

func TestSelectCapsDedupesAndFilters(t *testing.T) {
	pool := samplePool(6, "security", "billing")
	pool[4].ID = "q1"

	got := Select(pool, TestType{Name: "two", QuestionCount: 2}, []string{"security"})
	require.Len(t, got, 2)
	assert.Equal(t, "q1", got[0].ID)
	assert.Equal(t, "q3", got[1].ID)

	assert.Empty(t, Select(pool, TestQuick, []string{"networking"}))
}

func TestSelectAnswerOverwritesAndIsIdempotent(t *testing.T) {
	s, err := New(samplePool(3), TestQuick, nil, 60, nil)
	require.NoError(t, err)

	require.NoError(t, s.SelectAnswer("q1", "b"))
	require.NoError(t, s.SelectAnswer("q1", "a"))
	once := s.Answers()
	require.NoError(t, s.SelectAnswer("q1", "a"))

	assert.Equal(t, once, s.Answers())
	assert.Equal(t, map[string]string{"q1": "a"}, s.Answers())
}

func TestSelectAnswerRejectsUnknownIDs(t *testing.T) {
	s, err := New(samplePool(3), TestQuick, nil, 60, nil)
	require.NoError(t, err)

	assert.ErrorIs(t, s.SelectAnswer("q99", "a"), ErrInvalidArgument)
	assert.ErrorIs(t, s.SelectAnswer("q1", "z"), ErrInvalidArgument)
	assert.Empty(t, s.Answers())
}

func TestNavigationClampsAtBothEnds(t *testing.T) {
	s, err := New(samplePool(3), TestQuick, nil, 60, nil)
	require.NoError(t, err)

	require.NoError(t, s.Retreat())
	assert.Equal(t, 0, s.CurrentIndex())

	for i := 0; i < 10; i++ {
		require.NoError(t, s.Advance())
		assert.True(t, s.CurrentIndex() >= 0 && s.CurrentIndex() < s.Len())
	}
	assert.Equal(t, s.Len()-1, s.CurrentIndex())
	assert.Equal(t, "q3", s.Current().ID)

	require.NoError(t, s.Retreat())
	assert.Equal(t, 1, s.CurrentIndex())
}

func TestGoTo(t *testing.T) {
	s, err := New(samplePool(3), TestQuick, nil, 60, nil)
	require.NoError(t, err)

	require.NoError(t, s.GoTo(2))
	assert.Equal(t, 2, s.CurrentIndex())
	assert.ErrorIs(t, s.GoTo(3), ErrInvalidArgument)
	assert.ErrorIs(t, s.GoTo(-1), ErrInvalidArgument)
	assert.Equal(t, 2, s.CurrentIndex())
}

func TestSubmitScoresMixedAnswers(t *testing.T) {
	sink := &recordingSink{}
	s, err := New(samplePool(3), TestQuick, nil, 60, sink)
	require.NoError(t, err)

	require.NoError(t, s.SelectAnswer("q1", "a"))
	require.NoError(t, s.SelectAnswer("q2", "b"))

	report, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 3, report.Total)
	assert.Equal(t, 1, report.Correct)
	assert.Equal(t, 33, report.Percentage)
	assert.False(t, report.TimedOut)
	assert.Equal(t, []QuestionResult{
		{QuestionID: "q1", SelectedOptionID: "a", CorrectOptionID: "a", IsCorrect: true},
		{QuestionID: "q2", SelectedOptionID: "b", CorrectOptionID: "a", IsCorrect: false},
		{QuestionID: "q3", SelectedOptionID: "", CorrectOptionID: "a", IsCorrect: false},
	}, report.Breakdown)
	assert.False(t, report.Breakdown[2].Answered())

	require.Len(t, sink.reports, 1)
	assert.Equal(t, report, sink.reports[0])
	stored, ok := s.Report()
	assert.True(t, ok)
	assert.Equal(t, report, stored)
}

func TestSubmitAllCorrectIsHundred(t *testing.T) {
	s, err := New(samplePool(7), TestQuick, nil, 60, nil)
	require.NoError(t, err)
	for _, q := range s.Questions() {
		require.NoError(t, s.SelectAnswer(q.ID, q.CorrectOptionID))
	}

	report, err := s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 100, report.Percentage)
}

func TestSubmitTwiceFailsAndEmitsOnce(t *testing.T) {
	sink := &recordingSink{}
	s, err := New(samplePool(3), TestQuick, nil, 60, sink)
	require.NoError(t, err)

	_, err = s.Submit()
	require.NoError(t, err)
	_, err = s.Submit()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, sink.reports, 1)
}

func TestCompletedSessionIsReadOnly(t *testing.T) {
	s, err := New(samplePool(3), TestQuick, nil, 60, nil)
	require.NoError(t, err)
	require.NoError(t, s.SelectAnswer("q1", "a"))
	_, err = s.Submit()
	require.NoError(t, err)

	assert.ErrorIs(t, s.SelectAnswer("q2", "a"), ErrInvalidState)
	assert.ErrorIs(t, s.Advance(), ErrInvalidState)
	assert.ErrorIs(t, s.Retreat(), ErrInvalidState)
	assert.ErrorIs(t, s.GoTo(1), ErrInvalidState)
	assert.Equal(t, map[string]string{"q1": "a"}, s.Answers())
	assert.Equal(t, 0, s.CurrentIndex())

	remaining := s.RemainingSeconds()
	assert.True(t, s.Tick())
	assert.Equal(t, remaining, s.RemainingSeconds())
}

func TestTickCountsDownMonotonically(t *testing.T) {
	s, err := New(samplePool(2), TestQuick, nil, 5, nil)
	require.NoError(t, err)

	prev := s.RemainingSeconds()
	for i := 0; i < 10; i++ {
		s.Tick()
		cur := s.RemainingSeconds()
		assert.LessOrEqual(t, cur, prev)
		assert.GreaterOrEqual(t, cur, 0)
		prev = cur
	}
	assert.Equal(t, 0, s.RemainingSeconds())
	assert.Equal(t, StateCompleted, s.State())
}

func TestTickToZeroAutoSubmitsOnce(t *testing.T) {
	sink := &recordingSink{}
	s, err := New(samplePool(2), TestQuick, nil, 1, sink)
	require.NoError(t, err)
	require.NoError(t, s.SelectAnswer("q1", "a"))

	assert.True(t, s.Tick())
	assert.Equal(t, StateCompleted, s.State())
	require.Len(t, sink.reports, 1)
	assert.True(t, sink.reports[0].TimedOut)
	assert.Equal(t, 50, sink.reports[0].Percentage)

	s.Tick()
	_, err = s.Submit()
	assert.ErrorIs(t, err, ErrInvalidState)
	assert.Len(t, sink.reports, 1)
}

func TestPercentageRoundsHalfUp(t *testing.T) {
	cases := []struct {
		correct, total, want int
	}{
		{0, 3, 0},
		{1, 3, 33},
		{2, 3, 67},
		{1, 8, 13},
		{1, 200, 1},
		{1, 201, 0},
		{5, 5, 100},
		{0, 0, 0},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, Percentage(tc.correct, tc.total), "%d/%d", tc.correct, tc.total)
	}
}

func TestSinkFunc(t *testing.T) {
	var got ScoreReport
	s, err := New(samplePool(1), TestQuick, nil, 60, SinkFunc(func(r ScoreReport) { got = r }))
	require.NoError(t, err)
	_, err = s.Submit()
	require.NoError(t, err)
	assert.Equal(t, 1, got.Total)
}

func TestTestTypeByName(t *testing.T) {
	tt, ok := TestTypeByName("FULL")
	assert.True(t, ok)
	assert.Equal(t, TestFull, tt)

	_, ok = TestTypeByName("marathon")
	assert.False(t, ok)
}
