package quiz

import (
	"context"
	"encoding/json"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
)

type fakeSource struct {
	result gateway.Result[[]model.MCQQuestion]
	calls  []model.Subject
}

func (f *fakeSource) GenerateQuiz(_ context.Context, subject model.Subject) gateway.Result[[]model.MCQQuestion] {
	f.calls = append(f.calls, subject)
	return f.result
}

func questions(correct ...int) []model.MCQQuestion {
	out := make([]model.MCQQuestion, len(correct))
	for i, c := range correct {
		out[i] = model.MCQQuestion{
			ID:            string(rune('a' + i)),
			Topic:         "Topic " + string(rune('A'+i)),
			Question:      "Question " + string(rune('A'+i)),
			Options:       []string{"w", "x", "y", "z"},
			CorrectAnswer: c,
		}
	}
	return out
}

func readySession(t *testing.T, correct ...int) *Session {
	t.Helper()
	s := NewSession()
	src := &fakeSource{result: gateway.Result[[]model.MCQQuestion]{Value: questions(correct...), Outcome: gateway.OK}}
	out := s.FetchSet(context.Background(), src, model.SubjectMath)
	require.Equal(t, gateway.OK, out)
	require.Equal(t, PhaseReady, s.Phase())
	return s
}

func TestFetchSetLoadsQuestions(t *testing.T) {
	s := NewSession()
	assert.Equal(t, PhaseIdle, s.Phase())

	src := &fakeSource{result: gateway.Result[[]model.MCQQuestion]{Value: questions(0, 1), Outcome: gateway.OK}}
	s.FetchSet(context.Background(), src, model.SubjectPhysics)

	assert.Equal(t, []model.Subject{model.SubjectPhysics}, src.calls)
	assert.Equal(t, PhaseReady, s.Phase())
	q, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Question A", q.Question)
	assert.Equal(t, -1, s.Selected())
	assert.Equal(t, Summary{Subject: model.SubjectPhysics, Total: 2, FlaggedTopics: []string{}}, s.Summary())
}

func TestFetchSetEmptyIsTerminal(t *testing.T) {
	s := NewSession()
	src := &fakeSource{result: gateway.Result[[]model.MCQQuestion]{Value: []model.MCQQuestion{}, Outcome: gateway.Failed}}

	out := s.FetchSet(context.Background(), src, model.SubjectMath)

	assert.Equal(t, gateway.Failed, out)
	assert.Equal(t, PhaseEmpty, s.Phase())
	assert.False(t, s.SelectAnswer(0))
	assert.False(t, s.Advance())
	assert.False(t, s.Finish())
	_, ok := s.Current()
	assert.False(t, ok)
	assert.Equal(t, "failed", s.Snapshot().Outcome)
}

func TestSelectAnswerTwiceIsNoop(t *testing.T) {
	s := readySession(t, 2, 0)

	require.True(t, s.SelectAnswer(2))
	assert.Equal(t, PhaseAnswered, s.Phase())
	assert.Equal(t, 1, s.Summary().Score)

	assert.False(t, s.SelectAnswer(1))
	assert.False(t, s.SelectAnswer(2))
	assert.Equal(t, 2, s.Selected(), "first choice is final")
	assert.Equal(t, 1, s.Summary().Score, "score must not change on repeat selection")
}

func TestSelectAnswerRejectsOutOfRange(t *testing.T) {
	s := readySession(t, 0)
	assert.False(t, s.SelectAnswer(-1))
	assert.False(t, s.SelectAnswer(4))
	assert.Equal(t, PhaseReady, s.Phase())
}

func TestScoreCountsFirstCorrectChoices(t *testing.T) {
	correct := []int{0, 1, 2, 3, 1}
	choices := []int{0, 2, 2, 0, 1}
	s := readySession(t, correct...)

	want := 0
	for i, c := range choices {
		if c == correct[i] {
			want++
		}
		require.True(t, s.SelectAnswer(c))
		s.SelectAnswer(correct[i]) // ignored
		if i < len(choices)-1 {
			require.True(t, s.Advance())
		}
	}
	require.True(t, s.Finish())

	sum := s.Summary()
	assert.Equal(t, want, sum.Score)
	assert.Equal(t, 3, sum.Score)
	assert.Equal(t, 5, sum.Total)
	assert.Equal(t, 5, sum.Answered)
	assert.Equal(t, PhaseFinished, s.Phase())
}

func TestAdvanceGuards(t *testing.T) {
	s := readySession(t, 0, 0)

	assert.False(t, s.Advance(), "cannot advance before answering")
	require.True(t, s.SelectAnswer(1))
	assert.False(t, s.Finish(), "cannot finish before the last question")
	require.True(t, s.Advance())
	assert.Equal(t, PhaseReady, s.Phase())
	assert.Equal(t, -1, s.Selected())

	require.True(t, s.SelectAnswer(0))
	assert.False(t, s.Advance(), "no question after the last")
	assert.True(t, s.Finish())
	assert.False(t, s.Finish())
}

func TestFlagTopicOrderedSet(t *testing.T) {
	s := readySession(t, 0)
	s.FlagTopic("Vectors")
	s.FlagTopic("Optics")
	s.FlagTopic("Vectors")
	s.FlagTopic("")

	assert.Equal(t, []string{"Vectors", "Optics"}, s.Summary().FlaggedTopics)
}

func TestFetchSetDiscardsProgress(t *testing.T) {
	s := readySession(t, 0, 0)
	require.True(t, s.SelectAnswer(0))
	require.True(t, s.Advance())
	s.FlagTopic("Algebra")

	src := &fakeSource{result: gateway.Result[[]model.MCQQuestion]{Value: questions(3), Outcome: gateway.OK}}
	s.FetchSet(context.Background(), src, model.SubjectChemistry)

	sum := s.Summary()
	assert.Equal(t, 0, sum.Score)
	assert.Equal(t, 1, sum.Total)
	assert.Empty(t, sum.FlaggedTopics)
	assert.Equal(t, model.SubjectChemistry, sum.Subject)
	snap := s.Snapshot()
	assert.Equal(t, 0, snap.CurrentIndex)
	assert.Nil(t, snap.SelectedAnswer)
}

func TestFetchSetWithGateway(t *testing.T) {
	body, err := json.Marshal(map[string]any{"questions": []map[string]any{{
		"topic":         "Kinematics",
		"question":      "Unit of velocity?",
		"options":       []string{"m/s", "m", "s", "kg"},
		"correctAnswer": 0,
		"explanation":   "Distance over time.",
	}}})
	require.NoError(t, err)
	g := gateway.New(llm.NewMockProvider(llm.MockResponse{Content: body}), gateway.DefaultConfig())

	s := NewSession()
	out := s.FetchSet(context.Background(), g, model.SubjectPhysics)

	require.Equal(t, gateway.OK, out)
	q, ok := s.Current()
	require.True(t, ok)
	assert.Equal(t, "Kinematics", q.Topic)
	assert.NotEmpty(t, q.ID)
}

func TestSnapshotIsACopy(t *testing.T) {
	s := readySession(t, 1)
	require.True(t, s.SelectAnswer(1))

	snap := s.Snapshot()
	require.NotNil(t, snap.SelectedAnswer)
	*snap.SelectedAnswer = 3
	snap.Questions[0].Question = "changed"

	assert.Equal(t, 1, s.Selected())
	q, _ := s.Current()
	assert.Equal(t, "Question A", q.Question)
	assert.Equal(t, PhaseAnswered, snap.Phase)
	assert.Equal(t, "ok", snap.Outcome)
}

func TestLoad(t *testing.T) {
	s := NewSession()
	s.Load(model.SubjectICT, questions(0))
	assert.Equal(t, PhaseReady, s.Phase())
	s.Load(model.SubjectICT, nil)
	assert.Equal(t, PhaseEmpty, s.Phase())
}

func TestSnapshotCarriesPhase(t *testing.T) {
	s := NewSession()
	assert.Equal(t, PhaseIdle, s.Snapshot().Phase)

	s.Load(model.SubjectICT, questions(2))
	assert.Equal(t, s.Phase(), s.Snapshot().Phase)
	require.True(t, s.SelectAnswer(0))
	assert.Equal(t, PhaseAnswered, s.Snapshot().Phase)

	s.Load(model.SubjectICT, nil)
	snap := s.Snapshot()
	assert.Equal(t, PhaseEmpty, snap.Phase)
	assert.Empty(t, snap.Questions)

	body, err := json.Marshal(snap)
	require.NoError(t, err)
	assert.Contains(t, string(body), `"phase":"empty"`)
}
