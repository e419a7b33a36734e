package conversation

import (
	"context"
	"errors"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/store"
)

// scriptedTutor emits cumulative strings and then returns result. When
// hold is set it blocks after the first emission until released or the
// context ends.
type scriptedTutor struct {
	updates []string
	result  gateway.Result[string]
	hold    chan struct{}
	started chan struct{}

	mu     sync.Mutex
	inputs []gateway.TutorInput
}

func (s *scriptedTutor) StreamTutorReply(ctx context.Context, in gateway.TutorInput, onText func(string)) gateway.Result[string] {
	s.mu.Lock()
	s.inputs = append(s.inputs, in)
	s.mu.Unlock()

	for i, u := range s.updates {
		onText(u)
		if i == 0 && s.hold != nil {
			close(s.started)
			select {
			case <-s.hold:
			case <-ctx.Done():
				// Keep emitting to prove late callbacks are ignored.
				for _, late := range s.updates[1:] {
					onText(late)
				}
				return gateway.Result[string]{Outcome: gateway.Canceled, Err: ctx.Err()}
			}
		}
	}
	return s.result
}

func okTutor(updates ...string) *scriptedTutor {
	final := ""
	if len(updates) > 0 {
		final = updates[len(updates)-1]
	}
	return &scriptedTutor{updates: updates, result: gateway.Result[string]{Value: final, Outcome: gateway.OK}}
}

func TestSendEmptyIsNoop(t *testing.T) {
	tutor := okTutor("hi")
	c := New(tutor)

	_, err := c.Send(context.Background(), model.SubjectMath, "   ", "")
	assert.ErrorIs(t, err, ErrEmptyMessage)
	assert.Empty(t, c.History(model.SubjectMath))
	assert.Empty(t, tutor.inputs)
}

func TestSendStreamsIntoPlaceholder(t *testing.T) {
	tutor := okTutor("Force", "Force = ma", "Force = ma\n[[SUGGESTIONS: Examples? | Units?]]")

	var (
		mu      sync.Mutex
		updates [][]model.ChatMessage
	)
	c := New(tutor, WithUpdateFunc(func(subject model.Subject, h []model.ChatMessage) {
		mu.Lock()
		defer mu.Unlock()
		assert.Equal(t, model.SubjectPhysics, subject)
		updates = append(updates, h)
	}))

	reply, err := c.Send(context.Background(), model.SubjectPhysics, "  What is force?  ", "")
	require.NoError(t, err)
	assert.Equal(t, gateway.OK, reply.Outcome)
	assert.Equal(t, "Force = ma", reply.Message.Text)
	assert.Equal(t, []string{"Examples?", "Units?"}, reply.Message.Suggestions)

	h := c.History(model.SubjectPhysics)
	require.Len(t, h, 2)
	assert.Equal(t, model.RoleUser, h[0].Role)
	assert.Equal(t, "What is force?", h[0].Text)
	assert.Equal(t, model.RoleModel, h[1].Role)
	assert.Equal(t, reply.Message, h[1])

	// placeholder, three streamed updates, final
	require.Len(t, updates, 5)
	assert.Equal(t, "", updates[0][1].Text)
	assert.Equal(t, "Force", updates[1][1].Text)
	assert.Equal(t, "Force = ma", updates[2][1].Text)
	for _, u := range updates {
		require.Len(t, u, 2)
		assert.Equal(t, h[1].ID, u[1].ID)
		assert.Equal(t, h[1].Timestamp, u[1].Timestamp, "placeholder timestamp is kept")
	}
	assert.Equal(t, StateIdle, c.State(model.SubjectPhysics))
}

func TestSendPassesPriorHistory(t *testing.T) {
	tutor := okTutor("one")
	c := New(tutor, WithContext("chapter 3 notes"))
	ctx := context.Background()

	_, err := c.Send(ctx, model.SubjectMath, "first", "")
	require.NoError(t, err)
	tutor.updates = []string{"two"}
	tutor.result.Value = "two"
	_, err = c.Send(ctx, model.SubjectMath, "second", "data:image/png;base64,AAAA")
	require.NoError(t, err)

	require.Len(t, tutor.inputs, 2)
	assert.Empty(t, tutor.inputs[0].History)
	second := tutor.inputs[1]
	require.Len(t, second.History, 2)
	assert.Equal(t, "first", second.History[0].Text)
	assert.Equal(t, "one", second.History[1].Text)
	assert.Equal(t, "second", second.Prompt)
	assert.Equal(t, "data:image/png;base64,AAAA", second.Image)
	assert.Contains(t, second.Context, "Math")
	assert.Contains(t, second.Context, "chapter 3 notes")
	assert.Len(t, c.History(model.SubjectMath), 4)
}

func TestImageOnlySend(t *testing.T) {
	c := New(okTutor("a triangle"))
	_, err := c.Send(context.Background(), model.SubjectMath, "", "data:image/png;base64,AAAA")
	require.NoError(t, err)
	assert.Len(t, c.History(model.SubjectMath), 2)
}

func TestSubjectIsolation(t *testing.T) {
	c := New(okTutor("ok"))
	ctx := context.Background()

	_, err := c.Send(ctx, model.SubjectPhysics, "p", "")
	require.NoError(t, err)
	physics := c.History(model.SubjectPhysics)

	for i := 0; i < 3; i++ {
		_, err := c.Send(ctx, model.SubjectMath, "m", "")
		require.NoError(t, err)
	}

	assert.Equal(t, physics, c.History(model.SubjectPhysics))
	assert.Len(t, c.History(model.SubjectMath), 6)
	assert.Equal(t, []model.Subject{model.SubjectMath, model.SubjectPhysics}, c.Subjects())
}

func TestAllSubjectsIncludesCatalogue(t *testing.T) {
	c := New(okTutor("ok"))
	assert.Equal(t, model.Subjects(), c.AllSubjects())

	_, err := c.Send(context.Background(), model.Subject("Economics"), "q", "")
	require.NoError(t, err)
	all := c.AllSubjects()
	require.Len(t, all, len(model.Subjects())+1)
	assert.Equal(t, model.Subject("Economics"), all[len(all)-1])
}

func TestHistoryIsACopy(t *testing.T) {
	c := New(okTutor("reply [[SUGGESTIONS: a | b]]"))
	_, err := c.Send(context.Background(), model.SubjectMath, "q", "")
	require.NoError(t, err)

	h := c.History(model.SubjectMath)
	h[0].Text = "mutated"
	h[1].Suggestions[0] = "mutated"

	fresh := c.History(model.SubjectMath)
	assert.Equal(t, "q", fresh[0].Text)
	assert.Equal(t, []string{"a", "b"}, fresh[1].Suggestions)
}

func TestBusyRejectsSecondSend(t *testing.T) {
	hold := make(chan struct{})
	started := make(chan struct{})
	c := New(tutorFunc(func(_ context.Context, in gateway.TutorInput, onText func(string)) gateway.Result[string] {
		if in.Prompt == "slow" {
			onText("partial")
			close(started)
			<-hold
			onText("partial and more")
			return gateway.Result[string]{Value: "partial and more", Outcome: gateway.OK}
		}
		onText("quick")
		return gateway.Result[string]{Value: "quick", Outcome: gateway.OK}
	}))
	ctx := context.Background()

	done := make(chan Reply)
	go func() {
		r, err := c.Send(ctx, model.SubjectMath, "slow", "")
		assert.NoError(t, err)
		done <- r
	}()
	<-started

	assert.Equal(t, StateStreaming, c.State(model.SubjectMath))
	_, err := c.Send(ctx, model.SubjectMath, "again", "")
	assert.ErrorIs(t, err, ErrBusy)
	assert.ErrorIs(t, c.Clear(ctx, model.SubjectMath), ErrBusy)

	// Other subjects are unaffected.
	r, err := c.Send(ctx, model.SubjectPhysics, "fast", "")
	require.NoError(t, err)
	assert.Equal(t, "quick", r.Message.Text)

	close(hold)
	r = <-done
	assert.Equal(t, "partial and more", r.Message.Text)
	assert.Len(t, c.History(model.SubjectMath), 2, "rejected send must not append")
	assert.Len(t, c.History(model.SubjectPhysics), 2)
}

func TestCancelStopsMutation(t *testing.T) {
	tutor := okTutor("first words", "first words and late text")
	tutor.hold = make(chan struct{})
	tutor.started = make(chan struct{})
	c := New(tutor)

	done := make(chan Reply)
	go func() {
		r, _ := c.Send(context.Background(), model.SubjectBiology, "cells?", "")
		done <- r
	}()
	<-tutor.started

	assert.True(t, c.Cancel(model.SubjectBiology))
	r := <-done

	assert.Equal(t, gateway.Canceled, r.Outcome)
	assert.ErrorIs(t, r.Err, context.Canceled)
	h := c.History(model.SubjectBiology)
	require.Len(t, h, 2)
	assert.Equal(t, "first words", h[1].Text, "text after cancel must not be applied")
	assert.Equal(t, StateIdle, c.State(model.SubjectBiology))
	assert.False(t, c.Cancel(model.SubjectBiology))
}

func TestCancelBeforeAnyTextDropsPlaceholder(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	c := New(tutorFunc(func(ctx context.Context, _ gateway.TutorInput, _ func(string)) gateway.Result[string] {
		cancel()
		return gateway.Result[string]{Outcome: gateway.Canceled, Err: ctx.Err()}
	}))

	r, err := c.Send(ctx, model.SubjectMath, "q", "")
	require.NoError(t, err)
	assert.Equal(t, gateway.Canceled, r.Outcome)
	h := c.History(model.SubjectMath)
	require.Len(t, h, 1)
	assert.Equal(t, model.RoleUser, h[0].Role)
}

type tutorFunc func(ctx context.Context, in gateway.TutorInput, onText func(string)) gateway.Result[string]

func (f tutorFunc) StreamTutorReply(ctx context.Context, in gateway.TutorInput, onText func(string)) gateway.Result[string] {
	return f(ctx, in, onText)
}

func TestFailureKeepsApology(t *testing.T) {
	g := gateway.New(llm.NewMockProvider(llm.MockResponse{
		Err: &llm.ErrProviderUnavailable{Err: errors.New("offline")},
	}), gateway.DefaultConfig())
	c := New(g)

	r, err := c.Send(context.Background(), model.SubjectICT, "what is RAM?", "")
	require.NoError(t, err)
	assert.Equal(t, gateway.Failed, r.Outcome)
	assert.Error(t, r.Err)
	h := c.History(model.SubjectICT)
	require.Len(t, h, 2)
	assert.Equal(t, gateway.ApologyText, h[1].Text)
	assert.Equal(t, StateIdle, c.State(model.SubjectICT))
}

func TestGatewayStreamAccumulatesInOrder(t *testing.T) {
	g := gateway.New(llm.NewMockProvider(llm.MockResponse{
		Chunks: []string{"x", "^2 is ", "x squared"},
	}), gateway.DefaultConfig())

	var texts []string
	c := New(g, WithUpdateFunc(func(_ model.Subject, h []model.ChatMessage) {
		texts = append(texts, h[len(h)-1].Text)
	}))
	_, err := c.Send(context.Background(), model.SubjectMath, "x^2?", "")
	require.NoError(t, err)

	assert.Equal(t, []string{"", "x", "x² is ", "x² is x squared", "x² is x squared"}, texts)
}

func TestRestoreAndSave(t *testing.T) {
	s, err := store.Open(filepath.Join(t.TempDir(), "conv.db"))
	require.NoError(t, err)
	t.Cleanup(func() { s.Close() })
	ctx := context.Background()

	saved := []model.ChatMessage{
		{ID: "1", Role: model.RoleUser, Text: "old question", Timestamp: time.Now().UnixMilli()},
		{ID: "2", Role: model.RoleModel, Text: "old answer", Timestamp: time.Now().UnixMilli()},
	}
	require.NoError(t, s.DocumentRepo().SaveConversation(ctx, "u1", model.SubjectChemistry, saved))

	c := New(okTutor("new answer"), WithStore(s.DocumentRepo(), "u1"))
	require.NoError(t, c.Restore(ctx))
	assert.Equal(t, saved, c.History(model.SubjectChemistry))

	_, err = c.Send(ctx, model.SubjectChemistry, "new question", "")
	require.NoError(t, err)

	got, err := s.DocumentRepo().LoadConversations(ctx, "u1")
	require.NoError(t, err)
	require.Len(t, got[model.SubjectChemistry], 4)
	assert.Equal(t, "new answer", got[model.SubjectChemistry][3].Text)

	require.NoError(t, c.Clear(ctx, model.SubjectChemistry))
	assert.Empty(t, c.History(model.SubjectChemistry))
	got, err = s.DocumentRepo().LoadConversations(ctx, "u1")
	require.NoError(t, err)
	assert.Empty(t, got[model.SubjectChemistry])
}

type failingDocs struct{ store.DocumentRepo }

func (failingDocs) SaveConversation(context.Context, string, model.Subject, []model.ChatMessage) error {
	return errors.New("disk full")
}

func TestSaveFailureIsNotSurfaced(t *testing.T) {
	c := New(okTutor("fine"), WithStore(failingDocs{}, "u1"))
	r, err := c.Send(context.Background(), model.SubjectGeneral, "hello", "")
	require.NoError(t, err)
	assert.Equal(t, gateway.OK, r.Outcome)
	assert.Equal(t, "u1", c.UserID())
}

func TestStateString(t *testing.T) {
	assert.Equal(t, "idle", StateIdle.String())
	assert.Equal(t, "awaiting-response", StateAwaiting.String())
	assert.Equal(t, "streaming", StateStreaming.String())
}
