// Package quiz tracks a multiple-choice quiz run: which question is shown,
// the learner's choice, the score and the topics flagged for review.
package quiz

import (
	"context"
	"slices"
	"sync"

	"github.com/google/uuid"

	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
)

// Phase is the current phase of a quiz session.
type Phase int

const (
	PhaseIdle     Phase = iota // No set requested yet
	PhaseLoading               // Waiting for the question set
	PhaseReady                 // Showing a question, no answer yet
	PhaseAnswered              // Answer chosen, showing feedback
	PhaseFinished              // Last question answered and finished
	PhaseEmpty                 // The set came back empty
)

func (p Phase) String() string {
	switch p {
	case PhaseIdle:
		return "idle"
	case PhaseLoading:
		return "loading"
	case PhaseReady:
		return "ready"
	case PhaseAnswered:
		return "answered"
	case PhaseFinished:
		return "finished"
	case PhaseEmpty:
		return "empty"
	default:
		return "unknown"
	}
}

// MarshalText encodes the phase by name.
func (p Phase) MarshalText() ([]byte, error) {
	return []byte(p.String()), nil
}

// Source produces question sets. *gateway.Gateway satisfies it.
type Source interface {
	GenerateQuiz(ctx context.Context, subject model.Subject) gateway.Result[[]model.MCQQuestion]
}

// Summary reports the outcome of a run.
type Summary struct {
	Subject       model.Subject `json:"subject"`
	Score         int           `json:"score"`
	Total         int           `json:"total"`
	Answered      int           `json:"answered"`
	FlaggedTopics []string      `json:"flaggedTopics"`
}

// Snapshot is a read-only copy of the session, safe to hand to views.
type Snapshot struct {
	ID             string              `json:"id"`
	Subject        model.Subject       `json:"subject"`
	Phase          Phase               `json:"phase"`
	Questions      []model.MCQQuestion `json:"questions"`
	CurrentIndex   int                 `json:"currentIndex"`
	SelectedAnswer *int                `json:"selectedAnswer"`
	Score          int                 `json:"score"`
	FlaggedTopics  []string            `json:"flaggedTopics"`
	Outcome        string              `json:"outcome,omitempty"`
}

// Session is one learner's quiz run. All methods are safe for concurrent use.
type Session struct {
	mu sync.Mutex

	id        string
	subject   model.Subject
	phase     Phase
	questions []model.MCQQuestion
	index     int
	selected  *int
	score     int
	answered  int
	flagged   []string
	outcome   gateway.Outcome
	gen       int
}

// NewSession returns an idle session.
func NewSession() *Session {
	return &Session{id: uuid.NewString()}
}

// ID returns the session identifier.
func (s *Session) ID() string { return s.id }

// FetchSet requests a new question set for subject. Any progress on the
// current set is discarded as soon as the request starts. If another
// FetchSet starts before this one returns, this one's result is dropped.
func (s *Session) FetchSet(ctx context.Context, src Source, subject model.Subject) gateway.Outcome {
	s.mu.Lock()
	s.gen++
	gen := s.gen
	s.subject = subject
	s.phase = PhaseLoading
	s.questions = nil
	s.reset()
	s.flagged = nil
	s.mu.Unlock()

	res := src.GenerateQuiz(ctx, subject)

	s.mu.Lock()
	defer s.mu.Unlock()
	if gen != s.gen {
		return res.Outcome
	}
	s.load(res.Value, res.Outcome)
	return res.Outcome
}

// Load installs a question set without asking a source, discarding any
// current progress.
func (s *Session) Load(subject model.Subject, questions []model.MCQQuestion) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.gen++
	s.subject = subject
	s.flagged = nil
	s.load(slices.Clone(questions), gateway.OK)
}

func (s *Session) load(questions []model.MCQQuestion, outcome gateway.Outcome) {
	s.questions = questions
	s.outcome = outcome
	s.reset()
	if len(questions) == 0 {
		s.phase = PhaseEmpty
		return
	}
	s.phase = PhaseReady
}

func (s *Session) reset() {
	s.index = 0
	s.selected = nil
	s.score = 0
	s.answered = 0
}

// SelectAnswer records the learner's choice for the current question. It
// is ignored unless the session is ready and no answer has been chosen
// yet, so the first choice is final. It reports whether the choice was
// recorded.
func (s *Session) SelectAnswer(choice int) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseReady || s.selected != nil {
		return false
	}
	q := s.questions[s.index]
	if choice < 0 || choice >= len(q.Options) {
		return false
	}
	s.selected = &choice
	s.answered++
	if choice == q.CorrectAnswer {
		s.score++
	}
	s.phase = PhaseAnswered
	return true
}

// FlagTopic adds topic to the flagged set. Repeats and blank topics are
// ignored; insertion order is kept.
func (s *Session) FlagTopic(topic string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if topic == "" || slices.Contains(s.flagged, topic) {
		return
	}
	s.flagged = append(s.flagged, topic)
}

// Advance moves to the next question. It is only valid after an answer
// and when a next question exists.
func (s *Session) Advance() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAnswered || s.index >= len(s.questions)-1 {
		return false
	}
	s.index++
	s.selected = nil
	s.phase = PhaseReady
	return true
}

// Finish ends the run. It is only valid after answering the last question.
func (s *Session) Finish() bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.phase != PhaseAnswered || s.index != len(s.questions)-1 {
		return false
	}
	s.phase = PhaseFinished
	return true
}

// Phase returns the current phase.
func (s *Session) Phase() Phase {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.phase
}

// Current returns the question on screen and whether there is one.
func (s *Session) Current() (model.MCQQuestion, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if s.index >= len(s.questions) {
		return model.MCQQuestion{}, false
	}
	return s.questions[s.index], true
}

// Selected returns the chosen option for the current question, or -1.
func (s *Session) Selected() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.selected == nil {
		return -1
	}
	return *s.selected
}

// Summary reports the score so far.
func (s *Session) Summary() Summary {
	s.mu.Lock()
	defer s.mu.Unlock()
	return Summary{
		Subject:       s.subject,
		Score:         s.score,
		Total:         len(s.questions),
		Answered:      s.answered,
		FlaggedTopics: append([]string{}, s.flagged...),
	}
}

// Snapshot copies the session state.
func (s *Session) Snapshot() Snapshot {
	s.mu.Lock()
	defer s.mu.Unlock()

	snap := Snapshot{
		ID:            s.id,
		Subject:       s.subject,
		Phase:         s.phase,
		Questions:     slices.Clone(s.questions),
		CurrentIndex:  s.index,
		Score:         s.score,
		FlaggedTopics: append([]string{}, s.flagged...),
	}
	if s.selected != nil {
		v := *s.selected
		snap.SelectedAnswer = &v
	}
	if s.phase != PhaseIdle && s.phase != PhaseLoading {
		snap.Outcome = s.outcome.String()
	}
	return snap
}
