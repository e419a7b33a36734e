// Package gateway turns the five tutoring tasks into requests for the
// language model and normalizes every response into a Result.
package gateway

import (
	"context"
	"time"

	"github.com/abhisek/tutorly/internal/llm"
)

// Purpose labels recorded with every LLM request event.
const (
	PurposeTutor     = "tutor"
	PurposeTranslate = "translate"
	PurposeQuizGen   = "quiz-gen"
	PurposeStudyPlan = "study-plan"
	PurposeNews      = "news"
)

// Fallback texts shown when the model cannot be reached.
const (
	ApologyText   = "Sorry, I couldn't reach the tutor right now. Please check your connection and try again."
	NewsErrorText = "Could not load the latest news right now. Please try again later."
)

// Config controls request shaping for each operation.
type Config struct {
	// Timeout bounds every single-shot operation. Streams are bounded by
	// the caller's context only.
	Timeout time.Duration

	// QuizSize is the number of questions requested per quiz.
	QuizSize int

	// Validators run in order on every generated question; the first
	// failure drops the question.
	Validators []QuestionValidator

	TutorMaxTokens int
	QuizMaxTokens  int
	PlanMaxTokens  int
	Temperature    float64
}

// DefaultConfig returns the standard validator chain and limits.
func DefaultConfig() Config {
	return Config{
		Timeout:  60 * time.Second,
		QuizSize: 5,
		Validators: []QuestionValidator{
			&StructuralValidator{},
			&OptionCountValidator{},
			&AnswerIndexValidator{},
		},
		TutorMaxTokens: 2048,
		QuizMaxTokens:  2048,
		PlanMaxTokens:  1024,
		Temperature:    0.7,
	}
}

// Gateway performs exactly one model exchange per operation.
type Gateway struct {
	provider llm.Provider
	config   Config
}

// New creates a Gateway over provider.
func New(provider llm.Provider, cfg Config) *Gateway {
	if cfg.QuizSize <= 0 {
		cfg.QuizSize = 5
	}
	return &Gateway{provider: provider, config: cfg}
}

// ModelID reports the model behind the gateway.
func (g *Gateway) ModelID() string {
	return g.provider.ModelID()
}

// single derives the context for a single-shot call.
func (g *Gateway) single(ctx context.Context, purpose string) (context.Context, context.CancelFunc) {
	ctx = llm.WithPurpose(ctx, purpose)
	if g.config.Timeout > 0 {
		return context.WithTimeout(ctx, g.config.Timeout)
	}
	return context.WithCancel(ctx)
}
