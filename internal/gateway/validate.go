package gateway

import (
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/model"
)

// QuestionValidator checks a generated question.
// Implementations should be stateless and safe for concurrent use.
type QuestionValidator interface {
	// Name returns a short identifier used in error messages.
	Name() string

	// Validate returns nil if q passes.
	Validate(q *model.MCQQuestion) *ValidationError
}

// ValidationError describes why a question was dropped.
type ValidationError struct {
	Validator string
	Message   string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("validator %q: %s", e.Validator, e.Message)
}

// StructuralValidator checks that text fields are present and within
// length limits.
type StructuralValidator struct{}

func (v *StructuralValidator) Name() string { return "structural" }

func (v *StructuralValidator) Validate(q *model.MCQQuestion) *ValidationError {
	switch {
	case strings.TrimSpace(q.Question) == "":
		return &ValidationError{Validator: v.Name(), Message: "question is empty"}
	case len(q.Question) > 1000:
		return &ValidationError{Validator: v.Name(), Message: "question exceeds 1000 bytes"}
	case strings.TrimSpace(q.Topic) == "":
		return &ValidationError{Validator: v.Name(), Message: "topic is empty"}
	case len(q.Explanation) > 2000:
		return &ValidationError{Validator: v.Name(), Message: "explanation exceeds 2000 bytes"}
	}
	return nil
}

// OptionCountValidator requires at least four distinct, non-empty options.
type OptionCountValidator struct{}

func (v *OptionCountValidator) Name() string { return "option-count" }

func (v *OptionCountValidator) Validate(q *model.MCQQuestion) *ValidationError {
	if len(q.Options) < 4 {
		return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("need at least 4 options, got %d", len(q.Options))}
	}
	seen := make(map[string]bool, len(q.Options))
	for i, opt := range q.Options {
		key := strings.ToLower(strings.TrimSpace(opt))
		if key == "" {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("option %d is empty", i)}
		}
		if seen[key] {
			return &ValidationError{Validator: v.Name(), Message: fmt.Sprintf("option %q is repeated", opt)}
		}
		seen[key] = true
	}
	return nil
}

// AnswerIndexValidator enforces 0 <= correctAnswer < len(options).
type AnswerIndexValidator struct{}

func (v *AnswerIndexValidator) Name() string { return "answer-index" }

func (v *AnswerIndexValidator) Validate(q *model.MCQQuestion) *ValidationError {
	if q.CorrectAnswer < 0 || q.CorrectAnswer >= len(q.Options) {
		return &ValidationError{
			Validator: v.Name(),
			Message:   fmt.Sprintf("correctAnswer %d out of range for %d options", q.CorrectAnswer, len(q.Options)),
		}
	}
	return nil
}

// validateQuestion runs the chain and returns the first failure.
func validateQuestion(q *model.MCQQuestion, chain []QuestionValidator) *ValidationError {
	for _, v := range chain {
		if verr := v.Validate(q); verr != nil {
			return verr
		}
	}
	return nil
}
