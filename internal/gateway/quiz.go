package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/google/uuid"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
)

type quizOutput struct {
	Questions []model.MCQQuestion `json:"questions"`
}

// GenerateQuiz asks for a set of multiple-choice questions on subject.
// Questions failing the validator chain, or repeating an earlier
// question, are dropped. The set is capped at Config.QuizSize.
func (g *Gateway) GenerateQuiz(ctx context.Context, subject model.Subject) Result[[]model.MCQQuestion] {
	fallback := []model.MCQQuestion{}

	callCtx, cancel := g.single(ctx, PurposeQuizGen)
	defer cancel()

	resp, err := g.provider.Generate(callCtx, llm.Request{
		System:      quizSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildQuizMessage(subject, g.config.QuizSize)}},
		Schema:      QuizSchema,
		MaxTokens:   g.config.QuizMaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return errResult(ctx, fallback, fmt.Errorf("generate quiz: %w", err))
	}

	var raw quizOutput
	if err := json.Unmarshal(resp.Content, &raw); err != nil {
		return errResult(ctx, fallback, fmt.Errorf("parse quiz: %w", err))
	}

	seen := make(map[string]bool)
	out := make([]model.MCQQuestion, 0, len(raw.Questions))
	for _, q := range raw.Questions {
		q.Question = TransformMath(strings.TrimSpace(q.Question))
		q.Topic = strings.TrimSpace(q.Topic)
		for i := range q.Options {
			q.Options[i] = TransformMath(strings.TrimSpace(q.Options[i]))
		}
		q.Explanation = TransformMath(q.Explanation)

		if verr := validateQuestion(&q, g.config.Validators); verr != nil {
			fmt.Fprintf(os.Stderr, "warning: dropped quiz question: %v\n", verr)
			continue
		}
		key := strings.ToLower(q.Question)
		if seen[key] {
			continue
		}
		seen[key] = true

		if q.ID == "" {
			q.ID = uuid.NewString()
		}
		out = append(out, q)
		if len(out) == g.config.QuizSize {
			break
		}
	}

	if len(out) == 0 {
		return emptyResult(fallback)
	}
	return okResult(out)
}
