package gateway

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
)

// GenerateStudyPlan builds a plan around the given weak topics.
func (g *Gateway) GenerateStudyPlan(ctx context.Context, topics []string) Result[model.StudyPlan] {
	fallback := model.StudyPlan{DailyGoals: []string{}, WeakTopics: []string{}}

	callCtx, cancel := g.single(ctx, PurposeStudyPlan)
	defer cancel()

	resp, err := g.provider.Generate(callCtx, llm.Request{
		System:      planSystemPrompt,
		Messages:    []llm.Message{{Role: llm.RoleUser, Content: buildPlanMessage(topics)}},
		Schema:      StudyPlanSchema,
		MaxTokens:   g.config.PlanMaxTokens,
		Temperature: g.config.Temperature,
	})
	if err != nil {
		return errResult(ctx, fallback, fmt.Errorf("generate study plan: %w", err))
	}

	var plan model.StudyPlan
	if err := json.Unmarshal(resp.Content, &plan); err != nil {
		return errResult(ctx, fallback, fmt.Errorf("parse study plan: %w", err))
	}
	if plan.IsZero() {
		return emptyResult(fallback)
	}
	if plan.DailyGoals == nil {
		plan.DailyGoals = []string{}
	}
	if plan.WeakTopics == nil {
		plan.WeakTopics = []string{}
	}
	return okResult(plan)
}
