package gateway

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
)

// Direction selects the translation languages.
type Direction int

const (
	BanglaToEnglish Direction = iota
	EnglishToBangla
)

// Label returns a human-readable name for the direction.
func (d Direction) Label() string {
	if d == EnglishToBangla {
		return "English to Bangla"
	}
	return "Bangla to English"
}

// ParseDirection accepts "bn-en", "en-bn" and the Label forms.
func ParseDirection(s string) (Direction, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "bn-en", "bn2en", "bangla to english", "":
		return BanglaToEnglish, nil
	case "en-bn", "en2bn", "english to bangla":
		return EnglishToBangla, nil
	}
	return BanglaToEnglish, fmt.Errorf("unknown translation direction %q", s)
}

// Translate produces a line-by-line translation with grammar notes. Blank
// input returns Empty without contacting the model.
func (g *Gateway) Translate(ctx context.Context, text string, dir Direction) Result[model.TranslationResult] {
	fallback := model.TranslationResult{Lines: []model.TranslatedLine{}}
	if strings.TrimSpace(text) == "" {
		return emptyResult(fallback)
	}

	callCtx, cancel := g.single(ctx, PurposeTranslate)
	defer cancel()

	resp, err := g.provider.Generate(callCtx, llm.Request{
		System:   translateSystemPrompt,
		Messages: []llm.Message{{Role: llm.RoleUser, Content: buildTranslateMessage(text, dir)}},
		Schema:   TranslationSchema,
	})
	if err != nil {
		return errResult(ctx, fallback, fmt.Errorf("translate: %w", err))
	}

	var out model.TranslationResult
	if err := json.Unmarshal(resp.Content, &out); err != nil {
		return errResult(ctx, fallback, fmt.Errorf("parse translation: %w", err))
	}
	if len(out.Lines) == 0 {
		return emptyResult(fallback)
	}
	for i := range out.Lines {
		if out.Lines[i].GrammarAnalysis == nil {
			out.Lines[i].GrammarAnalysis = []model.GrammarNote{}
		}
	}
	return okResult(out)
}
