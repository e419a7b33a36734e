package gateway

import (
	"context"
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
)

// FetchNews retrieves a search-grounded news digest for locale. Sources are
// de-duplicated by URI in first-seen order.
func (g *Gateway) FetchNews(ctx context.Context, locale string) Result[model.NewsResult] {
	fallback := model.NewsResult{Text: NewsErrorText, Sources: []model.Citation{}}

	callCtx, cancel := g.single(ctx, PurposeNews)
	defer cancel()

	resp, err := g.provider.Generate(callCtx, llm.Request{
		Messages:  []llm.Message{{Role: llm.RoleUser, Content: buildNewsMessage(locale)}},
		Grounding: true,
	})
	if err != nil {
		return errResult(ctx, fallback, fmt.Errorf("fetch news: %w", err))
	}

	text := strings.TrimSpace(TransformMath(resp.Text()))
	if text == "" {
		return emptyResult(fallback)
	}
	return okResult(model.NewsResult{Text: text, Sources: dedupeCitations(resp.Citations)})
}

func dedupeCitations(in []llm.Citation) []model.Citation {
	seen := make(map[string]bool, len(in))
	out := make([]model.Citation, 0, len(in))
	for _, c := range in {
		if c.URI == "" || seen[c.URI] {
			continue
		}
		seen[c.URI] = true
		title := c.Title
		if title == "" {
			title = c.URI
		}
		out = append(out, model.Citation{Title: title, URI: c.URI})
	}
	return out
}
