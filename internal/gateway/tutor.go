package gateway

import (
	"context"
	"encoding/base64"
	"fmt"
	"strings"

	"github.com/abhisek/tutorly/internal/llm"
	"github.com/abhisek/tutorly/internal/model"
)

// TutorInput is one tutoring turn.
type TutorInput struct {
	// Prompt is the student's question.
	Prompt string
	// Context is extra material (subject, document excerpt) sent with the
	// question.
	Context string
	// History holds prior turns in chronological order. Empty messages are
	// skipped.
	History []model.ChatMessage
	// Image is an optional data URI ("data:image/png;base64,...").
	Image string
}

// StreamTutorReply streams the tutor's answer. onText receives the whole
// transformed reply so far on every chunk, so each call supersedes the
// previous one. On failure onText is called exactly once with ApologyText
// and the value is empty. On cancellation onText is not called again.
func (g *Gateway) StreamTutorReply(ctx context.Context, in TutorInput, onText func(string)) Result[string] {
	streamCtx := llm.WithPurpose(ctx, PurposeTutor)

	req, err := g.tutorRequest(in)
	if err != nil {
		onText(ApologyText)
		return Result[string]{Outcome: Failed, Err: err}
	}

	var acc strings.Builder
	resp, err := g.provider.GenerateStream(streamCtx, req, func(delta string) {
		if ctx.Err() != nil {
			return
		}
		acc.WriteString(delta)
		onText(TransformMath(acc.String()))
	})
	if err != nil {
		res := errResult(ctx, "", err)
		if res.Outcome == Failed {
			onText(ApologyText)
		}
		return res
	}
	if ctx.Err() != nil {
		return Result[string]{Outcome: Canceled, Err: ctx.Err()}
	}

	// Providers that deliver the whole answer without deltas still
	// produce exactly one callback.
	if acc.Len() == 0 && resp != nil && resp.Text() != "" {
		acc.WriteString(resp.Text())
		onText(TransformMath(acc.String()))
	}

	final := TransformMath(acc.String())
	if strings.TrimSpace(final) == "" {
		return emptyResult("")
	}
	return okResult(final)
}

func (g *Gateway) tutorRequest(in TutorInput) (llm.Request, error) {
	msgs := make([]llm.Message, 0, len(in.History)+1)
	for _, m := range in.History {
		if strings.TrimSpace(m.Text) == "" {
			continue
		}
		role := llm.RoleUser
		if m.Role == model.RoleModel {
			role = llm.RoleAssistant
		}
		msgs = append(msgs, llm.Message{Role: role, Content: m.Text})
	}

	turn := llm.Message{Role: llm.RoleUser, Content: buildTutorTurn(in)}
	if in.Image != "" {
		img, err := ParseDataURI(in.Image)
		if err != nil {
			return llm.Request{}, err
		}
		turn.Images = []llm.Image{img}
	}
	msgs = append(msgs, turn)

	return llm.Request{
		System:      tutorSystemPrompt,
		Messages:    msgs,
		MaxTokens:   g.config.TutorMaxTokens,
		Temperature: g.config.Temperature,
	}, nil
}

// ParseDataURI decodes a base64 data URI into an inline image.
func ParseDataURI(uri string) (llm.Image, error) {
	rest, ok := strings.CutPrefix(uri, "data:")
	if !ok {
		return llm.Image{}, fmt.Errorf("image is not a data URI")
	}
	meta, payload, ok := strings.Cut(rest, ",")
	if !ok {
		return llm.Image{}, fmt.Errorf("data URI has no payload")
	}
	mime, isBase64 := strings.CutSuffix(meta, ";base64")
	if !isBase64 {
		return llm.Image{}, fmt.Errorf("data URI must be base64 encoded")
	}
	if mime == "" {
		mime = "application/octet-stream"
	}
	data, err := base64.StdEncoding.DecodeString(payload)
	if err != nil {
		return llm.Image{}, fmt.Errorf("decode data URI: %w", err)
	}
	return llm.Image{MIMEType: mime, Data: data}, nil
}
