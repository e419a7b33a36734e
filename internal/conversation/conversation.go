// Package conversation keeps the per-subject tutoring histories and drives
// one streamed exchange at a time per subject.
package conversation

import (
	"context"
	"errors"
	"fmt"
	"os"
	"slices"
	"strings"
	"sync"

	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/store"
)

var (
	// ErrEmptyMessage is returned when a send carries neither text nor image.
	ErrEmptyMessage = errors.New("message is empty")

	// ErrBusy is returned when the subject already has an exchange in flight.
	ErrBusy = errors.New("a reply is still in progress for this subject")
)

// State is the exchange state of one subject.
type State int

const (
	StateIdle      State = iota // No exchange in flight
	StateAwaiting               // Placeholder appended, no text yet
	StateStreaming              // Reply text arriving
)

func (s State) String() string {
	switch s {
	case StateAwaiting:
		return "awaiting-response"
	case StateStreaming:
		return "streaming"
	default:
		return "idle"
	}
}

// Tutor streams tutoring replies. *gateway.Gateway satisfies it.
type Tutor interface {
	StreamTutorReply(ctx context.Context, in gateway.TutorInput, onText func(string)) gateway.Result[string]
}

// UpdateFunc receives a copy of a subject's history after every change.
type UpdateFunc func(subject model.Subject, history []model.ChatMessage)

// Reply is the outcome of one exchange.
type Reply struct {
	Message model.ChatMessage
	Outcome gateway.Outcome
	Err     error
}

// Option configures a Controller.
type Option func(*Controller)

// WithStore persists histories for userID. Saves are best-effort.
func WithStore(docs store.DocumentRepo, userID string) Option {
	return func(c *Controller) {
		c.docs = docs
		c.userID = userID
	}
}

// WithUpdateFunc registers the updated-history callback.
func WithUpdateFunc(fn UpdateFunc) Option {
	return func(c *Controller) { c.Subscribe(fn) }
}

// WithContext attaches extra material (a document excerpt, say) to every
// turn.
func WithContext(text string) Option {
	return func(c *Controller) { c.extra = text }
}

type exchange struct {
	placeholderID string
	cancel        context.CancelFunc
}

// Controller owns the conversations of one user. It is safe for
// concurrent use; each subject runs at most one exchange at a time.
type Controller struct {
	tutor  Tutor
	docs   store.DocumentRepo
	userID string
	extra  string

	subMu     sync.Mutex
	subs      map[int]UpdateFunc
	nextSubID int

	mu        sync.Mutex
	histories map[model.Subject][]model.ChatMessage
	states    map[model.Subject]State
	inflight  map[model.Subject]*exchange
}

// New creates a Controller that asks tutor for replies.
func New(tutor Tutor, opts ...Option) *Controller {
	c := &Controller{
		tutor:     tutor,
		histories: make(map[model.Subject][]model.ChatMessage),
		states:    make(map[model.Subject]State),
		inflight:  make(map[model.Subject]*exchange),
		subs:      make(map[int]UpdateFunc),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// UserID returns the user whose conversations are held.
func (c *Controller) UserID() string { return c.userID }

// Restore loads saved histories from the store. Subjects with an exchange
// in flight keep their in-memory history.
func (c *Controller) Restore(ctx context.Context) error {
	if c.docs == nil {
		return nil
	}
	saved, err := c.docs.LoadConversations(ctx, c.userID)
	if err != nil {
		return fmt.Errorf("restore conversations: %w", err)
	}

	c.mu.Lock()
	defer c.mu.Unlock()
	for subject, msgs := range saved {
		if c.states[subject] != StateIdle {
			continue
		}
		c.histories[subject] = slices.Clone(msgs)
	}
	return nil
}

// History returns a copy of the subject's messages.
func (c *Controller) History(subject model.Subject) []model.ChatMessage {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.snapshot(subject)
}

// State returns the subject's exchange state.
func (c *Controller) State(subject model.Subject) State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.states[subject]
}

// Subjects lists the subjects that have any history, in catalogue order
// followed by custom subjects in name order.
func (c *Controller) Subjects() []model.Subject {
	c.mu.Lock()
	defer c.mu.Unlock()

	var out []model.Subject
	for _, s := range model.Subjects() {
		if len(c.histories[s]) > 0 {
			out = append(out, s)
		}
	}
	var custom []model.Subject
	for s, msgs := range c.histories {
		if len(msgs) > 0 && !slices.Contains(out, s) {
			custom = append(custom, s)
		}
	}
	slices.Sort(custom)
	return append(out, custom...)
}

// AllSubjects lists the catalogue followed by custom subjects that have
// history, in name order.
func (c *Controller) AllSubjects() []model.Subject {
	c.mu.Lock()
	defer c.mu.Unlock()

	out := model.Subjects()
	var custom []model.Subject
	for s, msgs := range c.histories {
		if len(msgs) > 0 && !slices.Contains(out, s) {
			custom = append(custom, s)
		}
	}
	slices.Sort(custom)
	return append(out, custom...)
}

// Send appends the user's turn and a placeholder for the reply, then
// streams the reply into the placeholder. It blocks until the exchange
// ends. Cancelling ctx, or calling Cancel for the subject, stops further
// changes to the history.
func (c *Controller) Send(ctx context.Context, subject model.Subject, text, image string) (Reply, error) {
	text = strings.TrimSpace(text)
	if text == "" && image == "" {
		return Reply{}, ErrEmptyMessage
	}

	c.mu.Lock()
	if c.states[subject] != StateIdle {
		c.mu.Unlock()
		return Reply{}, ErrBusy
	}
	prior := c.snapshot(subject)
	user := model.NewMessage(model.RoleUser, text, image)
	placeholder := model.NewMessage(model.RoleModel, "", "")
	c.histories[subject] = append(c.histories[subject], user, placeholder)

	exCtx, cancel := context.WithCancel(ctx)
	defer cancel()
	c.inflight[subject] = &exchange{placeholderID: placeholder.ID, cancel: cancel}
	c.states[subject] = StateAwaiting
	updated := c.snapshot(subject)
	c.mu.Unlock()
	c.notify(subject, updated)

	res := c.tutor.StreamTutorReply(exCtx, gateway.TutorInput{
		Prompt:  text,
		Context: c.turnContext(subject),
		History: prior,
		Image:   image,
	}, func(cumulative string) {
		c.mu.Lock()
		if exCtx.Err() != nil {
			c.mu.Unlock()
			return
		}
		c.states[subject] = StateStreaming
		c.setText(subject, placeholder.ID, cumulative)
		updated := c.snapshot(subject)
		c.mu.Unlock()
		c.notify(subject, updated)
	})

	c.mu.Lock()
	delete(c.inflight, subject)
	c.states[subject] = StateIdle

	var reply Reply
	if exCtx.Err() != nil || res.Outcome == gateway.Canceled {
		reply = c.finishCanceled(subject, placeholder.ID)
		reply.Outcome = gateway.Canceled
		reply.Err = res.Err
		if cause := context.Cause(exCtx); cause != nil {
			reply.Err = cause
		}
	} else {
		reply = c.finish(subject, placeholder.ID, res)
	}
	updated = c.snapshot(subject)
	c.mu.Unlock()

	c.notify(subject, updated)
	c.save(context.WithoutCancel(ctx), subject, updated)
	return reply, nil
}

// finish writes the final text and suggestions into the placeholder.
// Callers hold c.mu.
func (c *Controller) finish(subject model.Subject, id string, res gateway.Result[string]) Reply {
	i := c.indexOf(subject, id)
	if i < 0 {
		return Reply{Outcome: res.Outcome, Err: res.Err}
	}
	msg := &c.histories[subject][i]
	switch res.Outcome {
	case gateway.OK:
		msg.Text, msg.Suggestions = gateway.ParseSuggestions(res.Value)
	case gateway.Failed:
		msg.Text = gateway.ApologyText
	default:
		msg.Text = res.Value
	}
	return Reply{Message: *msg, Outcome: res.Outcome, Err: res.Err}
}

// finishCanceled keeps whatever text arrived before the cancellation. A
// placeholder that never received text is removed. Callers hold c.mu.
func (c *Controller) finishCanceled(subject model.Subject, id string) Reply {
	i := c.indexOf(subject, id)
	if i < 0 {
		return Reply{}
	}
	msg := c.histories[subject][i]
	if msg.Text == "" {
		c.histories[subject] = slices.Delete(c.histories[subject], i, i+1)
		return Reply{}
	}
	c.histories[subject][i].Text = gateway.VisibleText(msg.Text)
	return Reply{Message: c.histories[subject][i]}
}

// Cancel stops the subject's exchange, if any. It reports whether one was
// in flight.
func (c *Controller) Cancel(subject model.Subject) bool {
	c.mu.Lock()
	defer c.mu.Unlock()

	ex, ok := c.inflight[subject]
	if !ok {
		return false
	}
	ex.cancel()
	return true
}

// CancelAll stops every exchange in flight.
func (c *Controller) CancelAll() {
	c.mu.Lock()
	defer c.mu.Unlock()
	for _, ex := range c.inflight {
		ex.cancel()
	}
}

// Clear empties the subject's history. It fails with ErrBusy while an
// exchange is in flight.
func (c *Controller) Clear(ctx context.Context, subject model.Subject) error {
	c.mu.Lock()
	if c.states[subject] != StateIdle {
		c.mu.Unlock()
		return ErrBusy
	}
	delete(c.histories, subject)
	c.mu.Unlock()

	c.notify(subject, nil)
	c.save(ctx, subject, nil)
	return nil
}

func (c *Controller) turnContext(subject model.Subject) string {
	ctx := "Subject: " + string(subject)
	if c.extra != "" {
		ctx += "\n\nReference material:\n" + c.extra
	}
	return ctx
}

// setText replaces the placeholder's text, keeping its id and timestamp.
// Callers hold c.mu.
func (c *Controller) setText(subject model.Subject, id, text string) {
	if i := c.indexOf(subject, id); i >= 0 {
		c.histories[subject][i].Text = text
	}
}

func (c *Controller) indexOf(subject model.Subject, id string) int {
	h := c.histories[subject]
	for i := len(h) - 1; i >= 0; i-- {
		if h[i].ID == id {
			return i
		}
	}
	return -1
}

// snapshot copies a history, including each message's suggestions.
// Callers hold c.mu.
func (c *Controller) snapshot(subject model.Subject) []model.ChatMessage {
	h := c.histories[subject]
	out := make([]model.ChatMessage, len(h))
	for i, m := range h {
		m.Suggestions = slices.Clone(m.Suggestions)
		out[i] = m
	}
	return out
}

// Subscribe adds an updated-history callback and returns a function that
// removes it. Callbacks run on the goroutine that changed the history.
func (c *Controller) Subscribe(fn UpdateFunc) (unsubscribe func()) {
	c.subMu.Lock()
	defer c.subMu.Unlock()
	id := c.nextSubID
	c.nextSubID++
	c.subs[id] = fn
	return func() {
		c.subMu.Lock()
		defer c.subMu.Unlock()
		delete(c.subs, id)
	}
}

func (c *Controller) notify(subject model.Subject, history []model.ChatMessage) {
	c.subMu.Lock()
	fns := make([]UpdateFunc, 0, len(c.subs))
	for _, fn := range c.subs {
		fns = append(fns, fn)
	}
	c.subMu.Unlock()
	for _, fn := range fns {
		fn(subject, history)
	}
}

func (c *Controller) save(ctx context.Context, subject model.Subject, history []model.ChatMessage) {
	if c.docs == nil {
		return
	}
	if err := c.docs.SaveConversation(ctx, c.userID, subject, history); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save %s conversation: %v\n", subject, err)
	}
}
