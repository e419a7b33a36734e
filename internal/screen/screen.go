package screen

import (
	"context"
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/ui/layout"
)

// Screen defines the interface for all application screens.
type Screen interface {
	// Init returns an initial command when the screen is first created.
	Init() tea.Cmd

	// Update handles messages and returns updated screen + command.
	Update(msg tea.Msg) (Screen, tea.Cmd)

	// View renders the screen content (excluding header/footer).
	View(width, height int) string

	// Title returns the screen name for the header.
	Title() string
}

// KeyHintProvider is an optional interface that screens can implement
// to provide custom footer key hints.
type KeyHintProvider interface {
	KeyHints() []layout.KeyHint
}

// EscapeHandler is implemented by screens that consume Esc themselves
// while busy, e.g. to cancel a streaming reply. When HandlesEscape reports
// true the root forwards Esc instead of going back.
type EscapeHandler interface {
	HandlesEscape() bool
}

// Closer is implemented by screens holding subscriptions or goroutines.
// The router calls Close when the screen leaves the stack.
type Closer interface {
	Close()
}

// Env carries the shared application state and services into screens.
// Docs and Quizzes may be nil.
type Env struct {
	State   *appstate.State
	Gateway *gateway.Gateway
	Chat    *conversation.Controller
	Docs    store.DocumentRepo
	Quizzes store.QuizResultRepo
	UserID  string
}

// SaveProfile persists the current preferences. Failures are reported on
// stderr and otherwise ignored.
func (e *Env) SaveProfile(ctx context.Context) {
	if e.Docs == nil {
		return
	}
	if err := e.Docs.SaveProfile(ctx, e.State.Profile(e.UserID)); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save profile: %v\n", err)
	}
}
