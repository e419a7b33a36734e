package router

import (
	"testing"

	tea "charm.land/bubbletea/v2"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/screen"
)

// stubScreen is a minimal screen for testing.
type stubScreen struct {
	title   string
	initRan bool
}

func (s *stubScreen) Init() tea.Cmd {
	s.initRan = true
	return nil
}
func (s *stubScreen) Update(tea.Msg) (screen.Screen, tea.Cmd) { return s, nil }
func (s *stubScreen) View(int, int) string                    { return s.title }
func (s *stubScreen) Title() string                           { return s.title }

// closingScreen records Close calls.
type closingScreen struct {
	stubScreen
	closed int
}

func (s *closingScreen) Close() { s.closed++ }

func TestPush(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Push(s2)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "second" {
		t.Errorf("expected active 'second', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on pushed screen")
	}
}

func TestPop(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Push(s2)
	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "first" {
		t.Errorf("expected active 'first', got %q", r.Active().Title())
	}
}

func TestPopNoopAtBottom(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	r.Pop()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after pop at bottom, got %d", r.Depth())
	}
}

func TestReplace(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Replace(s2)

	if r.Depth() != 1 {
		t.Errorf("expected depth 1 after replace, got %d", r.Depth())
	}
	if r.Active().Title() != "second" {
		t.Errorf("expected active 'second', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run on replaced screen")
	}
}

func TestReplaceScreenMsg(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Update(ReplaceScreenMsg{Screen: s2})

	if r.Active().Title() != "second" {
		t.Errorf("expected active 'second', got %q", r.Active().Title())
	}
	if !s2.initRan {
		t.Error("expected Init() to run via ReplaceScreenMsg")
	}
}

func TestReplacePreservesStackDepth(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	s2 := &stubScreen{title: "second"}
	r.Push(s2)

	s3 := &stubScreen{title: "third"}
	r.Replace(s3)

	if r.Depth() != 2 {
		t.Errorf("expected depth 2, got %d", r.Depth())
	}
	if r.Active().Title() != "third" {
		t.Errorf("expected active 'third', got %q", r.Active().Title())
	}
}

func TestPopToRoot(t *testing.T) {
	r := New(&stubScreen{title: "dashboard"})
	r.Push(&stubScreen{title: "tutor"})
	r.Push(&stubScreen{title: "quiz"})

	r.PopToRoot()

	if r.Depth() != 1 {
		t.Errorf("expected depth 1, got %d", r.Depth())
	}
	if r.Active().Title() != "dashboard" {
		t.Errorf("expected active 'dashboard', got %q", r.Active().Title())
	}
}

func TestNavigateCmd(t *testing.T) {
	msg := Navigate(appstate.ViewQuiz)()
	nav, ok := msg.(NavigateMsg)
	if !ok {
		t.Fatalf("expected NavigateMsg, got %T", msg)
	}
	if nav.View != appstate.ViewQuiz {
		t.Errorf("expected quiz view, got %v", nav.View)
	}
}

func TestNavigateMsgGoesToActiveScreen(t *testing.T) {
	s1 := &stubScreen{title: "first"}
	r := New(s1)

	r.Update(NavigateMsg{View: appstate.ViewNews})

	if r.Depth() != 1 {
		t.Errorf("router must not act on NavigateMsg itself, depth %d", r.Depth())
	}
}

func TestRemovedScreensAreClosed(t *testing.T) {
	r := New(&stubScreen{title: "dashboard"})
	popped := &closingScreen{stubScreen: stubScreen{title: "tutor"}}
	replaced := &closingScreen{stubScreen: stubScreen{title: "news"}}

	r.Push(popped)
	r.Pop()
	if popped.closed != 1 {
		t.Errorf("expected popped screen closed once, got %d", popped.closed)
	}

	r.Push(replaced)
	r.Replace(&stubScreen{title: "quiz"})
	if replaced.closed != 1 {
		t.Errorf("expected replaced screen closed once, got %d", replaced.closed)
	}
}
