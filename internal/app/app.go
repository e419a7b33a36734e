package app

import (
	"fmt"
	"os"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/screens/dashboard"
	"github.com/abhisek/tutorly/internal/screens/history"
	"github.com/abhisek/tutorly/internal/screens/news"
	"github.com/abhisek/tutorly/internal/screens/planner"
	"github.com/abhisek/tutorly/internal/screens/quiz"
	"github.com/abhisek/tutorly/internal/screens/settings"
	"github.com/abhisek/tutorly/internal/screens/setup"
	"github.com/abhisek/tutorly/internal/screens/translator"
	"github.com/abhisek/tutorly/internal/screens/tutor"
	"github.com/abhisek/tutorly/internal/screens/welcome"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

// AppModel is the root Bubble Tea model.
type AppModel struct {
	env    *screen.Env
	router *router.Router
	width  int
	height int
}

// Option configures the root model.
type Option func(*options)

type options struct {
	splash bool
}

// WithSplash shows the welcome splash before the dashboard.
func WithSplash() Option {
	return func(o *options) { o.splash = true }
}

// New creates the root model. Without a configured model the setup screen
// is the only screen; it writes the key to envPath.
func New(env *screen.Env, envPath string, opts ...Option) AppModel {
	var o options
	for _, opt := range opts {
		opt(&o)
	}
	theme.Use(theme.ForName(string(env.State.Theme())))

	var root screen.Screen
	switch {
	case !env.State.Configured():
		root = setup.New(envPath)
	case o.splash:
		root = welcome.New(func() screen.Screen { return dashboard.New(env) })
	default:
		root = dashboard.New(env)
	}
	return AppModel{
		env:    env,
		router: router.New(root),
	}
}

// screenFor builds the screen for a view.
func (m AppModel) screenFor(v appstate.View) screen.Screen {
	switch v {
	case appstate.ViewTutor:
		return tutor.New(m.env)
	case appstate.ViewTranslator:
		return translator.New(m.env)
	case appstate.ViewNews:
		return news.New(m.env)
	case appstate.ViewQuiz:
		return quiz.New(m.env)
	case appstate.ViewHistory:
		return history.New(m.env)
	case appstate.ViewPlanner:
		return planner.New(m.env)
	case appstate.ViewSettings:
		return settings.New(m.env)
	}
	return nil
}

func (m AppModel) Init() tea.Cmd {
	return m.router.Active().Init()
}

func (m AppModel) Update(msg tea.Msg) (tea.Model, tea.Cmd) {
	switch msg := msg.(type) {
	case tea.WindowSizeMsg:
		m.width = msg.Width
		m.height = msg.Height
		return m, nil

	case router.NavigateMsg:
		return m, m.navigate(msg.View)

	case tea.KeyPressMsg:
		switch msg.String() {
		case "ctrl+c":
			m.shutdown()
			return m, tea.Quit
		case "esc":
			if h, ok := m.router.Active().(screen.EscapeHandler); ok && h.HandlesEscape() {
				break
			}
			if m.router.Depth() > 1 {
				return m, m.navigate(appstate.ViewDashboard)
			}
			return m, nil
		}
	}

	cmd := m.router.Update(msg)
	return m, cmd
}

// navigate opens v when the state allows it. Views sit directly above the
// dashboard, so the stack is never deeper than two.
func (m AppModel) navigate(v appstate.View) tea.Cmd {
	if !m.env.State.Navigate(v) {
		return nil
	}
	if v == appstate.ViewDashboard {
		m.router.PopToRoot()
		return nil
	}
	s := m.screenFor(v)
	if s == nil {
		return nil
	}
	if m.router.Depth() > 1 {
		return m.router.Replace(s)
	}
	return m.router.Push(s)
}

// shutdown stops streaming replies and releases screen subscriptions.
func (m AppModel) shutdown() {
	if m.env.Chat != nil {
		m.env.Chat.CancelAll()
	}
	m.router.PopToRoot()
}

func (m AppModel) View() tea.View {
	v := tea.NewView("")
	v.AltScreen = true

	if m.width == 0 || m.height == 0 {
		return v
	}

	if layout.IsTooSmall(m.width, m.height) {
		v.SetContent(layout.RenderMinSizeMessage(m.width, m.height))
		return v
	}

	active := m.router.Active()
	title := ""
	if active != nil {
		title = active.Title()
	}

	h := layout.Header{Title: title}
	if m.env.State.Configured() {
		h.Subject = string(m.env.State.Subject())
		h.Locale = string(m.env.State.Locale())
		if m.env.Chat != nil && m.env.Chat.State(m.env.State.Subject()) != conversation.StateIdle {
			h.Status = "replying…"
		}
	}
	header := layout.RenderHeader(h, m.width)

	var footerHints []layout.KeyHint
	if hp, ok := active.(screen.KeyHintProvider); ok {
		footerHints = hp.KeyHints()
	} else if m.router.Depth() > 1 {
		footerHints = []layout.KeyHint{
			{Key: "Esc", Description: "Back"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	} else {
		footerHints = []layout.KeyHint{
			{Key: "↑↓", Description: "Navigate"},
			{Key: "Enter", Description: "Select"},
			{Key: "Ctrl+C", Description: "Quit"},
		}
	}

	footer := layout.RenderFooter(footerHints, m.width)

	headerHeight := lipgloss.Height(header)
	footerHeight := lipgloss.Height(footer)
	contentHeight := m.height - headerHeight - footerHeight
	if contentHeight < 0 {
		contentHeight = 0
	}

	content := m.router.View(m.width, contentHeight)
	frame := layout.RenderFrame(header, content, footer, m.width, m.height)

	v.SetContent(frame)
	return v
}

// Run starts the Bubble Tea program.
func Run(env *screen.Env, envPath string) error {
	m := New(env, envPath, WithSplash())
	p := tea.NewProgram(m)
	_, err := p.Run()
	m.shutdown()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error running program:", err)
		return err
	}
	return nil
}
