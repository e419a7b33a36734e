// Package news shows a grounded summary of current education news.
package news

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

type newsMsg struct {
	Seq    int
	Result gateway.Result[model.NewsResult]
}

// NewsScreen implements screen.Screen.
type NewsScreen struct {
	env     *screen.Env
	spinner spinner.Model
	locale  string
	seq     int
	loading bool
	result  gateway.Result[model.NewsResult]
	scroll  components.Scroll
}

var _ screen.Screen = (*NewsScreen)(nil)
var _ screen.KeyHintProvider = (*NewsScreen)(nil)

// New creates the news screen in the learner's language.
func New(env *screen.Env) *NewsScreen {
	return &NewsScreen{
		env:     env,
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
		locale:  env.State.Locale(),
	}
}

func (s *NewsScreen) Init() tea.Cmd {
	return s.fetch()
}

func (s *NewsScreen) Title() string {
	return "News"
}

func (s *NewsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "r", Description: "Refresh"},
		{Key: "l", Description: "Language"},
		{Key: "↑↓", Description: "Scroll"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *NewsScreen) fetch() tea.Cmd {
	s.seq++
	s.loading = true
	seq, locale, gw := s.seq, s.locale, s.env.Gateway
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		return newsMsg{Seq: seq, Result: gw.FetchNews(context.Background(), locale)}
	})
}

func (s *NewsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case newsMsg:
		if msg.Seq == s.seq {
			s.loading = false
			s.result = msg.Result
			s.scroll = components.Scroll{}
		}
		return s, nil

	case spinner.TickMsg:
		if !s.loading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyPressMsg:
		switch msg.String() {
		case "r":
			return s, s.fetch()
		case "l":
			if s.locale == appstate.LocaleBangla {
				s.locale = appstate.LocaleEnglish
			} else {
				s.locale = appstate.LocaleBangla
			}
			return s, s.fetch()
		case "up", "k":
			s.scroll.Up(1)
		case "down", "j":
			s.scroll.Down(1)
		case "pgup":
			s.scroll.Up(10)
		case "pgdown":
			s.scroll.Down(10)
		}
	}
	return s, nil
}

func (s *NewsScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	var body string
	switch {
	case s.loading:
		body = s.spinner.View() + " " + theme.Hint.Render("Searching today's education news…")
	case s.result.Outcome == gateway.Failed:
		body = theme.Incorrect.Render(s.result.Value.Text) + "\n\n" + theme.Hint.Render("Press r to try again.")
	default:
		body = renderNews(s.result.Value, cw)
	}

	title := theme.Title.Width(cw).Render("Education News")
	body = s.scroll.View(body, height-2)
	content := lipgloss.JoinVertical(lipgloss.Left, title, "", body)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, lipgloss.NewStyle().Width(cw).Render(content))
}

func renderNews(n model.NewsResult, width int) string {
	out := components.RenderText(n.Text, width)
	if len(n.Sources) == 0 {
		return out
	}
	lines := make([]string, 0, len(n.Sources))
	for i, src := range n.Sources {
		title := src.Title
		if title == "" {
			title = src.URI
		}
		lines = append(lines, fmt.Sprintf("%d. %s\n   %s", i+1, title,
			lipgloss.NewStyle().Foreground(theme.TextDim).Render(src.URI)))
	}
	return out + "\n\n" + components.Section("Sources", strings.Join(lines, "\n"))
}
