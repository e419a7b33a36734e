// Package translator is the Bangla/English translation screen.
package translator

import (
	"context"
	"fmt"
	"strings"

	"charm.land/bubbles/v2/textarea"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

// translatedMsg carries a finished translation. Seq ties it to the request
// so results of superseded requests are dropped.
type translatedMsg struct {
	Seq    int
	Result gateway.Result[model.TranslationResult]
}

// TranslatorScreen implements screen.Screen.
type TranslatorScreen struct {
	env     *screen.Env
	input   textarea.Model
	dir     gateway.Direction
	seq     int
	loading bool
	result  gateway.Result[model.TranslationResult]
	done    bool
	scroll  components.Scroll
}

var _ screen.Screen = (*TranslatorScreen)(nil)
var _ screen.KeyHintProvider = (*TranslatorScreen)(nil)

// New creates the translator screen.
func New(env *screen.Env) *TranslatorScreen {
	ta := textarea.New()
	ta.Placeholder = "Paste Bangla or English text, one sentence per line"
	ta.ShowLineNumbers = false
	ta.SetHeight(5)

	return &TranslatorScreen{
		env:   env,
		input: ta,
	}
}

func (s *TranslatorScreen) Init() tea.Cmd {
	return s.input.Focus()
}

func (s *TranslatorScreen) Title() string {
	return "Translator"
}

func (s *TranslatorScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "Ctrl+D", Description: "Translate"},
		{Key: "Tab", Description: "Swap languages"},
		{Key: "PgUp/PgDn", Description: "Scroll"},
		{Key: "Esc", Description: "Back"},
	}
}

// Direction returns the selected translation direction.
func (s *TranslatorScreen) Direction() gateway.Direction {
	return s.dir
}

func (s *TranslatorScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case translatedMsg:
		if msg.Seq != s.seq {
			return s, nil
		}
		s.loading = false
		s.done = true
		s.result = msg.Result
		s.scroll = components.Scroll{}
		return s, nil

	case tea.KeyPressMsg:
		switch msg.String() {
		case "tab":
			if s.dir == gateway.BanglaToEnglish {
				s.dir = gateway.EnglishToBangla
			} else {
				s.dir = gateway.BanglaToEnglish
			}
			return s, nil
		case "ctrl+d":
			return s, s.translate()
		case "pgup":
			s.scroll.Up(5)
			return s, nil
		case "pgdown":
			s.scroll.Down(5)
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *TranslatorScreen) translate() tea.Cmd {
	text := strings.TrimSpace(s.input.Value())
	if text == "" {
		return nil
	}
	s.seq++
	s.loading = true
	seq, dir, gw := s.seq, s.dir, s.env.Gateway
	return func() tea.Msg {
		return translatedMsg{Seq: seq, Result: gw.Translate(context.Background(), text, dir)}
	}
}

func (s *TranslatorScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	s.input.SetWidth(cw)

	dirLabel := lipgloss.NewStyle().Foreground(theme.Accent).Bold(true).Render(s.dir.Label())
	top := lipgloss.JoinVertical(lipgloss.Left,
		dirLabel,
		s.input.View(),
		"",
	)

	var body string
	switch {
	case s.loading:
		body = theme.Hint.Render("Translating…")
	case !s.done:
		body = theme.Hint.Render("Press Ctrl+D to translate.")
	default:
		body = renderResult(s.result, cw)
	}

	bodyHeight := height - lipgloss.Height(top)
	body = s.scroll.View(body, bodyHeight)

	content := lipgloss.JoinVertical(lipgloss.Left, top, body)
	return lipgloss.PlaceHorizontal(width, lipgloss.Center, lipgloss.NewStyle().Width(cw).Render(content))
}

func renderResult(res gateway.Result[model.TranslationResult], width int) string {
	switch res.Outcome {
	case gateway.Failed:
		return theme.Incorrect.Render("The translation failed. Please try again.")
	case gateway.Empty, gateway.Canceled:
		return theme.Hint.Render("Nothing to show.")
	}

	dim := lipgloss.NewStyle().Foreground(theme.TextDim)
	var parts []string
	for i, line := range res.Value.Lines {
		var b strings.Builder
		b.WriteString(dim.Render(fmt.Sprintf("%d. %s", i+1, line.Original)) + "\n")
		b.WriteString(theme.Selected.Render("   "+line.Translated) + "\n")
		if line.Explanation != "" {
			b.WriteString(lipgloss.NewStyle().Width(width - 3).PaddingLeft(3).Render(line.Explanation))
			b.WriteString("\n")
		}
		for _, note := range line.GrammarAnalysis {
			word := lipgloss.NewStyle().Foreground(theme.Accent).Render(note.Word)
			pos := dim.Render("(" + note.PartOfSpeech + ")")
			b.WriteString(fmt.Sprintf("   • %s %s %s\n", word, pos, note.Explanation))
		}
		parts = append(parts, strings.TrimRight(b.String(), "\n"))
	}
	return strings.Join(parts, "\n\n")
}
