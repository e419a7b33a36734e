// Package setup is shown when no model API key is configured. It stores a
// key in the .env file and asks for a restart.
package setup

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/config"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

type provider struct {
	Name   string
	EnvKey string
	URL    string
}

var providers = []provider{
	{Name: "gemini", EnvKey: "TUTORLY_GEMINI_API_KEY", URL: "https://aistudio.google.com/apikey"},
	{Name: "openai", EnvKey: "TUTORLY_OPENAI_API_KEY", URL: "https://platform.openai.com/api-keys"},
	{Name: "anthropic", EnvKey: "TUTORLY_ANTHROPIC_API_KEY", URL: "https://console.anthropic.com/settings/keys"},
	{Name: "openrouter", EnvKey: "TUTORLY_OPENROUTER_API_KEY", URL: "https://openrouter.ai/keys"},
}

// SetupScreen implements screen.Screen.
type SetupScreen struct {
	envPath  string
	provider int
	input    components.TextInput
	saved    bool
	errMsg   string
}

var _ screen.Screen = (*SetupScreen)(nil)
var _ screen.KeyHintProvider = (*SetupScreen)(nil)

// New creates the setup screen. The key is written to envPath.
func New(envPath string) *SetupScreen {
	input := components.NewTextInput("Paste your API key", 200)
	input.SetMasked(true)
	return &SetupScreen{
		envPath: envPath,
		input:   input,
	}
}

func (s *SetupScreen) Init() tea.Cmd {
	return s.input.Init()
}

func (s *SetupScreen) Title() string {
	return "Setup"
}

// Saved reports whether a key was written.
func (s *SetupScreen) Saved() bool {
	return s.saved
}

func (s *SetupScreen) KeyHints() []layout.KeyHint {
	if s.saved {
		return []layout.KeyHint{{Key: "q", Description: "Quit"}}
	}
	return []layout.KeyHint{
		{Key: "Tab", Description: "Provider"},
		{Key: "Enter", Description: "Save"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (s *SetupScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		if s.saved {
			if kmsg.String() == "q" || kmsg.String() == "enter" {
				return s, tea.Quit
			}
			return s, nil
		}
		switch kmsg.String() {
		case "tab":
			s.provider = (s.provider + 1) % len(providers)
			return s, nil
		case "shift+tab":
			s.provider = (s.provider - 1 + len(providers)) % len(providers)
			return s, nil
		case "enter":
			s.save()
			return s, nil
		}
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *SetupScreen) save() {
	key := s.input.Value()
	if key == "" {
		s.errMsg = "Paste a key first."
		return
	}
	p := providers[s.provider]
	if err := config.SetEnvFileValue(s.envPath, p.EnvKey, key); err != nil {
		s.errMsg = fmt.Sprintf("Could not write %s: %v", s.envPath, err)
		return
	}
	if err := config.SetEnvFileValue(s.envPath, "TUTORLY_LLM_PROVIDER", p.Name); err != nil {
		s.errMsg = fmt.Sprintf("Could not write %s: %v", s.envPath, err)
		return
	}
	s.errMsg = ""
	s.saved = true
	s.input.Reset()
}

func (s *SetupScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	if s.saved {
		content := lipgloss.JoinVertical(lipgloss.Left,
			theme.Correct.Render("Key saved to "+s.envPath),
			"",
			theme.Body.Render("Restart tutorly to start learning."),
		)
		return components.Center(components.Card(content, cw), width, height)
	}

	var tabs []string
	for i, p := range providers {
		if i == s.provider {
			tabs = append(tabs, theme.Selected.Render("["+p.Name+"]"))
		} else {
			tabs = append(tabs, lipgloss.NewStyle().Foreground(theme.TextDim).Render(p.Name))
		}
	}
	p := providers[s.provider]

	parts := []string{
		theme.Title.Width(cw - 6).Render("Welcome to Tutorly"),
		"",
		theme.Body.Width(cw - 6).Render("Tutorly needs an API key for a language model. Choose a provider and paste your key."),
		"",
		strings.Join(tabs, "  "),
		theme.Hint.Render("Get a key at " + p.URL),
		"",
		"> " + s.input.View(),
	}
	if s.errMsg != "" {
		parts = append(parts, "", theme.Incorrect.Render(s.errMsg))
	}
	return components.Center(components.Card(strings.Join(parts, "\n"), cw), width, height)
}
