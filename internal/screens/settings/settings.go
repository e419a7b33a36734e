// Package settings edits the learner's preferences.
package settings

import (
	"context"
	"slices"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

// SettingsScreen implements screen.Screen.
type SettingsScreen struct {
	env  *screen.Env
	menu components.Menu
}

var _ screen.Screen = (*SettingsScreen)(nil)
var _ screen.KeyHintProvider = (*SettingsScreen)(nil)

// New creates the settings screen.
func New(env *screen.Env) *SettingsScreen {
	s := &SettingsScreen{env: env}
	s.menu = components.NewMenu(s.items())
	return s
}

func (s *SettingsScreen) items() []components.MenuItem {
	st := s.env.State
	return []components.MenuItem{
		{Label: "Theme", Detail: string(st.Theme()), Action: s.toggleTheme},
		{Label: "Language", Detail: languageName(st.Locale()), Action: s.toggleLocale},
		{Label: "Subject", Detail: string(st.Subject()), Action: s.nextSubject},
	}
}

func (s *SettingsScreen) refresh() {
	selected := s.menu.Selected
	s.menu = components.NewMenu(s.items())
	s.menu.Selected = selected
}

func (s *SettingsScreen) toggleTheme() tea.Cmd {
	t := s.env.State.ToggleTheme()
	theme.Use(theme.ForName(string(t)))
	s.saved()
	return nil
}

func (s *SettingsScreen) toggleLocale() tea.Cmd {
	if s.env.State.Locale() == appstate.LocaleBangla {
		s.env.State.SetLocale(appstate.LocaleEnglish)
	} else {
		s.env.State.SetLocale(appstate.LocaleBangla)
	}
	s.saved()
	return nil
}

func (s *SettingsScreen) nextSubject() tea.Cmd {
	subjects := model.Subjects()
	i := slices.Index(subjects, s.env.State.Subject())
	s.env.State.SetSubject(subjects[(i+1)%len(subjects)])
	s.saved()
	return nil
}

func (s *SettingsScreen) saved() {
	s.env.SaveProfile(context.Background())
}

func (s *SettingsScreen) Init() tea.Cmd {
	return nil
}

func (s *SettingsScreen) Title() string {
	return "Settings"
}

func (s *SettingsScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Select"},
		{Key: "Enter", Description: "Change"},
		{Key: "Esc", Description: "Back"},
	}
}

func (s *SettingsScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	m, cmd := s.menu.Update(msg)
	s.menu = m
	// Details must reflect whatever the action just changed.
	s.refresh()
	return s, cmd
}

func (s *SettingsScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	content := lipgloss.JoinVertical(lipgloss.Left,
		theme.Title.Width(cw-6).Render("Settings"),
		"",
		s.menu.View(),
		theme.Hint.Render("Changes are saved to your profile."),
	)
	return components.Center(components.Card(content, cw), width, height)
}

func languageName(locale string) string {
	if locale == appstate.LocaleBangla {
		return "Bangla"
	}
	return "English"
}
