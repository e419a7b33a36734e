// Package dashboard is the landing screen: a menu of views beside a
// summary of the learner's state.
package dashboard

import (
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/appstate"
	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

var descriptions = map[appstate.View]string{
	appstate.ViewTutor:      "Ask the tutor, one chat per subject",
	appstate.ViewTranslator: "Bangla ⇄ English with grammar notes",
	appstate.ViewNews:       "Today's education news",
	appstate.ViewQuiz:       "Five questions on your subject",
	appstate.ViewHistory:    "Past quiz scores and flagged topics",
	appstate.ViewPlanner:    "A plan from your weak topics",
	appstate.ViewSettings:   "Theme, language, default subject",
}

// DashboardScreen is the root screen.
type DashboardScreen struct {
	env  *screen.Env
	menu components.Menu
}

var _ screen.Screen = (*DashboardScreen)(nil)

// New creates the dashboard.
func New(env *screen.Env) *DashboardScreen {
	var items []components.MenuItem
	for _, v := range appstate.Views() {
		if v == appstate.ViewDashboard {
			continue
		}
		items = append(items, components.MenuItem{
			Label:  strings.ToUpper(v.String()),
			Detail: descriptions[v],
			Action: func() tea.Cmd { return router.Navigate(v) },
		})
	}
	items = append(items, components.MenuItem{
		Label:  "QUIT",
		Action: func() tea.Cmd { return tea.Quit },
	})

	return &DashboardScreen{
		env:  env,
		menu: components.NewMenu(items),
	}
}

func (d *DashboardScreen) Init() tea.Cmd {
	return nil
}

func (d *DashboardScreen) Title() string {
	return "Dashboard"
}

func (d *DashboardScreen) KeyHints() []layout.KeyHint {
	return []layout.KeyHint{
		{Key: "↑↓", Description: "Navigate"},
		{Key: "Enter", Description: "Open"},
		{Key: "Ctrl+C", Description: "Quit"},
	}
}

func (d *DashboardScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	var cmd tea.Cmd
	d.menu, cmd = d.menu.Update(msg)
	return d, cmd
}

func (d *DashboardScreen) View(width, height int) string {
	st := d.env.State

	greeting := "Welcome back"
	if u := st.User(); u != nil && u.DisplayName != "" {
		greeting = "Welcome back, " + u.DisplayName
	}

	var summary strings.Builder
	summary.WriteString(theme.Title.Render(greeting) + "\n\n")
	summary.WriteString(fmt.Sprintf("Subject   %s\n", lipgloss.NewStyle().Foreground(theme.Accent).Render(string(st.Subject()))))
	summary.WriteString(fmt.Sprintf("Language  %s\n", localeLabel(st.Locale())))

	weak := st.WeakTopics()
	summary.WriteString("\n")
	if len(weak) == 0 {
		summary.WriteString(theme.Hint.Render("No weak topics yet. Flag questions in a quiz to add some."))
	} else {
		lines := make([]string, 0, len(weak))
		for _, t := range weak {
			lines = append(lines, "• "+t)
		}
		summary.WriteString(components.Section("Weak topics", strings.Join(lines, "\n")))
	}

	if d.env.Chat != nil {
		if n := len(d.env.Chat.History(st.Subject())); n > 0 {
			summary.WriteString("\n\n" + theme.Hint.Render(fmt.Sprintf("%d messages in your %s chat", n, st.Subject())))
		}
	}

	menu := d.menu.View()
	cw := components.ContentWidth(width)

	var content string
	if layout.IsCompactWidth(width) {
		content = lipgloss.JoinVertical(lipgloss.Left,
			components.Card(summary.String(), cw),
			"",
			menu,
		)
	} else {
		half := width/2 - 4
		content = lipgloss.JoinHorizontal(lipgloss.Top,
			components.Card(summary.String(), half),
			"  ",
			lipgloss.NewStyle().Width(half).Render(menu),
		)
	}
	return components.Center(content, width, height)
}

func localeLabel(locale string) string {
	if locale == appstate.LocaleBangla {
		return "বাংলা"
	}
	return "English"
}
