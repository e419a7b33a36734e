// Package welcome is the splash shown when the app starts.
package welcome

import (
	"strings"
	"time"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/router"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

const (
	tickInterval = 100 * time.Millisecond
	bookEnd      = 400 * time.Millisecond
	bannerEnd    = 1200 * time.Millisecond
	totalDur     = 2500 * time.Millisecond
)

const bookArt = `   ________   ________
  /  অ আ   \ /  a b c \
 /  ক খ গ   Y  x + y   \
/___________|___________\`

var pageFrames = []string{"·", "•"}

type tickMsg time.Time

// WelcomeScreen plays a short splash and then replaces itself with the
// screen built by next. Any key skips it.
type WelcomeScreen struct {
	next         func() screen.Screen
	elapsed      time.Duration
	tickCount    int
	transitioned bool
}

var _ screen.Screen = (*WelcomeScreen)(nil)

func New(next func() screen.Screen) *WelcomeScreen {
	return &WelcomeScreen{next: next}
}

func (w *WelcomeScreen) Title() string {
	return ""
}

func (w *WelcomeScreen) Init() tea.Cmd {
	return tick()
}

func tick() tea.Cmd {
	return tea.Tick(tickInterval, func(t time.Time) tea.Msg {
		return tickMsg(t)
	})
}

func (w *WelcomeScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg.(type) {
	case tickMsg:
		if w.transitioned {
			return w, nil
		}
		w.elapsed += tickInterval
		w.tickCount++
		if w.elapsed >= totalDur {
			return w, w.transition()
		}
		return w, tick()

	case tea.KeyPressMsg:
		return w, w.transition()
	}
	return w, nil
}

func (w *WelcomeScreen) transition() tea.Cmd {
	if w.transitioned {
		return nil
	}
	w.transitioned = true
	next := w.next()
	return func() tea.Msg {
		return router.ReplaceScreenMsg{Screen: next}
	}
}

func (w *WelcomeScreen) View(width, height int) string {
	book := lipgloss.NewStyle().Foreground(theme.Primary).Render(bookArt)

	if w.elapsed >= bookEnd {
		dot := pageFrames[w.tickCount%len(pageFrames)]
		accent := lipgloss.NewStyle().Foreground(theme.Accent).Render(dot)
		lines := strings.Split(book, "\n")
		lines[0] = accent + " " + lines[0] + " " + accent
		book = strings.Join(lines, "\n")
	}

	sections := []string{book}
	if w.elapsed >= bannerEnd {
		sections = append(sections,
			"",
			RenderBanner(width),
			"",
			lipgloss.NewStyle().Foreground(theme.Text).Bold(true).Render("Your study partner, in English and Bangla."),
			"",
			lipgloss.NewStyle().Foreground(theme.TextDim).Italic(true).Render("press any key"),
		)
	}

	return lipgloss.Place(width, height, lipgloss.Center, lipgloss.Center, strings.Join(sections, "\n"))
}
