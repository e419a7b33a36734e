// Package planner builds a study plan from the learner's weak topics.
package planner

import (
	"context"
	"fmt"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

type planMsg struct {
	Seq    int
	Result gateway.Result[model.StudyPlan]
}

// PlannerScreen implements screen.Screen.
type PlannerScreen struct {
	env     *screen.Env
	cursor  int
	seq     int
	loading bool
	fetched bool
	result  gateway.Result[model.StudyPlan]
}

var _ screen.Screen = (*PlannerScreen)(nil)
var _ screen.KeyHintProvider = (*PlannerScreen)(nil)

// New creates the planner screen.
func New(env *screen.Env) *PlannerScreen {
	return &PlannerScreen{env: env}
}

func (s *PlannerScreen) Init() tea.Cmd {
	return nil
}

func (s *PlannerScreen) Title() string {
	return "Study Planner"
}

func (s *PlannerScreen) KeyHints() []layout.KeyHint {
	hints := []layout.KeyHint{{Key: "g", Description: "Generate plan"}}
	if len(s.env.State.WeakTopics()) > 0 {
		hints = append(hints,
			layout.KeyHint{Key: "↑↓", Description: "Select"},
			layout.KeyHint{Key: "d", Description: "Remove topic"},
		)
	}
	return append(hints, layout.KeyHint{Key: "Esc", Description: "Back"})
}

func (s *PlannerScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case planMsg:
		if msg.Seq == s.seq {
			s.loading = false
			s.fetched = true
			s.result = msg.Result
		}
		return s, nil

	case tea.KeyPressMsg:
		topics := s.env.State.WeakTopics()
		switch msg.String() {
		case "up", "k":
			if s.cursor > 0 {
				s.cursor--
			}
		case "down", "j":
			if s.cursor < len(topics)-1 {
				s.cursor++
			}
		case "d", "delete":
			if s.cursor < len(topics) {
				s.env.State.RemoveWeakTopic(topics[s.cursor])
				s.env.SaveProfile(context.Background())
				if s.cursor > 0 && s.cursor >= len(topics)-1 {
					s.cursor--
				}
			}
		case "g", "enter":
			return s, s.generate()
		}
	}
	return s, nil
}

func (s *PlannerScreen) generate() tea.Cmd {
	s.seq++
	s.loading = true
	seq, topics, gw := s.seq, s.env.State.WeakTopics(), s.env.Gateway
	return func() tea.Msg {
		return planMsg{Seq: seq, Result: gw.GenerateStudyPlan(context.Background(), topics)}
	}
}

func (s *PlannerScreen) View(width, height int) string {
	cw := components.ContentWidth(width)

	topics := s.env.State.WeakTopics()
	var topicView string
	if len(topics) == 0 {
		topicView = theme.Hint.Render("No weak topics. A general revision plan will be made.")
	} else {
		lines := make([]string, 0, len(topics))
		for i, t := range topics {
			if i == s.cursor {
				lines = append(lines, theme.Selected.Render("▸ "+t))
			} else {
				lines = append(lines, theme.Unselected.Render("  "+t))
			}
		}
		topicView = strings.Join(lines, "\n")
	}

	var planView string
	switch {
	case s.loading:
		planView = theme.Hint.Render("Building your plan…")
	case !s.fetched:
		planView = theme.Hint.Render("Press g to generate a plan.")
	case s.result.Outcome == gateway.Failed:
		planView = theme.Incorrect.Render("Could not build a plan. Press g to try again.")
	default:
		planView = renderPlan(s.result.Value)
	}

	content := lipgloss.JoinVertical(lipgloss.Left,
		components.Section("Weak topics", topicView),
		"",
		components.Section("Plan", planView),
	)
	return components.Center(components.Card(content, cw), width, height)
}

func renderPlan(p model.StudyPlan) string {
	if p.IsZero() {
		return theme.Hint.Render("The plan came back empty.")
	}
	var b strings.Builder
	for i, goal := range p.DailyGoals {
		b.WriteString(theme.BlockStep.Render(fmt.Sprintf("%d. ", i+1)) + goal + "\n")
	}
	if len(p.WeakTopics) > 0 {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.TextDim).Render("Focus: "+strings.Join(p.WeakTopics, ", ")) + "\n")
	}
	if p.NextStudy != "" {
		b.WriteString("\n" + lipgloss.NewStyle().Foreground(theme.Accent).Render("Next: ") + p.NextStudy)
	}
	return strings.TrimRight(b.String(), "\n")
}
