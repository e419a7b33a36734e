// Package quiz is the multiple-choice quiz screen.
package quiz

import (
	"context"
	"fmt"
	"os"
	"slices"
	"strings"
	"time"

	"charm.land/bubbles/v2/spinner"
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/gateway"
	qz "github.com/abhisek/tutorly/internal/quiz"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/store"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

// keepResults bounds the stored quiz history.
const keepResults = 50

type setLoadedMsg struct {
	Outcome gateway.Outcome
}

// QuizScreen implements screen.Screen.
type QuizScreen struct {
	env     *screen.Env
	session *qz.Session
	choice  components.MultiChoice
	spinner spinner.Model
	outcome gateway.Outcome
	summary *qz.Summary
	added   int
	again   components.Button
}

var _ screen.Screen = (*QuizScreen)(nil)
var _ screen.KeyHintProvider = (*QuizScreen)(nil)

// New creates a quiz screen for the current subject.
func New(env *screen.Env) *QuizScreen {
	s := &QuizScreen{
		env:     env,
		session: qz.NewSession(),
		spinner: spinner.New(spinner.WithSpinner(spinner.Dot)),
	}
	s.again = components.NewButton("New quiz", "r", true, s.fetch)
	return s
}

func (s *QuizScreen) Init() tea.Cmd {
	return s.fetch()
}

func (s *QuizScreen) Title() string {
	return "Quiz"
}

// Session exposes the underlying quiz session.
func (s *QuizScreen) Session() *qz.Session {
	return s.session
}

func (s *QuizScreen) KeyHints() []layout.KeyHint {
	switch s.session.Phase() {
	case qz.PhaseReady:
		return []layout.KeyHint{
			{Key: "↑↓/a-d", Description: "Choose"},
			{Key: "Enter", Description: "Answer"},
			{Key: "Esc", Description: "Back"},
		}
	case qz.PhaseAnswered:
		return []layout.KeyHint{
			{Key: "f", Description: "Flag topic"},
			{Key: "Enter", Description: "Next"},
			{Key: "Esc", Description: "Back"},
		}
	case qz.PhaseFinished, qz.PhaseEmpty:
		return []layout.KeyHint{
			{Key: "r", Description: "New quiz"},
			{Key: "Esc", Description: "Back"},
		}
	}
	return []layout.KeyHint{{Key: "Esc", Description: "Back"}}
}

func (s *QuizScreen) fetch() tea.Cmd {
	s.summary = nil
	s.added = 0
	sess, gw, subject := s.session, s.env.Gateway, s.env.State.Subject()
	return tea.Batch(s.spinner.Tick, func() tea.Msg {
		return setLoadedMsg{Outcome: sess.FetchSet(context.Background(), gw, subject)}
	})
}

func (s *QuizScreen) showCurrent() {
	q, ok := s.session.Current()
	if !ok {
		return
	}
	s.choice = components.NewMultiChoice(q.Question, q.Options, q.CorrectAnswer)
}

func (s *QuizScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case setLoadedMsg:
		s.outcome = msg.Outcome
		s.showCurrent()
		return s, nil

	case spinner.TickMsg:
		if s.session.Phase() != qz.PhaseLoading {
			return s, nil
		}
		var cmd tea.Cmd
		s.spinner, cmd = s.spinner.Update(msg)
		return s, cmd

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}
	return s, nil
}

func (s *QuizScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	key := msg.String()
	switch s.session.Phase() {
	case qz.PhaseReady:
		if key == "enter" {
			if s.session.SelectAnswer(s.choice.Selected) {
				s.choice.Reveal(s.choice.Selected)
			}
			return s, nil
		}
		var cmd tea.Cmd
		s.choice, cmd = s.choice.Update(msg)
		return s, cmd

	case qz.PhaseAnswered:
		switch key {
		case "f":
			if q, ok := s.session.Current(); ok {
				s.session.FlagTopic(q.Topic)
				s.mergeWeak(q.Topic)
			}
		case "enter", "n":
			if s.session.Advance() {
				s.showCurrent()
			} else if s.session.Finish() {
				s.finish()
			}
		}

	case qz.PhaseFinished, qz.PhaseEmpty:
		var cmd tea.Cmd
		s.again, cmd = s.again.Update(msg)
		return s, cmd
	}
	return s, nil
}

// finish merges flagged topics into the learner's weak topics and records
// the result.
func (s *QuizScreen) finish() {
	sum := s.session.Summary()
	s.summary = &sum

	s.mergeWeak(sum.FlaggedTopics...)

	if s.env.Quizzes == nil {
		return
	}
	ctx := context.Background()
	res := &store.QuizResult{
		UserID:        s.env.UserID,
		Subject:       sum.Subject,
		Score:         sum.Score,
		Total:         sum.Total,
		FlaggedTopics: sum.FlaggedTopics,
		FinishedAt:    time.Now(),
	}
	if err := s.env.Quizzes.Save(ctx, res); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to save quiz result: %v\n", err)
		return
	}
	if err := s.env.Quizzes.Prune(ctx, s.env.UserID, keepResults); err != nil {
		fmt.Fprintf(os.Stderr, "warning: failed to prune quiz results: %v\n", err)
	}
}

// mergeWeak adds topics to the learner's weak topics as soon as they are
// flagged, so leaving mid-quiz keeps them.
func (s *QuizScreen) mergeWeak(topics ...string) {
	n := s.env.State.MergeWeakTopics(topics...)
	if n == 0 {
		return
	}
	s.added += n
	s.env.SaveProfile(context.Background())
}

func (s *QuizScreen) View(width, height int) string {
	cw := components.ContentWidth(width)
	snap := s.session.Snapshot()

	var content string
	switch snap.Phase {
	case qz.PhaseIdle, qz.PhaseLoading:
		content = s.spinner.View() + " " + theme.Hint.Render(fmt.Sprintf("Preparing %s questions…", s.env.State.Subject()))

	case qz.PhaseEmpty:
		msg := "No questions came back for this subject."
		if s.outcome == gateway.Failed {
			msg = "Could not load questions. Check your connection or API key."
		}
		content = theme.Incorrect.Render(msg) + "\n\n" + s.again.View()

	case qz.PhaseFinished:
		content = s.renderSummary(cw)

	default:
		content = s.renderQuestion(snap, cw)
	}

	return components.Center(components.Card(content, cw), width, height)
}

func (s *QuizScreen) renderQuestion(snap qz.Snapshot, cw int) string {
	if snap.CurrentIndex >= len(snap.Questions) {
		return theme.Hint.Render("No question to show.")
	}
	q := snap.Questions[snap.CurrentIndex]
	bar := components.NewScoreBar("Question", snap.CurrentIndex+1, len(snap.Questions), cw-24).View()
	topic := lipgloss.NewStyle().Foreground(theme.Secondary).Render(q.Topic)

	parts := []string{bar, topic, "", s.choice.View()}

	if snap.SelectedAnswer != nil {
		if *snap.SelectedAnswer == q.CorrectAnswer {
			parts = append(parts, theme.Correct.Render("Correct!"))
		} else {
			parts = append(parts, theme.Incorrect.Render("Not quite."))
		}
		if q.Explanation != "" {
			parts = append(parts, lipgloss.NewStyle().Width(cw-6).Render(q.Explanation))
		}
		if slices.Contains(snap.FlaggedTopics, q.Topic) {
			parts = append(parts, theme.Hint.Render("Flagged for review: "+q.Topic))
		}
	}
	return strings.Join(parts, "\n")
}

func (s *QuizScreen) renderSummary(cw int) string {
	sum := s.summary
	if sum == nil {
		v := s.session.Summary()
		sum = &v
	}
	parts := []string{
		theme.Title.Width(cw - 6).Render("Quiz complete"),
		"",
		components.NewScoreBar("Score", sum.Score, sum.Total, cw-24).View(),
	}
	if len(sum.FlaggedTopics) > 0 {
		parts = append(parts, "", components.Section("Flagged topics", "• "+strings.Join(sum.FlaggedTopics, "\n• ")))
		if s.added > 0 {
			parts = append(parts, theme.Hint.Render(fmt.Sprintf("%d added to your weak topics.", s.added)))
		}
	}
	parts = append(parts, "", s.again.View())
	return strings.Join(parts, "\n")
}
