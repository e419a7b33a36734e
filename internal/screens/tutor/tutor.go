// Package tutor is the chat screen. Each subject keeps its own
// conversation; replies stream into the last message as they arrive.
package tutor

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"net/http"
	"os"
	"slices"
	"strings"

	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/conversation"
	"github.com/abhisek/tutorly/internal/gateway"
	"github.com/abhisek/tutorly/internal/model"
	"github.com/abhisek/tutorly/internal/screen"
	"github.com/abhisek/tutorly/internal/ui/components"
	"github.com/abhisek/tutorly/internal/ui/layout"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

// maxImageBytes bounds attached images.
const maxImageBytes = 4 << 20

// historyChangedMsg reports that a subject's history was updated.
type historyChangedMsg struct {
	Subject model.Subject
}

// replyDoneMsg is sent when an exchange ends.
type replyDoneMsg struct {
	Subject model.Subject
	Reply   conversation.Reply
	Err     error
}

// TutorScreen implements screen.Screen for the chat tutor.
type TutorScreen struct {
	env         *screen.Env
	input       components.TextInput
	scroll      components.Scroll
	image       string
	imageName   string
	errMsg      string
	updates     chan model.Subject
	done        chan struct{}
	unsubscribe func()
}

var _ screen.Screen = (*TutorScreen)(nil)
var _ screen.KeyHintProvider = (*TutorScreen)(nil)
var _ screen.EscapeHandler = (*TutorScreen)(nil)
var _ screen.Closer = (*TutorScreen)(nil)

// New creates the tutor screen for the current subject.
func New(env *screen.Env) *TutorScreen {
	return &TutorScreen{
		env:     env,
		input:   components.NewTextInput("Ask a question, or /image <path>", 4000),
		scroll:  components.Scroll{Follow: true},
		updates: make(chan model.Subject, 1),
		done:    make(chan struct{}),
	}
}

func (s *TutorScreen) Init() tea.Cmd {
	s.unsubscribe = s.env.Chat.Subscribe(func(subject model.Subject, _ []model.ChatMessage) {
		select {
		case s.updates <- subject:
		default:
		}
	})
	return tea.Batch(s.input.Init(), s.waitForUpdate())
}

// Close stops listening for history updates.
func (s *TutorScreen) Close() {
	if s.unsubscribe != nil {
		s.unsubscribe()
		s.unsubscribe = nil
		close(s.done)
	}
}

func (s *TutorScreen) Title() string {
	return "Tutor"
}

func (s *TutorScreen) subject() model.Subject {
	return s.env.State.Subject()
}

func (s *TutorScreen) busy() bool {
	return s.env.Chat.State(s.subject()) != conversation.StateIdle
}

// HandlesEscape keeps Esc on this screen while a reply streams, so it
// cancels the reply instead of leaving.
func (s *TutorScreen) HandlesEscape() bool {
	return s.busy()
}

func (s *TutorScreen) KeyHints() []layout.KeyHint {
	if s.busy() {
		return []layout.KeyHint{
			{Key: "Esc", Description: "Stop reply"},
			{Key: "PgUp/PgDn", Description: "Scroll"},
		}
	}
	hints := []layout.KeyHint{
		{Key: "Enter", Description: "Send"},
		{Key: "Tab", Description: "Subject"},
		{Key: "Ctrl+L", Description: "Clear"},
		{Key: "Esc", Description: "Back"},
	}
	if len(s.suggestions()) > 0 {
		hints = append(hints, layout.KeyHint{Key: "Alt+1-3", Description: "Suggestion"})
	}
	return hints
}

func (s *TutorScreen) waitForUpdate() tea.Cmd {
	updates, done := s.updates, s.done
	return func() tea.Msg {
		select {
		case sub := <-updates:
			return historyChangedMsg{Subject: sub}
		case <-done:
			return nil
		}
	}
}

func (s *TutorScreen) Update(msg tea.Msg) (screen.Screen, tea.Cmd) {
	switch msg := msg.(type) {
	case historyChangedMsg:
		if msg.Subject == s.subject() {
			s.scroll.Follow = true
		}
		return s, s.waitForUpdate()

	case replyDoneMsg:
		if msg.Err != nil {
			s.errMsg = errorText(msg.Err)
		}
		return s, nil

	case tea.KeyPressMsg:
		return s.handleKey(msg)
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

func (s *TutorScreen) handleKey(msg tea.KeyPressMsg) (screen.Screen, tea.Cmd) {
	switch key := msg.String(); key {
	case "esc":
		s.env.Chat.Cancel(s.subject())
		return s, nil

	case "enter":
		return s, s.submit(s.input.Value())

	case "tab", "shift+tab":
		s.cycleSubject(key == "tab")
		return s, nil

	case "pgup":
		s.scroll.Up(5)
		return s, nil

	case "pgdown":
		s.scroll.Down(5)
		return s, nil

	case "ctrl+l":
		if err := s.env.Chat.Clear(context.Background(), s.subject()); err != nil {
			s.errMsg = errorText(err)
		}
		return s, nil

	case "alt+1", "alt+2", "alt+3":
		sugg := s.suggestions()
		if i := int(key[len(key)-1] - '1'); i < len(sugg) {
			return s, s.submit(sugg[i])
		}
		return s, nil
	}

	var cmd tea.Cmd
	s.input, cmd = s.input.Update(msg)
	return s, cmd
}

// submit handles the input line: "/image <path>" attaches an image to the
// next message, anything else is sent.
func (s *TutorScreen) submit(text string) tea.Cmd {
	s.errMsg = ""
	if path, ok := strings.CutPrefix(text, "/image "); ok {
		uri, err := loadImage(strings.TrimSpace(path))
		if err != nil {
			s.errMsg = err.Error()
			return nil
		}
		s.image, s.imageName = uri, strings.TrimSpace(path)
		s.input.Reset()
		return nil
	}
	if text == "" && s.image == "" {
		return nil
	}
	if s.busy() {
		s.errMsg = errorText(conversation.ErrBusy)
		return nil
	}

	subject, image := s.subject(), s.image
	s.image, s.imageName = "", ""
	s.input.Reset()
	s.scroll.Follow = true

	chat := s.env.Chat
	return func() tea.Msg {
		reply, err := chat.Send(context.Background(), subject, text, image)
		return replyDoneMsg{Subject: subject, Reply: reply, Err: err}
	}
}

func (s *TutorScreen) cycleSubject(forward bool) {
	subjects := s.env.Chat.AllSubjects()
	if len(subjects) == 0 {
		return
	}
	i := slices.Index(subjects, s.subject())
	switch {
	case i < 0:
		i = 0
	case forward:
		i = (i + 1) % len(subjects)
	default:
		i = (i - 1 + len(subjects)) % len(subjects)
	}
	s.env.State.SetSubject(subjects[i])
	s.scroll = components.Scroll{Follow: true}
	s.errMsg = ""
}

// suggestions returns the follow-ups offered by the last reply.
func (s *TutorScreen) suggestions() []string {
	history := s.env.Chat.History(s.subject())
	if len(history) == 0 || s.busy() {
		return nil
	}
	last := history[len(history)-1]
	if last.Role != model.RoleModel {
		return nil
	}
	return last.Suggestions
}

func (s *TutorScreen) View(width, height int) string {
	subject := s.subject()
	cw := width - 4
	if cw < 20 {
		cw = 20
	}

	tabs := s.renderTabs(subject)
	transcript := s.renderTranscript(subject, cw)

	var footer []string
	if sugg := s.suggestions(); len(sugg) > 0 {
		chips := make([]string, 0, len(sugg))
		for i, text := range sugg {
			if i >= 3 {
				break
			}
			chips = append(chips, theme.Suggestion.Render(fmt.Sprintf("%d %s", i+1, text)))
		}
		footer = append(footer, lipgloss.JoinHorizontal(lipgloss.Top, chips...))
	}
	if s.imageName != "" {
		footer = append(footer, theme.Hint.Render("Attached: "+s.imageName))
	}
	if s.errMsg != "" {
		footer = append(footer, theme.Incorrect.Render(s.errMsg))
	}
	footer = append(footer, "> "+s.input.View())
	bottom := strings.Join(footer, "\n")

	transcriptHeight := height - lipgloss.Height(tabs) - lipgloss.Height(bottom) - 1
	body := s.scroll.View(transcript, transcriptHeight)
	body = lipgloss.NewStyle().Height(transcriptHeight).Render(body)

	return lipgloss.NewStyle().Padding(0, 2).Render(
		lipgloss.JoinVertical(lipgloss.Left, tabs, body, bottom),
	)
}

func (s *TutorScreen) renderTabs(current model.Subject) string {
	var parts []string
	for _, sub := range s.env.Chat.AllSubjects() {
		label := string(sub)
		if s.env.Chat.State(sub) != conversation.StateIdle {
			label += "…"
		}
		if sub == current {
			parts = append(parts, theme.Selected.Render("["+label+"]"))
		} else {
			parts = append(parts, lipgloss.NewStyle().Foreground(theme.TextDim).Render(label))
		}
	}
	return strings.Join(parts, " ")
}

func (s *TutorScreen) renderTranscript(subject model.Subject, width int) string {
	history := s.env.Chat.History(subject)
	if len(history) == 0 {
		return theme.Hint.Render(fmt.Sprintf("Ask anything about %s. Answers come as Concept, Steps, Example and Summary.", subject))
	}

	bubbleWidth := width * 4 / 5
	var parts []string
	for i, msg := range history {
		switch msg.Role {
		case model.RoleUser:
			text := msg.Text
			if msg.Image != "" {
				text = strings.TrimSpace(text + "\n[image]")
			}
			bubble := theme.UserBubble.Width(bubbleWidth).Render(text)
			parts = append(parts, lipgloss.PlaceHorizontal(width, lipgloss.Right, bubble))
		default:
			text := gateway.VisibleText(msg.Text)
			var body string
			if text == "" && i == len(history)-1 && s.env.Chat.State(subject) != conversation.StateIdle {
				body = theme.Hint.Render("thinking…")
			} else {
				body = components.RenderText(text, bubbleWidth-4)
			}
			parts = append(parts, theme.ModelBubble.Width(bubbleWidth).Render(body))
		}
	}
	return strings.Join(parts, "\n")
}

func errorText(err error) string {
	switch {
	case errors.Is(err, conversation.ErrBusy):
		return "Wait for the current reply, or press Esc to stop it."
	case errors.Is(err, conversation.ErrEmptyMessage):
		return "Type a question first."
	default:
		return err.Error()
	}
}

// loadImage reads an image file into a data URI.
func loadImage(path string) (string, error) {
	if path == "" {
		return "", errors.New("usage: /image <path>")
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return "", fmt.Errorf("read image: %w", err)
	}
	if len(data) > maxImageBytes {
		return "", fmt.Errorf("image is larger than %d MB", maxImageBytes>>20)
	}
	mime := http.DetectContentType(data)
	if !strings.HasPrefix(mime, "image/") {
		return "", fmt.Errorf("%s is not an image (%s)", path, mime)
	}
	return "data:" + mime + ";base64," + base64.StdEncoding.EncodeToString(data), nil
}
