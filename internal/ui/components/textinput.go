package components

import (
	"strings"

	"charm.land/bubbles/v2/textinput"
	tea "charm.land/bubbletea/v2"
)

// TextInput wraps bubbles/textinput with Tutorly defaults.
type TextInput struct {
	Model textinput.Model
}

// NewTextInput creates a focused text input. maxChars <= 0 means no limit.
func NewTextInput(placeholder string, maxChars int) TextInput {
	ti := textinput.New()
	ti.Placeholder = placeholder
	ti.Focus()

	if maxChars > 0 {
		ti.CharLimit = maxChars
	}

	return TextInput{Model: ti}
}

// Init returns the initial command.
func (t TextInput) Init() tea.Cmd {
	return t.Model.Focus()
}

// Update handles messages.
func (t TextInput) Update(msg tea.Msg) (TextInput, tea.Cmd) {
	var cmd tea.Cmd
	t.Model, cmd = t.Model.Update(msg)
	return t, cmd
}

// View renders the text input.
func (t TextInput) View() string {
	return t.Model.View()
}

// Value returns the current input value, trimmed.
func (t TextInput) Value() string {
	return strings.TrimSpace(t.Model.Value())
}

// Reset clears the input.
func (t *TextInput) Reset() {
	t.Model.Reset()
}

// SetMasked hides the typed characters, for secrets.
func (t *TextInput) SetMasked(masked bool) {
	if masked {
		t.Model.EchoMode = textinput.EchoPassword
	} else {
		t.Model.EchoMode = textinput.EchoNormal
	}
}
