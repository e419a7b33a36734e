package components

import (
	tea "charm.land/bubbletea/v2"
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

// Button is a styled button bound to a shortcut key.
type Button struct {
	Label   string
	Key     string
	Active  bool
	OnPress func() tea.Cmd
}

// NewButton creates a new button pressed by key (and enter while active).
func NewButton(label, key string, active bool, onPress func() tea.Cmd) Button {
	return Button{
		Label:   label,
		Key:     key,
		Active:  active,
		OnPress: onPress,
	}
}

// Update handles key events.
func (b Button) Update(msg tea.Msg) (Button, tea.Cmd) {
	if !b.Active || b.OnPress == nil {
		return b, nil
	}

	if kmsg, ok := msg.(tea.KeyPressMsg); ok {
		if k := kmsg.String(); k == "enter" || (b.Key != "" && k == b.Key) {
			return b, b.OnPress()
		}
	}

	return b, nil
}

// View renders the button.
func (b Button) View() string {
	label := " " + b.Label + " "
	if b.Key != "" {
		label = " " + b.Label + " " + lipgloss.NewStyle().Faint(true).Render("["+b.Key+"]") + " "
	}
	if b.Active {
		return theme.ButtonActive().Render("▸" + label)
	}
	return theme.ButtonInactive().Render(" " + label)
}
