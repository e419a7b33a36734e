package theme

import (
	"image/color"

	"charm.land/lipgloss/v2"
)

// Palette is one set of terminal colors.
type Palette struct {
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color
	Success   color.Color
	Error     color.Color
	Text      color.Color
	TextDim   color.Color
	BgDark    color.Color
	BgCard    color.Color
	Border    color.Color
}

// Dark is the default palette.
var Dark = Palette{
	Primary:   lipgloss.Color("#6366F1"), // Indigo
	Secondary: lipgloss.Color("#14B8A6"), // Teal
	Accent:    lipgloss.Color("#F59E0B"), // Amber
	Success:   lipgloss.Color("#22C55E"),
	Error:     lipgloss.Color("#F43F5E"),
	Text:      lipgloss.Color("#F8FAFC"),
	TextDim:   lipgloss.Color("#94A3B8"),
	BgDark:    lipgloss.Color("#0F172A"),
	BgCard:    lipgloss.Color("#1E293B"),
	Border:    lipgloss.Color("#334155"),
}

// Light suits terminals with a light background.
var Light = Palette{
	Primary:   lipgloss.Color("#4F46E5"),
	Secondary: lipgloss.Color("#0D9488"),
	Accent:    lipgloss.Color("#D97706"),
	Success:   lipgloss.Color("#16A34A"),
	Error:     lipgloss.Color("#E11D48"),
	Text:      lipgloss.Color("#0F172A"),
	TextDim:   lipgloss.Color("#64748B"),
	BgDark:    lipgloss.Color("#F8FAFC"),
	BgCard:    lipgloss.Color("#E2E8F0"),
	Border:    lipgloss.Color("#CBD5E1"),
}

// Current colors. Use replaces them together with the styles below.
var (
	Primary   color.Color
	Secondary color.Color
	Accent    color.Color
	Success   color.Color
	Error     color.Color
	Text      color.Color
	TextDim   color.Color
	BgDark    color.Color
	BgCard    color.Color
	Border    color.Color
)

// Typography
var (
	Title    lipgloss.Style
	Subtitle lipgloss.Style
	Body     lipgloss.Style
	Hint     lipgloss.Style
)

// Layout
var (
	Header lipgloss.Style
	Footer lipgloss.Style
	Card   lipgloss.Style
)

// States
var (
	Selected   lipgloss.Style
	Unselected lipgloss.Style
	Correct    lipgloss.Style
	Incorrect  lipgloss.Style
)

// Response blocks
var (
	BlockHeading   lipgloss.Style
	BlockBullet    lipgloss.Style
	BlockStep      lipgloss.Style
	BlockParagraph lipgloss.Style
)

// Chat
var (
	UserBubble  lipgloss.Style
	ModelBubble lipgloss.Style
	Suggestion  lipgloss.Style
)

func init() {
	Use(Dark)
}

// Use switches every color and style to p.
func Use(p Palette) {
	Primary, Secondary, Accent = p.Primary, p.Secondary, p.Accent
	Success, Error = p.Success, p.Error
	Text, TextDim = p.Text, p.TextDim
	BgDark, BgCard, Border = p.BgDark, p.BgCard, p.Border

	Title = lipgloss.NewStyle().
		Bold(true).
		Foreground(Primary).
		Align(lipgloss.Center)

	Subtitle = lipgloss.NewStyle().
		Foreground(TextDim).
		Align(lipgloss.Center)

	Body = lipgloss.NewStyle().
		Foreground(Text)

	Hint = lipgloss.NewStyle().
		Foreground(TextDim).
		Italic(true)

	Header = lipgloss.NewStyle().
		Background(BgCard).
		Padding(0, 2)

	Footer = lipgloss.NewStyle().
		Background(BgCard).
		Padding(0, 2)

	Card = lipgloss.NewStyle().
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(1, 2)

	Selected = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	Unselected = lipgloss.NewStyle().
		Foreground(Text)

	Correct = lipgloss.NewStyle().
		Foreground(Success).
		Bold(true)

	Incorrect = lipgloss.NewStyle().
		Foreground(Error).
		Bold(true)

	BlockHeading = lipgloss.NewStyle().
		Foreground(Primary).
		Bold(true)

	BlockBullet = lipgloss.NewStyle().
		Foreground(Text).
		PaddingLeft(2)

	BlockStep = lipgloss.NewStyle().
		Foreground(Secondary).
		PaddingLeft(1)

	BlockParagraph = lipgloss.NewStyle().
		Foreground(Text)

	UserBubble = lipgloss.NewStyle().
		Foreground(Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Primary).
		Padding(0, 1)

	ModelBubble = lipgloss.NewStyle().
		Foreground(Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)

	Suggestion = lipgloss.NewStyle().
		Foreground(Accent).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Accent).
		Padding(0, 1)
}

// ForName returns the palette for a theme name, "light" or anything else
// for dark.
func ForName(name string) Palette {
	if name == "light" {
		return Light
	}
	return Dark
}

// ButtonActive styles the focused button.
func ButtonActive() lipgloss.Style {
	return lipgloss.NewStyle().
		Background(Primary).
		Foreground(BgDark).
		Bold(true).
		Padding(0, 1)
}

// ButtonInactive styles an unfocused button.
func ButtonInactive() lipgloss.Style {
	return lipgloss.NewStyle().
		Foreground(Text).
		Border(lipgloss.RoundedBorder()).
		BorderForeground(Border).
		Padding(0, 1)
}
