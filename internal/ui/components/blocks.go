package components

import (
	"strings"

	"github.com/abhisek/tutorly/internal/format"
	"github.com/abhisek/tutorly/internal/ui/theme"
)

// RenderBlocks styles formatted response blocks for a column of the given
// width.
func RenderBlocks(blocks []format.Block, width int) string {
	lines := make([]string, 0, len(blocks))
	for _, b := range blocks {
		switch b.Kind {
		case format.Spacing:
			lines = append(lines, "")
		case format.Heading:
			lines = append(lines, theme.BlockHeading.Width(width).Render(b.Text))
		case format.Bullet:
			lines = append(lines, theme.BlockBullet.Width(width).Render("• "+b.Text))
		case format.Step:
			lines = append(lines, theme.BlockStep.Width(width).Render(b.Text))
		default:
			lines = append(lines, theme.BlockParagraph.Width(width).Render(b.Text))
		}
	}
	return strings.Join(lines, "\n")
}

// RenderText formats and styles raw model text.
func RenderText(text string, width int) string {
	return RenderBlocks(format.Format(text), width)
}
