package welcome

import (
	"charm.land/lipgloss/v2"

	"github.com/abhisek/tutorly/internal/ui/theme"
)

const bannerArt = `
 ████████╗██╗   ██╗████████╗ ██████╗ ██████╗ ██╗  ██╗   ██╗
 ╚══██╔══╝██║   ██║╚══██╔══╝██╔═══██╗██╔══██╗██║  ╚██╗ ██╔╝
    ██║   ██║   ██║   ██║   ██║   ██║██████╔╝██║   ╚████╔╝
    ██║   ██║   ██║   ██║   ██║   ██║██╔══██╗██║    ╚██╔╝
    ██║   ╚██████╔╝   ██║   ╚██████╔╝██║  ██║███████╗██║
    ╚═╝    ╚═════╝    ╚═╝    ╚═════╝ ╚═╝  ╚═╝╚══════╝╚═╝`

const bannerCompact = "T U T O R L Y"

// RenderBanner returns the banner in the primary color, or a compact
// version for terminals narrower than 62 columns.
func RenderBanner(width int) string {
	style := lipgloss.NewStyle().
		Foreground(theme.Primary).
		Bold(true)

	if width < 62 {
		return style.Render(bannerCompact)
	}
	return style.Render(bannerArt)
}
