package components

import "strings"

// Scroll keeps a vertical offset into rendered content.
type Scroll struct {
	Offset int
	// Follow pins the view to the bottom while set.
	Follow bool
}

// Up moves towards the top and stops following.
func (s *Scroll) Up(n int) {
	s.Follow = false
	s.Offset -= n
	if s.Offset < 0 {
		s.Offset = 0
	}
}

// Down moves towards the bottom.
func (s *Scroll) Down(n int) {
	s.Offset += n
}

// View returns the height lines of content visible at the current offset,
// clamping the offset to the content.
func (s *Scroll) View(content string, height int) string {
	if height <= 0 {
		return ""
	}
	lines := strings.Split(content, "\n")
	maxOffset := len(lines) - height
	if maxOffset < 0 {
		maxOffset = 0
	}
	if s.Follow || s.Offset > maxOffset {
		s.Offset = maxOffset
	}
	end := s.Offset + height
	if end > len(lines) {
		end = len(lines)
	}
	return strings.Join(lines[s.Offset:end], "\n")
}
