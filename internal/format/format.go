// Package format classifies tutor replies into display blocks.
package format

import (
	"regexp"
	"strings"
)

// Kind is the display role of a block.
type Kind int

const (
	Spacing Kind = iota
	Heading
	Bullet
	Step
	Paragraph
)

func (k Kind) String() string {
	switch k {
	case Spacing:
		return "spacing"
	case Heading:
		return "heading"
	case Bullet:
		return "bullet"
	case Step:
		return "step"
	default:
		return "paragraph"
	}
}

// Block is one classified line.
type Block struct {
	Kind Kind   `json:"kind"`
	Text string `json:"text"`
}

var stepPattern = regexp.MustCompile(`^\d+\.`)

// Format classifies each line of text. The first matching rule wins:
// blank lines become spacing, "###" lines headings, "-" or "•" lines
// bullets, "N." lines steps, and everything else paragraphs. Bold markers
// are removed from the block text.
func Format(text string) []Block {
	lines := strings.Split(text, "\n")
	blocks := make([]Block, 0, len(lines))
	for _, line := range lines {
		blocks = append(blocks, classify(strings.TrimSpace(line)))
	}
	return blocks
}

func classify(line string) Block {
	switch {
	case line == "":
		return Block{Kind: Spacing}
	case strings.HasPrefix(line, "###"):
		return Block{Kind: Heading, Text: clean(strings.TrimLeft(line, "#"))}
	case strings.HasPrefix(line, "-"):
		return Block{Kind: Bullet, Text: clean(strings.TrimPrefix(line, "-"))}
	case strings.HasPrefix(line, "•"):
		return Block{Kind: Bullet, Text: clean(strings.TrimPrefix(line, "•"))}
	case stepPattern.MatchString(line):
		return Block{Kind: Step, Text: clean(line)}
	default:
		return Block{Kind: Paragraph, Text: clean(line)}
	}
}

func clean(s string) string {
	return strings.TrimSpace(strings.ReplaceAll(s, "**", ""))
}

// Flatten renders blocks back to text, one line per block. Formatting the
// result again yields the same blocks, except that a paragraph whose text
// is empty comes back as spacing. Paragraph text that would read as another
// kind is wrapped in bold markers, which Format strips again.
func Flatten(blocks []Block) string {
	var b strings.Builder
	for i, blk := range blocks {
		if i > 0 {
			b.WriteByte('\n')
		}
		switch blk.Kind {
		case Spacing:
		case Heading:
			b.WriteString("### " + blk.Text)
		case Bullet:
			b.WriteString("• " + blk.Text)
		default:
			if blk.Text != "" && classify(blk.Text).Kind != Paragraph {
				b.WriteString("**" + blk.Text + "**")
			} else {
				b.WriteString(blk.Text)
			}
		}
	}
	return b.String()
}
