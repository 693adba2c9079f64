package markdown

import (
	"strconv"
	"strings"

	"github.com/charmbracelet/lipgloss"
)

// Terminal renders nodes as styled text for an ANSI terminal.
type Terminal struct {
	// Width wraps paragraphs and list items when > 0.
	Width int

	H1     lipgloss.Style
	H2     lipgloss.Style
	H3     lipgloss.Style
	Bold   lipgloss.Style
	Marker lipgloss.Style
}

// NewTerminal returns a Terminal with the default palette.
func NewTerminal(width int) *Terminal {
	return &Terminal{
		Width:  width,
		H1:     lipgloss.NewStyle().Bold(true).Underline(true).Foreground(lipgloss.Color("12")),
		H2:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("14")),
		H3:     lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")),
		Bold:   lipgloss.NewStyle().Bold(true),
		Marker: lipgloss.NewStyle().Foreground(lipgloss.Color("245")),
	}
}

// Render returns the terminal text for nodes, one or more output lines per
// node. Runs of ordered list items are numbered from 1; the count restarts
// after any other node.
func (t *Terminal) Render(nodes []Node) string {
	var b strings.Builder
	num := 0
	for _, n := range nodes {
		if n.Kind == KindListItem && n.Ordered {
			num++
		} else {
			num = 0
		}

		switch n.Kind {
		case KindHeading:
			b.WriteString(t.heading(n.Level).Render(n.Text))
		case KindListItem:
			marker := "• "
			if n.Ordered {
				marker = strconv.Itoa(num) + ". "
			}
			b.WriteString(t.Marker.Render(marker))
			b.WriteString(t.wrap(n.Text, lipgloss.Width(marker)))
		case KindSpacer:
		default:
			if len(n.Spans) == 0 {
				b.WriteString(t.wrap(n.Text, 0))
				break
			}
			var line strings.Builder
			for _, s := range n.Spans {
				if s.Bold {
					line.WriteString(t.Bold.Render(s.Text))
				} else {
					line.WriteString(s.Text)
				}
			}
			b.WriteString(t.wrap(line.String(), 0))
		}
		b.WriteByte('\n')
	}
	return b.String()
}

func (t *Terminal) heading(level int) lipgloss.Style {
	switch level {
	case 1:
		return t.H1
	case 2:
		return t.H2
	default:
		return t.H3
	}
}

// wrap word-wraps s to the terminal width less indent, indenting
// continuation lines so they line up after a list marker.
func (t *Terminal) wrap(s string, indent int) string {
	if t.Width <= indent || t.Width <= 0 {
		return s
	}
	wrapped := lipgloss.NewStyle().Width(t.Width - indent).Render(s)
	if indent == 0 {
		return wrapped
	}
	return strings.ReplaceAll(wrapped, "\n", "\n"+strings.Repeat(" ", indent))
}
