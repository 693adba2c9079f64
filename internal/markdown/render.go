// Package markdown renders the small markdown subset used by the analysis
// backend's narrative text (headings, bold spans, list items, blank lines)
// into a flat sequence of typed nodes, one per input line.
package markdown

import (
	"fmt"
	"regexp"
	"strings"
	"unicode"
)

// Kind identifies the type of a rendered node.
type Kind int

const (
	KindParagraph Kind = iota
	KindHeading
	KindListItem
	KindSpacer
)

var kindNames = [...]string{
	KindParagraph: "paragraph",
	KindHeading:   "heading",
	KindListItem:  "list_item",
	KindSpacer:    "spacer",
}

// String returns the lower-case name of the kind.
func (k Kind) String() string {
	if k < 0 || int(k) >= len(kindNames) {
		return "unknown"
	}
	return kindNames[k]
}

// MarshalText encodes the kind by name so JSON clients see "heading" rather
// than an integer.
func (k Kind) MarshalText() ([]byte, error) {
	return []byte(k.String()), nil
}

// UnmarshalText decodes a kind name produced by MarshalText.
func (k *Kind) UnmarshalText(b []byte) error {
	for i, name := range kindNames {
		if name == string(b) {
			*k = Kind(i)
			return nil
		}
	}
	return fmt.Errorf("unknown node kind %q", b)
}

// Span is a contiguous run of paragraph text, either plain or bold.
type Span struct {
	Text string `json:"text"`
	Bold bool   `json:"bold,omitempty"`
}

// Node is the rendering instruction produced for a single input line.
//
// Headings carry Level (1-3) and Text. List items carry Ordered and Text.
// Paragraphs carry either Spans (the line contained "**") or Text (plain).
// Spacers carry nothing.
type Node struct {
	Kind    Kind   `json:"kind"`
	Level   int    `json:"level,omitempty"`
	Ordered bool   `json:"ordered,omitempty"`
	Text    string `json:"text,omitempty"`
	Spans   []Span `json:"spans,omitempty"`
}

const boldDelim = "**"

// space matches the whitespace set used by browsers for \s and trim():
// ASCII whitespace including \v, Unicode space separators, the line and
// paragraph separators, and the byte order mark. U+0085 is not included.
const space = `[\t\n\v\f\r\p{Zs}\x{2028}\x{2029}\x{feff}]`

var (
	bulletPrefix       = regexp.MustCompile(`^-` + space + `+`)
	orderedMarker      = regexp.MustCompile(`^[0-9]+\.` + space)
	orderedPrefixStrip = regexp.MustCompile(`^[0-9]+\.` + space + `+`)
)

func isSpace(r rune) bool {
	switch r {
	case '\t', '\n', '\v', '\f', '\r', '\u2028', '\u2029', '\ufeff':
		return true
	}
	return unicode.Is(unicode.Zs, r)
}

// Render splits text on line feeds and classifies every line independently.
// The result always has exactly one node per line; empty text yields nil.
func Render(text string) []Node {
	if text == "" {
		return nil
	}
	lines := strings.Split(text, "\n")
	nodes := make([]Node, 0, len(lines))
	for _, line := range lines {
		nodes = append(nodes, renderLine(line))
	}
	return nodes
}

// renderLine classifies a single line. Order matters: headings, then bold
// paragraphs, then list items, spacers and plain paragraphs.
func renderLine(line string) Node {
	switch {
	case strings.HasPrefix(line, "# "):
		return Node{Kind: KindHeading, Level: 1, Text: line[2:]}
	case strings.HasPrefix(line, "## "):
		return Node{Kind: KindHeading, Level: 2, Text: line[3:]}
	case strings.HasPrefix(line, "### "):
		return Node{Kind: KindHeading, Level: 3, Text: line[4:]}
	case strings.Contains(line, boldDelim):
		return Node{Kind: KindParagraph, Spans: parseBold(line)}
	}

	trimmed := strings.TrimFunc(line, isSpace)
	switch {
	case strings.HasPrefix(trimmed, "- "):
		return Node{Kind: KindListItem, Text: bulletPrefix.ReplaceAllLiteralString(line, "")}
	case orderedMarker.MatchString(trimmed):
		return Node{Kind: KindListItem, Ordered: true, Text: orderedPrefixStrip.ReplaceAllLiteralString(line, "")}
	case trimmed == "":
		return Node{Kind: KindSpacer}
	default:
		return Node{Kind: KindParagraph, Text: line}
	}
}

// parseBold splits line into alternating plain and bold spans. Scanning
// stops at the first "**" with no closing partner; whatever is left,
// delimiter included, becomes a single plain span.
func parseBold(line string) []Span {
	var spans []Span
	rest := line
	for {
		start := strings.Index(rest, boldDelim)
		if start == -1 {
			break
		}
		end := strings.Index(rest[start+len(boldDelim):], boldDelim)
		if end == -1 {
			break
		}
		end += start + len(boldDelim)

		if start > 0 {
			spans = append(spans, Span{Text: rest[:start]})
		}
		spans = append(spans, Span{Text: rest[start+len(boldDelim) : end], Bold: true})
		rest = rest[end+len(boldDelim):]
	}
	if rest != "" {
		spans = append(spans, Span{Text: rest})
	}
	return spans
}

// PlainText returns the node's visible text with bold markers removed.
func (n Node) PlainText() string {
	if len(n.Spans) == 0 {
		return n.Text
	}
	var b strings.Builder
	for _, s := range n.Spans {
		b.WriteString(s.Text)
	}
	return b.String()
}
