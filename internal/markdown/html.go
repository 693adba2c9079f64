package markdown

import (
	"html"
	"io"
	"strings"
)

// CSS classes applied to each node kind in the web UI.
const (
	classH1       = "text-2xl font-bold text-gray-800 mt-6 mb-4"
	classH2       = "text-xl font-semibold text-gray-800 mt-5 mb-3"
	classH3       = "text-lg font-semibold text-gray-800 mt-4 mb-2"
	classPara     = "text-gray-700 mb-3 leading-relaxed"
	classBold     = "font-bold"
	classBullet   = "text-gray-700 ml-6 mb-1 leading-relaxed list-disc"
	classNumbered = "text-gray-700 ml-6 mb-1 leading-relaxed list-decimal"
	classSpacer   = "h-2"
)

// headingTags maps heading levels to HTML tags. Level 1 renders as <h2>
// because the page title already owns <h1>.
var headingTags = [...]string{1: "h2", 2: "h3", 3: "h4"}

// WriteHTML writes the markup for nodes to w. All text is escaped.
func WriteHTML(w io.Writer, nodes []Node) error {
	_, err := io.WriteString(w, HTML(nodes))
	return err
}

// HTML returns the markup for nodes as a string.
func HTML(nodes []Node) string {
	var b strings.Builder
	for _, n := range nodes {
		writeNodeHTML(&b, n)
	}
	return b.String()
}

func writeNodeHTML(b *strings.Builder, n Node) {
	switch n.Kind {
	case KindHeading:
		tag, class := "h4", classH3
		if n.Level >= 1 && n.Level < len(headingTags) {
			tag = headingTags[n.Level]
		}
		switch n.Level {
		case 1:
			class = classH1
		case 2:
			class = classH2
		}
		element(b, tag, class, html.EscapeString(n.Text))

	case KindListItem:
		class := classBullet
		if n.Ordered {
			class = classNumbered
		}
		element(b, "li", class, html.EscapeString(n.Text))

	case KindSpacer:
		element(b, "div", classSpacer, "")

	default:
		if len(n.Spans) == 0 {
			element(b, "p", classPara, html.EscapeString(n.Text))
			return
		}
		var inner strings.Builder
		for _, s := range n.Spans {
			if s.Bold {
				element(&inner, "span", classBold, html.EscapeString(s.Text))
			} else {
				element(&inner, "span", "", html.EscapeString(s.Text))
			}
		}
		element(b, "p", classPara, inner.String())
	}
}

// element writes <tag class="class">inner</tag>; inner must already be
// escaped.
func element(b *strings.Builder, tag, class, inner string) {
	b.WriteByte('<')
	b.WriteString(tag)
	if class != "" {
		b.WriteString(` class="`)
		b.WriteString(class)
		b.WriteByte('"')
	}
	b.WriteByte('>')
	b.WriteString(inner)
	b.WriteString("</")
	b.WriteString(tag)
	b.WriteString(">\n")
}
