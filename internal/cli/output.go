package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/charmbracelet/lipgloss"
	"github.com/spf13/cobra"
	"golang.org/x/term"

	"equifolio/internal/analysis"
	"equifolio/internal/pager"
)

const defaultWidth = 80

var (
	titleStyle = lipgloss.NewStyle().Bold(true).Foreground(lipgloss.Color("15")).Background(lipgloss.Color("4")).Padding(0, 1)
	labelStyle = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
	valueStyle = lipgloss.NewStyle().Bold(true)
	gainStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	lossStyle  = lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	dimStyle   = lipgloss.NewStyle().Foreground(lipgloss.Color("245"))
)

// toneStyle colors a sentiment score the way the web UI does.
func toneStyle(score float64) lipgloss.Style {
	switch analysis.SentimentTone(score) {
	case analysis.TonePositive:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("10"))
	case analysis.ToneNeutral:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("12"))
	case analysis.ToneWeak:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("11"))
	default:
		return lipgloss.NewStyle().Foreground(lipgloss.Color("9"))
	}
}

// terminalFile returns w as an *os.File when it is attached to a terminal.
func terminalFile(w io.Writer) (*os.File, bool) {
	f, ok := w.(*os.File)
	if !ok || !term.IsTerminal(int(f.Fd())) {
		return nil, false
	}
	return f, true
}

// outputWidth is the --width flag, else the terminal width, else 80.
func outputWidth(cmd *cobra.Command) int {
	if w := getApp(cmd).opts.width; w > 0 {
		return w
	}
	if f, ok := terminalFile(cmd.OutOrStdout()); ok {
		if w, _, err := term.GetSize(int(f.Fd())); err == nil && w > 0 {
			return w
		}
	}
	return defaultWidth
}

// emit prints the output of render. With --pager and a terminal on stdout
// it opens the full-screen pager instead, re-rendering on resize.
func emit(cmd *cobra.Command, title string, render func(width int) string) error {
	a := getApp(cmd)
	if a.opts.pager {
		if _, ok := terminalFile(cmd.OutOrStdout()); ok {
			return pager.Run(title, func(width int) string {
				if a.opts.width > 0 {
					width = a.opts.width
				}
				return render(width)
			})
		}
	}
	out := render(outputWidth(cmd))
	if !strings.HasSuffix(out, "\n") {
		out += "\n"
	}
	_, err := io.WriteString(cmd.OutOrStdout(), out)
	return err
}

func emitJSON(cmd *cobra.Command, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return err
	}
	_, err = fmt.Fprintln(cmd.OutOrStdout(), string(b))
	return err
}

// field formats one "label  value" line with the label padded to width.
func field(label string, width int, value string) string {
	return labelStyle.Render(fmt.Sprintf("%-*s", width, label)) + "  " + valueStyle.Render(value)
}

// metricsBlock lays out metrics as aligned label/value lines.
func metricsBlock(metrics []analysis.Metric) string {
	if len(metrics) == 0 {
		return ""
	}
	w := 0
	for _, m := range metrics {
		w = max(w, lipgloss.Width(m.Label))
	}
	var b strings.Builder
	for _, m := range metrics {
		b.WriteString(field(m.Label, w, m.Value))
		b.WriteByte('\n')
	}
	return b.String()
}
