package cli

import (
	"fmt"
	"io"
	"os"
	"path/filepath"

	"github.com/spf13/cobra"

	"equifolio/internal/markdown"
)

func newRenderCmd() *cobra.Command {
	var asHTML, plain bool
	cmd := &cobra.Command{
		Use:   "render [FILE]",
		Short: "Render analysis markdown from a file or stdin",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)

			title := "stdin"
			var r io.Reader = cmd.InOrStdin()
			if len(args) == 1 && args[0] != "-" {
				f, err := os.Open(args[0])
				if err != nil {
					return err
				}
				defer f.Close()
				r = f
				title = filepath.Base(args[0])
			}
			text, err := io.ReadAll(r)
			if err != nil {
				return fmt.Errorf("reading input: %w", err)
			}

			nodes := markdown.Render(string(text))
			switch {
			case a.opts.json:
				if nodes == nil {
					nodes = []markdown.Node{}
				}
				return emitJSON(cmd, nodes)
			case asHTML:
				return markdown.WriteHTML(cmd.OutOrStdout(), nodes)
			case plain:
				return writePlain(cmd.OutOrStdout(), nodes)
			}
			return emit(cmd, title, func(w int) string {
				return markdown.NewTerminal(w).Render(nodes)
			})
		},
	}
	cmd.Flags().BoolVar(&asHTML, "html", false, "Print HTML markup instead of terminal text")
	cmd.Flags().BoolVar(&plain, "plain", false, "Print unstyled text with markup removed")
	cmd.MarkFlagsMutuallyExclusive("html", "plain")
	return cmd
}

// writePlain prints one line per node with headings, list markers and bold
// delimiters stripped.
func writePlain(w io.Writer, nodes []markdown.Node) error {
	for _, n := range nodes {
		if _, err := fmt.Fprintln(w, n.PlainText()); err != nil {
			return err
		}
	}
	return nil
}
