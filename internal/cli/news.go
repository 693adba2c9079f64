package cli

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"equifolio/internal/analysis"
	"equifolio/internal/markdown"
	"equifolio/internal/news"
)

func newNewsCmd() *cobra.Command {
	var (
		days   int
		limit  int
		source string
	)
	cmd := &cobra.Command{
		Use:   "news TICKER",
		Short: "List recent headlines for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)
			ticker, err := analysis.NormalizeTicker(args[0])
			if err != nil {
				return err
			}
			if !analysis.ValidDaysBack(days) {
				return fmt.Errorf("%w: %d", analysis.ErrInvalidDaysBack, days)
			}

			var feed news.Feed
			switch source {
			case "alpaca":
				if !a.cfg.Alpaca.Enabled() {
					return fmt.Errorf("--source alpaca needs APCA_API_KEY_ID and APCA_API_SECRET_KEY")
				}
				feed = news.NewAlpacaFeed(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL)
			case "google":
				feed = news.NewGoogleFeed()
			case "":
				feed = news.NewGoogleFeed()
				if a.cfg.Alpaca.Enabled() {
					feed = news.NewAlpacaFeed(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL)
				}
			default:
				return fmt.Errorf("unknown news source %q", source)
			}

			end := time.Now()
			start := end.AddDate(0, 0, -days)
			articles, err := feed.Headlines(cmd.Context(), ticker, start, end, limit)
			if err != nil {
				return err
			}
			a.log.Debug("fetched headlines", "source", feed.Name(), "ticker", ticker, "count", len(articles))

			if a.opts.json {
				if articles == nil {
					articles = []news.Article{}
				}
				return emitJSON(cmd, articles)
			}
			nodes := markdown.Render(news.Markdown(ticker, articles))
			return emit(cmd, ticker+" News", func(w int) string {
				return markdown.NewTerminal(w).Render(nodes)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", analysis.DefaultDaysBack, "News window in days (3, 7, 14 or 30)")
	cmd.Flags().IntVar(&limit, "limit", 20, "Maximum number of headlines")
	cmd.Flags().StringVar(&source, "source", "", "Headline source: alpaca or google (default: alpaca when credentials are set)")
	return cmd
}
