package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"equifolio/internal/portfolio"
)

func newPortfolioCmd() *cobra.Command {
	var live bool
	cmd := &cobra.Command{
		Use:   "portfolio",
		Short: "Show the sample portfolio holdings",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)
			holdings := portfolio.Holdings()
			if live {
				if !a.cfg.Alpaca.Enabled() {
					return fmt.Errorf("--live needs APCA_API_KEY_ID and APCA_API_SECRET_KEY")
				}
				q := portfolio.NewAlpacaQuotes(a.cfg.Alpaca.APIKey, a.cfg.Alpaca.APISecret, a.cfg.Alpaca.DataURL)
				prices, err := q.LatestPrices(cmd.Context(), portfolio.Tickers(holdings))
				if err != nil {
					return err
				}
				holdings = portfolio.Refresh(holdings, prices)
				a.log.Debug("refreshed prices", "symbols", len(prices))
			}
			if a.opts.json {
				return emitJSON(cmd, struct {
					Holdings   []portfolio.Holding `json:"holdings"`
					TotalValue float64             `json:"totalValue"`
				}{holdings, portfolio.TotalValue(holdings)})
			}
			return emit(cmd, "Portfolio", func(int) string {
				return holdingsTable(holdings)
			})
		},
	}
	cmd.Flags().BoolVar(&live, "live", false, "Refresh prices from Alpaca market data")
	return cmd
}

// holdingsTable renders holdings as fixed-width columns with a total row.
func holdingsTable(h []portfolio.Holding) string {
	nameW := len("Asset")
	for _, x := range h {
		nameW = max(nameW, len(x.Name))
	}

	var b strings.Builder
	header := fmt.Sprintf("%-*s  %-6s  %8s  %12s  %14s  %8s", nameW, "Asset", "Symbol", "Shares", "Price", "Value", "24h")
	b.WriteString(labelStyle.Render(header) + "\n")
	for _, x := range h {
		chg := fmt.Sprintf("%8s", portfolio.FormatChange(x.Change))
		if x.Change >= 0 {
			chg = gainStyle.Render(chg)
		} else {
			chg = lossStyle.Render(chg)
		}
		fmt.Fprintf(&b, "%-*s  %-6s  %8s  %12s  %14s  %s\n",
			nameW, x.Name, x.Symbol,
			portfolio.FormatShares(x.Shares),
			portfolio.FormatMoney(x.Price),
			portfolio.FormatMoney(x.Value),
			chg,
		)
	}
	total := fmt.Sprintf("%-*s  %-6s  %8s  %12s  %14s", nameW, "Total", "", "", "", portfolio.FormatMoney(portfolio.TotalValue(h)))
	b.WriteString(valueStyle.Render(total) + "\n")
	return b.String()
}
