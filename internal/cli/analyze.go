package cli

import (
	"encoding/base64"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"equifolio/internal/analysis"
	"equifolio/internal/markdown"
	"equifolio/internal/portfolio"
)

func newSentimentCmd() *cobra.Command {
	var days int
	cmd := &cobra.Command{
		Use:   "sentiment TICKER",
		Short: "Analyze recent news sentiment for a ticker",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)
			res, err := a.client.Sentiment(cmd.Context(), args[0], days)
			if err != nil {
				return err
			}
			if a.opts.json {
				return emitJSON(cmd, res)
			}
			return emit(cmd, res.Ticker+" "+analysis.KindSentiment.Title(), func(w int) string {
				return sentimentReport(res, w)
			})
		},
	}
	cmd.Flags().IntVar(&days, "days", analysis.DefaultDaysBack, "News window in days (3, 7, 14 or 30)")
	return cmd
}

func newFundamentalCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "fundamental TICKER",
		Short: "Analyze company fundamentals",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)
			res, err := a.client.Fundamental(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			if a.opts.json {
				return emitJSON(cmd, res)
			}
			return emit(cmd, res.Ticker+" "+analysis.KindFundamental.Title(), func(w int) string {
				return fundamentalReport(res, w)
			})
		},
	}
}

func newTechnicalCmd() *cobra.Command {
	var period, chartDir string
	cmd := &cobra.Command{
		Use:   "technical TICKER",
		Short: "Analyze price action and indicators",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)
			res, err := a.client.Technical(cmd.Context(), args[0], period)
			if err != nil {
				return err
			}
			if chartDir != "" {
				ticker, _ := analysis.NormalizeTicker(args[0])
				files, err := saveCharts(chartDir, ticker, period, res)
				if err != nil {
					return err
				}
				for _, f := range files {
					a.log.Info("saved chart", "path", f)
				}
			}
			if a.opts.json {
				return emitJSON(cmd, res)
			}
			return emit(cmd, res.Ticker+" "+analysis.KindTechnical.Title(), func(w int) string {
				return technicalReport(res, w)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", analysis.DefaultPeriod, "Lookback period: "+strings.Join(analysis.Periods, ", "))
	cmd.Flags().StringVar(&chartDir, "charts", "", "Directory to write the returned PNG charts to")
	return cmd
}

func newRiskCmd() *cobra.Command {
	var period string
	cmd := &cobra.Command{
		Use:   "risk [TICKER...]",
		Short: "Analyze portfolio risk (defaults to the sample portfolio)",
		RunE: func(cmd *cobra.Command, args []string) error {
			a := getApp(cmd)
			tickers := args
			if len(tickers) == 0 {
				tickers = portfolio.Tickers(portfolio.Holdings())
			}
			if period == "" {
				period = a.cfg.Portfolio.RiskPeriod
			}
			res, err := a.client.Risk(cmd.Context(), tickers, period)
			if err != nil {
				return err
			}
			if a.opts.json {
				return emitJSON(cmd, res)
			}
			return emit(cmd, "Portfolio Risk Analysis", func(w int) string {
				return riskReport(res, w)
			})
		},
	}
	cmd.Flags().StringVar(&period, "period", "", "Lookback period (default: portfolio.risk_period from config)")
	return cmd
}

// ---------------------------------------------------------------------------
// Reports
// ---------------------------------------------------------------------------

func sentimentReport(r *analysis.SentimentResponse, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.Ticker+" News Sentiment") + "\n\n")
	b.WriteString(field("Average Sentiment", 17, toneStyle(r.AverageSentiment).Render(analysis.FormatPercent(r.AverageSentiment, 1))) + "\n")
	b.WriteString(field("Articles Analyzed", 17, fmt.Sprint(r.ArticlesAnalyzed)) + "\n\n")
	b.WriteString(markdown.NewTerminal(width).Render(markdown.Render(r.Summary)))

	for i, art := range r.DetailedAnalyses {
		if i == 0 {
			b.WriteString("\n" + valueStyle.Render("Articles") + "\n")
		}
		b.WriteString("\n" + valueStyle.Render(art.Title) + "\n")
		b.WriteString(dimStyle.Render(strings.TrimSpace(art.Source+"  "+art.PublishedAt)) + "\n")
		b.WriteString(toneStyle(art.SentimentScore).Render(analysis.FormatPercent(art.SentimentScore, 1)) +
			dimStyle.Render(" sentiment, "+analysis.FormatPercent(art.Confidence, 1)+" confidence") + "\n")
		if art.KeyDrivers != "" {
			b.WriteString("Key drivers: " + art.KeyDrivers + "\n")
		}
		if art.MarketImpact != "" {
			b.WriteString("Market impact: " + art.MarketImpact + "\n")
		}
		if art.URL != "" {
			b.WriteString(dimStyle.Render(art.URL) + "\n")
		}
	}
	return b.String()
}

func fundamentalReport(r *analysis.FundamentalResponse, width int) string {
	var b strings.Builder
	title := r.Ticker
	if r.CompanyName != "" {
		title = r.CompanyName + " (" + r.Ticker + ")"
	}
	b.WriteString(titleStyle.Render(title) + "\n")
	if r.Sector != "" || r.Industry != "" {
		b.WriteString(dimStyle.Render(strings.Trim(r.Sector+" · "+r.Industry, " ·")) + "\n")
	}
	b.WriteString("\n" + metricsBlock(analysis.SortedMetrics(r.KeyMetrics)) + "\n")
	b.WriteString(markdown.NewTerminal(width).Render(markdown.Render(r.Analysis)))
	return b.String()
}

func technicalReport(r *analysis.TechnicalResponse, width int) string {
	var b strings.Builder
	b.WriteString(titleStyle.Render(r.Ticker+" Technical Analysis ("+analysis.PeriodLabel(r.Period)+")") + "\n\n")
	b.WriteString(metricsBlock(analysis.SortedMetrics(r.KeyMetrics)) + "\n")
	b.WriteString(markdown.NewTerminal(width).Render(markdown.Render(r.Analysis)))
	return b.String()
}

func riskReport(r *analysis.RiskResponse, width int) string {
	m := r.Metrics
	metrics := []analysis.Metric{
		{Label: "Tickers", Value: strings.Join(r.Tickers, ", ")},
		{Label: "Period", Value: analysis.PeriodLabel(r.Period)},
		{Label: "Annualized Return", Value: m.AnnualizedReturn},
		{Label: "Annualized Volatility", Value: m.AnnualizedVolatility},
		{Label: "Sharpe Ratio", Value: m.SharpeRatio},
		{Label: "Maximum Drawdown", Value: m.MaxDrawdown},
		{Label: "Value at Risk (95%)", Value: m.VaR95},
		{Label: "Average Correlation", Value: m.AverageCorrelation},
		{Label: "Risk Level", Value: portfolio.RiskLevel(m.AnnualizedVolatility)},
	}
	var b strings.Builder
	b.WriteString(titleStyle.Render("Portfolio Risk Analysis") + "\n\n")
	b.WriteString(metricsBlock(metrics) + "\n")
	b.WriteString(markdown.NewTerminal(width).Render(markdown.Render(r.Analysis)))
	return b.String()
}

// saveCharts decodes the base64 PNG charts in r into dir and returns the
// paths written. Files are named after the requested ticker and period, not
// the backend's echo of them.
func saveCharts(dir, ticker, period string, r *analysis.TechnicalResponse) ([]string, error) {
	if period == "" {
		period = analysis.DefaultPeriod
	}
	prefix := fileSafe(ticker) + "_" + fileSafe(period)
	charts := []struct{ name, data string }{
		{"price", r.Charts.PriceChart},
		{"rsi", r.Charts.RSIChart},
		{"macd", r.Charts.MACDChart},
	}
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, err
	}
	var written []string
	for _, c := range charts {
		if c.data == "" {
			continue
		}
		png, err := base64.StdEncoding.DecodeString(c.data)
		if err != nil {
			return written, fmt.Errorf("decoding %s chart: %w", c.name, err)
		}
		path := filepath.Join(dir, prefix+"_"+c.name+".png")
		if err := os.WriteFile(path, png, 0o644); err != nil {
			return written, err
		}
		written = append(written, path)
	}
	return written, nil
}

// fileSafe replaces every rune that is not a letter, digit, dot or dash.
func fileSafe(s string) string {
	s = strings.Map(func(r rune) rune {
		switch {
		case r >= 'A' && r <= 'Z', r >= 'a' && r <= 'z', r >= '0' && r <= '9', r == '.', r == '-':
			return r
		}
		return '_'
	}, s)
	if strings.Trim(s, ".") == "" {
		return "_"
	}
	return s
}
