package portfolio

import (
	"context"
	"fmt"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// QuoteSource supplies the latest trade price per symbol.
type QuoteSource interface {
	LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error)
}

// AlpacaQuotes reads latest trades from the Alpaca market data API.
type AlpacaQuotes struct {
	client *marketdata.Client
	feed   marketdata.Feed
}

// NewAlpacaQuotes creates a QuoteSource for the given credentials. An empty
// dataURL uses the SDK default endpoint.
func NewAlpacaQuotes(apiKey, apiSecret, dataURL string) *AlpacaQuotes {
	opts := marketdata.ClientOpts{
		APIKey:    apiKey,
		APISecret: apiSecret,
	}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaQuotes{
		client: marketdata.NewClient(opts),
		feed:   marketdata.IEX,
	}
}

// LatestPrices returns the last trade price for each symbol Alpaca knows.
// The SDK call does not take a context, so cancellation is only observed
// before the request and when the result arrives.
func (a *AlpacaQuotes) LatestPrices(ctx context.Context, symbols []string) (map[string]float64, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		trades map[string]marketdata.Trade
		err    error
	}
	done := make(chan result, 1)
	go func() {
		trades, err := a.client.GetLatestTrades(symbols, marketdata.GetLatestTradeRequest{Feed: a.feed})
		done <- result{trades, err}
	}()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r := <-done:
		if r.err != nil {
			return nil, fmt.Errorf("alpaca latest trades: %w", r.err)
		}
		prices := make(map[string]float64, len(r.trades))
		for sym, t := range r.trades {
			prices[sym] = t.Price
		}
		return prices, nil
	}
}

// StaticQuotes is a fixed QuoteSource, used when no market data
// credentials are configured and in tests.
type StaticQuotes map[string]float64

// LatestPrices returns the subset of the fixed prices for symbols.
func (s StaticQuotes) LatestPrices(_ context.Context, symbols []string) (map[string]float64, error) {
	out := make(map[string]float64, len(symbols))
	for _, sym := range symbols {
		if p, ok := s[sym]; ok {
			out[sym] = p
		}
	}
	return out, nil
}
