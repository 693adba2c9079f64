// Package portfolio holds the sample portfolio shown on the dashboard and
// the helpers that summarise it.
package portfolio

import (
	"strconv"
	"strings"
	"unicode"
)

// Holding is one position in the portfolio.
type Holding struct {
	Name   string  `json:"name"`
	Symbol string  `json:"symbol"`
	Shares float64 `json:"shares"`
	Price  float64 `json:"price"`
	Value  float64 `json:"value"`
	Change float64 `json:"change"` // 24h change, percent
}

// sampleHoldings is the fixed demo portfolio; there is no persistence.
var sampleHoldings = []Holding{
	{Name: "Apple Inc.", Symbol: "AAPL", Shares: 50, Price: 175.50, Value: 8775.00, Change: 1.25},
	{Name: "Microsoft Corporation", Symbol: "MSFT", Shares: 25, Price: 320.20, Value: 8005.00, Change: 0.75},
	{Name: "Amazon.com Inc.", Symbol: "AMZN", Shares: 15, Price: 128.25, Value: 1923.75, Change: -0.50},
	{Name: "Tesla Inc.", Symbol: "TSLA", Shares: 20, Price: 240.50, Value: 4810.00, Change: 2.10},
	{Name: "Google (Alphabet Inc.)", Symbol: "GOOGL", Shares: 10, Price: 122.75, Value: 1227.50, Change: 0.30},
}

// Holdings returns a copy of the sample portfolio.
func Holdings() []Holding {
	out := make([]Holding, len(sampleHoldings))
	copy(out, sampleHoldings)
	return out
}

// Tickers returns the symbols of h in order.
func Tickers(h []Holding) []string {
	out := make([]string, len(h))
	for i := range h {
		out[i] = h[i].Symbol
	}
	return out
}

// TotalValue sums the value of every holding.
func TotalValue(h []Holding) float64 {
	var total float64
	for i := range h {
		total += h[i].Value
	}
	return total
}

// Weights returns each holding's share of TotalValue keyed by symbol.
// An empty or zero-value portfolio yields an empty map.
func Weights(h []Holding) map[string]float64 {
	out := make(map[string]float64, len(h))
	total := TotalValue(h)
	if total == 0 {
		return out
	}
	for i := range h {
		out[h[i].Symbol] += h[i].Value / total
	}
	return out
}

// Refresh returns a copy of h with prices replaced from prices and values
// recomputed as shares × price. Symbols missing from prices, or priced at
// zero, keep their existing figures.
func Refresh(h []Holding, prices map[string]float64) []Holding {
	out := make([]Holding, len(h))
	copy(out, h)
	for i := range out {
		p, ok := prices[out[i].Symbol]
		if !ok || p <= 0 {
			continue
		}
		out[i].Price = p
		out[i].Value = out[i].Shares * p
	}
	return out
}

// Risk levels derived from annualised volatility.
const (
	RiskHigh         = "High"
	RiskModerate     = "Moderate"
	RiskLow          = "Low"
	RiskNotAvailable = "Not Available"
)

// RiskLevel classifies an annualised volatility string such as "18.5%":
// above 25 is High, above 15 Moderate, otherwise Low. Strings without a
// leading number are Not Available.
func RiskLevel(volatility string) string {
	v, ok := leadingFloat(volatility)
	switch {
	case !ok:
		return RiskNotAvailable
	case v > 25:
		return RiskHigh
	case v > 15:
		return RiskModerate
	default:
		return RiskLow
	}
}

// leadingFloat parses the longest numeric prefix of s, ignoring leading
// whitespace, so "18.5%" yields 18.5.
func leadingFloat(s string) (float64, bool) {
	s = strings.TrimLeftFunc(s, unicode.IsSpace)
	end := 0
	seenDigit, seenDot := false, false
scan:
	for end < len(s) {
		c := s[end]
		switch {
		case c >= '0' && c <= '9':
			seenDigit = true
		case c == '.' && !seenDot:
			seenDot = true
		case (c == '-' || c == '+') && end == 0:
		default:
			break scan
		}
		end++
	}
	if !seenDigit {
		return 0, false
	}
	f, err := strconv.ParseFloat(strings.TrimSuffix(s[:end], "."), 64)
	if err != nil {
		return 0, false
	}
	return f, true
}
