package portfolio

import (
	"context"
	"math"
	"reflect"
	"testing"
)

func TestHoldingsIsCopy(t *testing.T) {
	h := Holdings()
	if len(h) != 5 {
		t.Fatalf("len(Holdings()) = %d, want 5", len(h))
	}
	h[0].Price = 1
	if Holdings()[0].Price == 1 {
		t.Error("Holdings() returned shared backing array")
	}
}

func TestTickers(t *testing.T) {
	want := []string{"AAPL", "MSFT", "AMZN", "TSLA", "GOOGL"}
	if got := Tickers(Holdings()); !reflect.DeepEqual(got, want) {
		t.Errorf("Tickers() = %v, want %v", got, want)
	}
}

func TestTotalValue(t *testing.T) {
	got := TotalValue(Holdings())
	if math.Abs(got-24741.25) > 1e-9 {
		t.Errorf("TotalValue() = %v, want 24741.25", got)
	}
	if TotalValue(nil) != 0 {
		t.Error("TotalValue(nil) should be 0")
	}
}

func TestWeights(t *testing.T) {
	h := []Holding{{Symbol: "A", Value: 75}, {Symbol: "B", Value: 25}}
	w := Weights(h)
	if w["A"] != 0.75 || w["B"] != 0.25 {
		t.Errorf("Weights() = %v", w)
	}
	if len(Weights(nil)) != 0 {
		t.Error("Weights(nil) should be empty")
	}
}

func TestRefresh(t *testing.T) {
	h := []Holding{
		{Symbol: "AAPL", Shares: 10, Price: 100, Value: 1000},
		{Symbol: "MSFT", Shares: 2, Price: 300, Value: 600},
		{Symbol: "TSLA", Shares: 1, Price: 200, Value: 200},
	}
	got := Refresh(h, map[string]float64{"AAPL": 150, "TSLA": 0, "XYZ": 5})

	if got[0].Price != 150 || got[0].Value != 1500 {
		t.Errorf("AAPL = %+v, want price 150 value 1500", got[0])
	}
	if got[1] != h[1] {
		t.Errorf("MSFT changed without a quote: %+v", got[1])
	}
	if got[2] != h[2] {
		t.Errorf("TSLA changed on zero quote: %+v", got[2])
	}
	if h[0].Price != 100 {
		t.Error("Refresh mutated its input")
	}
}

func TestRiskLevel(t *testing.T) {
	tests := map[string]string{
		"30.2%":  RiskHigh,
		"25%":    RiskModerate,
		"18.5%":  RiskModerate,
		"15":     RiskLow,
		" 9.1 %": RiskLow,
		"-3%":    RiskLow,
		"N/A":    RiskNotAvailable,
		"":       RiskNotAvailable,
		"%":      RiskNotAvailable,
	}
	for in, want := range tests {
		if got := RiskLevel(in); got != want {
			t.Errorf("RiskLevel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormat(t *testing.T) {
	tests := []struct {
		got, want string
	}{
		{FormatInt(0), "0"},
		{FormatInt(999), "999"},
		{FormatInt(1234567), "1,234,567"},
		{FormatInt(-4321), "-4,321"},
		{FormatMoney(24741.25), "$24,741.25"},
		{FormatMoney(0.5), "$0.50"},
		{FormatMoney(-12.34), "-$12.34"},
		{FormatChange(1.25), "+1.25%"},
		{FormatChange(-0.5), "-0.5%"},
		{FormatChange(0), "+0%"},
		{FormatShares(50), "50"},
		{FormatShares(1.5), "1.5"},
	}
	for _, tt := range tests {
		if tt.got != tt.want {
			t.Errorf("got %q, want %q", tt.got, tt.want)
		}
	}
}

func TestStaticQuotes(t *testing.T) {
	q := StaticQuotes{"AAPL": 190, "MSFT": 410}
	got, err := q.LatestPrices(context.Background(), []string{"AAPL", "GOOGL"})
	if err != nil {
		t.Fatalf("LatestPrices() returned error: %v", err)
	}
	if !reflect.DeepEqual(got, map[string]float64{"AAPL": 190}) {
		t.Errorf("LatestPrices() = %v", got)
	}
}

func TestAlpacaQuotesCancelled(t *testing.T) {
	q := NewAlpacaQuotes("key", "secret", "http://127.0.0.1:1")
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := q.LatestPrices(ctx, []string{"AAPL"}); err != context.Canceled {
		t.Errorf("LatestPrices() error = %v, want context.Canceled", err)
	}
}
