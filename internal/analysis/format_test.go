package analysis

import (
	"reflect"
	"testing"
)

func TestSentimentTone(t *testing.T) {
	tests := []struct {
		score float64
		want  Tone
	}{
		{0.9, TonePositive},
		{0.6, TonePositive},
		{0.59, ToneNeutral},
		{0.4, ToneNeutral},
		{0.1, ToneWeak},
		{0, ToneNegative},
		{-0.3, ToneNegative},
	}
	for _, tt := range tests {
		if got := SentimentTone(tt.score); got != tt.want {
			t.Errorf("SentimentTone(%v) = %q, want %q", tt.score, got, tt.want)
		}
	}
}

func TestFormatPercent(t *testing.T) {
	if got := FormatPercent(0.625, 1); got != "62.5%" {
		t.Errorf("FormatPercent(0.625, 1) = %q", got)
	}
	if got := FormatPercent(0.8, 0); got != "80%" {
		t.Errorf("FormatPercent(0.8, 0) = %q", got)
	}
}

func TestMetricLabel(t *testing.T) {
	tests := map[string]string{
		"pe_ratio":        "Pe Ratio",
		"market_cap":      "Market Cap",
		"rsi":             "Rsi",
		"debt__to_equity": "Debt To Equity",
		"":                "",
	}
	for in, want := range tests {
		if got := MetricLabel(in); got != want {
			t.Errorf("MetricLabel(%q) = %q, want %q", in, got, want)
		}
	}
}

func TestFormatMetric(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, "N/A"},
		{"", "N/A"},
		{"$2.8T", "$2.8T"},
		{true, "Yes"},
		{false, "No"},
		{35.25, "35.25"},
		{float64(3000000000000), "3,000,000,000,000"},
		{float64(-1234), "-1,234"},
		{float64(999), "999"},
		{7, "7"},
		{[]any{"a"}, "[a]"},
	}
	for _, tt := range tests {
		if got := FormatMetric(tt.in); got != tt.want {
			t.Errorf("FormatMetric(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestSortedMetrics(t *testing.T) {
	got := SortedMetrics(map[string]any{"rsi": 55.5, "beta": 1.1, "sma_50": "190.2"})
	want := []Metric{
		{Key: "beta", Label: "Beta", Value: "1.1"},
		{Key: "rsi", Label: "Rsi", Value: "55.5"},
		{Key: "sma_50", Label: "Sma 50", Value: "190.2"},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("SortedMetrics = %+v, want %+v", got, want)
	}
}

func TestParseKind(t *testing.T) {
	for _, s := range []string{"sentiment", "Fundamental", " technical ", "RISK"} {
		if _, err := ParseKind(s); err != nil {
			t.Errorf("ParseKind(%q) returned error: %v", s, err)
		}
	}
	if _, err := ParseKind("quant"); err == nil {
		t.Error("ParseKind(quant) should fail")
	}
	if got := KindFundamental.Title(); got != "Fundamental Analysis" {
		t.Errorf("Title() = %q", got)
	}
}

func TestPeriodsAndDays(t *testing.T) {
	if !ValidPeriod("6mo") || ValidPeriod("7y") {
		t.Error("ValidPeriod mismatch")
	}
	if !ValidDaysBack(30) || ValidDaysBack(0) {
		t.Error("ValidDaysBack mismatch")
	}
	if got := PeriodLabel("2y"); got != "2 Years" {
		t.Errorf("PeriodLabel(2y) = %q", got)
	}
}
