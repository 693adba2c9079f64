package analysis

import (
	"fmt"
	"math"
	"sort"
	"strconv"
	"strings"
	"unicode"
	"unicode/utf8"
)

// Tone buckets a sentiment score for display.
type Tone string

const (
	TonePositive Tone = "positive"
	ToneNeutral  Tone = "neutral"
	ToneWeak     Tone = "weak"
	ToneNegative Tone = "negative"
)

// SentimentTone classifies a score in [0, 1]: >= 0.6 positive, >= 0.4
// neutral, > 0 weak, otherwise negative.
func SentimentTone(score float64) Tone {
	switch {
	case score >= 0.6:
		return TonePositive
	case score >= 0.4:
		return ToneNeutral
	case score > 0:
		return ToneWeak
	default:
		return ToneNegative
	}
}

// FormatPercent formats a 0-1 score as a percentage with the given number
// of decimals, e.g. FormatPercent(0.625, 1) == "62.5%".
func FormatPercent(score float64, decimals int) string {
	return strconv.FormatFloat(score*100, 'f', decimals, 64) + "%"
}

// Metric is one displayable key metric.
type Metric struct {
	Key   string
	Label string
	Value string
}

// MetricLabel turns a snake_case key into a title-cased label:
// "pe_ratio" becomes "Pe Ratio".
func MetricLabel(key string) string {
	words := strings.Fields(strings.ReplaceAll(key, "_", " "))
	for i, w := range words {
		r, size := utf8.DecodeRuneInString(w)
		words[i] = string(unicode.ToUpper(r)) + w[size:]
	}
	return strings.Join(words, " ")
}

// FormatMetric renders a decoded JSON metric value for display.
func FormatMetric(v any) string {
	switch x := v.(type) {
	case nil:
		return "N/A"
	case string:
		if x == "" {
			return "N/A"
		}
		return x
	case bool:
		if x {
			return "Yes"
		}
		return "No"
	case float64:
		return formatNumber(x)
	case int:
		return formatNumber(float64(x))
	default:
		return fmt.Sprint(x)
	}
}

// formatNumber prints whole numbers with thousands separators and keeps
// fractional values as the shortest exact representation.
func formatNumber(f float64) string {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return "N/A"
	}
	if f != math.Trunc(f) || math.Abs(f) >= 1e15 {
		return strconv.FormatFloat(f, 'f', -1, 64)
	}
	n := int64(f)
	neg := n < 0
	if neg {
		n = -n
	}
	s := strconv.FormatInt(n, 10)
	var b strings.Builder
	if neg {
		b.WriteByte('-')
	}
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// SortedMetrics returns the metrics ordered by key.
func SortedMetrics(m map[string]any) []Metric {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := make([]Metric, 0, len(keys))
	for _, k := range keys {
		out = append(out, Metric{Key: k, Label: MetricLabel(k), Value: FormatMetric(m[k])})
	}
	return out
}
