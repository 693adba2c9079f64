package portfolio

import (
	"fmt"
	"math"
	"strconv"
	"strings"
)

// FormatInt formats an integer with comma separators.
func FormatInt(n int64) string {
	if n < 0 {
		return "-" + FormatInt(-n)
	}
	s := strconv.FormatInt(n, 10)
	if len(s) <= 3 {
		return s
	}
	var b strings.Builder
	start := len(s) % 3
	if start > 0 {
		b.WriteString(s[:start])
	}
	for i := start; i < len(s); i += 3 {
		if b.Len() > 0 {
			b.WriteByte(',')
		}
		b.WriteString(s[i : i+3])
	}
	return b.String()
}

// FormatMoney formats a dollar amount as "$1,234.56".
func FormatMoney(v float64) string {
	sign := ""
	if v < 0 {
		sign = "-"
		v = -v
	}
	cents := int64(math.Round(v * 100))
	return fmt.Sprintf("%s$%s.%02d", sign, FormatInt(cents/100), cents%100)
}

// FormatChange formats a percent change as "+1.25%" or "-0.5%". Zero is
// shown with a plus sign.
func FormatChange(pct float64) string {
	s := strconv.FormatFloat(pct, 'f', -1, 64) + "%"
	if pct >= 0 {
		return "+" + s
	}
	return s
}

// FormatShares drops the fraction for whole share counts.
func FormatShares(n float64) string {
	if n == math.Trunc(n) {
		return FormatInt(int64(n))
	}
	return strconv.FormatFloat(n, 'f', -1, 64)
}
