// Package analysis is the client for the stock analysis backend: it issues
// sentiment, fundamental, technical and portfolio risk requests and decodes
// the JSON the backend returns.
package analysis

import (
	"errors"
	"fmt"
	"slices"
	"strings"
)

// Kind names an analysis endpoint.
type Kind string

const (
	KindSentiment   Kind = "sentiment"
	KindFundamental Kind = "fundamental"
	KindTechnical   Kind = "technical"
	KindRisk        Kind = "risk"
)

// Kinds lists the single-ticker analyses in the order the UI offers them.
var Kinds = []Kind{KindFundamental, KindTechnical, KindSentiment}

// ParseKind returns the Kind named by s (case-insensitive).
func ParseKind(s string) (Kind, error) {
	k := Kind(strings.ToLower(strings.TrimSpace(s)))
	switch k {
	case KindSentiment, KindFundamental, KindTechnical, KindRisk:
		return k, nil
	}
	return "", fmt.Errorf("unknown analysis type %q", s)
}

// Title returns the display name, e.g. "Fundamental Analysis".
func (k Kind) Title() string {
	if k == "" {
		return ""
	}
	return strings.ToUpper(string(k[:1])) + string(k[1:]) + " Analysis"
}

// Request defaults and allowed values.
const (
	DefaultPeriod   = "1y"
	DefaultDaysBack = 7
)

var (
	Periods         = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y"}
	DaysBackOptions = []int{3, 7, 14, 30}
)

// PeriodLabel returns the human label for a period code, e.g. "6 Months".
func PeriodLabel(p string) string {
	switch p {
	case "1mo":
		return "1 Month"
	case "3mo":
		return "3 Months"
	case "6mo":
		return "6 Months"
	case "1y":
		return "1 Year"
	case "2y":
		return "2 Years"
	case "5y":
		return "5 Years"
	}
	return p
}

// ValidPeriod reports whether p is one of Periods.
func ValidPeriod(p string) bool { return slices.Contains(Periods, p) }

// ValidDaysBack reports whether n is one of DaysBackOptions.
func ValidDaysBack(n int) bool { return slices.Contains(DaysBackOptions, n) }

// Validation errors.
var (
	ErrEmptyTicker     = errors.New("ticker is required")
	ErrNoTickers       = errors.New("at least one ticker is required")
	ErrInvalidPeriod   = errors.New("invalid period")
	ErrInvalidDaysBack = errors.New("invalid days back")
)

// NormalizeTicker trims and upper-cases a ticker symbol.
func NormalizeTicker(t string) (string, error) {
	t = strings.ToUpper(strings.TrimSpace(t))
	if t == "" {
		return "", ErrEmptyTicker
	}
	return t, nil
}

// ---------------------------------------------------------------------------
// Requests
// ---------------------------------------------------------------------------

// SentimentRequest is the body for POST /sentiment/.
type SentimentRequest struct {
	Ticker   string `json:"ticker"`
	DaysBack int    `json:"days_back"`
}

// FundamentalRequest is the body for POST /fundamental/.
type FundamentalRequest struct {
	Ticker string `json:"ticker"`
}

// TechnicalRequest is the body for POST /technical/.
type TechnicalRequest struct {
	Ticker string `json:"ticker"`
	Period string `json:"period"`
}

// RiskRequest is the body for POST /risk/.
type RiskRequest struct {
	Tickers []string `json:"tickers"`
	Period  string   `json:"period"`
}

// ---------------------------------------------------------------------------
// Responses
// ---------------------------------------------------------------------------

// ArticleAnalysis is the backend's assessment of one news article.
type ArticleAnalysis struct {
	SentimentScore float64 `json:"sentiment_score"`
	Confidence     float64 `json:"confidence"`
	KeyDrivers     string  `json:"key_drivers"`
	MarketImpact   string  `json:"market_impact"`
	Source         string  `json:"source"`
	Title          string  `json:"title"`
	URL            string  `json:"url"`
	PublishedAt    string  `json:"published_at"`
}

// SentimentResponse is returned by the sentiment endpoint.
type SentimentResponse struct {
	Status           string            `json:"status"`
	Ticker           string            `json:"ticker"`
	AverageSentiment float64           `json:"average_sentiment"`
	ArticlesAnalyzed int               `json:"articles_analyzed"`
	Summary          string            `json:"summary"`
	DetailedAnalyses []ArticleAnalysis `json:"detailed_analyses"`
}

// FundamentalResponse is returned by the fundamental endpoint.
type FundamentalResponse struct {
	Status      string         `json:"status"`
	Ticker      string         `json:"ticker"`
	CompanyName string         `json:"company_name"`
	Sector      string         `json:"sector"`
	Industry    string         `json:"industry"`
	KeyMetrics  map[string]any `json:"key_metrics"`
	Analysis    string         `json:"analysis"`
}

// TechnicalCharts holds base64-encoded PNG charts.
type TechnicalCharts struct {
	PriceChart string `json:"price_chart,omitempty"`
	RSIChart   string `json:"rsi_chart,omitempty"`
	MACDChart  string `json:"macd_chart,omitempty"`
}

// TechnicalResponse is returned by the technical endpoint.
type TechnicalResponse struct {
	Status     string          `json:"status"`
	Ticker     string          `json:"ticker"`
	Period     string          `json:"period"`
	KeyMetrics map[string]any  `json:"key_metrics"`
	Analysis   string          `json:"analysis"`
	Charts     TechnicalCharts `json:"charts"`
}

// RiskMetrics are pre-formatted portfolio statistics, e.g. "18.2%".
type RiskMetrics struct {
	AnnualizedReturn     string `json:"annualized_return"`
	AnnualizedVolatility string `json:"annualized_volatility"`
	SharpeRatio          string `json:"sharpe_ratio"`
	MaxDrawdown          string `json:"max_drawdown"`
	VaR95                string `json:"var_95"`
	AverageCorrelation   string `json:"average_correlation"`
}

// RiskCharts holds HTML chart fragments produced by the backend.
type RiskCharts struct {
	CorrelationHeatmap string `json:"correlation_heatmap"`
	SectorChart        string `json:"sector_chart"`
}

// RiskResponse is returned by the risk endpoint.
type RiskResponse struct {
	Status   string      `json:"status"`
	Tickers  []string    `json:"tickers"`
	Period   string      `json:"period"`
	Metrics  RiskMetrics `json:"metrics"`
	Analysis string      `json:"analysis"`
	Charts   RiskCharts  `json:"charts"`
}
