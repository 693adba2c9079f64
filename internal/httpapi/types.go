package httpapi

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"
	"strings"

	"equifolio/internal/analysis"
	"equifolio/internal/portfolio"
)

// analysisForm is the user input for one analysis request, from either an
// HTML form or API query parameters.
type analysisForm struct {
	Kind     analysis.Kind
	Ticker   string
	Period   string
	DaysBack string
	Tickers  []string // risk only
}

// formFromRequest reads an analysis form posted by the UI. The kind comes
// from the "type" field and falls back to def.
func formFromRequest(r *http.Request, def analysis.Kind) (analysisForm, error) {
	if err := r.ParseForm(); err != nil {
		return analysisForm{}, fmt.Errorf("parsing form: %w", err)
	}
	f := analysisForm{
		Kind:     def,
		Ticker:   r.PostForm.Get("ticker"),
		Period:   r.PostForm.Get("period"),
		DaysBack: r.PostForm.Get("days_back"),
	}
	if v := r.PostForm.Get("type"); v != "" {
		k, err := analysis.ParseKind(v)
		if err != nil {
			return f, err
		}
		f.Kind = k
	}
	return f, nil
}

// daysBack parses the days_back field, defaulting when empty.
func (f analysisForm) daysBack() (int, error) {
	if strings.TrimSpace(f.DaysBack) == "" {
		return analysis.DefaultDaysBack, nil
	}
	n, err := strconv.Atoi(strings.TrimSpace(f.DaysBack))
	if err != nil || !analysis.ValidDaysBack(n) {
		return 0, fmt.Errorf("%w: %q", analysis.ErrInvalidDaysBack, f.DaysBack)
	}
	return n, nil
}

// period returns the period field, defaulting when empty.
func (f analysisForm) period() (string, error) {
	p := strings.TrimSpace(f.Period)
	if p == "" {
		return analysis.DefaultPeriod, nil
	}
	if !analysis.ValidPeriod(p) {
		return "", fmt.Errorf("%w: %q", analysis.ErrInvalidPeriod, p)
	}
	return p, nil
}

// riskTickers splits the risk ticker list. Each entry may itself be a comma
// separated list. With no list, the single ticker field is used.
func (f analysisForm) riskTickers() []string {
	raw := f.Tickers
	if len(raw) == 0 {
		raw = []string{f.Ticker}
	}
	var out []string
	for _, v := range raw {
		for _, t := range strings.Split(v, ",") {
			if t = strings.TrimSpace(t); t != "" {
				out = append(out, strings.ToUpper(t))
			}
		}
	}
	return out
}

// analysisResult holds exactly one backend response.
type analysisResult struct {
	Kind        analysis.Kind
	Sentiment   *analysis.SentimentResponse
	Fundamental *analysis.FundamentalResponse
	Technical   *analysis.TechnicalResponse
	Risk        *analysis.RiskResponse
}

// narrative returns the free-text analysis the markdown renderer displays.
func (r *analysisResult) narrative() string {
	switch {
	case r.Sentiment != nil:
		return r.Sentiment.Summary
	case r.Fundamental != nil:
		return r.Fundamental.Analysis
	case r.Technical != nil:
		return r.Technical.Analysis
	case r.Risk != nil:
		return r.Risk.Analysis
	}
	return ""
}

// value returns the populated response for JSON encoding.
func (r *analysisResult) value() any {
	switch {
	case r.Sentiment != nil:
		return r.Sentiment
	case r.Fundamental != nil:
		return r.Fundamental
	case r.Technical != nil:
		return r.Technical
	case r.Risk != nil:
		return r.Risk
	}
	return nil
}

// errRateLimited is returned to API callers that would have to queue for
// the backend.
var errRateLimited = errors.New("too many analysis requests, try again shortly")

// acquire takes a backend slot from the rate limiter. With wait it blocks
// until one is free; otherwise it fails with errRateLimited.
func (s *Server) acquire(ctx context.Context, wait bool) error {
	if wait {
		return s.limiter.Wait(ctx)
	}
	if !s.limiter.Allow() {
		return errRateLimited
	}
	return nil
}

// runAnalysis validates f and calls the matching backend endpoint once a
// rate limiter slot is acquired.
func (s *Server) runAnalysis(ctx context.Context, f analysisForm, wait bool) (*analysisResult, error) {
	res := &analysisResult{Kind: f.Kind}

	if f.Kind == analysis.KindRisk {
		tickers := f.riskTickers()
		if len(tickers) == 0 {
			return nil, analysis.ErrNoTickers
		}
		period, err := f.period()
		if err != nil {
			return nil, err
		}
		if err := s.acquire(ctx, wait); err != nil {
			return nil, err
		}
		res.Risk, err = s.backend.Risk(ctx, tickers, period)
		if err != nil {
			return nil, err
		}
		return res, nil
	}

	ticker, err := analysis.NormalizeTicker(f.Ticker)
	if err != nil {
		return nil, err
	}

	switch f.Kind {
	case analysis.KindSentiment:
		days, err := f.daysBack()
		if err != nil {
			return nil, err
		}
		if err := s.acquire(ctx, wait); err != nil {
			return nil, err
		}
		res.Sentiment, err = s.backend.Sentiment(ctx, ticker, days)
		if err != nil {
			return nil, err
		}
	case analysis.KindFundamental:
		if err := s.acquire(ctx, wait); err != nil {
			return nil, err
		}
		res.Fundamental, err = s.backend.Fundamental(ctx, ticker)
		if err != nil {
			return nil, err
		}
	case analysis.KindTechnical:
		period, err := f.period()
		if err != nil {
			return nil, err
		}
		if err := s.acquire(ctx, wait); err != nil {
			return nil, err
		}
		res.Technical, err = s.backend.Technical(ctx, ticker, period)
		if err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("unknown analysis type %q", f.Kind)
	}
	return res, nil
}

// ---------------------------------------------------------------------------
// Page data
// ---------------------------------------------------------------------------

// pageData is the root value passed to every page template.
type pageData struct {
	Title  string
	Active string // nav highlight: home, analysis, quant, portfolio
	Error  string

	Form   analysisForm
	Result *analysisResult

	Kinds    []analysis.Kind
	Periods  []string
	DaysBack []int

	Holdings   []portfolio.Holding
	TotalValue float64
	LivePrices bool
	Risk       *analysis.RiskResponse
	RiskLevel  string
	Year       int
}
