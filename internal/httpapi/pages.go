package httpapi

import (
	"bytes"
	"context"
	"fmt"
	"html/template"
	"net/http"

	"golang.org/x/sync/errgroup"

	"equifolio/internal/analysis"
	"equifolio/internal/markdown"
	"equifolio/internal/portfolio"
)

// pageNames are the templates that extend layout.html.
var pageNames = []string{"index", "analysis", "quant", "portfolio"}

var templateFuncs = template.FuncMap{
	// markdown renders backend narrative text. The renderer escapes all
	// text, so the result is safe to mark as HTML.
	"markdown": func(s string) template.HTML {
		return template.HTML(markdown.HTML(markdown.Render(s)))
	},
	// trustedHTML passes backend-generated chart fragments through.
	"trustedHTML": func(s string) template.HTML { return template.HTML(s) },
	"pngData": func(b64 string) template.URL {
		return template.URL("data:image/png;base64," + b64)
	},
	"money":       portfolio.FormatMoney,
	"change":      portfolio.FormatChange,
	"shares":      portfolio.FormatShares,
	"percent":     func(v float64) string { return analysis.FormatPercent(v, 1) },
	"toneClass":   toneClass,
	"changeClass": changeClass,
	"periodLabel": analysis.PeriodLabel,
	"metrics":     analysis.SortedMetrics,
}

func parsePages() (map[string]*template.Template, error) {
	pages := make(map[string]*template.Template, len(pageNames))
	for _, name := range pageNames {
		t, err := template.New("layout.html").Funcs(templateFuncs).ParseFS(templateFS,
			"templates/layout.html", "templates/"+name+".html")
		if err != nil {
			return nil, fmt.Errorf("parsing %s template: %w", name, err)
		}
		pages[name] = t
	}
	return pages, nil
}

// toneClass maps a sentiment score to its text color class.
func toneClass(score float64) string {
	switch analysis.SentimentTone(score) {
	case analysis.TonePositive:
		return "text-green-600"
	case analysis.ToneNeutral:
		return "text-blue-600"
	case analysis.ToneWeak:
		return "text-yellow-600"
	default:
		return "text-red-600"
	}
}

func changeClass(pct float64) string {
	if pct >= 0 {
		return "text-green-600"
	}
	return "text-red-600"
}

// render executes a page into a buffer so template errors become a 500
// instead of a truncated page.
func (s *Server) render(w http.ResponseWriter, status int, page string, data *pageData) {
	t, ok := s.pages[page]
	if !ok {
		http.Error(w, "unknown page", http.StatusInternalServerError)
		return
	}
	data.Kinds = analysis.Kinds
	data.Periods = analysis.Periods
	data.DaysBack = analysis.DaysBackOptions
	data.Year = s.now().Year()

	var buf bytes.Buffer
	if err := t.ExecuteTemplate(&buf, "layout.html", data); err != nil {
		s.log.Error("rendering page", "page", page, "error", err)
		http.Error(w, "internal server error", http.StatusInternalServerError)
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(status)
	buf.WriteTo(w)
}

// ---------------------------------------------------------------------------
// Pages
// ---------------------------------------------------------------------------

func (s *Server) handleHome(w http.ResponseWriter, _ *http.Request) {
	s.render(w, http.StatusOK, "index", &pageData{Title: "EquiFolio", Active: "home"})
}

func (s *Server) handleAnalysisForm(w http.ResponseWriter, r *http.Request) {
	form := analysisForm{
		Kind:   analysis.KindFundamental,
		Ticker: r.URL.Query().Get("ticker"),
		Period: analysis.DefaultPeriod,
	}
	if k, err := analysis.ParseKind(r.URL.Query().Get("type")); err == nil && k != analysis.KindRisk {
		form.Kind = k
	}
	s.render(w, http.StatusOK, "analysis", &pageData{Title: "Stock Analysis", Active: "analysis", Form: form})
}

func (s *Server) handleAnalysis(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Stock Analysis", Active: "analysis"}
	form, err := formFromRequest(r, analysis.KindFundamental)
	data.Form = form
	if err == nil && form.Kind == analysis.KindRisk {
		err = fmt.Errorf("unknown analysis type %q", form.Kind)
	}
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, "analysis", data)
		return
	}
	s.analyze(r.Context(), w, "analysis", data)
}

func (s *Server) handleQuantForm(w http.ResponseWriter, r *http.Request) {
	form := analysisForm{
		Kind:   analysis.KindTechnical,
		Ticker: r.URL.Query().Get("ticker"),
		Period: analysis.DefaultPeriod,
	}
	s.render(w, http.StatusOK, "quant", &pageData{Title: "Quantitative Analysis", Active: "quant", Form: form})
}

func (s *Server) handleQuant(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Quantitative Analysis", Active: "quant"}
	form, err := formFromRequest(r, analysis.KindTechnical)
	form.Kind = analysis.KindTechnical
	data.Form = form
	if err != nil {
		data.Error = err.Error()
		s.render(w, http.StatusBadRequest, "quant", data)
		return
	}
	s.analyze(r.Context(), w, "quant", data)
}

// analyze runs data.Form against the backend and renders page with either
// the result or an error banner.
func (s *Server) analyze(ctx context.Context, w http.ResponseWriter, page string, data *pageData) {
	res, err := s.runAnalysis(ctx, data.Form, true)
	if err != nil {
		s.log.Warn("analysis failed",
			"kind", data.Form.Kind,
			"ticker", data.Form.Ticker,
			"error", err,
		)
		data.Error = err.Error()
		s.render(w, errorStatus(err), page, data)
		return
	}
	data.Result = res
	s.render(w, http.StatusOK, page, data)
}

// handlePortfolio fetches portfolio risk and live prices concurrently.
// A risk failure shows an error banner; a price failure keeps the sample
// prices.
func (s *Server) handlePortfolio(w http.ResponseWriter, r *http.Request) {
	data := &pageData{Title: "Portfolio", Active: "portfolio"}
	tickers := portfolio.Tickers(portfolio.Holdings())

	g, ctx := errgroup.WithContext(r.Context())
	g.Go(func() error {
		if err := s.limiter.Wait(ctx); err != nil {
			return err
		}
		risk, err := s.backend.Risk(ctx, tickers, s.riskPeriod)
		if err != nil {
			return err
		}
		data.Risk = risk
		return nil
	})
	g.Go(func() error {
		data.Holdings, data.LivePrices = s.currentHoldings(ctx)
		return nil
	})

	if err := g.Wait(); err != nil {
		s.log.Warn("portfolio risk failed", "error", err)
		data.Error = err.Error()
	}
	if data.Holdings == nil {
		data.Holdings = portfolio.Holdings()
	}
	data.TotalValue = portfolio.TotalValue(data.Holdings)
	data.RiskLevel = portfolio.RiskNotAvailable
	if data.Risk != nil {
		data.RiskLevel = portfolio.RiskLevel(data.Risk.Metrics.AnnualizedVolatility)
	}
	s.render(w, http.StatusOK, "portfolio", data)
}
