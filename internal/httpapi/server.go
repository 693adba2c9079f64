// Package httpapi serves the equifolio web UI: server-rendered analysis,
// quant and portfolio pages, plus a small JSON API for the markdown
// renderer and backend passthrough.
package httpapi

import (
	"context"
	"embed"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"time"

	"equifolio/internal/analysis"
	"equifolio/internal/markdown"
	"equifolio/internal/portfolio"
	"equifolio/internal/util"
)

//go:embed templates/*.html
var templateFS embed.FS

// maxRenderBody caps POST /api/render bodies.
const maxRenderBody = 1 << 20

// Backend is the subset of the analysis client the server uses.
type Backend interface {
	Sentiment(ctx context.Context, ticker string, daysBack int) (*analysis.SentimentResponse, error)
	Fundamental(ctx context.Context, ticker string) (*analysis.FundamentalResponse, error)
	Technical(ctx context.Context, ticker, period string) (*analysis.TechnicalResponse, error)
	Risk(ctx context.Context, tickers []string, period string) (*analysis.RiskResponse, error)
}

var _ Backend = (*analysis.Client)(nil)

// Server serves the web UI and JSON API.
type Server struct {
	backend    Backend
	quotes     portfolio.QuoteSource // nil keeps sample prices
	limiter    *util.RateLimiter     // nil is unlimited
	riskPeriod string
	log        *slog.Logger
	pages      map[string]*template.Template
	now        func() time.Time
}

// NewServer creates a Server. quotes and limiter may be nil.
func NewServer(
	backend Backend,
	quotes portfolio.QuoteSource,
	limiter *util.RateLimiter,
	riskPeriod string,
	log *slog.Logger,
) (*Server, error) {
	pages, err := parsePages()
	if err != nil {
		return nil, err
	}
	if riskPeriod == "" {
		riskPeriod = analysis.DefaultPeriod
	}
	return &Server{
		backend:    backend,
		quotes:     quotes,
		limiter:    limiter,
		riskPeriod: riskPeriod,
		log:        log.With("component", "httpapi"),
		pages:      pages,
		now:        time.Now,
	}, nil
}

// RegisterRoutes registers all UI and API routes on the given mux.
func (s *Server) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /{$}", s.handleHome)
	mux.HandleFunc("GET /analysis", s.handleAnalysisForm)
	mux.HandleFunc("POST /analysis", s.handleAnalysis)
	mux.HandleFunc("GET /quant", s.handleQuantForm)
	mux.HandleFunc("POST /quant", s.handleQuant)
	mux.HandleFunc("GET /portfolio", s.handlePortfolio)

	mux.HandleFunc("POST /api/render", s.handleRender)
	mux.HandleFunc("GET /api/analysis/{kind}", s.handleAPIAnalysis)
	mux.HandleFunc("GET /api/portfolio", s.handleAPIPortfolio)
	mux.HandleFunc("GET /healthz", s.handleHealth)
}

// Handler returns an http.Handler with CORS and request logging.
func (s *Server) Handler() http.Handler {
	mux := http.NewServeMux()
	s.RegisterRoutes(mux)
	return s.logMiddleware(corsMiddleware(mux))
}

func corsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Access-Control-Allow-Origin", "*")
		w.Header().Set("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		w.Header().Set("Access-Control-Allow-Headers", "Content-Type")
		if r.Method == "OPTIONS" {
			w.WriteHeader(http.StatusNoContent)
			return
		}
		next.ServeHTTP(w, r)
	})
}

// statusRecorder captures the status code written by a handler.
type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (r *statusRecorder) WriteHeader(code int) {
	r.status = code
	r.ResponseWriter.WriteHeader(code)
}

func (s *Server) logMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		rec := &statusRecorder{ResponseWriter: w, status: http.StatusOK}
		next.ServeHTTP(rec, r)
		s.log.Info("request",
			"method", r.Method,
			"path", r.URL.Path,
			"status", rec.status,
			"duration", time.Since(start),
		)
	})
}

func writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	if err := json.NewEncoder(w).Encode(v); err != nil {
		slog.Error("encoding JSON response", "error", err)
	}
}

func writeError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// errorStatus maps a backend or validation error to an HTTP status.
func errorStatus(err error) int {
	var apiErr *analysis.APIError
	switch {
	case errors.Is(err, analysis.ErrEmptyTicker),
		errors.Is(err, analysis.ErrNoTickers),
		errors.Is(err, analysis.ErrInvalidPeriod),
		errors.Is(err, analysis.ErrInvalidDaysBack):
		return http.StatusBadRequest
	case errors.Is(err, errRateLimited):
		return http.StatusTooManyRequests
	case errors.As(err, &apiErr):
		if apiErr.StatusCode == http.StatusNotFound {
			return http.StatusNotFound
		}
		return http.StatusBadGateway
	case errors.Is(err, context.DeadlineExceeded):
		return http.StatusGatewayTimeout
	default:
		return http.StatusBadGateway
	}
}

// ---------------------------------------------------------------------------
// JSON API
// ---------------------------------------------------------------------------

type renderRequest struct {
	Text string `json:"text"`
}

type renderResponse struct {
	Nodes []markdown.Node `json:"nodes"`
	HTML  string          `json:"html"`
}

func (s *Server) handleRender(w http.ResponseWriter, r *http.Request) {
	var req renderRequest
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRenderBody))
	if err := dec.Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("invalid request body: %v", err))
		return
	}
	nodes := markdown.Render(req.Text)
	if nodes == nil {
		nodes = []markdown.Node{}
	}
	writeJSON(w, renderResponse{Nodes: nodes, HTML: markdown.HTML(nodes)})
}

// apiAnalysisResponse pairs the backend result with the rendered narrative.
type apiAnalysisResponse struct {
	Kind   analysis.Kind   `json:"kind"`
	Result any             `json:"result"`
	Nodes  []markdown.Node `json:"nodes"`
}

func (s *Server) handleAPIAnalysis(w http.ResponseWriter, r *http.Request) {
	kind, err := analysis.ParseKind(r.PathValue("kind"))
	if err != nil {
		writeError(w, http.StatusNotFound, err.Error())
		return
	}

	q := r.URL.Query()
	form := analysisForm{
		Kind:     kind,
		Ticker:   q.Get("ticker"),
		Period:   q.Get("period"),
		DaysBack: q.Get("days_back"),
		Tickers:  q["tickers"],
	}
	res, err := s.runAnalysis(r.Context(), form, false)
	if err != nil {
		writeError(w, errorStatus(err), err.Error())
		return
	}

	nodes := markdown.Render(res.narrative())
	if nodes == nil {
		nodes = []markdown.Node{}
	}
	writeJSON(w, apiAnalysisResponse{Kind: kind, Result: res.value(), Nodes: nodes})
}

type apiPortfolioResponse struct {
	Holdings   []portfolio.Holding `json:"holdings"`
	TotalValue float64             `json:"totalValue"`
	Weights    map[string]float64  `json:"weights"`
	LivePrices bool                `json:"livePrices"`
}

func (s *Server) handleAPIPortfolio(w http.ResponseWriter, r *http.Request) {
	holdings, live := s.currentHoldings(r.Context())
	writeJSON(w, apiPortfolioResponse{
		Holdings:   holdings,
		TotalValue: portfolio.TotalValue(holdings),
		Weights:    portfolio.Weights(holdings),
		LivePrices: live,
	})
}

func (s *Server) handleHealth(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// currentHoldings returns the sample holdings refreshed with live prices
// when a quote source is configured. Quote failures are logged and the
// sample prices kept.
func (s *Server) currentHoldings(ctx context.Context) ([]portfolio.Holding, bool) {
	holdings := portfolio.Holdings()
	if s.quotes == nil {
		return holdings, false
	}
	prices, err := s.quotes.LatestPrices(ctx, portfolio.Tickers(holdings))
	if err != nil {
		if ctx.Err() == nil {
			s.log.Warn("fetching latest prices", "error", err)
		}
		return holdings, false
	}
	return portfolio.Refresh(holdings, prices), len(prices) > 0
}
