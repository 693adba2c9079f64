package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"sync"
	"testing"
	"time"

	"equifolio/internal/analysis"
	"equifolio/internal/portfolio"
	"equifolio/internal/util"
)

// fakeBackend records calls and returns canned responses.
type fakeBackend struct {
	mu    sync.Mutex
	calls []string
	err   error

	sentiment   *analysis.SentimentResponse
	fundamental *analysis.FundamentalResponse
	technical   *analysis.TechnicalResponse
	risk        *analysis.RiskResponse
}

func (f *fakeBackend) Calls() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.calls...)
}

func (f *fakeBackend) record(call string) {
	f.mu.Lock()
	f.calls = append(f.calls, call)
	f.mu.Unlock()
}

func (f *fakeBackend) Sentiment(_ context.Context, ticker string, daysBack int) (*analysis.SentimentResponse, error) {
	f.record("sentiment " + ticker)
	if f.err != nil {
		return nil, f.err
	}
	return f.sentiment, nil
}

func (f *fakeBackend) Fundamental(_ context.Context, ticker string) (*analysis.FundamentalResponse, error) {
	f.record("fundamental " + ticker)
	if f.err != nil {
		return nil, f.err
	}
	return f.fundamental, nil
}

func (f *fakeBackend) Technical(_ context.Context, ticker, period string) (*analysis.TechnicalResponse, error) {
	f.record("technical " + ticker + " " + period)
	if f.err != nil {
		return nil, f.err
	}
	return f.technical, nil
}

func (f *fakeBackend) Risk(_ context.Context, tickers []string, period string) (*analysis.RiskResponse, error) {
	f.record("risk " + strings.Join(tickers, ",") + " " + period)
	if f.err != nil {
		return nil, f.err
	}
	return f.risk, nil
}

func newTestServer(t *testing.T, b Backend, quotes portfolio.QuoteSource) *httptest.Server {
	t.Helper()
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(b, quotes, nil, "", log)
	if err != nil {
		t.Fatalf("NewServer() returned error: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	t.Cleanup(ts.Close)
	return ts
}

func readBody(t *testing.T, resp *http.Response) string {
	t.Helper()
	defer resp.Body.Close()
	b, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("reading body: %v", err)
	}
	return string(b)
}

func TestHealthz(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)
	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	if body := readBody(t, resp); !strings.Contains(body, `"ok"`) {
		t.Errorf("body = %q, want status ok", body)
	}
	if got := resp.Header.Get("Access-Control-Allow-Origin"); got != "*" {
		t.Errorf("CORS header = %q, want *", got)
	}
}

func TestRenderAPI(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)

	resp, err := http.Post(ts.URL+"/api/render", "application/json",
		strings.NewReader(`{"text":"# Title\n- a\n**b** c"}`))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, want 200", resp.StatusCode)
	}
	var got renderResponse
	if err := json.Unmarshal([]byte(readBody(t, resp)), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got.Nodes) != 3 {
		t.Fatalf("len(nodes) = %d, want 3", len(got.Nodes))
	}
	if got.Nodes[0].Text != "Title" || got.Nodes[0].Level != 1 {
		t.Errorf("nodes[0] = %+v, want level 1 heading Title", got.Nodes[0])
	}
	if !strings.Contains(got.HTML, `<span class="font-bold">b</span>`) {
		t.Errorf("html = %q, want bold span", got.HTML)
	}
}

func TestRenderAPIEmpty(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)
	resp, err := http.Post(ts.URL+"/api/render", "application/json", strings.NewReader(`{"text":""}`))
	if err != nil {
		t.Fatal(err)
	}
	if body := readBody(t, resp); !strings.Contains(body, `"nodes":[]`) {
		t.Errorf("body = %q, want empty nodes array", body)
	}
}

func TestRenderAPIBadBody(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)
	resp, err := http.Post(ts.URL+"/api/render", "application/json", strings.NewReader(`{`))
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("status = %d, want 400", resp.StatusCode)
	}
}

func TestAPIAnalysis(t *testing.T) {
	b := &fakeBackend{technical: &analysis.TechnicalResponse{
		Status: "success", Ticker: "AAPL", Period: "6mo", Analysis: "## Trend\n- up",
	}}
	ts := newTestServer(t, b, nil)

	resp, err := http.Get(ts.URL + "/api/analysis/technical?ticker=aapl&period=6mo")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d, body %q", resp.StatusCode, body)
	}
	var got struct {
		Kind  string `json:"kind"`
		Nodes []struct {
			Kind string `json:"kind"`
		} `json:"nodes"`
	}
	if err := json.Unmarshal([]byte(body), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if got.Kind != "technical" || len(got.Nodes) != 2 || got.Nodes[1].Kind != "list_item" {
		t.Errorf("response = %+v", got)
	}
	if len(b.Calls()) != 1 || b.Calls()[0] != "technical AAPL 6mo" {
		t.Errorf("calls = %v", b.Calls())
	}
}

func TestAPIAnalysisErrors(t *testing.T) {
	tests := []struct {
		name   string
		err    error
		path   string
		status int
	}{
		{"unknown kind", nil, "/api/analysis/macro?ticker=AAPL", http.StatusNotFound},
		{"missing ticker", nil, "/api/analysis/fundamental", http.StatusBadRequest},
		{"bad period", nil, "/api/analysis/technical?ticker=AAPL&period=10y", http.StatusBadRequest},
		{"bad days", nil, "/api/analysis/sentiment?ticker=AAPL&days_back=5", http.StatusBadRequest},
		{"no risk tickers", nil, "/api/analysis/risk", http.StatusBadRequest},
		{"backend error", &analysis.APIError{Kind: analysis.KindFundamental, StatusCode: 500, Detail: "boom"},
			"/api/analysis/fundamental?ticker=AAPL", http.StatusBadGateway},
		{"backend not found", &analysis.APIError{Kind: analysis.KindFundamental, StatusCode: 404, Detail: "no such ticker"},
			"/api/analysis/fundamental?ticker=ZZZZ", http.StatusNotFound},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ts := newTestServer(t, &fakeBackend{err: tt.err}, nil)
			resp, err := http.Get(ts.URL + tt.path)
			if err != nil {
				t.Fatal(err)
			}
			readBody(t, resp)
			if resp.StatusCode != tt.status {
				t.Errorf("status = %d, want %d", resp.StatusCode, tt.status)
			}
		})
	}
}

func TestAPIAnalysisRateLimited(t *testing.T) {
	b := &fakeBackend{fundamental: &analysis.FundamentalResponse{Analysis: "ok"}}
	log := slog.New(slog.NewTextHandler(io.Discard, nil))
	s, err := NewServer(b, nil, util.NewRateLimiter(1, 1), "", log)
	if err != nil {
		t.Fatalf("NewServer() returned error: %v", err)
	}
	ts := httptest.NewServer(s.Handler())
	defer ts.Close()

	for i, want := range []int{http.StatusOK, http.StatusTooManyRequests} {
		resp, err := http.Get(ts.URL + "/api/analysis/fundamental?ticker=AAPL")
		if err != nil {
			t.Fatal(err)
		}
		readBody(t, resp)
		if resp.StatusCode != want {
			t.Errorf("request %d: status = %d, want %d", i, resp.StatusCode, want)
		}
	}
	if got := len(b.Calls()); got != 1 {
		t.Errorf("backend calls = %d, want 1", got)
	}
}

func TestAPIAnalysisRiskTickers(t *testing.T) {
	b := &fakeBackend{risk: &analysis.RiskResponse{Status: "success"}}
	ts := newTestServer(t, b, nil)
	resp, err := http.Get(ts.URL + "/api/analysis/risk?tickers=aapl,%20msft&tickers=tsla")
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if len(b.Calls()) != 1 || b.Calls()[0] != "risk AAPL,MSFT,TSLA 1y" {
		t.Errorf("calls = %v", b.Calls())
	}
}

func TestHomePage(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)
	resp, err := http.Get(ts.URL + "/")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, `href="/portfolio"`) {
		t.Errorf("home page missing portfolio link")
	}
	if ct := resp.Header.Get("Content-Type"); !strings.HasPrefix(ct, "text/html") {
		t.Errorf("Content-Type = %q, want text/html", ct)
	}

	resp, err = http.Get(ts.URL + "/nope")
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusNotFound {
		t.Errorf("GET /nope status = %d, want 404", resp.StatusCode)
	}
}

func TestAnalysisPage(t *testing.T) {
	b := &fakeBackend{fundamental: &analysis.FundamentalResponse{
		Status:      "success",
		Ticker:      "AAPL",
		CompanyName: "Apple Inc.",
		KeyMetrics:  map[string]any{"pe_ratio": 28.5, "market_cap": 2.5e12},
		Analysis:    "# Summary\n**Strong** balance sheet\n<script>x</script>",
	}}
	ts := newTestServer(t, b, nil)

	resp, err := http.PostForm(ts.URL+"/analysis", url.Values{"ticker": {"aapl"}, "type": {"fundamental"}})
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("status = %d", resp.StatusCode)
	}
	for _, want := range []string{
		"Apple Inc.",
		"Pe Ratio",
		"2,500,000,000,000",
		`<h2 class="text-2xl font-bold text-gray-800 mt-6 mb-4">Summary</h2>`,
		`<span class="font-bold">Strong</span>`,
		"&lt;script&gt;x&lt;/script&gt;",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if strings.Contains(body, "<script>x</script>") {
		t.Error("narrative HTML was not escaped")
	}
}

func TestAnalysisPageErrors(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{err: &analysis.APIError{Detail: "Fundamental analysis failed"}}, nil)

	resp, err := http.PostForm(ts.URL+"/analysis", url.Values{"ticker": {"AAPL"}})
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusBadGateway {
		t.Errorf("status = %d, want 502", resp.StatusCode)
	}
	if !strings.Contains(body, "Fundamental analysis failed") {
		t.Error("page missing error banner")
	}

	resp, err = http.PostForm(ts.URL+"/analysis", url.Values{"ticker": {" "}})
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusBadRequest {
		t.Errorf("empty ticker status = %d, want 400", resp.StatusCode)
	}
}

func TestQuantPage(t *testing.T) {
	b := &fakeBackend{technical: &analysis.TechnicalResponse{
		Status: "success", Ticker: "MSFT", Period: "3mo",
		Charts: analysis.TechnicalCharts{PriceChart: "iVBORw0KGgo="},
	}}
	ts := newTestServer(t, b, nil)

	resp, err := http.PostForm(ts.URL+"/quant", url.Values{"ticker": {"msft"}, "period": {"3mo"}, "type": {"sentiment"}})
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if !strings.Contains(body, `src="data:image/png;base64,iVBORw0KGgo="`) {
		t.Error("page missing price chart image")
	}
	if !strings.Contains(body, "3 Months") {
		t.Error("page missing period label")
	}
	if len(b.Calls()) != 1 || b.Calls()[0] != "technical MSFT 3mo" {
		t.Errorf("calls = %v", b.Calls())
	}
}

func TestPortfolioPage(t *testing.T) {
	b := &fakeBackend{risk: &analysis.RiskResponse{
		Status:  "success",
		Period:  "1y",
		Metrics: analysis.RiskMetrics{AnnualizedVolatility: "18.5%", SharpeRatio: "1.12"},
	}}
	ts := newTestServer(t, b, portfolio.StaticQuotes{"AAPL": 200})

	resp, err := http.Get(ts.URL + "/portfolio")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	for _, want := range []string{
		"$10,000.00", // 50 AAPL at 200
		"$25,966.25", // total with refreshed AAPL
		`id="risk-level">Moderate<`,
		"1.12",
		"Asset Allocation Chart Not Available",
	} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
	if len(b.Calls()) != 1 || b.Calls()[0] != "risk AAPL,MSFT,AMZN,TSLA,GOOGL 1y" {
		t.Errorf("calls = %v", b.Calls())
	}
}

type failingQuotes struct{}

func (failingQuotes) LatestPrices(context.Context, []string) (map[string]float64, error) {
	return nil, errors.New("market closed")
}

func TestPortfolioPageRiskFailure(t *testing.T) {
	api := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		w.Write([]byte(`{}`))
	}))
	defer api.Close()
	ts := newTestServer(t, analysis.NewClient(api.URL+"/", 5*time.Second), failingQuotes{})

	resp, err := http.Get(ts.URL + "/portfolio")
	if err != nil {
		t.Fatal(err)
	}
	body := readBody(t, resp)
	if resp.StatusCode != http.StatusOK {
		t.Errorf("status = %d, want 200", resp.StatusCode)
	}
	for _, want := range []string{"Risk analysis failed", "$24,741.25", `id="risk-level">Not Available<`} {
		if !strings.Contains(body, want) {
			t.Errorf("page missing %q", want)
		}
	}
}

func TestAPIPortfolio(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)
	resp, err := http.Get(ts.URL + "/api/portfolio")
	if err != nil {
		t.Fatal(err)
	}
	var got apiPortfolioResponse
	if err := json.Unmarshal([]byte(readBody(t, resp)), &got); err != nil {
		t.Fatalf("decoding response: %v", err)
	}
	if len(got.Holdings) != 5 || got.TotalValue != 24741.25 || got.LivePrices {
		t.Errorf("response = %+v", got)
	}
}

func TestCORSPreflight(t *testing.T) {
	ts := newTestServer(t, &fakeBackend{}, nil)
	req, _ := http.NewRequest(http.MethodOptions, ts.URL+"/api/render", nil)
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	readBody(t, resp)
	if resp.StatusCode != http.StatusNoContent {
		t.Errorf("status = %d, want 204", resp.StatusCode)
	}
}
