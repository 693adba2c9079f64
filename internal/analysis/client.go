package analysis

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"
)

// DefaultTimeout bounds a single backend call. The backend runs LLM
// prompts, so responses routinely take tens of seconds.
const DefaultTimeout = 120 * time.Second

// maxErrorBody caps how much of a failed response is read for its detail.
const maxErrorBody = 64 << 10

// Client issues analysis requests against the backend API.
type Client struct {
	baseURL    string
	httpClient *http.Client
}

// NewClient creates a backend client. A timeout <= 0 uses DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: timeout},
	}
}

// BaseURL returns the backend root the client posts to.
func (c *Client) BaseURL() string { return c.baseURL }

// APIError is returned when the backend answers with a non-2xx status or an
// explicit error payload.
type APIError struct {
	Kind       Kind
	StatusCode int
	Detail     string
}

func (e *APIError) Error() string {
	return e.Detail
}

// Sentiment analyses recent news coverage for ticker over daysBack days.
func (c *Client) Sentiment(ctx context.Context, ticker string, daysBack int) (*SentimentResponse, error) {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if !ValidDaysBack(daysBack) {
		return nil, fmt.Errorf("%w: %d", ErrInvalidDaysBack, daysBack)
	}
	var out SentimentResponse
	if err := c.post(ctx, KindSentiment, SentimentRequest{Ticker: t, DaysBack: daysBack}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Fundamental requests company fundamentals and a narrative assessment.
func (c *Client) Fundamental(ctx context.Context, ticker string) (*FundamentalResponse, error) {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	var out FundamentalResponse
	if err := c.post(ctx, KindFundamental, FundamentalRequest{Ticker: t}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Technical requests indicator metrics and charts for ticker over period.
func (c *Client) Technical(ctx context.Context, ticker, period string) (*TechnicalResponse, error) {
	t, err := NormalizeTicker(ticker)
	if err != nil {
		return nil, err
	}
	if period == "" {
		period = DefaultPeriod
	}
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	var out TechnicalResponse
	if err := c.post(ctx, KindTechnical, TechnicalRequest{Ticker: t, Period: period}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Risk requests portfolio-level risk metrics for tickers over period.
func (c *Client) Risk(ctx context.Context, tickers []string, period string) (*RiskResponse, error) {
	norm := make([]string, 0, len(tickers))
	for _, raw := range tickers {
		t, err := NormalizeTicker(raw)
		if err != nil {
			continue
		}
		norm = append(norm, t)
	}
	if len(norm) == 0 {
		return nil, ErrNoTickers
	}
	if period == "" {
		period = DefaultPeriod
	}
	if !ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	var out RiskResponse
	if err := c.post(ctx, KindRisk, RiskRequest{Tickers: norm, Period: period}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// post sends body as JSON to /{kind}/ and decodes a successful reply into
// out.
func (c *Client) post(ctx context.Context, kind Kind, body, out any) error {
	payload, err := json.Marshal(body)
	if err != nil {
		return fmt.Errorf("encoding %s request: %w", kind, err)
	}

	u := c.baseURL + "/" + string(kind) + "/"
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, u, bytes.NewReader(payload))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s request: %w", kind, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return decodeAPIError(kind, resp)
	}

	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("reading %s response: %w", kind, err)
	}

	// The backend reports some failures in-band with status "error".
	var status struct {
		Status  string `json:"status"`
		Message string `json:"message"`
	}
	if err := json.Unmarshal(data, &status); err == nil && status.Status == "error" {
		return &APIError{Kind: kind, StatusCode: resp.StatusCode, Detail: fallbackDetail(kind, status.Message)}
	}

	if err := json.Unmarshal(data, out); err != nil {
		return fmt.Errorf("decoding %s response: %w", kind, err)
	}
	return nil
}

func decodeAPIError(kind Kind, resp *http.Response) error {
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))

	// FastAPI-style bodies carry {"detail": "..."}; validation failures use
	// a list there instead, which falls through to the generic message.
	var body struct {
		Detail json.RawMessage `json:"detail"`
	}
	var detail string
	if err := json.Unmarshal(data, &body); err == nil && len(body.Detail) > 0 {
		_ = json.Unmarshal(body.Detail, &detail)
	}
	return &APIError{Kind: kind, StatusCode: resp.StatusCode, Detail: fallbackDetail(kind, detail)}
}

func fallbackDetail(kind Kind, detail string) string {
	if strings.TrimSpace(detail) != "" {
		return detail
	}
	switch kind {
	case KindTechnical, KindRisk:
		// The quant and portfolio pages capitalize their messages.
		return strings.ToUpper(string(kind[:1])) + string(kind[1:]) + " analysis failed"
	}
	return string(kind) + " analysis failed"
}
