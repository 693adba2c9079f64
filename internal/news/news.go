// Package news fetches recent headlines for a ticker, shown next to the
// backend's sentiment analysis.
package news

import (
	"context"
	"encoding/xml"
	"fmt"
	"html"
	"net/http"
	"net/url"
	"regexp"
	"sort"
	"strings"
	"time"

	"github.com/alpacahq/alpaca-trade-api-go/v3/marketdata"
)

// Article is a single headline from any feed.
type Article struct {
	Time     time.Time `json:"time"`
	Source   string    `json:"source"`
	Headline string    `json:"headline"`
	Summary  string    `json:"summary,omitempty"`
	URL      string    `json:"url,omitempty"`
}

// Feed returns articles about symbol published in [start, end], newest
// first, at most limit of them.
type Feed interface {
	Name() string
	Headlines(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Article, error)
}

// ---------------------------------------------------------------------------
// Alpaca
// ---------------------------------------------------------------------------

// AlpacaFeed reads the Alpaca market data news API.
type AlpacaFeed struct {
	client *marketdata.Client
}

// NewAlpacaFeed creates a feed for the given credentials. An empty dataURL
// uses the SDK default.
func NewAlpacaFeed(apiKey, apiSecret, dataURL string) *AlpacaFeed {
	opts := marketdata.ClientOpts{APIKey: apiKey, APISecret: apiSecret}
	if dataURL != "" {
		opts.BaseURL = dataURL
	}
	return &AlpacaFeed{client: marketdata.NewClient(opts)}
}

func (f *AlpacaFeed) Name() string { return "alpaca" }

// Headlines fetches news from Alpaca. The SDK call takes no context, so
// cancellation is checked before the request and when it returns.
func (f *AlpacaFeed) Headlines(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Article, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	type result struct {
		news []marketdata.News
		err  error
	}
	done := make(chan result, 1)
	go func() {
		n, err := f.client.GetNews(marketdata.GetNewsRequest{
			Symbols:    []string{symbol},
			Start:      start,
			End:        end,
			TotalLimit: limit,
			Sort:       marketdata.SortDesc,
		})
		done <- result{n, err}
	}()

	var r result
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case r = <-done:
	}
	if r.err != nil {
		return nil, fmt.Errorf("alpaca news: %w", r.err)
	}

	articles := make([]Article, 0, len(r.news))
	for _, n := range r.news {
		source := n.Author
		if source == "" {
			source = f.Name()
		}
		articles = append(articles, Article{
			Time:     n.CreatedAt,
			Source:   source,
			Headline: n.Headline,
			Summary:  StripHTML(n.Summary),
			URL:      n.URL,
		})
	}
	// Alpaca sorts by update time; show by publication.
	sort.SliceStable(articles, func(i, j int) bool {
		return articles[i].Time.After(articles[j].Time)
	})
	return articles, nil
}

// ---------------------------------------------------------------------------
// Google News RSS
// ---------------------------------------------------------------------------

// DefaultGoogleURL is the Google News RSS search endpoint.
const DefaultGoogleURL = "https://news.google.com/rss/search"

// GoogleFeed searches Google News RSS. It needs no credentials.
type GoogleFeed struct {
	BaseURL string
	Client  *http.Client
}

// NewGoogleFeed returns a feed against DefaultGoogleURL.
func NewGoogleFeed() *GoogleFeed {
	return &GoogleFeed{
		BaseURL: DefaultGoogleURL,
		Client:  &http.Client{Timeout: 10 * time.Second},
	}
}

func (f *GoogleFeed) Name() string { return "google" }

type rssResponse struct {
	Channel struct {
		Items []rssItem `xml:"item"`
	} `xml:"channel"`
}

type rssItem struct {
	Title   string `xml:"title"`
	Link    string `xml:"link"`
	PubDate string `xml:"pubDate"`
	Desc    string `xml:"description"`
	Source  string `xml:"source"`
}

func (f *GoogleFeed) Headlines(ctx context.Context, symbol string, start, end time.Time, limit int) ([]Article, error) {
	q := url.Values{}
	q.Set("q", symbol+" stock")
	q.Set("hl", "en-US")
	q.Set("gl", "US")
	q.Set("ceid", "US:en")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, f.BaseURL+"?"+q.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("User-Agent", "Mozilla/5.0")

	resp, err := f.Client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("google news: unexpected status %d", resp.StatusCode)
	}

	var rss rssResponse
	if err := xml.NewDecoder(resp.Body).Decode(&rss); err != nil {
		return nil, fmt.Errorf("google news: decoding feed: %w", err)
	}

	var articles []Article
	for _, item := range rss.Channel.Items {
		t, err := time.Parse(time.RFC1123Z, item.PubDate)
		if err != nil {
			t, err = time.Parse(time.RFC1123, item.PubDate)
			if err != nil {
				continue
			}
		}
		if t.Before(start) || t.After(end) {
			continue
		}
		headline := item.Title
		source := item.Source
		// Titles end in " - Publisher".
		if idx := strings.LastIndex(headline, " - "); idx > 0 {
			if source == "" {
				source = headline[idx+3:]
			}
			headline = headline[:idx]
		}
		articles = append(articles, Article{
			Time:     t,
			Source:   source,
			Headline: headline,
			Summary:  StripHTML(item.Desc),
			URL:      item.Link,
		})
	}

	sort.SliceStable(articles, func(i, j int) bool { return articles[i].Time.After(articles[j].Time) })
	if limit > 0 && len(articles) > limit {
		articles = articles[:limit]
	}
	return articles, nil
}

// ---------------------------------------------------------------------------
// Formatting
// ---------------------------------------------------------------------------

var htmlTagRe = regexp.MustCompile(`<[^>]*>`)

// StripHTML removes HTML tags and collapses whitespace.
func StripHTML(s string) string {
	s = htmlTagRe.ReplaceAllString(s, " ")
	s = html.UnescapeString(s)
	return strings.Join(strings.Fields(s), " ")
}

// Markdown formats articles as a heading and one list item per headline,
// in the subset the analysis renderer understands.
func Markdown(symbol string, articles []Article) string {
	var b strings.Builder
	fmt.Fprintf(&b, "## Recent headlines for %s\n", symbol)
	if len(articles) == 0 {
		b.WriteString("No articles found.\n")
		return b.String()
	}
	for _, a := range articles {
		fmt.Fprintf(&b, "- %s (%s, %s)\n", oneLine(a.Headline), a.Source, a.Time.Format("Jan 2 15:04"))
	}
	return b.String()
}

func oneLine(s string) string {
	return strings.Join(strings.Fields(s), " ")
}
