// Package market fetches quotes, price history and headlines from Yahoo Finance.
package market

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/m-mizutani/goerr/v2"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 20 * time.Second

	userAgent = "Mozilla/5.0 (compatible; pandora/1.0)"
)

// ErrTickerNotFound is returned when Yahoo has no instrument for the ticker.
var ErrTickerNotFound = errors.New("ticker not found")

// Quote is the latest market snapshot of an instrument.
type Quote struct {
	Symbol           string    `json:"symbol"`
	Name             string    `json:"name,omitempty"`
	Exchange         string    `json:"exchange,omitempty"`
	Currency         string    `json:"currency"`
	Price            float64   `json:"price"`
	PreviousClose    float64   `json:"previous_close"`
	Change           float64   `json:"change"`
	ChangePercent    float64   `json:"change_percent"`
	FiftyTwoWeekLow  *float64  `json:"fifty_two_week_low,omitempty"`
	FiftyTwoWeekHigh *float64  `json:"fifty_two_week_high,omitempty"`
	MarketTime       time.Time `json:"market_time"`
}

// Bar is one daily OHLCV entry.
type Bar struct {
	Date   time.Time `json:"date"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume int64     `json:"volume"`
}

// NewsItem is a headline related to a ticker.
type NewsItem struct {
	Title       string    `json:"title"`
	Publisher   string    `json:"publisher"`
	Link        string    `json:"link"`
	PublishedAt time.Time `json:"published_at"`
}

// Client is a Yahoo Finance client. It is safe for concurrent use.
type Client struct {
	httpClient *http.Client
	baseURL    string
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the default HTTP client (20s timeout).
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) {
		c.httpClient = hc
	}
}

// WithBaseURL replaces the Yahoo endpoint.
func WithBaseURL(u string) Option {
	return func(c *Client) {
		c.baseURL = strings.TrimRight(u, "/")
	}
}

// New creates a Client.
func New(options ...Option) *Client {
	c := &Client{
		httpClient: &http.Client{Timeout: DefaultTimeout},
		baseURL:    DefaultBaseURL,
	}
	for _, opt := range options {
		opt(c)
	}
	return c
}

// Quote returns the latest snapshot for ticker.
func (c *Client) Quote(ctx context.Context, ticker string) (*Quote, error) {
	q := url.Values{}
	q.Set("range", "1d")
	q.Set("interval", "1d")

	result, err := c.chart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}
	return result.Meta.toQuote(), nil
}

// History returns daily bars from since until now.
func (c *Client) History(ctx context.Context, ticker string, since time.Time) ([]*Bar, error) {
	q := url.Values{}
	q.Set("period1", formatUnix(since))
	q.Set("period2", formatUnix(time.Now()))
	q.Set("interval", "1d")

	result, err := c.chart(ctx, ticker, q)
	if err != nil {
		return nil, err
	}
	return result.bars(), nil
}

// News returns up to limit recent headlines for ticker.
func (c *Client) News(ctx context.Context, ticker string, limit int) ([]*NewsItem, error) {
	q := url.Values{}
	q.Set("q", ticker)
	q.Set("quotesCount", "0")
	q.Set("newsCount", formatInt(limit))

	var resp searchResponse
	if err := c.get(ctx, "/v1/finance/search", q, &resp); err != nil {
		return nil, err
	}

	items := make([]*NewsItem, 0, len(resp.News))
	for _, n := range resp.News {
		if len(items) == limit {
			break
		}
		items = append(items, &NewsItem{
			Title:       n.Title,
			Publisher:   n.Publisher,
			Link:        n.Link,
			PublishedAt: time.Unix(n.ProviderPublishTime, 0).UTC(),
		})
	}
	return items, nil
}

func (c *Client) chart(ctx context.Context, ticker string, q url.Values) (*chartResult, error) {
	var resp chartResponse
	err := c.get(ctx, "/v8/finance/chart/"+url.PathEscape(strings.ToUpper(ticker)), q, &resp)
	if errors.Is(err, ErrTickerNotFound) {
		return nil, goerr.Wrap(ErrTickerNotFound, "no chart data", goerr.V("ticker", ticker))
	}
	if err != nil {
		return nil, err
	}

	if resp.Chart.Error != nil {
		return nil, goerr.Wrap(ErrTickerNotFound, resp.Chart.Error.Description, goerr.V("ticker", ticker))
	}
	if len(resp.Chart.Result) == 0 {
		return nil, goerr.Wrap(ErrTickerNotFound, "empty chart result", goerr.V("ticker", ticker))
	}
	return resp.Chart.Result[0], nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values, out any) error {
	u := c.baseURL + path + "?" + q.Encode()
	eb := goerr.NewBuilder(goerr.V("url", u))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return eb.Wrap(err, "failed to create request")
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return eb.Wrap(err, "failed to call Yahoo Finance")
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return eb.Wrap(err, "failed to read response")
	}

	if resp.StatusCode == http.StatusNotFound {
		return eb.Wrap(ErrTickerNotFound, "not found")
	}
	if resp.StatusCode != http.StatusOK {
		return eb.New("unexpected status code",
			goerr.V("status", resp.StatusCode),
			goerr.V("body", truncate(string(body), 256)))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return eb.Wrap(err, "failed to decode response")
	}
	return nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
