// Package yahoo fetches quotes and daily price history from Yahoo Finance.
package yahoo

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/aristath/tickerdash/internal/clientdata"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/rs/zerolog"
)

const (
	DefaultBaseURL = "https://query1.finance.yahoo.com"
	DefaultTimeout = 30 * time.Second

	userAgent    = "Mozilla/5.0 (X11; Linux x86_64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/124.0 Safari/537.36"
	maxBodyBytes = 16 << 20
)

// Client for the Yahoo Finance quote and chart APIs.
type Client struct {
	baseURL   string
	client    *http.Client
	log       zerolog.Logger
	cacheRepo *clientdata.Repository
}

// NewClient creates a Yahoo Finance client.
// cacheRepo is optional - if nil, caching is disabled.
func NewClient(cacheRepo *clientdata.Repository, timeout time.Duration, log zerolog.Logger) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	return &Client{
		baseURL:   DefaultBaseURL,
		client:    &http.Client{Timeout: timeout},
		log:       log.With().Str("client", "yahoo").Logger(),
		cacheRepo: cacheRepo,
	}
}

// SetBaseURL points the client at another host, e.g. a test server.
func (c *Client) SetBaseURL(u string) {
	c.baseURL = u
}

// Quote is the subset of Yahoo's quote fields the dashboard uses. Pointer
// fields are nil when Yahoo omits them.
type Quote struct {
	Symbol                      string   `json:"symbol"`
	ShortName                   string   `json:"shortName,omitempty"`
	LongName                    string   `json:"longName,omitempty"`
	RegularMarketPrice          *float64 `json:"regularMarketPrice,omitempty"`
	TrailingPE                  *float64 `json:"trailingPE,omitempty"`
	ForwardPE                   *float64 `json:"forwardPE,omitempty"`
	EpsTrailingTwelveMonths     *float64 `json:"epsTrailingTwelveMonths,omitempty"`
	EpsForward                  *float64 `json:"epsForward,omitempty"`
	DividendYield               *float64 `json:"dividendYield,omitempty"`
	TrailingAnnualDividendYield *float64 `json:"trailingAnnualDividendYield,omitempty"`
	FiftyTwoWeekHigh            *float64 `json:"fiftyTwoWeekHigh,omitempty"`
	FiftyTwoWeekLow             *float64 `json:"fiftyTwoWeekLow,omitempty"`
	Beta                        *float64 `json:"beta,omitempty"`
}

// Name returns the most descriptive name Yahoo reported.
func (q *Quote) Name() string {
	if q.LongName != "" {
		return q.LongName
	}
	if q.ShortName != "" {
		return q.ShortName
	}
	return q.Symbol
}

// Bar is one close in a price series.
type Bar struct {
	Time  int64   `json:"t"`
	Close float64 `json:"c"`
}

// History is a symbol's close series, oldest first. Bars without a close are
// dropped.
type History struct {
	Symbol   string `json:"symbol"`
	Period   string `json:"period"`
	Interval string `json:"interval"`
	Bars     []Bar  `json:"bars"`
}

// Closes returns the close prices in order.
func (h *History) Closes() []float64 {
	out := make([]float64, len(h.Bars))
	for i, b := range h.Bars {
		out[i] = b.Close
	}
	return out
}

// errNotFound marks an upstream answer that positively says "no such symbol";
// it is never masked by stale cache.
var errNotFound = errors.New("symbol not found")

// GetQuote fetches a quote with cache.
// If the API fails, returns stale cached data if available (stale data > no data).
func (c *Client) GetQuote(ctx context.Context, symbol string) (*Quote, error) {
	var q Quote
	err := c.cacheFirst(ctx, clientdata.TableQuote, symbol, clientdata.TTLQuote, &q, func() (interface{}, error) {
		return c.fetchQuote(ctx, symbol)
	})
	if errors.Is(err, errNotFound) {
		return nil, domain.NoDataError(symbol)
	}
	if err != nil {
		return nil, err
	}
	return &q, nil
}

// GetHistory fetches a close series with cache and stale fallback.
func (c *Client) GetHistory(ctx context.Context, symbol, period, interval string) (*History, error) {
	var h History
	key := clientdata.HistoryKey(symbol, period, interval)
	err := c.cacheFirst(ctx, clientdata.TableHistory, key, clientdata.TTLHistory, &h, func() (interface{}, error) {
		return c.fetchHistory(ctx, symbol, period, interval)
	})
	if errors.Is(err, errNotFound) {
		return nil, domain.NoDataError(symbol)
	}
	if err != nil {
		return nil, err
	}
	return &h, nil
}

// cacheFirst serves fresh cache, else calls fetch and stores the result,
// else falls back to stale cache. out receives the value either way.
func (c *Client) cacheFirst(
	ctx context.Context,
	table, key string,
	ttl time.Duration,
	out interface{},
	fetch func() (interface{}, error),
) error {
	if c.cacheRepo != nil {
		data, err := c.cacheRepo.GetIfFresh(ctx, table, key)
		if err == nil && data != nil {
			if err := json.Unmarshal(data, out); err == nil {
				c.log.Debug().Str("table", table).Str("key", key).Msg("Cache hit")
				return nil
			}
		}
	}

	value, err := fetch()
	if err != nil {
		if errors.Is(err, errNotFound) || ctx.Err() != nil {
			return err
		}
		if c.loadStale(ctx, table, key, out) {
			c.log.Warn().
				Err(err).
				Str("table", table).
				Str("key", key).
				Msg("API failed, using stale cached data")
			return nil
		}
		return err
	}

	raw, err := json.Marshal(value)
	if err != nil {
		return fmt.Errorf("failed to marshal %s response: %w", table, err)
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("failed to decode %s response: %w", table, err)
	}

	if c.cacheRepo != nil {
		if err := c.cacheRepo.Store(ctx, table, key, value, ttl); err != nil {
			c.log.Warn().Err(err).Str("table", table).Str("key", key).Msg("Failed to cache response")
		}
	}
	return nil
}

func (c *Client) loadStale(ctx context.Context, table, key string, out interface{}) bool {
	if c.cacheRepo == nil {
		return false
	}
	data, err := c.cacheRepo.Get(ctx, table, key)
	if err != nil || data == nil {
		return false
	}
	return json.Unmarshal(data, out) == nil
}

func (c *Client) fetchQuote(ctx context.Context, symbol string) (*Quote, error) {
	endpoint := fmt.Sprintf("%s/v7/finance/quote?symbols=%s", c.baseURL, url.QueryEscape(symbol))

	var result struct {
		QuoteResponse struct {
			Result []Quote          `json:"result"`
			Error  *json.RawMessage `json:"error"`
		} `json:"quoteResponse"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}

	for i := range result.QuoteResponse.Result {
		if result.QuoteResponse.Result[i].Symbol == symbol {
			q := result.QuoteResponse.Result[i]
			c.log.Debug().Str("symbol", symbol).Msg("Fetched quote")
			return &q, nil
		}
	}
	return nil, errNotFound
}

func (c *Client) fetchHistory(ctx context.Context, symbol, period, interval string) (*History, error) {
	q := url.Values{}
	q.Set("range", period)
	q.Set("interval", interval)
	q.Set("includeAdjustedClose", "true")
	endpoint := fmt.Sprintf("%s/v8/finance/chart/%s?%s", c.baseURL, url.PathEscape(symbol), q.Encode())

	var result struct {
		Chart struct {
			Result []struct {
				Timestamp  []int64 `json:"timestamp"`
				Indicators struct {
					Quote []struct {
						Close []*float64 `json:"close"`
					} `json:"quote"`
					AdjClose []struct {
						AdjClose []*float64 `json:"adjclose"`
					} `json:"adjclose"`
				} `json:"indicators"`
			} `json:"result"`
		} `json:"chart"`
	}
	if err := c.getJSON(ctx, endpoint, &result); err != nil {
		return nil, err
	}
	if len(result.Chart.Result) == 0 {
		return nil, errNotFound
	}

	r := result.Chart.Result[0]
	var closes []*float64
	if len(r.Indicators.AdjClose) > 0 && len(r.Indicators.AdjClose[0].AdjClose) == len(r.Timestamp) {
		closes = r.Indicators.AdjClose[0].AdjClose
	} else if len(r.Indicators.Quote) > 0 {
		closes = r.Indicators.Quote[0].Close
	}

	h := &History{Symbol: symbol, Period: period, Interval: interval, Bars: []Bar{}}
	for i, ts := range r.Timestamp {
		if i >= len(closes) || closes[i] == nil {
			continue
		}
		h.Bars = append(h.Bars, Bar{Time: ts, Close: *closes[i]})
	}
	if len(h.Bars) == 0 {
		return nil, errNotFound
	}

	c.log.Debug().Str("symbol", symbol).Int("bars", len(h.Bars)).Msg("Fetched history")
	return h, nil
}

func (c *Client) getJSON(ctx context.Context, endpoint string, out interface{}) error {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return fmt.Errorf("API request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return errNotFound
	case resp.StatusCode != http.StatusOK:
		return fmt.Errorf("API returned status %d", resp.StatusCode)
	}

	if err := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(out); err != nil {
		return fmt.Errorf("failed to parse response: %w", err)
	}
	return nil
}
