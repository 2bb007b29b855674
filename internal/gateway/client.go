// Package gateway is the dashboard's request gateway: one GET per batch of
// tickers against an aggregation endpoint, with HTTP statuses translated
// into the domain error taxonomy.
package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/utils"
	"github.com/rs/zerolog"
)

// DefaultTimeout bounds a single request when none is configured.
const DefaultTimeout = 30 * time.Second

// maxBodyBytes caps how much of a response body is read.
const maxBodyBytes = 8 << 20

// Client talks to GET /api/data. No retries: every failure is terminal for
// that request.
type Client struct {
	baseURL string
	client  *http.Client
	log     zerolog.Logger
}

// Option customizes a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying http.Client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// NewClient creates a gateway client for baseURL (scheme and host, no path).
// A non-positive timeout falls back to DefaultTimeout.
func NewClient(baseURL string, timeout time.Duration, log zerolog.Logger, opts ...Option) *Client {
	if timeout <= 0 {
		timeout = DefaultTimeout
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
		log:     log.With().Str("client", "gateway").Logger(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// FetchMarketData validates every ticker locally, then fetches the bundle.
//
//	200   -> decoded bundle
//	400   -> domain.ErrInvalidTicker
//	500   -> domain.ErrUpstreamServer
//	other -> *domain.TransportError (errors.Is ErrUnknownTransport)
func (c *Client) FetchMarketData(ctx context.Context, tickers []string) (*domain.Bundle, error) {
	normalized, err := domain.ValidateTickers(tickers)
	if err != nil {
		return nil, err
	}

	query := url.Values{}
	query.Set("tickers", utils.JoinList(normalized))
	endpoint := c.baseURL + "/api/data?" + query.Encode()

	body, err := c.get(ctx, endpoint)
	if err != nil {
		return nil, err
	}

	var bundle domain.Bundle
	if err := json.Unmarshal(body, &bundle); err != nil {
		return nil, &domain.TransportError{
			Status:  http.StatusOK,
			Message: "malformed response body",
			Err:     err,
		}
	}

	c.log.Debug().
		Strs("tickers", normalized).
		Int("stats", len(bundle.Stats)).
		Msg("Fetched market data")

	return &bundle, nil
}

// FetchTicker fetches a single ticker and requires its stats row to be present.
func (c *Client) FetchTicker(ctx context.Context, ticker string) (*domain.Bundle, error) {
	t, err := domain.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}

	bundle, err := c.FetchMarketData(ctx, []string{t})
	if err != nil {
		return nil, err
	}
	if _, ok := bundle.TickerStats(t); !ok {
		return nil, domain.NoDataError(t)
	}
	return bundle, nil
}

// PingResponse mirrors GET /api/ping.
type PingResponse struct {
	Success  bool   `json:"success"`
	Upstream string `json:"upstream,omitempty"`
}

// Ping checks that the aggregation server is reachable.
func (c *Client) Ping(ctx context.Context) (*PingResponse, error) {
	body, err := c.get(ctx, c.baseURL+"/api/ping")
	if err != nil {
		return nil, err
	}

	var resp PingResponse
	if err := json.Unmarshal(body, &resp); err != nil {
		return nil, &domain.TransportError{Status: http.StatusOK, Message: "malformed ping body", Err: err}
	}
	return &resp, nil
}

func (c *Client) get(ctx context.Context, endpoint string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, &domain.TransportError{Message: "failed to build request", Err: err}
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.log.Warn().Err(err).Str("url", endpoint).Msg("Request failed")
		return nil, &domain.TransportError{Message: transportMessage(ctx, err), Err: err}
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, &domain.TransportError{Status: resp.StatusCode, Message: "failed to read response body", Err: err}
	}

	switch resp.StatusCode {
	case http.StatusOK:
		return body, nil
	case http.StatusBadRequest:
		return nil, fmt.Errorf("%w: ticker not formatted properly", domain.ErrInvalidTicker)
	case http.StatusInternalServerError:
		return nil, fmt.Errorf("%w: internal server error", domain.ErrUpstreamServer)
	default:
		c.log.Warn().Int("status", resp.StatusCode).Str("url", endpoint).Msg("Unexpected status")
		return nil, &domain.TransportError{Status: resp.StatusCode, Message: http.StatusText(resp.StatusCode)}
	}
}

func transportMessage(ctx context.Context, err error) string {
	switch {
	case errors.Is(ctx.Err(), context.Canceled):
		return "request cancelled"
	case errors.Is(ctx.Err(), context.DeadlineExceeded), isTimeout(err):
		return "request timed out"
	default:
		return err.Error()
	}
}

func isTimeout(err error) bool {
	var te interface{ Timeout() bool }
	return errors.As(err, &te) && te.Timeout()
}
