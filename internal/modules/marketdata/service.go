// Package marketdata assembles the {stats, graphs, names} bundle for a batch
// of tickers from upstream quotes and price history.
package marketdata

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/utils"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const (
	DefaultBenchmark = "SPY"
	DefaultPeriod    = "1y"
	DefaultInterval  = "1d"

	fetchConcurrency = 8
	slowFetch        = 10 * time.Second
)

// Source is the upstream the service reads from. *yahoo.Client satisfies it.
type Source interface {
	GetQuote(ctx context.Context, symbol string) (*yahoo.Quote, error)
	GetHistory(ctx context.Context, symbol, period, interval string) (*yahoo.History, error)
}

// Request selects the tickers and the price window for a bundle.
type Request struct {
	Tickers  []string
	Period   string
	Interval string
}

// Service builds market data bundles.
type Service struct {
	source    Source
	benchmark string
	period    string
	interval  string
	log       zerolog.Logger
}

// Config holds the service defaults.
type Config struct {
	Benchmark string
	Period    string
	Interval  string
}

// NewService creates a market data service. Empty config fields take the
// package defaults.
func NewService(source Source, cfg Config, log zerolog.Logger) *Service {
	if cfg.Benchmark == "" {
		cfg.Benchmark = DefaultBenchmark
	}
	if cfg.Period == "" {
		cfg.Period = DefaultPeriod
	}
	if cfg.Interval == "" {
		cfg.Interval = DefaultInterval
	}
	return &Service{
		source:    source,
		benchmark: domain.NormalizeTicker(cfg.Benchmark),
		period:    cfg.Period,
		interval:  cfg.Interval,
		log:       log.With().Str("service", "marketdata").Logger(),
	}
}

// FetchMarketData builds a bundle over the default window. It makes the
// service usable wherever a domain.MarketDataFetcher is expected.
func (s *Service) FetchMarketData(ctx context.Context, tickers []string) (*domain.Bundle, error) {
	return s.Fetch(ctx, Request{Tickers: tickers})
}

// symbolData is everything fetched for one symbol.
type symbolData struct {
	quote      *yahoo.Quote
	history    *yahoo.History
	quoteErr   error
	historyErr error
}

// Fetch builds a bundle for req.
//
// Tickers without a quote are left out of the bundle. If every requested
// ticker fails and at least one failure was not a plain "no data" answer,
// the whole request fails with domain.ErrUpstreamServer.
func (s *Service) Fetch(ctx context.Context, req Request) (*domain.Bundle, error) {
	tickers, err := domain.ValidateTickers(req.Tickers)
	if err != nil {
		return nil, err
	}
	period, interval := req.Period, req.Interval
	if period == "" {
		period = s.period
	}
	if interval == "" {
		interval = s.interval
	}
	defer utils.OperationTimer("fetch_market_data", slowFetch, s.log)()

	symbols := append([]string(nil), tickers...)
	if !contains(symbols, s.benchmark) {
		symbols = append(symbols, s.benchmark)
	}

	data, err := s.fetchAll(ctx, symbols, period, interval)
	if err != nil {
		return nil, err
	}

	bundle := domain.NewBundle()
	bench := data[s.benchmark]
	benchHistory := bench.history

	failed, upstreamFailures := 0, 0
	for _, t := range tickers {
		d := data[t]
		if d.quoteErr != nil {
			failed++
			if !errors.Is(d.quoteErr, domain.ErrNoDataForTicker) {
				upstreamFailures++
			}
			s.log.Warn().Err(d.quoteErr).Str("ticker", t).Msg("Skipping ticker without quote")
			continue
		}
		if d.historyErr != nil {
			s.log.Debug().Err(d.historyErr).Str("ticker", t).Msg("No price history, risk figures unavailable")
		}

		bundle.Stats[t] = tickerStats(d.quote, d.history, benchHistory)
		bundle.Names[t] = d.quote.Name()
		if rr, ok := frontierPoint(d.history); ok {
			bundle.Graphs.EfficientFrontier[t] = rr
		}
	}

	if failed == len(tickers) && upstreamFailures > 0 {
		return nil, fmt.Errorf("%w: all %d tickers failed upstream", domain.ErrUpstreamServer, failed)
	}

	if bench.quoteErr == nil {
		bundle.Stats[domain.MarketAveragesKey] = marketAverages(bench.quote, benchHistory)
		bundle.Stats[domain.MarketExpectationsKey] = marketExpectations(bench.quote, benchHistory)
	} else {
		s.log.Warn().Err(bench.quoteErr).Str("benchmark", s.benchmark).Msg("Benchmark quote unavailable")
	}

	s.attachMCTR(bundle, tickers, data)
	return bundle, nil
}

// fetchAll retrieves quote and history for every symbol in parallel.
// Per-symbol failures are recorded, not returned; only cancellation of ctx
// fails the batch.
func (s *Service) fetchAll(ctx context.Context, symbols []string, period, interval string) (map[string]*symbolData, error) {
	var mu sync.Mutex
	out := make(map[string]*symbolData, len(symbols))
	for _, sym := range symbols {
		out[sym] = &symbolData{}
	}

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(fetchConcurrency)
	for _, sym := range symbols {
		sym := sym
		g.Go(func() error {
			q, err := s.source.GetQuote(gctx, sym)
			mu.Lock()
			out[sym].quote, out[sym].quoteErr = q, err
			mu.Unlock()
			return nil
		})
		g.Go(func() error {
			h, err := s.source.GetHistory(gctx, sym, period, interval)
			if err == nil && (h == nil || len(h.Bars) == 0) {
				h, err = nil, domain.NoDataError(sym)
			}
			mu.Lock()
			out[sym].history, out[sym].historyErr = h, err
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("market data fetch canceled: %w", err)
	}
	return out, nil
}

// attachMCTR adds the equal-weight risk breakdown over the requested tickers
// and the benchmark. Every requested ticker gets the same component map.
func (s *Service) attachMCTR(bundle *domain.Bundle, tickers []string, data map[string]*symbolData) {
	var symbols []string
	var histories []*yahoo.History
	for _, t := range tickers {
		if _, ok := bundle.Stats[t]; !ok {
			continue
		}
		if h := data[t].history; h != nil {
			symbols = append(symbols, t)
			histories = append(histories, h)
		}
	}
	if len(symbols) == 0 {
		return
	}
	if h := data[s.benchmark].history; h != nil && !contains(symbols, s.benchmark) {
		symbols = append(symbols, s.benchmark)
		histories = append(histories, h)
	}

	components, err := mctrComponents(symbols, histories)
	if err != nil {
		s.log.Debug().Err(err).Strs("symbols", symbols).Msg("MCTR unavailable")
		return
	}
	for _, t := range symbols {
		if t == s.benchmark && !contains(tickers, t) {
			continue
		}
		cp := make(map[string]float64, len(components))
		for k, v := range components {
			cp[k] = v
		}
		bundle.Graphs.MCTR[t] = cp
	}
}

func contains(list []string, s string) bool {
	for _, v := range list {
		if v == s {
			return true
		}
	}
	return false
}

// Ping checks that the upstream answers by fetching the benchmark quote.
func (s *Service) Ping(ctx context.Context) error {
	if _, err := s.source.GetQuote(ctx, s.benchmark); err != nil {
		return fmt.Errorf("failed to reach upstream: %w", err)
	}
	return nil
}

// Benchmark returns the symbol used for market averages.
func (s *Service) Benchmark() string {
	return s.benchmark
}
