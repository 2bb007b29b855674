// Package risk computes per-ticker risk metrics from daily price history:
// volatility, Sharpe, Sortino, drawdown, historical VaR/CVaR and beta
// against the benchmark.
package risk

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/marketdata"
	"github.com/aristath/tickerdash/pkg/formulas"
	"github.com/rs/zerolog"
	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

const (
	// MinObservations is the fewest daily returns metrics are computed from.
	MinObservations = 20

	metricPlaces = 4
)

var (
	// ErrInvalidPeriod is returned for a period the upstream does not accept.
	ErrInvalidPeriod = errors.New("invalid period")
	// ErrInsufficientHistory is returned when a ticker has too few closes.
	ErrInsufficientHistory = errors.New("insufficient price history")
)

// HistorySource reads close series. *yahoo.Client satisfies it.
type HistorySource interface {
	GetHistory(ctx context.Context, symbol, period, interval string) (*yahoo.History, error)
}

// Config holds the service defaults.
type Config struct {
	Benchmark    string
	Period       string
	RiskFreeRate float64 // annual
}

// Metrics is the risk profile of one ticker over a period. A nil metric
// could not be computed from the available data.
type Metrics struct {
	Ticker       string    `json:"ticker"`
	Benchmark    string    `json:"benchmark"`
	Period       string    `json:"period"`
	Observations int       `json:"observations"`
	Volatility   *float64  `json:"volatility"`
	Sharpe       *float64  `json:"sharpe"`
	Sortino      *float64  `json:"sortino"`
	MaxDrawdown  *float64  `json:"maxDrawdown"`
	VaR95        *float64  `json:"var95"`
	VaR99        *float64  `json:"var99"`
	CVaR95       *float64  `json:"cvar95"`
	CVaR99       *float64  `json:"cvar99"`
	Beta         *float64  `json:"beta"`
	CalculatedAt time.Time `json:"calculatedAt"`
}

// Service computes ticker risk metrics.
type Service struct {
	source       HistorySource
	benchmark    string
	period       string
	riskFreeRate float64
	log          zerolog.Logger
}

// NewService creates a risk service. Empty config fields take the market
// data defaults.
func NewService(source HistorySource, cfg Config, log zerolog.Logger) *Service {
	if cfg.Benchmark == "" {
		cfg.Benchmark = marketdata.DefaultBenchmark
	}
	if cfg.Period == "" {
		cfg.Period = marketdata.DefaultPeriod
	}
	return &Service{
		source:       source,
		benchmark:    domain.NormalizeTicker(cfg.Benchmark),
		period:       cfg.Period,
		riskFreeRate: cfg.RiskFreeRate,
		log:          log.With().Str("service", "risk").Logger(),
	}
}

// Metrics computes the risk profile of ticker over period (empty means the
// default). Benchmark failures only leave Beta unset.
func (s *Service) Metrics(ctx context.Context, ticker, period string) (*Metrics, error) {
	symbol, err := domain.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}
	if !marketdata.ValidPeriod(period) {
		return nil, fmt.Errorf("%w: %q", ErrInvalidPeriod, period)
	}
	if period == "" {
		period = s.period
	}

	var history, bench *yahoo.History
	var benchErr error
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		h, err := s.source.GetHistory(gctx, symbol, period, marketdata.DefaultInterval)
		if err != nil {
			return fmt.Errorf("failed to get history for %s: %w", symbol, err)
		}
		history = h
		return nil
	})
	if symbol != s.benchmark {
		g.Go(func() error {
			bench, benchErr = s.source.GetHistory(gctx, s.benchmark, period, marketdata.DefaultInterval)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	if history == nil {
		return nil, domain.NoDataError(symbol)
	}
	if symbol == s.benchmark {
		bench = history
	}

	closes := history.Closes()
	returns := formulas.Returns(closes)
	if len(returns) < MinObservations {
		return nil, fmt.Errorf("%w: %s has %d returns, need %d", ErrInsufficientHistory, symbol, len(returns), MinObservations)
	}

	m := &Metrics{
		Ticker:       symbol,
		Benchmark:    s.benchmark,
		Period:       period,
		Observations: len(returns),
		Volatility:   metric(formulas.AnnualizedVolatility(returns), true),
		Sharpe:       metric(formulas.SharpeRatio(returns, s.riskFreeRate, formulas.TradingDaysPerYear)),
		Sortino:      metric(formulas.SortinoRatio(returns, s.riskFreeRate, formulas.TradingDaysPerYear)),
		MaxDrawdown:  metric(formulas.MaxDrawdown(closes)),
		VaR95:        metric(formulas.HistoricalVaR(returns, 0.95)),
		VaR99:        metric(formulas.HistoricalVaR(returns, 0.99)),
		CVaR95:       metric(formulas.CVaR(returns, 0.95)),
		CVaR99:       metric(formulas.CVaR(returns, 0.99)),
		CalculatedAt: time.Now().UTC(),
	}

	if benchErr != nil {
		s.log.Warn().Err(benchErr).Str("benchmark", s.benchmark).Msg("Benchmark history unavailable, beta skipped")
	} else if bench != nil {
		stock, market := pairedReturns(history, bench)
		m.Beta = metric(formulas.Beta(stock, market))
	}

	return m, nil
}

// pairedReturns returns the ticker and benchmark returns over the dates both
// histories share.
func pairedReturns(h, bench *yahoo.History) ([]float64, []float64) {
	benchClose := make(map[int64]float64, len(bench.Bars))
	for _, b := range bench.Bars {
		benchClose[b.Time] = b.Close
	}
	var stock, market []float64
	for _, b := range h.Bars {
		if c, ok := benchClose[b.Time]; ok {
			stock = append(stock, b.Close)
			market = append(market, c)
		}
	}
	return formulas.Returns(stock), formulas.Returns(market)
}

func metric(v float64, ok bool) *float64 {
	if !ok || math.IsNaN(v) || math.IsInf(v, 0) {
		return nil
	}
	r, _ := decimal.NewFromFloat(v).Round(metricPlaces).Float64()
	return &r
}
