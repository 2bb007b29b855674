package charts

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
)

const sparklineConcurrency = 4

// ErrInvalidRange is returned for an unknown sparkline period or chart range.
var ErrInvalidRange = errors.New("invalid range")

// HistorySource reads close series. *yahoo.Client satisfies it.
type HistorySource interface {
	GetHistory(ctx context.Context, symbol, period, interval string) (*yahoo.History, error)
}

// ChartDataPoint represents a single point on a chart
type ChartDataPoint struct {
	Time  string  `json:"time"`  // YYYY-MM-DD, YYYY-Www or YYYY-MM
	Value float64 `json:"value"` // Close price or period average
}

// Service provides price chart data for tickers.
type Service struct {
	source HistorySource
	log    zerolog.Logger
}

// NewService creates a new charts service
func NewService(source HistorySource, log zerolog.Logger) *Service {
	return &Service{
		source: source,
		log:    log.With().Str("service", "charts").Logger(),
	}
}

// sparkline describes how a sparkline period is fetched and bucketed.
type sparkline struct {
	period   string
	interval string
	bucket   func(t time.Time) string
}

var sparklines = map[string]sparkline{
	"1Y": {period: "1y", interval: "1d", bucket: weekBucket},
	"5Y": {period: "5y", interval: "1wk", bucket: monthBucket},
}

// chartRanges maps a chart range to the upstream window and bar size.
var chartRanges = map[string][2]string{
	"1M":  {"1mo", "1d"},
	"3M":  {"3mo", "1d"},
	"6M":  {"6mo", "1d"},
	"1Y":  {"1y", "1d"},
	"5Y":  {"5y", "1wk"},
	"10Y": {"10y", "1wk"},
	"all": {"max", "1mo"},
}

// Sparkline returns a ticker's closes averaged per ISO week (1Y) or per
// month (5Y).
func (s *Service) Sparkline(ctx context.Context, ticker, period string) ([]ChartDataPoint, error) {
	sl, ok := sparklines[period]
	if !ok {
		return nil, fmt.Errorf("%w: %s (must be 1Y or 5Y)", ErrInvalidRange, period)
	}
	symbol, err := domain.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}

	h, err := s.source.GetHistory(ctx, symbol, sl.period, sl.interval)
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
	}
	return aggregate(h.Bars, sl.bucket), nil
}

// Sparklines fetches sparklines for several tickers. Tickers that fail are
// logged and left out of the result.
func (s *Service) Sparklines(ctx context.Context, tickers []string, period string) (map[string][]ChartDataPoint, error) {
	if _, ok := sparklines[period]; !ok {
		return nil, fmt.Errorf("%w: %s (must be 1Y or 5Y)", ErrInvalidRange, period)
	}

	var mu sync.Mutex
	result := make(map[string][]ChartDataPoint, len(tickers))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(sparklineConcurrency)
	for _, ticker := range tickers {
		ticker := ticker
		g.Go(func() error {
			points, err := s.Sparkline(gctx, ticker, period)
			if err != nil {
				s.log.Debug().Err(err).Str("ticker", ticker).Msg("Failed to get sparkline")
				return nil
			}
			if len(points) > 0 {
				mu.Lock()
				result[domain.NormalizeTicker(ticker)] = points
				mu.Unlock()
			}
			return nil
		})
	}
	_ = g.Wait()

	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("sparkline fetch canceled: %w", err)
	}
	return result, nil
}

// PriceChart returns one point per upstream bar over the given range
// (1M, 3M, 6M, 1Y, 5Y, 10Y or all). Empty means 1Y.
func (s *Service) PriceChart(ctx context.Context, ticker, dateRange string) ([]ChartDataPoint, error) {
	if dateRange == "" {
		dateRange = "1Y"
	}
	window, ok := chartRanges[dateRange]
	if !ok {
		return nil, fmt.Errorf("%w: %s", ErrInvalidRange, dateRange)
	}
	symbol, err := domain.ValidateTicker(ticker)
	if err != nil {
		return nil, err
	}

	h, err := s.source.GetHistory(ctx, symbol, window[0], window[1])
	if err != nil {
		return nil, fmt.Errorf("failed to get history for %s: %w", symbol, err)
	}

	points := make([]ChartDataPoint, 0, len(h.Bars))
	for _, b := range h.Bars {
		points = append(points, ChartDataPoint{
			Time:  time.Unix(b.Time, 0).UTC().Format("2006-01-02"),
			Value: b.Close,
		})
	}
	return points, nil
}

func weekBucket(t time.Time) string {
	year, week := t.ISOWeek()
	return fmt.Sprintf("%d-W%02d", year, week)
}

func monthBucket(t time.Time) string {
	return t.Format("2006-01")
}

// aggregate averages closes per bucket, ordered by bucket key.
func aggregate(bars []yahoo.Bar, bucket func(time.Time) string) []ChartDataPoint {
	sums := make(map[string]float64)
	counts := make(map[string]int)
	for _, b := range bars {
		key := bucket(time.Unix(b.Time, 0).UTC())
		sums[key] += b.Close
		counts[key]++
	}

	keys := make([]string, 0, len(sums))
	for k := range sums {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	points := make([]ChartDataPoint, 0, len(keys))
	for _, k := range keys {
		points = append(points, ChartDataPoint{Time: k, Value: sums[k] / float64(counts[k])})
	}
	return points
}
