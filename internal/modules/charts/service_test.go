package charts

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type historyCall struct {
	symbol, period, interval string
}

type stubHistory struct {
	bars  map[string][]yahoo.Bar
	calls chan historyCall
}

func (s *stubHistory) GetHistory(_ context.Context, symbol, period, interval string) (*yahoo.History, error) {
	if s.calls != nil {
		s.calls <- historyCall{symbol, period, interval}
	}
	bars, ok := s.bars[symbol]
	if !ok {
		return nil, domain.NoDataError(symbol)
	}
	return &yahoo.History{Symbol: symbol, Period: period, Interval: interval, Bars: bars}, nil
}

func day(y int, m time.Month, d int) int64 {
	return time.Date(y, m, d, 14, 30, 0, 0, time.UTC).Unix()
}

func testBars() []yahoo.Bar {
	return []yahoo.Bar{
		{Time: day(2024, 1, 1), Close: 100},
		{Time: day(2024, 1, 2), Close: 110},
		{Time: day(2024, 1, 8), Close: 120},
		{Time: day(2024, 2, 1), Close: 130},
	}
}

func TestSparkline_Weekly(t *testing.T) {
	src := &stubHistory{bars: map[string][]yahoo.Bar{"AAPL": testBars()}, calls: make(chan historyCall, 1)}
	svc := NewService(src, zerolog.Nop())

	points, err := svc.Sparkline(context.Background(), "aapl", "1Y")
	require.NoError(t, err)
	assert.Equal(t, historyCall{"AAPL", "1y", "1d"}, <-src.calls)
	assert.Equal(t, []ChartDataPoint{
		{Time: "2024-W01", Value: 105},
		{Time: "2024-W02", Value: 120},
		{Time: "2024-W05", Value: 130},
	}, points)
}

func TestSparkline_Monthly(t *testing.T) {
	src := &stubHistory{bars: map[string][]yahoo.Bar{"AAPL": testBars()}, calls: make(chan historyCall, 1)}
	svc := NewService(src, zerolog.Nop())

	points, err := svc.Sparkline(context.Background(), "AAPL", "5Y")
	require.NoError(t, err)
	assert.Equal(t, historyCall{"AAPL", "5y", "1wk"}, <-src.calls)
	assert.Equal(t, []ChartDataPoint{
		{Time: "2024-01", Value: 110},
		{Time: "2024-02", Value: 130},
	}, points)
}

func TestSparkline_Errors(t *testing.T) {
	svc := NewService(&stubHistory{}, zerolog.Nop())

	_, err := svc.Sparkline(context.Background(), "AAPL", "3Y")
	assert.ErrorIs(t, err, ErrInvalidRange)

	_, err = svc.Sparkline(context.Background(), "BRK.B", "1Y")
	assert.ErrorIs(t, err, domain.ErrInvalidTicker)

	_, err = svc.Sparkline(context.Background(), "ZZZZ", "1Y")
	assert.ErrorIs(t, err, domain.ErrNoDataForTicker)
}

func TestSparklines_SkipsFailures(t *testing.T) {
	src := &stubHistory{bars: map[string][]yahoo.Bar{
		"AAPL": testBars(),
		"MSFT": testBars()[:1],
	}}
	svc := NewService(src, zerolog.Nop())

	got, err := svc.Sparklines(context.Background(), []string{"aapl", "MSFT", "ZZZZ"}, "5Y")
	require.NoError(t, err)
	assert.Len(t, got, 2)
	assert.Len(t, got["AAPL"], 2)
	assert.Equal(t, []ChartDataPoint{{Time: "2024-01", Value: 100}}, got["MSFT"])

	_, err = svc.Sparklines(context.Background(), []string{"AAPL"}, "")
	assert.True(t, errors.Is(err, ErrInvalidRange))
}

func TestPriceChart(t *testing.T) {
	src := &stubHistory{bars: map[string][]yahoo.Bar{"AAPL": testBars()}, calls: make(chan historyCall, 2)}
	svc := NewService(src, zerolog.Nop())

	points, err := svc.PriceChart(context.Background(), "AAPL", "")
	require.NoError(t, err)
	assert.Equal(t, historyCall{"AAPL", "1y", "1d"}, <-src.calls)
	require.Len(t, points, 4)
	assert.Equal(t, ChartDataPoint{Time: "2024-01-01", Value: 100}, points[0])
	assert.Equal(t, ChartDataPoint{Time: "2024-02-01", Value: 130}, points[3])

	_, err = svc.PriceChart(context.Background(), "AAPL", "all")
	require.NoError(t, err)
	assert.Equal(t, historyCall{"AAPL", "max", "1mo"}, <-src.calls)

	_, err = svc.PriceChart(context.Background(), "AAPL", "2W")
	assert.ErrorIs(t, err, ErrInvalidRange)
}
