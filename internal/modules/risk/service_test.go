package risk

import (
	"context"
	"sync"
	"testing"

	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubHistory struct {
	mu      sync.Mutex
	bars    map[string][]yahoo.Bar
	periods []string
}

func (s *stubHistory) GetHistory(_ context.Context, symbol, period, _ string) (*yahoo.History, error) {
	s.mu.Lock()
	s.periods = append(s.periods, period)
	s.mu.Unlock()
	bars, ok := s.bars[symbol]
	if !ok {
		return nil, domain.NoDataError(symbol)
	}
	return &yahoo.History{Symbol: symbol, Bars: bars}, nil
}

// series builds n+1 daily bars whose returns are scale times a repeating
// -2%..+2% market pattern.
func series(n int, scale float64) []yahoo.Bar {
	bars := make([]yahoo.Bar, n+1)
	price := 100.0
	bars[0] = yahoo.Bar{Time: 0, Close: price}
	for i := 1; i <= n; i++ {
		price *= 1 + scale*0.01*float64((i%5)-2)
		bars[i] = yahoo.Bar{Time: int64(i) * 86400, Close: price}
	}
	return bars
}

func newTestService(bars map[string][]yahoo.Bar) (*Service, *stubHistory) {
	src := &stubHistory{bars: bars}
	return NewService(src, Config{Benchmark: "spy", RiskFreeRate: 0.02}, zerolog.Nop()), src
}

func TestMetrics(t *testing.T) {
	svc, src := newTestService(map[string][]yahoo.Bar{
		"AAPL": series(60, 2),
		"SPY":  series(60, 1),
	})

	m, err := svc.Metrics(context.Background(), "aapl", "")
	require.NoError(t, err)

	assert.Equal(t, "AAPL", m.Ticker)
	assert.Equal(t, "SPY", m.Benchmark)
	assert.Equal(t, "1y", m.Period)
	assert.Equal(t, 60, m.Observations)
	assert.ElementsMatch(t, []string{"1y", "1y"}, src.periods)

	require.NotNil(t, m.Beta)
	assert.InDelta(t, 2.0, *m.Beta, 1e-4)
	for name, v := range map[string]*float64{
		"volatility":  m.Volatility,
		"sharpe":      m.Sharpe,
		"sortino":     m.Sortino,
		"maxDrawdown": m.MaxDrawdown,
		"var95":       m.VaR95,
		"cvar99":      m.CVaR99,
	} {
		assert.NotNil(t, v, name)
	}
	// worst daily return is -4%
	assert.InDelta(t, 0.04, *m.VaR99, 1e-9)
	assert.InDelta(t, 0.04, *m.CVaR95, 1e-9)
	assert.Greater(t, *m.MaxDrawdown, 0.0)
}

func TestMetrics_BenchmarkUnavailable(t *testing.T) {
	svc, _ := newTestService(map[string][]yahoo.Bar{"AAPL": series(30, 1)})

	m, err := svc.Metrics(context.Background(), "AAPL", "6mo")
	require.NoError(t, err)
	assert.Equal(t, "6mo", m.Period)
	assert.Nil(t, m.Beta)
	assert.NotNil(t, m.Volatility)
}

func TestMetrics_BenchmarkItself(t *testing.T) {
	svc, src := newTestService(map[string][]yahoo.Bar{"SPY": series(30, 1)})

	m, err := svc.Metrics(context.Background(), "SPY", "")
	require.NoError(t, err)
	require.NotNil(t, m.Beta)
	assert.InDelta(t, 1.0, *m.Beta, 1e-9)
	assert.Len(t, src.periods, 1)
}

func TestMetrics_Errors(t *testing.T) {
	svc, _ := newTestService(map[string][]yahoo.Bar{"AAPL": series(5, 1)})
	ctx := context.Background()

	_, err := svc.Metrics(ctx, "AAPL", "")
	assert.ErrorIs(t, err, ErrInsufficientHistory)

	_, err = svc.Metrics(ctx, "AAPL", "7y")
	assert.ErrorIs(t, err, ErrInvalidPeriod)

	_, err = svc.Metrics(ctx, "BRK.B", "")
	assert.ErrorIs(t, err, domain.ErrInvalidTicker)

	_, err = svc.Metrics(ctx, "ZZZZ", "")
	assert.ErrorIs(t, err, domain.ErrNoDataForTicker)
}
