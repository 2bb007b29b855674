package formulas

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// ladder returns -0.09, -0.08, ..., 0.10.
func ladder() []float64 {
	out := make([]float64, 20)
	for i := range out {
		out[i] = float64(i-9) / 100
	}
	return out
}

func TestSharpeRatio(t *testing.T) {
	got, ok := SharpeRatio([]float64{0.01, 0.02, 0.03}, 0, TradingDaysPerYear)
	require.True(t, ok)
	assert.InDelta(t, 2*math.Sqrt(252), got, 1e-9)

	_, ok = SharpeRatio([]float64{0.01, 0.01, 0.01}, 0, TradingDaysPerYear)
	assert.False(t, ok, "zero volatility")
	_, ok = SharpeRatio([]float64{0.01}, 0, TradingDaysPerYear)
	assert.False(t, ok)
}

func TestSortinoRatio(t *testing.T) {
	returns := []float64{0.02, -0.01, 0.03, -0.02}
	got, ok := SortinoRatio(returns, 0, TradingDaysPerYear)
	require.True(t, ok)
	downside := math.Sqrt((0.01*0.01 + 0.02*0.02) / 4)
	assert.InDelta(t, 0.005/downside*math.Sqrt(252), got, 1e-9)

	_, ok = SortinoRatio([]float64{0.01, 0.02}, 0, TradingDaysPerYear)
	assert.False(t, ok, "no downside")
}

func TestMaxDrawdown(t *testing.T) {
	got, ok := MaxDrawdown([]float64{100, 120, 90, 130, 65, 140})
	require.True(t, ok)
	assert.InDelta(t, 0.5, got, 1e-12)

	got, ok = MaxDrawdown([]float64{1, 2, 3})
	require.True(t, ok)
	assert.Equal(t, 0.0, got)

	_, ok = MaxDrawdown([]float64{1})
	assert.False(t, ok)
}

func TestHistoricalVaR(t *testing.T) {
	got, ok := HistoricalVaR(ladder(), 0.95)
	require.True(t, ok)
	assert.InDelta(t, 0.09, got, 1e-12)

	got, ok = HistoricalVaR(ladder(), 0.90)
	require.True(t, ok)
	assert.InDelta(t, 0.08, got, 1e-12)

	_, ok = HistoricalVaR(nil, 0.95)
	assert.False(t, ok)
	_, ok = HistoricalVaR(ladder(), 1)
	assert.False(t, ok)
}

func TestCVaR(t *testing.T) {
	got, ok := CVaR(ladder(), 0.95)
	require.True(t, ok)
	assert.InDelta(t, 0.09, got, 1e-12)

	got, ok = CVaR(ladder(), 0.90)
	require.True(t, ok)
	assert.InDelta(t, 0.085, got, 1e-12)

	got, ok = CVaR([]float64{0.01, -0.02}, 0.99)
	require.True(t, ok, "tail never empty")
	assert.InDelta(t, 0.02, got, 1e-12)
}
