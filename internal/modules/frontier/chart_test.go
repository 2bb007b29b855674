package frontier

import (
	"math"
	"math/rand/v2"
	"testing"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestScale_MinAndMaxHitBoundsExactly(t *testing.T) {
	risks, _ := ExtentOf([]float64{0.1, 0.3})
	returns, _ := ExtentOf([]float64{0.05, 0.15})

	assert.InDelta(t, 0.10, risks.Scale(0.1, RiskBounds), 1e-12)
	assert.InDelta(t, 0.35, risks.Scale(0.3, RiskBounds), 1e-12)
	assert.InDelta(t, 0.0, returns.Scale(0.05, ReturnBounds), 1e-12)
	assert.InDelta(t, 0.20, returns.Scale(0.15, ReturnBounds), 1e-12)
}

func TestScale_DegenerateMapsToMidpoint(t *testing.T) {
	got := Scale(0.2, 0.2, 0.2, RiskBounds)
	assert.False(t, math.IsNaN(got))
	assert.InDelta(t, 0.225, got, 1e-12)

	assert.InDelta(t, 0.10, Scale(5, 5, 5, ReturnBounds), 1e-12)
	assert.InDelta(t, 0.10, Scale(math.NaN(), 0, 1, ReturnBounds), 1e-12)
	assert.InDelta(t, 0.10, Scale(1, 0, math.Inf(1), ReturnBounds), 1e-12)
}

func TestJitter_StaysWithinOnePercentAndBounds(t *testing.T) {
	maxOffset := JitterFraction * RiskBounds.Span()
	for _, u := range []float64{0, 0.25, 0.5, 0.999999} {
		got := Jitter(0.2, u, RiskBounds)
		assert.LessOrEqual(t, math.Abs(got-0.2), maxOffset+1e-12)
	}

	assert.Equal(t, RiskBounds.Lo, Jitter(RiskBounds.Lo, 0, RiskBounds))
	assert.Equal(t, RiskBounds.Hi, Jitter(RiskBounds.Hi, 0.999999, RiskBounds))
}

func TestExtentOf_Empty(t *testing.T) {
	_, ok := ExtentOf(nil)
	assert.False(t, ok)
}

func TestParseCapType(t *testing.T) {
	assert.Equal(t, MidCap, ParseCapType("mid_cap"))
	assert.Equal(t, SmallCap, ParseCapType(" SMALL_CAP "))
	assert.Equal(t, LargeCap, ParseCapType("large_cap"))
	assert.Equal(t, LargeCap, ParseCapType("mega_cap"))
	assert.Equal(t, LargeCap, ParseCapType(""))
}

func TestBuildChart_CurveShapes(t *testing.T) {
	chart := BuildChart(MidCap, nil, nil, rand.New(rand.NewPCG(1, 1)))

	require.Len(t, chart.Frontier, 21)
	require.Len(t, chart.CapitalMarketLine, 11)
	require.Len(t, chart.EqualWeightLine, 21)

	assert.InDelta(t, 0.18, chart.Frontier[0].X, 1e-12)
	assert.InDelta(t, 0.10, chart.Frontier[0].Y, 1e-12)
	assert.InDelta(t, 0.38, chart.Frontier[20].X, 1e-12)
	assert.InDelta(t, 0.10+0.4*math.Pow(0.2, 0.7), chart.Frontier[20].Y, 1e-9)

	assert.InDelta(t, 0.26, chart.OptimalPortfolio.X, 1e-12)
	assert.InDelta(t, 0.16, chart.OptimalPortfolio.Y, 1e-12)

	assert.Equal(t, Point{X: 0, Y: 0.02}, chart.CapitalMarketLine[0])
	assert.InDelta(t, chart.OptimalPortfolio.X, chart.CapitalMarketLine[10].X, 1e-12)
	assert.InDelta(t, chart.OptimalPortfolio.Y, chart.CapitalMarketLine[10].Y, 1e-12)

	for _, p := range chart.EqualWeightLine {
		assert.InDelta(t, 0.12, p.Y, 1e-12)
	}
}

func TestBuildChart_PlaceholdersWhenNoData(t *testing.T) {
	chart := BuildChart(LargeCap, domain.NewBundle(), newTestCache(nil), rand.New(rand.NewPCG(3, 4)))

	assert.True(t, chart.PlaceholderAssets)
	require.Len(t, chart.IndividualAssets, 8)
	assert.Equal(t, "Stock 1", chart.IndividualAssets[0].Label)
	assert.Equal(t, "Stock 8", chart.IndividualAssets[7].Label)
	for _, p := range chart.IndividualAssets {
		assert.GreaterOrEqual(t, p.X, 0.15)
		assert.Less(t, p.X, 0.30)
	}
	assert.Empty(t, chart.CachedPoints)
}

func TestIndividualAssets_ExcludesCachedTickers(t *testing.T) {
	bundle := domain.NewBundle()
	bundle.Graphs.EfficientFrontier["AAPL"] = domain.RiskReturn{Risk: 0.1, CAGR: 0.05}
	bundle.Graphs.EfficientFrontier["MSFT"] = domain.RiskReturn{Risk: 0.3, CAGR: 0.15}
	bundle.Graphs.EfficientFrontier["GOOG"] = domain.RiskReturn{Risk: 0.2, CAGR: 0.10}

	cache := newTestCache(nil)
	cache.Add("GOOG", &domain.RiskReturn{Risk: 0.2, CAGR: 0.10})

	chart := BuildChart(LargeCap, bundle, cache, nil)

	require.Len(t, chart.IndividualAssets, 2)
	byLabel := map[string]ChartPoint{}
	for _, p := range chart.IndividualAssets {
		byLabel[p.Label] = p
	}
	assert.NotContains(t, byLabel, "GOOG")
	assert.InDelta(t, 0.10, byLabel["AAPL"].X, 1e-12)
	assert.InDelta(t, 0.0, byLabel["AAPL"].Y, 1e-12)
	assert.InDelta(t, 0.35, byLabel["MSFT"].X, 1e-12)
	assert.InDelta(t, 0.20, byLabel["MSFT"].Y, 1e-12)

	require.Len(t, chart.CachedPoints, 1)
	assert.Equal(t, "GOOG", chart.CachedPoints[0].Label)
	assert.False(t, chart.PlaceholderAssets)
}

func TestIndividualAssets_CachedPointsShapeTheExtent(t *testing.T) {
	bundle := domain.NewBundle()
	bundle.Graphs.EfficientFrontier["AAPL"] = domain.RiskReturn{Risk: 0.2, CAGR: 0.1}

	cached := []TickerPoint{
		{Ticker: "LOW", X: 0.1, Y: 0.0},
		{Ticker: "HIGH", X: 0.3, Y: 0.2},
	}

	got := IndividualAssets(bundle, cached, nil)
	require.Len(t, got, 1)
	assert.InDelta(t, 0.225, got[0].X, 1e-12)
	assert.InDelta(t, 0.10, got[0].Y, 1e-12)
}

func TestIndividualAssets_SinglePointIsFinite(t *testing.T) {
	bundle := domain.NewBundle()
	bundle.Graphs.EfficientFrontier["AAPL"] = domain.RiskReturn{Risk: 0.2, CAGR: 0.1}

	got := IndividualAssets(bundle, nil, rand.New(rand.NewPCG(5, 6)))
	require.Len(t, got, 1)
	assert.False(t, math.IsNaN(got[0].X))
	assert.False(t, math.IsNaN(got[0].Y))
	assert.InDelta(t, RiskBounds.Mid(), got[0].X, JitterFraction*RiskBounds.Span()+1e-12)
	assert.InDelta(t, ReturnBounds.Mid(), got[0].Y, JitterFraction*ReturnBounds.Span()+1e-12)
}

func TestIndividualAssets_JitteredPointsStayInBounds(t *testing.T) {
	bundle := domain.NewBundle()
	for i, tk := range []string{"A", "B", "C", "D", "E", "F"} {
		bundle.Graphs.EfficientFrontier[tk] = domain.RiskReturn{Risk: float64(i), CAGR: float64(i * i)}
	}

	rng := rand.New(rand.NewPCG(9, 9))
	for i := 0; i < 50; i++ {
		for _, p := range IndividualAssets(bundle, nil, rng) {
			assert.GreaterOrEqual(t, p.X, RiskBounds.Lo)
			assert.LessOrEqual(t, p.X, RiskBounds.Hi)
			assert.GreaterOrEqual(t, p.Y, ReturnBounds.Lo)
			assert.LessOrEqual(t, p.Y, ReturnBounds.Hi)
		}
	}
}
