package frontier

import (
	"fmt"
	"math"
	"math/rand/v2"
	"sort"
	"strings"

	"github.com/aristath/tickerdash/internal/domain"
)

// CapType selects the profile used for the illustrative frontier curve.
type CapType string

const (
	LargeCap CapType = "large_cap"
	MidCap   CapType = "mid_cap"
	SmallCap CapType = "small_cap"
)

// ParseCapType maps a request value to a CapType. Unknown values fall back
// to LargeCap.
func ParseCapType(s string) CapType {
	switch CapType(strings.ToLower(strings.TrimSpace(s))) {
	case MidCap:
		return MidCap
	case SmallCap:
		return SmallCap
	default:
		return LargeCap
	}
}

// Profile is the base coordinate set for a cap type.
type Profile struct {
	BaseReturn   float64
	BaseRisk     float64
	RiskFreeRate float64
}

var profiles = map[CapType]Profile{
	LargeCap: {BaseReturn: 0.08, BaseRisk: 0.15, RiskFreeRate: 0.02},
	MidCap:   {BaseReturn: 0.10, BaseRisk: 0.18, RiskFreeRate: 0.02},
	SmallCap: {BaseReturn: 0.12, BaseRisk: 0.22, RiskFreeRate: 0.02},
}

// ProfileFor returns the profile for c, defaulting to large cap.
func ProfileFor(c CapType) Profile {
	if p, ok := profiles[c]; ok {
		return p
	}
	return profiles[LargeCap]
}

const (
	frontierSteps    = 20
	frontierStep     = 0.01
	frontierScale    = 0.4
	frontierExponent = 0.7
	cmlSteps         = 10
	optimalRiskLift  = 0.08
	optimalRetLift   = 0.06
	equalWeightLift  = 0.02
	placeholderCount = 8
)

// Point is a bare chart coordinate.
type Point struct {
	X float64 `json:"x"`
	Y float64 `json:"y"`
}

// Chart is everything needed to draw the frontier view. The curve, the
// capital market line and the equal-weight line are illustrative shapes
// derived from the cap profile, not the output of an optimizer.
type Chart struct {
	CapType           CapType      `json:"capType"`
	Frontier          []Point      `json:"frontier"`
	CapitalMarketLine []Point      `json:"capitalMarketLine"`
	EqualWeightLine   []Point      `json:"equalWeightLine"`
	OptimalPortfolio  Point        `json:"optimalPortfolio"`
	RiskFreeRate      float64      `json:"riskFreeRate"`
	IndividualAssets  []ChartPoint `json:"individualAssets"`
	CachedPoints      []ChartPoint `json:"cachedPoints"`
	PlaceholderAssets bool         `json:"placeholderAssets"`
}

// BuildChart assembles the frontier view from the latest bundle and the
// session cache. rng drives jitter and placeholders; pass a seeded source
// for reproducible output.
func BuildChart(capType CapType, bundle *domain.Bundle, cache *Cache, rng *rand.Rand) Chart {
	p := ProfileFor(capType)
	chart := Chart{
		CapType:      ParseCapType(string(capType)),
		RiskFreeRate: p.RiskFreeRate,
	}

	for i := 0; i <= frontierSteps; i++ {
		risk := p.BaseRisk + float64(i)*frontierStep
		ret := p.BaseReturn + frontierScale*math.Pow(risk-p.BaseRisk, frontierExponent)
		chart.Frontier = append(chart.Frontier, Point{X: risk, Y: ret})
	}

	chart.OptimalPortfolio = Point{X: p.BaseRisk + optimalRiskLift, Y: p.BaseReturn + optimalRetLift}

	for i := 0; i <= cmlSteps; i++ {
		t := float64(i) / cmlSteps
		chart.CapitalMarketLine = append(chart.CapitalMarketLine, Point{
			X: t * chart.OptimalPortfolio.X,
			Y: p.RiskFreeRate + t*(chart.OptimalPortfolio.Y-p.RiskFreeRate),
		})
	}

	for i := 0; i <= frontierSteps; i++ {
		chart.EqualWeightLine = append(chart.EqualWeightLine, Point{
			X: p.BaseRisk + float64(i)*frontierStep,
			Y: p.BaseReturn + equalWeightLift,
		})
	}

	var cached []TickerPoint
	if cache != nil {
		cached = cache.Points()
		chart.CachedPoints = cache.ChartPoints()
	}
	chart.IndividualAssets = IndividualAssets(bundle, cached, rng)

	if len(chart.IndividualAssets) == 0 && len(cached) == 0 && bundleFrontierLen(bundle) == 0 {
		chart.IndividualAssets = placeholderAssets(rng)
		chart.PlaceholderAssets = true
	}

	if chart.CachedPoints == nil {
		chart.CachedPoints = []ChartPoint{}
	}
	if chart.IndividualAssets == nil {
		chart.IndividualAssets = []ChartPoint{}
	}
	return chart
}

// IndividualAssets rescales every known risk/return pair into the display
// bounds and returns the ones not already drawn as cached points.
//
// The extent is computed over the union of the bundle's frontier entries and
// the cached points, so cached tickers still shape the scale even though
// they are excluded from the result.
func IndividualAssets(bundle *domain.Bundle, cached []TickerPoint, rng *rand.Rand) []ChartPoint {
	type asset struct {
		ticker string
		rr     domain.RiskReturn
	}

	inCache := make(map[string]bool, len(cached))
	for _, p := range cached {
		inCache[p.Ticker] = true
	}

	var assets []asset
	seen := make(map[string]bool)
	if bundle != nil {
		tickers := make([]string, 0, len(bundle.Graphs.EfficientFrontier))
		for t := range bundle.Graphs.EfficientFrontier {
			tickers = append(tickers, t)
		}
		sort.Strings(tickers)
		for _, t := range tickers {
			assets = append(assets, asset{ticker: t, rr: bundle.Graphs.EfficientFrontier[t]})
			seen[t] = true
		}
	}
	for _, p := range cached {
		if seen[p.Ticker] || strings.TrimSpace(p.Ticker) == "" {
			continue
		}
		seen[p.Ticker] = true
		assets = append(assets, asset{ticker: p.Ticker, rr: domain.RiskReturn{Risk: p.X, CAGR: p.Y}})
	}
	if len(assets) == 0 {
		return nil
	}

	risks := make([]float64, len(assets))
	returns := make([]float64, len(assets))
	for i, a := range assets {
		risks[i] = a.rr.Risk
		returns[i] = a.rr.CAGR
	}
	riskExt, _ := ExtentOf(risks)
	retExt, _ := ExtentOf(returns)

	var out []ChartPoint
	for _, a := range assets {
		if inCache[a.ticker] {
			continue
		}
		x := riskExt.Scale(a.rr.Risk, RiskBounds)
		y := retExt.Scale(a.rr.CAGR, ReturnBounds)
		if rng != nil {
			x = Jitter(x, rng.Float64(), RiskBounds)
			y = Jitter(y, rng.Float64(), ReturnBounds)
		}
		out = append(out, ChartPoint{X: x, Y: y, Label: a.ticker})
	}
	return out
}

func placeholderAssets(rng *rand.Rand) []ChartPoint {
	if rng == nil {
		rng = rand.New(rand.NewPCG(1, 2))
	}
	out := make([]ChartPoint, placeholderCount)
	for i := range out {
		out[i] = ChartPoint{
			X:     placeholderRiskMin + rng.Float64()*placeholderRiskSpan,
			Y:     placeholderReturnMin + rng.Float64()*placeholderReturnSpan,
			Label: fmt.Sprintf("Stock %d", i+1),
		}
	}
	return out
}

func bundleFrontierLen(b *domain.Bundle) int {
	if b == nil {
		return 0
	}
	return len(b.Graphs.EfficientFrontier)
}
