// Package charts prepares chart-ready data for a ticker's risk views: the
// volatility bar against the market and the MCTR breakdown pie.
package charts

import (
	"math"
	"sort"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/shopspring/decimal"
)

const (
	defaultTickerRisk = 25.0
	defaultMarketRisk = 15.0
	riskMin           = 10.0
	riskMax           = 50.0
	marketRiskMax     = 30.0

	barComponents  = 5
	pieComponents  = 6
	renormalizeTol = 5.0

	samplePieMin  = 20.0
	samplePieMax  = 60.0
	samplePieMult = 30.0
)

// Colors used when a chart has no component breakdown.
var (
	DefaultBarColors = []string{"#2196F3", "#9C27B0"}
	SamplePieColors  = []string{"#edd39a", "#4caf50"}
)

// Dataset is a single series of a chart.
type Dataset struct {
	Label  string    `json:"label,omitempty"`
	Data   []float64 `json:"data"`
	Colors []string  `json:"backgroundColor"`
}

// Chart is a labelled set of values ready for a bar or pie renderer.
type Chart struct {
	Ticker   string    `json:"ticker"`
	Labels   []string  `json:"labels"`
	Datasets []Dataset `json:"datasets"`
	// Sample marks charts built from fallback values because the bundle had
	// no breakdown for the ticker.
	Sample bool `json:"sample"`
}

// RiskBar compares a ticker's volatility with the market. When the bundle
// carries an MCTR breakdown for the ticker the bar shows the top components
// instead.
func RiskBar(ticker string, bundle *domain.Bundle) Chart {
	if components, ok := bundle.MCTRFor(ticker); ok {
		top := topComponents(components, barComponents)
		values := make([]float64, len(top))
		labels := make([]string, len(top))
		var total float64
		for i, c := range top {
			labels[i] = c.name
			values[i] = c.value
			total += c.value
		}
		if total > 0 && math.Abs(total-100) > renormalizeTol {
			for i := range values {
				values[i] = values[i] / total * 100
			}
		}
		for i := range values {
			values[i] = round(values[i], 1)
		}
		return Chart{
			Ticker: ticker,
			Labels: labels,
			Datasets: []Dataset{{
				Label:  "Risk Contribution (%)",
				Data:   values,
				Colors: GenerateColors(len(values)),
			}},
		}
	}

	stats, _ := bundle.TickerStats(ticker)
	market, _ := bundle.TickerStats(domain.MarketAveragesKey)
	return Chart{
		Ticker: ticker,
		Labels: []string{ticker, "Market Average"},
		Datasets: []Dataset{{
			Label:  "Volatility (%)",
			Data:   []float64{tickerRisk(stats), marketRisk(market)},
			Colors: append([]string(nil), DefaultBarColors...),
		}},
		Sample: stats == nil,
	}
}

// tickerRisk uses reported volatility, falling back to the 52-week spread
// around its midpoint.
func tickerRisk(stats domain.TickerStats) float64 {
	if stats == nil {
		return defaultTickerRisk
	}
	if v, ok := stats[domain.StatVolatility].Float(); ok {
		return clamp(round(v*100, 1), riskMin, riskMax)
	}
	if high, low, ok := stats[domain.Stat52Week].Range(); ok && high > 0 && low > 0 {
		spread := (high - low) / ((high + low) / 2) * 100
		return clamp(round(spread, 1), riskMin, riskMax)
	}
	return defaultTickerRisk
}

func marketRisk(stats domain.TickerStats) float64 {
	if stats == nil {
		return defaultMarketRisk
	}
	if v, ok := stats[domain.StatVolatility].Float(); ok {
		return clamp(round(v*100, 1), riskMin, marketRiskMax)
	}
	return defaultMarketRisk
}

// MCTRPie shows the ticker's top contributors normalized to 100. Without a
// breakdown it falls back to a beta-derived sample against the residual.
func MCTRPie(ticker string, bundle *domain.Bundle) Chart {
	if components, ok := bundle.MCTRFor(ticker); ok {
		top := topComponents(components, pieComponents)
		var total float64
		for _, c := range top {
			total += c.value
		}
		if total > 0 {
			labels := make([]string, len(top))
			values := make([]float64, len(top))
			for i, c := range top {
				labels[i] = c.name
				values[i] = round(c.value/total*100, 1)
			}
			return Chart{
				Ticker:   ticker,
				Labels:   labels,
				Datasets: []Dataset{{Data: values, Colors: GenerateColors(len(values))}},
			}
		}
	}

	beta := 1.0
	if stats, ok := bundle.TickerStats(ticker); ok {
		if b, ok := stats[domain.StatBeta].Float(); ok {
			beta = b
		}
	}
	share := clamp(round(beta*samplePieMult, 1), samplePieMin, samplePieMax)
	return Chart{
		Ticker: ticker,
		Labels: []string{ticker + " MCTR", "Portfolio Residual"},
		Datasets: []Dataset{{
			Data:   []float64{share, round(100-share, 1)},
			Colors: append([]string(nil), SamplePieColors...),
		}},
		Sample: true,
	}
}

type component struct {
	name  string
	value float64
}

// topComponents returns the n largest finite, positive entries, descending.
// Ties break on name so output is stable.
func topComponents(m map[string]float64, n int) []component {
	out := make([]component, 0, len(m))
	for k, v := range m {
		if math.IsNaN(v) || math.IsInf(v, 0) || v <= 0 {
			continue
		}
		out = append(out, component{name: k, value: v})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].value != out[j].value {
			return out[i].value > out[j].value
		}
		return out[i].name < out[j].name
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func clamp(v, lo, hi float64) float64 {
	return math.Max(lo, math.Min(hi, v))
}

func round(v float64, places int32) float64 {
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
