package testing

import (
	"github.com/aristath/tickerdash/internal/domain"
)

// TickerFixture describes one ticker of a fixture bundle.
type TickerFixture struct {
	Ticker     string
	Name       string
	PE         float64
	Volatility float64
	Dividend   float64
	EPS        float64
	Beta       float64
	High, Low  float64
	Risk, CAGR float64
	// NoFrontier leaves the ticker out of graphs.efficientFrontier.
	NoFrontier bool
}

// NewTickerFixtures returns a few well-formed tickers with distinct values.
func NewTickerFixtures() []TickerFixture {
	return []TickerFixture{
		{Ticker: "AAPL", Name: "Apple Inc.", PE: 28.5, Volatility: 0.27, Dividend: 0.55, EPS: 6.1, Beta: 1.2, High: 199.6, Low: 164.1, Risk: 0.27, CAGR: 0.18},
		{Ticker: "MSFT", Name: "Microsoft Corporation", PE: 34.2, Volatility: 0.24, Dividend: 0.8, EPS: 11.4, Beta: 0.9, High: 430.8, Low: 309.5, Risk: 0.24, CAGR: 0.21},
		{Ticker: "KO", Name: "The Coca-Cola Company", PE: 23.1, Volatility: 0.14, Dividend: 3.1, EPS: 2.47, Beta: 0.6, High: 64.0, Low: 51.6, Risk: 0.14, CAGR: 0.06},
	}
}

// NewBundleFixture builds a bundle holding the given tickers plus
// marketAverages and marketExpectations rows.
func NewBundleFixture(tickers ...TickerFixture) *domain.Bundle {
	b := domain.NewBundle()
	for _, f := range tickers {
		b.Stats[f.Ticker] = statsFor(f)
		if f.Name != "" {
			b.Names[f.Ticker] = f.Name
		}
		if !f.NoFrontier {
			b.Graphs.EfficientFrontier[f.Ticker] = domain.RiskReturn{Risk: f.Risk, CAGR: f.CAGR}
		}
	}

	b.Stats[domain.MarketAveragesKey] = statsFor(TickerFixture{
		PE: 22, Volatility: 0.18, Dividend: 1.4, EPS: 5, Beta: 1, High: 480, Low: 410,
	})
	b.Stats[domain.MarketExpectationsKey] = domain.TickerStats{
		domain.StatPERatio:    domain.Number(20),
		domain.StatVolatility: domain.Missing(),
		domain.StatDividend:   domain.Number(1.5),
		domain.StatEPS:        domain.Number(5.4),
		domain.StatBeta:       domain.Number(1),
		domain.Stat52Week:     domain.HighLow(nil, nil),
	}
	return b
}

func statsFor(f TickerFixture) domain.TickerStats {
	return domain.TickerStats{
		domain.StatPERatio:    domain.Number(f.PE),
		domain.StatVolatility: domain.Number(f.Volatility),
		domain.StatDividend:   domain.Number(f.Dividend),
		domain.StatEPS:        domain.Number(f.EPS),
		domain.StatBeta:       domain.Number(f.Beta),
		domain.Stat52Week:     domain.HighLow(floatPtr(f.High), floatPtr(f.Low)),
	}
}

func floatPtr(f float64) *float64 {
	return &f
}
