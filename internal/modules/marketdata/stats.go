package marketdata

import (
	"fmt"
	"math"

	"github.com/aristath/tickerdash/internal/clients/yahoo"
	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/pkg/formulas"
	"github.com/shopspring/decimal"
)

const (
	statPlaces   = 4
	betaPlaces   = 3
	mctrPlaces   = 2
	defaultBeta  = 1.0
	minAlignment = 3
)

// tickerStats builds a ticker's metrics row. bench may be nil, in which case
// beta is only available when the quote carries one.
func tickerStats(q *yahoo.Quote, h, bench *yahoo.History) domain.TickerStats {
	pe, eps := fillValuation(price(q, h), q.TrailingPE, q.EpsTrailingTwelveMonths)

	beta := q.Beta
	if beta == nil && h != nil && bench != nil {
		if b, ok := historyBeta(h, bench); ok {
			beta = &b
		}
	}

	return domain.TickerStats{
		domain.StatPERatio:    rounded(pe, statPlaces),
		domain.StatEPS:        rounded(eps, statPlaces),
		domain.StatBeta:       rounded(beta, betaPlaces),
		domain.StatDividend:   rounded(q.DividendYield, statPlaces),
		domain.StatVolatility: rounded(volatility(h), statPlaces),
		domain.Stat52Week:     domain.HighLow(q.FiftyTwoWeekHigh, q.FiftyTwoWeekLow),
	}
}

// marketAverages is the benchmark's trailing row. Beta defaults to 1.
func marketAverages(q *yahoo.Quote, h *yahoo.History) domain.TickerStats {
	pe, eps := fillValuation(price(q, h), q.TrailingPE, q.EpsTrailingTwelveMonths)
	beta := q.Beta
	if beta == nil {
		b := defaultBeta
		beta = &b
	}
	return domain.TickerStats{
		domain.StatPERatio:    rounded(pe, statPlaces),
		domain.StatEPS:        rounded(eps, statPlaces),
		domain.StatBeta:       rounded(beta, betaPlaces),
		domain.StatDividend:   rounded(q.DividendYield, statPlaces),
		domain.StatVolatility: rounded(volatility(h), statPlaces),
		domain.Stat52Week:     domain.HighLow(q.FiftyTwoWeekHigh, q.FiftyTwoWeekLow),
	}
}

// marketExpectations is the benchmark's forward row. It has no 52-week range.
func marketExpectations(q *yahoo.Quote, h *yahoo.History) domain.TickerStats {
	pe, eps := fillValuation(price(q, h), q.ForwardPE, q.EpsForward)
	return domain.TickerStats{
		domain.StatPERatio:    rounded(pe, statPlaces),
		domain.StatEPS:        rounded(eps, statPlaces),
		domain.StatBeta:       domain.Number(defaultBeta),
		domain.StatDividend:   rounded(q.TrailingAnnualDividendYield, statPlaces),
		domain.StatVolatility: rounded(volatility(h), statPlaces),
		domain.Stat52Week:     domain.HighLow(nil, nil),
	}
}

// price prefers the live quote and falls back to the last close.
func price(q *yahoo.Quote, h *yahoo.History) *float64 {
	if q.RegularMarketPrice != nil && *q.RegularMarketPrice > 0 {
		return q.RegularMarketPrice
	}
	if h != nil && len(h.Bars) > 0 {
		last := h.Bars[len(h.Bars)-1].Close
		return &last
	}
	return nil
}

// fillValuation derives whichever of P/E and EPS is missing from the other
// and the price.
func fillValuation(price, pe, eps *float64) (*float64, *float64) {
	if price == nil {
		return pe, eps
	}
	switch {
	case pe == nil && eps != nil && *eps != 0:
		v := *price / *eps
		return &v, eps
	case eps == nil && pe != nil && *pe != 0:
		v := *price / *pe
		return pe, &v
	}
	return pe, eps
}

func volatility(h *yahoo.History) *float64 {
	if h == nil || len(h.Bars) < minAlignment {
		return nil
	}
	v := formulas.AnnualizedVolatility(formulas.Returns(h.Closes()))
	return &v
}

// frontierPoint is the ticker's {annualized volatility, CAGR} coordinate.
func frontierPoint(h *yahoo.History) (domain.RiskReturn, bool) {
	if h == nil || len(h.Bars) < minAlignment {
		return domain.RiskReturn{}, false
	}
	closes := h.Closes()
	cagr, ok := formulas.CAGR(closes)
	if !ok {
		return domain.RiskReturn{}, false
	}
	risk := formulas.AnnualizedVolatility(formulas.Returns(closes))
	return domain.RiskReturn{
		Risk: round(risk, statPlaces),
		CAGR: round(cagr, statPlaces),
	}, true
}

// historyBeta regresses the ticker's returns on the benchmark's over the
// dates both series share.
func historyBeta(h, bench *yahoo.History) (float64, bool) {
	aligned := alignCloses([]*yahoo.History{h, bench})
	if aligned == nil {
		return 0, false
	}
	b, ok := formulas.Beta(formulas.Returns(aligned[0]), formulas.Returns(aligned[1]))
	if !ok {
		return 0, false
	}
	return round(b, betaPlaces), true
}

// mctrComponents maps each symbol to its percent contribution to the risk of
// an equal-weight portfolio of all of them.
func mctrComponents(symbols []string, histories []*yahoo.History) (map[string]float64, error) {
	aligned := alignCloses(histories)
	if aligned == nil {
		return nil, fmt.Errorf("fewer than %d shared dates across %d series", minAlignment, len(histories))
	}
	series := make([][]float64, len(aligned))
	for i, closes := range aligned {
		series[i] = formulas.LogReturns(closes)
	}
	contrib, err := formulas.EqualWeightMCTR(series)
	if err != nil {
		return nil, err
	}
	out := make(map[string]float64, len(symbols))
	for i, sym := range symbols {
		out[sym] = round(contrib[i], mctrPlaces)
	}
	return out, nil
}

// alignCloses keeps the timestamps present in every history and returns the
// closes at those timestamps, one slice per history. It returns nil when
// fewer than minAlignment dates are shared.
func alignCloses(histories []*yahoo.History) [][]float64 {
	if len(histories) == 0 {
		return nil
	}
	counts := make(map[int64]int)
	for _, h := range histories {
		seen := make(map[int64]bool, len(h.Bars))
		for _, b := range h.Bars {
			if !seen[b.Time] {
				seen[b.Time] = true
				counts[b.Time]++
			}
		}
	}

	var shared []int64
	for _, b := range histories[0].Bars {
		if counts[b.Time] == len(histories) {
			shared = append(shared, b.Time)
			counts[b.Time] = 0 // take each date once
		}
	}
	if len(shared) < minAlignment {
		return nil
	}

	out := make([][]float64, len(histories))
	for i, h := range histories {
		byTime := make(map[int64]float64, len(h.Bars))
		for _, b := range h.Bars {
			byTime[b.Time] = b.Close
		}
		closes := make([]float64, len(shared))
		for j, ts := range shared {
			closes[j] = byTime[ts]
		}
		out[i] = closes
	}
	return out
}

func rounded(v *float64, places int32) domain.StatValue {
	if v == nil {
		return domain.Missing()
	}
	return domain.Number(round(*v, places))
}

func round(v float64, places int32) float64 {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return v
	}
	f, _ := decimal.NewFromFloat(v).Round(places).Float64()
	return f
}
