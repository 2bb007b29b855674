package formulas

import (
	"math"
	"sort"

	"gonum.org/v1/gonum/stat"
)

// SharpeRatio annualizes the excess mean return over its volatility.
// Formula: (mean(r) - rf/periods) / std(r) * sqrt(periods)
func SharpeRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, bool) {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0, false
	}
	std := StdDev(returns)
	if std == 0 {
		return 0, false
	}
	excess := Mean(returns) - riskFreeRate/periodsPerYear
	return excess / std * math.Sqrt(periodsPerYear), true
}

// SortinoRatio is SharpeRatio with only downside deviation in the
// denominator. The minimum acceptable return is the per-period risk-free
// rate.
func SortinoRatio(returns []float64, riskFreeRate, periodsPerYear float64) (float64, bool) {
	if len(returns) < 2 || periodsPerYear <= 0 {
		return 0, false
	}
	mar := riskFreeRate / periodsPerYear

	var sumSq float64
	for _, r := range returns {
		if r < mar {
			d := r - mar
			sumSq += d * d
		}
	}
	downside := math.Sqrt(sumSq / float64(len(returns)))
	if downside == 0 {
		return 0, false
	}
	return (Mean(returns) - mar) / downside * math.Sqrt(periodsPerYear), true
}

// MaxDrawdown returns the largest peak-to-trough decline of a price series
// as a positive fraction, e.g. 0.25 for a 25% fall.
func MaxDrawdown(prices []float64) (float64, bool) {
	if len(prices) < 2 {
		return 0, false
	}
	peak := prices[0]
	var worst float64
	for _, p := range prices[1:] {
		if p > peak {
			peak = p
			continue
		}
		if peak > 0 {
			if dd := (peak - p) / peak; dd > worst {
				worst = dd
			}
		}
	}
	return worst, true
}

// HistoricalVaR is the loss threshold not exceeded with the given
// confidence, read from the empirical return distribution. It is reported
// as a positive loss.
func HistoricalVaR(returns []float64, confidence float64) (float64, bool) {
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return 0, false
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)
	return -stat.Quantile(tailShare(confidence), stat.Empirical, sorted, nil), true
}

// CVaR is the mean of the worst (1-confidence) share of returns, reported as
// a positive loss. At least one observation always falls in the tail.
func CVaR(returns []float64, confidence float64) (float64, bool) {
	if len(returns) == 0 || confidence <= 0 || confidence >= 1 {
		return 0, false
	}
	sorted := append([]float64(nil), returns...)
	sort.Float64s(sorted)

	tail := int(math.Ceil(float64(len(sorted)) * tailShare(confidence)))
	if tail < 1 {
		tail = 1
	}
	return -stat.Mean(sorted[:tail], nil), true
}

// tailShare is 1-confidence rounded so that 0.95 yields exactly 0.05.
func tailShare(confidence float64) float64 {
	return math.Round((1-confidence)*1e9) / 1e9
}
