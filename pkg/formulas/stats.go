// Package formulas holds the return and risk statistics behind a market
// data bundle.
package formulas

import (
	"math"

	"gonum.org/v1/gonum/stat"
)

// TradingDaysPerYear annualizes daily statistics.
const TradingDaysPerYear = 252.0

// Mean calculates the arithmetic mean of data
func Mean(data []float64) float64 {
	if len(data) == 0 {
		return 0
	}
	return stat.Mean(data, nil)
}

// StdDev calculates the sample standard deviation of data
func StdDev(data []float64) float64 {
	if len(data) < 2 {
		return 0
	}
	return stat.StdDev(data, nil)
}

// Returns converts prices to simple period returns. A zero previous price
// yields a zero return for that step.
func Returns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] != 0 {
			out[i-1] = (prices[i] - prices[i-1]) / prices[i-1]
		}
	}
	return out
}

// LogReturns converts prices to log returns. Steps that cannot be computed
// (non-positive prices) are 0.
func LogReturns(prices []float64) []float64 {
	if len(prices) < 2 {
		return []float64{}
	}
	out := make([]float64, len(prices)-1)
	for i := 1; i < len(prices); i++ {
		if prices[i-1] > 0 && prices[i] > 0 {
			out[i-1] = math.Log(prices[i] / prices[i-1])
		}
	}
	return out
}

// AnnualizedVolatility scales the standard deviation of daily returns by
// sqrt(252).
func AnnualizedVolatility(dailyReturns []float64) float64 {
	return StdDev(dailyReturns) * math.Sqrt(TradingDaysPerYear)
}

// CAGR computes the compound annual growth rate between the first and last
// price of a daily series.
// Formula: (end/start)^(252/periods) - 1
func CAGR(prices []float64) (float64, bool) {
	if len(prices) < 2 {
		return 0, false
	}
	start, end := prices[0], prices[len(prices)-1]
	if start <= 0 || end <= 0 {
		return 0, false
	}
	years := float64(len(prices)-1) / TradingDaysPerYear
	return math.Pow(end/start, 1/years) - 1, true
}

// Beta measures a stock's sensitivity to the market.
// Formula: cov(stock, market) / var(market)
func Beta(stock, market []float64) (float64, bool) {
	if len(stock) < 2 || len(stock) != len(market) {
		return 0, false
	}
	variance := stat.Variance(market, nil)
	if variance == 0 || math.IsNaN(variance) {
		return 0, false
	}
	return stat.Covariance(stock, market, nil) / variance, true
}
