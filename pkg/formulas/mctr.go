package formulas

import (
	"fmt"
	"math"

	"gonum.org/v1/gonum/mat"
	"gonum.org/v1/gonum/stat"
)

// EqualWeightMCTR computes each series' marginal contribution to the risk of
// an equal-weight portfolio, normalized so the contributions sum to 100.
//
// series holds one return series per asset, all of the same length.
// Formula: w = 1/n, σ = sqrt(wᵀΣw), mctr = Σw / σ
func EqualWeightMCTR(series [][]float64) ([]float64, error) {
	n := len(series)
	if n == 0 {
		return nil, fmt.Errorf("no return series")
	}
	obs := len(series[0])
	if obs < 2 {
		return nil, fmt.Errorf("need at least 2 observations, got %d", obs)
	}
	for i, s := range series {
		if len(s) != obs {
			return nil, fmt.Errorf("series %d has %d observations, want %d", i, len(s), obs)
		}
	}

	// rows are observations, columns are assets
	data := mat.NewDense(obs, n, nil)
	for j, s := range series {
		for i, v := range s {
			if math.IsNaN(v) || math.IsInf(v, 0) {
				v = 0
			}
			data.Set(i, j, v)
		}
	}

	var sigma mat.SymDense
	stat.CovarianceMatrix(&sigma, data, nil)

	w := mat.NewVecDense(n, nil)
	for i := 0; i < n; i++ {
		w.SetVec(i, 1/float64(n))
	}

	var sigmaW mat.VecDense
	sigmaW.MulVec(&sigma, w)

	variance := mat.Dot(w, &sigmaW)
	if variance <= 0 || math.IsNaN(variance) {
		return nil, fmt.Errorf("portfolio variance is not positive")
	}
	vol := math.Sqrt(variance)

	out := make([]float64, n)
	var total float64
	for i := 0; i < n; i++ {
		out[i] = sigmaW.AtVec(i) / vol
		total += out[i]
	}
	if total == 0 || math.IsNaN(total) {
		return nil, fmt.Errorf("marginal contributions sum to zero")
	}
	for i := range out {
		out[i] = out[i] / total * 100
	}
	return out, nil
}
