// Package metrics builds the per-ticker metrics table: each metric's value,
// the market average, display strings and a good/bad rating.
package metrics

import (
	"fmt"

	"github.com/aristath/tickerdash/internal/domain"
)

// Metric identifies one row of the metrics table.
type Metric int

const (
	PERatio Metric = iota
	Volatility
	Dividend
	EPS
	Beta
	FiftyTwoWeek

	metricCount
)

// All lists the table rows in display order.
var All = []Metric{PERatio, Volatility, Dividend, EPS, Beta, FiftyTwoWeek}

// Key returns the stats key the metric is stored under.
func (m Metric) Key() string {
	if int(m) < 0 || m >= metricCount {
		return ""
	}
	return registry[m].key
}

func (m Metric) String() string {
	if k := m.Key(); k != "" {
		return k
	}
	return fmt.Sprintf("Metric(%d)", int(m))
}

// ParseMetric maps a stats key back to a Metric.
func ParseMetric(key string) (Metric, bool) {
	for _, m := range All {
		if registry[m].key == key {
			return m, true
		}
	}
	return 0, false
}

// rule pairs a metric's parser with its threshold predicate.
type rule struct {
	key    string
	parse  func(domain.StatValue) Value
	isGood func(Value) Rating
}

var registry = map[Metric]rule{
	PERatio:      {key: domain.StatPERatio, parse: parseScalar, isGood: below(25)},
	Volatility:   {key: domain.StatVolatility, parse: parseScalar, isGood: below(1)},
	Dividend:     {key: domain.StatDividend, parse: parseScalar, isGood: above(0.5)},
	EPS:          {key: domain.StatEPS, parse: parseScalar, isGood: above(0.5)},
	Beta:         {key: domain.StatBeta, parse: parseScalar, isGood: below(1)},
	FiftyTwoWeek: {key: domain.Stat52Week, parse: parseRange, isGood: narrowRange(0.5)},
}

func init() {
	if err := ValidateRegistry(); err != nil {
		panic(err)
	}
}

// ValidateRegistry checks that every Metric has a complete entry. It runs at
// package init so a missing metric fails at startup rather than at render.
func ValidateRegistry() error {
	if len(All) != int(metricCount) {
		return fmt.Errorf("metrics: All lists %d metrics, want %d", len(All), metricCount)
	}
	keys := make(map[string]bool, len(registry))
	for m := Metric(0); m < metricCount; m++ {
		s, ok := registry[m]
		if !ok {
			return fmt.Errorf("metrics: no registry entry for metric %d", int(m))
		}
		if s.key == "" || s.parse == nil || s.isGood == nil {
			return fmt.Errorf("metrics: incomplete registry entry for metric %d", int(m))
		}
		if keys[s.key] {
			return fmt.Errorf("metrics: duplicate key %q", s.key)
		}
		keys[s.key] = true
	}
	return nil
}

func parseScalar(v domain.StatValue) Value {
	f, ok := v.Float()
	if !ok {
		return Value{}
	}
	return Scalar(f)
}

func parseRange(v domain.StatValue) Value {
	high, low, ok := v.Range()
	if !ok {
		return Value{}
	}
	return Range(high, low)
}

func below(limit float64) func(Value) Rating {
	return func(v Value) Rating {
		if v.Kind != KindScalar {
			return RatingUnknown
		}
		return ratingOf(v.Scalar < limit)
	}
}

func above(limit float64) func(Value) Rating {
	return func(v Value) Rating {
		if v.Kind != KindScalar {
			return RatingUnknown
		}
		return ratingOf(v.Scalar > limit)
	}
}

// narrowRange rates a 52-week range good when (high-low)/low < limit.
// A non-positive low cannot be rated.
func narrowRange(limit float64) func(Value) Rating {
	return func(v Value) Rating {
		if v.Kind != KindRange || v.Low <= 0 {
			return RatingUnknown
		}
		return ratingOf((v.High-v.Low)/v.Low < limit)
	}
}

func ratingOf(good bool) Rating {
	if good {
		return RatingGood
	}
	return RatingBad
}
