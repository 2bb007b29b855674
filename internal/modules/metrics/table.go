package metrics

import (
	"encoding/json"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/shopspring/decimal"
)

// Kind tags what a Value holds.
type Kind int

const (
	KindAbsent Kind = iota
	KindScalar
	KindRange
)

// Value is a parsed metric. The zero Value is absent.
type Value struct {
	Kind   Kind
	Scalar float64
	High   float64
	Low    float64
}

// Scalar returns a present single-number value.
func Scalar(f float64) Value { return Value{Kind: KindScalar, Scalar: f} }

// Range returns a present {high, low} value.
func Range(high, low float64) Value { return Value{Kind: KindRange, High: high, Low: low} }

// Absent reports whether the value is missing.
func (v Value) Absent() bool { return v.Kind == KindAbsent }

// Display renders the value with two decimals, "high - low" for ranges and
// "N/A" when absent.
func (v Value) Display() string {
	switch v.Kind {
	case KindScalar:
		return fixed2(v.Scalar)
	case KindRange:
		return fixed2(v.High) + " - " + fixed2(v.Low)
	default:
		return domain.NotAvailable
	}
}

func (v Value) MarshalJSON() ([]byte, error) {
	switch v.Kind {
	case KindScalar:
		return json.Marshal(v.Scalar)
	case KindRange:
		return json.Marshal(struct {
			High float64 `json:"high"`
			Low  float64 `json:"low"`
		}{v.High, v.Low})
	default:
		return []byte("null"), nil
	}
}

func fixed2(f float64) string {
	return decimal.NewFromFloat(f).StringFixed(2)
}

// Rating is the tri-state outcome of a threshold check.
type Rating string

const (
	RatingGood    Rating = "good"
	RatingBad     Rating = "bad"
	RatingUnknown Rating = "unknown"
)

// Row is one metrics table line.
type Row struct {
	Metric         string `json:"metric"`
	Value          Value  `json:"value"`
	Average        Value  `json:"average"`
	ValueDisplay   string `json:"valueDisplay"`
	AverageDisplay string `json:"averageDisplay"`
	Rating         Rating `json:"rating"`
}

// Parse reads metric m out of a stats row. Missing keys are absent.
func Parse(m Metric, stats domain.TickerStats) Value {
	s := registry[m]
	if stats == nil {
		return Value{}
	}
	raw, ok := stats[s.key]
	if !ok {
		return Value{}
	}
	return s.parse(raw)
}

// Rate applies metric m's threshold to v.
func Rate(m Metric, v Value) Rating {
	return registry[m].isGood(v)
}

// BuildTable returns one row per metric for ticker, compared against the
// bundle's market averages. A ticker without stats is ErrNoDataForTicker.
func BuildTable(bundle *domain.Bundle, ticker string) ([]Row, error) {
	stock, ok := bundle.TickerStats(ticker)
	if !ok {
		return nil, domain.NoDataError(ticker)
	}
	average, _ := bundle.TickerStats(domain.MarketAveragesKey)

	rows := make([]Row, 0, len(All))
	for _, m := range All {
		val := Parse(m, stock)
		avg := Parse(m, average)
		rows = append(rows, Row{
			Metric:         m.Key(),
			Value:          val,
			Average:        avg,
			ValueDisplay:   val.Display(),
			AverageDisplay: avg.Display(),
			Rating:         Rate(m, val),
		})
	}
	return rows, nil
}
