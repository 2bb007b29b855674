package domain

import (
	"bytes"
	"encoding/json"
	"math"
	"strconv"
	"strings"
)

// Metric keys as they appear in a bundle's per-ticker stats.
const (
	StatPERatio    = "PERatio"
	StatVolatility = "Volatility"
	StatDividend   = "Dividend"
	StatEPS        = "EPS"
	StatBeta       = "Beta"
	Stat52Week     = "52W"
)

// Aggregate rows stored alongside tickers in Bundle.Stats.
const (
	MarketAveragesKey     = "marketAverages"
	MarketExpectationsKey = "marketExpectations"
)

// NotAvailable is the wire marker for a missing metric.
const NotAvailable = "N/A"

var notAvailableJSON = json.RawMessage(`"N/A"`)

// StatValue is a metric as carried on the wire: a number, "N/A", a numeric
// string, or (for 52W) an object with high and low sides.
type StatValue struct {
	raw json.RawMessage
}

// Number wraps a float. NaN and infinities become N/A.
func Number(v float64) StatValue {
	if math.IsNaN(v) || math.IsInf(v, 0) {
		return Missing()
	}
	return StatValue{raw: json.RawMessage(strconv.FormatFloat(v, 'f', -1, 64))}
}

// OptionalNumber wraps a possibly-missing float.
func OptionalNumber(v *float64) StatValue {
	if v == nil {
		return Missing()
	}
	return Number(*v)
}

// Missing returns the N/A marker.
func Missing() StatValue {
	return StatValue{raw: notAvailableJSON}
}

// HighLow builds a 52-week range value. Either side may be missing.
func HighLow(high, low *float64) StatValue {
	payload := struct {
		High StatValue `json:"high"`
		Low  StatValue `json:"low"`
	}{OptionalNumber(high), OptionalNumber(low)}

	raw, _ := json.Marshal(payload)
	return StatValue{raw: raw}
}

// Absent reports whether the value carries no usable number.
func (v StatValue) Absent() bool {
	if _, ok := v.Float(); ok {
		return false
	}
	_, _, ok := v.Range()
	return !ok
}

// Float returns the value as a number. Null, empty, "N/A" and objects are
// reported as not ok; they never decode to zero.
func (v StatValue) Float() (float64, bool) {
	raw := bytes.TrimSpace(v.raw)
	if len(raw) == 0 {
		return 0, false
	}

	var f float64
	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return 0, false
		}
		s = strings.TrimSpace(s)
		if s == "" || strings.EqualFold(s, NotAvailable) {
			return 0, false
		}
		parsed, err := strconv.ParseFloat(s, 64)
		if err != nil {
			return 0, false
		}
		f = parsed
	case '{', '[', 'n', 't', 'f':
		return 0, false
	default:
		if err := json.Unmarshal(raw, &f); err != nil {
			return 0, false
		}
	}

	if math.IsNaN(f) || math.IsInf(f, 0) {
		return 0, false
	}
	return f, true
}

// Range returns a 52-week style {high, low} pair. Both sides must be present.
func (v StatValue) Range() (high, low float64, ok bool) {
	raw := bytes.TrimSpace(v.raw)
	if len(raw) == 0 || raw[0] != '{' {
		return 0, 0, false
	}

	var pair struct {
		High StatValue `json:"high"`
		Low  StatValue `json:"low"`
	}
	if err := json.Unmarshal(raw, &pair); err != nil {
		return 0, 0, false
	}

	high, hok := pair.High.Float()
	low, lok := pair.Low.Float()
	if !hok || !lok {
		return 0, 0, false
	}
	return high, low, true
}

func (v StatValue) MarshalJSON() ([]byte, error) {
	if len(v.raw) == 0 {
		return []byte("null"), nil
	}
	return v.raw, nil
}

func (v *StatValue) UnmarshalJSON(data []byte) error {
	v.raw = append(v.raw[:0], data...)
	return nil
}

// TickerStats maps metric keys (StatPERatio, ...) to values.
type TickerStats map[string]StatValue

// RiskReturn is a ticker's coordinate on the frontier chart.
type RiskReturn struct {
	Risk float64 `json:"risk"`
	CAGR float64 `json:"cagr"`
}

// Graphs holds chart-ready series keyed by ticker.
type Graphs struct {
	EfficientFrontier map[string]RiskReturn         `json:"efficientFrontier,omitempty"`
	MCTR              map[string]map[string]float64 `json:"mctr,omitempty"`
}

// Bundle is the response of GET /api/data.
type Bundle struct {
	Stats  map[string]TickerStats `json:"stats"`
	Graphs Graphs                 `json:"graphs"`
	Names  map[string]string      `json:"names"`
}

// NewBundle returns a bundle with every map allocated.
func NewBundle() *Bundle {
	return &Bundle{
		Stats: make(map[string]TickerStats),
		Graphs: Graphs{
			EfficientFrontier: make(map[string]RiskReturn),
			MCTR:              make(map[string]map[string]float64),
		},
		Names: make(map[string]string),
	}
}

// TickerStats returns the stats row for a ticker, if any.
func (b *Bundle) TickerStats(ticker string) (TickerStats, bool) {
	if b == nil || b.Stats == nil {
		return nil, false
	}
	s, ok := b.Stats[ticker]
	return s, ok && s != nil
}

// Frontier returns the ticker's frontier coordinate, if any.
func (b *Bundle) Frontier(ticker string) (RiskReturn, bool) {
	if b == nil || b.Graphs.EfficientFrontier == nil {
		return RiskReturn{}, false
	}
	rr, ok := b.Graphs.EfficientFrontier[ticker]
	return rr, ok
}

// MCTRFor returns the contribution breakdown shown for a ticker.
func (b *Bundle) MCTRFor(ticker string) (map[string]float64, bool) {
	if b == nil || b.Graphs.MCTR == nil {
		return nil, false
	}
	m, ok := b.Graphs.MCTR[ticker]
	return m, ok && len(m) > 0
}

// Tickers returns the symbols with stats, excluding the aggregate rows.
func (b *Bundle) Tickers() []string {
	if b == nil {
		return nil
	}
	out := make([]string, 0, len(b.Stats))
	for k := range b.Stats {
		if k == MarketAveragesKey || k == MarketExpectationsKey {
			continue
		}
		out = append(out, k)
	}
	return out
}

// Merge copies other into b key by key. Existing entries for keys absent
// from other are kept.
func (b *Bundle) Merge(other *Bundle) {
	b.MergeFunc(other, nil)
}

// MergeFunc is Merge restricted to keys accepted by keep. A nil keep accepts
// everything. Keys are tickers or the aggregate stats rows.
func (b *Bundle) MergeFunc(other *Bundle, keep func(key string) bool) {
	if other == nil {
		return
	}
	accept := func(k string) bool { return keep == nil || keep(k) }
	b.ensureMaps()

	for k, v := range other.Stats {
		if accept(k) {
			b.Stats[k] = v
		}
	}
	for k, v := range other.Graphs.EfficientFrontier {
		if accept(k) {
			b.Graphs.EfficientFrontier[k] = v
		}
	}
	for k, v := range other.Graphs.MCTR {
		if accept(k) {
			b.Graphs.MCTR[k] = v
		}
	}
	for k, v := range other.Names {
		if accept(k) {
			b.Names[k] = v
		}
	}
}

// Clone returns a deep copy safe to hand to other goroutines.
func (b *Bundle) Clone() *Bundle {
	out := NewBundle()
	if b == nil {
		return out
	}
	for k, row := range b.Stats {
		cp := make(TickerStats, len(row))
		for mk, mv := range row {
			cp[mk] = StatValue{raw: append(json.RawMessage(nil), mv.raw...)}
		}
		out.Stats[k] = cp
	}
	for k, v := range b.Graphs.EfficientFrontier {
		out.Graphs.EfficientFrontier[k] = v
	}
	for k, m := range b.Graphs.MCTR {
		cp := make(map[string]float64, len(m))
		for mk, mv := range m {
			cp[mk] = mv
		}
		out.Graphs.MCTR[k] = cp
	}
	for k, v := range b.Names {
		out.Names[k] = v
	}
	return out
}

func (b *Bundle) ensureMaps() {
	if b.Stats == nil {
		b.Stats = make(map[string]TickerStats)
	}
	if b.Graphs.EfficientFrontier == nil {
		b.Graphs.EfficientFrontier = make(map[string]RiskReturn)
	}
	if b.Graphs.MCTR == nil {
		b.Graphs.MCTR = make(map[string]map[string]float64)
	}
	if b.Names == nil {
		b.Names = make(map[string]string)
	}
}
