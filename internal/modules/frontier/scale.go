package frontier

import "math"

// Bounds is a closed display interval on one chart axis.
type Bounds struct {
	Lo float64
	Hi float64
}

// Display ranges for the individual-assets scatter.
var (
	RiskBounds   = Bounds{Lo: 0.10, Hi: 0.35}
	ReturnBounds = Bounds{Lo: 0.0, Hi: 0.20}
)

// JitterFraction is the largest jitter applied to a scaled point, as a
// fraction of the axis range.
const JitterFraction = 0.01

// Span returns Hi - Lo.
func (b Bounds) Span() float64 { return b.Hi - b.Lo }

// Mid returns the interval midpoint.
func (b Bounds) Mid() float64 { return b.Lo + b.Span()/2 }

// Clamp pins v into the interval.
func (b Bounds) Clamp(v float64) float64 {
	return math.Max(b.Lo, math.Min(b.Hi, v))
}

// Scale maps v from [min, max] linearly into b. When the source interval is
// degenerate (max == min) or not finite every value maps to b.Mid(), so the
// result is never NaN or infinite.
func Scale(v, min, max float64, b Bounds) float64 {
	span := max - min
	if span == 0 || !finite(span) || !finite(v) {
		return b.Mid()
	}
	return b.Lo + (v-min)/span*b.Span()
}

// Extent is the observed min and max of one axis.
type Extent struct {
	Min float64
	Max float64
}

// ExtentOf returns the min and max of values. ok is false for an empty slice.
func ExtentOf(values []float64) (Extent, bool) {
	if len(values) == 0 {
		return Extent{}, false
	}
	e := Extent{Min: values[0], Max: values[0]}
	for _, v := range values[1:] {
		e.Min = math.Min(e.Min, v)
		e.Max = math.Max(e.Max, v)
	}
	return e, true
}

// Scale maps v through this extent into b.
func (e Extent) Scale(v float64, b Bounds) float64 {
	return Scale(v, e.Min, e.Max, b)
}

// Jitter offsets v by up to ±JitterFraction of b's span using u in [0, 1)
// and clamps the result back into b.
func Jitter(v, u float64, b Bounds) float64 {
	offset := (u*2 - 1) * JitterFraction * b.Span()
	return b.Clamp(v + offset)
}
