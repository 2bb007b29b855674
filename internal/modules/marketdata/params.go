package marketdata

// Accepted values for the period and interval query parameters.
var (
	Periods   = []string{"1mo", "3mo", "6mo", "1y", "2y", "5y", "10y", "ytd", "max"}
	Intervals = []string{"1d", "1wk", "1mo"}
)

// ValidPeriod reports whether p is an accepted history period. Empty means
// the default.
func ValidPeriod(p string) bool {
	return p == "" || contains(Periods, p)
}

// ValidInterval reports whether i is an accepted bar interval. Empty means
// the default.
func ValidInterval(i string) bool {
	return i == "" || contains(Intervals, i)
}
