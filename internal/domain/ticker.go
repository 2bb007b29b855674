package domain

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/aristath/tickerdash/internal/utils"
)

var tickerPattern = regexp.MustCompile(`^[A-Z]{1,5}$`)

// NormalizeTicker trims whitespace and uppercases a symbol.
func NormalizeTicker(s string) string {
	return strings.ToUpper(strings.TrimSpace(s))
}

// IsValidTicker reports whether s is 1-5 ASCII letters once uppercased.
// Surrounding whitespace is not tolerated here; callers normalize first.
func IsValidTicker(s string) bool {
	return tickerPattern.MatchString(strings.ToUpper(s))
}

// ValidateTicker normalizes s and returns ErrInvalidTicker if it is malformed.
func ValidateTicker(s string) (string, error) {
	t := NormalizeTicker(s)
	if !IsValidTicker(t) {
		return "", fmt.Errorf("%w: %q", ErrInvalidTicker, s)
	}
	return t, nil
}

// ValidateTickers normalizes every symbol, drops duplicates (first occurrence
// wins) and fails on the first malformed entry.
func ValidateTickers(symbols []string) ([]string, error) {
	if len(symbols) == 0 {
		return nil, fmt.Errorf("%w: empty ticker list", ErrInvalidTicker)
	}

	seen := make(map[string]bool, len(symbols))
	out := make([]string, 0, len(symbols))
	for _, s := range symbols {
		t, err := ValidateTicker(s)
		if err != nil {
			return nil, err
		}
		if seen[t] {
			continue
		}
		seen[t] = true
		out = append(out, t)
	}
	return out, nil
}

// ParseTickerList parses a ticker list such as "aapl, MSFT" or "ko pep".
func ParseTickerList(csv string) ([]string, error) {
	return ValidateTickers(utils.SplitList(csv))
}
