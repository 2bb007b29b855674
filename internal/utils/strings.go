// Package utils holds small helpers shared across packages.
package utils

import (
	"strings"
	"unicode"
)

// SplitList splits a user-supplied list such as "aapl, MSFT;spy GOOG".
// Commas, semicolons and whitespace all separate items; empty items are
// dropped. Returns nil when nothing is left.
func SplitList(s string) []string {
	fields := strings.FieldsFunc(s, func(r rune) bool {
		return r == ',' || r == ';' || unicode.IsSpace(r)
	})
	if len(fields) == 0 {
		return nil
	}
	return fields
}

// JoinList renders values in the comma form SplitList reads back.
func JoinList(values []string) string {
	return strings.Join(values, ",")
}
