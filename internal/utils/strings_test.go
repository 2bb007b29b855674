package utils

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestSplitList(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		expected []string
	}{
		{
			name:     "empty string",
			input:    "",
			expected: nil,
		},
		{
			name:     "single value",
			input:    "AAPL",
			expected: []string{"AAPL"},
		},
		{
			name:     "varied spacing",
			input:    "AAPL,  msft , GOOG",
			expected: []string{"AAPL", "msft", "GOOG"},
		},
		{
			name:     "trailing comma",
			input:    "SPY,",
			expected: []string{"SPY"},
		},
		{
			name:     "only spaces",
			input:    "   ",
			expected: nil,
		},
		{
			name:     "multiple commas",
			input:    ",,AAPL,,MSFT,,",
			expected: []string{"AAPL", "MSFT"},
		},
		{
			name:     "pasted with spaces and semicolons",
			input:    "aapl MSFT;\tspy\nGOOG",
			expected: []string{"aapl", "MSFT", "spy", "GOOG"},
		},
		{
			name:     "separators only",
			input:    " ,; ",
			expected: nil,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, SplitList(tt.input))
		})
	}
}

func TestJoinList_SplitsBack(t *testing.T) {
	values := []string{"AAPL", "MSFT", "SPY"}
	assert.Equal(t, "AAPL,MSFT,SPY", JoinList(values))
	assert.Equal(t, values, SplitList(JoinList(values)))
}
