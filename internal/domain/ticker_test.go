package domain

import (
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestIsValidTicker(t *testing.T) {
	tests := []struct {
		in   string
		want bool
	}{
		{"A", true},
		{"AAPL", true},
		{"GOOGL", true},
		{"aapl", true},
		{"MsFt", true},
		{"", false},
		{"TOOLONG", false},
		{"BRK.B", false},
		{"AB1", false},
		{" AAPL", false},
		{"ÄPPL", false},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			assert.Equal(t, tt.want, IsValidTicker(tt.in))
		})
	}
}

func TestValidateTicker_Normalizes(t *testing.T) {
	got, err := ValidateTicker("  msft ")
	require.NoError(t, err)
	assert.Equal(t, "MSFT", got)

	_, err = ValidateTicker("12")
	assert.True(t, errors.Is(err, ErrInvalidTicker))
}

func TestParseTickerList(t *testing.T) {
	got, err := ParseTickerList("aapl, MSFT,aapl ,spy")
	require.NoError(t, err)
	assert.Equal(t, []string{"AAPL", "MSFT", "SPY"}, got)

	got, err = ParseTickerList("ko pep;KO")
	require.NoError(t, err)
	assert.Equal(t, []string{"KO", "PEP"}, got)

	_, err = ParseTickerList("")
	assert.ErrorIs(t, err, ErrInvalidTicker)

	_, err = ParseTickerList("AAPL,TOOLONGX")
	assert.ErrorIs(t, err, ErrInvalidTicker)
}

func TestTransportError_Is(t *testing.T) {
	var err error = &TransportError{Status: 503, Message: "Service Unavailable"}

	assert.ErrorIs(t, err, ErrUnknownTransport)
	assert.NotErrorIs(t, err, ErrUpstreamServer)
	assert.Contains(t, err.Error(), "503")

	var te *TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, 503, te.Status)
}
