package domain

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMarketDataFetcherFunc(t *testing.T) {
	var got []string
	var f MarketDataFetcher = MarketDataFetcherFunc(func(_ context.Context, tickers []string) (*Bundle, error) {
		got = tickers
		return NewBundle(), nil
	})

	b, err := f.FetchMarketData(context.Background(), []string{"AAPL"})
	require.NoError(t, err)
	assert.NotNil(t, b)
	assert.Equal(t, []string{"AAPL"}, got)
}
