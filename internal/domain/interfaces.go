package domain

import "context"

// MarketDataFetcher returns the {stats, graphs, names} bundle for a batch of
// tickers. Implemented by the HTTP gateway and by the in-process market
// data service.
type MarketDataFetcher interface {
	FetchMarketData(ctx context.Context, tickers []string) (*Bundle, error)
}

// MarketDataFetcherFunc adapts a function to MarketDataFetcher.
type MarketDataFetcherFunc func(ctx context.Context, tickers []string) (*Bundle, error)

func (f MarketDataFetcherFunc) FetchMarketData(ctx context.Context, tickers []string) (*Bundle, error) {
	return f(ctx, tickers)
}
