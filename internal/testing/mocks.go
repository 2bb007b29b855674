package testing

import (
	"context"
	"sync"

	"github.com/aristath/tickerdash/internal/domain"
)

// MockFetcher is a mock implementation of domain.MarketDataFetcher.
// It answers every request with the configured tickers that were asked for.
type MockFetcher struct {
	mu      sync.Mutex
	tickers map[string]TickerFixture
	err     error
	calls   [][]string
}

// NewMockFetcher creates a new mock fetcher serving fixtures.
func NewMockFetcher(fixtures ...TickerFixture) *MockFetcher {
	m := &MockFetcher{tickers: make(map[string]TickerFixture)}
	for _, f := range fixtures {
		m.tickers[f.Ticker] = f
	}
	return m
}

// SetTicker adds or replaces a ticker fixture.
func (m *MockFetcher) SetTicker(f TickerFixture) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.tickers[f.Ticker] = f
}

// SetError sets the error returned by every subsequent fetch.
func (m *MockFetcher) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// FetchMarketData returns a bundle with the requested, known tickers.
// Unknown tickers are simply absent, as the real service does.
func (m *MockFetcher) FetchMarketData(ctx context.Context, tickers []string) (*domain.Bundle, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	m.calls = append(m.calls, append([]string(nil), tickers...))
	if m.err != nil {
		return nil, m.err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var found []TickerFixture
	for _, t := range tickers {
		if f, ok := m.tickers[t]; ok {
			found = append(found, f)
		}
	}
	return NewBundleFixture(found...), nil
}

// Calls returns the ticker lists of every fetch so far.
func (m *MockFetcher) Calls() [][]string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([][]string(nil), m.calls...)
}
