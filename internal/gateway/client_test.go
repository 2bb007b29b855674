package gateway

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const okBody = `{
  "stats": {"AAPL": {"PERatio": 28.5, "52W": {"high": 199.6, "low": 164.1}}, "marketAverages": {"PERatio": 21}},
  "graphs": {"efficientFrontier": {"AAPL": {"risk": 1.7, "cagr": 22.4}}},
  "names": {"AAPL": "Apple Inc."}
}`

func newTestClient(t *testing.T, handler http.HandlerFunc) (*Client, *int32) {
	t.Helper()
	var calls int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		atomic.AddInt32(&calls, 1)
		handler(w, r)
	}))
	t.Cleanup(srv.Close)
	return NewClient(srv.URL, time.Second, zerolog.Nop()), &calls
}

func TestFetchMarketData_Success(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/data", r.URL.Path)
		assert.Equal(t, "AAPL,MSFT", r.URL.Query().Get("tickers"))
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(okBody))
	})

	bundle, err := client.FetchMarketData(context.Background(), []string{"aapl", "MSFT"})
	require.NoError(t, err)

	assert.Equal(t, "Apple Inc.", bundle.Names["AAPL"])
	rr, ok := bundle.Frontier("AAPL")
	require.True(t, ok)
	assert.Equal(t, 1.7, rr.Risk)
}

func TestFetchMarketData_InvalidTickerNeverHitsNetwork(t *testing.T) {
	client, calls := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	})

	_, err := client.FetchMarketData(context.Background(), []string{"AAPL", "BRK.B"})
	assert.ErrorIs(t, err, domain.ErrInvalidTicker)

	_, err = client.FetchMarketData(context.Background(), nil)
	assert.ErrorIs(t, err, domain.ErrInvalidTicker)

	assert.Equal(t, int32(0), atomic.LoadInt32(calls))
}

func TestFetchMarketData_StatusMapping(t *testing.T) {
	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"bad request", http.StatusBadRequest, domain.ErrInvalidTicker},
		{"server error", http.StatusInternalServerError, domain.ErrUpstreamServer},
		{"not found", http.StatusNotFound, domain.ErrUnknownTransport},
		{"bad gateway", http.StatusBadGateway, domain.ErrUnknownTransport},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			})

			_, err := client.FetchMarketData(context.Background(), []string{"AAPL"})
			require.Error(t, err)
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestFetchMarketData_TransportErrorCarriesStatus(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusServiceUnavailable)
	})

	_, err := client.FetchMarketData(context.Background(), []string{"AAPL"})

	var te *domain.TransportError
	require.ErrorAs(t, err, &te)
	assert.Equal(t, http.StatusServiceUnavailable, te.Status)
}

func TestFetchMarketData_MalformedBody(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stats": [`))
	})

	_, err := client.FetchMarketData(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, domain.ErrUnknownTransport)
}

func TestFetchMarketData_Timeout(t *testing.T) {
	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	client := NewClient(srv.URL, 50*time.Millisecond, zerolog.Nop())

	start := time.Now()
	_, err := client.FetchMarketData(context.Background(), []string{"AAPL"})
	assert.ErrorIs(t, err, domain.ErrUnknownTransport)
	assert.Less(t, time.Since(start), 5*time.Second)
}

func TestFetchMarketData_ContextCancelled(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	})

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	_, err := client.FetchMarketData(ctx, []string{"AAPL"})
	assert.ErrorIs(t, err, domain.ErrUnknownTransport)
}

func TestFetchTicker_MissingStats(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"stats": {"marketAverages": {}}, "graphs": {}, "names": {}}`))
	})

	_, err := client.FetchTicker(context.Background(), "zzzz")
	assert.ErrorIs(t, err, domain.ErrNoDataForTicker)
}

func TestFetchTicker_Present(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(okBody))
	})

	bundle, err := client.FetchTicker(context.Background(), "aapl")
	require.NoError(t, err)
	_, ok := bundle.TickerStats("AAPL")
	assert.True(t, ok)
}

func TestPing(t *testing.T) {
	client, _ := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/ping", r.URL.Path)
		_, _ = w.Write([]byte(`{"success": true, "upstream": "ok"}`))
	})

	resp, err := client.Ping(context.Background())
	require.NoError(t, err)
	assert.True(t, resp.Success)
}
