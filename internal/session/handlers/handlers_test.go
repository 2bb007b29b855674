package handlers

import (
	"bytes"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/events"
	"github.com/aristath/tickerdash/internal/modules/frontier"
	"github.com/aristath/tickerdash/internal/modules/metrics"
	"github.com/aristath/tickerdash/internal/session"
	testutil "github.com/aristath/tickerdash/internal/testing"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type testServer struct {
	router  chi.Router
	fetcher *testutil.MockFetcher
}

func newTestServer() *testServer {
	fetcher := testutil.NewMockFetcher(testutil.NewTickerFixtures()...)
	bus := events.NewBus(zerolog.Nop())
	manager := session.NewManager(fetcher, session.NewMemoryStore(time.Hour), bus, time.Hour, zerolog.Nop())
	h := NewHandler(manager, session.NewHub(bus, nil, zerolog.Nop()), zerolog.Nop())

	r := chi.NewRouter()
	r.Route("/api", h.RegisterRoutes)
	return &testServer{router: r, fetcher: fetcher}
}

func (s *testServer) do(t *testing.T, method, path string, body interface{}) *httptest.ResponseRecorder {
	t.Helper()
	var buf bytes.Buffer
	if body != nil {
		require.NoError(t, json.NewEncoder(&buf).Encode(body))
	}
	req := httptest.NewRequest(method, path, &buf)
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	return w
}

func (s *testServer) create(t *testing.T) string {
	t.Helper()
	w := s.do(t, http.MethodPost, "/api/sessions", nil)
	require.Equal(t, http.StatusCreated, w.Code)

	var resp map[string]string
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.NotEmpty(t, resp["id"])
	return resp["id"]
}

func TestSessionLifecycle(t *testing.T) {
	s := newTestServer()
	id := s.create(t)
	base := "/api/sessions/" + id

	w := s.do(t, http.MethodPost, base+"/tickers", addTickerRequest{Ticker: "aapl"})
	require.Equal(t, http.StatusOK, w.Code, w.Body.String())
	var added session.AddResult
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &added))
	assert.Equal(t, "AAPL", added.Ticker)
	assert.True(t, added.Cached)

	w = s.do(t, http.MethodGet, base+"/points", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var points []frontier.ChartPoint
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &points))
	require.Len(t, points, 1)
	assert.Equal(t, "AAPL", points[0].Label)

	w = s.do(t, http.MethodGet, base, nil)
	require.Equal(t, http.StatusOK, w.Code)
	var snap session.Snapshot
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &snap))
	assert.Equal(t, id, snap.ID)
	assert.Equal(t, []string{"AAPL"}, snap.Tickers)

	w = s.do(t, http.MethodGet, base+"/table/AAPL", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var rows []map[string]interface{}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &rows))
	assert.Len(t, rows, len(metrics.All))

	w = s.do(t, http.MethodGet, base+"/frontier?cap=small_cap", nil)
	require.Equal(t, http.StatusOK, w.Code)
	var chart frontier.Chart
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &chart))
	assert.Equal(t, frontier.SmallCap, chart.CapType)
	assert.Len(t, chart.CachedPoints, 1)

	for _, path := range []string{"/charts/AAPL/risk-bar", "/charts/AAPL/mctr-pie"} {
		w = s.do(t, http.MethodGet, base+path, nil)
		assert.Equal(t, http.StatusOK, w.Code, path)
	}

	w = s.do(t, http.MethodDelete, base+"/points/AAPL", nil)
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"removed":true`)

	w = s.do(t, http.MethodDelete, base, nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, base, nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestAddPointAndClear(t *testing.T) {
	s := newTestServer()
	base := "/api/sessions/" + s.create(t)

	risk, cagr := 0.22, 0.11
	w := s.do(t, http.MethodPost, base+"/points", addPointRequest{Ticker: "KO", Risk: &risk, CAGR: &cagr})
	require.Equal(t, http.StatusCreated, w.Code)

	w = s.do(t, http.MethodPost, base+"/points", addPointRequest{Ticker: "KO"})
	require.Equal(t, http.StatusOK, w.Code)
	assert.Contains(t, w.Body.String(), `"added":false`)

	w = s.do(t, http.MethodPost, base+"/points", addPointRequest{Ticker: "K0"})
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = s.do(t, http.MethodDelete, base+"/points", nil)
	assert.Equal(t, http.StatusNoContent, w.Code)

	w = s.do(t, http.MethodGet, base+"/points", nil)
	assert.JSONEq(t, `[]`, w.Body.String())
}

func TestErrorMapping(t *testing.T) {
	s := newTestServer()
	base := "/api/sessions/" + s.create(t)

	tests := []struct {
		name   string
		setup  func()
		ticker string
		status int
	}{
		{"invalid ticker", nil, "AAPL1", http.StatusBadRequest},
		{"no data", nil, "ZZZZ", http.StatusNotFound},
		{"upstream", func() { s.fetcher.SetError(domain.ErrUpstreamServer) }, "AAPL", http.StatusBadGateway},
		{"transport", func() { s.fetcher.SetError(&domain.TransportError{Status: 503, Message: "down"}) }, "AAPL", http.StatusBadGateway},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.setup != nil {
				tt.setup()
			}
			w := s.do(t, http.MethodPost, base+"/tickers", addTickerRequest{Ticker: tt.ticker})
			assert.Equal(t, tt.status, w.Code, w.Body.String())
			assert.Contains(t, w.Body.String(), `"success":false`)
		})
	}
}

func TestUnknownSession(t *testing.T) {
	s := newTestServer()

	w := s.do(t, http.MethodGet, "/api/sessions/nope/points", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)

	w = s.do(t, http.MethodDelete, "/api/sessions/00000000-0000-0000-0000-000000000000", nil)
	assert.Equal(t, http.StatusNotFound, w.Code)
}

func TestBadBody(t *testing.T) {
	s := newTestServer()
	base := "/api/sessions/" + s.create(t)

	req := httptest.NewRequest(http.MethodPost, base+"/tickers", bytes.NewBufferString("{"))
	w := httptest.NewRecorder()
	s.router.ServeHTTP(w, req)
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
