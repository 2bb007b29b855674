package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type stubSource struct {
	period string
	err    error
}

func (s *stubSource) Metrics(_ context.Context, ticker, period string) (*risk.Metrics, error) {
	s.period = period
	if s.err != nil {
		return nil, s.err
	}
	sharpe := 1.25
	return &risk.Metrics{Ticker: ticker, Period: "1y", Observations: 251, Sharpe: &sharpe}, nil
}

func newRouter(src MetricsSource) http.Handler {
	r := chi.NewRouter()
	r.Route("/api", NewHandler(src, zerolog.Nop()).RegisterRoutes)
	return r
}

func get(t *testing.T, h http.Handler, target string) (*httptest.ResponseRecorder, map[string]interface{}) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, target, nil))
	var body map[string]interface{}
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	return rec, body
}

func TestGetMetrics(t *testing.T) {
	src := &stubSource{}
	rec, body := get(t, newRouter(src), "/api/risk/AAPL?period=5y")

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "5y", src.period)
	assert.Equal(t, "AAPL", body["ticker"])
	assert.Equal(t, 1.25, body["sharpe"])
	assert.Nil(t, body["beta"])
	assert.Equal(t, 251.0, body["observations"])
}

func TestGetMetric(t *testing.T) {
	rec, body := get(t, newRouter(&stubSource{}), "/api/risk/AAPL/sharpe")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "sharpe", body["metric"])
	assert.Equal(t, 1.25, body["value"])

	rec, body = get(t, newRouter(&stubSource{}), "/api/risk/AAPL/beta")
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, body, "value")
	assert.Nil(t, body["value"])

	rec, body = get(t, newRouter(&stubSource{}), "/api/risk/AAPL/kelly")
	assert.Equal(t, http.StatusNotFound, rec.Code)
	assert.Equal(t, "unknown metric kelly", body["err"])
}

func TestGetMetrics_Errors(t *testing.T) {
	cases := []struct {
		err    error
		status int
	}{
		{fmt.Errorf("%w: %q", domain.ErrInvalidTicker, "BRK.B"), http.StatusBadRequest},
		{fmt.Errorf("%w: %q", risk.ErrInvalidPeriod, "7y"), http.StatusBadRequest},
		{domain.NoDataError("ZZZZ"), http.StatusNotFound},
		{fmt.Errorf("%w: AAPL has 3 returns", risk.ErrInsufficientHistory), http.StatusUnprocessableEntity},
		{errors.New("upstream down"), http.StatusInternalServerError},
	}
	for _, tc := range cases {
		t.Run(tc.err.Error(), func(t *testing.T) {
			rec, body := get(t, newRouter(&stubSource{err: tc.err}), "/api/risk/AAPL")
			assert.Equal(t, tc.status, rec.Code)
			assert.Equal(t, false, body["success"])
			assert.NotEmpty(t, body["err"])
		})
	}
}
