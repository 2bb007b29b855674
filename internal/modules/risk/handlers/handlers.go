// Package handlers provides HTTP handlers for ticker risk metrics.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/risk"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// MetricsSource computes risk metrics. *risk.Service satisfies it.
type MetricsSource interface {
	Metrics(ctx context.Context, ticker, period string) (*risk.Metrics, error)
}

// Handler handles risk metrics HTTP requests
type Handler struct {
	source MetricsSource
	log    zerolog.Logger
}

// NewHandler creates a new risk metrics handler
func NewHandler(source MetricsSource, log zerolog.Logger) *Handler {
	return &Handler{
		source: source,
		log:    log.With().Str("handler", "risk").Logger(),
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Err     string `json:"err"`
}

// metricResponse carries a single metric out of a ticker's profile.
type metricResponse struct {
	Ticker string   `json:"ticker"`
	Period string   `json:"period"`
	Metric string   `json:"metric"`
	Value  *float64 `json:"value"`
}

var metricFields = map[string]func(*risk.Metrics) *float64{
	"volatility":   func(m *risk.Metrics) *float64 { return m.Volatility },
	"sharpe":       func(m *risk.Metrics) *float64 { return m.Sharpe },
	"sortino":      func(m *risk.Metrics) *float64 { return m.Sortino },
	"max-drawdown": func(m *risk.Metrics) *float64 { return m.MaxDrawdown },
	"var":          func(m *risk.Metrics) *float64 { return m.VaR95 },
	"cvar":         func(m *risk.Metrics) *float64 { return m.CVaR95 },
	"beta":         func(m *risk.Metrics) *float64 { return m.Beta },
}

// HandleGetMetrics handles GET /api/risk/{ticker}[?period=1y]
func (h *Handler) HandleGetMetrics(w http.ResponseWriter, r *http.Request) {
	m, ok := h.metrics(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, m)
}

// HandleGetMetric handles GET /api/risk/{ticker}/{metric}[?period=1y]
func (h *Handler) HandleGetMetric(w http.ResponseWriter, r *http.Request) {
	name := chi.URLParam(r, "metric")
	field, known := metricFields[name]
	if !known {
		h.writeJSON(w, http.StatusNotFound, errorResponse{Err: "unknown metric " + name})
		return
	}

	m, ok := h.metrics(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, metricResponse{
		Ticker: m.Ticker,
		Period: m.Period,
		Metric: name,
		Value:  field(m),
	})
}

// metrics loads the profile for the request and writes the error response
// itself when that fails.
func (h *Handler) metrics(w http.ResponseWriter, r *http.Request) (*risk.Metrics, bool) {
	ticker := chi.URLParam(r, "ticker")
	m, err := h.source.Metrics(r.Context(), ticker, r.URL.Query().Get("period"))
	if err == nil {
		return m, true
	}

	switch {
	case errors.Is(err, domain.ErrInvalidTicker), errors.Is(err, risk.ErrInvalidPeriod):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Err: "1 or more parameters malformed"})
	case errors.Is(err, domain.ErrNoDataForTicker):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Err: "no data available for ticker"})
	case errors.Is(err, risk.ErrInsufficientHistory):
		h.writeJSON(w, http.StatusUnprocessableEntity, errorResponse{Err: err.Error()})
	default:
		h.log.Error().Err(err).Str("ticker", ticker).Msg("Failed to calculate risk metrics")
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Err: "failed to calculate risk metrics"})
	}
	return nil, false
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
