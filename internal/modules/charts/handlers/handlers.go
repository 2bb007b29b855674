// Package handlers provides HTTP handlers for chart data.
package handlers

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/charts"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Handler provides HTTP handlers for chart endpoints
type Handler struct {
	service *charts.Service
	log     zerolog.Logger
}

// NewHandler creates a new charts handler
func NewHandler(service *charts.Service, log zerolog.Logger) *Handler {
	return &Handler{
		service: service,
		log:     log.With().Str("handler", "charts").Logger(),
	}
}

type errorResponse struct {
	Success bool   `json:"success"`
	Err     string `json:"err"`
}

// HandleGetSparklines handles GET /api/charts/sparklines?tickers=AAPL,MSFT[&period=1Y|5Y]
func (h *Handler) HandleGetSparklines(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	tickers, err := domain.ParseTickerList(strings.TrimSpace(q.Get("tickers")))
	if err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Err: "tickers must be a comma separated list of 1-5 letter symbols"})
		return
	}
	period := q.Get("period")
	if period == "" {
		period = "1Y"
	}

	sparklines, err := h.service.Sparklines(r.Context(), tickers, period)
	if err != nil {
		h.writeError(w, err, "Failed to get sparklines data")
		return
	}
	h.writeJSON(w, http.StatusOK, sparklines)
}

// HandleGetTickerChart handles GET /api/charts/tickers/{ticker}[?range=1M|3M|6M|1Y|5Y|10Y|all]
func (h *Handler) HandleGetTickerChart(w http.ResponseWriter, r *http.Request) {
	ticker := chi.URLParam(r, "ticker")

	points, err := h.service.PriceChart(r.Context(), ticker, r.URL.Query().Get("range"))
	if err != nil {
		h.writeError(w, err, "Failed to get ticker chart data")
		return
	}
	h.writeJSON(w, http.StatusOK, points)
}

func (h *Handler) writeError(w http.ResponseWriter, err error, msg string) {
	switch {
	case errors.Is(err, charts.ErrInvalidRange), errors.Is(err, domain.ErrInvalidTicker):
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Err: err.Error()})
	case errors.Is(err, domain.ErrNoDataForTicker):
		h.writeJSON(w, http.StatusNotFound, errorResponse{Err: "no data available for ticker"})
	default:
		h.log.Error().Err(err).Msg(msg)
		h.writeJSON(w, http.StatusInternalServerError, errorResponse{Err: msg})
	}
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
