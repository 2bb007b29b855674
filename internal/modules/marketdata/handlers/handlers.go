// Package handlers provides the HTTP surface of the market data service.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/marketdata"
	"github.com/rs/zerolog"
)

// Fetcher builds bundles. *marketdata.Service satisfies it.
type Fetcher interface {
	Fetch(ctx context.Context, req marketdata.Request) (*domain.Bundle, error)
}

// Handler handles market data HTTP requests
type Handler struct {
	fetcher Fetcher
	log     zerolog.Logger
}

// NewHandler creates a new market data handler
func NewHandler(fetcher Fetcher, log zerolog.Logger) *Handler {
	return &Handler{
		fetcher: fetcher,
		log:     log.With().Str("handler", "marketdata").Logger(),
	}
}

// errorResponse is the failure body shared by the /api endpoints.
type errorResponse struct {
	Success        bool     `json:"success"`
	Err            string   `json:"err"`
	RequiredParams []string `json:"requiredParams,omitempty"`
}

var requiredParams = []string{"tickers"}

// HandleGetData handles GET /api/data?tickers=AAPL,MSFT[&period=1y&interval=1d]
func (h *Handler) HandleGetData(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	raw := strings.TrimSpace(q.Get("tickers"))
	if raw == "" {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Err:            "1 or more required parameters missing",
			RequiredParams: requiredParams,
		})
		return
	}

	tickers, err := domain.ParseTickerList(raw)
	period, interval := q.Get("period"), q.Get("interval")
	if err != nil || !marketdata.ValidPeriod(period) || !marketdata.ValidInterval(interval) {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{
			Err:            "1 or more parameters malformed",
			RequiredParams: requiredParams,
		})
		return
	}

	bundle, err := h.fetcher.Fetch(r.Context(), marketdata.Request{
		Tickers:  tickers,
		Period:   period,
		Interval: interval,
	})
	if err != nil {
		status := http.StatusInternalServerError
		msg := "failed to fetch market data"
		switch {
		case errors.Is(err, domain.ErrInvalidTicker):
			status, msg = http.StatusBadRequest, "1 or more parameters malformed"
		case errors.Is(err, domain.ErrUpstreamServer):
			msg = "upstream data provider failed"
		}
		h.log.Error().Err(err).Strs("tickers", tickers).Msg("Failed to fetch market data")
		h.writeJSON(w, status, errorResponse{Err: msg})
		return
	}

	h.writeJSON(w, http.StatusOK, bundle)
}

// endpointDoc describes one route for /api/help.
type endpointDoc struct {
	Method      string            `json:"method"`
	Path        string            `json:"path"`
	Description string            `json:"description"`
	Params      map[string]string `json:"params,omitempty"`
}

var helpDocs = []endpointDoc{
	{Method: "GET", Path: "/api/ping", Description: "Server and upstream liveness with host load"},
	{Method: "GET", Path: "/api/help", Description: "This listing"},
	{
		Method:      "GET",
		Path:        "/api/data",
		Description: "Stats, frontier coordinates and MCTR breakdown for a batch of tickers",
		Params: map[string]string{
			"tickers":  "required, comma separated, 1-5 letters each",
			"period":   "optional, one of " + strings.Join(marketdata.Periods, ", "),
			"interval": "optional, one of " + strings.Join(marketdata.Intervals, ", "),
		},
	},
}

// HandleHelp handles GET /api/help
func (h *Handler) HandleHelp(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"success":   true,
		"endpoints": helpDocs,
	})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
