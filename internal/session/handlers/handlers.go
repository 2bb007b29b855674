// Package handlers provides the HTTP surface of dashboard sessions.
package handlers

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/aristath/tickerdash/internal/domain"
	"github.com/aristath/tickerdash/internal/modules/frontier"
	"github.com/aristath/tickerdash/internal/session"
	"github.com/go-chi/chi/v5"
	"github.com/rs/zerolog"
)

// Sessions resolves and manages session controllers. *session.Manager
// satisfies it.
type Sessions interface {
	Create(ctx context.Context) (*session.Controller, error)
	Get(ctx context.Context, id string) (*session.Controller, error)
	Close(ctx context.Context, id string) error
}

// Handler handles session HTTP requests
type Handler struct {
	sessions Sessions
	hub      *session.Hub
	events   http.Handler
	log      zerolog.Logger
}

// NewHandler creates a new session handler. A nil hub disables the
// websocket route.
func NewHandler(sessions Sessions, hub *session.Hub, log zerolog.Logger) *Handler {
	return &Handler{
		sessions: sessions,
		hub:      hub,
		log:      log.With().Str("handler", "session").Logger(),
	}
}

// SetEventStream serves h at /api/sessions/{id}/events.
func (h *Handler) SetEventStream(stream http.Handler) {
	h.events = stream
}

type errorResponse struct {
	Success bool   `json:"success"`
	Err     string `json:"err"`
}

type addTickerRequest struct {
	Ticker string `json:"ticker"`
}

type addPointRequest struct {
	Ticker string   `json:"ticker"`
	Risk   *float64 `json:"risk,omitempty"`
	CAGR   *float64 `json:"cagr,omitempty"`
}

// HandleCreate handles POST /api/sessions
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	c, err := h.sessions.Create(r.Context())
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusCreated, map[string]string{"id": c.ID()})
}

// HandleClose handles DELETE /api/sessions/{id}
func (h *Handler) HandleClose(w http.ResponseWriter, r *http.Request) {
	if err := h.sessions.Close(r.Context(), chi.URLParam(r, "id")); err != nil {
		h.writeError(w, err)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

// HandleSnapshot handles GET /api/sessions/{id}
func (h *Handler) HandleSnapshot(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.Snapshot())
}

// HandleAddTicker handles POST /api/sessions/{id}/tickers
func (h *Handler) HandleAddTicker(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req addTickerRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Err: "invalid request body"})
		return
	}

	result, err := c.AddTicker(r.Context(), req.Ticker)
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, result)
}

// HandleGetPoints handles GET /api/sessions/{id}/points
func (h *Handler) HandleGetPoints(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.writeJSON(w, http.StatusOK, c.ChartPoints())
}

// HandleAddPoint handles POST /api/sessions/{id}/points
func (h *Handler) HandleAddPoint(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}

	var req addPointRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		h.writeJSON(w, http.StatusBadRequest, errorResponse{Err: "invalid request body"})
		return
	}

	var rr *domain.RiskReturn
	if req.Risk != nil && req.CAGR != nil {
		rr = &domain.RiskReturn{Risk: *req.Risk, CAGR: *req.CAGR}
	}

	added, err := c.AddPoint(req.Ticker, rr)
	if err != nil {
		h.writeError(w, err)
		return
	}
	status := http.StatusOK
	if added {
		status = http.StatusCreated
	}
	h.writeJSON(w, status, map[string]interface{}{
		"added":  added,
		"points": c.ChartPoints(),
	})
}

// HandleClearPoints handles DELETE /api/sessions/{id}/points
func (h *Handler) HandleClearPoints(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	c.ClearPoints()
	w.WriteHeader(http.StatusNoContent)
}

// HandleRemovePoint handles DELETE /api/sessions/{id}/points/{ticker}
func (h *Handler) HandleRemovePoint(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	removed := c.RemovePoint(chi.URLParam(r, "ticker"))
	h.writeJSON(w, http.StatusOK, map[string]interface{}{
		"removed": removed,
		"points":  c.ChartPoints(),
	})
}

// HandleFrontier handles GET /api/sessions/{id}/frontier?cap=large_cap
func (h *Handler) HandleFrontier(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	capType := frontier.ParseCapType(r.URL.Query().Get("cap"))
	h.writeJSON(w, http.StatusOK, c.Frontier(capType))
}

// HandleTable handles GET /api/sessions/{id}/table/{ticker}
func (h *Handler) HandleTable(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	rows, err := c.MetricsTable(chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, rows)
}

// HandleRiskBar handles GET /api/sessions/{id}/charts/{ticker}/risk-bar
func (h *Handler) HandleRiskBar(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	chart, err := c.RiskBar(chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chart)
}

// HandleMCTRPie handles GET /api/sessions/{id}/charts/{ticker}/mctr-pie
func (h *Handler) HandleMCTRPie(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	chart, err := c.MCTRPie(chi.URLParam(r, "ticker"))
	if err != nil {
		h.writeError(w, err)
		return
	}
	h.writeJSON(w, http.StatusOK, chart)
}

// HandleStream handles GET /api/sessions/{id}/ws
func (h *Handler) HandleStream(w http.ResponseWriter, r *http.Request) {
	c, ok := h.controller(w, r)
	if !ok {
		return
	}
	h.hub.Serve(w, r, c)
}

// controller resolves the {id} URL parameter, writing the error response
// itself when the session cannot be used.
func (h *Handler) controller(w http.ResponseWriter, r *http.Request) (*session.Controller, bool) {
	c, err := h.sessions.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		h.writeError(w, err)
		return nil, false
	}
	return c, true
}

// statusFor maps domain errors to HTTP statuses.
func statusFor(err error) int {
	switch {
	case errors.Is(err, domain.ErrInvalidTicker):
		return http.StatusBadRequest
	case errors.Is(err, domain.ErrNoDataForTicker), errors.Is(err, domain.ErrSessionNotFound):
		return http.StatusNotFound
	case errors.Is(err, domain.ErrUpstreamServer), errors.Is(err, domain.ErrUnknownTransport):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

func (h *Handler) writeError(w http.ResponseWriter, err error) {
	status := statusFor(err)
	if status >= http.StatusInternalServerError {
		h.log.Error().Err(err).Int("status", status).Msg("Session request failed")
	} else {
		h.log.Debug().Err(err).Int("status", status).Msg("Session request rejected")
	}
	h.writeJSON(w, status, errorResponse{Err: err.Error()})
}

// writeJSON writes a JSON response
func (h *Handler) writeJSON(w http.ResponseWriter, status int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)

	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.log.Error().Err(err).Msg("Failed to encode JSON response")
	}
}
