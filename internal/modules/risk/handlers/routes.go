package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the risk metrics routes under the caller's /api
// router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/risk/{ticker}", func(r chi.Router) {
		r.Get("/", h.HandleGetMetrics)
		r.Get("/{metric}", h.HandleGetMetric)
	})
}
