package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the market data routes under the caller's /api
// router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Get("/data", h.HandleGetData)
	r.Get("/help", h.HandleHelp)
}
