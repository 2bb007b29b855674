package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the session routes under the caller's /api router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/sessions", func(r chi.Router) {
		r.Post("/", h.HandleCreate)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.HandleSnapshot)
			r.Delete("/", h.HandleClose)

			r.Post("/tickers", h.HandleAddTicker)

			r.Get("/points", h.HandleGetPoints)
			r.Post("/points", h.HandleAddPoint)
			r.Delete("/points", h.HandleClearPoints)
			r.Delete("/points/{ticker}", h.HandleRemovePoint)

			r.Get("/frontier", h.HandleFrontier)
			r.Get("/table/{ticker}", h.HandleTable)
			r.Get("/charts/{ticker}/risk-bar", h.HandleRiskBar)
			r.Get("/charts/{ticker}/mctr-pie", h.HandleMCTRPie)

			if h.hub != nil {
				r.Get("/ws", h.HandleStream)
			}
			if h.events != nil {
				r.Get("/events", h.events.ServeHTTP)
			}
		})
	})
}
