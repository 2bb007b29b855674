package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers the chart routes under the caller's /api router.
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/charts", func(r chi.Router) {
		r.Get("/sparklines", h.HandleGetSparklines)
		r.Get("/tickers/{ticker}", h.HandleGetTickerChart)
	})
}
