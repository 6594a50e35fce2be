package handlers

import (
	"github.com/go-chi/chi/v5"
)

// RegisterRoutes registers all filing routes
func (h *Handler) RegisterRoutes(r chi.Router) {
	r.Route("/filings", func(r chi.Router) {
		r.Get("/", h.HandleListFilings)
		r.Get("/stats", h.HandleGetStats)
		r.Get("/{id}", h.HandleGetFiling)
	})
	r.Get("/dataset", h.HandleGetDataset)
}
