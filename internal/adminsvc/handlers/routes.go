package handlers

import (
	"github.com/go-chi/chi"
)

func (h *Handler) SetRoutes(r chi.Router) {
	r.Get("/", h.PageHandler)
	r.Post("/", h.FormSubmitHandler)

	r.Route("/v1", func(r chi.Router) {
		r.Get("/health", h.HealthHandler)
		r.Get("/state", h.StateHandler)
		r.Put("/draft/{field}", h.EditDraftHandler)
		r.Get("/variables", h.ListVariablesHandler)
		r.Post("/variables", h.CreateVariablesHandler)
		r.Post("/reload", h.ReloadHandler)
		r.Get("/ws", h.hub.HandleWebSocket)
	})
}
