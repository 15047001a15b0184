package panel

import (
	"github.com/go-chi/chi/v5"
)

// SetupRoutes configures routes for the panel feature.
func SetupRoutes(router chi.Router, handlers *Handlers) {
	router.Get("/", handlers.PanelPage)
	router.Get("/updates", handlers.Updates)

	router.Route("/panel", func(r chi.Router) {
		r.Post("/toggle", handlers.Toggle)
		r.Post("/collapse", handlers.Collapse)
		r.Post("/refresh", handlers.Refresh)
		r.Post("/geometry", handlers.Geometry)
		r.Post("/frames/{frameID}/expand", handlers.ExpandFrame)
		r.Post("/frames/{frameID}/columns/{columnID}/expand", handlers.ExpandColumn)
		r.Post("/rows/{rowID}/collapse", handlers.CollapseRow)
	})

	router.Get("/frames/{frameID}/export", handlers.Export)
	router.Post("/events/{signal}", handlers.Emit)
}
