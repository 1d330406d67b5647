package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/starford/fehu/internal/chartservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
// sseHandler, if non-nil, is mounted at GET /events inside the auth group.
func NewRouter(svc *chartservice.Service, authEnabled bool, token string, sseHandler http.Handler) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	r.Route("/charts", func(r chi.Router) {
		r.Get("/", h.ListCharts)
		r.Post("/", h.CreateChart)

		r.Route("/{id}", func(r chi.Router) {
			r.Get("/", h.GetChart)
			r.Put("/", h.UpdateChart)
			r.Delete("/", h.DeleteChart)
			r.Get("/data", h.GetChartData)
			r.Get("/export", h.ExportChart)
			r.Patch("/streams/{streamID}", h.UpdateStreamAmount)
			r.Get("/moments/{momentID}/usages", h.MomentUsages)
		})
	})

	r.Get("/search", h.Search)

	if sseHandler != nil {
		r.Get("/events", sseHandler.ServeHTTP)
	}

	return r
}
