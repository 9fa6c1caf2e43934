package api

import (
	"github.com/go-chi/chi/v5"

	"github.com/starford/byahe/internal/routeservice"
)

// NewRouter creates a chi router with all API routes mounted.
// authEnabled controls whether Bearer token auth is enforced.
func NewRouter(svc *routeservice.Service, authEnabled bool, token string) chi.Router {
	h := NewHandler(svc)

	r := chi.NewRouter()
	r.Use(AuthMiddleware(authEnabled, token))

	// Routes.
	r.Get("/routes", h.ListRoutes)
	r.Post("/routes", h.SaveRoute)
	r.Get("/routes/near", h.Near)
	r.Get("/routes/{id}", h.GetRoute)
	r.Patch("/routes/{id}/vote", h.Vote)
	r.Get("/routes/{id}/forks", h.Forks)

	// Guide.
	r.Post("/analyze", h.Analyze)

	return r
}
