package routes

import (
	"github.com/avvvet/danggoo-services/internal/socketsvc/handlers"
	"github.com/go-chi/chi"
)

// SetRoutes mounts the raw table socket at /ws and the observer endpoints.
// Paths are registered in full so the game routes can share the /v1 prefix.
func SetRoutes(r chi.Router, h *handlers.Handler) {
	r.Get("/ws", h.HandleTableSocket)
	r.Get("/v1/hub", h.HandleHub)
	r.Get("/v1/health", h.HealthHandler)
	r.Get("/v1/tables/status", h.TableStatus)
}
