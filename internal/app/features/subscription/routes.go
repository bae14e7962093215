// internal/app/features/subscription/routes.go
package subscription

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /api/subscription.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeInfo)
	})
	return r
}
