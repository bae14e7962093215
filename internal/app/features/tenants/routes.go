// internal/app/features/tenants/routes.go
package tenants

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /api/tenants. Only reading a single tenant is open to
// tenant users; the directory itself is platform-admin only.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/{id}", h.ServeGet)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.PlatformAdmin))
		pr.Get("/", h.ServeList)
		pr.Post("/", h.HandleCreate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Post("/{id}/activate", h.HandleActivate)
		pr.Post("/{id}/deactivate", h.HandleDeactivate)
		pr.Put("/{id}/subscription", h.HandleSubscription)
	})

	return r
}
