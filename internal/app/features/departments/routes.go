// internal/app/features/departments/routes.go
package departments

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /api/departments.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireSignedIn)
		pr.Get("/", h.ServeList)
		pr.Get("/{id}", h.ServeGet)
	})

	r.Group(func(pr chi.Router) {
		pr.Use(sm.RequireRole(authz.TenantAdmin))
		pr.Post("/", h.HandleCreate)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
