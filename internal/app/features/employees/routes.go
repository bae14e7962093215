// internal/app/features/employees/routes.go
package employees

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /api/employees. Handlers re-check the role against the
// target tenant; the middleware only turns away obviously short roles.
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
		pr.Post("/bulk-status", h.HandleBulkStatus)
		pr.Patch("/{id}", h.HandleUpdate)
		pr.Delete("/{id}", h.HandleDelete)
	})

	return r
}
