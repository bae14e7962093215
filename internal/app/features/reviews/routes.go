// internal/app/features/reviews/routes.go
package reviews

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// EmployeeRoutes mounts at /api/employees/{employeeId}/reviews.
func EmployeeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireSignedIn).Get("/", h.ServeList)
	r.With(sm.RequireRole(authz.Manager)).Post("/", h.HandleCreate)
	return r
}

// Routes mounts at /api/reviews.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.With(sm.RequireRole(authz.Manager)).Patch("/{id}", h.HandleUpdate)
	r.With(sm.RequireRole(authz.TenantAdmin)).Delete("/{id}", h.HandleDelete)
	return r
}
