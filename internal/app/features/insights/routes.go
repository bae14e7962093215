// internal/app/features/insights/routes.go
package insights

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/go-chi/chi/v5"
)

// EmployeeRoutes mounts at /api/employees/{employeeId}/insights.
func EmployeeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireRole(authz.Manager))
	r.Get("/", h.ServeInsights)
	return r
}
