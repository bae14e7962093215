// internal/app/features/goals/routes.go
package goals

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// EmployeeRoutes mounts at /api/employees/{employeeId}/goals.
func EmployeeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}

// Routes mounts at /api/goals.
func Routes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Patch("/{id}", h.HandleUpdate)
	r.Delete("/{id}", h.HandleDelete)
	return r
}
