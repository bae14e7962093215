// internal/app/features/feedback/routes.go
package feedback

import (
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/go-chi/chi/v5"
)

// EmployeeRoutes mounts at /api/employees/{employeeId}/feedback.
func EmployeeRoutes(h *Handler, sm *auth.SessionManager) chi.Router {
	r := chi.NewRouter()
	r.Use(sm.RequireSignedIn)
	r.Get("/", h.ServeList)
	r.Post("/", h.HandleCreate)
	return r
}

// PublicRoutes mounts at /api/public/feedback. No session is required.
func PublicRoutes(h *Handler) chi.Router {
	r := chi.NewRouter()
	r.Get("/{token}", h.ServePublic)
	r.Post("/{token}", h.HandlePublicSubmit)
	return r
}
