// internal/app/features/session/routes.go
package session

import (
	"github.com/dalemusser/perfhub/internal/app/features/authgoogle"
	"github.com/go-chi/chi/v5"
)

// Routes mounts at /api. The caller has already applied LoadSessionUser.
// google may be nil; its endpoints are only served when it is configured.
func Routes(h *Handler, google *authgoogle.Handler) chi.Router {
	r := chi.NewRouter()

	r.Get("/auth/status", h.ServeStatus)
	r.Post("/logout", h.HandleLogout)

	if h.DevMode {
		r.Get("/dev-login/users", h.ServeDevUsers)
		r.Post("/dev-login", h.HandleDevLogin)
	}

	if google != nil && google.IsConfigured() {
		r.Get("/login", google.ServeLogin)
		r.Get("/callback", google.ServeCallback)
	}

	return r
}
