// internal/app/features/session/status.go
package session

import (
	"net/http"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"go.uber.org/zap"
)

type statusUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

type statusTenant struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Tier     string `json:"subscriptionTier"`
	IsActive bool   `json:"isActive"`
}

type statusResponse struct {
	Authenticated   bool          `json:"authenticated"`
	User            *statusUser   `json:"user,omitempty"`
	Tenant          *statusTenant `json:"tenant,omitempty"`
	RealtimeToken   string        `json:"realtimeToken,omitempty"`
	RealtimeExpires *time.Time    `json:"realtimeTokenExpiresAt,omitempty"`
}

// ServeStatus handles GET /api/auth/status. Anonymous callers get
// {"authenticated": false}; signed-in callers also get a realtime token for
// the /ws auth frame.
func (h *Handler) ServeStatus(w http.ResponseWriter, r *http.Request) {
	u, ok := auth.CurrentUser(r)
	if !ok {
		respond.OK(w, statusResponse{Authenticated: false})
		return
	}

	resp := statusResponse{
		Authenticated: true,
		User: &statusUser{
			ID:       u.ID,
			Name:     u.Name,
			Email:    u.Email,
			Role:     u.Role,
			TenantID: u.TenantID,
		},
	}

	if tid := u.TenantObjectID(); !tid.IsZero() && h.Tenants != nil {
		if t, err := h.Tenants.Get(r.Context(), tid); err == nil {
			resp.Tenant = &statusTenant{
				ID:       t.ID.Hex(),
				Name:     t.Name,
				Tier:     string(plans.Resolve(t.SubscriptionTier).Tier),
				IsActive: t.IsActive,
			}
		} else {
			h.Log.Warn("auth status: tenant lookup failed", zap.String("tenant_id", u.TenantID), zap.Error(err))
		}
	}

	if h.Tokens != nil {
		tok, exp, err := h.Tokens.Issue(u.ID)
		if err != nil {
			h.Log.Error("issue realtime token", zap.String("user_id", u.ID), zap.Error(err))
		} else {
			resp.RealtimeToken = tok
			resp.RealtimeExpires = &exp
		}
	}

	respond.OK(w, resp)
}

// HandleLogout handles POST /api/logout.
func (h *Handler) HandleLogout(w http.ResponseWriter, r *http.Request) {
	if u, ok := auth.CurrentUser(r); ok {
		h.AuditLog.Logout(r.Context(), r, u.UserObjectID(), u.TenantObjectID())
	}
	if err := h.SessionMgr.Logout(w, r); err != nil {
		// The cookie may not decode; the client still ends up signed out.
		h.Log.Warn("logout: save session", zap.Error(err))
	}
	respond.NoContent(w)
}
