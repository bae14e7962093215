// internal/app/features/session/devlogin.go
package session

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// switcherLimit caps the dev user switcher list.
const switcherLimit = 200

type devLoginRequest struct {
	UserID string `json:"userId" validate:"omitempty,objectid"`
	Email  string `json:"email" validate:"omitempty,email"`
}

type switcherUser struct {
	ID       string `json:"id"`
	Name     string `json:"name"`
	Email    string `json:"email"`
	Role     string `json:"role"`
	TenantID string `json:"tenantId,omitempty"`
}

// ServeDevUsers handles GET /api/dev-login/users: the user switcher list.
func (h *Handler) ServeDevUsers(w http.ResponseWriter, r *http.Request) {
	if !h.DevMode {
		respond.Error(w, r, h.Log, apierr.New(apierr.NotFound))
		return
	}
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	users, err := userstore.New(h.DB).ListForSwitcher(ctx, switcherLimit)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	out := make([]switcherUser, 0, len(users))
	for _, u := range users {
		su := switcherUser{ID: u.ID.Hex(), Name: u.FullName, Email: u.Email, Role: u.Role}
		if u.TenantID != nil {
			su.TenantID = u.TenantID.Hex()
		}
		out = append(out, su)
	}
	respond.OK(w, map[string]any{"users": out})
}

// HandleDevLogin handles POST /api/dev-login. It signs in as any existing,
// active user by id or email and is only mounted in the dev environment.
func (h *Handler) HandleDevLogin(w http.ResponseWriter, r *http.Request) {
	if !h.DevMode {
		respond.Error(w, r, h.Log, apierr.New(apierr.NotFound))
		return
	}

	var req devLoginRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if req.UserID == "" && req.Email == "" {
		respond.Error(w, r, h.Log, apierr.New(apierr.InvalidRequestBody).
			WithDetails(map[string]string{"userId": "userId or email is required"}))
		return
	}
	if h.Limiter != nil && !h.Limiter.Check(r, req.Email+req.UserID) {
		respond.Error(w, r, h.Log, apierr.New(apierr.RateLimited))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	users := userstore.New(h.DB)
	var (
		u   models.User
		err error
	)
	if req.UserID != "" {
		oid, _ := primitive.ObjectIDFromHex(req.UserID)
		u, err = users.GetByID(ctx, oid)
	} else {
		u, err = users.GetByEmail(ctx, req.Email)
	}
	if err != nil {
		if errors.Is(err, userstore.ErrNotFound) {
			h.AuditLog.LoginFailed(ctx, r, req.Email+req.UserID, "user not found")
			respond.Error(w, r, h.Log, apierr.Newf(apierr.NotFound, "User not found."))
			return
		}
		respond.Error(w, r, h.Log, err)
		return
	}
	if u.Status == userstore.StatusDisabled {
		h.AuditLog.LoginFailed(ctx, r, u.Email, "user disabled")
		respond.Error(w, r, h.Log, apierr.Newf(apierr.TenantAccessDenied, "This account is disabled."))
		return
	}

	if err := h.SessionMgr.Login(w, r, u.ID.Hex()); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	tenantID := primitive.NilObjectID
	if u.TenantID != nil {
		tenantID = *u.TenantID
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, tenantID, "dev")
	h.Log.Info("dev login", zap.String("user_id", u.ID.Hex()), zap.String("role", u.Role))

	respond.OK(w, map[string]any{
		"id":    u.ID.Hex(),
		"name":  u.FullName,
		"email": u.Email,
		"role":  u.Role,
	})
}
