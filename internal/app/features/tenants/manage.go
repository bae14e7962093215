// internal/app/features/tenants/manage.go
package tenants

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strconv"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	Name             string `json:"name" validate:"required,max=200"`
	Domain           string `json:"domain" validate:"required,fqdn"`
	SubscriptionTier string `json:"subscriptionTier"`
	// MaxEmployees overrides the plan's cap; -1 means unlimited.
	MaxEmployees *int `json:"maxEmployees" validate:"omitempty,min=-1"`
}

type updateRequest struct {
	Name   *string `json:"name" validate:"omitempty,min=1,max=200"`
	Domain *string `json:"domain" validate:"omitempty,fqdn"`
}

type subscriptionRequest struct {
	Tier         string `json:"tier" validate:"required"`
	MaxEmployees *int   `json:"maxEmployees" validate:"omitempty,min=-1"`
}

// parseTier accepts only known tiers on writes. Unknown stored values are
// tolerated on reads, never created.
func parseTier(s string) (plans.Tier, error) {
	if s == "" {
		return plans.Lowest, nil
	}
	t, ok := plans.Parse(s)
	if !ok {
		return "", apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{
			"tier": fmt.Sprintf("unknown tier %q", s),
		})
	}
	return t, nil
}

func storeErr(err error) error {
	switch {
	case errors.Is(err, tenantstore.ErrNotFound):
		return apierr.Newf(apierr.NotFound, "Tenant not found.")
	case errors.Is(err, tenantstore.ErrDuplicateDomain):
		return apierr.Newf(apierr.Conflict, "A tenant with this domain already exists.")
	}
	return err
}

func actorID(r *http.Request) primitive.ObjectID {
	if u, ok := auth.CurrentUser(r); ok {
		return u.UserObjectID()
	}
	return primitive.NilObjectID
}

// HandleCreate handles POST /api/tenants (platform admin).
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	tier, err := parseTier(req.SubscriptionTier)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	maxEmployees := plans.Resolve(string(tier)).Limit()
	if req.MaxEmployees != nil {
		maxEmployees = *req.MaxEmployees
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tenants.Store().Create(ctx, models.Tenant{
		Name:             req.Name,
		Domain:           req.Domain,
		SubscriptionTier: string(tier),
		MaxEmployees:     maxEmployees,
		IsActive:         true,
	})
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventTenantCreated, actorID(r), t.ID, primitive.NilObjectID, map[string]string{
		"name": t.Name, "domain": t.Domain, "tier": t.SubscriptionTier,
	})
	h.Log.Info("tenant created", zap.String("tenant_id", t.ID.Hex()), zap.String("domain", t.Domain))
	respond.Created(w, view(t))
}

// HandleUpdate handles PATCH /api/tenants/{id} (platform admin).
func (h *Handler) HandleUpdate(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req updateRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tenants.Update(ctx, id, tenantstore.Update{Name: req.Name, Domain: req.Domain})
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}
	h.AuditLog.Admin(ctx, r, audit.EventTenantUpdated, actorID(r), t.ID, primitive.NilObjectID, map[string]string{
		"name": t.Name, "domain": t.Domain,
	})
	respond.OK(w, view(t))
}

// HandleActivate handles POST /api/tenants/{id}/activate.
func (h *Handler) HandleActivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, true)
}

// HandleDeactivate handles POST /api/tenants/{id}/deactivate. Users of a
// deactivated tenant stay signed in but every request is refused.
func (h *Handler) HandleDeactivate(w http.ResponseWriter, r *http.Request) {
	h.setActive(w, r, false)
}

func (h *Handler) setActive(w http.ResponseWriter, r *http.Request, active bool) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Tenants.SetActive(ctx, id, active)
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}

	event := audit.EventTenantDeactivated
	if active {
		event = audit.EventTenantActivated
	}
	h.AuditLog.Admin(ctx, r, event, actorID(r), t.ID, primitive.NilObjectID, nil)
	h.Log.Info("tenant active flag changed",
		zap.String("tenant_id", t.ID.Hex()), zap.Bool("active", active))
	respond.OK(w, view(t))
}

// HandleSubscription handles PUT /api/tenants/{id}/subscription. The
// tenant's admins get a system_update notification.
func (h *Handler) HandleSubscription(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req subscriptionRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	tier, err := parseTier(req.Tier)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	maxEmployees := plans.Resolve(string(tier)).Limit()
	if req.MaxEmployees != nil {
		maxEmployees = *req.MaxEmployees
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, err := h.Gate.Tenant(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	t, err := h.Tenants.SetSubscription(ctx, id, string(tier), maxEmployees)
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventSubscriptionChanged, actorID(r), t.ID, primitive.NilObjectID, map[string]string{
		"from":          before.SubscriptionTier,
		"to":            t.SubscriptionTier,
		"max_employees": strconv.Itoa(t.MaxEmployees),
	})
	h.notifyAdmins(ctx, t, before.SubscriptionTier)

	respond.OK(w, view(t))
}

// notifyAdmins tells every tenant admin about a plan change. Failures are
// logged; the change itself has already been saved.
func (h *Handler) notifyAdmins(ctx context.Context, t models.Tenant, fromTier string) {
	if h.Notify == nil {
		return
	}
	ids, err := userstore.New(h.DB).IDsByRole(ctx, t.ID, authz.TenantAdmin)
	if err != nil {
		h.Log.Error("list tenant admins for notification", zap.String("tenant_id", t.ID.Hex()), zap.Error(err))
		return
	}
	resolved := plans.Resolve(t.SubscriptionTier)
	limit := "unlimited"
	if t.MaxEmployees >= 0 {
		limit = strconv.Itoa(t.MaxEmployees)
	}
	for _, uid := range ids {
		err := h.Notify.Notify(ctx, notify.Event{
			UserID:  uid,
			Type:    models.NotificationSystemUpdate,
			Title:   "Subscription updated",
			Message: fmt.Sprintf("%s is now on the %s plan (employee limit: %s).", t.Name, resolved.Tier, limit),
			Metadata: map[string]string{
				"tenant_id": t.ID.Hex(),
				"from_tier": fromTier,
				"to_tier":   string(resolved.Tier),
			},
		})
		if err != nil {
			h.Log.Warn("subscription notification not queued", zap.String("user_id", uid.Hex()), zap.Error(err))
		}
	}
}
