// internal/app/features/subscription/handler.go
package subscription

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the feature-info endpoint the front end uses to show or
// hide gated features. The server still enforces every gate itself.
type Handler struct {
	DB   *mongo.Database
	Gate *gates.Gate
	Log  *zap.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Gate: gate, Log: logger}
}

type usage struct {
	Employees    int64 `json:"employees"`
	MaxEmployees *int  `json:"maxEmployees"`
	// Remaining is nil when the plan is unlimited.
	Remaining *int64 `json:"remaining"`
}

type response struct {
	TenantID    string         `json:"tenantId"`
	TenantName  string         `json:"tenantName"`
	StoredTier  string         `json:"storedTier"`
	Plan        plans.Features `json:"plan"`
	Usage       usage          `json:"usage"`
	Tiers       []plans.Tier   `json:"availableTiers"`
	UpgradeHint *plans.Tier    `json:"upgradeHint,omitempty"`
}

// ServeInfo handles GET /api/subscription. Platform admins pass ?tenant_id=.
func (h *Handler) ServeInfo(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.Gate.Scope(r, query.Get(r, "tenant_id"), authz.Employee)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	t, err := h.Gate.Tenant(ctx, tenantID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	count, err := employeestore.New(h.DB).CountInTenant(ctx, tenantID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	plan := plans.Resolve(t.SubscriptionTier)
	u := usage{Employees: count}
	// The tenant's stored cap wins over the plan default.
	if !t.Unlimited() {
		maxEmployees := t.MaxEmployees
		remaining := int64(maxEmployees) - count
		if remaining < 0 {
			remaining = 0
		}
		u.MaxEmployees = &maxEmployees
		u.Remaining = &remaining
	}

	respond.OK(w, response{
		TenantID:    t.ID.Hex(),
		TenantName:  t.Name,
		StoredTier:  t.SubscriptionTier,
		Plan:        plan,
		Usage:       u,
		Tiers:       plans.Tiers(),
		UpgradeHint: nextTier(plan.Tier),
	})
}

// nextTier returns the next ordered tier, or nil at the top and for flat tiers.
func nextTier(t plans.Tier) *plans.Tier {
	rank := plans.Rank(t)
	if rank == 0 {
		return nil
	}
	for _, c := range plans.Tiers() {
		if plans.Rank(c) == rank+1 {
			return &c
		}
	}
	return nil
}
