// internal/app/features/tenants/list.go
package tenants

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/app/system/search"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// tenantView is a tenant plus its resolved plan.
type tenantView struct {
	models.Tenant
	Plan plans.Features `json:"plan"`
}

func view(t models.Tenant) tenantView {
	return tenantView{Tenant: t, Plan: plans.Resolve(t.SubscriptionTier)}
}

// ServeList handles GET /api/tenants (platform admin).
// Query: ?active=true|false, ?q=<name prefix>, ?limit, ?after.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	p, err := paging.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	filter := bson.M{}
	switch query.Get(r, "active") {
	case "":
	case "true":
		filter["is_active"] = true
	case "false":
		filter["is_active"] = false
	default:
		respond.Error(w, r, h.Log, apierr.Newf(apierr.InvalidParameterFormat, "active must be true or false."))
		return
	}
	q := search.Parse(query.Get(r, "q"), "", "name_ci", "")

	find := options.Find()
	cond, err := p.ByName(find, "name_ci")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	rows, err := h.Tenants.Store().Find(ctx, paging.And(filter, q.Filter(), cond), find)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	page := paging.TrimByName(rows, p,
		func(t models.Tenant) string { return t.NameCI },
		func(t models.Tenant) primitive.ObjectID { return t.ID })
	respond.OK(w, page)
}

// ServeGet handles GET /api/tenants/{id}. Tenant users may read their own
// tenant; platform admins any tenant.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Gate.Authorize(r, id, authz.Employee); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	t, err := h.Gate.Tenant(r.Context(), id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, view(t))
}
