// internal/app/features/departments/list.go
package departments

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	departmentstore "github.com/dalemusser/perfhub/internal/app/store/departments"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/departments.
// Query: ?tenant_id (platform admin), ?parent_id, ?limit, ?after.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	tenantID, err := h.Gate.Scope(r, query.Get(r, "tenant_id"), authz.Employee)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p, err := paging.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var parent *primitive.ObjectID
	if s := query.Get(r, "parent_id"); s != "" {
		id, err := inputval.ObjectID("parent_id", s)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		parent = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	page, err := departmentstore.New(h.DB).List(ctx, tenantID, parent, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, page)
}

// ServeGet handles GET /api/departments/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := departmentstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}
	if err := h.Gate.Authorize(r, d.TenantID, authz.Employee); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, d)
}
