// internal/app/features/employees/list.go
package employees

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /api/employees.
// Query: ?tenant_id (platform admin), ?department_id, ?manager_id, ?status, ?q, ?limit, ?after.
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

	f := employeestore.ListFilter{TenantID: tenantID, Search: query.Get(r, "q")}
	if s := query.Get(r, "status"); s != "" {
		if !models.IsValidEmployeeStatus(s) {
			respond.Error(w, r, h.Log, apierr.Newf(apierr.InvalidParameterFormat, "status must be active, inactive or terminated."))
			return
		}
		f.Status = s
	}
	if s := query.Get(r, "department_id"); s != "" {
		id, err := inputval.ObjectID("department_id", s)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		f.DepartmentID = &id
	}
	if s := query.Get(r, "manager_id"); s != "" {
		id, err := inputval.ObjectID("manager_id", s)
		if err != nil {
			respond.Error(w, r, h.Log, err)
			return
		}
		f.ManagerID = &id
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	page, err := employeestore.New(h.DB).List(ctx, f, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	u, _ := auth.CurrentUser(r)
	out := paging.Page[employeeView]{Items: make([]employeeView, 0, len(page.Items)), NextCursor: page.NextCursor}
	for _, e := range page.Items {
		out.Items = append(out.Items, present(u, e, ""))
	}
	respond.OK(w, out)
}

// ServeGet handles GET /api/employees/{id}.
func (h *Handler) ServeGet(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	emp, err := lookup.Employee(ctx, h.DB, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Gate.Authorize(r, emp.TenantID, authz.Employee); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	role := ""
	if usr, err := userstore.New(h.DB).GetByID(ctx, emp.UserID); err == nil {
		role = usr.Role
	}
	u, _ := auth.CurrentUser(r)
	respond.OK(w, present(u, emp, role))
}
