// internal/app/features/departments/manage.go
package departments

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	departmentstore "github.com/dalemusser/perfhub/internal/app/store/departments"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	Name               string  `json:"name" validate:"required,max=200"`
	Description        string  `json:"description" validate:"max=2000"`
	ParentDepartmentID *string `json:"parentDepartmentId" validate:"omitempty,objectid"`
}

type updateRequest struct {
	Name               *string             `json:"name" validate:"omitempty,min=1,max=200"`
	Description        *string             `json:"description" validate:"omitempty,max=2000"`
	ParentDepartmentID inputval.NullableID `json:"parentDepartmentId"`
}

// loadForChange fetches a department and checks tenant admin access and the
// departmentManagement feature for its tenant.
func (h *Handler) loadForChange(ctx context.Context, r *http.Request, id primitive.ObjectID) (models.Department, error) {
	d, err := departmentstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return models.Department{}, storeErr(err)
	}
	if err := h.Gate.Authorize(r, d.TenantID, authz.TenantAdmin); err != nil {
		return models.Department{}, err
	}
	if _, err := h.Gate.RequireFeature(r, d.TenantID, plans.DepartmentManagement); err != nil {
		return models.Department{}, err
	}
	return d, nil
}

// HandleCreate handles POST /api/departments.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	var req createRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	tenantID, err := h.Gate.Scope(r, query.Get(r, "tenant_id"), authz.TenantAdmin)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	parent, _ := inputval.OptionalObjectID("parentDepartmentId", req.ParentDepartmentID)

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	if _, err := h.Gate.RequireFeature(r, tenantID, plans.DepartmentManagement); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	store := departmentstore.New(h.DB)
	if parent != nil {
		if err := store.ValidateParent(ctx, tenantID, primitive.NilObjectID, *parent); err != nil {
			respond.Error(w, r, h.Log, storeErr(err))
			return
		}
	}

	d, err := store.Create(ctx, models.Department{
		TenantID:           tenantID,
		Name:               htmlsanitize.Text(req.Name),
		Description:        htmlsanitize.Text(req.Description),
		ParentDepartmentID: parent,
	})
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentCreated, actorID(r), tenantID, primitive.NilObjectID, map[string]string{
		"department_id": d.ID.Hex(),
		"name":          d.Name,
	})
	respond.Created(w, d)
}

// HandleUpdate handles PATCH /api/departments/{id}. A null parent moves the
// department to the top level.
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
	parent, err := req.ParentDepartmentID.Resolve("parentDepartmentId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.loadForChange(ctx, r, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	store := departmentstore.New(h.DB)
	if parent != nil {
		if err := store.ValidateParent(ctx, d.TenantID, d.ID, *parent); err != nil {
			respond.Error(w, r, h.Log, storeErr(err))
			return
		}
	}

	upd := departmentstore.Update{SetParent: req.ParentDepartmentID.Set, Parent: parent}
	if req.Name != nil {
		s := htmlsanitize.Text(*req.Name)
		upd.Name = &s
	}
	if req.Description != nil {
		s := htmlsanitize.Text(*req.Description)
		upd.Description = &s
	}
	out, err := store.Update(ctx, d.TenantID, d.ID, upd)
	if err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}
	respond.OK(w, out)
}

// HandleDelete handles DELETE /api/departments/{id}. Departments that still
// have employees or sub-departments are kept.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	d, err := h.loadForChange(ctx, r, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	n, err := employeestore.New(h.DB).CountInDepartment(ctx, d.ID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if n > 0 {
		respond.Error(w, r, h.Log, apierr.Newf(apierr.Conflict, "Department still has %d employee(s).", n))
		return
	}
	if err := departmentstore.New(h.DB).Delete(ctx, d.TenantID, d.ID); err != nil {
		respond.Error(w, r, h.Log, storeErr(err))
		return
	}

	h.AuditLog.Admin(ctx, r, audit.EventDepartmentDeleted, actorID(r), d.TenantID, primitive.NilObjectID, map[string]string{
		"department_id": d.ID.Hex(),
		"name":          d.Name,
	})
	h.Log.Info("department deleted",
		zap.String("tenant_id", d.TenantID.Hex()),
		zap.String("department_id", d.ID.Hex()))
	respond.NoContent(w)
}
