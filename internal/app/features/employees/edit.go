// internal/app/features/employees/edit.go
package employees

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
)

type updateRequest struct {
	FullName     *string             `json:"fullName" validate:"omitempty,min=1,max=200"`
	JobTitle     *string             `json:"jobTitle" validate:"omitempty,max=200"`
	Status       *string             `json:"status" validate:"omitempty,oneof=active inactive terminated"`
	Role         *string             `json:"role" validate:"omitempty,oneof=employee manager tenant_admin"`
	HireDate     *time.Time          `json:"hireDate"`
	ManagerID    inputval.NullableID `json:"managerId"`
	DepartmentID inputval.NullableID `json:"departmentId"`
}

// HandleUpdate handles PATCH /api/employees/{id} (tenant admin). Name and
// role changes are mirrored onto the employee's user.
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
	manager, err := req.ManagerID.Resolve("managerId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	department, err := req.DepartmentID.Resolve("departmentId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	emp, err := lookup.Employee(ctx, h.DB, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Gate.Authorize(r, emp.TenantID, authz.TenantAdmin); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.validateRefs(ctx, emp.TenantID, emp.ID, manager, department); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if req.FullName != nil || req.Role != nil {
		_, err := userstore.New(h.DB).Update(ctx, emp.TenantID, emp.UserID, userstore.Update{
			FullName: req.FullName,
			Role:     req.Role,
		})
		if err != nil {
			respond.Error(w, r, h.Log, refErr(err))
			return
		}
	}

	updated, err := employeestore.New(h.DB).Update(ctx, emp.TenantID, emp.ID, employeestore.Update{
		FullName:   req.FullName,
		JobTitle:   req.JobTitle,
		Status:     req.Status,
		HireDate:   req.HireDate,
		Manager:    employeestore.Ref{Set: req.ManagerID.Set, ID: manager},
		Department: employeestore.Ref{Set: req.DepartmentID.Set, ID: department},
	})
	if err != nil {
		respond.Error(w, r, h.Log, refErr(err))
		return
	}

	u, _ := auth.CurrentUser(r)
	details := map[string]string{"employee_id": emp.ID.Hex()}
	if req.Status != nil {
		details["status"] = *req.Status
	}
	if req.Role != nil {
		details["role"] = *req.Role
	}
	h.AuditLog.Admin(ctx, r, audit.EventEmployeeUpdated, u.UserObjectID(), emp.TenantID, emp.UserID, details)

	role := ""
	if req.Role != nil {
		role = *req.Role
	}
	respond.OK(w, present(u, updated, role))
}
