// internal/app/features/employees/create.go
package employees

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	departmentstore "github.com/dalemusser/perfhub/internal/app/store/departments"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type createRequest struct {
	FullName     string     `json:"fullName" validate:"required,max=200"`
	Email        string     `json:"email" validate:"required,email"`
	Role         string     `json:"role" validate:"omitempty,oneof=employee manager tenant_admin"`
	JobTitle     string     `json:"jobTitle" validate:"max=200"`
	Status       string     `json:"status" validate:"omitempty,oneof=active inactive terminated"`
	ManagerID    *string    `json:"managerId" validate:"omitempty,objectid"`
	DepartmentID *string    `json:"departmentId" validate:"omitempty,objectid"`
	HireDate     *time.Time `json:"hireDate"`
}

// validateRefs checks that manager and department live in tenantID.
// employeeID is zero for a new employee.
func (h *Handler) validateRefs(ctx context.Context, tenantID, employeeID primitive.ObjectID, manager, department *primitive.ObjectID) error {
	if manager != nil {
		if err := employeestore.New(h.DB).ValidateManager(ctx, tenantID, employeeID, *manager); err != nil {
			return refErr(err)
		}
	}
	if department != nil {
		if _, err := departmentstore.New(h.DB).InTenant(ctx, tenantID, *department); err != nil {
			return refErr(err)
		}
	}
	return nil
}

// HandleCreate handles POST /api/employees (tenant admin).
//
// A seat is reserved atomically before anything is written, so concurrent
// creates cannot exceed the tenant's cap. Every later failure gives the
// seat back and removes the user created for it.
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
	manager, _ := inputval.OptionalObjectID("managerId", req.ManagerID)
	department, _ := inputval.OptionalObjectID("departmentId", req.DepartmentID)
	role := req.Role
	if role == "" {
		role = authz.Employee.String()
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	if _, err := h.Gate.Tenant(ctx, tenantID); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.validateRefs(ctx, tenantID, primitive.NilObjectID, manager, department); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	seats := h.Tenants.Store()
	if _, err := seats.ReserveEmployeeSlot(ctx, tenantID); err != nil {
		if errors.Is(err, tenantstore.ErrLimitExceeded) {
			t, gerr := seats.GetByID(ctx, tenantID)
			if gerr != nil {
				respond.Error(w, r, h.Log, gerr)
				return
			}
			respond.Error(w, r, h.Log, h.Gate.LimitExceeded(r, t))
			return
		}
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Tenants.Invalidate(tenantID)

	emp, err := h.createRecords(ctx, tenantID, req, role, manager, department)
	if err != nil {
		// Cleanup must run even when the request context is gone.
		cctx, ccancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		defer ccancel()
		if rerr := seats.ReleaseEmployeeSlot(cctx, tenantID); rerr != nil {
			h.Log.Error("release employee slot", zap.String("tenant_id", tenantID.Hex()), zap.Error(rerr))
		}
		h.Tenants.Invalidate(tenantID)
		respond.Error(w, r, h.Log, refErr(err))
		return
	}

	actor := primitive.NilObjectID
	u, _ := auth.CurrentUser(r)
	if u != nil {
		actor = u.UserObjectID()
	}
	h.AuditLog.Admin(ctx, r, audit.EventEmployeeCreated, actor, tenantID, emp.UserID, map[string]string{
		"employee_id": emp.ID.Hex(),
		"role":        role,
	})
	h.Log.Info("employee created",
		zap.String("tenant_id", tenantID.Hex()),
		zap.String("employee_id", emp.ID.Hex()))

	respond.Created(w, present(u, emp, role))
}

// createRecords inserts the user and then the employee, removing the user
// again if the employee insert fails.
func (h *Handler) createRecords(ctx context.Context, tenantID primitive.ObjectID, req createRequest,
	role string, manager, department *primitive.ObjectID) (models.Employee, error) {
	users := userstore.New(h.DB)
	usr, err := users.Create(ctx, models.User{
		Email:    req.Email,
		FullName: req.FullName,
		Role:     role,
		TenantID: &tenantID,
	})
	if err != nil {
		return models.Employee{}, err
	}

	emp, err := employeestore.New(h.DB).Create(ctx, models.Employee{
		UserID:       usr.ID,
		TenantID:     tenantID,
		ManagerID:    manager,
		DepartmentID: department,
		FullName:     usr.FullName,
		Email:        usr.Email,
		JobTitle:     req.JobTitle,
		Status:       req.Status,
		HireDate:     req.HireDate,
	})
	if err != nil {
		cctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), timeouts.Short())
		defer cancel()
		if derr := users.Delete(cctx, tenantID, usr.ID); derr != nil {
			h.Log.Error("remove user after failed employee insert",
				zap.String("user_id", usr.ID.Hex()), zap.Error(derr))
		}
		return models.Employee{}, err
	}
	return emp, nil
}
