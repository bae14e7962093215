// internal/app/features/employees/delete.go
package employees

import (
	"context"
	"errors"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	feedbackstore "github.com/dalemusser/perfhub/internal/app/store/feedback"
	goalstore "github.com/dalemusser/perfhub/internal/app/store/goals"
	notificationstore "github.com/dalemusser/perfhub/internal/app/store/notifications"
	preferencestore "github.com/dalemusser/perfhub/internal/app/store/preferences"
	reviewstore "github.com/dalemusser/perfhub/internal/app/store/reviews"
	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/app/system/txn"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.uber.org/zap"
)

// HandleDelete handles DELETE /api/employees/{id} (tenant admin). The
// employee's goals, feedback, reviews, notifications, preferences and user
// are removed with it, and its seat is released.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
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

	// The employee row goes first: a failure there leaves nothing behind
	// when the deployment has no transactions and fn is retried.
	err = txn.Run(ctx, h.DB.Client(), h.Log, func(ctx context.Context) error {
		return h.cascade(ctx, emp)
	})
	if err != nil {
		respond.Error(w, r, h.Log, refErr(err))
		return
	}

	if err := h.Tenants.Store().ReleaseEmployeeSlot(ctx, emp.TenantID); err != nil {
		h.Log.Error("release employee slot", zap.String("tenant_id", emp.TenantID.Hex()), zap.Error(err))
	}
	h.Tenants.Invalidate(emp.TenantID)

	u, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, audit.EventEmployeeDeleted, u.UserObjectID(), emp.TenantID, emp.UserID, map[string]string{
		"employee_id": emp.ID.Hex(),
		"full_name":   emp.FullName,
	})
	h.Log.Info("employee deleted",
		zap.String("tenant_id", emp.TenantID.Hex()),
		zap.String("employee_id", emp.ID.Hex()))

	respond.NoContent(w)
}

func (h *Handler) cascade(ctx context.Context, emp models.Employee) error {
	if err := employeestore.New(h.DB).Delete(ctx, emp.TenantID, emp.ID); err != nil {
		return err
	}
	if _, err := goalstore.New(h.DB).DeleteByEmployee(ctx, emp.ID); err != nil {
		return err
	}
	if _, err := feedbackstore.New(h.DB).DeleteByEmployee(ctx, emp.ID); err != nil {
		return err
	}
	if _, err := reviewstore.New(h.DB).DeleteByEmployee(ctx, emp.ID); err != nil {
		return err
	}
	if err := notificationstore.New(h.DB).DeleteByUser(ctx, emp.UserID); err != nil {
		return err
	}
	if err := preferencestore.New(h.DB).Delete(ctx, emp.UserID); err != nil {
		return err
	}
	if err := userstore.New(h.DB).Delete(ctx, emp.TenantID, emp.UserID); err != nil && !errors.Is(err, userstore.ErrNotFound) {
		return err
	}
	return nil
}
