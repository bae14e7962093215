// internal/app/features/employees/bulk.go
package employees

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// bulkStatusRequest accepts at most 500 ids per call.
type bulkStatusRequest struct {
	EmployeeIDs []string `json:"employeeIds" validate:"required,min=1,max=500,dive,objectid"`
	Status      string   `json:"status" validate:"required,oneof=active inactive terminated"`
}

// HandleBulkStatus handles POST /api/employees/bulk-status. It needs the
// bulkEmployeeOperations feature. Ids outside the tenant are ignored.
func (h *Handler) HandleBulkStatus(w http.ResponseWriter, r *http.Request) {
	var req bulkStatusRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	tenantID, err := h.Gate.Scope(r, query.Get(r, "tenant_id"), authz.TenantAdmin)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if _, err := h.Gate.RequireFeature(r, tenantID, plans.BulkEmployeeOperations); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ids := make([]primitive.ObjectID, 0, len(req.EmployeeIDs))
	seen := make(map[primitive.ObjectID]bool, len(req.EmployeeIDs))
	for _, s := range req.EmployeeIDs {
		id, _ := primitive.ObjectIDFromHex(s)
		if !seen[id] {
			seen[id] = true
			ids = append(ids, id)
		}
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Medium())
	defer cancel()

	n, err := employeestore.New(h.DB).SetStatusMany(ctx, tenantID, ids, req.Status)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	u, _ := auth.CurrentUser(r)
	h.AuditLog.Admin(ctx, r, audit.EventEmployeeBulkStatus, u.UserObjectID(), tenantID, primitive.NilObjectID, map[string]string{
		"status":    req.Status,
		"requested": strconv.Itoa(len(ids)),
		"updated":   strconv.FormatInt(n, 10),
	})

	respond.OK(w, map[string]any{"updated": n, "requested": len(ids)})
}
