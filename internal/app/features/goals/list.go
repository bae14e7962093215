// internal/app/features/goals/list.go
package goals

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	goalstore "github.com/dalemusser/perfhub/internal/app/store/goals"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/waffle/pantry/query"
)

// ServeList handles GET /api/employees/{employeeId}/goals.
// Query: ?status, ?limit, ?after.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	empID, err := respond.PathID(r, "employeeId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	p, err := paging.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	status := query.Get(r, "status")
	if status != "" && !goalstore.IsValidStatus(status) {
		respond.Error(w, r, h.Log, apierr.Newf(apierr.InvalidParameterFormat,
			"status must be not_started, in_progress, completed or cancelled."))
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	emp, err := lookup.Employee(ctx, h.DB, empID)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := h.Gate.AuthorizeEmployee(r, emp); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	page, err := goalstore.New(h.DB).ListByEmployee(ctx, emp.ID, status, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, page)
}
