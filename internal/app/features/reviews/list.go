// internal/app/features/reviews/list.go
package reviews

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	reviewstore "github.com/dalemusser/perfhub/internal/app/store/reviews"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
)

// ServeList handles GET /api/employees/{employeeId}/reviews.
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

	page, err := reviewstore.New(h.DB).ListByEmployee(ctx, emp.ID, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, page)
}
