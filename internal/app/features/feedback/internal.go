// internal/app/features/feedback/internal.go
package feedback

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	feedbackstore "github.com/dalemusser/perfhub/internal/app/store/feedback"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
)

// ServeList handles GET /api/employees/{employeeId}/feedback.
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

	page, err := feedbackstore.New(h.DB).ListByEmployee(ctx, emp.ID, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, page)
}

// HandleCreate handles POST /api/employees/{employeeId}/feedback. Any member
// of the employee's tenant may give feedback.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	empID, err := respond.PathID(r, "employeeId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req submitRequest
	if err := inputval.Decode(r, &req); err != nil {
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
	if err := h.Gate.Authorize(r, emp.TenantID, authz.Employee); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	giver := u.UserObjectID()

	f, err := feedbackstore.New(h.DB).Create(ctx, emp, models.Feedback{
		GiverUserID: &giver,
		GiverName:   u.Name,
		IsAnonymous: req.IsAnonymous,
		Kind:        req.Type,
		Content:     htmlsanitize.Text(req.Content),
		Rating:      req.Rating,
		Source:      models.FeedbackInternal,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if giver != emp.UserID {
		h.notifyReceived(ctx, emp, f)
	}
	respond.Created(w, f)
}
