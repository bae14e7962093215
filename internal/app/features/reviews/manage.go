// internal/app/features/reviews/manage.go
package reviews

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/store/audit"
	reviewstore "github.com/dalemusser/perfhub/internal/app/store/reviews"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type createRequest struct {
	Period        string `json:"period" validate:"required,max=50"`
	Status        string `json:"status" validate:"omitempty,oneof=draft submitted completed"`
	OverallRating int    `json:"overallRating" validate:"min=0,max=5"`
	Strengths     string `json:"strengths" validate:"max=5000"`
	Improvements  string `json:"improvements" validate:"max=5000"`
	Comments      string `json:"comments" validate:"max=5000"`
}

type updateRequest struct {
	Status        *string `json:"status" validate:"omitempty,oneof=draft submitted completed"`
	OverallRating *int    `json:"overallRating" validate:"omitempty,min=1,max=5"`
	Strengths     *string `json:"strengths" validate:"omitempty,max=5000"`
	Improvements  *string `json:"improvements" validate:"omitempty,max=5000"`
	Comments      *string `json:"comments" validate:"omitempty,max=5000"`
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	out := htmlsanitize.Text(*s)
	return &out
}

// load fetches a review and its employee, and checks the caller holds role
// in the employee's tenant.
func (h *Handler) load(ctx context.Context, r *http.Request, id primitive.ObjectID, role authz.Role) (models.PerformanceReview, models.Employee, error) {
	rv, err := reviewstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return models.PerformanceReview{}, models.Employee{}, lookup.NotFound(err, reviewstore.ErrNotFound, "Review")
	}
	emp, err := lookup.Employee(ctx, h.DB, rv.EmployeeID)
	if err != nil {
		return models.PerformanceReview{}, models.Employee{}, err
	}
	if err := h.Gate.Authorize(r, emp.TenantID, role); err != nil {
		return models.PerformanceReview{}, models.Employee{}, err
	}
	return rv, emp, nil
}

// HandleCreate handles POST /api/employees/{employeeId}/reviews (manager).
// Nobody reviews themself.
func (h *Handler) HandleCreate(w http.ResponseWriter, r *http.Request) {
	empID, err := respond.PathID(r, "employeeId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req createRequest
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
	if err := h.Gate.Authorize(r, emp.TenantID, authz.Manager); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)
	if u.UserObjectID() == emp.UserID {
		respond.Error(w, r, h.Log, apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{
			"employeeId": "you cannot review yourself",
		}))
		return
	}

	rv, err := reviewstore.New(h.DB).Create(ctx, emp, models.PerformanceReview{
		ReviewerUserID: u.UserObjectID(),
		Period:         htmlsanitize.Text(req.Period),
		Status:         req.Status,
		OverallRating:  req.OverallRating,
		Strengths:      htmlsanitize.Text(req.Strengths),
		Improvements:   htmlsanitize.Text(req.Improvements),
		Comments:       htmlsanitize.Text(req.Comments),
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if rv.Status != models.ReviewDraft {
		h.notifySubmitted(ctx, emp, rv)
	}
	respond.Created(w, rv)
}

// HandleUpdate handles PATCH /api/reviews/{id} (manager). The employee is
// notified when the review leaves draft.
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

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	before, emp, err := h.load(ctx, r, id, authz.Manager)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	rv, err := reviewstore.New(h.DB).Update(ctx, before.ID, reviewstore.Update{
		Status:        req.Status,
		OverallRating: req.OverallRating,
		Strengths:     sanitized(req.Strengths),
		Improvements:  sanitized(req.Improvements),
		Comments:      sanitized(req.Comments),
	})
	if err != nil {
		respond.Error(w, r, h.Log, lookup.NotFound(err, reviewstore.ErrNotFound, "Review"))
		return
	}
	if before.Status == models.ReviewDraft && rv.Status != models.ReviewDraft {
		h.notifySubmitted(ctx, emp, rv)
	}
	respond.OK(w, rv)
}

// HandleDelete handles DELETE /api/reviews/{id} (tenant admin).
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	rv, emp, err := h.load(ctx, r, id, authz.TenantAdmin)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := reviewstore.New(h.DB).Delete(ctx, rv.ID); err != nil {
		respond.Error(w, r, h.Log, lookup.NotFound(err, reviewstore.ErrNotFound, "Review"))
		return
	}

	actor := primitive.NilObjectID
	if u, ok := auth.CurrentUser(r); ok {
		actor = u.UserObjectID()
	}
	h.AuditLog.Admin(ctx, r, audit.EventReviewDeleted, actor, emp.TenantID, emp.UserID, map[string]string{
		"review_id": rv.ID.Hex(),
		"period":    rv.Period,
	})
	respond.NoContent(w)
}
