// internal/app/features/goals/manage.go
package goals

import (
	"context"
	"net/http"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	goalstore "github.com/dalemusser/perfhub/internal/app/store/goals"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.uber.org/zap"
)

type createRequest struct {
	Title       string     `json:"title" validate:"required,max=200"`
	Description string     `json:"description" validate:"max=4000"`
	Category    string     `json:"category" validate:"max=100"`
	Status      string     `json:"status" validate:"omitempty,oneof=not_started in_progress completed cancelled"`
	Progress    int        `json:"progress" validate:"min=0,max=100"`
	DueDate     *time.Time `json:"dueDate"`
}

type updateRequest struct {
	Title       *string    `json:"title" validate:"omitempty,min=1,max=200"`
	Description *string    `json:"description" validate:"omitempty,max=4000"`
	Category    *string    `json:"category" validate:"omitempty,max=100"`
	Status      *string    `json:"status" validate:"omitempty,oneof=not_started in_progress completed cancelled"`
	Progress    *int       `json:"progress" validate:"omitempty,min=0,max=100"`
	DueDate     *time.Time `json:"dueDate"`
}

func sanitized(s *string) *string {
	if s == nil {
		return nil
	}
	out := htmlsanitize.Text(*s)
	return &out
}

// HandleCreate handles POST /api/employees/{employeeId}/goals. A goal set by
// someone other than the employee notifies the employee.
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
	if err := h.Gate.AuthorizeEmployee(r, emp); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	u, _ := auth.CurrentUser(r)

	g, err := goalstore.New(h.DB).Create(ctx, emp, models.Goal{
		Title:       htmlsanitize.Text(req.Title),
		Description: htmlsanitize.Text(req.Description),
		Category:    htmlsanitize.Text(req.Category),
		Status:      req.Status,
		Progress:    req.Progress,
		DueDate:     req.DueDate,
		CreatedBy:   u.UserObjectID(),
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	if g.CreatedBy != emp.UserID && h.Notify != nil {
		err := h.Notify.Notify(ctx, notify.Event{
			UserID:  emp.UserID,
			Type:    models.NotificationGoalAssigned,
			Title:   "New goal assigned",
			Message: u.Name + " assigned you a goal: " + g.Title,
			Metadata: map[string]string{
				"goal_id":     g.ID.Hex(),
				"employee_id": emp.ID.Hex(),
			},
		})
		if err != nil {
			h.Log.Warn("goal notification not queued", zap.String("goal_id", g.ID.Hex()), zap.Error(err))
		}
	}

	respond.Created(w, g)
}

// HandleUpdate handles PATCH /api/goals/{id}.
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

	g, _, err := h.ownerOf(ctx, r, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	out, err := goalstore.New(h.DB).Update(ctx, g.ID, goalstore.Update{
		Title:       sanitized(req.Title),
		Description: sanitized(req.Description),
		Category:    sanitized(req.Category),
		Status:      req.Status,
		Progress:    req.Progress,
		DueDate:     req.DueDate,
	})
	if err != nil {
		respond.Error(w, r, h.Log, lookup.NotFound(err, goalstore.ErrNotFound, "Goal"))
		return
	}
	respond.OK(w, out)
}

// HandleDelete handles DELETE /api/goals/{id}.
func (h *Handler) HandleDelete(w http.ResponseWriter, r *http.Request) {
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	g, _, err := h.ownerOf(ctx, r, id)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if err := goalstore.New(h.DB).Delete(ctx, g.ID); err != nil {
		respond.Error(w, r, h.Log, lookup.NotFound(err, goalstore.ErrNotFound, "Goal"))
		return
	}
	respond.NoContent(w)
}
