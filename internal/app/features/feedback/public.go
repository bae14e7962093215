// internal/app/features/feedback/public.go
package feedback

import (
	"context"
	"errors"
	"math"
	"net/http"
	"strconv"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	employeestore "github.com/dalemusser/perfhub/internal/app/store/employees"
	feedbackstore "github.com/dalemusser/perfhub/internal/app/store/feedback"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/htmlsanitize"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/go-chi/chi/v5"
	"go.uber.org/zap"
)

// linkNotFound hides whether a token is unknown or belongs to an inactive
// employee or tenant.
func linkNotFound() error {
	return apierr.Newf(apierr.NotFound, "Feedback link not found.")
}

// resolveLink maps a public token to an employee that can receive feedback.
func (h *Handler) resolveLink(ctx context.Context, token string) (models.Employee, models.Tenant, error) {
	emp, err := employeestore.New(h.DB).GetByFeedbackToken(ctx, token)
	if err != nil {
		if errors.Is(err, employeestore.ErrNotFound) {
			return models.Employee{}, models.Tenant{}, linkNotFound()
		}
		return models.Employee{}, models.Tenant{}, err
	}
	if emp.Status != models.EmployeeActive {
		return models.Employee{}, models.Tenant{}, linkNotFound()
	}
	t, err := h.Gate.Tenant(ctx, emp.TenantID)
	if err != nil {
		if apierr.As(err).Code == apierr.NotFound {
			return models.Employee{}, models.Tenant{}, linkNotFound()
		}
		return models.Employee{}, models.Tenant{}, err
	}
	if !t.IsActive {
		return models.Employee{}, models.Tenant{}, linkNotFound()
	}
	return emp, t, nil
}

// ServePublic handles GET /api/public/feedback/{token}. It only reveals what
// the feedback form needs to show.
func (h *Handler) ServePublic(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	emp, t, err := h.resolveLink(ctx, chi.URLParam(r, "token"))
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]string{
		"employeeName": emp.FullName,
		"jobTitle":     emp.JobTitle,
		"tenantName":   t.Name,
	})
}

// HandlePublicSubmit handles POST /api/public/feedback/{token}. The rate
// limit is counted before the token is looked up, so guessing tokens costs
// budget too.
func (h *Handler) HandlePublicSubmit(w http.ResponseWriter, r *http.Request) {
	token := chi.URLParam(r, "token")
	if h.Limiter != nil {
		if ok, wait := h.Limiter.Check(r, token); !ok {
			secs := int(math.Ceil(wait.Seconds()))
			if secs < 1 {
				secs = 1
			}
			w.Header().Set("Retry-After", strconv.Itoa(secs))
			h.AuditLog.FeedbackThrottled(r.Context(), r, token)
			respond.Error(w, r, h.Log, apierr.New(apierr.RateLimited))
			return
		}
	}

	var req submitRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	emp, _, err := h.resolveLink(ctx, token)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	f, err := feedbackstore.New(h.DB).Create(ctx, emp, models.Feedback{
		GiverName:   htmlsanitize.Text(req.GiverName),
		IsAnonymous: req.IsAnonymous || req.GiverName == "",
		Kind:        req.Type,
		Content:     htmlsanitize.Text(req.Content),
		Rating:      req.Rating,
		Source:      models.FeedbackPublicLink,
	})
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	h.Log.Info("public feedback received",
		zap.String("tenant_id", emp.TenantID.Hex()),
		zap.String("employee_id", emp.ID.Hex()))

	h.notifyReceived(ctx, emp, f)
	respond.Created(w, map[string]string{"id": f.ID.Hex()})
}
