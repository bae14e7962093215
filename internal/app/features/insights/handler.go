// internal/app/features/insights/handler.go
package insights

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	feedbackstore "github.com/dalemusser/perfhub/internal/app/store/feedback"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/insights"
	"github.com/dalemusser/perfhub/internal/app/system/limits"
	"github.com/dalemusser/perfhub/internal/app/system/plans"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Analyzer scores feedback texts; *insights.Analyzer implements it.
type Analyzer interface {
	Analyze(ctx context.Context, texts []string) (insights.Scores, error)
}

// Handler serves behavioral insights computed from an employee's feedback.
type Handler struct {
	DB       *mongo.Database
	Gate     *gates.Gate
	Analyzer Analyzer
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, analyzer Analyzer, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Gate:     gate,
		Analyzer: analyzer,
		Log:      logger,
	}
}

type insightsResponse struct {
	EmployeeID    string          `json:"employeeId"`
	FeedbackCount int             `json:"feedbackCount"`
	Scores        insights.Scores `json:"scores"`
	GeneratedAt   time.Time       `json:"generatedAt"`
}

// ServeInsights handles GET /api/employees/{employeeId}/insights (manager,
// advancedAnalytics). Provider failures degrade to PROVIDER_UNAVAILABLE.
func (h *Handler) ServeInsights(w http.ResponseWriter, r *http.Request) {
	empID, err := respond.PathID(r, "employeeId")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Long())
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
	if _, err := h.Gate.RequireFeature(r, emp.TenantID, plans.AdvancedAnalytics); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	texts, err := feedbackstore.New(h.DB).RecentContent(ctx, emp.ID, limits.InsightFeedback)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	if len(texts) == 0 {
		respond.Error(w, r, h.Log, apierr.Newf(apierr.NotFound, "No feedback to analyze yet."))
		return
	}
	if h.Analyzer == nil {
		respond.Error(w, r, h.Log, apierr.New(apierr.ProviderUnavailable))
		return
	}

	scores, err := h.Analyzer.Analyze(ctx, texts)
	switch {
	case err == nil:
	case errors.Is(err, insights.ErrNoInput):
		respond.Error(w, r, h.Log, apierr.Newf(apierr.NotFound, "No feedback to analyze yet."))
		return
	case errors.Is(err, insights.ErrAnalysisUnavailable):
		respond.Error(w, r, h.Log, apierr.Wrap(apierr.ProviderUnavailable, err))
		return
	default:
		respond.Error(w, r, h.Log, err)
		return
	}

	respond.OK(w, insightsResponse{
		EmployeeID:    emp.ID.Hex(),
		FeedbackCount: len(texts),
		Scores:        scores,
		GeneratedAt:   time.Now().UTC(),
	})
}
