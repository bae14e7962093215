// internal/app/features/feedback/handler.go
package feedback

import (
	"context"

	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/app/system/ratelimit"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves feedback about employees, both from signed-in colleagues
// and from the public per-employee feedback link.
type Handler struct {
	DB       *mongo.Database
	Gate     *gates.Gate
	Limiter  *ratelimit.FeedbackLimiter
	Notify   notify.Notifier
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, limiter *ratelimit.FeedbackLimiter,
	n notify.Notifier, audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Gate:     gate,
		Limiter:  limiter,
		Notify:   n,
		AuditLog: audit,
		Log:      logger,
	}
}

type submitRequest struct {
	Content     string `json:"content" validate:"required,max=5000"`
	Type        string `json:"type" validate:"omitempty,oneof=positive constructive general"`
	Rating      int    `json:"rating" validate:"min=0,max=5"`
	IsAnonymous bool   `json:"isAnonymous"`
	GiverName   string `json:"giverName" validate:"max=100"`
}

// notifyReceived tells the employee about new feedback.
func (h *Handler) notifyReceived(ctx context.Context, emp models.Employee, f models.Feedback) {
	if h.Notify == nil {
		return
	}
	from := "Someone"
	if f.GiverName != "" {
		from = f.GiverName
	}
	err := h.Notify.Notify(ctx, notify.Event{
		UserID:  emp.UserID,
		Type:    models.NotificationFeedbackReceived,
		Title:   "New feedback received",
		Message: from + " left you " + f.Kind + " feedback.",
		Metadata: map[string]string{
			"feedback_id": f.ID.Hex(),
			"employee_id": emp.ID.Hex(),
			"source":      f.Source,
		},
	})
	if err != nil {
		h.Log.Warn("feedback notification not queued", zap.String("feedback_id", f.ID.Hex()), zap.Error(err))
	}
}
