// internal/app/features/reviews/handler.go
package reviews

import (
	"context"
	"fmt"

	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves performance reviews. Managers write them, employees read
// their own, tenant admins may delete them.
type Handler struct {
	DB       *mongo.Database
	Gate     *gates.Gate
	Notify   notify.Notifier
	AuditLog *auditlog.Logger
	Log      *zap.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, n notify.Notifier,
	audit *auditlog.Logger, logger *zap.Logger) *Handler {
	return &Handler{
		DB:       db,
		Gate:     gate,
		Notify:   n,
		AuditLog: audit,
		Log:      logger,
	}
}

// notifySubmitted tells the employee that a review left draft.
func (h *Handler) notifySubmitted(ctx context.Context, emp models.Employee, rv models.PerformanceReview) {
	if h.Notify == nil {
		return
	}
	err := h.Notify.Notify(ctx, notify.Event{
		UserID:  emp.UserID,
		Type:    models.NotificationPerformanceReview,
		Title:   "Performance review available",
		Message: fmt.Sprintf("Your %s performance review is %s.", rv.Period, rv.Status),
		Metadata: map[string]string{
			"review_id":   rv.ID.Hex(),
			"employee_id": emp.ID.Hex(),
			"period":      rv.Period,
		},
	})
	if err != nil {
		h.Log.Warn("review notification not queued", zap.String("review_id", rv.ID.Hex()), zap.Error(err))
	}
}
