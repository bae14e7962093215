// internal/app/features/goals/handler.go
package goals

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	goalstore "github.com/dalemusser/perfhub/internal/app/store/goals"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves goals. Employees manage their own goals; managers and
// above manage anyone's in their tenant.
type Handler struct {
	DB     *mongo.Database
	Gate   *gates.Gate
	Notify notify.Notifier
	Log    *zap.Logger
}

func NewHandler(db *mongo.Database, gate *gates.Gate, n notify.Notifier, logger *zap.Logger) *Handler {
	return &Handler{
		DB:     db,
		Gate:   gate,
		Notify: n,
		Log:    logger,
	}
}

// ownerOf loads a goal together with its employee and authorizes the caller
// against that employee.
func (h *Handler) ownerOf(ctx context.Context, r *http.Request, id primitive.ObjectID) (models.Goal, models.Employee, error) {
	g, err := goalstore.New(h.DB).GetByID(ctx, id)
	if err != nil {
		return models.Goal{}, models.Employee{}, lookup.NotFound(err, goalstore.ErrNotFound, "Goal")
	}
	emp, err := lookup.Employee(ctx, h.DB, g.EmployeeID)
	if err != nil {
		return models.Goal{}, models.Employee{}, err
	}
	if err := h.Gate.AuthorizeEmployee(r, emp); err != nil {
		return models.Goal{}, models.Employee{}, err
	}
	return g, emp, nil
}
