// internal/app/system/workers/jobs.go
package workers

import (
	"context"
	"fmt"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// ArchivePurger deletes archived notifications.
type ArchivePurger interface {
	DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

// NotificationCleanup removes archived notifications older than retention.
func NotificationCleanup(store ArchivePurger, retention time.Duration, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		n, err := store.DeleteArchivedBefore(ctx, time.Now().UTC().Add(-retention))
		if err != nil {
			return fmt.Errorf("purge archived notifications: %w", err)
		}
		if n > 0 {
			logger.Info("purged archived notifications", zap.Int64("count", n))
		}
		return nil
	}
}

// DueGoals finds open goals due in a window.
type DueGoals interface {
	DueBetween(ctx context.Context, from, to time.Time) ([]models.Goal, error)
}

// EmployeeLookup resolves the user behind an employee.
type EmployeeLookup interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.Employee, error)
}

// Notifier queues a notification.
type Notifier interface {
	Notify(ctx context.Context, e notify.Event) error
}

// GoalReminders notifies owners of goals due between lead and lead+interval
// from now. Running it every interval reminds each goal exactly once.
func GoalReminders(goals DueGoals, employees EmployeeLookup, n Notifier, lead, interval time.Duration, logger *zap.Logger) Job {
	return func(ctx context.Context) error {
		from := time.Now().UTC().Add(lead)
		due, err := goals.DueBetween(ctx, from, from.Add(interval))
		if err != nil {
			return fmt.Errorf("find due goals: %w", err)
		}
		sent := 0
		for _, g := range due {
			emp, err := employees.GetByID(ctx, g.EmployeeID)
			if err != nil {
				logger.Warn("goal reminder: employee lookup failed",
					zap.String("goal_id", g.ID.Hex()), zap.Error(err))
				continue
			}
			if emp.Status != models.EmployeeActive {
				continue
			}
			err = n.Notify(ctx, notify.Event{
				UserID:   emp.UserID,
				Type:     models.NotificationGoalReminder,
				Title:    "Goal due soon",
				Message:  fmt.Sprintf("%q is due on %s.", g.Title, g.DueDate.Format("Jan 2, 2006")),
				Metadata: map[string]string{"goal_id": g.ID.Hex()},
			})
			if err != nil {
				logger.Warn("goal reminder: notify failed",
					zap.String("goal_id", g.ID.Hex()), zap.Error(err))
				continue
			}
			sent++
		}
		if sent > 0 {
			logger.Info("goal reminders queued", zap.Int("count", sent))
		}
		return nil
	}
}
