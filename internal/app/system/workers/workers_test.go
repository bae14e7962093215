package workers

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

type purger struct {
	cutoff time.Time
	n      int64
	err    error
}

func (p *purger) DeleteArchivedBefore(_ context.Context, cutoff time.Time) (int64, error) {
	p.cutoff = cutoff
	return p.n, p.err
}

func TestNotificationCleanup_UsesRetention(t *testing.T) {
	p := &purger{n: 3}
	job := NotificationCleanup(p, 30*24*time.Hour, zap.NewNop())

	if err := job(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	want := time.Now().UTC().Add(-30 * 24 * time.Hour)
	if d := p.cutoff.Sub(want); d > time.Second || d < -time.Second {
		t.Errorf("cutoff = %v, want about %v", p.cutoff, want)
	}

	p.err = errors.New("boom")
	if err := job(context.Background()); err == nil {
		t.Error("expected error to propagate")
	}
}

type goalList []models.Goal

func (g goalList) DueBetween(context.Context, time.Time, time.Time) ([]models.Goal, error) {
	return g, nil
}

type empMap map[primitive.ObjectID]models.Employee

func (m empMap) GetByID(_ context.Context, id primitive.ObjectID) (models.Employee, error) {
	if e, ok := m[id]; ok {
		return e, nil
	}
	return models.Employee{}, errors.New("not found")
}

type recorder struct{ events []notify.Event }

func (r *recorder) Notify(_ context.Context, e notify.Event) error {
	r.events = append(r.events, e)
	return nil
}

func TestGoalReminders_NotifiesActiveOwners(t *testing.T) {
	due := time.Now().Add(30 * time.Hour)
	active := models.Employee{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Status: models.EmployeeActive}
	gone := models.Employee{ID: primitive.NewObjectID(), UserID: primitive.NewObjectID(), Status: models.EmployeeTerminated}

	goals := goalList{
		{ID: primitive.NewObjectID(), EmployeeID: active.ID, Title: "Ship v2", DueDate: &due},
		{ID: primitive.NewObjectID(), EmployeeID: gone.ID, Title: "Old goal", DueDate: &due},
		{ID: primitive.NewObjectID(), EmployeeID: primitive.NewObjectID(), Title: "Orphan", DueDate: &due},
	}
	rec := &recorder{}
	job := GoalReminders(goals, empMap{active.ID: active, gone.ID: gone}, rec, 24*time.Hour, 24*time.Hour, zap.NewNop())

	if err := job(context.Background()); err != nil {
		t.Fatalf("job: %v", err)
	}
	if len(rec.events) != 1 {
		t.Fatalf("events = %d, want 1", len(rec.events))
	}
	e := rec.events[0]
	if e.UserID != active.UserID || e.Type != models.NotificationGoalReminder {
		t.Errorf("event = %+v", e)
	}
	if e.Metadata["goal_id"] != goals[0].ID.Hex() {
		t.Errorf("metadata = %v", e.Metadata)
	}
}

func TestPeriodic_RunsUntilStopped(t *testing.T) {
	var runs atomic.Int32
	w := NewPeriodic("test", func(context.Context) error {
		runs.Add(1)
		return nil
	}, zap.NewNop(), 5*time.Millisecond, time.Second)

	w.Start()
	deadline := time.Now().Add(2 * time.Second)
	for runs.Load() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	w.Stop()
	w.Stop()

	if runs.Load() < 2 {
		t.Errorf("runs = %d, want at least 2", runs.Load())
	}
	after := runs.Load()
	time.Sleep(20 * time.Millisecond)
	if runs.Load() != after {
		t.Error("worker kept running after Stop")
	}
}
