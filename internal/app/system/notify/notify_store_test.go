package notify_test

import (
	"context"
	"errors"
	"testing"
	"time"

	notificationstore "github.com/dalemusser/perfhub/internal/app/store/notifications"
	"github.com/dalemusser/perfhub/internal/app/system/mailer"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/perfhub/internal/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type downPusher struct{}

func (downPusher) Push(context.Context, primitive.ObjectID, any) (bool, error) {
	return false, errors.New("socket closed")
}

type downMail struct{}

func (downMail) Send(context.Context, mailer.Email) error { return errors.New("smtp unavailable") }

type oneUser models.User

func (u oneUser) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	if id != u.ID {
		return models.User{}, errors.New("not found")
	}
	return models.User(u), nil
}

func TestDispatcher_InAppListSurvivesDeliveryFailures(t *testing.T) {
	db := testutil.SetupTestDB(t)
	store := notificationstore.New(db)
	ctx, cancel := testutil.TestContext()
	defer cancel()

	uid := primitive.NewObjectID()
	d := notify.New(notify.Config{Workers: 1, EmailBackoff: time.Millisecond}, notify.Deps{
		Notifications: store,
		Recipients:    oneUser{ID: uid, Email: "ann@acme.test", FullName: "Ann Lee"},
		Pusher:        downPusher{},
		Mail:          downMail{},
	})
	d.Start()

	if err := d.Notify(ctx, notify.Event{
		UserID:  uid,
		Type:    models.NotificationPerformanceReview,
		Title:   "Review ready",
		Message: "Your Q3 review was submitted",
	}); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := d.Stop(ctx); err != nil {
		t.Fatalf("Stop: %v", err)
	}

	s := d.Stats()
	if s.Persisted != 1 || s.PushFailed != 1 || s.EmailFailed != 1 {
		t.Errorf("Stats = %+v", s)
	}

	page, err := store.List(ctx, uid, "", paging.Params{Limit: 10})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(page.Items) != 1 {
		t.Fatalf("listed = %d, want 1", len(page.Items))
	}
	got := page.Items[0]
	if got.Title != "Review ready" || got.Status != models.NotificationUnread {
		t.Errorf("listed notification = %+v", got)
	}
	if n, _ := store.UnreadCount(ctx, uid); n != 1 {
		t.Errorf("UnreadCount = %d, want 1", n)
	}
}
