package notify

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/mailer"
	"github.com/dalemusser/perfhub/internal/app/system/metrics"
	"github.com/dalemusser/perfhub/internal/domain/models"
	promtest "github.com/prometheus/client_golang/prometheus/testutil"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

type memStore struct {
	mu   sync.Mutex
	rows []models.Notification
	err  error
}

func (s *memStore) Create(_ context.Context, n models.Notification) (models.Notification, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.err != nil {
		return models.Notification{}, s.err
	}
	n.ID = primitive.NewObjectID()
	n.Status = models.NotificationUnread
	s.rows = append(s.rows, n)
	return n, nil
}

func (s *memStore) count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.rows)
}

type prefMap map[primitive.ObjectID]models.NotificationPreferences

func (m prefMap) Get(_ context.Context, id primitive.ObjectID) (models.NotificationPreferences, error) {
	if p, ok := m[id]; ok {
		return p, nil
	}
	return models.DefaultNotificationPreferences(id), nil
}

type userMap map[primitive.ObjectID]models.User

func (m userMap) GetByID(_ context.Context, id primitive.ObjectID) (models.User, error) {
	if u, ok := m[id]; ok {
		return u, nil
	}
	return models.User{}, errors.New("not found")
}

type fakePusher struct {
	mu        sync.Mutex
	connected map[primitive.ObjectID]bool
	pushed    []primitive.ObjectID
	err       error
}

func (p *fakePusher) Push(_ context.Context, id primitive.ObjectID, _ any) (bool, error) {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return false, p.err
	}
	if !p.connected[id] {
		return false, nil
	}
	p.pushed = append(p.pushed, id)
	return true, nil
}

type fakeMail struct {
	mu      sync.Mutex
	fails   int  // fail this many sends before succeeding
	blocks  bool // wait for ctx to end, then fail
	started chan struct{}
	calls   int
	sent    []mailer.Email
}

func (m *fakeMail) Send(ctx context.Context, e mailer.Email) error {
	m.mu.Lock()
	if m.blocks {
		m.calls++
		if m.calls == 1 && m.started != nil {
			close(m.started)
		}
		m.mu.Unlock()
		<-ctx.Done()
		return ctx.Err()
	}
	defer m.mu.Unlock()
	m.calls++
	if m.calls <= m.fails {
		return errors.New("smtp 451 try later")
	}
	m.sent = append(m.sent, e)
	return nil
}

type fixture struct {
	d      *Dispatcher
	store  *memStore
	prefs  prefMap
	users  userMap
	pusher *fakePusher
	mail   *fakeMail
	met    *metrics.Metrics
	uid    primitive.ObjectID
	sleeps []time.Duration
}

func newFixture(cfg Config) *fixture {
	uid := primitive.NewObjectID()
	f := &fixture{
		store:  &memStore{},
		prefs:  prefMap{},
		users:  userMap{uid: {ID: uid, Email: "ann@acme.test", FullName: "Ann Lee"}},
		pusher: &fakePusher{connected: map[primitive.ObjectID]bool{}},
		mail:   &fakeMail{},
		met:    metrics.New("notifytest"),
		uid:    uid,
	}
	f.d = New(cfg, Deps{
		Notifications: f.store,
		Preferences:   f.prefs,
		Recipients:    f.users,
		Pusher:        f.pusher,
		Mail:          f.mail,
		Metrics:       f.met,
	})
	f.d.sleep = func(_ context.Context, d time.Duration) error {
		f.sleeps = append(f.sleeps, d)
		return nil
	}
	return f
}

func (f *fixture) event(typ string) Event {
	return Event{UserID: f.uid, Type: typ, Title: "Hello", Message: "World"}
}

func TestShouldEmail(t *testing.T) {
	on := models.DefaultNotificationPreferences(primitive.NewObjectID())
	on.WeeklyDigest = true

	allTypeFlagsOff := on
	allTypeFlagsOff.Feedback = false
	allTypeFlagsOff.GoalReminders = false
	allTypeFlagsOff.WeeklyDigest = false

	masterOff := on
	masterOff.Email = false

	tests := []struct {
		name  string
		prefs models.NotificationPreferences
		typ   string
		want  bool
	}{
		{"feedback enabled", on, models.NotificationFeedbackReceived, true},
		{"feedback disabled", allTypeFlagsOff, models.NotificationFeedbackReceived, false},
		{"goal assigned follows goal reminders", allTypeFlagsOff, models.NotificationGoalAssigned, false},
		{"goal reminder enabled", on, models.NotificationGoalReminder, true},
		{"weekly digest disabled", allTypeFlagsOff, models.NotificationWeeklyDigest, false},
		{"review is critical", allTypeFlagsOff, models.NotificationPerformanceReview, true},
		{"system update is critical", allTypeFlagsOff, models.NotificationSystemUpdate, true},
		{"master switch beats critical", masterOff, models.NotificationPerformanceReview, false},
		{"master switch off", masterOff, models.NotificationFeedbackReceived, false},
		{"unknown type", on, "bogus", false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := ShouldEmail(tt.prefs, tt.typ); got != tt.want {
				t.Errorf("ShouldEmail = %v, want %v", got, tt.want)
			}
		})
	}
}

func TestDeliver_PersistsPushesAndEmails(t *testing.T) {
	f := newFixture(Config{BaseURL: "https://perfhub.test"})
	f.pusher.connected[f.uid] = true

	f.d.deliver(context.Background(), f.event(models.NotificationFeedbackReceived))

	if f.store.count() != 1 {
		t.Fatalf("persisted = %d, want 1", f.store.count())
	}
	if len(f.pusher.pushed) != 1 {
		t.Errorf("pushed = %d, want 1", len(f.pusher.pushed))
	}
	if len(f.mail.sent) != 1 || f.mail.sent[0].To != "ann@acme.test" {
		t.Fatalf("sent = %+v", f.mail.sent)
	}
	s := f.d.Stats()
	if s.Persisted != 1 || s.Pushed != 1 || s.Emailed != 1 {
		t.Errorf("Stats = %+v", s)
	}
	if got := promtest.ToFloat64(f.met.Deliveries.WithLabelValues("email", "ok")); got != 1 {
		t.Errorf("email ok counter = %v", got)
	}
}

func TestDeliver_PushIgnoresPreferences(t *testing.T) {
	f := newFixture(Config{})
	f.pusher.connected[f.uid] = true
	p := models.DefaultNotificationPreferences(f.uid)
	p.Push = false
	p.Email = false
	f.prefs[f.uid] = p

	f.d.deliver(context.Background(), f.event(models.NotificationFeedbackReceived))

	if len(f.pusher.pushed) != 1 {
		t.Error("connected user should be pushed to regardless of preferences")
	}
	if len(f.mail.sent) != 0 {
		t.Error("email master switch off should suppress email")
	}
	if f.d.Stats().EmailSkipped != 1 {
		t.Errorf("EmailSkipped = %d, want 1", f.d.Stats().EmailSkipped)
	}
}

func TestDeliver_CriticalTypeSkipsPerTypeFlag(t *testing.T) {
	f := newFixture(Config{})
	p := models.DefaultNotificationPreferences(f.uid)
	p.Feedback = false
	p.GoalReminders = false
	f.prefs[f.uid] = p

	f.d.deliver(context.Background(), f.event(models.NotificationPerformanceReview))
	f.d.deliver(context.Background(), f.event(models.NotificationGoalAssigned))

	if len(f.mail.sent) != 1 {
		t.Errorf("sent = %d, want 1 (review only)", len(f.mail.sent))
	}
	if f.store.count() != 2 {
		t.Errorf("both notifications must be persisted, got %d", f.store.count())
	}
}

func TestDeliver_EmailRetriesWithBackoff(t *testing.T) {
	f := newFixture(Config{EmailBackoff: 100 * time.Millisecond})
	f.mail.fails = 2

	f.d.deliver(context.Background(), f.event(models.NotificationSystemUpdate))

	if f.mail.calls != 3 || len(f.mail.sent) != 1 {
		t.Errorf("calls = %d, sent = %d; want 3 attempts with the last succeeding", f.mail.calls, len(f.mail.sent))
	}
	want := []time.Duration{100 * time.Millisecond, 200 * time.Millisecond}
	if len(f.sleeps) != len(want) || f.sleeps[0] != want[0] || f.sleeps[1] != want[1] {
		t.Errorf("sleeps = %v, want %v", f.sleeps, want)
	}
}

func TestDeliver_EmailFailureKeepsRow(t *testing.T) {
	f := newFixture(Config{})
	f.mail.fails = 10

	f.d.deliver(context.Background(), f.event(models.NotificationSystemUpdate))

	if f.mail.calls != 3 {
		t.Errorf("attempts = %d, want 3", f.mail.calls)
	}
	if f.store.count() != 1 {
		t.Error("email failure must not roll back the persisted notification")
	}
	if f.d.Stats().EmailFailed != 1 {
		t.Errorf("EmailFailed = %d", f.d.Stats().EmailFailed)
	}
}

func TestDeliver_PushAndEmailFailureKeepsRow(t *testing.T) {
	f := newFixture(Config{})
	f.pusher.connected[f.uid] = true
	f.pusher.err = errors.New("connection reset")
	f.mail.fails = 10

	f.d.deliver(context.Background(), f.event(models.NotificationPerformanceReview))

	if f.store.count() != 1 {
		t.Fatalf("persisted = %d, want 1", f.store.count())
	}
	if got := f.store.rows[0]; got.UserID != f.uid || got.Status != models.NotificationUnread {
		t.Errorf("row = %+v", got)
	}
	if f.mail.calls != 3 {
		t.Errorf("email attempts = %d, want 3", f.mail.calls)
	}
	s := f.d.Stats()
	if s.PushFailed != 1 || s.EmailFailed != 1 || s.Pushed != 0 || s.Emailed != 0 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestDeliver_PersistFailureStopsDelivery(t *testing.T) {
	f := newFixture(Config{})
	f.store.err = errors.New("mongo down")
	f.pusher.connected[f.uid] = true

	f.d.deliver(context.Background(), f.event(models.NotificationSystemUpdate))

	if len(f.pusher.pushed) != 0 || f.mail.calls != 0 {
		t.Error("nothing should be delivered for a notification that was not persisted")
	}
	if f.d.Stats().PersistFailed != 1 {
		t.Errorf("PersistFailed = %d", f.d.Stats().PersistFailed)
	}
}

func TestNotify_RejectsInvalidEvent(t *testing.T) {
	f := newFixture(Config{})
	ctx := context.Background()

	bad := []Event{
		{Type: models.NotificationSystemUpdate, Title: "x"},
		{UserID: f.uid, Type: "bogus", Title: "x"},
		{UserID: f.uid, Type: models.NotificationSystemUpdate},
	}
	for _, e := range bad {
		if err := f.d.Notify(ctx, e); !errors.Is(err, ErrInvalidEvent) {
			t.Errorf("Notify(%+v) = %v, want ErrInvalidEvent", e, err)
		}
	}
}

func TestNotify_QueueFullPersistsInline(t *testing.T) {
	f := newFixture(Config{QueueSize: 1})
	f.pusher.connected[f.uid] = true
	ctx := context.Background()

	// Workers not started: the first event fills the queue.
	if err := f.d.Notify(ctx, f.event(models.NotificationSystemUpdate)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	if err := f.d.Notify(ctx, f.event(models.NotificationSystemUpdate)); err != nil {
		t.Fatalf("Notify overflow: %v", err)
	}

	if f.store.count() != 1 {
		t.Errorf("overflow event should be persisted inline, rows = %d", f.store.count())
	}
	if len(f.pusher.pushed) != 0 || f.mail.calls != 0 {
		t.Error("overflow event should skip delivery")
	}
	s := f.d.Stats()
	if s.Overflow != 1 || s.Enqueued != 1 || s.QueueDepth != 1 {
		t.Errorf("Stats = %+v", s)
	}
}

func TestDispatcher_StartStopDrains(t *testing.T) {
	f := newFixture(Config{Workers: 2, QueueSize: 16})
	ctx := context.Background()
	f.d.Start()

	for i := 0; i < 10; i++ {
		if err := f.d.Notify(ctx, f.event(models.NotificationGoalAssigned)); err != nil {
			t.Fatalf("Notify: %v", err)
		}
	}

	stopCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := f.d.Stop(stopCtx); err != nil {
		t.Fatalf("Stop: %v", err)
	}
	if f.store.count() != 10 {
		t.Errorf("persisted = %d, want 10", f.store.count())
	}
	if err := f.d.Notify(ctx, f.event(models.NotificationGoalAssigned)); !errors.Is(err, ErrStopped) {
		t.Errorf("Notify after Stop = %v, want ErrStopped", err)
	}
	if err := f.d.Stop(stopCtx); err != nil {
		t.Errorf("second Stop = %v", err)
	}
}

func TestDispatcher_StopTimeoutCancelsInFlightEmail(t *testing.T) {
	f := newFixture(Config{Workers: 1, SendTimeout: time.Hour})
	f.mail.blocks = true
	f.mail.started = make(chan struct{})
	f.d.Start()

	if err := f.d.Notify(context.Background(), f.event(models.NotificationSystemUpdate)); err != nil {
		t.Fatalf("Notify: %v", err)
	}
	select {
	case <-f.mail.started:
	case <-time.After(5 * time.Second):
		t.Fatal("email send never started")
	}

	stopCtx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if err := f.d.Stop(stopCtx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("Stop = %v, want deadline exceeded", err)
	}

	done := make(chan struct{})
	go func() {
		f.d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
	case <-time.After(5 * time.Second):
		t.Fatal("worker kept running after Stop gave up")
	}
	if f.store.count() != 1 {
		t.Errorf("persisted = %d, want 1", f.store.count())
	}
	if f.mail.calls != 1 {
		t.Errorf("email attempts = %d, want 1 (no retries after cancel)", f.mail.calls)
	}
	if f.d.Stats().EmailFailed != 1 {
		t.Errorf("EmailFailed = %d, want 1", f.d.Stats().EmailFailed)
	}
}
