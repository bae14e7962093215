// internal/app/system/notify/notify.go
package notify

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"sync/atomic"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/mailer"
	"github.com/dalemusser/perfhub/internal/app/system/metrics"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Event asks for one notification to be delivered to one user.
type Event struct {
	UserID   primitive.ObjectID
	Type     string
	Title    string
	Message  string
	Metadata map[string]string
	Link     string // optional, appended to the email
}

// Notifications persists notifications.
type Notifications interface {
	Create(ctx context.Context, n models.Notification) (models.Notification, error)
}

// Preferences reads a user's delivery preferences (defaults when unset).
type Preferences interface {
	Get(ctx context.Context, userID primitive.ObjectID) (models.NotificationPreferences, error)
}

// Recipients resolves a user's email address.
type Recipients interface {
	GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error)
}

// Pusher delivers to a live connection. It reports false when the user is
// not connected.
type Pusher interface {
	Push(ctx context.Context, userID primitive.ObjectID, data any) (bool, error)
}

// Config tunes the dispatcher. Zero values take defaults.
type Config struct {
	Workers       int
	QueueSize     int
	EmailAttempts int
	EmailBackoff  time.Duration // first retry wait, doubled per attempt
	SendTimeout   time.Duration // per email attempt
	SiteName      string
	BaseURL       string
}

func (c Config) withDefaults() Config {
	if c.Workers <= 0 {
		c.Workers = 4
	}
	if c.QueueSize <= 0 {
		c.QueueSize = 1024
	}
	if c.EmailAttempts <= 0 {
		c.EmailAttempts = 3
	}
	if c.EmailBackoff <= 0 {
		c.EmailBackoff = 500 * time.Millisecond
	}
	if c.SendTimeout <= 0 {
		c.SendTimeout = 15 * time.Second
	}
	if c.SiteName == "" {
		c.SiteName = "PerfHub"
	}
	return c
}

// Stats is a snapshot of delivery counters since start.
type Stats struct {
	Enqueued      int64 `json:"enqueued"`
	Persisted     int64 `json:"persisted"`
	PersistFailed int64 `json:"persistFailed"`
	Overflow      int64 `json:"overflow"`
	Pushed        int64 `json:"pushed"`
	PushFailed    int64 `json:"pushFailed"`
	Emailed       int64 `json:"emailed"`
	EmailFailed   int64 `json:"emailFailed"`
	EmailSkipped  int64 `json:"emailSkipped"`
	QueueDepth    int   `json:"queueDepth"`
}

var ErrInvalidEvent = errors.New("notify: invalid event")

// ErrStopped is returned by Notify after Stop.
var ErrStopped = errors.New("notify: dispatcher stopped")

// Dispatcher delivers notifications off the request path. Workers persist
// each notification before attempting push and email, so a delivery
// failure never loses the in-app row.
type Dispatcher struct {
	cfg     Config
	store   Notifications
	prefs   Preferences
	users   Recipients
	pusher  Pusher
	mail    mailer.Sender
	metrics *metrics.Metrics
	log     *zap.Logger

	queue   chan Event
	ctx     context.Context // canceled when Stop gives up waiting
	cancel  context.CancelFunc
	wg      sync.WaitGroup
	mu      sync.RWMutex
	stopped bool
	sleep   func(ctx context.Context, d time.Duration) error

	enqueued, persisted, persistFailed, overflow atomic.Int64
	pushed, pushFailed                           atomic.Int64
	emailed, emailFailed, emailSkipped           atomic.Int64
}

// Deps bundles the dispatcher collaborators. Pusher, Mail and Metrics may be nil.
type Deps struct {
	Notifications Notifications
	Preferences   Preferences
	Recipients    Recipients
	Pusher        Pusher
	Mail          mailer.Sender
	Metrics       *metrics.Metrics
	Logger        *zap.Logger
}

// New creates a dispatcher. Call Start to launch workers.
func New(cfg Config, d Deps) *Dispatcher {
	cfg = cfg.withDefaults()
	log := d.Logger
	if log == nil {
		log = zap.NewNop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	return &Dispatcher{
		cfg:     cfg,
		store:   d.Notifications,
		prefs:   d.Preferences,
		users:   d.Recipients,
		pusher:  d.Pusher,
		mail:    d.Mail,
		metrics: d.Metrics,
		log:     log,
		queue:   make(chan Event, cfg.QueueSize),
		ctx:     ctx,
		cancel:  cancel,
		sleep:   sleepCtx,
	}
}

// Start launches the workers. They exit after Stop drains the queue.
func (d *Dispatcher) Start() {
	for i := 0; i < d.cfg.Workers; i++ {
		d.wg.Add(1)
		go d.worker()
	}
	d.log.Info("notification dispatcher started",
		zap.Int("workers", d.cfg.Workers),
		zap.Int("queue_size", d.cfg.QueueSize))
}

// Stop closes the queue and waits for in-flight events, bounded by ctx.
// When ctx expires first, pending pushes and email retries are canceled.
func (d *Dispatcher) Stop(ctx context.Context) error {
	d.mu.Lock()
	if d.stopped {
		d.mu.Unlock()
		return nil
	}
	d.stopped = true
	close(d.queue)
	d.mu.Unlock()

	done := make(chan struct{})
	go func() {
		d.wg.Wait()
		close(done)
	}()
	select {
	case <-done:
		d.cancel()
		d.log.Info("notification dispatcher stopped")
		return nil
	case <-ctx.Done():
		d.cancel()
		return fmt.Errorf("notify: stop: %w", ctx.Err())
	}
}

// Notify validates e and queues it. It never blocks on delivery. When the
// queue is full the notification is persisted inline and delivery skipped.
func (d *Dispatcher) Notify(ctx context.Context, e Event) error {
	if e.UserID.IsZero() || !models.IsValidNotificationType(e.Type) || e.Title == "" {
		return ErrInvalidEvent
	}

	d.mu.RLock()
	if d.stopped {
		d.mu.RUnlock()
		return ErrStopped
	}
	select {
	case d.queue <- e:
		d.mu.RUnlock()
		d.enqueued.Add(1)
		d.metrics.SetQueueDepth(len(d.queue))
		return nil
	default:
	}
	d.mu.RUnlock()

	d.overflow.Add(1)
	d.metrics.RecordDelivery("queue", "overflow")
	d.log.Warn("notification queue full; persisting without delivery",
		zap.String("user_id", e.UserID.Hex()),
		zap.String("type", e.Type))
	_, err := d.persist(context.WithoutCancel(ctx), e)
	return err
}

// Stats returns current counters.
func (d *Dispatcher) Stats() Stats {
	return Stats{
		Enqueued:      d.enqueued.Load(),
		Persisted:     d.persisted.Load(),
		PersistFailed: d.persistFailed.Load(),
		Overflow:      d.overflow.Load(),
		Pushed:        d.pushed.Load(),
		PushFailed:    d.pushFailed.Load(),
		Emailed:       d.emailed.Load(),
		EmailFailed:   d.emailFailed.Load(),
		EmailSkipped:  d.emailSkipped.Load(),
		QueueDepth:    len(d.queue),
	}
}

func (d *Dispatcher) worker() {
	defer d.wg.Done()
	for e := range d.queue {
		d.metrics.SetQueueDepth(len(d.queue))
		d.deliver(d.ctx, e)
	}
}

// deliver persists, pushes and emails one event.
func (d *Dispatcher) deliver(ctx context.Context, e Event) {
	n, err := d.persist(ctx, e)
	if err != nil {
		return
	}
	d.push(ctx, n)
	d.email(ctx, e, n)
}

func (d *Dispatcher) persist(ctx context.Context, e Event) (models.Notification, error) {
	n, err := d.store.Create(ctx, models.Notification{
		UserID:   e.UserID,
		Type:     e.Type,
		Title:    e.Title,
		Message:  e.Message,
		Metadata: e.Metadata,
	})
	if err != nil {
		d.persistFailed.Add(1)
		d.metrics.RecordDelivery("persist", "failed")
		d.log.Error("persist notification failed",
			zap.String("user_id", e.UserID.Hex()),
			zap.String("type", e.Type),
			zap.Error(err))
		return models.Notification{}, err
	}
	d.persisted.Add(1)
	d.metrics.RecordDelivery("persist", "ok")
	return n, nil
}

// push ignores preferences: a connected client always gets the frame.
func (d *Dispatcher) push(ctx context.Context, n models.Notification) {
	if d.pusher == nil {
		return
	}
	ok, err := d.pusher.Push(ctx, n.UserID, n)
	switch {
	case err != nil:
		d.pushFailed.Add(1)
		d.metrics.RecordDelivery("push", "failed")
		d.log.Warn("push notification failed", zap.String("user_id", n.UserID.Hex()), zap.Error(err))
	case ok:
		d.pushed.Add(1)
		d.metrics.RecordDelivery("push", "ok")
	}
}

func (d *Dispatcher) email(ctx context.Context, e Event, n models.Notification) {
	if d.mail == nil || d.users == nil {
		return
	}
	prefs := models.DefaultNotificationPreferences(e.UserID)
	if d.prefs != nil {
		p, err := d.prefs.Get(ctx, e.UserID)
		if err != nil {
			d.log.Warn("load notification preferences failed; using defaults",
				zap.String("user_id", e.UserID.Hex()), zap.Error(err))
		} else {
			prefs = p
		}
	}
	if !ShouldEmail(prefs, e.Type) {
		d.emailSkipped.Add(1)
		d.metrics.RecordDelivery("email", "skipped")
		return
	}

	u, err := d.users.GetByID(ctx, e.UserID)
	if err != nil || u.Email == "" {
		d.emailSkipped.Add(1)
		d.metrics.RecordDelivery("email", "skipped")
		d.log.Warn("no email recipient for notification",
			zap.String("user_id", e.UserID.Hex()), zap.Error(err))
		return
	}

	link := e.Link
	if link == "" && d.cfg.BaseURL != "" {
		link = d.cfg.BaseURL + "/notifications"
	}
	msg := mailer.BuildNotificationEmail(u.Email, mailer.NotificationEmailData{
		SiteName:      d.cfg.SiteName,
		RecipientName: u.FullName,
		Title:         n.Title,
		Message:       n.Message,
		Link:          link,
	})

	if err := d.sendWithRetry(ctx, msg); err != nil {
		d.emailFailed.Add(1)
		d.metrics.RecordDelivery("email", "failed")
		d.metrics.RecordProviderCall("email", "failed")
		d.log.Error("email notification failed",
			zap.String("user_id", e.UserID.Hex()),
			zap.String("notification_id", n.ID.Hex()),
			zap.Int("attempts", d.cfg.EmailAttempts),
			zap.Error(err))
		return
	}
	d.emailed.Add(1)
	d.metrics.RecordDelivery("email", "ok")
	d.metrics.RecordProviderCall("email", "ok")
}

func (d *Dispatcher) sendWithRetry(ctx context.Context, msg mailer.Email) error {
	var err error
	wait := d.cfg.EmailBackoff
	for attempt := 1; attempt <= d.cfg.EmailAttempts; attempt++ {
		sctx, cancel := context.WithTimeout(ctx, d.cfg.SendTimeout)
		err = d.mail.Send(sctx, msg)
		cancel()
		if err == nil {
			return nil
		}
		if attempt == d.cfg.EmailAttempts || ctx.Err() != nil {
			break
		}
		d.log.Debug("email attempt failed; retrying",
			zap.Int("attempt", attempt),
			zap.Duration("wait", wait),
			zap.Error(err))
		if serr := d.sleep(ctx, wait); serr != nil {
			return serr
		}
		wait *= 2
	}
	return err
}

// ShouldEmail applies the master email switch and the per-type flag.
// Critical types bypass the per-type flag only.
func ShouldEmail(p models.NotificationPreferences, typ string) bool {
	if !p.Email {
		return false
	}
	switch typ {
	case models.NotificationFeedbackReceived:
		return p.Feedback
	case models.NotificationGoalAssigned, models.NotificationGoalReminder:
		return p.GoalReminders
	case models.NotificationWeeklyDigest:
		return p.WeeklyDigest
	case models.NotificationPerformanceReview, models.NotificationSystemUpdate:
		return true
	}
	return false
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}

// Notifier is what request handlers depend on; Dispatcher implements it.
type Notifier interface {
	Notify(ctx context.Context, e Event) error
}
