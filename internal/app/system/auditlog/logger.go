// internal/app/system/auditlog/logger.go
package auditlog

import (
	"context"
	"net/http"
	"strconv"

	"github.com/dalemusser/perfhub/internal/app/store/audit"
	"github.com/dalemusser/perfhub/internal/app/system/ratelimit"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.uber.org/zap"
)

// Destinations for one category of events.
const (
	All = "all" // MongoDB + zap
	DB  = "db"  // MongoDB only
	Log = "log" // zap only
	Off = "off"
)

// Config selects a destination per category.
type Config struct {
	Auth     string
	Admin    string
	Security string
}

// Logger writes audit events to the audit store and to zap.
// A nil *Logger is a valid no-op, which keeps handler tests simple.
type Logger struct {
	store  *audit.Store
	zapLog *zap.Logger
	config Config
}

// New creates a new audit Logger.
func New(store *audit.Store, zapLog *zap.Logger, config Config) *Logger {
	return &Logger{store: store, zapLog: zapLog, config: config}
}

func (l *Logger) setting(category string) string {
	var s string
	switch category {
	case audit.CategoryAuth:
		s = l.config.Auth
	case audit.CategoryAdmin:
		s = l.config.Admin
	case audit.CategorySecurity:
		s = l.config.Security
	}
	if s == "" {
		return All
	}
	return s
}

func (l *Logger) logToZap(e audit.Event) {
	fields := []zap.Field{
		zap.Bool("audit", true),
		zap.String("category", e.Category),
		zap.String("event_type", e.EventType),
		zap.Bool("success", e.Success),
		zap.String("ip", e.IP),
	}
	if e.TenantID != nil {
		fields = append(fields, zap.String("tenant_id", e.TenantID.Hex()))
	}
	if e.UserID != nil {
		fields = append(fields, zap.String("user_id", e.UserID.Hex()))
	}
	if e.ActorID != nil {
		fields = append(fields, zap.String("actor_id", e.ActorID.Hex()))
	}
	if e.FailureReason != "" {
		fields = append(fields, zap.String("failure_reason", e.FailureReason))
	}
	for k, v := range e.Details {
		fields = append(fields, zap.String("detail_"+k, v))
	}

	if e.Success {
		l.zapLog.Info("audit event", fields...)
	} else {
		l.zapLog.Warn("audit event", fields...)
	}
}

// Log records e according to the category's configured destination.
func (l *Logger) Log(ctx context.Context, e audit.Event) {
	if l == nil {
		return
	}
	dest := l.setting(e.Category)
	if dest == Off {
		return
	}
	if dest == All || dest == Log {
		l.logToZap(e)
	}
	if (dest == All || dest == DB) && l.store != nil {
		if err := l.store.Log(ctx, e); err != nil {
			l.zapLog.Error("failed to store audit event",
				zap.Error(err),
				zap.String("event_type", e.EventType))
		}
	}
}

func fromRequest(r *http.Request, e audit.Event) audit.Event {
	if r != nil {
		e.IP = ratelimit.ClientIP(r)
		e.UserAgent = r.UserAgent()
	}
	return e
}

func idPtr(id primitive.ObjectID) *primitive.ObjectID {
	if id.IsZero() {
		return nil
	}
	return &id
}

/*─────────────────────────────────────────────────────────────────────────────*
| Auth                                                                         |
*─────────────────────────────────────────────────────────────────────────────*/

// LoginSuccess logs a successful sign-in.
func (l *Logger) LoginSuccess(ctx context.Context, r *http.Request, userID, tenantID primitive.ObjectID, method string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLoginSuccess,
		UserID:    idPtr(userID),
		TenantID:  idPtr(tenantID),
		Success:   true,
		Details:   map[string]string{"method": method},
	}))
}

// LoginFailed logs a rejected sign-in.
func (l *Logger) LoginFailed(ctx context.Context, r *http.Request, email, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventLoginFailed,
		FailureReason: reason,
		Details:       map[string]string{"email": email},
	}))
}

// Logout logs a sign-out.
func (l *Logger) Logout(ctx context.Context, r *http.Request, userID, tenantID primitive.ObjectID) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAuth,
		EventType: audit.EventLogout,
		UserID:    idPtr(userID),
		TenantID:  idPtr(tenantID),
		Success:   true,
	}))
}

// RealtimeAuthFailed logs a rejected WebSocket auth frame.
func (l *Logger) RealtimeAuthFailed(ctx context.Context, r *http.Request, claimedUserID, reason string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategoryAuth,
		EventType:     audit.EventRealtimeAuthFailure,
		FailureReason: reason,
		Details:       map[string]string{"claimed_user_id": claimedUserID},
	}))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Security                                                                     |
*─────────────────────────────────────────────────────────────────────────────*/

// AccessDenied logs a guard denial. tenantID is the target tenant.
func (l *Logger) AccessDenied(ctx context.Context, r *http.Request, actorID, tenantID primitive.ObjectID, reason string) {
	path := ""
	if r != nil {
		path = r.Method + " " + r.URL.Path
	}
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventAccessDenied,
		ActorID:       idPtr(actorID),
		TenantID:      idPtr(tenantID),
		FailureReason: reason,
		Details:       map[string]string{"path": path},
	}))
}

// FeatureDenied logs a plan gate rejection.
func (l *Logger) FeatureDenied(ctx context.Context, r *http.Request, actorID, tenantID primitive.ObjectID, feature, tier string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventFeatureDenied,
		ActorID:       idPtr(actorID),
		TenantID:      idPtr(tenantID),
		FailureReason: "FEATURE_NOT_AVAILABLE",
		Details:       map[string]string{"feature": feature, "tier": tier},
	}))
}

// LimitExceeded logs a rejected employee creation.
func (l *Logger) LimitExceeded(ctx context.Context, r *http.Request, actorID, tenantID primitive.ObjectID, max int) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventLimitExceeded,
		ActorID:       idPtr(actorID),
		TenantID:      idPtr(tenantID),
		FailureReason: "LIMIT_EXCEEDED",
		Details:       map[string]string{"max_employees": strconv.Itoa(max)},
	}))
}

// FeedbackThrottled logs a rate-limited public feedback submission.
func (l *Logger) FeedbackThrottled(ctx context.Context, r *http.Request, token string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:      audit.CategorySecurity,
		EventType:     audit.EventFeedbackThrottled,
		FailureReason: "RATE_LIMITED",
		Details:       map[string]string{"token": token},
	}))
}

/*─────────────────────────────────────────────────────────────────────────────*
| Admin                                                                        |
*─────────────────────────────────────────────────────────────────────────────*/

// Admin logs a successful administrative change. eventType is one of the
// audit.Event* admin constants.
func (l *Logger) Admin(ctx context.Context, r *http.Request, eventType string, actorID, tenantID, userID primitive.ObjectID, details map[string]string) {
	l.Log(ctx, fromRequest(r, audit.Event{
		Category:  audit.CategoryAdmin,
		EventType: eventType,
		ActorID:   idPtr(actorID),
		TenantID:  idPtr(tenantID),
		UserID:    idPtr(userID),
		Success:   true,
		Details:   details,
	}))
}
