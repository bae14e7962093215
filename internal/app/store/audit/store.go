// internal/app/store/audit/store.go
package audit

import (
	"context"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Event categories
const (
	CategoryAuth     = "auth"
	CategoryAdmin    = "admin"
	CategorySecurity = "security"
)

// Auth event types
const (
	EventLoginSuccess        = "login_success"
	EventLoginFailed         = "login_failed"
	EventLogout              = "logout"
	EventRealtimeAuthFailure = "realtime_auth_failed"
)

// Admin event types
const (
	EventTenantCreated        = "tenant_created"
	EventTenantUpdated        = "tenant_updated"
	EventTenantActivated      = "tenant_activated"
	EventTenantDeactivated    = "tenant_deactivated"
	EventSubscriptionChanged  = "subscription_changed"
	EventEmployeeCreated      = "employee_created"
	EventEmployeeUpdated      = "employee_updated"
	EventEmployeeDeleted      = "employee_deleted"
	EventEmployeeBulkStatus   = "employee_bulk_status"
	EventDepartmentCreated    = "department_created"
	EventDepartmentDeleted    = "department_deleted"
	EventReviewDeleted        = "review_deleted"
	EventPlatformAdminGranted = "platform_admin_granted"
)

// Security event types
const (
	EventAccessDenied      = "access_denied"
	EventFeatureDenied     = "feature_denied"
	EventLimitExceeded     = "limit_exceeded"
	EventFeedbackThrottled = "feedback_throttled"
)

// Event is one audit record.
type Event struct {
	ID        primitive.ObjectID  `bson:"_id,omitempty" json:"id"`
	CreatedAt time.Time           `bson:"created_at" json:"createdAt"`
	TenantID  *primitive.ObjectID `bson:"tenant_id,omitempty" json:"tenantId,omitempty"`

	Category  string `bson:"category" json:"category"`
	EventType string `bson:"event_type" json:"eventType"`

	// UserID is the affected user; ActorID is who acted.
	UserID  *primitive.ObjectID `bson:"user_id,omitempty" json:"userId,omitempty"`
	ActorID *primitive.ObjectID `bson:"actor_id,omitempty" json:"actorId,omitempty"`

	IP        string `bson:"ip" json:"ip"`
	UserAgent string `bson:"user_agent,omitempty" json:"userAgent,omitempty"`

	Success       bool   `bson:"success" json:"success"`
	FailureReason string `bson:"failure_reason,omitempty" json:"failureReason,omitempty"`

	Details map[string]string `bson:"details,omitempty" json:"details,omitempty"`
}

// QueryFilter narrows Query. Zero fields are ignored.
type QueryFilter struct {
	TenantID  *primitive.ObjectID
	UserID    *primitive.ObjectID
	Category  string
	EventType string
	Since     *time.Time
	Limit     int64
}

// Store manages audit event records.
type Store struct {
	c *mongo.Collection
}

// New creates a new audit Store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("audit_events")}
}

// Log records an audit event.
func (s *Store) Log(ctx context.Context, event Event) error {
	if event.ID.IsZero() {
		event.ID = primitive.NewObjectID()
	}
	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now().UTC()
	}
	_, err := s.c.InsertOne(ctx, event)
	return err
}

// Query returns matching events, newest first. Limit defaults to 100.
func (s *Store) Query(ctx context.Context, f QueryFilter) ([]Event, error) {
	q := bson.M{}
	if f.TenantID != nil {
		q["tenant_id"] = *f.TenantID
	}
	if f.UserID != nil {
		q["user_id"] = *f.UserID
	}
	if f.Category != "" {
		q["category"] = f.Category
	}
	if f.EventType != "" {
		q["event_type"] = f.EventType
	}
	if f.Since != nil {
		q["created_at"] = bson.M{"$gte": *f.Since}
	}
	limit := f.Limit
	if limit <= 0 {
		limit = 100
	}

	cur, err := s.c.Find(ctx, q, options.Find().
		SetSort(bson.D{{Key: "created_at", Value: -1}}).
		SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var events []Event
	if err := cur.All(ctx, &events); err != nil {
		return nil, err
	}
	return events, nil
}
