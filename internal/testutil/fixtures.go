package testutil

import (
	"context"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/text"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
)

// Fixtures provides helper methods for creating test data. Rows are written
// straight to the collections so store tests do not depend on each other.
type Fixtures struct {
	db *mongo.Database
	t  *testing.T
}

// NewFixtures creates a new Fixtures instance for the given test database.
func NewFixtures(t *testing.T, db *mongo.Database) *Fixtures {
	t.Helper()
	return &Fixtures{db: db, t: t}
}

// DB returns the underlying database for direct access in tests.
func (f *Fixtures) DB() *mongo.Database {
	return f.db
}

func (f *Fixtures) insert(ctx context.Context, coll string, doc any) {
	f.t.Helper()
	if _, err := f.db.Collection(coll).InsertOne(ctx, doc); err != nil {
		f.t.Fatalf("failed to insert test %s: %v", coll, err)
	}
}

// CreateTenant creates an active tenant with a unique domain derived from name.
// Pass models.UnlimitedEmployees for max to create an uncapped tenant.
func (f *Fixtures) CreateTenant(ctx context.Context, name, tier string, max int) models.Tenant {
	f.t.Helper()

	now := time.Now().UTC()
	slug := strings.ToLower(strings.ReplaceAll(name, " ", "-"))
	tenant := models.Tenant{
		ID:               primitive.NewObjectID(),
		Name:             name,
		NameCI:           text.Fold(name),
		Domain:           slug + "-" + primitive.NewObjectID().Hex()[18:] + ".test",
		SubscriptionTier: tier,
		MaxEmployees:     max,
		IsActive:         true,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	f.insert(ctx, "tenants", tenant)
	return tenant
}

// DeactivateTenant flips is_active off without going through the store.
func (f *Fixtures) DeactivateTenant(ctx context.Context, id primitive.ObjectID) {
	f.t.Helper()
	if _, err := f.db.Collection("tenants").UpdateByID(ctx, id, bson.M{"$set": bson.M{"is_active": false}}); err != nil {
		f.t.Fatalf("failed to deactivate tenant: %v", err)
	}
}

// CreateUser creates an active user. tenantID is nil only for platform admins.
func (f *Fixtures) CreateUser(ctx context.Context, fullName, email, role string, tenantID *primitive.ObjectID) models.User {
	f.t.Helper()

	now := time.Now().UTC()
	user := models.User{
		ID:         primitive.NewObjectID(),
		Email:      strings.ToLower(email),
		FullName:   fullName,
		FullNameCI: text.Fold(fullName),
		Role:       role,
		TenantID:   tenantID,
		Status:     "active",
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "users", user)
	return user
}

// CreatePlatformAdmin creates a platform admin with no tenant.
func (f *Fixtures) CreatePlatformAdmin(ctx context.Context, fullName, email string) models.User {
	f.t.Helper()
	return f.CreateUser(ctx, fullName, email, "platform_admin", nil)
}

// CreateEmployee creates a user with the given role and its employee record
// in the tenant. It does not touch the tenant's seat counter.
func (f *Fixtures) CreateEmployee(ctx context.Context, tenantID primitive.ObjectID, fullName, email, role string) (models.User, models.Employee) {
	f.t.Helper()

	user := f.CreateUser(ctx, fullName, email, role, &tenantID)
	now := time.Now().UTC()
	emp := models.Employee{
		ID:            primitive.NewObjectID(),
		UserID:        user.ID,
		TenantID:      tenantID,
		FullName:      fullName,
		FullNameCI:    text.Fold(fullName),
		Email:         user.Email,
		JobTitle:      "Engineer",
		Status:        models.EmployeeActive,
		FeedbackToken: uuid.NewString(),
		CreatedAt:     now,
		UpdatedAt:     now,
	}
	f.insert(ctx, "employees", emp)
	return user, emp
}

// SetManager points an employee at a manager without cycle checks.
func (f *Fixtures) SetManager(ctx context.Context, employeeID, managerID primitive.ObjectID) {
	f.t.Helper()
	if _, err := f.db.Collection("employees").UpdateByID(ctx, employeeID, bson.M{"$set": bson.M{"manager_id": managerID}}); err != nil {
		f.t.Fatalf("failed to set manager: %v", err)
	}
}

// CreateDepartment creates a department; parent may be nil.
func (f *Fixtures) CreateDepartment(ctx context.Context, tenantID primitive.ObjectID, name string, parent *primitive.ObjectID) models.Department {
	f.t.Helper()

	now := time.Now().UTC()
	d := models.Department{
		ID:                 primitive.NewObjectID(),
		TenantID:           tenantID,
		Name:               name,
		NameCI:             text.Fold(name),
		ParentDepartmentID: parent,
		CreatedAt:          now,
		UpdatedAt:          now,
	}
	f.insert(ctx, "departments", d)
	return d
}

// CreateGoal creates a goal for an employee.
func (f *Fixtures) CreateGoal(ctx context.Context, emp models.Employee, title string, createdBy primitive.ObjectID) models.Goal {
	f.t.Helper()

	now := time.Now().UTC()
	g := models.Goal{
		ID:         primitive.NewObjectID(),
		EmployeeID: emp.ID,
		TenantID:   emp.TenantID,
		Title:      title,
		Status:     models.GoalNotStarted,
		CreatedBy:  createdBy,
		CreatedAt:  now,
		UpdatedAt:  now,
	}
	f.insert(ctx, "goals", g)
	return g
}

// CreateFeedback creates an internal feedback entry for an employee.
func (f *Fixtures) CreateFeedback(ctx context.Context, emp models.Employee, content string) models.Feedback {
	f.t.Helper()

	fb := models.Feedback{
		ID:         primitive.NewObjectID(),
		EmployeeID: emp.ID,
		TenantID:   emp.TenantID,
		Kind:       "general",
		Content:    content,
		Source:     models.FeedbackInternal,
		CreatedAt:  time.Now().UTC(),
	}
	f.insert(ctx, "feedback", fb)
	return fb
}

// CreateReview creates a draft review for an employee.
func (f *Fixtures) CreateReview(ctx context.Context, emp models.Employee, reviewer primitive.ObjectID, period string) models.PerformanceReview {
	f.t.Helper()

	now := time.Now().UTC()
	r := models.PerformanceReview{
		ID:             primitive.NewObjectID(),
		EmployeeID:     emp.ID,
		TenantID:       emp.TenantID,
		ReviewerUserID: reviewer,
		Period:         period,
		Status:         models.ReviewDraft,
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	f.insert(ctx, "reviews", r)
	return r
}

// CreateNotification creates an unread notification for a user.
func (f *Fixtures) CreateNotification(ctx context.Context, userID primitive.ObjectID, typ, title string) models.Notification {
	f.t.Helper()

	n := models.Notification{
		ID:        primitive.NewObjectID(),
		UserID:    userID,
		Type:      typ,
		Title:     title,
		Message:   title,
		Status:    models.NotificationUnread,
		CreatedAt: time.Now().UTC(),
	}
	f.insert(ctx, "notifications", n)
	return n
}
