package userstore

import (
	"context"

	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Fetcher implements auth.UserFetcher to load fresh user data on each request.
// Tenant state comes from the tenant cache so role and tenant changes apply
// within one cache TTL.
type Fetcher struct {
	users   *mongo.Collection
	tenants *tenantcache.Cache
}

// NewFetcher creates a UserFetcher that queries the given database.
func NewFetcher(db *mongo.Database, tenants *tenantcache.Cache) *Fetcher {
	return &Fetcher{users: db.Collection("users"), tenants: tenants}
}

// FetchUser retrieves a user by ID and returns nil if the user is not found,
// disabled, or if any error occurs. A user whose tenant is missing or
// inactive is returned with TenantActive=false.
func (f *Fetcher) FetchUser(ctx context.Context, userID string) *auth.SessionUser {
	oid, err := primitive.ObjectIDFromHex(userID)
	if err != nil {
		return nil
	}

	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	var u models.User
	proj := options.FindOne().SetProjection(bson.M{
		"_id":       1,
		"full_name": 1,
		"email":     1,
		"role":      1,
		"status":    1,
		"tenant_id": 1,
	})
	if err := f.users.FindOne(ctx, bson.M{"_id": oid}, proj).Decode(&u); err != nil {
		return nil
	}
	if u.Status == StatusDisabled {
		return nil
	}

	su := &auth.SessionUser{
		ID:    u.ID.Hex(),
		Name:  u.FullName,
		Email: u.Email,
		Role:  u.Role,
	}
	if u.TenantID != nil {
		su.TenantID = u.TenantID.Hex()
		if t, err := f.tenants.Get(ctx, *u.TenantID); err == nil {
			su.TenantActive = t.IsActive
		}
	}
	return su
}
