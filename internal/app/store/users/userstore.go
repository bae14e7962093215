package userstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/app/system/normalize"
	"github.com/dalemusser/perfhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// User status values.
const (
	StatusActive   = "active"
	StatusDisabled = "disabled"
)

var (
	ErrNotFound = errors.New("user not found")
	// ErrDuplicateEmail is returned when attempting to create a user with an email that already exists.
	ErrDuplicateEmail = errors.New("a user with this email already exists")
	errBadRole        = errors.New(`role must be "platform_admin"|"tenant_admin"|"manager"|"employee"`)
	errBadStatus      = errors.New(`status must be "active"|"disabled"`)
	errTenantNeeded   = errors.New("tenant users must have tenant_id")
	errNoTenant       = errors.New("platform_admin must not have tenant_id")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("users")}
}

// GetByID loads a user by ObjectID.
func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.User, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

// GetByEmail looks up a user by normalized email.
func (s *Store) GetByEmail(ctx context.Context, email string) (models.User, error) {
	return s.findOne(ctx, bson.M{"email": normalize.Email(email)})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.User, error) {
	var u models.User
	if err := s.c.FindOne(ctx, filter).Decode(&u); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.User{}, ErrNotFound
		}
		return models.User{}, err
	}
	return u, nil
}

// Create inserts a new user after normalizing & validating fields.
// Tenant users must carry a tenant; platform admins must not.
func (s *Store) Create(ctx context.Context, u models.User) (models.User, error) {
	u.ID = primitive.NewObjectID()
	u.FullName = normalize.Name(u.FullName)
	u.FullNameCI = normalize.NameCI(u.FullName)
	u.Email = normalize.Email(u.Email)
	if u.Status == "" {
		u.Status = StatusActive
	}

	role, err := authz.ParseRole(u.Role)
	if err != nil {
		return models.User{}, errBadRole
	}
	if u.Status != StatusActive && u.Status != StatusDisabled {
		return models.User{}, errBadStatus
	}
	if role == authz.PlatformAdmin && u.TenantID != nil {
		return models.User{}, errNoTenant
	}
	if role != authz.PlatformAdmin && (u.TenantID == nil || u.TenantID.IsZero()) {
		return models.User{}, errTenantNeeded
	}

	now := time.Now().UTC()
	u.CreatedAt = now
	u.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, u); err != nil {
		if wafflemongo.IsDup(err) {
			return models.User{}, ErrDuplicateEmail
		}
		return models.User{}, err
	}
	return u, nil
}

// Update holds the profile fields that can change after creation.
// Nil fields are left alone. Tenant membership never changes.
type Update struct {
	FullName *string
	Email    *string
	Role     *string
	Status   *string
}

// Update applies upd to a user inside tenantID and returns the result.
func (s *Store) Update(ctx context.Context, tenantID, id primitive.ObjectID, upd Update) (models.User, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if upd.FullName != nil {
		name := normalize.Name(*upd.FullName)
		set["full_name"] = name
		set["full_name_ci"] = normalize.NameCI(name)
	}
	if upd.Email != nil {
		set["email"] = normalize.Email(*upd.Email)
	}
	if upd.Role != nil {
		role, err := authz.ParseRole(*upd.Role)
		if err != nil || role == authz.PlatformAdmin {
			return models.User{}, errBadRole
		}
		set["role"] = role.String()
	}
	if upd.Status != nil {
		if *upd.Status != StatusActive && *upd.Status != StatusDisabled {
			return models.User{}, errBadStatus
		}
		set["status"] = *upd.Status
	}

	var u models.User
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "tenant_id": tenantID},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&u)
	switch {
	case err == nil:
		return u, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.User{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.User{}, ErrDuplicateEmail
	default:
		return models.User{}, err
	}
}

// Delete removes a tenant user. Platform admins cannot be deleted here.
func (s *Store) Delete(ctx context.Context, tenantID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// EmailExistsForOther checks if an email already exists for a user other than the given ID.
func (s *Store) EmailExistsForOther(ctx context.Context, email string, excludeID primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{
		"email": normalize.Email(email),
		"_id":   bson.M{"$ne": excludeID},
	}).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// IDsByRole returns the active users of a tenant holding role, for fan-out
// notifications (e.g. to every tenant admin).
func (s *Store) IDsByRole(ctx context.Context, tenantID primitive.ObjectID, role authz.Role) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx,
		bson.M{"tenant_id": tenantID, "role": role.String(), "status": StatusActive},
		options.Find().SetProjection(bson.M{"_id": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var ids []primitive.ObjectID
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		ids = append(ids, row.ID)
	}
	return ids, cur.Err()
}

// ListForSwitcher returns active users for the dev-login picker, platform
// admins first.
func (s *Store) ListForSwitcher(ctx context.Context, limit int64) ([]models.User, error) {
	cur, err := s.c.Find(ctx, bson.M{"status": StatusActive},
		options.Find().SetSort(bson.D{{Key: "role", Value: -1}, {Key: "full_name_ci", Value: 1}}).SetLimit(limit))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.User
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// PromotePlatformAdmin makes the user with email a platform admin,
// creating the account when it does not exist. The user's tenant is
// cleared. It returns true when anything changed.
func (s *Store) PromotePlatformAdmin(ctx context.Context, email, fullName string) (bool, error) {
	email = normalize.Email(email)
	if email == "" {
		return false, nil
	}
	if fullName == "" {
		fullName = email
	}
	now := time.Now().UTC()
	res, err := s.c.UpdateOne(ctx,
		bson.M{"email": email, "role": bson.M{"$ne": authz.PlatformAdmin.String()}},
		bson.M{
			"$set":   bson.M{"role": authz.PlatformAdmin.String(), "status": StatusActive, "updated_at": now},
			"$unset": bson.M{"tenant_id": ""},
			"$setOnInsert": bson.M{
				"full_name":    normalize.Name(fullName),
				"full_name_ci": normalize.NameCI(fullName),
				"created_at":   now,
			},
		},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		// The upsert collides with the unique email index when the user
		// already exists as a platform admin.
		if wafflemongo.IsDup(err) {
			return false, nil
		}
		return false, err
	}
	return res.ModifiedCount > 0 || res.UpsertedCount > 0, nil
}
