// internal/app/store/tenants/tenantstore.go
package tenantstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/normalize"
	"github.com/dalemusser/perfhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound        = errors.New("tenant not found")
	ErrDuplicateDomain = errors.New("a tenant with this domain already exists")
	// ErrLimitExceeded is returned by ReserveEmployeeSlot when the tenant is
	// already at its employee cap.
	ErrLimitExceeded = errors.New("tenant employee limit reached")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("tenants")}
}

// Create inserts a new tenant. EmployeeCount always starts at zero.
func (s *Store) Create(ctx context.Context, t models.Tenant) (models.Tenant, error) {
	now := time.Now().UTC()
	t.ID = primitive.NewObjectID()
	t.Name = normalize.Name(t.Name)
	t.NameCI = normalize.NameCI(t.Name)
	t.Domain = normalize.Domain(t.Domain)
	t.EmployeeCount = 0
	t.CreatedAt = now
	t.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, t); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Tenant{}, ErrDuplicateDomain
		}
		return models.Tenant{}, err
	}
	return t, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Tenant, error) {
	var t models.Tenant
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&t); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Tenant{}, ErrNotFound
		}
		return models.Tenant{}, err
	}
	return t, nil
}

// Find returns tenants matching filter. Callers own paging and sorting.
func (s *Store) Find(ctx context.Context, filter bson.M, opts ...*options.FindOptions) ([]models.Tenant, error) {
	cur, err := s.c.Find(ctx, filter, opts...)
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Tenant
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Update holds the profile fields a platform admin may change. Nil fields
// are left alone.
type Update struct {
	Name   *string
	Domain *string
}

// Update applies u and returns the updated tenant.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Tenant, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Name != nil {
		set["name"] = normalize.Name(*u.Name)
		set["name_ci"] = normalize.NameCI(*u.Name)
	}
	if u.Domain != nil {
		set["domain"] = normalize.Domain(*u.Domain)
	}
	return s.findAndSet(ctx, id, set)
}

// SetActive flips the tenant's active flag. Tenants are never deleted.
func (s *Store) SetActive(ctx context.Context, id primitive.ObjectID, active bool) (models.Tenant, error) {
	return s.findAndSet(ctx, id, bson.M{"is_active": active, "updated_at": time.Now().UTC()})
}

// SetSubscription changes the tier and the seat cap that goes with it.
// Existing employees are kept when the new cap is below the current count;
// further creations fail until the count drops.
func (s *Store) SetSubscription(ctx context.Context, id primitive.ObjectID, tier string, maxEmployees int) (models.Tenant, error) {
	return s.findAndSet(ctx, id, bson.M{
		"subscription_tier": tier,
		"max_employees":     maxEmployees,
		"updated_at":        time.Now().UTC(),
	})
}

func (s *Store) findAndSet(ctx context.Context, id primitive.ObjectID, set bson.M) (models.Tenant, error) {
	var t models.Tenant
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id},
		bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	switch {
	case err == nil:
		return t, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Tenant{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.Tenant{}, ErrDuplicateDomain
	default:
		return models.Tenant{}, err
	}
}

/*─────────────────────────────────────────────────────────────────────────────*
| Employee seats                                                               |
*─────────────────────────────────────────────────────────────────────────────*/

// ReserveEmployeeSlot atomically claims one employee seat. The increment
// only matches when the tenant is unlimited or below its cap, so concurrent
// creates can never push employee_count past max_employees.
//
// Callers must ReleaseEmployeeSlot if the employee insert then fails.
func (s *Store) ReserveEmployeeSlot(ctx context.Context, id primitive.ObjectID) (models.Tenant, error) {
	filter := bson.M{
		"_id": id,
		"$or": bson.A{
			bson.M{"max_employees": bson.M{"$lt": 0}},
			bson.M{"$expr": bson.M{"$lt": bson.A{"$employee_count", "$max_employees"}}},
		},
	}
	var t models.Tenant
	err := s.c.FindOneAndUpdate(ctx, filter,
		bson.M{"$inc": bson.M{"employee_count": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&t)
	if err == nil {
		return t, nil
	}
	if !errors.Is(err, mongo.ErrNoDocuments) {
		return models.Tenant{}, err
	}
	// Either the tenant is missing or it is full.
	if _, gerr := s.GetByID(ctx, id); gerr != nil {
		return models.Tenant{}, gerr
	}
	return models.Tenant{}, ErrLimitExceeded
}

// ReleaseEmployeeSlot gives back one seat. The count never goes below zero.
func (s *Store) ReleaseEmployeeSlot(ctx context.Context, id primitive.ObjectID) error {
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "employee_count": bson.M{"$gt": 0}},
		bson.M{"$inc": bson.M{"employee_count": -1}},
	)
	return err
}

// SetEmployeeCount overwrites the seat counter. Used by startup
// reconciliation against the employees collection.
func (s *Store) SetEmployeeCount(ctx context.Context, id primitive.ObjectID, n int) error {
	res, err := s.c.UpdateByID(ctx, id, bson.M{"$set": bson.M{"employee_count": n}})
	if err != nil {
		return err
	}
	if res.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// IDs returns every tenant id.
func (s *Store) IDs(ctx context.Context) ([]primitive.ObjectID, error) {
	cur, err := s.c.Find(ctx, bson.M{}, options.Find().SetProjection(bson.M{"_id": 1}))
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
