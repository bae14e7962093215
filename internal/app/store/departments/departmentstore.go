package departmentstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/normalize"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound      = errors.New("department not found")
	ErrDuplicateName = errors.New("a department with this name already exists")
	// ErrParentNotInTenant is returned when the parent is missing or belongs
	// to another tenant.
	ErrParentNotInTenant = errors.New("parent department must be in the same tenant")
	ErrParentCycle       = errors.New("parent assignment would create a department cycle")
	// ErrHasChildren is returned by Delete while sub-departments exist.
	ErrHasChildren = errors.New("department has sub-departments")
)

const maxChainDepth = 256

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("departments")}
}

// Create inserts a department. The parent must already be validated.
func (s *Store) Create(ctx context.Context, d models.Department) (models.Department, error) {
	now := time.Now().UTC()
	d.ID = primitive.NewObjectID()
	d.Name = normalize.Name(d.Name)
	d.NameCI = normalize.NameCI(d.Name)
	d.Description = normalize.Name(d.Description)
	d.CreatedAt = now
	d.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, d); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Department{}, ErrDuplicateName
		}
		return models.Department{}, err
	}
	return d, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Department, error) {
	var d models.Department
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&d); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Department{}, ErrNotFound
		}
		return models.Department{}, err
	}
	return d, nil
}

// InTenant loads a department only if it belongs to tenantID.
func (s *Store) InTenant(ctx context.Context, tenantID, id primitive.ObjectID) (models.Department, error) {
	d, err := s.GetByID(ctx, id)
	if err != nil {
		return models.Department{}, err
	}
	if d.TenantID != tenantID {
		return models.Department{}, ErrNotFound
	}
	return d, nil
}

// List returns one page of a tenant's departments ordered by name.
// A non-nil parent restricts to its direct children.
func (s *Store) List(ctx context.Context, tenantID primitive.ObjectID, parent *primitive.ObjectID, p paging.Params) (paging.Page[models.Department], error) {
	filter := bson.M{"tenant_id": tenantID}
	if parent != nil {
		filter["parent_department_id"] = *parent
	}

	find := options.Find()
	ks, err := p.ByName(find, "name_ci")
	if err != nil {
		return paging.Page[models.Department]{}, err
	}
	cur, err := s.c.Find(ctx, paging.And(filter, ks), find)
	if err != nil {
		return paging.Page[models.Department]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Department
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Department]{}, err
	}
	return paging.TrimByName(rows, p,
		func(d models.Department) string { return d.NameCI },
		func(d models.Department) primitive.ObjectID { return d.ID },
	), nil
}

// Update holds the editable fields. SetParent=true with a nil Parent moves
// the department to the top level.
type Update struct {
	Name        *string
	Description *string
	SetParent   bool
	Parent      *primitive.ObjectID
}

func (s *Store) Update(ctx context.Context, tenantID, id primitive.ObjectID, u Update) (models.Department, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	upd := bson.M{}
	if u.Name != nil {
		name := normalize.Name(*u.Name)
		set["name"] = name
		set["name_ci"] = normalize.NameCI(name)
	}
	if u.Description != nil {
		set["description"] = normalize.Name(*u.Description)
	}
	if u.SetParent {
		if u.Parent == nil {
			upd["$unset"] = bson.M{"parent_department_id": ""}
		} else {
			set["parent_department_id"] = *u.Parent
		}
	}
	upd["$set"] = set

	var d models.Department
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "tenant_id": tenantID},
		upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&d)
	switch {
	case err == nil:
		return d, nil
	case errors.Is(err, mongo.ErrNoDocuments):
		return models.Department{}, ErrNotFound
	case wafflemongo.IsDup(err):
		return models.Department{}, ErrDuplicateName
	default:
		return models.Department{}, err
	}
}

// ValidateParent checks that parentID is a department of tenantID and that
// attaching deptID under it keeps the tree acyclic. deptID is zero for a
// department that does not exist yet.
func (s *Store) ValidateParent(ctx context.Context, tenantID, deptID, parentID primitive.ObjectID) error {
	if !deptID.IsZero() && parentID == deptID {
		return ErrParentCycle
	}
	cur := parentID
	for depth := 0; depth < maxChainDepth; depth++ {
		var row struct {
			TenantID primitive.ObjectID  `bson:"tenant_id"`
			Parent   *primitive.ObjectID `bson:"parent_department_id"`
		}
		err := s.c.FindOne(ctx, bson.M{"_id": cur},
			options.FindOne().SetProjection(bson.M{"tenant_id": 1, "parent_department_id": 1}),
		).Decode(&row)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				if depth == 0 {
					return ErrParentNotInTenant
				}
				return nil
			}
			return err
		}
		if depth == 0 && row.TenantID != tenantID {
			return ErrParentNotInTenant
		}
		if row.Parent == nil {
			return nil
		}
		if !deptID.IsZero() && *row.Parent == deptID {
			return ErrParentCycle
		}
		cur = *row.Parent
	}
	return ErrParentCycle
}

// HasChildren reports whether any department names id as its parent.
func (s *Store) HasChildren(ctx context.Context, id primitive.ObjectID) (bool, error) {
	err := s.c.FindOne(ctx, bson.M{"parent_department_id": id},
		options.FindOne().SetProjection(bson.M{"_id": 1})).Err()
	if err == nil {
		return true, nil
	}
	if errors.Is(err, mongo.ErrNoDocuments) {
		return false, nil
	}
	return false, err
}

// Delete removes a department that has no sub-departments. Callers check
// for assigned employees first.
func (s *Store) Delete(ctx context.Context, tenantID, id primitive.ObjectID) error {
	has, err := s.HasChildren(ctx, id)
	if err != nil {
		return err
	}
	if has {
		return ErrHasChildren
	}
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}
