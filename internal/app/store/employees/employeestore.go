package employeestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/normalize"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/search"
	"github.com/dalemusser/perfhub/internal/domain/models"
	wafflemongo "github.com/dalemusser/waffle/pantry/mongo"
	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound = errors.New("employee not found")
	// ErrDuplicateUser is returned when the user already has an employee record.
	ErrDuplicateUser = errors.New("user already has an employee record")
	// ErrManagerNotInTenant is returned when the manager is missing or belongs
	// to another tenant.
	ErrManagerNotInTenant = errors.New("manager must be an employee of the same tenant")
	// ErrManagerCycle is returned when the new manager chain would loop back
	// to the employee.
	ErrManagerCycle = errors.New("manager assignment would create a reporting cycle")
	errBadStatus    = errors.New(`status must be "active"|"inactive"|"terminated"`)
)

// maxChainDepth bounds manager-chain walks on corrupted data.
const maxChainDepth = 256

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("employees")}
}

// Create inserts an employee with a fresh public feedback token. The caller
// has already reserved a tenant seat and validated manager and department.
func (s *Store) Create(ctx context.Context, e models.Employee) (models.Employee, error) {
	now := time.Now().UTC()
	e.ID = primitive.NewObjectID()
	e.FullName = normalize.Name(e.FullName)
	e.FullNameCI = normalize.NameCI(e.FullName)
	e.Email = normalize.Email(e.Email)
	e.JobTitle = normalize.Name(e.JobTitle)
	if e.Status == "" {
		e.Status = models.EmployeeActive
	}
	if !models.IsValidEmployeeStatus(e.Status) {
		return models.Employee{}, errBadStatus
	}
	e.FeedbackToken = uuid.NewString()
	e.CreatedAt = now
	e.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, e); err != nil {
		if wafflemongo.IsDup(err) {
			return models.Employee{}, ErrDuplicateUser
		}
		return models.Employee{}, err
	}
	return e, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Employee, error) {
	return s.findOne(ctx, bson.M{"_id": id})
}

func (s *Store) GetByUserID(ctx context.Context, userID primitive.ObjectID) (models.Employee, error) {
	return s.findOne(ctx, bson.M{"user_id": userID})
}

// GetByFeedbackToken resolves a public feedback link.
func (s *Store) GetByFeedbackToken(ctx context.Context, token string) (models.Employee, error) {
	token = normalize.Token(token)
	if token == "" {
		return models.Employee{}, ErrNotFound
	}
	return s.findOne(ctx, bson.M{"feedback_token": token})
}

func (s *Store) findOne(ctx context.Context, filter bson.M) (models.Employee, error) {
	var e models.Employee
	if err := s.c.FindOne(ctx, filter).Decode(&e); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Employee{}, ErrNotFound
		}
		return models.Employee{}, err
	}
	return e, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Listing                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// ListFilter narrows List. TenantID is required.
type ListFilter struct {
	TenantID     primitive.ObjectID
	DepartmentID *primitive.ObjectID
	ManagerID    *primitive.ObjectID
	Status       string
	Search       string
}

// List returns one page of a tenant's employees ordered by name, or by
// email when the search looks like an email and a status is given.
func (s *Store) List(ctx context.Context, f ListFilter, p paging.Params) (paging.Page[models.Employee], error) {
	filter := bson.M{"tenant_id": f.TenantID}
	if f.DepartmentID != nil {
		filter["department_id"] = *f.DepartmentID
	}
	if f.ManagerID != nil {
		filter["manager_id"] = *f.ManagerID
	}
	if f.Status != "" {
		filter["status"] = f.Status
	}
	q := search.Parse(f.Search, f.Status, "full_name_ci", "email")

	find := options.Find()
	ks, err := p.ByName(find, q.Field)
	if err != nil {
		return paging.Page[models.Employee]{}, err
	}

	cur, err := s.c.Find(ctx, paging.And(filter, q.Filter(), ks), find)
	if err != nil {
		return paging.Page[models.Employee]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Employee
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Employee]{}, err
	}
	key := func(e models.Employee) string { return e.FullNameCI }
	if q.Field == "email" {
		key = func(e models.Employee) string { return e.Email }
	}
	return paging.TrimByName(rows, p, key,
		func(e models.Employee) primitive.ObjectID { return e.ID },
	), nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Updates                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

// Ref is an optional nullable reference in an update. Set=false leaves the
// field alone; Set=true with a nil ID clears it.
type Ref struct {
	Set bool
	ID  *primitive.ObjectID
}

// Update holds the fields a tenant admin may change. Nil fields are left alone.
type Update struct {
	FullName   *string
	JobTitle   *string
	Status     *string
	HireDate   *time.Time
	Manager    Ref
	Department Ref
}

// Update applies u to the employee inside tenantID. References must be
// validated by the caller (ValidateManager, department lookup).
func (s *Store) Update(ctx context.Context, tenantID, id primitive.ObjectID, u Update) (models.Employee, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	unset := bson.M{}
	if u.FullName != nil {
		name := normalize.Name(*u.FullName)
		set["full_name"] = name
		set["full_name_ci"] = normalize.NameCI(name)
	}
	if u.JobTitle != nil {
		set["job_title"] = normalize.Name(*u.JobTitle)
	}
	if u.Status != nil {
		if !models.IsValidEmployeeStatus(*u.Status) {
			return models.Employee{}, errBadStatus
		}
		set["status"] = *u.Status
	}
	if u.HireDate != nil {
		set["hire_date"] = u.HireDate.UTC()
	}
	applyRef(set, unset, "manager_id", u.Manager)
	applyRef(set, unset, "department_id", u.Department)

	upd := bson.M{"$set": set}
	if len(unset) > 0 {
		upd["$unset"] = unset
	}

	var e models.Employee
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "tenant_id": tenantID},
		upd,
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&e)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Employee{}, ErrNotFound
	}
	return e, err
}

func applyRef(set, unset bson.M, field string, r Ref) {
	if !r.Set {
		return
	}
	if r.ID == nil {
		unset[field] = ""
		return
	}
	set[field] = *r.ID
}

// ValidateManager checks that managerID is an employee of tenantID and that
// making it employeeID's manager keeps the reporting chain acyclic.
// employeeID is zero for an employee that does not exist yet.
func (s *Store) ValidateManager(ctx context.Context, tenantID, employeeID, managerID primitive.ObjectID) error {
	if !employeeID.IsZero() && managerID == employeeID {
		return ErrManagerCycle
	}
	cur := managerID
	for depth := 0; depth < maxChainDepth; depth++ {
		var row struct {
			TenantID  primitive.ObjectID  `bson:"tenant_id"`
			ManagerID *primitive.ObjectID `bson:"manager_id"`
		}
		err := s.c.FindOne(ctx, bson.M{"_id": cur},
			options.FindOne().SetProjection(bson.M{"tenant_id": 1, "manager_id": 1}),
		).Decode(&row)
		if err != nil {
			if errors.Is(err, mongo.ErrNoDocuments) {
				if depth == 0 {
					return ErrManagerNotInTenant
				}
				return nil
			}
			return err
		}
		if depth == 0 && row.TenantID != tenantID {
			return ErrManagerNotInTenant
		}
		if row.ManagerID == nil {
			return nil
		}
		if !employeeID.IsZero() && *row.ManagerID == employeeID {
			return ErrManagerCycle
		}
		cur = *row.ManagerID
	}
	return ErrManagerCycle
}

// SetStatusMany updates the status of the listed employees that belong to
// tenantID. Ids from other tenants are ignored. It returns the number matched.
func (s *Store) SetStatusMany(ctx context.Context, tenantID primitive.ObjectID, ids []primitive.ObjectID, status string) (int64, error) {
	if !models.IsValidEmployeeStatus(status) {
		return 0, errBadStatus
	}
	if len(ids) == 0 {
		return 0, nil
	}
	res, err := s.c.UpdateMany(ctx,
		bson.M{"tenant_id": tenantID, "_id": bson.M{"$in": ids}},
		bson.M{"$set": bson.M{"status": status, "updated_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.MatchedCount, nil
}

// Delete removes the employee and detaches its direct reports.
func (s *Store) Delete(ctx context.Context, tenantID, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id, "tenant_id": tenantID})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	_, err = s.c.UpdateMany(ctx,
		bson.M{"tenant_id": tenantID, "manager_id": id},
		bson.M{"$unset": bson.M{"manager_id": ""}, "$set": bson.M{"updated_at": time.Now().UTC()}},
	)
	return err
}

/*─────────────────────────────────────────────────────────────────────────────*
| Counts                                                                       |
*─────────────────────────────────────────────────────────────────────────────*/

// CountInTenant returns the number of employee records in a tenant.
func (s *Store) CountInTenant(ctx context.Context, tenantID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"tenant_id": tenantID})
}

// CountInDepartment returns the number of employees assigned to a department.
func (s *Store) CountInDepartment(ctx context.Context, departmentID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"department_id": departmentID})
}

// CountByTenant returns employee counts grouped by tenant, for reconciling
// the tenants' seat counters.
func (s *Store) CountByTenant(ctx context.Context) (map[primitive.ObjectID]int, error) {
	cur, err := s.c.Aggregate(ctx, mongo.Pipeline{
		{{Key: "$group", Value: bson.M{"_id": "$tenant_id", "n": bson.M{"$sum": 1}}}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	out := make(map[primitive.ObjectID]int)
	for cur.Next(ctx) {
		var row struct {
			ID primitive.ObjectID `bson:"_id"`
			N  int                `bson:"n"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out[row.ID] = row.N
	}
	return out, cur.Err()
}
