package goalstore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

var (
	ErrNotFound     = errors.New("goal not found")
	errBadStatus    = errors.New(`status must be "not_started"|"in_progress"|"completed"|"cancelled"`)
	errBadProgress  = errors.New("progress must be between 0 and 100")
	errMissingTitle = errors.New("title is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("goals")}
}

// IsValidStatus reports whether s is a known goal status.
func IsValidStatus(s string) bool {
	switch s {
	case models.GoalNotStarted, models.GoalInProgress, models.GoalCompleted, models.GoalCancelled:
		return true
	}
	return false
}

// Create inserts a goal for emp. The tenant id is always copied from the
// employee, never taken from g.
func (s *Store) Create(ctx context.Context, emp models.Employee, g models.Goal) (models.Goal, error) {
	if g.Title == "" {
		return models.Goal{}, errMissingTitle
	}
	if g.Status == "" {
		g.Status = models.GoalNotStarted
	}
	if !IsValidStatus(g.Status) {
		return models.Goal{}, errBadStatus
	}
	if g.Progress < 0 || g.Progress > 100 {
		return models.Goal{}, errBadProgress
	}
	now := time.Now().UTC()
	g.ID = primitive.NewObjectID()
	g.EmployeeID = emp.ID
	g.TenantID = emp.TenantID
	g.CreatedAt = now
	g.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, g); err != nil {
		return models.Goal{}, err
	}
	return g, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Goal, error) {
	var g models.Goal
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&g); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Goal{}, ErrNotFound
		}
		return models.Goal{}, err
	}
	return g, nil
}

// ListByEmployee returns an employee's goals, newest first. An empty status
// returns all statuses.
func (s *Store) ListByEmployee(ctx context.Context, employeeID primitive.ObjectID, status string, p paging.Params) (paging.Page[models.Goal], error) {
	filter := bson.M{"employee_id": employeeID}
	if status != "" {
		filter["status"] = status
	}
	find := options.Find()
	ks, err := p.NewestFirst(find)
	if err != nil {
		return paging.Page[models.Goal]{}, err
	}
	cur, err := s.c.Find(ctx, paging.And(filter, ks), find)
	if err != nil {
		return paging.Page[models.Goal]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Goal
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Goal]{}, err
	}
	return paging.TrimNewestFirst(rows, p, func(g models.Goal) primitive.ObjectID { return g.ID }), nil
}

// Update holds the editable goal fields. Nil fields are left alone.
type Update struct {
	Title       *string
	Description *string
	Category    *string
	Status      *string
	Progress    *int
	DueDate     *time.Time
}

func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.Goal, error) {
	set := bson.M{"updated_at": time.Now().UTC()}
	if u.Title != nil {
		if *u.Title == "" {
			return models.Goal{}, errMissingTitle
		}
		set["title"] = *u.Title
	}
	if u.Description != nil {
		set["description"] = *u.Description
	}
	if u.Category != nil {
		set["category"] = *u.Category
	}
	if u.Status != nil {
		if !IsValidStatus(*u.Status) {
			return models.Goal{}, errBadStatus
		}
		set["status"] = *u.Status
	}
	if u.Progress != nil {
		if *u.Progress < 0 || *u.Progress > 100 {
			return models.Goal{}, errBadProgress
		}
		set["progress"] = *u.Progress
	}
	if u.DueDate != nil {
		set["due_date"] = u.DueDate.UTC()
	}

	var g models.Goal
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&g)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Goal{}, ErrNotFound
	}
	return g, err
}

func (s *Store) Delete(ctx context.Context, id primitive.ObjectID) error {
	res, err := s.c.DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		return err
	}
	if res.DeletedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// DeleteByEmployee removes every goal of an employee.
func (s *Store) DeleteByEmployee(ctx context.Context, employeeID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"employee_id": employeeID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DueBetween returns open goals due in [from, to), for reminder jobs.
func (s *Store) DueBetween(ctx context.Context, from, to time.Time) ([]models.Goal, error) {
	cur, err := s.c.Find(ctx, bson.M{
		"due_date": bson.M{"$gte": from, "$lt": to},
		"status":   bson.M{"$in": bson.A{models.GoalNotStarted, models.GoalInProgress}},
	})
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []models.Goal
	if err := cur.All(ctx, &out); err != nil {
		return nil, err
	}
	return out, nil
}
