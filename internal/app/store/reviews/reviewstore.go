package reviewstore

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
	ErrNotFound      = errors.New("review not found")
	errBadStatus     = errors.New(`status must be "draft"|"submitted"|"completed"`)
	errBadRating     = errors.New("overall rating must be between 1 and 5")
	errMissingPeriod = errors.New("period is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("reviews")}
}

// IsValidStatus reports whether s is a known review status.
func IsValidStatus(s string) bool {
	switch s {
	case models.ReviewDraft, models.ReviewSubmitted, models.ReviewCompleted:
		return true
	}
	return false
}

func validRating(n int) bool { return n == 0 || (n >= 1 && n <= 5) }

// Create inserts a review of emp. The tenant id is copied from the employee.
func (s *Store) Create(ctx context.Context, emp models.Employee, r models.PerformanceReview) (models.PerformanceReview, error) {
	if r.Period == "" {
		return models.PerformanceReview{}, errMissingPeriod
	}
	if r.Status == "" {
		r.Status = models.ReviewDraft
	}
	if !IsValidStatus(r.Status) {
		return models.PerformanceReview{}, errBadStatus
	}
	if !validRating(r.OverallRating) {
		return models.PerformanceReview{}, errBadRating
	}
	now := time.Now().UTC()
	r.ID = primitive.NewObjectID()
	r.EmployeeID = emp.ID
	r.TenantID = emp.TenantID
	if r.Status != models.ReviewDraft {
		r.SubmittedAt = &now
	}
	r.CreatedAt = now
	r.UpdatedAt = now

	if _, err := s.c.InsertOne(ctx, r); err != nil {
		return models.PerformanceReview{}, err
	}
	return r, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.PerformanceReview, error) {
	var r models.PerformanceReview
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&r); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.PerformanceReview{}, ErrNotFound
		}
		return models.PerformanceReview{}, err
	}
	return r, nil
}

// ListByEmployee returns an employee's reviews, newest first.
func (s *Store) ListByEmployee(ctx context.Context, employeeID primitive.ObjectID, p paging.Params) (paging.Page[models.PerformanceReview], error) {
	find := options.Find()
	ks, err := p.NewestFirst(find)
	if err != nil {
		return paging.Page[models.PerformanceReview]{}, err
	}
	cur, err := s.c.Find(ctx, paging.And(bson.M{"employee_id": employeeID}, ks), find)
	if err != nil {
		return paging.Page[models.PerformanceReview]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.PerformanceReview
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.PerformanceReview]{}, err
	}
	return paging.TrimNewestFirst(rows, p, func(r models.PerformanceReview) primitive.ObjectID { return r.ID }), nil
}

// Update holds the editable review fields. Nil fields are left alone.
type Update struct {
	Status        *string
	OverallRating *int
	Strengths     *string
	Improvements  *string
	Comments      *string
}

// Update applies u. Moving out of draft stamps submitted_at once.
func (s *Store) Update(ctx context.Context, id primitive.ObjectID, u Update) (models.PerformanceReview, error) {
	now := time.Now().UTC()
	set := bson.M{"updated_at": now}
	if u.Status != nil {
		if !IsValidStatus(*u.Status) {
			return models.PerformanceReview{}, errBadStatus
		}
		set["status"] = *u.Status
	}
	if u.OverallRating != nil {
		if !validRating(*u.OverallRating) {
			return models.PerformanceReview{}, errBadRating
		}
		set["overall_rating"] = *u.OverallRating
	}
	if u.Strengths != nil {
		set["strengths"] = *u.Strengths
	}
	if u.Improvements != nil {
		set["improvements"] = *u.Improvements
	}
	if u.Comments != nil {
		set["comments"] = *u.Comments
	}

	var r models.PerformanceReview
	err := s.c.FindOneAndUpdate(ctx, bson.M{"_id": id}, bson.M{"$set": set},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&r)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.PerformanceReview{}, ErrNotFound
	}
	if err != nil {
		return models.PerformanceReview{}, err
	}

	if r.Status != models.ReviewDraft && r.SubmittedAt == nil {
		if _, err := s.c.UpdateOne(ctx,
			bson.M{"_id": id, "submitted_at": bson.M{"$exists": false}},
			bson.M{"$set": bson.M{"submitted_at": now}}); err != nil {
			return models.PerformanceReview{}, err
		}
		r.SubmittedAt = &now
	}
	return r, nil
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

// DeleteByEmployee removes every review of an employee.
func (s *Store) DeleteByEmployee(ctx context.Context, employeeID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"employee_id": employeeID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
