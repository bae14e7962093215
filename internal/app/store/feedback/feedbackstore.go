package feedbackstore

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

// Feedback kinds.
const (
	KindPositive     = "positive"
	KindConstructive = "constructive"
	KindGeneral      = "general"
)

var (
	ErrNotFound       = errors.New("feedback not found")
	errBadKind        = errors.New(`type must be "positive"|"constructive"|"general"`)
	errBadRating      = errors.New("rating must be between 1 and 5")
	errMissingContent = errors.New("content is required")
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("feedback")}
}

// IsValidKind reports whether k is a known feedback kind.
func IsValidKind(k string) bool {
	switch k {
	case KindPositive, KindConstructive, KindGeneral:
		return true
	}
	return false
}

// Create records feedback about emp. The tenant id is copied from the
// employee. Anonymous feedback never stores the giver's identity.
func (s *Store) Create(ctx context.Context, emp models.Employee, f models.Feedback) (models.Feedback, error) {
	if f.Content == "" {
		return models.Feedback{}, errMissingContent
	}
	if f.Kind == "" {
		f.Kind = KindGeneral
	}
	if !IsValidKind(f.Kind) {
		return models.Feedback{}, errBadKind
	}
	if f.Rating != 0 && (f.Rating < 1 || f.Rating > 5) {
		return models.Feedback{}, errBadRating
	}
	if f.IsAnonymous {
		f.GiverUserID = nil
		f.GiverName = ""
	}
	if f.Source == "" {
		f.Source = models.FeedbackInternal
	}
	f.ID = primitive.NewObjectID()
	f.EmployeeID = emp.ID
	f.TenantID = emp.TenantID
	f.CreatedAt = time.Now().UTC()

	if _, err := s.c.InsertOne(ctx, f); err != nil {
		return models.Feedback{}, err
	}
	return f, nil
}

func (s *Store) GetByID(ctx context.Context, id primitive.ObjectID) (models.Feedback, error) {
	var f models.Feedback
	if err := s.c.FindOne(ctx, bson.M{"_id": id}).Decode(&f); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Feedback{}, ErrNotFound
		}
		return models.Feedback{}, err
	}
	return f, nil
}

// ListByEmployee returns feedback about an employee, newest first.
func (s *Store) ListByEmployee(ctx context.Context, employeeID primitive.ObjectID, p paging.Params) (paging.Page[models.Feedback], error) {
	find := options.Find()
	ks, err := p.NewestFirst(find)
	if err != nil {
		return paging.Page[models.Feedback]{}, err
	}
	cur, err := s.c.Find(ctx, paging.And(bson.M{"employee_id": employeeID}, ks), find)
	if err != nil {
		return paging.Page[models.Feedback]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Feedback
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Feedback]{}, err
	}
	return paging.TrimNewestFirst(rows, p, func(f models.Feedback) primitive.ObjectID { return f.ID }), nil
}

// RecentContent returns the text of up to limit most recent feedback
// entries for an employee, newest first.
func (s *Store) RecentContent(ctx context.Context, employeeID primitive.ObjectID, limit int64) ([]string, error) {
	cur, err := s.c.Find(ctx, bson.M{"employee_id": employeeID},
		options.Find().
			SetSort(bson.D{{Key: "_id", Value: -1}}).
			SetLimit(limit).
			SetProjection(bson.M{"content": 1}))
	if err != nil {
		return nil, err
	}
	defer cur.Close(ctx)

	var out []string
	for cur.Next(ctx) {
		var row struct {
			Content string `bson:"content"`
		}
		if err := cur.Decode(&row); err != nil {
			return nil, err
		}
		out = append(out, row.Content)
	}
	return out, cur.Err()
}

// DeleteByEmployee removes every feedback entry about an employee.
func (s *Store) DeleteByEmployee(ctx context.Context, employeeID primitive.ObjectID) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{"employee_id": employeeID})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}
