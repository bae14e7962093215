// internal/app/store/preferences/preferencestore.go
package preferencestore

import (
	"context"
	"errors"
	"time"

	"github.com/dalemusser/perfhub/internal/domain/models"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"
)

// Store provides access to the notification_preferences collection.
// Each user has at most one document, keyed by user id.
type Store struct {
	c *mongo.Collection
}

// New creates a new preferences store.
func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notification_preferences")}
}

// Get returns the user's preferences. A user with no stored document gets
// models.DefaultNotificationPreferences.
func (s *Store) Get(ctx context.Context, userID primitive.ObjectID) (models.NotificationPreferences, error) {
	var p models.NotificationPreferences
	err := s.c.FindOne(ctx, bson.M{"_id": userID}).Decode(&p)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.DefaultNotificationPreferences(userID), nil
	}
	if err != nil {
		return models.NotificationPreferences{}, err
	}
	return p, nil
}

// Save replaces the user's preferences, creating the document if needed.
func (s *Store) Save(ctx context.Context, p models.NotificationPreferences) (models.NotificationPreferences, error) {
	p.UpdatedAt = time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": p.UserID},
		bson.M{"$set": bson.M{
			"email":          p.Email,
			"push":           p.Push,
			"feedback":       p.Feedback,
			"goal_reminders": p.GoalReminders,
			"weekly_digest":  p.WeeklyDigest,
			"updated_at":     p.UpdatedAt,
		}},
		options.Update().SetUpsert(true),
	)
	if err != nil {
		return models.NotificationPreferences{}, err
	}
	return p, nil
}

// Delete removes stored preferences so the user falls back to defaults.
func (s *Store) Delete(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteOne(ctx, bson.M{"_id": userID})
	return err
}
