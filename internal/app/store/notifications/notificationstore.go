package notificationstore

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
	ErrNotFound  = errors.New("notification not found")
	errBadType   = errors.New("unknown notification type")
	errBadStatus = errors.New(`status must be "unread"|"read"|"archived"`)
)

type Store struct {
	c *mongo.Collection
}

func New(db *mongo.Database) *Store {
	return &Store{c: db.Collection("notifications")}
}

// Create persists a new unread notification.
func (s *Store) Create(ctx context.Context, n models.Notification) (models.Notification, error) {
	if !models.IsValidNotificationType(n.Type) {
		return models.Notification{}, errBadType
	}
	n.ID = primitive.NewObjectID()
	n.Status = models.NotificationUnread
	n.ReadAt = nil
	n.CreatedAt = time.Now().UTC()

	if _, err := s.c.InsertOne(ctx, n); err != nil {
		return models.Notification{}, err
	}
	return n, nil
}

// List returns a user's notifications, newest first. An empty status
// returns unread and read; archived rows only appear when asked for.
func (s *Store) List(ctx context.Context, userID primitive.ObjectID, status string, p paging.Params) (paging.Page[models.Notification], error) {
	filter := bson.M{"user_id": userID}
	switch status {
	case "":
		filter["status"] = bson.M{"$ne": models.NotificationArchived}
	case models.NotificationUnread, models.NotificationRead, models.NotificationArchived:
		filter["status"] = status
	default:
		return paging.Page[models.Notification]{}, errBadStatus
	}

	find := options.Find()
	ks, err := p.NewestFirst(find)
	if err != nil {
		return paging.Page[models.Notification]{}, err
	}
	cur, err := s.c.Find(ctx, paging.And(filter, ks), find)
	if err != nil {
		return paging.Page[models.Notification]{}, err
	}
	defer cur.Close(ctx)

	var rows []models.Notification
	if err := cur.All(ctx, &rows); err != nil {
		return paging.Page[models.Notification]{}, err
	}
	return paging.TrimNewestFirst(rows, p, func(n models.Notification) primitive.ObjectID { return n.ID }), nil
}

// UnreadCount returns how many unread notifications the user has.
func (s *Store) UnreadCount(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	return s.c.CountDocuments(ctx, bson.M{"user_id": userID, "status": models.NotificationUnread})
}

// MarkRead marks one of the user's notifications read. Already-read rows
// keep their original read_at.
func (s *Store) MarkRead(ctx context.Context, userID, id primitive.ObjectID) (models.Notification, error) {
	now := time.Now().UTC()
	_, err := s.c.UpdateOne(ctx,
		bson.M{"_id": id, "user_id": userID, "status": models.NotificationUnread},
		bson.M{"$set": bson.M{"status": models.NotificationRead, "read_at": now}},
	)
	if err != nil {
		return models.Notification{}, err
	}
	return s.get(ctx, userID, id)
}

// MarkAllRead marks every unread notification of the user read and returns
// how many changed.
func (s *Store) MarkAllRead(ctx context.Context, userID primitive.ObjectID) (int64, error) {
	res, err := s.c.UpdateMany(ctx,
		bson.M{"user_id": userID, "status": models.NotificationUnread},
		bson.M{"$set": bson.M{"status": models.NotificationRead, "read_at": time.Now().UTC()}},
	)
	if err != nil {
		return 0, err
	}
	return res.ModifiedCount, nil
}

// Archive hides a notification from the default list.
func (s *Store) Archive(ctx context.Context, userID, id primitive.ObjectID) (models.Notification, error) {
	var n models.Notification
	err := s.c.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "user_id": userID},
		bson.M{"$set": bson.M{"status": models.NotificationArchived}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&n)
	if errors.Is(err, mongo.ErrNoDocuments) {
		return models.Notification{}, ErrNotFound
	}
	return n, err
}

func (s *Store) get(ctx context.Context, userID, id primitive.ObjectID) (models.Notification, error) {
	var n models.Notification
	if err := s.c.FindOne(ctx, bson.M{"_id": id, "user_id": userID}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return models.Notification{}, ErrNotFound
		}
		return models.Notification{}, err
	}
	return n, nil
}

// DeleteArchivedBefore purges archived notifications created before cutoff
// and returns how many were removed.
func (s *Store) DeleteArchivedBefore(ctx context.Context, cutoff time.Time) (int64, error) {
	res, err := s.c.DeleteMany(ctx, bson.M{
		"status":     models.NotificationArchived,
		"created_at": bson.M{"$lt": cutoff},
	})
	if err != nil {
		return 0, err
	}
	return res.DeletedCount, nil
}

// DeleteByUser removes all of a user's notifications.
func (s *Store) DeleteByUser(ctx context.Context, userID primitive.ObjectID) error {
	_, err := s.c.DeleteMany(ctx, bson.M{"user_id": userID})
	return err
}
