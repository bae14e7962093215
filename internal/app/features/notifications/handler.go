// internal/app/features/notifications/handler.go
package notifications

import (
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

// Handler serves the signed-in user's own notifications and notification
// preferences. Every query is keyed by the session user id, so there is no
// cross-user or cross-tenant path.
type Handler struct {
	DB  *mongo.Database
	Log *zap.Logger
}

func NewHandler(db *mongo.Database, logger *zap.Logger) *Handler {
	return &Handler{DB: db, Log: logger}
}
