// internal/app/features/health/handler.go
package health

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	"github.com/dalemusser/perfhub/internal/app/system/notify"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/readpref"
	"go.uber.org/zap"
)

// StatsSource reports notification delivery counters.
type StatsSource interface {
	Stats() notify.Stats
}

// Handler holds dependencies needed for health checks.
type Handler struct {
	Client *mongo.Client
	Notify StatsSource
	Log    *zap.Logger
}

// NewHandler constructs a health Handler. notifier may be nil.
func NewHandler(client *mongo.Client, notifier StatsSource, logger *zap.Logger) *Handler {
	return &Handler{
		Client: client,
		Notify: notifier,
		Log:    logger,
	}
}

// healthResponse is the JSON structure for the health check response.
type healthResponse struct {
	Status        string        `json:"status"`
	Database      string        `json:"database"`
	Message       string        `json:"message,omitempty"`
	Notifications *notify.Stats `json:"notifications,omitempty"`
}

// Serve handles GET /health.
//
// On success: 200 and
//
//	{ "status":"ok", "database":"connected", "notifications":{...} }
//
// On DB failure: 503 and
//
//	{ "status":"error", "database":"disconnected", "message":"Database unavailable" }
func (h *Handler) Serve(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Ping())
	defer cancel()

	resp := healthResponse{
		Status:   "ok",
		Database: "connected",
	}
	if h.Notify != nil {
		s := h.Notify.Stats()
		resp.Notifications = &s
	}

	if err := h.Client.Ping(ctx, readpref.Primary()); err != nil {
		h.Log.Error("health-check: mongo ping failed", zap.Error(err))
		resp.Status = "error"
		resp.Database = "disconnected"
		resp.Message = "Database unavailable"
		respond.JSON(w, http.StatusServiceUnavailable, resp)
		return
	}

	respond.OK(w, resp)
}
