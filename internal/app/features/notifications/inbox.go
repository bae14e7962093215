// internal/app/features/notifications/inbox.go
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/lookup"
	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	notificationstore "github.com/dalemusser/perfhub/internal/app/store/notifications"
	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/paging"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

// ServeList handles GET /api/notifications.
// Query: ?status=unread|read|archived, ?limit, ?after.
func (h *Handler) ServeList(w http.ResponseWriter, r *http.Request) {
	u, err := gates.User(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	status := query.Get(r, "status")
	switch status {
	case "", models.NotificationUnread, models.NotificationRead, models.NotificationArchived:
	default:
		respond.Error(w, r, h.Log, apierr.Newf(apierr.InvalidParameterFormat, "status must be unread, read or archived."))
		return
	}
	p, err := paging.Parse(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	page, err := notificationstore.New(h.DB).List(ctx, u.UserObjectID(), status, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, page)
}

// ServeUnreadCount handles GET /api/notifications/unread-count.
func (h *Handler) ServeUnreadCount(w http.ResponseWriter, r *http.Request) {
	u, err := gates.User(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := notificationstore.New(h.DB).UnreadCount(ctx, u.UserObjectID())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]int64{"count": n})
}

// HandleRead handles POST /api/notifications/{id}/read.
func (h *Handler) HandleRead(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, (*notificationstore.Store).MarkRead)
}

// HandleArchive handles POST /api/notifications/{id}/archive.
func (h *Handler) HandleArchive(w http.ResponseWriter, r *http.Request) {
	h.change(w, r, (*notificationstore.Store).Archive)
}

type changeFunc func(s *notificationstore.Store, ctx context.Context, userID, id primitive.ObjectID) (models.Notification, error)

// change applies fn to one of the caller's notifications. Someone else's
// notification id is indistinguishable from a missing one.
func (h *Handler) change(w http.ResponseWriter, r *http.Request, fn changeFunc) {
	u, err := gates.User(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	id, err := respond.PathID(r, "id")
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := fn(notificationstore.New(h.DB), ctx, u.UserObjectID(), id)
	if err != nil {
		respond.Error(w, r, h.Log, lookup.NotFound(err, notificationstore.ErrNotFound, "Notification"))
		return
	}
	respond.OK(w, n)
}

// HandleReadAll handles POST /api/notifications/read-all.
func (h *Handler) HandleReadAll(w http.ResponseWriter, r *http.Request) {
	u, err := gates.User(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	n, err := notificationstore.New(h.DB).MarkAllRead(ctx, u.UserObjectID())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, map[string]int64{"updated": n})
}
