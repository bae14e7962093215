// internal/app/features/notifications/preferences.go
package notifications

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/features/shared/respond"
	preferencestore "github.com/dalemusser/perfhub/internal/app/store/preferences"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/inputval"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
)

// preferencesRequest leaves omitted switches unchanged.
type preferencesRequest struct {
	Email         *bool `json:"emailNotifications"`
	Push          *bool `json:"pushNotifications"`
	Feedback      *bool `json:"feedbackNotifications"`
	GoalReminders *bool `json:"goalReminders"`
	WeeklyDigest  *bool `json:"weeklyDigest"`
}

// ServePreferences handles GET /api/notifications/preferences. Users who
// never saved preferences get the defaults.
func (h *Handler) ServePreferences(w http.ResponseWriter, r *http.Request) {
	u, err := gates.User(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	p, err := preferencestore.New(h.DB).Get(ctx, u.UserObjectID())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, p)
}

// HandleSavePreferences handles PUT /api/notifications/preferences.
func (h *Handler) HandleSavePreferences(w http.ResponseWriter, r *http.Request) {
	u, err := gates.User(r)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	var req preferencesRequest
	if err := inputval.Decode(r, &req); err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), timeouts.Short())
	defer cancel()

	store := preferencestore.New(h.DB)
	p, err := store.Get(ctx, u.UserObjectID())
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	apply(&p.Email, req.Email)
	apply(&p.Push, req.Push)
	apply(&p.Feedback, req.Feedback)
	apply(&p.GoalReminders, req.GoalReminders)
	apply(&p.WeeklyDigest, req.WeeklyDigest)

	saved, err := store.Save(ctx, p)
	if err != nil {
		respond.Error(w, r, h.Log, err)
		return
	}
	respond.OK(w, saved)
}

func apply(dst *bool, v *bool) {
	if v != nil {
		*dst = *v
	}
}
