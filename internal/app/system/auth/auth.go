// internal/app/system/auth/auth.go
package auth

import (
	"context"
	"net/http"

	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"go.mongodb.org/mongo-driver/bson/primitive"
)

/*─────────────────────────────────────────────────────────────────────────────*
| Current user                                                                 |
*─────────────────────────────────────────────────────────────────────────────*/

// SessionUser is the freshly loaded identity injected into r.Context().
type SessionUser struct {
	ID       string
	Name     string
	Email    string
	Role     string
	TenantID string // empty for platform admins

	// TenantActive is false when the user's tenant is missing or deactivated.
	// Such users are signed in but may not act.
	TenantActive bool
}

// IsPlatformAdmin reports whether the user bypasses tenant scoping.
func (u *SessionUser) IsPlatformAdmin() bool {
	return u != nil && u.Role == authz.PlatformAdmin.String()
}

// UserObjectID parses ID. It returns NilObjectID when ID is malformed.
func (u *SessionUser) UserObjectID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(u.ID)
	return id
}

// TenantObjectID parses TenantID. It returns NilObjectID for platform admins.
func (u *SessionUser) TenantObjectID() primitive.ObjectID {
	id, _ := primitive.ObjectIDFromHex(u.TenantID)
	return id
}

// Caller converts the session user into the guard's input. Unknown roles
// yield a zero Role, which the guard reports as malformed.
func (u *SessionUser) Caller() authz.Caller {
	role, _ := authz.ParseRole(u.Role)
	return authz.Caller{
		UserID:   u.UserObjectID(),
		Role:     role,
		TenantID: u.TenantObjectID(),
	}
}

type ctxKey string

const currentUserKey ctxKey = "currentUser"

// CurrentUser returns the user and a found flag.
func CurrentUser(r *http.Request) (*SessionUser, bool) {
	u, ok := r.Context().Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

// UserFromContext is CurrentUser for code that only has a context.
func UserFromContext(ctx context.Context) (*SessionUser, bool) {
	u, ok := ctx.Value(currentUserKey).(*SessionUser)
	return u, ok && u != nil
}

func withUser(r *http.Request, u *SessionUser) *http.Request {
	return r.WithContext(context.WithValue(r.Context(), currentUserKey, u))
}

// WithTestUser injects u without a session. Only tests call it.
func WithTestUser(r *http.Request, u *SessionUser) *http.Request {
	return withUser(r, u)
}
