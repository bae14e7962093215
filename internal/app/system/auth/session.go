// internal/app/system/auth/session.go
package auth

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/gorilla/sessions"
	"go.uber.org/zap"
)

const userIDKey = "user_id"

// MinSessionKeyLen is the shortest session key accepted in production.
const MinSessionKeyLen = 32

// UserFetcher loads the current state of a user on every request so role
// changes, disabled accounts and tenant deactivation apply immediately.
// It returns nil when the user does not exist or is disabled.
type UserFetcher interface {
	FetchUser(ctx context.Context, userID string) *SessionUser
}

// SessionManager owns the cookie store and the auth middleware.
type SessionManager struct {
	store   *sessions.CookieStore
	name    string
	fetcher UserFetcher
	log     *zap.Logger
}

// NewSessionManager creates a cookie-backed session manager. secure marks
// cookies Secure with SameSite=None (production over HTTPS); otherwise
// SameSite=Lax so local http works.
func NewSessionManager(sessionKey, name, domain string, maxAge time.Duration, secure bool, logger *zap.Logger) (*SessionManager, error) {
	if sessionKey == "" {
		return nil, errors.New("session key is empty; provide 32+ random chars")
	}
	if len(sessionKey) < MinSessionKeyLen {
		logger.Warn("session key is short; 32+ chars recommended", zap.Int("length", len(sessionKey)))
	}
	if name == "" {
		name = "perfhub-session"
	}

	store := sessions.NewCookieStore([]byte(sessionKey))
	store.Options = &sessions.Options{
		Domain:   domain,
		Path:     "/",
		MaxAge:   int(maxAge.Seconds()),
		Secure:   secure,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	}
	if secure {
		store.Options.SameSite = http.SameSiteNoneMode
	}

	return &SessionManager{store: store, name: name, log: logger}, nil
}

// SetUserFetcher installs the fetcher used by LoadSessionUser.
func (sm *SessionManager) SetUserFetcher(f UserFetcher) {
	sm.fetcher = f
}

// Login starts a session for userID.
func (sm *SessionManager) Login(w http.ResponseWriter, r *http.Request, userID string) error {
	sess, _ := sm.store.Get(r, sm.name)
	sess.Values[userIDKey] = userID
	if err := sess.Save(r, w); err != nil {
		return fmt.Errorf("save session: %w", err)
	}
	return nil
}

// Logout ends the session.
func (sm *SessionManager) Logout(w http.ResponseWriter, r *http.Request) error {
	sess, _ := sm.store.Get(r, sm.name)
	delete(sess.Values, userIDKey)
	sess.Options.MaxAge = -1
	return sess.Save(r, w)
}

// SessionUserID returns the user id stored in the cookie, if any.
func (sm *SessionManager) SessionUserID(r *http.Request) string {
	sess, err := sm.store.Get(r, sm.name)
	if err != nil {
		return ""
	}
	id, _ := sess.Values[userIDKey].(string)
	return id
}

// LoadSessionUser injects a freshly fetched user when the request carries a
// session. A session for a user that no longer exists is treated as signed out.
func (sm *SessionManager) LoadSessionUser(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id := sm.SessionUserID(r)
		if id == "" || sm.fetcher == nil {
			next.ServeHTTP(w, r)
			return
		}
		if u := sm.fetcher.FetchUser(r.Context(), id); u != nil {
			r = withUser(r, u)
		}
		next.ServeHTTP(w, r)
	})
}

// RequireSignedIn rejects requests without a user (401) and users whose
// tenant is missing or inactive (403).
func (sm *SessionManager) RequireSignedIn(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		u, ok := CurrentUser(r)
		if !ok {
			apierr.Write(w, sm.log, apierr.New(apierr.Unauthenticated))
			return
		}
		if !u.IsPlatformAdmin() && !u.TenantActive {
			sm.log.Warn("inactive tenant user rejected",
				zap.String("user_id", u.ID),
				zap.String("tenant_id", u.TenantID))
			apierr.Write(w, sm.log, apierr.Newf(apierr.TenantAccessDenied, "Your organization's account is inactive."))
			return
		}
		next.ServeHTTP(w, r)
	})
}

// RequireRole allows users ranked at or above min. It implies RequireSignedIn.
func (sm *SessionManager) RequireRole(min authz.Role) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return sm.RequireSignedIn(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			u, _ := CurrentUser(r)
			d, err := authz.DecideRole(u.Caller(), min)
			if err != nil || !d.Allowed {
				sm.log.Warn("role check denied",
					zap.String("user_id", u.ID),
					zap.String("role", u.Role),
					zap.String("required", min.String()),
					zap.String("path", r.URL.Path))
				apierr.Write(w, sm.log, apierr.New(apierr.InsufficientRole))
				return
			}
			next.ServeHTTP(w, r)
		}))
	}
}
