// internal/app/features/authgoogle/handler.go
package authgoogle

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"time"

	userstore "github.com/dalemusser/perfhub/internal/app/store/users"
	"github.com/dalemusser/perfhub/internal/app/system/auditlog"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/gates"
	"github.com/dalemusser/perfhub/internal/app/system/timeouts"
	"github.com/dalemusser/perfhub/internal/domain/models"
	"github.com/dalemusser/waffle/pantry/query"
	"github.com/dalemusser/waffle/pantry/urlutil"
	"github.com/gorilla/securecookie"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
)

const (
	stateCookieName = "perfhub_oauth_state"
	stateTTL        = 10 * time.Minute

	// GoogleUserInfoURL is Google's OAuth2 userinfo endpoint.
	GoogleUserInfoURL = "https://www.googleapis.com/oauth2/v2/userinfo"
)

// Handler handles Google OAuth sign-in. Accounts are never created here:
// the Google email must match an existing, active user.
type Handler struct {
	DB         *mongo.Database
	Log        *zap.Logger
	SessionMgr *auth.SessionManager
	AuditLog   *auditlog.Logger
	Tenants    gates.TenantSource

	// OAuth configuration
	ClientID     string
	ClientSecret string
	RedirectURL  string // e.g., "https://perfhub.example.com/api/callback"

	// AppURL is the front-end origin users land on after the callback.
	AppURL string

	// Endpoint and UserInfoURL default to Google's and are overridden in tests.
	Endpoint    oauth2.Endpoint
	UserInfoURL string

	state *securecookie.SecureCookie
}

// NewHandler creates a Google OAuth handler. stateKey signs the short-lived
// state cookie and must be at least 32 bytes.
func NewHandler(
	db *mongo.Database,
	sessionMgr *auth.SessionManager,
	audit *auditlog.Logger,
	tenants gates.TenantSource,
	clientID, clientSecret, baseURL, appURL, stateKey string,
	logger *zap.Logger,
) *Handler {
	sc := securecookie.New([]byte(stateKey), nil)
	sc.MaxAge(int(stateTTL.Seconds()))
	return &Handler{
		DB:           db,
		Log:          logger,
		SessionMgr:   sessionMgr,
		AuditLog:     audit,
		Tenants:      tenants,
		ClientID:     clientID,
		ClientSecret: clientSecret,
		RedirectURL:  baseURL + "/api/callback",
		AppURL:       appURL,
		Endpoint:     google.Endpoint,
		UserInfoURL:  GoogleUserInfoURL,
		state:        sc,
	}
}

// oauth2Config returns the OAuth2 configuration.
func (h *Handler) oauth2Config() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     h.ClientID,
		ClientSecret: h.ClientSecret,
		RedirectURL:  h.RedirectURL,
		Scopes: []string{
			"openid",
			"https://www.googleapis.com/auth/userinfo.email",
			"https://www.googleapis.com/auth/userinfo.profile",
		},
		Endpoint: h.Endpoint,
	}
}

// IsConfigured returns true if Google OAuth is configured.
func (h *Handler) IsConfigured() bool {
	return h.ClientID != "" && h.ClientSecret != ""
}

// oauthState is the payload of the signed state cookie.
type oauthState struct {
	State  string `json:"s"`
	Return string `json:"r,omitempty"`
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/login                                                               |
| Redirects to Google's consent screen.                                        |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeLogin(w http.ResponseWriter, r *http.Request) {
	if !h.IsConfigured() {
		h.Log.Warn("Google OAuth not configured")
		h.redirectToLogin(w, r, "google_not_configured")
		return
	}

	state, err := generateState()
	if err != nil {
		h.Log.Error("failed to generate OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	returnURL := query.Get(r, "return")
	encoded, err := h.state.Encode(stateCookieName, oauthState{State: state, Return: returnURL})
	if err != nil {
		h.Log.Error("failed to encode OAuth state", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    encoded,
		Path:     "/api",
		MaxAge:   int(stateTTL.Seconds()),
		HttpOnly: true,
		Secure:   r.TLS != nil,
		SameSite: http.SameSiteLaxMode,
	})

	dest := h.oauth2Config().AuthCodeURL(state, oauth2.AccessTypeOnline)
	h.Log.Debug("initiating Google OAuth flow", zap.String("return_url", returnURL))
	http.Redirect(w, r, dest, http.StatusTemporaryRedirect)
}

/*─────────────────────────────────────────────────────────────────────────────*
| GET /api/callback                                                            |
| Exchanges the code, matches the Google email to a user and signs them in.   |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) ServeCallback(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()

	if errParam := query.Get(r, "error"); errParam != "" {
		h.Log.Warn("Google OAuth error",
			zap.String("error", errParam),
			zap.String("description", query.Get(r, "error_description")))
		h.redirectToLogin(w, r, "google_denied")
		return
	}

	saved, ok := h.readState(r)
	clearStateCookie(w)
	if !ok || saved.State == "" || saved.State != query.Get(r, "state") {
		h.Log.Warn("invalid or expired OAuth state")
		h.redirectToLogin(w, r, "invalid_state")
		return
	}

	code := query.Get(r, "code")
	if code == "" {
		h.Log.Warn("missing OAuth code parameter")
		h.redirectToLogin(w, r, "invalid_code")
		return
	}

	exCtx, cancel := context.WithTimeout(ctx, timeouts.Provider())
	defer cancel()

	token, err := h.oauth2Config().Exchange(exCtx, code)
	if err != nil {
		h.Log.Error("failed to exchange OAuth code", zap.Error(err))
		h.redirectToLogin(w, r, "token_exchange")
		return
	}

	googleUser, err := h.fetchUserInfo(exCtx, token)
	if err != nil {
		h.Log.Error("failed to fetch Google user info", zap.Error(err))
		h.redirectToLogin(w, r, "user_info")
		return
	}
	if !googleUser.EmailVerified {
		h.AuditLog.LoginFailed(ctx, r, googleUser.Email, "google email not verified")
		h.redirectToLogin(w, r, "email_unverified")
		return
	}

	u, err := h.findUser(ctx, googleUser.Email)
	switch {
	case errors.Is(err, errUserNotFound):
		h.Log.Info("Google OAuth: user not found", zap.String("email", googleUser.Email))
		h.AuditLog.LoginFailed(ctx, r, googleUser.Email, "user not found")
		h.redirectToLogin(w, r, "no_account")
		return
	case errors.Is(err, errUserDisabled):
		h.AuditLog.LoginFailed(ctx, r, googleUser.Email, "user disabled")
		h.redirectToLogin(w, r, "account_disabled")
		return
	case errors.Is(err, errTenantInactive):
		h.AuditLog.LoginFailed(ctx, r, googleUser.Email, "tenant inactive")
		h.redirectToLogin(w, r, "tenant_inactive")
		return
	case err != nil:
		h.Log.Error("failed to look up user", zap.Error(err))
		h.redirectToLogin(w, r, "internal")
		return
	}

	if err := h.SessionMgr.Login(w, r, u.ID.Hex()); err != nil {
		h.Log.Error("save session failed", zap.Error(err), zap.String("user_id", u.ID.Hex()))
		h.redirectToLogin(w, r, "session")
		return
	}

	tenantID := primitive.NilObjectID
	if u.TenantID != nil {
		tenantID = *u.TenantID
	}
	h.AuditLog.LoginSuccess(ctx, r, u.ID, tenantID, "google")
	h.Log.Info("user logged in via Google OAuth", zap.String("user_id", u.ID.Hex()))

	http.Redirect(w, r, h.AppURL+urlutil.SafeReturn(saved.Return, "", "/"), http.StatusSeeOther)
}

/*─────────────────────────────────────────────────────────────────────────────*
| User lookup                                                                  |
*─────────────────────────────────────────────────────────────────────────────*/

var (
	errUserNotFound   = errors.New("user not found")
	errUserDisabled   = errors.New("user disabled")
	errTenantInactive = errors.New("tenant inactive")
)

// googleUserInfo represents user info returned from Google.
type googleUserInfo struct {
	ID            string `json:"id"`
	Email         string `json:"email"`
	EmailVerified bool   `json:"verified_email"`
	Name          string `json:"name"`
}

// fetchUserInfo retrieves user information from the userinfo endpoint.
func (h *Handler) fetchUserInfo(ctx context.Context, token *oauth2.Token) (*googleUserInfo, error) {
	client := oauth2.NewClient(ctx, oauth2.StaticTokenSource(token))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.UserInfoURL, nil)
	if err != nil {
		return nil, err
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("failed to fetch user info: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status code: %d", resp.StatusCode)
	}

	var info googleUserInfo
	if err := json.NewDecoder(resp.Body).Decode(&info); err != nil {
		return nil, fmt.Errorf("failed to decode user info: %w", err)
	}
	return &info, nil
}

// findUser loads the user for a verified Google email and checks that the
// account and its tenant may sign in.
func (h *Handler) findUser(ctx context.Context, email string) (models.User, error) {
	ctx, cancel := context.WithTimeout(ctx, timeouts.Short())
	defer cancel()

	u, err := userstore.New(h.DB).GetByEmail(ctx, email)
	if errors.Is(err, userstore.ErrNotFound) {
		return models.User{}, errUserNotFound
	}
	if err != nil {
		return models.User{}, err
	}
	if u.Status == userstore.StatusDisabled {
		return models.User{}, errUserDisabled
	}
	if u.TenantID != nil && h.Tenants != nil {
		t, err := h.Tenants.Get(ctx, *u.TenantID)
		if err != nil || !t.IsActive {
			return models.User{}, errTenantInactive
		}
	}
	return u, nil
}

/*─────────────────────────────────────────────────────────────────────────────*
| Helpers                                                                      |
*─────────────────────────────────────────────────────────────────────────────*/

func (h *Handler) readState(r *http.Request) (oauthState, bool) {
	var st oauthState
	c, err := r.Cookie(stateCookieName)
	if err != nil {
		return st, false
	}
	if err := h.state.Decode(stateCookieName, c.Value, &st); err != nil {
		h.Log.Debug("OAuth state cookie rejected", zap.Error(err))
		return st, false
	}
	return st, true
}

func clearStateCookie(w http.ResponseWriter) {
	http.SetCookie(w, &http.Cookie{
		Name:     stateCookieName,
		Value:    "",
		Path:     "/api",
		MaxAge:   -1,
		HttpOnly: true,
		SameSite: http.SameSiteLaxMode,
	})
}

// redirectToLogin sends the browser back to the front-end login page.
func (h *Handler) redirectToLogin(w http.ResponseWriter, r *http.Request, errorCode string) {
	http.Redirect(w, r, h.AppURL+"/login?error="+url.QueryEscape(errorCode), http.StatusSeeOther)
}

// generateState creates a cryptographically secure random state string.
func generateState() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.URLEncoding.EncodeToString(b), nil
}
