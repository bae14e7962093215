package authgoogle_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	"github.com/dalemusser/perfhub/internal/app/features/authgoogle"
	"github.com/dalemusser/perfhub/internal/app/store/tenantcache"
	tenantstore "github.com/dalemusser/perfhub/internal/app/store/tenants"
	"github.com/dalemusser/perfhub/internal/app/system/auth"
	"github.com/dalemusser/perfhub/internal/app/system/authz"
	"github.com/dalemusser/perfhub/internal/testutil"
	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
	"golang.org/x/oauth2"
)

const (
	testStateKey = "test-oauth-state-key-0123456789ABCDEF"
	testAppURL   = "http://app.test"
)

// fakeGoogle serves the token and userinfo endpoints.
type fakeGoogle struct {
	srv      *httptest.Server
	email    string
	verified bool
}

func newFakeGoogle(t *testing.T, email string, verified bool) *fakeGoogle {
	t.Helper()
	g := &fakeGoogle{email: email, verified: verified}
	mux := http.NewServeMux()
	mux.HandleFunc("/token", func(w http.ResponseWriter, r *http.Request) {
		if err := r.ParseForm(); err != nil || r.PostForm.Get("code") != "good-code" {
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusBadRequest)
			_, _ = w.Write([]byte(`{"error":"invalid_grant"}`))
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"access_token":"test-token","token_type":"Bearer","expires_in":3600}`))
	})
	mux.HandleFunc("/userinfo", func(w http.ResponseWriter, r *http.Request) {
		if r.Header.Get("Authorization") != "Bearer test-token" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{
			"id":             "g-123",
			"email":          g.email,
			"verified_email": g.verified,
			"name":           "Google User",
		})
	})
	g.srv = httptest.NewServer(mux)
	t.Cleanup(g.srv.Close)
	return g
}

func newHandler(t *testing.T, db *mongo.Database, clientID string, g *fakeGoogle) *authgoogle.Handler {
	t.Helper()
	logger := zap.NewNop()

	sessionMgr, err := auth.NewSessionManager("test-session-key-for-testing-only-0123456789", "test-session", "", time.Hour, false, logger)
	if err != nil {
		t.Fatalf("NewSessionManager failed: %v", err)
	}
	tenants := tenantcache.New(tenantstore.New(db), time.Minute)

	h := authgoogle.NewHandler(db, sessionMgr, nil, tenants,
		clientID, "test-client-secret", "http://api.test", testAppURL, testStateKey, logger)
	if g != nil {
		h.Endpoint = oauth2.Endpoint{
			AuthURL:   g.srv.URL + "/auth",
			TokenURL:  g.srv.URL + "/token",
			AuthStyle: oauth2.AuthStyleInParams,
		}
		h.UserInfoURL = g.srv.URL + "/userinfo"
	}
	return h
}

// startLogin runs ServeLogin and returns the state cookie and state value.
func startLogin(t *testing.T, h *authgoogle.Handler, target string) (*http.Cookie, string) {
	t.Helper()
	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest(http.MethodGet, target, nil))
	testutil.AssertStatus(t, rec, http.StatusTemporaryRedirect)

	loc, err := url.Parse(rec.Header().Get("Location"))
	if err != nil {
		t.Fatalf("bad Location: %v", err)
	}
	state := loc.Query().Get("state")
	if state == "" {
		t.Fatal("expected state in consent URL")
	}
	var cookie *http.Cookie
	for _, c := range rec.Result().Cookies() {
		if c.Name == "perfhub_oauth_state" {
			cookie = c
		}
	}
	if cookie == nil {
		t.Fatal("expected state cookie")
	}
	return cookie, state
}

func callback(h *authgoogle.Handler, cookie *http.Cookie, rawQuery string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, "/api/callback?"+rawQuery, nil)
	if cookie != nil {
		req.AddCookie(cookie)
	}
	rec := httptest.NewRecorder()
	h.ServeCallback(rec, req)
	return rec
}

func hasSessionCookie(rec *httptest.ResponseRecorder) bool {
	for _, c := range rec.Result().Cookies() {
		if c.Name == "test-session" && c.Value != "" {
			return true
		}
	}
	return false
}

func TestIsConfigured(t *testing.T) {
	db := testutil.SetupTestDB(t)
	if !newHandler(t, db, "test-client-id", nil).IsConfigured() {
		t.Error("IsConfigured() should return true with client ID and secret")
	}
	if newHandler(t, db, "", nil).IsConfigured() {
		t.Error("IsConfigured() should return false without client ID")
	}
}

func TestServeLogin_NotConfigured(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, "", nil)

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest(http.MethodGet, "/api/login", nil))

	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != testAppURL+"/login?error=google_not_configured" {
		t.Errorf("Location = %q", loc)
	}
}

func TestServeLogin_RedirectsToGoogle(t *testing.T) {
	db := testutil.SetupTestDB(t)
	h := newHandler(t, db, "test-client-id", nil)

	rec := httptest.NewRecorder()
	h.ServeLogin(rec, httptest.NewRequest(http.MethodGet, "/api/login", nil))

	testutil.AssertStatus(t, rec, http.StatusTemporaryRedirect)
	loc := rec.Header().Get("Location")
	if !strings.Contains(loc, "accounts.google.com") {
		t.Errorf("Location = %q, want Google consent screen", loc)
	}
	if !strings.Contains(loc, "client_id=test-client-id") {
		t.Errorf("Location = %q, want client id", loc)
	}
	if !strings.Contains(loc, url.QueryEscape("http://api.test/api/callback")) {
		t.Errorf("Location = %q, want callback redirect", loc)
	}
}

func TestServeCallback_SignsInExistingUser(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	tenant := fx.CreateTenant(ctx, "Acme", "forming", 25)
	fx.CreateUser(ctx, "Ann Lee", "ann@acme.test", authz.Manager.String(), &tenant.ID)

	g := newFakeGoogle(t, "Ann@Acme.test", true)
	h := newHandler(t, db, "test-client-id", g)

	cookie, state := startLogin(t, h, "/api/login?return=/goals")
	rec := callback(h, cookie, "state="+url.QueryEscape(state)+"&code=good-code")

	testutil.AssertStatus(t, rec, http.StatusSeeOther)
	if loc := rec.Header().Get("Location"); loc != testAppURL+"/goals" {
		t.Errorf("Location = %q, want %q", loc, testAppURL+"/goals")
	}
	if !hasSessionCookie(rec) {
		t.Error("expected session cookie to be set")
	}
}

func TestServeCallback_Rejections(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx, cancel := testutil.TestContext()
	defer cancel()
	fx := testutil.NewFixtures(t, db)

	closed := fx.CreateTenant(ctx, "Closed", "forming", 25)
	fx.DeactivateTenant(ctx, closed.ID)
	fx.CreateUser(ctx, "Cal", "cal@closed.test", authz.Employee.String(), &closed.ID)

	tests := []struct {
		name     string
		email    string
		verified bool
		code     string
		want     string
	}{
		{"unknown account", "nobody@example.test", true, "good-code", "no_account"},
		{"unverified email", "cal@closed.test", false, "good-code", "email_unverified"},
		{"inactive tenant", "cal@closed.test", true, "good-code", "tenant_inactive"},
		{"bad code", "cal@closed.test", true, "bad-code", "token_exchange"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			g := newFakeGoogle(t, tt.email, tt.verified)
			h := newHandler(t, db, "test-client-id", g)

			cookie, state := startLogin(t, h, "/api/login")
			rec := callback(h, cookie, "state="+url.QueryEscape(state)+"&code="+tt.code)

			testutil.AssertStatus(t, rec, http.StatusSeeOther)
			if loc := rec.Header().Get("Location"); !strings.HasSuffix(loc, "error="+tt.want) {
				t.Errorf("Location = %q, want error %q", loc, tt.want)
			}
			if hasSessionCookie(rec) {
				t.Error("no session should be created")
			}
		})
	}
}

func TestServeCallback_State(t *testing.T) {
	db := testutil.SetupTestDB(t)
	g := newFakeGoogle(t, "x@example.test", true)
	h := newHandler(t, db, "test-client-id", g)

	t.Run("missing cookie", func(t *testing.T) {
		rec := callback(h, nil, "state=abc&code=good-code")
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
			t.Errorf("Location = %q, want invalid_state", loc)
		}
	})

	t.Run("mismatched state", func(t *testing.T) {
		cookie, _ := startLogin(t, h, "/api/login")
		rec := callback(h, cookie, "state=forged&code=good-code")
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_state") {
			t.Errorf("Location = %q, want invalid_state", loc)
		}
	})

	t.Run("google error", func(t *testing.T) {
		rec := callback(h, nil, "error=access_denied")
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, "google_denied") {
			t.Errorf("Location = %q, want google_denied", loc)
		}
	})

	t.Run("missing code", func(t *testing.T) {
		cookie, state := startLogin(t, h, "/api/login")
		rec := callback(h, cookie, "state="+url.QueryEscape(state))
		if loc := rec.Header().Get("Location"); !strings.Contains(loc, "invalid_code") {
			t.Errorf("Location = %q, want invalid_code", loc)
		}
	})
}
