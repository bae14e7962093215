package apierr_test

import (
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/dalemusser/perfhub/internal/app/system/apierr"
	"go.uber.org/zap"
)

func decode(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var m map[string]any
	if err := json.Unmarshal(rec.Body.Bytes(), &m); err != nil {
		t.Fatalf("failed to decode body %q: %v", rec.Body.String(), err)
	}
	return m
}

func TestWrite_StatusAndBody(t *testing.T) {
	tests := []struct {
		code   apierr.Code
		status int
	}{
		{apierr.Unauthenticated, http.StatusUnauthorized},
		{apierr.TenantAccessDenied, http.StatusForbidden},
		{apierr.InsufficientRole, http.StatusForbidden},
		{apierr.LimitExceeded, http.StatusForbidden},
		{apierr.FeatureNotAvailable, http.StatusForbidden},
		{apierr.InvalidRequestBody, http.StatusBadRequest},
		{apierr.InvalidParameterFormat, http.StatusBadRequest},
		{apierr.NotFound, http.StatusNotFound},
		{apierr.Conflict, http.StatusConflict},
		{apierr.RateLimited, http.StatusTooManyRequests},
		{apierr.ProviderUnavailable, http.StatusServiceUnavailable},
		{apierr.Internal, http.StatusInternalServerError},
	}

	for _, tt := range tests {
		t.Run(string(tt.code), func(t *testing.T) {
			rec := httptest.NewRecorder()
			apierr.Write(rec, zap.NewNop(), apierr.New(tt.code))

			if rec.Code != tt.status {
				t.Errorf("status = %d, want %d", rec.Code, tt.status)
			}
			m := decode(t, rec)
			if m["error"] != string(tt.code) {
				t.Errorf("error = %v, want %s", m["error"], tt.code)
			}
			if s, _ := m["message"].(string); s == "" {
				t.Error("expected a non-empty message")
			}
		})
	}
}

func TestWrite_PlainErrorIsInternalAndHidden(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Write(rec, zap.NewNop(), errors.New("mongo: connection refused at 10.0.0.3"))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if strings.Contains(rec.Body.String(), "10.0.0.3") {
		t.Error("raw error text leaked to client")
	}
}

func TestWrite_Details(t *testing.T) {
	rec := httptest.NewRecorder()
	err := apierr.New(apierr.InvalidRequestBody).WithDetails(map[string]string{"email": "required"})
	apierr.Write(rec, nil, err)

	m := decode(t, rec)
	d, ok := m["details"].(map[string]any)
	if !ok || d["email"] != "required" {
		t.Errorf("details = %v, want email=required", m["details"])
	}
}

func TestWrap_PreservesCause(t *testing.T) {
	cause := errors.New("boom")
	err := apierr.Wrap(apierr.ProviderUnavailable, cause)

	if !errors.Is(err, cause) {
		t.Error("expected errors.Is to find the cause")
	}
	if apierr.As(err).Code != apierr.ProviderUnavailable {
		t.Error("As lost the code")
	}
}

func TestRecoverer(t *testing.T) {
	h := apierr.Recoverer(zap.NewNop())(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		panic("unexpected")
	}))

	rec := httptest.NewRecorder()
	h.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))

	if rec.Code != http.StatusInternalServerError {
		t.Errorf("status = %d, want 500", rec.Code)
	}
	if decode(t, rec)["error"] != string(apierr.Internal) {
		t.Error("expected INTERNAL code")
	}
}

func TestWrite_RateLimitedSetsRetryAfter(t *testing.T) {
	rec := httptest.NewRecorder()
	apierr.Write(rec, nil, apierr.New(apierr.RateLimited))
	if rec.Header().Get("Retry-After") == "" {
		t.Error("expected Retry-After header")
	}
}
