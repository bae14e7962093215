package metrics

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestMiddleware_UsesRoutePattern(t *testing.T) {
	m := New("test")
	r := chi.NewRouter()
	r.Use(m.Middleware)
	r.Get("/employees/{id}", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNoContent)
	})

	for _, id := range []string{"a", "b", "c"} {
		rec := httptest.NewRecorder()
		r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/employees/"+id, nil))
	}

	got := testutil.ToFloat64(m.HTTPRequests.WithLabelValues("GET", "/employees/{id}", "204"))
	if got != 3 {
		t.Errorf("requests = %v, want 3", got)
	}
}

func TestNilMetricsIsSafe(t *testing.T) {
	var m *Metrics
	m.RecordDelivery("email", "ok")
	m.SetQueueDepth(3)
	m.RecordProviderCall("llm", "failed")
	m.RecordDenial("TENANT_ACCESS_DENIED")
}

func TestHandler_ExposesCounters(t *testing.T) {
	m := New("test")
	m.RecordDelivery("push", "ok")

	rec := httptest.NewRecorder()
	m.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	body, _ := io.ReadAll(rec.Body)
	if !strings.Contains(string(body), `test_notification_deliveries_total{channel="push",outcome="ok"} 1`) {
		t.Errorf("metrics output missing delivery counter:\n%s", body)
	}
}

func TestNew_IndependentRegistries(t *testing.T) {
	a, b := New("dup"), New("dup")
	a.RecordDenial("X")
	if got := testutil.ToFloat64(b.Denials.WithLabelValues("X")); got != 0 {
		t.Errorf("registries share state: %v", got)
	}
}
