// internal/app/system/metrics/metrics.go
package metrics

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics owns a private prometheus registry so that several instances
// (one per test) never collide on registration.
type Metrics struct {
	reg *prometheus.Registry

	HTTPRequests *prometheus.CounterVec
	HTTPDuration *prometheus.HistogramVec

	// Notification delivery, labelled by channel (persist|push|email) and
	// outcome (ok|failed|skipped|overflow).
	Deliveries *prometheus.CounterVec
	QueueDepth prometheus.Gauge

	// Outbound provider calls (llm|email) by outcome.
	ProviderCalls *prometheus.CounterVec

	// Guard and plan denials by reason code.
	Denials *prometheus.CounterVec
}

// New creates the metric set with the given name prefix.
func New(prefix string) *Metrics {
	if prefix == "" {
		prefix = "perfhub"
	}
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		reg: reg,
		HTTPRequests: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_http_requests_total",
			Help: "Total number of HTTP requests",
		}, []string{"method", "path", "status"}),
		HTTPDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    prefix + "_http_request_duration_seconds",
			Help:    "Duration of HTTP requests in seconds",
			Buckets: prometheus.DefBuckets,
		}, []string{"method", "path", "status"}),
		Deliveries: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_notification_deliveries_total",
			Help: "Notification delivery attempts by channel and outcome",
		}, []string{"channel", "outcome"}),
		QueueDepth: f.NewGauge(prometheus.GaugeOpts{
			Name: prefix + "_notification_queue_depth",
			Help: "Events waiting in the notification queue",
		}),
		ProviderCalls: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_provider_calls_total",
			Help: "Outbound provider calls by provider and outcome",
		}, []string{"provider", "outcome"}),
		Denials: f.NewCounterVec(prometheus.CounterOpts{
			Name: prefix + "_access_denials_total",
			Help: "Requests denied by the access guard or plan checks",
		}, []string{"reason"}),
	}
}

// Handler serves the registry in the prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{Registry: m.reg})
}

// Registry exposes the underlying registry (tests gather from it).
func (m *Metrics) Registry() *prometheus.Registry { return m.reg }

// Middleware records request count and latency. The path label is the chi
// route pattern so ids do not explode cardinality.
func (m *Metrics) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		path := "unmatched"
		if rc := chi.RouteContext(r.Context()); rc != nil {
			if p := rc.RoutePattern(); p != "" {
				path = p
			}
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		labels := []string{r.Method, path, strconv.Itoa(status)}
		m.HTTPRequests.WithLabelValues(labels...).Inc()
		m.HTTPDuration.WithLabelValues(labels...).Observe(time.Since(start).Seconds())
	})
}

// RecordDelivery is nil-safe so packages can run without metrics in tests.
func (m *Metrics) RecordDelivery(channel, outcome string) {
	if m == nil {
		return
	}
	m.Deliveries.WithLabelValues(channel, outcome).Inc()
}

func (m *Metrics) SetQueueDepth(n int) {
	if m == nil {
		return
	}
	m.QueueDepth.Set(float64(n))
}

func (m *Metrics) RecordProviderCall(provider, outcome string) {
	if m == nil {
		return
	}
	m.ProviderCalls.WithLabelValues(provider, outcome).Inc()
}

func (m *Metrics) RecordDenial(reason string) {
	if m == nil {
		return
	}
	m.Denials.WithLabelValues(reason).Inc()
}
