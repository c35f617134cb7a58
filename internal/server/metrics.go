package server

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// metrics holds the server's own Prometheus collectors. Binding
// diagnostics are counted by diag.Metrics on the same registry.
type metrics struct {
	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	liveSessions    prometheus.Gauge
	liveFrames      *prometheus.CounterVec
}

func newMetrics(namespace string, registry prometheus.Registerer) *metrics {
	factory := promauto.With(registry)

	return &metrics{
		requestsTotal: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests served, by route and status",
		}, []string{"route", "method", "status"}),

		requestDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request duration in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"route"}),

		liveSessions: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_sessions",
			Help:      "Open live sessions",
		}),

		liveFrames: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "live_frames_total",
			Help:      "Live session frames, by direction and type",
		}, []string{"direction", "type"}),
	}
}

// instrument records every request under its chi route pattern. Live
// sessions are excluded from the duration histogram.
func (m *metrics) instrument(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil && rctx.RoutePattern() != "" {
			route = rctx.RoutePattern()
		}
		status := ww.Status()
		switch {
		case status == 0 && route == "/live":
			// hijacked by the upgrader
			status = http.StatusSwitchingProtocols
		case status == 0:
			status = http.StatusOK
		}
		m.requestsTotal.WithLabelValues(route, r.Method, strconv.Itoa(status)).Inc()
		if route != "/live" {
			m.requestDuration.WithLabelValues(route).Observe(time.Since(start).Seconds())
		}
	})
}

func (m *metrics) frame(direction, typ string) {
	if m == nil {
		return
	}
	m.liveFrames.WithLabelValues(direction, typ).Inc()
}

func (m *metrics) sessionOpened() {
	if m != nil {
		m.liveSessions.Inc()
	}
}

func (m *metrics) sessionClosed() {
	if m != nil {
		m.liveSessions.Dec()
	}
}
