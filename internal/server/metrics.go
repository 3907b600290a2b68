package server

import (
	"net/http"
	"strconv"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	httpRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "orgbridge",
		Name:      "http_requests_total",
		Help:      "HTTP requests served, by route pattern and status code.",
	}, []string{"path", "code"})

	eventsReceivedTotal = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "orgbridge",
		Name:      "datacloud_events_received_total",
		Help:      "Data Cloud change events accepted into the event log.",
	})

	searchDurationSeconds = promauto.NewHistogram(prometheus.HistogramOpts{
		Namespace: "orgbridge",
		Name:      "search_duration_seconds",
		Help:      "End-to-end latency of documentation searches.",
		Buckets:   prometheus.DefBuckets,
	})

	wsConnectionsActive = promauto.NewGauge(prometheus.GaugeOpts{
		Namespace: "orgbridge",
		Name:      "ws_connections_active",
		Help:      "Open WebSocket event feed connections.",
	})
)

// metricsMiddleware counts every request by chi route pattern and status.
func metricsMiddleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ww := middleware.NewWrapResponseWriter(w, r.ProtoMajor)
		next.ServeHTTP(ww, r)

		pattern := chi.RouteContext(r.Context()).RoutePattern()
		if pattern == "" {
			pattern = r.URL.Path
		}
		status := ww.Status()
		if status == 0 {
			status = http.StatusOK
		}
		httpRequestsTotal.WithLabelValues(pattern, strconv.Itoa(status)).Inc()
	})
}
