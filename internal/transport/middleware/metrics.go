package middleware

import (
	"net/http"
	"strconv"
	"time"

	"github.com/go-chi/chi"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// httpRequestDuration observes handler latency.
// Labels:
//   - method: HTTP method
//   - route: chi route pattern (e.g. "/users/{id}"), never the raw path
//   - status: response status code
var httpRequestDuration = promauto.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "user_management",
		Name:      "http_request_duration_seconds",
		Help:      "Duration of HTTP requests, labelled by method, route and status.",
		Buckets:   prometheus.DefBuckets,
	},
	[]string{"method", "route", "status"},
)

func Metrics(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		ww := &responseWriter{ResponseWriter: w}

		next.ServeHTTP(ww, r)

		route := "unmatched"
		if rctx := chi.RouteContext(r.Context()); rctx != nil {
			if pattern := rctx.RoutePattern(); pattern != "" {
				route = pattern
			}
		}
		httpRequestDuration.
			WithLabelValues(r.Method, route, strconv.Itoa(ww.status())).
			Observe(time.Since(start).Seconds())
	})
}
