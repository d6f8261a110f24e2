package middleware

import (
	"net/http"
	"time"

	"github.com/arm1-investment-group/rentzone-site/internal/observability"
	"github.com/go-chi/chi/v5"
)

// unmatchedRoute labels requests no route claimed, keeping label cardinality bounded
const unmatchedRoute = "unmatched"

// MetricsMiddleware records request count, latency and sizes. It must run
// inside a chi router so the matched route pattern can be used as the label.
func MetricsMiddleware(metrics *observability.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()
			metrics.ActiveConnections.Inc()
			defer metrics.ActiveConnections.Dec()

			wrapped := NewResponseWriter(w)
			next.ServeHTTP(wrapped, r)

			requestSize := r.ContentLength
			if requestSize < 0 {
				requestSize = 0
			}

			metrics.RecordRequest(r.Method, routePattern(r), wrapped.StatusCode(), time.Since(start), requestSize, wrapped.BytesWritten())
		})
	}
}

func routePattern(r *http.Request) string {
	rctx := chi.RouteContext(r.Context())
	if rctx == nil {
		return unmatchedRoute
	}
	if pattern := rctx.RoutePattern(); pattern != "" {
		return pattern
	}
	return unmatchedRoute
}
