package middleware

import (
	"net/http"
	"time"

	"chaintrace/internal/platform/metrics"
)

// LatencyMiddleware records request latency into the shared HTTP histogram.
func LatencyMiddleware(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if m == nil {
				next.ServeHTTP(w, r)
				return
			}
			start := time.Now()
			next.ServeHTTP(w, r)
			m.ObserveHTTPLatency(r.Method, r.URL.Path, time.Since(start))
		})
	}
}
