// Package middleware holds the HTTP middleware shared by the search and
// analytics services: request IDs, CORS, rate limiting, Prometheus metrics
// and timeouts.
package middleware

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
)

// Metrics records request count, latency and in-flight requests per route.
func Metrics(m *metrics.Metrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if m == nil {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := routeLabel(r.URL.Path)
			rec := &statusRecorder{ResponseWriter: w}
			start := time.Now()

			m.HTTPRequestsInFlight.Inc()
			defer func() {
				m.HTTPRequestsInFlight.Dec()
				m.HTTPRequestDuration.WithLabelValues(r.Method, route).Observe(time.Since(start).Seconds())
				m.HTTPRequestsTotal.WithLabelValues(r.Method, route, strconv.Itoa(rec.code())).Inc()
			}()
			next.ServeHTTP(rec, r)
		})
	}
}

type statusRecorder struct {
	http.ResponseWriter
	status int
}

func (s *statusRecorder) WriteHeader(code int) {
	if s.status == 0 {
		s.status = code
	}
	s.ResponseWriter.WriteHeader(code)
}

func (s *statusRecorder) Write(b []byte) (int, error) {
	if s.status == 0 {
		s.status = http.StatusOK
	}
	return s.ResponseWriter.Write(b)
}

func (s *statusRecorder) code() int {
	if s.status == 0 {
		return http.StatusOK
	}
	return s.status
}

// routeLabel bounds the path label: service routes are kept, scanner noise
// and overlong paths become "other".
func routeLabel(path string) string {
	if len(path) > 64 {
		return "other"
	}
	if strings.HasPrefix(path, "/api/v1/") || strings.HasPrefix(path, "/health/") || path == "/metrics" {
		return path
	}
	return "other"
}
