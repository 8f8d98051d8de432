package middleware

import (
	"context"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"shiftcast/internal/infrastructure"
)

// businessMetricsKey is the context key under which the shared metrics
// instruments are stored for handlers that record domain counters.
const businessMetricsKey contextKey = "business-metrics"

// MetricsMiddleware records request counts, durations, and in-flight gauges
// against the OpenTelemetry instruments exposed on /metrics.
type MetricsMiddleware struct {
	metrics *infrastructure.BusinessMetrics
}

// NewMetricsMiddleware creates HTTP metrics middleware. A nil metrics set
// yields a no-op middleware so disabled telemetry does not change wiring.
func NewMetricsMiddleware(metrics *infrastructure.BusinessMetrics) *MetricsMiddleware {
	return &MetricsMiddleware{metrics: metrics}
}

// Handler returns the middleware handler.
func (m *MetricsMiddleware) Handler(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if m.metrics == nil {
			next.ServeHTTP(w, r)
			return
		}

		ctx := r.Context()
		start := time.Now()

		if m.metrics.HTTPActiveRequests != nil {
			m.metrics.HTTPActiveRequests.Add(ctx, 1)
			defer m.metrics.HTTPActiveRequests.Add(ctx, -1)
		}

		rw := &responseWriter{ResponseWriter: w, statusCode: http.StatusOK}

		next.ServeHTTP(rw, r)

		// Route pattern is only resolved after chi has matched the request
		attrs := []attribute.KeyValue{
			attribute.String("http.method", r.Method),
			attribute.String("http.route", routePattern(r)),
			attribute.String("http.status_code", strconv.Itoa(rw.statusCode)),
		}

		if m.metrics.HTTPRequestsTotal != nil {
			m.metrics.HTTPRequestsTotal.Add(ctx, 1, metric.WithAttributes(attrs...))
		}
		if m.metrics.HTTPRequestDuration != nil {
			m.metrics.HTTPRequestDuration.Record(ctx, time.Since(start).Seconds(), metric.WithAttributes(attrs...))
		}
	})
}

// responseWriter captures the response status code for metric labels.
type responseWriter struct {
	http.ResponseWriter
	statusCode int
	written    bool
}

func (rw *responseWriter) WriteHeader(code int) {
	if !rw.written {
		rw.statusCode = code
		rw.written = true
	}
	rw.ResponseWriter.WriteHeader(code)
}

func (rw *responseWriter) Write(b []byte) (int, error) {
	if !rw.written {
		rw.written = true
	}
	return rw.ResponseWriter.Write(b)
}

// routePattern returns the chi route pattern for low-cardinality metric
// labels, falling back to the raw path when no route matched.
func routePattern(r *http.Request) string {
	if rctx := chi.RouteContext(r.Context()); rctx != nil {
		if pattern := rctx.RoutePattern(); pattern != "" {
			return pattern
		}
	}
	return r.URL.Path
}

// BusinessMetricsMiddleware stores the metrics instruments in the request
// context so deep handlers can record domain counters without plumbing.
func BusinessMetricsMiddleware(metrics *infrastructure.BusinessMetrics) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if metrics != nil {
				ctx := context.WithValue(r.Context(), businessMetricsKey, metrics)
				r = r.WithContext(ctx)
			}
			next.ServeHTTP(w, r)
		})
	}
}

// GetBusinessMetricsFromContext retrieves the metrics instruments stored by
// BusinessMetricsMiddleware, or nil when absent.
func GetBusinessMetricsFromContext(ctx context.Context) *infrastructure.BusinessMetrics {
	if metrics, ok := ctx.Value(businessMetricsKey).(*infrastructure.BusinessMetrics); ok {
		return metrics
	}
	return nil
}

// GetRealIP extracts the client IP, honouring proxy forwarding headers.
func GetRealIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if idx := strings.Index(xff, ","); idx != -1 {
			return strings.TrimSpace(xff[:idx])
		}
		return strings.TrimSpace(xff)
	}
	if xri := r.Header.Get("X-Real-IP"); xri != "" {
		return strings.TrimSpace(xri)
	}
	return r.RemoteAddr
}
