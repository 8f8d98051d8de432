package middleware

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"

	"shiftcast/internal/infrastructure"
)

func testBusinessMetrics(t *testing.T) *infrastructure.BusinessMetrics {
	t.Helper()
	provider := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = provider.Shutdown(context.Background()) })

	metrics, err := infrastructure.CreateBusinessMetrics(provider.Meter("test"))
	require.NoError(t, err)
	return metrics
}

func TestMetricsMiddlewareRecordsWithoutInterfering(t *testing.T) {
	mw := NewMetricsMiddleware(testBusinessMetrics(t))

	router := chi.NewRouter()
	router.Use(mw.Handler)
	router.Get("/api/v1/venues/{venueID}/forecasts", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"forecasts":[]}`))
	})

	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/venues/v1/forecasts", nil))

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, `{"forecasts":[]}`, rec.Body.String())
}

func TestMetricsMiddlewareNilMetricsIsNoop(t *testing.T) {
	mw := NewMetricsMiddleware(nil)
	handler := mw.Handler(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusTeapot)
	}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Equal(t, http.StatusTeapot, rec.Code)
}

func TestBusinessMetricsContextRoundTrip(t *testing.T) {
	metrics := testBusinessMetrics(t)

	var got *infrastructure.BusinessMetrics
	handler := BusinessMetricsMiddleware(metrics)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		got = GetBusinessMetricsFromContext(r.Context())
	}))

	handler.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/", nil))
	assert.Same(t, metrics, got)

	assert.Nil(t, GetBusinessMetricsFromContext(context.Background()))
}

func TestRoutePattern(t *testing.T) {
	t.Run("chi pattern when routed", func(t *testing.T) {
		var pattern string
		router := chi.NewRouter()
		router.Get("/venues/{venueID}/pacing", func(w http.ResponseWriter, r *http.Request) {
			pattern = routePattern(r)
		})

		router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/venues/v9/pacing", nil))
		assert.Equal(t, "/venues/{venueID}/pacing", pattern)
	})

	t.Run("raw path without router", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/plain", nil)
		assert.Equal(t, "/plain", routePattern(req))
	})
}

func TestGetRealIP(t *testing.T) {
	tests := []struct {
		name     string
		headers  map[string]string
		expected string
	}{
		{
			name:     "forwarded chain takes first hop",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.7, 10.0.0.1"},
			expected: "203.0.113.7",
		},
		{
			name:     "single forwarded value",
			headers:  map[string]string{"X-Forwarded-For": "203.0.113.9"},
			expected: "203.0.113.9",
		},
		{
			name:     "real ip header",
			headers:  map[string]string{"X-Real-IP": "198.51.100.4"},
			expected: "198.51.100.4",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodGet, "/", nil)
			for k, v := range tt.headers {
				req.Header.Set(k, v)
			}
			assert.Equal(t, tt.expected, GetRealIP(req))
		})
	}

	t.Run("falls back to remote addr", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		assert.Equal(t, req.RemoteAddr, GetRealIP(req))
	})
}
