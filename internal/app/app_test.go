package app

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// The Prometheus exporter registers collectors in the process-wide default
// registry, so the whole file shares one Application.
func newTestApplication(t *testing.T) *Application {
	t.Helper()
	app, err := NewApplication(context.Background())
	require.NoError(t, err)
	return app
}

func TestApplicationWiring(t *testing.T) {
	app := newTestApplication(t)

	require.NotNil(t, app.Config)
	require.NotNil(t, app.Router)
	require.NotNil(t, app.Server)
	require.NotNil(t, app.Hub)
	require.NotNil(t, app.Runner)
	require.NotNil(t, app.Scheduler)
	require.NotNil(t, app.ForecastService)
	require.NotNil(t, app.AdminService)
	require.NotNil(t, app.HealthService)

	assert.True(t, app.Config.UseMemoryStores())
	assert.Nil(t, app.Pool)

	do := func(method, target, body string) *httptest.ResponseRecorder {
		var req *http.Request
		if body == "" {
			req = httptest.NewRequest(method, target, nil)
		} else {
			req = httptest.NewRequest(method, target, strings.NewReader(body))
			req.Header.Set("Content-Type", "application/json")
		}
		rec := httptest.NewRecorder()
		app.Router.ServeHTTP(rec, req)
		return rec
	}

	t.Run("liveness probe", func(t *testing.T) {
		rec := do("GET", "/healthz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"ok"`)
	})

	t.Run("readiness in memory mode", func(t *testing.T) {
		rec := do("GET", "/readyz", "")
		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), "in-memory store")
	})

	t.Run("metrics endpoint", func(t *testing.T) {
		rec := do("GET", "/metrics", "")
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("unknown route answers problem json", func(t *testing.T) {
		rec := do("GET", "/api/v1/nope", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
		assert.Contains(t, rec.Body.String(), "/errors/not-found")
	})

	t.Run("venue lifecycle over the wire", func(t *testing.T) {
		rec := do("PUT", "/api/v1/admin/venues/bistro-01",
			`{"name":"Harbor Bistro","category":"casual_dining","closed_weekdays":[1]}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"bistro-01"`)

		rec = do("GET", "/api/v1/admin/venues", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":1`)

		rec = do("PUT", "/api/v1/admin/venues/bistro-01/bias-records",
			`{"covers_offset":4,"offsets":{"friday":10},"reason":"initial calibration"}`)
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"covers_offset":4`)

		rec = do("GET", "/api/v1/venues/bistro-01/forecasts?from=2026-08-24&to=2026-08-25", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"count":0`)
	})

	t.Run("refresh trigger reaches the runner", func(t *testing.T) {
		rec := do("POST", "/api/v1/admin/refresh",
			`{"job":"pacing_refresh","venue_id":"bistro-01"}`)
		require.Equal(t, http.StatusAccepted, rec.Code)
		assert.Contains(t, rec.Body.String(), `"pacing_refresh"`)

		rec = do("GET", "/api/v1/admin/jobs", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Contains(t, rec.Body.String(), `"pacing_refresh"`)
	})

	t.Run("unknown venue read is not found", func(t *testing.T) {
		rec := do("GET", "/api/v1/venues/ghost-99/forecasts", "")
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("csv export streams an attachment", func(t *testing.T) {
		rec := do("GET", "/api/v1/venues/bistro-01/forecasts/export?from=2026-08-24&to=2026-08-25", "")
		require.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
		assert.Contains(t, rec.Header().Get("Content-Disposition"), "attachment")
	})
}
