package errors

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newTestHandler(t *testing.T) *ErrorHandler {
	t.Helper()
	return NewErrorHandler(slog.New(slog.NewTextHandler(io.Discard, nil)), false)
}

func decodeProblem(t *testing.T, rec *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &out))
	return out
}

func TestHandleErrorMapsAPIErrors(t *testing.T) {
	h := newTestHandler(t)

	tests := []struct {
		name       string
		err        error
		wantStatus int
		wantType   string
	}{
		{name: "venue not found", err: ErrVenueNotFound, wantStatus: http.StatusNotFound, wantType: TypeVenueNotFound},
		{name: "forecast not found", err: ErrForecastNotFound, wantStatus: http.StatusNotFound, wantType: TypeForecastNotFound},
		{name: "validation", err: ErrValidationFailed, wantStatus: http.StatusBadRequest, wantType: TypeValidation},
		{name: "job conflict", err: ErrJobRunning, wantStatus: http.StatusConflict, wantType: TypeJobRunning},
		{name: "bias integrity", err: BiasIntegrityError("v1"), wantStatus: http.StatusInternalServerError, wantType: TypeBiasIntegrity},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rec := httptest.NewRecorder()
			req := httptest.NewRequest(http.MethodGet, "/api/v1/venues/v1/forecasts", nil)

			h.HandleError(rec, req, tt.err)

			assert.Equal(t, tt.wantStatus, rec.Code)
			problem := decodeProblem(t, rec)
			assert.Equal(t, tt.wantType, problem["type"])
		})
	}
}

func TestHandleErrorBiasIntegrityIsAlertable(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/api/v1/venues/v1/forecasts", nil)

	h.HandleError(rec, req, BiasIntegrityError("v1"))

	problem := decodeProblem(t, rec)
	assert.Equal(t, true, problem["alertable"])
}

func TestHandleErrorContextCancellation(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/anything", nil)

	h.HandleError(rec, req, fmt.Errorf("query: %w", context.DeadlineExceeded))

	assert.Equal(t, http.StatusGatewayTimeout, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, TypeTimeout, problem["type"])
}

func TestHandleErrorFallbackByMessage(t *testing.T) {
	h := newTestHandler(t)

	t.Run("stale active bias text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		h.HandleError(rec, req, fmt.Errorf("venue v3: stale active bias window"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		problem := decodeProblem(t, rec)
		assert.Equal(t, TypeBiasIntegrity, problem["type"])
		assert.Equal(t, true, problem["alertable"])
	})

	t.Run("not found text", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		h.HandleError(rec, req, fmt.Errorf("venue v3 not found"))

		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("unknown error is internal", func(t *testing.T) {
		rec := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/x", nil)
		h.HandleError(rec, req, fmt.Errorf("something odd"))

		assert.Equal(t, http.StatusInternalServerError, rec.Code)
		problem := decodeProblem(t, rec)
		assert.Equal(t, TypeInternal, problem["type"])
	})
}

func TestHandlePanic(t *testing.T) {
	h := newTestHandler(t)
	rec := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/venues", nil)

	h.HandlePanic(rec, req, "boom")

	assert.Equal(t, http.StatusInternalServerError, rec.Code)
	problem := decodeProblem(t, rec)
	assert.Equal(t, TypeInternal, problem["type"])
	// Stack details stay hidden outside development mode.
	assert.NotContains(t, problem, "stack")
}

func TestNotFoundAndMethodNotAllowed(t *testing.T) {
	h := newTestHandler(t)

	rec := httptest.NewRecorder()
	h.NotFound(rec, httptest.NewRequest(http.MethodGet, "/nope", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)

	rec = httptest.NewRecorder()
	h.MethodNotAllowed(rec, httptest.NewRequest(http.MethodDelete, "/healthz", nil))
	assert.Equal(t, http.StatusMethodNotAllowed, rec.Code)
}
