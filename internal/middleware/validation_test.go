package middleware

import (
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apierrors "shiftcast/internal/errors"
)

func newValidationMiddleware() *ValidationMiddleware {
	logger := testLogger()
	return NewValidationMiddleware(logger, apierrors.NewErrorHandler(logger, false))
}

func TestValidateRequest(t *testing.T) {
	vm := newValidationMiddleware()
	okHandler := http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		body, _ := io.ReadAll(r.Body)
		w.Write(body)
	})

	t.Run("GET skips body validation", func(t *testing.T) {
		rec := httptest.NewRecorder()
		vm.ValidateRequest(okHandler).ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("invalid JSON rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"venue":`))
		rec := httptest.NewRecorder()
		vm.ValidateRequest(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusBadRequest, rec.Code)
		assert.Contains(t, rec.Body.String(), "invalid JSON")
	})

	t.Run("valid body restored for handler", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader(`{"venue":"v1"}`))
		rec := httptest.NewRecorder()
		vm.ValidateRequest(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusOK, rec.Code)
		assert.Equal(t, `{"venue":"v1"}`, rec.Body.String())
	})

	t.Run("oversized body rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("x"))
		req.ContentLength = 11 * 1024 * 1024
		rec := httptest.NewRecorder()
		vm.ValidateRequest(okHandler).ServeHTTP(rec, req)

		assert.Equal(t, http.StatusRequestEntityTooLarge, rec.Code)
	})
}

func TestValidateStruct(t *testing.T) {
	vm := newValidationMiddleware()

	type biasRequest struct {
		VenueID string `json:"venue_id" validate:"required,venueid"`
		Date    string `json:"date" validate:"required,isodate"`
		Shift   string `json:"shift" validate:"required,shiftname"`
		DayType string `json:"day_type" validate:"omitempty,daytype"`
	}

	t.Run("valid struct passes", func(t *testing.T) {
		err := vm.ValidateStruct(biasRequest{
			VenueID: "harbour-house",
			Date:    "2026-03-14",
			Shift:   "dinner",
			DayType: "saturday",
		})
		assert.NoError(t, err)
	})

	t.Run("field failures reported with json names", func(t *testing.T) {
		err := vm.ValidateStruct(biasRequest{
			VenueID: "Harbour House",
			Date:    "14/03/2026",
			Shift:   "brunch",
		})
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		assert.Equal(t, http.StatusBadRequest, apiErr.StatusCode)

		details, ok := apiErr.Details.(apierrors.ValidationErrors)
		require.True(t, ok)

		fields := make([]string, 0, len(details.Errors))
		for _, ve := range details.Errors {
			fields = append(fields, ve.Field)
		}
		assert.Contains(t, fields, "venue_id")
		assert.Contains(t, fields, "date")
		assert.Contains(t, fields, "shift")
	})

	t.Run("invalid day type rejected", func(t *testing.T) {
		err := vm.ValidateStruct(biasRequest{
			VenueID: "v1",
			Date:    "2026-03-14",
			Shift:   "lunch",
			DayType: "blue-moon",
		})
		require.Error(t, err)

		var apiErr *apierrors.APIError
		require.ErrorAs(t, err, &apiErr)
		details, ok := apiErr.Details.(apierrors.ValidationErrors)
		require.True(t, ok)
		require.Len(t, details.Errors, 1)
		assert.Equal(t, "day_type", details.Errors[0].Field)
	})
}

func TestCustomValidators(t *testing.T) {
	vm := newValidationMiddleware()

	type probe struct {
		Date  string `json:"date" validate:"omitempty,isodate"`
		Venue string `json:"venue" validate:"omitempty,venueid"`
	}

	tests := []struct {
		name  string
		value probe
		ok    bool
	}{
		{"real date", probe{Date: "2026-02-28"}, true},
		{"impossible date", probe{Date: "2026-02-30"}, false},
		{"wrong layout", probe{Date: "2026-2-8"}, false},
		{"slug venue", probe{Venue: "cafe_9-north"}, true},
		{"uppercase venue", probe{Venue: "CafeNorth"}, false},
		{"venue with slash", probe{Venue: "a/b"}, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := vm.ValidateStruct(tt.value)
			if tt.ok {
				assert.NoError(t, err)
			} else {
				assert.Error(t, err)
			}
		})
	}
}

func TestContentTypeValidator(t *testing.T) {
	handler := ContentTypeValidator("application/json")(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
	}))

	t.Run("accepts declared type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		req.Header.Set("Content-Type", "application/json; charset=utf-8")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("rejects missing type", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("{}"))
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("rejects other types", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodPost, "/", strings.NewReader("<xml/>"))
		req.Header.Set("Content-Type", "text/xml")
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, req)
		assert.Equal(t, http.StatusUnsupportedMediaType, rec.Code)
	})

	t.Run("GET passes untyped", func(t *testing.T) {
		rec := httptest.NewRecorder()
		handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestQueryParamValidator(t *testing.T) {
	logger := testLogger()
	qv := NewQueryParamValidator(logger, apierrors.NewErrorHandler(logger, false))

	t.Run("int within range", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?days=14", nil)
		rec := httptest.NewRecorder()
		got, ok := qv.ValidateInt(rec, req, "days", 1, 90, 7)
		require.True(t, ok)
		assert.Equal(t, 14, got)
	})

	t.Run("int default when absent", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/", nil)
		rec := httptest.NewRecorder()
		got, ok := qv.ValidateInt(rec, req, "days", 1, 90, 7)
		require.True(t, ok)
		assert.Equal(t, 7, got)
	})

	t.Run("int out of range rejected", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?days=500", nil)
		rec := httptest.NewRecorder()
		_, ok := qv.ValidateInt(rec, req, "days", 1, 90, 7)
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("enum accepts listed value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?shift=dinner", nil)
		rec := httptest.NewRecorder()
		got, ok := qv.ValidateEnum(rec, req, "shift", []string{"lunch", "dinner"}, "")
		require.True(t, ok)
		assert.Equal(t, "dinner", got)
	})

	t.Run("enum rejects unknown value", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?shift=brunch", nil)
		rec := httptest.NewRecorder()
		_, ok := qv.ValidateEnum(rec, req, "shift", []string{"lunch", "dinner"}, "")
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("date parses yyyy-mm-dd", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=2026-07-01", nil)
		rec := httptest.NewRecorder()
		got, ok := qv.ValidateDate(rec, req, "from", time.Time{})
		require.True(t, ok)
		assert.Equal(t, time.Date(2026, 7, 1, 0, 0, 0, 0, time.UTC), got)
	})

	t.Run("date rejects other layouts", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?from=01-07-2026", nil)
		rec := httptest.NewRecorder()
		_, ok := qv.ValidateDate(rec, req, "from", time.Time{})
		assert.False(t, ok)
		assert.Equal(t, http.StatusBadRequest, rec.Code)
	})

	t.Run("bool variants", func(t *testing.T) {
		req := httptest.NewRequest(http.MethodGet, "/?raw=1", nil)
		rec := httptest.NewRecorder()
		got, ok := qv.ValidateBool(rec, req, "raw", false)
		require.True(t, ok)
		assert.True(t, got)

		req = httptest.NewRequest(http.MethodGet, "/?raw=maybe", nil)
		rec = httptest.NewRecorder()
		_, ok = qv.ValidateBool(rec, req, "raw", false)
		assert.False(t, ok)
	})
}
