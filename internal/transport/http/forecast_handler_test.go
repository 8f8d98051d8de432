package http

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	apierrors "shiftcast/internal/errors"
	"shiftcast/internal/exporter"
	"shiftcast/internal/services"
	"shiftcast/internal/store"
	"shiftcast/pkg/contracts/domain"
)

// MockForecastReader is a mock implementation of ForecastReader
type MockForecastReader struct {
	mock.Mock
}

func (m *MockForecastReader) GetCorrected(ctx context.Context, venueID string, from, to time.Time) ([]domain.CorrectedForecast, error) {
	args := m.Called(venueID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.CorrectedForecast), args.Error(1)
}

func (m *MockForecastReader) GetRaw(ctx context.Context, venueID string, from, to time.Time) ([]domain.RawForecast, error) {
	args := m.Called(venueID, from, to)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.RawForecast), args.Error(1)
}

func (m *MockForecastReader) GetAccuracy(ctx context.Context, venueID string) ([]domain.AccuracyStats, error) {
	args := m.Called(venueID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]domain.AccuracyStats), args.Error(1)
}

func (m *MockForecastReader) GetPacing(ctx context.Context, venueID string, from, to time.Time) (services.PacingStatus, error) {
	args := m.Called(venueID, from, to)
	return args.Get(0).(services.PacingStatus), args.Error(1)
}

func newForecastTestServer(service ForecastReader) *chi.Mux {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	errorHandler := apierrors.NewErrorHandler(logger, false)
	handler := NewForecastHandler(service, exporter.NewForecastExporter(""), errorHandler, logger)

	r := chi.NewRouter()
	r.Mount("/api/v1/venues", handler.Routes())
	return r
}

func sampleCorrectedRow(venueID string, date time.Time) domain.CorrectedForecast {
	return domain.CorrectedForecast{
		VenueID:          venueID,
		BusinessDate:     date,
		Shift:            domain.ShiftDinner,
		ForecastRunAt:    date.Add(-18 * time.Hour),
		DayType:          domain.DayTypeWeekday,
		CoversRaw:        100,
		CoversCorrected:  108,
		DayTypeOffset:    8,
		PacingMultiplier: 1.0,
		AdjustmentRatio:  1.08,
	}
}

func TestForecastHandler_GetForecasts(t *testing.T) {
	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	tests := []struct {
		name           string
		target         string
		setupMock      func(*MockForecastReader)
		expectedStatus int
		expectedBody   string
	}{
		{
			name:   "corrected rows",
			target: "/api/v1/venues/bistro-01/forecasts?from=2026-08-24&to=2026-08-25",
			setupMock: func(m *MockForecastReader) {
				rows := []domain.CorrectedForecast{sampleCorrectedRow("bistro-01", from)}
				m.On("GetCorrected", "bistro-01", from, to).Return(rows, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"covers_corrected":108`,
		},
		{
			name:   "raw rows",
			target: "/api/v1/venues/bistro-01/forecasts?from=2026-08-24&to=2026-08-25&raw=true",
			setupMock: func(m *MockForecastReader) {
				rows := []domain.RawForecast{{
					VenueID:         "bistro-01",
					BusinessDate:    from,
					Shift:           domain.ShiftLunch,
					CoversPredicted: 85,
				}}
				m.On("GetRaw", "bistro-01", from, to).Return(rows, nil)
			},
			expectedStatus: http.StatusOK,
			expectedBody:   `"covers_predicted":85`,
		},
		{
			name:   "unknown venue",
			target: "/api/v1/venues/ghost-99/forecasts?from=2026-08-24&to=2026-08-25",
			setupMock: func(m *MockForecastReader) {
				err := fmt.Errorf("venue %q: %w", "ghost-99", store.ErrNotFound)
				m.On("GetCorrected", "ghost-99", from, to).Return(nil, err)
			},
			expectedStatus: http.StatusNotFound,
			expectedBody:   `"status":404`,
		},
		{
			name:   "stale active bias surfaces as server error",
			target: "/api/v1/venues/bistro-01/forecasts?from=2026-08-24&to=2026-08-25",
			setupMock: func(m *MockForecastReader) {
				err := fmt.Errorf("load bias for venue %q: %w", "bistro-01", store.ErrStaleActiveBias)
				m.On("GetCorrected", "bistro-01", from, to).Return(nil, err)
			},
			expectedStatus: http.StatusInternalServerError,
			expectedBody:   "bias/integrity",
		},
		{
			name:   "invalid range rejected",
			target: "/api/v1/venues/bistro-01/forecasts?from=2026-08-24&to=2026-08-20",
			setupMock: func(m *MockForecastReader) {
				err := fmt.Errorf("%w: 2026-08-24 is after 2026-08-20", services.ErrInvalidRange)
				m.On("GetCorrected", "bistro-01", mock.Anything, mock.Anything).Return(nil, err)
			},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   "invalid date range",
		},
		{
			name:           "malformed from param",
			target:         "/api/v1/venues/bistro-01/forecasts?from=24-08-2026",
			setupMock:      func(m *MockForecastReader) {},
			expectedStatus: http.StatusBadRequest,
			expectedBody:   `"status":400`,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			mockService := new(MockForecastReader)
			tt.setupMock(mockService)
			router := newForecastTestServer(mockService)

			req := httptest.NewRequest("GET", tt.target, nil)
			rec := httptest.NewRecorder()
			router.ServeHTTP(rec, req)

			assert.Equal(t, tt.expectedStatus, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.expectedBody)
			mockService.AssertExpectations(t)
		})
	}
}

func TestForecastHandler_GetForecastsDefaultsRange(t *testing.T) {
	mockService := new(MockForecastReader)
	mockService.On("GetCorrected", "bistro-01", mock.Anything, mock.Anything).
		Return([]domain.CorrectedForecast{}, nil)
	router := newForecastTestServer(mockService)

	req := httptest.NewRequest("GET", "/api/v1/venues/bistro-01/forecasts", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)

	from := mockService.Calls[0].Arguments.Get(1).(time.Time)
	to := mockService.Calls[0].Arguments.Get(2).(time.Time)
	assert.Equal(t, domain.DateOnly(time.Now().UTC()), from)
	assert.Equal(t, from.AddDate(0, 0, defaultHorizonDays), to)
}

func TestForecastHandler_ExportForecasts(t *testing.T) {
	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	mockService := new(MockForecastReader)
	rows := []domain.CorrectedForecast{sampleCorrectedRow("bistro-01", from)}
	mockService.On("GetCorrected", "bistro-01", from, to).Return(rows, nil)
	router := newForecastTestServer(mockService)

	req := httptest.NewRequest("GET", "/api/v1/venues/bistro-01/forecasts/export?from=2026-08-24&to=2026-08-25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "text/csv; charset=utf-8", rec.Header().Get("Content-Type"))
	assert.Contains(t, rec.Header().Get("Content-Disposition"), "bistro-01")
	assert.Contains(t, rec.Body.String(), "covers_corrected")
	assert.Contains(t, rec.Body.String(), "bistro-01")
	mockService.AssertExpectations(t)
}

func TestForecastHandler_GetAccuracy(t *testing.T) {
	mockService := new(MockForecastReader)
	stats := []domain.AccuracyStats{{
		VenueID:     "bistro-01",
		DayType:     domain.DayTypeWeekday,
		MAPE:        8.2,
		PctWithin10: 55.0,
		PctWithin20: 87.5,
		SampleSize:  12,
	}}
	mockService.On("GetAccuracy", "bistro-01").Return(stats, nil)
	router := newForecastTestServer(mockService)

	req := httptest.NewRequest("GET", "/api/v1/venues/bistro-01/accuracy", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"pct_within_20":87.5`)
	mockService.AssertExpectations(t)
}

func TestForecastHandler_GetPacing(t *testing.T) {
	from := time.Date(2026, 8, 24, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 25, 0, 0, 0, 0, time.UTC)

	mockService := new(MockForecastReader)
	status := services.PacingStatus{
		VenueID: "bistro-01",
		Baselines: []domain.PacingBaseline{{
			VenueID:       "bistro-01",
			DayType:       domain.DayTypeFriday,
			TypicalOnHand: 62,
		}},
	}
	mockService.On("GetPacing", "bistro-01", from, to).Return(status, nil)
	router := newForecastTestServer(mockService)

	req := httptest.NewRequest("GET", "/api/v1/venues/bistro-01/pacing?from=2026-08-24&to=2026-08-25", nil)
	rec := httptest.NewRecorder()
	router.ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"typical_on_hand":62`)
	mockService.AssertExpectations(t)
}
