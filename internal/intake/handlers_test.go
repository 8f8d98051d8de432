package intake

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcast/internal/store/memory"
	"shiftcast/pkg/contracts/domain"
	"shiftcast/pkg/contracts/events"
)

func handlerMessage(t *testing.T, eventType string, payload any) Message {
	t.Helper()
	raw, err := json.Marshal(payload)
	require.NoError(t, err)
	return Message{
		Topic:     "intake",
		Timestamp: time.Date(2026, 8, 20, 6, 0, 0, 0, time.UTC),
		EventType: eventType,
		Payload:   raw,
	}
}

func TestStoreHandlerIngestsForecastRun(t *testing.T) {
	stores := memory.NewStores()
	handler := NewStoreHandler(stores, discardLogger())

	runAt := time.Date(2026, 8, 18, 4, 30, 0, 0, time.UTC)
	lower := 92.0
	evt := events.ForecastRunPublished{
		RunID:         "run-2026-08-18",
		ForecastRunAt: runAt,
		Rows: []events.ForecastRow{
			{VenueID: "cafe-north", BusinessDate: "2026-08-21", Shift: "lunch", CoversPredicted: 110, CoversLower: &lower, DayType: "friday"},
			{VenueID: "cafe-north", BusinessDate: "2026-08-21", Shift: "dinner", CoversPredicted: 180},
			{VenueID: "cafe-north", BusinessDate: "not-a-date", Shift: "dinner", CoversPredicted: 50},
			{VenueID: "cafe-north", BusinessDate: "2026-08-22", Shift: "brunch", CoversPredicted: 70},
		},
	}

	err := handler.Handle(context.Background(), handlerMessage(t, events.TypeForecastRunPublished, evt))
	require.NoError(t, err)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	rows, err := stores.Forecasts.ListForecasts(context.Background(), "cafe-north", from, to)
	require.NoError(t, err)
	require.Len(t, rows, 2, "bad date and unknown shift rows are skipped")

	byShift := make(map[domain.Shift]domain.RawForecast, len(rows))
	for _, row := range rows {
		byShift[row.Shift] = row
	}
	lunch := byShift[domain.ShiftLunch]
	assert.True(t, lunch.ForecastRunAt.Equal(runAt))
	assert.Equal(t, 110.0, lunch.CoversPredicted)
	require.NotNil(t, lunch.CoversLower)
	assert.Equal(t, 92.0, *lunch.CoversLower)
	require.NotNil(t, lunch.DayType)
	assert.Equal(t, domain.DayTypeFriday, *lunch.DayType)
	assert.Nil(t, byShift[domain.ShiftDinner].DayType)
}

func TestStoreHandlerRejectsMalformedForecastRun(t *testing.T) {
	stores := memory.NewStores()
	handler := NewStoreHandler(stores, discardLogger())

	tests := []struct {
		name    string
		payload json.RawMessage
	}{
		{name: "not the expected shape", payload: json.RawMessage(`{"rows":"nope"}`)},
		{name: "missing run timestamp", payload: json.RawMessage(`{"run_id":"r1","rows":[]}`)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			msg := Message{EventType: events.TypeForecastRunPublished, Payload: tt.payload}
			err := handler.Handle(context.Background(), msg)
			require.ErrorIs(t, err, ErrMalformed)
		})
	}
}

func TestStoreHandlerIngestsSnapshot(t *testing.T) {
	stores := memory.NewStores()
	handler := NewStoreHandler(stores, discardLogger())

	evt := events.SnapshotRecorded{
		VenueID:        "cafe-north",
		BusinessDate:   "2026-08-22",
		SnapshotAt:     time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC),
		ConfirmedCount: 64,
		HoursToService: 26,
	}
	err := handler.Handle(context.Background(), handlerMessage(t, events.TypeSnapshotRecorded, evt))
	require.NoError(t, err)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	snapshots, err := stores.Pacing.ListSnapshots(context.Background(), "cafe-north", from, to)
	require.NoError(t, err)
	require.Len(t, snapshots, 1)
	assert.Equal(t, 64, snapshots[0].ConfirmedCount)
	assert.Equal(t, 26.0, snapshots[0].HoursToService)
}

func TestStoreHandlerRejectsNegativeSnapshot(t *testing.T) {
	stores := memory.NewStores()
	handler := NewStoreHandler(stores, discardLogger())

	evt := events.SnapshotRecorded{
		VenueID:        "cafe-north",
		BusinessDate:   "2026-08-22",
		SnapshotAt:     time.Date(2026, 8, 21, 12, 0, 0, 0, time.UTC),
		ConfirmedCount: -3,
	}
	err := handler.Handle(context.Background(), handlerMessage(t, events.TypeSnapshotRecorded, evt))
	require.ErrorIs(t, err, ErrMalformed)
}

func TestStoreHandlerIngestsActualsWithRecordedAtFallback(t *testing.T) {
	stores := memory.NewStores()
	handler := NewStoreHandler(stores, discardLogger())

	revenue := 5400.50
	evt := events.ActualsRecorded{
		VenueID:       "cafe-north",
		BusinessDate:  "2026-08-19",
		CoversActual:  143,
		RevenueActual: &revenue,
	}
	msg := handlerMessage(t, events.TypeActualsRecorded, evt)
	err := handler.Handle(context.Background(), msg)
	require.NoError(t, err)

	from := time.Date(2026, 8, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 8, 31, 0, 0, 0, 0, time.UTC)
	actuals, err := stores.Accuracy.ListActuals(context.Background(), "cafe-north", from, to)
	require.NoError(t, err)
	require.Len(t, actuals, 1)
	assert.Equal(t, 143.0, actuals[0].CoversActual)
	require.NotNil(t, actuals[0].RevenueActual)
	assert.Equal(t, 5400.50, *actuals[0].RevenueActual)
	assert.True(t, actuals[0].RecordedAt.Equal(msg.Timestamp), "recorded_at falls back to the record timestamp")
}

func TestStoreHandlerIgnoresUnknownEventType(t *testing.T) {
	stores := memory.NewStores()
	handler := NewStoreHandler(stores, discardLogger())

	msg := Message{EventType: "covers.actuals_recorded.v9", Payload: json.RawMessage(`{}`)}
	require.NoError(t, handler.Handle(context.Background(), msg))

	from := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	to := time.Date(2026, 12, 31, 0, 0, 0, 0, time.UTC)
	actuals, err := stores.Accuracy.ListActuals(context.Background(), "cafe-north", from, to)
	require.NoError(t, err)
	assert.Empty(t, actuals)
}
