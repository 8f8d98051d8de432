package services

import (
	"bytes"
	"context"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/xuri/excelize/v2"

	"shiftcast/internal/store"
	"shiftcast/internal/store/memory"
	"shiftcast/pkg/contracts/domain"
)

type fakeTrigger struct {
	kind    domain.JobKind
	scope   string
	record  domain.JobRecord
	records []domain.JobRecord
	err     error
}

func (f *fakeTrigger) Enqueue(ctx context.Context, kind domain.JobKind, venueScope string) (domain.JobRecord, error) {
	f.kind = kind
	f.scope = venueScope
	return f.record, f.err
}

func (f *fakeTrigger) Get(ctx context.Context, id string) (domain.JobRecord, error) {
	return f.record, f.err
}

func (f *fakeTrigger) List(ctx context.Context, limit int) ([]domain.JobRecord, error) {
	return f.records, f.err
}

func newAdminService(stores store.Stores, trigger JobTrigger) *AdminService {
	return NewAdminService(stores, trigger, discardLogger())
}

func TestAdminReplaceBiasResetsDecayLifecycle(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedVenue(t, stores, "bistro-01")
	svc := newAdminService(stores, nil)

	decayedAt := time.Date(2026, 8, 10, 3, 0, 0, 0, time.UTC)
	_, err := stores.Bias.ReplaceBias(ctx, domain.DayTypeBiasRecord{
		VenueID:    "bistro-01",
		Offsets:    map[domain.DayType]int{domain.DayTypeWeekday: 4},
		Reason:     "scheduled decay cycle 3",
		DecayCycle: 3,
		DecayedAt:  &decayedAt,
	})
	require.NoError(t, err)

	stored, err := svc.ReplaceBiasRecord(ctx, "bistro-01", 2,
		map[domain.DayType]int{domain.DayTypeWeekday: 10, domain.DayTypeFriday: -6},
		"post-renovation recalibration")
	require.NoError(t, err)

	assert.Equal(t, 0, stored.DecayCycle, "a curator replacement restarts the decay lifecycle")
	assert.Nil(t, stored.DecayedAt)
	assert.Equal(t, "post-renovation recalibration", stored.Reason)
	assert.Equal(t, 10, stored.Offsets[domain.DayTypeWeekday])
	assert.True(t, stored.Active())

	history, err := svc.BiasHistory(ctx, "bistro-01", 0)
	require.NoError(t, err)
	require.Len(t, history, 2)
	assert.True(t, history[0].Active(), "newest first")
	assert.NotNil(t, history[1].EffectiveTo, "the prior record is closed, not mutated away")
	assert.Equal(t, 3, history[1].DecayCycle)
}

func TestAdminReplaceBiasRejectsUnknownDayType(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedVenue(t, stores, "bistro-01")
	svc := newAdminService(stores, nil)

	_, err := svc.ReplaceBiasRecord(ctx, "bistro-01", 0,
		map[domain.DayType]int{"brunchday": 5}, "typo in payload")
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown day type")
}

func TestAdminReplaceBiasUnknownVenue(t *testing.T) {
	svc := newAdminService(memory.NewStores(), nil)
	_, err := svc.ReplaceBiasRecord(context.Background(), "ghost", 0, nil, "no such venue")
	require.ErrorIs(t, err, store.ErrNotFound)
}

func TestAdminUpsertRegime(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	svc := newAdminService(stores, nil)

	err := svc.UpsertRegime(ctx, domain.HolidayRegimeAdjustment{
		HolidayCode:   "city_festival",
		VenueCategory: domain.CategoryFineDining,
		CoversOffset:  30,
		MaxUpliftPct:  40,
		Floor:         10,
	})
	require.NoError(t, err)

	rows, err := stores.Calendar.ListRegimes(ctx)
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, 30, rows[0].CoversOffset)
	assert.False(t, rows[0].UpdatedAt.IsZero())

	t.Run("missing code rejected", func(t *testing.T) {
		err := svc.UpsertRegime(ctx, domain.HolidayRegimeAdjustment{VenueCategory: domain.CategoryCafe})
		require.Error(t, err)
	})
}

func TestAdminUpsertCalendarEntry(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedVenue(t, stores, "bistro-01")
	svc := newAdminService(stores, nil)

	midday := time.Date(2026, 12, 24, 15, 30, 0, 0, time.UTC)
	require.NoError(t, svc.UpsertCalendarEntry(ctx, domain.HolidayCalendarEntry{
		Date:        midday,
		HolidayCode: "christmas_eve",
		VenueID:     "bistro-01",
	}))

	entries, err := stores.Calendar.ListCalendar(ctx, mustDate(t, "2026-12-24"), mustDate(t, "2026-12-24"))
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, mustDate(t, "2026-12-24"), entries[0].Date, "timestamps are normalized to civil dates")

	t.Run("venue specific entry needs a registered venue", func(t *testing.T) {
		err := svc.UpsertCalendarEntry(ctx, domain.HolidayCalendarEntry{
			Date:        midday,
			HolidayCode: "christmas_eve",
			VenueID:     "ghost",
		})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestAdminUpsertVenue(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	svc := newAdminService(stores, nil)

	require.NoError(t, svc.UpsertVenue(ctx, domain.VenueProfile{
		VenueID:        "cafe-north",
		Name:           "Cafe North",
		Category:       domain.CategoryCafe,
		ClosedWeekdays: []time.Weekday{time.Monday},
	}))

	got, err := svc.GetVenue(ctx, "cafe-north")
	require.NoError(t, err)
	assert.Equal(t, domain.CategoryCafe, got.Category)
	assert.True(t, got.IsClosedOn(time.Monday))

	t.Run("invalid weekday rejected", func(t *testing.T) {
		err := svc.UpsertVenue(ctx, domain.VenueProfile{
			VenueID:        "cafe-south",
			Category:       domain.CategoryCafe,
			ClosedWeekdays: []time.Weekday{time.Weekday(7)},
		})
		require.Error(t, err)
	})

	t.Run("missing category rejected", func(t *testing.T) {
		err := svc.UpsertVenue(ctx, domain.VenueProfile{VenueID: "cafe-east"})
		require.Error(t, err)
	})
}

func TestAdminTriggerRefresh(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedVenue(t, stores, "bistro-01")
	trigger := &fakeTrigger{record: domain.JobRecord{ID: "run-9", Kind: domain.JobKindPacingRefresh, Status: domain.JobStatusPending}}
	svc := newAdminService(stores, trigger)

	record, err := svc.TriggerRefresh(ctx, domain.JobKindPacingRefresh, "bistro-01")
	require.NoError(t, err)
	assert.Equal(t, "run-9", record.ID)
	assert.Equal(t, domain.JobKindPacingRefresh, trigger.kind)
	assert.Equal(t, "bistro-01", trigger.scope)

	t.Run("unknown kind", func(t *testing.T) {
		_, err := svc.TriggerRefresh(ctx, domain.JobKind("defrag"), "")
		require.ErrorIs(t, err, ErrUnknownJobKind)
	})

	t.Run("unknown venue scope", func(t *testing.T) {
		_, err := svc.TriggerRefresh(ctx, domain.JobKindBiasDecay, "ghost")
		require.ErrorIs(t, err, store.ErrNotFound)
	})

	t.Run("no trigger wired", func(t *testing.T) {
		svc := newAdminService(stores, nil)
		_, err := svc.TriggerRefresh(ctx, domain.JobKindBiasDecay, "")
		require.Error(t, err)
	})
}

func TestAdminImportActuals(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedVenue(t, stores, "bistro-01")
	svc := newAdminService(stores, nil)

	f := excelize.NewFile()
	defer f.Close()
	cells := [][]any{
		{"Venue ID", "Business Date", "Total Covers", "Net Revenue"},
		{"bistro-01", "2026-08-20", 182, 9150.25},
		{"ghost-99", "2026-08-20", 77, 3000.0},
		{"bistro-01", "not a date", 40, 0},
	}
	for r, row := range cells {
		for c, v := range row {
			name, err := excelize.ColumnNumberToName(c + 1)
			require.NoError(t, err)
			require.NoError(t, f.SetCellValue("Sheet1", name+strconv.Itoa(r+1), v))
		}
	}
	var buf bytes.Buffer
	require.NoError(t, f.Write(&buf))

	summary, err := svc.ImportActuals(ctx, bytes.NewReader(buf.Bytes()))
	require.NoError(t, err)
	assert.Equal(t, 1, summary.Imported)
	assert.Equal(t, 1, summary.SkippedRows, "the unparseable date row is skipped by the parser")
	assert.Equal(t, 1, summary.UnknownVenueRows)

	actuals, err := stores.Accuracy.ListActuals(ctx, "bistro-01", mustDate(t, "2026-08-20"), mustDate(t, "2026-08-20"))
	require.NoError(t, err)
	require.Len(t, actuals, 1)
	assert.Equal(t, 182.0, actuals[0].CoversActual)
	require.NotNil(t, actuals[0].RevenueActual)
	assert.InDelta(t, 9150.25, *actuals[0].RevenueActual, 1e-9)
}

func TestAdminSubmitActual(t *testing.T) {
	ctx := context.Background()
	stores := memory.NewStores()
	seedVenue(t, stores, "bistro-01")
	svc := newAdminService(stores, nil)

	require.NoError(t, svc.SubmitActual(ctx, domain.ActualRecord{
		VenueID:      "bistro-01",
		BusinessDate: time.Date(2026, 8, 20, 23, 45, 0, 0, time.UTC),
		CoversActual: 164,
	}))

	actuals, err := stores.Accuracy.ListActuals(ctx, "bistro-01", mustDate(t, "2026-08-20"), mustDate(t, "2026-08-20"))
	require.NoError(t, err)
	require.Len(t, actuals, 1)
	assert.Equal(t, mustDate(t, "2026-08-20"), actuals[0].BusinessDate)
	assert.False(t, actuals[0].RecordedAt.IsZero())

	t.Run("negative covers rejected", func(t *testing.T) {
		err := svc.SubmitActual(ctx, domain.ActualRecord{VenueID: "bistro-01", BusinessDate: mustDate(t, "2026-08-21"), CoversActual: -1})
		require.Error(t, err)
	})

	t.Run("unknown venue rejected", func(t *testing.T) {
		err := svc.SubmitActual(ctx, domain.ActualRecord{VenueID: "ghost", BusinessDate: mustDate(t, "2026-08-21"), CoversActual: 10})
		require.ErrorIs(t, err, store.ErrNotFound)
	})
}

func TestAdminJobsPassThrough(t *testing.T) {
	ctx := context.Background()
	trigger := &fakeTrigger{
		record:  domain.JobRecord{ID: "run-1", Kind: domain.JobKindBiasDecay, Status: domain.JobStatusCompleted},
		records: []domain.JobRecord{{ID: "run-2"}, {ID: "run-1"}},
	}
	svc := newAdminService(memory.NewStores(), trigger)

	record, err := svc.Job(ctx, "run-1")
	require.NoError(t, err)
	assert.Equal(t, "run-1", record.ID)

	records, err := svc.Jobs(ctx, 50)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}
