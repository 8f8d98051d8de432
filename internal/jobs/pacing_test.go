package jobs

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcast/internal/correction"
	"shiftcast/internal/store"
	"shiftcast/internal/store/memory"
	"shiftcast/pkg/contracts/domain"
)

// lastWeekday returns the most recent past date falling on the weekday.
func lastWeekday(w time.Weekday) time.Time {
	d := domain.DateOnly(time.Now().UTC().AddDate(0, 0, -1))
	for d.Weekday() != w {
		d = d.AddDate(0, 0, -1)
	}
	return d
}

func pacingConfig() PacingConfig {
	return PacingConfig{
		Params:       correction.DefaultParams(),
		LookbackDays: correction.DefaultLookbackDays,
		MinSamples:   correction.DefaultMinSamples,
		Concurrency:  2,
	}
}

func seedFridaySnapshots(t *testing.T, stores store.Stores, counts []int) []time.Time {
	t.Helper()

	friday := lastWeekday(time.Friday)
	dates := make([]time.Time, len(counts))
	var snapshots []domain.ReservationSnapshot
	for i, count := range counts {
		date := friday.AddDate(0, 0, -7*i)
		dates[i] = date
		snapshots = append(snapshots,
			domain.ReservationSnapshot{
				VenueID:        "v1",
				BusinessDate:   date,
				SnapshotAt:     date.Add(-24 * time.Hour),
				ConfirmedCount: count,
				HoursToService: 24,
			},
			// Outside the checkpoint window; must never be selected.
			domain.ReservationSnapshot{
				VenueID:        "v1",
				BusinessDate:   date,
				SnapshotAt:     date.Add(-48 * time.Hour),
				ConfirmedCount: 999,
				HoursToService: 48,
			},
		)
	}
	require.NoError(t, stores.Pacing.AppendSnapshots(context.Background(), snapshots))
	return dates
}

func pacingState(scope string) *State {
	return newState(domain.JobRecord{
		ID:         "run-1",
		Kind:       domain.JobKindPacingRefresh,
		Status:     domain.JobStatusRunning,
		VenueScope: scope,
	}, nil)
}

func TestPacingRefreshComputesMedianBaseline(t *testing.T) {
	stores := memory.NewStores()
	seedVenue(t, stores, "v1")
	seedFridaySnapshots(t, stores, []int{80, 70, 60, 50})

	job := NewPacingRefreshJob(stores, pacingConfig(), testLogger())
	state := pacingState("")
	require.NoError(t, job.Run(context.Background(), state))

	record := state.Record()
	assert.Equal(t, 1, record.VenuesProcessed)
	assert.Zero(t, record.VenuesFailed)

	baselines, err := stores.Pacing.ListBaselines(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, baselines, 1)
	assert.Equal(t, domain.DayTypeFriday, baselines[0].DayType)
	assert.InDelta(t, 65.0, baselines[0].TypicalOnHand, 1e-9, "median of 50,60,70,80")
	assert.Equal(t, 4, baselines[0].SampleSize)
	assert.False(t, baselines[0].ComputedAt.IsZero())
}

func TestPacingRefreshHolidayReclassifiesDate(t *testing.T) {
	stores := memory.NewStores()
	seedVenue(t, stores, "v1")
	dates := seedFridaySnapshots(t, stores, []int{80, 70, 60, 50})

	// The most recent friday becomes a holiday; its checkpoint must leave
	// the friday group and land in a holiday group too small to keep.
	err := stores.Calendar.UpsertCalendarEntry(context.Background(), domain.HolidayCalendarEntry{
		Date:        dates[0],
		HolidayCode: "EID",
	})
	require.NoError(t, err)

	job := NewPacingRefreshJob(stores, pacingConfig(), testLogger())
	state := pacingState("")
	require.NoError(t, job.Run(context.Background(), state))

	baselines, err := stores.Pacing.ListBaselines(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, baselines, 1, "holiday group has one sample and is skipped")
	assert.Equal(t, domain.DayTypeFriday, baselines[0].DayType)
	assert.InDelta(t, 60.0, baselines[0].TypicalOnHand, 1e-9, "median of 50,60,70")
	assert.Equal(t, 3, baselines[0].SampleSize)
}

func TestPacingRefreshInsufficientSamplesKeepsStoredBaseline(t *testing.T) {
	stores := memory.NewStores()
	seedVenue(t, stores, "v1")
	seedFridaySnapshots(t, stores, []int{80, 70})

	existing := domain.PacingBaseline{
		VenueID:       "v1",
		DayType:       domain.DayTypeFriday,
		TypicalOnHand: 42,
		SampleSize:    9,
		ComputedAt:    time.Now().UTC().AddDate(0, 0, -30),
	}
	require.NoError(t, stores.Pacing.UpsertBaseline(context.Background(), existing))

	job := NewPacingRefreshJob(stores, pacingConfig(), testLogger())
	state := pacingState("")
	require.NoError(t, job.Run(context.Background(), state))

	assert.Equal(t, 1, state.Record().VenuesProcessed)

	baselines, err := stores.Pacing.ListBaselines(context.Background(), "v1")
	require.NoError(t, err)
	require.Len(t, baselines, 1)
	assert.InDelta(t, 42.0, baselines[0].TypicalOnHand, 1e-9, "two samples must not overwrite")
	assert.Equal(t, 9, baselines[0].SampleSize)
}

func TestPacingRefreshSkipsVenueWithoutUsableSnapshots(t *testing.T) {
	t.Run("no snapshots at all", func(t *testing.T) {
		stores := memory.NewStores()
		seedVenue(t, stores, "v1")

		job := NewPacingRefreshJob(stores, pacingConfig(), testLogger())
		state := pacingState("")
		require.NoError(t, job.Run(context.Background(), state))

		assert.Equal(t, 1, state.Record().VenuesSkipped)
	})

	t.Run("only snapshots outside the checkpoint window", func(t *testing.T) {
		stores := memory.NewStores()
		seedVenue(t, stores, "v1")

		date := lastWeekday(time.Friday)
		err := stores.Pacing.AppendSnapshots(context.Background(), []domain.ReservationSnapshot{
			{VenueID: "v1", BusinessDate: date, SnapshotAt: date.Add(-72 * time.Hour), ConfirmedCount: 55, HoursToService: 72},
		})
		require.NoError(t, err)

		job := NewPacingRefreshJob(stores, pacingConfig(), testLogger())
		state := pacingState("")
		require.NoError(t, job.Run(context.Background(), state))

		assert.Equal(t, 1, state.Record().VenuesSkipped)

		baselines, err := stores.Pacing.ListBaselines(context.Background(), "v1")
		require.NoError(t, err)
		assert.Empty(t, baselines)
	})
}

func TestPacingRefreshDryRun(t *testing.T) {
	stores := memory.NewStores()
	seedVenue(t, stores, "v1")
	seedFridaySnapshots(t, stores, []int{80, 70, 60, 50})

	cfg := pacingConfig()
	cfg.DryRun = true
	job := NewPacingRefreshJob(stores, cfg, testLogger())
	state := pacingState("")
	require.NoError(t, job.Run(context.Background(), state))

	assert.Equal(t, 1, state.Record().VenuesProcessed)

	baselines, err := stores.Pacing.ListBaselines(context.Background(), "v1")
	require.NoError(t, err)
	assert.Empty(t, baselines, "dry run must not persist")
}
