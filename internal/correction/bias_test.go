package correction

import (
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"shiftcast/pkg/contracts/domain"
)

func activeBias(venueID string, generic int, offsets map[domain.DayType]int) *domain.DayTypeBiasRecord {
	return &domain.DayTypeBiasRecord{
		ID:            "b-1",
		VenueID:       venueID,
		EffectiveFrom: time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC),
		CoversOffset:  generic,
		Offsets:       offsets,
	}
}

func TestBiasOffset(t *testing.T) {
	tests := []struct {
		name       string
		record     *domain.DayTypeBiasRecord
		dayType    domain.DayType
		expected   int
		fromRecord bool
	}{
		{
			name:     "no record is neutral",
			record:   nil,
			dayType:  domain.DayTypeSaturday,
			expected: 0,
		},
		{
			name:       "per-day-type entry wins",
			record:     activeBias("v1", 5, map[domain.DayType]int{domain.DayTypeSaturday: 18}),
			dayType:    domain.DayTypeSaturday,
			expected:   18,
			fromRecord: true,
		},
		{
			name:       "missing map entry falls back to generic offset",
			record:     activeBias("v1", 5, map[domain.DayType]int{domain.DayTypeSaturday: 18}),
			dayType:    domain.DayTypeSunday,
			expected:   5,
			fromRecord: true,
		},
		{
			name:       "empty map uses generic offset",
			record:     activeBias("v1", -7, nil),
			dayType:    domain.DayTypeWeekday,
			expected:   -7,
			fromRecord: true,
		},
		{
			name:       "explicit zero map entry beats generic",
			record:     activeBias("v1", 9, map[domain.DayType]int{domain.DayTypeFriday: 0}),
			dayType:    domain.DayTypeFriday,
			expected:   0,
			fromRecord: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, ok := BiasOffset(tt.record, tt.dayType)
			assert.Equal(t, tt.expected, got)
			assert.Equal(t, tt.fromRecord, ok)
		})
	}
}

func TestBiasOffsetIgnoresClosedRecord(t *testing.T) {
	record := activeBias("v1", 12, nil)
	closedAt := time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)
	record.EffectiveTo = &closedAt

	got, ok := BiasOffset(record, domain.DayTypeWeekday)
	assert.Zero(t, got)
	assert.False(t, ok)
}

func TestDecayOffsets(t *testing.T) {
	params := DefaultDecayParams()

	t.Run("single cycle decays each key", func(t *testing.T) {
		offsets := map[domain.DayType]int{
			domain.DayTypeWeekday:  20,
			domain.DayTypeSaturday: -40,
		}
		decayed, changed := DecayOffsets(offsets, params)
		require.True(t, changed)
		assert.Equal(t, 17, decayed[domain.DayTypeWeekday])   // round(20*0.85)
		assert.Equal(t, -34, decayed[domain.DayTypeSaturday]) // round(-40*0.85)
	})

	t.Run("holiday key is never decayed", func(t *testing.T) {
		offsets := map[domain.DayType]int{
			domain.DayTypeHoliday: 300,
			domain.DayTypeFriday:  30,
		}
		decayed, changed := DecayOffsets(offsets, params)
		require.True(t, changed)
		assert.Equal(t, 300, decayed[domain.DayTypeHoliday])
		assert.Equal(t, 26, decayed[domain.DayTypeFriday])
	})

	t.Run("small old value snaps to zero", func(t *testing.T) {
		decayed, changed := DecayOffsets(map[domain.DayType]int{domain.DayTypeSunday: 2}, params)
		require.True(t, changed)
		assert.Equal(t, 0, decayed[domain.DayTypeSunday])
	})

	t.Run("small decayed value snaps to zero", func(t *testing.T) {
		custom := DecayParams{Rate: 0.5, MinThreshold: 2, MaxCycles: 6}
		decayed, changed := DecayOffsets(map[domain.DayType]int{domain.DayTypeSunday: 4}, custom)
		require.True(t, changed)
		assert.Equal(t, 0, decayed[domain.DayTypeSunday]) // round(4*0.5)=2 hits the threshold
	})

	t.Run("zero offsets stay zero without change", func(t *testing.T) {
		decayed, changed := DecayOffsets(map[domain.DayType]int{domain.DayTypeWeekday: 0}, params)
		assert.False(t, changed)
		assert.Equal(t, 0, decayed[domain.DayTypeWeekday])
	})

	t.Run("empty map reports no change", func(t *testing.T) {
		decayed, changed := DecayOffsets(map[domain.DayType]int{}, params)
		assert.False(t, changed)
		assert.Empty(t, decayed)
	})
}

func TestDecayConvergence(t *testing.T) {
	params := DefaultDecayParams()
	const start = 100

	t.Run("tracks the closed form while shrinking", func(t *testing.T) {
		offsets := map[domain.DayType]int{domain.DayTypeSaturday: start}
		prev := start
		for cycle := 1; cycle <= 20; cycle++ {
			offsets, _ = DecayOffsets(offsets, params)
			current := offsets[domain.DayTypeSaturday]

			assert.LessOrEqual(t, current, prev, "cycle %d must not grow the offset", cycle)
			if cycle <= params.MaxCycles {
				closedForm := math.Round(start * math.Pow(1-params.Rate, float64(cycle)))
				assert.InDelta(t, closedForm, float64(current), 2, "cycle %d", cycle)
			}
			prev = current
		}
	})

	t.Run("snap to zero is terminal", func(t *testing.T) {
		fast := DecayParams{Rate: 0.5, MinThreshold: 2, MaxCycles: 10}
		offsets := map[domain.DayType]int{domain.DayTypeSaturday: 9}

		offsets, _ = DecayOffsets(offsets, fast) // round(4.5) = 5
		assert.Equal(t, 5, offsets[domain.DayTypeSaturday])
		offsets, _ = DecayOffsets(offsets, fast) // round(2.5) = 3, above threshold
		assert.Equal(t, 3, offsets[domain.DayTypeSaturday])
		offsets, _ = DecayOffsets(offsets, fast) // round(1.5) = 2, snaps to zero
		assert.Equal(t, 0, offsets[domain.DayTypeSaturday])

		for cycle := 0; cycle < 5; cycle++ {
			var changed bool
			offsets, changed = DecayOffsets(offsets, fast)
			assert.False(t, changed)
			assert.Equal(t, 0, offsets[domain.DayTypeSaturday])
		}
	})
}

func TestDecayEligible(t *testing.T) {
	params := DefaultDecayParams()
	now := time.Date(2026, 4, 6, 3, 0, 0, 0, time.UTC)
	cutoff := now.Add(-6 * 24 * time.Hour)

	base := func() domain.DayTypeBiasRecord {
		return *activeBias("v1", 0, map[domain.DayType]int{domain.DayTypeFriday: 25})
	}

	t.Run("active record with offsets is eligible", func(t *testing.T) {
		assert.True(t, DecayEligible(base(), params, cutoff))
	})

	t.Run("closed record is not eligible", func(t *testing.T) {
		record := base()
		closedAt := now.Add(-24 * time.Hour)
		record.EffectiveTo = &closedAt
		assert.False(t, DecayEligible(record, params, cutoff))
	})

	t.Run("empty offset map is not eligible", func(t *testing.T) {
		record := base()
		record.Offsets = nil
		assert.False(t, DecayEligible(record, params, cutoff))
	})

	t.Run("cycle ceiling freezes the record", func(t *testing.T) {
		record := base()
		record.DecayCycle = params.MaxCycles
		assert.False(t, DecayEligible(record, params, cutoff))
	})

	t.Run("recent decay is skipped on re-run", func(t *testing.T) {
		record := base()
		recent := now.Add(-2 * time.Hour)
		record.DecayedAt = &recent
		assert.False(t, DecayEligible(record, params, cutoff))
	})

	t.Run("old decay does not block the next cycle", func(t *testing.T) {
		record := base()
		old := now.Add(-7 * 24 * time.Hour)
		record.DecayedAt = &old
		assert.True(t, DecayEligible(record, params, cutoff))
	})
}
