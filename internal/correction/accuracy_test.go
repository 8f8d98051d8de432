package correction

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestComputeAccuracy(t *testing.T) {
	day := func(n int) time.Time {
		return time.Date(2026, 4, n, 0, 0, 0, 0, time.UTC)
	}

	t.Run("basic stats over four days", func(t *testing.T) {
		pairs := []ErrorPair{
			{Date: day(1), Forecast: 110, Actual: 100}, // 10% in both bands
			{Date: day(2), Forecast: 95, Actual: 100},  // 5% in both bands
			{Date: day(3), Forecast: 118, Actual: 100}, // 18% within 20 only
			{Date: day(4), Forecast: 130, Actual: 100}, // 30% outside both
		}
		got, ok := ComputeAccuracy(pairs, 3)
		require.True(t, ok)
		assert.Equal(t, 4, got.SampleSize)
		assert.Equal(t, 0, got.Excluded)
		assert.InDelta(t, 15.75, got.MAPE, 1e-9)
		assert.InDelta(t, 50.0, got.PctWithin10, 1e-9)
		assert.InDelta(t, 75.0, got.PctWithin20, 1e-9)
	})

	t.Run("zero and negative actuals are excluded", func(t *testing.T) {
		pairs := []ErrorPair{
			{Date: day(1), Forecast: 50, Actual: 0},
			{Date: day(2), Forecast: 50, Actual: -3},
			{Date: day(3), Forecast: 50, Actual: 50},
			{Date: day(4), Forecast: 55, Actual: 50},
			{Date: day(5), Forecast: 45, Actual: 50},
		}
		got, ok := ComputeAccuracy(pairs, 3)
		require.True(t, ok)
		assert.Equal(t, 3, got.SampleSize)
		assert.Equal(t, 2, got.Excluded)
		assert.InDelta(t, 100.0, got.PctWithin20, 1e-9)
	})

	t.Run("below minimum samples", func(t *testing.T) {
		pairs := []ErrorPair{
			{Date: day(1), Forecast: 50, Actual: 48},
			{Date: day(2), Forecast: 50, Actual: 0},
		}
		_, ok := ComputeAccuracy(pairs, 3)
		assert.False(t, ok)
	})

	t.Run("empty input", func(t *testing.T) {
		_, ok := ComputeAccuracy(nil, 1)
		assert.False(t, ok)
	})

	t.Run("band edges are inclusive", func(t *testing.T) {
		pairs := []ErrorPair{
			{Date: day(1), Forecast: 110, Actual: 100}, // exactly 10%
			{Date: day(2), Forecast: 120, Actual: 100}, // exactly 20%
			{Date: day(3), Forecast: 100, Actual: 100},
		}
		got, ok := ComputeAccuracy(pairs, 3)
		require.True(t, ok)
		assert.InDelta(t, 200.0/3.0, got.PctWithin10, 0.05)
		assert.InDelta(t, 100.0, got.PctWithin20, 1e-9)
	})
}
