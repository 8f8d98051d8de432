package correction

import (
	"math"
	"sort"
	"time"
)

// ErrorPair pairs the corrected forecast total for one business date with
// the realized actual for that date.
type ErrorPair struct {
	Date     time.Time
	Forecast float64
	Actual   float64
}

// AccuracySummary is the aggregate accuracy of a set of pairs.
type AccuracySummary struct {
	MAPE        float64
	PctWithin10 float64
	PctWithin20 float64
	SampleSize  int
	Excluded    int
}

// ComputeAccuracy aggregates forecast-vs-actual pairs into MAPE and
// within-tolerance shares. Pairs with actual at or below zero are excluded
// by the division guard and counted in Excluded. The boolean is false when
// fewer than minSamples usable pairs remain, in which case the caller keeps
// whatever stats it already has.
func ComputeAccuracy(pairs []ErrorPair, minSamples int) (AccuracySummary, bool) {
	var summary AccuracySummary
	var totalPct float64
	var within10, within20 int

	for _, pair := range pairs {
		if pair.Actual <= 0 {
			summary.Excluded++
			continue
		}
		pctErr := math.Abs(pair.Forecast-pair.Actual) / pair.Actual * 100
		totalPct += pctErr
		if pctErr <= 10 {
			within10++
		}
		if pctErr <= 20 {
			within20++
		}
		summary.SampleSize++
	}

	if summary.SampleSize < minSamples {
		return summary, false
	}

	n := float64(summary.SampleSize)
	summary.MAPE = roundTo(totalPct/n, 2)
	summary.PctWithin10 = roundTo(float64(within10)/n*100, 1)
	summary.PctWithin20 = roundTo(float64(within20)/n*100, 1)
	return summary, true
}

// Median returns the median of the values, averaging the middle two for an
// even count. An empty input yields zero.
func Median(values []float64) float64 {
	if len(values) == 0 {
		return 0
	}
	sorted := make([]float64, len(values))
	copy(sorted, values)
	sort.Float64s(sorted)

	mid := len(sorted) / 2
	if len(sorted)%2 == 1 {
		return sorted[mid]
	}
	return (sorted[mid-1] + sorted[mid]) / 2
}

// roundTo rounds to the given number of decimal places, half away from zero.
func roundTo(v float64, places int) float64 {
	factor := math.Pow(10, float64(places))
	return math.Round(v*factor) / factor
}
