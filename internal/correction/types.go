package correction

import (
	"fmt"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// Package constants for the correction pipeline.
const (
	// NeutralMultiplier is the pacing multiplier applied when pacing data is
	// missing or inside the deadband.
	NeutralMultiplier = 1.000

	// DefaultDecayRate is the per-cycle bias decay rate.
	DefaultDecayRate = 0.15

	// DefaultDecayMinThreshold is the absolute offset at or below which a
	// decayed value snaps to zero.
	DefaultDecayMinThreshold = 2

	// DefaultDecayMaxCycles stops decay for a record once its cycle counter
	// reaches this many cycles.
	DefaultDecayMaxCycles = 6

	// DefaultLookbackDays is the trailing window for the baseline and
	// accuracy refresh aggregates (eight weeks).
	DefaultLookbackDays = 56

	// DefaultMinSamples is the minimum number of observations a refresh
	// aggregate needs before it overwrites a stored value.
	DefaultMinSamples = 3
)

// Params holds the pacing-layer tunables. All fields must satisfy
// Validate before use; DefaultParams returns the calibrated values.
type Params struct {
	// DeadbandLow/DeadbandHigh bound the pace ratio range treated as noise.
	DeadbandLow  float64 `json:"deadband_low" yaml:"deadband_low"`
	DeadbandHigh float64 `json:"deadband_high" yaml:"deadband_high"`

	// SlowSlope scales the correction when pace falls below the deadband;
	// FastSlope when it rises above.
	SlowSlope float64 `json:"slow_slope" yaml:"slow_slope"`
	FastSlope float64 `json:"fast_slope" yaml:"fast_slope"`

	// MultiplierFloor/MultiplierCeiling are the hard clamp on the output.
	MultiplierFloor   float64 `json:"multiplier_floor" yaml:"multiplier_floor"`
	MultiplierCeiling float64 `json:"multiplier_ceiling" yaml:"multiplier_ceiling"`

	// SnapshotWindowLow/SnapshotWindowHigh bound hours_to_service for the
	// snapshot eligible as the pacing checkpoint.
	SnapshotWindowLow  float64 `json:"snapshot_window_low" yaml:"snapshot_window_low"`
	SnapshotWindowHigh float64 `json:"snapshot_window_high" yaml:"snapshot_window_high"`
}

// DefaultParams returns the calibrated pacing parameters.
func DefaultParams() Params {
	return Params{
		DeadbandLow:        0.90,
		DeadbandHigh:       1.10,
		SlowSlope:          0.5,
		FastSlope:          0.6,
		MultiplierFloor:    0.850,
		MultiplierCeiling:  1.250,
		SnapshotWindowLow:  20,
		SnapshotWindowHigh: 28,
	}
}

// Validate checks internal consistency of the pacing parameters.
func (p Params) Validate() error {
	if p.DeadbandLow <= 0 || p.DeadbandHigh <= p.DeadbandLow {
		return &ValidationError{Field: "Deadband", Message: "deadband bounds must satisfy 0 < low < high",
			Value: fmt.Sprintf("[%v, %v]", p.DeadbandLow, p.DeadbandHigh)}
	}
	if p.SlowSlope <= 0 || p.FastSlope <= 0 {
		return &ValidationError{Field: "Slopes", Message: "slopes must be positive",
			Value: fmt.Sprintf("slow=%v fast=%v", p.SlowSlope, p.FastSlope)}
	}
	if p.MultiplierFloor <= 0 || p.MultiplierFloor > NeutralMultiplier {
		return &ValidationError{Field: "MultiplierFloor", Message: "floor must be in (0, 1]", Value: p.MultiplierFloor}
	}
	if p.MultiplierCeiling < NeutralMultiplier {
		return &ValidationError{Field: "MultiplierCeiling", Message: "ceiling must be at least 1", Value: p.MultiplierCeiling}
	}
	if p.SnapshotWindowLow < 0 || p.SnapshotWindowHigh <= p.SnapshotWindowLow {
		return &ValidationError{Field: "SnapshotWindow", Message: "snapshot window must satisfy 0 <= low < high",
			Value: fmt.Sprintf("[%v, %v]", p.SnapshotWindowLow, p.SnapshotWindowHigh)}
	}
	return nil
}

// DecayParams holds the bias decay tunables.
type DecayParams struct {
	// Rate is the fraction removed from each offset per cycle.
	Rate float64 `json:"rate" yaml:"rate"`
	// MinThreshold snaps offsets with |value| at or below it to zero.
	MinThreshold int `json:"min_threshold" yaml:"min_threshold"`
	// MaxCycles freezes a record once its counter reaches this many cycles.
	MaxCycles int `json:"max_cycles" yaml:"max_cycles"`
}

// DefaultDecayParams returns the calibrated decay parameters.
func DefaultDecayParams() DecayParams {
	return DecayParams{
		Rate:         DefaultDecayRate,
		MinThreshold: DefaultDecayMinThreshold,
		MaxCycles:    DefaultDecayMaxCycles,
	}
}

// Validate checks internal consistency of the decay parameters.
func (p DecayParams) Validate() error {
	if p.Rate <= 0 || p.Rate >= 1 {
		return &ValidationError{Field: "Rate", Message: "decay rate must be in (0, 1)", Value: p.Rate}
	}
	if p.MinThreshold < 0 {
		return &ValidationError{Field: "MinThreshold", Message: "minimum threshold cannot be negative", Value: p.MinThreshold}
	}
	if p.MaxCycles <= 0 {
		return &ValidationError{Field: "MaxCycles", Message: "maximum cycles must be positive", Value: p.MaxCycles}
	}
	return nil
}

// Inputs is everything the composer needs for one venue and date range,
// pre-fetched by the caller. The composer itself performs no I/O.
type Inputs struct {
	Venue     domain.VenueProfile
	Forecasts []domain.RawForecast
	Calendar  []domain.HolidayCalendarEntry
	Regimes   []domain.HolidayRegimeAdjustment
	Bias      *domain.DayTypeBiasRecord
	Baselines []domain.PacingBaseline
	Snapshots []domain.ReservationSnapshot
	Accuracy  []domain.AccuracyStats
}

// ValidationError describes an invalid input or parameter.
type ValidationError struct {
	Field   string
	Message string
	Value   interface{}
}

func (e *ValidationError) Error() string {
	if e.Value != nil {
		return fmt.Sprintf("validation failed for %s: %s (value: %v)", e.Field, e.Message, e.Value)
	}
	return fmt.Sprintf("validation failed for %s: %s", e.Field, e.Message)
}

// shiftOrder fixes the intra-day presentation order of shifts.
func shiftOrder(s domain.Shift) int {
	switch s {
	case domain.ShiftLunch:
		return 0
	case domain.ShiftDinner:
		return 1
	default:
		return 2
	}
}

// sameDate reports whether two timestamps fall on the same civil date.
func sameDate(a, b time.Time) bool {
	return domain.DateKey(a) == domain.DateKey(b)
}
