package domain

import (
	"fmt"
	"time"
)

// Shift identifies the service period a forecast row covers.
type Shift string

const (
	ShiftLunch  Shift = "lunch"
	ShiftDinner Shift = "dinner"
)

// Valid reports whether the shift is one of the known service periods.
func (s Shift) Valid() bool {
	return s == ShiftLunch || s == ShiftDinner
}

// ParseShift converts a string into a Shift, rejecting unknown values.
func ParseShift(s string) (Shift, error) {
	shift := Shift(s)
	if !shift.Valid() {
		return "", fmt.Errorf("unknown shift %q", s)
	}
	return shift, nil
}

// DayType is the coarse date classification used for bias and accuracy lookups.
type DayType string

const (
	DayTypeWeekday  DayType = "weekday"
	DayTypeFriday   DayType = "friday"
	DayTypeSaturday DayType = "saturday"
	DayTypeSunday   DayType = "sunday"
	DayTypeHoliday  DayType = "holiday"
)

// Valid reports whether the day type is one of the known classifications.
func (d DayType) Valid() bool {
	switch d {
	case DayTypeWeekday, DayTypeFriday, DayTypeSaturday, DayTypeSunday, DayTypeHoliday:
		return true
	}
	return false
}

// ParseDayType converts a string into a DayType, rejecting unknown values.
func ParseDayType(s string) (DayType, error) {
	dt := DayType(s)
	if !dt.Valid() {
		return "", fmt.Errorf("unknown day type %q", s)
	}
	return dt, nil
}

// DayTypeForWeekday maps a weekday to its base day type. Holiday
// classification is a calendar decision and is layered on separately.
func DayTypeForWeekday(w time.Weekday) DayType {
	switch w {
	case time.Friday:
		return DayTypeFriday
	case time.Saturday:
		return DayTypeSaturday
	case time.Sunday:
		return DayTypeSunday
	default:
		return DayTypeWeekday
	}
}

// DateOnly normalizes a timestamp to its civil date at UTC midnight.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// DateKey renders a civil date in the canonical yyyy-mm-dd form used for
// grouping and store keys.
func DateKey(t time.Time) string {
	return t.Format("2006-01-02")
}

// RawForecast is one statistical forecast row as emitted by the upstream
// forecaster. Rows are append-only per run; only the row with the maximum
// ForecastRunAt per (venue, business date, shift) is authoritative.
type RawForecast struct {
	ID               string    `json:"id,omitempty" db:"id"`
	VenueID          string    `json:"venue_id" db:"venue_id" validate:"required"`
	BusinessDate     time.Time `json:"business_date" db:"business_date"`
	Shift            Shift     `json:"shift" db:"shift" validate:"required"`
	ForecastRunAt    time.Time `json:"forecast_run_at" db:"forecast_run_at"`
	CoversPredicted  float64   `json:"covers_predicted" db:"covers_predicted" validate:"min=0"`
	CoversLower      *float64  `json:"covers_lower,omitempty" db:"covers_lower"`
	CoversUpper      *float64  `json:"covers_upper,omitempty" db:"covers_upper"`
	RevenuePredicted *float64  `json:"revenue_predicted,omitempty" db:"revenue_predicted"`
	DayType          *DayType  `json:"day_type,omitempty" db:"day_type"`
	CreatedAt        time.Time `json:"created_at" db:"created_at"`
}

// ForecastKey identifies a forecast target independent of the run that
// produced it.
type ForecastKey struct {
	VenueID string
	Date    string
	Shift   Shift
}

// Key returns the run-independent identity of the row.
func (f RawForecast) Key() ForecastKey {
	return ForecastKey{VenueID: f.VenueID, Date: DateKey(f.BusinessDate), Shift: f.Shift}
}

// CorrectedForecast is the derived, never-persisted output of the correction
// pipeline: the corrected prediction plus each layer's individual
// contribution. It is recomputed on every read so it cannot drift from its
// inputs.
type CorrectedForecast struct {
	VenueID       string    `json:"venue_id"`
	BusinessDate  time.Time `json:"business_date"`
	Shift         Shift     `json:"shift"`
	ForecastRunAt time.Time `json:"forecast_run_at"`

	DayType     DayType `json:"day_type"`
	IsClosedDay bool    `json:"is_closed_day"`
	HolidayCode string  `json:"holiday_code,omitempty"`

	CoversRaw        float64  `json:"covers_raw"`
	CoversCorrected  int      `json:"covers_corrected"`
	CoversLower      *int     `json:"covers_lower,omitempty"`
	CoversUpper      *int     `json:"covers_upper,omitempty"`
	RevenueRaw       *float64 `json:"revenue_raw,omitempty"`
	RevenueCorrected *float64 `json:"revenue_corrected,omitempty"`

	DayTypeOffset    int      `json:"day_type_offset"`
	HolidayOffset    int      `json:"holiday_offset"`
	PacingMultiplier float64  `json:"pacing_multiplier"`
	PacingOnHand     *int     `json:"pacing_on_hand,omitempty"`
	PacingTypical    *float64 `json:"pacing_typical,omitempty"`
	AdjustmentRatio  float64  `json:"adjustment_ratio"`

	ConfidencePct      *float64 `json:"confidence_pct,omitempty"`
	MAPE               *float64 `json:"mape,omitempty"`
	PctWithin10        *float64 `json:"pct_within_10,omitempty"`
	AccuracySampleSize int      `json:"accuracy_sample_size,omitempty"`
}
