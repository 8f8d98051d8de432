// Package api contains API contract definitions for the ShiftCast forecast
// correction service. Version v1 represents the current stable API version.
package api

// Common request parameters

// DateRangeRequest represents a civil date range in requests.
type DateRangeRequest struct {
	From string `json:"from" query:"from" validate:"required,datetime=2006-01-02"`
	To   string `json:"to" query:"to" validate:"required,datetime=2006-01-02"`
}

// Forecast API requests

// ForecastListRequest represents a corrected-forecast read for one venue.
type ForecastListRequest struct {
	VenueID string `json:"venue_id" param:"id" validate:"required"`
	DateRangeRequest
	Raw bool `json:"raw" query:"raw"`
}

// Admin API requests

// BiasRecordReplaceRequest represents a request to replace a venue's active
// day-type bias record. The previous record is closed, never mutated.
type BiasRecordReplaceRequest struct {
	VenueID      string         `json:"venue_id" param:"id" validate:"required"`
	CoversOffset int            `json:"covers_offset" validate:"min=-500,max=500"`
	Offsets      map[string]int `json:"offsets" validate:"omitempty,dive,min=-500,max=500"`
	Reason       string         `json:"reason" validate:"required,min=3,max=500"`
}

// RegimeUpsertRequest represents a request to create or update a holiday
// regime adjustment row.
type RegimeUpsertRequest struct {
	HolidayCode   string  `json:"holiday_code" validate:"required,min=2,max=64"`
	VenueCategory string  `json:"venue_category" validate:"required,min=2,max=64"`
	CoversOffset  int     `json:"covers_offset" validate:"min=-1000,max=1000"`
	MaxUpliftPct  float64 `json:"max_uplift_pct" validate:"min=0,max=500"`
	Floor         int     `json:"floor" validate:"min=0"`
}

// CalendarUpsertRequest represents a request to create or update a holiday
// calendar entry. An empty venue_id makes the entry global.
type CalendarUpsertRequest struct {
	Date        string `json:"date" validate:"required,datetime=2006-01-02"`
	HolidayCode string `json:"holiday_code" validate:"required,min=2,max=64"`
	VenueID     string `json:"venue_id,omitempty"`
	Label       string `json:"label,omitempty" validate:"omitempty,max=128"`
}

// VenueUpsertRequest represents a request to register or reclassify a venue.
type VenueUpsertRequest struct {
	VenueID        string `json:"venue_id" param:"id" validate:"required"`
	Name           string `json:"name" validate:"required,min=1,max=128"`
	Category       string `json:"category" validate:"required,min=2,max=64"`
	ClosedWeekdays []int  `json:"closed_weekdays" validate:"omitempty,dive,min=0,max=6"`
}

// RefreshTriggerRequest represents an out-of-cycle recalibration trigger for
// a single venue.
type RefreshTriggerRequest struct {
	Job     string `json:"job" validate:"required,oneof=bias_decay pacing_refresh accuracy_refresh"`
	VenueID string `json:"venue_id" validate:"required"`
}

// ActualUpsertRequest represents one realized-actuals row submitted directly
// over the API rather than through the intake feed.
type ActualUpsertRequest struct {
	VenueID       string   `json:"venue_id" validate:"required"`
	BusinessDate  string   `json:"business_date" validate:"required,datetime=2006-01-02"`
	CoversActual  float64  `json:"covers_actual" validate:"min=0"`
	RevenueActual *float64 `json:"revenue_actual,omitempty" validate:"omitempty,min=0"`
}

// JobListRequest represents a job-history listing.
type JobListRequest struct {
	Kind   string `json:"kind" query:"kind" validate:"omitempty,oneof=bias_decay pacing_refresh accuracy_refresh"`
	Status string `json:"status" query:"status" validate:"omitempty,oneof=pending running completed failed"`
	Limit  int    `json:"limit" query:"limit" validate:"omitempty,min=1,max=200"`
}
