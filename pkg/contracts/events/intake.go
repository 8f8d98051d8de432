// Package events defines the wire contracts shared with upstream producers
// and WebSocket clients: Kafka intake payloads and the job progress feed.
package events

import "time"

// Kafka event types, carried in the event_type record header.
const (
	TypeForecastRunPublished = "forecast.run_published"
	TypeSnapshotRecorded     = "reservation.snapshot_recorded"
	TypeActualsRecorded      = "covers.actuals_recorded"
)

// DateLayout is the business-date format used on the wire. Business dates
// are calendar days in the venue's local market, never instants, so they
// travel as plain dates.
const DateLayout = "2006-01-02"

// ForecastRow is one (venue, date, shift) prediction inside a published run.
type ForecastRow struct {
	VenueID          string   `json:"venue_id"`
	BusinessDate     string   `json:"business_date"`
	Shift            string   `json:"shift"`
	CoversPredicted  float64  `json:"covers_predicted"`
	CoversLower      *float64 `json:"covers_lower,omitempty"`
	CoversUpper      *float64 `json:"covers_upper,omitempty"`
	RevenuePredicted *float64 `json:"revenue_predicted,omitempty"`
	DayType          string   `json:"day_type,omitempty"`
}

// ForecastRunPublished is emitted by the upstream forecaster once per model
// run. Redeliveries of the same run are expected and must be idempotent on
// the consumer side.
type ForecastRunPublished struct {
	RunID         string        `json:"run_id"`
	ForecastRunAt time.Time     `json:"forecast_run_at"`
	Rows          []ForecastRow `json:"rows"`
}

// SnapshotRecorded is emitted by the reservations system each time it
// observes the confirmed-booking count for an upcoming service.
type SnapshotRecorded struct {
	VenueID        string    `json:"venue_id"`
	BusinessDate   string    `json:"business_date"`
	SnapshotAt     time.Time `json:"snapshot_at"`
	ConfirmedCount int       `json:"confirmed_count"`
	HoursToService float64   `json:"hours_to_service"`
}

// ActualsRecorded is emitted by the POS bridge after close of business with
// the realized covers for a date. A later message for the same date
// supersedes the earlier one.
type ActualsRecorded struct {
	VenueID       string    `json:"venue_id"`
	BusinessDate  string    `json:"business_date"`
	CoversActual  float64   `json:"covers_actual"`
	RevenueActual *float64  `json:"revenue_actual,omitempty"`
	RecordedAt    time.Time `json:"recorded_at"`
}
