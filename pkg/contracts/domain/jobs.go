package domain

import (
	"time"
)

// JobKind names one of the scheduled recalibration tasks.
type JobKind string

const (
	JobKindBiasDecay       JobKind = "bias_decay"
	JobKindPacingRefresh   JobKind = "pacing_refresh"
	JobKindAccuracyRefresh JobKind = "accuracy_refresh"
)

// Valid reports whether the kind names a known job.
func (k JobKind) Valid() bool {
	switch k {
	case JobKindBiasDecay, JobKindPacingRefresh, JobKindAccuracyRefresh:
		return true
	}
	return false
}

// JobStatus is the lifecycle state of a job run.
type JobStatus string

const (
	JobStatusPending   JobStatus = "pending"
	JobStatusRunning   JobStatus = "running"
	JobStatusCompleted JobStatus = "completed"
	JobStatusFailed    JobStatus = "failed"
)

// JobRecord is the persisted outcome of one job run, including the per-venue
// failure accounting required of batch jobs.
type JobRecord struct {
	ID              string     `json:"id" db:"id"`
	Kind            JobKind    `json:"kind" db:"kind"`
	Status          JobStatus  `json:"status" db:"status"`
	VenueScope      string     `json:"venue_scope,omitempty" db:"venue_scope"`
	CreatedAt       time.Time  `json:"created_at" db:"created_at"`
	StartedAt       *time.Time `json:"started_at,omitempty" db:"started_at"`
	CompletedAt     *time.Time `json:"completed_at,omitempty" db:"completed_at"`
	VenuesProcessed int        `json:"venues_processed" db:"venues_processed"`
	VenuesSkipped   int        `json:"venues_skipped" db:"venues_skipped"`
	VenuesFailed    int        `json:"venues_failed" db:"venues_failed"`
	Message         string     `json:"message,omitempty" db:"message"`
	Error           string     `json:"error,omitempty" db:"error"`
}

// Finished reports whether the run reached a terminal status.
func (r JobRecord) Finished() bool {
	return r.Status == JobStatusCompleted || r.Status == JobStatusFailed
}
