package domain

import (
	"time"
)

// DayTypeBiasRecord is a time-versioned additive correction for a venue.
// Exactly one record per venue is active (EffectiveTo nil); replacements
// close the old record and insert a new one, history is never mutated.
//
// Offsets holds the per-day-type corrections; CoversOffset is the generic
// fallback used when a day type has no entry in the map.
type DayTypeBiasRecord struct {
	ID            string          `json:"id" db:"id"`
	VenueID       string          `json:"venue_id" db:"venue_id" validate:"required"`
	EffectiveFrom time.Time       `json:"effective_from" db:"effective_from"`
	EffectiveTo   *time.Time      `json:"effective_to,omitempty" db:"effective_to"`
	CoversOffset  int             `json:"covers_offset" db:"covers_offset"`
	Offsets       map[DayType]int `json:"offsets" db:"offsets"`
	Reason        string          `json:"reason" db:"reason"`
	DecayCycle    int             `json:"decay_cycle" db:"decay_cycle"`
	DecayedAt     *time.Time      `json:"decayed_at,omitempty" db:"decayed_at"`
	CreatedAt     time.Time       `json:"created_at" db:"created_at"`
}

// Active reports whether this is the venue's current record.
func (r DayTypeBiasRecord) Active() bool {
	return r.EffectiveTo == nil
}

// OffsetFor resolves the additive correction for a day type: the per-day-type
// map entry when present, else the generic offset. Callers that want the
// neutral zero for a missing record handle that themselves.
func (r DayTypeBiasRecord) OffsetFor(dt DayType) int {
	if v, ok := r.Offsets[dt]; ok {
		return v
	}
	return r.CoversOffset
}

// CloneOffsets returns a copy of the offset map, never nil.
func (r DayTypeBiasRecord) CloneOffsets() map[DayType]int {
	out := make(map[DayType]int, len(r.Offsets))
	for k, v := range r.Offsets {
		out[k] = v
	}
	return out
}

// BiasDecayAudit is the append-only trail written by the decay job: the
// before/after offset maps for one venue in one run.
type BiasDecayAudit struct {
	ID         string          `json:"id" db:"id"`
	JobRunID   string          `json:"job_run_id" db:"job_run_id"`
	VenueID    string          `json:"venue_id" db:"venue_id"`
	Before     map[DayType]int `json:"before" db:"before"`
	After      map[DayType]int `json:"after" db:"after"`
	DecayRate  float64         `json:"decay_rate" db:"decay_rate"`
	Cycle      int             `json:"cycle" db:"cycle"`
	RecordedAt time.Time       `json:"recorded_at" db:"recorded_at"`
}
