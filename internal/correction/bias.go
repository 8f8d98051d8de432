package correction

import (
	"math"
	"time"

	"shiftcast/pkg/contracts/domain"
)

// BiasOffset resolves the additive day-type correction for a venue: the
// active record's per-day-type map entry when present, else its generic
// offset, else zero when no record exists. The boolean reports whether a
// record contributed at all.
func BiasOffset(record *domain.DayTypeBiasRecord, dayType domain.DayType) (int, bool) {
	if record == nil || !record.Active() {
		return 0, false
	}
	return record.OffsetFor(dayType), true
}

// DecayOffsets applies one decay cycle to an offset map and reports whether
// anything changed. The holiday key is never decayed. An offset snaps to
// exactly zero when either its current or its decayed absolute value is at or
// below the minimum threshold, so relaxed corrections terminate instead of
// oscillating around small residues.
func DecayOffsets(offsets map[domain.DayType]int, params DecayParams) (map[domain.DayType]int, bool) {
	decayed := make(map[domain.DayType]int, len(offsets))
	changed := false
	for dayType, old := range offsets {
		if dayType == domain.DayTypeHoliday {
			decayed[dayType] = old
			continue
		}
		next := int(math.Round(float64(old) * (1 - params.Rate)))
		if absInt(old) <= params.MinThreshold || absInt(next) <= params.MinThreshold {
			next = 0
		}
		decayed[dayType] = next
		if next != old {
			changed = true
		}
	}
	return decayed, changed
}

// DecayEligible reports whether a bias record should be decayed this cycle:
// it must be active, carry a non-empty offset map, and sit below the cycle
// ceiling. A record already decayed after decayedSince is skipped, so an
// interrupted run can be repeated without compounding.
func DecayEligible(record domain.DayTypeBiasRecord, params DecayParams, decayedSince time.Time) bool {
	if !record.Active() || len(record.Offsets) == 0 {
		return false
	}
	if record.DecayCycle >= params.MaxCycles {
		return false
	}
	if record.DecayedAt != nil && record.DecayedAt.After(decayedSince) {
		return false
	}
	return true
}

func absInt(v int) int {
	if v < 0 {
		return -v
	}
	return v
}
