package correction

import (
	"time"

	"shiftcast/pkg/contracts/domain"
)

// Multiplier converts booking pace into a bounded forecast multiplier.
//
// typical at or below zero means no usable baseline and returns the neutral
// 1.000. Inside the deadband the multiplier is exactly 1.000. Below it the
// forecast is pulled down along SlowSlope, floored at MultiplierFloor; above
// it the forecast is pushed up along FastSlope, capped at MultiplierCeiling.
// The function is pure and idempotent.
func Multiplier(onHand, typical float64, params Params) float64 {
	if typical <= 0 {
		return NeutralMultiplier
	}

	pace := onHand / typical
	switch {
	case pace >= params.DeadbandLow && pace <= params.DeadbandHigh:
		return NeutralMultiplier
	case pace < params.DeadbandLow:
		m := NeutralMultiplier - params.SlowSlope*(params.DeadbandLow-pace)
		if m < params.MultiplierFloor {
			m = params.MultiplierFloor
		}
		return m
	default:
		m := NeutralMultiplier + params.FastSlope*(pace-params.DeadbandHigh)
		if m > params.MultiplierCeiling {
			m = params.MultiplierCeiling
		}
		return m
	}
}

// SelectSnapshot picks the pacing checkpoint for a business date: the most
// recent snapshot whose hours_to_service falls inside the lead-time window.
// Equal timestamps break toward the higher confirmed count. The boolean is
// false when no snapshot qualifies, in which case the pacing layer is
// skipped entirely.
func SelectSnapshot(snapshots []domain.ReservationSnapshot, venueID string, date time.Time, params Params) (domain.ReservationSnapshot, bool) {
	var (
		best  domain.ReservationSnapshot
		found bool
	)
	for _, snap := range snapshots {
		if snap.VenueID != venueID || !sameDate(snap.BusinessDate, date) {
			continue
		}
		if snap.HoursToService < params.SnapshotWindowLow || snap.HoursToService > params.SnapshotWindowHigh {
			continue
		}
		if !found || snap.SnapshotAt.After(best.SnapshotAt) ||
			(snap.SnapshotAt.Equal(best.SnapshotAt) && snap.ConfirmedCount > best.ConfirmedCount) {
			best = snap
			found = true
		}
	}
	return best, found
}

// BaselineIndex maps day types to the venue's current pacing baselines.
type BaselineIndex map[domain.DayType]domain.PacingBaseline

// NewBaselineIndex builds the lookup from baseline rows.
func NewBaselineIndex(rows []domain.PacingBaseline) BaselineIndex {
	idx := make(BaselineIndex, len(rows))
	for _, r := range rows {
		idx[r.DayType] = r
	}
	return idx
}
