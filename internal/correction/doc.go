// Package correction implements the demand-forecast correction pipeline.
//
// The pipeline takes raw statistical forecast rows (predicted covers and
// revenue per venue, business date and shift) and composes independently
// maintained correction layers into one corrected, confidence-scored row per
// key:
//
//   - deduplication to the latest forecast run per (venue, date, shift)
//   - closed-day determination, with holidays suppressing recurring closure
//   - an additive day-type bias offset from the venue's active bias record
//   - an additive holiday regime offset for (holiday code, venue category)
//   - a clamped pacing multiplier from advance-booking pace, applied to the
//     raw base only
//   - a floor at zero and confidence attached from historical accuracy
//
// Everything in this package is a pure computation over pre-fetched inputs:
// the Corrector performs no I/O, so it is safe under unlimited concurrent
// readers and the recalibration math (decay, baseline and accuracy
// aggregation) is unit-testable without a data store. Missing enrichment
// data never fails a computation; each layer degrades to its neutral value.
package correction
