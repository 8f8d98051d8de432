package services

import (
	"errors"
	"fmt"
	"time"
)

var (
	// ErrInvalidRange is returned when a date range ends before it starts.
	ErrInvalidRange = errors.New("invalid date range: from is after to")

	// ErrRangeTooWide is returned when a requested range exceeds the read
	// cap. Forecast reads are per-venue scans; the cap bounds them.
	ErrRangeTooWide = errors.New("date range exceeds maximum width")

	// ErrUnknownJobKind is returned when a refresh trigger names a job the
	// runner does not know.
	ErrUnknownJobKind = errors.New("unknown job kind")
)

// maxRangeDays caps the width of range reads. A year covers every
// legitimate horizon the callers use.
const maxRangeDays = 366

// checkRange validates a civil date range shared by the read paths.
func checkRange(from, to time.Time) error {
	if from.After(to) {
		return fmt.Errorf("%w (%s > %s)", ErrInvalidRange, from.Format("2006-01-02"), to.Format("2006-01-02"))
	}
	if to.Sub(from) > maxRangeDays*24*time.Hour {
		return fmt.Errorf("%w (max %d days)", ErrRangeTooWide, maxRangeDays)
	}
	return nil
}
