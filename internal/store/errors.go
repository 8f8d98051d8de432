package store

import "errors"

var (
	// ErrNotFound is returned when the requested record does not exist.
	ErrNotFound = errors.New("record not found")

	// ErrStaleActiveBias is returned when a venue has more than one active
	// bias record. This is a write-path bug and must be surfaced, never
	// resolved by picking a record arbitrarily.
	ErrStaleActiveBias = errors.New("stale active bias: multiple active records for venue")

	// ErrConflict is returned when a write collides with existing state,
	// such as registering a venue ID that already exists.
	ErrConflict = errors.New("record conflict")
)
