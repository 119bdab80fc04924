package database

import "errors"

var (
	// ErrSlotUnavailable is returned when the occupancy guard finds
	// the requested slot already taken at write time.
	ErrSlotUnavailable = errors.New("slot is not available")

	// ErrPastDate rejects bookings dated before today.
	ErrPastDate = errors.New("booking date is in the past")

	// ErrValidation marks malformed or incomplete input. Wrapped with
	// a field-specific message at the call site.
	ErrValidation = errors.New("validation failed")

	// ErrNotFound is returned for an unknown booking or profile id.
	ErrNotFound = errors.New("record not found")

	// ErrConcurrentModification is returned when a status transition's
	// expected prior status no longer matches the stored one.
	ErrConcurrentModification = errors.New("record was modified concurrently")

	// ErrStoreUnavailable marks transient store failures, including
	// call timeouts. Recoverable by retrying; never retried here.
	ErrStoreUnavailable = errors.New("booking store is unavailable")
)
