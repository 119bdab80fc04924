package models

// Booking record statuses as persisted in the store. There is no
// "available" status: a slot with no occupying record is available.
const (
	StatusPending   = "pending"
	StatusApproved  = "approved"
	StatusCancelled = "cancelled"
	StatusBlocked   = "blocked"
)

// SlotStatus is the resolved state of a catalog slot, materialized by
// the availability resolver. Unlike record statuses it includes an
// explicit available state.
type SlotStatus string

const (
	SlotAvailable SlotStatus = "available"
	SlotPending   SlotStatus = "pending"
	SlotApproved  SlotStatus = "approved"
	SlotBlocked   SlotStatus = "blocked"
)

// ValidStatus reports whether s is a known record status.
func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusApproved, StatusCancelled, StatusBlocked:
		return true
	}
	return false
}

const (
	// DateLayout is the calendar-date wire format used everywhere.
	DateLayout = "2006-01-02"

	// DefaultCacheTTL bounds how long a cached availability snapshot
	// may be served before a forced re-resolve, in seconds.
	DefaultCacheTTL = 5 * 60

	// WorkerQueueSize is the in-memory sync queue capacity.
	WorkerQueueSize = 256

	// DefaultExportRangeDays is the schedule export span when the
	// caller gives no explicit range.
	DefaultExportRangeDays = 14
)
