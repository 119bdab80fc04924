package domain

import (
	"context"

	"termin/internal/models"
	"termin/internal/schedule"
)

// QueryFilter narrows booking queries. Empty fields match everything.
type QueryFilter struct {
	Date     string
	BarberID string
	UserID   string
	Status   string
}

// StatusUpdate describes one moderation transition. Expected is the
// status the caller last observed; the store rejects the update with
// ErrConcurrentModification when the stored status has diverged.
type StatusUpdate struct {
	Expected           string
	Status             string
	CancellationReason string
}

// Store is the booking record store. Records are never deleted;
// cancellation is the terminal state kept for history.
type Store interface {
	GetBooking(ctx context.Context, id string) (*models.Booking, error)
	QueryBookings(ctx context.Context, filter QueryFilter) ([]*models.Booking, error)

	// CreateReservation inserts a pending customer booking behind the
	// occupancy guard: the check and the insert run in one transaction
	// so two racing submissions cannot both win a slot.
	CreateReservation(ctx context.Context, booking *models.Booking) error

	// CreateBlock inserts an admin manual block directly in the
	// blocked status. Customer records holding the slot are overridden;
	// an existing block at the same date and time is rejected with
	// ErrSlotUnavailable so a triple never carries two blocks.
	CreateBlock(ctx context.Context, booking *models.Booking) error

	// TransitionBooking applies a moderation status change with
	// compare-and-swap semantics on the expected prior status.
	TransitionBooking(ctx context.Context, id string, update StatusUpdate) error

	// Subscribe streams the full filtered result set: once on
	// subscription and again after every store mutation. The feed
	// closes when ctx is done or cancel is called.
	Subscribe(ctx context.Context, filter QueryFilter) (<-chan []*models.Booking, func(), error)
}

// ProfileStore is the customer profile collaborator, read once at
// submission time to denormalize contact fields into the booking.
type ProfileStore interface {
	GetProfile(ctx context.Context, userID string) (*models.UserProfile, error)
	SaveProfile(ctx context.Context, profile *models.UserProfile) error
}

// EventPublisher fans domain events out to in-process subscribers.
type EventPublisher interface {
	PublishJSON(eventType string, payload interface{}) error
}

// AvailabilityCache stores resolved per-day availability snapshots.
type AvailabilityCache interface {
	Get(ctx context.Context, date, barberID string) (schedule.DayAvailability, bool, error)
	Set(ctx context.Context, date, barberID string, day schedule.DayAvailability) error
	InvalidateDate(ctx context.Context, date string) error
}

// SyncWorker accepts mirror-sync tasks without blocking the caller.
type SyncWorker interface {
	EnqueueBookingSync(ctx context.Context, booking *models.Booking) error
}
