package service

import (
	"context"

	"termin/internal/domain"
	"termin/internal/events"
	"termin/internal/models"

	"github.com/rs/zerolog"
)

// mutationFanout is the post-write plumbing shared by the booking and
// moderation services: domain event, availability cache invalidation
// and the mirror sync enqueue. Failures here are logged, never
// surfaced; the record is already committed.
type mutationFanout struct {
	eventBus   domain.EventPublisher
	cache      domain.AvailabilityCache
	syncWorker domain.SyncWorker
	logger     *zerolog.Logger
}

func (f *mutationFanout) fanout(ctx context.Context, booking *models.Booking, eventType, reason, actorID string) {
	if f.eventBus != nil {
		payload := events.BookingEventPayload{
			BookingID:   booking.ID,
			Date:        booking.Date,
			Time:        booking.Time,
			BarberID:    booking.BarberID,
			BarberName:  booking.BarberName,
			ServiceName: booking.ServiceName,
			UserID:      booking.Customer.UserID,
			UserName:    booking.Customer.Name,
			Status:      booking.Status,
			Reason:      reason,
			ActorID:     actorID,
		}
		if err := f.eventBus.PublishJSON(eventType, payload); err != nil {
			f.logger.Warn().Err(err).Str("event", eventType).Msg("event publish failed")
		}
	}

	if f.cache != nil {
		if err := f.cache.InvalidateDate(ctx, booking.Date); err != nil {
			f.logger.Warn().Err(err).Str("date", booking.Date).Msg("cache invalidation failed")
		}
	}

	if f.syncWorker != nil {
		if err := f.syncWorker.EnqueueBookingSync(ctx, booking); err != nil {
			f.logger.Warn().Err(err).Str("booking_id", booking.ID).Msg("sync enqueue failed")
		}
	}
}
