package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"termin/internal/database"
	"termin/internal/domain"
	"termin/internal/events"
	"termin/internal/metrics"
	"termin/internal/models"
	"termin/internal/schedule"

	"github.com/rs/zerolog"
)

// ModerationService applies admin decisions to booking records. Every
// transition names the status the admin was looking at; a stale view
// loses with ErrConcurrentModification instead of overwriting a
// colleague's decision.
type ModerationService struct {
	mutationFanout
	store        domain.Store
	slots        schedule.Catalog
	storeTimeout time.Duration
	logger       *zerolog.Logger
}

func NewModerationService(store domain.Store, slots schedule.Catalog, eventBus domain.EventPublisher, cache domain.AvailabilityCache, syncWorker domain.SyncWorker, storeTimeout time.Duration, logger *zerolog.Logger) *ModerationService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &ModerationService{
		mutationFanout: mutationFanout{
			eventBus:   eventBus,
			cache:      cache,
			syncWorker: syncWorker,
			logger:     logger,
		},
		store:        store,
		slots:        slots,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Approve confirms a pending request.
func (s *ModerationService) Approve(ctx context.Context, bookingID, adminID string) (*models.Booking, error) {
	return s.transition(ctx, bookingID, adminID, "approve", domain.StatusUpdate{
		Expected: models.StatusPending,
		Status:   models.StatusApproved,
	}, events.EventBookingApproved)
}

// Reject declines a pending request. The reason is optional and kept
// on the record when given.
func (s *ModerationService) Reject(ctx context.Context, bookingID, adminID, reason string) (*models.Booking, error) {
	return s.transition(ctx, bookingID, adminID, "reject", domain.StatusUpdate{
		Expected:           models.StatusPending,
		Status:             models.StatusCancelled,
		CancellationReason: strings.TrimSpace(reason),
	}, events.EventBookingRejected)
}

// Cancel withdraws an approved booking. The customer already has a
// confirmation, so the reason is mandatory and checked before any
// write happens.
func (s *ModerationService) Cancel(ctx context.Context, bookingID, adminID, reason string) (*models.Booking, error) {
	reason = strings.TrimSpace(reason)
	if reason == "" {
		metrics.IncModeration("cancel", "rejected")
		return nil, fmt.Errorf("%w: cancellation reason is required", database.ErrValidation)
	}
	return s.transition(ctx, bookingID, adminID, "cancel", domain.StatusUpdate{
		Expected:           models.StatusApproved,
		Status:             models.StatusCancelled,
		CancellationReason: reason,
	}, events.EventBookingCancelled)
}

// Block closes a slot for walk-ins or breaks. The block occupies the
// slot for every barber and wins over any later customer request.
func (s *ModerationService) Block(ctx context.Context, date, slot, adminID string) (*models.Booking, error) {
	if err := ValidateBookingDate(date); err != nil {
		metrics.IncModeration("block", "rejected")
		return nil, err
	}
	if !s.slots.Contains(slot) {
		metrics.IncModeration("block", "rejected")
		return nil, fmt.Errorf("%w: unknown time slot %q", database.ErrValidation, slot)
	}

	block := &models.Booking{
		Date:        date,
		Time:        slot,
		Status:      models.StatusBlocked,
		ManualBlock: true,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.CreateBlock(callCtx, block); err != nil {
		metrics.IncModeration("block", "failed")
		return nil, storeErr(err)
	}
	metrics.IncModeration("block", "ok")

	s.logger.Info().
		Str("booking_id", block.ID).
		Str("date", date).
		Str("time", slot).
		Str("admin_id", adminID).
		Msg("slot blocked")

	s.fanout(ctx, block, events.EventSlotBlocked, "", adminID)
	return block, nil
}

// Unblock reopens a blocked slot. The block record stays in history
// as cancelled; there is no physical deletion.
func (s *ModerationService) Unblock(ctx context.Context, bookingID, adminID string) (*models.Booking, error) {
	return s.transition(ctx, bookingID, adminID, "unblock", domain.StatusUpdate{
		Expected: models.StatusBlocked,
		Status:   models.StatusCancelled,
	}, events.EventSlotUnblocked)
}

func (s *ModerationService) transition(ctx context.Context, bookingID, adminID, action string, update domain.StatusUpdate, eventType string) (*models.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()

	if err := s.store.TransitionBooking(callCtx, bookingID, update); err != nil {
		metrics.IncModeration(action, "failed")
		return nil, storeErr(err)
	}
	metrics.IncModeration(action, "ok")

	booking, err := s.store.GetBooking(callCtx, bookingID)
	if err != nil {
		// The transition committed but the caller cannot be handed the
		// record; surface the failure rather than a nil success.
		s.logger.Warn().Err(err).Str("booking_id", bookingID).Msg("re-read after transition failed")
		return nil, storeErr(err)
	}

	s.logger.Info().
		Str("booking_id", bookingID).
		Str("action", action).
		Str("status", booking.Status).
		Str("admin_id", adminID).
		Msg("moderation applied")

	s.fanout(ctx, booking, eventType, update.CancellationReason, adminID)
	return booking, nil
}
