package service

import (
	"context"
	"fmt"
	"time"

	"termin/internal/database"
	"termin/internal/domain"
	"termin/internal/metrics"
	"termin/internal/models"
	"termin/internal/schedule"

	"github.com/rs/zerolog"
)

// AvailabilityService projects booking records onto the slot catalog.
// It never mutates anything: a cached snapshot is only ever dropped by
// the post-write fanout, so a hit is as authoritative as a resolve.
type AvailabilityService struct {
	store        domain.Store
	cache        domain.AvailabilityCache
	slots        schedule.Catalog
	storeTimeout time.Duration
	logger       *zerolog.Logger
}

func NewAvailabilityService(store domain.Store, cache domain.AvailabilityCache, slots schedule.Catalog, storeTimeout time.Duration, logger *zerolog.Logger) *AvailabilityService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &AvailabilityService{
		store:        store,
		cache:        cache,
		slots:        slots,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// Catalog exposes the slot grid the projections are built on.
func (s *AvailabilityService) Catalog() schedule.Catalog {
	return s.slots
}

// Day resolves one date as seen by one barber's calendar. An empty
// barberID resolves the shop-wide view.
func (s *AvailabilityService) Day(ctx context.Context, date, barberID string) (schedule.DayAvailability, error) {
	if _, err := time.ParseInLocation(models.DateLayout, date, time.Local); err != nil {
		return nil, fmt.Errorf("%w: invalid date %q", database.ErrValidation, date)
	}
	metrics.IncAvailabilityQuery()

	if s.cache != nil {
		if day, ok, err := s.cache.Get(ctx, date, barberID); err == nil && ok {
			metrics.IncCacheLookup("hit")
			return day, nil
		} else if err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("availability cache read failed")
		}
		metrics.IncCacheLookup("miss")
	}

	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	bookings, err := s.store.QueryBookings(callCtx, domain.QueryFilter{Date: date})
	if err != nil {
		return nil, storeErr(err)
	}

	day, err := schedule.Resolve(s.slots, bookings, barberID)
	if err != nil {
		return nil, err
	}

	if s.cache != nil {
		if err := s.cache.Set(ctx, date, barberID, day); err != nil {
			s.logger.Warn().Err(err).Str("date", date).Msg("availability cache write failed")
		}
	}
	return day, nil
}

// MonthMarkers summarizes every day of a month to one marker for the
// calendar view. Days whose slots are all available are omitted.
func (s *AvailabilityService) MonthMarkers(ctx context.Context, year int, month time.Month, barberID string) (map[string]models.SlotStatus, error) {
	if month < time.January || month > time.December {
		return nil, fmt.Errorf("%w: invalid month %d", database.ErrValidation, month)
	}

	markers := make(map[string]models.SlotStatus)
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.Local)
	for d := first; d.Month() == month; d = d.AddDate(0, 0, 1) {
		date := d.Format(models.DateLayout)
		day, err := s.Day(ctx, date, barberID)
		if err != nil {
			return nil, err
		}
		if marker := schedule.DateMarker(day); marker != models.SlotAvailable {
			markers[date] = marker
		}
	}
	return markers, nil
}

// Watch streams the filtered booking set: one snapshot up front, then
// a fresh one after every store mutation.
func (s *AvailabilityService) Watch(ctx context.Context, filter domain.QueryFilter) (<-chan []*models.Booking, func(), error) {
	return s.store.Subscribe(ctx, filter)
}
