package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"termin/internal/database"
	"termin/internal/domain"
	"termin/internal/events"
	"termin/internal/metrics"
	"termin/internal/models"
	"termin/internal/schedule"

	"github.com/rs/zerolog"
)

// BookingRequest is a customer submission. Contact fields are
// optional; missing ones are filled from the stored profile.
type BookingRequest struct {
	Date      string `json:"date"`
	Time      string `json:"time"`
	BarberID  string `json:"barber_id"`
	ServiceID string `json:"service_id"`

	UserID    string `json:"user_id"`
	UserName  string `json:"user_name"`
	UserPhone string `json:"user_phone"`
	UserEmail string `json:"user_email"`
}

type BookingService struct {
	mutationFanout
	store        domain.Store
	profiles     domain.ProfileStore
	catalog      *ShopCatalog
	slots        schedule.Catalog
	storeTimeout time.Duration
	logger       *zerolog.Logger
}

func NewBookingService(store domain.Store, profiles domain.ProfileStore, catalog *ShopCatalog, slots schedule.Catalog, eventBus domain.EventPublisher, cache domain.AvailabilityCache, syncWorker domain.SyncWorker, storeTimeout time.Duration, logger *zerolog.Logger) *BookingService {
	if storeTimeout <= 0 {
		storeTimeout = 5 * time.Second
	}
	return &BookingService{
		mutationFanout: mutationFanout{
			eventBus:   eventBus,
			cache:      cache,
			syncWorker: syncWorker,
			logger:     logger,
		},
		store:        store,
		profiles:     profiles,
		catalog:      catalog,
		slots:        slots,
		storeTimeout: storeTimeout,
		logger:       logger,
	}
}

// storeErr maps call timeouts onto the transient store error so
// callers can tell "try again" apart from domain rejections.
func storeErr(err error) error {
	if errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", database.ErrStoreUnavailable, err)
	}
	return err
}

// ValidateBookingDate rejects dates before today. The comparison is
// on the calendar date, not the slot time: today's morning slots stay
// bookable in the afternoon.
func ValidateBookingDate(date string) error {
	day, err := time.ParseInLocation(models.DateLayout, date, time.Local)
	if err != nil {
		return fmt.Errorf("%w: invalid date %q", database.ErrValidation, date)
	}
	now := time.Now()
	today := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.Local)
	if day.Before(today) {
		return database.ErrPastDate
	}
	return nil
}

func (s *BookingService) validate(req *BookingRequest) error {
	if err := ValidateBookingDate(req.Date); err != nil {
		return err
	}
	if !s.slots.Contains(req.Time) {
		return fmt.Errorf("%w: unknown time slot %q", database.ErrValidation, req.Time)
	}
	if req.UserID == "" {
		return fmt.Errorf("%w: user id is required", database.ErrValidation)
	}
	if _, ok := s.catalog.ServiceByID(req.ServiceID); !ok {
		return fmt.Errorf("%w: unknown service %q", database.ErrValidation, req.ServiceID)
	}
	if _, ok := s.catalog.BarberByID(req.BarberID); !ok {
		return fmt.Errorf("%w: unknown barber %q", database.ErrValidation, req.BarberID)
	}
	return nil
}

// Submit validates a customer request, snapshots catalog and contact
// data into a pending record and writes it behind the occupancy guard.
func (s *BookingService) Submit(ctx context.Context, req *BookingRequest) (*models.Booking, error) {
	if err := s.validate(req); err != nil {
		metrics.IncSubmission("rejected")
		return nil, err
	}

	svc, _ := s.catalog.ServiceByID(req.ServiceID)
	barber, _ := s.catalog.BarberByID(req.BarberID)

	customer, err := s.resolveCustomer(ctx, req)
	if err != nil {
		metrics.IncSubmission("rejected")
		return nil, err
	}

	booking := &models.Booking{
		Date:         req.Date,
		Time:         req.Time,
		BarberID:     barber.ID,
		BarberName:   barber.Name,
		ServiceID:    svc.ID,
		ServiceName:  svc.Name,
		ServicePrice: svc.Price,
		Customer:     customer,
		Status:       models.StatusPending,
	}

	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	if err := s.store.CreateReservation(callCtx, booking); err != nil {
		if errors.Is(err, database.ErrSlotUnavailable) {
			metrics.IncSubmission("conflict")
		} else {
			metrics.IncSubmission("rejected")
		}
		return nil, storeErr(err)
	}
	metrics.IncSubmission("accepted")

	s.logger.Info().
		Str("booking_id", booking.ID).
		Str("date", booking.Date).
		Str("time", booking.Time).
		Str("barber_id", booking.BarberID).
		Msg("booking submitted")

	s.fanout(ctx, booking, events.EventBookingSubmitted, "", booking.Customer.UserID)
	return booking, nil
}

// resolveCustomer merges the request's contact fields with the stored
// profile and writes the merged profile back, so the next submission
// starts pre-filled.
func (s *BookingService) resolveCustomer(ctx context.Context, req *BookingRequest) (models.CustomerInfo, error) {
	customer := models.CustomerInfo{
		UserID: req.UserID,
		Name:   req.UserName,
		Phone:  req.UserPhone,
		Email:  req.UserEmail,
	}

	profile, err := s.profiles.GetProfile(ctx, req.UserID)
	if err != nil && !errors.Is(err, database.ErrNotFound) {
		return customer, storeErr(err)
	}
	if profile != nil {
		if customer.Name == "" {
			customer.Name = profile.Name
		}
		if customer.Phone == "" {
			customer.Phone = profile.Phone
		}
		if customer.Email == "" {
			customer.Email = profile.Email
		}
	}
	if customer.Name == "" {
		return customer, fmt.Errorf("%w: customer name is required", database.ErrValidation)
	}

	if err := s.profiles.SaveProfile(ctx, &models.UserProfile{
		ID:    customer.UserID,
		Name:  customer.Name,
		Phone: customer.Phone,
		Email: customer.Email,
	}); err != nil {
		// The booking matters more than the profile refresh.
		s.logger.Warn().Err(err).Str("user_id", customer.UserID).Msg("profile save failed")
	}
	return customer, nil
}

func (s *BookingService) Get(ctx context.Context, id string) (*models.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	booking, err := s.store.GetBooking(callCtx, id)
	if err != nil {
		return nil, storeErr(err)
	}
	return booking, nil
}

func (s *BookingService) List(ctx context.Context, filter domain.QueryFilter) ([]*models.Booking, error) {
	callCtx, cancel := context.WithTimeout(ctx, s.storeTimeout)
	defer cancel()
	bookings, err := s.store.QueryBookings(callCtx, filter)
	if err != nil {
		return nil, storeErr(err)
	}
	if filter.Date != "" {
		// Day listings read as a schedule, so order by slot position
		// rather than creation time ("10:00" sorts after "9:30").
		sort.SliceStable(bookings, func(i, j int) bool {
			return s.slots.Index(bookings[i].Time) < s.slots.Index(bookings[j].Time)
		})
	}
	return bookings, nil
}

// ListForUser returns the customer's own booking history, cancelled
// records included.
func (s *BookingService) ListForUser(ctx context.Context, userID string) ([]*models.Booking, error) {
	if userID == "" {
		return nil, fmt.Errorf("%w: user id is required", database.ErrValidation)
	}
	return s.List(ctx, domain.QueryFilter{UserID: userID})
}
