package service

import (
	"context"

	"termin/internal/domain"
	"termin/internal/models"
	"termin/internal/schedule"

	"github.com/stretchr/testify/mock"
)

type mockStore struct {
	mock.Mock
}

func (m *mockStore) GetBooking(ctx context.Context, id string) (*models.Booking, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.Booking), args.Error(1)
}

func (m *mockStore) QueryBookings(ctx context.Context, filter domain.QueryFilter) ([]*models.Booking, error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).([]*models.Booking), args.Error(1)
}

func (m *mockStore) CreateReservation(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockStore) CreateBlock(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func (m *mockStore) TransitionBooking(ctx context.Context, id string, update domain.StatusUpdate) error {
	return m.Called(ctx, id, update).Error(0)
}

func (m *mockStore) Subscribe(ctx context.Context, filter domain.QueryFilter) (<-chan []*models.Booking, func(), error) {
	args := m.Called(ctx, filter)
	if args.Get(0) == nil {
		return nil, nil, args.Error(2)
	}
	return args.Get(0).(chan []*models.Booking), args.Get(1).(func()), args.Error(2)
}

type mockProfiles struct {
	mock.Mock
}

func (m *mockProfiles) GetProfile(ctx context.Context, userID string) (*models.UserProfile, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*models.UserProfile), args.Error(1)
}

func (m *mockProfiles) SaveProfile(ctx context.Context, profile *models.UserProfile) error {
	return m.Called(ctx, profile).Error(0)
}

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) PublishJSON(eventType string, payload interface{}) error {
	return m.Called(eventType, payload).Error(0)
}

type mockAvailabilityCache struct {
	mock.Mock
}

func (m *mockAvailabilityCache) Get(ctx context.Context, date, barberID string) (schedule.DayAvailability, bool, error) {
	args := m.Called(ctx, date, barberID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(schedule.DayAvailability), args.Bool(1), args.Error(2)
}

func (m *mockAvailabilityCache) Set(ctx context.Context, date, barberID string, day schedule.DayAvailability) error {
	return m.Called(ctx, date, barberID, day).Error(0)
}

func (m *mockAvailabilityCache) InvalidateDate(ctx context.Context, date string) error {
	return m.Called(ctx, date).Error(0)
}

type mockSyncWorker struct {
	mock.Mock
}

func (m *mockSyncWorker) EnqueueBookingSync(ctx context.Context, booking *models.Booking) error {
	return m.Called(ctx, booking).Error(0)
}

func testShopCatalog() *ShopCatalog {
	return &ShopCatalog{
		Services: []models.Service{
			{ID: "sisanje", Name: "Šišanje", Price: "18KM", Duration: "30min"},
			{ID: "brijanje", Name: "Brijanje", Price: "10KM", Duration: "20min"},
		},
		Barbers: []models.Barber{
			{ID: "himzo", Name: "Himzo", Rating: 4.9},
			{ID: "rile", Name: "Rile", Rating: 4.8},
		},
	}
}

func testSlots() schedule.Catalog {
	return schedule.GenerateSlots(schedule.DefaultBusinessHours())
}
