package repository

import (
	"context"
	"errors"
	"io"
	"testing"

	"termin/internal/schedule"

	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
)

type mockCache struct {
	mock.Mock
}

func (m *mockCache) Get(ctx context.Context, date, barberID string) (schedule.DayAvailability, bool, error) {
	args := m.Called(ctx, date, barberID)
	if args.Get(0) == nil {
		return nil, args.Bool(1), args.Error(2)
	}
	return args.Get(0).(schedule.DayAvailability), args.Bool(1), args.Error(2)
}

func (m *mockCache) Set(ctx context.Context, date, barberID string, day schedule.DayAvailability) error {
	args := m.Called(ctx, date, barberID, day)
	return args.Error(0)
}

func (m *mockCache) InvalidateDate(ctx context.Context, date string) error {
	args := m.Called(ctx, date)
	return args.Error(0)
}

func TestFailoverAvailabilityCache(t *testing.T) {
	logger := zerolog.New(io.Discard)
	ctx := context.Background()

	t.Run("PrimarySuccess", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		day := sampleDay()
		primary.On("Get", ctx, "2025-03-15", "barber-1").Return(day, true, nil).Once()

		got, ok, err := cache.Get(ctx, "2025-03-15", "barber-1")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, day, got)
		primary.AssertExpectations(t)
		fallback.AssertNotCalled(t, "Get", mock.Anything, mock.Anything, mock.Anything)
	})

	t.Run("GetFallsBackOnPrimaryError", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		day := sampleDay()
		primary.On("Get", ctx, "2025-03-15", "").Return(nil, false, errors.New("connection refused")).Once()
		fallback.On("Get", ctx, "2025-03-15", "").Return(day, true, nil).Once()

		got, ok, err := cache.Get(ctx, "2025-03-15", "")
		assert.NoError(t, err)
		assert.True(t, ok)
		assert.Equal(t, day, got)

		// Primary is now marked down, later reads skip it entirely.
		fallback.On("Get", ctx, "2025-03-16", "").Return(nil, false, nil).Once()
		_, ok, err = cache.Get(ctx, "2025-03-16", "")
		assert.NoError(t, err)
		assert.False(t, ok)

		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetFallsBackOnPrimaryError", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		day := sampleDay()
		primary.On("Set", ctx, "2025-03-15", "barber-1", day).Return(errors.New("connection refused")).Once()
		fallback.On("Set", ctx, "2025-03-15", "barber-1", day).Return(nil).Once()

		err := cache.Set(ctx, "2025-03-15", "barber-1", day)
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("SetWhileDownWritesFallbackOnly", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)
		cache.markDown(errors.New("down"))

		day := sampleDay()
		fallback.On("Set", ctx, "2025-03-15", "", day).Return(nil).Once()

		err := cache.Set(ctx, "2025-03-15", "", day)
		assert.NoError(t, err)
		primary.AssertNotCalled(t, "Set", mock.Anything, mock.Anything, mock.Anything, mock.Anything)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateReachesBothLayers", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		primary.On("InvalidateDate", ctx, "2025-03-15").Return(nil).Once()
		fallback.On("InvalidateDate", ctx, "2025-03-15").Return(nil).Once()

		err := cache.InvalidateDate(ctx, "2025-03-15")
		assert.NoError(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})

	t.Run("InvalidateReportsPrimaryFailure", func(t *testing.T) {
		primary := new(mockCache)
		fallback := new(mockCache)
		cache := NewFailoverAvailabilityCache(primary, fallback, &logger)

		primary.On("InvalidateDate", ctx, "2025-03-15").Return(errors.New("connection refused")).Once()
		fallback.On("InvalidateDate", ctx, "2025-03-15").Return(nil).Once()

		err := cache.InvalidateDate(ctx, "2025-03-15")
		assert.Error(t, err)
		primary.AssertExpectations(t)
		fallback.AssertExpectations(t)
	})
}
