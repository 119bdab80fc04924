package schedule

import (
	"testing"
	"time"

	"termin/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func testBooking(id, date, slot, barberID, status string, createdAt time.Time) *models.Booking {
	return &models.Booking{
		ID:        id,
		Date:      date,
		Time:      slot,
		BarberID:  barberID,
		Status:    status,
		CreatedAt: createdAt,
	}
}

func TestResolveEmptyDayIsAllAvailable(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())

	day, err := Resolve(catalog, nil, "1")
	require.NoError(t, err)

	require.Len(t, day, 22)
	for slot, status := range day {
		assert.Equal(t, models.SlotAvailable, status, "slot %s", slot)
	}
}

func TestResolvePerBarberScoping(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())
	now := time.Now()

	bookings := []*models.Booking{
		testBooking("a", "2024-06-01", "14:00", "1", models.StatusApproved, now),
	}

	forBarber1, err := Resolve(catalog, bookings, "1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotApproved, forBarber1["14:00"])

	forBarber2, err := Resolve(catalog, bookings, "2")
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, forBarber2["14:00"])
}

func TestResolveManualBlockAppliesToEveryBarber(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())

	block := testBooking("blk", "2024-06-01", "10:00", "", models.StatusBlocked, time.Now())
	block.ManualBlock = true

	for _, barberID := range []string{"1", "2", ""} {
		day, err := Resolve(catalog, []*models.Booking{block}, barberID)
		require.NoError(t, err)
		assert.Equal(t, models.SlotBlocked, day["10:00"], "barber %q", barberID)
	}
}

func TestResolveCancelledTreatedAsAbsent(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())

	bookings := []*models.Booking{
		testBooking("a", "2024-06-01", "9:30", "1", models.StatusCancelled, time.Now()),
	}

	day, err := Resolve(catalog, bookings, "1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotAvailable, day["9:30"])
}

func TestResolveCancelledThenRebookedPrefersOccupyingRecord(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())
	base := time.Now()

	bookings := []*models.Booking{
		testBooking("old", "2024-06-01", "11:00", "1", models.StatusCancelled, base),
		testBooking("new", "2024-06-01", "11:00", "1", models.StatusPending, base.Add(time.Minute)),
	}

	day, err := Resolve(catalog, bookings, "1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotPending, day["11:00"])
}

func TestResolveDoubleOccupancyIsIntegrityError(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())
	base := time.Now()

	bookings := []*models.Booking{
		testBooking("a", "2024-06-01", "15:00", "1", models.StatusApproved, base),
		testBooking("b", "2024-06-01", "15:00", "1", models.StatusPending, base.Add(time.Second)),
	}

	_, err := Resolve(catalog, bookings, "1")
	require.Error(t, err)

	var integrity *IntegrityError
	require.ErrorAs(t, err, &integrity)
	assert.Equal(t, "15:00", integrity.Time)
	assert.ElementsMatch(t, []string{"a", "b"}, integrity.IDs)
}

func TestResolveDifferentBarbersAtSameSlotIsNotAConflict(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())
	base := time.Now()

	bookings := []*models.Booking{
		testBooking("a", "2024-06-01", "15:00", "1", models.StatusApproved, base),
		testBooking("b", "2024-06-01", "15:00", "2", models.StatusApproved, base.Add(time.Second)),
	}

	// Shop-wide view sees the slot taken, but it is not an integrity
	// violation: the records belong to different barbers.
	day, err := Resolve(catalog, bookings, "")
	require.NoError(t, err)
	assert.Equal(t, models.SlotApproved, day["15:00"])
}

func TestResolveBlockOutranksReservation(t *testing.T) {
	catalog := GenerateSlots(DefaultBusinessHours())
	base := time.Now()

	block := testBooking("blk", "2024-06-01", "15:00", "", models.StatusBlocked, base)
	block.ManualBlock = true
	bookings := []*models.Booking{
		block,
		testBooking("res", "2024-06-01", "15:00", "1", models.StatusPending, base.Add(time.Second)),
	}

	day, err := Resolve(catalog, bookings, "1")
	require.NoError(t, err)
	assert.Equal(t, models.SlotBlocked, day["15:00"])
}

func TestDateMarkerPrecedence(t *testing.T) {
	assert.Equal(t, models.SlotAvailable, DateMarker(DayAvailability{
		"9:00": models.SlotAvailable,
	}))
	assert.Equal(t, models.SlotPending, DateMarker(DayAvailability{
		"9:00": models.SlotPending, "9:30": models.SlotAvailable,
	}))
	assert.Equal(t, models.SlotApproved, DateMarker(DayAvailability{
		"9:00": models.SlotPending, "9:30": models.SlotApproved,
	}))
	assert.Equal(t, models.SlotBlocked, DateMarker(DayAvailability{
		"9:00": models.SlotApproved, "9:30": models.SlotBlocked, "10:00": models.SlotPending,
	}))
}
