package schedule

import (
	"fmt"
	"sort"

	"termin/internal/models"
)

// DayAvailability maps every catalog slot label to its resolved state.
type DayAvailability map[string]models.SlotStatus

// IntegrityError reports two occupying records for the same
// (date, time, barber) triple. The read must surface it rather than
// silently pick a winner.
type IntegrityError struct {
	Date     string
	Time     string
	BarberID string
	IDs      []string
}

func (e *IntegrityError) Error() string {
	return fmt.Sprintf("conflicting occupying bookings for %s %s barber=%q: %v",
		e.Date, e.Time, e.BarberID, e.IDs)
}

// Resolve classifies every slot of the catalog for one date. bookings
// must all belong to that date; barberID narrows the view to one
// barber's screen, empty means the shop-wide schedule view.
//
// Manual blocks occupy the slot for every barber. Customer records
// occupy only their own barber's slot. Cancelled records are treated
// as absent. With several records at one slot the most recently
// created occupying one wins; two occupying records for the same
// triple is a data-integrity violation.
func Resolve(catalog Catalog, bookings []*models.Booking, barberID string) (DayAvailability, error) {
	// Stable recency order so cancel-then-rebook histories resolve to
	// the latest occupying record.
	sorted := make([]*models.Booking, len(bookings))
	copy(sorted, bookings)
	sort.SliceStable(sorted, func(i, j int) bool {
		return sorted[i].CreatedAt.Before(sorted[j].CreatedAt)
	})

	out := make(DayAvailability, len(catalog.All()))
	for _, slot := range catalog.All() {
		status, err := resolveSlot(sorted, slot, barberID)
		if err != nil {
			return nil, err
		}
		out[slot] = status
	}
	return out, nil
}

func resolveSlot(bookings []*models.Booking, slot, barberID string) (models.SlotStatus, error) {
	var winner *models.Booking
	// Track occupying records per triple to detect double-books.
	occupying := map[string][]string{}

	for _, b := range bookings {
		if b.Time != slot || !b.Occupies() {
			continue
		}

		shopWide := b.ManualBlock || b.BarberID == ""
		if !shopWide && barberID != "" && b.BarberID != barberID {
			continue
		}

		key := b.BarberID
		occupying[key] = append(occupying[key], b.ID)
		if ids := occupying[key]; len(ids) > 1 {
			return "", &IntegrityError{Date: b.Date, Time: slot, BarberID: b.BarberID, IDs: ids}
		}

		// Blocks trump reservations; otherwise latest creation wins.
		if winner == nil || winner.Status != models.StatusBlocked {
			winner = b
		}
	}

	if winner == nil {
		return models.SlotAvailable, nil
	}
	switch winner.Status {
	case models.StatusPending:
		return models.SlotPending, nil
	case models.StatusApproved:
		return models.SlotApproved, nil
	case models.StatusBlocked:
		return models.SlotBlocked, nil
	}
	return models.SlotAvailable, nil
}

// DateMarker aggregates a day's resolution into the single status used
// for the calendar dot. Blocked outranks approved outranks pending; a
// fully free day yields SlotAvailable (no dot).
func DateMarker(day DayAvailability) models.SlotStatus {
	marker := models.SlotAvailable
	for _, s := range day {
		switch s {
		case models.SlotBlocked:
			return models.SlotBlocked
		case models.SlotApproved:
			marker = models.SlotApproved
		case models.SlotPending:
			if marker == models.SlotAvailable {
				marker = models.SlotPending
			}
		}
	}
	return marker
}
