package models

import "time"

// CustomerInfo is the customer contact snapshot denormalized into a
// booking at submission time. It is never synced back to the profile;
// what the customer entered when booking is what the admin sees.
type CustomerInfo struct {
	UserID string `json:"user_id"`
	Name   string `json:"user_name"`
	Phone  string `json:"user_phone"`
	Email  string `json:"user_email"`
}

// Booking is the central record: one customer reservation or one
// admin-created manual block of a slot.
type Booking struct {
	ID string `json:"id"`

	Date string `json:"date"` // YYYY-MM-DD
	Time string `json:"time"` // slot label, e.g. "9:00"

	BarberID   string `json:"barber_id"`
	BarberName string `json:"barber_name"`

	ServiceID    string `json:"service_id"`
	ServiceName  string `json:"service_name"`
	ServicePrice string `json:"service_price"`

	Customer CustomerInfo `json:"customer"`

	Status string `json:"status"`

	// ManualBlock marks records created by the admin directly in the
	// blocked status. They carry no customer or service fields and
	// occupy the slot for every barber.
	ManualBlock bool `json:"manual_block"`

	CancellationReason string     `json:"cancellation_reason,omitempty"`
	CancelledAt        *time.Time `json:"cancelled_at,omitempty"`

	CreatedAt   time.Time `json:"created_at"`
	LastUpdated time.Time `json:"last_updated"`
	Version     int64     `json:"version"`
}

// Occupies reports whether the record keeps its slot out of the
// available pool. Cancelled records are history only.
func (b *Booking) Occupies() bool {
	return b.Status != StatusCancelled
}

// UserProfile is the live customer profile. Bookings snapshot it at
// submission time instead of joining against it on read.
type UserProfile struct {
	ID        string    `json:"id"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone"`
	Email     string    `json:"email"`
	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Service is a bookable service from the shop catalog.
type Service struct {
	ID       string `yaml:"id" json:"id"`
	Name     string `yaml:"name" json:"name"`
	Price    string `yaml:"price" json:"price"`
	Duration string `yaml:"duration" json:"duration"`
}

// Barber is a staff member from the shop catalog.
type Barber struct {
	ID     string  `yaml:"id" json:"id"`
	Name   string  `yaml:"name" json:"name"`
	Rating float64 `yaml:"rating" json:"rating"`
}
