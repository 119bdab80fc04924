package events

import (
	"encoding/json"
	"sync"
	"time"
)

const (
	EventBookingSubmitted = "booking_submitted"
	EventBookingApproved  = "booking_approved"
	EventBookingRejected  = "booking_rejected"
	EventBookingCancelled = "booking_cancelled"
	EventSlotBlocked      = "slot_blocked"
	EventSlotUnblocked    = "slot_unblocked"
)

// BookingEventPayload is the minimal booking snapshot event consumers
// need: enough to invalidate caches and mirror the record elsewhere.
type BookingEventPayload struct {
	BookingID   string `json:"booking_id"`
	Date        string `json:"date"`
	Time        string `json:"time"`
	BarberID    string `json:"barber_id"`
	BarberName  string `json:"barber_name"`
	ServiceName string `json:"service_name"`
	UserID      string `json:"user_id"`
	UserName    string `json:"user_name"`
	Status      string `json:"status"`
	Reason      string `json:"reason,omitempty"`
	ActorID     string `json:"actor_id,omitempty"`
}

// Event represents a lightweight domain event.
type Event struct {
	Type      string
	Payload   []byte
	CreatedAt time.Time
}

// EventHandler reacts to an event.
type EventHandler func(event *Event) error

// EventBus provides in-process pub/sub for events.
type EventBus struct {
	subscribers map[string][]EventHandler
	mu          sync.RWMutex
}

// NewEventBus constructs an empty bus.
func NewEventBus() *EventBus {
	return &EventBus{subscribers: make(map[string][]EventHandler)}
}

// Subscribe registers a handler for a given event type.
func (b *EventBus) Subscribe(eventType string, handler EventHandler) {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.subscribers[eventType] = append(b.subscribers[eventType], handler)
}

// Publish notifies subscribers of the event type.
func (b *EventBus) Publish(event *Event) {
	b.mu.RLock()
	handlers := append([]EventHandler(nil), b.subscribers[event.Type]...)
	b.mu.RUnlock()

	if event.CreatedAt.IsZero() {
		event.CreatedAt = time.Now()
	}

	for _, handler := range handlers {
		// Handlers run synchronously; caller decides concurrency model.
		_ = handler(event)
	}
}

// PublishJSON serializes the payload and publishes an event.
func (b *EventBus) PublishJSON(eventType string, payload interface{}) error {
	if b == nil {
		return nil
	}

	raw, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	b.Publish(&Event{Type: eventType, Payload: raw, CreatedAt: time.Now()})
	return nil
}
