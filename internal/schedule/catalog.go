package schedule

import "fmt"

// BusinessHours describes the shop's daily grid in whole hours. Every
// bound is exclusive at the top: MorningEnd 12 means the last morning
// slot is 11:30. Slots are fixed half-hour increments.
type BusinessHours struct {
	MorningStart int `yaml:"morning_start"`
	MorningEnd   int `yaml:"morning_end"`
	AfternoonEnd int `yaml:"afternoon_end"`
	EveningEnd   int `yaml:"evening_end"`
}

// DefaultBusinessHours matches the shop schedule: 9:00-11:30,
// 12:00-16:30, 17:00-19:30.
func DefaultBusinessHours() BusinessHours {
	return BusinessHours{MorningStart: 9, MorningEnd: 12, AfternoonEnd: 17, EveningEnd: 20}
}

// Catalog is the fixed daily grid of bookable slot labels, split into
// the three day parts the booking screen presents.
type Catalog struct {
	Morning   []string `json:"morning"`
	Afternoon []string `json:"afternoon"`
	Evening   []string `json:"evening"`
}

// GenerateSlots produces the slot catalog for the given business
// hours. Deterministic, no side effects; every caller gets the same
// grid for the same hours, so the customer and admin views can never
// drift apart.
func GenerateSlots(h BusinessHours) Catalog {
	hourRange := func(from, to int) []string {
		labels := make([]string, 0, 2*(to-from))
		for hour := from; hour < to; hour++ {
			labels = append(labels, fmt.Sprintf("%d:00", hour))
			labels = append(labels, fmt.Sprintf("%d:30", hour))
		}
		return labels
	}

	return Catalog{
		Morning:   hourRange(h.MorningStart, h.MorningEnd),
		Afternoon: hourRange(h.MorningEnd, h.AfternoonEnd),
		Evening:   hourRange(h.AfternoonEnd, h.EveningEnd),
	}
}

// All returns every slot label in day order.
func (c Catalog) All() []string {
	out := make([]string, 0, len(c.Morning)+len(c.Afternoon)+len(c.Evening))
	out = append(out, c.Morning...)
	out = append(out, c.Afternoon...)
	out = append(out, c.Evening...)
	return out
}

// Contains reports whether label is a member of the catalog.
func (c Catalog) Contains(label string) bool {
	for _, s := range c.All() {
		if s == label {
			return true
		}
	}
	return false
}

// Index returns the day-order position of label, or -1 when it is not
// part of the catalog. Used to sort schedule listings by slot order
// rather than lexicographically ("10:00" must not sort before "9:00").
func (c Catalog) Index(label string) int {
	for i, s := range c.All() {
		if s == label {
			return i
		}
	}
	return -1
}
