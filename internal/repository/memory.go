package repository

import (
	"context"
	"strings"
	"sync"
	"time"

	"termin/internal/schedule"
)

// MemoryAvailabilityCache keeps resolved day snapshots in process.
// Used standalone in tests and as the failover fallback in production.
type MemoryAvailabilityCache struct {
	entries sync.Map
	ttl     time.Duration
}

type cacheEntry struct {
	day       schedule.DayAvailability
	expiresAt time.Time
}

func NewMemoryAvailabilityCache(ttl time.Duration) *MemoryAvailabilityCache {
	return &MemoryAvailabilityCache{ttl: ttl}
}

func cacheKey(date, barberID string) string {
	return date + "|" + barberID
}

func (c *MemoryAvailabilityCache) Get(ctx context.Context, date, barberID string) (schedule.DayAvailability, bool, error) {
	val, ok := c.entries.Load(cacheKey(date, barberID))
	if !ok {
		return nil, false, nil
	}

	entry := val.(cacheEntry)
	if time.Now().After(entry.expiresAt) {
		c.entries.Delete(cacheKey(date, barberID))
		return nil, false, nil
	}
	return entry.day, true, nil
}

func (c *MemoryAvailabilityCache) Set(ctx context.Context, date, barberID string, day schedule.DayAvailability) error {
	c.entries.Store(cacheKey(date, barberID), cacheEntry{
		day:       day,
		expiresAt: time.Now().Add(c.ttl),
	})
	return nil
}

// InvalidateDate drops every cached view of one date, whichever barber
// it was resolved for: a single mutation can change them all.
func (c *MemoryAvailabilityCache) InvalidateDate(ctx context.Context, date string) error {
	prefix := date + "|"
	c.entries.Range(func(key, _ interface{}) bool {
		if strings.HasPrefix(key.(string), prefix) {
			c.entries.Delete(key)
		}
		return true
	})
	return nil
}
