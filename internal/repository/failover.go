package repository

import (
	"context"
	"sync/atomic"
	"time"

	"termin/internal/domain"
	"termin/internal/logging"
	"termin/internal/schedule"

	"github.com/rs/zerolog"
)

// FailoverAvailabilityCache serves from the primary cache until it
// fails, then degrades to the fallback and probes the primary again
// after a minute. Cache misses are cheap, so degraded mode only costs
// extra resolver work, never correctness.
type FailoverAvailabilityCache struct {
	primary   domain.AvailabilityCache
	fallback  domain.AvailabilityCache
	logger    zerolog.Logger
	isDown    atomic.Bool
	lastCheck atomic.Int64
}

func NewFailoverAvailabilityCache(primary, fallback domain.AvailabilityCache, logger *zerolog.Logger) *FailoverAvailabilityCache {
	return &FailoverAvailabilityCache{
		primary:  primary,
		fallback: fallback,
		logger:   logging.Component(logger, "availability-cache"),
	}
}

func (c *FailoverAvailabilityCache) markDown(err error) {
	c.logger.Error().Err(err).Msg("primary availability cache failed, falling back to memory")
	c.isDown.Store(true)
	c.lastCheck.Store(time.Now().UnixNano())
}

func (c *FailoverAvailabilityCache) shouldProbe() bool {
	return time.Since(time.Unix(0, c.lastCheck.Load())) > time.Minute
}

func (c *FailoverAvailabilityCache) Get(ctx context.Context, date, barberID string) (schedule.DayAvailability, bool, error) {
	if !c.isDown.Load() {
		day, ok, err := c.primary.Get(ctx, date, barberID)
		if err == nil {
			return day, ok, nil
		}
		c.markDown(err)
	} else if c.shouldProbe() {
		day, ok, err := c.primary.Get(ctx, date, barberID)
		if err == nil {
			c.isDown.Store(false)
			return day, ok, nil
		}
		c.lastCheck.Store(time.Now().UnixNano())
	}

	return c.fallback.Get(ctx, date, barberID)
}

func (c *FailoverAvailabilityCache) Set(ctx context.Context, date, barberID string, day schedule.DayAvailability) error {
	if !c.isDown.Load() {
		if err := c.primary.Set(ctx, date, barberID, day); err == nil {
			return nil
		} else {
			c.markDown(err)
		}
	}
	return c.fallback.Set(ctx, date, barberID, day)
}

// InvalidateDate must reach both layers: an entry written to the
// fallback while the primary was down would otherwise survive.
func (c *FailoverAvailabilityCache) InvalidateDate(ctx context.Context, date string) error {
	fallbackErr := c.fallback.InvalidateDate(ctx, date)

	if !c.isDown.Load() {
		if err := c.primary.InvalidateDate(ctx, date); err != nil {
			c.markDown(err)
			return err
		}
	}
	return fallbackErr
}
