package database

import (
	"context"
	"sync"

	"termin/internal/domain"
	"termin/internal/models"
)

// subscriber is one live change-feed registration. kick is buffered
// with capacity 1 so a burst of mutations coalesces into one refresh.
type subscriber struct {
	filter domain.QueryFilter
	kick   chan struct{}
	out    chan []*models.Booking
	done   chan struct{}
	once   sync.Once
}

func (s *subscriber) stop() {
	s.once.Do(func() { close(s.done) })
}

// Subscribe streams the full filtered result set: one snapshot
// immediately, then a fresh one after every store mutation. The feed
// terminates when ctx is cancelled or the returned cancel func runs;
// cancellation closes the channel and releases the registration.
func (db *DB) Subscribe(ctx context.Context, filter domain.QueryFilter) (<-chan []*models.Booking, func(), error) {
	// Fail fast on a broken filter before spawning the feed.
	if _, err := db.QueryBookings(ctx, filter); err != nil {
		return nil, nil, err
	}

	sub := &subscriber{
		filter: filter,
		kick:   make(chan struct{}, 1),
		out:    make(chan []*models.Booking),
		done:   make(chan struct{}),
	}

	db.mu.Lock()
	db.nextSubID++
	id := db.nextSubID
	db.subscribers[id] = sub
	db.mu.Unlock()

	cancel := func() {
		db.mu.Lock()
		delete(db.subscribers, id)
		db.mu.Unlock()
		sub.stop()
	}

	go db.feed(ctx, sub)

	// Initial snapshot without waiting for a mutation.
	sub.kick <- struct{}{}

	return sub.out, cancel, nil
}

func (db *DB) feed(ctx context.Context, sub *subscriber) {
	defer close(sub.out)

	for {
		select {
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		case <-sub.kick:
		}

		snapshot, err := db.QueryBookings(ctx, sub.filter)
		if err != nil {
			if ctx.Err() != nil {
				return
			}
			db.log.Error().Err(err).Msg("subscription refresh failed")
			continue
		}

		select {
		case sub.out <- snapshot:
		case <-ctx.Done():
			return
		case <-sub.done:
			return
		}
	}
}

// notifyChanged wakes every live subscription after a mutation. The
// non-blocking send keeps writers decoupled from slow consumers.
func (db *DB) notifyChanged() {
	db.mu.Lock()
	defer db.mu.Unlock()
	for _, sub := range db.subscribers {
		select {
		case sub.kick <- struct{}{}:
		default:
		}
	}
}

func (db *DB) closeSubscribers() {
	db.mu.Lock()
	subs := make([]*subscriber, 0, len(db.subscribers))
	for id, sub := range db.subscribers {
		subs = append(subs, sub)
		delete(db.subscribers, id)
	}
	db.mu.Unlock()

	for _, sub := range subs {
		sub.stop()
	}
}
