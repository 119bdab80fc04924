package worker

import (
	"context"
	"errors"
	"io"
	"sync"
	"testing"
	"time"

	"termin/internal/models"

	"github.com/alicebob/miniredis/v2"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

type fakeMirror struct {
	mu          sync.Mutex
	err         error
	failFirst   int
	upsertCalls int
	lastBooking *models.Booking
}

func (f *fakeMirror) UpsertBooking(ctx context.Context, booking *models.Booking) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.upsertCalls++
	f.lastBooking = booking
	if f.failFirst > 0 {
		f.failFirst--
		return errors.New("transient")
	}
	return f.err
}

func (f *fakeMirror) calls() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.upsertCalls
}

func testBooking(id string) *models.Booking {
	return &models.Booking{
		ID:       id,
		Date:     "2025-03-15",
		Time:     "9:00",
		BarberID: "himzo",
		Status:   models.StatusPending,
	}
}

func newTestWorker(mirror MirrorClient, client *redis.Client, retry RetryPolicy) *SyncWorker {
	logger := zerolog.New(io.Discard)
	return NewSyncWorker(mirror, client, retry, &logger)
}

func TestProcessTaskSuccess(t *testing.T) {
	mirror := &fakeMirror{}
	w := newTestWorker(mirror, nil, RetryPolicy{})
	ctx := context.Background()

	if err := w.EnqueueBookingSync(ctx, testBooking("b-1")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, ok := w.tryLocalQueue()
	if !ok {
		t.Fatalf("expected task in local queue")
	}
	w.processTask(ctx, task)

	if mirror.calls() != 1 {
		t.Fatalf("expected 1 upsert call, got %d", mirror.calls())
	}
	if mirror.lastBooking.ID != "b-1" {
		t.Fatalf("expected booking b-1, got %s", mirror.lastBooking.ID)
	}
}

func TestEnqueueRejectsEmptyBooking(t *testing.T) {
	w := newTestWorker(&fakeMirror{}, nil, RetryPolicy{})

	if err := w.EnqueueBookingSync(context.Background(), nil); err == nil {
		t.Fatalf("expected error for nil booking")
	}
	if err := w.EnqueueBookingSync(context.Background(), &models.Booking{}); err == nil {
		t.Fatalf("expected error for booking without id")
	}
}

func TestProcessTaskRetriesThenSucceeds(t *testing.T) {
	mirror := &fakeMirror{failFirst: 1}
	w := newTestWorker(mirror, nil, RetryPolicy{MaxRetries: 3, InitialDelay: 10 * time.Millisecond})
	ctx := context.Background()

	if err := w.EnqueueBookingSync(ctx, testBooking("b-2")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	task, _ := w.tryLocalQueue()
	w.processTask(ctx, task)

	// The retry lands back on the local queue after the backoff.
	deadline := time.After(2 * time.Second)
	for {
		if t2, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t2)
			break
		}
		select {
		case <-deadline:
			t.Fatalf("retried task never reappeared")
		case <-time.After(5 * time.Millisecond):
		}
	}

	if mirror.calls() != 2 {
		t.Fatalf("expected 2 upsert calls, got %d", mirror.calls())
	}
}

func TestExhaustedTaskGoesToDeadLetter(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer s.Close()
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	mirror := &fakeMirror{err: errors.New("permanent")}
	w := newTestWorker(mirror, client, RetryPolicy{MaxRetries: 1, InitialDelay: time.Millisecond})
	ctx := context.Background()

	task := SyncTask{Booking: testBooking("b-3")}
	w.processTask(ctx, task)

	if n, err := client.LLen(ctx, w.deadLetterKey).Result(); err != nil || n != 1 {
		t.Fatalf("expected 1 dead letter entry, got n=%d err=%v", n, err)
	}
}

func TestEnqueueGoesThroughRedis(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	defer s.Close()
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()

	w := newTestWorker(&fakeMirror{}, client, RetryPolicy{})
	ctx := context.Background()

	if err := w.EnqueueBookingSync(ctx, testBooking("b-4")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}

	if n, _ := client.LLen(ctx, w.redisQueueKey).Result(); n != 1 {
		t.Fatalf("expected task in redis queue, got %d", n)
	}
	if _, ok := w.tryLocalQueue(); ok {
		t.Fatalf("task should not be on the local queue when redis accepted it")
	}

	task, ok := w.tryRedis(ctx)
	if !ok {
		t.Fatalf("expected task from redis")
	}
	if task.Booking == nil || task.Booking.ID != "b-4" {
		t.Fatalf("unexpected task payload: %+v", task)
	}
}

func TestEnqueueFallsBackWhenRedisDown(t *testing.T) {
	s, err := miniredis.Run()
	if err != nil {
		t.Fatalf("miniredis: %v", err)
	}
	client := redis.NewClient(&redis.Options{Addr: s.Addr()})
	defer client.Close()
	s.Close()

	w := newTestWorker(&fakeMirror{}, client, RetryPolicy{})

	if err := w.EnqueueBookingSync(context.Background(), testBooking("b-5")); err != nil {
		t.Fatalf("enqueue: %v", err)
	}
	if _, ok := w.tryLocalQueue(); !ok {
		t.Fatalf("expected fallback to local queue")
	}
}

func TestRetryPolicyNextDelay(t *testing.T) {
	p := RetryPolicy{MaxRetries: 5, InitialDelay: time.Second, MaxDelay: 10 * time.Second, BackoffFactor: 2}

	cases := []struct {
		attempt int
		want    time.Duration
	}{
		{1, time.Second},
		{2, 2 * time.Second},
		{3, 4 * time.Second},
		{4, 8 * time.Second},
		{5, 10 * time.Second}, // clamped
		{0, time.Second},      // below range
	}
	for _, c := range cases {
		if got := p.NextDelay(c.attempt); got != c.want {
			t.Fatalf("attempt %d: expected %v, got %v", c.attempt, c.want, got)
		}
	}
}

func TestRetryPolicyZeroValueUsesMirrorDefaults(t *testing.T) {
	var p RetryPolicy

	if got := p.NextDelay(1); got != 2*time.Second {
		t.Fatalf("expected default initial delay 2s, got %v", got)
	}
	if got := p.NextDelay(20); got != time.Minute {
		t.Fatalf("expected clamp at the default max delay, got %v", got)
	}

	w := newTestWorker(&fakeMirror{}, nil, RetryPolicy{})
	if w.retryPolicy.MaxRetries != 5 {
		t.Fatalf("expected default max retries 5, got %d", w.retryPolicy.MaxRetries)
	}
}
