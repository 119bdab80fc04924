package worker

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"termin/internal/logging"
	"termin/internal/models"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
)

// MirrorClient applies booking snapshots to the external schedule
// mirror.
type MirrorClient interface {
	UpsertBooking(ctx context.Context, booking *models.Booking) error
}

// SyncTask is one queued mirror update. The full booking snapshot
// travels with the task so a consumer never has to read the store.
type SyncTask struct {
	Booking    *models.Booking `json:"booking"`
	RetryCount int             `json:"retry_count"`
	EnqueuedAt time.Time       `json:"enqueued_at"`
}

// SyncWorker pushes booking mutations to the schedule mirror. Tasks go
// through redis when it is up, so a restart loses nothing; the
// in-memory queue is the fallback.
type SyncWorker struct {
	mirror        MirrorClient
	redis         *redis.Client
	retryPolicy   RetryPolicy
	queue         chan SyncTask
	redisQueueKey string
	deadLetterKey string
	pollInterval  time.Duration
	logger        zerolog.Logger
}

func NewSyncWorker(mirror MirrorClient, redisClient *redis.Client, retry RetryPolicy, logger *zerolog.Logger) *SyncWorker {
	return &SyncWorker{
		mirror:        mirror,
		redis:         redisClient,
		retryPolicy:   retry.withDefaults(),
		queue:         make(chan SyncTask, models.WorkerQueueSize),
		redisQueueKey: "mirror:queue",
		deadLetterKey: "mirror:deadletter",
		pollInterval:  2 * time.Second,
		logger:        logging.Component(logger, "sync-worker"),
	}
}

// EnqueueBookingSync schedules one mirror update. Never blocks the
// caller: a full queue drops the task with a log line, the mirror is
// best-effort by design.
func (w *SyncWorker) EnqueueBookingSync(ctx context.Context, booking *models.Booking) error {
	if booking == nil || booking.ID == "" {
		return errors.New("booking id is required")
	}

	task := SyncTask{
		Booking:    booking,
		EnqueuedAt: time.Now(),
	}

	if w.redis != nil {
		if err := w.pushRedis(ctx, task); err != nil {
			w.logger.Warn().Err(err).Msg("redis push failed, falling back to memory queue")
		} else {
			return nil
		}
	}

	select {
	case w.queue <- task:
	default:
		w.logger.Warn().Str("booking_id", booking.ID).Msg("queue full, mirror task dropped")
	}
	return nil
}

// Start launches the main loop; stops when ctx is done.
func (w *SyncWorker) Start(ctx context.Context) {
	w.logger.Info().Msg("started")
	defer w.logger.Info().Msg("stopped")

	for {
		select {
		case <-ctx.Done():
			return
		default:
		}

		if t, ok := w.tryLocalQueue(); ok {
			w.processTask(ctx, t)
			continue
		}

		if t, ok := w.tryRedis(ctx); ok {
			w.processTask(ctx, t)
			continue
		}

		select {
		case <-ctx.Done():
			return
		case <-time.After(w.pollInterval):
		}
	}
}

func (w *SyncWorker) tryLocalQueue() (SyncTask, bool) {
	select {
	case t := <-w.queue:
		return t, true
	default:
		return SyncTask{}, false
	}
}

func (w *SyncWorker) tryRedis(ctx context.Context) (SyncTask, bool) {
	if w.redis == nil {
		return SyncTask{}, false
	}
	res, err := w.redis.BRPop(ctx, time.Second, w.redisQueueKey).Result()
	if err != nil {
		if !errors.Is(err, redis.Nil) && !errors.Is(err, context.Canceled) {
			w.logger.Warn().Err(err).Msg("redis BRPOP error")
		}
		return SyncTask{}, false
	}
	if len(res) != 2 {
		return SyncTask{}, false
	}
	var task SyncTask
	if err := json.Unmarshal([]byte(res[1]), &task); err != nil {
		w.logger.Warn().Err(err).Msg("decode redis task")
		return SyncTask{}, false
	}
	return task, true
}

func (w *SyncWorker) processTask(ctx context.Context, task SyncTask) {
	if task.Booking == nil {
		w.logger.Warn().Msg("task without booking payload dropped")
		return
	}

	err := w.mirror.UpsertBooking(ctx, task.Booking)
	if err == nil {
		w.logger.Debug().Str("booking_id", task.Booking.ID).Msg("mirror updated")
		return
	}
	w.retryOrFail(ctx, task, err)
}

func (w *SyncWorker) retryOrFail(ctx context.Context, task SyncTask, cause error) {
	task.RetryCount++
	if task.RetryCount >= w.retryPolicy.MaxRetries {
		w.logger.Error().Err(cause).
			Str("booking_id", task.Booking.ID).
			Int("attempts", task.RetryCount).
			Msg("mirror update failed, dead-lettering")
		w.pushDeadLetter(ctx, task)
		return
	}

	delay := w.retryPolicy.NextDelay(task.RetryCount)
	w.logger.Warn().Err(cause).
		Str("booking_id", task.Booking.ID).
		Dur("retry_in", delay).
		Msg("mirror update failed, retrying")

	// Requeue after the backoff without stalling the loop.
	go func() {
		select {
		case <-ctx.Done():
		case <-time.After(delay):
			select {
			case w.queue <- task:
			default:
				w.pushDeadLetter(ctx, task)
			}
		}
	}()
}

func (w *SyncWorker) pushRedis(ctx context.Context, task SyncTask) error {
	data, err := json.Marshal(task)
	if err != nil {
		return fmt.Errorf("encode task: %w", err)
	}
	return w.redis.LPush(ctx, w.redisQueueKey, data).Err()
}

func (w *SyncWorker) pushDeadLetter(ctx context.Context, task SyncTask) {
	if w.redis == nil {
		return
	}
	data, err := json.Marshal(task)
	if err != nil {
		return
	}
	if err := w.redis.LPush(ctx, w.deadLetterKey, data).Err(); err != nil {
		w.logger.Error().Err(err).Msg("dead letter push failed")
	}
}
