package worker

import "time"

// RetryPolicy shapes the backoff between mirror update attempts.
// Zero fields fall back to the mirror defaults.
type RetryPolicy struct {
	MaxRetries    int
	InitialDelay  time.Duration
	MaxDelay      time.Duration
	BackoffFactor float64
}

// DefaultMirrorRetryPolicy fits the sheets mirror: transient quota and
// network errors clear within a minute, so five attempts spaced from
// two seconds up to one minute cover them.
func DefaultMirrorRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:    5,
		InitialDelay:  2 * time.Second,
		MaxDelay:      time.Minute,
		BackoffFactor: 2,
	}
}

func (r RetryPolicy) withDefaults() RetryPolicy {
	def := DefaultMirrorRetryPolicy()
	if r.MaxRetries <= 0 {
		r.MaxRetries = def.MaxRetries
	}
	if r.InitialDelay <= 0 {
		r.InitialDelay = def.InitialDelay
	}
	if r.MaxDelay <= 0 {
		r.MaxDelay = def.MaxDelay
	}
	if r.BackoffFactor <= 0 {
		r.BackoffFactor = def.BackoffFactor
	}
	return r
}

// NextDelay returns the wait before the given attempt (1-based),
// growing by BackoffFactor per attempt and clamped at MaxDelay.
func (r RetryPolicy) NextDelay(attempt int) time.Duration {
	r = r.withDefaults()
	delay := r.InitialDelay
	for i := 1; i < attempt; i++ {
		delay = time.Duration(float64(delay) * r.BackoffFactor)
		if delay >= r.MaxDelay {
			return r.MaxDelay
		}
	}
	return delay
}
