package provider

import (
	"context"
	"sync"
	"time"
)

// RateLimiter grants at most limit calls per fixed window. When the quota is
// spent, Acquire sleeps until the window ends and then opens a new one.
// Waiters are admitted in arrival order.
type RateLimiter struct {
	mu          sync.Mutex
	limit       int
	window      time.Duration
	count       int
	windowStart time.Time
	now         func() time.Time

	// turn holds one token; the goroutine owning it is the head of the queue.
	turn chan struct{}
}

// NewRateLimiter creates a limiter that allows limit calls per window.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if limit <= 0 {
		limit = 1
	}
	r := &RateLimiter{
		limit:  limit,
		window: window,
		now:    time.Now,
		turn:   make(chan struct{}, 1),
	}
	r.turn <- struct{}{}
	return r
}

// Acquire blocks until a slot in the current window is available or ctx is
// done.
func (r *RateLimiter) Acquire(ctx context.Context) error {
	select {
	case <-r.turn:
	case <-ctx.Done():
		return ctx.Err()
	}
	defer func() { r.turn <- struct{}{} }()

	for {
		wait, ok := r.tryTake()
		if ok {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryTake increments the counter if the quota allows, otherwise it returns the
// time left until the window resets.
func (r *RateLimiter) tryTake() (time.Duration, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()
	if r.windowStart.IsZero() || now.Sub(r.windowStart) >= r.window {
		r.windowStart = now
		r.count = 0
	}
	if r.count < r.limit {
		r.count++
		return 0, true
	}
	return r.window - now.Sub(r.windowStart), false
}

// Remaining reports how many calls the current window still allows.
func (r *RateLimiter) Remaining() int {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.windowStart.IsZero() || r.now().Sub(r.windowStart) >= r.window {
		return r.limit
	}
	return r.limit - r.count
}
