package job

import (
	"context"
	"sync"
	"time"

	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultRetryBase  = time.Second
	DefaultMaxRetries = 3
)

type State int

const (
	StateIdle State = iota
	StateFetching
	StateSettled
	StateRetrying
)

func (s State) String() string {
	switch s {
	case StateFetching:
		return "fetching"
	case StateSettled:
		return "settled"
	case StateRetrying:
		return "retrying"
	default:
		return "idle"
	}
}

type TaskOption func(*taskOptions)

type taskOptions struct {
	retryBase  time.Duration
	maxRetries int
	onState    func(State)
}

// WithRetryBackoff sets the first retry delay and the number of retries
// before an error is surfaced. Retry n waits base*2^n.
func WithRetryBackoff(base time.Duration, maxRetries int) TaskOption {
	return func(o *taskOptions) {
		if base > 0 {
			o.retryBase = base
		}
		if maxRetries >= 0 {
			o.maxRetries = maxRetries
		}
	}
}

// WithStateHook reports every state transition.
func WithStateHook(fn func(State)) TaskOption {
	return func(o *taskOptions) { o.onState = fn }
}

// RefreshTask runs fetch once on Start and then on every interval tick.
// Failed cycles are retried with exponential backoff; once retries are
// exhausted the error goes to onError and the task waits for the next tick.
//
// Every cycle gets a sequence number and only the latest started cycle may
// deliver. onResult and onError run with the task locked and must not call
// back into it.
type RefreshTask[T any] struct {
	name     string
	interval time.Duration
	tracer   trace.Tracer
	fetch    func(ctx context.Context) (T, error)
	onResult func(seq uint64, v T)
	onError  func(err error)
	opts     taskOptions

	mu      sync.Mutex
	state   State
	seq     uint64
	retries int
	token   context.Context
	cancel  context.CancelFunc
	retry   *time.Timer
}

func NewRefreshTask[T any](
	name string,
	interval time.Duration,
	tracer trace.Tracer,
	fetch func(ctx context.Context) (T, error),
	onResult func(seq uint64, v T),
	onError func(err error),
	opts ...TaskOption,
) *RefreshTask[T] {
	o := taskOptions{retryBase: DefaultRetryBase, maxRetries: DefaultMaxRetries}
	for _, opt := range opts {
		opt(&o)
	}
	if onError == nil {
		onError = func(error) {}
	}
	return &RefreshTask[T]{
		name:     name,
		interval: interval,
		tracer:   tracer,
		fetch:    fetch,
		onResult: onResult,
		onError:  onError,
		opts:     o,
	}
}

// Start blocks until ctx is cancelled or Stop is called. Calling Start on a
// running task returns immediately.
func (t *RefreshTask[T]) Start(ctx context.Context) {
	t.mu.Lock()
	if t.token != nil {
		t.mu.Unlock()
		return
	}
	token, cancel := context.WithCancel(ctx)
	t.token = token
	t.cancel = cancel
	t.retries = 0
	t.mu.Unlock()

	logger.Info("refresh task starting", zap.String("task", t.name), zap.Duration("interval", t.interval))
	t.runCycle(token)

	ticker := time.NewTicker(t.interval)
	defer ticker.Stop()

	for {
		select {
		case <-token.Done():
			t.release(token)
			logger.Info("refresh task stopped", zap.String("task", t.name))
			return
		case <-ticker.C:
			t.mu.Lock()
			t.resetRetryLocked()
			t.mu.Unlock()
			t.runCycle(token)
		}
	}
}

// Stop invalidates the running token. Cycles still in flight finish but
// their results are dropped.
func (t *RefreshTask[T]) Stop() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.stopLocked()
}

// release clears the task state only if token is still the current one, so
// a Start that raced a Stop is left alone.
func (t *RefreshTask[T]) release(token context.Context) {
	t.mu.Lock()
	defer t.mu.Unlock()
	if t.token == token {
		t.stopLocked()
	}
}

func (t *RefreshTask[T]) stopLocked() {
	if t.cancel != nil {
		t.cancel()
	}
	t.token = nil
	t.cancel = nil
	t.resetRetryLocked()
	t.setStateLocked(StateIdle)
}

// Trigger starts a cycle now, outside the interval schedule.
func (t *RefreshTask[T]) Trigger() {
	t.mu.Lock()
	token := t.token
	if token != nil {
		t.resetRetryLocked()
	}
	t.mu.Unlock()

	if token != nil {
		t.runCycle(token)
	}
}

func (t *RefreshTask[T]) State() State {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.state
}

// Seq returns the number of the latest started cycle.
func (t *RefreshTask[T]) Seq() uint64 {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.seq
}

func (t *RefreshTask[T]) runCycle(token context.Context) {
	t.mu.Lock()
	if !t.liveLocked(token) {
		t.mu.Unlock()
		return
	}
	t.seq++
	seq := t.seq
	t.setStateLocked(StateFetching)
	t.mu.Unlock()

	go func() {
		ctx, span := t.tracer.Start(token, "refresh."+t.name)
		v, err := t.fetch(ctx)
		span.End()
		t.settle(token, seq, v, err)
	}()
}

func (t *RefreshTask[T]) settle(token context.Context, seq uint64, v T, err error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	if !t.liveLocked(token) || seq != t.seq {
		logger.Debug("discarding outdated refresh result",
			zap.String("task", t.name),
			zap.Uint64("seq", seq),
		)
		return
	}

	if err == nil {
		t.retries = 0
		t.setStateLocked(StateSettled)
		t.onResult(seq, v)
		t.setStateLocked(StateIdle)
		return
	}

	if t.retries < t.opts.maxRetries {
		delay := t.opts.retryBase << t.retries
		t.retries++
		logger.Warn("refresh failed, retrying",
			zap.String("task", t.name),
			zap.Int("attempt", t.retries),
			zap.Duration("delay", delay),
			zap.Error(err),
		)
		t.setStateLocked(StateRetrying)
		t.retry = time.AfterFunc(delay, func() { t.runCycle(token) })
		return
	}

	logger.Error("refresh failed, giving up until next tick",
		zap.String("task", t.name),
		zap.Int("retries", t.retries),
		zap.Error(err),
	)
	t.setStateLocked(StateIdle)
	t.onError(err)
}

func (t *RefreshTask[T]) liveLocked(token context.Context) bool {
	return t.token != nil && token == t.token && token.Err() == nil
}

func (t *RefreshTask[T]) resetRetryLocked() {
	if t.retry != nil {
		t.retry.Stop()
		t.retry = nil
	}
	t.retries = 0
}

func (t *RefreshTask[T]) setStateLocked(s State) {
	if t.state == s {
		return
	}
	t.state = s
	if t.opts.onState != nil {
		t.opts.onState(s)
	}
}
