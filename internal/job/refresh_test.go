package job

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"go.opentelemetry.io/otel/trace"
)

var testTracer = trace.NewNoopTracerProvider().Tracer("test")

func TestRefreshTaskRunsImmediately(t *testing.T) {
	t.Parallel()

	rec := &recorder[int]{}
	task := NewRefreshTask("test", time.Hour, testTracer,
		func(ctx context.Context) (int, error) { return 7, nil },
		rec.deliver, rec.fail,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Start(ctx)

	eventually(t, func() bool { return len(rec.results()) == 1 })
	got := rec.results()[0]
	if got.seq != 1 || got.v != 7 {
		t.Fatalf("unexpected delivery: %+v", got)
	}
	eventually(t, func() bool { return task.State() == StateIdle })
}

func TestRefreshTaskRetriesWithBackoffThenSurfaces(t *testing.T) {
	t.Parallel()

	var mu sync.Mutex
	var calls []time.Time
	boom := errors.New("boom")
	rec := &recorder[int]{}

	task := NewRefreshTask("test", time.Hour, testTracer,
		func(ctx context.Context) (int, error) {
			mu.Lock()
			calls = append(calls, time.Now())
			mu.Unlock()
			return 0, boom
		},
		rec.deliver, rec.fail,
		WithRetryBackoff(10*time.Millisecond, 3),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Start(ctx)

	eventually(t, func() bool { return len(rec.failures()) == 1 })

	mu.Lock()
	defer mu.Unlock()
	if len(calls) != 4 {
		t.Fatalf("expected initial attempt plus 3 retries, got %d calls", len(calls))
	}
	for i, want := range []time.Duration{10 * time.Millisecond, 20 * time.Millisecond, 40 * time.Millisecond} {
		if gap := calls[i+1].Sub(calls[i]); gap < want {
			t.Fatalf("retry %d came after %s, want at least %s", i+1, gap, want)
		}
	}
	if !errors.Is(rec.failures()[0], boom) {
		t.Fatalf("unexpected surfaced error: %v", rec.failures()[0])
	}
	if len(rec.results()) != 0 {
		t.Fatal("no result expected")
	}
}

func TestRefreshTaskStopsRetryingAfterGivingUp(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &recorder[int]{}
	task := NewRefreshTask("test", time.Hour, testTracer,
		func(ctx context.Context) (int, error) {
			calls.Add(1)
			return 0, errors.New("down")
		},
		rec.deliver, rec.fail,
		WithRetryBackoff(time.Millisecond, 2),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Start(ctx)

	eventually(t, func() bool { return len(rec.failures()) == 1 })
	time.Sleep(30 * time.Millisecond)
	if got := calls.Load(); got != 3 {
		t.Fatalf("expected 3 attempts and then silence, got %d", got)
	}
}

func TestRefreshTaskSuccessResetsRetries(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	rec := &recorder[int]{}
	task := NewRefreshTask("test", time.Hour, testTracer,
		func(ctx context.Context) (int, error) {
			if calls.Add(1) == 1 {
				return 0, errors.New("transient")
			}
			return 1, nil
		},
		rec.deliver, rec.fail,
		WithRetryBackoff(time.Millisecond, 3),
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Start(ctx)

	eventually(t, func() bool { return len(rec.results()) == 1 })
	if got := rec.results()[0].seq; got != 2 {
		t.Fatalf("expected the retry to carry seq 2, got %d", got)
	}
	if len(rec.failures()) != 0 {
		t.Fatal("transient failure must not surface")
	}
	task.mu.Lock()
	retries := task.retries
	task.mu.Unlock()
	if retries != 0 {
		t.Fatalf("expected retries reset, got %d", retries)
	}
}

func TestRefreshTaskDiscardsOutdatedBatch(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	var calls atomic.Int32
	rec := &recorder[int]{}
	task := NewRefreshTask("test", time.Hour, testTracer,
		func(ctx context.Context) (int, error) {
			n := calls.Add(1)
			if n == 1 {
				<-release
			}
			return int(n), nil
		},
		rec.deliver, rec.fail,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Start(ctx)

	eventually(t, func() bool { return calls.Load() == 1 })
	task.Trigger()
	eventually(t, func() bool { return len(rec.results()) == 1 })
	close(release)
	time.Sleep(20 * time.Millisecond)

	results := rec.results()
	if len(results) != 1 || results[0].seq != 2 || results[0].v != 2 {
		t.Fatalf("expected only the second batch, got %+v", results)
	}
}

func TestRefreshTaskStopDropsInFlightResult(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	started := make(chan struct{})
	var once sync.Once
	rec := &recorder[int]{}
	task := NewRefreshTask("test", time.Hour, testTracer,
		func(ctx context.Context) (int, error) {
			once.Do(func() { close(started) })
			<-release
			return 1, nil
		},
		rec.deliver, rec.fail,
	)

	done := make(chan struct{})
	go func() {
		task.Start(context.Background())
		close(done)
	}()

	<-started
	task.Stop()
	close(release)

	select {
	case <-done:
	case <-time.After(time.Second):
		t.Fatal("Start did not return after Stop")
	}
	time.Sleep(20 * time.Millisecond)
	if len(rec.results()) != 0 || len(rec.failures()) != 0 {
		t.Fatal("nothing may be delivered after Stop")
	}
	if task.State() != StateIdle {
		t.Fatalf("expected idle after stop, got %s", task.State())
	}
}

func TestRefreshTaskTicksOnInterval(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	task := NewRefreshTask("test", 10*time.Millisecond, testTracer,
		func(ctx context.Context) (int, error) { return int(calls.Add(1)), nil },
		func(uint64, int) {}, nil,
	)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go task.Start(ctx)

	eventually(t, func() bool { return calls.Load() >= 3 })
}

func eventually(t *testing.T, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met")
}

type delivery[T any] struct {
	seq uint64
	v   T
}

type recorder[T any] struct {
	mu   sync.Mutex
	got  []delivery[T]
	errs []error
}

func (r *recorder[T]) deliver(seq uint64, v T) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.got = append(r.got, delivery[T]{seq: seq, v: v})
}

func (r *recorder[T]) fail(err error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.errs = append(r.errs, err)
}

func (r *recorder[T]) results() []delivery[T] {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]delivery[T](nil), r.got...)
}

func (r *recorder[T]) failures() []error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]error(nil), r.errs...)
}
