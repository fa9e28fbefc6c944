package news

import (
	"context"
	"errors"
	"fmt"
	"time"

	"coinpulse/internal/cache"
	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
	"golang.org/x/sync/singleflight"
)

const (
	DefaultTimeout    = 10 * time.Second
	DefaultRetryBase  = time.Second
	DefaultMaxRetries = 3

	feedCacheKey = "feed"
)

// ErrTimeout is returned when the sources did not all answer within the
// aggregation budget.
var ErrTimeout = errors.New("news aggregation timed out")

// Source is one news upstream. Fetch never fails: problems are logged by the
// source and yield an empty slice.
type Source interface {
	Name() string
	Fetch(ctx context.Context) []domain.NewsItem
}

// Result is one aggregated feed. Stale is set when the items come from an
// expired cache entry after every retry failed.
type Result struct {
	Items     []domain.NewsItem
	FromCache bool
	Stale     bool
}

type Option func(*Aggregator)

func WithTimeout(d time.Duration) Option {
	return func(a *Aggregator) {
		if d > 0 {
			a.timeout = d
		}
	}
}

// WithRetry sets the backoff base and the number of retries after the first
// attempt.
func WithRetry(base time.Duration, maxRetries int) Option {
	return func(a *Aggregator) {
		if base > 0 {
			a.retryBase = base
		}
		if maxRetries >= 0 {
			a.maxRetries = maxRetries
		}
	}
}

func WithDedupePolicy(p DedupePolicy) Option {
	return func(a *Aggregator) { a.policy = p }
}

// WithFallback supplies items to serve when every retry failed and nothing is
// cached.
func WithFallback(fn func() []domain.NewsItem) Option {
	return func(a *Aggregator) { a.fallback = fn }
}

// Aggregator fans out to all sources and merges their items into one sorted,
// de-duplicated feed.
type Aggregator struct {
	sources    []Source
	store      *cache.Store[[]domain.NewsItem]
	tracer     trace.Tracer
	timeout    time.Duration
	retryBase  time.Duration
	maxRetries int
	policy     DedupePolicy
	fallback   func() []domain.NewsItem
	group      singleflight.Group

	sleep func(ctx context.Context, d time.Duration) error
}

func NewAggregator(store *cache.Store[[]domain.NewsItem], sources []Source, tracer trace.Tracer, opts ...Option) *Aggregator {
	a := &Aggregator{
		sources:    append([]Source(nil), sources...),
		store:      store,
		tracer:     tracer,
		timeout:    DefaultTimeout,
		retryBase:  DefaultRetryBase,
		maxRetries: DefaultMaxRetries,
		policy:     KeepLast,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(a)
	}
	return a
}

// Sources returns the registered source names in registration order.
func (a *Aggregator) Sources() []string {
	names := make([]string, 0, len(a.sources))
	for _, s := range a.sources {
		names = append(names, s.Name())
	}
	return names
}

// FetchAll returns the merged feed. A fresh cache entry is returned without
// touching any source. Concurrent callers share one in-flight cycle.
func (a *Aggregator) FetchAll(ctx context.Context) (Result, error) {
	if items, ok := a.store.GetFresh(feedCacheKey); ok {
		return Result{Items: items, FromCache: true}, nil
	}

	ch := a.group.DoChan(feedCacheKey, func() (interface{}, error) {
		// each attempt is bounded by a.timeout; a caller leaving must not
		// fail the cycle for the callers that joined it
		return a.fetchAll(context.WithoutCancel(ctx), 0)
	})
	select {
	case <-ctx.Done():
		return Result{Items: []domain.NewsItem{}}, ctx.Err()
	case res := <-ch:
		out, _ := res.Val.(Result)
		return out, res.Err
	}
}

func (a *Aggregator) fetchAll(ctx context.Context, attempt int) (Result, error) {
	if items, ok := a.store.GetFresh(feedCacheKey); ok {
		return Result{Items: items, FromCache: true}, nil
	}

	ctx, span := a.tracer.Start(ctx, "news.aggregate")
	span.SetAttributes(attribute.Int("attempt", attempt))
	items, err := a.collect(ctx)
	span.End()

	if err == nil {
		a.store.Put(feedCacheKey, items)
		logger.Debug("news aggregated", zap.Int("items", len(items)), zap.Int("attempt", attempt))
		return Result{Items: items}, nil
	}

	if errors.Is(err, ErrTimeout) && attempt < a.maxRetries {
		delay := a.retryBase * time.Duration(1<<attempt)
		logger.Warn("news aggregation timed out, retrying",
			zap.Int("attempt", attempt+1),
			zap.Duration("delay", delay),
		)
		if sleepErr := a.sleep(ctx, delay); sleepErr == nil {
			return a.fetchAll(ctx, attempt+1)
		}
	}

	return a.degrade(err)
}

// degrade serves the last cached feed, however old, after retries are spent.
func (a *Aggregator) degrade(err error) (Result, error) {
	if items, ok := a.store.GetStale(feedCacheKey); ok {
		logger.Warn("serving stale news after aggregation failure", zap.Error(err), zap.Int("items", len(items)))
		return Result{Items: items, FromCache: true, Stale: true}, nil
	}
	if a.fallback != nil {
		items := a.fallback()
		domain.SortNewest(items)
		logger.Warn("serving fallback news after aggregation failure", zap.Error(err), zap.Int("items", len(items)))
		return Result{Items: items, Stale: true}, nil
	}
	logger.Error("news aggregation failed with no cached feed", zap.Error(err))
	return Result{Items: []domain.NewsItem{}}, err
}

// collect runs every source under the shared budget and merges their output.
func (a *Aggregator) collect(ctx context.Context) ([]domain.NewsItem, error) {
	ctx, cancel := context.WithTimeout(ctx, a.timeout)
	defer cancel()

	results := make([][]domain.NewsItem, len(a.sources))
	var g errgroup.Group
	for i, src := range a.sources {
		g.Go(func() error {
			results[i] = a.fetchSource(ctx, src)
			return nil
		})
	}

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		close(done)
	}()

	select {
	case <-done:
	case <-ctx.Done():
		select {
		case <-done:
			// finished right at the deadline
			return a.merge(results), nil
		default:
		}
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w after %s", ErrTimeout, a.timeout)
		}
		return nil, ctx.Err()
	}
	return a.merge(results), nil
}

func (a *Aggregator) merge(results [][]domain.NewsItem) []domain.NewsItem {
	merged := make([]domain.NewsItem, 0)
	for _, items := range results {
		merged = append(merged, items...)
	}
	merged = Dedupe(merged, a.policy)
	tagSymbols(merged)
	domain.SortNewest(merged)
	return merged
}

func (a *Aggregator) fetchSource(ctx context.Context, src Source) (items []domain.NewsItem) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("news source panicked", zap.String("source", src.Name()), zap.Any("panic", r))
			items = nil
		}
	}()
	return src.Fetch(ctx)
}

func sleepContext(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
