package job

import (
	"context"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/news"
	"coinpulse/internal/service"

	"go.opentelemetry.io/otel/trace"
)

type FeedFetcher interface {
	FetchFeedResult(ctx context.Context) (service.FeedResult, error)
}

// FeedSnapshot is what consumers of the feed see. Err is the banner message
// of the last surfaced failure and is cleared by the next success.
type FeedSnapshot struct {
	Items     []domain.NewsItem `json:"items"`
	UpdatedAt time.Time         `json:"updated_at"`
	Stale     bool              `json:"stale"`
	Err       string            `json:"error,omitempty"`
	Loading   bool              `json:"loading"`
	Seq       uint64            `json:"seq"`
}

// FeedSession keeps the reconciled feed between refreshes and fans every
// change out to subscribers.
type FeedSession struct {
	limit int
	task  *RefreshTask[service.FeedResult]
	hub   *hub[FeedSnapshot]

	mu       sync.RWMutex
	snapshot FeedSnapshot
}

func NewFeedSession(tracer trace.Tracer, fetcher FeedFetcher, interval time.Duration, limit int, opts ...TaskOption) *FeedSession {
	s := &FeedSession{
		limit:    limit,
		hub:      newHub[FeedSnapshot](),
		snapshot: FeedSnapshot{Items: []domain.NewsItem{}},
	}
	opts = append(opts, WithStateHook(s.onState))
	s.task = NewRefreshTask("feed", interval, tracer, fetcher.FetchFeedResult, s.apply, s.fail, opts...)
	return s
}

func (s *FeedSession) Start(ctx context.Context) { s.task.Start(ctx) }
func (s *FeedSession) Stop()                     { s.task.Stop() }
func (s *FeedSession) Refresh()                  { s.task.Trigger() }

// Snapshot returns the current feed. The item slice must not be modified.
func (s *FeedSession) Snapshot() FeedSnapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.snapshot
}

// Subscribe returns a channel that always holds the most recent snapshot not
// yet received. Call the returned func to unsubscribe.
func (s *FeedSession) Subscribe() (<-chan FeedSnapshot, func()) {
	return s.hub.subscribe()
}

func (s *FeedSession) apply(seq uint64, res service.FeedResult) {
	s.update(func(snap *FeedSnapshot) {
		snap.Items = news.Reconcile(snap.Items, res.Items, s.limit)
		snap.UpdatedAt = res.FetchedAt
		snap.Stale = res.Stale
		snap.Err = ""
		snap.Seq = seq
	})
}

func (s *FeedSession) fail(err error) {
	s.update(func(snap *FeedSnapshot) {
		snap.Err = err.Error()
	})
}

func (s *FeedSession) onState(state State) {
	s.update(func(snap *FeedSnapshot) {
		snap.Loading = state == StateFetching || state == StateRetrying
	})
}

func (s *FeedSession) update(fn func(*FeedSnapshot)) {
	s.mu.Lock()
	fn(&s.snapshot)
	snap := s.snapshot
	s.mu.Unlock()
	s.hub.publish(snap)
}
