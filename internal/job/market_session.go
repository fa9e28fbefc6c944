package job

import (
	"context"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type MarketFetcher interface {
	FetchMarketSnapshots(ctx context.Context, symbols []string) ([]domain.MarketSnapshot, error)
	FetchFearGreed(ctx context.Context) (domain.FearGreed, error)
}

type MarketState struct {
	Snapshots []domain.MarketSnapshot `json:"snapshots"`
	FearGreed *domain.FearGreed       `json:"fear_greed,omitempty"`
	UpdatedAt time.Time               `json:"updated_at"`
	Err       string                  `json:"error,omitempty"`
}

// MarketSession refreshes the tracked symbols' snapshots and the fear & greed
// reading on one schedule.
type MarketSession struct {
	fetcher MarketFetcher
	symbols []string
	task    *RefreshTask[MarketState]
	hub     *hub[MarketState]
	now     func() time.Time

	mu    sync.RWMutex
	state MarketState
}

func NewMarketSession(tracer trace.Tracer, fetcher MarketFetcher, symbols []string, interval time.Duration, opts ...TaskOption) *MarketSession {
	s := &MarketSession{
		fetcher: fetcher,
		symbols: append([]string(nil), symbols...),
		hub:     newHub[MarketState](),
		now:     time.Now,
		state:   MarketState{Snapshots: []domain.MarketSnapshot{}},
	}
	s.task = NewRefreshTask("market", interval, tracer, s.fetch, s.apply, s.fail, opts...)
	return s
}

func (s *MarketSession) Start(ctx context.Context) { s.task.Start(ctx) }
func (s *MarketSession) Stop()                     { s.task.Stop() }
func (s *MarketSession) Refresh()                  { s.task.Trigger() }

func (s *MarketSession) Snapshot() MarketState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

func (s *MarketSession) Subscribe() (<-chan MarketState, func()) {
	return s.hub.subscribe()
}

func (s *MarketSession) fetch(ctx context.Context) (MarketState, error) {
	snapshots, err := s.fetcher.FetchMarketSnapshots(ctx, s.symbols)
	if err != nil {
		return MarketState{}, err
	}
	state := MarketState{Snapshots: snapshots, UpdatedAt: s.now()}

	// the index is decoration; its failure does not fail the cycle
	if fg, err := s.fetcher.FetchFearGreed(ctx); err == nil {
		state.FearGreed = &fg
	} else {
		logger.Warn("fear & greed unavailable", zap.Error(err))
	}
	return state, nil
}

func (s *MarketSession) apply(_ uint64, state MarketState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
	s.hub.publish(state)
}

func (s *MarketSession) fail(err error) {
	s.mu.Lock()
	s.state.Err = err.Error()
	state := s.state
	s.mu.Unlock()
	s.hub.publish(state)
}
