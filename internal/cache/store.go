package cache

import (
	"encoding/json"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"go.uber.org/zap"
)

const (
	NewsTTL      = 60 * time.Second
	SentimentTTL = 300 * time.Second
	SnapshotTTL  = 30 * time.Second
	HistoryTTL   = 30 * time.Second
	FearGreedTTL = 10 * time.Minute
)

// Entry is a cached value and the time it was stored.
type Entry[T any] struct {
	Data      T         `json:"data"`
	Timestamp time.Time `json:"timestamp"`
}

// Mirror is an optional shared second level behind a Store.
type Mirror interface {
	Load(key string) ([]byte, bool)
	Save(key string, payload []byte)
}

type options struct {
	now    func() time.Time
	mirror Mirror
}

type Option func(*options)

// WithClock overrides time.Now, used by tests to move past a TTL.
func WithClock(now func() time.Time) Option {
	return func(o *options) { o.now = now }
}

func WithMirror(m Mirror) Option {
	return func(o *options) { o.mirror = m }
}

// Store is a time-boxed cache for one resource kind. Expired entries are kept:
// GetFresh ignores them, GetStale still returns them for failure fallbacks.
type Store[T any] struct {
	mu      sync.RWMutex
	kind    string
	ttl     time.Duration
	entries map[string]Entry[T]
	now     func() time.Time
	mirror  Mirror
}

func NewStore[T any](kind string, ttl time.Duration, opts ...Option) *Store[T] {
	o := options{now: time.Now}
	for _, opt := range opts {
		opt(&o)
	}
	return &Store[T]{
		kind:    kind,
		ttl:     ttl,
		entries: make(map[string]Entry[T]),
		now:     o.now,
		mirror:  o.mirror,
	}
}

func (s *Store[T]) TTL() time.Duration { return s.ttl }

// GetFresh returns the value for key only while it is younger than the TTL.
func (s *Store[T]) GetFresh(key string) (T, bool) {
	entry, ok := s.lookup(key)
	if !ok || s.now().Sub(entry.Timestamp) >= s.ttl {
		var zero T
		return zero, false
	}
	return entry.Data, true
}

// GetStale returns the value for key regardless of its age.
func (s *Store[T]) GetStale(key string) (T, bool) {
	entry, ok := s.lookup(key)
	if !ok {
		var zero T
		return zero, false
	}
	return entry.Data, true
}

// Entry exposes the raw entry so callers can report its age.
func (s *Store[T]) Entry(key string) (Entry[T], bool) {
	return s.lookup(key)
}

func (s *Store[T]) Put(key string, value T) {
	entry := Entry[T]{Data: value, Timestamp: s.now()}

	s.mu.Lock()
	s.entries[key] = entry
	s.mu.Unlock()

	if s.mirror != nil {
		payload, err := json.Marshal(entry)
		if err != nil {
			logger.Warn("cache mirror encode failed", zap.String("kind", s.kind), zap.Error(err))
			return
		}
		s.mirror.Save(s.mirrorKey(key), payload)
	}
}

func (s *Store[T]) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.entries)
}

func (s *Store[T]) lookup(key string) (Entry[T], bool) {
	s.mu.RLock()
	entry, ok := s.entries[key]
	s.mu.RUnlock()

	if s.mirror == nil || (ok && s.now().Sub(entry.Timestamp) < s.ttl) {
		return entry, ok
	}

	payload, found := s.mirror.Load(s.mirrorKey(key))
	if !found {
		return entry, ok
	}
	var remote Entry[T]
	if err := json.Unmarshal(payload, &remote); err != nil {
		logger.Warn("cache mirror decode failed", zap.String("kind", s.kind), zap.Error(err))
		return entry, ok
	}
	if ok && !remote.Timestamp.After(entry.Timestamp) {
		return entry, ok
	}

	s.mu.Lock()
	// Another goroutine may have stored a newer value while we were loading.
	if current, exists := s.entries[key]; exists && !remote.Timestamp.After(current.Timestamp) {
		s.mu.Unlock()
		return current, true
	}
	s.entries[key] = remote
	s.mu.Unlock()
	return remote, true
}

func (s *Store[T]) mirrorKey(key string) string {
	return "coinpulse:" + s.kind + ":" + key
}

// Set groups the per-resource stores owned by one pipeline instance.
type Set struct {
	News      *Store[[]domain.NewsItem]
	Sentiment *Store[domain.Sentiment]
	Snapshot  *Store[domain.MarketSnapshot]
	History   *Store[[]domain.PricePoint]
	FearGreed *Store[domain.FearGreed]
}

func NewSet(opts ...Option) *Set {
	return &Set{
		News:      NewStore[[]domain.NewsItem]("news", NewsTTL, opts...),
		Sentiment: NewStore[domain.Sentiment]("sentiment", SentimentTTL, opts...),
		Snapshot:  NewStore[domain.MarketSnapshot]("snapshot", SnapshotTTL, opts...),
		History:   NewStore[[]domain.PricePoint]("history", HistoryTTL, opts...),
		FearGreed: NewStore[domain.FearGreed]("fear_greed", FearGreedTTL, opts...),
	}
}

// HistoryKey builds the price-history cache key for a symbol and range.
func HistoryKey(symbol string, r domain.PriceRange) string {
	return symbol + "|" + string(r)
}
