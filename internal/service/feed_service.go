package service

import (
	"context"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/news"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
)

type NewsAggregator interface {
	FetchAll(ctx context.Context) (news.Result, error)
}

type NewsEnricher interface {
	Enrich(ctx context.Context, items []domain.NewsItem) []domain.NewsItem
}

// FeedResult is an enriched feed plus where it came from.
type FeedResult struct {
	Items     []domain.NewsItem
	Stale     bool
	FromCache bool
	FetchedAt time.Time
}

// FeedService produces the enriched news feed. It remembers the enrichment of
// the previous batch so an unchanged item keeps its scores across refreshes.
type FeedService struct {
	tracer     trace.Tracer
	aggregator NewsAggregator
	enricher   NewsEnricher
	now        func() time.Time

	mu   sync.Mutex
	last map[string]domain.NewsItem
}

func NewFeedService(tracer trace.Tracer, aggregator NewsAggregator, enricher NewsEnricher) *FeedService {
	return &FeedService{
		tracer:     tracer,
		aggregator: aggregator,
		enricher:   enricher,
		now:        time.Now,
		last:       make(map[string]domain.NewsItem),
	}
}

// FetchFeed returns the merged, enriched feed sorted newest first. It fails
// only when aggregation timed out and nothing could be served instead.
func (s *FeedService) FetchFeed(ctx context.Context) ([]domain.NewsItem, error) {
	res, err := s.FetchFeedResult(ctx)
	return res.Items, err
}

func (s *FeedService) FetchFeedResult(ctx context.Context) (FeedResult, error) {
	ctx, span := s.tracer.Start(ctx, "feed-service.fetch-feed")
	defer span.End()

	res, err := s.aggregator.FetchAll(ctx)
	if err != nil {
		return FeedResult{Items: []domain.NewsItem{}, FetchedAt: s.now()}, err
	}

	items := s.carryEnrichment(res.Items)
	enriched := s.enricher.Enrich(ctx, items)
	domain.SortNewest(enriched)
	s.remember(enriched)

	span.SetAttributes(
		attribute.Int("items", len(enriched)),
		attribute.Bool("stale", res.Stale),
	)
	return FeedResult{
		Items:     enriched,
		Stale:     res.Stale,
		FromCache: res.FromCache,
		FetchedAt: s.now(),
	}, nil
}

func (s *FeedService) carryEnrichment(items []domain.NewsItem) []domain.NewsItem {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.NewsItem, len(items))
	for i, item := range items {
		prev, ok := s.last[item.ID]
		if ok && !item.Enriched() && prev.Enriched() && prev.Title == item.Title {
			item = item.WithEnrichment(*prev.Sentiment, *prev.Reliability, *prev.Impact)
		}
		out[i] = item
	}
	return out
}

func (s *FeedService) remember(items []domain.NewsItem) {
	last := make(map[string]domain.NewsItem, len(items))
	for _, item := range items {
		last[item.ID] = item
	}
	s.mu.Lock()
	s.last = last
	s.mu.Unlock()
}
