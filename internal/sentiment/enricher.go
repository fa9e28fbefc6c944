package sentiment

import (
	"context"
	"sync"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	DefaultChunkSize  = 5
	DefaultChunkPause = 100 * time.Millisecond
)

// TextClassifier is the part of Classifier the enricher needs.
type TextClassifier interface {
	ClassifyDetailed(ctx context.Context, text string) Classification
}

type EnricherOption func(*Enricher)

func WithChunkSize(n int) EnricherOption {
	return func(e *Enricher) {
		if n > 0 {
			e.chunkSize = n
		}
	}
}

func WithChunkPause(d time.Duration) EnricherOption {
	return func(e *Enricher) {
		if d >= 0 {
			e.pause = d
		}
	}
}

// Enricher attaches sentiment, reliability and impact to news items. Items
// are processed in sequential chunks; items within a chunk run concurrently.
type Enricher struct {
	classifier TextClassifier
	scorer     Scorer
	backup     Scorer
	tracer     trace.Tracer
	chunkSize  int
	pause      time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

func NewEnricher(classifier TextClassifier, scorer Scorer, tracer trace.Tracer, opts ...EnricherOption) *Enricher {
	e := &Enricher{
		classifier: classifier,
		scorer:     scorer,
		backup:     NewHeuristicScorer("", nil),
		tracer:     tracer,
		chunkSize:  DefaultChunkSize,
		pause:      DefaultChunkPause,
		sleep:      sleepContext,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// Enrich returns a copy of items with every derived field set. Items that are
// already enriched are passed through. It never fails.
func (e *Enricher) Enrich(ctx context.Context, items []domain.NewsItem) []domain.NewsItem {
	out := make([]domain.NewsItem, len(items))
	copy(out, items)

	pausing := true
	for start := 0; start < len(out); start += e.chunkSize {
		if start > 0 && pausing && e.pause > 0 {
			if err := e.sleep(ctx, e.pause); err != nil {
				// cancelled: finish the remaining chunks without waiting
				pausing = false
			}
		}
		end := min(start+e.chunkSize, len(out))
		e.enrichChunk(ctx, out[start:end], start)
	}
	return out
}

func (e *Enricher) enrichChunk(ctx context.Context, chunk []domain.NewsItem, offset int) {
	ctx, span := e.tracer.Start(ctx, "sentiment.enrich-chunk")
	span.SetAttributes(attribute.Int("offset", offset), attribute.Int("size", len(chunk)))
	defer span.End()

	var wg sync.WaitGroup
	for i := range chunk {
		if chunk[i].Enriched() {
			continue
		}
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			chunk[i] = e.enrichOne(ctx, chunk[i])
		}(i)
	}
	wg.Wait()
}

func (e *Enricher) enrichOne(ctx context.Context, item domain.NewsItem) (out domain.NewsItem) {
	defer func() {
		if r := recover(); r != nil {
			logger.Error("news enrichment panicked", zap.String("id", item.ID), zap.Any("panic", r))
			out = item.WithEnrichment(domain.SentimentNeutral,
				e.backup.Reliability(item, true),
				e.backup.Impact(item, true))
		}
	}()

	cls := e.classifier.ClassifyDetailed(ctx, item.Title)
	sentiment := domain.ParseSentiment(string(cls.Sentiment))
	labelled := item
	labelled.Sentiment = &sentiment

	degraded := cls.Degraded()
	reliability := min(max(e.scorer.Reliability(labelled, degraded), 0), 100)
	impact := e.scorer.Impact(labelled, degraded)
	if !impact.IsValid() {
		impact = domain.ImpactLow
	}
	return item.WithEnrichment(sentiment, reliability, impact)
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
