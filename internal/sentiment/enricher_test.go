package sentiment

import (
	"context"
	"fmt"
	"math/rand/v2"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coinpulse/internal/cache"
	"coinpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

type stubClassifier struct {
	label    domain.Sentiment
	origin   Origin
	delay    time.Duration
	calls    atomic.Int32
	inFlight atomic.Int32
	maxSeen  atomic.Int32
}

func (s *stubClassifier) ClassifyDetailed(ctx context.Context, text string) Classification {
	s.calls.Add(1)
	n := s.inFlight.Add(1)
	defer s.inFlight.Add(-1)
	for {
		seen := s.maxSeen.Load()
		if n <= seen || s.maxSeen.CompareAndSwap(seen, n) {
			break
		}
	}
	if s.delay > 0 {
		time.Sleep(s.delay)
	}
	return Classification{Sentiment: s.label, Origin: s.origin}
}

type constScorer struct {
	reliability int
	impact      domain.Impact
	panics      bool
}

func (c constScorer) Reliability(item domain.NewsItem, degraded bool) int {
	if c.panics {
		panic("scorer failure")
	}
	return c.reliability
}

func (c constScorer) Impact(item domain.NewsItem, degraded bool) domain.Impact {
	return c.impact
}

func newsItems(n int) []domain.NewsItem {
	items := make([]domain.NewsItem, 0, n)
	for i := 0; i < n; i++ {
		items = append(items, domain.NewsItem{ID: fmt.Sprintf("id-%d", i), Title: fmt.Sprintf("headline %d", i), PublishedAt: int64(100 - i)})
	}
	return items
}

func newTestEnricher(c TextClassifier, s Scorer) (*Enricher, *[]time.Duration) {
	e := NewEnricher(c, s, trace.NewNoopTracerProvider().Tracer("test"))
	var mu sync.Mutex
	var pauses []time.Duration
	e.sleep = func(ctx context.Context, d time.Duration) error {
		mu.Lock()
		pauses = append(pauses, d)
		mu.Unlock()
		return nil
	}
	return e, &pauses
}

func TestEnrichChunksWithPauses(t *testing.T) {
	classifier := &stubClassifier{label: domain.SentimentPositive, origin: OriginLive, delay: 5 * time.Millisecond}
	e, pauses := newTestEnricher(classifier, constScorer{reliability: 80, impact: domain.ImpactMedium})

	items := newsItems(12)
	out := e.Enrich(context.Background(), items)

	if len(out) != 12 {
		t.Fatalf("expected 12 items, got %d", len(out))
	}
	for i, item := range out {
		if !item.Enriched() {
			t.Fatalf("item %d not enriched", i)
		}
		if item.ID != items[i].ID {
			t.Fatalf("order changed at %d", i)
		}
	}
	if items[0].Enriched() {
		t.Fatal("input slice must not be mutated")
	}
	if len(*pauses) != 2 || (*pauses)[0] != DefaultChunkPause {
		t.Fatalf("expected two 100ms pauses between three chunks, got %v", *pauses)
	}
	if peak := classifier.maxSeen.Load(); peak > DefaultChunkSize {
		t.Fatalf("more than %d classifications in flight: %d", DefaultChunkSize, peak)
	}
}

func TestEnrichSkipsAlreadyEnriched(t *testing.T) {
	classifier := &stubClassifier{label: domain.SentimentPositive, origin: OriginLive}
	e, _ := newTestEnricher(classifier, constScorer{reliability: 80, impact: domain.ImpactMedium})

	items := newsItems(2)
	items[0] = items[0].WithEnrichment(domain.SentimentNegative, 91, domain.ImpactHigh)
	out := e.Enrich(context.Background(), items)

	if classifier.calls.Load() != 1 {
		t.Fatalf("expected one classification, got %d", classifier.calls.Load())
	}
	if *out[0].Sentiment != domain.SentimentNegative || *out[0].Reliability != 91 {
		t.Fatalf("existing enrichment should be kept: %+v", out[0])
	}
}

func TestEnrichRecoversScorerPanic(t *testing.T) {
	classifier := &stubClassifier{label: domain.SentimentPositive, origin: OriginLive}
	e, _ := newTestEnricher(classifier, constScorer{panics: true})

	out := e.Enrich(context.Background(), newsItems(3))
	for _, item := range out {
		if !item.Enriched() {
			t.Fatalf("item should carry degraded values: %+v", item)
		}
		if *item.Sentiment != domain.SentimentNeutral || *item.Reliability < 70 || *item.Reliability >= 85 {
			t.Fatalf("unexpected degraded values: %+v", item)
		}
	}
}

func TestEnrichClampsScorerOutput(t *testing.T) {
	classifier := &stubClassifier{label: domain.SentimentNeutral, origin: OriginLive}
	e, _ := newTestEnricher(classifier, constScorer{reliability: 140, impact: "Huge"})

	out := e.Enrich(context.Background(), newsItems(1))
	if *out[0].Reliability != 100 || *out[0].Impact != domain.ImpactLow {
		t.Fatalf("unexpected clamped values: %+v", out[0])
	}
}

func TestEnrichWithUnreachableClassifier(t *testing.T) {
	store := cache.NewStore[domain.Sentiment]("sentiment", cache.SentimentTTL)
	classifier := NewClassifier(ClassifierConfig{APIKey: "k"}, store, nil, trace.NewNoopTracerProvider().Tracer("test"))
	classifier.client = &stubChatClient{err: fmt.Errorf("dial tcp: connection refused")}
	e, _ := newTestEnricher(classifier, NewHeuristicScorer("CryptoPanic", rand.NewPCG(7, 9)))

	out := e.Enrich(context.Background(), newsItems(7))
	for _, item := range out {
		if *item.Sentiment != domain.SentimentNeutral {
			t.Fatalf("expected NEUTRAL, got %s", *item.Sentiment)
		}
		if r := *item.Reliability; r < 70 || r >= 85 {
			t.Fatalf("reliability %d out of [70,85)", r)
		}
		if !item.Impact.IsValid() {
			t.Fatalf("invalid impact %q", *item.Impact)
		}
	}
}

func TestEnrichEmpty(t *testing.T) {
	e, pauses := newTestEnricher(&stubClassifier{}, constScorer{})
	if out := e.Enrich(context.Background(), nil); len(out) != 0 {
		t.Fatalf("expected empty output, got %d", len(out))
	}
	if len(*pauses) != 0 {
		t.Fatal("no pause expected for empty input")
	}
}
