package mock

import (
	"math/rand/v2"
	"testing"
	"time"

	"coinpulse/internal/domain"
)

func newTestGenerator() *Generator {
	g := New(rand.NewPCG(42, 7))
	g.now = func() time.Time { return time.Date(2026, 2, 13, 10, 0, 0, 0, time.UTC) }
	return g
}

func TestNewsItemsAreUnenrichedAndSorted(t *testing.T) {
	items := newTestGenerator().News(8)
	if len(items) != 8 {
		t.Fatalf("expected 8 items, got %d", len(items))
	}
	seen := map[string]bool{}
	for i, item := range items {
		if item.Enriched() {
			t.Fatal("mock news must leave enrichment to the enricher")
		}
		if seen[item.ID] {
			t.Fatalf("duplicate id %s", item.ID)
		}
		seen[item.ID] = true
		if i > 0 && item.PublishedAt > items[i-1].PublishedAt {
			t.Fatal("mock news should be newest first")
		}
	}
}

func TestNewsIDsStableAcrossCalls(t *testing.T) {
	g := newTestGenerator()
	first := g.News(20)
	g.now = func() time.Time { return time.Date(2026, 2, 13, 10, 1, 0, 0, time.UTC) }
	second := g.News(20)

	seen := map[string]bool{}
	for i := range first {
		if first[i].ID != second[i].ID || first[i].Title != second[i].Title {
			t.Fatalf("slot %d changed between calls: %q vs %q", i, first[i].ID, second[i].ID)
		}
		if seen[first[i].ID] {
			t.Fatalf("duplicate id %q", first[i].ID)
		}
		seen[first[i].ID] = true
	}
}

func TestSnapshotIsFlaggedAndConsistent(t *testing.T) {
	snap := newTestGenerator().Snapshot("eth")
	if snap.Symbol != "ETH" || !snap.Mock {
		t.Fatalf("unexpected snapshot: %+v", snap)
	}
	if snap.Low24h > snap.PriceUSD || snap.High24h < snap.PriceUSD {
		t.Fatalf("price outside day range: %+v", snap)
	}
	if snap.PriceUSD < 3000 || snap.PriceUSD > 3400 {
		t.Fatalf("price too far from reference: %f", snap.PriceUSD)
	}
}

func TestHistoryShapes(t *testing.T) {
	g := newTestGenerator()
	cases := map[domain.PriceRange]int{
		domain.Range1D:  288,
		domain.Range7D:  168,
		domain.Range30D: 720,
		domain.Range1Y:  365,
	}
	for r, want := range cases {
		points := g.History("BTC", r)
		if len(points) != want {
			t.Fatalf("%s: expected %d points, got %d", r, want, len(points))
		}
		for i := 1; i < len(points); i++ {
			if points[i].Timestamp <= points[i-1].Timestamp {
				t.Fatalf("%s: timestamps not ascending at %d", r, i)
			}
		}
		if last := points[len(points)-1].Price; last != 64000 {
			t.Fatalf("%s: series should end at the reference price, got %f", r, last)
		}
	}
	if points := g.History("BTC", "2w"); len(points) != 0 {
		t.Fatalf("unknown range should be empty, got %d", len(points))
	}
}

func TestFearGreedClassification(t *testing.T) {
	fg := newTestGenerator().FearGreed()
	if fg.Value < 20 || fg.Value > 80 || fg.Classification == "" || !fg.Mock {
		t.Fatalf("unexpected reading: %+v", fg)
	}
	if classifyFearGreed(10) != "Extreme Fear" || classifyFearGreed(50) != "Neutral" || classifyFearGreed(90) != "Extreme Greed" {
		t.Fatal("unexpected classification bands")
	}
}
