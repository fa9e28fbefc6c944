package sentiment

import (
	"math"
	"math/rand/v2"
	"strings"
	"testing"

	"coinpulse/internal/domain"
)

// fixedSource always yields the same value, so Float64 returns roughly f and
// IntN(n) returns floor(f*n). The low bits are kept non-zero so IntN never
// enters its rejection loop.
type fixedSource struct{ v uint64 }

func (s fixedSource) Uint64() uint64 { return s.v }

func sourceAt(f float64) fixedSource {
	return fixedSource{v: uint64(f*math.Exp2(64)) + 12345}
}

func labelled(title, body string, s domain.Sentiment) domain.NewsItem {
	return domain.NewsItem{Title: title, Body: body, Sentiment: &s}
}

func TestReliabilityRanges(t *testing.T) {
	scorer := NewHeuristicScorer("CryptoPanic", rand.NewPCG(1, 2))
	plain := labelled("Headline", "short", domain.SentimentNeutral)
	rich := labelled("Headline", strings.Repeat("x", 201), domain.SentimentNeutral)
	rich.Provider = "cryptopanic"

	for i := 0; i < 500; i++ {
		if r := scorer.Reliability(plain, false); r < 75 || r >= 95 {
			t.Fatalf("plain reliability %d out of [75,95)", r)
		}
		if r := scorer.Reliability(rich, false); r < 85 || r > 100 {
			t.Fatalf("boosted reliability %d out of [85,100]", r)
		}
		if r := scorer.Reliability(plain, true); r < 70 || r >= 85 {
			t.Fatalf("degraded reliability %d out of [70,85)", r)
		}
	}
}

func TestReliabilityBonuses(t *testing.T) {
	scorer := NewHeuristicScorer("CryptoPanic", sourceAt(0.5))
	item := labelled("t", strings.Repeat("é", 201), domain.SentimentNeutral)

	if got := scorer.Reliability(item, false); got != 90 {
		t.Fatalf("expected base 85 plus long-body bonus, got %d", got)
	}
	item.Source = "CryptoPanic/CoinDesk"
	if got := scorer.Reliability(item, false); got != 95 {
		t.Fatalf("expected trusted bonus, got %d", got)
	}

	capped := NewHeuristicScorer("CryptoPanic", sourceAt(0.99))
	if got := capped.Reliability(item, false); got != 100 {
		t.Fatalf("expected cap at 100, got %d", got)
	}
}

func TestImpactRules(t *testing.T) {
	scorer := NewHeuristicScorer("", rand.NewPCG(1, 2))
	cases := []struct {
		title string
		s     domain.Sentiment
		want  domain.Impact
	}{
		{"BREAKING: exchange halts withdrawals", domain.SentimentNeutral, domain.ImpactHigh},
		{"Bitcoin price surges past record", domain.SentimentPositive, domain.ImpactHigh},
		{"Market update for the week", domain.SentimentNeutral, domain.ImpactMedium},
		{"Developer conference recap", domain.SentimentNegative, domain.ImpactMedium},
		{"Developer conference recap", domain.SentimentNeutral, domain.ImpactLow},
	}
	for _, tc := range cases {
		if got := scorer.Impact(labelled(tc.title, "", tc.s), false); got != tc.want {
			t.Errorf("Impact(%q, %s) = %s, want %s", tc.title, tc.s, got, tc.want)
		}
	}
}

func TestDegradedImpactThresholds(t *testing.T) {
	item := labelled("BREAKING", "", domain.SentimentPositive)
	cases := map[float64]domain.Impact{0.1: domain.ImpactHigh, 0.4: domain.ImpactMedium, 0.8: domain.ImpactLow}
	for f, want := range cases {
		scorer := NewHeuristicScorer("", sourceAt(f))
		if got := scorer.Impact(item, true); got != want {
			t.Errorf("r=%.1f: got %s, want %s", f, got, want)
		}
	}
}
