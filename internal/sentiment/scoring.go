package sentiment

import (
	"math/rand/v2"
	"regexp"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"coinpulse/internal/domain"
)

// Scorer derives reliability and impact for an item whose sentiment is
// already set. degraded is true when the classifier gave no usable answer.
type Scorer interface {
	Reliability(item domain.NewsItem, degraded bool) int
	Impact(item domain.NewsItem, degraded bool) domain.Impact
}

var (
	urgentRx = regexp.MustCompile(`(?i)urgent|breaking|alert|critical|major`)
	marketRx = regexp.MustCompile(`(?i)price|market|crash|surge|soar|plunge`)
)

// HeuristicScorer is the keyword and randomness based Scorer. Safe for
// concurrent use.
type HeuristicScorer struct {
	mu      sync.Mutex
	rng     *rand.Rand
	trusted string
}

// NewHeuristicScorer creates a scorer that favours the trusted provider. A nil
// src seeds from the clock.
func NewHeuristicScorer(trusted string, src rand.Source) *HeuristicScorer {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed>>1|1)
	}
	return &HeuristicScorer{rng: rand.New(src), trusted: strings.TrimSpace(trusted)}
}

func (s *HeuristicScorer) Reliability(item domain.NewsItem, degraded bool) int {
	if degraded {
		return 70 + s.intN(15)
	}
	score := 75 + s.intN(20)
	if utf8.RuneCountInString(item.Body) > 200 {
		score += 5
	}
	if s.isTrusted(item) {
		score += 5
	}
	return min(score, 100)
}

func (s *HeuristicScorer) Impact(item domain.NewsItem, degraded bool) domain.Impact {
	if degraded {
		r := s.float()
		switch {
		case r < 0.3:
			return domain.ImpactHigh
		case r < 0.5:
			return domain.ImpactMedium
		default:
			return domain.ImpactLow
		}
	}

	opinionated := item.Sentiment != nil && !item.Sentiment.IsNeutral()
	marketMove := marketRx.MatchString(item.Title)
	switch {
	case urgentRx.MatchString(item.Title), marketMove && opinionated:
		return domain.ImpactHigh
	case marketMove, opinionated:
		return domain.ImpactMedium
	default:
		return domain.ImpactLow
	}
}

func (s *HeuristicScorer) isTrusted(item domain.NewsItem) bool {
	if s.trusted == "" {
		return false
	}
	if strings.EqualFold(item.Provider, s.trusted) {
		return true
	}
	source := strings.ToLower(item.Source)
	trusted := strings.ToLower(s.trusted)
	return source == trusted || strings.HasPrefix(source, trusted+"/")
}

func (s *HeuristicScorer) intN(n int) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.IntN(n)
}

func (s *HeuristicScorer) float() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.rng.Float64()
}
