// Package mock produces plausible stand-in data for when upstreams are rate
// limited or unreachable.
package mock

import (
	"fmt"
	"math"
	"math/rand/v2"
	"strings"
	"sync"
	"time"

	"coinpulse/internal/domain"

	"github.com/google/uuid"
)

var basePrice = map[string]float64{
	"BTC":   64000,
	"ETH":   3200,
	"SOL":   145,
	"XRP":   0.55,
	"ADA":   0.45,
	"DOGE":  0.15,
	"DOT":   7,
	"AVAX":  35,
	"LINK":  15,
	"MATIC": 0.7,
}

var headlines = []string{
	"%s price holds steady as traders await macro data",
	"Analysts see growing institutional interest in %s",
	"%s network activity climbs to a monthly high",
	"Major exchange lists new %s trading pairs",
	"%s developers publish roadmap update",
	"Market volatility returns as %s swings intraday",
	"Regulators comment on %s ETF applications",
	"%s whales move large holdings to cold storage",
}

// Generator is safe for concurrent use.
type Generator struct {
	mu  sync.Mutex
	rng *rand.Rand
	now func() time.Time
}

// New creates a generator. A nil src seeds from the clock.
func New(src rand.Source) *Generator {
	if src == nil {
		seed := uint64(time.Now().UnixNano())
		src = rand.NewPCG(seed, seed^0x9e3779b97f4a7c15)
	}
	return &Generator{rng: rand.New(src), now: time.Now}
}

// News returns n unenriched items spread over the last hours, newest first.
// Slot i always carries the same headline and id, so repeated fallback cycles
// describe the same items instead of piling up new ones.
func (g *Generator) News(n int) []domain.NewsItem {
	g.mu.Lock()
	defer g.mu.Unlock()

	now := g.now().Unix()
	items := make([]domain.NewsItem, 0, n)
	for i := 0; i < n; i++ {
		symbol, template := newsSlot(i)
		title := fmt.Sprintf(template, symbol)
		items = append(items, domain.NewsItem{
			ID:          "mock:" + uuid.NewSHA1(uuid.NameSpaceOID, []byte(title)).String(),
			Title:       title,
			Body:        "Sample article generated while live news sources are unavailable. " + title + ".",
			Source:      "Mock/CoinPulse",
			Provider:    "mock",
			PublishedAt: now - int64(i)*15*60,
			Symbols:     []string{symbol},
		})
	}
	return items
}

// newsSlot pairs symbols and templates so the first
// len(SupportedSymbols)*len(headlines) slots are all distinct.
func newsSlot(i int) (string, string) {
	ns := len(domain.SupportedSymbols)
	return domain.SupportedSymbols[i%ns], headlines[(i/ns+i)%len(headlines)]
}

// Snapshot returns a market snapshot around the symbol's reference price.
func (g *Generator) Snapshot(symbol string) domain.MarketSnapshot {
	g.mu.Lock()
	defer g.mu.Unlock()

	symbol = strings.ToUpper(symbol)
	base := referencePrice(symbol)
	price := base * (1 + (g.rng.Float64()-0.5)*0.04)
	change := (g.rng.Float64() - 0.5) * 10
	spread := price * (0.01 + g.rng.Float64()*0.03)

	return domain.MarketSnapshot{
		Symbol:       symbol,
		PriceUSD:     round(price, base),
		Change24hPct: math.Round(change*100) / 100,
		Volume24h:    math.Round(base * (5e4 + g.rng.Float64()*5e5)),
		MarketCap:    math.Round(base * (1e7 + g.rng.Float64()*1e7)),
		High24h:      round(price+spread/2, base),
		Low24h:       round(price-spread/2, base),
		LastUpdated:  g.now().Unix(),
		Mock:         true,
	}
}

// History returns a random walk ending near the reference price, sampled at
// the granularity CoinGecko uses for r.
func (g *Generator) History(symbol string, r domain.PriceRange) []domain.PricePoint {
	g.mu.Lock()
	defer g.mu.Unlock()

	count, step := historyShape(r)
	if count == 0 {
		return []domain.PricePoint{}
	}

	base := referencePrice(strings.ToUpper(symbol))
	end := g.now().Truncate(step)
	points := make([]domain.PricePoint, count)
	price := base
	for i := count - 1; i >= 0; i-- {
		points[i] = domain.PricePoint{
			Timestamp: end.Add(-time.Duration(count-1-i) * step).UnixMilli(),
			Price:     round(price, base),
		}
		price *= 1 + (g.rng.Float64()-0.5)*0.02
		price = math.Max(price, base*0.2)
	}
	return points
}

// FearGreed returns a random index reading.
func (g *Generator) FearGreed() domain.FearGreed {
	g.mu.Lock()
	defer g.mu.Unlock()

	value := 20 + g.rng.IntN(61)
	return domain.FearGreed{
		Value:          value,
		Classification: classifyFearGreed(value),
		Timestamp:      g.now().Unix(),
		Mock:           true,
	}
}

func historyShape(r domain.PriceRange) (int, time.Duration) {
	switch r {
	case domain.Range1D:
		return 288, 5 * time.Minute
	case domain.Range7D, domain.Range30D, domain.Range90D:
		return r.Days() * 24, time.Hour
	case domain.Range1Y:
		return 365, 24 * time.Hour
	default:
		return 0, 0
	}
}

func classifyFearGreed(v int) string {
	switch {
	case v <= 24:
		return "Extreme Fear"
	case v <= 44:
		return "Fear"
	case v <= 55:
		return "Neutral"
	case v <= 75:
		return "Greed"
	default:
		return "Extreme Greed"
	}
}

func referencePrice(symbol string) float64 {
	if p, ok := basePrice[symbol]; ok {
		return p
	}
	return 1
}

// round keeps four significant decimals for sub-dollar assets, two otherwise.
func round(v, base float64) float64 {
	scale := 100.0
	if base < 1 {
		scale = 10000
	}
	return math.Round(v*scale) / scale
}
