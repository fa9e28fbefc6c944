package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"sort"
	"strings"
	"time"

	"coinpulse/internal/domain"

	"go.opentelemetry.io/otel/trace"
)

const (
	coingeckoBaseURL = "https://api.coingecko.com/api/v3"
	CoinGeckoName    = "coingecko"
)

// CoinGeckoProvider fetches market snapshots and price history from CoinGecko.
type CoinGeckoProvider struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewCoinGeckoProvider creates the provider. A nil limiter falls back to the
// public tier quota of 10 calls per minute.
func NewCoinGeckoProvider(apiKey string, limiter *RateLimiter, tracer trace.Tracer) *CoinGeckoProvider {
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Minute)
	}
	return &CoinGeckoProvider{
		client:  newHTTPClient(30 * time.Second),
		baseURL: coingeckoBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		tracer:  tracer,
		limiter: limiter,
	}
}

// FetchSnapshots fetches the market state of several symbols in one call.
// Unsupported symbols are ignored.
func (p *CoinGeckoProvider) FetchSnapshots(ctx context.Context, symbols []string) (map[string]domain.MarketSnapshot, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-markets")
	defer span.End()

	ids := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		if id, ok := domain.CoinGeckoID[strings.ToUpper(symbol)]; ok {
			ids = append(ids, id)
		}
	}
	if len(ids) == 0 {
		return nil, fmt.Errorf("no supported symbols in %v", symbols)
	}

	url := fmt.Sprintf("%s/coins/markets?vs_currency=usd&ids=%s&price_change_percentage=24h",
		strings.TrimRight(p.baseURL, "/"), strings.Join(ids, ","))

	body, err := getBody(ctx, p.client, p.limiter, CoinGeckoName, url, p.header())
	if err != nil {
		return nil, fmt.Errorf("fetch markets: %w", err)
	}

	var rows []struct {
		ID           string  `json:"id"`
		CurrentPrice float64 `json:"current_price"`
		MarketCap    float64 `json:"market_cap"`
		TotalVolume  float64 `json:"total_volume"`
		High24h      float64 `json:"high_24h"`
		Low24h       float64 `json:"low_24h"`
		Change24hPct float64 `json:"price_change_percentage_24h"`
		LastUpdated  string  `json:"last_updated"`
	}
	if err := json.Unmarshal(body, &rows); err != nil {
		return nil, fmt.Errorf("parse markets: %w", err)
	}

	result := make(map[string]domain.MarketSnapshot, len(rows))
	for _, row := range rows {
		symbol, ok := domain.CoinGeckoIDToSymbol[row.ID]
		if !ok {
			continue
		}
		result[symbol] = domain.MarketSnapshot{
			Symbol:       symbol,
			PriceUSD:     row.CurrentPrice,
			Change24hPct: row.Change24hPct,
			Volume24h:    row.TotalVolume,
			MarketCap:    row.MarketCap,
			High24h:      row.High24h,
			Low24h:       row.Low24h,
			LastUpdated:  parseTimestamp(row.LastUpdated),
		}
	}
	return result, nil
}

// FetchSnapshot fetches the market state of one symbol.
func (p *CoinGeckoProvider) FetchSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	symbol = strings.ToUpper(symbol)
	if !domain.IsSupportedSymbol(symbol) {
		return domain.MarketSnapshot{}, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	snapshots, err := p.FetchSnapshots(ctx, []string{symbol})
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	snap, ok := snapshots[symbol]
	if !ok {
		return domain.MarketSnapshot{}, fmt.Errorf("no market data for %s", symbol)
	}
	return snap, nil
}

// FetchHistory fetches the market_chart price series of symbol over r.
func (p *CoinGeckoProvider) FetchHistory(ctx context.Context, symbol string, r domain.PriceRange) ([]domain.PricePoint, error) {
	ctx, span := p.tracer.Start(ctx, "coingecko.fetch-market-chart")
	defer span.End()

	cgID, ok := domain.CoinGeckoID[strings.ToUpper(symbol)]
	if !ok {
		return nil, fmt.Errorf("unsupported symbol: %s", symbol)
	}
	if !r.IsValid() {
		return nil, fmt.Errorf("unsupported range: %s", r)
	}

	url := fmt.Sprintf("%s/coins/%s/market_chart?vs_currency=usd&days=%d",
		strings.TrimRight(p.baseURL, "/"), cgID, r.Days())

	body, err := getBody(ctx, p.client, p.limiter, CoinGeckoName, url, p.header())
	if err != nil {
		return nil, fmt.Errorf("fetch market chart for %s: %w", symbol, err)
	}

	var raw struct {
		Prices [][]float64 `json:"prices"`
	}
	if err := json.Unmarshal(body, &raw); err != nil {
		return nil, fmt.Errorf("parse market chart for %s: %w", symbol, err)
	}

	points := make([]domain.PricePoint, 0, len(raw.Prices))
	for _, pt := range raw.Prices {
		if len(pt) < 2 {
			continue
		}
		points = append(points, domain.PricePoint{Timestamp: int64(pt[0]), Price: pt[1]})
	}
	sort.Slice(points, func(i, j int) bool { return points[i].Timestamp < points[j].Timestamp })
	return points, nil
}

func (p *CoinGeckoProvider) header() http.Header {
	header := http.Header{}
	if p.apiKey != "" {
		header.Set("x-cg-demo-api-key", p.apiKey)
	}
	return header
}
