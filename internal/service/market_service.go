package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"coinpulse/internal/cache"
	"coinpulse/internal/domain"
	"coinpulse/internal/mock"
	"coinpulse/internal/provider"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

var (
	ErrUnsupportedSymbol = errors.New("unsupported symbol")
	ErrUnsupportedRange  = errors.New("unsupported range")
)

type MarketProvider interface {
	FetchSnapshots(ctx context.Context, symbols []string) (map[string]domain.MarketSnapshot, error)
	FetchHistory(ctx context.Context, symbol string, r domain.PriceRange) ([]domain.PricePoint, error)
}

type FearGreedProvider interface {
	FetchLatest(ctx context.Context) (domain.FearGreed, error)
}

// MarketService serves market snapshots and price history. Upstream failures
// fall back to the stale cache, then to generated data; a rate-limited
// upstream switches to generated data straight away.
type MarketService struct {
	tracer    trace.Tracer
	provider  MarketProvider
	fearGreed FearGreedProvider
	caches    *cache.Set
	mock      *mock.Generator
}

func NewMarketService(
	tracer trace.Tracer,
	provider MarketProvider,
	fearGreed FearGreedProvider,
	caches *cache.Set,
	generator *mock.Generator,
) *MarketService {
	return &MarketService{
		tracer:    tracer,
		provider:  provider,
		fearGreed: fearGreed,
		caches:    caches,
		mock:      generator,
	}
}

// FetchMarketSnapshot returns the market state of one symbol.
func (s *MarketService) FetchMarketSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error) {
	snapshots, err := s.FetchMarketSnapshots(ctx, []string{symbol})
	if err != nil {
		return domain.MarketSnapshot{}, err
	}
	return snapshots[0], nil
}

// FetchMarketSnapshots returns snapshots in the order of symbols. Symbols
// without a fresh cache entry are fetched in one upstream call.
func (s *MarketService) FetchMarketSnapshots(ctx context.Context, symbols []string) ([]domain.MarketSnapshot, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.fetch-snapshots")
	defer span.End()

	normalized := make([]string, 0, len(symbols))
	for _, symbol := range symbols {
		symbol = strings.ToUpper(strings.TrimSpace(symbol))
		if !domain.IsSupportedSymbol(symbol) {
			return nil, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
		}
		normalized = append(normalized, symbol)
	}

	found := make(map[string]domain.MarketSnapshot, len(normalized))
	var missing []string
	for _, symbol := range normalized {
		if snap, ok := s.caches.Snapshot.GetFresh(symbol); ok {
			found[symbol] = snap
			continue
		}
		missing = append(missing, symbol)
	}

	if len(missing) > 0 {
		fetched, err := s.provider.FetchSnapshots(ctx, missing)
		if err != nil {
			logger.Warn("market snapshot fetch failed", zap.Strings("symbols", missing), zap.Error(err))
		}
		for _, symbol := range missing {
			if snap, ok := fetched[symbol]; ok {
				s.caches.Snapshot.Put(symbol, snap)
				found[symbol] = snap
				continue
			}
			found[symbol] = s.snapshotFallback(symbol, err)
		}
	}

	out := make([]domain.MarketSnapshot, 0, len(normalized))
	for _, symbol := range normalized {
		out = append(out, found[symbol])
	}
	return out, nil
}

func (s *MarketService) snapshotFallback(symbol string, err error) domain.MarketSnapshot {
	if !errors.Is(err, provider.ErrRateLimited) {
		if snap, ok := s.caches.Snapshot.GetStale(symbol); ok {
			return snap
		}
	}
	return s.mock.Snapshot(symbol)
}

// FetchPriceHistory returns the price series of symbol over r, oldest first.
func (s *MarketService) FetchPriceHistory(ctx context.Context, symbol string, r domain.PriceRange) ([]domain.PricePoint, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.fetch-history")
	defer span.End()

	symbol = strings.ToUpper(strings.TrimSpace(symbol))
	if !domain.IsSupportedSymbol(symbol) {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedSymbol, symbol)
	}
	if !r.IsValid() {
		return nil, fmt.Errorf("%w: %s", ErrUnsupportedRange, r)
	}

	key := cache.HistoryKey(symbol, r)
	if points, ok := s.caches.History.GetFresh(key); ok {
		return points, nil
	}

	points, err := s.provider.FetchHistory(ctx, symbol, r)
	if err == nil {
		s.caches.History.Put(key, points)
		return points, nil
	}

	logger.Warn("price history fetch failed",
		zap.String("symbol", symbol),
		zap.String("range", string(r)),
		zap.Error(err),
	)
	if !errors.Is(err, provider.ErrRateLimited) {
		if stale, ok := s.caches.History.GetStale(key); ok {
			return stale, nil
		}
	}
	return s.mock.History(symbol, r), nil
}

// FetchFearGreed returns the latest fear & greed reading.
func (s *MarketService) FetchFearGreed(ctx context.Context) (domain.FearGreed, error) {
	ctx, span := s.tracer.Start(ctx, "market-service.fetch-fear-greed")
	defer span.End()

	const key = "latest"
	if fg, ok := s.caches.FearGreed.GetFresh(key); ok {
		return fg, nil
	}
	if s.fearGreed != nil {
		fg, err := s.fearGreed.FetchLatest(ctx)
		if err == nil {
			s.caches.FearGreed.Put(key, fg)
			return fg, nil
		}
		logger.Warn("fear & greed fetch failed", zap.Error(err))
		if !errors.Is(err, provider.ErrRateLimited) {
			if stale, ok := s.caches.FearGreed.GetStale(key); ok {
				return stale, nil
			}
		}
	}
	return s.mock.FearGreed(), nil
}
