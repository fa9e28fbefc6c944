package service

import (
	"time"

	"coinpulse/internal/cache"
	"coinpulse/internal/config"
	"coinpulse/internal/domain"
	"coinpulse/internal/mock"
	"coinpulse/internal/news"
	"coinpulse/internal/provider"
	"coinpulse/internal/sentiment"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const mockNewsCount = 20

// Pipeline owns the caches, limiters and services of one running instance.
// Nothing in it is global, so tests and commands can build their own.
type Pipeline struct {
	Caches     *cache.Set
	Aggregator *news.Aggregator
	Classifier *sentiment.Classifier
	Enricher   *sentiment.Enricher
	Mock       *mock.Generator
	Feed       *FeedService
	Market     *MarketService
}

// NewPipeline wires every component from cfg. mirror may be nil.
func NewPipeline(cfg *config.Config, tracer trace.Tracer, mirror cache.Mirror) *Pipeline {
	var cacheOpts []cache.Option
	if mirror != nil {
		cacheOpts = append(cacheOpts, cache.WithMirror(mirror))
	}
	caches := cache.NewSet(cacheOpts...)
	generator := mock.New(nil)

	sources := buildSources(cfg, tracer)

	policy, err := news.ParseDedupePolicy(cfg.DedupePolicy)
	if err != nil {
		logger.Warn("unknown dedupe policy, keeping last", zap.String("policy", cfg.DedupePolicy))
	}
	aggOpts := []news.Option{
		news.WithTimeout(cfg.AggregateTimeout),
		news.WithRetry(cfg.RetryBaseDelay, cfg.MaxRetries),
		news.WithDedupePolicy(policy),
	}
	if cfg.NewsMockFallback {
		aggOpts = append(aggOpts, news.WithFallback(func() []domain.NewsItem {
			return generator.News(mockNewsCount)
		}))
	}
	aggregator := news.NewAggregator(caches.News, sources, tracer, aggOpts...)

	classifier := sentiment.NewClassifier(
		sentiment.ClassifierConfig{
			APIKey:  cfg.OpenAIAPIKey,
			Model:   cfg.ClassifierModel,
			BaseURL: cfg.ClassifierBaseURL,
		},
		caches.Sentiment,
		perMinute(cfg.ClassifierRPM),
		tracer,
	)
	enricher := sentiment.NewEnricher(classifier, sentiment.NewHeuristicScorer(cfg.TrustedSource, nil), tracer)

	market := NewMarketService(
		tracer,
		provider.NewCoinGeckoProvider(cfg.CoinGeckoAPIKey, perMinute(cfg.CoinGeckoRPM), tracer),
		provider.NewFearGreedProvider(perMinute(cfg.FearGreedRPM), tracer),
		caches,
		generator,
	)

	logger.Info("pipeline ready",
		zap.Strings("sources", aggregator.Sources()),
		zap.Bool("shared_cache", mirror != nil),
	)

	return &Pipeline{
		Caches:     caches,
		Aggregator: aggregator,
		Classifier: classifier,
		Enricher:   enricher,
		Mock:       generator,
		Feed:       NewFeedService(tracer, aggregator, enricher),
		Market:     market,
	}
}

func buildSources(cfg *config.Config, tracer trace.Tracer) []news.Source {
	sources := []news.Source{
		provider.NewCryptoCompareSource(cfg.CryptoCompareAPIKey, perMinute(cfg.CryptoCompareRPM), tracer),
		provider.NewCryptoPanicSource(cfg.CryptoPanicToken, perMinute(cfg.CryptoPanicRPM), tracer),
	}

	// feeds and subreddits each share one quota
	rssLimiter := perMinute(cfg.RSSRPM)
	for _, feed := range cfg.RSSFeeds {
		sources = append(sources, provider.NewRSSSource(feed, rssLimiter, tracer))
	}
	redditLimiter := perMinute(cfg.RedditRPM)
	for _, sub := range cfg.RedditSubs {
		sources = append(sources, provider.NewRedditSource(sub, redditLimiter, tracer))
	}
	return sources
}

func perMinute(n int) *provider.RateLimiter {
	return provider.NewRateLimiter(n, time.Minute)
}
