package handler

import (
	"context"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/internal/job"
	"coinpulse/internal/sentiment"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"
)

type FeedReader interface {
	Snapshot() job.FeedSnapshot
	Refresh()
}

type MarketReader interface {
	FetchMarketSnapshot(ctx context.Context, symbol string) (domain.MarketSnapshot, error)
	FetchPriceHistory(ctx context.Context, symbol string, r domain.PriceRange) ([]domain.PricePoint, error)
	FetchFearGreed(ctx context.Context) (domain.FearGreed, error)
}

type SentimentClassifier interface {
	ClassifyDetailed(ctx context.Context, text string) sentiment.Classification
}

type Handler struct {
	tracer     trace.Tracer
	feed       FeedReader
	market     MarketReader
	classifier SentimentClassifier
	apiKey     string
	now        func() time.Time
}

// New builds the API handler. An empty apiKey leaves the write endpoints
// open.
func New(tracer trace.Tracer, feed FeedReader, market MarketReader, classifier SentimentClassifier, apiKey string) *Handler {
	return &Handler{
		tracer:     tracer,
		feed:       feed,
		market:     market,
		classifier: classifier,
		apiKey:     apiKey,
		now:        time.Now,
	}
}

func (h *Handler) RegisterRoutes(r *gin.Engine) {
	r.GET("/health", h.Health)

	api := r.Group("/api")
	api.GET("/feed", h.GetFeed)
	api.GET("/feed/export", h.ExportFeed)
	api.GET("/feed/stats", h.GetFeedStats)
	api.GET("/market/fear-greed", h.GetFearGreed)
	api.GET("/market/:symbol", h.GetMarketSnapshot)
	api.GET("/market/:symbol/history", h.GetPriceHistory)

	protected := api.Group("", APIKeyAuth(h.apiKey))
	protected.POST("/feed/refresh", h.RefreshFeed)
	protected.POST("/classify", h.Classify)
}
