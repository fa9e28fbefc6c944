package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	cryptoCompareBaseURL = "https://min-api.cryptocompare.com"
	CryptoCompareName    = "cryptocompare"
)

// CryptoCompareSource reads the CryptoCompare English news list.
type CryptoCompareSource struct {
	client  *http.Client
	baseURL string
	apiKey  string
	tracer  trace.Tracer
	limiter *RateLimiter
}

// NewCryptoCompareSource creates the adapter. The free tier answers without a
// key at a lower quota, so an empty key is allowed.
func NewCryptoCompareSource(apiKey string, limiter *RateLimiter, tracer trace.Tracer) *CryptoCompareSource {
	if limiter == nil {
		limiter = NewRateLimiter(30, time.Minute)
	}
	return &CryptoCompareSource{
		client:  newHTTPClient(15 * time.Second),
		baseURL: cryptoCompareBaseURL,
		apiKey:  strings.TrimSpace(apiKey),
		tracer:  tracer,
		limiter: limiter,
	}
}

func (s *CryptoCompareSource) Name() string { return CryptoCompareName }

// Fetch never fails; upstream problems are logged and yield no items.
func (s *CryptoCompareSource) Fetch(ctx context.Context) []domain.NewsItem {
	ctx, span := s.tracer.Start(ctx, "cryptocompare.fetch-news")
	defer span.End()

	items, err := s.fetch(ctx)
	if err != nil {
		logFetchFailure(CryptoCompareName, err)
		return []domain.NewsItem{}
	}
	return items
}

func (s *CryptoCompareSource) fetch(ctx context.Context) ([]domain.NewsItem, error) {
	url := strings.TrimRight(s.baseURL, "/") + "/data/v2/news/?lang=EN"
	header := http.Header{}
	if s.apiKey != "" {
		header.Set("authorization", "Apikey "+s.apiKey)
	}

	body, err := getBody(ctx, s.client, s.limiter, CryptoCompareName, url, header)
	if err != nil {
		return nil, fmt.Errorf("fetch news: %w", err)
	}

	var payload struct {
		Data *[]struct {
			ID          json.RawMessage `json:"id"`
			PublishedOn int64           `json:"published_on"`
			ImageURL    string          `json:"imageurl"`
			Title       string          `json:"title"`
			URL         string          `json:"url"`
			Body        string          `json:"body"`
			Source      string          `json:"source"`
			SourceInfo  struct {
				Name string `json:"name"`
			} `json:"source_info"`
			Upvotes   any `json:"upvotes"`
			Downvotes any `json:"downvotes"`
		} `json:"Data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode news: %w", err)
	}
	if payload.Data == nil {
		return nil, errors.New("response has no Data array")
	}

	rows := *payload.Data
	items := make([]domain.NewsItem, 0, len(rows))
	for _, row := range rows {
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}
		outlet := sanitizeText(row.SourceInfo.Name, 80)
		if outlet == "" {
			outlet = sanitizeText(row.Source, 80)
		}
		source := "CryptoCompare"
		if outlet != "" {
			source += "/" + outlet
		}
		publishedAt := row.PublishedOn
		if publishedAt <= 0 {
			publishedAt = time.Now().Unix()
		}

		item := domain.NewsItem{
			ID:          stableID(CryptoCompareName, rawID(row.ID), row.URL, title, source),
			Title:       title,
			Body:        sanitizeText(row.Body, 4000),
			URL:         strings.TrimSpace(row.URL),
			Source:      source,
			Provider:    CryptoCompareName,
			ImageURL:    strings.TrimSpace(row.ImageURL),
			PublishedAt: publishedAt,
		}
		up, down := asInt(row.Upvotes), asInt(row.Downvotes)
		if up > 0 || down > 0 {
			item.Votes = &domain.Votes{Positive: up, Negative: down}
		}
		items = append(items, item)
	}
	return items, nil
}

func logFetchFailure(provider string, err error) {
	fields := []zap.Field{zap.String("provider", provider), zap.Error(err)}
	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		fields = append(fields, zap.Int("status", statusErr.StatusCode))
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		logger.Debug("news source fetch abandoned", fields...)
		return
	}
	logger.Warn("news source fetch failed", fields...)
}
