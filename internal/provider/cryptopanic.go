package provider

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

const (
	cryptoPanicBaseURL = "https://cryptopanic.com"
	CryptoPanicName    = "cryptopanic"
)

// CryptoPanicSource reads CryptoPanic's curated "important" posts. Its items
// carry community votes.
type CryptoPanicSource struct {
	client  *http.Client
	baseURL string
	token   string
	tracer  trace.Tracer
	limiter *RateLimiter
}

func NewCryptoPanicSource(token string, limiter *RateLimiter, tracer trace.Tracer) *CryptoPanicSource {
	if limiter == nil {
		limiter = NewRateLimiter(5, time.Minute)
	}
	return &CryptoPanicSource{
		client:  newHTTPClient(15 * time.Second),
		baseURL: cryptoPanicBaseURL,
		token:   strings.TrimSpace(token),
		tracer:  tracer,
		limiter: limiter,
	}
}

func (s *CryptoPanicSource) Name() string { return CryptoPanicName }

func (s *CryptoPanicSource) Fetch(ctx context.Context) []domain.NewsItem {
	ctx, span := s.tracer.Start(ctx, "cryptopanic.fetch-posts")
	defer span.End()

	if s.token == "" {
		logger.Debug("cryptopanic token not configured, skipping", zap.String("provider", CryptoPanicName))
		return []domain.NewsItem{}
	}

	items, err := s.fetch(ctx)
	if err != nil {
		logFetchFailure(CryptoPanicName, err)
		return []domain.NewsItem{}
	}
	return items
}

func (s *CryptoPanicSource) fetch(ctx context.Context) ([]domain.NewsItem, error) {
	q := url.Values{}
	q.Set("auth_token", s.token)
	q.Set("filter", "important")
	q.Set("public", "true")
	u := strings.TrimRight(s.baseURL, "/") + "/api/v1/posts/?" + q.Encode()

	body, err := getBody(ctx, s.client, s.limiter, CryptoPanicName, u, nil)
	if err != nil {
		// the token is part of the url, keep it out of the logs
		return nil, fmt.Errorf("fetch posts: %w", redactURLError(err))
	}

	var payload struct {
		Results *[]struct {
			ID          json.RawMessage `json:"id"`
			Title       string          `json:"title"`
			Description string          `json:"description"`
			URL         string          `json:"url"`
			OriginalURL string          `json:"original_url"`
			Image       string          `json:"image"`
			PublishedAt string          `json:"published_at"`
			Source      struct {
				Title  string `json:"title"`
				Domain string `json:"domain"`
			} `json:"source"`
			Votes struct {
				Positive  int `json:"positive"`
				Negative  int `json:"negative"`
				Important int `json:"important"`
				Liked     int `json:"liked"`
				Disliked  int `json:"disliked"`
			} `json:"votes"`
			Currencies []struct {
				Code string `json:"code"`
			} `json:"currencies"`
		} `json:"results"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode posts: %w", err)
	}
	if payload.Results == nil {
		return nil, errors.New("response has no results array")
	}

	rows := *payload.Results
	items := make([]domain.NewsItem, 0, len(rows))
	for _, row := range rows {
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}
		outlet := sanitizeText(row.Source.Title, 80)
		if outlet == "" {
			outlet = sanitizeText(row.Source.Domain, 80)
		}
		source := "CryptoPanic"
		if outlet != "" {
			source += "/" + outlet
		}
		link := strings.TrimSpace(row.OriginalURL)
		if link == "" {
			link = strings.TrimSpace(row.URL)
		}

		var symbols []string
		for _, c := range row.Currencies {
			code := strings.ToUpper(strings.TrimSpace(c.Code))
			if domain.IsSupportedSymbol(code) {
				symbols = append(symbols, code)
			}
		}

		items = append(items, domain.NewsItem{
			ID:          stableID(CryptoPanicName, rawID(row.ID), link, title, source),
			Title:       title,
			Body:        sanitizeText(htmlStrip(row.Description), 4000),
			URL:         link,
			Source:      source,
			Provider:    CryptoPanicName,
			ImageURL:    strings.TrimSpace(row.Image),
			PublishedAt: parseTimestamp(row.PublishedAt),
			Symbols:     symbols,
			Votes: &domain.Votes{
				Positive: row.Votes.Positive + row.Votes.Liked,
				Negative: row.Votes.Negative + row.Votes.Disliked,
			},
		})
	}
	return items, nil
}

func redactURLError(err error) error {
	var urlErr *url.Error
	if errors.As(err, &urlErr) {
		return fmt.Errorf("%s request: %w", urlErr.Op, urlErr.Err)
	}
	return err
}

// parseTimestamp reads RFC 3339 timestamps as epoch seconds, defaulting to now.
func parseTimestamp(v string) int64 {
	v = strings.TrimSpace(v)
	if v != "" {
		for _, layout := range []string{time.RFC3339Nano, time.RFC3339, "2006-01-02T15:04:05"} {
			if t, err := time.Parse(layout, v); err == nil {
				return t.Unix()
			}
		}
	}
	return time.Now().Unix()
}
