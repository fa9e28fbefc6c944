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

	"go.opentelemetry.io/otel/trace"
)

const (
	redditBaseURL     = "https://www.reddit.com"
	RedditName        = "reddit"
	defaultRedditUA   = "coinpulse/1.0"
	defaultRedditSize = 25
)

// RedditSource reads the hot listing of one subreddit. Stickied posts are
// skipped.
type RedditSource struct {
	client    *http.Client
	baseURL   string
	subreddit string
	limit     int
	userAgent string
	tracer    trace.Tracer
	limiter   *RateLimiter
}

func NewRedditSource(subreddit string, limiter *RateLimiter, tracer trace.Tracer) *RedditSource {
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Minute)
	}
	return &RedditSource{
		client:    newHTTPClient(20 * time.Second),
		baseURL:   redditBaseURL,
		subreddit: strings.TrimPrefix(strings.TrimSpace(subreddit), "r/"),
		limit:     defaultRedditSize,
		userAgent: defaultRedditUA,
		tracer:    tracer,
		limiter:   limiter,
	}
}

func (s *RedditSource) Name() string { return RedditName + ":" + s.subreddit }

func (s *RedditSource) Fetch(ctx context.Context) []domain.NewsItem {
	ctx, span := s.tracer.Start(ctx, "reddit.fetch-hot")
	defer span.End()

	items, err := s.fetch(ctx)
	if err != nil {
		logFetchFailure(s.Name(), err)
		return []domain.NewsItem{}
	}
	return items
}

func (s *RedditSource) fetch(ctx context.Context) ([]domain.NewsItem, error) {
	if s.subreddit == "" {
		return nil, fmt.Errorf("subreddit is required")
	}
	limit := s.limit
	if limit <= 0 || limit > 100 {
		limit = defaultRedditSize
	}

	base := strings.TrimRight(s.baseURL, "/")
	u := fmt.Sprintf("%s/r/%s/hot.json?limit=%d", base, url.PathEscape(s.subreddit), limit)
	header := http.Header{}
	if s.userAgent != "" {
		header.Set("User-Agent", s.userAgent)
	}

	body, err := getBody(ctx, s.client, s.limiter, RedditName, u, header)
	if err != nil {
		return nil, fmt.Errorf("fetch hot: %w", err)
	}

	var payload struct {
		Data *struct {
			Children []struct {
				Data struct {
					ID         string  `json:"id"`
					Subreddit  string  `json:"subreddit"`
					Title      string  `json:"title"`
					SelfText   string  `json:"selftext"`
					CreatedUTC float64 `json:"created_utc"`
					Permalink  string  `json:"permalink"`
					URL        string  `json:"url"`
					Thumbnail  string  `json:"thumbnail"`
					Ups        int     `json:"ups"`
					Downs      int     `json:"downs"`
					Stickied   bool    `json:"stickied"`
				} `json:"data"`
			} `json:"children"`
		} `json:"data"`
	}
	if err := json.Unmarshal(body, &payload); err != nil {
		return nil, fmt.Errorf("decode reddit response: %w", err)
	}
	if payload.Data == nil {
		return nil, errors.New("response has no data listing")
	}

	name := s.Name()
	items := make([]domain.NewsItem, 0, len(payload.Data.Children))
	for _, row := range payload.Data.Children {
		data := row.Data
		if data.Stickied || strings.TrimSpace(data.ID) == "" || strings.TrimSpace(data.Title) == "" {
			continue
		}
		permalink := strings.TrimSpace(data.Permalink)
		itemURL := strings.TrimSpace(data.URL)
		if permalink != "" {
			itemURL = base + permalink
		}
		sub := strings.TrimSpace(data.Subreddit)
		if sub == "" {
			sub = s.subreddit
		}
		image := strings.TrimSpace(data.Thumbnail)
		if !strings.HasPrefix(image, "http") {
			image = ""
		}

		items = append(items, domain.NewsItem{
			ID:          stableID(RedditName, data.ID, itemURL, data.Title, sub),
			Title:       sanitizeText(data.Title, 300),
			Body:        sanitizeText(data.SelfText, 4000),
			URL:         itemURL,
			Source:      "Reddit/r/" + sub,
			Provider:    name,
			ImageURL:    image,
			PublishedAt: int64(data.CreatedUTC),
			Votes:       &domain.Votes{Positive: data.Ups, Negative: data.Downs},
		})
	}
	return items, nil
}
