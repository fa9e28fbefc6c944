package provider

import (
	"bytes"
	"context"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"

	"coinpulse/internal/domain"

	"github.com/mmcdole/gofeed"
	"go.opentelemetry.io/otel/trace"
)

const (
	RSSName         = "rss"
	defaultRSSItems = 40
)

// RSSSource reads one RSS or Atom feed.
type RSSSource struct {
	client   *http.Client
	feedURL  string
	maxItems int
	parser   *gofeed.Parser
	tracer   trace.Tracer
	limiter  *RateLimiter
}

func NewRSSSource(feedURL string, limiter *RateLimiter, tracer trace.Tracer) *RSSSource {
	if limiter == nil {
		limiter = NewRateLimiter(10, time.Minute)
	}
	return &RSSSource{
		client:   newHTTPClient(20 * time.Second),
		feedURL:  strings.TrimSpace(feedURL),
		maxItems: defaultRSSItems,
		parser:   gofeed.NewParser(),
		tracer:   tracer,
		limiter:  limiter,
	}
}

// Name includes the feed host so several feeds can be registered side by side.
func (s *RSSSource) Name() string {
	if u, err := url.Parse(s.feedURL); err == nil && u.Host != "" {
		return RSSName + ":" + u.Host
	}
	return RSSName
}

func (s *RSSSource) Fetch(ctx context.Context) []domain.NewsItem {
	ctx, span := s.tracer.Start(ctx, "rss.fetch-feed")
	defer span.End()

	items, err := s.fetch(ctx)
	if err != nil {
		logFetchFailure(s.Name(), err)
		return []domain.NewsItem{}
	}
	return items
}

func (s *RSSSource) fetch(ctx context.Context) ([]domain.NewsItem, error) {
	if s.feedURL == "" {
		return nil, fmt.Errorf("feed url is required")
	}

	header := http.Header{}
	header.Set("Accept", "application/rss+xml, application/atom+xml, application/xml, text/xml")
	body, err := getBody(ctx, s.client, s.limiter, RSSName, s.feedURL, header)
	if err != nil {
		return nil, fmt.Errorf("fetch feed: %w", err)
	}

	feed, err := s.parser.Parse(bytes.NewReader(body))
	if err != nil {
		return nil, fmt.Errorf("decode feed payload: %w", err)
	}

	channel := sanitizeText(feed.Title, 80)
	source := "RSS"
	if channel != "" {
		source += "/" + channel
	}

	name := s.Name()
	items := make([]domain.NewsItem, 0, min(s.maxItems, len(feed.Items)))
	for i, row := range feed.Items {
		if i >= s.maxItems {
			break
		}
		title := sanitizeText(row.Title, 300)
		if title == "" {
			continue
		}

		publishedAt := time.Now().Unix()
		if row.PublishedParsed != nil {
			publishedAt = row.PublishedParsed.Unix()
		} else if row.UpdatedParsed != nil {
			publishedAt = row.UpdatedParsed.Unix()
		}

		text := row.Description
		if strings.TrimSpace(text) == "" {
			text = row.Content
		}

		image := ""
		if row.Image != nil {
			image = strings.TrimSpace(row.Image.URL)
		}

		// GUIDs are only unique per feed, so they are not used as ids.
		link := strings.TrimSpace(row.Link)
		items = append(items, domain.NewsItem{
			ID:          stableID(RSSName, "", link, title, source),
			Title:       title,
			Body:        sanitizeText(htmlStrip(text), 4000),
			URL:         link,
			Source:      source,
			Provider:    name,
			ImageURL:    image,
			PublishedAt: publishedAt,
		})
	}
	return items, nil
}
