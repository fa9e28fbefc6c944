package domain

import (
	"sort"
	"strings"
)

// Sentiment is the classifier label attached to a news item.
type Sentiment string

const (
	SentimentPositive Sentiment = "POSITIVE"
	SentimentNeutral  Sentiment = "NEUTRAL"
	SentimentNegative Sentiment = "NEGATIVE"
)

// ParseSentiment maps free-form classifier output to a Sentiment. Anything
// outside the three labels is NEUTRAL.
func ParseSentiment(raw string) Sentiment {
	s := strings.ToUpper(strings.TrimSpace(raw))
	s = strings.Trim(s, ".!\"'` ")
	switch Sentiment(s) {
	case SentimentPositive, SentimentNegative, SentimentNeutral:
		return Sentiment(s)
	default:
		return SentimentNeutral
	}
}

func (s Sentiment) IsNeutral() bool {
	return s != SentimentPositive && s != SentimentNegative
}

// Impact is the heuristic market-impact bucket of a news item.
type Impact string

const (
	ImpactHigh   Impact = "High"
	ImpactMedium Impact = "Medium"
	ImpactLow    Impact = "Low"
)

func (i Impact) IsValid() bool {
	return i == ImpactHigh || i == ImpactMedium || i == ImpactLow
}

// Votes are community counts reported by the source, never derived.
type Votes struct {
	Positive int `json:"positive"`
	Negative int `json:"negative"`
}

// NewsItem is the canonical feed unit. Enrichment fields stay nil until the
// enricher has run.
type NewsItem struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Body        string     `json:"body"`
	URL         string     `json:"url"`
	Source      string     `json:"source"`
	Provider    string     `json:"provider"`
	ImageURL    string     `json:"imageUrl,omitempty"`
	PublishedAt int64      `json:"publishedAt"`
	Symbols     []string   `json:"symbols,omitempty"`
	Votes       *Votes     `json:"votes,omitempty"`
	Sentiment   *Sentiment `json:"sentiment,omitempty"`
	Reliability *int       `json:"reliability,omitempty"`
	Impact      *Impact    `json:"impact,omitempty"`
}

// Enriched reports whether every derived field is populated.
func (n NewsItem) Enriched() bool {
	return n.Sentiment != nil && n.Reliability != nil && n.Impact != nil
}

// WithEnrichment returns a copy of n carrying the given derived values.
func (n NewsItem) WithEnrichment(sentiment Sentiment, reliability int, impact Impact) NewsItem {
	n.Sentiment = &sentiment
	n.Reliability = &reliability
	n.Impact = &impact
	return n
}

// SortNewest orders items by PublishedAt descending. Ties fall back to id so
// the order does not depend on which provider answered first.
func SortNewest(items []NewsItem) {
	sort.SliceStable(items, func(i, j int) bool {
		if items[i].PublishedAt != items[j].PublishedAt {
			return items[i].PublishedAt > items[j].PublishedAt
		}
		return items[i].ID < items[j].ID
	})
}

// ExportRow is one entry of the downloadable feed snapshot.
type ExportRow struct {
	Title       string    `json:"title"`
	Source      string    `json:"source"`
	PublishedAt int64     `json:"publishedAt"`
	Sentiment   Sentiment `json:"sentiment"`
	Reliability int       `json:"reliability"`
	Impact      Impact    `json:"impact"`
}

func (n NewsItem) ExportRow() ExportRow {
	row := ExportRow{
		Title:       n.Title,
		Source:      n.Source,
		PublishedAt: n.PublishedAt,
		Sentiment:   SentimentNeutral,
	}
	if n.Sentiment != nil {
		row.Sentiment = *n.Sentiment
	}
	if n.Reliability != nil {
		row.Reliability = *n.Reliability
	}
	if n.Impact != nil {
		row.Impact = *n.Impact
	}
	return row
}
