package news

import (
	"fmt"
	"sort"
	"strings"
	"time"

	"coinpulse/internal/domain"
)

type SortOrder string

const (
	SortNewest      SortOrder = "newest"
	SortOldest      SortOrder = "oldest"
	SortReliability SortOrder = "reliability"
)

func ParseSortOrder(v string) (SortOrder, error) {
	switch SortOrder(strings.ToLower(strings.TrimSpace(v))) {
	case "", SortNewest:
		return SortNewest, nil
	case SortOldest:
		return SortOldest, nil
	case SortReliability:
		return SortReliability, nil
	default:
		return SortNewest, fmt.Errorf("unknown sort order %q", v)
	}
}

// ParseFilters validates user supplied sentiment, impact and sort values,
// case-insensitively. Empty values leave the filter open.
func ParseFilters(sentiment, impact, sortOrder string) (Query, error) {
	var q Query
	if v := strings.TrimSpace(sentiment); v != "" {
		s := domain.Sentiment(strings.ToUpper(v))
		if s != domain.SentimentPositive && s != domain.SentimentNeutral && s != domain.SentimentNegative {
			return q, fmt.Errorf("unsupported sentiment: %s", v)
		}
		q.Sentiment = s
	}
	if v := strings.TrimSpace(impact); v != "" {
		imp := domain.Impact(strings.ToUpper(v[:1]) + strings.ToLower(v[1:]))
		if !imp.IsValid() {
			return q, fmt.Errorf("unsupported impact: %s", v)
		}
		q.Impact = imp
	}
	order, err := ParseSortOrder(sortOrder)
	if err != nil {
		return q, err
	}
	q.Sort = order
	return q, nil
}

// Query narrows and orders a feed for display or export. Zero fields match
// everything.
type Query struct {
	Sentiment domain.Sentiment
	Impact    domain.Impact
	Source    string
	Symbol    string
	Text      string
	Sort      SortOrder
}

// Apply returns the items matching q in the requested order. The input is
// not modified.
func Apply(items []domain.NewsItem, q Query) []domain.NewsItem {
	text := strings.ToLower(strings.TrimSpace(q.Text))
	source := strings.ToLower(strings.TrimSpace(q.Source))
	symbol := strings.ToUpper(strings.TrimSpace(q.Symbol))

	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		if q.Sentiment != "" && (item.Sentiment == nil || *item.Sentiment != q.Sentiment) {
			continue
		}
		if q.Impact != "" && (item.Impact == nil || *item.Impact != q.Impact) {
			continue
		}
		if source != "" && !strings.Contains(strings.ToLower(item.Source), source) {
			continue
		}
		if symbol != "" && !hasSymbol(item, symbol) {
			continue
		}
		if text != "" &&
			!strings.Contains(strings.ToLower(item.Title), text) &&
			!strings.Contains(strings.ToLower(item.Body), text) {
			continue
		}
		out = append(out, item)
	}

	switch q.Sort {
	case SortOldest:
		sort.SliceStable(out, func(i, j int) bool {
			if out[i].PublishedAt != out[j].PublishedAt {
				return out[i].PublishedAt < out[j].PublishedAt
			}
			return out[i].ID < out[j].ID
		})
	case SortReliability:
		domain.SortNewest(out)
		sort.SliceStable(out, func(i, j int) bool {
			return reliability(out[i]) > reliability(out[j])
		})
	default:
		domain.SortNewest(out)
	}
	return out
}

func hasSymbol(item domain.NewsItem, symbol string) bool {
	for _, s := range item.Symbols {
		if s == symbol {
			return true
		}
	}
	return false
}

func reliability(item domain.NewsItem) int {
	if item.Reliability == nil {
		return -1
	}
	return *item.Reliability
}

// Count is one label and how often it occurred.
type Count struct {
	Label string `json:"label"`
	Count int    `json:"count"`
}

type Stats struct {
	Total              int                      `json:"total"`
	Sentiment          map[domain.Sentiment]int `json:"sentiment"`
	Impact             map[domain.Impact]int    `json:"impact"`
	AverageReliability float64                  `json:"average_reliability"`
	TopSymbols         []Count                  `json:"top_symbols"`
	TopSources         []Count                  `json:"top_sources"`
	TopKeywords        []Count                  `json:"top_keywords"`
}

const topN = 10

var stopwords = map[string]struct{}{
	"the": {}, "and": {}, "for": {}, "with": {}, "from": {}, "that": {},
	"this": {}, "are": {}, "was": {}, "has": {}, "have": {}, "its": {},
	"into": {}, "over": {}, "after": {}, "amid": {}, "will": {}, "what": {},
	"how": {}, "why": {}, "new": {}, "says": {}, "as": {}, "at": {},
	"of": {}, "to": {}, "in": {}, "on": {}, "by": {}, "is": {}, "a": {},
	"an": {}, "be": {}, "or": {}, "it": {}, "up": {}, "out": {}, "but": {},
}

// ComputeStats summarizes a feed for the statistics and keyword views.
func ComputeStats(items []domain.NewsItem) Stats {
	stats := Stats{
		Total:     len(items),
		Sentiment: map[domain.Sentiment]int{},
		Impact:    map[domain.Impact]int{},
	}
	symbols := map[string]int{}
	sources := map[string]int{}
	keywords := map[string]int{}

	var relSum, relCount int
	for _, item := range items {
		if item.Sentiment != nil {
			stats.Sentiment[*item.Sentiment]++
		}
		if item.Impact != nil {
			stats.Impact[*item.Impact]++
		}
		if item.Reliability != nil {
			relSum += *item.Reliability
			relCount++
		}
		for _, s := range item.Symbols {
			symbols[s]++
		}
		if item.Source != "" {
			sources[item.Source]++
		}
		for _, word := range keywordsOf(item.Title) {
			keywords[word]++
		}
	}
	if relCount > 0 {
		stats.AverageReliability = float64(relSum) / float64(relCount)
	}
	stats.TopSymbols = top(symbols, topN)
	stats.TopSources = top(sources, topN)
	stats.TopKeywords = top(keywords, topN)
	return stats
}

func keywordsOf(title string) []string {
	fields := strings.FieldsFunc(strings.ToLower(title), func(r rune) bool {
		return !(r >= 'a' && r <= 'z' || r >= '0' && r <= '9' || r == '$')
	})
	out := fields[:0]
	seen := map[string]struct{}{}
	for _, f := range fields {
		f = strings.TrimPrefix(f, "$")
		if len(f) < 3 {
			continue
		}
		if _, skip := stopwords[f]; skip {
			continue
		}
		if _, dup := seen[f]; dup {
			continue
		}
		seen[f] = struct{}{}
		out = append(out, f)
	}
	return out
}

func top(counts map[string]int, n int) []Count {
	out := make([]Count, 0, len(counts))
	for label, c := range counts {
		out = append(out, Count{Label: label, Count: c})
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Count != out[j].Count {
			return out[i].Count > out[j].Count
		}
		return out[i].Label < out[j].Label
	})
	if len(out) > n {
		out = out[:n]
	}
	return out
}

// ExportDocument is the downloadable snapshot of a filtered feed.
type ExportDocument struct {
	ExportedAt time.Time          `json:"exportedAt"`
	Count      int                `json:"count"`
	Items      []domain.ExportRow `json:"items"`
}

func NewExportDocument(items []domain.NewsItem, at time.Time) ExportDocument {
	rows := make([]domain.ExportRow, 0, len(items))
	for _, item := range items {
		rows = append(rows, item.ExportRow())
	}
	return ExportDocument{ExportedAt: at.UTC(), Count: len(rows), Items: rows}
}
