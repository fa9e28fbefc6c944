package news

import "coinpulse/internal/domain"

// Reconcile folds a new snapshot into the previous one. Items with a known id
// are replaced in place, unseen ids are appended, and the result is sorted
// newest first. A replacement that lost its enrichment keeps the previous
// values. When limit is positive only the newest limit items are kept.
func Reconcile(prev, next []domain.NewsItem, limit int) []domain.NewsItem {
	out := make([]domain.NewsItem, len(prev), len(prev)+len(next))
	copy(out, prev)

	index := make(map[string]int, len(out))
	for i, item := range out {
		index[item.ID] = i
	}

	for _, item := range next {
		pos, ok := index[item.ID]
		if !ok {
			index[item.ID] = len(out)
			out = append(out, item)
			continue
		}
		old := out[pos]
		if !item.Enriched() && old.Enriched() {
			item = item.WithEnrichment(*old.Sentiment, *old.Reliability, *old.Impact)
		}
		out[pos] = item
	}

	domain.SortNewest(out)
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}
