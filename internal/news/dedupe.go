package news

import (
	"fmt"
	"strings"

	"coinpulse/internal/domain"
)

// DedupePolicy decides which copy survives when two sources report the same id.
type DedupePolicy int

const (
	// KeepLast keeps the copy from the source registered last.
	KeepLast DedupePolicy = iota
	// KeepFirst keeps the copy from the source registered first.
	KeepFirst
)

func (p DedupePolicy) String() string {
	if p == KeepFirst {
		return "first"
	}
	return "last"
}

func ParseDedupePolicy(v string) (DedupePolicy, error) {
	switch strings.ToLower(strings.TrimSpace(v)) {
	case "", "last", "keep_last":
		return KeepLast, nil
	case "first", "keep_first":
		return KeepFirst, nil
	default:
		return KeepLast, fmt.Errorf("unknown dedupe policy %q", v)
	}
}

// Dedupe removes repeated ids. The surviving copy is chosen by policy, and
// it takes the position of the first occurrence.
func Dedupe(items []domain.NewsItem, policy DedupePolicy) []domain.NewsItem {
	index := make(map[string]int, len(items))
	out := make([]domain.NewsItem, 0, len(items))
	for _, item := range items {
		pos, seen := index[item.ID]
		if !seen {
			index[item.ID] = len(out)
			out = append(out, item)
			continue
		}
		if policy == KeepLast {
			out[pos] = item
		}
	}
	return out
}
