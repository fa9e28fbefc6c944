package news

import (
	"regexp"
	"sort"
	"strings"

	"coinpulse/internal/domain"
)

var wordRx = regexp.MustCompile(`\$?[A-Za-z]{2,12}`)

// symbolAlias lists lowercase words that identify a tracked asset. Short
// tickers that are also common English words (dot, link, sol) only count in
// their $-prefixed or uppercase form.
var symbolAlias = map[string][]string{
	"BTC":   {"btc", "bitcoin", "xbt"},
	"ETH":   {"eth", "ethereum", "ether"},
	"SOL":   {"solana"},
	"XRP":   {"xrp", "ripple", "xrpl"},
	"ADA":   {"ada", "cardano"},
	"DOGE":  {"doge", "dogecoin"},
	"DOT":   {"polkadot"},
	"AVAX":  {"avax", "avalanche"},
	"LINK":  {"chainlink"},
	"MATIC": {"matic", "polygon"},
}

var aliasToSymbol = func() map[string]string {
	out := make(map[string]string)
	for symbol, aliases := range symbolAlias {
		for _, alias := range aliases {
			out[alias] = symbol
		}
	}
	return out
}()

var subredditSymbolHint = map[string]string{
	"bitcoin":  "BTC",
	"ethereum": "ETH",
	"solana":   "SOL",
	"cardano":  "ADA",
	"ripple":   "XRP",
	"xrpl":     "XRP",
	"dogecoin": "DOGE",
}

// ExtractSymbols returns the sorted tracked symbols mentioned in title or
// body. Reddit sources contribute their subreddit's asset.
func ExtractSymbols(source, title, body string) []string {
	matched := make(map[string]struct{}, 4)

	for _, raw := range wordRx.FindAllString(title+" "+body, -1) {
		ticker := strings.TrimPrefix(raw, "$")
		upper := strings.ToUpper(ticker)
		if (strings.HasPrefix(raw, "$") || ticker == upper) && domain.IsSupportedSymbol(upper) {
			matched[upper] = struct{}{}
			continue
		}
		if symbol, ok := aliasToSymbol[strings.ToLower(ticker)]; ok {
			matched[symbol] = struct{}{}
		}
	}

	if sub, ok := strings.CutPrefix(source, "Reddit/r/"); ok {
		if symbol := subredditSymbolHint[strings.ToLower(sub)]; symbol != "" {
			matched[symbol] = struct{}{}
		}
	}

	if len(matched) == 0 {
		return nil
	}
	out := make([]string, 0, len(matched))
	for symbol := range matched {
		out = append(out, symbol)
	}
	sort.Strings(out)
	return out
}

// tagSymbols merges text-derived symbols into any the provider already set.
func tagSymbols(items []domain.NewsItem) {
	for i := range items {
		found := ExtractSymbols(items[i].Source, items[i].Title, items[i].Body)
		if len(items[i].Symbols) == 0 {
			items[i].Symbols = found
			continue
		}
		set := make(map[string]struct{}, len(items[i].Symbols)+len(found))
		for _, s := range items[i].Symbols {
			set[s] = struct{}{}
		}
		for _, s := range found {
			set[s] = struct{}{}
		}
		merged := make([]string, 0, len(set))
		for s := range set {
			merged = append(merged, s)
		}
		sort.Strings(merged)
		items[i].Symbols = merged
	}
}
