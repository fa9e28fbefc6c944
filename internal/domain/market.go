package domain

// MarketSnapshot is the latest market state for an asset.
type MarketSnapshot struct {
	Symbol       string  `json:"symbol"`
	PriceUSD     float64 `json:"price_usd"`
	Change24hPct float64 `json:"change_24h_pct"`
	Volume24h    float64 `json:"volume_24h"`
	MarketCap    float64 `json:"market_cap"`
	High24h      float64 `json:"high_24h"`
	Low24h       float64 `json:"low_24h"`
	LastUpdated  int64   `json:"last_updated_unix"`
	Mock         bool    `json:"mock,omitempty"`
}

// PricePoint is one sample of a price history series.
type PricePoint struct {
	Timestamp int64   `json:"timestamp_ms"`
	Price     float64 `json:"price"`
}

// PriceRange selects how far back a price history reaches.
type PriceRange string

const (
	Range1D  PriceRange = "1d"
	Range7D  PriceRange = "7d"
	Range30D PriceRange = "30d"
	Range90D PriceRange = "90d"
	Range1Y  PriceRange = "1y"
)

// SupportedRanges lists the ranges accepted by the history endpoint.
var SupportedRanges = []PriceRange{Range1D, Range7D, Range30D, Range90D, Range1Y}

// Days returns the CoinGecko market_chart "days" parameter for the range.
func (r PriceRange) Days() int {
	switch r {
	case Range1D:
		return 1
	case Range7D:
		return 7
	case Range30D:
		return 30
	case Range90D:
		return 90
	case Range1Y:
		return 365
	default:
		return 0
	}
}

func (r PriceRange) IsValid() bool {
	return r.Days() > 0
}

// FearGreed is the alternative.me crypto fear & greed reading.
type FearGreed struct {
	Value          int    `json:"value"`
	Classification string `json:"classification"`
	Timestamp      int64  `json:"timestamp"`
	Mock           bool   `json:"mock,omitempty"`
}

// CoinGeckoID maps internal symbols to CoinGecko API identifiers.
var CoinGeckoID = map[string]string{
	"BTC":   "bitcoin",
	"ETH":   "ethereum",
	"SOL":   "solana",
	"XRP":   "ripple",
	"ADA":   "cardano",
	"DOGE":  "dogecoin",
	"DOT":   "polkadot",
	"AVAX":  "avalanche-2",
	"LINK":  "chainlink",
	"MATIC": "matic-network",
}

// CoinGeckoIDToSymbol is the reverse mapping.
var CoinGeckoIDToSymbol map[string]string

func init() {
	CoinGeckoIDToSymbol = make(map[string]string, len(CoinGeckoID))
	for sym, id := range CoinGeckoID {
		CoinGeckoIDToSymbol[id] = sym
	}
}

// SupportedSymbols lists all tracked crypto symbols.
var SupportedSymbols = []string{
	"BTC", "ETH", "SOL", "XRP", "ADA",
	"DOGE", "DOT", "AVAX", "LINK", "MATIC",
}

func IsSupportedSymbol(symbol string) bool {
	_, ok := CoinGeckoID[symbol]
	return ok
}
