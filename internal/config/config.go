package config

import (
	"fmt"
	"strings"
	"time"

	"coinpulse/internal/domain"
	"coinpulse/pkg/logger"

	"github.com/kelseyhightower/envconfig"
)

type Config struct {
	// upstream credentials; a missing one only degrades that upstream
	CryptoCompareAPIKey string `envconfig:"CRYPTOCOMPARE_API_KEY"`
	CryptoPanicToken    string `envconfig:"CRYPTOPANIC_TOKEN"`
	CoinGeckoAPIKey     string `envconfig:"COINGECKO_API_KEY"`

	OpenAIAPIKey      string `envconfig:"OPENAI_API_KEY"`
	ClassifierModel   string `envconfig:"CLASSIFIER_MODEL" default:"gpt-4o-mini"`
	ClassifierBaseURL string `envconfig:"CLASSIFIER_BASE_URL"`

	RSSFeeds   []string `envconfig:"RSS_FEEDS" default:"https://www.coindesk.com/arc/outboundfeeds/rss/,https://cointelegraph.com/rss"`
	RedditSubs []string `envconfig:"REDDIT_SUBS" default:"CryptoCurrency,Bitcoin"`

	NewsRefresh      time.Duration `envconfig:"NEWS_REFRESH" default:"60s"`
	MarketRefresh    time.Duration `envconfig:"MARKET_REFRESH" default:"30s"`
	AggregateTimeout time.Duration `envconfig:"AGGREGATE_TIMEOUT" default:"10s"`
	RetryBaseDelay   time.Duration `envconfig:"RETRY_BASE_DELAY" default:"1s"`
	MaxRetries       int           `envconfig:"MAX_RETRIES" default:"3"`

	DedupePolicy     string   `envconfig:"DEDUPE_POLICY" default:"last"`
	TrustedSource    string   `envconfig:"TRUSTED_SOURCE" default:"CryptoPanic"`
	TrackedSymbols   []string `envconfig:"TRACKED_SYMBOLS" default:"BTC,ETH,SOL,XRP,ADA"`
	FeedLimit        int      `envconfig:"FEED_LIMIT" default:"200"`
	NewsMockFallback bool     `envconfig:"NEWS_MOCK_FALLBACK" default:"false"`

	// calls per minute
	CryptoCompareRPM int `envconfig:"CRYPTOCOMPARE_RPM" default:"30"`
	CryptoPanicRPM   int `envconfig:"CRYPTOPANIC_RPM" default:"5"`
	CoinGeckoRPM     int `envconfig:"COINGECKO_RPM" default:"10"`
	ClassifierRPM    int `envconfig:"CLASSIFIER_RPM" default:"60"`
	RSSRPM           int `envconfig:"RSS_RPM" default:"30"`
	RedditRPM        int `envconfig:"REDDIT_RPM" default:"10"`
	FearGreedRPM     int `envconfig:"FEAR_GREED_RPM" default:"30"`

	RedisURL string `envconfig:"REDIS_URL"`
	HTTPPort int    `envconfig:"HTTP_PORT" default:"8080"`
	APIKey   string `envconfig:"API_KEY"`
	LogLevel string `envconfig:"LOG_LEVEL" default:"info"`
	LogFile  string `envconfig:"LOG_FILE"`

	TelegramBotToken string `envconfig:"TELEGRAM_BOT_TOKEN"`
	TelegramChatID   int64  `envconfig:"TELEGRAM_CHAT_ID"`
}

// Load reads the environment. Call godotenv first if a .env file should be
// honoured.
func Load() (*Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return nil, fmt.Errorf("failed to process config: %w", err)
	}
	cfg.normalize()
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	return &cfg, nil
}

func (c *Config) normalize() {
	c.RSSFeeds = cleanList(c.RSSFeeds, false)
	c.RedditSubs = cleanList(c.RedditSubs, false)
	c.TrackedSymbols = cleanList(c.TrackedSymbols, true)
	c.DedupePolicy = strings.ToLower(strings.TrimSpace(c.DedupePolicy))
}

func (c *Config) Validate() error {
	if c.NewsRefresh <= 0 || c.MarketRefresh <= 0 {
		return fmt.Errorf("refresh intervals must be positive")
	}
	if c.AggregateTimeout <= 0 {
		return fmt.Errorf("aggregate timeout must be positive")
	}
	if c.RetryBaseDelay <= 0 || c.MaxRetries < 0 {
		return fmt.Errorf("retry settings must be positive")
	}
	switch c.DedupePolicy {
	case "first", "last":
	default:
		return fmt.Errorf("dedupe policy must be first or last, got %q", c.DedupePolicy)
	}
	for _, symbol := range c.TrackedSymbols {
		if !domain.IsSupportedSymbol(symbol) {
			return fmt.Errorf("tracked symbol %s is not supported", symbol)
		}
	}
	for name, rpm := range map[string]int{
		"CRYPTOCOMPARE_RPM": c.CryptoCompareRPM,
		"CRYPTOPANIC_RPM":   c.CryptoPanicRPM,
		"COINGECKO_RPM":     c.CoinGeckoRPM,
		"CLASSIFIER_RPM":    c.ClassifierRPM,
		"RSS_RPM":           c.RSSRPM,
		"REDDIT_RPM":        c.RedditRPM,
		"FEAR_GREED_RPM":    c.FearGreedRPM,
	} {
		if rpm <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.HTTPPort <= 0 || c.HTTPPort > 65535 {
		return fmt.Errorf("http port %d out of range", c.HTTPPort)
	}
	return nil
}

// WarnMissing logs every optional credential that is not set.
func (c *Config) WarnMissing() {
	if c.CryptoCompareAPIKey == "" {
		logger.Warn("CRYPTOCOMPARE_API_KEY not set, using the anonymous quota")
	}
	if c.CryptoPanicToken == "" {
		logger.Warn("CRYPTOPANIC_TOKEN not set, CryptoPanic news disabled")
	}
	if c.OpenAIAPIKey == "" {
		logger.Warn("OPENAI_API_KEY not set, sentiment defaults to NEUTRAL")
	}
	if c.RedisURL == "" {
		logger.Info("REDIS_URL not set, caches stay in process")
	}
	if c.TelegramBotToken == "" || c.TelegramChatID == 0 {
		logger.Info("telegram alerts disabled")
	}
}

func cleanList(in []string, upper bool) []string {
	out := make([]string, 0, len(in))
	seen := make(map[string]struct{}, len(in))
	for _, v := range in {
		v = strings.TrimSpace(v)
		if upper {
			v = strings.ToUpper(v)
		}
		if v == "" {
			continue
		}
		if _, ok := seen[v]; ok {
			continue
		}
		seen[v] = struct{}{}
		out = append(out, v)
	}
	return out
}
