package config

import (
	"os"
	"testing"
	"time"
)

func TestLoadDefaults(t *testing.T) {
	for _, key := range []string{"NEWS_REFRESH", "MARKET_REFRESH", "DEDUPE_POLICY", "TRACKED_SYMBOLS", "HTTP_PORT", "RSS_FEEDS", "CLASSIFIER_MODEL"} {
		t.Setenv(key, "")
		os.Unsetenv(key)
	}

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.NewsRefresh != 60*time.Second || cfg.MarketRefresh != 30*time.Second {
		t.Fatalf("unexpected refresh defaults: %v %v", cfg.NewsRefresh, cfg.MarketRefresh)
	}
	if cfg.AggregateTimeout != 10*time.Second || cfg.RetryBaseDelay != time.Second || cfg.MaxRetries != 3 {
		t.Fatalf("unexpected retry defaults: %+v", cfg)
	}
	if cfg.DedupePolicy != "last" || cfg.TrustedSource != "CryptoPanic" || cfg.HTTPPort != 8080 {
		t.Fatalf("unexpected defaults: %+v", cfg)
	}
	if cfg.ClassifierModel != "gpt-4o-mini" {
		t.Fatalf("unexpected model %q", cfg.ClassifierModel)
	}
	if len(cfg.RSSFeeds) != 2 || len(cfg.TrackedSymbols) != 5 {
		t.Fatalf("unexpected list defaults: %v %v", cfg.RSSFeeds, cfg.TrackedSymbols)
	}
}

func TestLoadWithEnv(t *testing.T) {
	t.Setenv("CRYPTOPANIC_TOKEN", "tok")
	t.Setenv("NEWS_REFRESH", "2m")
	t.Setenv("DEDUPE_POLICY", " FIRST ")
	t.Setenv("TRACKED_SYMBOLS", "btc, eth,BTC,,sol")
	t.Setenv("TELEGRAM_CHAT_ID", "-100123")

	cfg, err := Load()
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cfg.CryptoPanicToken != "tok" || cfg.NewsRefresh != 2*time.Minute {
		t.Fatalf("unexpected config: %+v", cfg)
	}
	if cfg.DedupePolicy != "first" {
		t.Fatalf("expected normalized policy, got %q", cfg.DedupePolicy)
	}
	if len(cfg.TrackedSymbols) != 3 || cfg.TrackedSymbols[0] != "BTC" || cfg.TrackedSymbols[2] != "SOL" {
		t.Fatalf("unexpected symbols %v", cfg.TrackedSymbols)
	}
	if cfg.TelegramChatID != -100123 {
		t.Fatalf("unexpected chat id %d", cfg.TelegramChatID)
	}
}

func TestLoadRejectsInvalidValues(t *testing.T) {
	cases := map[string]string{
		"DEDUPE_POLICY":   "random",
		"TRACKED_SYMBOLS": "BTC,SHIB",
		"NEWS_REFRESH":    "0s",
		"COINGECKO_RPM":   "0",
		"HTTP_PORT":       "70000",
	}
	for key, value := range cases {
		t.Run(key, func(t *testing.T) {
			t.Setenv(key, value)
			if _, err := Load(); err == nil {
				t.Fatalf("expected error for %s=%s", key, value)
			}
		})
	}
}

func TestLoadRejectsMalformedDuration(t *testing.T) {
	t.Setenv("AGGREGATE_TIMEOUT", "soon")
	if _, err := Load(); err == nil {
		t.Fatal("expected parse error")
	}
}
