package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"testing"
	"time"

	"coinpulse/internal/bot"
	"coinpulse/internal/cache"
	"coinpulse/internal/config"
	"coinpulse/internal/job"

	"github.com/gin-gonic/gin"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

func TestMainBootstrap(t *testing.T) {
	gin.SetMode(gin.TestMode)
	restore := stubServerDeps(t)
	defer restore()

	var mirrorURL string
	initMirrorFunc = func(ctx context.Context, url string) (cache.Mirror, error) {
		mirrorURL = url
		return nil, errors.New("connection refused")
	}

	var routes gin.RoutesInfo
	var sessionsStarted bool
	startSessionsFunc = func(ctx context.Context, feed *job.FeedSession, market *job.MarketSession) {
		sessionsStarted = feed != nil && market != nil
	}
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error {
		routes = srv.Handler.(*gin.Engine).Routes()
		return nil
	}

	done := make(chan struct{})
	go func() {
		main()
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("main did not exit")
	}

	if mirrorURL != "redis://localhost:6379/0" {
		t.Fatalf("expected redis mirror attempted, got %q", mirrorURL)
	}
	if !sessionsStarted {
		t.Fatal("refresh sessions were not started")
	}
	want := map[string]bool{"/health": false, "/api/feed": false, "/api/classify": false, "/swagger/*any": false}
	for _, r := range routes {
		if _, ok := want[r.Path]; ok {
			want[r.Path] = true
		}
	}
	for path, found := range want {
		if !found {
			t.Errorf("route %s not registered", path)
		}
	}
}

func stubServerDeps(t *testing.T) func() {
	t.Helper()

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitLogger := initLoggerFunc
	origInitTracer := initTracerFunc
	origInitMirror := initMirrorFunc
	origStartSessions := startSessionsFunc
	origStartTelegram := startTelegramBotFunc
	origNewRouter := newRouterFunc
	origSetupSignal := setupSignalNotify
	origWait := waitForSignalFunc
	origStartHTTP := startHTTPServerFunc
	origShutdownHTTP := shutdownHTTPServerFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() (*config.Config, error) { return testConfig(), nil }
	initLoggerFunc = func(string, string) error { return nil }
	initTracerFunc = func(ctx context.Context, service string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	initMirrorFunc = func(context.Context, string) (cache.Mirror, error) { return nil, nil }
	startSessionsFunc = func(context.Context, *job.FeedSession, *job.MarketSession) {}
	startTelegramBotFunc = func(context.Context, string, int64, bot.MarketLookup, bot.FeedSource) {}
	newRouterFunc = func(...gin.OptionFunc) *gin.Engine { return gin.New() }
	setupSignalNotify = func(c chan<- os.Signal, sig ...os.Signal) {}
	waitForSignalFunc = func(<-chan os.Signal) {}
	startHTTPServerFunc = func(*http.Server) error { return http.ErrServerClosed }
	shutdownHTTPServerFunc = func(*http.Server, context.Context) error { return nil }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initLoggerFunc = origInitLogger
		initTracerFunc = origInitTracer
		initMirrorFunc = origInitMirror
		startSessionsFunc = origStartSessions
		startTelegramBotFunc = origStartTelegram
		newRouterFunc = origNewRouter
		setupSignalNotify = origSetupSignal
		waitForSignalFunc = origWait
		startHTTPServerFunc = origStartHTTP
		shutdownHTTPServerFunc = origShutdownHTTP
	}
}

func testConfig() *config.Config {
	return &config.Config{
		RedisURL:         "redis://localhost:6379/0",
		NewsRefresh:      time.Minute,
		MarketRefresh:    30 * time.Second,
		AggregateTimeout: 10 * time.Second,
		RetryBaseDelay:   time.Second,
		MaxRetries:       3,
		DedupePolicy:     "last",
		TrackedSymbols:   []string{"BTC", "ETH"},
		FeedLimit:        200,
		CryptoCompareRPM: 30,
		CryptoPanicRPM:   5,
		CoinGeckoRPM:     10,
		ClassifierRPM:    60,
		RSSRPM:           30,
		RedditRPM:        10,
		FearGreedRPM:     30,
		HTTPPort:         8080,
	}
}
