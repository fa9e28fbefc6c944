package main

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"coinpulse/internal/config"
	"coinpulse/internal/domain"
	"coinpulse/internal/news"

	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	"go.opentelemetry.io/otel/trace"
)

type stubFetcher struct {
	items []domain.NewsItem
	err   error
}

func (s stubFetcher) FetchFeed(context.Context) ([]domain.NewsItem, error) {
	return s.items, s.err
}

func sampleItems() []domain.NewsItem {
	a := domain.NewsItem{ID: "a", Title: "Bitcoin rallies", Source: "CryptoPanic/CoinDesk", PublishedAt: 200, Symbols: []string{"BTC"}}
	b := domain.NewsItem{ID: "b", Title: "Ethereum slips", Source: "RSS/Decrypt", PublishedAt: 100, Symbols: []string{"ETH"}}
	return []domain.NewsItem{
		a.WithEnrichment(domain.SentimentPositive, 90, domain.ImpactHigh),
		b.WithEnrichment(domain.SentimentNegative, 60, domain.ImpactLow),
	}
}

func stubExportDeps(t *testing.T, fetcher feedFetcher) func() {
	t.Helper()

	origLoadEnv := loadEnvFunc
	origLoadConfig := loadConfigFunc
	origInitLogger := initLoggerFunc
	origInitTracer := initTracerFunc
	origNewFetcher := newFetcherFunc
	origNow := nowFunc
	origExit := exitFunc

	loadEnvFunc = func(...string) error { return nil }
	loadConfigFunc = func() (*config.Config, error) { return &config.Config{}, nil }
	initLoggerFunc = func(string, string) error { return nil }
	initTracerFunc = func(ctx context.Context, service string) (*sdktrace.TracerProvider, trace.Tracer, error) {
		tp := sdktrace.NewTracerProvider()
		return tp, tp.Tracer("test"), nil
	}
	newFetcherFunc = func(*config.Config, trace.Tracer) feedFetcher { return fetcher }
	nowFunc = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }
	exitFunc = func(code int) { t.Fatalf("unexpected exit %d", code) }

	return func() {
		loadEnvFunc = origLoadEnv
		loadConfigFunc = origLoadConfig
		initLoggerFunc = origInitLogger
		initTracerFunc = origInitTracer
		newFetcherFunc = origNewFetcher
		nowFunc = origNow
		exitFunc = origExit
	}
}

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	cmd := newRootCmd()
	var out, errOut bytes.Buffer
	cmd.SetOut(&out)
	cmd.SetErr(&errOut)
	cmd.SetArgs(args)
	err := cmd.ExecuteContext(context.Background())
	return out.String(), err
}

func TestExportToStdout(t *testing.T) {
	defer stubExportDeps(t, stubFetcher{items: sampleItems()})()

	out, err := execute(t, "--sentiment", "positive")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	var doc news.ExportDocument
	if err := json.Unmarshal([]byte(out), &doc); err != nil {
		t.Fatalf("output is not an export document: %v\n%s", err, out)
	}
	if doc.Count != 1 || len(doc.Items) != 1 || doc.Items[0].Title != "Bitcoin rallies" {
		t.Fatalf("expected only the positive item, got %+v", doc)
	}
	if !doc.ExportedAt.Equal(nowFunc()) {
		t.Fatalf("unexpected export time %s", doc.ExportedAt)
	}
}

func TestExportToFileWithLimit(t *testing.T) {
	defer stubExportDeps(t, stubFetcher{items: sampleItems()})()

	path := filepath.Join(t.TempDir(), "feed.json")
	out, err := execute(t, "-o", path, "--sort", "oldest", "--limit", "1")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out != "" {
		t.Fatalf("expected nothing on stdout, got %q", out)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read export: %v", err)
	}
	var doc news.ExportDocument
	if err := json.Unmarshal(data, &doc); err != nil {
		t.Fatalf("decode export: %v", err)
	}
	if doc.Count != 1 || doc.Items[0].Title != "Ethereum slips" {
		t.Fatalf("expected the oldest item only, got %+v", doc.Items)
	}
}

func TestExportRejectsUnknownFilter(t *testing.T) {
	defer stubExportDeps(t, stubFetcher{items: sampleItems()})()

	_, err := execute(t, "--impact", "huge")
	if err == nil || !strings.Contains(err.Error(), "unsupported impact") {
		t.Fatalf("expected impact validation error, got %v", err)
	}
}

func TestExportFailsWhenFeedUnavailable(t *testing.T) {
	defer stubExportDeps(t, stubFetcher{items: []domain.NewsItem{}, err: news.ErrTimeout})()

	_, err := execute(t)
	if !errors.Is(err, news.ErrTimeout) {
		t.Fatalf("expected timeout error, got %v", err)
	}
}

func TestMainExitsOnError(t *testing.T) {
	defer stubExportDeps(t, stubFetcher{err: errors.New("down")})()

	var code int
	exitFunc = func(c int) { code = c }
	origArgs := os.Args
	os.Args = []string{"export"}
	defer func() { os.Args = origArgs }()

	main()

	if code != 1 {
		t.Fatalf("expected exit code 1, got %d", code)
	}
}
