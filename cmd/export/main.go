// Command export fetches and enriches the feed once and writes it as a JSON
// document.
//
// Usage:
//
//	export -o feed.json --sentiment positive --sort reliability
package main

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"coinpulse/internal/config"
	"coinpulse/internal/domain"
	"coinpulse/internal/news"
	"coinpulse/internal/service"
	"coinpulse/pkg/logger"
	"coinpulse/pkg/tracing"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

type feedFetcher interface {
	FetchFeed(ctx context.Context) ([]domain.NewsItem, error)
}

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	// stdout may carry the document, so logs only go to LOG_FILE
	initLoggerFunc = logger.InitQuiet
	initTracerFunc = tracing.InitTracer
	newFetcherFunc = func(cfg *config.Config, tracer trace.Tracer) feedFetcher {
		return service.NewPipeline(cfg, tracer, nil).Feed
	}
	nowFunc  = time.Now
	exitFunc = os.Exit
)

type exportOptions struct {
	out       string
	sentiment string
	impact    string
	source    string
	symbol    string
	text      string
	sort      string
	limit     int
	timeout   time.Duration
}

func main() {
	if err := newRootCmd().ExecuteContext(context.Background()); err != nil {
		exitFunc(1)
	}
}

func newRootCmd() *cobra.Command {
	var opts exportOptions

	cmd := &cobra.Command{
		Use:          "export",
		Short:        "Export the enriched news feed as JSON",
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runExport(cmd.Context(), opts, cmd.OutOrStdout())
		},
	}

	f := cmd.Flags()
	f.StringVarP(&opts.out, "out", "o", "-", "output file, - for stdout")
	f.StringVar(&opts.sentiment, "sentiment", "", "POSITIVE, NEUTRAL or NEGATIVE")
	f.StringVar(&opts.impact, "impact", "", "High, Medium or Low")
	f.StringVar(&opts.source, "source", "", "source substring")
	f.StringVar(&opts.symbol, "symbol", "", "ticker mentioned by the item")
	f.StringVarP(&opts.text, "query", "q", "", "text search in title and body")
	f.StringVar(&opts.sort, "sort", "newest", "newest, oldest or reliability")
	f.IntVar(&opts.limit, "limit", 0, "maximum items, 0 for all")
	f.DurationVar(&opts.timeout, "timeout", 2*time.Minute, "overall deadline for fetch and enrichment")
	return cmd
}

func runExport(ctx context.Context, opts exportOptions, stdout io.Writer) error {
	q, err := news.ParseFilters(opts.sentiment, opts.impact, opts.sort)
	if err != nil {
		return err
	}
	q.Source = opts.source
	q.Symbol = opts.symbol
	q.Text = opts.text

	_ = loadEnvFunc()
	cfg, err := loadConfigFunc()
	if err != nil {
		return err
	}
	if err := initLoggerFunc(cfg.LogLevel, cfg.LogFile); err != nil {
		return fmt.Errorf("init logger: %w", err)
	}
	defer logger.Sync()

	if opts.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, opts.timeout)
		defer cancel()
	}

	tp, tracer, err := initTracerFunc(ctx, "coinpulse-export")
	if err != nil {
		return fmt.Errorf("init tracer: %w", err)
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	items, err := newFetcherFunc(cfg, tracer).FetchFeed(ctx)
	if err != nil && len(items) == 0 {
		return fmt.Errorf("fetch feed: %w", err)
	}

	items = news.Apply(items, q)
	if opts.limit > 0 && len(items) > opts.limit {
		items = items[:opts.limit]
	}

	data, err := json.MarshalIndent(news.NewExportDocument(items, nowFunc()), "", "  ")
	if err != nil {
		return fmt.Errorf("encode export: %w", err)
	}
	data = append(data, '\n')

	if out := strings.TrimSpace(opts.out); out != "" && out != "-" {
		if err := os.WriteFile(out, data, 0o644); err != nil {
			return fmt.Errorf("write export: %w", err)
		}
		logger.Info("feed exported", zap.String("file", out), zap.Int("items", len(items)))
		return nil
	}
	_, err = stdout.Write(data)
	return err
}
