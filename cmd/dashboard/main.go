package main

import (
	"context"
	"fmt"
	"os"

	"coinpulse/internal/cache"
	"coinpulse/internal/config"
	"coinpulse/internal/job"
	"coinpulse/internal/service"
	"coinpulse/internal/tui"
	"coinpulse/pkg/logger"
	"coinpulse/pkg/tracing"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/joho/godotenv"
	"go.uber.org/zap"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	// the terminal belongs to the dashboard, so logs only go to LOG_FILE
	initLoggerFunc = logger.InitQuiet
	initTracerFunc = tracing.InitTracer
	initMirrorFunc = func(ctx context.Context, url string) (cache.Mirror, error) {
		client, err := cache.NewRedisClient(ctx, url)
		if err != nil {
			return nil, err
		}
		return cache.NewRedisMirror(client, 0), nil
	}
	newPipelineFunc   = service.NewPipeline
	startSessionsFunc = func(ctx context.Context, feed *job.FeedSession, market *job.MarketSession) {
		go feed.Start(ctx)
		go market.Start(ctx)
	}
	runProgramFunc = func(m tea.Model) error {
		_, err := tea.NewProgram(m, tea.WithAltScreen()).Run()
		return err
	}
	exitFunc = os.Exit
)

func main() {
	_ = loadEnvFunc()

	cfg, err := loadConfigFunc()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		exitFunc(1)
		return
	}
	if err := initLoggerFunc(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		exitFunc(1)
		return
	}
	defer logger.Sync()
	cfg.WarnMissing()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "coinpulse-dashboard")
	if err != nil {
		fmt.Fprintf(os.Stderr, "tracing: %v\n", err)
		exitFunc(1)
		return
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	var mirror cache.Mirror
	if cfg.RedisURL != "" {
		if mirror, err = initMirrorFunc(ctx, cfg.RedisURL); err != nil {
			logger.Warn("redis unavailable, caches stay in process", zap.Error(err))
			mirror = nil
		}
	}

	pipeline := newPipelineFunc(cfg, tracer, mirror)
	feed := job.NewFeedSession(tracer, pipeline.Feed, cfg.NewsRefresh, cfg.FeedLimit)
	market := job.NewMarketSession(tracer, pipeline.Market, cfg.TrackedSymbols, cfg.MarketRefresh)
	startSessionsFunc(ctx, feed, market)

	model := tui.NewModel(feed, market)
	runErr := runProgramFunc(model)

	model.Close()
	feed.Stop()
	market.Stop()

	if runErr != nil {
		logger.Error("dashboard exited with error", zap.Error(runErr))
		fmt.Fprintf(os.Stderr, "dashboard: %v\n", runErr)
		exitFunc(1)
	}
}
