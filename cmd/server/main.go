package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"coinpulse/internal/bot"
	"coinpulse/internal/cache"
	"coinpulse/internal/config"
	"coinpulse/internal/handler"
	"coinpulse/internal/job"
	"coinpulse/internal/service"
	"coinpulse/pkg/logger"
	"coinpulse/pkg/tracing"

	"github.com/gin-gonic/gin"
	"github.com/joho/godotenv"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"
	"go.uber.org/zap"

	_ "coinpulse/docs"
)

var (
	loadEnvFunc    = godotenv.Load
	loadConfigFunc = config.Load
	initLoggerFunc = logger.Init
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
	startTelegramBotFunc   = bot.StartTelegramBot
	newRouterFunc          = gin.Default
	setupSignalNotify      = signal.Notify
	waitForSignalFunc      = func(quit <-chan os.Signal) { <-quit }
	startHTTPServerFunc    = func(srv *http.Server) error { return srv.ListenAndServe() }
	shutdownHTTPServerFunc = func(srv *http.Server, ctx context.Context) error { return srv.Shutdown(ctx) }
)

// @title           coinpulse API
// @version         1.0
// @description     Crypto news aggregation with sentiment, reliability and impact scoring.

// @host      localhost:8080
// @BasePath  /
func main() {
	_ = loadEnvFunc()

	cfg, err := loadConfigFunc()
	if err != nil {
		fmt.Fprintf(os.Stderr, "config: %v\n", err)
		os.Exit(1)
	}
	if err := initLoggerFunc(cfg.LogLevel, cfg.LogFile); err != nil {
		fmt.Fprintf(os.Stderr, "logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()
	cfg.WarnMissing()

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	tp, tracer, err := initTracerFunc(ctx, "coinpulse-server")
	if err != nil {
		logger.Fatal("failed to initialize tracer", zap.Error(err))
	}
	defer func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			logger.Warn("error shutting down tracer provider", zap.Error(err))
		}
	}()

	var mirror cache.Mirror
	if cfg.RedisURL != "" {
		mirror, err = initMirrorFunc(ctx, cfg.RedisURL)
		if err != nil {
			logger.Warn("redis unavailable, caches stay in process", zap.Error(err))
			mirror = nil
		}
	}

	pipeline := newPipelineFunc(cfg, tracer, mirror)

	feed := job.NewFeedSession(tracer, pipeline.Feed, cfg.NewsRefresh, cfg.FeedLimit)
	market := job.NewMarketSession(tracer, pipeline.Market, cfg.TrackedSymbols, cfg.MarketRefresh)
	startSessionsFunc(ctx, feed, market)

	startTelegramBotFunc(ctx, cfg.TelegramBotToken, cfg.TelegramChatID, pipeline.Market, feed)

	h := handler.New(tracer, feed, pipeline.Market, pipeline.Classifier, cfg.APIKey)

	r := newRouterFunc()
	r.Use(otelgin.Middleware("coinpulse-server"))

	h.RegisterRoutes(r)
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	srv := &http.Server{
		Addr:              fmt.Sprintf(":%d", cfg.HTTPPort),
		Handler:           r,
		ReadHeaderTimeout: 10 * time.Second,
	}

	serve := startHTTPServerFunc
	go func() {
		logger.Info("http server listening", zap.String("addr", srv.Addr))
		if err := serve(srv); err != nil && err != http.ErrServerClosed {
			logger.Fatal("listen failed", zap.Error(err))
		}
	}()

	quit := make(chan os.Signal, 1)
	setupSignalNotify(quit, syscall.SIGINT, syscall.SIGTERM)
	waitForSignalFunc(quit)
	logger.Info("shutting down server")

	feed.Stop()
	market.Stop()
	cancel()

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer shutdownCancel()

	if err := shutdownHTTPServerFunc(srv, shutdownCtx); err != nil {
		logger.Error("server forced to shutdown", zap.Error(err))
	}

	logger.Info("server exiting")
}
