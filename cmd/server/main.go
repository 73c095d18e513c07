package main

import (
	"context"
	"errors"
	"log"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/dohaki/across-api/internal/fees"
	"github.com/dohaki/across-api/internal/platform/cache"
	"github.com/dohaki/across-api/internal/platform/config"
	"github.com/dohaki/across-api/internal/platform/observability"
	"github.com/dohaki/across-api/internal/platform/resilience"
	"github.com/dohaki/across-api/internal/platform/worker"
	"github.com/dohaki/across-api/internal/server"
)

func main() {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	// Load configuration; the empty path searches ./config and the
	// working directory, falling back to defaults and env overrides.
	log.Println("Loading configuration...")
	cfg := config.MustLoad("")

	// Setup observability (foundational - must be first)
	logger := observability.NewLogger(cfg.Observability.Logging.Level, cfg.Observability.Logging.Format)

	metrics, err := observability.NewMetrics("across-api", cfg.Observability.Metrics.Enabled)
	if err != nil {
		log.Fatalf("Failed to create metrics: %v", err)
	}

	tracer, err := observability.NewTracerProvider(ctx, "across-api", cfg.Observability.Tracing.Endpoint, cfg.Observability.Tracing.Enabled)
	if err != nil {
		log.Fatalf("Failed to create tracer: %v", err)
	}
	defer func() {
		// The signal context is already cancelled during shutdown, so the
		// exporter gets a fresh deadline to flush remaining spans.
		flushCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := tracer.Shutdown(flushCtx); err != nil {
			logger.LogWarn(flushCtx, "tracer shutdown failed", "error", err)
		}
	}()

	logger.Info("observability setup complete")

	// Cache provider
	provider, err := cache.New(cache.Config{
		Provider:   cache.ProviderKind(cfg.Cache.Provider),
		Remote:     cache.RemoteConfig{URL: cfg.Cache.RedisURL, Token: cfg.Cache.RedisToken},
		DefaultTTL: cfg.Cache.DefaultTTL,
		KeyPrefix:  cfg.Cache.KeyPrefix,
	}, logger)
	if err != nil {
		logger.LogError(ctx, "failed to create cache provider", err)
		log.Fatalf("Failed to create cache provider: %v", err)
	}
	defer provider.Close()

	// Fee service
	feeService := fees.NewService(
		provider,
		fees.NewCalculator(fees.DefaultSchedule()),
		logger,
		metrics,
		tracer.Tracer(),
		fees.ServiceConfig{
			QuoteTTL:  cfg.Fees.QuoteTTL,
			LimitsTTL: cfg.Fees.LimitsTTL,
		},
	)

	// Cache warming
	var warmer *cache.Warmer
	if cfg.Warmup.Enabled {
		pool := worker.NewPool(ctx, cfg.Warmup.Workers, cfg.Warmup.QueueSize)
		defer pool.Close()

		warmCfg := cache.DefaultWarmupConfig()
		warmCfg.Parallel = cfg.Warmup.Parallel

		warmer = cache.NewWarmer(logger, metrics, warmCfg)
		warmer.RegisterProvider(fees.NewLimitsWarmer(feeService, pool))

		logger.Info("warming cache...")
		if results := warmer.Warmup(ctx); results.HasErrors() {
			logger.LogWarn(ctx, "initial cache warmup finished with errors", "errors", results.Errors)
		}
	}

	// Rate limiter
	var limiter *resilience.RateLimiter
	if cfg.Server.RateLimit.Enabled {
		limiter = resilience.NewRateLimiterFromRPM(cfg.Server.RateLimit.RequestsPerMinute, cfg.Server.RateLimit.Burst)
	}

	// HTTP server
	handler := server.New(server.Deps{
		Fees:       feeService,
		Cache:      provider,
		Logger:     logger,
		Metrics:    metrics,
		Limiter:    limiter,
		ReadyCheck: server.CacheReadyCheck(provider),
	})

	httpServer := &http.Server{
		Addr:         cfg.Server.Address(),
		Handler:      handler,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
		IdleTimeout:  cfg.Server.IdleTimeout,
	}

	g, gctx := errgroup.WithContext(ctx)

	g.Go(func() error {
		logger.Info("http server listening", "address", httpServer.Addr)
		if err := httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})

	g.Go(func() error {
		<-gctx.Done()
		logger.Info("shutdown signal received, draining connections...")
		drainCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		return httpServer.Shutdown(drainCtx)
	})

	if warmer != nil {
		g.Go(func() error {
			warmer.RunPeriodic(gctx, cfg.Warmup.Interval)
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		logger.LogError(context.Background(), "server error", err)
	}
	logger.Info("application stopped")
}
