// Command searcher serves fabric search over HTTP. It loads the configured
// fabric source at startup, optionally caches results in Redis, rebuilds on
// fabric-changes events from Kafka, and publishes search analytics.
//
// Usage:
//
//	go run ./cmd/searcher [-config configs/development.yaml]
package main

import (
	"context"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/indexer/consumer"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searchdb"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/searcher/handler"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/source"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/ratelimit"
	pkgredis "github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/redis"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/resilience"
)

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "source", cfg.Source.Kind)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	if cfg.Metrics.Enabled && cfg.Metrics.Port != cfg.Server.Port {
		go func() {
			if err := metrics.Serve(ctx, cfg.Metrics.Port); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	src, closeSource, err := source.FromConfig(ctx, cfg)
	if err != nil {
		slog.Error("failed to open fabric source", "error", err)
		os.Exit(1)
	}
	defer closeSource()

	db := searchdb.New(src, searchdb.Options{
		MaxResults:   cfg.Search.MaxResults,
		BuildTimeout: cfg.Index.BuildTimeout,
		Retry: resilience.RetryConfig{
			MaxAttempts:  cfg.Source.RetryAttempts,
			InitialDelay: cfg.Source.RetryDelay,
		},
	}, m)

	var (
		queryCache  *cache.QueryCache
		redisClient *pkgredis.Client
	)
	if cfg.Redis.Enabled {
		redisClient, err = pkgredis.NewClient(cfg.Redis)
		if err != nil {
			slog.Warn("redis unavailable, search caching disabled", "error", err)
		} else {
			defer redisClient.Close()
			queryCache = cache.New(redisClient, cfg.Redis.CacheTTL, m)
			db.OnRebuild(queryCache.OnRebuild)
			slog.Info("search cache enabled", "addr", cfg.Redis.Addr, "ttl", cfg.Redis.CacheTTL)
		}
	}

	aggregator := analytics.NewAggregator()
	var publisher kafka.Publisher
	if cfg.Kafka.Enabled {
		producer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
		defer producer.Close()
		publisher = producer
	}
	collector := analytics.NewCollector(publisher, aggregator, analytics.CollectorOptions{
		BufferSize:    cfg.Analytics.BufferSize,
		BatchSize:     cfg.Analytics.BatchSize,
		FlushInterval: cfg.Analytics.FlushInterval,
	})
	collector.Start(ctx)
	defer collector.Close()

	if _, err := db.Load(ctx, false); err != nil {
		slog.Error("initial fabric load failed, serving not-ready until a rebuild succeeds", "error", err)
	}

	if cfg.Kafka.Enabled {
		onRebuild := func(ev consumer.FabricChangeEvent, info searchdb.RebuildInfo, err error) {
			re := analytics.RebuildEvent{
				Source:     info.Source,
				Reason:     ev.Reason,
				Forced:     true,
				Generation: info.Generation,
				Objects:    info.Objects,
				DurationMs: info.Duration.Milliseconds(),
			}
			if err != nil {
				re.Error = err.Error()
			}
			collector.Track(analytics.NewRebuildEvent(re))
		}
		changes := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.FabricChanges, consumer.HandleMessage(db, onRebuild))
		rebuilds := consumer.New(changes)
		go func() {
			if err := rebuilds.Start(ctx); err != nil {
				slog.Error("rebuild consumer error", "error", err)
			}
		}()
		slog.Info("rebuild consumer started", "topic", cfg.Kafka.Topics.FabricChanges)
	}

	checker := health.NewChecker()
	checker.Register("index", health.ReadyCheck(db.Initialized, "fabric not loaded"))
	if redisClient != nil {
		checker.Register("redis", health.PingCheck(redisClient, health.StatusDegraded))
	}

	h := handler.New(db, queryCache, collector)
	analyticsH := analytics.NewHandler(aggregator, nil)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/objects", h.Object)
	mux.HandleFunc("POST /api/v1/index/rebuild", h.Rebuild)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var limiter *ratelimit.Limiter
	if cfg.Server.RateLimit > 0 {
		limiter = ratelimit.New(cfg.Server.RateLimit, time.Minute)
		limiter.Start(ctx)
	}

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
	chain = middleware.RateLimit(limiter, 60)(chain)
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(cfg.Server.AllowedOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Server.Port),
		Handler:      chain,
		ReadTimeout:  cfg.Server.ReadTimeout,
		WriteTimeout: cfg.Server.WriteTimeout,
	}

	go func() {
		<-ctx.Done()
		slog.Info("shutdown signal received")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
		defer cancel()
		if err := server.Shutdown(shutdownCtx); err != nil {
			slog.Error("server shutdown error", "error", err)
		}
	}()

	slog.Info("search service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("search service stopped")
}
