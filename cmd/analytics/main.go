// Command analytics aggregates search analytics published by the searcher.
//
// It consumes the search-analytics topic, keeps running totals in memory
// (query volume, latency percentiles, cache hit rate, zero-result queries,
// rebuild outcomes) and serves them at GET /api/v1/analytics. When snapshot
// persistence is enabled the totals are written to PostgreSQL periodically,
// restored on startup and listed at GET /api/v1/analytics/history.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
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

	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/internal/analytics/aggregator"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/health"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/middleware"
	"github.com/Adithya-Monish-Kumar-K/fabric-search/pkg/postgres"
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
	slog.Info("starting analytics service", "port", cfg.Analytics.Port)

	if !cfg.Kafka.Enabled {
		slog.Error("analytics service requires kafka; set kafka.enabled or FS_KAFKA_ENABLED")
		os.Exit(1)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	m := metrics.New()
	agg := analytics.NewAggregator()
	checker := health.NewChecker()

	var history analytics.HistoryLister
	snapshotsDone := make(chan struct{})
	if cfg.Analytics.PersistSnapshots {
		db, err := postgres.Open(ctx, cfg.Postgres)
		if err != nil {
			slog.Error("failed to connect to postgres", "error", err)
			os.Exit(1)
		}
		defer db.Close()

		snapshots := aggregator.NewStore(aggregator.FromClient(db))
		if err := snapshots.Init(ctx); err != nil {
			slog.Error("failed to prepare analytics snapshots", "error", err)
			os.Exit(1)
		}
		latest, err := snapshots.LatestSnapshot(ctx)
		if err != nil {
			slog.Warn("could not restore analytics snapshot", "error", err)
		} else if latest != nil {
			agg.Restore(*latest)
			slog.Info("analytics restored from snapshot", "total_searches", latest.TotalSearches)
		}
		go func() {
			defer close(snapshotsDone)
			snapshots.Run(ctx, agg, cfg.Analytics.SnapshotInterval)
		}()
		history = snapshots
		checker.Register("postgres", health.PingCheck(db, health.StatusDegraded))
	} else {
		close(snapshotsDone)
	}

	events := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	go func() {
		if err := events.Start(ctx); err != nil {
			slog.Error("analytics consumer error", "error", err)
		}
	}()
	slog.Info("analytics consumer started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	h := analytics.NewHandler(agg, history)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", h.History)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	mux.Handle("GET /metrics", metrics.Handler())

	var chain http.Handler = mux
	chain = middleware.Metrics(m)(chain)
	chain = middleware.CORS(cfg.Server.AllowedOrigins)(chain)
	chain = middleware.RequestID(chain)

	server := &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Analytics.Port),
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	<-snapshotsDone
	slog.Info("analytics service stopped")
}
