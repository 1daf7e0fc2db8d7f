// Command analytics starts the standalone analytics aggregation service.
//
// It consumes search-analytics events from Kafka, aggregates them in memory
// (total queries, latency percentiles, cache hit rate, top queries),
// and exposes an HTTP API at GET /api/v1/analytics for dashboards. The
// in-memory stats are periodically snapshotted to PostgreSQL so a restart
// doesn't lose history; GET /api/v1/analytics/history replays those
// snapshots.
//
// Usage:
//
//	go run ./cmd/analytics [-config configs/development.yaml]
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"strconv"
	"syscall"

	"github.com/MarkitMedical/FuzzySearch/internal/analytics"
	"github.com/MarkitMedical/FuzzySearch/internal/analytics/aggregator"
	"github.com/MarkitMedical/FuzzySearch/pkg/config"
	"github.com/MarkitMedical/FuzzySearch/pkg/health"
	"github.com/MarkitMedical/FuzzySearch/pkg/kafka"
	"github.com/MarkitMedical/FuzzySearch/pkg/logger"
	"github.com/MarkitMedical/FuzzySearch/pkg/middleware"
	"github.com/MarkitMedical/FuzzySearch/pkg/postgres"
)

// main boots the standalone analytics service: it creates a Kafka consumer for
// analytics events, starts the in-memory aggregator, registers a health checker,
// and serves the HTTP API. Graceful shutdown is triggered by SIGINT/SIGTERM.
func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting analytics service", "port", cfg.Server.Port)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	// Kafka consumer for analytics events.
	var agg *analytics.Aggregator
	consumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, nil)
	agg = analytics.NewAggregator(consumer)

	// Re-create consumer with the actual handler now that aggregator exists.
	consumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(agg))
	agg = analytics.NewAggregator(consumer)

	go func() {
		if err := agg.Start(ctx); err != nil {
			slog.Error("aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	store := aggregator.NewStore(db)
	store.StartPeriodicSave(ctx, agg, cfg.Analytics.SnapshotInterval)

	// HTTP API.
	analyticsHandler := analytics.NewHandler(agg)

	checker := health.NewChecker()
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "consumer active"}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/analytics", analyticsHandler.Stats)
	mux.HandleFunc("GET /api/v1/analytics/history", func(w http.ResponseWriter, r *http.Request) {
		limit := cfg.Analytics.SnapshotHistory
		if v := r.URL.Query().Get("limit"); v != "" {
			if n, err := strconv.Atoi(v); err == nil && n > 0 {
				limit = n
			}
		}
		snapshots, err := store.ListSnapshots(r.Context(), limit)
		if err != nil {
			slog.Error("failed to list analytics snapshots", "error", err)
			http.Error(w, "internal error", http.StatusInternalServerError)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(snapshots)
	})
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
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

	slog.Info("analytics service listening", "addr", server.Addr)
	if err := server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		slog.Error("server error", "error", err)
		os.Exit(1)
	}

	slog.Info("analytics service stopped")
}
