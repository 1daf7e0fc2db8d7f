// Command searcher starts the search-serving HTTP API.
//
// On startup it bulk-loads internal/source.Store from PostgreSQL
// (backfill), then tails the record-ingest Kafka topic in the background
// to keep the store current while serving search traffic from
// internal/engine against that same store.
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

	"github.com/MarkitMedical/FuzzySearch/internal/analytics"
	"github.com/MarkitMedical/FuzzySearch/internal/engine"
	"github.com/MarkitMedical/FuzzySearch/internal/indexer/consumer"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/assign"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/searcher/admin"
	"github.com/MarkitMedical/FuzzySearch/internal/searcher/cache"
	"github.com/MarkitMedical/FuzzySearch/internal/searcher/handler"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
	"github.com/MarkitMedical/FuzzySearch/pkg/config"
	"github.com/MarkitMedical/FuzzySearch/pkg/grpc"
	"github.com/MarkitMedical/FuzzySearch/pkg/health"
	"github.com/MarkitMedical/FuzzySearch/pkg/kafka"
	"github.com/MarkitMedical/FuzzySearch/pkg/logger"
	"github.com/MarkitMedical/FuzzySearch/pkg/metrics"
	"github.com/MarkitMedical/FuzzySearch/pkg/middleware"
	"github.com/MarkitMedical/FuzzySearch/pkg/postgres"
	pkgredis "github.com/MarkitMedical/FuzzySearch/pkg/redis"
)

// instrumentedEngine wraps *engine.Engine to record the KernelSearchLatency
// and KernelHighlightLatency histograms around each call, without making
// internal/engine itself depend on Prometheus.
type instrumentedEngine struct {
	eng *engine.Engine
	m   *metrics.Metrics
}

func (ie *instrumentedEngine) Search(ctx context.Context, query string, opts engine.Options) ([]engine.SearchHit, error) {
	start := time.Now()
	hits, err := ie.eng.Search(ctx, query, opts)
	ie.m.KernelSearchLatency.Observe(time.Since(start).Seconds())
	return hits, err
}

func (ie *instrumentedEngine) Highlight(ctx context.Context, query string, hit engine.SearchHit, opts engine.Options) (map[string][]kernel.Range, error) {
	start := time.Now()
	ranges, err := ie.eng.Highlight(ctx, query, hit, opts)
	ie.m.KernelHighlightLatency.Observe(time.Since(start).Seconds())
	return ranges, err
}

// pollAssignmentFallbacks periodically exports the kernel's internal
// row/column flip counter (internal/kernel/assign.FallbackCount, a plain
// sync/atomic counter so the kernel stays free of any metrics dependency)
// as a Prometheus counter delta.
func pollAssignmentFallbacks(ctx context.Context, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	var last int64
	for {
		select {
		case <-ticker.C:
			current := assign.FallbackCount()
			if delta := current - last; delta > 0 {
				m.AssignmentSolverFallbacks.Add(float64(delta))
			}
			last = current
		case <-ctx.Done():
			return
		}
	}
}

func main() {
	configPath := flag.String("config", "configs/development.yaml", "path to config file")
	flag.Parse()

	cfg, err := config.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	logger.Setup(cfg.Logging.Level, cfg.Logging.Format)
	slog.Info("starting search service", "port", cfg.Server.Port, "fields", cfg.Fields)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	kernelOpts := kopts.Options{
		MinimumMatch:         cfg.Kernel.MinimumMatch,
		ThreshInclude:        cfg.Kernel.ThreshInclude,
		ThreshRelativeToBest: cfg.Kernel.ThreshRelativeToBest,
		FieldGoodEnough:      cfg.Kernel.FieldGoodEnough,
		BonusMatchStart:      cfg.Kernel.BonusMatchStart,
		BonusTokenOrder:      cfg.Kernel.BonusTokenOrder,
		BonusPositionDecay:   cfg.Kernel.BonusPositionDecay,
		ScorePerToken:        cfg.Kernel.ScorePerToken,
		ScoreTestFused:       cfg.Kernel.ScoreTestFused,
		ScoreRound:           cfg.Kernel.ScoreRound,
		TokenQueryMinLength:  cfg.Kernel.TokenQueryMinLength,
		TokenFieldMinLength:  cfg.Kernel.TokenFieldMinLength,
		TokenQueryMaxLength:  cfg.Kernel.TokenQueryMaxLength,
		TokenFieldMaxLength:  cfg.Kernel.TokenFieldMaxLength,
		TokenMinRelSize:      cfg.Kernel.TokenMinRelSize,
		TokenMaxRelSize:      cfg.Kernel.TokenMaxRelSize,
	}

	store := source.New(cfg.Fields)
	eng := engine.New(store)

	// Backfill the source store from Postgres, then tail the record-ingest
	// topic for incremental updates, mirroring the indexer service's own
	// bootstrap so the searcher can run standalone against its own store
	// rather than depending on the indexer process being up first.
	indexerHandler := consumer.HandleMessage(store, kernelOpts, db.DB, nil)
	indexerKafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RecordIngest, indexerHandler)
	indexConsumer := consumer.New(indexerKafkaConsumer, store, db, kernelOpts, nil)

	backfillCtx, cancel := context.WithTimeout(ctx, cfg.Indexer.BackfillTimeout)
	if err := indexConsumer.Backfill(backfillCtx, cfg.Indexer.BackfillBatchSize); err != nil {
		slog.Error("backfill failed", "error", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	slog.Info("source store backfilled", "record_count", store.Snapshot().RecordCount)

	go func() {
		if err := indexConsumer.Start(ctx); err != nil {
			slog.Error("index consumer tail error", "error", err)
		}
	}()

	var queryCache *cache.QueryCache
	var redisClient *pkgredis.Client
	redisClient, err = pkgredis.NewClient(cfg.Redis)
	if err != nil {
		slog.Warn("redis unavailable, search caching disabled", "error", err)
	} else {
		defer redisClient.Close()
		queryCache = cache.New(redisClient, cfg.Redis)
		slog.Info("search cache enabled",
			"addr", cfg.Redis.Addr,
			"ttl", cfg.Redis.CacheTTL,
		)
	}

	if cfg.Admin.Enabled {
		adminServer := grpc.NewServer()
		admin.Register(adminServer, store, kernelOpts)
		go func() {
			if err := adminServer.Serve(cfg.Admin.Addr); err != nil {
				slog.Error("admin rpc server error", "error", err)
			}
		}()
		go func() {
			<-ctx.Done()
			adminServer.Stop()
		}()
		slog.Info("admin rpc listening", "addr", cfg.Admin.Addr)
	}

	m := metrics.New()
	go pollAssignmentFallbacks(ctx, m)
	if cfg.Metrics.Enabled {
		go func() {
			metricsMux := http.NewServeMux()
			metricsMux.Handle("/metrics", metrics.Handler())
			slog.Info("metrics server listening", "port", cfg.Metrics.Port)
			if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Metrics.Port), metricsMux); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	var collector *analytics.Collector
	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	collector = analytics.NewCollector(analyticsProducer, 10000)
	collector.Start(ctx)
	defer collector.Close()
	slog.Info("analytics collector started", "topic", cfg.Kafka.Topics.AnalyticsEvents)

	analyticsConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, nil)
	aggregator := analytics.NewAggregator(analyticsConsumer)
	analyticsConsumer = kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents, analytics.HandleEvent(aggregator))
	aggregator = analytics.NewAggregator(analyticsConsumer)
	analyticsH := analytics.NewHandler(aggregator)

	go func() {
		if err := aggregator.Start(ctx); err != nil {
			slog.Error("analytics aggregator error", "error", err)
		}
	}()
	slog.Info("analytics aggregator started")

	checker := health.NewChecker()
	checker.Register("source_store", func(ctx context.Context) health.ComponentHealth {
		snap := store.Snapshot()
		return health.ComponentHealth{Status: health.StatusUp, Message: fmt.Sprintf("%d records", snap.RecordCount)}
	})
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("redis", func(ctx context.Context) health.ComponentHealth {
		if redisClient == nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: "not configured"}
		}
		if err := redisClient.Ping(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDegraded, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})

	h := handler.New(&instrumentedEngine{eng: eng, m: m}, kernelOpts, cfg.Fields, queryCache, collector, cfg.Kernel.DefaultLimit, cfg.Kernel.MaxResults)

	mux := http.NewServeMux()
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/search/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/search/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /api/v1/analytics", analyticsH.Stats)
	mux.HandleFunc("GET /health/live", checker.LiveHandler())
	mux.HandleFunc("GET /health/ready", checker.ReadyHandler())

	var chain http.Handler = mux
	chain = middleware.Timeout(cfg.Server.WriteTimeout)(chain)
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
