// Command indexer starts the searcher-side index consumer.
//
// On startup it bulk-loads internal/source.Store from the records table in
// PostgreSQL (backfill), then switches to tailing the record-ingest Kafka
// topic for incremental writes. Every record applied, whether during
// backfill or while tailing, is reported to analytics via a batched Kafka
// producer.
//
// Usage:
//
//	go run ./cmd/indexer [-config configs/development.yaml]
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

	"github.com/MarkitMedical/FuzzySearch/internal/analytics/collector"
	"github.com/MarkitMedical/FuzzySearch/internal/indexer/consumer"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
	"github.com/MarkitMedical/FuzzySearch/pkg/config"
	"github.com/MarkitMedical/FuzzySearch/pkg/health"
	"github.com/MarkitMedical/FuzzySearch/pkg/kafka"
	"github.com/MarkitMedical/FuzzySearch/pkg/logger"
	"github.com/MarkitMedical/FuzzySearch/pkg/metrics"
	"github.com/MarkitMedical/FuzzySearch/pkg/postgres"
)

// pollRecordsIndexed periodically exports the source store's record
// count as a cumulative counter, since the store itself has no
// per-put hook to increment one from.
func pollRecordsIndexed(ctx context.Context, store *source.Store, m *metrics.Metrics) {
	ticker := time.NewTicker(5 * time.Second)
	defer ticker.Stop()
	last := int64(store.Snapshot().RecordCount)
	for {
		select {
		case <-ticker.C:
			current := int64(store.Snapshot().RecordCount)
			if delta := current - last; delta > 0 {
				m.RecordsIndexedTotal.Add(float64(delta))
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
	slog.Info("starting indexer service", "fields", cfg.Fields)

	db, err := postgres.New(cfg.Postgres)
	if err != nil {
		slog.Error("failed to connect to postgres", "error", err)
		os.Exit(1)
	}
	defer db.Close()
	slog.Info("connected to postgres")

	opts := kopts.Options{
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

	m := metrics.New()
	if cfg.Metrics.Enabled {
		go func() {
			mux := http.NewServeMux()
			mux.Handle("/metrics", metrics.Handler())
			slog.Info("metrics server listening", "port", cfg.Metrics.Port)
			if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Metrics.Port), mux); err != nil {
				slog.Error("metrics server error", "error", err)
			}
		}()
	}

	analyticsProducer := kafka.NewProducer(cfg.Kafka, cfg.Kafka.Topics.AnalyticsEvents)
	defer analyticsProducer.Close()
	tracker := collector.NewBatchCollector(analyticsProducer, cfg.Indexer.BackfillBatchSize, cfg.Indexer.FlushInterval)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()
	tracker.Start(ctx)

	handler := consumer.HandleMessage(store, opts, db.DB, tracker)
	kafkaConsumer := kafka.NewConsumer(cfg.Kafka, cfg.Kafka.Topics.RecordIngest, handler)
	indexConsumer := consumer.New(kafkaConsumer, store, db, opts, tracker)

	backfillCtx, cancel := context.WithTimeout(ctx, cfg.Indexer.BackfillTimeout)
	if err := indexConsumer.Backfill(backfillCtx, cfg.Indexer.BackfillBatchSize); err != nil {
		slog.Error("backfill failed", "error", err)
		cancel()
		os.Exit(1)
	}
	cancel()
	m.SourceRecordCount.Set(float64(store.Snapshot().RecordCount))
	m.RecordsIndexedTotal.Add(float64(store.Snapshot().RecordCount))
	go pollRecordsIndexed(ctx, store, m)

	checker := health.NewChecker()
	checker.Register("postgres", func(ctx context.Context) health.ComponentHealth {
		if err := db.DB.PingContext(ctx); err != nil {
			return health.ComponentHealth{Status: health.StatusDown, Message: err.Error()}
		}
		return health.ComponentHealth{Status: health.StatusUp}
	})
	checker.Register("kafka", func(ctx context.Context) health.ComponentHealth {
		return health.ComponentHealth{Status: health.StatusUp, Message: "tailing record-ingest"}
	})

	healthMux := http.NewServeMux()
	healthMux.HandleFunc("GET /health/live", checker.LiveHandler())
	healthMux.HandleFunc("GET /health/ready", checker.ReadyHandler())
	go func() {
		if err := http.ListenAndServe(fmt.Sprintf(":%d", cfg.Server.Port), healthMux); err != nil {
			slog.Error("health server error", "error", err)
		}
	}()

	slog.Info("indexer service ready, tailing kafka",
		"topic", cfg.Kafka.Topics.RecordIngest,
		"group", cfg.Kafka.ConsumerGroup,
	)

	if err := indexConsumer.Start(ctx); err != nil {
		slog.Error("consumer error", "error", err)
	}

	tracker.Close()
	slog.Info("indexer service stopped")
}
