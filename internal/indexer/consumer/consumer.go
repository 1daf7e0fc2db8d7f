// Package consumer bulk-loads internal/source.Store from PostgreSQL on
// startup (backfill), then tails the record-ingest Kafka topic to apply
// incremental writes — mirroring the teacher's recover-on-startup,
// tail-thereafter shape, with "replay segments from disk" replaced by
// "replay rows from Postgres, then tail Kafka".
package consumer

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MarkitMedical/FuzzySearch/internal/analytics"
	"github.com/MarkitMedical/FuzzySearch/internal/analytics/collector"
	"github.com/MarkitMedical/FuzzySearch/internal/ingestion"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
	"github.com/MarkitMedical/FuzzySearch/pkg/kafka"
	"github.com/MarkitMedical/FuzzySearch/pkg/postgres"
)

// IndexConsumer drives the source store's startup backfill and its
// ongoing Kafka tail.
type IndexConsumer struct {
	consumer *kafka.Consumer
	store    *source.Store
	db       *postgres.Client
	opts     kopts.Options
	tracker  *collector.BatchCollector
	logger   *slog.Logger
}

// New creates an IndexConsumer backed by the given Kafka consumer, which
// applies IngestEvent messages to store using opts for tokenisation. tracker
// may be nil, in which case indexing events are not reported to analytics.
func New(kafkaConsumer *kafka.Consumer, store *source.Store, db *postgres.Client, opts kopts.Options, tracker *collector.BatchCollector) *IndexConsumer {
	return &IndexConsumer{
		consumer: kafkaConsumer,
		store:    store,
		db:       db,
		opts:     opts,
		tracker:  tracker,
		logger:   slog.Default().With("component", "index-consumer"),
	}
}

// Backfill loads every record from PostgreSQL into the store in pages of
// batchSize rows, before the caller switches to Start's Kafka tail. It is
// idempotent: internal/source.Store.Put replaces any existing record by ID.
func (ic *IndexConsumer) Backfill(ctx context.Context, batchSize int) error {
	var lastID string
	loaded := 0
	for {
		rows, err := ic.db.DB.QueryContext(ctx,
			`SELECT id, fields FROM records WHERE id > $1 ORDER BY id ASC LIMIT $2`,
			lastID, batchSize)
		if err != nil {
			return fmt.Errorf("querying backfill page: %w", err)
		}

		pageCount := 0
		for rows.Next() {
			var id string
			var fieldsJSON []byte
			if err := rows.Scan(&id, &fieldsJSON); err != nil {
				rows.Close()
				return fmt.Errorf("scanning backfill row: %w", err)
			}
			var fields map[string]string
			if err := json.Unmarshal(fieldsJSON, &fields); err != nil {
				ic.logger.Error("skipping record with malformed fields", "record_id", id, "error", err)
				continue
			}
			start := time.Now()
			ic.store.Put(source.Record{ID: id, Fields: fields, CreatedAt: time.Now().UTC()}, ic.opts)
			if ic.tracker != nil {
				ic.tracker.Track("analytics", analytics.IndexEvent{
					Type:      analytics.EventIndexDoc,
					RecordID:  id,
					SizeBytes: len(fieldsJSON),
					LatencyMs: time.Since(start).Milliseconds(),
					Timestamp: time.Now().UTC(),
				})
			}
			lastID = id
			pageCount++
		}
		if err := rows.Err(); err != nil {
			rows.Close()
			return fmt.Errorf("iterating backfill page: %w", err)
		}
		rows.Close()
		loaded += pageCount
		if pageCount < batchSize {
			break
		}
	}
	ic.logger.Info("backfill complete", "records_loaded", loaded)
	return nil
}

// Start enters the Kafka tail loop. It blocks until ctx is cancelled.
func (ic *IndexConsumer) Start(ctx context.Context) error {
	ic.logger.Info("index consumer tailing kafka")
	return ic.consumer.Start(ctx)
}

// HandleMessage returns a Kafka MessageHandler that applies every
// IngestEvent to store. If db is non-nil, the record's status is updated
// from PENDING to INDEXED in PostgreSQL after indexing. If tracker is
// non-nil, an IndexEvent is queued for analytics per record indexed.
func HandleMessage(store *source.Store, opts kopts.Options, db *sql.DB, tracker *collector.BatchCollector) kafka.MessageHandler {
	logger := slog.Default().With("component", "index-consumer")
	return func(ctx context.Context, key []byte, value []byte) error {
		start := time.Now()
		event, err := kafka.DecodeJSON[ingestion.IngestEvent](value)
		if err != nil {
			logger.Error("failed to decode ingest event", "error", err, "key", string(key))
			return nil
		}
		logger.Debug("processing ingest event", "record_id", event.RecordID)

		store.Put(source.Record{ID: event.RecordID, Fields: event.Fields, CreatedAt: event.IngestedAt}, opts)
		updateRecordStatus(ctx, db, event.RecordID, "INDEXED", logger)

		if tracker != nil {
			tracker.Track("analytics", analytics.IndexEvent{
				Type:      analytics.EventIndexDoc,
				RecordID:  event.RecordID,
				LatencyMs: time.Since(start).Milliseconds(),
				Timestamp: time.Now().UTC(),
			})
		}

		logger.Info("record indexed", "record_id", event.RecordID)
		return nil
	}
}

// updateRecordStatus updates the record's status and indexed_at timestamp
// in PostgreSQL. If db is nil, the update is silently skipped.
func updateRecordStatus(ctx context.Context, db *sql.DB, recordID, status string, logger *slog.Logger) {
	if db == nil {
		return
	}
	_, err := db.ExecContext(ctx,
		`UPDATE records SET status = $1, indexed_at = NOW() WHERE id = $2`,
		status, recordID,
	)
	if err != nil {
		logger.Error("failed to update record status",
			"record_id", recordID,
			"status", status,
			"error", err,
		)
	}
}
