// Package publisher persists records to PostgreSQL and publishes ingest
// events to Kafka for downstream indexing. It supports idempotent writes
// keyed on a caller-supplied idempotency key.
package publisher

import (
	"context"
	"crypto/sha256"
	"database/sql"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/MarkitMedical/FuzzySearch/internal/ingestion"
	apperrors "github.com/MarkitMedical/FuzzySearch/pkg/errors"
	"github.com/MarkitMedical/FuzzySearch/pkg/kafka"
	"github.com/MarkitMedical/FuzzySearch/pkg/postgres"
)

// Publisher coordinates record persistence and Kafka event production.
type Publisher struct {
	db       *postgres.Client
	producer *kafka.Producer
	logger   *slog.Logger
}

// New creates a Publisher with the given database and Kafka producer.
func New(db *postgres.Client, producer *kafka.Producer) *Publisher {
	return &Publisher{
		db:       db,
		producer: producer,
		logger:   slog.Default().With("component", "publisher"),
	}
}

// Ingest persists the record in PostgreSQL and publishes an IngestEvent
// to Kafka. Duplicate idempotency keys are detected and returned without
// re-insertion.
func (p *Publisher) Ingest(ctx context.Context, req *ingestion.IngestRequest) (*ingestion.IngestResponse, error) {
	fieldsJSON, err := json.Marshal(req.Fields)
	if err != nil {
		return nil, fmt.Errorf("marshaling fields: %w", err)
	}
	contentHash := fmt.Sprintf("%x", sha256.Sum256(fieldsJSON))

	if req.IdempotencyKey != "" {
		existing, err := p.findByIdempotencyKey(ctx, req.IdempotencyKey)
		if err != nil {
			return nil, fmt.Errorf("checking idempotency key: %w", err)
		}
		if existing != nil {
			p.logger.Info("duplicate ingestion detected",
				"idempotency_key", req.IdempotencyKey,
				"existing_id", existing.RecordID,
			)
			return existing, nil
		}
	}

	var recordID string
	err = p.db.InTx(ctx, func(tx *sql.Tx) error {
		err := tx.QueryRowContext(ctx,
			`INSERT INTO records (fields, content_hash, idempotency_key, status)
		VALUES ($1, $2, $3, 'PENDING')
		ON CONFLICT (idempotency_key) DO NOTHING
		RETURNING id`, fieldsJSON, contentHash, nullableString(req.IdempotencyKey)).Scan(&recordID)
		if err == sql.ErrNoRows {
			return apperrors.New(apperrors.ErrIdempotencyConflict, 409, "idempotency key already in use")
		}
		return err
	})

	if err != nil {
		return nil, fmt.Errorf("inserting record: %w", err)
	}

	event := kafka.Event{
		Key: recordID,
		Value: ingestion.IngestEvent{
			RecordID:   recordID,
			Fields:     req.Fields,
			IngestedAt: time.Now().UTC(),
		},
	}

	if err := p.producer.Publish(ctx, event); err != nil {
		p.logger.Error("failed to publish to kafka, record stuck in PENDING",
			"record_id", recordID,
			"error", err,
		)
	}
	return &ingestion.IngestResponse{
		RecordID: recordID,
		Status:   "PENDING",
	}, nil
}

// findByIdempotencyKey checks if a record with the given idempotency key
// already exists and returns its status.
func (p *Publisher) findByIdempotencyKey(ctx context.Context, key string) (*ingestion.IngestResponse, error) {
	var resp ingestion.IngestResponse
	err := p.db.DB.QueryRowContext(ctx,
		`SELECT id, status FROM records WHERE idempotency_key=$1`, key).Scan(&resp.RecordID, &resp.Status)
	if err == sql.ErrNoRows {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("querying by idempotency key: %w", err)
	}
	return &resp, nil
}

// nullableString converts a Go string to a sql.NullString, treating the
// empty string as NULL.
func nullableString(s string) sql.NullString {
	if s == "" {
		return sql.NullString{}
	}
	return sql.NullString{String: s, Valid: true}
}
