// Package ingestion defines the request/response types and Kafka event
// schemas used by the record ingestion pipeline.
package ingestion

import "time"

// IngestRequest is the JSON body accepted by the ingestion HTTP endpoint.
// Fields maps declared field names (e.g. "title", "description") to raw
// text; the searcher-side indexer consumer tokenises them the same way
// internal/source.Store does on a direct Put.
type IngestRequest struct {
	Fields         map[string]string `json:"fields"`
	IdempotencyKey string            `json:"idempotency_key"`
}

// IngestResponse is returned to the caller after a record is accepted.
type IngestResponse struct {
	RecordID string `json:"record_id"`
	Status   string `json:"status"`
}

// IngestEvent is the Kafka message payload produced after a record is
// persisted and ready for indexing.
type IngestEvent struct {
	RecordID   string            `json:"record_id"`
	Fields     map[string]string `json:"fields"`
	IngestedAt time.Time         `json:"ingested_at"`
}
