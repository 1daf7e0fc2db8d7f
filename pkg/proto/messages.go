// Package proto defines the shared message types used for internal RPC
// communication between services, carried over the platform's
// lightweight JSON-over-TCP RPC layer (see pkg/grpc). These serve the
// searcher's internal admin surface: out-of-band record reindexing and
// store statistics for operators, separate from the public HTTP API.
//
// These types mirror what a Protocol Buffer definition would describe
// and are hand-written for zero-dependency usage.
package proto

// ---------- Common ----------

// Record mirrors internal/source.Record across the RPC boundary.
type Record struct {
	ID        string            `json:"id"`
	Fields    map[string]string `json:"fields"`
	CreatedAt int64             `json:"created_at"`
}

// Pagination controls limit/offset for list endpoints.
type Pagination struct {
	Limit  int32 `json:"limit"`
	Offset int32 `json:"offset"`
}

// HealthCheckResponse mirrors the gRPC health check spec.
type HealthCheckResponse struct {
	Status string `json:"status"` // SERVING, NOT_SERVING, UNKNOWN
}

// ---------- Search ----------

// SearchRequest is the input to the Search RPC.
type SearchRequest struct {
	Query  string   `json:"query"`
	Fields []string `json:"fields,omitempty"`
	Limit  int32    `json:"limit"`
}

// SearchResponse is the output of the Search RPC.
type SearchResponse struct {
	Query     string         `json:"query"`
	TotalHits int32          `json:"total_hits"`
	Results   []SearchResult `json:"results"`
	LatencyMs int64          `json:"latency_ms"`
}

// SearchResult is a single scored record in the result set.
type SearchResult struct {
	RecordID     string  `json:"record_id"`
	MatchedField string  `json:"matched_field"`
	Score        float32 `json:"score"`
}

// ---------- Admin ----------

// ReindexRequest asks the searcher to apply (or replace) one record in
// its in-memory source store immediately, bypassing the Kafka tail —
// useful for operators backfilling a single known-bad record.
type ReindexRequest struct {
	Record Record `json:"record"`
}

// ReindexResponse confirms the reindex.
type ReindexResponse struct {
	Success bool   `json:"success"`
	Message string `json:"message"`
}

// StatsRequest has no fields; a single searcher process has a single
// source store (SPEC_FULL.md §6's no-sharding decision), so there is
// nothing to filter by.
type StatsRequest struct{}

// StatsResponse mirrors internal/source.Snapshot plus the kernel's
// assignment-solver fallback counter.
type StatsResponse struct {
	RecordCount               int64   `json:"record_count"`
	AvgFieldTokens            float64 `json:"avg_field_tokens"`
	AssignmentSolverFallbacks int64   `json:"assignment_solver_fallbacks"`
}
