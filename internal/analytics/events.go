package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventIndexDoc   EventType = "index_document"
	EventZeroResult EventType = "zero_result"
)

// SearchEvent records one completed search request. ShardCount is
// dropped relative to the teacher's event (this platform runs one
// in-memory source per process, SPEC_FULL.md §6); MatchedFields and
// HighlightedCount are added to reflect kernel-specific telemetry: how
// many distinct fields produced the winning score across the returned
// hits, and how many of those hits had highlight ranges computed.
type SearchEvent struct {
	Type             EventType `json:"type"`
	Query            string    `json:"query"`
	Fields           []string  `json:"fields"`
	TotalHits        int       `json:"total_hits"`
	Returned         int       `json:"returned"`
	MatchedFields    int       `json:"matched_fields"`
	HighlightedCount int       `json:"highlighted_count"`
	LatencyMs        int64     `json:"latency_ms"`
	CacheHit         bool      `json:"cache_hit"`
	Timestamp        time.Time `json:"timestamp"`
	RequestID        string    `json:"request_id"`
}

type IndexEvent struct {
	Type       EventType `json:"type"`
	RecordID   string    `json:"record_id"`
	TokenCount int       `json:"token_count"`
	SizeBytes  int       `json:"size_bytes"`
	LatencyMs  int64     `json:"latency_ms"`
	Timestamp  time.Time `json:"timestamp"`
}
