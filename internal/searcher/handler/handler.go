// Package handler implements the searcher service's HTTP surface,
// grounded on the teacher's internal/searcher/handler/handler.go kept
// nearly verbatim in shape: decode query params, check cache, call the
// engine on a miss, track an analytics event, write JSON.
package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/MarkitMedical/FuzzySearch/internal/analytics"
	"github.com/MarkitMedical/FuzzySearch/internal/engine"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/searcher/cache"
	"github.com/MarkitMedical/FuzzySearch/pkg/logger"
	"github.com/MarkitMedical/FuzzySearch/pkg/middleware"
)

// Searcher is the subset of *engine.Engine the handler depends on,
// narrowed for testability the way the teacher's SearchExecutor
// interface narrows *indexer.Engine.
type Searcher interface {
	Search(ctx context.Context, query string, opts engine.Options) ([]engine.SearchHit, error)
	Highlight(ctx context.Context, query string, hit engine.SearchHit, opts engine.Options) (map[string][]kernel.Range, error)
}

// SearchResponse is the JSON body returned by Handler.Search.
type SearchResponse struct {
	Query     string             `json:"query"`
	Fields    []string           `json:"fields"`
	TotalHits int                `json:"total_hits"`
	Results   []engine.SearchHit `json:"results"`
}

type Handler struct {
	eng          Searcher
	kernelOpts   kopts.Options
	allFields    []string
	cache        *cache.QueryCache
	collector    *analytics.Collector
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(eng Searcher, kernelOpts kopts.Options, allFields []string, queryCache *cache.QueryCache, collector *analytics.Collector, defaultLimit, maxResults int) *Handler {
	return &Handler{
		eng:          eng,
		kernelOpts:   kernelOpts,
		allFields:    allFields,
		cache:        queryCache,
		collector:    collector,
		defaultLimit: defaultLimit,
		maxResults:   maxResults,
		logger:       slog.Default().With("component", "search-handler"),
	}
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx := r.Context()
	log := logger.FromContext(ctx)

	query := r.URL.Query().Get("q")
	if query == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}

	fields := h.allFields
	if fieldsStr := r.URL.Query().Get("fields"); fieldsStr != "" {
		fields = strings.Split(fieldsStr, ",")
	}

	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			h.writeError(w, http.StatusBadRequest, "limit must be a positive integer")
			return
		}
		if parsed > h.maxResults {
			parsed = h.maxResults
		}
		limit = parsed
	}

	searchOpts := h.kernelOpts
	searchOpts.OutputLimit = limit
	opts := engine.Options{Kernel: searchOpts, Fields: fields}

	var hits []engine.SearchHit
	var err error
	cacheHit := false

	if h.cache != nil {
		hits, cacheHit, err = h.cache.GetOrCompute(ctx, query, fields, limit, func() ([]engine.SearchHit, error) {
			return h.eng.Search(ctx, query, opts)
		})
	} else {
		hits, err = h.eng.Search(ctx, query, opts)
	}

	if err != nil {
		log.Error("search execution failed", "query", query, "error", err)
		h.writeError(w, http.StatusInternalServerError, "search failed")
		return
	}

	matchedFieldSet := make(map[string]struct{})
	highlighted := 0
	for i := range hits {
		ranges, hErr := h.eng.Highlight(ctx, query, hits[i], opts)
		if hErr != nil {
			log.Error("highlight failed", "query", query, "record_id", hits[i].Record.ID, "error", hErr)
			continue
		}
		if len(ranges) > 0 {
			hits[i].Highlights = ranges
			highlighted++
		}
		if hits[i].MatchedField != "" {
			matchedFieldSet[hits[i].MatchedField] = struct{}{}
		}
	}

	latencyMs := time.Since(start).Milliseconds()

	log.Info("search completed",
		"query", query,
		"returned", len(hits),
		"cache_hit", cacheHit,
		"latency_ms", latencyMs,
	)
	if h.collector != nil {
		eventType := analytics.EventCacheMiss
		if cacheHit {
			eventType = analytics.EventCacheHit
		}

		h.collector.Track(analytics.SearchEvent{
			Type:             eventType,
			Query:            query,
			Fields:           fields,
			TotalHits:        len(hits),
			Returned:         len(hits),
			MatchedFields:    len(matchedFieldSet),
			HighlightedCount: highlighted,
			LatencyMs:        latencyMs,
			CacheHit:         cacheHit,
			Timestamp:        time.Now().UTC(),
			RequestID:        middleware.GetRequestID(ctx),
		})
	}

	h.writeJSON(w, http.StatusOK, &SearchResponse{
		Query:     query,
		Fields:    fields,
		TotalHits: len(hits),
		Results:   hits,
	})
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	if err := h.cache.Invalidate(r.Context()); err != nil {
		h.logger.Error("cache invalidation failed", "error", err)
		h.writeError(w, http.StatusInternalServerError, "cache invalidation failed")
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]string{"status": "invalidated"})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
