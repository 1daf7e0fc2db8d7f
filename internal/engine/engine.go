// Package engine drives the kernel against a record source: it is the
// single synchronous entry point SPEC_FULL.md §5.2 describes, grounded
// on the teacher's internal/searcher/executor/executor.go (one
// Execute-shaped call per query, stats returned alongside results).
package engine

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/aggregate"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
)

// SearchHit wraps spec.md's Search Result with an optional set of
// highlight ranges, populated lazily via Highlight for the page of
// hits actually returned to a caller.
type SearchHit struct {
	Record       source.Record
	Score        float64
	MatchedField string
	SortKey      string
	Highlights   map[string][]kernel.Range
}

// Options bundles the kernel tuning options with the ordered list of
// fields a search should consider, since spec.md's per-field weighting
// is driven entirely by declaration order (position decay).
type Options struct {
	Kernel kopts.Options
	Fields []string
}

// Engine is the single synchronous entry point driving the kernel
// against one Store. Per spec.md §5's concurrency model, a sync.Mutex
// enforces that only one search proceeds against an Engine at a time;
// concurrent callers block rather than racing on the Query's transient
// per-lane accumulators.
type Engine struct {
	store *source.Store
	mu    sync.Mutex
}

// New creates an Engine searching store.
func New(store *source.Store) *Engine {
	return &Engine{store: store}
}

// Search builds a kernel.Query once (C1/C2), then scores every
// installed record (C6 per declared field, C7 across fields), and
// returns hits sorted by score descending then sort key ascending
// (spec.md §5). Context cancellation is checked only between records:
// the kernel itself has no suspension points (spec.md §5), so
// preemption is necessarily coarse.
func (e *Engine) Search(ctx context.Context, queryString string, opts Options) ([]SearchHit, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	q := kernel.NewQuery(queryString, opts.Kernel)
	if len(q.Tokens) == 0 {
		return nil, nil
	}

	threshold := aggregate.NewThreshold(opts.Kernel)
	var hits []SearchHit
	var scanErr error

	e.store.Each(func(rec *source.IndexedRecord) {
		if scanErr != nil {
			return
		}
		select {
		case <-ctx.Done():
			scanErr = ctx.Err()
			return
		default:
		}

		item, fieldNames := toKernelItem(rec, opts.Fields)
		res := kernel.ScoreItem(q, item, opts.Kernel)
		if !threshold.Included(res.Score) {
			return
		}

		matchedField := ""
		if res.MatchedField >= 0 && res.MatchedField < len(fieldNames) {
			matchedField = fieldNames[res.MatchedField]
		}
		hits = append(hits, SearchHit{
			Record:       rec.Record,
			Score:        kopts.Round(res.Score, opts.Kernel.ScoreRound),
			MatchedField: matchedField,
			SortKey:      rec.Record.ID,
		})
	})
	if scanErr != nil {
		return nil, fmt.Errorf("scanning record source: %w", scanErr)
	}

	sort.SliceStable(hits, func(i, j int) bool {
		if hits[i].Score != hits[j].Score {
			return hits[i].Score > hits[j].Score
		}
		return hits[i].SortKey < hits[j].SortKey
	})

	if opts.Kernel.OutputLimit > 0 && len(hits) > opts.Kernel.OutputLimit {
		hits = hits[:opts.Kernel.OutputLimit]
	}
	return hits, nil
}

// Highlight lazily computes C5 (token pairing for the hit's matched
// field) followed by C8 (local alignment), for a single hit. It is
// meant to be called only for the page of hits actually returned to a
// caller, never the full candidate set, keeping alignment cost bounded
// by output_limit rather than corpus size.
func (e *Engine) Highlight(ctx context.Context, queryString string, hit SearchHit, opts Options) (map[string][]kernel.Range, error) {
	if hit.MatchedField == "" {
		return nil, nil
	}
	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	default:
	}

	rec, ok := e.store.Get(hit.Record.ID)
	if !ok {
		return nil, nil
	}
	field, ok := rec.Fields[hit.MatchedField]
	if !ok {
		return nil, nil
	}

	q := kernel.NewQuery(queryString, opts.Kernel)
	ranges := kernel.Highlight(q, field.Tokens, field.Fused, opts.Kernel)
	if len(ranges) == 0 {
		return nil, nil
	}
	return map[string][]kernel.Range{hit.MatchedField: ranges}, nil
}

// Snapshot exposes the underlying store's health/metrics counters.
func (e *Engine) Snapshot() source.Snapshot {
	return e.store.Snapshot()
}

func toKernelItem(rec *source.IndexedRecord, fields []string) (kernel.Item, []string) {
	item := kernel.Item{Opaque: rec.Record.ID}
	names := make([]string, 0, len(fields))
	for _, name := range fields {
		f, ok := rec.Fields[name]
		if !ok {
			continue
		}
		item.Fields = append(item.Fields, aggregate.FieldTokens{Tokens: f.Tokens, Fused: f.Fused})
		names = append(names, name)
	}
	return item, names
}
