// Package source holds the in-memory record store the engine searches
// against. It is grounded on the teacher's
// internal/indexer/index/memory_index.go: a sync.RWMutex-guarded map,
// sized and reported the same way, but storing per-field normalised
// token lists instead of an inverted posting index, since the kernel
// scores by approximate character overlap rather than exact-term
// lookup.
package source

import (
	"sync"
	"time"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/normalize"
)

// Record is the opaque structured record the kernel's "original
// record" refers to. Field paths are flat keys into Fields in this
// implementation (SPEC_FULL.md §3): a flat map has no nested keys to
// traverse, so the dotted-path/*-branch field-extraction contract of
// spec.md §6 is satisfied trivially.
type Record struct {
	ID        string
	Fields    map[string]string
	CreatedAt time.Time
}

// IndexedField is one field's pre-normalised, pre-split token list plus
// its normalised fused whole-field string, built once when the record
// is installed (spec.md §3's Indexed Record).
type IndexedField struct {
	Tokens []string
	Fused  string
}

// IndexedRecord is a Record plus its per-declared-field IndexedField,
// rebuilt whenever the record is put or deleted.
type IndexedRecord struct {
	Record Record
	Fields map[string]IndexedField
}

// Snapshot reports store-wide counters used for health and metrics
// reporting, mirroring MemoryIndex.Size/DocCount from the teacher.
type Snapshot struct {
	RecordCount    int
	AvgFieldTokens float64
}

// Store holds every currently-installed record in memory, guarded by a
// single RWMutex. Per spec.md §5's concurrency model, the engine takes
// this same lock for the duration of a search, so installs/deletes
// never race with an in-flight scan.
type Store struct {
	mu         sync.RWMutex
	records    map[string]*IndexedRecord
	fieldNames []string
	tokenSum    int64
	recordCount int64
}

// New creates an empty Store that indexes the given declared field
// names out of every Record.Fields map it is given.
func New(fieldNames []string) *Store {
	names := make([]string, len(fieldNames))
	copy(names, fieldNames)
	return &Store{
		records:    make(map[string]*IndexedRecord),
		fieldNames: names,
	}
}

// Put normalises and tokenises every declared field of rec (spec.md
// §6's fold/collapse/split contract) and installs or replaces the
// resulting IndexedRecord.
func (s *Store) Put(rec Record, opts kopts.Options) {
	indexed := &IndexedRecord{
		Record: rec,
		Fields: make(map[string]IndexedField, len(s.fieldNames)),
	}

	var added, removed int64
	for _, name := range s.fieldNames {
		raw, ok := rec.Fields[name]
		if !ok {
			continue
		}
		fused := normalize.String(raw)
		tokens := filterByLength(normalize.Tokens(fused), opts.TokenFieldMinLength, opts.TokenFieldMaxLength)
		indexed.Fields[name] = IndexedField{Tokens: tokens, Fused: fused}
		added += int64(len(tokens))
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if old, exists := s.records[rec.ID]; exists {
		for _, f := range old.Fields {
			removed += int64(len(f.Tokens))
		}
	} else {
		s.recordCount++
	}
	s.records[rec.ID] = indexed
	s.tokenSum += added - removed
}

// Delete removes a record from the store, if present.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	defer s.mu.Unlock()
	old, exists := s.records[id]
	if !exists {
		return
	}
	for _, f := range old.Fields {
		s.tokenSum -= int64(len(f.Tokens))
	}
	delete(s.records, id)
	s.recordCount--
}

// Get returns the indexed record for id, if present.
func (s *Store) Get(id string) (*IndexedRecord, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	rec, ok := s.records[id]
	return rec, ok
}

// Each calls fn for every currently-installed record, holding the
// read lock for the duration of the scan (spec.md §5's "only one
// search at a time" contract, enforced at a coarser level by the
// engine's own mutex; the read lock here only prevents an Each from
// observing a half-applied Put/Delete).
func (s *Store) Each(fn func(*IndexedRecord)) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, rec := range s.records {
		fn(rec)
	}
}

// Snapshot reports the current record count and the average number of
// tokens per indexed field, for health/metrics reporting.
func (s *Store) Snapshot() Snapshot {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.recordCount == 0 {
		return Snapshot{}
	}
	fieldInstances := int64(len(s.fieldNames)) * s.recordCount
	if fieldInstances == 0 {
		return Snapshot{RecordCount: int(s.recordCount)}
	}
	return Snapshot{
		RecordCount:    int(s.recordCount),
		AvgFieldTokens: float64(s.tokenSum) / float64(fieldInstances),
	}
}

// FieldNames returns the declared field names this store indexes.
func (s *Store) FieldNames() []string {
	names := make([]string, len(s.fieldNames))
	copy(names, s.fieldNames)
	return names
}

func filterByLength(tokens []string, min, max int) []string {
	out := make([]string, 0, len(tokens))
	for _, tok := range tokens {
		if len(tok) < min {
			continue
		}
		if max > 0 && len(tok) > max {
			tok = tok[:max]
		}
		out = append(out, tok)
	}
	return out
}
