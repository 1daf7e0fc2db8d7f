package engine

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
)

func newTestEngine(t *testing.T) (*Engine, Options) {
	t.Helper()
	opts := Options{Kernel: kopts.DefaultOptions(), Fields: []string{"title", "author"}}
	store := source.New(opts.Fields)
	store.Put(source.Record{ID: "1", Fields: map[string]string{
		"title":  "Davinci Code",
		"author": "Dawn Brown",
	}}, opts.Kernel)
	store.Put(source.Record{ID: "2", Fields: map[string]string{
		"title":  "Unrelated Title",
		"author": "Nobody Here",
	}}, opts.Kernel)
	return New(store), opts
}

func TestSearchRanksBestMatchFirst(t *testing.T) {
	e, opts := newTestEngine(t)
	hits, err := e.Search(context.Background(), "davinci brown", opts)
	require.NoError(t, err)
	require.NotEmpty(t, hits)
	assert.Equal(t, "1", hits[0].Record.ID)
}

func TestSearchEmptyQueryReturnsNoHits(t *testing.T) {
	e, opts := newTestEngine(t)
	hits, err := e.Search(context.Background(), "", opts)
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestSearchRespectsOutputLimit(t *testing.T) {
	opts := Options{Kernel: kopts.DefaultOptions(), Fields: []string{"title"}}
	opts.Kernel.ThreshInclude = -1
	opts.Kernel.OutputLimit = 1

	store := source.New(opts.Fields)
	store.Put(source.Record{ID: "1", Fields: map[string]string{"title": "brown fox"}}, opts.Kernel)
	store.Put(source.Record{ID: "2", Fields: map[string]string{"title": "brown bear"}}, opts.Kernel)
	e := New(store)

	hits, err := e.Search(context.Background(), "brown", opts)
	require.NoError(t, err)
	assert.Len(t, hits, 1)
}

func TestSearchContextCancellation(t *testing.T) {
	e, opts := newTestEngine(t)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := e.Search(ctx, "davinci", opts)
	assert.Error(t, err)
}

func TestHighlightOnMatchedField(t *testing.T) {
	e, opts := newTestEngine(t)
	hits, err := e.Search(context.Background(), "davinci brown", opts)
	require.NoError(t, err)
	require.NotEmpty(t, hits)

	ranges, err := e.Highlight(context.Background(), "davinci brown", hits[0], opts)
	require.NoError(t, err)
	assert.NotEmpty(t, ranges)
}

func TestHighlightNoMatchedFieldReturnsNil(t *testing.T) {
	e, opts := newTestEngine(t)
	hit := SearchHit{Record: source.Record{ID: "1"}}
	ranges, err := e.Highlight(context.Background(), "davinci", hit, opts)
	require.NoError(t, err)
	assert.Nil(t, ranges)
}

func TestSnapshotReflectsStore(t *testing.T) {
	e, _ := newTestEngine(t)
	snap := e.Snapshot()
	assert.Equal(t, 2, snap.RecordCount)
}
