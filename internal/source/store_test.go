package source

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
)

func TestPutIndexesDeclaredFields(t *testing.T) {
	opts := kopts.DefaultOptions()
	s := New([]string{"title", "author"})

	s.Put(Record{ID: "1", Fields: map[string]string{
		"title":  "Davinci Code",
		"author": "Dawn Brown",
		"ignore": "should not be indexed",
	}}, opts)

	rec, ok := s.Get("1")
	require.True(t, ok)
	assert.Equal(t, []string{"davinci", "code"}, rec.Fields["title"].Tokens)
	assert.Equal(t, "davinci code", rec.Fields["title"].Fused)
	assert.Equal(t, []string{"dawn", "brown"}, rec.Fields["author"].Tokens)
	_, hasIgnored := rec.Fields["ignore"]
	assert.False(t, hasIgnored)
}

func TestPutDropsShortFieldTokens(t *testing.T) {
	opts := kopts.DefaultOptions() // TokenFieldMinLength defaults to 3
	s := New([]string{"title"})

	s.Put(Record{ID: "1", Fields: map[string]string{"title": "a bb ccc"}}, opts)

	rec, _ := s.Get("1")
	assert.Equal(t, []string{"ccc"}, rec.Fields["title"].Tokens)
}

func TestDeleteRemovesRecord(t *testing.T) {
	opts := kopts.DefaultOptions()
	s := New([]string{"title"})
	s.Put(Record{ID: "1", Fields: map[string]string{"title": "hello world"}}, opts)

	s.Delete("1")
	_, ok := s.Get("1")
	assert.False(t, ok)
}

func TestEachVisitsEveryRecord(t *testing.T) {
	opts := kopts.DefaultOptions()
	s := New([]string{"title"})
	s.Put(Record{ID: "1", Fields: map[string]string{"title": "alpha"}}, opts)
	s.Put(Record{ID: "2", Fields: map[string]string{"title": "beta"}}, opts)

	seen := make(map[string]bool)
	s.Each(func(r *IndexedRecord) { seen[r.Record.ID] = true })

	assert.True(t, seen["1"])
	assert.True(t, seen["2"])
	assert.Len(t, seen, 2)
}

func TestSnapshotReportsCounts(t *testing.T) {
	opts := kopts.DefaultOptions()
	s := New([]string{"title"})
	assert.Equal(t, Snapshot{}, s.Snapshot())

	s.Put(Record{ID: "1", Fields: map[string]string{"title": "hello world"}}, opts)
	snap := s.Snapshot()
	assert.Equal(t, 1, snap.RecordCount)
	assert.Greater(t, snap.AvgFieldTokens, 0.0)
}

func TestPutReplacesExistingRecord(t *testing.T) {
	opts := kopts.DefaultOptions()
	s := New([]string{"title"})
	s.Put(Record{ID: "1", Fields: map[string]string{"title": "hello world"}}, opts)
	s.Put(Record{ID: "1", Fields: map[string]string{"title": "goodbye"}}, opts)

	rec, _ := s.Get("1")
	assert.Equal(t, []string{"goodbye"}, rec.Fields["title"].Tokens)
	assert.Equal(t, 1, s.Snapshot().RecordCount)
}
