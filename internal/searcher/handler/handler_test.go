package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/MarkitMedical/FuzzySearch/internal/engine"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel"
	"github.com/MarkitMedical/FuzzySearch/internal/kernel/kopts"
	"github.com/MarkitMedical/FuzzySearch/internal/source"
)

type fakeSearcher struct {
	hits []engine.SearchHit
	err  error
}

func (f *fakeSearcher) Search(ctx context.Context, query string, opts engine.Options) ([]engine.SearchHit, error) {
	return f.hits, f.err
}

func (f *fakeSearcher) Highlight(ctx context.Context, query string, hit engine.SearchHit, opts engine.Options) (map[string][]kernel.Range, error) {
	if hit.MatchedField == "" {
		return nil, nil
	}
	return map[string][]kernel.Range{hit.MatchedField: {{Start: 0, End: 3}}}, nil
}

func TestSearchMissingQueryParam(t *testing.T) {
	h := New(&fakeSearcher{}, kopts.DefaultOptions(), []string{"title"}, nil, nil, 10, 50)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestSearchReturnsResultsAndHighlights(t *testing.T) {
	fake := &fakeSearcher{hits: []engine.SearchHit{
		{Record: source.Record{ID: "1"}, Score: 5, MatchedField: "title"},
	}}
	h := New(fake, kopts.DefaultOptions(), []string{"title"}, nil, nil, 10, 50)

	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=brown", nil)
	rec := httptest.NewRecorder()
	h.Search(rec, req)

	require.Equal(t, http.StatusOK, rec.Code)
	var resp SearchResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &resp))
	require.Len(t, resp.Results, 1)
	assert.NotEmpty(t, resp.Results[0].Highlights)
}

func TestSearchInvalidLimitRejected(t *testing.T) {
	h := New(&fakeSearcher{}, kopts.DefaultOptions(), []string{"title"}, nil, nil, 10, 50)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search?q=brown&limit=0", nil)
	rec := httptest.NewRecorder()

	h.Search(rec, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCacheStatsDisabled(t *testing.T) {
	h := New(&fakeSearcher{}, kopts.DefaultOptions(), []string{"title"}, nil, nil, 10, 50)
	req := httptest.NewRequest(http.MethodGet, "/api/v1/search/cache/stats", nil)
	rec := httptest.NewRecorder()

	h.CacheStats(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), "disabled")
}

func TestHealth(t *testing.T) {
	h := New(&fakeSearcher{}, kopts.DefaultOptions(), []string{"title"}, nil, nil, 10, 50)
	req := httptest.NewRequest(http.MethodGet, "/health/live", nil)
	rec := httptest.NewRecorder()

	h.Health(rec, req)
	assert.Equal(t, http.StatusOK, rec.Code)
}
