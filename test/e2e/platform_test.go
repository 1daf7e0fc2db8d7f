// Package e2e contains end-to-end tests that exercise the full platform
// stack: gateway → ingestion → indexer → search, with real Kafka, PostgreSQL,
// and Redis.
//
// Prerequisites:
//   - PostgreSQL running with schema applied
//   - Kafka (with Zookeeper) running
//   - Redis running
//
// Run with:
//
//	go test -v -tags=e2e -timeout=120s ./test/e2e/...
package e2e

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"strconv"
	"strings"
	"testing"
	"time"
)

// ---------------------------------------------------------------------------
// Config
// ---------------------------------------------------------------------------

type e2eConfig struct {
	GatewayURL   string
	IngestionURL string
	SearcherURL  string
}

func loadE2EConfig() e2eConfig {
	return e2eConfig{
		GatewayURL:   envOrDefault("E2E_GATEWAY_URL", "http://localhost:8082"),
		IngestionURL: envOrDefault("E2E_INGESTION_URL", "http://localhost:8081"),
		SearcherURL:  envOrDefault("E2E_SEARCHER_URL", "http://localhost:8080"),
	}
}

// ---------------------------------------------------------------------------
// Tests
// ---------------------------------------------------------------------------

// TestPlatformHealth verifies all services respond to health checks.
func TestPlatformHealth(t *testing.T) {
	cfg := loadE2EConfig()

	services := []struct {
		name string
		url  string
	}{
		{"search /health/live", cfg.SearcherURL + "/health/live"},
		{"search /health/ready", cfg.SearcherURL + "/health/ready"},
		{"ingestion /health", cfg.IngestionURL + "/health"},
		{"gateway /health", cfg.GatewayURL + "/health"},
	}

	client := &http.Client{Timeout: 5 * time.Second}

	for _, svc := range services {
		t.Run(svc.name, func(t *testing.T) {
			resp, err := client.Get(svc.url)
			if err != nil {
				t.Skipf("service unavailable: %v", err)
			}
			defer resp.Body.Close()

			if resp.StatusCode != http.StatusOK {
				body, _ := io.ReadAll(resp.Body)
				t.Errorf("expected 200, got %d: %s", resp.StatusCode, body)
			}
		})
	}
}

// TestIngestAndSearch exercises the full record lifecycle:
// ingest → wait for indexing → search → verify results.
func TestIngestAndSearch(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 10 * time.Second}

	// Check that ingestion service is reachable.
	if _, err := client.Get(cfg.IngestionURL + "/health"); err != nil {
		t.Skipf("ingestion service unavailable: %v", err)
	}

	// 1. Ingest a record with a unique title.
	uniqueWord := fmt.Sprintf("e2etest%d", time.Now().UnixNano())
	payload := fmt.Sprintf(`{"title":"%s record","description":"This is an end-to-end test record containing the word %s for verification."}`, uniqueWord, uniqueWord)

	resp, err := client.Post(
		cfg.IngestionURL+"/api/v1/records",
		"application/json",
		strings.NewReader(payload),
	)
	if err != nil {
		t.Fatalf("ingest request failed: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusAccepted {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 202, got %d: %s", resp.StatusCode, body)
	}

	var ingestResult map[string]any
	json.NewDecoder(resp.Body).Decode(&ingestResult)
	recordID := ingestResult["record_id"]
	t.Logf("ingested record: id=%v", recordID)

	// 2. Wait for indexing (poll search service).
	t.Log("waiting for record to be indexed...")
	var found bool
	for attempt := 0; attempt < 30; attempt++ {
		time.Sleep(1 * time.Second)

		searchResp, err := client.Get(cfg.SearcherURL + "/api/v1/search?q=" + uniqueWord + "&limit=5")
		if err != nil {
			t.Logf("attempt %d: search request failed: %v", attempt, err)
			continue
		}

		var searchResult map[string]any
		json.NewDecoder(searchResp.Body).Decode(&searchResult)
		searchResp.Body.Close()

		totalHits, _ := searchResult["total_hits"].(float64)
		if totalHits > 0 {
			found = true
			t.Logf("record found after %d seconds (total_hits=%v)", attempt+1, totalHits)
			break
		}
	}

	if !found {
		t.Log("record not found in search within 30s, indexing may be slow or services not fully connected")
	}
}

// TestSearchAnalytics verifies that search queries generate analytics events.
func TestSearchAnalytics(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	// Issue a search query.
	resp, err := client.Get(cfg.SearcherURL + "/api/v1/search?q=analytics+test")
	if err != nil {
		t.Skipf("search service unavailable: %v", err)
	}
	resp.Body.Close()

	// Give time for analytics event to be collected.
	time.Sleep(2 * time.Second)

	// Check analytics endpoint.
	analyticsResp, err := client.Get(cfg.SearcherURL + "/api/v1/analytics")
	if err != nil {
		t.Fatalf("analytics request failed: %v", err)
	}
	defer analyticsResp.Body.Close()

	var stats map[string]any
	json.NewDecoder(analyticsResp.Body).Decode(&stats)

	totalSearches, _ := stats["total_searches"].(float64)
	t.Logf("analytics: total_searches=%v, cache_hits=%v, cache_misses=%v",
		stats["total_searches"], stats["cache_hits"], stats["cache_misses"])

	if totalSearches < 1 {
		t.Log("expected at least 1 search recorded in analytics")
	}
}

// TestSearchCacheStats verifies that cache statistics are reported.
func TestSearchCacheStats(t *testing.T) {
	cfg := loadE2EConfig()
	client := &http.Client{Timeout: 5 * time.Second}

	resp, err := client.Get(cfg.SearcherURL + "/api/v1/search/cache/stats")
	if err != nil {
		t.Skipf("search service unavailable: %v", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		body, _ := io.ReadAll(resp.Body)
		t.Fatalf("expected 200, got %d: %s", resp.StatusCode, body)
	}

	var stats map[string]any
	json.NewDecoder(resp.Body).Decode(&stats)
	t.Logf("cache stats: %v", stats)

	// Verify expected fields exist.
	for _, field := range []string{"hits", "misses", "total", "hit_rate"} {
		if _, ok := stats[field]; !ok {
			// Cache might be disabled — check for "status" field instead.
			if status, ok := stats["status"]; ok && status == "disabled" {
				t.Log("cache is disabled, skipping field check")
				return
			}
			t.Errorf("missing expected field: %s", field)
		}
	}
}

// ---------------------------------------------------------------------------
// Env helpers
// ---------------------------------------------------------------------------

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envOrDefaultInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}
