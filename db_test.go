package main

import (
	"database/sql"
	"encoding/json"
	"path/filepath"
	"strings"
	"testing"
)

func newTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := InitDB(filepath.Join(t.TempDir(), "test.db"))
	if err != nil {
		t.Fatalf("InitDB failed: %v", err)
	}
	t.Cleanup(func() { db.Close() })
	return db
}

func TestCacheKey(t *testing.T) {
	key := cacheKey("https://example.com/product-help-and-support/gstr-2b?x=1")
	if strings.ContainsAny(key, ":/?=-.") {
		t.Fatalf("cache key not sanitized: %q", key)
	}
	long := "https://example.com/" + strings.Repeat("a", 300)
	if got := cacheKey(long); len(got) != 120 {
		t.Fatalf("long key length = %d, want 120", len(got))
	}
	if cacheKey("https://example.com/a") == cacheKey("https://example.com/b") {
		t.Fatalf("distinct urls must not collide")
	}
}

func TestPageCacheRoundTrip(t *testing.T) {
	db := newTestDB(t)
	cache := NewPageCache(db)

	url := "https://example.com/product-help-and-support/notes"
	if _, ok, err := cache.Get(url); err != nil || ok {
		t.Fatalf("empty cache Get = ok=%v err=%v", ok, err)
	}

	page := cachedPage{URL: url, HTML: "<p>hello</p>", Text: "hello"}
	if err := cache.Put(url, page); err != nil {
		t.Fatalf("Put failed: %v", err)
	}
	got, ok, err := cache.Get(url)
	if err != nil || !ok {
		t.Fatalf("Get after Put = ok=%v err=%v", ok, err)
	}
	if got != page {
		t.Fatalf("cached page mismatch: %+v", got)
	}

	// Upsert replaces the stored page.
	if err := cache.Put(url, cachedPage{URL: url, HTML: "<p>new</p>", Text: "new"}); err != nil {
		t.Fatalf("second Put failed: %v", err)
	}
	got, _, _ = cache.Get(url)
	if got.Text != "new" {
		t.Fatalf("upsert did not replace page: %+v", got)
	}

	if n, err := CountCachedPages(db); err != nil || n != 1 {
		t.Fatalf("CountCachedPages = %d err=%v, want 1", n, err)
	}
}

func TestSaveClusters(t *testing.T) {
	db := newTestDB(t)
	clusters := []Cluster{
		{ID: "SEM-0001", Label: "[IDT] GSTR Filing — Mismatch", Product: "IDT", Rank: 1,
			CustomerCount: 2, TicketCount: 3, ARRTotal: 800000, OpenCount: 2, OpenRatio: 0.66,
			RankScore: 0.91, PriorityLabel: "Critical", Description: "desc"},
		{ID: "SEM-0002", Label: "[IDT] Login", Product: "IDT", Rank: 2, RankScore: 0.2, PriorityLabel: "Medium"},
	}
	if err := SaveClusters(db, "run-1", clusters); err != nil {
		t.Fatalf("SaveClusters failed: %v", err)
	}

	rows, err := db.Query(`SELECT cluster_id, rank, priority_label FROM clusters WHERE run_id = ? ORDER BY rank`, "run-1")
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	defer rows.Close()
	var got []string
	for rows.Next() {
		var id, label string
		var rank int
		if err := rows.Scan(&id, &rank, &label); err != nil {
			t.Fatalf("scan failed: %v", err)
		}
		got = append(got, id)
	}
	if len(got) != 2 || got[0] != "SEM-0001" || got[1] != "SEM-0002" {
		t.Fatalf("stored clusters wrong: %v", got)
	}
}

func TestSaveAssignments(t *testing.T) {
	db := newTestDB(t)
	assignments := []Assignment{
		{RequestID: "REQ-1", ClusterID: "SEM-0001", ClusterLabel: "L1"},
		{RequestID: "REQ-2", ClusterID: "SEM-0001", ClusterLabel: "L1"},
	}
	if err := SaveAssignments(db, "run-1", assignments); err != nil {
		t.Fatalf("SaveAssignments failed: %v", err)
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM assignments WHERE run_id = ?`, "run-1").Scan(&n); err != nil {
		t.Fatalf("count failed: %v", err)
	}
	if n != 2 {
		t.Fatalf("assignment rows = %d, want 2", n)
	}
}

func TestSaveVerdictsSerializesEvidence(t *testing.T) {
	db := newTestDB(t)
	verdicts := []Verdict{{
		ClusterID:  "SEM-0001",
		Decision:   DecisionShipped,
		Confidence: 0.78,
		Reason:     "strong documentation match",
		BestScore:  0.31,
		Evidence: []EvidenceItem{{
			Chunk:   DocumentChunk{DocID: "D1", URL: "https://example.com/p", SectionTitle: "Reconciliation", SectionLink: "https://example.com/p#recon"},
			Score:   0.31,
			Snippet: "auto-matches vendor invoices",
		}},
	}}
	if err := SaveVerdicts(db, "run-1", verdicts); err != nil {
		t.Fatalf("SaveVerdicts failed: %v", err)
	}

	var decision, evidence string
	var confidence float64
	err := db.QueryRow(`SELECT decision, confidence, evidence FROM verdicts WHERE run_id = ?`, "run-1").
		Scan(&decision, &confidence, &evidence)
	if err != nil {
		t.Fatalf("query failed: %v", err)
	}
	if decision != DecisionShipped || confidence != 0.78 {
		t.Fatalf("verdict row wrong: %s %v", decision, confidence)
	}
	var parsed []map[string]any
	if err := json.Unmarshal([]byte(evidence), &parsed); err != nil {
		t.Fatalf("evidence column is not valid JSON: %v", err)
	}
	if len(parsed) != 1 || parsed[0]["section_title"] != "Reconciliation" {
		t.Fatalf("evidence payload wrong: %v", parsed)
	}
}
