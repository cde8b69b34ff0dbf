package main

import (
	"database/sql"
	"encoding/json"
	"fmt"
	"regexp"
	"time"

	_ "github.com/mattn/go-sqlite3"
)

func InitDB(path string) (*sql.DB, error) {
	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return nil, err
	}

	schema := `
	CREATE TABLE IF NOT EXISTS page_cache (
		cache_key  TEXT PRIMARY KEY,
		url        TEXT NOT NULL,
		html       TEXT NOT NULL,
		text       TEXT NOT NULL,
		fetched_at DATETIME DEFAULT CURRENT_TIMESTAMP
	);

	CREATE TABLE IF NOT EXISTS clusters (
		run_id          TEXT NOT NULL,
		rank            INTEGER NOT NULL,
		cluster_id      TEXT NOT NULL,
		cluster_label   TEXT NOT NULL,
		product         TEXT DEFAULT '',
		customer_count  INTEGER DEFAULT 0,
		ticket_count    INTEGER DEFAULT 0,
		jira_count      INTEGER DEFAULT 0,
		arr_total       REAL DEFAULT 0,
		open_count      INTEGER DEFAULT 0,
		open_ratio      REAL DEFAULT 0,
		rank_score      REAL DEFAULT 0,
		priority_label  TEXT DEFAULT '',
		priority_reason TEXT DEFAULT '',
		description     TEXT DEFAULT ''
	);
	CREATE INDEX IF NOT EXISTS idx_clusters_run ON clusters(run_id);

	CREATE TABLE IF NOT EXISTS assignments (
		run_id        TEXT NOT NULL,
		request_id    TEXT NOT NULL,
		cluster_id    TEXT NOT NULL,
		cluster_label TEXT NOT NULL
	);
	CREATE INDEX IF NOT EXISTS idx_assignments_run ON assignments(run_id);

	CREATE TABLE IF NOT EXISTS verdicts (
		run_id     TEXT NOT NULL,
		cluster_id TEXT NOT NULL,
		decision   TEXT NOT NULL,
		confidence REAL NOT NULL,
		reason     TEXT DEFAULT '',
		best_score REAL DEFAULT 0,
		evidence   TEXT DEFAULT '[]'
	);
	CREATE INDEX IF NOT EXISTS idx_verdicts_run ON verdicts(run_id);
	`
	if _, err := db.Exec(schema); err != nil {
		db.Close()
		return nil, fmt.Errorf("creating schema: %w", err)
	}
	return db, nil
}

type cachedPage struct {
	URL  string
	HTML string
	Text string
}

// PageCache is the durable fetch cache. The core crawl logic only sees
// this capability, never the storage behind it.
type PageCache interface {
	Get(url string) (cachedPage, bool, error)
	Put(url string, page cachedPage) error
}

var cacheKeyRegex = regexp.MustCompile(`[^a-zA-Z0-9]+`)

// cacheKey sanitizes a URL into a stable storage key.
func cacheKey(url string) string {
	key := cacheKeyRegex.ReplaceAllString(url, "_")
	if len(key) > 120 {
		key = key[:120]
	}
	return key
}

type sqlitePageCache struct {
	db *sql.DB
}

func NewPageCache(db *sql.DB) PageCache {
	return &sqlitePageCache{db: db}
}

func (c *sqlitePageCache) Get(url string) (cachedPage, bool, error) {
	var page cachedPage
	err := c.db.QueryRow(
		`SELECT url, html, text FROM page_cache WHERE cache_key = ?`, cacheKey(url),
	).Scan(&page.URL, &page.HTML, &page.Text)
	if err == sql.ErrNoRows {
		return cachedPage{}, false, nil
	}
	if err != nil {
		return cachedPage{}, false, err
	}
	return page, true, nil
}

func (c *sqlitePageCache) Put(url string, page cachedPage) error {
	_, err := c.db.Exec(
		`INSERT INTO page_cache (cache_key, url, html, text, fetched_at) VALUES (?, ?, ?, ?, ?)
		 ON CONFLICT(cache_key) DO UPDATE SET url = excluded.url, html = excluded.html,
		 text = excluded.text, fetched_at = excluded.fetched_at`,
		cacheKey(url), url, page.HTML, page.Text, time.Now().UTC(),
	)
	return err
}

func SaveClusters(db *sql.DB, runID string, clusters []Cluster) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO clusters
		(run_id, rank, cluster_id, cluster_label, product, customer_count, ticket_count,
		 jira_count, arr_total, open_count, open_ratio, rank_score, priority_label,
		 priority_reason, description)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, c := range clusters {
		if _, err := stmt.Exec(runID, c.Rank, c.ID, c.Label, c.Product, c.CustomerCount,
			c.TicketCount, c.JiraCount, c.ARRTotal, c.OpenCount, c.OpenRatio,
			c.RankScore, c.PriorityLabel, c.PriorityReason, c.Description); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func SaveAssignments(db *sql.DB, runID string, assignments []Assignment) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO assignments (run_id, request_id, cluster_id, cluster_label) VALUES (?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, a := range assignments {
		if _, err := stmt.Exec(runID, a.RequestID, a.ClusterID, a.ClusterLabel); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func SaveVerdicts(db *sql.DB, runID string, verdicts []Verdict) error {
	tx, err := db.Begin()
	if err != nil {
		return err
	}
	stmt, err := tx.Prepare(`INSERT INTO verdicts (run_id, cluster_id, decision, confidence, reason, best_score, evidence) VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		tx.Rollback()
		return err
	}
	defer stmt.Close()
	for _, v := range verdicts {
		evidence, err := json.Marshal(evidencePayload(v.Evidence))
		if err != nil {
			tx.Rollback()
			return err
		}
		if _, err := stmt.Exec(runID, v.ClusterID, v.Decision, v.Confidence, v.Reason, v.BestScore, string(evidence)); err != nil {
			tx.Rollback()
			return err
		}
	}
	return tx.Commit()
}

func CountCachedPages(db *sql.DB) (int, error) {
	var n int
	err := db.QueryRow(`SELECT COUNT(*) FROM page_cache`).Scan(&n)
	return n, err
}
