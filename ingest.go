package main

import (
	"encoding/csv"
	"fmt"
	"io"
	"log"
	"os"
	"strings"
	"time"
)

// csvRow is one record keyed by lowercased, underscored header name,
// so "Issue Type 1", "issue_type_1" and "ISSUE TYPE 1" all resolve to
// the same field.
type csvRow map[string]string

func normalizeHeader(h string) string {
	h = strings.ToLower(cleanText(h))
	return strings.ReplaceAll(h, " ", "_")
}

func readCSVRows(path string) ([]csvRow, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("opening %s: %w", path, err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		if err == io.EOF {
			return nil, nil
		}
		return nil, fmt.Errorf("reading header of %s: %w", path, err)
	}
	keys := make([]string, len(header))
	for i, h := range header {
		keys[i] = normalizeHeader(h)
	}

	var rows []csvRow
	line := 1
	for {
		rec, err := r.Read()
		line++
		if err == io.EOF {
			break
		}
		if err != nil {
			// Malformed rows are skipped, not fatal.
			log.Printf("ingest skipped malformed row file=%s line=%d err=%v", path, line, err)
			continue
		}
		row := make(csvRow, len(keys))
		for i, v := range rec {
			if i < len(keys) {
				row[keys[i]] = v
			}
		}
		rows = append(rows, row)
	}
	return rows, nil
}

func (r csvRow) get(names ...string) string {
	for _, n := range names {
		if v := cleanText(r[n]); v != "" {
			return v
		}
	}
	return ""
}

// LoadTickets reads the unified ticket table. Missing fields default
// to empty/zero; a row is only dropped when it carries neither title
// nor description, since such a row can never contribute signal.
func LoadTickets(path string) ([]TicketRecord, error) {
	rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	tickets := make([]TicketRecord, 0, len(rows))
	skipped := 0
	for _, row := range rows {
		t := TicketRecord{
			RequestID:   row.get("request_id", "id"),
			Title:       row.get("title"),
			Description: row.get("description"),
			Product:     row.get("product"),
			IssueType1:  row.get("issue_type_1"),
			IssueType2:  row.get("issue_type_2"),
			IssueType3:  row.get("issue_type_3"),
			IssueType4:  row.get("issue_type_4"),
			Customer:    row.get("account_name", "customer"),
			Status:      row.get("status"),
			JiraIssueID: row.get("jira_issue_id"),
			ARR:         parseNumber(row.get("account_active_arr", "active_asset_value")),
		}
		if ts := row.get("created_at", "reported_at"); ts != "" {
			for _, layout := range []string{time.RFC3339, "2006-01-02 15:04:05", "2006-01-02"} {
				if parsed, err := time.Parse(layout, ts); err == nil {
					t.ReportedAt = parsed
					break
				}
			}
		}
		if t.Title == "" && t.Description == "" {
			skipped++
			continue
		}
		tickets = append(tickets, t)
	}
	if skipped > 0 {
		log.Printf("ingest tickets file=%s loaded=%d skipped_empty=%d", path, len(tickets), skipped)
	}
	return tickets, nil
}

// LoadRankedClusters reads a previous cluster run's output so the
// detect stage can run standalone. Only the fields detection consumes
// are restored.
func LoadRankedClusters(path string) ([]Cluster, error) {
	rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	clusters := make([]Cluster, 0, len(rows))
	for i, row := range rows {
		id := row.get("cluster_id")
		if id == "" {
			id = row.get("rank")
		}
		if id == "" {
			id = fmt.Sprintf("R%d", i+1)
		}
		label := row.get("cluster_label")
		if label == "" {
			continue
		}
		clusters = append(clusters, Cluster{
			ID:      id,
			Label:   label,
			Product: row.get("product"),
		})
	}
	return clusters, nil
}

// LoadDocSeeds reads the documentation manifest. Rows without a URL
// are dropped.
func LoadDocSeeds(path string) ([]DocSeed, error) {
	rows, err := readCSVRows(path)
	if err != nil {
		return nil, err
	}
	seeds := make([]DocSeed, 0, len(rows))
	for _, row := range rows {
		url := row.get("url_or_path", "url")
		if url == "" {
			continue
		}
		seeds = append(seeds, DocSeed{
			DocID:         row.get("doc_id"),
			Title:         row.get("title"),
			URL:           url,
			PublishedDate: row.get("published_date"),
		})
	}
	return seeds, nil
}
