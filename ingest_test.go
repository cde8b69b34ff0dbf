package main

import (
	"os"
	"path/filepath"
	"testing"
)

func writeTempCSV(t *testing.T, name, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	if err := os.WriteFile(path, []byte(content), 0644); err != nil {
		t.Fatalf("writing %s: %v", name, err)
	}
	return path
}

func TestLoadTickets(t *testing.T) {
	path := writeTempCSV(t, "tickets.csv", ""+
		"Request ID,Title,Description,Product,Issue Type 1,Account Name,Account Active ARR,Status,Jira Issue ID,Created At\n"+
		"REQ-1,GSTR mismatch,Vendor invoice mismatch,IDT,GSTR Filing,Acme,\"₹1,20,000\",Open,TAX-1,2024-05-01 10:30:00\n"+
		"REQ-2,,,IDT,Login,Globex,500,Closed,,\n"+
		"REQ-3,Login fails,,IDT,Login,Globex,bad-number,Pending,,2024-06-15\n")
	tickets, err := LoadTickets(path)
	if err != nil {
		t.Fatalf("LoadTickets failed: %v", err)
	}
	if len(tickets) != 2 {
		t.Fatalf("expected 2 tickets (row without title and description dropped), got %d", len(tickets))
	}
	first := tickets[0]
	if first.RequestID != "REQ-1" || first.Product != "IDT" || first.Customer != "Acme" {
		t.Fatalf("first ticket fields wrong: %+v", first)
	}
	if first.ARR != 120000 {
		t.Fatalf("ARR = %v, want 120000", first.ARR)
	}
	if first.ReportedAt.IsZero() || first.ReportedAt.Day() != 1 {
		t.Fatalf("timestamp not parsed: %v", first.ReportedAt)
	}
	if tickets[1].ARR != 0 {
		t.Fatalf("unparseable ARR should be 0, got %v", tickets[1].ARR)
	}
	if tickets[1].ReportedAt.IsZero() {
		t.Fatalf("date-only timestamp should parse")
	}
}

func TestLoadTicketsAlternateHeaders(t *testing.T) {
	path := writeTempCSV(t, "alt.csv", ""+
		"id,title,customer,active_asset_value\n"+
		"42,Bulk export,Initech,9000\n")
	tickets, err := LoadTickets(path)
	if err != nil {
		t.Fatalf("LoadTickets failed: %v", err)
	}
	if len(tickets) != 1 {
		t.Fatalf("expected 1 ticket, got %d", len(tickets))
	}
	if tickets[0].RequestID != "42" || tickets[0].Customer != "Initech" || tickets[0].ARR != 9000 {
		t.Fatalf("alternate headers not mapped: %+v", tickets[0])
	}
}

func TestLoadTicketsSkipsMalformedRows(t *testing.T) {
	path := writeTempCSV(t, "bad.csv", ""+
		"title,description\n"+
		"good row,fine\n"+
		"\"unterminated quote,broken\n"+
		"another good row,also fine\n")
	tickets, err := LoadTickets(path)
	if err != nil {
		t.Fatalf("LoadTickets failed: %v", err)
	}
	if len(tickets) < 1 {
		t.Fatalf("good rows should survive a malformed neighbour, got %d", len(tickets))
	}
	for _, tk := range tickets {
		if tk.Title == "" {
			t.Fatalf("malformed row leaked through: %+v", tk)
		}
	}
}

func TestLoadTicketsMissingFile(t *testing.T) {
	if _, err := LoadTickets(filepath.Join(t.TempDir(), "absent.csv")); err == nil {
		t.Fatalf("expected error for missing file")
	}
}

func TestLoadTicketsEmptyFile(t *testing.T) {
	path := writeTempCSV(t, "empty.csv", "")
	tickets, err := LoadTickets(path)
	if err != nil {
		t.Fatalf("empty file should not error: %v", err)
	}
	if len(tickets) != 0 {
		t.Fatalf("expected no tickets, got %d", len(tickets))
	}
}

func TestLoadRankedClusters(t *testing.T) {
	path := writeTempCSV(t, "clusters.csv", ""+
		"Rank,Cluster ID,Cluster Label,Product\n"+
		"1,SEM-0001,[IDT] GSTR Filing — Vendor mismatch,IDT\n"+
		"2,,Missing id keeps rank,IDT\n"+
		"3,SEM-0003,,IDT\n")
	clusters, err := LoadRankedClusters(path)
	if err != nil {
		t.Fatalf("LoadRankedClusters failed: %v", err)
	}
	if len(clusters) != 2 {
		t.Fatalf("row without a label must be dropped, got %d clusters", len(clusters))
	}
	if clusters[0].ID != "SEM-0001" || clusters[0].Product != "IDT" {
		t.Fatalf("first cluster wrong: %+v", clusters[0])
	}
	if clusters[1].ID != "2" {
		t.Fatalf("missing cluster id should fall back to rank, got %q", clusters[1].ID)
	}
}

func TestLoadDocSeeds(t *testing.T) {
	path := writeTempCSV(t, "docs.csv", ""+
		"Doc ID,Title,URL or Path,Published Date\n"+
		"D1,Release notes,https://example.com/product-help-and-support/notes,2024-01-15\n"+
		"D2,No url,,2024-02-01\n")
	seeds, err := LoadDocSeeds(path)
	if err != nil {
		t.Fatalf("LoadDocSeeds failed: %v", err)
	}
	if len(seeds) != 1 {
		t.Fatalf("row without url must be dropped, got %d", len(seeds))
	}
	if seeds[0].DocID != "D1" || seeds[0].URL != "https://example.com/product-help-and-support/notes" {
		t.Fatalf("seed fields wrong: %+v", seeds[0])
	}
}
