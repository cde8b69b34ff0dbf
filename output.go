package main

import (
	"encoding/csv"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
)

// WriteClustersCSV writes the ranked cluster table.
func WriteClustersCSV(clusters []Cluster, path string) error {
	rows := [][]string{{
		"rank", "cluster_id", "cluster_label", "product",
		"customer_count", "ticket_count_total", "jira_ticket_count",
		"account_active_arr_total", "open_count", "open_ratio", "rank_score",
		"priority_label", "priority_reasoning", "cluster_description",
		"representative_examples", "customer_names", "request_ids",
	}}
	for _, c := range clusters {
		rows = append(rows, []string{
			fmt.Sprintf("%d", c.Rank),
			c.ID,
			c.Label,
			c.Product,
			fmt.Sprintf("%d", c.CustomerCount),
			fmt.Sprintf("%d", c.TicketCount),
			fmt.Sprintf("%d", c.JiraCount),
			fmt.Sprintf("%.2f", c.ARRTotal),
			fmt.Sprintf("%d", c.OpenCount),
			fmt.Sprintf("%.4f", c.OpenRatio),
			fmt.Sprintf("%.4f", c.RankScore),
			c.PriorityLabel,
			c.PriorityReason,
			c.Description,
			strings.Join(c.Excerpts, " | "),
			strings.Join(c.CustomerNames, " | "),
			strings.Join(c.RequestIDs, ", "),
		})
	}
	return writeCSVFile(path, rows)
}

func WriteAssignmentsCSV(assignments []Assignment, path string) error {
	rows := [][]string{{"request_id", "cluster_id", "cluster_label"}}
	for _, a := range assignments {
		rows = append(rows, []string{a.RequestID, a.ClusterID, a.ClusterLabel})
	}
	return writeCSVFile(path, rows)
}

// WriteVerdictsCSV writes the tabular verdict dataset with up to three
// citation columns per cluster.
func WriteVerdictsCSV(verdicts []Verdict, path string) error {
	rows := [][]string{{
		"cluster_id", "cluster_label", "product", "decision", "confidence",
		"reason", "best_score", "evidence_count",
		"citation_1", "citation_2", "citation_3",
		"section_1", "section_2", "section_3",
		"snippet_1", "snippet_2", "snippet_3",
	}}
	for _, v := range verdicts {
		row := []string{
			v.ClusterID,
			v.Label,
			v.Product,
			v.Decision,
			fmt.Sprintf("%.4f", v.Confidence),
			v.Reason,
			fmt.Sprintf("%.4f", v.BestScore),
			fmt.Sprintf("%d", len(v.Evidence)),
		}
		for colSet, pick := range []func(EvidenceItem) string{
			func(e EvidenceItem) string { return e.Chunk.SectionLink },
			func(e EvidenceItem) string { return e.Chunk.SectionTitle },
			func(e EvidenceItem) string { return e.Snippet },
		} {
			for i := 0; i < 3; i++ {
				switch {
				case i < len(v.Evidence):
					row = append(row, pick(v.Evidence[i]))
				case colSet == 0 && i == 0:
					// Degraded mode: cite the manifest URL without
					// counting it as evidence.
					row = append(row, v.FallbackCitation)
				default:
					row = append(row, "")
				}
			}
		}
		rows = append(rows, row)
	}
	return writeCSVFile(path, rows)
}

type evidenceJSON struct {
	DocID         string  `json:"doc_id"`
	Title         string  `json:"title"`
	URL           string  `json:"url"`
	SectionTitle  string  `json:"section_title"`
	SectionLink   string  `json:"section_link"`
	PublishedDate string  `json:"published_date"`
	ChunkID       string  `json:"chunk_id"`
	Score         float64 `json:"score"`
	Snippet       string  `json:"snippet"`
}

type verdictJSON struct {
	Cluster struct {
		ID    string `json:"id"`
		Label string `json:"label"`
	} `json:"cluster"`
	Decision   string         `json:"decision"`
	Confidence float64        `json:"confidence"`
	Reason     string         `json:"reason"`
	Evidence   []evidenceJSON `json:"evidence"`
}

func evidencePayload(evidence []EvidenceItem) []evidenceJSON {
	out := make([]evidenceJSON, 0, len(evidence))
	for _, e := range evidence {
		out = append(out, evidenceJSON{
			DocID:         e.Chunk.DocID,
			Title:         e.Chunk.DocTitle,
			URL:           e.Chunk.URL,
			SectionTitle:  e.Chunk.SectionTitle,
			SectionLink:   e.Chunk.SectionLink,
			PublishedDate: e.Chunk.PublishedDate,
			ChunkID:       e.Chunk.ChunkID,
			Score:         roundScore(e.Score),
			Snippet:       e.Snippet,
		})
	}
	return out
}

func WriteVerdictsJSON(verdicts []Verdict, path string) error {
	out := make([]verdictJSON, 0, len(verdicts))
	for _, v := range verdicts {
		var row verdictJSON
		row.Cluster.ID = v.ClusterID
		row.Cluster.Label = v.Label
		row.Decision = v.Decision
		row.Confidence = v.Confidence
		row.Reason = v.Reason
		row.Evidence = evidencePayload(v.Evidence)
		out = append(out, row)
	}
	data, err := json.MarshalIndent(out, "", "  ")
	if err != nil {
		return err
	}
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	return os.WriteFile(path, append(data, '\n'), 0644)
}

func writeCSVFile(path string, rows [][]string) error {
	if err := os.MkdirAll(filepath.Dir(path), 0755); err != nil {
		return err
	}
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	w.Flush()
	if err := w.Error(); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func roundScore(v float64) float64 {
	return float64(int(v*10000+0.5)) / 10000
}
