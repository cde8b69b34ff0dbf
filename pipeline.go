package main

import (
	"database/sql"
	"fmt"
	"log"
	"path/filepath"
	"strings"
	"time"
)

// RunSummary aggregates the counters a full run reports, both to the
// log and to the optional Slack post.
type RunSummary struct {
	RunID        string
	Tickets      int
	Clusters     int
	CorpusChunks int
	PagesFetched int
	CacheHits    int
	Shipped      int
	Possibly     int
	NotShipped   int
	Warnings     []string
	TopClusters  []Cluster
}

func newRunID(now time.Time) string {
	return now.UTC().Format("20060102-150405")
}

// stopWordSets resolves the clustering and retrieval stop-word sets,
// merging the optional extension file into both.
func stopWordSets(cfg Config) (clusterStop, retrievalStop map[string]bool, err error) {
	clusterStop, retrievalStop = clusterStopWords, retrievalStopWords
	if cfg.StopWordsPath == "" {
		return clusterStop, retrievalStop, nil
	}
	clusterStop, err = LoadExtraStopWords(cfg.StopWordsPath, clusterStopWords)
	if err != nil {
		return nil, nil, err
	}
	retrievalStop, err = LoadExtraStopWords(cfg.StopWordsPath, retrievalStopWords)
	if err != nil {
		return nil, nil, err
	}
	return clusterStop, retrievalStop, nil
}

// RunCluster executes the clustering half of the pipeline: ingest,
// canonicalize, vectorize, cluster, summarize, rank, persist.
func RunCluster(cfg Config, db *sql.DB, runID string) ([]Cluster, []TicketRecord, *RunSummary, error) {
	summary := &RunSummary{RunID: runID}

	tickets, err := LoadTickets(cfg.TicketsPath)
	if err != nil {
		return nil, nil, summary, fmt.Errorf("loading tickets: %w", err)
	}
	summary.Tickets = len(tickets)
	log.Printf("cluster run=%s tickets=%d threshold=%.2f max_clusters=%d", runID, len(tickets), cfg.SimilarityThreshold, cfg.MaxClusters)

	clusterStop, _, err := stopWordSets(cfg)
	if err != nil {
		return nil, nil, summary, err
	}

	llm := NewLLMClient(cfg)
	for i := range tickets {
		canonical, capability, vectorText := canonicalLocal(tickets[i], clusterStop)
		if cfg.UseLLM && llm != nil {
			if c, cap, err := llm.Canonicalize(tickets[i], clusterStop); err != nil {
				log.Printf("cluster canonicalize fallback ticket=%s err=%v", tickets[i].RequestID, err)
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("canonicalize %s: %v", tickets[i].RequestID, err))
			} else {
				canonical, capability = c, cap
			}
		}
		tickets[i].CanonicalRequirement = canonical
		tickets[i].Capability = capability
		tickets[i].VectorText = vectorText
		if (i+1)%100 == 0 {
			log.Printf("cluster normalized tickets=%d/%d", i+1, len(tickets))
		}
	}

	vectors := ticketVectors{}
	if cfg.UseLLM && cfg.OpenAIAPIKey != "" && len(tickets) > 0 {
		texts := make([]string, len(tickets))
		for i, t := range tickets {
			texts[i] = embeddingText(t)
		}
		dense, err := fetchEmbeddings(cfg.OpenAIAPIKey, cfg.EmbeddingModel, texts)
		if err != nil {
			log.Printf("cluster embeddings fallback err=%v", err)
			summary.Warnings = append(summary.Warnings, fmt.Sprintf("embeddings: %v", err))
		} else {
			vectors.dense = dense
		}
	}
	if vectors.dense == nil {
		vectors.sparse = buildTFIDFVectors(tickets, clusterStop)
	}

	groups := buildClusters(tickets, vectors, cfg.SimilarityThreshold, cfg.MaxClusters)
	clusters := summarizeClusters(tickets, groups, clusterStop)
	summary.Clusters = len(clusters)

	if cfg.DeepThink && llm != nil {
		for i := range clusters {
			members := make([]TicketRecord, 0, len(clusters[i].MemberIndexes))
			for _, idx := range clusters[i].MemberIndexes {
				members = append(members, tickets[idx])
			}
			desc, label, reason, err := llm.DescribeCluster(clusters[i], members)
			if err != nil {
				// Local description and priority stay in place.
				log.Printf("cluster describe fallback cluster=%s err=%v", clusters[i].ID, err)
				summary.Warnings = append(summary.Warnings, fmt.Sprintf("describe %s: %v", clusters[i].ID, err))
				continue
			}
			if desc != "" {
				clusters[i].Description = desc
			}
			clusters[i].PriorityLabel = label
			clusters[i].PriorityReason = reason
			if (i+1)%10 == 0 {
				log.Printf("cluster described clusters=%d/%d", i+1, len(clusters))
			}
		}
	}

	assignments := buildAssignments(tickets, clusters)

	if err := WriteClustersCSV(clusters, filepath.Join(cfg.OutputDir, "salesforce_semantic_clusters.csv")); err != nil {
		return nil, nil, summary, fmt.Errorf("writing clusters: %w", err)
	}
	if err := WriteAssignmentsCSV(assignments, filepath.Join(cfg.OutputDir, "salesforce_semantic_assignments.csv")); err != nil {
		return nil, nil, summary, fmt.Errorf("writing assignments: %w", err)
	}
	if db != nil {
		if err := SaveClusters(db, runID, clusters); err != nil {
			return nil, nil, summary, fmt.Errorf("saving clusters: %w", err)
		}
		if err := SaveAssignments(db, runID, assignments); err != nil {
			return nil, nil, summary, fmt.Errorf("saving assignments: %w", err)
		}
	}

	top := len(clusters)
	if top > 5 {
		top = 5
	}
	summary.TopClusters = append([]Cluster(nil), clusters[:top]...)

	log.Printf("cluster done run=%s clusters=%d assignments=%d", runID, len(clusters), len(assignments))
	return clusters, tickets, summary, nil
}

// RunDetect executes the evidence half: crawl, chunk, retrieve,
// verdict, persist. The clusters argument may come from RunCluster in
// the same process or be reloaded from the previous cluster output.
func RunDetect(cfg Config, db *sql.DB, runID string, clusters []Cluster, summary *RunSummary) ([]Verdict, error) {
	if summary == nil {
		summary = &RunSummary{RunID: runID}
	}

	seeds, err := LoadDocSeeds(cfg.DocsManifest)
	if err != nil {
		return nil, fmt.Errorf("loading docs manifest: %w", err)
	}

	var cache PageCache = noopPageCache{}
	if db != nil {
		cache = NewPageCache(db)
	}
	crawler := NewCrawler(externalHTTPClient, cache, cfg.MaxPagesPerDoc, cfg.AllowedPath, cfg.RefreshDocs)

	_, retrievalStop, err := stopWordSets(cfg)
	if err != nil {
		return nil, err
	}

	corpus, crawlResult := BuildCorpus(crawler, seeds, cfg.ChunkSize, cfg.ChunkOverlap, cfg.ChunkMinLen)
	summary.CorpusChunks = len(corpus)
	summary.PagesFetched = crawlResult.PagesFetched
	summary.CacheHits = crawlResult.CacheHits
	summary.Warnings = append(summary.Warnings, crawlResult.Errors...)
	log.Printf("detect run=%s seeds=%d chunks=%d fetched=%d cache_hits=%d", runID, len(seeds), len(corpus), crawlResult.PagesFetched, crawlResult.CacheHits)

	var classifier VerdictClassifier
	if cfg.UseLLM {
		if llm := NewLLMClient(cfg); llm != nil {
			classifier = llm
		}
	}

	verdicts := DetectShipped(clusters, corpus, seeds, cfg.TopK, classifier, retrievalStop)
	for _, v := range verdicts {
		switch v.Decision {
		case DecisionShipped:
			summary.Shipped++
		case DecisionPossiblyShipped:
			summary.Possibly++
		case DecisionNotShipped:
			summary.NotShipped++
		}
	}

	if err := WriteVerdictsCSV(verdicts, filepath.Join(cfg.OutputDir, "shipped_detection_results.csv")); err != nil {
		return nil, fmt.Errorf("writing verdicts csv: %w", err)
	}
	if err := WriteVerdictsJSON(verdicts, filepath.Join(cfg.OutputDir, "shipped_detection_results.json")); err != nil {
		return nil, fmt.Errorf("writing verdicts json: %w", err)
	}
	if db != nil {
		if err := SaveVerdicts(db, runID, verdicts); err != nil {
			return nil, fmt.Errorf("saving verdicts: %w", err)
		}
	}

	log.Printf("detect done run=%s verdicts=%d shipped=%d possibly=%d not=%d", runID, len(verdicts), summary.Shipped, summary.Possibly, summary.NotShipped)
	return verdicts, nil
}

// noopPageCache always misses; it covers the detect-without-db path.
type noopPageCache struct{}

func (noopPageCache) Get(string) (cachedPage, bool, error) { return cachedPage{}, false, nil }
func (noopPageCache) Put(string, cachedPage) error         { return nil }

// FormatRunSummary renders the counters as the run report line block.
func FormatRunSummary(s *RunSummary) string {
	lines := []string{
		fmt.Sprintf("Run %s: %d tickets → %d clusters", s.RunID, s.Tickets, s.Clusters),
		fmt.Sprintf("Corpus: %d chunks (%d pages fetched, %d cache hits)", s.CorpusChunks, s.PagesFetched, s.CacheHits),
		fmt.Sprintf("Verdicts: %d shipped, %d possibly, %d not shipped", s.Shipped, s.Possibly, s.NotShipped),
	}
	for i, c := range s.TopClusters {
		lines = append(lines, fmt.Sprintf("%d. [%s] %s (score %.2f, %s)", i+1, c.ID, c.Label, c.RankScore, c.PriorityLabel))
	}
	if len(s.Warnings) > 0 {
		shown := s.Warnings
		if len(shown) > 5 {
			shown = shown[:5]
		}
		lines = append(lines, fmt.Sprintf("Warnings (%d):", len(s.Warnings)))
		lines = append(lines, shown...)
	}
	return strings.Join(lines, "\n")
}
