package main

import (
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"
	"time"
)

const usage = `Usage: roadmap <command> [flags]

Commands:
  cluster    group tickets into ranked requirement clusters
  detect     classify clusters as shipped using documentation evidence
  run        cluster then detect in one pass
  schedule   run the pipeline on the configured cron schedule
`

func main() {
	if len(os.Args) < 2 {
		fmt.Fprint(os.Stderr, usage)
		os.Exit(2)
	}
	command := os.Args[1]
	args := os.Args[2:]

	cfg := LoadConfig()

	db, err := InitDB(cfg.DBPath)
	if err != nil {
		log.Fatalf("Failed to init database: %v", err)
	}
	defer db.Close()

	switch command {
	case "cluster":
		applyClusterFlags(&cfg, args)
		runID := newRunID(time.Now())
		_, _, summary, err := RunCluster(cfg, db, runID)
		if err != nil {
			log.Fatalf("Cluster run failed: %v", err)
		}
		fmt.Println(FormatRunSummary(summary))

	case "detect":
		applyDetectFlags(&cfg, args)
		clusters, err := LoadRankedClusters(filepath.Join(cfg.OutputDir, "salesforce_semantic_clusters.csv"))
		if err != nil {
			log.Fatalf("No cluster file found. Run 'roadmap cluster' first: %v", err)
		}
		runID := newRunID(time.Now())
		summary := &RunSummary{RunID: runID, Clusters: len(clusters)}
		if _, err := RunDetect(cfg, db, runID, clusters, summary); err != nil {
			log.Fatalf("Detect run failed: %v", err)
		}
		fmt.Println(FormatRunSummary(summary))

	case "run":
		applyRunFlags(&cfg, args)
		summary, err := runFullPipeline(cfg, db)
		if err != nil {
			log.Fatalf("Pipeline run failed: %v", err)
		}
		fmt.Println(FormatRunSummary(summary))

	case "schedule":
		log.Println("Starting roadmap pipeline scheduler...")
		StartRunScheduler(cfg, db)

	default:
		fmt.Fprintf(os.Stderr, "Unknown command %q\n\n%s", command, usage)
		os.Exit(2)
	}
}

func applyClusterFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("cluster", flag.ExitOnError)
	threshold := fs.Float64("threshold", cfg.SimilarityThreshold, "TF-IDF cosine similarity threshold (0-1); lower = fewer, larger clusters")
	maxClusters := fs.Int("max-clusters", cfg.MaxClusters, "hard cap on number of clusters")
	useLLM := fs.Bool("use-llm", cfg.UseLLM, "use the LLM for canonicalization and embeddings")
	deepThink := fs.Bool("deep-think", cfg.DeepThink, "use the LLM to generate cluster descriptions and priority labels")
	fs.Parse(args)
	cfg.SimilarityThreshold = *threshold
	cfg.MaxClusters = *maxClusters
	cfg.UseLLM = *useLLM
	cfg.DeepThink = *deepThink
}

func applyDetectFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("detect", flag.ExitOnError)
	topK := fs.Int("top-k", cfg.TopK, "evidence chunks kept per cluster")
	maxPages := fs.Int("max-pages-per-doc", cfg.MaxPagesPerDoc, "crawl page cap per documentation seed")
	refresh := fs.Bool("refresh-docs", cfg.RefreshDocs, "re-fetch cached documentation pages")
	useLLM := fs.Bool("use-llm", cfg.UseLLM, "use the LLM for verdicting")
	fs.Parse(args)
	cfg.TopK = *topK
	cfg.MaxPagesPerDoc = *maxPages
	cfg.RefreshDocs = *refresh
	cfg.UseLLM = *useLLM
}

func applyRunFlags(cfg *Config, args []string) {
	fs := flag.NewFlagSet("run", flag.ExitOnError)
	threshold := fs.Float64("threshold", cfg.SimilarityThreshold, "TF-IDF cosine similarity threshold (0-1)")
	maxClusters := fs.Int("max-clusters", cfg.MaxClusters, "hard cap on number of clusters")
	topK := fs.Int("top-k", cfg.TopK, "evidence chunks kept per cluster")
	maxPages := fs.Int("max-pages-per-doc", cfg.MaxPagesPerDoc, "crawl page cap per documentation seed")
	refresh := fs.Bool("refresh-docs", cfg.RefreshDocs, "re-fetch cached documentation pages")
	useLLM := fs.Bool("use-llm", cfg.UseLLM, "use the LLM for canonicalization, embeddings and verdicting")
	deepThink := fs.Bool("deep-think", cfg.DeepThink, "use the LLM for cluster descriptions and priorities")
	fs.Parse(args)
	cfg.SimilarityThreshold = *threshold
	cfg.MaxClusters = *maxClusters
	cfg.TopK = *topK
	cfg.MaxPagesPerDoc = *maxPages
	cfg.RefreshDocs = *refresh
	cfg.UseLLM = *useLLM
	cfg.DeepThink = *deepThink
}
