package main

import (
	"os"
	"path/filepath"
	"testing"
)

// isolateConfig points CONFIG_PATH at a temp file (or a nonexistent one)
// and clears the env overrides the test does not set itself.
func isolateConfig(t *testing.T, yaml string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if yaml != "" {
		if err := os.WriteFile(path, []byte(yaml), 0644); err != nil {
			t.Fatalf("writing config: %v", err)
		}
	}
	t.Setenv("CONFIG_PATH", path)
	for _, key := range []string{
		"TICKETS_PATH", "DOCS_MANIFEST_PATH", "OUTPUT_DIR", "DB_PATH",
		"SIMILARITY_THRESHOLD", "MAX_CLUSTERS", "TOP_K", "MAX_PAGES_PER_DOC",
		"REFRESH_DOCS", "ALLOWED_PATH_PATTERN", "CHUNK_SIZE", "CHUNK_OVERLAP",
		"CHUNK_MIN_LEN", "USE_LLM", "DEEP_THINK", "LLM_PROVIDER", "LLM_MODEL",
		"LLM_DESCRIBE_MODEL", "EMBEDDING_MODEL", "ANTHROPIC_API_KEY",
		"OPENAI_API_KEY", "RUN_SCHEDULE", "SLACK_BOT_TOKEN", "SLACK_CHANNEL_ID",
		"STOP_WORDS_PATH",
	} {
		t.Setenv(key, "")
	}
}

func TestLoadConfigDefaults(t *testing.T) {
	isolateConfig(t, "")
	cfg := LoadConfig()
	if cfg.SimilarityThreshold != 0.25 {
		t.Fatalf("similarity_threshold default = %v", cfg.SimilarityThreshold)
	}
	if cfg.MaxClusters != 50 || cfg.TopK != 3 || cfg.MaxPagesPerDoc != 20 {
		t.Fatalf("count defaults wrong: %+v", cfg)
	}
	if cfg.AllowedPath != "/product-help-and-support/" {
		t.Fatalf("allowed_path default = %q", cfg.AllowedPath)
	}
	if cfg.ChunkSize != 900 || cfg.ChunkOverlap != 150 || cfg.ChunkMinLen != 80 {
		t.Fatalf("chunk defaults wrong: %+v", cfg)
	}
	if cfg.LLMProvider != "anthropic" {
		t.Fatalf("llm_provider default = %q", cfg.LLMProvider)
	}
	if cfg.UseLLM || cfg.DeepThink || cfg.RefreshDocs {
		t.Fatalf("llm/refresh flags should default off")
	}
	if cfg.DBPath != "./roadmap.db" {
		t.Fatalf("db_path default = %q", cfg.DBPath)
	}
}

func TestLoadConfigFromYAML(t *testing.T) {
	isolateConfig(t, `
tickets_path: /data/tickets.csv
similarity_threshold: 0.4
max_clusters: 10
allowed_path_pattern: /help/
refresh_docs: true
`)
	cfg := LoadConfig()
	if cfg.TicketsPath != "/data/tickets.csv" {
		t.Fatalf("tickets_path = %q", cfg.TicketsPath)
	}
	if cfg.SimilarityThreshold != 0.4 || cfg.MaxClusters != 10 {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	if cfg.AllowedPath != "/help/" || !cfg.RefreshDocs {
		t.Fatalf("yaml values not applied: %+v", cfg)
	}
	// Unset fields still get defaults.
	if cfg.TopK != 3 || cfg.ChunkSize != 900 {
		t.Fatalf("defaults lost when yaml present: %+v", cfg)
	}
}

func TestLoadConfigEnvOverridesYAML(t *testing.T) {
	isolateConfig(t, "similarity_threshold: 0.4\nmax_clusters: 10\n")
	t.Setenv("SIMILARITY_THRESHOLD", "0.6")
	t.Setenv("MAX_CLUSTERS", "7")
	t.Setenv("USE_LLM", "true")
	t.Setenv("ANTHROPIC_API_KEY", "test-key")
	cfg := LoadConfig()
	if cfg.SimilarityThreshold != 0.6 || cfg.MaxClusters != 7 {
		t.Fatalf("env should beat yaml: %+v", cfg)
	}
	if !cfg.UseLLM || cfg.AnthropicAPIKey != "test-key" {
		t.Fatalf("env llm settings not applied: %+v", cfg)
	}
	if !cfg.LLMConfigured() {
		t.Fatalf("anthropic key should configure the llm")
	}
}

func TestLLMConfigured(t *testing.T) {
	if (Config{LLMProvider: "anthropic"}).LLMConfigured() {
		t.Fatalf("no key should mean unconfigured")
	}
	if !(Config{LLMProvider: "anthropic", AnthropicAPIKey: "k"}).LLMConfigured() {
		t.Fatalf("anthropic key should configure")
	}
	if (Config{LLMProvider: "openai", AnthropicAPIKey: "k"}).LLMConfigured() {
		t.Fatalf("openai provider needs the openai key")
	}
	if !(Config{LLMProvider: "openai", OpenAIAPIKey: "k"}).LLMConfigured() {
		t.Fatalf("openai key should configure")
	}
}

func TestSlackConfigured(t *testing.T) {
	if (Config{SlackBotToken: "xoxb"}).SlackConfigured() {
		t.Fatalf("token without channel should be unconfigured")
	}
	if !(Config{SlackBotToken: "xoxb", SlackChannelID: "C1"}).SlackConfigured() {
		t.Fatalf("token and channel should configure slack")
	}
}
