package main

import (
	"log"
	"os"
	"strconv"
	"strings"

	"gopkg.in/yaml.v3"
)

type Config struct {
	TicketsPath  string `yaml:"tickets_path"`
	DocsManifest string `yaml:"docs_manifest_path"`
	OutputDir    string `yaml:"output_dir"`
	DBPath       string `yaml:"db_path"`

	SimilarityThreshold float64 `yaml:"similarity_threshold"`
	MaxClusters         int     `yaml:"max_clusters"`

	TopK           int    `yaml:"top_k"`
	MaxPagesPerDoc int    `yaml:"max_pages_per_doc"`
	RefreshDocs    bool   `yaml:"refresh_docs"`
	AllowedPath    string `yaml:"allowed_path_pattern"`
	ChunkSize      int    `yaml:"chunk_size"`
	ChunkOverlap   int    `yaml:"chunk_overlap"`
	ChunkMinLen    int    `yaml:"chunk_min_len"`

	UseLLM    bool `yaml:"use_llm"`    // embeddings + canonicalization + verdicting
	DeepThink bool `yaml:"deep_think"` // LLM cluster descriptions and priorities

	LLMProvider      string `yaml:"llm_provider"`
	LLMModel         string `yaml:"llm_model"`
	LLMDescribeModel string `yaml:"llm_describe_model"`
	EmbeddingModel   string `yaml:"embedding_model"`
	AnthropicAPIKey  string `yaml:"anthropic_api_key"`
	OpenAIAPIKey     string `yaml:"openai_api_key"`

	RunSchedule    string `yaml:"run_schedule"`
	SlackBotToken  string `yaml:"slack_bot_token"`
	SlackChannelID string `yaml:"slack_channel_id"`

	StopWordsPath string `yaml:"stop_words_path"`
}

func LoadConfig() Config {
	var cfg Config

	// Load from config.yaml if it exists
	configPath := "config.yaml"
	if envPath := os.Getenv("CONFIG_PATH"); envPath != "" {
		configPath = envPath
	}
	if data, err := os.ReadFile(configPath); err == nil {
		if err := yaml.Unmarshal(data, &cfg); err != nil {
			log.Fatalf("Error parsing %s: %v", configPath, err)
		}
		log.Printf("Loaded config from %s", configPath)
	}

	// Env vars override YAML values
	envOverride(&cfg.TicketsPath, "TICKETS_PATH")
	envOverride(&cfg.DocsManifest, "DOCS_MANIFEST_PATH")
	envOverride(&cfg.OutputDir, "OUTPUT_DIR")
	envOverride(&cfg.DBPath, "DB_PATH")
	envOverrideFloat(&cfg.SimilarityThreshold, "SIMILARITY_THRESHOLD")
	envOverrideInt(&cfg.MaxClusters, "MAX_CLUSTERS")
	envOverrideInt(&cfg.TopK, "TOP_K")
	envOverrideInt(&cfg.MaxPagesPerDoc, "MAX_PAGES_PER_DOC")
	envOverrideBool(&cfg.RefreshDocs, "REFRESH_DOCS")
	envOverride(&cfg.AllowedPath, "ALLOWED_PATH_PATTERN")
	envOverrideInt(&cfg.ChunkSize, "CHUNK_SIZE")
	envOverrideInt(&cfg.ChunkOverlap, "CHUNK_OVERLAP")
	envOverrideInt(&cfg.ChunkMinLen, "CHUNK_MIN_LEN")
	envOverrideBool(&cfg.UseLLM, "USE_LLM")
	envOverrideBool(&cfg.DeepThink, "DEEP_THINK")
	envOverride(&cfg.LLMProvider, "LLM_PROVIDER")
	envOverride(&cfg.LLMModel, "LLM_MODEL")
	envOverride(&cfg.LLMDescribeModel, "LLM_DESCRIBE_MODEL")
	envOverride(&cfg.EmbeddingModel, "EMBEDDING_MODEL")
	envOverride(&cfg.AnthropicAPIKey, "ANTHROPIC_API_KEY")
	envOverride(&cfg.OpenAIAPIKey, "OPENAI_API_KEY")
	envOverride(&cfg.RunSchedule, "RUN_SCHEDULE")
	envOverride(&cfg.SlackBotToken, "SLACK_BOT_TOKEN")
	envOverride(&cfg.SlackChannelID, "SLACK_CHANNEL_ID")
	envOverride(&cfg.StopWordsPath, "STOP_WORDS_PATH")

	// Defaults
	if cfg.TicketsPath == "" {
		cfg.TicketsPath = "./data/processed/salesforce_requests_unified.csv"
	}
	if cfg.DocsManifest == "" {
		cfg.DocsManifest = "./data/processed/docs_manifest.csv"
	}
	if cfg.OutputDir == "" {
		cfg.OutputDir = "./data/processed"
	}
	if cfg.DBPath == "" {
		cfg.DBPath = "./roadmap.db"
	}
	if cfg.SimilarityThreshold == 0 {
		cfg.SimilarityThreshold = 0.25
	}
	if cfg.MaxClusters == 0 {
		cfg.MaxClusters = 50
	}
	if cfg.TopK == 0 {
		cfg.TopK = 3
	}
	if cfg.MaxPagesPerDoc == 0 {
		cfg.MaxPagesPerDoc = 20
	}
	if cfg.AllowedPath == "" {
		cfg.AllowedPath = "/product-help-and-support/"
	}
	if cfg.ChunkSize == 0 {
		cfg.ChunkSize = 900
	}
	if cfg.ChunkOverlap == 0 {
		cfg.ChunkOverlap = 150
	}
	if cfg.ChunkMinLen == 0 {
		cfg.ChunkMinLen = 80
	}
	if cfg.LLMProvider == "" {
		cfg.LLMProvider = "anthropic"
	}

	// Validate
	if cfg.SimilarityThreshold < 0 || cfg.SimilarityThreshold > 1 {
		log.Fatalf("invalid similarity_threshold '%f': must be between 0 and 1", cfg.SimilarityThreshold)
	}
	if cfg.MaxClusters < 1 {
		log.Fatalf("invalid max_clusters '%d': must be >= 1", cfg.MaxClusters)
	}
	if cfg.TopK < 1 {
		log.Fatalf("invalid top_k '%d': must be >= 1", cfg.TopK)
	}
	if cfg.MaxPagesPerDoc < 1 {
		log.Fatalf("invalid max_pages_per_doc '%d': must be >= 1", cfg.MaxPagesPerDoc)
	}
	if cfg.ChunkOverlap >= cfg.ChunkSize {
		log.Fatalf("invalid chunk_overlap '%d': must be smaller than chunk_size '%d'", cfg.ChunkOverlap, cfg.ChunkSize)
	}
	switch cfg.LLMProvider {
	case "anthropic", "openai":
	default:
		log.Fatalf("llm_provider must be 'anthropic' or 'openai', got '%s'", cfg.LLMProvider)
	}
	// LLM use is optional: absent credentials the pipeline runs on
	// local heuristics, so keys are only required when a flag asks
	// for the external path.
	if cfg.UseLLM || cfg.DeepThink {
		if !cfg.LLMConfigured() {
			log.Fatalf("use_llm/deep_think require an API key for llm_provider '%s'", cfg.LLMProvider)
		}
	}
	if cfg.UseLLM && cfg.OpenAIAPIKey == "" {
		log.Printf("embeddings disabled: openai_api_key not set, dense mode needs it")
	}

	return cfg
}

func (c Config) LLMConfigured() bool {
	switch c.LLMProvider {
	case "openai":
		return c.OpenAIAPIKey != ""
	default:
		return c.AnthropicAPIKey != ""
	}
}

func (c Config) SlackConfigured() bool {
	return c.SlackBotToken != "" && c.SlackChannelID != ""
}

func envOverride(field *string, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		*field = val
	}
}

func envOverrideInt(field *int, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.Atoi(val)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideFloat(field *float64, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseFloat(val, 64)
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}

func envOverrideBool(field *bool, envKey string) {
	if val := os.Getenv(envKey); val != "" {
		parsed, err := strconv.ParseBool(strings.ToLower(val))
		if err != nil {
			log.Fatalf("invalid %s '%s': %v", envKey, val, err)
		}
		*field = parsed
	}
}
