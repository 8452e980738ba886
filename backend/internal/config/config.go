package config

import (
	"os"
	"strconv"
	"strings"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server    ServerConfig
	Taxonomy  TaxonomyConfig
	Decision  DecisionConfig
	Translate TranslateConfig
	Provider  ProviderConfig
	Analyst   AnalystConfig
	Pipeline  PipelineConfig
	Cache     CacheConfig
	Logging   LoggingConfig
	Metrics   MetricsConfig
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host           string
	Port           int
	ReadTimeout    time.Duration
	WriteTimeout   time.Duration
	MaxRequestSize int64
}

// TaxonomyConfig holds taxonomy loading settings.
type TaxonomyConfig struct {
	Directory    string
	WatchChanges bool
}

// DecisionConfig holds flagging policy settings.
type DecisionConfig struct {
	PolicyPath   string
	WatchChanges bool
}

// TranslateConfig selects the translation backend. Backend is "phrasebook"
// or "llm"; PhrasebookPath optionally extends the built-in phrasebook.
type TranslateConfig struct {
	Backend        string
	PhrasebookPath string
}

// ProviderConfig holds configuration for the LLM provider used by the
// llm translation backend and the analyst.
type ProviderConfig struct {
	Type    string // openai, ollama
	BaseURL string
	APIKey  string
	Model   string
	Timeout time.Duration
}

// AnalystConfig enables the LLM second-opinion reviewer.
type AnalystConfig struct {
	Enabled bool
	Model   string
}

// PipelineConfig holds per-message processing settings.
type PipelineConfig struct {
	TimeBudget time.Duration
}

// CacheConfig holds verdict cache settings.
type CacheConfig struct {
	Enabled bool
	MaxSize int
	TTL     time.Duration
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level     string // debug, info, warn, error
	AuditPath string // JSONL audit log file, empty for stdout
}

// MetricsConfig holds metrics settings.
type MetricsConfig struct {
	Enabled  bool
	Endpoint string
}

// Load reads configuration from environment variables.
func Load() *Config {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "0.0.0.0"),
			Port:           getEnvInt("SERVER_PORT", 8080),
			ReadTimeout:    time.Duration(getEnvInt("SERVER_READ_TIMEOUT_SEC", 30)) * time.Second,
			WriteTimeout:   time.Duration(getEnvInt("SERVER_WRITE_TIMEOUT_SEC", 60)) * time.Second,
			MaxRequestSize: int64(getEnvInt("SERVER_MAX_REQUEST_SIZE", 1*1024*1024)), // 1MB default
		},
		Taxonomy: TaxonomyConfig{
			Directory:    getEnv("TAXONOMY_DIR", "configs/taxonomy"),
			WatchChanges: getEnvBool("TAXONOMY_WATCH_CHANGES", true),
		},
		Decision: DecisionConfig{
			PolicyPath:   getEnv("DECISION_POLICY_PATH", ""),
			WatchChanges: getEnvBool("DECISION_WATCH_CHANGES", true),
		},
		Translate: TranslateConfig{
			Backend:        getEnv("TRANSLATE_BACKEND", "phrasebook"),
			PhrasebookPath: getEnv("TRANSLATE_PHRASEBOOK_PATH", ""),
		},
		Analyst: AnalystConfig{
			Enabled: getEnvBool("ANALYST_ENABLED", false),
			Model:   getEnv("ANALYST_MODEL", ""),
		},
		Pipeline: PipelineConfig{
			TimeBudget: time.Duration(getEnvInt("PIPELINE_TIME_BUDGET_MS", 30000)) * time.Millisecond,
		},
		Cache: CacheConfig{
			Enabled: getEnvBool("CACHE_ENABLED", true),
			MaxSize: getEnvInt("CACHE_MAX_SIZE", 1000),
			TTL:     time.Duration(getEnvInt("CACHE_TTL_SEC", 300)) * time.Second,
		},
		Logging: LoggingConfig{
			Level:     getEnv("LOG_LEVEL", "info"),
			AuditPath: getEnv("AUDIT_LOG_PATH", ""),
		},
		Metrics: MetricsConfig{
			Enabled:  getEnvBool("METRICS_ENABLED", true),
			Endpoint: getEnv("METRICS_ENDPOINT", "/metrics"),
		},
	}

	cfg.Provider = ProviderConfig{
		Type:    getEnv("PROVIDER_TYPE", ""),
		BaseURL: getEnv("PROVIDER_URL", ""),
		APIKey:  getEnv("PROVIDER_KEY", ""),
		Model:   getEnv("PROVIDER_MODEL", ""),
		Timeout: time.Duration(getEnvInt("PROVIDER_TIMEOUT_SEC", 60)) * time.Second,
	}
	if cfg.Provider.Type == "" && cfg.Provider.BaseURL != "" {
		cfg.Provider.Type = detectProviderType(cfg.Provider.BaseURL)
	}
	if cfg.Analyst.Model == "" {
		cfg.Analyst.Model = cfg.Provider.Model
	}

	return cfg
}

// detectProviderType attempts to identify the provider from its URL.
func detectProviderType(url string) string {
	switch {
	case strings.Contains(url, "localhost") || strings.Contains(url, "127.0.0.1") || strings.Contains(url, "ollama"):
		return "ollama"
	default:
		return "openai" // OpenAI-compatible
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvBool(key string, defaultValue bool) bool {
	if value := os.Getenv(key); value != "" {
		if boolVal, err := strconv.ParseBool(value); err == nil {
			return boolVal
		}
	}
	return defaultValue
}
