package config

import (
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/joho/godotenv"
)

// Vector index backends.
const (
	BackendFlat   = "flat"
	BackendQdrant = "qdrant"
)

// Config holds all configuration for the application.
type Config struct {
	OpenAIAPIKey       string
	OpenAIBaseURL      string
	LLMModelName       string
	EmbeddingModelName string
	VectorSize         int
	VectorBackend      string
	IndexDir           string
	QdrantURL          string
	QdrantCollection   string
	DBPath             string
	DocumentsDir       string
	KeywordsFile       string
	DefaultTopK        int
	EvidenceThreshold  float64
	EmbedRatePerSec    float64
	WatchDocuments     bool
	APIPort            string
	LogLevel           slog.Level
	LogFormat          string
}

// Load reads configuration from environment variables and returns a Config struct.
// It applies defaults for optional fields and validates required fields.
// If a .env file exists in the current directory or one of its parents, it is loaded first.
// Environment variables already set take precedence over .env file values.
func Load() (*Config, error) {
	_ = godotenv.Load()

	wd, err := os.Getwd()
	if err == nil {
		dir := wd
		for i := 0; i < 5; i++ {
			envPath := filepath.Join(dir, ".env")
			if _, err := os.Stat(envPath); err == nil {
				_ = godotenv.Load(envPath)
				break
			}
			parent := filepath.Dir(dir)
			if parent == dir {
				break
			}
			dir = parent
		}
	}

	cfg := &Config{
		OpenAIAPIKey:       getEnv("OPENAI_API_KEY", ""),
		OpenAIBaseURL:      getEnv("OPENAI_BASE_URL", ""),
		LLMModelName:       getEnv("LLM_MODEL", "gpt-4o-mini"),
		EmbeddingModelName: getEnv("EMBEDDING_MODEL", "text-embedding-3-small"),
		VectorBackend:      strings.ToLower(getEnv("VECTOR_BACKEND", BackendFlat)),
		IndexDir:           getEnv("INDEX_DIR", "./data/index"),
		QdrantURL:          getEnv("QDRANT_URL", "http://localhost:6333"),
		QdrantCollection:   getEnv("QDRANT_COLLECTION", "documents"),
		DBPath:             getEnv("DB_PATH", "./data/docqa.db"),
		DocumentsDir:       getEnv("DOCUMENTS_DIR", "./documents"),
		KeywordsFile:       getEnv("KEYWORDS_FILE", ""),
		APIPort:            getEnv("API_PORT", "8000"),
		LogFormat:          strings.ToLower(getEnv("LOG_FORMAT", "text")),
	}

	if cfg.OpenAIAPIKey == "" {
		return nil, fmt.Errorf("OPENAI_API_KEY is required")
	}

	if cfg.VectorSize, err = getPositiveInt("VECTOR_SIZE", 1536); err != nil {
		return nil, err
	}
	if cfg.DefaultTopK, err = getPositiveInt("DEFAULT_TOP_K", 5); err != nil {
		return nil, err
	}

	cfg.EvidenceThreshold, err = strconv.ParseFloat(getEnv("EVIDENCE_THRESHOLD", "0.05"), 64)
	if err != nil {
		return nil, fmt.Errorf("EVIDENCE_THRESHOLD must be a valid number: %w", err)
	}
	if cfg.EvidenceThreshold < 0 || cfg.EvidenceThreshold > 1 {
		return nil, fmt.Errorf("EVIDENCE_THRESHOLD must be between 0 and 1")
	}

	cfg.EmbedRatePerSec, err = strconv.ParseFloat(getEnv("EMBED_RATE_PER_SEC", "2"), 64)
	if err != nil {
		return nil, fmt.Errorf("EMBED_RATE_PER_SEC must be a valid number: %w", err)
	}

	cfg.WatchDocuments, err = strconv.ParseBool(getEnv("WATCH_DOCUMENTS", "true"))
	if err != nil {
		return nil, fmt.Errorf("WATCH_DOCUMENTS must be a boolean: %w", err)
	}

	switch cfg.VectorBackend {
	case BackendFlat, BackendQdrant:
	default:
		return nil, fmt.Errorf("VECTOR_BACKEND must be %q or %q, got %q", BackendFlat, BackendQdrant, cfg.VectorBackend)
	}

	if err := cfg.LogLevel.UnmarshalText([]byte(getEnv("LOG_LEVEL", "info"))); err != nil {
		return nil, fmt.Errorf("LOG_LEVEL is invalid: %w", err)
	}

	for _, dir := range []string{filepath.Dir(cfg.DBPath), cfg.IndexDir, cfg.DocumentsDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return nil, fmt.Errorf("failed to create data directory: %w", err)
		}
	}

	return cfg, nil
}

// getEnv gets an environment variable or returns a default value.
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getPositiveInt(key string, defaultValue int) (int, error) {
	raw := getEnv(key, "")
	if raw == "" {
		return defaultValue, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, fmt.Errorf("%s must be a valid integer: %w", key, err)
	}
	if n <= 0 {
		return 0, fmt.Errorf("%s must be greater than 0", key)
	}
	return n, nil
}
