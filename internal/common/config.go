package common

import (
	"os"
	"strconv"
	"time"
)

// Config holds all application configuration
type Config struct {
	Database     DatabaseConfig
	Server       ServerConfig
	Catalog      CatalogConfig
	Extraction   ModelConfig
	Verification ModelConfig
	Pipeline     PipelineConfig
}

// DatabaseConfig holds database-related configuration
type DatabaseConfig struct {
	DSN             string
	MaxConns        int32
	MinConns        int32
	MaxConnLifetime time.Duration
	MaxConnIdleTime time.Duration
	DialTimeout     time.Duration
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Addr string
}

// CatalogConfig points at the biomarker standards source.
type CatalogConfig struct {
	SQLitePath string
}

// ModelConfig holds configuration for one external model boundary.
type ModelConfig struct {
	BaseURL string
	APIKey  string
	Model   string
	Effort  string // thinking level (extraction) / reasoning effort (verification)
	Timeout time.Duration
}

// PipelineConfig holds chunking, concurrency and retry knobs.
type PipelineConfig struct {
	ChunkPageThreshold int // documents above this page count are chunked
	PagesPerChunk      int
	PageConcurrency    int
	MaxRetries         int
	RetryBackoff       time.Duration
	Workers            int
	ProcessTimeout     time.Duration
}

// LoadConfig loads configuration from environment variables
func LoadConfig() *Config {
	return &Config{
		Database: DatabaseConfig{
			DSN:             getEnv("DB_URL", ""),
			MaxConns:        getEnvAsInt32("DB_MAX_CONNS", 20),
			MinConns:        getEnvAsInt32("DB_MIN_CONNS", 5),
			MaxConnLifetime: getEnvAsDuration("DB_MAX_CONN_LIFETIME", 30*time.Minute),
			MaxConnIdleTime: getEnvAsDuration("DB_MAX_CONN_IDLE_TIME", 5*time.Minute),
			DialTimeout:     getEnvAsDuration("DB_DIAL_TIMEOUT", 3*time.Second),
		},
		Server: ServerConfig{
			Addr: getEnv("HTTP_ADDR", ":8080"),
		},
		Catalog: CatalogConfig{
			SQLitePath: getEnv("CATALOG_DB", "./data/biomarker_standards.db"),
		},
		Extraction: ModelConfig{
			BaseURL: getEnv("GEMINI_BASE_URL", "https://generativelanguage.googleapis.com/v1beta"),
			APIKey:  getEnv("GEMINI_API_KEY", ""),
			Model:   getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Effort:  getEnv("GEMINI_THINKING_LEVEL", "medium"),
			Timeout: getEnvAsDuration("GEMINI_TIMEOUT", 120*time.Second),
		},
		Verification: ModelConfig{
			BaseURL: getEnv("OPENAI_BASE_URL", "https://api.openai.com/v1"),
			APIKey:  getEnv("OPENAI_API_KEY", ""),
			Model:   getEnv("OPENAI_MODEL", "gpt-5-mini"),
			Effort:  getEnv("OPENAI_REASONING_EFFORT", "low"),
			Timeout: getEnvAsDuration("OPENAI_TIMEOUT", 90*time.Second),
		},
		Pipeline: PipelineConfig{
			ChunkPageThreshold: getEnvAsInt("CHUNK_PAGE_THRESHOLD", 3),
			PagesPerChunk:      getEnvAsInt("PAGES_PER_CHUNK", 1),
			PageConcurrency:    getEnvAsInt("PAGE_CONCURRENCY", 3),
			MaxRetries:         getEnvAsInt("MODEL_MAX_RETRIES", 2),
			RetryBackoff:       getEnvAsDuration("MODEL_RETRY_BACKOFF", 2*time.Second),
			Workers:            getEnvAsInt("PIPELINE_WORKERS", 4),
			ProcessTimeout:     getEnvAsDuration("PIPELINE_TIMEOUT", 10*time.Minute),
		},
	}
}

// Helper functions for environment variable parsing
func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.Atoi(value); err == nil {
			return intVal
		}
	}
	return defaultValue
}

func getEnvAsInt32(key string, defaultValue int32) int32 {
	if value := os.Getenv(key); value != "" {
		if intVal, err := strconv.ParseInt(value, 10, 32); err == nil {
			return int32(intVal)
		}
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	if value := os.Getenv(key); value != "" {
		if duration, err := time.ParseDuration(value); err == nil {
			return duration
		}
	}
	return defaultValue
}

// ValidateConfig validates the loaded configuration
func (c *Config) Validate() error {
	if c.Database.DSN == "" {
		return NewAppError("CONFIG_ERROR", "DB_URL is required", ErrInvalidInput)
	}
	if c.Extraction.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "GEMINI_API_KEY is required", ErrInvalidInput)
	}
	if c.Verification.APIKey == "" {
		return NewAppError("CONFIG_ERROR", "OPENAI_API_KEY is required", ErrInvalidInput)
	}
	if c.Server.Addr == "" {
		return NewAppError("CONFIG_ERROR", "HTTP_ADDR is required", ErrInvalidInput)
	}
	return nil
}
