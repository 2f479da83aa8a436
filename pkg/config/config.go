package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	// Load environment variables from .env files when present.
	_ "github.com/joho/godotenv/autoload"
)

// Config holds all application configuration
type Config struct {
	Server        ServerConfig
	Database      DatabaseConfig
	Observability ObservabilityConfig
	Gemini        GeminiConfig
	Pipeline      PipelineConfig
	Storage       StorageConfig
}

// GeminiConfig enables AI enrichment when APIKey is set.
type GeminiConfig struct {
	APIKey            string
	Model             string
	Timeout           time.Duration
	RequestsPerSecond float64
	CacheSize         int
}

// Enabled reports whether enrichment is configured.
func (c GeminiConfig) Enabled() bool { return c.APIKey != "" }

type ServerConfig struct {
	Host           string
	Port           int
	AllowedOrigins []string
	MaxUploadMB    int
	RequestTimeout time.Duration
}

type DatabaseConfig struct {
	Enabled  bool
	Host     string
	Port     int
	User     string
	Password string
	Database string
	SSLMode  string
}

type ObservabilityConfig struct {
	MetricsEnabled bool
}

// PipelineConfig tunes extraction.
type PipelineConfig struct {
	MaxPages             int
	ProfilesPath         string
	DiagnosticLogPath    string
	LowConfidence        float64
	EnrichThreshold      float64
	DiagnosticRotateCron string
	TempDir              string
}

// StorageConfig controls the upload spool.
type StorageConfig struct {
	LocalPath string
	Retain    bool
	RetainFor time.Duration
	PurgeCron string
}

// Load reads configuration from environment variables
func Load() (*Config, error) {
	cfg := &Config{
		Server: ServerConfig{
			Host:           getEnv("SERVER_HOST", "localhost"),
			Port:           getEnvAsInt("SERVER_PORT", 8080),
			AllowedOrigins: getEnvAsList("CORS_ALLOWED_ORIGINS", []string{"*"}),
			MaxUploadMB:    getEnvAsInt("SERVER_MAX_UPLOAD_MB", 25),
			RequestTimeout: getEnvAsDuration("SERVER_REQUEST_TIMEOUT", 2*time.Minute),
		},
		Database: DatabaseConfig{
			Enabled:  getEnvAsBool("PERSIST_ENABLED", false),
			Host:     getEnv("POSTGRES_HOST", "localhost"),
			Port:     getEnvAsInt("POSTGRES_PORT", 5432),
			User:     getEnv("POSTGRES_USER", "postgres"),
			Password: getEnv("POSTGRES_PASSWORD", "postgres"),
			Database: getEnv("POSTGRES_DB", "statements"),
			SSLMode:  getEnv("POSTGRES_SSLMODE", "disable"),
		},
		Observability: ObservabilityConfig{
			MetricsEnabled: getEnvAsBool("METRICS_ENABLED", true),
		},
		Gemini: GeminiConfig{
			APIKey:            getEnv("GEMINI_API_KEY", ""),
			Model:             getEnv("GEMINI_MODEL", "gemini-2.5-flash"),
			Timeout:           getEnvAsDuration("GEMINI_TIMEOUT", 8*time.Second),
			RequestsPerSecond: getEnvAsFloat("GEMINI_REQUESTS_PER_SECOND", 2),
			CacheSize:         getEnvAsInt("GEMINI_CACHE_SIZE", 10000),
		},
		Pipeline: PipelineConfig{
			MaxPages:             getEnvAsInt("PIPELINE_MAX_PAGES", 200),
			ProfilesPath:         getEnv("PIPELINE_BANK_PROFILES", ""),
			DiagnosticLogPath:    getEnv("PIPELINE_DIAGNOSTIC_LOG", "diagnostics.csv"),
			LowConfidence:        getEnvAsFloat("PIPELINE_LOW_CONFIDENCE", 0.6),
			EnrichThreshold:      getEnvAsFloat("PIPELINE_ENRICH_THRESHOLD", 0.5),
			DiagnosticRotateCron: getEnv("PIPELINE_DIAGNOSTIC_ROTATE_CRON", "0 0 * * *"),
			TempDir:              getEnv("PIPELINE_TEMP_DIR", ""),
		},
		Storage: StorageConfig{
			LocalPath: getEnv("STORAGE_LOCAL_PATH", "./uploads"),
			Retain:    getEnvAsBool("STORAGE_RETAIN_UPLOADS", false),
			RetainFor: getEnvAsDuration("STORAGE_RETAIN_FOR", 24*time.Hour),
			PurgeCron: getEnv("STORAGE_PURGE_CRON", "30 * * * *"),
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks value ranges.
func (c *Config) Validate() error {
	var errs []error
	if c.Server.Port <= 0 || c.Server.Port > 65535 {
		errs = append(errs, fmt.Errorf("SERVER_PORT out of range: %d", c.Server.Port))
	}
	if c.Server.MaxUploadMB <= 0 {
		errs = append(errs, errors.New("SERVER_MAX_UPLOAD_MB must be positive"))
	}
	if c.Pipeline.MaxPages < 0 {
		errs = append(errs, errors.New("PIPELINE_MAX_PAGES must not be negative"))
	}
	if c.Pipeline.LowConfidence <= 0 || c.Pipeline.LowConfidence > 1 {
		errs = append(errs, fmt.Errorf("PIPELINE_LOW_CONFIDENCE must be in (0, 1]: %v", c.Pipeline.LowConfidence))
	}
	if c.Pipeline.EnrichThreshold <= 0 || c.Pipeline.EnrichThreshold > 1 {
		errs = append(errs, fmt.Errorf("PIPELINE_ENRICH_THRESHOLD must be in (0, 1]: %v", c.Pipeline.EnrichThreshold))
	}
	if c.Gemini.Enabled() && c.Gemini.Model == "" {
		errs = append(errs, errors.New("GEMINI_MODEL is required when GEMINI_API_KEY is set"))
	}
	return errors.Join(errs...)
}

// DSN returns the database connection string
func (c *DatabaseConfig) DSN() string {
	return fmt.Sprintf(
		"host=%s port=%d user=%s password=%s dbname=%s sslmode=%s",
		c.Host, c.Port, c.User, c.Password, c.Database, c.SSLMode,
	)
}

// Addr is the listen address.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}

func getEnv(key, defaultValue string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return defaultValue
}

func getEnvAsInt(key string, defaultValue int) int {
	valueStr := os.Getenv(key)
	if value, err := strconv.Atoi(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsFloat(key string, defaultValue float64) float64 {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseFloat(valueStr, 64); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsBool(key string, defaultValue bool) bool {
	valueStr := os.Getenv(key)
	if value, err := strconv.ParseBool(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsDuration(key string, defaultValue time.Duration) time.Duration {
	valueStr := os.Getenv(key)
	if value, err := time.ParseDuration(valueStr); err == nil {
		return value
	}
	return defaultValue
}

func getEnvAsList(key string, defaultValue []string) []string {
	valueStr := os.Getenv(key)
	if valueStr == "" {
		return defaultValue
	}
	var out []string
	for _, part := range strings.Split(valueStr, ",") {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}
	return out
}
