package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// FileEnv names the environment variable holding an optional YAML config
// file. Environment variables take precedence over values in the file.
const FileEnv = "CITECTX_CONFIG"

type Config struct {
	Port string

	// Auth
	APIKey string

	// Storage
	DBPath string

	// GROBID conversion
	GrobidURL       string
	GrobidRateLimit float64
	GrobidTimeout   time.Duration

	// Worker pool
	WorkerCount  int
	MaxQueueSize int

	// Upload limits
	MaxUploadBytes int64

	// Extraction
	ContextSize      int
	StrictValidation bool

	// Job state
	JobTTL time.Duration
}

// fileConfig mirrors Config for the YAML overlay.
type fileConfig struct {
	Port             string  `yaml:"port,omitempty"`
	APIKey           string  `yaml:"api_key,omitempty"`
	DBPath           string  `yaml:"db_path,omitempty"`
	GrobidURL        string  `yaml:"grobid_url,omitempty"`
	GrobidRateLimit  float64 `yaml:"grobid_rate_limit,omitempty"`
	GrobidTimeout    string  `yaml:"grobid_timeout,omitempty"`
	WorkerCount      int     `yaml:"worker_count,omitempty"`
	MaxQueueSize     int     `yaml:"max_queue_size,omitempty"`
	MaxUploadBytes   int64   `yaml:"max_upload_bytes,omitempty"`
	ContextSize      *int    `yaml:"context_size,omitempty"`
	StrictValidation *bool   `yaml:"strict_validation,omitempty"`
	JobTTL           string  `yaml:"job_ttl,omitempty"`
}

// Defaults returns the built-in configuration.
func Defaults() Config {
	return Config{
		Port:            "8090",
		DBPath:          "citectx.db",
		GrobidURL:       "http://localhost:8070",
		GrobidRateLimit: 2,
		GrobidTimeout:   120 * time.Second,
		WorkerCount:     4,
		MaxQueueSize:    100,
		MaxUploadBytes:  52428800, // 50MB
		ContextSize:     1,
		JobTTL:          1 * time.Hour,
	}
}

// Load reads .env (if present), the optional YAML file named by
// CITECTX_CONFIG and then the environment.
func Load() (Config, error) {
	_ = godotenv.Load()

	cfg := Defaults()
	if path := os.Getenv(FileEnv); path != "" {
		if err := cfg.overlayFile(path); err != nil {
			return cfg, err
		}
	}

	cfg.Port = envOr("PORT", cfg.Port)
	cfg.APIKey = envOr("CITECTX_API_KEY", cfg.APIKey)
	cfg.DBPath = envOr("CITECTX_DB_PATH", cfg.DBPath)
	cfg.GrobidURL = envOr("GROBID_URL", cfg.GrobidURL)
	cfg.GrobidRateLimit = envFloat("GROBID_RATE_LIMIT", cfg.GrobidRateLimit)
	cfg.GrobidTimeout = envDuration("GROBID_TIMEOUT", cfg.GrobidTimeout)
	cfg.WorkerCount = envInt("WORKER_COUNT", cfg.WorkerCount)
	cfg.MaxQueueSize = envInt("MAX_QUEUE_SIZE", cfg.MaxQueueSize)
	cfg.MaxUploadBytes = envInt64("MAX_UPLOAD_BYTES", cfg.MaxUploadBytes)
	cfg.ContextSize = envInt("CONTEXT_SIZE", cfg.ContextSize)
	cfg.StrictValidation = envBool("STRICT_VALIDATION", cfg.StrictValidation)
	cfg.JobTTL = envDuration("JOB_TTL", cfg.JobTTL)

	def := Defaults()
	if cfg.WorkerCount <= 0 {
		cfg.WorkerCount = def.WorkerCount
	}
	if cfg.MaxQueueSize <= 0 {
		cfg.MaxQueueSize = def.MaxQueueSize
	}
	if cfg.MaxUploadBytes <= 0 {
		cfg.MaxUploadBytes = def.MaxUploadBytes
	}
	if cfg.GrobidTimeout <= 0 {
		cfg.GrobidTimeout = def.GrobidTimeout
	}
	if cfg.JobTTL <= 0 {
		cfg.JobTTL = def.JobTTL
	}

	return cfg, nil
}

func (c *Config) overlayFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	var fc fileConfig
	if err := yaml.Unmarshal(data, &fc); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}

	if fc.Port != "" {
		c.Port = fc.Port
	}
	if fc.APIKey != "" {
		c.APIKey = fc.APIKey
	}
	if fc.DBPath != "" {
		c.DBPath = fc.DBPath
	}
	if fc.GrobidURL != "" {
		c.GrobidURL = fc.GrobidURL
	}
	if fc.GrobidRateLimit != 0 {
		c.GrobidRateLimit = fc.GrobidRateLimit
	}
	if fc.WorkerCount != 0 {
		c.WorkerCount = fc.WorkerCount
	}
	if fc.MaxQueueSize != 0 {
		c.MaxQueueSize = fc.MaxQueueSize
	}
	if fc.MaxUploadBytes != 0 {
		c.MaxUploadBytes = fc.MaxUploadBytes
	}
	if fc.ContextSize != nil {
		c.ContextSize = *fc.ContextSize
	}
	if fc.StrictValidation != nil {
		c.StrictValidation = *fc.StrictValidation
	}
	if fc.GrobidTimeout != "" {
		d, err := time.ParseDuration(fc.GrobidTimeout)
		if err != nil {
			return fmt.Errorf("grobid_timeout: %w", err)
		}
		c.GrobidTimeout = d
	}
	if fc.JobTTL != "" {
		d, err := time.ParseDuration(fc.JobTTL)
		if err != nil {
			return fmt.Errorf("job_ttl: %w", err)
		}
		c.JobTTL = d
	}
	return nil
}

// Validate checks settings shared by every command.
func (c Config) Validate() error {
	if c.ContextSize < 0 {
		return fmt.Errorf("CONTEXT_SIZE must not be negative (got %d)", c.ContextSize)
	}
	if c.GrobidURL == "" {
		return errors.New("GROBID_URL is required")
	}
	return nil
}

// ValidateServer additionally checks what the HTTP server needs.
func (c Config) ValidateServer() error {
	if err := c.Validate(); err != nil {
		return err
	}
	if c.APIKey == "" {
		return fmt.Errorf("CITECTX_API_KEY is required")
	}
	if c.DBPath == "" {
		return fmt.Errorf("CITECTX_DB_PATH is required")
	}
	return nil
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func envInt(key string, fallback int) int {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			return n
		}
	}
	return fallback
}

func envInt64(key string, fallback int64) int64 {
	if v := os.Getenv(key); v != "" {
		if n, err := strconv.ParseInt(v, 10, 64); err == nil {
			return n
		}
	}
	return fallback
}

func envFloat(key string, fallback float64) float64 {
	if v := os.Getenv(key); v != "" {
		if f, err := strconv.ParseFloat(v, 64); err == nil {
			return f
		}
	}
	return fallback
}

func envBool(key string, fallback bool) bool {
	if v := os.Getenv(key); v != "" {
		if b, err := strconv.ParseBool(v); err == nil {
			return b
		}
	}
	return fallback
}

func envDuration(key string, fallback time.Duration) time.Duration {
	if v := os.Getenv(key); v != "" {
		if d, err := time.ParseDuration(v); err == nil {
			return d
		}
	}
	return fallback
}
