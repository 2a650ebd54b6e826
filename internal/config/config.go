package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/joho/godotenv"
)

const (
	ProviderAzure  = "azure"
	ProviderGemini = "gemini"

	DefaultAPIVersion     = "2025-01-01-preview"
	DefaultGeminiModel    = "gemini-2.5-flash"
	DefaultRequestTimeout = 60 * time.Second
)

// Config holds all runtime settings. Zero-valued optional sections disable
// the matching integration (no bucket means no GCS, and so on).
type Config struct {
	Model    ModelConfig   `toml:"model"`
	Server   ServerConfig  `toml:"server"`
	Storage  StorageConfig `toml:"storage"`
	Notion   NotionConfig  `toml:"notion"`
	LogLevel string        `toml:"log_level"`
}

type ModelConfig struct {
	Provider       string        `toml:"provider"`
	Endpoint       string        `toml:"endpoint"`
	APIKey         string        `toml:"api_key"`
	APIVersion     string        `toml:"api_version"`
	GeminiModel    string        `toml:"gemini_model"`
	RequestTimeout time.Duration `toml:"request_timeout"`
}

type ServerConfig struct {
	Port           string        `toml:"port"`
	RateLimitRPS   float64       `toml:"rate_limit_rps"`
	RateLimitBurst int           `toml:"rate_limit_burst"`
	SessionTTL     time.Duration `toml:"session_ttl"`
	Workers        int           `toml:"workers"`
}

type StorageConfig struct {
	DBPath    string `toml:"db_path"`
	GCSBucket string `toml:"gcs_bucket"`
	BQProject string `toml:"bq_project"`
	BQDataset string `toml:"bq_dataset"`
}

type NotionConfig struct {
	Token      string `toml:"token"`
	DatabaseID string `toml:"database_id"`
}

// Default returns the built-in configuration.
func Default() Config {
	return Config{
		Model: ModelConfig{
			Provider:       ProviderAzure,
			APIVersion:     DefaultAPIVersion,
			GeminiModel:    DefaultGeminiModel,
			RequestTimeout: DefaultRequestTimeout,
		},
		Server: ServerConfig{
			Port:           "8080",
			RateLimitRPS:   5,
			RateLimitBurst: 10,
			SessionTTL:     2 * time.Hour,
			Workers:        4,
		},
		Storage: StorageConfig{
			DBPath:    filepath.Join(Dir(), "history.db"),
			BQDataset: "cashflow",
		},
		LogLevel: "info",
	}
}

// Dir returns the configuration directory, honoring XDG_CONFIG_HOME.
func Dir() string {
	if xdg := os.Getenv("XDG_CONFIG_HOME"); xdg != "" {
		return filepath.Join(xdg, "cashflow")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return ".cashflow"
	}
	return filepath.Join(home, ".config", "cashflow")
}

// Load builds the configuration from defaults, an optional .env file, an
// optional TOML file and finally environment variables. path may be empty,
// in which case $CASHFLOW_CONFIG or <Dir>/config.toml is tried.
func Load(path string) (Config, error) {
	// A missing .env is normal outside local development.
	_ = godotenv.Load()

	cfg := Default()

	if path == "" {
		path = os.Getenv("CASHFLOW_CONFIG")
	}
	explicit := path != ""
	if path == "" {
		path = filepath.Join(Dir(), "config.toml")
	}

	if _, err := toml.DecodeFile(path, &cfg); err != nil {
		if !errors.Is(err, os.ErrNotExist) || explicit {
			return cfg, fmt.Errorf("config.Load: reading %s: %w", path, err)
		}
	}

	applyEnv(&cfg)
	return cfg, nil
}

func applyEnv(cfg *Config) {
	cfg.Model.Provider = strings.ToLower(getEnv("CASHFLOW_MODEL_PROVIDER", cfg.Model.Provider))
	cfg.Model.Endpoint = getEnv("AZURE_OPENAI_ENDPOINT", cfg.Model.Endpoint)
	cfg.Model.APIKey = getEnv("AZURE_OPENAI_KEY", cfg.Model.APIKey)
	cfg.Model.APIVersion = getEnv("AZURE_OPENAI_API_VERSION", cfg.Model.APIVersion)
	cfg.Model.GeminiModel = getEnv("GEMINI_MODEL", cfg.Model.GeminiModel)
	cfg.Model.RequestTimeout = getEnvAsDuration("CASHFLOW_REQUEST_TIMEOUT", cfg.Model.RequestTimeout)

	cfg.Server.Port = getEnv("PORT", cfg.Server.Port)
	cfg.Server.RateLimitRPS = getEnvAsFloat("RATE_LIMIT_RPS", cfg.Server.RateLimitRPS)
	cfg.Server.RateLimitBurst = getEnvAsInt("RATE_LIMIT_BURST", cfg.Server.RateLimitBurst)
	cfg.Server.SessionTTL = getEnvAsDuration("SESSION_TTL", cfg.Server.SessionTTL)
	cfg.Server.Workers = getEnvAsInt("CASHFLOW_WORKERS", cfg.Server.Workers)

	cfg.Storage.DBPath = getEnv("CASHFLOW_DB_PATH", cfg.Storage.DBPath)
	cfg.Storage.GCSBucket = getEnv("GCS_BUCKET", cfg.Storage.GCSBucket)
	cfg.Storage.BQProject = getEnv("BQ_PROJECT", cfg.Storage.BQProject)
	cfg.Storage.BQDataset = getEnv("BQ_DATASET", cfg.Storage.BQDataset)

	cfg.Notion.Token = getEnv("NOTION_TOKEN", cfg.Notion.Token)
	cfg.Notion.DatabaseID = getEnv("NOTION_DB_ID", cfg.Notion.DatabaseID)

	cfg.LogLevel = getEnv("LOG_LEVEL", cfg.LogLevel)
}

// Validate checks the settings needed to reach the model service. Only
// non-emptiness is checked; the values are otherwise opaque.
func (c Config) Validate() error {
	switch c.Model.Provider {
	case ProviderAzure:
		if c.Model.Endpoint == "" {
			return errors.New("AZURE_OPENAI_ENDPOINT is required")
		}
		if c.Model.APIKey == "" {
			return errors.New("AZURE_OPENAI_KEY is required")
		}
		if c.Model.APIVersion == "" {
			return errors.New("AZURE_OPENAI_API_VERSION must not be empty")
		}
	case ProviderGemini:
		if c.Model.GeminiModel == "" {
			return errors.New("GEMINI_MODEL must not be empty")
		}
	default:
		return fmt.Errorf("unknown model provider %q", c.Model.Provider)
	}
	if c.Model.RequestTimeout <= 0 {
		return errors.New("request timeout must be positive")
	}
	return nil
}

// BigQueryEnabled reports whether run records should go to BigQuery.
func (c Config) BigQueryEnabled() bool {
	return c.Storage.BQProject != ""
}

// NotionEnabled reports whether ledger sync to Notion is configured.
func (c Config) NotionEnabled() bool {
	return c.Notion.Token != "" && c.Notion.DatabaseID != ""
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getEnvAsInt(key string, fallback int) int {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return fallback
	}
	return n
}

func getEnvAsFloat(key string, fallback float64) float64 {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	f, err := strconv.ParseFloat(value, 64)
	if err != nil {
		return fallback
	}
	return f
}

func getEnvAsDuration(key string, fallback time.Duration) time.Duration {
	value := getEnv(key, "")
	if value == "" {
		return fallback
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return fallback
	}
	return d
}
