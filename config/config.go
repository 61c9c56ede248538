package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/anuphat-bit/Eco-Hero/adapters/redis"
	"github.com/anuphat-bit/Eco-Hero/adapters/sqlx"
)

// Environment represents the deployment environment
type Environment string

const (
	EnvDevelopment Environment = "development"
	EnvTesting     Environment = "testing"
	EnvStaging     Environment = "staging"
	EnvProduction  Environment = "production"
)

// Config holds the complete application configuration
type Config struct {
	// Environment and profile settings
	Environment Environment `json:"environment" env:"ECOHERO_ENV, overwrite"`
	Profile     string      `json:"profile" env:"ECOHERO_PROFILE, overwrite"`

	Server   ServerConfig   `json:"server"`
	Storage  StorageConfig  `json:"storage"`
	Logging  LoggingConfig  `json:"logging"`
	Metrics  MetricsConfig  `json:"metrics"`
	Security SecurityConfig `json:"security"`

	// Scoring engine defaults
	Engine EngineConfig `json:"engine"`

	// Outbound event delivery
	Webhooks WebhookConfig `json:"webhooks"`
}

// ServerConfig holds HTTP server configuration
type ServerConfig struct {
	Address           string        `json:"address" env:"ECOHERO_SERVER_ADDR, overwrite"`
	PathPrefix        string        `json:"path_prefix" env:"ECOHERO_SERVER_PATH_PREFIX, overwrite"`
	CORSOrigin        string        `json:"cors_origin" env:"ECOHERO_SERVER_CORS_ORIGIN, overwrite"`
	ReadTimeout       time.Duration `json:"read_timeout" env:"ECOHERO_SERVER_READ_TIMEOUT, overwrite"`
	WriteTimeout      time.Duration `json:"write_timeout" env:"ECOHERO_SERVER_WRITE_TIMEOUT, overwrite"`
	IdleTimeout       time.Duration `json:"idle_timeout" env:"ECOHERO_SERVER_IDLE_TIMEOUT, overwrite"`
	ReadHeaderTimeout time.Duration `json:"read_header_timeout" env:"ECOHERO_SERVER_READ_HEADER_TIMEOUT, overwrite"`
	ShutdownTimeout   time.Duration `json:"shutdown_timeout" env:"ECOHERO_SERVER_SHUTDOWN_TIMEOUT, overwrite"`
}

// StorageConfig holds storage adapter configuration
type StorageConfig struct {
	Adapter string       `json:"adapter" env:"ECOHERO_STORAGE_ADAPTER, overwrite"`
	Redis   redis.Config `json:"redis,omitempty" env:", prefix=ECOHERO_STORAGE_REDIS_"`
	SQL     sqlx.Config  `json:"sql,omitempty" env:", prefix=ECOHERO_STORAGE_SQL_"`
	File    FileConfig   `json:"file,omitempty"`
	// SeedPath points to a roster JSON file. Empty uses the built-in roster.
	SeedPath string `json:"seed_path,omitempty" env:"ECOHERO_STORAGE_SEED_PATH, overwrite"`
}

// FileConfig holds JSON file storage configuration
type FileConfig struct {
	Path string `json:"path" env:"ECOHERO_STORAGE_FILE_PATH, overwrite"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string            `json:"level" env:"ECOHERO_LOG_LEVEL, overwrite"`
	Format     string            `json:"format" env:"ECOHERO_LOG_FORMAT, overwrite"`
	Output     string            `json:"output" env:"ECOHERO_LOG_OUTPUT, overwrite"`
	Attributes map[string]string `json:"attributes,omitempty" env:"ECOHERO_LOG_ATTRIBUTES, overwrite"`
}

// MetricsConfig holds metrics and monitoring configuration
type MetricsConfig struct {
	Enabled       bool   `json:"enabled" env:"ECOHERO_METRICS_ENABLED, overwrite"`
	Address       string `json:"address" env:"ECOHERO_METRICS_ADDR, overwrite"`
	Path          string `json:"path" env:"ECOHERO_METRICS_PATH, overwrite"`
	CollectSystem bool   `json:"collect_system" env:"ECOHERO_METRICS_COLLECT_SYSTEM, overwrite"`
}

// SecurityConfig holds security-related configuration
type SecurityConfig struct {
	EnableRateLimit bool            `json:"enable_rate_limit" env:"ECOHERO_SECURITY_RATE_LIMIT_ENABLED, overwrite"`
	RateLimit       RateLimitConfig `json:"rate_limit,omitempty"`
	APIKeys         []string        `json:"api_keys,omitempty" env:"ECOHERO_SECURITY_API_KEYS, overwrite"`
}

// RateLimitConfig holds rate limiting configuration
type RateLimitConfig struct {
	RequestsPerMinute int           `json:"requests_per_minute" env:"ECOHERO_SECURITY_RATE_LIMIT_RPM, overwrite"`
	BurstSize         int           `json:"burst_size" env:"ECOHERO_SECURITY_RATE_LIMIT_BURST, overwrite"`
	CleanupInterval   time.Duration `json:"cleanup_interval" env:"ECOHERO_SECURITY_RATE_LIMIT_CLEANUP, overwrite"`
}

// EngineConfig holds scoring and ranking defaults.
type EngineConfig struct {
	DefaultPeriod  string `json:"default_period" env:"ECOHERO_ENGINE_DEFAULT_PERIOD, overwrite"`
	TopIndividuals int    `json:"top_individuals" env:"ECOHERO_ENGINE_TOP_INDIVIDUALS, overwrite"`
	// TimeZone is an IANA name used for calendar periods and history dates.
	TimeZone    string `json:"time_zone" env:"ECOHERO_ENGINE_TIME_ZONE, overwrite"`
	AsyncEvents bool   `json:"async_events" env:"ECOHERO_ENGINE_ASYNC_EVENTS, overwrite"`
}

// Location resolves TimeZone.
func (e EngineConfig) Location() (*time.Location, error) {
	if e.TimeZone == "" {
		return time.UTC, nil
	}
	return time.LoadLocation(e.TimeZone)
}

// WebhookConfig lists endpoints that receive every event as JSON.
type WebhookConfig struct {
	URLs    []string      `json:"urls,omitempty" env:"ECOHERO_WEBHOOK_URLS, overwrite"`
	Timeout time.Duration `json:"timeout" env:"ECOHERO_WEBHOOK_TIMEOUT, overwrite"`
}

// Load loads configuration from environment variables and validates it
func Load() (*Config, error) {
	cfg := DefaultConfig()

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// validateConfigPath validates that the config file path is safe
func validateConfigPath(path string) error {
	if path == "" {
		return errors.New("config file path cannot be empty")
	}

	cleanPath := filepath.Clean(path)

	if !strings.HasSuffix(strings.ToLower(cleanPath), ".json") {
		return errors.New("config file must have .json extension")
	}

	if _, err := os.Stat(cleanPath); err != nil {
		return fmt.Errorf("config file not accessible: %w", err)
	}

	return nil
}

// LoadFromFile loads configuration from a JSON file. Environment variables
// override file values.
func LoadFromFile(path string) (*Config, error) {
	if err := validateConfigPath(path); err != nil {
		return nil, fmt.Errorf("invalid config file path: %w", err)
	}

	file, err := os.Open(path) // #nosec G304 - Path validated above
	if err != nil {
		return nil, fmt.Errorf("failed to open config file %s: %w", path, err)
	}
	defer file.Close()

	data, err := io.ReadAll(file)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	cfg := DefaultConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config file %s: %w", path, err)
	}

	if err := loadFromEnv(cfg); err != nil {
		return nil, fmt.Errorf("failed to load config from environment: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// DefaultConfig returns a configuration with sensible defaults for development
func DefaultConfig() *Config {
	return &Config{
		Environment: EnvDevelopment,
		Profile:     "default",
		Server: ServerConfig{
			Address:           ":8080",
			PathPrefix:        "/api",
			CORSOrigin:        "*",
			ReadTimeout:       10 * time.Second,
			WriteTimeout:      10 * time.Second,
			IdleTimeout:       60 * time.Second,
			ReadHeaderTimeout: 5 * time.Second,
			ShutdownTimeout:   30 * time.Second,
		},
		Storage: StorageConfig{
			Adapter: "memory",
			Redis:   redis.DefaultConfig(),
			SQL:     sqlx.DefaultConfig(sqlx.DriverPostgres),
			File: FileConfig{
				Path: "./data/ecohero.json",
			},
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Output: "stdout",
		},
		Metrics: MetricsConfig{
			Enabled:       false,
			Address:       ":9090",
			Path:          "/metrics",
			CollectSystem: true,
		},
		Security: SecurityConfig{
			EnableRateLimit: false,
			RateLimit: RateLimitConfig{
				RequestsPerMinute: 60,
				BurstSize:         10,
				CleanupInterval:   5 * time.Minute,
			},
			APIKeys: []string{},
		},
		Engine: EngineConfig{
			DefaultPeriod:  "month",
			TopIndividuals: 3,
			TimeZone:       "UTC",
		},
		Webhooks: WebhookConfig{
			Timeout: 5 * time.Second,
		},
	}
}

// Validate validates the configuration and returns detailed error messages
func (c *Config) Validate() error {
	var errs []string

	if c.Environment == "" {
		errs = append(errs, "environment cannot be empty")
	}

	if err := c.Server.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("server config: %v", err))
	}

	if err := c.Storage.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("storage config: %v", err))
	}

	if err := c.Logging.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("logging config: %v", err))
	}

	if err := c.Metrics.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("metrics config: %v", err))
	}

	if err := c.Security.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("security config: %v", err))
	}

	if err := c.Engine.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("engine config: %v", err))
	}

	if err := c.Webhooks.Validate(); err != nil {
		errs = append(errs, fmt.Sprintf("webhooks config: %v", err))
	}

	if len(errs) > 0 {
		return errors.New(strings.Join(errs, "; "))
	}

	return nil
}

// String returns a JSON representation of the config (with secrets redacted)
func (c *Config) String() string {
	cfg := *c

	if cfg.Storage.SQL.DSN != "" {
		cfg.Storage.SQL.DSN = "[REDACTED]"
	}
	if cfg.Storage.Redis.Password != "" {
		cfg.Storage.Redis.Password = "[REDACTED]"
	}
	if len(cfg.Security.APIKeys) > 0 {
		cfg.Security.APIKeys = []string{"[REDACTED]"}
	}

	data, _ := json.MarshalIndent(cfg, "", "  ")
	return string(data)
}
