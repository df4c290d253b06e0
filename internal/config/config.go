// Package config loads crawler configuration from an optional YAML file
// and environment variable overrides.
package config

import (
	"errors"
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// Queue backends.
const (
	QueueMemory   = "memory"
	QueuePostgres = "postgres"
)

var (
	// ErrMissingAPIKey is returned when no explorer API key is configured.
	ErrMissingAPIKey = errors.New("api key is required")
	// ErrMissingDSN is returned when the PostgreSQL DSN is empty.
	ErrMissingDSN = errors.New("postgres dsn is required")
	// ErrInvalidConcurrency is returned for a non-positive concurrency.
	ErrInvalidConcurrency = errors.New("concurrency must be positive")
	// ErrUnknownBackend is returned for an unsupported queue backend.
	ErrUnknownBackend = errors.New("unknown queue backend")
)

// Config is the root configuration.
type Config struct {
	API        APIConfig        `yaml:"api"`
	Postgres   PostgresConfig   `yaml:"postgres"`
	ClickHouse ClickHouseConfig `yaml:"clickhouse"`
	Queue      QueueConfig      `yaml:"queue"`
	Crawler    CrawlerConfig    `yaml:"crawler"`
	Dispatcher DispatcherConfig `yaml:"dispatcher"`
	Logging    LoggingConfig    `yaml:"logging"`
}

// APIConfig configures the explorer client.
type APIConfig struct {
	BaseURL    string        `yaml:"base_url"`
	Key        string        `yaml:"key"`
	Timeout    time.Duration `yaml:"timeout"`
	MaxRetries int           `yaml:"max_retries"`
	RetryDelay time.Duration `yaml:"retry_delay"`
}

// PostgresConfig configures the relational store.
type PostgresConfig struct {
	DSN string `yaml:"dsn"`
}

// ClickHouseConfig configures the optional history store. An empty DSN
// keeps snapshots and transactions in PostgreSQL.
type ClickHouseConfig struct {
	DSN string `yaml:"dsn"`
}

// QueueConfig configures the job queue.
type QueueConfig struct {
	Backend         string        `yaml:"backend"`
	PollInterval    time.Duration `yaml:"poll_interval"`
	ShutdownTimeout time.Duration `yaml:"shutdown_timeout"`
}

// CrawlerConfig configures handler concurrency and pacing.
type CrawlerConfig struct {
	Concurrency      int           `yaml:"concurrency"`
	SweepConcurrency int           `yaml:"sweep_concurrency"`
	WalletRetryLimit int           `yaml:"wallet_retry_limit"`
	PacingQuantum    time.Duration `yaml:"pacing_quantum"`
	IdleThreshold    time.Duration `yaml:"idle_threshold"`
	IdleStep         time.Duration `yaml:"idle_step"`
}

// DispatcherConfig configures the job dashboard.
type DispatcherConfig struct {
	Enabled bool   `yaml:"enabled"`
	Addr    string `yaml:"addr"`
}

// LoggingConfig configures the logger.
type LoggingConfig struct {
	Level       string `yaml:"level"`
	Environment string `yaml:"environment"`
}

// Default returns the configuration used when nothing is set.
func Default() *Config {
	return &Config{
		API: APIConfig{
			BaseURL:    "https://apilist.tronscanapi.com",
			Timeout:    30 * time.Second,
			MaxRetries: 0,
			RetryDelay: 500 * time.Millisecond,
		},
		Queue: QueueConfig{
			Backend:         QueueMemory,
			PollInterval:    250 * time.Millisecond,
			ShutdownTimeout: 5 * time.Second,
		},
		Crawler: CrawlerConfig{
			Concurrency:      100,
			SweepConcurrency: 1,
			PacingQuantum:    350 * time.Millisecond,
			IdleThreshold:    200 * time.Millisecond,
			IdleStep:         210 * time.Millisecond,
		},
		Dispatcher: DispatcherConfig{
			Addr: "localhost:3111",
		},
		Logging: LoggingConfig{
			Level:       "info",
			Environment: "production",
		},
	}
}

// Load reads path over the defaults and applies environment overrides.
// An empty path or a missing file yields the defaults.
func Load(path string) (*Config, error) {
	cfg := Default()

	if path != "" {
		data, err := os.ReadFile(path)
		switch {
		case errors.Is(err, os.ErrNotExist):
		case err != nil:
			return nil, fmt.Errorf("read config: %w", err)
		default:
			if err := yaml.Unmarshal(data, cfg); err != nil {
				return nil, fmt.Errorf("parse config %s: %w", path, err)
			}
		}
	}

	cfg.applyEnv()
	return cfg, nil
}

func (c *Config) applyEnv() {
	c.API.Key = getEnv("API_KEY", c.API.Key)
	c.API.BaseURL = getEnv("TRONSCAN_BASE_URL", c.API.BaseURL)
	c.Postgres.DSN = getEnv("POSTGRES_DSN", c.Postgres.DSN)
	c.ClickHouse.DSN = getEnv("CLICKHOUSE_DSN", c.ClickHouse.DSN)
	c.Queue.Backend = getEnv("QUEUE_BACKEND", c.Queue.Backend)
	c.Dispatcher.Enabled = getSwitchEnv("KUE_DISPATCHER", c.Dispatcher.Enabled)
	c.Dispatcher.Addr = getEnv("DISPATCHER_ADDR", c.Dispatcher.Addr)
	c.Logging.Level = getEnv("LOG_LEVEL", c.Logging.Level)
	c.Logging.Environment = getEnv("LOG_ENVIRONMENT", c.Logging.Environment)
	c.Crawler.Concurrency = getIntEnv("CRAWLER_CONCURRENCY", c.Crawler.Concurrency)
}

// Validate checks the settings required to start a crawl.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.API.Key) == "" {
		return ErrMissingAPIKey
	}
	if strings.TrimSpace(c.Postgres.DSN) == "" {
		return ErrMissingDSN
	}
	if c.Crawler.Concurrency <= 0 {
		return fmt.Errorf("%w: crawler.concurrency=%d", ErrInvalidConcurrency, c.Crawler.Concurrency)
	}
	if c.Crawler.SweepConcurrency <= 0 {
		return fmt.Errorf("%w: crawler.sweep_concurrency=%d", ErrInvalidConcurrency, c.Crawler.SweepConcurrency)
	}
	switch c.Queue.Backend {
	case QueueMemory, QueuePostgres:
	default:
		return fmt.Errorf("%w: %q", ErrUnknownBackend, c.Queue.Backend)
	}
	return nil
}

func getEnv(key, fallback string) string {
	if value, ok := os.LookupEnv(key); ok && value != "" {
		return value
	}
	return fallback
}

func getIntEnv(key string, fallback int) int {
	if value := os.Getenv(key); value != "" {
		if n, err := strconv.Atoi(value); err == nil {
			return n
		}
	}
	return fallback
}

// getSwitchEnv reads an on/off style flag.
func getSwitchEnv(key string, fallback bool) bool {
	switch strings.ToLower(strings.TrimSpace(os.Getenv(key))) {
	case "on", "true", "1", "yes":
		return true
	case "off", "false", "0", "no":
		return false
	}
	return fallback
}
