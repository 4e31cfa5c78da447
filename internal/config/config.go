// Package config loads runtime configuration from the environment.
// Values come from INDEX_* variables, optionally seeded from a .env file
// that never overrides variables already set.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"time"

	"github.com/joho/godotenv"
	"github.com/kelseyhightower/envconfig"
)

// Prefix is the environment variable prefix.
const Prefix = "INDEX"

// Ticker sources.
const (
	TickerSourceCSV = "csv"
	TickerSourceAPI = "api"
)

// Config is the complete application configuration.
type Config struct {
	// Storage
	PostgresDSN   string `envconfig:"POSTGRES_DSN"`
	ClickhouseDSN string `envconfig:"CLICKHOUSE_DSN"`

	// Market data
	APIBaseURL      string  `envconfig:"API_BASE_URL" default:"https://api.polygon.io"`
	APIKey          string  `envconfig:"API_KEY"`
	APIRPS          float64 `envconfig:"API_RPS" default:"1"`
	TickerSource    string  `envconfig:"TICKER_SOURCE" default:"csv"`
	ConstituentsCSV string  `envconfig:"CONSTITUENTS_CSV" default:"sp500_constituents.csv"`
	LookbackDays    int     `envconfig:"LOOKBACK_DAYS" default:"30"`

	// Index
	UniverseSize int     `envconfig:"UNIVERSE_SIZE" default:"100"`
	BaseLevel    float64 `envconfig:"BASE_LEVEL" default:"100"`
	OutputDir    string  `envconfig:"OUTPUT_DIR" default:"output"`

	// Server
	HTTPAddr        string        `envconfig:"HTTP_ADDR" default:":8080"`
	MetricsAddr     string        `envconfig:"METRICS_ADDR"`
	HTTPRPS         float64       `envconfig:"HTTP_RPS" default:"50"`
	ShutdownTimeout time.Duration `envconfig:"SHUTDOWN_TIMEOUT" default:"10s"`
}

// Load reads envFile (if it exists) and then the environment.
// An empty envFile skips the file step.
func Load(envFile string) (*Config, error) {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	var cfg Config
	if err := envconfig.Process(Prefix, &cfg); err != nil {
		return nil, fmt.Errorf("load config from env: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("config validation failed: %w", err)
	}
	return &cfg, nil
}

// Validate rejects values no component can run with.
func (c *Config) Validate() error {
	if c.UniverseSize < 1 {
		return fmt.Errorf("universe size must be >= 1, got %d", c.UniverseSize)
	}
	if c.BaseLevel <= 0 {
		return fmt.Errorf("base level must be > 0, got %v", c.BaseLevel)
	}
	if c.TickerSource != TickerSourceCSV && c.TickerSource != TickerSourceAPI {
		return fmt.Errorf("unknown ticker source %q", c.TickerSource)
	}
	if c.APIRPS <= 0 {
		return fmt.Errorf("api rps must be > 0, got %v", c.APIRPS)
	}
	if c.HTTPRPS <= 0 {
		return fmt.Errorf("http rps must be > 0, got %v", c.HTTPRPS)
	}
	if c.LookbackDays < 1 {
		return fmt.Errorf("lookback days must be >= 1, got %d", c.LookbackDays)
	}
	return nil
}
