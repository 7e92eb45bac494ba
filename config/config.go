package config

import (
	"bytes"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/shopspring/decimal"
	"gopkg.in/yaml.v3"

	"github.com/rustyeddy/tradejournal/internal/logging"
)

// Config represents the complete journal configuration
type Config struct {
	Account   AccountConfig `json:"account" yaml:"account" toml:"account"`
	Storage   StorageConfig `json:"storage" yaml:"storage" toml:"storage"`
	Redis     RedisConfig   `json:"redis" yaml:"redis" toml:"redis"`
	S3        S3Config      `json:"s3" yaml:"s3" toml:"s3"`
	LogLevel  string        `json:"log_level" yaml:"log_level" toml:"log_level"`
	LogFormat string        `json:"log_format,omitempty" yaml:"log_format,omitempty" toml:"log_format,omitempty"`
}

// AccountConfig holds the starting capital the account metrics are measured against
type AccountConfig struct {
	Currency       string  `json:"currency" yaml:"currency" toml:"currency"`
	InitialCapital float64 `json:"initial_capital" yaml:"initial_capital" toml:"initial_capital"`
}

// InitialCapitalDecimal returns the initial capital as a decimal, rounded to cents.
func (a AccountConfig) InitialCapitalDecimal() decimal.Decimal {
	return decimal.NewFromFloat(a.InitialCapital).Round(2)
}

const (
	StorageMemory   = "memory"
	StorageSQLite   = "sqlite"
	StoragePostgres = "postgres"
)

// StorageConfig selects where positions are persisted
type StorageConfig struct {
	Type     string `json:"type" yaml:"type" toml:"type"` // "memory", "sqlite" or "postgres"
	DBPath   string `json:"db_path,omitempty" yaml:"db_path,omitempty" toml:"db_path,omitempty"`
	DSN      string `json:"dsn,omitempty" yaml:"dsn,omitempty" toml:"dsn,omitempty"`
	MaxConns int    `json:"max_conns,omitempty" yaml:"max_conns,omitempty" toml:"max_conns,omitempty"`
}

// RedisConfig enables the cross-process position lock
type RedisConfig struct {
	Enabled  bool   `json:"enabled" yaml:"enabled" toml:"enabled"`
	Addr     string `json:"addr,omitempty" yaml:"addr,omitempty" toml:"addr,omitempty"`
	Password string `json:"password,omitempty" yaml:"password,omitempty" toml:"password,omitempty"`
	DB       int    `json:"db,omitempty" yaml:"db,omitempty" toml:"db,omitempty"`
	LockTTL  string `json:"lock_ttl,omitempty" yaml:"lock_ttl,omitempty" toml:"lock_ttl,omitempty"` // e.g. "10s"
}

// LockTTLDuration parses LockTTL. An empty value is zero.
func (r RedisConfig) LockTTLDuration() (time.Duration, error) {
	if r.LockTTL == "" {
		return 0, nil
	}
	return time.ParseDuration(r.LockTTL)
}

// S3Config is the archive destination
type S3Config struct {
	Endpoint       string `json:"endpoint,omitempty" yaml:"endpoint,omitempty" toml:"endpoint,omitempty"`
	Region         string `json:"region,omitempty" yaml:"region,omitempty" toml:"region,omitempty"`
	Bucket         string `json:"bucket,omitempty" yaml:"bucket,omitempty" toml:"bucket,omitempty"`
	Prefix         string `json:"prefix,omitempty" yaml:"prefix,omitempty" toml:"prefix,omitempty"`
	AccessKey      string `json:"access_key,omitempty" yaml:"access_key,omitempty" toml:"access_key,omitempty"`
	SecretKey      string `json:"secret_key,omitempty" yaml:"secret_key,omitempty" toml:"secret_key,omitempty"`
	UseSSL         bool   `json:"use_ssl,omitempty" yaml:"use_ssl,omitempty" toml:"use_ssl,omitempty"` // scheme for an endpoint without one
	ForcePathStyle bool   `json:"force_path_style,omitempty" yaml:"force_path_style,omitempty" toml:"force_path_style,omitempty"`
}

// Load builds the effective configuration: defaults, then the file at path
// (skipped when path is empty), then .env files, then TRADEJOURNAL_*
// environment variables. The result is validated.
func Load(path string, envFiles ...string) (*Config, error) {
	cfg := Default()
	if path != "" {
		if err := decodeFile(path, cfg); err != nil {
			return nil, err
		}
	}

	// A missing .env is not an error.
	_ = godotenvLoad(envFiles...)
	applyEnvOverrides(cfg)

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// LoadFromFile loads and validates a single config file without applying
// environment overrides.
func LoadFromFile(path string) (*Config, error) {
	cfg := &Config{}
	if err := decodeFile(path, cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid config: %w", err)
	}
	return cfg, nil
}

// decodeFile reads TOML by extension; anything else is tried as YAML, then JSON.
func decodeFile(path string, cfg *Config) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	if strings.EqualFold(filepath.Ext(path), ".toml") {
		if _, err := toml.Decode(string(data), cfg); err != nil {
			return fmt.Errorf("parse config (toml): %w", err)
		}
		return nil
	}

	if err := yaml.Unmarshal(data, cfg); err != nil {
		if jerr := json.Unmarshal(data, cfg); jerr != nil {
			return fmt.Errorf("parse config (tried YAML and JSON): %w", jerr)
		}
	}
	return nil
}

// SaveToFile writes the configuration as YAML, TOML or JSON based on extension
func (c *Config) SaveToFile(path string) error {
	var (
		data []byte
		err  error
	)

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		data, err = yaml.Marshal(c)
	case ".toml":
		var buf bytes.Buffer
		err = toml.NewEncoder(&buf).Encode(c)
		data = buf.Bytes()
	default:
		data, err = json.MarshalIndent(c, "", "  ")
	}
	if err != nil {
		return fmt.Errorf("marshal config: %w", err)
	}

	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("write config file: %w", err)
	}
	return nil
}

// Validate checks if the configuration is valid
func (c *Config) Validate() error {
	if c.Account.Currency == "" {
		return fmt.Errorf("account.currency is required")
	}
	if c.Account.InitialCapital < 0 {
		return fmt.Errorf("account.initial_capital must not be negative")
	}

	switch c.Storage.Type {
	case StorageMemory:
	case StorageSQLite:
		if c.Storage.DBPath == "" {
			return fmt.Errorf("storage db_path required for sqlite type")
		}
	case StoragePostgres:
		if c.Storage.DSN == "" {
			return fmt.Errorf("storage dsn required for postgres type")
		}
	default:
		return fmt.Errorf("storage.type must be 'memory', 'sqlite' or 'postgres'")
	}
	if c.Storage.MaxConns < 0 {
		return fmt.Errorf("storage.max_conns must not be negative")
	}

	if c.Redis.Enabled {
		if c.Redis.Addr == "" {
			return fmt.Errorf("redis.addr is required when redis is enabled")
		}
		if c.Storage.Type == StorageMemory {
			return fmt.Errorf("redis locking needs a shared store, not memory")
		}
	}
	if ttl, err := c.Redis.LockTTLDuration(); err != nil {
		return fmt.Errorf("redis.lock_ttl: %w", err)
	} else if ttl < 0 {
		return fmt.Errorf("redis.lock_ttl must not be negative")
	}

	if c.S3.Bucket != "" && c.S3.Region == "" {
		return fmt.Errorf("s3.region is required when s3.bucket is set")
	}

	if _, err := logging.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("log_level: %w", err)
	}
	switch c.LogFormat {
	case "", "text", "json":
	default:
		return fmt.Errorf("log_format must be 'text' or 'json'")
	}
	return nil
}

// Default returns a configuration with sensible defaults
func Default() *Config {
	return &Config{
		Account: AccountConfig{
			Currency:       "USD",
			InitialCapital: 10000,
		},
		Storage: StorageConfig{
			Type:   StorageSQLite,
			DBPath: "./tradejournal.db",
		},
		Redis: RedisConfig{
			Addr:    "localhost:6379",
			LockTTL: "10s",
		},
		S3: S3Config{
			Region: "us-east-1",
			Prefix: "tradejournal",
		},
		LogLevel:  "info",
		LogFormat: "text",
	}
}
