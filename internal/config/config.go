package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"github.com/BurntSushi/toml"
	"github.com/kelseyhightower/envconfig"
)

// EnvPrefix is the prefix of environment overrides, e.g. COLLAB_DATABASE_DSN.
const EnvPrefix = "COLLAB"

// Search result limits.
const (
	MaxSearchLimit     = 20
	DefaultSearchLimit = 20
)

// Config represents the global ~/.collab/config.toml.
type Config struct {
	DefaultProfile string `toml:"default_profile" split_words:"true"`
	LogLevel       string `toml:"log_level" split_words:"true"`

	Database DatabaseConfig `toml:"database"`
	Backend  BackendConfig  `toml:"backend"`
	Search   SearchConfig   `toml:"search"`
	HTTP     HTTPConfig     `toml:"http"`
	Redis    RedisConfig    `toml:"redis"`
	Kafka    KafkaConfig    `toml:"kafka"`
	Outbox   OutboxConfig   `toml:"outbox"`
}

// DatabaseConfig selects the row store. Path defaults to the profile's
// database file when empty.
type DatabaseConfig struct {
	Driver string `toml:"driver"`
	Path   string `toml:"path,omitempty"`
	DSN    string `toml:"dsn,omitempty"`
}

// BackendConfig bounds every store round trip.
type BackendConfig struct {
	Timeout Duration `toml:"timeout"`
}

type SearchConfig struct {
	Limit int `toml:"limit"`
}

type HTTPConfig struct {
	Addr string `toml:"addr,omitempty"`
}

type RedisConfig struct {
	Addr    string `toml:"addr,omitempty"`
	Channel string `toml:"channel"`
}

type KafkaConfig struct {
	Brokers []string `toml:"brokers,omitempty"`
	Topic   string   `toml:"topic"`
}

type OutboxConfig struct {
	Interval    Duration `toml:"interval"`
	MaxAttempts int      `toml:"max_attempts" split_words:"true"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		LogLevel: "info",
		Database: DatabaseConfig{Driver: "sqlite"},
		Backend:  BackendConfig{Timeout: Duration(30 * time.Second)},
		Search:   SearchConfig{Limit: DefaultSearchLimit},
		Redis:    RedisConfig{Channel: "collab.rows"},
		Kafka:    KafkaConfig{Topic: "collab.messages"},
		Outbox:   OutboxConfig{Interval: Duration(500 * time.Millisecond), MaxAttempts: 5},
	}
}

// Load reads config from the given path on top of the defaults. Returns an
// error if the file is missing.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Resolve loads the file at path if it exists, applies COLLAB_* environment
// overrides and validates the result.
func Resolve(path string) (*Config, error) {
	cfg, err := Load(path)
	if errors.Is(err, fs.ErrNotExist) {
		cfg, err = Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("load config %s: %w", path, err)
	}
	if err := envconfig.Process(EnvPrefix, cfg); err != nil {
		return nil, fmt.Errorf("environment overrides: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate checks the configuration and clamps the search limit into range.
func (c *Config) Validate() error {
	switch c.Database.Driver {
	case "", "sqlite":
		c.Database.Driver = "sqlite"
	case "postgres":
		if c.Database.DSN == "" {
			return fmt.Errorf("database.dsn is required for the postgres driver")
		}
	default:
		return fmt.Errorf("unsupported database.driver %q", c.Database.Driver)
	}
	if c.Backend.Timeout <= 0 {
		return fmt.Errorf("backend.timeout must be positive, got %s", c.Backend.Timeout)
	}
	if c.Search.Limit < 1 || c.Search.Limit > MaxSearchLimit {
		c.Search.Limit = clamp(c.Search.Limit, 1, MaxSearchLimit)
	}
	if len(c.Kafka.Brokers) > 0 {
		if c.Kafka.Topic == "" {
			return fmt.Errorf("kafka.topic is required when brokers are set")
		}
		if c.Outbox.Interval <= 0 {
			return fmt.Errorf("outbox.interval must be positive")
		}
		if c.Outbox.MaxAttempts < 1 {
			c.Outbox.MaxAttempts = 1
		}
	}
	if c.Redis.Addr != "" && c.Redis.Channel == "" {
		return fmt.Errorf("redis.channel is required when redis.addr is set")
	}
	return nil
}

// Save writes config to the given path, creating parent dirs as needed.
func Save(path string, cfg *Config) error {
	if err := os.MkdirAll(filepath.Dir(path), 0700); err != nil {
		return err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0600)
	if err != nil {
		return err
	}
	encErr := toml.NewEncoder(f).Encode(cfg)
	if closeErr := f.Close(); closeErr != nil && encErr == nil {
		return closeErr
	}
	return encErr
}

func clamp(v, lo, hi int) int {
	if v < lo {
		return lo
	}
	if v > hi {
		return hi
	}
	return v
}
