// Package config loads histore configuration from YAML with environment
// variable expansion.
package config

import (
	"errors"
	"fmt"
	"log/slog"
	"os"
	"time"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"gopkg.in/yaml.v3"

	"github.com/roach88/histore/internal/graph"
)

// EnvConfigPath names the environment variable that points at the config
// file when --config is not given.
const EnvConfigPath = "HISTORE_CONFIG"

// Validator is implemented by configuration types that check themselves
// after loading.
type Validator interface {
	Validate() error
}

// Load reads filename, expands ${VAR} references from the environment,
// decodes the YAML into target and validates it.
func Load[T any](filename string, target *T) error {
	data, err := os.ReadFile(filename)
	if err != nil {
		return fmt.Errorf("read config file %s: %w", filename, err)
	}

	expanded := os.ExpandEnv(string(data))
	if err := yaml.Unmarshal([]byte(expanded), target); err != nil {
		return fmt.Errorf("parse config file %s: %w", filename, err)
	}

	if v, ok := any(target).(Validator); ok {
		if err := v.Validate(); err != nil {
			return fmt.Errorf("config validation failed: %w", err)
		}
	}
	return nil
}

// Config is the full histore configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Locks    LocksConfig    `yaml:"locks"`
	Cache    CacheConfig    `yaml:"cache"`
	HeadRead HeadReadConfig `yaml:"head_read"`
	Log      LogConfig      `yaml:"log"`
}

// Validate validates every section.
func (c *Config) Validate() error {
	if err := c.Database.Validate(); err != nil {
		return fmt.Errorf("database: %w", err)
	}
	if err := c.Cache.Validate(); err != nil {
		return fmt.Errorf("cache: %w", err)
	}
	if err := c.HeadRead.Validate(); err != nil {
		return fmt.Errorf("head_read: %w", err)
	}
	return nil
}

// DatabaseConfig locates the SQLite database.
type DatabaseConfig struct {
	Path string `yaml:"path"`
}

// Validate validates the database configuration.
func (c *DatabaseConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Path, validation.Required),
	)
}

// LocksConfig bounds lock waits. A negative timeout waits forever; zero
// fails at once unless the lock is free.
type LocksConfig struct {
	ProjectTimeout time.Duration `yaml:"project_timeout"`
	OwnerTimeout   time.Duration `yaml:"owner_timeout"`
}

// CacheConfig sizes the in-memory caches.
type CacheConfig struct {
	BranchHeads int `yaml:"branch_heads"` // per project
	Paths       int `yaml:"paths"`
}

// Validate validates the cache configuration.
func (c *CacheConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.BranchHeads, validation.Required, validation.Min(1)),
		validation.Field(&c.Paths, validation.Required, validation.Min(1)),
	)
}

// HeadReadConfig controls retries of malformed branch head reads.
type HeadReadConfig struct {
	Retries int           `yaml:"retries"`
	Backoff time.Duration `yaml:"backoff"`
}

// Validate validates the head read configuration.
func (c *HeadReadConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.Retries, validation.Min(0)),
		validation.Field(&c.Backoff, validation.Min(time.Duration(0))),
	)
}

// LogConfig sets the log level.
type LogConfig struct {
	Level slog.Level `yaml:"level"`
}

// NewDefault returns the configuration used when no file is given.
func NewDefault() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "./histore.db"},
		Locks: LocksConfig{
			ProjectTimeout: graph.DefaultLockTimeout,
			OwnerTimeout:   graph.DefaultOwnerLockTimeout,
		},
		Cache: CacheConfig{
			BranchHeads: graph.DefaultBranchCacheSize,
			Paths:       graph.DefaultPathCacheSize,
		},
		HeadRead: HeadReadConfig{
			Retries: graph.DefaultHeadReadRetries,
			Backoff: graph.DefaultHeadReadBackoff,
		},
		Log: LogConfig{Level: slog.LevelInfo},
	}
}

// LoadOrDefault loads filename over the defaults. A missing file yields the
// defaults; any other problem is an error. An empty filename falls back to
// $HISTORE_CONFIG.
func LoadOrDefault(filename string) (*Config, error) {
	cfg := NewDefault()
	if filename == "" {
		filename = os.Getenv(EnvConfigPath)
	}
	if filename == "" {
		return cfg, nil
	}
	if _, err := os.Stat(filename); errors.Is(err, os.ErrNotExist) {
		return cfg, nil
	}
	if err := Load(filename, cfg); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Options maps the configuration to graph options.
func (c *Config) Options() []graph.Option {
	return []graph.Option{
		graph.WithLockTimeout(c.Locks.ProjectTimeout),
		graph.WithOwnerLockTimeout(c.Locks.OwnerTimeout),
		graph.WithBranchCacheSize(c.Cache.BranchHeads),
		graph.WithPathCacheSize(c.Cache.Paths),
		graph.WithHeadReadRetry(c.HeadRead.Retries, c.HeadRead.Backoff),
	}
}
