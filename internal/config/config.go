// Package config loads staykeep settings from a YAML file and the
// environment. Environment variables win over the file.
package config

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/caarlos0/env/v11"
	"gopkg.in/yaml.v3"
)

// Storage drivers for the local cache.
const (
	StorageSQLite = "sqlite"
	StorageFile   = "file"
	StorageMemory = "memory"
	StorageS3     = "s3"
)

// Remote drivers. RemoteNone keeps the process in Local mode even when a
// user is signed in.
const (
	RemoteNone     = "none"
	RemoteMemory   = "memory"
	RemotePostgres = "pgx"
	RemoteSQLite   = "sqlite"
)

// Config holds application configuration.
type Config struct {
	DataDir    string        `yaml:"data_dir" env:"STAYKEEP_DATA_DIR"`
	ListenAddr string        `yaml:"listen_addr" env:"STAYKEEP_LISTEN_ADDR"`
	Storage    StorageConfig `yaml:"storage" envPrefix:"STAYKEEP_STORAGE_"`
	Remote     RemoteConfig  `yaml:"remote" envPrefix:"STAYKEEP_REMOTE_"`
	Log        LogConfig     `yaml:"log" envPrefix:"STAYKEEP_LOG_"`
}

// StorageConfig selects the local cache engine.
type StorageConfig struct {
	Driver string   `yaml:"driver" env:"DRIVER"`
	S3     S3Config `yaml:"s3" envPrefix:"S3_"`
}

// S3Config configures the S3 engine.
type S3Config struct {
	Region          string `yaml:"region" env:"REGION"`
	Bucket          string `yaml:"bucket" env:"BUCKET"`
	Prefix          string `yaml:"prefix" env:"PREFIX"`
	Endpoint        string `yaml:"endpoint" env:"ENDPOINT"`
	AccessKeyID     string `yaml:"access_key_id" env:"ACCESS_KEY_ID"`
	SecretAccessKey string `yaml:"secret_access_key" env:"SECRET_ACCESS_KEY"`
	PathStyle       bool   `yaml:"path_style" env:"PATH_STYLE"`
}

// RemoteConfig selects the remote store used in Remote mode.
type RemoteConfig struct {
	Driver string `yaml:"driver" env:"DRIVER"`
	DSN    string `yaml:"dsn" env:"DSN"`
}

// LogConfig configures logging.
type LogConfig struct {
	Level string `yaml:"level" env:"LEVEL"`
	JSON  bool   `yaml:"json" env:"JSON"`
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		DataDir:    "~/.staykeep",
		ListenAddr: "127.0.0.1:7420",
		Storage:    StorageConfig{Driver: StorageSQLite},
		Remote:     RemoteConfig{Driver: RemoteSQLite},
		Log:        LogConfig{Level: "info"},
	}
}

// Option adjusts a loaded configuration.
type Option func(*Config)

// WithDataDir overrides the data directory.
func WithDataDir(dir string) Option {
	return func(c *Config) {
		if dir != "" {
			c.DataDir = dir
		}
	}
}

// WithStorageDriver overrides the storage driver.
func WithStorageDriver(driver string) Option {
	return func(c *Config) {
		if driver != "" {
			c.Storage.Driver = driver
		}
	}
}

// WithRemoteDriver overrides the remote store driver.
func WithRemoteDriver(driver string) Option {
	return func(c *Config) {
		if driver != "" {
			c.Remote.Driver = driver
		}
	}
}

// WithLogLevel overrides the log level.
func WithLogLevel(level string) Option {
	return func(c *Config) {
		if level != "" {
			c.Log.Level = level
		}
	}
}

// Load reads the YAML file at path (a missing file is fine), overlays the
// environment, applies opts and validates the result.
func Load(path string, opts ...Option) (Config, error) {
	cfg := DefaultConfig()

	if path != "" {
		data, err := os.ReadFile(expandHome(path))
		switch {
		case err == nil:
			if err := yaml.Unmarshal(data, &cfg); err != nil {
				return Config{}, fmt.Errorf("failed to parse config file: %w", err)
			}
		case errors.Is(err, os.ErrNotExist):
		default:
			return Config{}, fmt.Errorf("failed to read config file: %w", err)
		}
	}

	if err := env.Parse(&cfg); err != nil {
		return Config{}, fmt.Errorf("parse env: %w", err)
	}

	for _, opt := range opts {
		opt(&cfg)
	}

	cfg.DataDir = expandHome(cfg.DataDir)
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks driver names and required settings.
func (c Config) Validate() error {
	switch c.Storage.Driver {
	case StorageSQLite, StorageFile, StorageMemory:
	case StorageS3:
		if c.Storage.S3.Bucket == "" {
			return errors.New("storage.s3.bucket is required for the s3 driver")
		}
	default:
		return fmt.Errorf("unknown storage driver %q", c.Storage.Driver)
	}

	switch c.Remote.Driver {
	case RemoteNone, RemoteMemory, RemoteSQLite:
	case RemotePostgres:
		if c.Remote.DSN == "" {
			return errors.New("remote.dsn is required for the pgx driver")
		}
	default:
		return fmt.Errorf("unknown remote driver %q", c.Remote.Driver)
	}
	return nil
}

// DatabasePath is the SQLite file for the local cache.
func (c Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "preferences.db")
}

// FilesPath is the directory for the file engine.
func (c Config) FilesPath() string {
	return filepath.Join(c.DataDir, "preferences")
}

// SessionPath is the identity session file.
func (c Config) SessionPath() string {
	return filepath.Join(c.DataDir, "session.yaml")
}

// RemoteDSN returns the remote DSN, defaulting the SQLite driver to a
// file in the data directory.
func (c Config) RemoteDSN() string {
	if c.Remote.DSN == "" && c.Remote.Driver == RemoteSQLite {
		return filepath.Join(c.DataDir, "remote.db")
	}
	return c.Remote.DSN
}

// DefaultPath returns the config file location for dataDir.
func DefaultPath(dataDir string) string {
	return filepath.Join(expandHome(dataDir), "config.yaml")
}

func expandHome(path string) string {
	if path != "~" && !strings.HasPrefix(path, "~/") {
		return path
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return path
	}
	return filepath.Join(home, strings.TrimPrefix(path, "~"))
}
