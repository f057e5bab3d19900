// Package config loads depot configuration from a TOML file with sensible
// defaults for single-machine CLI use.
//
// The default config location follows the XDG convention
// (~/.config/depot/config.toml); a missing file is not an error and yields
// the defaults.
package config

import (
	"os"
	"path/filepath"

	"github.com/BurntSushi/toml"

	"github.com/pkgdepot/depot/pkg/errors"
	"github.com/pkgdepot/depot/pkg/store"
)

// appName is used for config and data directories.
const appName = "depot"

// Store backend names accepted in configuration.
const (
	BackendMemory = "memory"
	BackendFile   = "file"
	BackendRedis  = "redis"
	BackendMongo  = "mongo"
)

// Config is the top-level configuration.
type Config struct {
	Store StoreConfig `toml:"store"`
	HTTP  HTTPConfig  `toml:"http"`
}

// StoreConfig selects and configures the package database backend.
type StoreConfig struct {
	// Backend is one of "memory", "file", "redis", "mongo".
	Backend string `toml:"backend"`

	// Path is the database document location for the file backend.
	Path string `toml:"path"`

	Redis store.RedisConfig `toml:"redis"`
	Mongo store.MongoConfig `toml:"mongo"`
}

// HTTPConfig configures the depot HTTP API.
type HTTPConfig struct {
	Listen string `toml:"listen"`
}

// Default returns the configuration used when no file is present:
// a file-backed store under the XDG data directory.
func Default() Config {
	return Config{
		Store: StoreConfig{
			Backend: BackendFile,
			Path:    defaultStorePath(),
		},
		HTTP: HTTPConfig{
			Listen: "127.0.0.1:8977",
		},
	}
}

// Load reads the config file at path, applying defaults for unset fields.
// An empty path falls back to DEPOT_CONFIG, then the default location; a
// missing file yields defaults.
func Load(path string) (Config, error) {
	cfg := Default()

	if path == "" {
		path = os.Getenv("DEPOT_CONFIG")
	}
	if path == "" {
		path = DefaultPath()
	}
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return cfg, nil
	}
	if err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "read config %s", path)
	}
	if err := toml.Unmarshal(data, &cfg); err != nil {
		return Config{}, errors.Wrap(errors.ErrCodeInvalidConfig, err, "parse config %s", path)
	}
	if err := cfg.Validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

// Validate checks backend selection and backend-specific requirements.
func (c Config) Validate() error {
	switch c.Store.Backend {
	case BackendMemory:
	case BackendFile:
		if c.Store.Path == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "file backend requires store.path")
		}
	case BackendRedis:
		if c.Store.Redis.Addr == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "redis backend requires store.redis.addr")
		}
	case BackendMongo:
		if c.Store.Mongo.URI == "" {
			return errors.New(errors.ErrCodeInvalidConfig, "mongo backend requires store.mongo.uri")
		}
	default:
		return errors.New(errors.ErrCodeInvalidConfig,
			"unknown store backend %q (must be one of: memory, file, redis, mongo)", c.Store.Backend)
	}
	return nil
}

// DefaultPath returns the default config file location
// (XDG config dir, ~/.config/depot/config.toml).
func DefaultPath() string {
	if configHome := os.Getenv("XDG_CONFIG_HOME"); configHome != "" {
		return filepath.Join(configHome, appName, "config.toml")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName+".toml")
	}
	return filepath.Join(home, ".config", appName, "config.toml")
}

// defaultStorePath returns the default file-backend document location
// (XDG data dir, ~/.local/share/depot/db.json).
func defaultStorePath() string {
	if dataHome := os.Getenv("XDG_DATA_HOME"); dataHome != "" {
		return filepath.Join(dataHome, appName, "db.json")
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return filepath.Join(".", appName, "db.json")
	}
	return filepath.Join(home, ".local", "share", appName, "db.json")
}
