// Package config holds the light client's runtime configuration and loads it
// from a TOML file, environment variables and command-line flags.
package config

import (
	"errors"
	"fmt"
	"io"
	"path/filepath"
	"time"

	"github.com/bomba-atomica/atomica-sub003/crypto"
	"github.com/bomba-atomica/atomica-sub003/log"
)

// Database backends.
const (
	DBLevelDB = "leveldb"
	DBMemory  = "memory"
)

// MetricsConfig configures the Prometheus endpoint.
type MetricsConfig struct {
	// Enabled turns on the /metrics HTTP listener.
	Enabled bool `mapstructure:"enabled"`

	// ListenAddr is the host:port the metrics server binds to.
	ListenAddr string `mapstructure:"listen_addr"`

	// Namespace prefixes every exported metric name.
	Namespace string `mapstructure:"namespace"`
}

// Config holds all configuration for a light client process.
type Config struct {
	// DataDir is the root directory for the database and config.toml.
	DataDir string `mapstructure:"datadir"`

	// DBBackend selects the store (leveldb, memory).
	DBBackend string `mapstructure:"db_backend"`

	// DBCache is the LevelDB cache size in MiB.
	DBCache int `mapstructure:"db_cache"`

	// DBHandles is the LevelDB open file handle allowance.
	DBHandles int `mapstructure:"db_handles"`

	// CurveBackend selects the BLS12-381 implementation: gnark, or blst in
	// binaries built with -tags blst.
	CurveBackend string `mapstructure:"curve_backend"`

	// LogLevel controls log verbosity (debug, info, warn, error).
	LogLevel string `mapstructure:"log_level"`

	// LogFormat selects the log encoding (json, text).
	LogFormat string `mapstructure:"log_format"`

	// MaxUpdateAge rejects updates whose timestamp is older than this.
	// Zero disables the check.
	MaxUpdateAge time.Duration `mapstructure:"max_update_age"`

	Metrics MetricsConfig `mapstructure:"metrics"`
}

// DefaultConfig returns a Config with sensible defaults.
func DefaultConfig() Config {
	return Config{
		DataDir:      "lightclient-data",
		DBBackend:    DBLevelDB,
		DBCache:      16,
		DBHandles:    16,
		CurveBackend: crypto.GnarkBackend{}.Name(),
		LogLevel:     "info",
		LogFormat:    log.FormatText,
		Metrics: MetricsConfig{
			Enabled:    false,
			ListenAddr: "127.0.0.1:9615",
			Namespace:  "lightclient",
		},
	}
}

// Validate checks configuration values for correctness.
func (c *Config) Validate() error {
	switch c.DBBackend {
	case DBLevelDB:
		if c.DataDir == "" {
			return errors.New("config: datadir must not be empty")
		}
	case DBMemory:
	default:
		return fmt.Errorf("config: unknown db backend %q", c.DBBackend)
	}
	if c.DBCache < 0 {
		return fmt.Errorf("config: invalid db cache: %d", c.DBCache)
	}
	if c.DBHandles < 0 {
		return fmt.Errorf("config: invalid db handles: %d", c.DBHandles)
	}
	if _, err := crypto.CurveBackendByName(c.CurveBackend); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := log.ParseLevel(c.LogLevel); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if _, err := log.ParseFormat(c.LogFormat); err != nil {
		return fmt.Errorf("config: %w", err)
	}
	if c.MaxUpdateAge < 0 {
		return fmt.Errorf("config: negative max update age: %s", c.MaxUpdateAge)
	}
	if c.Metrics.Enabled && c.Metrics.ListenAddr == "" {
		return errors.New("config: metrics listen address must not be empty when metrics are enabled")
	}
	return nil
}

// ResolvePath resolves a path relative to the data directory.
func (c *Config) ResolvePath(path string) string {
	if filepath.IsAbs(path) {
		return path
	}
	return filepath.Join(c.DataDir, path)
}

// DBPath returns the LevelDB directory.
func (c *Config) DBPath() string {
	return c.ResolvePath("lightdb")
}

// Logger builds a logger writing to w from LogLevel and LogFormat.
func (c *Config) Logger(w io.Writer) (*log.Logger, error) {
	level, err := log.ParseLevel(c.LogLevel)
	if err != nil {
		return nil, err
	}
	format, err := log.ParseFormat(c.LogFormat)
	if err != nil {
		return nil, err
	}
	return log.NewWithFormat(w, level, format), nil
}
