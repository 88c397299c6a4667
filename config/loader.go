package config

import (
	"errors"
	"fmt"
	"strings"

	"github.com/spf13/pflag"
	"github.com/spf13/viper"
)

const (
	// EnvPrefix prefixes every environment override, e.g. LIGHTCLIENT_LOG_LEVEL.
	EnvPrefix = "LIGHTCLIENT"

	// FileName is the config file looked up in the data directory.
	FileName = "config.toml"
)

// flagKeys maps command-line flag names to config keys.
var flagKeys = map[string]string{
	"datadir":           "datadir",
	"db-backend":        "db_backend",
	"db-cache":          "db_cache",
	"db-handles":        "db_handles",
	"curve-backend":     "curve_backend",
	"log-level":         "log_level",
	"log-format":        "log_format",
	"max-update-age":    "max_update_age",
	"metrics":           "metrics.enabled",
	"metrics-addr":      "metrics.listen_addr",
	"metrics-namespace": "metrics.namespace",
}

// NewViper returns a viper instance seeded with DefaultConfig and reading
// LIGHTCLIENT_* environment variables.
func NewViper() *viper.Viper {
	v := viper.New()
	def := DefaultConfig()
	v.SetDefault("datadir", def.DataDir)
	v.SetDefault("db_backend", def.DBBackend)
	v.SetDefault("db_cache", def.DBCache)
	v.SetDefault("db_handles", def.DBHandles)
	v.SetDefault("curve_backend", def.CurveBackend)
	v.SetDefault("log_level", def.LogLevel)
	v.SetDefault("log_format", def.LogFormat)
	v.SetDefault("max_update_age", def.MaxUpdateAge)
	v.SetDefault("metrics.enabled", def.Metrics.Enabled)
	v.SetDefault("metrics.listen_addr", def.Metrics.ListenAddr)
	v.SetDefault("metrics.namespace", def.Metrics.Namespace)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()
	return v
}

// BindFlags binds the known flags present in fs to their config keys. A flag
// only overrides the file and environment when it was set explicitly.
func BindFlags(v *viper.Viper, fs *pflag.FlagSet) error {
	for name, key := range flagKeys {
		f := fs.Lookup(name)
		if f == nil {
			continue
		}
		if err := v.BindPFlag(key, f); err != nil {
			return fmt.Errorf("config: bind flag %s: %w", name, err)
		}
	}
	return nil
}

// Load reads $DATADIR/config.toml if it exists, applies environment and flag
// overrides, and validates the result.
func Load(v *viper.Viper) (*Config, error) {
	dataDir := v.GetString("datadir")
	v.SetConfigName(strings.TrimSuffix(FileName, ".toml"))
	v.SetConfigType("toml")
	if dataDir != "" {
		v.AddConfigPath(dataDir)
	}
	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("config: read %s: %w", FileName, err)
		}
	}

	cfg := DefaultConfig()
	if err := v.Unmarshal(&cfg); err != nil {
		return nil, fmt.Errorf("config: decode: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return &cfg, nil
}
