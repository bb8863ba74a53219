// Package config provides configuration loading for the stamp CLI.
package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"
	"github.com/spf13/viper"
)

// Config is the root configuration for stamp.
type Config struct {
	DataDir       string              `mapstructure:"data_dir"`
	Store         BackendConfig       `mapstructure:"store"`
	Net           BackendConfig       `mapstructure:"net"`
	Observability ObservabilityConfig `mapstructure:"observability"`
}

// BackendConfig selects a named backend and carries its settings.
type BackendConfig struct {
	Backend string            `mapstructure:"backend"`
	Config  map[string]string `mapstructure:"config"`
}

// ObservabilityConfig holds logging, metrics, and tracing settings.
type ObservabilityConfig struct {
	LogLevel       string `mapstructure:"log_level"`
	LogFormat      string `mapstructure:"log_format"`
	MetricsAddr    string `mapstructure:"metrics_addr"`
	OTLPEndpoint   string `mapstructure:"otlp_endpoint"`
	ServiceName    string `mapstructure:"service_name"`
	ServiceVersion string `mapstructure:"service_version"`
}

// DefaultDataDir returns the default data directory (~/.stamp).
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil {
		return ".stamp"
	}
	return filepath.Join(home, ".stamp")
}

func setDefaults(v *viper.Viper) {
	v.SetDefault("data_dir", DefaultDataDir())

	v.SetDefault("store.backend", "badger")
	v.SetDefault("net.backend", "memory")

	v.SetDefault("observability.log_level", "info")
	v.SetDefault("observability.log_format", "text")
	v.SetDefault("observability.metrics_addr", "")
	v.SetDefault("observability.otlp_endpoint", "")
	v.SetDefault("observability.service_name", "stamp")
	v.SetDefault("observability.service_version", "dev")
}

// BindCommonFlags binds standard CLI flags to Viper on a command's persistent
// flag set.
func BindCommonFlags(cmd *cobra.Command, v *viper.Viper) {
	f := cmd.PersistentFlags()

	f.String("data-dir", "", "data directory (default ~/.stamp)")
	f.String("config", "", "config file path")
	f.String("store", "", "storage backend (badger, sqlite, memory)")
	f.String("net", "", "network backend (memory, redis, s3)")
	f.String("log-level", "", "log level (debug, info, warn, error)")
	f.String("log-format", "", "log format (json, text)")

	_ = v.BindPFlag("data_dir", f.Lookup("data-dir"))
	_ = v.BindPFlag("store.backend", f.Lookup("store"))
	_ = v.BindPFlag("net.backend", f.Lookup("net"))
	_ = v.BindPFlag("observability.log_level", f.Lookup("log-level"))
	_ = v.BindPFlag("observability.log_format", f.Lookup("log-format"))
}

// Load reads config from flags, env, and file, returning the merged Config.
func Load(v *viper.Viper, configFile string) (Config, error) {
	setDefaults(v)

	v.SetEnvPrefix("STAMP")
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	v.AutomaticEnv()

	if configFile != "" {
		v.SetConfigFile(configFile)
	} else {
		v.SetConfigName("stamp")
		v.SetConfigType("yaml")
		v.AddConfigPath(".")
		v.AddConfigPath("$HOME/.stamp")
		v.AddConfigPath("/etc/stamp")
	}

	if err := v.ReadInConfig(); err != nil {
		var cfgErr viper.ConfigFileNotFoundError
		if !errors.As(err, &cfgErr) && configFile != "" {
			return Config{}, err
		}
	}

	var cfg Config
	if err := v.Unmarshal(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Store.Config == nil {
		cfg.Store.Config = make(map[string]string)
	}
	if cfg.Net.Config == nil {
		cfg.Net.Config = make(map[string]string)
	}
	// Backend paths default under the data dir.
	if _, ok := cfg.Store.Config["path"]; !ok && cfg.DataDir != "" {
		switch cfg.Store.Backend {
		case "badger":
			cfg.Store.Config["path"] = filepath.Join(cfg.DataDir, "db")
		case "sqlite":
			cfg.Store.Config["path"] = filepath.Join(cfg.DataDir, "stamp.db")
		}
	}
	return cfg, nil
}
