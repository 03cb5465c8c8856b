// Package config loads runtime settings for cocoon from defaults, an
// optional config file, and COCOON_* environment variables.
package config

import (
	"os"
	"strings"
	"time"

	"github.com/spf13/viper"
	"go.cocoon.sh/cocoon/internal/core/domain"
	"go.trai.ch/zerr"
)

const defaultRegistryURL = "https://registry.cocoon.sh"

// StoreConfig configures the content addressable store.
type StoreConfig struct {
	Root string `mapstructure:"root"`
}

// IndexConfig configures the package index. Path selects a local catalog
// snapshot; when empty the HTTP registry at URL is used.
type IndexConfig struct {
	URL  string `mapstructure:"url"`
	Path string `mapstructure:"path"`
}

// FetchConfig configures artifact downloads.
type FetchConfig struct {
	Attempts int           `mapstructure:"attempts"`
	Timeout  time.Duration `mapstructure:"timeout"`
}

// ResolveConfig configures version selection.
type ResolveConfig struct {
	Prefer string `mapstructure:"prefer"`
}

// ShellConfig configures session activation.
type ShellConfig struct {
	Program string `mapstructure:"program"`
}

// Config holds all runtime configuration for a cocoon invocation.
// Values are populated from .cocoon.yaml, COCOON_* env vars, and defaults.
type Config struct {
	Store   StoreConfig   `mapstructure:"store"`
	Index   IndexConfig   `mapstructure:"index"`
	Fetch   FetchConfig   `mapstructure:"fetch"`
	Resolve ResolveConfig `mapstructure:"resolve"`
	Shell   ShellConfig   `mapstructure:"shell"`
}

// Preference returns the configured version selection preference.
func (c *Config) Preference() domain.SelectionPreference {
	return domain.ParseSelectionPreference(c.Resolve.Prefer)
}

// Load reads configuration from viper, applying built-in defaults for any
// values not set by config file or environment.
func Load() (*Config, error) {
	initViper()

	viper.SetDefault("store.root", domain.DefaultRootPath())
	viper.SetDefault("index.url", defaultRegistryURL)
	viper.SetDefault("index.path", "")
	viper.SetDefault("fetch.attempts", 3)
	viper.SetDefault("fetch.timeout", "2m")
	viper.SetDefault("resolve.prefer", string(domain.PreferHighest))
	viper.SetDefault("shell.program", "")

	var cfg Config
	if err := viper.Unmarshal(&cfg); err != nil {
		return nil, zerr.Wrap(err, "failed to unmarshal config")
	}
	return &cfg, nil
}

// initViper wires config file discovery and environment binding. The env
// key replacer maps COCOON_STORE_ROOT onto the store.root key.
func initViper() {
	viper.SetConfigName(".cocoon")
	viper.SetConfigType("yaml")
	viper.AddConfigPath(".")
	if home, err := os.UserHomeDir(); err == nil {
		viper.AddConfigPath(home)
	}

	viper.SetEnvPrefix("COCOON")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	viper.AutomaticEnv()

	// It's fine if no config file is found; we use defaults.
	_ = viper.ReadInConfig()
}
