package main

import (
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/charmbracelet/log"
	"github.com/spf13/afero"
	"github.com/spf13/viper"

	"github.com/moffa90/go-modbin/asset"
	"github.com/moffa90/go-modbin/module"
	"github.com/moffa90/go-modbin/platform"
)

const (
	// AppName is the application name
	AppName = "modinfo"

	// EnvPrefix prefixes environment overrides, e.g. MODINFO_LOG_LEVEL
	EnvPrefix = "MODINFO"
)

// Config is the CLI configuration. It is read from an optional config file
// (TOML, YAML or JSON) and MODINFO_* environment variables.
type Config struct {
	LogLevel         string `mapstructure:"log_level"`
	VectorTableSizes []int  `mapstructure:"vector_table_sizes"`
	PlatformsFile    string `mapstructure:"platforms_file"`
	Concurrency      int    `mapstructure:"concurrency"`
}

// DefaultConfig returns the configuration used when nothing is set.
func DefaultConfig() *Config {
	return &Config{
		LogLevel:         "info",
		VectorTableSizes: module.DefaultVectorTableSizes,
		Concurrency:      4,
	}
}

// loadConfig reads the configuration. When path is empty the file
// modinfo.{toml,yaml,json} is looked up in the user config directory and
// the working directory; a missing file is not an error.
func loadConfig(path string) (*Config, error) {
	v := viper.New()

	defaults := DefaultConfig()
	v.SetDefault("log_level", defaults.LogLevel)
	v.SetDefault("vector_table_sizes", defaults.VectorTableSizes)
	v.SetDefault("platforms_file", defaults.PlatformsFile)
	v.SetDefault("concurrency", defaults.Concurrency)

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	if path != "" {
		v.SetConfigFile(path)
	} else {
		v.SetConfigName(AppName)
		if dir, err := os.UserConfigDir(); err == nil {
			v.AddConfigPath(filepath.Join(dir, AppName))
		}
		v.AddConfigPath(".")
	}

	if err := v.ReadInConfig(); err != nil {
		var notFound viper.ConfigFileNotFoundError
		if path != "" || !errors.As(err, &notFound) {
			return nil, fmt.Errorf("failed to read config: %w", err)
		}
	}

	cfg := &Config{}
	if err := v.Unmarshal(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode config: %w", err)
	}
	return cfg, nil
}

// newLogger builds the command logger at the configured level.
func newLogger(cfg *Config) *log.Logger {
	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: AppName})
	level, err := log.ParseLevel(cfg.LogLevel)
	if err != nil {
		logger.Warn("Unknown log level, using info", "log_level", cfg.LogLevel)
		level = log.InfoLevel
	}
	if verbose {
		level = log.DebugLevel
	}
	logger.SetLevel(level)
	return logger
}

// moduleOptions returns the codec options for cfg.
func (c *Config) moduleOptions() []module.Option {
	return []module.Option{
		module.WithFs(afero.NewOsFs()),
		module.WithVectorTableSizes(c.VectorTableSizes...),
	}
}

// assetOptions returns the asset codec options for cfg, loading the
// platform table override if one is configured.
func (c *Config) assetOptions() ([]asset.Option, error) {
	opts := []asset.Option{asset.WithModuleOptions(c.moduleOptions()...)}
	if c.PlatformsFile == "" {
		return opts, nil
	}
	tbl, err := c.platformTable()
	if err != nil {
		return nil, err
	}
	return append(opts, asset.WithPlatforms(tbl)), nil
}

func (c *Config) platformTable() (*platform.Table, error) {
	if c.PlatformsFile == "" {
		return platform.Default(), nil
	}
	f, err := os.Open(c.PlatformsFile)
	if err != nil {
		return nil, fmt.Errorf("failed to open platform table: %w", err)
	}
	defer f.Close()
	return platform.Load(f)
}
