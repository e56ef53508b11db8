package asset

import (
	"github.com/spf13/afero"

	"github.com/moffa90/go-modbin/module"
	"github.com/moffa90/go-modbin/platform"
)

// Config holds the asset codec configuration.
type Config struct {
	// Fs is used to read Files given by path
	Fs afero.Fs

	// Platforms supplies the growth policy and size limits
	Platforms *platform.Table

	// Compress deflates new asset modules
	Compress bool

	// ModuleOptions are passed to the module codec
	ModuleOptions []module.Option
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Fs:       afero.NewOsFs(),
		Compress: true,
	}
}

func newConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Platforms == nil {
		cfg.Platforms = platform.Default()
	}
	return cfg
}

// Option is a functional option for the asset codec.
type Option func(*Config)

// WithFs sets the filesystem used to read files given by path.
func WithFs(fs afero.Fs) Option {
	return func(c *Config) {
		if fs != nil {
			c.Fs = fs
		}
	}
}

// WithPlatforms replaces the built-in platform table.
func WithPlatforms(t *platform.Table) Option {
	return func(c *Config) {
		c.Platforms = t
	}
}

// WithCompression enables or disables compression of new asset modules.
// Default is true.
func WithCompression(compress bool) Option {
	return func(c *Config) {
		c.Compress = compress
	}
}

// WithModuleOptions passes options to the module codec, for example a
// custom checksum engine.
func WithModuleOptions(opts ...module.Option) Option {
	return func(c *Config) {
		c.ModuleOptions = append(c.ModuleOptions, opts...)
	}
}
