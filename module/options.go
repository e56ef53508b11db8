package module

import (
	"github.com/klauspost/compress/flate"
	"github.com/spf13/afero"

	"github.com/moffa90/go-modbin/checksum"
)

// Config holds the codec configuration shared by the parser and the
// mutating operations.
type Config struct {
	// Fs is the filesystem used by ParseFile
	Fs afero.Fs

	// VectorTableSizes are the leading offsets probed when no prefix is found at 0
	VectorTableSizes []int

	// Checksum recomputes the unique id and CRC trailer
	Checksum *checksum.Engine

	// UpdateSHA256 recomputes the unique id after a mutation
	UpdateSHA256 bool

	// UpdateCRC32 recomputes the CRC trailer after a mutation
	UpdateCRC32 bool

	// CompressionLevel is the deflate level used by CompressModule
	CompressionLevel int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Fs:               afero.NewOsFs(),
		VectorTableSizes: DefaultVectorTableSizes,
		UpdateSHA256:     true,
		UpdateCRC32:      true,
		CompressionLevel: flate.BestCompression,
	}
}

func newConfig(opts []Option) Config {
	cfg := defaultConfig()
	for _, opt := range opts {
		opt(&cfg)
	}
	if cfg.Checksum == nil {
		cfg.Checksum = checksum.New()
	}
	return cfg
}

// Option is a functional option for the codec.
type Option func(*Config)

// WithFs sets the filesystem used to read module files.
//
// Example:
//
//	fs := afero.NewMemMapFs()
//	info, err := module.ParseFile("user.bin", module.WithFs(fs))
func WithFs(fs afero.Fs) Option {
	return func(c *Config) {
		if fs != nil {
			c.Fs = fs
		}
	}
}

// WithVectorTableSizes replaces the vector-table offsets probed by the parser.
// Calling it with no sizes disables probing.
func WithVectorTableSizes(sizes ...int) Option {
	return func(c *Config) {
		c.VectorTableSizes = append([]int(nil), sizes...)
	}
}

// WithChecksum sets the checksum engine, typically to use a non-default CRC.
//
// Example:
//
//	eng := checksum.New(checksum.WithCRC32(myCRC))
//	out, err := module.CompressModule(buf, module.WithChecksum(eng))
func WithChecksum(eng *checksum.Engine) Option {
	return func(c *Config) {
		c.Checksum = eng
	}
}

// WithUpdateSHA256 enables or disables unique id recomputation after a mutation.
// Default is true.
func WithUpdateSHA256(update bool) Option {
	return func(c *Config) {
		c.UpdateSHA256 = update
	}
}

// WithUpdateCRC32 enables or disables CRC recomputation after a mutation.
// Default is true.
func WithUpdateCRC32(update bool) Option {
	return func(c *Config) {
		c.UpdateCRC32 = update
	}
}

// WithCompressionLevel sets the deflate level (flate.BestSpeed to flate.BestCompression).
func WithCompressionLevel(level int) Option {
	return func(c *Config) {
		if level >= flate.HuffmanOnly && level <= flate.BestCompression {
			c.CompressionLevel = level
		}
	}
}

// updateChecksums recomputes the unique id and then the CRC, honoring the
// UpdateSHA256 and UpdateCRC32 settings.
func (c *Config) updateChecksums(buf []byte) error {
	if c.UpdateSHA256 {
		if err := c.Checksum.UpdateSHA256(buf); err != nil {
			return err
		}
	}
	if c.UpdateCRC32 {
		if err := c.Checksum.UpdateCRC32(buf); err != nil {
			return err
		}
	}
	return nil
}

// UpdateChecksums recomputes the unique id and then the CRC of the module
// occupying all of buf, honoring WithUpdateSHA256 and WithUpdateCRC32.
func UpdateChecksums(buf []byte, opts ...Option) error {
	cfg := newConfig(opts)
	return cfg.updateChecksums(buf)
}
