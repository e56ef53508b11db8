package resolver

// Logger is an optional logging interface for the resolver. It matches the
// method set of *github.com/charmbracelet/log.Logger, which can be passed
// directly:
//
//	logger := log.NewWithOptions(os.Stderr, log.Options{Prefix: "resolver"})
//	r := resolver.New(store, resolver.WithLogger(logger))
type Logger interface {
	// Debug logs a debug message with optional key-value pairs
	Debug(msg interface{}, keyvals ...interface{})

	// Info logs an info message with optional key-value pairs
	Info(msg interface{}, keyvals ...interface{})

	// Error logs an error message with optional key-value pairs
	Error(msg interface{}, keyvals ...interface{})
}

// Config holds the resolver configuration.
type Config struct {
	// Logger receives resolution progress; nil disables logging
	Logger Logger

	// Concurrency bounds the sibling branches resolved at once per level
	Concurrency int

	// MaxDepth bounds the recursion through retrieved modules
	MaxDepth int
}

// defaultConfig returns the default configuration.
func defaultConfig() Config {
	return Config{
		Concurrency: 4,
		MaxDepth:    16,
	}
}

// Option is a functional option for the Resolver.
type Option func(*Config)

// WithLogger sets the logger.
func WithLogger(logger Logger) Option {
	return func(c *Config) {
		c.Logger = logger
	}
}

// WithConcurrency sets how many sibling branches are resolved at once.
// Values below 1 are ignored.
func WithConcurrency(n int) Option {
	return func(c *Config) {
		if n > 0 {
			c.Concurrency = n
		}
	}
}

// WithMaxDepth sets how many retrieved modules deep resolution recurses.
func WithMaxDepth(depth int) Option {
	return func(c *Config) {
		if depth > 0 {
			c.MaxDepth = depth
		}
	}
}
