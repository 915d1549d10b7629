package imgdec

import "github.com/apex/log"

// Default decode ceilings, applied per axis
const (
	DefaultMaxWidth  = 16384
	DefaultMaxHeight = 16384
)

// DefaultMaxAnimationBytes caps the composited pixels of all frames of an
// animation together.
const DefaultMaxAnimationBytes = 256 << 20

// Config holds the settings shared by the dispatcher and the plugins it
// constructs.
type Config struct {
	// MaxWidth and MaxHeight cap the decoded dimensions. Images whose
	// header exceeds either value are rejected during sniffing.
	MaxWidth  int
	MaxHeight int

	// MaxAnimationBytes caps frames x width x height x 4 for animated
	// images. Animations over the budget fail to decode with ErrTooLarge.
	MaxAnimationBytes int64

	// Pool receives bitmaps marked volatile
	Pool *Pool

	// Registry lists the formats tried when sniffing
	Registry *Registry

	// Logger receives debug output for dispatch and decode failures
	Logger log.Interface
}

// Option configures a Decoder
type Option func(*Config)

// WithMaxSize sets the maximum decoded width and height. Non-positive
// values keep the defaults.
func WithMaxSize(width, height int) Option {
	return func(c *Config) {
		if width > 0 {
			c.MaxWidth = width
		}
		if height > 0 {
			c.MaxHeight = height
		}
	}
}

// WithMaxAnimationBytes sets the decoded size budget for all frames of an
// animation. Non-positive values keep the default.
func WithMaxAnimationBytes(n int64) Option {
	return func(c *Config) {
		if n > 0 {
			c.MaxAnimationBytes = n
		}
	}
}

// WithPool sets the pool that tracks volatile bitmaps
func WithPool(p *Pool) Option {
	return func(c *Config) {
		c.Pool = p
	}
}

// WithRegistry sets the registry used to sniff the data
func WithRegistry(r *Registry) Option {
	return func(c *Config) {
		c.Registry = r
	}
}

// WithLogger sets the logger
func WithLogger(l log.Interface) Option {
	return func(c *Config) {
		c.Logger = l
	}
}

func newConfig(opts ...Option) *Config {
	c := &Config{
		MaxWidth:          DefaultMaxWidth,
		MaxHeight:         DefaultMaxHeight,
		MaxAnimationBytes: DefaultMaxAnimationBytes,
		Pool:              DefaultPool,
		Registry:          DefaultRegistry,
		Logger:            log.Log,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.Registry == nil {
		c.Registry = DefaultRegistry
	}
	if c.Logger == nil {
		c.Logger = log.Log
	}
	return c
}

// fits reports whether width x height is within the configured ceiling
func (c *Config) fits(width, height int) bool {
	return width > 0 && height > 0 && width <= c.MaxWidth && height <= c.MaxHeight
}
