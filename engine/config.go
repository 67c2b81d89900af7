package engine

import (
	"time"

	"github.com/joeycumines/go-catrate"
	"github.com/joeycumines/moduleengine/fault"
	"github.com/joeycumines/moduleengine/internal/enginelog"
)

// DefaultBaseTick is the base worker tick period when no WithBaseTick
// option is given: 1/60 s, matching spec.md §4.5's default.
const DefaultBaseTick = time.Second / 60

// DefaultJoinDeadline is the worker shutdown join deadline when no
// WithJoinDeadline option is given (spec.md §5: "default 2 s").
const DefaultJoinDeadline = 2 * time.Second

// Config collects Controller construction options, set via functional
// options following the Option[E Event] idiom used throughout logiface.New
// and eventloop's own construction helpers.
type Config struct {
	baseTick       time.Duration
	joinDeadline   time.Duration
	faultThreshold int
	logger         *enginelog.Logger
	limiter        *catrate.Limiter
}

// Option configures a Controller at construction time.
type Option func(*Config)

// WithBaseTick overrides the default worker base tick period.
func WithBaseTick(d time.Duration) Option {
	return func(c *Config) { c.baseTick = d }
}

// WithJoinDeadline overrides the default worker shutdown join deadline.
func WithJoinDeadline(d time.Duration) Option {
	return func(c *Config) { c.joinDeadline = d }
}

// WithFaultThreshold overrides the default Fault Guard consecutive-failure
// disable threshold.
func WithFaultThreshold(n int) Option {
	return func(c *Config) { c.faultThreshold = n }
}

// WithLogger sets the structured logger every Fault Guard and lifecycle
// event is written through. The default is enginelog.Discard().
func WithLogger(logger *enginelog.Logger) Option {
	return func(c *Config) { c.logger = logger }
}

// WithFaultLogLimiter sets the catrate.Limiter used to rate-limit fault log
// lines per module name. The default is nil (unlimited).
func WithFaultLogLimiter(limiter *catrate.Limiter) Option {
	return func(c *Config) { c.limiter = limiter }
}

func newConfig(opts []Option) Config {
	cfg := Config{
		baseTick:       DefaultBaseTick,
		joinDeadline:   DefaultJoinDeadline,
		faultThreshold: fault.DefaultThreshold,
		logger:         enginelog.Discard(),
	}
	for _, opt := range opts {
		opt(&cfg)
	}
	return cfg
}
