package cache

import (
	"fmt"
	"time"

	"github.com/benbjohnson/clock"

	"github.com/jonwraymond/memoize/health"
	"github.com/jonwraymond/memoize/observe"
	"github.com/jonwraymond/memoize/resilience"
)

// Config configures a Cache.
type Config struct {
	// Name identifies the cache in logs and health checks.
	// Default: "memo-<uuid>"
	Name string

	// EvictionInterval is the period of the eviction sweep.
	// Default: 1 second
	EvictionInterval time.Duration

	// RetainLimit bounds how many computed values are strongly retained.
	// Values pushed out are reclaimed and their entries expire early.
	// Default: 10000
	RetainLimit int

	// MaxTTL clamps policy TTLs when positive. Forever policies are not
	// affected.
	MaxTTL time.Duration

	// Refresh configures how background refreshes are protected.
	Refresh RefreshConfig

	// Pressure configures memory-pressure reclamation.
	Pressure PressureConfig

	// Clock drives TTLs and the eviction schedule.
	// Default: the wall clock
	Clock clock.Clock

	// Observer supplies tracing, metrics and a logger. Optional.
	Observer observe.Observer

	// Logger overrides the observer's logger. Optional.
	Logger observe.Logger

	// Sink receives diagnostic events in addition to the observer. Optional.
	Sink Sink
}

// RefreshConfig configures the resilience executor used by the refresher.
// Every field is optional; the zero value runs each refresh once with no
// timeout.
type RefreshConfig struct {
	// Timeout bounds each refresh attempt when positive.
	Timeout time.Duration

	// Retry retries failed refreshes with backoff when set. Its Clock
	// defaults to the cache clock.
	Retry *resilience.RetryConfig

	// Circuit stops refreshing a failing computation when set. Its Clock
	// defaults to the cache clock.
	Circuit *resilience.CircuitBreakerConfig
}

// PressureConfig configures memory-pressure reclamation.
type PressureConfig struct {
	// Enabled turns on the pressure check before each eviction sweep.
	Enabled bool

	// Memory configures the default memory checker.
	Memory health.MemoryCheckerConfig

	// Checker replaces the memory checker. Any non-healthy result counts as
	// pressure.
	Checker health.Checker

	// ReleaseFraction is the share of retained values released per sweep
	// under pressure, in (0, 1].
	// Default: 0.1
	ReleaseFraction float64
}

// DefaultConfig returns the default configuration.
func DefaultConfig() Config {
	return Config{
		EvictionInterval: time.Second,
		RetainLimit:      10000,
		Pressure: PressureConfig{
			ReleaseFraction: 0.1,
		},
	}
}

// Validate reports out-of-range fields. Zero values are valid and replaced
// with defaults by New.
func (c Config) Validate() error {
	if c.EvictionInterval < 0 {
		return fmt.Errorf("%w: eviction interval %s", ErrInvalidConfig, c.EvictionInterval)
	}
	if c.RetainLimit < 0 {
		return fmt.Errorf("%w: retain limit %d", ErrInvalidConfig, c.RetainLimit)
	}
	if c.MaxTTL < 0 {
		return fmt.Errorf("%w: max ttl %s", ErrInvalidConfig, c.MaxTTL)
	}
	if c.Refresh.Timeout < 0 {
		return fmt.Errorf("%w: refresh timeout %s", ErrInvalidConfig, c.Refresh.Timeout)
	}
	if f := c.Pressure.ReleaseFraction; f < 0 || f > 1 {
		return fmt.Errorf("%w: release fraction %v", ErrInvalidConfig, f)
	}
	return nil
}

func (c Config) withDefaults() Config {
	def := DefaultConfig()
	if c.EvictionInterval == 0 {
		c.EvictionInterval = def.EvictionInterval
	}
	if c.RetainLimit == 0 {
		c.RetainLimit = def.RetainLimit
	}
	if c.Pressure.ReleaseFraction == 0 {
		c.Pressure.ReleaseFraction = def.Pressure.ReleaseFraction
	}
	if c.Clock == nil {
		c.Clock = clock.New()
	}
	return c
}

func (c Config) executor() *resilience.Executor {
	var opts []resilience.ExecutorOption
	if c.Refresh.Circuit != nil {
		cfg := *c.Refresh.Circuit
		if cfg.Clock == nil {
			cfg.Clock = c.Clock
		}
		opts = append(opts, resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(cfg)))
	}
	if c.Refresh.Retry != nil {
		cfg := *c.Refresh.Retry
		if cfg.Clock == nil {
			cfg.Clock = c.Clock
		}
		opts = append(opts, resilience.WithRetry(resilience.NewRetry(cfg)))
	}
	if c.Refresh.Timeout > 0 {
		opts = append(opts, resilience.WithTimeoutConfig(resilience.NewTimeout(resilience.TimeoutConfig{
			Timeout: c.Refresh.Timeout,
			Clock:   c.Clock,
		})))
	}
	return resilience.NewExecutor(opts...)
}

func (c Config) pressureChecker() health.Checker {
	if !c.Pressure.Enabled {
		return nil
	}
	if c.Pressure.Checker != nil {
		return c.Pressure.Checker
	}
	return health.NewMemoryChecker(c.Pressure.Memory)
}
