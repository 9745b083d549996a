package resilience

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/cenkalti/backoff/v5"
)

// BackoffStrategy selects how the wait between attempts grows.
type BackoffStrategy int

const (
	// BackoffExponential multiplies the wait by Multiplier after each attempt.
	BackoffExponential BackoffStrategy = iota
	// BackoffLinear grows the wait by InitialDelay after each attempt.
	BackoffLinear
	// BackoffConstant waits InitialDelay between every attempt.
	BackoffConstant
)

// RetryConfig configures a Retry.
type RetryConfig struct {
	// MaxAttempts counts the first attempt.
	// Default: 3
	MaxAttempts int

	// InitialDelay is the wait before the second attempt.
	// Default: 100ms
	InitialDelay time.Duration

	// MaxDelay caps any single wait.
	// Default: 30s
	MaxDelay time.Duration

	// Multiplier applies to BackoffExponential.
	// Default: 2.0
	Multiplier float64

	// Strategy selects the backoff curve.
	// Default: BackoffExponential
	Strategy BackoffStrategy

	// Jitter randomizes exponential waits by up to 25% either way.
	Jitter bool

	// RetryIf reports whether an error is worth another attempt.
	// Default: every non-nil error
	RetryIf func(err error) bool

	// OnRetry observes each scheduled retry before the wait starts.
	OnRetry func(attempt int, err error, delay time.Duration)

	// Clock drives the waits.
	// Default: the wall clock
	Clock clock.Clock
}

// Retry reruns a failing operation with backoff.
type Retry struct {
	cfg RetryConfig
}

// NewRetry returns a Retry with defaults applied.
func NewRetry(cfg RetryConfig) *Retry {
	if cfg.MaxAttempts <= 0 {
		cfg.MaxAttempts = 3
	}
	if cfg.InitialDelay <= 0 {
		cfg.InitialDelay = 100 * time.Millisecond
	}
	if cfg.MaxDelay <= 0 {
		cfg.MaxDelay = 30 * time.Second
	}
	if cfg.Multiplier <= 0 {
		cfg.Multiplier = 2.0
	}
	if cfg.RetryIf == nil {
		cfg.RetryIf = func(err error) bool { return err != nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Retry{cfg: cfg}
}

// Config returns the configuration with defaults applied.
func (r *Retry) Config() RetryConfig {
	return r.cfg
}

// Execute runs op until it succeeds, RetryIf rejects its error, ctx ends, or
// MaxAttempts is reached. Exhausting more than one attempt returns the last
// error wrapped in ErrMaxRetriesExceeded.
func (r *Retry) Execute(ctx context.Context, op func(context.Context) error) error {
	schedule := r.schedule()

	var err error
	for attempt := 1; ; attempt++ {
		if err = op(ctx); err == nil {
			return nil
		}
		if !r.cfg.RetryIf(err) {
			return err
		}
		if attempt >= r.cfg.MaxAttempts {
			break
		}

		delay := min(schedule.NextBackOff(), r.cfg.MaxDelay)
		timer := r.cfg.Clock.Timer(delay)
		if r.cfg.OnRetry != nil {
			r.cfg.OnRetry(attempt, err, delay)
		}
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}

	if r.cfg.MaxAttempts == 1 {
		return err
	}
	return fmt.Errorf("%w after %d attempts: %w", ErrMaxRetriesExceeded, r.cfg.MaxAttempts, err)
}

func (r *Retry) schedule() backoff.BackOff {
	switch r.cfg.Strategy {
	case BackoffConstant:
		return backoff.NewConstantBackOff(r.cfg.InitialDelay)
	case BackoffLinear:
		return &linearBackOff{step: r.cfg.InitialDelay}
	default:
		b := backoff.NewExponentialBackOff()
		b.InitialInterval = r.cfg.InitialDelay
		b.MaxInterval = r.cfg.MaxDelay
		b.Multiplier = r.cfg.Multiplier
		b.RandomizationFactor = 0
		if r.cfg.Jitter {
			b.RandomizationFactor = 0.25
		}
		b.Reset()
		return b
	}
}

// linearBackOff waits step, 2*step, 3*step, ...
type linearBackOff struct {
	step time.Duration
	n    int64
}

func (b *linearBackOff) NextBackOff() time.Duration {
	b.n++
	return b.step * time.Duration(b.n)
}

func (b *linearBackOff) Reset() { b.n = 0 }
