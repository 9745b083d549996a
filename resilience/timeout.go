package resilience

import (
	"context"
	"errors"
	"time"

	"github.com/benbjohnson/clock"
)

// TimeoutConfig configures the per-attempt deadline.
type TimeoutConfig struct {
	// Timeout bounds one attempt.
	// Default: 30 seconds
	Timeout time.Duration

	// Clock fires the deadline.
	Clock clock.Clock
}

// Timeout abandons attempts that outlive a deadline.
type Timeout struct {
	cfg TimeoutConfig
}

func NewTimeout(cfg TimeoutConfig) *Timeout {
	if cfg.Timeout <= 0 {
		cfg.Timeout = 30 * time.Second
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &Timeout{cfg: cfg}
}

// Execute runs op and returns ErrTimeout once the deadline passes. The
// operation's context is cancelled with ErrTimeout as its cause; op keeps
// running on its own goroutine and its result is dropped.
func (t *Timeout) Execute(ctx context.Context, op func(context.Context) error) error {
	ctx, cancel := context.WithCancelCause(ctx)
	defer cancel(nil)

	deadline := t.cfg.Clock.AfterFunc(t.cfg.Timeout, func() { cancel(ErrTimeout) })
	defer deadline.Stop()

	done := make(chan error, 1)
	go func() { done <- op(ctx) }()

	select {
	case err := <-done:
		return err
	case <-ctx.Done():
		if cause := context.Cause(ctx); errors.Is(cause, ErrTimeout) {
			return ErrTimeout
		}
		return ctx.Err()
	}
}

func (t *Timeout) Config() TimeoutConfig {
	return t.cfg
}
