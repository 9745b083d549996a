package resilience

import (
	"context"
	"time"
)

// Stage guards an operation. CircuitBreaker, Retry and Timeout are stages.
type Stage interface {
	Execute(ctx context.Context, op func(context.Context) error) error
}

// Stage positions, outermost first. A breaker sees one outcome per Execute
// however many attempts the retry makes, and the timeout bounds each attempt.
const (
	rankCircuit = iota
	rankRetry
	rankTimeout
	numRanks
)

// Executor runs an operation through its configured stages in a fixed order:
// circuit breaker, then retry, then per-attempt timeout.
type Executor struct {
	stages  [numRanks]Stage
	breaker *CircuitBreaker
}

// ExecutorOption configures an Executor.
type ExecutorOption func(*Executor)

// NewExecutor returns an executor. Without options it runs the operation
// once, unguarded.
func NewExecutor(opts ...ExecutorOption) *Executor {
	e := &Executor{}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// WithCircuitBreaker sets the outermost stage.
func WithCircuitBreaker(cb *CircuitBreaker) ExecutorOption {
	return func(e *Executor) {
		if cb != nil {
			e.breaker = cb
			e.stages[rankCircuit] = cb
		}
	}
}

// WithRetry sets the retry stage.
func WithRetry(r *Retry) ExecutorOption {
	return func(e *Executor) {
		if r != nil {
			e.stages[rankRetry] = r
		}
	}
}

// WithTimeout bounds each attempt to d.
func WithTimeout(d time.Duration) ExecutorOption {
	return WithTimeoutConfig(NewTimeout(TimeoutConfig{Timeout: d}))
}

// WithTimeoutConfig sets the innermost stage.
func WithTimeoutConfig(t *Timeout) ExecutorOption {
	return func(e *Executor) {
		if t != nil {
			e.stages[rankTimeout] = t
		}
	}
}

// Execute runs op through every configured stage.
func (e *Executor) Execute(ctx context.Context, op func(context.Context) error) error {
	run := op
	for i := numRanks - 1; i >= 0; i-- {
		stage := e.stages[i]
		if stage == nil {
			continue
		}
		next := run
		run = func(ctx context.Context) error {
			return stage.Execute(ctx, next)
		}
	}
	return run(ctx)
}

// Configured reports whether any stage is set.
func (e *Executor) Configured() bool {
	for _, s := range e.stages {
		if s != nil {
			return true
		}
	}
	return false
}

// CircuitBreaker returns the breaker stage, or nil.
func (e *Executor) CircuitBreaker() *CircuitBreaker {
	return e.breaker
}
