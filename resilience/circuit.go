package resilience

import (
	"context"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
)

// State is the position of a circuit breaker.
type State int

const (
	// StateClosed admits every call.
	StateClosed State = iota
	// StateOpen rejects every call with ErrCircuitOpen.
	StateOpen
	// StateHalfOpen admits a limited number of trial calls.
	StateHalfOpen
)

// String returns the state name.
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateOpen:
		return "open"
	case StateHalfOpen:
		return "half-open"
	default:
		return "unknown"
	}
}

// CircuitBreakerConfig configures a CircuitBreaker.
type CircuitBreakerConfig struct {
	// MaxFailures is the number of consecutive failures that opens the circuit.
	// Default: 5
	MaxFailures int

	// ResetTimeout is how long the circuit stays open before admitting trials.
	// Default: 30 seconds
	ResetTimeout time.Duration

	// HalfOpenMaxRequests bounds the trials admitted while half-open.
	// Default: 1
	HalfOpenMaxRequests int

	// OnStateChange observes transitions. It runs with the breaker locked and
	// must not call back into it.
	OnStateChange func(from, to State)

	// IsFailure filters which errors count against the circuit.
	// Default: every non-nil error
	IsFailure func(err error) bool

	// Clock measures ResetTimeout.
	// Default: the wall clock
	Clock clock.Clock
}

// CircuitBreaker stops running an operation that keeps failing. After
// MaxFailures consecutive failures it opens; once ResetTimeout has passed it
// admits trials, and the first trial result closes or reopens it.
type CircuitBreaker struct {
	cfg CircuitBreakerConfig

	mu       sync.Mutex
	state    State
	streak   int
	trials   int
	trips    int
	openedAt time.Time
}

// NewCircuitBreaker returns a closed circuit breaker.
func NewCircuitBreaker(cfg CircuitBreakerConfig) *CircuitBreaker {
	if cfg.MaxFailures <= 0 {
		cfg.MaxFailures = 5
	}
	if cfg.ResetTimeout <= 0 {
		cfg.ResetTimeout = 30 * time.Second
	}
	if cfg.HalfOpenMaxRequests <= 0 {
		cfg.HalfOpenMaxRequests = 1
	}
	if cfg.IsFailure == nil {
		cfg.IsFailure = func(err error) bool { return err != nil }
	}
	if cfg.Clock == nil {
		cfg.Clock = clock.New()
	}
	return &CircuitBreaker{cfg: cfg}
}

// Execute runs op unless the circuit rejects it, and records the outcome.
func (cb *CircuitBreaker) Execute(ctx context.Context, op func(context.Context) error) error {
	if err := cb.admit(); err != nil {
		return err
	}
	err := op(ctx)
	cb.record(err)
	return err
}

// State returns the current state, moving an expired open circuit to
// half-open.
func (cb *CircuitBreaker) State() State {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return cb.observeLocked()
}

// Reset closes the circuit and clears the failure streak.
func (cb *CircuitBreaker) Reset() {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	cb.moveLocked(StateClosed)
	cb.streak = 0
}

// CircuitSnapshot is a point-in-time view of a CircuitBreaker.
type CircuitSnapshot struct {
	State State
	// ConsecutiveFailures counts failures since the last success while closed.
	ConsecutiveFailures int
	// Trips counts how many times the circuit has opened.
	Trips int
	// OpenedAt is when the circuit last opened, zero if never.
	OpenedAt time.Time
}

// Snapshot returns the breaker's counters.
func (cb *CircuitBreaker) Snapshot() CircuitSnapshot {
	cb.mu.Lock()
	defer cb.mu.Unlock()
	return CircuitSnapshot{
		State:               cb.observeLocked(),
		ConsecutiveFailures: cb.streak,
		Trips:               cb.trips,
		OpenedAt:            cb.openedAt,
	}
}

func (cb *CircuitBreaker) admit() error {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	switch cb.observeLocked() {
	case StateOpen:
		return ErrCircuitOpen
	case StateHalfOpen:
		if cb.trials >= cb.cfg.HalfOpenMaxRequests {
			return ErrCircuitOpen
		}
		cb.trials++
	}
	return nil
}

func (cb *CircuitBreaker) record(err error) {
	cb.mu.Lock()
	defer cb.mu.Unlock()

	failed := cb.cfg.IsFailure(err)
	switch cb.state {
	case StateClosed:
		if !failed {
			cb.streak = 0
			return
		}
		cb.streak++
		if cb.streak >= cb.cfg.MaxFailures {
			cb.tripLocked()
		}
	case StateHalfOpen:
		if failed {
			cb.tripLocked()
			return
		}
		cb.moveLocked(StateClosed)
		cb.streak = 0
	}
}

func (cb *CircuitBreaker) tripLocked() {
	cb.openedAt = cb.cfg.Clock.Now()
	cb.trips++
	cb.moveLocked(StateOpen)
}

func (cb *CircuitBreaker) observeLocked() State {
	if cb.state == StateOpen && cb.cfg.Clock.Since(cb.openedAt) >= cb.cfg.ResetTimeout {
		cb.moveLocked(StateHalfOpen)
	}
	return cb.state
}

func (cb *CircuitBreaker) moveLocked(to State) {
	from := cb.state
	if from == to {
		return
	}
	cb.state = to
	cb.trials = 0
	if cb.cfg.OnStateChange != nil {
		cb.cfg.OnStateChange(from, to)
	}
}
