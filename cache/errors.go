package cache

import "errors"

// Configuration errors. These are returned before any entry exists.
var (
	// ErrInvalidPolicy indicates a Policy whose fields contradict each other.
	ErrInvalidPolicy = errors.New("cache: invalid policy")

	// ErrNegativeTTL indicates a Policy with a negative TTL.
	ErrNegativeTTL = errors.New("cache: ttl must not be negative")

	// ErrInvalidConfig indicates a Config value out of range.
	ErrInvalidConfig = errors.New("cache: invalid config")
)

// Call errors.
var (
	// ErrNilThunk indicates a Call without a computation.
	ErrNilThunk = errors.New("cache: call thunk is nil")

	// ErrEmptyCallable indicates a Call without a callable identity.
	ErrEmptyCallable = errors.New("cache: callable identity is empty")

	// ErrInvalidOwner indicates an owner whose dynamic type is not comparable.
	ErrInvalidOwner = errors.New("cache: owner identity is not comparable")

	// ErrTypeMismatch indicates a cached value of an unexpected type.
	ErrTypeMismatch = errors.New("cache: cached value has unexpected type")
)

// Lifecycle errors.
var (
	// ErrNotStarted is returned by Stop on a cache that was never started.
	ErrNotStarted = errors.New("cache: not started")

	// ErrAlreadyStarted is returned by Start on a running cache.
	ErrAlreadyStarted = errors.New("cache: already started")

	// ErrStopped is returned by Start after Stop.
	ErrStopped = errors.New("cache: stopped")
)

// errSweep wraps a failure evaluating a single entry during an eviction sweep.
var errSweep = errors.New("cache: sweep failed on entry")
