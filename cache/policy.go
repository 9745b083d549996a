package cache

import (
	"fmt"
	"time"
)

// Lifetime classifies how long a computed value stays fresh.
type Lifetime int

const (
	// LifetimeNever means the value is fresh for exactly one read.
	LifetimeNever Lifetime = iota
	// LifetimeDuration means the value is fresh for Policy.TTL after computation.
	LifetimeDuration
	// LifetimeForever means the value never expires by time. It can still be
	// reclaimed under memory pressure.
	LifetimeForever
)

// String returns the lifetime name.
func (l Lifetime) String() string {
	switch l {
	case LifetimeNever:
		return "never"
	case LifetimeDuration:
		return "duration"
	case LifetimeForever:
		return "forever"
	default:
		return "unknown"
	}
}

// Policy configures how one call is memoized.
type Policy struct {
	// TTL is the freshness window. Zero with Forever unset means the Never
	// lifetime: every read after the first recomputes.
	TTL time.Duration

	// Forever disables time-based expiry. TTL must be zero.
	Forever bool

	// AsyncRefresh serves the stale value on expiry and recomputes in the
	// background. Not allowed with the Never lifetime.
	AsyncRefresh bool

	// Triggers flush the call's owner before or after the call.
	Triggers []Trigger
}

// PolicyOption configures a Policy built by NewPolicy or ForeverPolicy.
type PolicyOption func(*Policy)

// WithAsyncRefresh enables stale-while-revalidate.
func WithAsyncRefresh() PolicyOption {
	return func(p *Policy) { p.AsyncRefresh = true }
}

// WithFlushBefore adds a trigger that flushes the owner before lookup when
// when reports true. A nil predicate always fires.
func WithFlushBefore(when Predicate) PolicyOption {
	return func(p *Policy) {
		p.Triggers = append(p.Triggers, Trigger{Timing: FlushBefore, When: when})
	}
}

// WithFlushAfter adds a trigger that flushes the owner after a successful call
// when when reports true. A nil predicate always fires.
func WithFlushAfter(when Predicate) PolicyOption {
	return func(p *Policy) {
		p.Triggers = append(p.Triggers, Trigger{Timing: FlushAfter, When: when})
	}
}

// NewPolicy returns a validated policy with the given TTL.
func NewPolicy(ttl time.Duration, opts ...PolicyOption) (Policy, error) {
	p := Policy{TTL: ttl}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// ForeverPolicy returns a validated policy whose values never expire by time.
func ForeverPolicy(opts ...PolicyOption) (Policy, error) {
	p := Policy{Forever: true}
	for _, opt := range opts {
		opt(&p)
	}
	if err := p.Validate(); err != nil {
		return Policy{}, err
	}
	return p, nil
}

// DefaultPolicy returns the default policy.
// TTL: 1 minute, synchronous recompute on expiry, no triggers.
func DefaultPolicy() Policy {
	return Policy{TTL: time.Minute}
}

// NeverPolicy returns a policy that computes on every call after the first
// read of each value.
func NeverPolicy() Policy {
	return Policy{}
}

// Lifetime returns the lifetime the policy describes.
func (p Policy) Lifetime() Lifetime {
	switch {
	case p.Forever:
		return LifetimeForever
	case p.TTL > 0:
		return LifetimeDuration
	default:
		return LifetimeNever
	}
}

// Validate reports contradictory or out-of-range fields.
func (p Policy) Validate() error {
	if p.TTL < 0 {
		return fmt.Errorf("%w: %s", ErrNegativeTTL, p.TTL)
	}
	if p.Forever && p.TTL > 0 {
		return fmt.Errorf("%w: forever with ttl %s", ErrInvalidPolicy, p.TTL)
	}
	if p.AsyncRefresh && p.Lifetime() == LifetimeNever {
		return fmt.Errorf("%w: async refresh requires a ttl or forever", ErrInvalidPolicy)
	}
	return validateTriggers(p.Triggers)
}

// EffectiveTTL returns the TTL to apply, clamped to maxTTL when maxTTL is
// positive. Forever and Never policies are returned unchanged.
func (p Policy) EffectiveTTL(maxTTL time.Duration) time.Duration {
	if p.Lifetime() != LifetimeDuration {
		return p.TTL
	}
	if maxTTL > 0 && p.TTL > maxTTL {
		return maxTTL
	}
	return p.TTL
}
