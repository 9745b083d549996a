package cache

import (
	"context"
	"fmt"

	"github.com/jonwraymond/memoize/observe"
)

// Timing says when a flush trigger fires relative to its call.
type Timing int

const (
	// FlushBefore flushes the owner before the call looks up its entry.
	FlushBefore Timing = iota + 1
	// FlushAfter flushes the owner after the call returns successfully.
	FlushAfter
)

// String returns the timing name.
func (t Timing) String() string {
	switch t {
	case FlushBefore:
		return "before"
	case FlushAfter:
		return "after"
	default:
		return "unknown"
	}
}

// Predicate decides whether a trigger fires for a call.
type Predicate func(ctx context.Context, call Call) bool

// Trigger flushes the call's owner at Timing when When reports true.
// A nil When always fires.
type Trigger struct {
	Timing Timing
	When   Predicate
}

func validateTriggers(triggers []Trigger) error {
	for i, t := range triggers {
		if t.Timing != FlushBefore && t.Timing != FlushAfter {
			return fmt.Errorf("%w: trigger %d has unknown timing %d", ErrInvalidPolicy, i, t.Timing)
		}
	}
	return nil
}

func (t Trigger) fires(ctx context.Context, call Call) bool {
	return t.When == nil || t.When(ctx, call)
}

// Flush removes every entry owned by owner and returns how many were removed.
// In-flight computations for those entries finish, but their results are no
// longer reachable through the table.
func (c *Cache) Flush(ctx context.Context, owner any) int {
	removed := c.table.removeIf(func(e *Entry) bool {
		return sameOwner(e.key.owner, owner)
	})
	for _, e := range removed {
		c.pool.forget(e)
		c.sink.Record(ctx, Event{Key: e.key, Outcome: OutcomeFlushed, Age: e.Age()})
	}
	if len(removed) > 0 {
		c.logger.Debug(ctx, "flushed owner",
			observe.Field{Key: "owner", Value: ownerLabel(owner)},
			observe.Field{Key: "entries", Value: len(removed)},
		)
	}
	return len(removed)
}

// applyTriggers flushes call's owner once if any trigger with the given
// timing fires.
func (c *Cache) applyTriggers(ctx context.Context, call Call, triggers []Trigger, timing Timing) {
	for _, t := range triggers {
		if t.Timing == timing && t.fires(ctx, call) {
			c.Flush(ctx, call.Owner)
			return
		}
	}
}

// Guard runs a call that must not be memoized, typically a mutator, and
// applies flush triggers around it. Before-triggers run first; after-triggers
// run only when the thunk succeeds. Errors from the thunk are returned
// unchanged.
func (c *Cache) Guard(ctx context.Context, call Call, triggers ...Trigger) (any, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}
	if err := validateTriggers(triggers); err != nil {
		return nil, err
	}

	c.applyTriggers(ctx, call, triggers, FlushBefore)
	v, err := call.Thunk(ctx)
	if err != nil {
		return nil, err
	}
	c.applyTriggers(ctx, call, triggers, FlushAfter)
	return v, nil
}
