package cache

import (
	"context"
	"sync"
	"sync/atomic"
	"time"

	"github.com/benbjohnson/clock"
)

// ComputeFunc performs the real work behind a memoized call.
type ComputeFunc func(ctx context.Context) (any, error)

type box struct{ v any }

// ref is a value slot that can be emptied at any time by the retention pool.
type ref struct {
	p atomic.Pointer[box]
}

func (r *ref) load() (any, bool) {
	b := r.p.Load()
	if b == nil {
		return nil, false
	}
	return b.v, true
}

func (r *ref) store(v any) {
	r.p.Store(&box{v: v})
}

// release empties the slot and reports whether it held a value.
func (r *ref) release() bool {
	return r.p.Swap(nil) != nil
}

// Entry memoizes one Key. Its value is computed at most once per freshness
// window; callers racing on a fresh entry block on the entry's own lock, never
// on the table.
type Entry struct {
	key     Key
	compute ComputeFunc
	policy  Policy
	ttl     time.Duration
	clock   clock.Clock
	pool    *retainPool

	mu        sync.Mutex
	computed  atomic.Bool
	value     ref
	createdAt atomic.Int64
	reads     atomic.Int64
	// promoted is the read count last reported to the retention pool.
	promoted atomic.Int64

	// queued is set while the key waits in the refresher queue.
	queued atomic.Bool
	// retired is set once the entry left the table; the pool then drops it
	// without reporting a reclamation.
	retired atomic.Bool
}

func newEntry(key Key, compute ComputeFunc, policy Policy, ttl time.Duration, clk clock.Clock, pool *retainPool) *Entry {
	return &Entry{
		key:     key,
		compute: compute,
		policy:  policy,
		ttl:     ttl,
		clock:   clk,
		pool:    pool,
	}
}

// Key returns the key the entry memoizes.
func (e *Entry) Key() Key { return e.key }

// Policy returns the policy the entry was created with.
func (e *Entry) Policy() Policy { return e.policy }

// Computed reports whether a value has been stored.
func (e *Entry) Computed() bool { return e.computed.Load() }

// Through returns the memoized value, computing it first if needed.
func (e *Entry) Through(ctx context.Context) (any, error) {
	v, _, err := e.through(ctx)
	return v, err
}

// through is Through that also reports whether this call ran the computation.
func (e *Entry) through(ctx context.Context) (any, bool, error) {
	if e.computed.Load() {
		if v, ok := e.value.load(); ok {
			e.read()
			return v, false, nil
		}
	}

	e.mu.Lock()
	defer e.mu.Unlock()

	if e.computed.Load() {
		if v, ok := e.value.load(); ok {
			e.read()
			return v, false, nil
		}
		// Reclaimed: recompute under this entry's lock.
		e.computed.Store(false)
	}

	v, err := e.compute(ctx)
	if err != nil {
		return nil, true, err
	}

	e.value.store(v)
	e.createdAt.Store(e.clock.Now().UnixNano())
	e.computed.Store(true)
	e.reads.Add(1)
	if e.pool != nil && !e.retired.Load() {
		e.pool.retain(e)
	}
	return v, true, nil
}

// read counts a hit. Recency reaches the retention pool on the next sweep,
// so hits never take the pool's lock.
func (e *Entry) read() {
	e.reads.Add(1)
}

// Expired reports whether the entry must no longer be served as fresh.
// An uncomputed entry is never expired; a computed entry whose value was
// reclaimed always is.
func (e *Entry) Expired() bool {
	if !e.computed.Load() {
		return false
	}
	if _, ok := e.value.load(); !ok {
		return true
	}
	switch e.policy.Lifetime() {
	case LifetimeForever:
		return false
	case LifetimeNever:
		return e.reads.Load() > 0
	default:
		return !e.clock.Now().Before(time.Unix(0, e.createdAt.Load()).Add(e.ttl))
	}
}

// Age returns the time since the value was computed, or zero.
func (e *Entry) Age() time.Duration {
	if !e.computed.Load() {
		return 0
	}
	return e.clock.Now().Sub(time.Unix(0, e.createdAt.Load()))
}

// stale returns the held value regardless of freshness.
func (e *Entry) stale() (any, bool) {
	if !e.computed.Load() {
		return nil, false
	}
	return e.value.load()
}

// renew returns an uncomputed replacement with the same key, policy and
// computation.
func (e *Entry) renew() *Entry {
	return newEntry(e.key, e.compute, e.policy, e.ttl, e.clock, e.pool)
}
