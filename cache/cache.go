package cache

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"

	"github.com/benbjohnson/clock"
	"github.com/google/uuid"
	"golang.org/x/sync/errgroup"

	"github.com/jonwraymond/memoize/observe"
)

// Call describes one invocation to memoize.
type Call struct {
	// Owner scopes the call: the receiver for instance calls, TypeOwner[T]()
	// for calls without one, or nil for global scope. Must be comparable.
	Owner any

	// Callable identifies what is invoked, e.g. "Repo.FindUser" or
	// CallableOf(fn).
	Callable string

	// Args are the argument values, compared deeply.
	Args []any

	// Thunk performs the real work.
	Thunk ComputeFunc
}

// Validate reports a call that cannot be memoized.
func (c Call) Validate() error {
	if c.Thunk == nil {
		return ErrNilThunk
	}
	if c.Callable == "" {
		return ErrEmptyCallable
	}
	return validOwner(c.Owner)
}

// Key builds the call's key.
func (c Call) Key() (Key, error) {
	return NewKey(c.Owner, c.Callable, c.Args...)
}

const (
	stateIdle int32 = iota
	stateRunning
	stateStopped
)

// Cache memoizes calls. It is safe for concurrent use. Start launches the
// background evictor and refresher; without them the cache still works,
// expiring entries lazily and recomputing async entries synchronously.
type Cache struct {
	name   string
	cfg    Config
	clock  clock.Clock
	logger observe.Logger
	mw     *observe.Middleware
	sink   Sink

	table     *table
	pool      *retainPool
	evictor   *evictor
	refresher *refresher

	lifeMu sync.Mutex
	state  atomic.Int32
	cancel context.CancelFunc
	done   chan struct{}
}

// New creates a cache from cfg.
func New(cfg Config) (*Cache, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	cfg = cfg.withDefaults()

	c := &Cache{
		name:  cfg.Name,
		cfg:   cfg,
		clock: cfg.Clock,
		table: newTable(),
	}
	if c.name == "" {
		c.name = "memo-" + uuid.NewString()
	}

	logger := cfg.Logger
	if cfg.Observer != nil {
		metrics, err := observe.NewMetrics(cfg.Observer.Meter())
		if err != nil {
			return nil, fmt.Errorf("cache: metrics: %w", err)
		}
		if logger == nil {
			logger = cfg.Observer.Logger()
		}
		c.mw = observe.NewMiddleware(observe.NewTracer(cfg.Observer.Tracer()), metrics, logger)
	} else {
		c.mw = observe.NewMiddleware(nil, nil, logger)
	}
	c.logger = c.mw.Logger()
	c.sink = Tee(observerSink{logger: c.logger, metrics: c.mw.Metrics()}, cfg.Sink)

	pool, err := newRetainPool(cfg.RetainLimit, func(e *Entry) {
		c.sink.Record(context.Background(), Event{Key: e.key, Outcome: OutcomeReclaimed, Age: e.Age()})
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidConfig, err)
	}
	c.pool = pool

	c.evictor = &evictor{
		table:           c.table,
		pool:            pool,
		clock:           cfg.Clock,
		interval:        cfg.EvictionInterval,
		logger:          c.logger,
		sink:            c.sink,
		pressure:        cfg.pressureChecker(),
		releaseFraction: cfg.Pressure.ReleaseFraction,
		evictable:       shouldEvict,
		stop:            make(chan struct{}),
	}
	c.refresher = newRefresher(c.table, pool, cfg.executor(), c.logger, c.sink)

	return c, nil
}

// Name returns the cache name.
func (c *Cache) Name() string { return c.name }

// Len returns the number of entries in the table.
func (c *Cache) Len() int { return c.table.len() }

func (c *Cache) running() bool { return c.state.Load() == stateRunning }

// Start launches the evictor and the refresher. They stop when ctx is
// cancelled or Stop is called; either way the cache is stopped afterwards and
// async entries are recomputed inline again.
func (c *Cache) Start(ctx context.Context) error {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()

	switch c.state.Load() {
	case stateRunning:
		return ErrAlreadyStarted
	case stateStopped:
		return ErrStopped
	}

	runCtx, cancel := context.WithCancel(ctx)
	g, gctx := errgroup.WithContext(runCtx)
	ticker := c.clock.Ticker(c.evictor.interval)
	g.Go(func() error { return c.evictor.run(gctx, ticker) })
	g.Go(func() error { return c.refresher.run(gctx) })

	done := make(chan struct{})
	go func() {
		_ = g.Wait()
		c.workersExited()
		close(done)
	}()

	c.cancel = cancel
	c.done = done
	c.state.Store(stateRunning)

	c.logger.Info(ctx, "cache started",
		observe.Field{Key: "cache", Value: c.name},
		observe.Field{Key: "eviction_interval_ms", Value: c.cfg.EvictionInterval.Milliseconds()},
	)
	return nil
}

// workersExited moves a cache whose workers ended without Stop, because the
// Start context was cancelled, to the stopped state.
func (c *Cache) workersExited() {
	c.lifeMu.Lock()
	defer c.lifeMu.Unlock()
	if !c.state.CompareAndSwap(stateRunning, stateStopped) {
		return
	}
	c.refresher.close()
	c.evictor.halt()
	c.logger.Warn(context.Background(), "cache workers exited before Stop",
		observe.Field{Key: "cache", Value: c.name},
		observe.Field{Key: "pending_refreshes", Value: c.refresher.pending()},
	)
}

// Stop halts the evictor, lets the refresher drain its queue and waits for
// both, bounded by ctx. Synchronous computations in flight are not
// interrupted. Stop is idempotent once started.
func (c *Cache) Stop(ctx context.Context) error {
	c.lifeMu.Lock()
	switch c.state.Load() {
	case stateIdle:
		c.lifeMu.Unlock()
		return ErrNotStarted
	case stateStopped:
		c.lifeMu.Unlock()
		return nil
	}
	c.state.Store(stateStopped)
	c.refresher.close()
	c.evictor.halt()
	cancel, done := c.cancel, c.done
	c.lifeMu.Unlock()

	defer cancel()
	select {
	case <-done:
		c.logger.Info(ctx, "cache stopped", observe.Field{Key: "cache", Value: c.name})
		return nil
	case <-ctx.Done():
		c.logger.Warn(ctx, "cache stop interrupted",
			observe.Field{Key: "cache", Value: c.name},
			observe.Field{Key: "pending_refreshes", Value: c.refresher.pending()},
		)
		return ctx.Err()
	}
}

// Intercept returns the memoized result of call under policy, computing it
// when no fresh value exists. Concurrent callers for the same key share one
// computation. Computation errors are returned unchanged and never cached.
func (c *Cache) Intercept(ctx context.Context, call Call, policy Policy) (any, error) {
	if err := call.Validate(); err != nil {
		return nil, err
	}
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	key, err := call.Key()
	if err != nil {
		return nil, err
	}

	c.applyTriggers(ctx, call, policy.Triggers, FlushBefore)

	v, err := c.through(ctx, key, call, policy)
	if err != nil {
		return nil, err
	}

	c.applyTriggers(ctx, call, policy.Triggers, FlushAfter)
	return v, nil
}

func (c *Cache) through(ctx context.Context, key Key, call Call, policy Policy) (any, error) {
	compute := ComputeFunc(c.mw.Wrap(policyMeta(key, policy), observe.ComputeFunc(call.Thunk)))
	ttl := policy.EffectiveTTL(c.cfg.MaxTTL)
	create := func() *Entry {
		return newEntry(key, compute, policy, ttl, c.clock, c.pool)
	}

	for {
		e, created := c.table.getOrCreate(key, create)

		if !created && e.Expired() {
			if e.policy.AsyncRefresh && c.running() {
				if v, ok := e.stale(); ok {
					c.refresher.enqueue(e)
					c.sink.Record(ctx, Event{Key: key, Outcome: OutcomeStale, Age: e.Age()})
					return v, nil
				}
			}
			if c.table.remove(e) {
				c.pool.forget(e)
				c.sink.Record(ctx, Event{Key: key, Outcome: OutcomeExpired, Age: e.Age()})
			}
			continue
		}

		v, computed, err := e.through(ctx)
		if err != nil {
			if !e.Computed() && c.table.remove(e) {
				c.pool.forget(e)
			}
			return nil, err
		}

		outcome := OutcomeHit
		if computed {
			outcome = OutcomeMiss
		}
		c.sink.Record(ctx, Event{Key: key, Outcome: outcome, Age: e.Age()})
		return v, nil
	}
}
