package cache

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/benbjohnson/clock"
	"github.com/hashicorp/go-multierror"

	"github.com/jonwraymond/memoize/health"
	"github.com/jonwraymond/memoize/observe"
)

// evictor periodically removes expired synchronous entries and, when the
// pressure checker reports trouble, releases the oldest retained values.
type evictor struct {
	table    *table
	pool     *retainPool
	clock    clock.Clock
	interval time.Duration
	logger   observe.Logger
	sink     Sink

	pressure        health.Checker
	releaseFraction float64

	// evictable decides removal for one entry. Replaced in tests.
	evictable func(*Entry) bool

	stop     chan struct{}
	stopOnce sync.Once
}

// shouldEvict removes expired synchronous entries, and async entries whose
// value was reclaimed since they have nothing stale left to serve.
func shouldEvict(e *Entry) bool {
	if !e.Expired() {
		return false
	}
	if !e.policy.AsyncRefresh {
		return true
	}
	_, ok := e.stale()
	return !ok
}

// run sweeps on every tick until ctx is done or halt is called. The ticker is
// created by the caller so the schedule starts when Start returns.
func (ev *evictor) run(ctx context.Context, ticker *clock.Ticker) error {
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ev.stop:
			return nil
		case <-ticker.C:
			ev.sweep(ctx)
		}
	}
}

func (ev *evictor) halt() {
	ev.stopOnce.Do(func() { close(ev.stop) })
}

// sweep runs one eviction pass and returns the number of removed entries.
func (ev *evictor) sweep(ctx context.Context) int {
	entries := ev.table.snapshot()
	for _, e := range entries {
		ev.pool.promote(e)
	}
	ev.relieve(ctx)

	var errs *multierror.Error
	removed := 0
	for _, e := range entries {
		evict, err := ev.evaluate(e)
		if err != nil {
			errs = multierror.Append(errs, err)
			continue
		}
		if !evict || !ev.table.remove(e) {
			continue
		}
		ev.pool.forget(e)
		removed++
		ev.sink.Record(ctx, Event{Key: e.key, Outcome: OutcomeEvicted, Age: e.Age()})
	}

	if err := errs.ErrorOrNil(); err != nil {
		ev.logger.Error(ctx, "eviction sweep failed",
			observe.Field{Key: "failures", Value: len(errs.Errors)},
			observe.Field{Key: "error", Value: err.Error()},
		)
	}
	return removed
}

func (ev *evictor) evaluate(e *Entry) (evict bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("%w %s: %v", errSweep, e.key.callable, r)
		}
	}()
	return ev.evictable(e), nil
}

// relieve releases retained values while the pressure checker is not healthy.
func (ev *evictor) relieve(ctx context.Context) {
	if ev.pressure == nil {
		return
	}
	res := health.Run(ctx, ev.pressure, ev.clock)
	if res.Status == health.StatusHealthy {
		return
	}
	released := ev.pool.releaseOldest(ev.releaseFraction)
	ev.logger.Warn(ctx, "memory pressure, released retained values",
		observe.Field{Key: "status", Value: res.Status.String()},
		observe.Field{Key: "message", Value: res.Message},
		observe.Field{Key: "released", Value: released},
	)
}
