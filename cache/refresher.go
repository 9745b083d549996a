package cache

import (
	"context"
	"sync"

	"github.com/gammazero/channelqueue"

	"github.com/jonwraymond/memoize/observe"
	"github.com/jonwraymond/memoize/resilience"
)

// refresher recomputes stale async entries on a single worker goroutine and
// swaps the fresh entry into the table.
type refresher struct {
	table  *table
	pool   *retainPool
	exec   *resilience.Executor
	logger observe.Logger
	sink   Sink

	queue *channelqueue.ChannelQueue[*Entry]
	in    chan<- *Entry

	mu     sync.RWMutex
	closed bool
}

func newRefresher(t *table, pool *retainPool, exec *resilience.Executor, logger observe.Logger, sink Sink) *refresher {
	q := channelqueue.New[*Entry](-1)
	return &refresher{
		table:  t,
		pool:   pool,
		exec:   exec,
		logger: logger,
		sink:   sink,
		queue:  q,
		in:     q.In(),
	}
}

// enqueue schedules a refresh of e's key. It reports false when the key is
// already pending or the refresher is closed.
func (r *refresher) enqueue(e *Entry) bool {
	if !e.queued.CompareAndSwap(false, true) {
		return false
	}

	r.mu.RLock()
	defer r.mu.RUnlock()
	if r.closed {
		e.queued.Store(false)
		return false
	}
	r.in <- e
	return true
}

// pending returns the number of queued refreshes.
func (r *refresher) pending() int {
	return r.queue.Len()
}

// close stops accepting work. The worker drains what was already queued.
func (r *refresher) close() {
	r.mu.Lock()
	defer r.mu.Unlock()
	if !r.closed {
		r.closed = true
		close(r.in)
	}
}

func (r *refresher) run(ctx context.Context) error {
	out := r.queue.Out()
	for {
		select {
		case <-ctx.Done():
			return nil
		case e, ok := <-out:
			if !ok {
				return nil
			}
			r.refresh(ctx, e)
		}
	}
}

// refresh recomputes the entry currently stored under stale's key, if it is
// still expired, and swaps the result in. Failures leave the stale entry in
// place.
func (r *refresher) refresh(ctx context.Context, stale *Entry) {
	defer stale.queued.Store(false)

	cur := r.table.lookup(stale.key)
	if cur == nil || !cur.Expired() {
		return
	}

	fresh := cur.renew()
	err := r.exec.Execute(ctx, func(ctx context.Context) error {
		_, _, err := fresh.through(ctx)
		return err
	})
	if err != nil {
		r.logger.WithCall(callMeta(cur.key)).Warn(ctx, "background refresh failed",
			observe.Field{Key: "error", Value: err.Error()},
		)
		r.sink.Record(ctx, Event{Key: cur.key, Outcome: OutcomeRefreshFailed, Age: cur.Age(), Err: err})
		return
	}

	if !r.table.swap(cur, fresh) {
		// Flushed or evicted while computing.
		r.pool.forget(fresh)
		return
	}
	r.pool.forget(cur)
	r.sink.Record(ctx, Event{Key: cur.key, Outcome: OutcomeRefreshed, Age: cur.Age()})
}
