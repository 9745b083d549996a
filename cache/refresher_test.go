package cache

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func asyncEntry(t *testing.T, tc *testCache, call Call) *Entry {
	t.Helper()
	policy, _ := NewPolicy(time.Minute, WithAsyncRefresh())
	mustIntercept(t, tc.Cache, call, policy)
	k, err := call.Key()
	if err != nil {
		t.Fatal(err)
	}
	e := tc.table.lookup(k)
	if e == nil {
		t.Fatal("entry not found")
	}
	return e
}

func TestRefresher_EnqueueDedupes(t *testing.T) {
	tc := newTestCache(t)
	var calls atomic.Int32
	e := asyncEntry(t, tc, Call{Callable: "A", Thunk: counting(&calls)})
	other := asyncEntry(t, tc, Call{Callable: "B", Thunk: counting(&calls)})

	if !tc.refresher.enqueue(e) {
		t.Fatal("first enqueue() should succeed")
	}
	if tc.refresher.enqueue(e) {
		t.Error("enqueue() of a pending key should be refused")
	}

	tc.refresher.close()
	if tc.refresher.enqueue(other) {
		t.Error("enqueue() after close should be refused")
	}
	if other.queued.Load() {
		t.Error("refused entry should not stay marked queued")
	}
}

func TestRefresher_RefreshSwapsFreshEntry(t *testing.T) {
	tc := newTestCache(t)
	var calls atomic.Int32
	e := asyncEntry(t, tc, Call{Callable: "A", Thunk: counting(&calls)})
	tc.clock.Add(time.Minute)
	e.queued.Store(true)

	tc.refresher.refresh(context.Background(), e)

	cur := tc.table.lookup(e.key)
	if cur == nil || cur == e {
		t.Fatal("refresh() should replace the entry")
	}
	if v, _ := cur.stale(); v != "v2" {
		t.Errorf("fresh value = %v, want v2", v)
	}
	if cur.Expired() {
		t.Error("fresh entry should not be expired")
	}
	if e.queued.Load() {
		t.Error("queued flag should be cleared")
	}
	if tc.events.count(OutcomeRefreshed) != 1 {
		t.Errorf("outcomes = %v, want one refreshed", tc.events.outcomes())
	}
}

func TestRefresher_SkipsFreshEntry(t *testing.T) {
	tc := newTestCache(t)
	var calls atomic.Int32
	e := asyncEntry(t, tc, Call{Callable: "A", Thunk: counting(&calls)})

	tc.refresher.refresh(context.Background(), e)
	if calls.Load() != 1 || tc.table.lookup(e.key) != e {
		t.Error("refresh() of a fresh entry should do nothing")
	}
}

func TestRefresher_FailureKeepsStale(t *testing.T) {
	tc := newTestCache(t)
	errBoom := errors.New("upstream down")
	var calls atomic.Int32
	e := asyncEntry(t, tc, Call{Callable: "A", Thunk: func(context.Context) (any, error) {
		if calls.Add(1) == 2 {
			return nil, errBoom
		}
		return "ok", nil
	}})
	tc.clock.Add(time.Minute)

	tc.refresher.refresh(context.Background(), e)

	if tc.table.lookup(e.key) != e {
		t.Fatal("failed refresh should keep the stale entry")
	}
	if v, ok := e.stale(); !ok || v != "ok" {
		t.Errorf("stale value = %v, %v", v, ok)
	}
	if tc.events.count(OutcomeRefreshFailed) != 1 {
		t.Errorf("outcomes = %v, want one refresh_failed", tc.events.outcomes())
	}

	tc.refresher.refresh(context.Background(), e)
	if tc.table.lookup(e.key) == e {
		t.Error("retried refresh should replace the entry")
	}
}

func TestRefresher_FlushDuringRefreshWins(t *testing.T) {
	tc := newTestCache(t)
	owner := &repo{}
	var calls atomic.Int32
	e := asyncEntry(t, tc, Call{Owner: owner, Callable: "A", Thunk: func(ctx context.Context) (any, error) {
		if calls.Add(1) == 2 {
			tc.Flush(ctx, owner)
		}
		return "v", nil
	}})
	tc.clock.Add(time.Minute)

	tc.refresher.refresh(context.Background(), e)

	if tc.Len() != 0 {
		t.Errorf("Len() = %d, want 0 after flush", tc.Len())
	}
	if tc.events.count(OutcomeRefreshed) != 0 {
		t.Errorf("outcomes = %v, want no refreshed", tc.events.outcomes())
	}
	if tc.pool.len() != 0 {
		t.Errorf("retained = %d, want 0", tc.pool.len())
	}
}
