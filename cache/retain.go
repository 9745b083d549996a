package cache

import (
	"math"

	lru "github.com/hashicorp/golang-lru/v2"
)

// retainPool keeps strong references to the most recently computed values.
// An entry pushed out of the pool, by capacity or by memory-pressure release,
// loses its value and reports itself expired.
type retainPool struct {
	lru       *lru.Cache[*Entry, struct{}]
	onReclaim func(*Entry)
}

func newRetainPool(limit int, onReclaim func(*Entry)) (*retainPool, error) {
	p := &retainPool{onReclaim: onReclaim}
	l, err := lru.NewWithEvict[*Entry, struct{}](limit, p.evicted)
	if err != nil {
		return nil, err
	}
	p.lru = l
	return p, nil
}

func (p *retainPool) evicted(e *Entry, _ struct{}) {
	if e.retired.Load() {
		return
	}
	if e.value.release() && p.onReclaim != nil {
		p.onReclaim(e)
	}
}

// retain marks e as recently used, adding it when absent.
func (p *retainPool) retain(e *Entry) {
	e.promoted.Store(e.reads.Load())
	p.lru.Add(e, struct{}{})
}

// promote moves e to the recent end when it was read since the last call.
// The evictor calls it for every entry once per sweep.
func (p *retainPool) promote(e *Entry) bool {
	reads := e.reads.Load()
	if e.promoted.Swap(reads) == reads {
		return false
	}
	_, ok := p.lru.Get(e)
	return ok
}

// forget drops e without treating it as reclaimed. Used when the entry has
// already left the table.
func (p *retainPool) forget(e *Entry) {
	e.retired.Store(true)
	p.lru.Remove(e)
}

// releaseOldest reclaims the oldest fraction of retained values and returns
// how many were released.
func (p *retainPool) releaseOldest(fraction float64) int {
	if fraction <= 0 {
		return 0
	}
	n := int(math.Ceil(float64(p.lru.Len()) * fraction))
	released := 0
	for i := 0; i < n; i++ {
		if _, _, ok := p.lru.RemoveOldest(); !ok {
			break
		}
		released++
	}
	return released
}

func (p *retainPool) len() int {
	return p.lru.Len()
}
