package cache

import (
	"github.com/puzpuzpuz/xsync/v3"
)

// table maps keys to entries. Keys sharing a hash live in one bucket; a
// bucket slice is never mutated after publication, so readers need no lock.
// Writers serialize per bucket through MapOf.Compute.
type table struct {
	buckets *xsync.MapOf[uint64, []*Entry]
}

func newTable() *table {
	return &table{buckets: xsync.NewMapOf[uint64, []*Entry]()}
}

func indexOf(bucket []*Entry, key Key) int {
	for i, e := range bucket {
		if e.key.Equal(key) {
			return i
		}
	}
	return -1
}

func without(bucket []*Entry, i int) []*Entry {
	out := make([]*Entry, 0, len(bucket)-1)
	out = append(out, bucket[:i]...)
	return append(out, bucket[i+1:]...)
}

// lookup returns the entry for key, or nil.
func (t *table) lookup(key Key) *Entry {
	bucket, ok := t.buckets.Load(key.hash)
	if !ok {
		return nil
	}
	if i := indexOf(bucket, key); i >= 0 {
		return bucket[i]
	}
	return nil
}

// getOrCreate returns the entry for key, installing the one built by create
// when none exists. create runs at most once per call and only when it wins.
func (t *table) getOrCreate(key Key, create func() *Entry) (e *Entry, created bool) {
	if e = t.lookup(key); e != nil {
		return e, false
	}
	t.buckets.Compute(key.hash, func(bucket []*Entry, _ bool) ([]*Entry, bool) {
		if i := indexOf(bucket, key); i >= 0 {
			e = bucket[i]
			return bucket, false
		}
		e = create()
		created = true
		next := make([]*Entry, len(bucket), len(bucket)+1)
		copy(next, bucket)
		return append(next, e), false
	})
	return e, created
}

// remove deletes exactly e. It reports false when the table holds a
// different entry for e's key, or none.
func (t *table) remove(e *Entry) bool {
	removed := false
	t.buckets.Compute(e.key.hash, func(bucket []*Entry, loaded bool) ([]*Entry, bool) {
		if !loaded {
			return nil, true
		}
		for i, cur := range bucket {
			if cur == e {
				removed = true
				next := without(bucket, i)
				return next, len(next) == 0
			}
		}
		return bucket, false
	})
	return removed
}

// swap replaces old with next. It reports false when old is no longer the
// table's entry for its key.
func (t *table) swap(old, next *Entry) bool {
	swapped := false
	t.buckets.Compute(old.key.hash, func(bucket []*Entry, loaded bool) ([]*Entry, bool) {
		if !loaded {
			return nil, true
		}
		for i, cur := range bucket {
			if cur == old {
				swapped = true
				out := make([]*Entry, len(bucket))
				copy(out, bucket)
				out[i] = next
				return out, false
			}
		}
		return bucket, false
	})
	return swapped
}

// removeIf deletes every entry matching pred and returns them.
func (t *table) removeIf(pred func(*Entry) bool) []*Entry {
	var hashes []uint64
	t.buckets.Range(func(h uint64, bucket []*Entry) bool {
		for _, e := range bucket {
			if pred(e) {
				hashes = append(hashes, h)
				break
			}
		}
		return true
	})

	var removed []*Entry
	for _, h := range hashes {
		t.buckets.Compute(h, func(bucket []*Entry, loaded bool) ([]*Entry, bool) {
			if !loaded {
				return nil, true
			}
			kept := make([]*Entry, 0, len(bucket))
			for _, e := range bucket {
				if pred(e) {
					removed = append(removed, e)
				} else {
					kept = append(kept, e)
				}
			}
			return kept, len(kept) == 0
		})
	}
	return removed
}

// snapshot returns every entry present at some point during the call.
func (t *table) snapshot() []*Entry {
	var out []*Entry
	t.buckets.Range(func(_ uint64, bucket []*Entry) bool {
		out = append(out, bucket...)
		return true
	})
	return out
}

func (t *table) len() int {
	n := 0
	t.buckets.Range(func(_ uint64, bucket []*Entry) bool {
		n += len(bucket)
		return true
	})
	return n
}
