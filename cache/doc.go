// Package cache provides method-level memoization for arbitrary computations.
//
// A Call names who owns it (an instance or a type), what is being called and
// with which arguments, plus a thunk performing the real work. Cache.Intercept
// returns the memoized result for that combination, computing it at most once
// per freshness window no matter how many goroutines ask concurrently.
//
// Freshness is governed by a Policy: a TTL, the Forever lifetime, or the Never
// lifetime (TTL 0, recomputed on every call). Values are also held through a
// bounded retention pool; a value pushed out of the pool, or released under
// memory pressure, makes its entry expire early regardless of the TTL.
//
// Expired entries are removed by a periodic Evictor. Entries with AsyncRefresh
// keep serving the stale value while a background Refresher recomputes them and
// swaps the fresh entry in. Flush drops every entry belonging to one owner, and
// flush Triggers run it before or after guarded calls.
//
//	c, _ := cache.New(cache.DefaultConfig())
//	_ = c.Start(ctx)
//	defer c.Stop(ctx)
//
//	policy, _ := cache.NewPolicy(time.Minute, cache.WithAsyncRefresh())
//	user, err := cache.Do(ctx, c, cache.Call{
//		Owner:    repo,
//		Callable: "Repo.FindUser",
//		Args:     []any{id},
//	}, policy, func(ctx context.Context) (*User, error) {
//		return repo.findUser(ctx, id)
//	})
//
// Computation failures are returned unchanged and never cached. Only the two
// background workers swallow errors, and they log them.
package cache
