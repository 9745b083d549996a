package cache

import (
	"context"
	"fmt"
)

// Do memoizes fn through c and returns its result as T.
//
// A nil cached value yields T's zero value, so fn may return a nil pointer,
// slice or map. A cached value of another type, possible when two call sites
// share an owner and callable but disagree on the result type, returns
// ErrTypeMismatch.
func Do[T any](ctx context.Context, c *Cache, call Call, policy Policy, fn func(context.Context) (T, error)) (T, error) {
	var zero T
	if fn != nil {
		call.Thunk = func(ctx context.Context) (any, error) {
			return fn(ctx)
		}
	}

	v, err := c.Intercept(ctx, call, policy)
	if err != nil {
		return zero, err
	}
	if v == nil {
		return zero, nil
	}
	out, ok := v.(T)
	if !ok {
		return zero, fmt.Errorf("%w: got %T, want %T", ErrTypeMismatch, v, zero)
	}
	return out, nil
}

// Memoize returns a memoized version of fn bound to owner and callable. The
// policy is validated once, up front. Each call's variadic args form the key;
// fn receives them unchanged.
func Memoize[T any](c *Cache, owner any, callable string, policy Policy, fn func(ctx context.Context, args ...any) (T, error)) (func(ctx context.Context, args ...any) (T, error), error) {
	if err := policy.Validate(); err != nil {
		return nil, err
	}
	if fn == nil {
		return nil, ErrNilThunk
	}
	if _, err := NewKey(owner, callable); err != nil {
		return nil, err
	}

	return func(ctx context.Context, args ...any) (T, error) {
		call := Call{Owner: owner, Callable: callable, Args: args}
		return Do(ctx, c, call, policy, func(ctx context.Context) (T, error) {
			return fn(ctx, args...)
		})
	}, nil
}
