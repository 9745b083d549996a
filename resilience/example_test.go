package resilience_test

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jonwraymond/memoize/resilience"
)

func ExampleNewExecutor() {
	executor := resilience.NewExecutor(
		resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
			MaxFailures:  5,
			ResetTimeout: time.Minute,
		})),
		resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
			MaxAttempts:  3,
			InitialDelay: time.Millisecond,
		})),
		resilience.WithTimeout(time.Second),
	)

	attempts := 0
	err := executor.Execute(context.Background(), func(ctx context.Context) error {
		attempts++
		if attempts < 2 {
			return errors.New("transient")
		}
		return nil
	})
	fmt.Println("err:", err)
	fmt.Println("attempts:", attempts)
	// Output:
	// err: <nil>
	// attempts: 2
}

func ExampleCircuitBreaker() {
	cb := resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{MaxFailures: 2})
	fail := func(ctx context.Context) error { return errors.New("down") }

	_ = cb.Execute(context.Background(), fail)
	_ = cb.Execute(context.Background(), fail)

	err := cb.Execute(context.Background(), fail)
	fmt.Println(cb.State(), errors.Is(err, resilience.ErrCircuitOpen))
	// Output:
	// open true
}

func ExampleRetry() {
	r := resilience.NewRetry(resilience.RetryConfig{
		MaxAttempts:  2,
		InitialDelay: time.Millisecond,
		Strategy:     resilience.BackoffConstant,
	})

	err := r.Execute(context.Background(), func(ctx context.Context) error {
		return errors.New("unavailable")
	})
	fmt.Println(errors.Is(err, resilience.ErrMaxRetriesExceeded))
	// Output:
	// true
}
