// Package resilience protects background recomputation.
//
// The cache's refresher runs every recomputation of a stale entry through an
// Executor, so a failing backend is retried with backoff, bounded per attempt
// and eventually short-circuited instead of being hammered on every tick.
// Synchronous calls never pass through here: their failures go straight back
// to the caller.
//
// # Patterns
//
//   - Circuit Breaker: stops attempts after a threshold of failures and trials
//     again after a reset timeout.
//
//   - Retry: retries failed attempts with exponential, linear or constant
//     backoff.
//
//   - Timeout: bounds each attempt.
//
// # Usage
//
//	executor := resilience.NewExecutor(
//	    resilience.WithCircuitBreaker(resilience.NewCircuitBreaker(resilience.CircuitBreakerConfig{
//	        MaxFailures:  5,
//	        ResetTimeout: time.Minute,
//	    })),
//	    resilience.WithRetry(resilience.NewRetry(resilience.RetryConfig{
//	        MaxAttempts:  3,
//	        InitialDelay: 100 * time.Millisecond,
//	    })),
//	    resilience.WithTimeout(5*time.Second),
//	)
//
//	err := executor.Execute(ctx, func(ctx context.Context) error {
//	    _, err := entry.Through(ctx)
//	    return err
//	})
package resilience
