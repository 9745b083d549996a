// Package health provides health checking primitives.
//
// A Checker reports a Result carrying one of three statuses: Healthy,
// Degraded, or Unhealthy. The memoization cache uses checkers in two places:
// its evictor consults a pressure checker (by default a MemoryChecker) before
// every sweep and releases retained values when the result is not healthy, and
// Cache.HealthChecker reports the cache's own lifecycle and refresh state.
//
//	memCheck := health.NewMemoryChecker(health.MemoryCheckerConfig{
//	    WarningThreshold:  0.80,
//	    CriticalThreshold: 0.95,
//	})
//
//	result := memCheck.Check(ctx)
//	if result.Status != health.StatusHealthy {
//	    log.Printf("memory pressure: %s", result.Message)
//	}
//
// Ad-hoc checks can be built from a function with NewCheckerFunc.
package health
