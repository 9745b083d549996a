package cache

import (
	"context"

	"github.com/jonwraymond/memoize/health"
	"github.com/jonwraymond/memoize/resilience"
)

// HealthChecker reports the state of the background workers.
//
// Healthy while running, Degraded before Start or while the refresh circuit
// is open, Unhealthy after Stop. A configured memory pressure check is folded
// in and can only make the result worse.
func (c *Cache) HealthChecker() health.Checker {
	return health.NewCheckerFunc("cache."+c.name, func(ctx context.Context) health.Result {
		start := c.clock.Now()
		details := map[string]any{
			"entries":           c.Len(),
			"retained":          c.pool.len(),
			"pending_refreshes": c.refresher.pending(),
			"refresh_guarded":   c.refresher.exec.Configured(),
		}

		var res health.Result
		switch c.state.Load() {
		case stateIdle:
			res = health.Degraded("background workers not started")
		case stateStopped:
			res = health.Unhealthy("cache stopped", ErrStopped)
		default:
			res = health.Healthy("running")
			if cb := c.refresher.exec.CircuitBreaker(); cb != nil {
				snap := cb.Snapshot()
				details["refresh_circuit"] = snap.State.String()
				details["refresh_circuit_trips"] = snap.Trips
				if snap.State == resilience.StateOpen {
					res = health.Degraded("refresh circuit open")
				}
			}
		}
		res = res.WithDetails(details)
		if c.evictor.pressure != nil {
			res = health.Worst(res, health.Run(ctx, c.evictor.pressure, c.clock))
		}
		return res.WithDuration(c.clock.Since(start))
	})
}
