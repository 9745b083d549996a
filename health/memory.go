package health

import (
	"context"
	"fmt"
	"runtime"
)

// MemoryCheckerConfig configures the memory health checker.
type MemoryCheckerConfig struct {
	// WarningThreshold is the heap usage ratio that triggers degraded status.
	// Value should be between 0 and 1. Default: 0.8 (80%)
	WarningThreshold float64

	// CriticalThreshold is the heap usage ratio that triggers unhealthy status.
	// Value should be between 0 and 1. Default: 0.95 (95%)
	CriticalThreshold float64

	// MaxHeap is the heap budget in bytes that usage is measured against.
	// If zero, the heap reserved from the OS (HeapSys) is used.
	MaxHeap uint64

	// ReadStats samples memory statistics.
	// Default: runtime.ReadMemStats
	ReadStats func(*runtime.MemStats)
}

// MemoryChecker reports heap pressure. The cache's evictor treats any
// non-healthy result as a signal to release retained values.
type MemoryChecker struct {
	config MemoryCheckerConfig
}

// NewMemoryChecker creates a new memory health checker.
func NewMemoryChecker(config MemoryCheckerConfig) *MemoryChecker {
	if config.WarningThreshold <= 0 || config.WarningThreshold >= 1 {
		config.WarningThreshold = 0.8
	}
	if config.CriticalThreshold <= 0 || config.CriticalThreshold >= 1 {
		config.CriticalThreshold = 0.95
	}
	if config.CriticalThreshold < config.WarningThreshold {
		config.CriticalThreshold = config.WarningThreshold + 0.1
		if config.CriticalThreshold > 1 {
			config.CriticalThreshold = 0.99
		}
	}
	if config.ReadStats == nil {
		config.ReadStats = runtime.ReadMemStats
	}

	return &MemoryChecker{config: config}
}

// Name returns the name of this checker.
func (m *MemoryChecker) Name() string {
	return "memory"
}

// Check compares heap in use against the budget.
func (m *MemoryChecker) Check(ctx context.Context) Result {
	select {
	case <-ctx.Done():
		return Unhealthy("context cancelled", ctx.Err())
	default:
	}

	var stats runtime.MemStats
	m.config.ReadStats(&stats)

	budget := m.config.MaxHeap
	if budget == 0 {
		budget = stats.HeapSys
	}
	if budget == 0 {
		return Healthy("memory stats unavailable")
	}

	usage := float64(stats.HeapInuse) / float64(budget)
	details := map[string]any{
		"heap_in_use":   stats.HeapInuse,
		"heap_sys":      stats.HeapSys,
		"heap_objects":  stats.HeapObjects,
		"budget":        budget,
		"usage_percent": usage * 100,
		"num_gc":        stats.NumGC,
	}

	switch {
	case usage >= m.config.CriticalThreshold:
		return Unhealthy(fmt.Sprintf("heap usage critical: %.1f%%", usage*100), ErrCheckFailed).WithDetails(details)
	case usage >= m.config.WarningThreshold:
		return Degraded(fmt.Sprintf("heap usage high: %.1f%%", usage*100)).WithDetails(details)
	default:
		return Healthy(fmt.Sprintf("heap usage normal: %.1f%%", usage*100)).WithDetails(details)
	}
}
