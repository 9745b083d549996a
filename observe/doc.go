// Package observe provides observability primitives for memoized calls.
//
// It is a pure instrumentation library: structured logging, OpenTelemetry
// metrics and spans around real computations, and exporter setup. The cache
// package consumes it through Middleware and the event metrics.
package observe
