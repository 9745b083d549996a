package observe

import (
	"errors"

	"github.com/jonwraymond/memoize/observe/exporters"
)

var (
	ErrMissingServiceName     = errors.New("observe: service name is required")
	ErrInvalidSamplePct       = errors.New("observe: sample percentage must be within [0, 1]")
	ErrInvalidTracingExporter = errors.New("observe: invalid tracing exporter")
	ErrInvalidMetricsExporter = errors.New("observe: invalid metrics exporter")
	ErrInvalidLogLevel        = errors.New("observe: invalid log level")

	// ErrNilObserver is returned by MiddlewareFromObserver for a nil Observer.
	ErrNilObserver = errors.New("observe: observer is nil")

	// ErrMissingCallable is returned by CallMeta.Validate.
	ErrMissingCallable = errors.New("observe: callable is required")

	// Exporter construction failures surface these through NewObserver.
	ErrEndpointNotConfigured = exporters.ErrEndpointNotConfigured
	ErrUnknownExporter       = exporters.ErrUnknownExporter
)

// Sampling bounds for TracingConfig.SamplePct.
const (
	MinSamplePct = 0.0
	MaxSamplePct = 1.0
)

// RedactedFields are log keys whose values are replaced before writing.
// Call arguments and results may carry credentials.
var RedactedFields = []string{
	"args",
	"result",
	"password",
	"secret",
	"token",
	"api_key",
	"apiKey",
	"credential",
}
