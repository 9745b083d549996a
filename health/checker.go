package health

import (
	"context"
	"fmt"
	"time"

	"github.com/benbjohnson/clock"
)

// Status orders check outcomes from best to worst.
type Status int

const (
	StatusHealthy Status = iota
	StatusDegraded
	StatusUnhealthy
)

var statusNames = [...]string{"healthy", "degraded", "unhealthy"}

func (s Status) String() string {
	if s < StatusHealthy || s > StatusUnhealthy {
		return "unknown"
	}
	return statusNames[s]
}

// Result is the outcome of one check. Duration and Timestamp are filled in by
// Run; checkers invoked directly leave them zero unless they set them.
type Result struct {
	Status    Status
	Message   string
	Details   map[string]any
	Duration  time.Duration
	Timestamp time.Time
	Error     error
}

func Healthy(message string) Result {
	return Result{Status: StatusHealthy, Message: message}
}

func Degraded(message string) Result {
	return Result{Status: StatusDegraded, Message: message}
}

func Unhealthy(message string, err error) Result {
	return Result{Status: StatusUnhealthy, Message: message, Error: err}
}

// WithDetails replaces the result's details.
func (r Result) WithDetails(details map[string]any) Result {
	r.Details = details
	return r
}

func (r Result) WithDuration(d time.Duration) Result {
	r.Duration = d
	return r
}

// Worst folds results into the one with the highest Status. Ties keep the
// earlier result. Details from every result are merged, earlier keys winning.
func Worst(first Result, rest ...Result) Result {
	out := first
	var merged map[string]any
	for _, r := range append([]Result{first}, rest...) {
		if r.Status > out.Status {
			out.Status, out.Message, out.Error = r.Status, r.Message, r.Error
		}
		for k, v := range r.Details {
			if merged == nil {
				merged = make(map[string]any)
			}
			if _, dup := merged[k]; !dup {
				merged[k] = v
			}
		}
	}
	out.Details = merged
	return out
}

// Checker is one named health check.
type Checker interface {
	Name() string
	Check(ctx context.Context) Result
}

// CheckerFunc adapts a function to Checker.
type CheckerFunc struct {
	name string
	fn   func(context.Context) Result
}

func NewCheckerFunc(name string, fn func(context.Context) Result) *CheckerFunc {
	return &CheckerFunc{name: name, fn: fn}
}

func (f *CheckerFunc) Name() string { return f.name }

func (f *CheckerFunc) Check(ctx context.Context) Result { return f.fn(ctx) }

// Run invokes checker, stamping the result with clk and recovering a panic
// as an unhealthy result.
func Run(ctx context.Context, checker Checker, clk clock.Clock) (res Result) {
	start := clk.Now()
	defer func() {
		if r := recover(); r != nil {
			res = Unhealthy(fmt.Sprintf("check %s panicked: %v", checker.Name(), r), ErrCheckFailed)
		}
		res.Duration = clk.Since(start)
		if res.Timestamp.IsZero() {
			res.Timestamp = start
		}
	}()
	return checker.Check(ctx)
}
