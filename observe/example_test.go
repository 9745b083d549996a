package observe_test

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/jonwraymond/memoize/observe"
)

func ExampleNewObserver() {
	ctx := context.Background()
	var logs bytes.Buffer

	obs, err := observe.NewObserver(ctx, observe.Config{
		ServiceName: "users-api",
		Version:     "1.4.0",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none", SamplePct: 0.1},
		Logging:     observe.LoggingConfig{Enabled: true, Level: "warn", Writer: &logs},
	})
	if err != nil {
		fmt.Println("Error:", err)
		return
	}
	defer func() { _ = obs.Shutdown(ctx) }()

	obs.Logger().Info(ctx, "filtered out")
	obs.Logger().Warn(ctx, "refresh failed", observe.Field{Key: "args", Value: []any{42}})

	fmt.Println(strings.Count(logs.String(), "\n"), "line")
	fmt.Println(strings.Contains(logs.String(), `"args":"[REDACTED]"`))
	// Output:
	// 1 line
	// true
}

func ExampleNewObserver_validation() {
	_, err := observe.NewObserver(context.Background(), observe.Config{})
	if errors.Is(err, observe.ErrMissingServiceName) {
		fmt.Println("Caught: missing service name")
	}
	// Output:
	// Caught: missing service name
}

func ExampleCallMeta_SpanName() {
	meta := observe.CallMeta{Owner: "*users.Repo", Callable: "FindUser"}
	fmt.Println(meta.SpanName())
	fmt.Println(meta.CallID())
	// Output:
	// memo.compute.FindUser
	// *users.Repo#FindUser
}

func ExampleCallMeta_Validate() {
	if errors.Is(observe.CallMeta{Owner: "Repo"}.Validate(), observe.ErrMissingCallable) {
		fmt.Println("Caught: missing callable")
	}
	// Output:
	// Caught: missing callable
}

func ExampleLogger_WithCall() {
	var buf bytes.Buffer
	logger := observe.NewLoggerWithWriter("info", &buf)

	logger.WithCall(observe.CallMeta{Owner: "Repo", Callable: "Find"}).
		Info(context.Background(), "refresh scheduled")

	fmt.Println("Contains call.callable:", bytes.Contains(buf.Bytes(), []byte(`"call.callable":"Find"`)))
	fmt.Println("Contains call.owner:", bytes.Contains(buf.Bytes(), []byte(`"call.owner":"Repo"`)))
	// Output:
	// Contains call.callable: true
	// Contains call.owner: true
}

func ExampleMiddleware_Wrap() {
	ctx := context.Background()

	obs, _ := observe.NewObserver(ctx, observe.Config{
		ServiceName: "example",
		Tracing:     observe.TracingConfig{Enabled: true, Exporter: "none"},
		Metrics:     observe.MetricsConfig{Enabled: true, Exporter: "none"},
	})
	defer func() {
		_ = obs.Shutdown(ctx)
	}()

	mw, _ := observe.MiddlewareFromObserver(obs)

	compute := mw.Wrap(observe.CallMeta{Callable: "Status"}, func(ctx context.Context) (any, error) {
		return map[string]string{"status": "success"}, nil
	})

	result, err := compute(ctx)
	if err != nil {
		fmt.Println("Error:", err)
	} else {
		fmt.Printf("Result: %v\n", result)
	}
	// Output:
	// Result: map[status:success]
}
