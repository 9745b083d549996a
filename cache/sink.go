package cache

import (
	"context"
	"reflect"
	"time"

	"github.com/jonwraymond/memoize/observe"
)

// Outcome names what happened to a call or an entry.
type Outcome string

const (
	OutcomeHit           Outcome = "hit"
	OutcomeMiss          Outcome = "miss"
	OutcomeStale         Outcome = "stale"
	OutcomeExpired       Outcome = "expired"
	OutcomeEvicted       Outcome = "evicted"
	OutcomeRefreshed     Outcome = "refreshed"
	OutcomeRefreshFailed Outcome = "refresh_failed"
	OutcomeFlushed       Outcome = "flushed"
	OutcomeReclaimed     Outcome = "reclaimed"
)

// Event is one diagnostic record.
type Event struct {
	Key     Key
	Outcome Outcome
	// Age is the age of the entry the event concerns, zero when unknown.
	Age time.Duration
	// Err is set for refresh_failed.
	Err error
}

// Sink receives diagnostic events. Implementations must be safe for
// concurrent use and return quickly; the cache never depends on them.
type Sink interface {
	Record(ctx context.Context, ev Event)
}

// SinkFunc adapts a function to Sink.
type SinkFunc func(ctx context.Context, ev Event)

// Record calls f.
func (f SinkFunc) Record(ctx context.Context, ev Event) { f(ctx, ev) }

type nopSink struct{}

func (nopSink) Record(context.Context, Event) {}

// Tee fans events out to every non-nil sink. With none left it returns a
// sink that drops events.
func Tee(sinks ...Sink) Sink {
	var out teeSink
	for _, s := range sinks {
		if s != nil {
			out = append(out, s)
		}
	}
	switch len(out) {
	case 0:
		return nopSink{}
	case 1:
		return out[0]
	}
	return out
}

type teeSink []Sink

func (t teeSink) Record(ctx context.Context, ev Event) {
	for _, s := range t {
		s.Record(ctx, ev)
	}
}

// observerSink logs events at debug level and counts them.
type observerSink struct {
	logger  observe.Logger
	metrics observe.Metrics
}

func (s observerSink) Record(ctx context.Context, ev Event) {
	meta := callMeta(ev.Key)
	s.metrics.RecordEvent(ctx, meta, string(ev.Outcome), ev.Age)

	fields := []observe.Field{
		{Key: "outcome", Value: string(ev.Outcome)},
	}
	if ev.Age > 0 {
		fields = append(fields, observe.Field{Key: "age_ms", Value: ev.Age.Milliseconds()})
	}
	if ev.Err != nil {
		fields = append(fields, observe.Field{Key: "error", Value: ev.Err.Error()})
	}
	s.logger.WithCall(meta).Debug(ctx, "cache event", fields...)
}

// callMeta describes a key for telemetry. Owners are labelled by type only
// so instance addresses never become metric attributes.
func callMeta(k Key) observe.CallMeta {
	meta := observe.CallMeta{Callable: k.callable}
	switch o := k.owner.(type) {
	case nil:
	case reflect.Type:
		meta.Owner = o.String()
	default:
		meta.Owner = reflect.TypeOf(o).String()
	}
	return meta
}

func policyMeta(k Key, p Policy) observe.CallMeta {
	meta := callMeta(k)
	meta.Lifetime = p.Lifetime().String()
	meta.Async = p.AsyncRefresh
	return meta
}
