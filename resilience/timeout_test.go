package resilience

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/benbjohnson/clock"
)

func TestNewTimeout_Default(t *testing.T) {
	cfg := NewTimeout(TimeoutConfig{}).Config()
	if cfg.Timeout != 30*time.Second {
		t.Errorf("Timeout = %v, want 30s", cfg.Timeout)
	}
	if cfg.Clock == nil {
		t.Error("Clock should default")
	}
}

func TestTimeout_CompletesInTime(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: time.Second})
	if err := to.Execute(context.Background(), succeeding); err != nil {
		t.Errorf("Execute() error = %v", err)
	}
}

func TestTimeout_PassesErrorThrough(t *testing.T) {
	opErr := errors.New("failed")
	err := NewTimeout(TimeoutConfig{Timeout: time.Second}).Execute(context.Background(), failing(opErr))
	if err != opErr {
		t.Errorf("err = %v, want %v", err, opErr)
	}
}

func TestTimeout_Exceeded(t *testing.T) {
	to := NewTimeout(TimeoutConfig{Timeout: 10 * time.Millisecond})

	var cause error
	seen := make(chan struct{})
	err := to.Execute(context.Background(), func(ctx context.Context) error {
		<-ctx.Done()
		cause = context.Cause(ctx)
		close(seen)
		return ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) {
		t.Fatalf("err = %v, want ErrTimeout", err)
	}
	<-seen
	if !errors.Is(cause, ErrTimeout) {
		t.Errorf("operation saw cause %v, want ErrTimeout", cause)
	}
}

func TestTimeout_ParentCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	err := NewTimeout(TimeoutConfig{Timeout: time.Hour}).Execute(ctx, func(ctx context.Context) error {
		<-ctx.Done()
		time.Sleep(10 * time.Millisecond)
		return nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("err = %v, want context.Canceled", err)
	}
}

func TestTimeout_MockClockFiresDeadline(t *testing.T) {
	mock := clock.NewMock()
	to := NewTimeout(TimeoutConfig{Timeout: time.Minute, Clock: mock})

	started := make(chan struct{})
	errc := make(chan error, 1)
	go func() {
		errc <- to.Execute(context.Background(), func(ctx context.Context) error {
			close(started)
			<-ctx.Done()
			return ctx.Err()
		})
	}()

	<-started
	mock.Add(59 * time.Second)
	select {
	case err := <-errc:
		t.Fatalf("Execute() returned %v before the deadline", err)
	default:
	}

	mock.Add(time.Second)
	if err := <-errc; !errors.Is(err, ErrTimeout) {
		t.Errorf("err = %v, want ErrTimeout", err)
	}
}
