package transport

import (
	"context"
	"time"

	"github.com/testdriverai/go-sdk/pkg/core"
)

// WithTimeout runs op and returns its outcome, or a *core.TimeoutError
// labelled with label if op has not settled within timeout. A non-positive
// timeout runs op without a deadline. Cancellation of ctx is reported as a
// *core.NetworkError wrapping ctx.Err().
//
// On expiry the context handed to op is cancelled so an in-flight request can
// tear down its connection, but WithTimeout returns immediately without
// waiting for op to observe the cancellation.
func WithTimeout[T any](ctx context.Context, timeout time.Duration, label string, op func(context.Context) (T, error)) (T, error) {
	if timeout <= 0 {
		return op(ctx)
	}

	opCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	type outcome struct {
		value T
		err   error
	}
	// buffered so the goroutine can finish after we stop listening
	done := make(chan outcome, 1)
	go func() {
		value, err := op(opCtx)
		done <- outcome{value: value, err: err}
	}()

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	var zero T
	select {
	case out := <-done:
		return out.value, out.err
	case <-timer.C:
		return zero, &core.TimeoutError{Label: label, Duration: timeout}
	case <-ctx.Done():
		return zero, &core.NetworkError{Operation: label, Err: ctx.Err()}
	}
}
