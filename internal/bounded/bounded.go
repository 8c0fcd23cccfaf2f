// Package bounded runs blocking file-system and network calls under a hard
// deadline.
//
// Calls against a stalled network mount can block inside the kernel for
// minutes and cannot be interrupted from Go. Do runs the call on its own
// goroutine and returns as soon as the deadline passes; the abandoned
// goroutine finishes (and is discarded) whenever the kernel gives up.
package bounded

import (
	"context"
	"errors"
	"time"
)

// ErrTimeout is returned when a bounded call exceeds its deadline.
var ErrTimeout = errors.New("timeout")

// Do calls fn and waits at most timeout for it to return. A non-positive
// timeout only honours ctx. Cancellation of ctx is reported as ctx.Err().
// fn is not started at all when ctx is already done or past its deadline.
func Do[T any](ctx context.Context, timeout time.Duration, fn func() (T, error)) (T, error) {
	type outcome struct {
		val T
		err error
	}

	var zero T
	if err := expired(ctx); err != nil {
		return zero, err
	}

	// Buffered so the worker never blocks after the caller has given up.
	done := make(chan outcome, 1)
	go func() {
		v, err := fn()
		done <- outcome{val: v, err: err}
	}()

	var timer <-chan time.Time
	if timeout > 0 {
		t := time.NewTimer(timeout)
		defer t.Stop()
		timer = t.C
	}

	select {
	case out := <-done:
		return out.val, out.err
	case <-timer:
		return zero, ErrTimeout
	case <-ctx.Done():
		if errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return zero, ErrTimeout
		}
		return zero, ctx.Err()
	}
}

// expired reports a context that is already finished. A deadline in the
// past counts even before the context's own timer has fired.
func expired(ctx context.Context) error {
	if dl, ok := ctx.Deadline(); ok && !time.Now().Before(dl) {
		return ErrTimeout
	}
	switch err := ctx.Err(); {
	case err == nil:
		return nil
	case errors.Is(err, context.DeadlineExceeded):
		return ErrTimeout
	default:
		return err
	}
}

// Run is Do for calls that only return an error.
func Run(ctx context.Context, timeout time.Duration, fn func() error) error {
	_, err := Do(ctx, timeout, func() (struct{}, error) {
		return struct{}{}, fn()
	})
	return err
}

// IsTimeout reports whether err came from an expired deadline.
func IsTimeout(err error) bool {
	return errors.Is(err, ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}
