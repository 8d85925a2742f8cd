// Package deadline races an operation against a timer.
//
// A timeout only stops the caller from waiting. The operation's context is
// cancelled and an optional hook runs, but nothing forces the operation to
// return; whatever it produces afterwards is discarded.
package deadline

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"
)

// Unbounded disables the timer: Wait returns only when the operation does.
const Unbounded time.Duration = math.MaxInt64

// ErrTimeout is returned when the timer fires before the operation finishes.
var ErrTimeout = errors.New("timeout running function")

// Option configures Wait.
type Option func(*options)

type options struct {
	onCancel func()
	onLate   func(err error)
}

// WithCancel registers a hook invoked exactly once when the timer fires.
// The hook is best effort: the operation may keep running after it.
func WithCancel(fn func()) Option {
	return func(o *options) { o.onCancel = fn }
}

// WithLateResult registers a hook that receives the outcome of an operation
// that finished after its timeout was reported. err is nil if the late
// result was a success. The hook runs on its own goroutine.
func WithLateResult(fn func(err error)) Option {
	return func(o *options) { o.onLate = fn }
}

type outcome[T any] struct {
	val T
	err error
}

// Wait starts op and returns its result if it finishes within timeout, or
// ErrTimeout otherwise. The two failure outcomes are exclusive: either op's
// own error, returned verbatim, or an error wrapping ErrTimeout.
//
// A timeout of zero or less fails immediately without starting op.
// A panic inside op is returned as op's error.
func Wait[T any](ctx context.Context, timeout time.Duration, op func(context.Context) (T, error), opts ...Option) (T, error) {
	var (
		zero T
		o    options
	)
	for _, opt := range opts {
		opt(&o)
	}

	if timeout <= 0 {
		return zero, fmt.Errorf("%w: non-positive limit %s", ErrTimeout, timeout)
	}

	opCtx, cancel := context.WithCancel(ctx)
	done := make(chan outcome[T], 1)
	go func() {
		defer func() {
			if r := recover(); r != nil {
				done <- outcome[T]{err: fmt.Errorf("panic: %v", r)}
			}
		}()
		v, err := op(opCtx)
		done <- outcome[T]{val: v, err: err}
	}()

	if timeout == Unbounded {
		out := <-done
		cancel()
		return out.val, out.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case out := <-done:
		cancel()
		return out.val, out.err
	case <-timer.C:
	}

	cancel()
	if o.onCancel != nil {
		o.onCancel()
	}
	if o.onLate != nil {
		go func() {
			out := <-done
			o.onLate(out.err)
		}()
	}
	return zero, fmt.Errorf("%w after %s", ErrTimeout, timeout)
}
