// Package future bridges a background computation into a blocking call
// whose timeout is owned by the waiting side.
package future

import (
	"context"
	"errors"
	"fmt"
	"time"
)

// ErrTimeout is returned by Wait when the result is not ready in time.
var ErrTimeout = errors.New("future: wait timed out")

// Future holds the eventual result of a function started with Go.
type Future[T any] struct {
	done   chan struct{}
	cancel context.CancelFunc
	value  T
	err    error
}

// Go runs fn on its own goroutine. The context passed to fn is cancelled when
// a Wait times out, when Cancel is called, or when ctx is done.
func Go[T any](ctx context.Context, fn func(context.Context) (T, error)) *Future[T] {
	ctx, cancel := context.WithCancel(ctx)
	f := &Future[T]{done: make(chan struct{}), cancel: cancel}

	go func() {
		defer close(f.done)
		defer cancel()
		defer func() {
			if r := recover(); r != nil {
				f.err = fmt.Errorf("future: panic: %v", r)
			}
		}()
		f.value, f.err = fn(ctx)
	}()

	return f
}

// Done is closed once the result is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the result is available or timeout elapses.
// A timeout cancels the work and returns ErrTimeout. A non-positive timeout waits forever.
func (f *Future[T]) Wait(timeout time.Duration) (T, error) {
	if timeout <= 0 {
		<-f.done
		return f.value, f.err
	}

	timer := time.NewTimer(timeout)
	defer timer.Stop()

	select {
	case <-f.done:
		return f.value, f.err
	case <-timer.C:
		f.cancel()
		var zero T
		return zero, ErrTimeout
	}
}

// Cancel asks the work to stop. The result, if any, is still delivered through Wait.
func (f *Future[T]) Cancel() {
	f.cancel()
}
