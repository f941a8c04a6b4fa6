package dispatch

import (
	"context"
	"fmt"

	"github.com/mroshb/islands/pkg/errors"
	"github.com/mroshb/islands/pkg/logger"
)

// Future is the eventual outcome of a dispatched job.
type Future[T any] struct {
	done  chan struct{}
	value T
	err   error
}

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Resolved returns a future that has already completed.
func Resolved[T any](value T, err error) *Future[T] {
	f := newFuture[T]()
	f.value, f.err = value, err
	close(f.done)
	return f
}

// Go runs fn on the pool under key and returns its future. A panic in fn
// completes the future with an INTERNAL_ERROR.
func Go[T any](p *Pool, key string, fn func() (T, error)) *Future[T] {
	f := newFuture[T]()
	err := p.Submit(key, func() {
		defer close(f.done)
		defer func() {
			if r := recover(); r != nil {
				logger.Error("Panic in dispatched workflow", "key", key, "error", r)
				f.err = errors.New(errors.ErrCodeInternalError, fmt.Sprintf("workflow panicked: %v", r))
			}
		}()
		f.value, f.err = fn()
	})
	if err != nil {
		var zero T
		return Resolved(zero, err)
	}
	return f
}

// Done is closed once the outcome is available.
func (f *Future[T]) Done() <-chan struct{} {
	return f.done
}

// Wait blocks until the outcome is available or ctx ends. Giving up on the
// wait does not cancel the job.
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.value, f.err
	case <-ctx.Done():
		var zero T
		return zero, ctx.Err()
	}
}
