package lapse

import (
	"context"
	"sync"
)

type (
	// Task is a unit of deferred work. Helpers that accept a Task start it
	// themselves and may cancel its context once the outcome no longer
	// matters.
	Task[T any] func(ctx context.Context) (T, error)

	// Future is the eventual outcome of work that is already running. It
	// settles exactly once, either with a value or with an error; later
	// settlement attempts are ignored. A Future is safe for concurrent use.
	Future[T any] struct {
		val  T
		err  error
		done chan struct{}
		once sync.Once
	}
)

func newFuture[T any]() *Future[T] {
	return &Future[T]{done: make(chan struct{})}
}

// Start runs task on its own goroutine with ctx and returns its future.
func Start[T any](ctx context.Context, task Task[T]) *Future[T] {
	f := newFuture[T]()

	go func() {
		v, err := task(ctx)
		f.settle(v, err)
	}()

	return f
}

// NewPromise returns an unsettled future together with the handles that
// settle it. Each handle reports whether it was the one that settled the
// future.
func NewPromise[T any]() (
	f *Future[T],
	resolve func(T) bool,
	reject func(error) bool,
) {
	f = newFuture[T]()

	resolve = func(v T) bool { return f.settle(v, nil) }
	reject = func(err error) bool {
		var zero T

		return f.settle(zero, err)
	}

	return f, resolve, reject
}

// Resolved returns a future already settled with v.
func Resolved[T any](v T) *Future[T] {
	f := newFuture[T]()
	f.settle(v, nil)

	return f
}

// Failed returns a future already settled with err.
func Failed[T any](err error) *Future[T] {
	var zero T

	f := newFuture[T]()
	f.settle(zero, err)

	return f
}

func (f *Future[T]) settle(v T, err error) bool {
	settled := false

	f.once.Do(func() {
		f.val, f.err = v, err
		close(f.done)
		settled = true
	})

	return settled
}

// Done returns a channel that is closed once the future settles.
func (f *Future[T]) Done() <-chan struct{} { return f.done }

// Settled reports whether the future has settled.
func (f *Future[T]) Settled() bool {
	select {
	case <-f.done:
		return true
	default:
		return false
	}
}

// Wait blocks until the future settles or ctx is done. A cancelled wait does
// not affect the future.
//
//nolint:ireturn // generic type parameter T, not an interface
func (f *Future[T]) Wait(ctx context.Context) (T, error) {
	select {
	case <-f.done:
		return f.val, f.err
	case <-ctx.Done():
		var zero T

		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}
}

// Result returns the outcome without blocking, or [ErrPending] if the future
// has not settled yet.
//
//nolint:ireturn // generic type parameter T, not an interface
func (f *Future[T]) Result() (T, error) {
	if !f.Settled() {
		var zero T

		return zero, ErrPending
	}

	return f.val, f.err
}

// Then returns a future settled by applying fn to f's value once f resolves.
// If f rejects, the returned future rejects with the same error and fn is
// not called.
func Then[T, U any](
	ctx context.Context,
	f *Future[T],
	fn func(context.Context, T) (U, error),
) *Future[U] {
	return Start(ctx, func(ctx context.Context) (U, error) {
		v, err := f.Wait(ctx)
		if err != nil {
			var zero U

			return zero, err
		}

		return fn(ctx, v)
	})
}
