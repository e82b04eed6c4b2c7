package lapse

import "context"

// Pattern: Decorator — an envelope wraps the next task, so ceilings, floors
// and caller-defined wrappers stack into one chain.

// Middleware turns a task into a bounded (or otherwise decorated) task.
// [Handler.Middleware] and [Floor] produce one.
type Middleware[T any] func(next Task[T]) Task[T]

// Chain stacks middlewares; the first one listed runs outermost, so
// Chain(a, b)(task) is a(b(task)). With no middlewares the task is returned
// as is.
func Chain[T any](middlewares ...Middleware[T]) Middleware[T] {
	return func(next Task[T]) Task[T] {
		for i := len(middlewares) - 1; i >= 0; i-- {
			next = middlewares[i](next)
		}

		return next
	}
}

// Floor returns a [Middleware] that holds the wrapped task's outcome until
// by has elapsed since the call, as [Atleast] does.
func Floor[T any](by Amount, opts ...Option) Middleware[T] {
	return func(next Task[T]) Task[T] {
		return func(ctx context.Context) (T, error) {
			return Atleast(ctx, by, next, opts...)
		}
	}
}
