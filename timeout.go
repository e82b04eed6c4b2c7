package lapse

import (
	"context"
	"time"
)

// Pattern: Timing Envelope — a task races a ceiling timer; the first to
// settle decides the outcome and the loser is stopped. An optional floor
// holds delivery of that outcome until a minimum time has passed.

// Handler binds a timing envelope (an optional floor and a required ceiling)
// once, and applies it to any number of tasks. A Handler is immutable and
// safe for concurrent use.
type Handler[T any] struct {
	settings settings
	min      time.Duration
	max      time.Duration
}

// Within returns a [Handler] that fails tasks still running after max with a
// [TimeoutError]. A nil max, or a zero [Millis] or [Span], returns
// [ErrMissingTimeout].
func Within[T any](max Amount, opts ...Option) (*Handler[T], error) {
	return newHandler[T](nil, max, opts)
}

// Window returns a [Handler] that fails tasks still running after max and
// delivers no outcome before min has elapsed. A nil or non-positive min
// means no floor. A nil max, or a zero [Millis] or [Span], returns
// [ErrMissingTimeout].
func Window[T any](min, max Amount, opts ...Option) (*Handler[T], error) {
	return newHandler[T](min, max, opts)
}

func newHandler[T any](min, max Amount, opts []Option) (*Handler[T], error) {
	ceiling, ok := ceilingOf(max)
	if !ok {
		return nil, ErrMissingTimeout
	}

	floor, _ := durationOf(min)
	if floor < 0 {
		floor = 0
	}

	return &Handler[T]{
		settings: resolve(opts),
		min:      floor,
		max:      ceiling,
	}, nil
}

// Min returns the floor, or zero when the handler has none.
func (h *Handler[T]) Min() time.Duration { return h.min }

// Max returns the ceiling.
func (h *Handler[T]) Max() time.Duration { return h.max }

// Try starts task and bounds it by the handler's envelope. When the ceiling
// wins, the task's context is cancelled and a [TimeoutError] is returned.
//
//nolint:ireturn // generic type parameter T, not an interface
func (h *Handler[T]) Try(ctx context.Context, task Task[T]) (T, error) {
	if ctx.Err() != nil {
		var zero T

		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}

	taskCtx, cancel := context.WithCancel(ctx)
	defer cancel()

	return clampTiming(ctx, h.settings, h.min, h.max, Start(taskCtx, task), cancel)
}

// Await bounds work that is already running. The handler cannot stop f when
// the ceiling wins; f keeps running and its outcome is discarded.
//
//nolint:ireturn // generic type parameter T, not an interface
func (h *Handler[T]) Await(ctx context.Context, f *Future[T]) (T, error) {
	if ctx.Err() != nil {
		var zero T

		return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
	}

	return clampTiming(ctx, h.settings, h.min, h.max, f, nil)
}

// Middleware returns a [Middleware] that runs the wrapped function through
// [Handler.Try].
func (h *Handler[T]) Middleware() Middleware[T] {
	return func(next Task[T]) Task[T] {
		return func(ctx context.Context) (T, error) {
			return h.Try(ctx, next)
		}
	}
}

// DoWithin runs task with a ceiling of max. It is shorthand for [Within]
// followed by [Handler.Try].
//
//nolint:ireturn // generic type parameter T, not an interface
func DoWithin[T any](
	ctx context.Context,
	max Amount,
	task Task[T],
	opts ...Option,
) (T, error) {
	h, err := Within[T](max, opts...)
	if err != nil {
		var zero T

		return zero, err
	}

	return h.Try(ctx, task)
}

// DoWindow runs task with a floor of min and a ceiling of max. It is
// shorthand for [Window] followed by [Handler.Try].
//
//nolint:ireturn // generic type parameter T, not an interface
func DoWindow[T any](
	ctx context.Context,
	min, max Amount,
	task Task[T],
	opts ...Option,
) (T, error) {
	h, err := Window[T](min, max, opts...)
	if err != nil {
		var zero T

		return zero, err
	}

	return h.Try(ctx, task)
}

// clampTiming arms the floor (if any) and races f against the ceiling. Both
// timers start together, so the floor counts from the start of the race.
//
//nolint:ireturn,revive // generic type parameter T; internal argument list
func clampTiming[T any](
	ctx context.Context,
	s settings,
	floor, ceiling time.Duration,
	f *Future[T],
	abandon context.CancelFunc,
) (T, error) {
	var floorTimer ClockTimer
	if floor > 0 {
		floorTimer = s.clock.NewTimer(floor)
	}

	race := raceCeiling(ctx, s, ceiling, f, abandon)

	if floorTimer == nil {
		return race.Wait(ctx)
	}

	return awaitFloor(ctx, s, floorTimer, race)
}

// raceCeiling settles the returned future with f's outcome, or with a
// [TimeoutError] if the ceiling fires first. Whichever side loses is cleaned
// up: the ceiling timer is stopped, or abandon is called.
func raceCeiling[T any](
	ctx context.Context,
	s settings,
	ceiling time.Duration,
	f *Future[T],
	abandon context.CancelFunc,
) *Future[T] {
	out := newFuture[T]()
	timer := s.clock.NewTimer(ceiling)

	go func() {
		var zero T

		select {
		case <-f.Done():
			timer.Stop()
			out.settle(f.val, f.err)

		case <-timer.C():
			// The task may have settled in the same instant; it still wins.
			if f.Settled() {
				out.settle(f.val, f.err)

				return
			}

			if abandon != nil {
				abandon()
			}

			s.hooks.emitTimeout(ceiling)
			out.settle(zero, &TimeoutError{Limit: ceiling})

		case <-ctx.Done():
			timer.Stop()
			out.settle(zero, ctx.Err())
		}
	}()

	return out
}
