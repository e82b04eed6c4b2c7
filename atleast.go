package lapse

import (
	"context"
	"time"
)

// Pattern: Floor — a result is delivered no sooner than a minimum delay
// armed when the call starts, whichever of the two finishes last.

// Defer returns a transform that hands back its input after by has elapsed.
// The delay is armed each time the transform is applied, not when Defer is
// called, so the transform can be reused, for example with [Then].
//
//nolint:ireturn // generic type parameter T, not an interface
func Defer[T any](by Amount, opts ...Option) func(context.Context, T) (T, error) {
	return func(ctx context.Context, v T) (T, error) {
		if _, err := Sleep(ctx, by, opts...); err != nil {
			var zero T

			return zero, err
		}

		return v, nil
	}
}

// Atleast starts task and returns its outcome, but not before by has
// elapsed. A failing task's error is returned unchanged, also held until by.
// A nil by returns [ErrMissingDuration] without starting the task.
//
//nolint:ireturn // generic type parameter T, not an interface
func Atleast[T any](
	ctx context.Context,
	by Amount,
	task Task[T],
	opts ...Option,
) (T, error) {
	d, ok := durationOf(by)
	if !ok {
		var zero T

		return zero, ErrMissingDuration
	}

	s := resolve(opts)

	f := Start(ctx, task)

	return awaitFloor(ctx, s, s.clock.NewTimer(d), f)
}

// AtleastFuture is [Atleast] for work that is already running: it observes f
// and delivers its outcome no sooner than by after the call.
//
//nolint:ireturn // generic type parameter T, not an interface
func AtleastFuture[T any](
	ctx context.Context,
	by Amount,
	f *Future[T],
	opts ...Option,
) (T, error) {
	d, ok := durationOf(by)
	if !ok {
		var zero T

		return zero, ErrMissingDuration
	}

	s := resolve(opts)

	return awaitFloor(ctx, s, s.clock.NewTimer(d), f)
}

// awaitFloor waits jointly for f and the floor timer, then returns f's
// outcome. The floor timer is stopped if ctx ends the wait early.
//
//nolint:ireturn // generic type parameter T, not an interface
func awaitFloor[T any](
	ctx context.Context,
	s settings,
	floor ClockTimer,
	f *Future[T],
) (T, error) {
	var (
		settled = f.Done()
		expired = floor.C()
		readyAt time.Time
	)

	// A nil channel blocks forever, so each case fires at most once.
	for settled != nil || expired != nil {
		select {
		case <-settled:
			settled = nil

			if expired != nil {
				readyAt = s.clock.Now()
			}

		case <-expired:
			expired = nil

		case <-ctx.Done():
			floor.Stop()

			var zero T

			return zero, ctx.Err() //nolint:wrapcheck // preserving context error identity
		}
	}

	if !readyAt.IsZero() {
		s.hooks.emitFloorHeld(s.clock.Since(readyAt))
	}

	return f.val, f.err
}
