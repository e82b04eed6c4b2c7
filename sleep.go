package lapse

import (
	"context"
	"time"
)

// Sleep blocks for a and returns the slept duration. A nil amount sleeps for
// zero, which still yields to the timer rather than returning inline. If ctx
// is done first, the timer is stopped and the context error is returned.
func Sleep(ctx context.Context, a Amount, opts ...Option) (time.Duration, error) {
	s := resolve(opts)
	d, _ := durationOf(a)

	if err := waitTimer(ctx, s.clock.NewTimer(d)); err != nil {
		return 0, err
	}

	s.hooks.emitSleep(d)

	return d, nil
}

// After returns a future that resolves to the slept duration once a has
// elapsed. It cannot be cancelled; use [Sleep] or a [Timer] for that.
func After(a Amount, opts ...Option) *Future[time.Duration] {
	s := resolve(opts)
	d, _ := durationOf(a)

	f := newFuture[time.Duration]()

	afterTimer(s.clock, d, func() {
		s.hooks.emitSleep(d)
		f.settle(d, nil)
	})

	return f
}

// SleepFunc calls fn once, on its own goroutine, after at least a has
// elapsed. fn receives the slept duration; any other arguments are captured
// by the closure. SleepFunc returns immediately.
func SleepFunc(a Amount, fn func(time.Duration), opts ...Option) {
	s := resolve(opts)
	d, _ := durationOf(a)

	afterTimer(s.clock, d, func() {
		s.hooks.emitSleep(d)
		fn(d)
	})
}
