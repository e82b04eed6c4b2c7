package lapse

import (
	"context"
	"time"
)

// Clock is the source of time for every delay, floor, ceiling and [Timer].
// [RealClock] is the default; tests inject a fake through [WithClock] to
// step time by hand.
type Clock interface {
	// Now returns the current time.
	Now() time.Time
	// Since returns the time elapsed since t.
	Since(t time.Time) time.Duration
	// NewTimer arms a one-shot timer that fires after d.
	NewTimer(d time.Duration) ClockTimer
}

// ClockTimer is a one-shot timer armed by a [Clock]. Whoever arms one also
// stops it on every path that no longer waits for it.
type ClockTimer interface {
	// C delivers the firing time once.
	C() <-chan time.Time
	// Stop disarms the timer and reports whether it had not fired yet.
	Stop() bool
}

// RealClock is the wall [Clock]. The zero value is ready to use.
type RealClock struct{}

// Now calls [time.Now].
func (RealClock) Now() time.Time { return time.Now() }

// Since calls [time.Since].
func (RealClock) Since(t time.Time) time.Duration { return time.Since(t) }

// NewTimer arms a [time.Timer].
func (RealClock) NewTimer(d time.Duration) ClockTimer {
	return realTimer{inner: time.NewTimer(d)}
}

type realTimer struct {
	inner *time.Timer
}

func (t realTimer) C() <-chan time.Time { return t.inner.C }
func (t realTimer) Stop() bool          { return t.inner.Stop() }

// waitTimer blocks until timer fires or ctx is done; in the latter case the
// timer is stopped and the context error returned.
func waitTimer(ctx context.Context, timer ClockTimer) error {
	select {
	case <-timer.C():
		return nil
	case <-ctx.Done():
		timer.Stop()

		return ctx.Err() //nolint:wrapcheck // preserving context error identity
	}
}

// afterTimer arms a timer for d on clock and runs fn on a new goroutine once
// it fires. The timer cannot be stopped.
func afterTimer(clock Clock, d time.Duration, fn func()) {
	timer := clock.NewTimer(d)

	go func() {
		<-timer.C()
		fn()
	}()
}
