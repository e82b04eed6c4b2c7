package lapse

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"time"
)

// TimerState is the lifecycle state of a [Timer].
type TimerState int

const (
	// TimerPending means the countdown is still armed.
	TimerPending TimerState = iota
	// TimerFinished means the countdown expired on its own.
	TimerFinished
	// TimerCancelled means [Timer.Cancel] settled the timer early.
	TimerCancelled
)

// String returns the state as a lower-case word.
func (s TimerState) String() string {
	switch s {
	case TimerFinished:
		return "finished"
	case TimerCancelled:
		return "cancelled"
	default:
		return "pending"
	}
}

//nolint:gochecknoglobals // monotonic source of timer identifiers
var timerSeq atomic.Uint64

// Timer is a single countdown that can be awaited, queried and cancelled.
// It settles exactly once: successfully when the countdown expires, or on
// [Timer.Cancel], which resolves quietly unless the timer was created with
// [RejectOnCancel]. Once settled, the elapsed duration is frozen.
//
// Timer owns a [Future] and the handles that settle it rather than being a
// future itself. All methods are safe for concurrent use.
type Timer struct {
	clock   Clock
	hooks   *Hooks
	alarm   ClockTimer
	future  *Future[struct{}]
	resolve func(struct{}) bool
	reject  func(error) bool
	stop    chan struct{}
	start   time.Time

	id             uint64
	requested      time.Duration
	rejectOnCancel bool

	mu       sync.Mutex
	state    TimerState
	duration time.Duration
}

// NewTimer starts a countdown of d. A nil d counts down from zero.
func NewTimer(d Amount, opts ...Option) *Timer {
	s := resolve(opts)
	requested, _ := durationOf(d)
	f, resolveFn, rejectFn := NewPromise[struct{}]()

	t := &Timer{
		clock:          s.clock,
		hooks:          s.hooks,
		future:         f,
		resolve:        resolveFn,
		reject:         rejectFn,
		stop:           make(chan struct{}),
		id:             timerSeq.Add(1),
		requested:      requested,
		rejectOnCancel: s.rejectOnCancel,
	}

	t.start = s.clock.Now()
	t.alarm = s.clock.NewTimer(requested)

	go t.watch()

	return t
}

// watch settles the timer when the alarm fires, unless Cancel got there
// first.
func (t *Timer) watch() {
	select {
	case <-t.alarm.C():
	case <-t.stop:
		return
	}

	t.mu.Lock()
	if t.state != TimerPending {
		t.mu.Unlock()

		return
	}

	t.state = TimerFinished
	t.duration = t.clock.Since(t.start)
	elapsed := t.duration
	t.mu.Unlock()

	t.resolve(struct{}{})
	t.hooks.emitTimerFired(t.id, elapsed)
}

// Cancel stops a pending countdown, freezes the elapsed duration and settles
// the timer at once. It returns the frozen duration. Calling Cancel on a
// settled timer changes nothing and returns the same frozen duration.
func (t *Timer) Cancel() time.Duration {
	t.mu.Lock()
	if t.state != TimerPending {
		d := t.duration
		t.mu.Unlock()

		return d
	}

	t.alarm.Stop()
	close(t.stop)

	t.state = TimerCancelled
	t.duration = t.clock.Since(t.start)
	elapsed := t.duration
	description := t.describe()
	t.mu.Unlock()

	if t.rejectOnCancel {
		t.reject(&CancelledError{Description: description})
	} else {
		t.resolve(struct{}{})
	}

	t.hooks.emitTimerCancelled(t.id, elapsed)

	return elapsed
}

// Elapsed returns the frozen duration once the timer has settled, and the
// live time since the start otherwise.
func (t *Timer) Elapsed() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()

	if t.state != TimerPending {
		return t.duration
	}

	return t.clock.Since(t.start)
}

// Duration returns the frozen duration and true once the timer has settled.
func (t *Timer) Duration() (time.Duration, bool) {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.duration, t.state != TimerPending
}

// Requested returns the countdown length the timer was created with.
func (t *Timer) Requested() time.Duration { return t.requested }

// ID returns the timer's process-unique identifier.
func (t *Timer) ID() uint64 { return t.id }

// State returns the current lifecycle state.
func (t *Timer) State() TimerState {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.state
}

// Done returns a channel that is closed once the timer settles.
func (t *Timer) Done() <-chan struct{} { return t.future.Done() }

// Wait blocks until the timer settles or ctx is done. It returns nil when
// the timer finished or was quietly cancelled, a [CancelledError] when it
// was cancelled with [RejectOnCancel], or the context error.
func (t *Timer) Wait(ctx context.Context) error {
	_, err := t.future.Wait(ctx)

	return err
}

// Err reports how the timer settled without blocking: nil once finished or
// quietly cancelled, a [CancelledError] under [RejectOnCancel], or
// [ErrPending] while the timer runs.
func (t *Timer) Err() error {
	_, err := t.future.Result()

	return err
}

// Future exposes the timer's settlement as a [Future], for use with
// [Then] or a [Handler].
func (t *Timer) Future() *Future[struct{}] { return t.future }

// String describes the timer, for example "timer #3 (100ms): cancelled
// after 30ms".
func (t *Timer) String() string {
	t.mu.Lock()
	defer t.mu.Unlock()

	return t.describe()
}

// describe must be called with t.mu held.
func (t *Timer) describe() string {
	head := fmt.Sprintf("timer #%d (%s)", t.id, t.requested)

	if t.state == TimerPending {
		return head + ": pending"
	}

	return fmt.Sprintf("%s: %s after %s", head, t.state, t.duration)
}
