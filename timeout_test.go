package lapse

import (
	"context"
	"errors"
	"math"
	"strings"
	"sync/atomic"
	"testing"
	"time"
)

type outcome[T any] struct {
	val T
	err error
}

// awaitAsync runs h.Await on its own goroutine and returns the result channel.
func awaitAsync[T any](h *Handler[T], f *Future[T]) <-chan outcome[T] {
	ch := make(chan outcome[T], 1)

	go func() {
		v, err := h.Await(context.Background(), f)
		ch <- outcome[T]{val: v, err: err}
	}()

	return ch
}

func receive[T any](t *testing.T, ch <-chan outcome[T]) outcome[T] {
	t.Helper()

	select {
	case o := <-ch:
		return o
	case <-time.After(time.Second):
		t.Fatal("no result within 1s")

		return outcome[T]{}
	}
}

func assertPending[T any](t *testing.T, ch <-chan outcome[T]) {
	t.Helper()

	select {
	case o := <-ch:
		t.Fatalf("result delivered early: %v, %v", o.val, o.err)
	case <-time.After(20 * time.Millisecond):
	}
}

// ---------------------------------------------------------------------------
// Tests: Missing ceiling is an argument error, nothing starts
// ---------------------------------------------------------------------------

func TestWithinMissingTimeout(t *testing.T) {
	for _, max := range []Amount{nil, Millis(0), Span(0)} {
		h, err := Within[int](max)
		if !errors.Is(err, ErrMissingTimeout) {
			t.Fatalf("Within(%v) error = %v, want ErrMissingTimeout", max, err)
		}
		if h != nil {
			t.Fatalf("Within(%v) handler = %v, want nil", max, h)
		}
	}
}

func TestWithinZeroUnitsIsImmediateCeiling(t *testing.T) {
	h, err := Within[int](Units{"foo": 1})
	if err != nil {
		t.Fatalf("Within(Units{foo: 1}) error = %v, want nil", err)
	}
	if h.Max() != 0 {
		t.Fatalf("Max() = %v, want 0", h.Max())
	}

	_, err = h.Try(context.Background(), func(ctx context.Context) (int, error) {
		<-ctx.Done()

		return 0, ctx.Err()
	})

	var te *TimeoutError
	if !errors.As(err, &te) || te.Limit != 0 {
		t.Fatalf("Try() error = %v, want *TimeoutError with zero limit", err)
	}
}

func TestDoWithinMissingTimeoutDoesNotStartTask(t *testing.T) {
	var started atomic.Bool

	_, err := DoWithin[int](context.Background(), nil, func(context.Context) (int, error) {
		started.Store(true)

		return 1, nil
	})

	if !errors.Is(err, ErrMissingTimeout) {
		t.Fatalf("DoWithin() error = %v, want ErrMissingTimeout", err)
	}

	time.Sleep(5 * time.Millisecond)

	if started.Load() {
		t.Fatal("task started despite missing timeout")
	}
}

func TestWindowNormalisesFloor(t *testing.T) {
	h, err := Window[int](Millis(-5), Units{"sec": 1})
	if err != nil {
		t.Fatalf("Window() error = %v, want nil", err)
	}
	if h.Min() != 0 {
		t.Fatalf("Min() = %v, want 0 for negative floor", h.Min())
	}
	if h.Max() != time.Second {
		t.Fatalf("Max() = %v, want 1s", h.Max())
	}

	h, err = Window[int](nil, Millis(50))
	if err != nil {
		t.Fatalf("Window(nil, 50) error = %v, want nil", err)
	}
	if h.Min() != 0 {
		t.Fatalf("Min() = %v, want 0 for nil floor", h.Min())
	}
}

// ---------------------------------------------------------------------------
// Tests: Task settles before the ceiling
// ---------------------------------------------------------------------------

func TestHandlerAwaitTaskWinsBeforeCeiling(t *testing.T) {
	clk := newManualClock()

	h, err := Within[string](Millis(50), WithClock(clk))
	if err != nil {
		t.Fatalf("Within() error = %v", err)
	}

	f, resolveFn, _ := NewPromise[string]()
	ch := awaitAsync(h, f)
	clk.waitCreated(t, 1)

	clk.Advance(10 * time.Millisecond)
	resolveFn("fast")

	o := receive(t, ch)
	if o.err != nil || o.val != "fast" {
		t.Fatalf("Await() = %q, %v, want %q, nil", o.val, o.err, "fast")
	}

	// The ceiling timer is stopped once the task wins.
	deadline := time.Now().Add(time.Second)
	for clk.armed() != 0 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}

	if n := clk.armed(); n != 0 {
		t.Fatalf("armed timers = %d, want 0 after task won", n)
	}
}

func TestHandlerAwaitTaskErrorPropagates(t *testing.T) {
	clk := newManualClock()
	sentinel := errors.New("task failed")

	h, _ := Within[int](Millis(50), WithClock(clk))
	ch := awaitAsync(h, Failed[int](sentinel))

	o := receive(t, ch)
	if !errors.Is(o.err, sentinel) {
		t.Fatalf("Await() error = %v, want %v", o.err, sentinel)
	}
	if IsTimingError(o.err) {
		t.Fatal("task error classified as timing error")
	}
}

// ---------------------------------------------------------------------------
// Tests: Ceiling elapses first
// ---------------------------------------------------------------------------

func TestHandlerAwaitTimesOut(t *testing.T) {
	var timeouts atomic.Int32

	clk := newManualClock()
	hooks := &Hooks{OnTimeout: func(time.Duration) { timeouts.Add(1) }}

	h, _ := Within[int](Millis(50), WithClock(clk), WithHooks(hooks))
	f, _, _ := NewPromise[int]()

	ch := awaitAsync(h, f)
	clk.waitCreated(t, 1)
	clk.Advance(50 * time.Millisecond)

	o := receive(t, ch)
	if !errors.Is(o.err, ErrTimeout) {
		t.Fatalf("Await() error = %v, want ErrTimeout", o.err)
	}
	if !strings.Contains(o.err.Error(), "50") {
		t.Fatalf("error = %q, want to mention 50", o.err.Error())
	}

	var te *TimeoutError
	if !errors.As(o.err, &te) || te.Limit != 50*time.Millisecond {
		t.Fatalf("error = %#v, want *TimeoutError{Limit: 50ms}", o.err)
	}
	if n := timeouts.Load(); n != 1 {
		t.Fatalf("OnTimeout called %d times, want 1", n)
	}
}

func TestHandlerTryCancelsTaskOnTimeout(t *testing.T) {
	clk := newManualClock()
	h, _ := Within[string](Millis(30), WithClock(clk))

	taskCtxErr := make(chan error, 1)
	ch := make(chan outcome[string], 1)

	go func() {
		v, err := h.Try(context.Background(), func(ctx context.Context) (string, error) {
			<-ctx.Done()
			taskCtxErr <- ctx.Err()

			return "late", ctx.Err()
		})
		ch <- outcome[string]{val: v, err: err}
	}()

	clk.waitCreated(t, 1)
	clk.Advance(30 * time.Millisecond)

	o := receive(t, ch)
	if !errors.Is(o.err, ErrTimeout) {
		t.Fatalf("Try() error = %v, want ErrTimeout", o.err)
	}
	if o.val != "" {
		t.Fatalf("Try() = %q, want zero value", o.val)
	}

	select {
	case err := <-taskCtxErr:
		if !errors.Is(err, context.Canceled) {
			t.Fatalf("task ctx error = %v, want context.Canceled", err)
		}
	case <-time.After(time.Second):
		t.Fatal("task context was not cancelled after timeout")
	}
}

// ---------------------------------------------------------------------------
// Tests: Floor holds a fast task, ceiling still applies
// ---------------------------------------------------------------------------

func TestWindowFloorHoldsFastTask(t *testing.T) {
	var held atomic.Int64

	clk := newManualClock()
	hooks := &Hooks{OnFloorHeld: func(wait time.Duration) { held.Store(int64(wait)) }}

	h, _ := Window[int](Millis(20), Millis(50), WithClock(clk), WithHooks(hooks))
	f, resolveFn, _ := NewPromise[int]()

	ch := awaitAsync(h, f)
	clk.waitCreated(t, 2)

	clk.Advance(5 * time.Millisecond)
	resolveFn(7)
	assertPending(t, ch)

	clk.Advance(15 * time.Millisecond)

	o := receive(t, ch)
	if o.err != nil || o.val != 7 {
		t.Fatalf("Await() = %d, %v, want 7, nil", o.val, o.err)
	}
	if got := time.Duration(held.Load()); got != 15*time.Millisecond {
		t.Fatalf("OnFloorHeld wait = %v, want 15ms", got)
	}
}

func TestWindowTimeoutDeliveredAfterFloor(t *testing.T) {
	clk := newManualClock()
	h, _ := Window[int](Millis(80), Millis(50), WithClock(clk))
	f, _, _ := NewPromise[int]()

	ch := awaitAsync(h, f)
	clk.waitCreated(t, 2)

	clk.Advance(50 * time.Millisecond)
	assertPending(t, ch)

	clk.Advance(30 * time.Millisecond)

	o := receive(t, ch)
	if !errors.Is(o.err, ErrTimeout) {
		t.Fatalf("Await() error = %v, want ErrTimeout", o.err)
	}
}

func TestWindowSlowTaskNotHeldFurther(t *testing.T) {
	clk := newManualClock()
	h, _ := Window[int](Millis(20), Millis(50), WithClock(clk))
	f, resolveFn, _ := NewPromise[int]()

	ch := awaitAsync(h, f)
	clk.waitCreated(t, 2)

	clk.Advance(30 * time.Millisecond)
	resolveFn(3)

	o := receive(t, ch)
	if o.err != nil || o.val != 3 {
		t.Fatalf("Await() = %d, %v, want 3, nil", o.val, o.err)
	}
}

// ---------------------------------------------------------------------------
// Tests: Parent context
// ---------------------------------------------------------------------------

func TestHandlerParentContextAlreadyCancelled(t *testing.T) {
	var started atomic.Bool

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	h, _ := Within[int](Units{"sec": 1})

	_, err := h.Try(ctx, func(context.Context) (int, error) {
		started.Store(true)

		return 1, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Try() error = %v, want context.Canceled", err)
	}
	if started.Load() {
		t.Fatal("task started with cancelled parent context")
	}
}

func TestHandlerParentContextCancelledDuringWait(t *testing.T) {
	var timeouts atomic.Int32

	hooks := &Hooks{OnTimeout: func(time.Duration) { timeouts.Add(1) }}
	ctx, cancel := context.WithCancel(context.Background())

	h, _ := Window[int](Millis(10), Units{"sec": 5}, WithHooks(hooks))

	_, err := h.Try(ctx, func(ctx context.Context) (int, error) {
		cancel()
		<-ctx.Done()

		return 0, ctx.Err()
	})
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("Try() error = %v, want context.Canceled", err)
	}
	if timeouts.Load() != 0 {
		t.Fatal("OnTimeout fired on parent cancellation")
	}
}

// ---------------------------------------------------------------------------
// Tests: Real clock, direct call shapes
// ---------------------------------------------------------------------------

func TestDoWithinRealClock(t *testing.T) {
	start := time.Now()

	v, err := DoWithin(context.Background(), Units{"sec": 1}, func(context.Context) (string, error) {
		return "ok", nil
	})

	if err != nil || v != "ok" {
		t.Fatalf("DoWithin() = %q, %v, want %q, nil", v, err, "ok")
	}
	if elapsed := time.Since(start); elapsed > 500*time.Millisecond {
		t.Fatalf("DoWithin() took %v, want well under the 1s ceiling", elapsed)
	}

	_, err = DoWithin(context.Background(), Millis(50), func(ctx context.Context) (string, error) {
		<-ctx.Done()

		return "", ctx.Err()
	})
	if !errors.Is(err, ErrTimeout) || !strings.Contains(err.Error(), "50") {
		t.Fatalf("DoWithin() error = %v, want timeout mentioning 50", err)
	}
}

func TestDoWithinHugeCeilingDoesNotTimeOut(t *testing.T) {
	for _, max := range []Amount{Units{"weeks": 20000}, Millis(math.Inf(1))} {
		v, err := DoWithin(context.Background(), max, func(context.Context) (string, error) {
			time.Sleep(20 * time.Millisecond)

			return "ok", nil
		})

		if err != nil || v != "ok" {
			t.Fatalf("DoWithin(%v) = %q, %v, want %q, nil", max, v, err, "ok")
		}
	}
}

func TestDoWindowRealClock(t *testing.T) {
	start := time.Now()

	v, err := DoWindow(context.Background(), Millis(20), Millis(500), func(context.Context) (int, error) {
		return 42, nil
	})

	if err != nil || v != 42 {
		t.Fatalf("DoWindow() = %d, %v, want 42, nil", v, err)
	}
	if elapsed := time.Since(start); elapsed < 20*time.Millisecond {
		t.Fatalf("DoWindow() returned after %v, want >= 20ms", elapsed)
	}
}

func TestHandlerReusedAcrossAttempts(t *testing.T) {
	h, err := Within[int](Millis(200))
	if err != nil {
		t.Fatalf("Within() error = %v", err)
	}

	for i := range 3 {
		got, tryErr := h.Try(context.Background(), func(context.Context) (int, error) {
			return i, nil
		})
		if tryErr != nil || got != i {
			t.Fatalf("attempt %d: Try() = %d, %v, want %d, nil", i, got, tryErr, i)
		}
	}

	got, err := h.Await(context.Background(), Resolved(9))
	if err != nil || got != 9 {
		t.Fatalf("Await() = %d, %v, want 9, nil", got, err)
	}
}

func TestHandlerMiddleware(t *testing.T) {
	h, _ := Within[string](Millis(30))

	wrapped := Chain(h.Middleware())(func(ctx context.Context) (string, error) {
		<-ctx.Done()

		return "", ctx.Err()
	})

	if _, err := wrapped(context.Background()); !errors.Is(err, ErrTimeout) {
		t.Fatalf("wrapped() error = %v, want ErrTimeout", err)
	}
}

// ---------------------------------------------------------------------------
// Benchmark
// ---------------------------------------------------------------------------

func BenchmarkHandlerTry(b *testing.B) {
	h, _ := Within[string](Units{"sec": 1})
	ctx := context.Background()

	for b.Loop() {
		_, _ = h.Try(ctx, func(context.Context) (string, error) {
			return "ok", nil
		})
	}
}
