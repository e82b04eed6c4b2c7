package lapse

import (
	"log/slog"
	"time"
)

// Hooks holds optional callback functions for timing lifecycle events. All
// fields are nil by default; callers set only the hooks they care about.
// A Hooks value must not be mutated once passed to [WithHooks]: emit methods
// read the function fields without synchronisation.
//
// Pattern: Observer — decouples event emission from consumers (logging,
// metrics) without the helpers knowing about observers.
type Hooks struct {
	// OnSleep fires when a delay armed by [Sleep], [After] or [SleepFunc]
	// elapses.
	OnSleep func(d time.Duration)
	// OnTimeout fires when a bounded task loses the race to its ceiling.
	OnTimeout func(limit time.Duration)
	// OnFloorHeld fires when a settled result was held back by a floor; wait
	// is how long delivery was delayed after the result became available.
	OnFloorHeld func(wait time.Duration)
	// OnTimerFired fires when a [Timer] expires naturally.
	OnTimerFired func(id uint64, elapsed time.Duration)
	// OnTimerCancelled fires when a pending [Timer] is cancelled.
	OnTimerCancelled func(id uint64, elapsed time.Duration)
}

func (h *Hooks) emitSleep(d time.Duration) {
	if h.OnSleep != nil {
		h.OnSleep(d)
	}
}

func (h *Hooks) emitTimeout(limit time.Duration) {
	if h.OnTimeout != nil {
		h.OnTimeout(limit)
	}
}

func (h *Hooks) emitFloorHeld(wait time.Duration) {
	if h.OnFloorHeld != nil {
		h.OnFloorHeld(wait)
	}
}

func (h *Hooks) emitTimerFired(id uint64, elapsed time.Duration) {
	if h.OnTimerFired != nil {
		h.OnTimerFired(id, elapsed)
	}
}

func (h *Hooks) emitTimerCancelled(id uint64, elapsed time.Duration) {
	if h.OnTimerCancelled != nil {
		h.OnTimerCancelled(id, elapsed)
	}
}

// LogHooks returns hooks that record every event on logger. Timeouts are
// logged at warn level, everything else at debug.
func LogHooks(logger *slog.Logger) *Hooks {
	return &Hooks{
		OnSleep: func(d time.Duration) {
			logger.Debug("sleep elapsed", slog.Duration("duration", d))
		},
		OnTimeout: func(limit time.Duration) {
			logger.Warn("task timed out", slog.Duration("limit", limit))
		},
		OnFloorHeld: func(wait time.Duration) {
			logger.Debug("result held by floor", slog.Duration("wait", wait))
		},
		OnTimerFired: func(id uint64, elapsed time.Duration) {
			logger.Debug(
				"timer finished",
				slog.Uint64("timer", id),
				slog.Duration("elapsed", elapsed),
			)
		},
		OnTimerCancelled: func(id uint64, elapsed time.Duration) {
			logger.Debug(
				"timer cancelled",
				slog.Uint64("timer", id),
				slog.Duration("elapsed", elapsed),
			)
		},
	}
}
