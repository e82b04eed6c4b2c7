package lapse

import (
	"errors"
	"strconv"
	"time"
)

// ---------------------------------------------------------------------------
// Error classification
// ---------------------------------------------------------------------------.

type (
	// TimingError identifies errors produced by lapse itself, as opposed to
	// errors returned by the wrapped task.
	//nolint:iface // exported for consumer error classification.
	TimingError interface {
		error
		// IsTiming reports whether this error originates from lapse.
		IsTiming() bool
	}

	// TimeoutError is returned when a bounded task does not settle before
	// its ceiling. It matches [ErrTimeout] with [errors.Is].
	TimeoutError struct {
		// Limit is the ceiling that elapsed.
		Limit time.Duration
	}

	// CancelledError is the rejection reason of a [Timer] created with
	// [RejectOnCancel]. It matches [ErrCancelled] with [errors.Is].
	CancelledError struct {
		// Description is the timer's own description at cancellation.
		Description string
	}

	// timingError is the concrete type backing all sentinel errors.
	timingError string
)

// Sentinel timing errors.
var (
	// ErrTimeout is matched by every [TimeoutError].
	ErrTimeout error = timingError("timeout")
	// ErrCancelled is matched by every [CancelledError].
	ErrCancelled error = timingError("timer cancelled")
	// ErrMissingTimeout is returned when a ceiling is absent or zero.
	ErrMissingTimeout error = timingError("needs at least a timeout")
	// ErrMissingDuration is returned when a delay amount is absent.
	ErrMissingDuration error = timingError("needs a duration")
	// ErrPending is returned by [Future.Result] before the future settles.
	ErrPending error = timingError("future still pending")
	// ErrUnknownEnvelope is returned when a registry has no envelope for a
	// name.
	ErrUnknownEnvelope error = timingError("unknown envelope")
)

func (e timingError) Error() string { return string(e) }

// IsTiming reports whether the error is a lapse error.
func (timingError) IsTiming() bool { return true }

// Error formats the ceiling in milliseconds, e.g. "timeout: 50ms".
func (e *TimeoutError) Error() string {
	return "timeout: " + formatMillis(e.Limit) + "ms"
}

// Is reports whether target is [ErrTimeout].
func (*TimeoutError) Is(target error) bool { return target == ErrTimeout }

// IsTiming reports true.
func (*TimeoutError) IsTiming() bool { return true }

func (e *CancelledError) Error() string { return e.Description }

// Is reports whether target is [ErrCancelled].
func (*CancelledError) Is(target error) bool { return target == ErrCancelled }

// IsTiming reports true.
func (*CancelledError) IsTiming() bool { return true }

// IsTimingError reports whether err, or any error it wraps, was produced by
// lapse rather than by a wrapped task.
func IsTimingError(err error) bool {
	var te TimingError

	return errors.As(err, &te) && te.IsTiming()
}

// formatMillis renders d as a millisecond count without trailing zeros.
func formatMillis(d time.Duration) string {
	return strconv.FormatFloat(
		float64(d)/float64(time.Millisecond),
		'f',
		-1,
		64,
	)
}
