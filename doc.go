// Package lapse provides time-bounded helpers for asynchronous Go code.
//
// It converts structured amounts of time into durations, delays work, holds
// results back until a minimum time has passed, caps operations with a hard
// timeout, and offers a cancellable [Timer]. Combinators that bound a task
// share one reusable timing envelope through [Handler].
package lapse
