package lapse

import "time"

// Pattern: Factory Function — each preset is a ready-made envelope for a
// common kind of call, avoiding boilerplate configuration.

const (
	interactiveFloor   = 300 * time.Millisecond
	interactiveCeiling = 10 * time.Second
	probeCeiling       = time.Second
	backgroundCeiling  = 30 * time.Second
)

// Interactive returns a handler for user-facing calls: outcomes are held for
// at least 300ms so a progress indicator does not flicker, and calls fail
// after 10s.
func Interactive[T any](opts ...Option) *Handler[T] {
	return mustHandler(Window[T](Span(interactiveFloor), Span(interactiveCeiling), opts...))
}

// Probe returns a handler for health checks and other calls that must answer
// within 1s.
func Probe[T any](opts ...Option) *Handler[T] {
	return mustHandler(Within[T](Span(probeCeiling), opts...))
}

// Background returns a handler for batch or housekeeping work, capped at 30s.
func Background[T any](opts ...Option) *Handler[T] {
	return mustHandler(Within[T](Span(backgroundCeiling), opts...))
}

// mustHandler unwraps constructors called with non-zero constant ceilings.
func mustHandler[T any](h *Handler[T], err error) *Handler[T] {
	if err != nil {
		panic("lapse: preset: " + err.Error())
	}

	return h
}
