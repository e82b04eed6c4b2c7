package lapse

// Pattern: Functional Options — every helper accepts the same option type so
// a clock and hooks can be threaded through without widening signatures.

type (
	// Option configures a helper call, a [Handler], or a [Timer].
	Option func(*settings)

	// settings holds the resolved configuration of a single call.
	settings struct {
		clock          Clock
		hooks          *Hooks
		rejectOnCancel bool
	}
)

// WithClock sets the clock used to arm timers and measure elapsed time.
func WithClock(c Clock) Option {
	return func(s *settings) {
		s.clock = c
	}
}

// WithHooks sets the lifecycle hooks notified by the helper. The hooks must
// not be mutated after being passed in.
func WithHooks(h *Hooks) Option {
	return func(s *settings) {
		s.hooks = h
	}
}

// RejectOnCancel makes a [Timer] reject with a [CancelledError] when it is
// cancelled, instead of resolving quietly. Other helpers ignore it.
func RejectOnCancel() Option {
	return func(s *settings) {
		s.rejectOnCancel = true
	}
}

// resolve applies opts over the defaults: [RealClock] and empty hooks.
func resolve(opts []Option) settings {
	var s settings

	for _, opt := range opts {
		opt(&s)
	}

	if s.clock == nil {
		s.clock = RealClock{}
	}

	if s.hooks == nil {
		s.hooks = &Hooks{}
	}

	return s
}
