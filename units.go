package lapse

import (
	"bytes"
	"fmt"
	"math"
	"strings"
	"time"

	json "github.com/goccy/go-json"
)

type (
	// Amount is a length of time that can be turned into a [time.Duration].
	// Every helper that takes a delay accepts an Amount, so callers may pass
	// a plain millisecond count, a structured [Units] value, or a [Span].
	Amount interface {
		Duration() time.Duration
	}

	// Millis is a plain millisecond count. Fractions are kept down to the
	// nanosecond.
	Millis float64

	// Span wraps a native [time.Duration] as an [Amount].
	Span time.Duration

	// Units is a structured amount of time: unit name to quantity, for
	// example Units{"hour": 2, "min": 15, "sec": 30}. Keys are matched as
	// prefixes of the unit vocabulary (see [TimeIn]); quantities may be
	// fractional or negative.
	Units map[string]float64

	// unit is one entry of the unit vocabulary.
	unit struct {
		name   string
		millis float64
	}
)

// vocabulary lists canonical unit names in match order. A key selects the
// first entry it is a prefix of, so "m" means milliseconds and "min" means
// minutes.
//
//nolint:gochecknoglobals // read-only lookup table
var vocabulary = [...]unit{
	{name: "ms", millis: 1},
	{name: "milliseconds", millis: 1},
	{name: "seconds", millis: 1_000},
	{name: "minutes", millis: 60_000},
	{name: "hours", millis: 3_600_000},
	{name: "hrs", millis: 3_600_000},
	{name: "days", millis: 86_400_000},
	{name: "weeks", millis: 604_800_000},
	{name: "wks", millis: 604_800_000},
}

// TimeIn returns the number of milliseconds in u. Keys that are not a prefix
// of any known unit contribute nothing; multiple keys are summed.
func TimeIn(u Units) float64 {
	var total float64

	for key, quantity := range u {
		if factor, ok := unitFactor(key); ok {
			total += quantity * factor
		}
	}

	return total
}

// unitFactor returns the millisecond factor of the first unit named by key.
func unitFactor(key string) (float64, bool) {
	for _, u := range vocabulary {
		if strings.HasPrefix(u.name, key) {
			return u.millis, true
		}
	}

	return 0, false
}

// Duration converts u via [TimeIn].
func (u Units) Duration() time.Duration {
	return Millis(TimeIn(u)).Duration()
}

// Duration converts m to a [time.Duration]. Counts beyond the range of
// time.Duration saturate at its bounds; NaN converts to zero.
func (m Millis) Duration() time.Duration {
	ns := float64(m) * float64(time.Millisecond)

	switch {
	case math.IsNaN(ns):
		return 0
	case ns >= math.MaxInt64:
		return math.MaxInt64
	case ns <= math.MinInt64:
		return math.MinInt64
	}

	return time.Duration(ns)
}

// Duration returns s unchanged.
func (s Span) Duration() time.Duration { return time.Duration(s) }

// durationOf converts a, reporting false when a is absent.
func durationOf(a Amount) (time.Duration, bool) {
	if a == nil {
		return 0, false
	}

	return a.Duration(), true
}

// ceilingOf converts a timeout amount, reporting false when it is absent or
// a zero [Millis] or [Span]. A [Units] mapping counts as given even when its
// keys add up to zero.
func ceilingOf(a Amount) (time.Duration, bool) {
	d, ok := durationOf(a)
	if !ok {
		return 0, false
	}

	if _, structured := a.(Units); structured {
		return d, true
	}

	return d, d != 0
}

// ParseAmount decodes a JSON amount: a number is a millisecond count, a
// string is parsed with [time.ParseDuration], and an object is a [Units]
// mapping. A JSON null or empty input yields a nil Amount.
//
//nolint:ireturn // returns the Amount implementation matching the input
func ParseAmount(raw []byte) (Amount, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return nil, nil //nolint:nilnil // absent amount is not an error
	}

	switch raw[0] {
	case '"':
		var s string
		if err := json.Unmarshal(raw, &s); err != nil {
			return nil, fmt.Errorf("lapse: parse amount: %w", err)
		}

		d, err := time.ParseDuration(s)
		if err != nil {
			return nil, fmt.Errorf("lapse: parse amount: %w", err)
		}

		return Span(d), nil

	case '{':
		var u Units
		if err := json.Unmarshal(raw, &u); err != nil {
			return nil, fmt.Errorf("lapse: parse amount: %w", err)
		}

		return u, nil

	default:
		var ms float64
		if err := json.Unmarshal(raw, &ms); err != nil {
			return nil, fmt.Errorf("lapse: parse amount: %w", err)
		}

		return Millis(ms), nil
	}
}
