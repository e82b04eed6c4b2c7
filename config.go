package lapse

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	json "github.com/goccy/go-json"
	"gopkg.in/yaml.v3"
)

type (
	// configFile is the top-level JSON structure.
	configFile struct {
		Envelopes map[string]EnvelopeConfig `json:"envelopes"`
	}

	// EnvelopeConfig holds the raw configuration of one timing envelope.
	// Embed it in your own config struct, then call [BuildEnvelope].
	//
	// Each amount may be a number of milliseconds (1500), a duration string
	// parsed via time.ParseDuration ("1.5s"), or a unit object
	// ({"sec": 1, "ms": 500}). See [ParseAmount].
	EnvelopeConfig struct {
		// Min is the floor. Optional.
		Min json.RawMessage `json:"min,omitempty"`
		// Max is the ceiling. Required; a plain zero is rejected.
		Max json.RawMessage `json:"max"`
	}

	// Envelope is a decoded timing envelope.
	Envelope struct {
		// Min is the floor; zero means none.
		Min time.Duration
		// Max is the ceiling.
		Max time.Duration
	}
)

// LoadConfig reads a JSON configuration file and stores its envelopes in a
// new [Registry]. Files ending in .yaml or .yml are read as YAML with the
// same structure. Every envelope is validated eagerly so errors surface at
// load time. Handlers are built later by [GetHandler], which supplies the
// result type.
func LoadConfig(path string) (*Registry, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("lapse: read config: %w", err)
	}

	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if data, err = yamlToJSON(data); err != nil {
			return nil, fmt.Errorf("lapse: parse config: %w", err)
		}
	}

	var cfg configFile
	if err = json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("lapse: parse config: %w", err)
	}

	reg := NewRegistry()

	for name, ec := range cfg.Envelopes {
		env, buildErr := BuildEnvelope(&ec)
		if buildErr != nil {
			return nil, fmt.Errorf("lapse: envelope %q: %w", name, buildErr)
		}

		reg.Register(name, env)
	}

	return reg, nil
}

// yamlToJSON re-encodes a YAML document as JSON so amounts keep a single
// decoding path.
func yamlToJSON(data []byte) ([]byte, error) {
	var doc any
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("yaml: %w", err)
	}

	out, err := json.Marshal(doc)
	if err != nil {
		return nil, fmt.Errorf("yaml to json: %w", err)
	}

	return out, nil
}

// BuildEnvelope decodes and validates an [EnvelopeConfig].
func BuildEnvelope(ec *EnvelopeConfig) (Envelope, error) {
	maxAmount, err := ParseAmount(ec.Max)
	if err != nil {
		return Envelope{}, fmt.Errorf("max: %w", err)
	}

	ceiling, ok := ceilingOf(maxAmount)
	if !ok {
		return Envelope{}, fmt.Errorf("max: %w", ErrMissingTimeout)
	}

	minAmount, err := ParseAmount(ec.Min)
	if err != nil {
		return Envelope{}, fmt.Errorf("min: %w", err)
	}

	floor, _ := durationOf(minAmount)
	if floor < 0 {
		floor = 0
	}

	return Envelope{Min: floor, Max: ceiling}, nil
}

// MarshalJSON encodes the envelope with duration strings, in the same shape
// [LoadConfig] reads.
func (e Envelope) MarshalJSON() ([]byte, error) {
	wire := struct {
		Min string `json:"min,omitempty"`
		Max string `json:"max"`
	}{
		Max: e.Max.String(),
	}

	if e.Min > 0 {
		wire.Min = e.Min.String()
	}

	return json.Marshal(wire) //nolint:wrapcheck // plain struct encoding
}

// GetHandler builds a typed [Handler] from the envelope registered under
// name. Options (clock, hooks) apply to the handler as usual. The envelope
// is used as registered: a zero Max, as decoded from a unit object summing
// to zero, times out at once. An unknown name returns an error matching
// [ErrUnknownEnvelope].
func GetHandler[T any](reg *Registry, name string, opts ...Option) (*Handler[T], error) {
	env, ok := reg.Lookup(name)
	if !ok {
		return nil, fmt.Errorf("lapse: %w: %q", ErrUnknownEnvelope, name)
	}

	return &Handler[T]{
		settings: resolve(opts),
		min:      max(env.Min, 0),
		max:      env.Max,
	}, nil
}
