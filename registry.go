package lapse

import (
	"sort"
	"sync"
)

// Registry holds named timing envelopes, typically loaded by [LoadConfig].
// It is safe for concurrent use.
type Registry struct {
	envelopes map[string]Envelope
	mu        sync.Mutex
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{envelopes: make(map[string]Envelope)}
}

// Register stores env under name, replacing any previous envelope.
func (r *Registry) Register(name string, env Envelope) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.envelopes[name] = env
}

// Lookup returns the envelope registered under name.
func (r *Registry) Lookup(name string) (Envelope, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	env, ok := r.envelopes[name]

	return env, ok
}

// Names returns the registered envelope names in sorted order.
func (r *Registry) Names() []string {
	r.mu.Lock()
	names := make([]string, 0, len(r.envelopes))

	for name := range r.envelopes {
		names = append(names, name)
	}
	r.mu.Unlock()

	sort.Strings(names)

	return names
}

// Snapshot returns a copy of all registered envelopes.
func (r *Registry) Snapshot() map[string]Envelope {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := make(map[string]Envelope, len(r.envelopes))
	for name, env := range r.envelopes {
		out[name] = env
	}

	return out
}
