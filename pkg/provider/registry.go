package provider

import (
	"sync"
	"time"
)

// Registry is the authoritative, process-wide store of provider descriptors.
// It is read-mostly: descriptors are registered once at startup and mutated
// only by health stamps and benchmark runs. Safe for concurrent use.
type Registry struct {
	mu          sync.RWMutex
	descriptors map[string]Descriptor
	order       []string
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{
		descriptors: make(map[string]Descriptor),
	}
}

// Register adds or replaces a descriptor. Registration order is preserved
// for List.
func (r *Registry) Register(d Descriptor) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, exists := r.descriptors[d.Name]; !exists {
		r.order = append(r.order, d.Name)
	}
	r.descriptors[d.Name] = d
}

// Describe returns the descriptor for name, if registered.
func (r *Registry) Describe(name string) (Descriptor, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	d, ok := r.descriptors[name]
	return d, ok
}

// RecordHealth stamps the named provider with the outcome of its most
// recent contact.
func (r *Registry) RecordHealth(name string, ok bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	d, exists := r.descriptors[name]
	if !exists {
		return
	}
	d.Health = Health{CheckedAt: time.Now(), OK: ok}
	r.descriptors[name] = d
}

// List returns all descriptors in registration order.
func (r *Registry) List() []Descriptor {
	r.mu.RLock()
	defer r.mu.RUnlock()

	out := make([]Descriptor, 0, len(r.order))
	for _, name := range r.order {
		out = append(out, r.descriptors[name])
	}
	return out
}
