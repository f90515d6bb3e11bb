// Package registry implements spec.md §4.9: a closed, named map from
// string to constructor for each of the seven pluggable capability sets
// — the only place concrete variants are enumerated. Grounded on
// original_source's *Factory.cpp name->constructor maps (including the
// "fall back to default, else error" behavior TrackerFactory::newTracker
// shows) and on
// _examples/e7canasta-orion-care-sensor/References/orion-prototipe's
// internal/core/orion.go's initializeWorkers, which wires concrete
// workers at construction time rather than compile time.
package registry

import "fmt"

// Registry is a generic name -> constructor map for one capability set.
type Registry[T any] struct {
	kind         string
	constructors map[string]func() (T, error)
}

// New returns an empty Registry identified by kind (used only in error
// messages, e.g. "capture" or "tracker").
func New[T any](kind string) *Registry[T] {
	return &Registry[T]{kind: kind, constructors: make(map[string]func() (T, error))}
}

// Register adds or replaces the constructor for name.
func (r *Registry[T]) Register(name string, constructor func() (T, error)) {
	r.constructors[name] = constructor
}

// Names returns the registered names, for diagnostics.
func (r *Registry[T]) Names() []string {
	names := make([]string, 0, len(r.constructors))
	for name := range r.constructors {
		names = append(names, name)
	}
	return names
}

// New constructs the component registered under name. Unknown names
// yield an error, per spec.md §4.9.
func (r *Registry[T]) New(name string) (T, error) {
	ctor, ok := r.constructors[name]
	if !ok {
		var zero T
		return zero, fmt.Errorf("registry: unknown %s %q", r.kind, name)
	}
	return ctor()
}

// NewOrDefault behaves like New but falls back to defaultName (and logs
// nothing itself — callers own logging) when name is unknown, matching
// TrackerFactory::newTracker's fallback (spec.md §4.9 restricts this
// behavior to the tracker registry; other registries should call New).
func (r *Registry[T]) NewOrDefault(name, defaultName string) (T, error, bool) {
	if _, ok := r.constructors[name]; !ok {
		v, err := r.New(defaultName)
		return v, err, true
	}
	v, err := r.New(name)
	return v, err, false
}
