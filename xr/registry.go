// Copyright 2026 The gogpu Authors
// SPDX-License-Identifier: MIT

package xr

import (
	"cmp"
	"errors"
	"fmt"
	"slices"
	"sync"
)

// Registry errors.
var (
	ErrNoRuntimeAvailable = errors.New("xr: no runtime available")
	ErrBackendNotFound    = errors.New("xr: runtime backend not registered")
	ErrBackendUnavailable = errors.New("xr: runtime backend unavailable")
)

// RuntimeFactory connects to a runtime backend.
type RuntimeFactory func() (Runtime, error)

type backend struct {
	name      string
	priority  int
	connect   RuntimeFactory
	available func() bool
}

// Registry maps backend names to runtime factories. Hosts either name the
// backend they want or take the highest-priority one that connects:
//
//	xr.Register("sim", 10, c.Factory(), nil)
//	rt, err := xr.Connect()
type Registry struct {
	mu       sync.Mutex
	backends map[string]backend
}

var defaultRegistry = NewRegistry()

// NewRegistry creates an empty registry. Most code uses the package-level
// Register and Connect.
func NewRegistry() *Registry {
	return &Registry{backends: make(map[string]backend)}
}

// Register adds a backend to the default registry. A nil available means
// always available.
func Register(name string, priority int, factory RuntimeFactory, available func() bool) {
	defaultRegistry.Register(name, priority, factory, available)
}

// Backends returns the default registry's available backends, highest
// priority first.
func Backends() []string { return defaultRegistry.Available() }

// Connect connects through the default registry.
func Connect() (Runtime, error) { return defaultRegistry.Connect() }

// ConnectByName connects to a named backend of the default registry.
func ConnectByName(name string) (Runtime, error) { return defaultRegistry.ConnectByName(name) }

// Register adds or replaces a backend.
func (r *Registry) Register(name string, priority int, factory RuntimeFactory, available func() bool) {
	if available == nil {
		available = func() bool { return true }
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.backends[name] = backend{name: name, priority: priority, connect: factory, available: available}
}

// Unregister removes a backend.
func (r *Registry) Unregister(name string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.backends, name)
}

// Available returns the backends that report themselves available,
// highest priority first and by name within a priority.
func (r *Registry) Available() []string {
	r.mu.Lock()
	list := make([]backend, 0, len(r.backends))
	for _, b := range r.backends {
		list = append(list, b)
	}
	r.mu.Unlock()

	list = slices.DeleteFunc(list, func(b backend) bool { return !b.available() })
	slices.SortFunc(list, func(a, b backend) int {
		if c := cmp.Compare(b.priority, a.priority); c != 0 {
			return c
		}
		return cmp.Compare(a.name, b.name)
	})
	names := make([]string, len(list))
	for i, b := range list {
		names[i] = b.name
	}
	return names
}

// Connect tries the available backends in priority order and returns the
// first runtime that connects. When none does, the error joins
// ErrNoRuntimeAvailable with every backend's failure.
func (r *Registry) Connect() (Runtime, error) {
	errs := []error{ErrNoRuntimeAvailable}
	for _, name := range r.Available() {
		rt, err := r.ConnectByName(name)
		if err == nil {
			return rt, nil
		}
		errs = append(errs, err)
	}
	return nil, errors.Join(errs...)
}

// ConnectByName connects to one backend.
func (r *Registry) ConnectByName(name string) (Runtime, error) {
	r.mu.Lock()
	b, ok := r.backends[name]
	r.mu.Unlock()

	switch {
	case !ok:
		return nil, fmt.Errorf("%w: %q", ErrBackendNotFound, name)
	case !b.available():
		return nil, fmt.Errorf("%w: %q", ErrBackendUnavailable, name)
	}
	rt, err := b.connect()
	if err != nil {
		return nil, fmt.Errorf("xr: connect %q: %w", name, err)
	}
	return rt, nil
}
