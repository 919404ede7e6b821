package cochlea

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// Factory builds a new module instance.
type Factory func() Module

// ErrUnknownModule is returned when module type is not registered.
var ErrUnknownModule = errors.New("unknown module type")

var errDuplicateModule = errors.New("duplicate module type")

// Registry maps module type names to their factories. Registry is safe
// for concurrent use.
type Registry struct {
	mu        sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory for the given module type.
func (r *Registry) Register(moduleType string, factory Factory) error {
	if moduleType == "" {
		return errors.New("empty module type")
	}
	if factory == nil {
		return errors.New("nil factory")
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, exists := r.factories[moduleType]; exists {
		return fmt.Errorf("%w: %s", errDuplicateModule, moduleType)
	}
	r.factories[moduleType] = factory
	return nil
}

// MustRegister is like Register but panics on error.
func (r *Registry) MustRegister(moduleType string, factory Factory) {
	if err := r.Register(moduleType, factory); err != nil {
		panic("cochlea registry: " + err.Error())
	}
}

// Lookup returns the factory for the given module type, or nil.
func (r *Registry) Lookup(moduleType string) Factory {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return r.factories[moduleType]
}

// New returns a new module of the given type.
func (r *Registry) New(moduleType string) (Module, error) {
	factory := r.Lookup(moduleType)
	if factory == nil {
		return nil, fmt.Errorf("%w: %s", ErrUnknownModule, moduleType)
	}
	return factory(), nil
}

// Names returns sorted registered module types.
func (r *Registry) Names() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.factories))
	for name := range r.factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
