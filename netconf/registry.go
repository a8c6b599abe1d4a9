// Package netconf builds model trees from network description files.
package netconf

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/sarchlab/pdevs/sim/modeling"
	"github.com/sarchlab/pdevs/sim/naming"
)

// ErrUnknownKind is returned when a network refers to an atomic model kind
// that is not registered.
var ErrUnknownKind = errors.New("unknown model kind")

// A Factory creates an atomic model from its name and its parameters.
type Factory func(name string, params Params) (modeling.Atomic, error)

// A Registry maps model kinds to factories.
type Registry struct {
	lock      sync.RWMutex
	factories map[string]Factory
}

// NewRegistry creates an empty Registry.
func NewRegistry() *Registry {
	return &Registry{factories: make(map[string]Factory)}
}

// Register adds a factory. It panics if the kind is already registered.
func (r *Registry) Register(kind string, f Factory) {
	r.lock.Lock()
	defer r.lock.Unlock()

	if kind == "" {
		panic("model kind must not be empty")
	}

	if _, found := r.factories[kind]; found {
		panic("model kind " + kind + " already registered")
	}

	r.factories[kind] = f
}

// Kinds returns the registered kinds, sorted.
func (r *Registry) Kinds() []string {
	r.lock.RLock()
	defer r.lock.RUnlock()

	kinds := make([]string, 0, len(r.factories))
	for k := range r.factories {
		kinds = append(kinds, k)
	}

	sort.Strings(kinds)

	return kinds
}

// Create builds an atomic model of the given kind.
func (r *Registry) Create(
	kind, name string,
	params Params,
) (modeling.Atomic, error) {
	if err := naming.Validate(name); err != nil {
		return nil, err
	}

	r.lock.RLock()
	f, found := r.factories[kind]
	r.lock.RUnlock()

	if !found {
		return nil, fmt.Errorf("%w %q for model %s", ErrUnknownKind, kind, name)
	}

	m, err := f(name, params)
	if err != nil {
		return nil, fmt.Errorf("creating model %s of kind %s: %w",
			name, kind, err)
	}

	return m, nil
}
