package engine

import (
	"errors"
	"fmt"
	"sort"
	"sync"
)

// ErrUnknownEngine is returned when no engine is registered under a name.
var ErrUnknownEngine = errors.New("engine: unknown engine")

// Engine names.
const (
	NameProjectM = "projectm"
	NameScope    = "scope"
)

var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
	// Priority order for DefaultName (first registered wins).
	enginePriority = []string{NameProjectM, NameScope}
)

// Register registers an engine factory with the given name.
// This is typically called from init() functions in engine packages.
// If an engine with the same name is already registered, it will be replaced.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	factories[name] = factory
}

// Unregister removes an engine from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns the registered engine names in sorted order.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()
	return availableLocked()
}

// IsRegistered checks if an engine with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Lookup returns the factory registered under name.
func Lookup(name string) (Factory, error) {
	registryMu.RLock()
	defer registryMu.RUnlock()

	factory, ok := factories[name]
	if !ok {
		return nil, fmt.Errorf("%w: %q (available: %v)", ErrUnknownEngine, name, availableLocked())
	}
	return factory, nil
}

// DefaultName returns the preferred registered engine, or "" when none is
// registered. projectM is preferred over the built-in scope engine.
func DefaultName() string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	for _, name := range enginePriority {
		if _, ok := factories[name]; ok {
			return name
		}
	}
	if names := availableLocked(); len(names) > 0 {
		return names[0]
	}
	return ""
}

func availableLocked() []string {
	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
