package trainlog

import (
	"fmt"
	"sort"
	"sync"
)

// OpenFunc constructs a backend's Log from a validated Config.
type OpenFunc func(cfg Config) (Log, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]OpenFunc)
)

// Register makes a backend available to Open under the given name. Backend
// packages call it from init; importing a backend for side effects is enough
// to register it. Register panics on a nil OpenFunc or a duplicate name.
func Register(name string, open OpenFunc) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	if open == nil {
		panic("trainlog: Register open func is nil")
	}
	if _, dup := backends[name]; dup {
		panic("trainlog: Register called twice for backend " + name)
	}
	backends[name] = open
}

// Backends returns the registered backend names, sorted.
func Backends() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// Open validates cfg and constructs the named backend.
func Open(cfg Config) (Log, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backendsMu.RLock()
	open, ok := backends[cfg.Backend]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("backend %q (imported backends: %v): %w", cfg.Backend, Backends(), ErrUnknownBackend)
	}
	return open(cfg)
}
