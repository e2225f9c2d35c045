package egl

import (
	"sort"
	"sync"
)

// Backend names.
const (
	BackendSurfaceless = "surfaceless"
)

// BackendFactory creates a new backend instance.
type BackendFactory func() Backend

// Backend opens native displays for a set of platforms.
type Backend interface {
	// Name returns the backend identifier.
	Name() string

	// Available reports whether the backend can run on this host.
	Available() bool

	// Supports reports whether the backend can open displays of platform p.
	Supports(p Platform) bool

	// OpenDisplay opens a native display.
	OpenDisplay(p Platform) (NativeDisplay, error)
}

// NativeDisplay is a display owned by a backend.
type NativeDisplay interface {
	Handle() uintptr
	CreateContext(attribs ContextAttribs) (NativeContext, error)
	Close() error
}

// NativeContext is a rendering context owned by a backend.
type NativeContext interface {
	Handle() uintptr
	Destroy() error
}

var (
	registryMu sync.RWMutex
	backends   = make(map[string]BackendFactory)
	// Priority order for backend selection; first available wins.
	backendPriority = []string{BackendSurfaceless}
)

// Register registers a backend factory under name, replacing any previous
// registration. Backends register themselves from init functions.
func Register(name string, factory BackendFactory) {
	registryMu.Lock()
	defer registryMu.Unlock()
	backends[name] = factory
}

// Unregister removes a backend from the registry.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(backends, name)
}

// Available returns the sorted names of registered backends.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered reports whether a backend named name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := backends[name]
	return ok
}

// selectBackend returns the best available backend supporting p.
// Priority backends are tried first, then the rest in name order.
func selectBackend(p Platform) Backend {
	registryMu.RLock()
	defer registryMu.RUnlock()

	tried := make(map[string]bool, len(backends))
	try := func(name string) Backend {
		tried[name] = true
		factory, ok := backends[name]
		if !ok {
			return nil
		}
		b := factory()
		if b == nil || !b.Available() || !b.Supports(p) {
			return nil
		}
		return b
	}

	for _, name := range backendPriority {
		if b := try(name); b != nil {
			return b
		}
	}

	rest := make([]string, 0, len(backends))
	for name := range backends {
		if !tried[name] {
			rest = append(rest, name)
		}
	}
	sort.Strings(rest)
	for _, name := range rest {
		if b := try(name); b != nil {
			return b
		}
	}
	return nil
}
