package backend

import (
	"errors"
	"sort"
	"sync"
)

// Registry manages backend instances.
type Registry struct {
	backends map[BackendProvider]Backend
	mu       sync.RWMutex
}

// NewRegistry creates a new backend registry.
func NewRegistry() *Registry {
	return &Registry{
		backends: make(map[BackendProvider]Backend),
	}
}

// Register adds a backend to the registry.
func (r *Registry) Register(b Backend) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.backends[b.Provider()]; ok {
		return ErrBackendAlreadyRegistered
	}

	r.backends[b.Provider()] = b

	return nil
}

// Get retrieves a backend by provider.
func (r *Registry) Get(provider BackendProvider) (Backend, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	b, ok := r.backends[provider]
	return b, ok
}

// Providers lists the registered providers in name order.
func (r *Registry) Providers() []BackendProvider {
	r.mu.RLock()
	defer r.mu.RUnlock()

	providers := make([]BackendProvider, 0, len(r.backends))
	for p := range r.backends {
		providers = append(providers, p)
	}
	sort.Slice(providers, func(i, j int) bool { return providers[i] < providers[j] })

	return providers
}

// Close closes all registered backends and reports every failure.
func (r *Registry) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()

	var errs []error
	for _, b := range r.backends {
		if err := b.Close(); err != nil {
			errs = append(errs, err)
		}
	}

	return errors.Join(errs...)
}
