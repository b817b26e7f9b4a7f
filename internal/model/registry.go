package model

import (
	"sort"
	"sync"
)

// Registry stores model instances.
type Registry struct {
	models map[string]*ModelInstance
	mu     sync.RWMutex
}

// NewRegistry creates a new model registry.
func NewRegistry() *Registry {
	return &Registry{
		models: make(map[string]*ModelInstance),
	}
}

// Set adds a model instance to the registry.
func (r *Registry) Set(instance *ModelInstance) {
	r.mu.Lock()
	defer r.mu.Unlock()

	r.models[instance.ID] = instance
}

// Get returns the model instance with the given ID.
func (r *Registry) Get(id string) (*ModelInstance, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instance, ok := r.models[id]
	return instance, ok
}

// List returns all model instances ordered by ID.
func (r *Registry) List() []*ModelInstance {
	r.mu.RLock()
	defer r.mu.RUnlock()

	instances := make([]*ModelInstance, 0, len(r.models))
	for _, instance := range r.models {
		instances = append(instances, instance)
	}

	sort.Slice(instances, func(i, j int) bool {
		return instances[i].ID < instances[j].ID
	})

	return instances
}

// Delete deletes the model instance with the given ID.
func (r *Registry) Delete(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()

	delete(r.models, id)
}
