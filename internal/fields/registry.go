package fields

import (
	"sort"
	"sync"
)

// Registry holds the current schema per workspace. Reads return copies.
type Registry struct {
	mu      sync.RWMutex
	schemas map[string]Schema
}

// NewRegistry creates an empty registry.
func NewRegistry() *Registry {
	return &Registry{schemas: make(map[string]Schema)}
}

// Set replaces the schema for a workspace.
func (r *Registry) Set(workspace string, s Schema) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.schemas[workspace] = s.Clone()
}

// Get returns the schema for a workspace.
func (r *Registry) Get(workspace string) (Schema, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.schemas[workspace]
	if !ok {
		return Schema{}, false
	}
	return s.Clone(), true
}

// Delete removes a workspace's schema.
func (r *Registry) Delete(workspace string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.schemas, workspace)
}

// Workspaces lists workspaces with a schema, sorted.
func (r *Registry) Workspaces() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	names := make([]string, 0, len(r.schemas))
	for name := range r.schemas {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
