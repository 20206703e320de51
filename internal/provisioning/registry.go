package provisioning

import (
	"sync"
)

// Registry resolves provisioning modules by module key. Packages whose
// key has no registered module fall back to a noop module, so billing
// proceeds without provisioning.
type Registry struct {
	mu      sync.RWMutex
	modules map[string]Module
}

// NewRegistry creates an empty module registry
func NewRegistry() *Registry {
	return &Registry{modules: make(map[string]Module)}
}

// Register adds a provisioning module
func (r *Registry) Register(m Module) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.modules[m.Key()] = m
}

// Resolve returns the module for the key, or a noop module when none is
// registered
func (r *Registry) Resolve(moduleKey string) Module {
	r.mu.RLock()
	defer r.mu.RUnlock()
	if m, ok := r.modules[moduleKey]; ok {
		return m
	}
	return &NoopModule{ModuleKey: moduleKey}
}
