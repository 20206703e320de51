package gateway

import (
	"sync"

	ierr "github.com/billforge/billforge/internal/errors"
)

// Registry holds the configured payment gateways by name
type Registry struct {
	mu       sync.RWMutex
	gateways map[string]Gateway
}

// NewRegistry creates an empty gateway registry
func NewRegistry() *Registry {
	return &Registry{gateways: make(map[string]Gateway)}
}

// Register adds a gateway; the last registration for a name wins
func (r *Registry) Register(g Gateway) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.gateways[g.Name()] = g
}

// Get resolves a gateway by name
func (r *Registry) Get(name string) (Gateway, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	g, ok := r.gateways[name]
	if !ok {
		return nil, ierr.NewError("payment gateway not configured").
			WithHintf("no gateway registered under %q", name).
			Mark(ierr.ErrGateway)
	}
	return g, nil
}
