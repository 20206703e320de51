package cron

import (
	"context"
	"sync"
	"time"

	ierr "github.com/billforge/billforge/internal/errors"
)

// TaskFunc is one automation pass. The returned string is a short human
// summary stored on the run record.
type TaskFunc func(ctx context.Context, now time.Time) (string, error)

// Registry maps task keys to their handlers. Task rows without a
// registered handler are skipped with a warning, so removing a handler
// does not break the runner.
type Registry struct {
	mu    sync.RWMutex
	tasks map[string]TaskFunc
}

// NewRegistry creates an empty task registry
func NewRegistry() *Registry {
	return &Registry{tasks: make(map[string]TaskFunc)}
}

// Register adds a handler for the key; registering the same key again
// replaces the previous handler
func (r *Registry) Register(key string, fn TaskFunc) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.tasks[key] = fn
}

// Get returns the handler for the key
func (r *Registry) Get(key string) (TaskFunc, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	fn, ok := r.tasks[key]
	if !ok {
		return nil, ierr.NewError("no handler registered for task").
			WithHintf("task %q has no registered handler", key).
			Mark(ierr.ErrNotFound)
	}
	return fn, nil
}
