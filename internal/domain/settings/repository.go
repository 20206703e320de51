package settings

import "context"

// Repository defines the interface for settings persistence operations
type Repository interface {
	// Get retrieves a setting by key; implementations return ErrNotFound
	// for keys with no stored row
	Get(ctx context.Context, key string) (*Setting, error)

	// GetAll retrieves every stored setting
	GetAll(ctx context.Context) ([]*Setting, error)

	// Set creates or replaces a setting
	Set(ctx context.Context, setting *Setting) error

	// Delete removes a setting, reverting it to its default
	Delete(ctx context.Context, key string) error
}
