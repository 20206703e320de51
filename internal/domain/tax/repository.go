package tax

import "context"

// Repository defines the interface for tax rule persistence operations
type Repository interface {
	Create(ctx context.Context, rule *Rule) error
	Get(ctx context.Context, id string) (*Rule, error)
	Update(ctx context.Context, rule *Rule) error
	Delete(ctx context.Context, id string) error

	// ListActive returns all active rules; the engine resolves scope
	// in memory over this explicitly loaded arena
	ListActive(ctx context.Context) ([]*Rule, error)
}
