package coupon

import "context"

// Repository defines the interface for coupon persistence operations
type Repository interface {
	Create(ctx context.Context, coupon *Coupon) error
	Get(ctx context.Context, id string) (*Coupon, error)

	// GetByCode retrieves a coupon by its unique code
	GetByCode(ctx context.Context, code string) (*Coupon, error)

	Update(ctx context.Context, coupon *Coupon) error

	// Delete removes a coupon; codes of deleted coupons become reusable
	// only if the coupon was never used
	Delete(ctx context.Context, id string) error

	// IncrementUsage atomically bumps used_qty, failing if the bump would
	// exceed max_qty
	IncrementUsage(ctx context.Context, id string) error
}
