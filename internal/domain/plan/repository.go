package plan

import "context"

// Repository defines the interface for package persistence operations
type Repository interface {
	CreatePackage(ctx context.Context, pkg *Package) error

	// GetPackage retrieves a package with its pricings and options loaded
	GetPackage(ctx context.Context, id string) (*Package, error)
	UpdatePackage(ctx context.Context, pkg *Package) error

	// GetPricing retrieves a single pricing row
	GetPricing(ctx context.Context, id string) (*Pricing, error)

	// UpdatePricing updates prices and fees; implementations must reject
	// term/period/currency changes on pricing rows referenced by services
	UpdatePricing(ctx context.Context, pricing *Pricing) error

	// GetOptionValue retrieves an option value with its pricings loaded
	GetOptionValue(ctx context.Context, id string) (*OptionValue, error)
}
