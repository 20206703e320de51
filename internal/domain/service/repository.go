package service

import (
	"context"
	"time"
)

// Repository defines the interface for service persistence operations
type Repository interface {
	Create(ctx context.Context, service *Service) error
	Get(ctx context.Context, id string) (*Service, error)
	Update(ctx context.Context, service *Service) error

	// ListByClient returns all services for a client
	ListByClient(ctx context.Context, clientID string) ([]*Service, error)

	// ListChildren returns addon services of a parent
	ListChildren(ctx context.Context, parentServiceID string) ([]*Service, error)

	// ListRenewalsDue returns active (and optionally suspended) services
	// whose date_renews falls at or before horizon
	ListRenewalsDue(ctx context.Context, horizon time.Time, includeSuspended bool) ([]*Service, error)

	// ListScheduledCancellations returns services whose date_canceled has
	// arrived but which are not yet canceled
	ListScheduledCancellations(ctx context.Context, asOf time.Time) ([]*Service, error)

	// ListSuspended returns all suspended services
	ListSuspended(ctx context.Context) ([]*Service, error)

	// ListManualQueue returns services parked in the manual renewal queue
	ListManualQueue(ctx context.Context) ([]*Service, error)

	// CountLiveByClient counts active or suspended services for the
	// client hard-delete precondition
	CountLiveByClient(ctx context.Context, clientID string) (int, error)
}
