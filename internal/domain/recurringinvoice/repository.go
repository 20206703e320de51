package recurringinvoice

import (
	"context"
	"time"
)

// Repository persists recurring invoice templates with their lines
type Repository interface {
	Create(ctx context.Context, r *RecurringInvoice) error
	Get(ctx context.Context, id string) (*RecurringInvoice, error)
	Update(ctx context.Context, r *RecurringInvoice) error
	ListByClient(ctx context.Context, clientID string) ([]*RecurringInvoice, error)
	// ListDue returns active incomplete templates whose next generation
	// date is at or before now
	ListDue(ctx context.Context, now time.Time) ([]*RecurringInvoice, error)
	// CountActiveByClient counts live templates for delete-blocker checks
	CountActiveByClient(ctx context.Context, clientID string) (int, error)
}
