package invoice

import (
	"context"
	"time"
)

// Repository persists invoices together with their ordered lines
type Repository interface {
	// Create persists the invoice and its lines atomically
	Create(ctx context.Context, inv *Invoice) error
	Get(ctx context.Context, id string) (*Invoice, error)
	GetByNumber(ctx context.Context, invoiceNumber string) (*Invoice, error)
	// Update rewrites the invoice header and replaces its lines
	Update(ctx context.Context, inv *Invoice) error

	ListByClient(ctx context.Context, clientID string) ([]*Invoice, error)
	// ListOpen returns active unpaid invoices, oldest due date first
	ListOpen(ctx context.Context, clientID string) ([]*Invoice, error)
	// ListOverdue returns open invoices whose due date is at least
	// graceDays before now
	ListOverdue(ctx context.Context, now time.Time, graceDays int) ([]*Invoice, error)
	// ListAutodebitDue returns open autodebit-eligible invoices coming due
	// within daysBeforeDue days of now
	ListAutodebitDue(ctx context.Context, now time.Time, daysBeforeDue int) ([]*Invoice, error)
	// ListUndelivered returns active invoices not yet delivered
	ListUndelivered(ctx context.Context) ([]*Invoice, error)
	// CountOpenByClient counts open invoices for delete-blocker checks
	CountOpenByClient(ctx context.Context, clientID string) (int, error)
	// ExistsForServicePeriod reports whether a renewal invoice already
	// covers the service's period ending at renewsAt; the recurring
	// generator uses it to stay idempotent
	ExistsForServicePeriod(ctx context.Context, serviceID string, renewsAt time.Time) (bool, error)
}
