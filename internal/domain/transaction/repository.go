package transaction

import (
	"context"
)

// Repository persists transactions with their invoice applications
type Repository interface {
	Create(ctx context.Context, t *Transaction) error
	Get(ctx context.Context, id string) (*Transaction, error)
	// Update rewrites the transaction and replaces its applications
	Update(ctx context.Context, t *Transaction) error
	ListByClient(ctx context.Context, clientID string) ([]*Transaction, error)
	ListByInvoice(ctx context.Context, invoiceID string) ([]*Transaction, error)
	// ListWithCredit returns settled transactions with unapplied remainder
	ListWithCredit(ctx context.Context, clientID string) ([]*Transaction, error)
}
