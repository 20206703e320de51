package quotation

import (
	"context"
	"time"
)

// Repository persists quotations with their lines
type Repository interface {
	Create(ctx context.Context, q *Quotation) error
	Get(ctx context.Context, id string) (*Quotation, error)
	Update(ctx context.Context, q *Quotation) error
	ListByClient(ctx context.Context, clientID string) ([]*Quotation, error)
	// ListExpiring returns draft and pending quotations whose expiry date
	// has passed as of now
	ListExpiring(ctx context.Context, now time.Time) ([]*Quotation, error)
}
