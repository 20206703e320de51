package testutil

import (
	"context"
	"time"

	domainRecurring "github.com/billforge/billforge/internal/domain/recurringinvoice"
	"github.com/billforge/billforge/internal/types"
)

// InMemoryRecurringInvoiceStore implements an in-memory recurring invoice
// repository for testing
type InMemoryRecurringInvoiceStore struct {
	*InMemoryStore[*domainRecurring.RecurringInvoice]
}

func NewInMemoryRecurringInvoiceStore() *InMemoryRecurringInvoiceStore {
	return &InMemoryRecurringInvoiceStore{
		InMemoryStore: NewInMemoryStore[*domainRecurring.RecurringInvoice](),
	}
}

func (s *InMemoryRecurringInvoiceStore) Create(ctx context.Context, r *domainRecurring.RecurringInvoice) error {
	return s.InMemoryStore.Create(ctx, r.ID, r)
}

func (s *InMemoryRecurringInvoiceStore) Get(ctx context.Context, id string) (*domainRecurring.RecurringInvoice, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryRecurringInvoiceStore) Update(ctx context.Context, r *domainRecurring.RecurringInvoice) error {
	return s.InMemoryStore.Update(ctx, r.ID, r)
}

func (s *InMemoryRecurringInvoiceStore) ListByClient(ctx context.Context, clientID string) ([]*domainRecurring.RecurringInvoice, error) {
	return s.List(ctx, func(ctx context.Context, r *domainRecurring.RecurringInvoice) bool {
		return r.ClientID == clientID
	}, byRecurringID)
}

func (s *InMemoryRecurringInvoiceStore) ListDue(ctx context.Context, now time.Time) ([]*domainRecurring.RecurringInvoice, error) {
	return s.List(ctx, func(ctx context.Context, r *domainRecurring.RecurringInvoice) bool {
		return r.IsDue(now)
	}, byRecurringID)
}

func (s *InMemoryRecurringInvoiceStore) CountActiveByClient(ctx context.Context, clientID string) (int, error) {
	return s.Count(ctx, func(ctx context.Context, r *domainRecurring.RecurringInvoice) bool {
		return r.ClientID == clientID && r.Status == types.StatusActive
	})
}

func byRecurringID(i, j *domainRecurring.RecurringInvoice) bool {
	return i.ID < j.ID
}
