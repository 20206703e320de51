package testutil

import (
	"context"
	"time"

	domainQuotation "github.com/billforge/billforge/internal/domain/quotation"
)

// InMemoryQuotationStore implements an in-memory quotation repository for testing
type InMemoryQuotationStore struct {
	*InMemoryStore[*domainQuotation.Quotation]
}

func NewInMemoryQuotationStore() *InMemoryQuotationStore {
	return &InMemoryQuotationStore{
		InMemoryStore: NewInMemoryStore[*domainQuotation.Quotation](),
	}
}

func (s *InMemoryQuotationStore) Create(ctx context.Context, q *domainQuotation.Quotation) error {
	return s.InMemoryStore.Create(ctx, q.ID, q)
}

func (s *InMemoryQuotationStore) Get(ctx context.Context, id string) (*domainQuotation.Quotation, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryQuotationStore) Update(ctx context.Context, q *domainQuotation.Quotation) error {
	return s.InMemoryStore.Update(ctx, q.ID, q)
}

func (s *InMemoryQuotationStore) ListByClient(ctx context.Context, clientID string) ([]*domainQuotation.Quotation, error) {
	return s.List(ctx, func(ctx context.Context, q *domainQuotation.Quotation) bool {
		return q.ClientID == clientID
	}, byQuotationID)
}

func (s *InMemoryQuotationStore) ListExpiring(ctx context.Context, now time.Time) ([]*domainQuotation.Quotation, error) {
	return s.List(ctx, func(ctx context.Context, q *domainQuotation.Quotation) bool {
		return q.IsExpired(now)
	}, byQuotationID)
}

func byQuotationID(i, j *domainQuotation.Quotation) bool {
	return i.ID < j.ID
}
