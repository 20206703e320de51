package testutil

import (
	"context"

	domainTransaction "github.com/billforge/billforge/internal/domain/transaction"
)

// InMemoryTransactionStore implements an in-memory transaction repository
// for testing
type InMemoryTransactionStore struct {
	*InMemoryStore[*domainTransaction.Transaction]
}

func NewInMemoryTransactionStore() *InMemoryTransactionStore {
	return &InMemoryTransactionStore{
		InMemoryStore: NewInMemoryStore[*domainTransaction.Transaction](),
	}
}

func (s *InMemoryTransactionStore) Create(ctx context.Context, t *domainTransaction.Transaction) error {
	return s.InMemoryStore.Create(ctx, t.ID, t)
}

func (s *InMemoryTransactionStore) Get(ctx context.Context, id string) (*domainTransaction.Transaction, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryTransactionStore) Update(ctx context.Context, t *domainTransaction.Transaction) error {
	return s.InMemoryStore.Update(ctx, t.ID, t)
}

func (s *InMemoryTransactionStore) ListByClient(ctx context.Context, clientID string) ([]*domainTransaction.Transaction, error) {
	return s.List(ctx, func(ctx context.Context, t *domainTransaction.Transaction) bool {
		return t.ClientID == clientID
	}, byTransactionID)
}

func (s *InMemoryTransactionStore) ListByInvoice(ctx context.Context, invoiceID string) ([]*domainTransaction.Transaction, error) {
	return s.List(ctx, func(ctx context.Context, t *domainTransaction.Transaction) bool {
		for _, app := range t.Applications {
			if app.InvoiceID == invoiceID {
				return true
			}
		}
		return false
	}, byTransactionID)
}

func (s *InMemoryTransactionStore) ListWithCredit(ctx context.Context, clientID string) ([]*domainTransaction.Transaction, error) {
	return s.List(ctx, func(ctx context.Context, t *domainTransaction.Transaction) bool {
		return t.ClientID == clientID && t.CanApply()
	}, byTransactionID)
}

func byTransactionID(i, j *domainTransaction.Transaction) bool {
	return i.ID < j.ID
}
