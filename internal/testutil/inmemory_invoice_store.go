package testutil

import (
	"context"
	"time"

	domainInvoice "github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/types"
)

// InMemoryInvoiceStore implements an in-memory invoice repository for testing
type InMemoryInvoiceStore struct {
	*InMemoryStore[*domainInvoice.Invoice]
}

func NewInMemoryInvoiceStore() *InMemoryInvoiceStore {
	return &InMemoryInvoiceStore{
		InMemoryStore: NewInMemoryStore[*domainInvoice.Invoice](),
	}
}

func (s *InMemoryInvoiceStore) Create(ctx context.Context, inv *domainInvoice.Invoice) error {
	return s.InMemoryStore.Create(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) Get(ctx context.Context, id string) (*domainInvoice.Invoice, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryInvoiceStore) GetByNumber(ctx context.Context, invoiceNumber string) (*domainInvoice.Invoice, error) {
	results, err := s.List(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		return inv.InvoiceNumber == invoiceNumber
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, notFound("invoice", invoiceNumber)
	}
	return results[0], nil
}

func (s *InMemoryInvoiceStore) Update(ctx context.Context, inv *domainInvoice.Invoice) error {
	return s.InMemoryStore.Update(ctx, inv.ID, inv)
}

func (s *InMemoryInvoiceStore) ListByClient(ctx context.Context, clientID string) ([]*domainInvoice.Invoice, error) {
	return s.List(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		return inv.ClientID == clientID
	}, byInvoiceDue)
}

func (s *InMemoryInvoiceStore) ListOpen(ctx context.Context, clientID string) ([]*domainInvoice.Invoice, error) {
	return s.List(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		return inv.ClientID == clientID && inv.IsOpen() && inv.AmountDue().IsPositive()
	}, byInvoiceDue)
}

func (s *InMemoryInvoiceStore) ListOverdue(ctx context.Context, now time.Time, graceDays int) ([]*domainInvoice.Invoice, error) {
	return s.List(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		return inv.IsOverdue(now, graceDays)
	}, byInvoiceDue)
}

func (s *InMemoryInvoiceStore) ListAutodebitDue(ctx context.Context, now time.Time, daysBeforeDue int) ([]*domainInvoice.Invoice, error) {
	return s.List(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		if !inv.IsOpen() || !inv.AutodebitEligible || !inv.AmountDue().IsPositive() {
			return false
		}
		return types.DaysBetween(now, inv.DateDue) <= daysBeforeDue
	}, byInvoiceDue)
}

func (s *InMemoryInvoiceStore) ListUndelivered(ctx context.Context) ([]*domainInvoice.Invoice, error) {
	return s.List(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		return inv.InvoiceStatus == types.InvoiceStatusActive && inv.DateDelivered == nil
	}, byInvoiceDue)
}

func (s *InMemoryInvoiceStore) CountOpenByClient(ctx context.Context, clientID string) (int, error) {
	return s.Count(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		return inv.ClientID == clientID && inv.IsOpen() && inv.AmountDue().IsPositive()
	})
}

func (s *InMemoryInvoiceStore) ExistsForServicePeriod(ctx context.Context, serviceID string, renewsAt time.Time) (bool, error) {
	// renewal invoices come due on the service's renewal date, so an
	// existing non-void invoice with a service line due that day means
	// the period is already billed
	count, err := s.Count(ctx, func(ctx context.Context, inv *domainInvoice.Invoice) bool {
		if inv.InvoiceStatus == types.InvoiceStatusVoid {
			return false
		}
		if !sameDay(inv.DateDue, renewsAt) {
			return false
		}
		for _, line := range inv.Lines {
			if line.ServiceID != nil && *line.ServiceID == serviceID &&
				line.Type == types.LineItemTypeService {
				return true
			}
		}
		return false
	})
	if err != nil {
		return false, err
	}
	return count > 0, nil
}

func sameDay(a, b time.Time) bool {
	ay, am, ad := a.UTC().Date()
	by, bm, bd := b.UTC().Date()
	return ay == by && am == bm && ad == bd
}

func byInvoiceDue(i, j *domainInvoice.Invoice) bool {
	if i.DateDue.Equal(j.DateDue) {
		return i.ID < j.ID
	}
	return i.DateDue.Before(j.DateDue)
}
