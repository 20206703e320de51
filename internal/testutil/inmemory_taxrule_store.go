package testutil

import (
	"context"

	domainTax "github.com/billforge/billforge/internal/domain/tax"
	"github.com/billforge/billforge/internal/types"
)

// InMemoryTaxRuleStore implements an in-memory tax rule repository for testing
type InMemoryTaxRuleStore struct {
	*InMemoryStore[*domainTax.Rule]
}

func NewInMemoryTaxRuleStore() *InMemoryTaxRuleStore {
	return &InMemoryTaxRuleStore{
		InMemoryStore: NewInMemoryStore[*domainTax.Rule](),
	}
}

func (s *InMemoryTaxRuleStore) Create(ctx context.Context, rule *domainTax.Rule) error {
	return s.InMemoryStore.Create(ctx, rule.ID, rule)
}

func (s *InMemoryTaxRuleStore) Get(ctx context.Context, id string) (*domainTax.Rule, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryTaxRuleStore) Update(ctx context.Context, rule *domainTax.Rule) error {
	return s.InMemoryStore.Update(ctx, rule.ID, rule)
}

func (s *InMemoryTaxRuleStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryTaxRuleStore) ListActive(ctx context.Context) ([]*domainTax.Rule, error) {
	return s.List(ctx, func(ctx context.Context, r *domainTax.Rule) bool {
		return r.Status == types.StatusActive
	}, func(i, j *domainTax.Rule) bool {
		return i.ID < j.ID
	})
}
