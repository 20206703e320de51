package testutil

import (
	"context"

	domainPlan "github.com/billforge/billforge/internal/domain/plan"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
)

// InMemoryPlanStore implements an in-memory package repository for
// testing. InUsePricingIDs simulates pricing rows referenced by services
// so term-change rejection can be exercised.
type InMemoryPlanStore struct {
	*InMemoryStore[*domainPlan.Package]

	InUsePricingIDs map[string]bool
}

func NewInMemoryPlanStore() *InMemoryPlanStore {
	return &InMemoryPlanStore{
		InMemoryStore:   NewInMemoryStore[*domainPlan.Package](),
		InUsePricingIDs: make(map[string]bool),
	}
}

func (s *InMemoryPlanStore) CreatePackage(ctx context.Context, pkg *domainPlan.Package) error {
	return s.InMemoryStore.Create(ctx, pkg.ID, pkg)
}

func (s *InMemoryPlanStore) GetPackage(ctx context.Context, id string) (*domainPlan.Package, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryPlanStore) UpdatePackage(ctx context.Context, pkg *domainPlan.Package) error {
	return s.InMemoryStore.Update(ctx, pkg.ID, pkg)
}

func (s *InMemoryPlanStore) GetPricing(ctx context.Context, id string) (*domainPlan.Pricing, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pkg := range s.items {
		for _, pricing := range pkg.Pricings {
			if pricing.ID == id {
				return pricing, nil
			}
		}
	}
	return nil, notFound("pricing", id)
}

func (s *InMemoryPlanStore) UpdatePricing(ctx context.Context, pricing *domainPlan.Pricing) error {
	existing, err := s.GetPricing(ctx, pricing.ID)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.InUsePricingIDs[pricing.ID] {
		if pricing.Term != existing.Term || pricing.Period != existing.Period ||
			!types.IsMatchingCurrency(pricing.Currency, existing.Currency) {
			return ierr.NewError("pricing term is frozen").
				WithHint("Term, period and currency cannot change on a pricing referenced by services").
				Mark(ierr.ErrInvalidOperation)
		}
	}

	*existing = *pricing
	return nil
}

func (s *InMemoryPlanStore) GetOptionValue(ctx context.Context, id string) (*domainPlan.OptionValue, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	for _, pkg := range s.items {
		for _, opt := range pkg.Options {
			for _, v := range opt.Values {
				if v.ID == id {
					return v, nil
				}
			}
		}
	}
	return nil, notFound("option value", id)
}
