package testutil

import (
	"context"
	"strings"

	domainCoupon "github.com/billforge/billforge/internal/domain/coupon"
	ierr "github.com/billforge/billforge/internal/errors"
)

// InMemoryCouponStore implements an in-memory coupon repository for testing
type InMemoryCouponStore struct {
	*InMemoryStore[*domainCoupon.Coupon]
}

func NewInMemoryCouponStore() *InMemoryCouponStore {
	return &InMemoryCouponStore{
		InMemoryStore: NewInMemoryStore[*domainCoupon.Coupon](),
	}
}

func (s *InMemoryCouponStore) Create(ctx context.Context, coupon *domainCoupon.Coupon) error {
	existing, _ := s.GetByCode(ctx, coupon.Code)
	if existing != nil {
		return ierr.NewError("coupon code already in use").
			WithHintf("code %s belongs to coupon %s", coupon.Code, existing.ID).
			Mark(ierr.ErrAlreadyExists)
	}
	return s.InMemoryStore.Create(ctx, coupon.ID, coupon)
}

func (s *InMemoryCouponStore) Get(ctx context.Context, id string) (*domainCoupon.Coupon, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryCouponStore) GetByCode(ctx context.Context, code string) (*domainCoupon.Coupon, error) {
	results, err := s.List(ctx, func(ctx context.Context, c *domainCoupon.Coupon) bool {
		return strings.EqualFold(c.Code, code)
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, notFound("coupon", code)
	}
	return results[0], nil
}

func (s *InMemoryCouponStore) Update(ctx context.Context, coupon *domainCoupon.Coupon) error {
	return s.InMemoryStore.Update(ctx, coupon.ID, coupon)
}

func (s *InMemoryCouponStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryCouponStore) IncrementUsage(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	coupon, exists := s.items[id]
	if !exists {
		return notFound("coupon", id)
	}
	if coupon.MaxQty > 0 && coupon.UsedQty >= coupon.MaxQty {
		return ierr.NewError("coupon quantity exhausted").
			WithHintf("coupon %s has used %d of %d", id, coupon.UsedQty, coupon.MaxQty).
			Mark(ierr.ErrInvalidOperation)
	}
	coupon.UsedQty++
	return nil
}
