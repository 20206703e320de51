package testutil

import (
	"context"
	"time"

	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/types"
)

// InMemoryServiceStore implements an in-memory service repository for testing
type InMemoryServiceStore struct {
	*InMemoryStore[*domainService.Service]
}

func NewInMemoryServiceStore() *InMemoryServiceStore {
	return &InMemoryServiceStore{
		InMemoryStore: NewInMemoryStore[*domainService.Service](),
	}
}

func (s *InMemoryServiceStore) Create(ctx context.Context, svc *domainService.Service) error {
	return s.InMemoryStore.Create(ctx, svc.ID, svc)
}

func (s *InMemoryServiceStore) Get(ctx context.Context, id string) (*domainService.Service, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryServiceStore) Update(ctx context.Context, svc *domainService.Service) error {
	return s.InMemoryStore.Update(ctx, svc.ID, svc)
}

func (s *InMemoryServiceStore) ListByClient(ctx context.Context, clientID string) ([]*domainService.Service, error) {
	return s.List(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		return svc.ClientID == clientID
	}, byServiceID)
}

func (s *InMemoryServiceStore) ListChildren(ctx context.Context, parentServiceID string) ([]*domainService.Service, error) {
	return s.List(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		return svc.ParentServiceID != nil && *svc.ParentServiceID == parentServiceID
	}, byServiceID)
}

func (s *InMemoryServiceStore) ListRenewalsDue(ctx context.Context, horizon time.Time, includeSuspended bool) ([]*domainService.Service, error) {
	return s.List(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		switch svc.ServiceStatus {
		case types.ServiceStatusActive:
		case types.ServiceStatusSuspended:
			if !includeSuspended {
				return false
			}
		default:
			return false
		}
		return svc.IsRenewalDue(horizon)
	}, byServiceID)
}

func (s *InMemoryServiceStore) ListScheduledCancellations(ctx context.Context, asOf time.Time) ([]*domainService.Service, error) {
	return s.List(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		if svc.ServiceStatus.IsTerminal() {
			return false
		}
		return svc.DateCanceled != nil && !svc.DateCanceled.After(asOf)
	}, byServiceID)
}

func (s *InMemoryServiceStore) ListSuspended(ctx context.Context) ([]*domainService.Service, error) {
	return s.List(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		return svc.ServiceStatus == types.ServiceStatusSuspended
	}, byServiceID)
}

func (s *InMemoryServiceStore) ListManualQueue(ctx context.Context) ([]*domainService.Service, error) {
	return s.List(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		return svc.InManualQueue
	}, byServiceID)
}

func (s *InMemoryServiceStore) CountLiveByClient(ctx context.Context, clientID string) (int, error) {
	return s.Count(ctx, func(ctx context.Context, svc *domainService.Service) bool {
		return svc.ClientID == clientID && svc.IsLive()
	})
}

func byServiceID(i, j *domainService.Service) bool {
	return i.ID < j.ID
}
