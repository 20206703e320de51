package testutil

import (
	"context"

	domainClient "github.com/billforge/billforge/internal/domain/client"
)

// InMemoryClientStore implements an in-memory client repository for testing
type InMemoryClientStore struct {
	*InMemoryStore[*domainClient.Client]
}

func NewInMemoryClientStore() *InMemoryClientStore {
	return &InMemoryClientStore{
		InMemoryStore: NewInMemoryStore[*domainClient.Client](),
	}
}

func (s *InMemoryClientStore) Create(ctx context.Context, client *domainClient.Client) error {
	return s.InMemoryStore.Create(ctx, client.ID, client)
}

func (s *InMemoryClientStore) Get(ctx context.Context, id string) (*domainClient.Client, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryClientStore) Update(ctx context.Context, client *domainClient.Client) error {
	return s.InMemoryStore.Update(ctx, client.ID, client)
}

func (s *InMemoryClientStore) Delete(ctx context.Context, id string) error {
	return s.InMemoryStore.Delete(ctx, id)
}

func (s *InMemoryClientStore) ListAutodebitable(ctx context.Context) ([]*domainClient.Client, error) {
	return s.List(ctx, func(ctx context.Context, c *domainClient.Client) bool {
		return c.CanAutodebit()
	}, func(i, j *domainClient.Client) bool {
		return i.ID < j.ID
	})
}
