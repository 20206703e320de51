package testutil

import (
	"context"

	domainSettings "github.com/billforge/billforge/internal/domain/settings"
)

// InMemorySettingsStore implements an in-memory settings repository for
// testing, keyed by setting key
type InMemorySettingsStore struct {
	*InMemoryStore[*domainSettings.Setting]
}

func NewInMemorySettingsStore() *InMemorySettingsStore {
	return &InMemorySettingsStore{
		InMemoryStore: NewInMemoryStore[*domainSettings.Setting](),
	}
}

func (s *InMemorySettingsStore) Get(ctx context.Context, key string) (*domainSettings.Setting, error) {
	return s.InMemoryStore.Get(ctx, key)
}

func (s *InMemorySettingsStore) GetAll(ctx context.Context) ([]*domainSettings.Setting, error) {
	return s.List(ctx, nil, func(i, j *domainSettings.Setting) bool {
		return i.Key < j.Key
	})
}

func (s *InMemorySettingsStore) Set(ctx context.Context, setting *domainSettings.Setting) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.items[setting.Key] = setting
	return nil
}

func (s *InMemorySettingsStore) Delete(ctx context.Context, key string) error {
	return s.InMemoryStore.Delete(ctx, key)
}
