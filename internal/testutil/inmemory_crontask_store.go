package testutil

import (
	"context"
	"sync"
	"time"

	domainCronTask "github.com/billforge/billforge/internal/domain/crontask"
)

// InMemoryCronTaskStore implements an in-memory cron task repository for
// testing, including the run lock semantics
type InMemoryCronTaskStore struct {
	*InMemoryStore[*domainCronTask.Task]

	runMu sync.RWMutex
	runs  map[string]*domainCronTask.Run
}

func NewInMemoryCronTaskStore() *InMemoryCronTaskStore {
	return &InMemoryCronTaskStore{
		InMemoryStore: NewInMemoryStore[*domainCronTask.Task](),
		runs:          make(map[string]*domainCronTask.Run),
	}
}

func (s *InMemoryCronTaskStore) Create(ctx context.Context, t *domainCronTask.Task) error {
	return s.InMemoryStore.Create(ctx, t.ID, t)
}

func (s *InMemoryCronTaskStore) Get(ctx context.Context, id string) (*domainCronTask.Task, error) {
	return s.InMemoryStore.Get(ctx, id)
}

func (s *InMemoryCronTaskStore) GetByKey(ctx context.Context, key string) (*domainCronTask.Task, error) {
	results, err := s.InMemoryStore.List(ctx, func(ctx context.Context, t *domainCronTask.Task) bool {
		return t.Key == key
	}, nil)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 {
		return nil, notFound("task", key)
	}
	return results[0], nil
}

func (s *InMemoryCronTaskStore) Update(ctx context.Context, t *domainCronTask.Task) error {
	return s.InMemoryStore.Update(ctx, t.ID, t)
}

func (s *InMemoryCronTaskStore) List(ctx context.Context) ([]*domainCronTask.Task, error) {
	return s.InMemoryStore.List(ctx, nil, func(i, j *domainCronTask.Task) bool {
		return i.Key < j.Key
	})
}

func (s *InMemoryCronTaskStore) AcquireLock(ctx context.Context, taskID string, at time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.items[taskID]
	if !exists {
		return false, notFound("task", taskID)
	}
	if task.LockedAt != nil {
		return false, nil
	}
	task.LockedAt = &at
	return true, nil
}

func (s *InMemoryCronTaskStore) ReleaseLock(ctx context.Context, taskID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	task, exists := s.items[taskID]
	if !exists {
		return notFound("task", taskID)
	}
	task.LockedAt = nil
	return nil
}

func (s *InMemoryCronTaskStore) ForceClearLock(ctx context.Context, taskID string) error {
	return s.ReleaseLock(ctx, taskID)
}

func (s *InMemoryCronTaskStore) CreateRun(ctx context.Context, run *domainCronTask.Run) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	s.runs[run.ID] = run
	return nil
}

func (s *InMemoryCronTaskStore) UpdateRun(ctx context.Context, run *domainCronTask.Run) error {
	s.runMu.Lock()
	defer s.runMu.Unlock()
	if _, exists := s.runs[run.ID]; !exists {
		return notFound("task run", run.ID)
	}
	s.runs[run.ID] = run
	return nil
}

func (s *InMemoryCronTaskStore) ListRuns(ctx context.Context, taskID string, limit int) ([]*domainCronTask.Run, error) {
	s.runMu.RLock()
	defer s.runMu.RUnlock()

	var result []*domainCronTask.Run
	for _, run := range s.runs {
		if run.TaskID == taskID {
			result = append(result, run)
		}
	}
	if limit > 0 && len(result) > limit {
		result = result[:limit]
	}
	return result, nil
}
