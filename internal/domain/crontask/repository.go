package crontask

import (
	"context"
	"time"
)

// Repository persists tasks, their run locks and run history
type Repository interface {
	Create(ctx context.Context, t *Task) error
	Get(ctx context.Context, id string) (*Task, error)
	GetByKey(ctx context.Context, key string) (*Task, error)
	Update(ctx context.Context, t *Task) error
	List(ctx context.Context) ([]*Task, error)

	// AcquireLock atomically sets the lock on an unlocked task; returns
	// false when another runner already holds it
	AcquireLock(ctx context.Context, taskID string, at time.Time) (bool, error)
	// ReleaseLock clears the lock after a run completes
	ReleaseLock(ctx context.Context, taskID string) error
	// ForceClearLock clears a stale lock left by a crashed runner
	ForceClearLock(ctx context.Context, taskID string) error

	CreateRun(ctx context.Context, run *Run) error
	UpdateRun(ctx context.Context, run *Run) error
	ListRuns(ctx context.Context, taskID string, limit int) ([]*Run, error)
}
