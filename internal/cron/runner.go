package cron

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/crontask"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/types"
	"github.com/sourcegraph/conc/pool"
)

// Runner executes due tasks once per invocation. Each task is guarded by
// a durable lock: a crashed run leaves the lock held and the task
// skipped until a staff member force-clears it, which keeps a wedged
// pass from stacking up behind itself.
type Runner struct {
	repo     crontask.Repository
	registry *Registry
	logger   *logger.Logger
}

// NewRunner creates a task runner
func NewRunner(repo crontask.Repository, registry *Registry, log *logger.Logger) *Runner {
	return &Runner{
		repo:     repo,
		registry: registry,
		logger:   log,
	}
}

// RunDue runs every enabled task whose schedule is due at now. Tasks run
// concurrently; a task failing records an error run and does not affect
// the others. Returns how many tasks were started.
func (r *Runner) RunDue(ctx context.Context, now time.Time) (int, error) {
	tasks, err := r.repo.List(ctx)
	if err != nil {
		return 0, err
	}

	started := 0
	p := pool.New().WithContext(ctx)
	for _, task := range tasks {
		if !task.IsDue(now) {
			continue
		}
		if task.IsLocked() {
			r.logger.Warnw("skipping locked task; clear the lock if the previous run crashed",
				"task_key", task.Key,
				"locked_at", task.LockedAt)
			continue
		}
		fn, err := r.registry.Get(task.Key)
		if err != nil {
			r.logger.Warnw("skipping task with no registered handler", "task_key", task.Key)
			continue
		}

		started++
		task := task
		p.Go(func(ctx context.Context) error {
			r.runOne(ctx, task, fn, now)
			return nil
		})
	}
	if err := p.Wait(); err != nil {
		return started, err
	}

	return started, nil
}

// RunByKey runs a single task immediately, regardless of its schedule.
// The lock still applies.
func (r *Runner) RunByKey(ctx context.Context, key string, now time.Time) error {
	task, err := r.repo.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	fn, err := r.registry.Get(key)
	if err != nil {
		return err
	}
	r.runOne(ctx, task, fn, now)
	return nil
}

// ForceClearLock releases a lock left behind by a crashed run
func (r *Runner) ForceClearLock(ctx context.Context, key string) error {
	task, err := r.repo.GetByKey(ctx, key)
	if err != nil {
		return err
	}
	if err := r.repo.ForceClearLock(ctx, task.ID); err != nil {
		return err
	}
	r.logger.Infow("force-cleared task lock", "task_key", key)
	return nil
}

func (r *Runner) runOne(ctx context.Context, task *crontask.Task, fn TaskFunc, now time.Time) {
	acquired, err := r.repo.AcquireLock(ctx, task.ID, now)
	if err != nil {
		r.logger.Errorw("failed to acquire task lock", "task_key", task.Key, "error", err)
		return
	}
	if !acquired {
		r.logger.Warnw("task already locked by another runner", "task_key", task.Key)
		return
	}

	run := &crontask.Run{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CRON_TASK_RUN),
		TaskID:    task.ID,
		RunStatus: types.TaskRunStatusRunning,
		StartedAt: now,
	}
	if err := r.repo.CreateRun(ctx, run); err != nil {
		r.logger.Errorw("failed to create run record", "task_key", task.Key, "error", err)
		if relErr := r.repo.ReleaseLock(ctx, task.ID); relErr != nil {
			r.logger.Errorw("failed to release task lock", "task_key", task.Key, "error", relErr)
		}
		return
	}

	startAt := now
	task.LastRunStart = &startAt
	if err := r.repo.Update(ctx, task); err != nil {
		r.logger.Errorw("failed to stamp run start", "task_key", task.Key, "error", err)
	}

	r.logger.Infow("task started", "task_key", task.Key, "run_id", run.ID)
	output, taskErr := fn(ctx, now)

	endedAt := time.Now().UTC()
	run.EndedAt = &endedAt
	run.Output = output
	if taskErr != nil {
		run.RunStatus = types.TaskRunStatusError
		run.Error = taskErr.Error()
		r.logger.Errorw("task failed",
			"task_key", task.Key, "run_id", run.ID, "error", taskErr)
	} else {
		run.RunStatus = types.TaskRunStatusSuccess
		r.logger.Infow("task finished",
			"task_key", task.Key, "run_id", run.ID, "output", output)
	}
	if err := r.repo.UpdateRun(ctx, run); err != nil {
		r.logger.Errorw("failed to update run record", "task_key", task.Key, "error", err)
	}

	task.LastRunEnd = &endedAt
	if err := r.repo.Update(ctx, task); err != nil {
		r.logger.Errorw("failed to stamp run end", "task_key", task.Key, "error", err)
	}

	if err := r.repo.ReleaseLock(ctx, task.ID); err != nil {
		r.logger.Errorw("failed to release task lock", "task_key", task.Key, "error", err)
	}
}
