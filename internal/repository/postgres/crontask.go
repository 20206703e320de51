package postgres

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/crontask"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type cronTaskRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewCronTaskRepository creates a new postgres cron task repository
func NewCronTaskRepository(db *postgres.DB, logger *logger.Logger) crontask.Repository {
	return &cronTaskRepository{db: db, logger: logger}
}

const cronTaskColumns = `
	id, key, task_type, schedule_type, time_of_day, interval_minutes, enabled,
	last_run_start, last_run_end, locked_at,
	status, created_at, updated_at, created_by, updated_by`

func (r *cronTaskRepository) Create(ctx context.Context, t *crontask.Task) error {
	query := `
		INSERT INTO cron_tasks (
			id, key, task_type, schedule_type, time_of_day, interval_minutes, enabled,
			last_run_start, last_run_end, locked_at,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :key, :task_type, :schedule_type, :time_of_day, :interval_minutes, :enabled,
			:last_run_start, :last_run_end, :locked_at,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating cron task", "task_id", t.ID, "task_key", t.Key)
	if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create cron task").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *cronTaskRepository) Get(ctx context.Context, id string) (*crontask.Task, error) {
	return r.getWhere(ctx, `id = :arg`, id)
}

func (r *cronTaskRepository) GetByKey(ctx context.Context, key string) (*crontask.Task, error) {
	return r.getWhere(ctx, `key = :arg`, key)
}

func (r *cronTaskRepository) getWhere(ctx context.Context, where, arg string) (*crontask.Task, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+cronTaskColumns+` FROM cron_tasks WHERE `+where,
		map[string]interface{}{"arg": arg})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get cron task").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("cron task not found").
			WithHintf("cron task %s does not exist", arg).
			Mark(ierr.ErrNotFound)
	}

	var t crontask.Task
	if err := rows.StructScan(&t); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan cron task").
			Mark(ierr.ErrDatabase)
	}
	return &t, nil
}

// Update persists the task row. The lock column is deliberately excluded;
// it moves only through AcquireLock, ReleaseLock and ForceClearLock.
func (r *cronTaskRepository) Update(ctx context.Context, t *crontask.Task) error {
	query := `
		UPDATE cron_tasks SET
			key = :key,
			task_type = :task_type,
			schedule_type = :schedule_type,
			time_of_day = :time_of_day,
			interval_minutes = :interval_minutes,
			enabled = :enabled,
			last_run_start = :last_run_start,
			last_run_end = :last_run_end,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, t)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update cron task").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("cron task not found").
			WithHintf("cron task %s does not exist", t.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *cronTaskRepository) List(ctx context.Context) ([]*crontask.Task, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+cronTaskColumns+` FROM cron_tasks ORDER BY key`,
		map[string]interface{}{})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list cron tasks").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var tasks []*crontask.Task
	for rows.Next() {
		var t crontask.Task
		if err := rows.StructScan(&t); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan cron task").
				Mark(ierr.ErrDatabase)
		}
		tasks = append(tasks, &t)
	}
	return tasks, nil
}

// AcquireLock sets the lock only when no one holds it; the conditional
// update makes concurrent runners race safely
func (r *cronTaskRepository) AcquireLock(ctx context.Context, taskID string, at time.Time) (bool, error) {
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE cron_tasks SET locked_at = :at
		WHERE id = :id AND locked_at IS NULL`,
		map[string]interface{}{"id": taskID, "at": at})
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("failed to acquire task lock").
			Mark(ierr.ErrDatabase)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("failed to read lock result").
			Mark(ierr.ErrDatabase)
	}
	return n == 1, nil
}

func (r *cronTaskRepository) ReleaseLock(ctx context.Context, taskID string) error {
	return r.clearLock(ctx, taskID)
}

func (r *cronTaskRepository) ForceClearLock(ctx context.Context, taskID string) error {
	return r.clearLock(ctx, taskID)
}

func (r *cronTaskRepository) clearLock(ctx context.Context, taskID string) error {
	if _, err := r.db.NamedExecContext(ctx, `
		UPDATE cron_tasks SET locked_at = NULL WHERE id = :id`,
		map[string]interface{}{"id": taskID}); err != nil {
		return ierr.WithError(err).
			WithHint("failed to clear task lock").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *cronTaskRepository) CreateRun(ctx context.Context, run *crontask.Run) error {
	query := `
		INSERT INTO cron_task_runs (id, task_id, run_status, started_at, ended_at, output, error)
		VALUES (:id, :task_id, :run_status, :started_at, :ended_at, :output, :error)`

	if _, err := r.db.NamedExecContext(ctx, query, run); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create task run").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *cronTaskRepository) UpdateRun(ctx context.Context, run *crontask.Run) error {
	query := `
		UPDATE cron_task_runs SET
			run_status = :run_status,
			started_at = :started_at,
			ended_at = :ended_at,
			output = :output,
			error = :error
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, run)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update task run").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("task run not found").
			WithHintf("task run %s does not exist", run.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *cronTaskRepository) ListRuns(ctx context.Context, taskID string, limit int) ([]*crontask.Run, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, task_id, run_status, started_at, ended_at, output, error
		FROM cron_task_runs
		WHERE task_id = :task_id
		ORDER BY started_at DESC
		LIMIT :limit`,
		map[string]interface{}{"task_id": taskID, "limit": limit})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list task runs").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var runs []*crontask.Run
	for rows.Next() {
		var run crontask.Run
		if err := rows.StructScan(&run); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan task run").
				Mark(ierr.ErrDatabase)
		}
		runs = append(runs, &run)
	}
	return runs, nil
}
