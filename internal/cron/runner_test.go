package cron

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/crontask"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/stretchr/testify/suite"
)

type RunnerSuite struct {
	testutil.BaseServiceTestSuite
	registry *Registry
	runner   *Runner
}

func TestRunner(t *testing.T) {
	suite.Run(t, new(RunnerSuite))
}

func (s *RunnerSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	s.registry = NewRegistry()
	s.runner = NewRunner(s.GetStores().CronTaskRepo, s.registry, s.GetLogger())
}

func (s *RunnerSuite) seedIntervalTask(key string, minutes int) *crontask.Task {
	task := &crontask.Task{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CRON_TASK),
		Key:             key,
		TaskType:        types.TaskTypeSystem,
		ScheduleType:    types.ScheduleTypeInterval,
		IntervalMinutes: minutes,
		Enabled:         true,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().CronTaskRepo.Create(s.GetContext(), task))
	return task
}

func (s *RunnerSuite) TestRunDue_RecordsRun() {
	task := s.seedIntervalTask("ping", 15)
	calls := 0
	s.registry.Register("ping", func(ctx context.Context, now time.Time) (string, error) {
		calls++
		return "pong", nil
	})

	now := time.Now().UTC()
	started, err := s.runner.RunDue(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, started)
	s.Equal(1, calls)

	updated, err := s.GetStores().CronTaskRepo.Get(s.GetContext(), task.ID)
	s.NoError(err)
	s.NotNil(updated.LastRunStart)
	s.NotNil(updated.LastRunEnd)
	s.False(updated.IsLocked(), "lock released after the run")

	runs, err := s.GetStores().CronTaskRepo.ListRuns(s.GetContext(), task.ID, 10)
	s.NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(types.TaskRunStatusSuccess, runs[0].RunStatus)
	s.Equal("pong", runs[0].Output)

	// within the interval the task is no longer due
	started, err = s.runner.RunDue(s.GetContext(), now.Add(time.Minute))
	s.NoError(err)
	s.Equal(0, started)

	started, err = s.runner.RunDue(s.GetContext(), now.Add(16*time.Minute))
	s.NoError(err)
	s.Equal(1, started)
}

func (s *RunnerSuite) TestRunDue_FailureRecordsErrorRun() {
	task := s.seedIntervalTask("flaky", 15)
	s.registry.Register("flaky", func(ctx context.Context, now time.Time) (string, error) {
		return "", errors.New("backend unavailable")
	})

	started, err := s.runner.RunDue(s.GetContext(), time.Now().UTC())
	s.NoError(err, "one task failing does not fail the pass")
	s.Equal(1, started)

	runs, err := s.GetStores().CronTaskRepo.ListRuns(s.GetContext(), task.ID, 10)
	s.NoError(err)
	s.Require().Len(runs, 1)
	s.Equal(types.TaskRunStatusError, runs[0].RunStatus)
	s.Contains(runs[0].Error, "backend unavailable")

	updated, err := s.GetStores().CronTaskRepo.Get(s.GetContext(), task.ID)
	s.NoError(err)
	s.False(updated.IsLocked(), "lock released even on failure")
}

func (s *RunnerSuite) TestRunDue_StuckLockRequiresForceClear() {
	task := s.seedIntervalTask("wedged", 15)
	calls := 0
	s.registry.Register("wedged", func(ctx context.Context, now time.Time) (string, error) {
		calls++
		return "", nil
	})

	// simulate a crashed run that never released its lock
	lockedAt := time.Now().UTC().Add(-2 * time.Hour)
	task.LockedAt = &lockedAt
	s.NoError(s.GetStores().CronTaskRepo.Update(s.GetContext(), task))

	started, err := s.runner.RunDue(s.GetContext(), time.Now().UTC())
	s.NoError(err)
	s.Equal(0, started, "a held lock is never stolen, however old")
	s.Zero(calls)

	s.NoError(s.runner.ForceClearLock(s.GetContext(), "wedged"))

	started, err = s.runner.RunDue(s.GetContext(), time.Now().UTC())
	s.NoError(err)
	s.Equal(1, started)
	s.Equal(1, calls)
}

func (s *RunnerSuite) TestRunDue_SkipsUnregisteredAndDisabled() {
	s.seedIntervalTask("orphan", 15)

	disabled := s.seedIntervalTask("off", 15)
	disabled.Enabled = false
	s.NoError(s.GetStores().CronTaskRepo.Update(s.GetContext(), disabled))
	s.registry.Register("off", func(ctx context.Context, now time.Time) (string, error) {
		s.Fail("disabled task must not run")
		return "", nil
	})

	started, err := s.runner.RunDue(s.GetContext(), time.Now().UTC())
	s.NoError(err)
	s.Equal(0, started)
}

func (s *RunnerSuite) TestTimeSchedule_OncePerDay() {
	task := &crontask.Task{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CRON_TASK),
		Key:          "nightly",
		TaskType:     types.TaskTypeSystem,
		ScheduleType: types.ScheduleTypeTime,
		TimeOfDay:    "01:00",
		Enabled:      true,
		BaseModel:    types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().CronTaskRepo.Create(s.GetContext(), task))

	calls := 0
	s.registry.Register("nightly", func(ctx context.Context, now time.Time) (string, error) {
		calls++
		return "", nil
	})

	day := time.Date(2026, 3, 10, 0, 30, 0, 0, time.UTC)
	started, err := s.runner.RunDue(s.GetContext(), day)
	s.NoError(err)
	s.Equal(0, started, "before the scheduled time")

	started, err = s.runner.RunDue(s.GetContext(), day.Add(time.Hour))
	s.NoError(err)
	s.Equal(1, started)

	// later the same day it does not fire again
	started, err = s.runner.RunDue(s.GetContext(), day.Add(6*time.Hour))
	s.NoError(err)
	s.Equal(0, started)

	// the next day it does
	started, err = s.runner.RunDue(s.GetContext(), day.AddDate(0, 0, 1).Add(time.Hour))
	s.NoError(err)
	s.Equal(1, started)
	s.Equal(2, calls)
}

func (s *RunnerSuite) TestEnsureSystemTasks_Idempotent() {
	s.NoError(EnsureSystemTasks(s.GetContext(), s.GetStores().CronTaskRepo))
	tasks, err := s.GetStores().CronTaskRepo.List(s.GetContext())
	s.NoError(err)
	s.Len(tasks, len(SystemTaskDefinitions()))

	// a second pass creates nothing and keeps edits
	edited, err := s.GetStores().CronTaskRepo.GetByKey(s.GetContext(), TaskCreateInvoices)
	s.NoError(err)
	edited.TimeOfDay = "06:30"
	s.NoError(s.GetStores().CronTaskRepo.Update(s.GetContext(), edited))

	s.NoError(EnsureSystemTasks(s.GetContext(), s.GetStores().CronTaskRepo))
	tasks, err = s.GetStores().CronTaskRepo.List(s.GetContext())
	s.NoError(err)
	s.Len(tasks, len(SystemTaskDefinitions()))

	kept, err := s.GetStores().CronTaskRepo.GetByKey(s.GetContext(), TaskCreateInvoices)
	s.NoError(err)
	s.Equal("06:30", kept.TimeOfDay)
}
