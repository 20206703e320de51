package crontask

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/types"
	"github.com/stretchr/testify/assert"
)

func newTimeTask(timeOfDay string) *Task {
	return &Task{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CRON_TASK),
		Key:          "create_invoices",
		TaskType:     types.TaskTypeSystem,
		ScheduleType: types.ScheduleTypeTime,
		TimeOfDay:    timeOfDay,
		Enabled:      true,
		BaseModel:    types.BaseModel{Status: types.StatusActive},
	}
}

func newIntervalTask(minutes int) *Task {
	return &Task{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CRON_TASK),
		Key:             "process_service_changes",
		TaskType:        types.TaskTypeSystem,
		ScheduleType:    types.ScheduleTypeInterval,
		IntervalMinutes: minutes,
		Enabled:         true,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
}

func TestTask_IsDue_TimeSchedule(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	tests := []struct {
		name     string
		task     *Task
		lastRun  *time.Time
		expected bool
	}{
		{
			name:     "before_scheduled_time",
			task:     newTimeTask("10:00"),
			expected: false,
		},
		{
			name:     "after_scheduled_time_never_run",
			task:     newTimeTask("09:00"),
			expected: true,
		},
		{
			name:     "already_ran_today",
			task:     newTimeTask("09:00"),
			lastRun:  timePtr(time.Date(2026, 3, 10, 9, 1, 0, 0, time.UTC)),
			expected: false,
		},
		{
			name:     "ran_yesterday",
			task:     newTimeTask("09:00"),
			lastRun:  timePtr(time.Date(2026, 3, 9, 9, 1, 0, 0, time.UTC)),
			expected: true,
		},
		{
			name:     "disabled_task_never_due",
			task:     func() *Task { tk := newTimeTask("09:00"); tk.Enabled = false; return tk }(),
			expected: false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			tt.task.LastRunStart = tt.lastRun
			assert.Equal(t, tt.expected, tt.task.IsDue(now))
		})
	}
}

func TestTask_IsDue_IntervalSchedule(t *testing.T) {
	now := time.Date(2026, 3, 10, 9, 30, 0, 0, time.UTC)

	task := newIntervalTask(15)
	assert.True(t, task.IsDue(now), "never-run interval task is due")

	task.LastRunStart = timePtr(now.Add(-10 * time.Minute))
	assert.False(t, task.IsDue(now), "within interval")

	task.LastRunStart = timePtr(now.Add(-15 * time.Minute))
	assert.True(t, task.IsDue(now), "exactly one interval elapsed")
}

func TestTask_Validate(t *testing.T) {
	task := newTimeTask("25:00")
	assert.Error(t, task.Validate())

	task = newTimeTask("08:30")
	assert.NoError(t, task.Validate())

	interval := newIntervalTask(0)
	assert.Error(t, interval.Validate())

	interval = newIntervalTask(5)
	assert.NoError(t, interval.Validate())
}

func timePtr(t time.Time) *time.Time { return &t }
