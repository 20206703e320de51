package crontask

import (
	"fmt"
	"time"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
)

// Task is a registered automation job with a per-task schedule. Time
// schedules fire once per day at a local HH:MM; interval schedules fire
// every N minutes.
type Task struct {
	ID  string `db:"id" json:"id"`
	Key string `db:"key" json:"key"`

	TaskType     types.TaskType     `db:"task_type" json:"task_type"`
	ScheduleType types.ScheduleType `db:"schedule_type" json:"schedule_type"`

	// TimeOfDay is the daily HH:MM (24h) for time schedules
	TimeOfDay string `db:"time_of_day" json:"time_of_day"`
	// IntervalMinutes is the cadence for interval schedules
	IntervalMinutes int `db:"interval_minutes" json:"interval_minutes"`

	Enabled bool `db:"enabled" json:"enabled"`

	LastRunStart *time.Time `db:"last_run_start" json:"last_run_start"`
	LastRunEnd   *time.Time `db:"last_run_end" json:"last_run_end"`

	// LockedAt is set while a runner holds the task; a non-nil value
	// blocks concurrent runs until released or force-cleared
	LockedAt *time.Time `db:"locked_at" json:"locked_at"`

	types.BaseModel
}

// Run is one execution record of a task
type Run struct {
	ID     string `db:"id" json:"id"`
	TaskID string `db:"task_id" json:"task_id"`

	RunStatus types.TaskRunStatus `db:"run_status" json:"run_status"`
	StartedAt time.Time           `db:"started_at" json:"started_at"`
	EndedAt   *time.Time          `db:"ended_at" json:"ended_at"`

	// Output holds the task's captured log lines
	Output string `db:"output" json:"output"`
	Error  string `db:"error" json:"error"`
}

// IsLocked reports whether a runner currently holds the task
func (t *Task) IsLocked() bool {
	return t.LockedAt != nil
}

// IsDue reports whether the task should run at now given its schedule
// and last completed run
func (t *Task) IsDue(now time.Time) bool {
	if !t.Enabled || t.Status != types.StatusActive {
		return false
	}

	switch t.ScheduleType {
	case types.ScheduleTypeInterval:
		if t.LastRunStart == nil {
			return true
		}
		elapsed := now.Sub(*t.LastRunStart)
		return elapsed >= time.Duration(t.IntervalMinutes)*time.Minute
	case types.ScheduleTypeTime:
		scheduled, err := t.scheduledAt(now)
		if err != nil {
			return false
		}
		if now.Before(scheduled) {
			return false
		}
		// at most once per day: skip if already started at or after
		// today's scheduled time
		if t.LastRunStart != nil && !t.LastRunStart.Before(scheduled) {
			return false
		}
		return true
	}
	return false
}

// scheduledAt resolves the task's HH:MM against now's date
func (t *Task) scheduledAt(now time.Time) (time.Time, error) {
	var hour, minute int
	if _, err := fmt.Sscanf(t.TimeOfDay, "%d:%d", &hour, &minute); err != nil {
		return time.Time{}, err
	}
	return time.Date(now.Year(), now.Month(), now.Day(), hour, minute, 0, 0, now.Location()), nil
}

// Validate checks the task's schedule configuration
func (t *Task) Validate() error {
	if t.Key == "" {
		return ierr.NewError("task key is required").Mark(ierr.ErrValidation)
	}
	if err := t.TaskType.Validate(); err != nil {
		return err
	}
	if err := t.ScheduleType.Validate(); err != nil {
		return err
	}
	switch t.ScheduleType {
	case types.ScheduleTypeTime:
		var hour, minute int
		if _, err := fmt.Sscanf(t.TimeOfDay, "%d:%d", &hour, &minute); err != nil {
			return ierr.NewError("invalid time of day").
				WithHintf("expected HH:MM, got %q", t.TimeOfDay).
				Mark(ierr.ErrValidation)
		}
		if hour < 0 || hour > 23 || minute < 0 || minute > 59 {
			return ierr.NewError("time of day out of range").
				WithHintf("got %q", t.TimeOfDay).
				Mark(ierr.ErrValidation)
		}
	case types.ScheduleTypeInterval:
		if t.IntervalMinutes <= 0 {
			return ierr.NewError("interval must be positive").
				WithReportableDetails(map[string]any{"interval_minutes": t.IntervalMinutes}).
				Mark(ierr.ErrValidation)
		}
	}
	return nil
}
