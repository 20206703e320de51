package types

import (
	"fmt"

	"github.com/samber/lo"
)

// TaskType identifies who owns an automation task
type TaskType string

const (
	TaskTypeSystem TaskType = "system"
	TaskTypeModule TaskType = "module"
	TaskTypePlugin TaskType = "plugin"
)

func (t TaskType) String() string {
	return string(t)
}

func (t TaskType) Validate() error {
	allowed := []TaskType{TaskTypeSystem, TaskTypeModule, TaskTypePlugin}
	if !lo.Contains(allowed, t) {
		return fmt.Errorf("invalid task type: %s", t)
	}
	return nil
}

// ScheduleType is how a task's due time is expressed: a daily HH:MM or a
// minute interval gated by last_ran.
type ScheduleType string

const (
	ScheduleTypeTime     ScheduleType = "time"
	ScheduleTypeInterval ScheduleType = "interval"
)

func (s ScheduleType) String() string {
	return string(s)
}

func (s ScheduleType) Validate() error {
	allowed := []ScheduleType{ScheduleTypeTime, ScheduleTypeInterval}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid schedule type: %s", s)
	}
	return nil
}

// TaskRunStatus is the outcome of a single task invocation
type TaskRunStatus string

const (
	TaskRunStatusRunning TaskRunStatus = "running"
	TaskRunStatusSuccess TaskRunStatus = "success"
	TaskRunStatusError   TaskRunStatus = "error"
)

func (s TaskRunStatus) Validate() error {
	allowed := []TaskRunStatus{TaskRunStatusRunning, TaskRunStatusSuccess, TaskRunStatusError}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid task run status: %s", s)
	}
	return nil
}
