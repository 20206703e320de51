package types

import (
	"fmt"

	"github.com/samber/lo"
)

// ServiceStatus represents the lifecycle status of a provisioned service
type ServiceStatus string

const (
	ServiceStatusPending   ServiceStatus = "pending"
	ServiceStatusInReview  ServiceStatus = "in_review"
	ServiceStatusActive    ServiceStatus = "active"
	ServiceStatusSuspended ServiceStatus = "suspended"
	ServiceStatusCanceled  ServiceStatus = "canceled"
)

func (s ServiceStatus) String() string {
	return string(s)
}

func (s ServiceStatus) Validate() error {
	allowed := []ServiceStatus{
		ServiceStatusPending,
		ServiceStatusInReview,
		ServiceStatusActive,
		ServiceStatusSuspended,
		ServiceStatusCanceled,
	}
	if !lo.Contains(allowed, s) {
		return fmt.Errorf("invalid service status: %s", s)
	}
	return nil
}

// IsTerminal reports whether no further transitions are legal
func (s ServiceStatus) IsTerminal() bool {
	return s == ServiceStatusCanceled
}
