package service

import (
	"testing"

	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/stretchr/testify/assert"
)

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name    string
		from    types.ServiceStatus
		to      types.ServiceStatus
		allowed bool
	}{
		{"pending_to_active", types.ServiceStatusPending, types.ServiceStatusActive, true},
		{"pending_to_in_review", types.ServiceStatusPending, types.ServiceStatusInReview, true},
		{"pending_to_canceled", types.ServiceStatusPending, types.ServiceStatusCanceled, true},
		{"in_review_to_pending", types.ServiceStatusInReview, types.ServiceStatusPending, true},
		{"in_review_to_active", types.ServiceStatusInReview, types.ServiceStatusActive, false},
		{"active_to_suspended", types.ServiceStatusActive, types.ServiceStatusSuspended, true},
		{"suspended_to_active", types.ServiceStatusSuspended, types.ServiceStatusActive, true},
		{"active_to_canceled", types.ServiceStatusActive, types.ServiceStatusCanceled, true},
		{"suspended_to_canceled", types.ServiceStatusSuspended, types.ServiceStatusCanceled, true},
		// same-state is never a transition
		{"active_to_active", types.ServiceStatusActive, types.ServiceStatusActive, false},
		{"pending_to_pending", types.ServiceStatusPending, types.ServiceStatusPending, false},
		// canceled is terminal
		{"canceled_to_active", types.ServiceStatusCanceled, types.ServiceStatusActive, false},
		{"canceled_to_pending", types.ServiceStatusCanceled, types.ServiceStatusPending, false},
		{"canceled_to_suspended", types.ServiceStatusCanceled, types.ServiceStatusSuspended, false},
		{"canceled_to_canceled", types.ServiceStatusCanceled, types.ServiceStatusCanceled, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.allowed, CanTransition(tt.from, tt.to))
		})
	}
}

func TestTransition(t *testing.T) {
	t.Run("legal transition mutates status", func(t *testing.T) {
		svc := &Service{ID: "srv_1", ServiceStatus: types.ServiceStatusActive}
		err := svc.Transition(types.ServiceStatusSuspended)
		assert.NoError(t, err)
		assert.Equal(t, types.ServiceStatusSuspended, svc.ServiceStatus)
	})

	t.Run("illegal transition leaves status untouched", func(t *testing.T) {
		svc := &Service{ID: "srv_1", ServiceStatus: types.ServiceStatusCanceled}
		err := svc.Transition(types.ServiceStatusActive)
		assert.Error(t, err)
		assert.True(t, ierr.IsInvalidOperation(err))
		assert.Equal(t, types.ServiceStatusCanceled, svc.ServiceStatus)
	})

	t.Run("unknown status is a validation error", func(t *testing.T) {
		svc := &Service{ID: "srv_1", ServiceStatus: types.ServiceStatusActive}
		err := svc.Transition(types.ServiceStatus("frozen"))
		assert.Error(t, err)
		assert.True(t, ierr.IsValidation(err))
	})
}
