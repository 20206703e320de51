package service

import (
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/samber/lo"
)

// legalTransitions is the single source of truth for service status
// changes. Checked before any status mutation; a transition absent here
// is illegal, including same-state "transitions".
var legalTransitions = map[types.ServiceStatus][]types.ServiceStatus{
	types.ServiceStatusPending: {
		types.ServiceStatusInReview,
		types.ServiceStatusActive,
		types.ServiceStatusCanceled,
	},
	types.ServiceStatusInReview: {
		// manual staff approval only
		types.ServiceStatusPending,
	},
	types.ServiceStatusActive: {
		types.ServiceStatusSuspended,
		types.ServiceStatusCanceled,
	},
	types.ServiceStatusSuspended: {
		types.ServiceStatusActive,
		types.ServiceStatusCanceled,
	},
	types.ServiceStatusCanceled: {},
}

// CanTransition reports whether from -> to is a legal status change
func CanTransition(from, to types.ServiceStatus) bool {
	return lo.Contains(legalTransitions[from], to)
}

// Transition mutates the service status after checking the transition
// table, returning ErrInvalidOperation for illegal changes
func (s *Service) Transition(to types.ServiceStatus) error {
	if err := to.Validate(); err != nil {
		return ierr.WithError(err).
			WithHint("Unknown target service status").
			Mark(ierr.ErrValidation)
	}

	if !CanTransition(s.ServiceStatus, to) {
		return ierr.NewError("illegal service status transition").
			WithHintf("cannot transition service from %s to %s", s.ServiceStatus, to).
			WithReportableDetails(map[string]any{
				"service_id": s.ID,
				"from":       s.ServiceStatus,
				"to":         to,
			}).
			Mark(ierr.ErrInvalidOperation)
	}

	s.ServiceStatus = to
	return nil
}
