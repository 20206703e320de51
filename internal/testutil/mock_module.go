package testutil

import (
	"context"
	"sync"

	domainService "github.com/billforge/billforge/internal/domain/service"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/provisioning"
)

// MockModule is a recording provisioning module for tests. Set one of
// the Fail flags to make the matching hook return an error.
type MockModule struct {
	mu sync.Mutex

	ModuleKey string

	FailActivate  bool
	FailSuspend   bool
	FailUnsuspend bool
	FailCancel    bool
	FailRenew     bool

	// RequireReview makes Activate ask for a manual staff decision
	RequireReview bool

	Activated   []string
	Suspended   []string
	Unsuspended []string
	Canceled    []string
	Renewed     []string
}

func NewMockModule(key string) *MockModule {
	return &MockModule{ModuleKey: key}
}

func (m *MockModule) Key() string {
	return m.ModuleKey
}

func (m *MockModule) Activate(ctx context.Context, svc *domainService.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailActivate {
		return provisioningFailure("activate", svc.ID)
	}
	if m.RequireReview {
		return provisioning.ErrReviewRequired
	}
	m.Activated = append(m.Activated, svc.ID)
	return nil
}

func (m *MockModule) Suspend(ctx context.Context, svc *domainService.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailSuspend {
		return provisioningFailure("suspend", svc.ID)
	}
	m.Suspended = append(m.Suspended, svc.ID)
	return nil
}

func (m *MockModule) Unsuspend(ctx context.Context, svc *domainService.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailUnsuspend {
		return provisioningFailure("unsuspend", svc.ID)
	}
	m.Unsuspended = append(m.Unsuspended, svc.ID)
	return nil
}

func (m *MockModule) Cancel(ctx context.Context, svc *domainService.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailCancel {
		return provisioningFailure("cancel", svc.ID)
	}
	m.Canceled = append(m.Canceled, svc.ID)
	return nil
}

func (m *MockModule) Renew(ctx context.Context, svc *domainService.Service) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.FailRenew {
		return provisioningFailure("renew", svc.ID)
	}
	m.Renewed = append(m.Renewed, svc.ID)
	return nil
}

func provisioningFailure(hook, serviceID string) error {
	return ierr.NewError("provisioning hook failed").
		WithHintf("%s failed for service %s", hook, serviceID).
		Mark(ierr.ErrProvisioning)
}
