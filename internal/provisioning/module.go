package provisioning

import (
	"context"

	"github.com/billforge/billforge/internal/domain/service"
	"github.com/cockroachdb/errors"
)

// ErrReviewRequired is returned from Activate when the backend wants a
// staff decision before the service goes live. It routes the service to
// manual review instead of failing the activation.
var ErrReviewRequired = errors.New("activation requires manual review")

// IsReviewRequired reports whether an activation error asks for manual
// review
func IsReviewRequired(err error) bool {
	return errors.Is(err, ErrReviewRequired)
}

// Module is a provisioning integration keyed by the package's module
// key. Hooks fire on service lifecycle transitions; a hook error aborts
// the transition and leaves the service in its prior state.
type Module interface {
	Key() string
	// Activate may return ErrReviewRequired to defer the go-live to a
	// staff decision
	Activate(ctx context.Context, svc *service.Service) error
	Suspend(ctx context.Context, svc *service.Service) error
	Unsuspend(ctx context.Context, svc *service.Service) error
	Cancel(ctx context.Context, svc *service.Service) error
	// Renew fires after a successful renewal payment
	Renew(ctx context.Context, svc *service.Service) error
}

// NoopModule satisfies Module for packages without a provisioning
// backend
type NoopModule struct {
	ModuleKey string
}

func (m *NoopModule) Key() string { return m.ModuleKey }

func (m *NoopModule) Activate(ctx context.Context, svc *service.Service) error  { return nil }
func (m *NoopModule) Suspend(ctx context.Context, svc *service.Service) error   { return nil }
func (m *NoopModule) Unsuspend(ctx context.Context, svc *service.Service) error { return nil }
func (m *NoopModule) Cancel(ctx context.Context, svc *service.Service) error    { return nil }
func (m *NoopModule) Renew(ctx context.Context, svc *service.Service) error     { return nil }
