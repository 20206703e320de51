package service

import (
	"context"
	"time"

	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/notification"
)

// RenewalService processes service renewals once their renewal invoice
// is paid, retrying failed provisioning up to a bounded attempt count
// before parking the service in the manual queue.
type RenewalService interface {
	// ProcessDueRenewals runs the renew hook for paid-up services whose
	// renewal date has arrived and advances their renewal date
	ProcessDueRenewals(ctx context.Context, now time.Time) (renewed int, err error)
	// Dequeue releases a service from the manual queue and resets its
	// attempt counter so automation picks it up again
	Dequeue(ctx context.Context, serviceID string) error
	// SetMaxAttempts overrides the company attempt ceiling for one
	// service; nil restores the company default
	SetMaxAttempts(ctx context.Context, serviceID string, maxAttempts *int) error
}

type renewalService struct {
	ServiceParams
	settings SettingsService
}

// NewRenewalService creates a renewal service
func NewRenewalService(params ServiceParams) RenewalService {
	return &renewalService{
		ServiceParams: params,
		settings:      NewSettingsService(params),
	}
}

func (s *renewalService) ProcessDueRenewals(ctx context.Context, now time.Time) (int, error) {
	companyCeiling, err := s.settings.GetInt(ctx, settings.KeyServiceRenewalAttempts)
	if err != nil {
		return 0, err
	}

	due, err := s.ServiceRepo.ListRenewalsDue(ctx, now, false)
	if err != nil {
		return 0, err
	}

	renewed := 0
	for _, svc := range due {
		if svc.InManualQueue {
			continue
		}
		// a pending cancellation at or before the renewal date wins
		if svc.DateCanceled != nil && !svc.DateCanceled.After(*svc.DateRenews) {
			continue
		}

		paid, err := s.renewalInvoicePaid(ctx, svc)
		if err != nil {
			return renewed, err
		}
		if !paid {
			continue
		}

		if err := s.renewOne(ctx, svc, companyCeiling); err != nil {
			s.Logger.Errorw("renewal failed",
				"service_id", svc.ID,
				"attempts", svc.RenewalAttempts,
				"error", err)
			continue
		}
		renewed++
	}

	return renewed, nil
}

// renewalInvoicePaid reports whether nothing open still bills the
// service; an unpaid renewal invoice keeps the renewal on hold
func (s *renewalService) renewalInvoicePaid(ctx context.Context, svc *domainService.Service) (bool, error) {
	open, err := s.InvoiceRepo.ListOpen(ctx, svc.ClientID)
	if err != nil {
		return false, err
	}
	return !serviceHasOpenInvoice(open, svc.ID), nil
}

func (s *renewalService) renewOne(ctx context.Context, svc *domainService.Service, companyCeiling int) error {
	pkg, err := s.PlanRepo.GetPackage(ctx, svc.PackageID)
	if err != nil {
		return err
	}
	pricing, err := s.PlanRepo.GetPricing(ctx, svc.PricingID)
	if err != nil {
		return err
	}

	if err := s.Modules.Resolve(pkg.ModuleKey).Renew(ctx, svc); err != nil {
		return s.recordFailure(ctx, svc, companyCeiling, err)
	}

	next := pricing.Period.AddTerm(*svc.DateRenews, pricing.Term)
	svc.DateRenews = &next
	svc.RenewalAttempts = 0

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	s.Logger.Infow("service renewed",
		"service_id", svc.ID,
		"date_renews", next)
	return nil
}

// recordFailure bumps the attempt counter and, at the ceiling, parks
// the service in the manual queue with a single notification
func (s *renewalService) recordFailure(ctx context.Context, svc *domainService.Service, companyCeiling int, cause error) error {
	svc.RenewalAttempts++

	if svc.RenewalAttempts >= svc.RenewalAttemptCeiling(companyCeiling) {
		svc.InManualQueue = true
		if err := s.ServiceRepo.Update(ctx, svc); err != nil {
			return err
		}
		if err := s.Notifier.Send(ctx, svc.ClientID, notification.TemplateRenewalFailed, map[string]string{
			"service_id": svc.ID,
		}); err != nil {
			s.Logger.Errorw("failed to send renewal failure notification",
				"service_id", svc.ID, "error", err)
		}
		return cause
	}

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}
	return cause
}

func (s *renewalService) Dequeue(ctx context.Context, serviceID string) error {
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	if !svc.InManualQueue {
		return ierr.NewError("service is not in the manual queue").
			WithHintf("service %s has no queued renewal", svc.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	svc.InManualQueue = false
	svc.RenewalAttempts = 0
	return s.ServiceRepo.Update(ctx, svc)
}

func (s *renewalService) SetMaxAttempts(ctx context.Context, serviceID string, maxAttempts *int) error {
	if maxAttempts != nil && *maxAttempts < 1 {
		return ierr.NewError("max attempts must be at least 1").
			WithHint("use nil to restore the company default").
			Mark(ierr.ErrValidation)
	}
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	svc.MaxRenewalAttempts = maxAttempts
	return s.ServiceRepo.Update(ctx, svc)
}
