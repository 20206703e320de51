package service

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/billforge/billforge/internal/domain/invoice"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/provisioning"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// CancelParams controls a cancellation request. A nil At cancels
// immediately; a future At schedules the cancellation for that date.
type CancelParams struct {
	Reason string
	At     *time.Time
}

// LifecycleService drives service state transitions and the automation
// passes built on them. Every transition runs the package's provisioning
// hook first: a hook failure aborts the transition and leaves the
// service in its prior state.
type LifecycleService interface {
	Activate(ctx context.Context, serviceID string) error
	Suspend(ctx context.Context, serviceID, reason string) error
	Unsuspend(ctx context.Context, serviceID string) error
	Cancel(ctx context.Context, serviceID string, params CancelParams) error
	// DoNotCancel clears a scheduled cancellation
	DoNotCancel(ctx context.Context, serviceID string) error

	// ActivatePaidPending activates a client's pending services that have
	// no open invoice left
	ActivatePaidPending(ctx context.Context, clientID string) error

	// SuspendOverdue suspends services on invoices unpaid for the
	// configured number of days past due
	SuspendOverdue(ctx context.Context, now time.Time) (int, error)
	// UnsuspendPaid reactivates services suspended for nonpayment once
	// nothing open references them
	UnsuspendPaid(ctx context.Context, now time.Time) (int, error)
	// ProcessScheduledCancellations cancels services whose scheduled date
	// has arrived, including their addon children
	ProcessScheduledCancellations(ctx context.Context, now time.Time) (int, error)
}

type lifecycleService struct {
	ServiceParams
	invoices InvoiceService
	settings SettingsService
}

// NewLifecycleService creates a lifecycle service
func NewLifecycleService(params ServiceParams) LifecycleService {
	return &lifecycleService{
		ServiceParams: params,
		invoices:      NewInvoiceService(params),
		settings:      NewSettingsService(params),
	}
}

const suspensionReasonUnpaid = "Unpaid invoice"

func (s *lifecycleService) Activate(ctx context.Context, serviceID string) error {
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	pkg, err := s.PlanRepo.GetPackage(ctx, svc.PackageID)
	if err != nil {
		return err
	}

	if err := s.Modules.Resolve(pkg.ModuleKey).Activate(ctx, svc); err != nil {
		if provisioning.IsReviewRequired(err) {
			if terr := svc.Transition(types.ServiceStatusInReview); terr != nil {
				return terr
			}
			s.Logger.Infow("service held for manual review",
				"service_id", svc.ID, "module", pkg.ModuleKey)
			return s.ServiceRepo.Update(ctx, svc)
		}
		return err
	}
	if err := svc.Transition(types.ServiceStatusActive); err != nil {
		return err
	}

	if svc.DateRenews == nil {
		pricing, err := s.PlanRepo.GetPricing(ctx, svc.PricingID)
		if err != nil {
			return err
		}
		if pricing.Period.IsRecurring() {
			renews := pricing.Period.AddTerm(svc.DateAdded, pricing.Term)
			svc.DateRenews = &renews
		}
	}

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	s.notify(ctx, svc.ClientID, notification.TemplateServiceActivated, svc.ID)
	return nil
}

func (s *lifecycleService) Suspend(ctx context.Context, serviceID, reason string) error {
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	pkg, err := s.PlanRepo.GetPackage(ctx, svc.PackageID)
	if err != nil {
		return err
	}

	if err := s.Modules.Resolve(pkg.ModuleKey).Suspend(ctx, svc); err != nil {
		return err
	}
	if err := svc.Transition(types.ServiceStatusSuspended); err != nil {
		return err
	}

	now := time.Now().UTC()
	svc.DateSuspended = &now
	svc.SuspensionReason = reason

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	s.notify(ctx, svc.ClientID, notification.TemplateServiceSuspended, svc.ID)
	return nil
}

func (s *lifecycleService) Unsuspend(ctx context.Context, serviceID string) error {
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	pkg, err := s.PlanRepo.GetPackage(ctx, svc.PackageID)
	if err != nil {
		return err
	}

	if err := s.Modules.Resolve(pkg.ModuleKey).Unsuspend(ctx, svc); err != nil {
		return err
	}
	if err := svc.Transition(types.ServiceStatusActive); err != nil {
		return err
	}

	svc.DateSuspended = nil
	svc.SuspensionReason = ""

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	s.notify(ctx, svc.ClientID, notification.TemplateServiceUnsuspended, svc.ID)
	return nil
}

func (s *lifecycleService) Cancel(ctx context.Context, serviceID string, params CancelParams) error {
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}

	if params.At != nil {
		if svc.ServiceStatus.IsTerminal() {
			return ierr.NewError("service is already canceled").
				WithHintf("service %s cannot be scheduled for cancellation", svc.ID).
				Mark(ierr.ErrInvalidOperation)
		}
		svc.DateCanceled = params.At
		svc.CancellationReason = params.Reason
		return s.ServiceRepo.Update(ctx, svc)
	}

	return s.cancelNow(ctx, svc, params.Reason, true)
}

func (s *lifecycleService) cancelNow(ctx context.Context, svc *domainService.Service, reason string, chargeCancelFee bool) error {
	pkg, err := s.PlanRepo.GetPackage(ctx, svc.PackageID)
	if err != nil {
		return err
	}

	if err := s.Modules.Resolve(pkg.ModuleKey).Cancel(ctx, svc); err != nil {
		return err
	}
	if err := svc.Transition(types.ServiceStatusCanceled); err != nil {
		return err
	}

	now := time.Now().UTC()
	svc.DateCanceled = &now
	svc.CancellationReason = reason

	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return err
	}

	// addons cannot outlive their parent
	children, err := s.ServiceRepo.ListChildren(ctx, svc.ID)
	if err != nil {
		return err
	}
	for _, child := range children {
		if child.ServiceStatus.IsTerminal() {
			continue
		}
		if err := s.cancelNow(ctx, child, fmt.Sprintf("Parent service %s canceled", svc.ID), false); err != nil {
			s.Logger.Errorw("failed to cancel child service",
				"service_id", child.ID, "parent_id", svc.ID, "error", err)
		}
	}

	if err := s.voidCanceledServiceInvoices(ctx, svc, now); err != nil {
		return err
	}

	if chargeCancelFee {
		if err := s.chargeCancelFee(ctx, svc, pkg.Taxable, now); err != nil {
			return err
		}
	}

	s.notify(ctx, svc.ClientID, notification.TemplateServiceCanceled, svc.ID)
	return nil
}

// voidCanceledServiceInvoices clears the canceled service's charges off
// open invoices, when the company setting allows it. Invoices covering
// only that service are voided outright; invoices shared with other
// charges get just the service's lines stripped and their totals
// recomputed. A nonzero day window restricts both to invoices billed
// that recently.
func (s *lifecycleService) voidCanceledServiceInvoices(ctx context.Context, svc *domainService.Service, now time.Time) error {
	enabled, err := s.settings.GetBool(ctx, settings.KeyVoidInvoiceCanceledService)
	if err != nil || !enabled {
		return err
	}
	windowDays, err := s.settings.GetInt(ctx, settings.KeyVoidInvCanceledServiceDays)
	if err != nil {
		return err
	}

	open, err := s.InvoiceRepo.ListOpen(ctx, svc.ClientID)
	if err != nil {
		return err
	}
	for _, inv := range open {
		if len(inv.ServiceLineIndexes(svc.ID)) == 0 {
			continue
		}
		if windowDays > 0 && types.DaysBetween(inv.DateBilled, now) > windowDays {
			continue
		}

		if inv.OnlyForService(svc.ID) {
			if err := inv.Void(); err != nil {
				s.Logger.Infow("skipping invoice void",
					"invoice_id", inv.ID, "error", err)
				continue
			}
			if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
				return err
			}
			continue
		}

		// a shared invoice keeps its other charges
		if _, err := inv.StripServiceLines(svc.ID); err != nil {
			s.Logger.Infow("skipping invoice line strip",
				"invoice_id", inv.ID, "error", err)
			continue
		}
		if err := s.invoices.Finalize(ctx, inv); err != nil {
			return err
		}
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return err
		}
	}
	return nil
}

// chargeCancelFee invoices the pricing's cancel fee when an active
// mid-term service is canceled immediately
func (s *lifecycleService) chargeCancelFee(ctx context.Context, svc *domainService.Service, pkgTaxable bool, now time.Time) error {
	pricing, err := s.PlanRepo.GetPricing(ctx, svc.PricingID)
	if err != nil {
		return err
	}
	if !pricing.CancelFee.IsPositive() {
		return nil
	}
	if svc.DateRenews == nil || !svc.DateRenews.After(now) {
		// not mid-term, nothing left to compensate
		return nil
	}

	taxCancelFees, err := s.settings.GetBool(ctx, settings.KeyTaxCancelFees)
	if err != nil {
		return err
	}

	inv, err := s.invoices.CreateDraft(ctx, svc.ClientID, now)
	if err != nil {
		return err
	}
	inv.Currency = pricing.Currency
	line := invoice.NewLineItem(
		types.LineItemTypeCancelFee,
		"Cancellation Fee",
		decimal.NewFromInt(1),
		pricing.CancelFee,
		inv.Currency,
	)
	line.ServiceID = &svc.ID
	line.Taxable = pkgTaxable && taxCancelFees
	if err := inv.AddLine(line); err != nil {
		return err
	}
	if err := s.invoices.Finalize(ctx, inv); err != nil {
		return err
	}
	return s.InvoiceRepo.Create(ctx, inv)
}

func (s *lifecycleService) DoNotCancel(ctx context.Context, serviceID string) error {
	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return err
	}
	if svc.ServiceStatus.IsTerminal() {
		return ierr.NewError("service is already canceled").
			WithHintf("service %s has no scheduled cancellation to clear", svc.ID).
			Mark(ierr.ErrInvalidOperation)
	}
	svc.DateCanceled = nil
	svc.CancellationReason = ""
	return s.ServiceRepo.Update(ctx, svc)
}

func (s *lifecycleService) ActivatePaidPending(ctx context.Context, clientID string) error {
	services, err := s.ServiceRepo.ListByClient(ctx, clientID)
	if err != nil {
		return err
	}
	open, err := s.InvoiceRepo.ListOpen(ctx, clientID)
	if err != nil {
		return err
	}

	for _, svc := range services {
		if svc.ServiceStatus != types.ServiceStatusPending {
			continue
		}
		if serviceHasOpenInvoice(open, svc.ID) {
			continue
		}
		if err := s.Activate(ctx, svc.ID); err != nil {
			s.Logger.Errorw("failed to activate paid pending service",
				"service_id", svc.ID, "error", err)
		}
	}
	return nil
}

func (s *lifecycleService) SuspendOverdue(ctx context.Context, now time.Time) (int, error) {
	graceDays, err := s.settings.GetInt(ctx, settings.KeySuspendServicesDaysAfter)
	if err != nil {
		return 0, err
	}

	overdue, err := s.InvoiceRepo.ListOverdue(ctx, now, graceDays)
	if err != nil {
		return 0, err
	}

	suspended := 0
	seen := make(map[string]bool)
	for _, inv := range overdue {
		for _, line := range inv.Lines {
			if line.ServiceID == nil || seen[*line.ServiceID] {
				continue
			}
			seen[*line.ServiceID] = true

			svc, err := s.ServiceRepo.Get(ctx, *line.ServiceID)
			if err != nil || svc.ServiceStatus != types.ServiceStatusActive {
				continue
			}
			reason := fmt.Sprintf("%s %s", suspensionReasonUnpaid, inv.InvoiceNumber)
			if err := s.Suspend(ctx, svc.ID, reason); err != nil {
				s.Logger.Errorw("failed to suspend overdue service",
					"service_id", svc.ID, "invoice_id", inv.ID, "error", err)
				continue
			}
			suspended++
		}
	}

	return suspended, nil
}

func (s *lifecycleService) UnsuspendPaid(ctx context.Context, now time.Time) (int, error) {
	services, err := s.ServiceRepo.ListSuspended(ctx)
	if err != nil {
		return 0, err
	}

	unsuspended := 0
	for _, svc := range services {
		if !strings.HasPrefix(svc.SuspensionReason, suspensionReasonUnpaid) {
			// manual suspensions are lifted manually
			continue
		}

		open, err := s.InvoiceRepo.ListOpen(ctx, svc.ClientID)
		if err != nil {
			return unsuspended, err
		}
		if serviceHasOpenInvoice(open, svc.ID) {
			continue
		}

		if err := s.Unsuspend(ctx, svc.ID); err != nil {
			s.Logger.Errorw("failed to unsuspend paid service",
				"service_id", svc.ID, "error", err)
			continue
		}
		unsuspended++
	}

	return unsuspended, nil
}

func (s *lifecycleService) ProcessScheduledCancellations(ctx context.Context, now time.Time) (int, error) {
	due, err := s.ServiceRepo.ListScheduledCancellations(ctx, now)
	if err != nil {
		return 0, err
	}

	canceled := 0
	for _, svc := range due {
		// end-of-term cancellations carry no cancel fee
		if err := s.cancelNow(ctx, svc, svc.CancellationReason, false); err != nil {
			s.Logger.Errorw("failed to process scheduled cancellation",
				"service_id", svc.ID, "error", err)
			continue
		}
		canceled++
	}

	return canceled, nil
}

func (s *lifecycleService) notify(ctx context.Context, clientID, templateKey, serviceID string) {
	if err := s.Notifier.Send(ctx, clientID, templateKey, map[string]string{
		"service_id": serviceID,
	}); err != nil {
		s.Logger.Errorw("failed to send service notification",
			"client_id", clientID, "template", templateKey, "error", err)
	}
}

func serviceHasOpenInvoice(open []*invoice.Invoice, serviceID string) bool {
	for _, inv := range open {
		if len(inv.ServiceLineIndexes(serviceID)) > 0 {
			return true
		}
	}
	return false
}
