package service

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/recurringinvoice"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/types"
)

// BillingService generates renewal invoices for services and stamps
// recurring invoice templates. Both passes are idempotent: re-running
// them for the same date produces no duplicate invoices.
type BillingService interface {
	// GenerateRenewalInvoices bills services renewing within the
	// configured lead window and returns how many invoices were created
	GenerateRenewalInvoices(ctx context.Context, now time.Time) (int, error)

	// GenerateRecurringInvoices stamps due recurring templates, advancing
	// each template only after its invoice is persisted
	GenerateRecurringInvoices(ctx context.Context, now time.Time) (int, error)
}

type billingService struct {
	ServiceParams
	invoices InvoiceService
	settings SettingsService
}

// NewBillingService creates a billing service
func NewBillingService(params ServiceParams) BillingService {
	return &billingService{
		ServiceParams: params,
		invoices:      NewInvoiceService(params),
		settings:      NewSettingsService(params),
	}
}

func (s *billingService) GenerateRenewalInvoices(ctx context.Context, now time.Time) (int, error) {
	leadDays, err := s.settings.GetInt(ctx, settings.KeyInvDaysBeforeRenewal)
	if err != nil {
		return 0, err
	}
	billSuspended, err := s.settings.GetBool(ctx, settings.KeyInvSuspendedServices)
	if err != nil {
		return 0, err
	}

	horizon := now.AddDate(0, 0, leadDays)
	due, err := s.ServiceRepo.ListRenewalsDue(ctx, horizon, billSuspended)
	if err != nil {
		return 0, err
	}

	// group billable services by client and renewal day so one client
	// invoice covers everything renewing together
	type groupKey struct {
		clientID string
		day      string
	}
	groups := make(map[groupKey][]*domainService.Service)
	var order []groupKey

	for _, svc := range due {
		if skip, err := s.skipRenewal(ctx, svc); err != nil {
			return 0, err
		} else if skip {
			continue
		}
		// a deferred downgrade takes effect with this renewal's invoice
		if svc.ApplyPendingChange() {
			if err := s.ServiceRepo.Update(ctx, svc); err != nil {
				return 0, err
			}
		}
		key := groupKey{clientID: svc.ClientID, day: svc.DateRenews.UTC().Format("2006-01-02")}
		if _, seen := groups[key]; !seen {
			order = append(order, key)
		}
		groups[key] = append(groups[key], svc)
	}

	created := 0
	for _, key := range order {
		batch := groups[key]
		invoices, err := s.invoices.InvoiceServices(ctx, key.clientID, batch, true, *batch[0].DateRenews)
		if err != nil {
			// one client failing must not starve the rest of the batch
			s.Logger.Errorw("failed to bill renewal group",
				"client_id", key.clientID, "error", err)
			continue
		}
		created += len(invoices)
	}

	return created, nil
}

// skipRenewal filters out services that must not be billed: those
// scheduled to cancel at or before their renewal date, and periods
// already covered by an earlier run
func (s *billingService) skipRenewal(ctx context.Context, svc *domainService.Service) (bool, error) {
	if svc.DateRenews == nil {
		return true, nil
	}
	if svc.DateCanceled != nil && !svc.DateCanceled.After(*svc.DateRenews) {
		return true, nil
	}
	exists, err := s.InvoiceRepo.ExistsForServicePeriod(ctx, svc.ID, *svc.DateRenews)
	if err != nil {
		return false, err
	}
	return exists, nil
}

func (s *billingService) GenerateRecurringInvoices(ctx context.Context, now time.Time) (int, error) {
	due, err := s.RecurringInvoiceRepo.ListDue(ctx, now)
	if err != nil {
		return 0, err
	}

	created := 0
	for _, tmpl := range due {
		// a template that fell behind catches up one invoice per period
		for tmpl.IsDue(now) {
			if err := s.stampTemplate(ctx, tmpl); err != nil {
				s.Logger.Errorw("failed to stamp recurring invoice",
					"recurring_invoice_id", tmpl.ID, "error", err)
				break
			}
			created++
		}
	}

	return created, nil
}

func (s *billingService) stampTemplate(ctx context.Context, tmpl *recurringinvoice.RecurringInvoice) error {
	cl, err := s.ClientRepo.Get(ctx, tmpl.ClientID)
	if err != nil {
		return err
	}

	generatedAt := tmpl.NextGeneration
	inv, err := s.invoices.CreateDraft(ctx, tmpl.ClientID, generatedAt.AddDate(0, 0, tmpl.DueDays))
	if err != nil {
		return err
	}
	inv.Currency = tmpl.Currency
	inv.RecurringInvoiceID = &tmpl.ID
	inv.AutodebitEligible = tmpl.AutodebitEligible && cl.CanAutodebit()
	inv.DeliveryMethod = tmpl.DeliveryMethod

	for _, tl := range tmpl.Lines {
		line := invoice.NewLineItem(
			types.LineItemTypeManual,
			tl.Description,
			tl.Qty,
			tl.UnitAmount,
			tmpl.Currency,
		)
		line.Taxable = tl.Taxable
		if err := inv.AddLine(line); err != nil {
			return err
		}
	}

	if err := s.invoices.Finalize(ctx, inv); err != nil {
		return err
	}
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return err
	}

	// advance only after the invoice exists so a crash re-stamps rather
	// than skips
	tmpl.Advance()
	if err := s.RecurringInvoiceRepo.Update(ctx, tmpl); err != nil {
		return err
	}

	s.Logger.Infow("stamped recurring invoice",
		"recurring_invoice_id", tmpl.ID,
		"invoice_id", inv.ID,
		"generated_count", tmpl.GeneratedCount,
	)
	return nil
}
