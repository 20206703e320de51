package service

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/plan"
	"github.com/billforge/billforge/internal/domain/proration"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/types"
	"github.com/billforge/billforge/internal/validator"
	"github.com/shopspring/decimal"
)

// ChangeServiceParams describes a mid-cycle package or option change.
// A nil NewOptions keeps the current option selections.
type ChangeServiceParams struct {
	NewPricingID string `validate:"required"`
	NewOptions   map[string]string
}

// ChangeServiceResult reports what the change produced: an invoice for
// the prorated difference, or a deferral to the next renewal when a
// downgrade credit is suppressed.
type ChangeServiceResult struct {
	Invoice  *invoice.Invoice
	Deferred bool
}

// ServiceChangeService applies mid-cycle package and option changes,
// billing or crediting the prorated difference for the remainder of the
// current period.
type ServiceChangeService interface {
	ChangeService(ctx context.Context, serviceID string, params ChangeServiceParams) (*ChangeServiceResult, error)
}

type serviceChangeService struct {
	ServiceParams
	invoices   InvoiceService
	settings   SettingsService
	calculator *proration.Calculator
}

// NewServiceChangeService creates a service change service
func NewServiceChangeService(params ServiceParams) ServiceChangeService {
	return &serviceChangeService{
		ServiceParams: params,
		invoices:      NewInvoiceService(params),
		settings:      NewSettingsService(params),
		calculator:    proration.NewCalculator(),
	}
}

func (s *serviceChangeService) ChangeService(ctx context.Context, serviceID string, params ChangeServiceParams) (*ChangeServiceResult, error) {
	if err := validator.ValidateRequest(params); err != nil {
		return nil, err
	}

	svc, err := s.ServiceRepo.Get(ctx, serviceID)
	if err != nil {
		return nil, err
	}
	if svc.ServiceStatus != types.ServiceStatusActive {
		return nil, ierr.NewError("only active services can be changed").
			WithHintf("service %s is %s", svc.ID, svc.ServiceStatus).
			Mark(ierr.ErrInvalidOperation)
	}
	if svc.DateRenews == nil {
		return nil, ierr.NewError("one-time services cannot be changed mid-cycle").
			WithHintf("service %s has no renewal date", svc.ID).
			Mark(ierr.ErrInvalidOperation)
	}

	oldPricing, err := s.PlanRepo.GetPricing(ctx, svc.PricingID)
	if err != nil {
		return nil, err
	}
	newPricing, err := s.PlanRepo.GetPricing(ctx, params.NewPricingID)
	if err != nil {
		return nil, err
	}
	if !types.IsMatchingCurrency(oldPricing.Currency, newPricing.Currency) {
		return nil, ierr.NewError("new pricing currency does not match").
			WithReportableDetails(map[string]any{
				"old_currency": oldPricing.Currency,
				"new_currency": newPricing.Currency,
			}).
			Mark(ierr.ErrValidation)
	}
	newPkg, err := s.PlanRepo.GetPackage(ctx, newPricing.PackageID)
	if err != nil {
		return nil, err
	}

	now := time.Now().UTC()
	remaining := types.DaysBetween(now, *svc.DateRenews)
	periodDays := oldPricing.Period.PeriodDays(*svc.DateRenews, oldPricing.Term)
	if remaining > periodDays {
		remaining = periodDays
	}
	prorateCredits, err := s.settings.GetBool(ctx, settings.KeyClientProrateCredits)
	if err != nil {
		return nil, err
	}

	qty := decimal.NewFromInt(int64(svc.Qty))
	oldPrice := oldPricing.Price
	if svc.OverridePrice != nil {
		oldPrice = *svc.OverridePrice
	}

	base, err := s.calculator.Calculate(proration.Params{
		OldPrice:       oldPrice.Mul(qty),
		NewPrice:       newPricing.Price.Mul(qty),
		RemainingDays:  remaining,
		PeriodDays:     periodDays,
		Currency:       oldPricing.Currency,
		Description:    fmt.Sprintf("%s (%d %s)", newPkg.Name, newPricing.Term, newPricing.Period),
		ProrateCredits: prorateCredits,
	})
	if err != nil {
		return nil, err
	}

	newOptions := svc.OptionSelections
	if params.NewOptions != nil {
		newOptions = params.NewOptions
	}
	optionChanges, err := s.optionChanges(ctx, svc, oldPricing, newPricing, newOptions, qty)
	if err != nil {
		return nil, err
	}
	options, err := s.calculator.CalculateOptions(optionChanges, proration.Params{
		RemainingDays:  remaining,
		PeriodDays:     periodDays,
		Currency:       oldPricing.Currency,
		ProrateCredits: prorateCredits,
	})
	if err != nil {
		return nil, err
	}

	if base.Deferred || options.Deferred {
		svc.PendingPricingID = &newPricing.ID
		svc.PendingOptions = newOptions
		if err := s.ServiceRepo.Update(ctx, svc); err != nil {
			return nil, err
		}
		s.Logger.Infow("service change deferred to next renewal",
			"service_id", svc.ID,
			"new_pricing_id", newPricing.ID)
		return &ChangeServiceResult{Deferred: true}, nil
	}

	svc.PackageID = newPkg.ID
	svc.PricingID = newPricing.ID
	svc.OptionSelections = newOptions
	// an explicit change supersedes any price override
	svc.OverridePrice = nil
	if err := s.ServiceRepo.Update(ctx, svc); err != nil {
		return nil, err
	}

	lines := append(base.Lines, options.Lines...)
	if len(lines) == 0 {
		return &ChangeServiceResult{}, nil
	}

	inv, err := s.prorationInvoice(ctx, svc, newPkg, lines, now)
	if err != nil {
		return nil, err
	}

	s.Logger.Infow("changed service",
		"service_id", svc.ID,
		"pricing_id", newPricing.ID,
		"invoice_id", inv.ID,
		"net_amount", base.NetAmount().Add(options.NetAmount()))
	return &ChangeServiceResult{Invoice: inv}, nil
}

// optionChanges diffs the old and new option selections into prorated
// price changes; additions and removals prorate like any other change
func (s *serviceChangeService) optionChanges(ctx context.Context, svc *domainService.Service, oldPricing, newPricing *plan.Pricing, newOptions map[string]string, qty decimal.Decimal) ([]proration.OptionChange, error) {
	changes := make([]proration.OptionChange, 0)

	seen := make(map[string]bool)
	for optionID, oldValueID := range svc.OptionSelections {
		seen[optionID] = true
		newValueID, kept := newOptions[optionID]
		if kept && newValueID == oldValueID && oldPricing.ID == newPricing.ID {
			continue
		}

		oldValue, err := s.PlanRepo.GetOptionValue(ctx, oldValueID)
		if err != nil {
			return nil, err
		}
		change := proration.OptionChange{OptionName: oldValue.Name}
		if op := oldValue.PricingFor(oldPricing.Term, oldPricing.Period, oldPricing.Currency); op != nil {
			change.OldPrice = op.Price.Mul(qty)
		}
		if kept {
			newValue, err := s.PlanRepo.GetOptionValue(ctx, newValueID)
			if err != nil {
				return nil, err
			}
			change.OptionName = newValue.Name
			if op := newValue.PricingFor(newPricing.Term, newPricing.Period, newPricing.Currency); op != nil {
				change.NewPrice = op.Price.Mul(qty)
			}
		}
		changes = append(changes, change)
	}

	for optionID, valueID := range newOptions {
		if seen[optionID] {
			continue
		}
		value, err := s.PlanRepo.GetOptionValue(ctx, valueID)
		if err != nil {
			return nil, err
		}
		change := proration.OptionChange{OptionName: value.Name}
		if op := value.PricingFor(newPricing.Term, newPricing.Period, newPricing.Currency); op != nil {
			change.NewPrice = op.Price.Mul(qty)
		}
		changes = append(changes, change)
	}

	return changes, nil
}

// prorationInvoice bills the signed prorated lines as one invoice due
// immediately
func (s *serviceChangeService) prorationInvoice(ctx context.Context, svc *domainService.Service, pkg *plan.Package, lines []proration.Line, now time.Time) (*invoice.Invoice, error) {
	inv, err := s.invoices.CreateDraft(ctx, svc.ClientID, now)
	if err != nil {
		return nil, err
	}

	var parentIndex *int
	for _, pl := range lines {
		line := invoice.NewLineItem(
			types.LineItemTypeProration,
			pl.Description,
			decimal.NewFromInt(1),
			pl.Amount,
			inv.Currency,
		)
		line.ServiceID = &svc.ID
		line.Taxable = pkg.Taxable
		if pl.IsOption && parentIndex != nil {
			idx := *parentIndex
			line.ParentIndex = &idx
		}
		if err := inv.AddLine(line); err != nil {
			return nil, err
		}
		if !pl.IsOption {
			idx := len(inv.Lines) - 1
			parentIndex = &idx
		}
	}

	if err := s.invoices.Finalize(ctx, inv); err != nil {
		return nil, err
	}
	if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
		return nil, err
	}
	return inv, nil
}
