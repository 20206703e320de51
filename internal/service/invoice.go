package service

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/invoice"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/domain/tax"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
)

// InvoiceService builds, finalizes and delivers invoices
type InvoiceService interface {
	// CreateDraft opens an empty draft invoice for a client
	CreateDraft(ctx context.Context, clientID string, dateDue time.Time) (*invoice.Invoice, error)

	// AddServiceCharges appends the full charge set for one service: the
	// base line, option child lines, the setup fee on initial orders, and
	// the coupon discount
	AddServiceCharges(ctx context.Context, inv *invoice.Invoice, svc *domainService.Service, renewal bool) error

	// Finalize computes tax over the taxable lines, sets totals and
	// activates the invoice
	Finalize(ctx context.Context, inv *invoice.Invoice) error

	// InvoiceServices bills a batch of services, honoring the service
	// grouping setting, and persists the resulting invoices
	InvoiceServices(ctx context.Context, clientID string, services []*domainService.Service, renewal bool, dateDue time.Time) ([]*invoice.Invoice, error)

	// ConvertQuotation turns an approved quotation into one invoice, or a
	// deposit/remainder pair when a deposit percentage is set
	ConvertQuotation(ctx context.Context, quotationID string) ([]*invoice.Invoice, error)

	// DeliverPending sends every active undelivered invoice through the
	// client's delivery method and returns how many went out
	DeliverPending(ctx context.Context) (int, error)

	Void(ctx context.Context, invoiceID string) error
}

type invoiceService struct {
	ServiceParams
	coupons  CouponService
	settings SettingsService
}

// NewInvoiceService creates an invoice service
func NewInvoiceService(params ServiceParams) InvoiceService {
	return &invoiceService{
		ServiceParams: params,
		coupons:       NewCouponService(params),
		settings:      NewSettingsService(params),
	}
}

func (s *invoiceService) CreateDraft(ctx context.Context, clientID string, dateDue time.Time) (*invoice.Invoice, error) {
	cl, err := s.ClientRepo.Get(ctx, clientID)
	if err != nil {
		return nil, err
	}

	invoiceType, err := s.settings.Get(ctx, settings.KeyDefaultInvoiceType)
	if err != nil {
		return nil, err
	}

	return &invoice.Invoice{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		ClientID:          cl.ID,
		InvoiceStatus:     types.InvoiceStatusDraft,
		InvoiceType:       types.InvoiceType(invoiceType),
		Currency:          cl.DefaultCurrency,
		DateBilled:        time.Now().UTC(),
		DateDue:           dateDue,
		AutodebitEligible: cl.CanAutodebit(),
		DeliveryMethod:    cl.DeliveryMethod,
		Subtotal:          decimal.Zero,
		TaxTotal:          decimal.Zero,
		Total:             decimal.Zero,
		AmountPaid:        decimal.Zero,
		BaseModel:         types.GetDefaultBaseModel(ctx),
	}, nil
}

func (s *invoiceService) AddServiceCharges(ctx context.Context, inv *invoice.Invoice, svc *domainService.Service, renewal bool) error {
	pricing, err := s.PlanRepo.GetPricing(ctx, svc.PricingID)
	if err != nil {
		return err
	}
	pkg, err := s.PlanRepo.GetPackage(ctx, svc.PackageID)
	if err != nil {
		return err
	}

	currency := pricing.Currency
	if svc.OverrideCurrency != nil {
		currency = *svc.OverrideCurrency
	}
	if !types.IsMatchingCurrency(currency, inv.Currency) {
		return ierr.NewError("service currency does not match invoice").
			WithReportableDetails(map[string]any{
				"service_id":       svc.ID,
				"service_currency": currency,
				"invoice_currency": inv.Currency,
			}).
			Mark(ierr.ErrValidation)
	}

	unitPrice := pricing.Price
	if renewal {
		unitPrice = pricing.RenewalPrice()
	}
	if svc.OverridePrice != nil {
		unitPrice = *svc.OverridePrice
	}

	base := invoice.NewLineItem(
		types.LineItemTypeService,
		fmt.Sprintf("%s (%d %s)", pkg.Name, pricing.Term, pricing.Period),
		decimal.NewFromInt(int64(svc.Qty)),
		unitPrice,
		inv.Currency,
	)
	base.ServiceID = &svc.ID
	base.Taxable = pkg.Taxable
	if err := inv.AddLine(base); err != nil {
		return err
	}
	baseIndex := len(inv.Lines) - 1

	setupFee := pricing.SetupFee
	optionsTotal := decimal.Zero

	for _, valueID := range svc.OptionSelections {
		value, err := s.PlanRepo.GetOptionValue(ctx, valueID)
		if err != nil {
			return err
		}
		op := value.PricingFor(pricing.Term, pricing.Period, inv.Currency)
		if op == nil {
			continue
		}
		setupFee = setupFee.Add(op.SetupFee)
		if op.Price.IsZero() {
			continue
		}

		line := invoice.NewLineItem(
			types.LineItemTypeOption,
			value.Name,
			decimal.NewFromInt(int64(svc.Qty)),
			op.Price,
			inv.Currency,
		)
		line.ServiceID = &svc.ID
		line.Taxable = pkg.Taxable
		idx := baseIndex
		line.ParentIndex = &idx
		if err := inv.AddLine(line); err != nil {
			return err
		}
		optionsTotal = optionsTotal.Add(line.Amount)
	}

	if !renewal && setupFee.IsPositive() {
		taxSetup, err := s.settings.GetBool(ctx, settings.KeyTaxSetupFees)
		if err != nil {
			return err
		}
		line := invoice.NewLineItem(
			types.LineItemTypeSetupFee,
			fmt.Sprintf("%s Setup Fee", pkg.Name),
			decimal.NewFromInt(1),
			setupFee,
			inv.Currency,
		)
		line.ServiceID = &svc.ID
		line.Taxable = pkg.Taxable && taxSetup
		if err := inv.AddLine(line); err != nil {
			return err
		}
	}

	if svc.CouponID != nil {
		if err := s.applyServiceCoupon(ctx, inv, svc, pkg.GroupID, pricing.Term, pricing.Period, renewal, base.Amount, optionsTotal, pkg.Taxable); err != nil {
			return err
		}
	}

	return nil
}

// applyServiceCoupon re-validates and applies a service's coupon. A
// coupon that no longer validates at renewal drops off silently; the
// renewal must not fail because a promotion ended. Option charges join
// the discountable base only when the coupon opts into them.
func (s *invoiceService) applyServiceCoupon(ctx context.Context, inv *invoice.Invoice, svc *domainService.Service, groupID string, term int, period types.BillingPeriod, renewal bool, baseAmount, optionsTotal decimal.Decimal, taxable bool) error {
	c, err := s.CouponRepo.Get(ctx, *svc.CouponID)
	if err != nil {
		if ierr.IsNotFound(err) {
			return nil
		}
		return err
	}

	result, err := s.coupons.Validate(ctx, c.Code, CouponValidationParams{
		PackageID:      svc.PackageID,
		PackageGroupID: groupID,
		Term:           term,
		Period:         period,
		Currency:       inv.Currency,
		Now:            time.Now().UTC(),
		IsRenewal:      renewal,
		StaffInitiated: true,
	})
	if err != nil {
		return err
	}
	if !result.Valid {
		s.Logger.Infow("coupon no longer valid, billing without discount",
			"coupon_id", c.ID,
			"service_id", svc.ID,
			"reason", result.Code,
		)
		return nil
	}

	discountable := baseAmount
	if c.ApplyPackageOptions {
		discountable = discountable.Add(optionsTotal)
	}
	return s.coupons.ApplyToInvoice(ctx, inv, c, discountable, taxable)
}

func (s *invoiceService) Finalize(ctx context.Context, inv *invoice.Invoice) error {
	cl, err := s.ClientRepo.Get(ctx, inv.ClientID)
	if err != nil {
		return err
	}

	comp, err := s.computeTax(ctx, cl, inv.TaxableSubtotal())
	if err != nil {
		return err
	}

	// exclusive taxes are collected at payment time and stay out of the
	// displayed total; exempt adjustments reduce it
	inv.Recalculate(comp.AddedTax().Add(comp.ExemptAdjustment))
	inv.InvoiceStatus = types.InvoiceStatusActive
	return nil
}

func (s *invoiceService) computeTax(ctx context.Context, cl *client.Client, taxableSubtotal decimal.Decimal) (tax.Computation, error) {
	rules, err := s.TaxRuleRepo.ListActive(ctx)
	if err != nil {
		return tax.Computation{}, err
	}
	cascade, err := s.settings.GetBool(ctx, settings.KeyCascadeTax)
	if err != nil {
		return tax.Computation{}, err
	}

	resolved := tax.ResolveRules(rules, cl.Country, cl.State)
	return tax.Compute(taxableSubtotal, resolved, tax.ComputeOptions{
		CascadeTax: cascade,
		TaxExempt:  cl.TaxExempt,
	}), nil
}

func (s *invoiceService) InvoiceServices(ctx context.Context, clientID string, services []*domainService.Service, renewal bool, dateDue time.Time) ([]*invoice.Invoice, error) {
	if len(services) == 0 {
		return nil, nil
	}

	group, err := s.settings.GetBool(ctx, settings.KeyInvGroupServices)
	if err != nil {
		return nil, err
	}

	batches := [][]*domainService.Service{services}
	if !group {
		batches = make([][]*domainService.Service, 0, len(services))
		for _, svc := range services {
			batches = append(batches, []*domainService.Service{svc})
		}
	}

	var invoices []*invoice.Invoice
	for _, batch := range batches {
		inv, err := s.CreateDraft(ctx, clientID, dateDue)
		if err != nil {
			return invoices, err
		}
		for _, svc := range batch {
			if err := s.AddServiceCharges(ctx, inv, svc, renewal); err != nil {
				return invoices, err
			}
		}
		if err := s.Finalize(ctx, inv); err != nil {
			return invoices, err
		}
		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return invoices, err
		}
		invoices = append(invoices, inv)

		s.Logger.Infow("created invoice",
			"invoice_id", inv.ID,
			"invoice_number", inv.InvoiceNumber,
			"client_id", clientID,
			"services", len(batch),
			"total", inv.Total,
			"renewal", renewal,
		)
	}

	return invoices, nil
}

func (s *invoiceService) ConvertQuotation(ctx context.Context, quotationID string) ([]*invoice.Invoice, error) {
	q, err := s.QuotationRepo.Get(ctx, quotationID)
	if err != nil {
		return nil, err
	}
	if !q.QuotationStatus.CanInvoice() {
		return nil, ierr.NewError("quotation cannot be invoiced").
			WithHintf("quotation %s is %s", q.ID, q.QuotationStatus).
			Mark(ierr.ErrInvalidOperation)
	}

	cl, err := s.ClientRepo.Get(ctx, q.ClientID)
	if err != nil {
		return nil, err
	}

	comp, err := s.computeTax(ctx, cl, q.TaxableSubtotal())
	if err != nil {
		return nil, err
	}
	q.Recalculate(comp.AddedTax().Add(comp.ExemptAdjustment))

	now := time.Now().UTC()
	deposit, _ := q.DepositSplit(q.Total)

	var invoices []*invoice.Invoice

	if deposit.IsPositive() {
		depositInv, err := s.CreateDraft(ctx, q.ClientID, now)
		if err != nil {
			return nil, err
		}
		depositInv.Currency = q.Currency
		line := invoice.NewLineItem(
			types.LineItemTypeManual,
			fmt.Sprintf("Deposit (%s%%) for quotation %s", q.DepositPercentage, q.QuotationNumber),
			decimal.NewFromInt(1),
			deposit,
			q.Currency,
		)
		if err := depositInv.AddLine(line); err != nil {
			return nil, err
		}
		depositInv.Recalculate(decimal.Zero)
		depositInv.InvoiceStatus = types.InvoiceStatusActive
		invoices = append(invoices, depositInv)
	}

	mainInv, err := s.CreateDraft(ctx, q.ClientID, q.DateExpires)
	if err != nil {
		return nil, err
	}
	mainInv.Currency = q.Currency
	for _, ql := range q.Lines {
		line := invoice.NewLineItem(
			types.LineItemTypeManual,
			ql.Description,
			ql.Qty,
			ql.UnitAmount,
			q.Currency,
		)
		line.Taxable = ql.Taxable
		if err := mainInv.AddLine(line); err != nil {
			return nil, err
		}
	}
	if deposit.IsPositive() {
		offset := invoice.NewLineItem(
			types.LineItemTypeManual,
			fmt.Sprintf("Less deposit invoiced separately (%s)", q.QuotationNumber),
			decimal.NewFromInt(1),
			deposit.Neg(),
			q.Currency,
		)
		if err := mainInv.AddLine(offset); err != nil {
			return nil, err
		}
	}
	mainInv.Recalculate(comp.AddedTax().Add(comp.ExemptAdjustment))
	mainInv.InvoiceStatus = types.InvoiceStatusActive
	invoices = append(invoices, mainInv)

	ids := make([]string, 0, len(invoices))
	for _, inv := range invoices {
		if err := s.InvoiceRepo.Create(ctx, inv); err != nil {
			return nil, err
		}
		ids = append(ids, inv.ID)
	}

	if err := q.MarkInvoiced(ids, now); err != nil {
		return nil, err
	}
	if err := s.QuotationRepo.Update(ctx, q); err != nil {
		return nil, err
	}

	s.Logger.Infow("converted quotation to invoices",
		"quotation_id", q.ID,
		"invoice_ids", ids,
		"deposit", deposit,
	)
	return invoices, nil
}

func (s *invoiceService) DeliverPending(ctx context.Context) (int, error) {
	pending, err := s.InvoiceRepo.ListUndelivered(ctx)
	if err != nil {
		return 0, err
	}

	delivered := 0
	now := time.Now().UTC()
	for _, inv := range pending {
		template := notification.TemplateInvoiceDelivery
		if inv.DeliveryMethod == types.InvoiceDeliveryPaper {
			template = notification.TemplateInvoiceDeliveryPaper
		}

		err := s.Notifier.Send(ctx, inv.ClientID, template, map[string]string{
			"invoice_number": inv.InvoiceNumber,
			"total":          inv.Total.String(),
			"date_due":       inv.DateDue.Format("2006-01-02"),
		})
		if err != nil {
			s.Logger.Errorw("failed to deliver invoice",
				"invoice_id", inv.ID, "error", err)
			continue
		}

		at := now
		inv.DateDelivered = &at
		if err := s.InvoiceRepo.Update(ctx, inv); err != nil {
			return delivered, err
		}
		delivered++
	}

	return delivered, nil
}

func (s *invoiceService) Void(ctx context.Context, invoiceID string) error {
	inv, err := s.InvoiceRepo.Get(ctx, invoiceID)
	if err != nil {
		return err
	}
	if err := inv.Void(); err != nil {
		return err
	}
	return s.InvoiceRepo.Update(ctx, inv)
}
