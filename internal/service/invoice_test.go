package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/coupon"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/plan"
	"github.com/billforge/billforge/internal/domain/quotation"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/domain/tax"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type InvoiceServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    InvoiceService
	settingSvc SettingsService
	params     ServiceParams
}

func TestInvoiceService(t *testing.T) {
	suite.Run(t, new(InvoiceServiceSuite))
}

func (s *InvoiceServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
	s.params = ServiceParams{
		Logger:               s.GetLogger(),
		Config:               s.GetConfig(),
		Cache:                s.GetCache(),
		ClientRepo:           stores.ClientRepo,
		PlanRepo:             stores.PlanRepo,
		ServiceRepo:          stores.ServiceRepo,
		CouponRepo:           stores.CouponRepo,
		TaxRuleRepo:          stores.TaxRuleRepo,
		InvoiceRepo:          stores.InvoiceRepo,
		QuotationRepo:        stores.QuotationRepo,
		RecurringInvoiceRepo: stores.RecurringInvoiceRepo,
		TransactionRepo:      stores.TransactionRepo,
		SettingsRepo:         stores.SettingsRepo,
		CronTaskRepo:         stores.CronTaskRepo,
		Notifier:             testutil.NewRecordingSender(),
	}
	s.service = NewInvoiceService(s.params)
	s.settingSvc = NewSettingsService(s.params)
}

func (s *InvoiceServiceSuite) seedClient() *client.Client {
	cl := &client.Client{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		FirstName:       "Ada",
		LastName:        "Byrne",
		Email:           "ada@example.com",
		Country:         "US",
		State:           "CA",
		DefaultCurrency: "USD",
		DeliveryMethod:  types.InvoiceDeliveryEmail,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ClientRepo.Create(s.GetContext(), cl))
	return cl
}

func (s *InvoiceServiceSuite) seedPackage(taxable bool) (*plan.Package, *plan.Pricing) {
	pricing := &plan.Pricing{
		ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE_PRICING),
		Term:     1,
		Period:   types.BillingPeriodMonth,
		Currency: "USD",
		Price:    decimal.NewFromInt(20),
		SetupFee: decimal.NewFromInt(5),
	}
	pkg := &plan.Package{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE),
		Name:      "VPS Basic",
		Taxable:   taxable,
		Pricings:  []*plan.Pricing{pricing},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	pricing.PackageID = pkg.ID
	s.NoError(s.GetStores().PlanRepo.CreatePackage(s.GetContext(), pkg))
	return pkg, pricing
}

func (s *InvoiceServiceSuite) seedService(cl *client.Client, pkg *plan.Package, pricing *plan.Pricing) *domainService.Service {
	renews := time.Now().UTC().AddDate(0, 1, 0)
	svc := &domainService.Service{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		ClientID:      cl.ID,
		PackageID:     pkg.ID,
		PricingID:     pricing.ID,
		Qty:           1,
		ServiceStatus: types.ServiceStatusActive,
		DateAdded:     time.Now().UTC(),
		DateRenews:    &renews,
		BaseModel:     types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ServiceRepo.Create(s.GetContext(), svc))
	return svc
}

func (s *InvoiceServiceSuite) seedTaxRule() {
	rule := &tax.Rule{
		ID:     types.GenerateUUIDWithPrefix(types.UUID_PREFIX_TAX_RULE),
		Level:  types.TaxLevel1,
		Type:   types.TaxRuleTypeInclusiveAdditive,
		Name:   "Sales Tax",
		Amount: decimal.NewFromInt(10),
		BaseModel: types.BaseModel{
			Status:    types.StatusActive,
			UpdatedAt: time.Now().UTC(),
		},
	}
	s.NoError(s.GetStores().TaxRuleRepo.Create(s.GetContext(), rule))
}

func (s *InvoiceServiceSuite) TestInvoiceServices_InitialOrder() {
	cl := s.seedClient()
	pkg, pricing := s.seedPackage(true)
	svc := s.seedService(cl, pkg, pricing)
	s.seedTaxRule()

	due := time.Now().UTC().AddDate(0, 0, 5)
	invoices, err := s.service.InvoiceServices(s.GetContext(), cl.ID, []*domainService.Service{svc}, false, due)
	s.NoError(err)
	s.Require().Len(invoices, 1)

	inv := invoices[0]
	// base 20 + setup 5 (setup untaxed by default)
	s.True(inv.Subtotal.Equal(decimal.NewFromInt(25)), "subtotal %s", inv.Subtotal)
	// 10% of taxable 20
	s.True(inv.TaxTotal.Equal(decimal.NewFromInt(2)), "tax %s", inv.TaxTotal)
	s.True(inv.Total.Equal(decimal.NewFromInt(27)), "total %s", inv.Total)
	s.Equal(types.InvoiceStatusActive, inv.InvoiceStatus)

	// totals invariant: sum of lines plus tax equals total
	lineSum := decimal.Zero
	for _, l := range inv.Lines {
		lineSum = lineSum.Add(l.Amount)
	}
	s.True(lineSum.Add(inv.TaxTotal).Equal(inv.Total))
}

func (s *InvoiceServiceSuite) TestInvoiceServices_RenewalSkipsSetupFee() {
	cl := s.seedClient()
	pkg, pricing := s.seedPackage(false)
	pricing.PriceRenews = decimal.NewFromInt(18)
	svc := s.seedService(cl, pkg, pricing)

	invoices, err := s.service.InvoiceServices(s.GetContext(), cl.ID, []*domainService.Service{svc}, true, time.Now().UTC())
	s.NoError(err)
	s.Require().Len(invoices, 1)

	inv := invoices[0]
	s.Len(inv.Lines, 1)
	s.True(inv.Total.Equal(decimal.NewFromInt(18)), "renewal price applies, total %s", inv.Total)
}

func (s *InvoiceServiceSuite) TestInvoiceServices_GroupingSetting() {
	cl := s.seedClient()
	pkg, pricing := s.seedPackage(false)
	svcA := s.seedService(cl, pkg, pricing)
	svcB := s.seedService(cl, pkg, pricing)
	services := []*domainService.Service{svcA, svcB}

	invoices, err := s.service.InvoiceServices(s.GetContext(), cl.ID, services, true, time.Now().UTC())
	s.NoError(err)
	s.Len(invoices, 1, "grouped by default")

	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyInvGroupServices, "false"))
	invoices, err = s.service.InvoiceServices(s.GetContext(), cl.ID, services, true, time.Now().UTC())
	s.NoError(err)
	s.Len(invoices, 2, "one invoice per service when grouping is off")
}

func (s *InvoiceServiceSuite) seedOption(pkg *plan.Package, price decimal.Decimal) (*plan.Option, *plan.OptionValue) {
	value := &plan.OptionValue{
		ID:   types.GenerateUUIDWithPrefix(types.UUID_PREFIX_OPTION_VALUE),
		Name: "4 GB RAM",
		Pricings: []*plan.OptionPricing{{
			ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_OPTION_PRICING),
			Term:     1,
			Period:   types.BillingPeriodMonth,
			Currency: "USD",
			Price:    price,
		}},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	opt := &plan.Option{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE_OPTION),
		PackageID: pkg.ID,
		Name:      "RAM",
		Values:    []*plan.OptionValue{value},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	value.OptionID = opt.ID
	pkg.Options = append(pkg.Options, opt)
	s.NoError(s.GetStores().PlanRepo.UpdatePackage(s.GetContext(), pkg))
	return opt, value
}

func (s *InvoiceServiceSuite) discountLine(inv *invoice.Invoice) *invoice.LineItem {
	for _, l := range inv.Lines {
		if l.Type == types.LineItemTypeDiscount {
			return l
		}
	}
	s.Require().FailNow("no discount line on invoice")
	return nil
}

func (s *InvoiceServiceSuite) TestAddServiceCharges_CouponOptionScope() {
	cl := s.seedClient()
	pkg, pricing := s.seedPackage(false)
	opt, value := s.seedOption(pkg, decimal.NewFromInt(10))

	c := &coupon.Coupon{
		ID:           types.GenerateUUIDWithPrefix(types.UUID_PREFIX_COUPON),
		Code:         "SAVE10",
		CouponStatus: types.CouponStatusEnabled,
		Amounts: []*coupon.Amount{{
			Currency: "USD",
			Type:     types.CouponDiscountTypePercent,
			Amount:   decimal.NewFromInt(10),
		}},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().CouponRepo.Create(s.GetContext(), c))

	svc := s.seedService(cl, pkg, pricing)
	svc.CouponID = &c.ID
	svc.OptionSelections = map[string]string{opt.ID: value.ID}
	s.NoError(s.GetStores().ServiceRepo.Update(s.GetContext(), svc))

	// the coupon stays off the option charges by default: 10% of the 20 base
	inv, err := s.service.CreateDraft(s.GetContext(), cl.ID, time.Now().UTC())
	s.NoError(err)
	s.NoError(s.service.AddServiceCharges(s.GetContext(), inv, svc, false))
	discount := s.discountLine(inv)
	s.True(discount.Amount.Equal(decimal.NewFromInt(-2)), "base-only discount %s", discount.Amount)

	// opting into package options widens the base to 30
	c.ApplyPackageOptions = true
	s.NoError(s.GetStores().CouponRepo.Update(s.GetContext(), c))

	inv, err = s.service.CreateDraft(s.GetContext(), cl.ID, time.Now().UTC())
	s.NoError(err)
	s.NoError(s.service.AddServiceCharges(s.GetContext(), inv, svc, false))
	discount = s.discountLine(inv)
	s.True(discount.Amount.Equal(decimal.NewFromInt(-3)), "base-plus-options discount %s", discount.Amount)
}

func (s *InvoiceServiceSuite) TestAddServiceCharges_CurrencyMismatch() {
	cl := s.seedClient()
	pkg, pricing := s.seedPackage(false)
	pricing.Currency = "EUR"
	svc := s.seedService(cl, pkg, pricing)

	inv, err := s.service.CreateDraft(s.GetContext(), cl.ID, time.Now().UTC())
	s.NoError(err)
	s.Error(s.service.AddServiceCharges(s.GetContext(), inv, svc, false))
}

func (s *InvoiceServiceSuite) TestConvertQuotation_DepositSplit() {
	cl := s.seedClient()

	q := &quotation.Quotation{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_QUOTATION),
		QuotationNumber:   types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_QUOTATION),
		ClientID:          cl.ID,
		QuotationStatus:   types.QuotationStatusApproved,
		Currency:          "USD",
		DateCreated:       time.Now().UTC(),
		DateExpires:       time.Now().UTC().AddDate(0, 0, 30),
		DepositPercentage: decimal.NewFromInt(50),
		Lines: []*quotation.Line{
			{
				Description: "Migration project",
				Qty:         decimal.NewFromInt(1),
				UnitAmount:  decimal.NewFromInt(1000),
				Amount:      decimal.NewFromInt(1000),
			},
		},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().QuotationRepo.Create(s.GetContext(), q))

	invoices, err := s.service.ConvertQuotation(s.GetContext(), q.ID)
	s.NoError(err)
	s.Require().Len(invoices, 2)

	deposit, remainder := invoices[0], invoices[1]
	s.True(deposit.Total.Equal(decimal.NewFromInt(500)), "deposit %s", deposit.Total)
	s.True(remainder.Total.Equal(decimal.NewFromInt(500)), "remainder %s", remainder.Total)
	// the pair always reconstructs the quoted total
	s.True(deposit.Total.Add(remainder.Total).Equal(decimal.NewFromInt(1000)))

	updated, err := s.GetStores().QuotationRepo.Get(s.GetContext(), q.ID)
	s.NoError(err)
	s.Equal(types.QuotationStatusInvoiced, updated.QuotationStatus)
	s.Len(updated.InvoiceIDs, 2)
}

func (s *InvoiceServiceSuite) TestConvertQuotation_RejectsUndecided() {
	cl := s.seedClient()
	q := &quotation.Quotation{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_QUOTATION),
		ClientID:        cl.ID,
		QuotationStatus: types.QuotationStatusExpired,
		Currency:        "USD",
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().QuotationRepo.Create(s.GetContext(), q))

	_, err := s.service.ConvertQuotation(s.GetContext(), q.ID)
	s.Error(err)
}

func (s *InvoiceServiceSuite) TestDeliverPending() {
	cl := s.seedClient()
	pkg, pricing := s.seedPackage(false)
	svc := s.seedService(cl, pkg, pricing)

	_, err := s.service.InvoiceServices(s.GetContext(), cl.ID, []*domainService.Service{svc}, false, time.Now().UTC())
	s.NoError(err)

	sender := s.params.Notifier.(*testutil.RecordingSender)
	delivered, err := s.service.DeliverPending(s.GetContext())
	s.NoError(err)
	s.Equal(1, delivered)
	s.Equal(1, len(sender.Sent()))

	// second run finds nothing undelivered
	delivered, err = s.service.DeliverPending(s.GetContext())
	s.NoError(err)
	s.Equal(0, delivered)
}
