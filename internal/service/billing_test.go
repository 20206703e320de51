package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/plan"
	"github.com/billforge/billforge/internal/domain/recurringinvoice"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type BillingServiceSuite struct {
	testutil.BaseServiceTestSuite
	service BillingService
	params  ServiceParams
}

func TestBillingService(t *testing.T) {
	suite.Run(t, new(BillingServiceSuite))
}

func (s *BillingServiceSuite) SetupTest() {
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
	s.service = NewBillingService(s.params)
}

func (s *BillingServiceSuite) seedClient() *client.Client {
	cl := &client.Client{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		FirstName:       "Sana",
		LastName:        "Khalil",
		Email:           "sana@example.com",
		Country:         "US",
		DefaultCurrency: "USD",
		DeliveryMethod:  types.InvoiceDeliveryEmail,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ClientRepo.Create(s.GetContext(), cl))
	return cl
}

func (s *BillingServiceSuite) seedRenewableService(cl *client.Client, renews time.Time) *domainService.Service {
	pricing := &plan.Pricing{
		ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE_PRICING),
		Term:     1,
		Period:   types.BillingPeriodMonth,
		Currency: "USD",
		Price:    decimal.NewFromInt(20),
	}
	pkg := &plan.Package{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE),
		Name:      "VPS Basic",
		Pricings:  []*plan.Pricing{pricing},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	pricing.PackageID = pkg.ID
	s.NoError(s.GetStores().PlanRepo.CreatePackage(s.GetContext(), pkg))

	svc := &domainService.Service{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		ClientID:      cl.ID,
		PackageID:     pkg.ID,
		PricingID:     pricing.ID,
		Qty:           1,
		ServiceStatus: types.ServiceStatusActive,
		DateAdded:     renews.AddDate(0, -1, 0),
		DateRenews:    &renews,
		BaseModel:     types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ServiceRepo.Create(s.GetContext(), svc))
	return svc
}

func (s *BillingServiceSuite) TestGenerateRenewalInvoices_Idempotent() {
	now := time.Now().UTC()
	cl := s.seedClient()
	s.seedRenewableService(cl, now.AddDate(0, 0, 3))

	created, err := s.service.GenerateRenewalInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, created)

	// the same run again creates nothing: the period is already billed
	created, err = s.service.GenerateRenewalInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, created)

	invoices, err := s.GetStores().InvoiceRepo.ListByClient(s.GetContext(), cl.ID)
	s.NoError(err)
	s.Len(invoices, 1)
}

func (s *BillingServiceSuite) TestGenerateRenewalInvoices_RespectsLeadWindow() {
	now := time.Now().UTC()
	cl := s.seedClient()
	// default lead window is 5 days; this renewal is outside it
	s.seedRenewableService(cl, now.AddDate(0, 0, 10))

	created, err := s.service.GenerateRenewalInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, created)
}

func (s *BillingServiceSuite) TestGenerateRenewalInvoices_SkipsScheduledCancellation() {
	now := time.Now().UTC()
	cl := s.seedClient()
	svc := s.seedRenewableService(cl, now.AddDate(0, 0, 3))
	cancelAt := svc.DateRenews.AddDate(0, 0, -1)
	svc.DateCanceled = &cancelAt
	s.NoError(s.GetStores().ServiceRepo.Update(s.GetContext(), svc))

	created, err := s.service.GenerateRenewalInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, created)
}

func (s *BillingServiceSuite) TestGenerateRenewalInvoices_GroupsSameDay() {
	now := time.Now().UTC()
	cl := s.seedClient()
	renews := now.AddDate(0, 0, 3)
	s.seedRenewableService(cl, renews)
	s.seedRenewableService(cl, renews)

	created, err := s.service.GenerateRenewalInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, created, "same client and day bill together")

	invoices, err := s.GetStores().InvoiceRepo.ListByClient(s.GetContext(), cl.ID)
	s.NoError(err)
	s.Require().Len(invoices, 1)
	s.Len(invoices[0].Lines, 2)
}

func (s *BillingServiceSuite) seedRecurringTemplate(cl *client.Client, next time.Time) *recurringinvoice.RecurringInvoice {
	tmpl := &recurringinvoice.RecurringInvoice{
		ID:             types.GenerateUUIDWithPrefix(types.UUID_PREFIX_RECURRING_INVOICE),
		ClientID:       cl.ID,
		Currency:       "USD",
		Term:           1,
		Period:         types.BillingPeriodMonth,
		NextGeneration: next,
		DueDays:        10,
		DeliveryMethod: types.InvoiceDeliveryEmail,
		Lines: []*recurringinvoice.Line{
			{
				Description: "Monthly retainer",
				Qty:         decimal.NewFromInt(1),
				UnitAmount:  decimal.NewFromInt(200),
			},
		},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().RecurringInvoiceRepo.Create(s.GetContext(), tmpl))
	return tmpl
}

func (s *BillingServiceSuite) TestGenerateRecurringInvoices_CatchesUp() {
	now := time.Now().UTC()
	cl := s.seedClient()
	// two weekly periods behind: the stamps at -14d, -7d and today all
	// come due in one run
	tmpl := s.seedRecurringTemplate(cl, now.AddDate(0, 0, -14))
	tmpl.Period = types.BillingPeriodWeek
	s.NoError(s.GetStores().RecurringInvoiceRepo.Update(s.GetContext(), tmpl))

	created, err := s.service.GenerateRecurringInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(3, created)

	updated, err := s.GetStores().RecurringInvoiceRepo.Get(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.Equal(3, updated.GeneratedCount)
	s.True(updated.NextGeneration.After(now))

	// caught up, a second run stamps nothing
	created, err = s.service.GenerateRecurringInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, created)
}

func (s *BillingServiceSuite) TestGenerateRecurringInvoices_LimitedDuration() {
	now := time.Now().UTC()
	cl := s.seedClient()
	tmpl := s.seedRecurringTemplate(cl, now.AddDate(0, 0, -1))
	tmpl.Duration = 1
	s.NoError(s.GetStores().RecurringInvoiceRepo.Update(s.GetContext(), tmpl))

	created, err := s.service.GenerateRecurringInvoices(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, created)

	updated, err := s.GetStores().RecurringInvoiceRepo.Get(s.GetContext(), tmpl.ID)
	s.NoError(err)
	s.True(updated.IsComplete())
	s.Equal(types.StatusInactive, updated.Status)
}
