package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/plan"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/provisioning"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type RenewalServiceSuite struct {
	testutil.BaseServiceTestSuite
	service RenewalService
	module  *testutil.MockModule
	sender  *testutil.RecordingSender
	params  ServiceParams
}

func TestRenewalService(t *testing.T) {
	suite.Run(t, new(RenewalServiceSuite))
}

func (s *RenewalServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()

	s.module = testutil.NewMockModule("vps")
	modules := provisioning.NewRegistry()
	modules.Register(s.module)
	s.sender = testutil.NewRecordingSender()

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
		Modules:              modules,
		Notifier:             s.sender,
	}
	s.service = NewRenewalService(s.params)
}

func (s *RenewalServiceSuite) seedRenewable(renews time.Time) *domainService.Service {
	cl := &client.Client{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		FirstName:       "Iris",
		LastName:        "Okafor",
		Email:           "iris@example.com",
		Country:         "US",
		DefaultCurrency: "USD",
		DeliveryMethod:  types.InvoiceDeliveryEmail,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ClientRepo.Create(s.GetContext(), cl))

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
		ModuleKey: "vps",
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

func (s *RenewalServiceSuite) TestProcessDueRenewals_AdvancesDate() {
	now := time.Now().UTC()
	renews := now.AddDate(0, 0, -1)
	svc := s.seedRenewable(renews)

	renewed, err := s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, renewed)
	s.Equal([]string{svc.ID}, s.module.Renewed)

	updated, err := s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.True(updated.DateRenews.Equal(renews.AddDate(0, 1, 0)), "renewal date advanced one term")
	s.Zero(updated.RenewalAttempts)

	// the advanced date takes the service out of the due set
	renewed, err = s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, renewed)
}

func (s *RenewalServiceSuite) TestProcessDueRenewals_BoundedRetryThenManualQueue() {
	now := time.Now().UTC()
	svc := s.seedRenewable(now.AddDate(0, 0, -1))
	two := 2
	svc.MaxRenewalAttempts = &two
	s.NoError(s.GetStores().ServiceRepo.Update(s.GetContext(), svc))
	s.module.FailRenew = true

	for i := 0; i < 2; i++ {
		renewed, err := s.service.ProcessDueRenewals(s.GetContext(), now)
		s.NoError(err)
		s.Equal(0, renewed)
	}

	updated, err := s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.True(updated.InManualQueue)
	s.Equal(2, updated.RenewalAttempts)
	s.Equal(1, s.sender.CountByTemplate(notification.TemplateRenewalFailed), "exactly one failure notification")

	// queued services are skipped even though the date is still due
	renewed, err := s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, renewed)
	s.Equal(2, updated.RenewalAttempts)

	// dequeue resets the counter and automation resumes
	s.module.FailRenew = false
	s.NoError(s.service.Dequeue(s.GetContext(), svc.ID))
	renewed, err = s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, renewed)
}

func (s *RenewalServiceSuite) TestProcessDueRenewals_UnpaidInvoiceHolds() {
	now := time.Now().UTC()
	svc := s.seedRenewable(now.AddDate(0, 0, -1))

	inv, err := NewInvoiceService(s.params).CreateDraft(s.GetContext(), svc.ClientID, now)
	s.NoError(err)
	s.NoError(NewInvoiceService(s.params).AddServiceCharges(s.GetContext(), inv, svc, true))
	s.NoError(NewInvoiceService(s.params).Finalize(s.GetContext(), inv))
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))

	renewed, err := s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, renewed, "open renewal invoice holds the renewal")

	s.NoError(inv.ApplyPayment(inv.Total, now))
	s.NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), inv))

	renewed, err = s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, renewed)
}

func (s *RenewalServiceSuite) TestProcessDueRenewals_PendingCancellationWins() {
	now := time.Now().UTC()
	svc := s.seedRenewable(now.AddDate(0, 0, -1))
	cancelAt := svc.DateRenews.AddDate(0, 0, -1)
	svc.DateCanceled = &cancelAt
	s.NoError(s.GetStores().ServiceRepo.Update(s.GetContext(), svc))

	renewed, err := s.service.ProcessDueRenewals(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, renewed)
	s.Empty(s.module.Renewed)
}

func (s *RenewalServiceSuite) TestSetMaxAttempts_Validates() {
	now := time.Now().UTC()
	svc := s.seedRenewable(now.AddDate(0, 1, 0))

	zero := 0
	s.Error(s.service.SetMaxAttempts(s.GetContext(), svc.ID, &zero))

	five := 5
	s.NoError(s.service.SetMaxAttempts(s.GetContext(), svc.ID, &five))
	updated, err := s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.Equal(5, *updated.MaxRenewalAttempts)

	s.NoError(s.service.SetMaxAttempts(s.GetContext(), svc.ID, nil))
	updated, err = s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.Nil(updated.MaxRenewalAttempts)
}
