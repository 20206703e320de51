package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/plan"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type ServiceChangeSuite struct {
	testutil.BaseServiceTestSuite
	service    ServiceChangeService
	settingSvc SettingsService
	params     ServiceParams
}

func TestServiceChangeService(t *testing.T) {
	suite.Run(t, new(ServiceChangeSuite))
}

func (s *ServiceChangeSuite) SetupTest() {
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
	s.service = NewServiceChangeService(s.params)
	s.settingSvc = NewSettingsService(s.params)
}

// seedUpgradable creates a client with an active monthly service on the
// basic pricing and returns the premium pricing it can move to
func (s *ServiceChangeSuite) seedUpgradable(basicPrice, premiumPrice int64) (*domainService.Service, *plan.Pricing) {
	cl := &client.Client{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		FirstName:       "Omar",
		LastName:        "Reyes",
		Email:           "omar@example.com",
		Country:         "US",
		DefaultCurrency: "USD",
		DeliveryMethod:  types.InvoiceDeliveryEmail,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ClientRepo.Create(s.GetContext(), cl))

	basic := &plan.Pricing{
		ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE_PRICING),
		Term:     1,
		Period:   types.BillingPeriodMonth,
		Currency: "USD",
		Price:    decimal.NewFromInt(basicPrice),
	}
	premium := &plan.Pricing{
		ID:       types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE_PRICING),
		Term:     1,
		Period:   types.BillingPeriodMonth,
		Currency: "USD",
		Price:    decimal.NewFromInt(premiumPrice),
	}
	pkg := &plan.Package{
		ID:        types.GenerateUUIDWithPrefix(types.UUID_PREFIX_PACKAGE),
		Name:      "VPS",
		Pricings:  []*plan.Pricing{basic, premium},
		BaseModel: types.BaseModel{Status: types.StatusActive},
	}
	basic.PackageID = pkg.ID
	premium.PackageID = pkg.ID
	s.NoError(s.GetStores().PlanRepo.CreatePackage(s.GetContext(), pkg))

	renews := time.Now().UTC().AddDate(0, 1, 0)
	svc := &domainService.Service{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_SERVICE),
		ClientID:      cl.ID,
		PackageID:     pkg.ID,
		PricingID:     basic.ID,
		Qty:           1,
		ServiceStatus: types.ServiceStatusActive,
		DateAdded:     time.Now().UTC(),
		DateRenews:    &renews,
		BaseModel:     types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ServiceRepo.Create(s.GetContext(), svc))
	return svc, premium
}

func (s *ServiceChangeSuite) TestUpgrade_BillsProratedDifference() {
	svc, premium := s.seedUpgradable(20, 50)

	result, err := s.service.ChangeService(s.GetContext(), svc.ID, ChangeServiceParams{
		NewPricingID: premium.ID,
	})
	s.NoError(err)
	s.False(result.Deferred)
	s.Require().NotNil(result.Invoice)

	// the full period remains, so the prorated charge is the whole
	// price difference
	s.True(result.Invoice.Total.Equal(decimal.NewFromInt(30)),
		"prorated charge %s", result.Invoice.Total)
	s.Require().Len(result.Invoice.Lines, 1)
	s.Equal(types.LineItemTypeProration, result.Invoice.Lines[0].Type)

	updated, err := s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.Equal(premium.ID, updated.PricingID)
}

func (s *ServiceChangeSuite) TestDowngrade_CreditsWhenEnabled() {
	svc, premium := s.seedUpgradable(50, 20)
	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyClientProrateCredits, "true"))

	result, err := s.service.ChangeService(s.GetContext(), svc.ID, ChangeServiceParams{
		NewPricingID: premium.ID,
	})
	s.NoError(err)
	s.False(result.Deferred)
	s.Require().NotNil(result.Invoice)
	s.True(result.Invoice.Total.Equal(decimal.NewFromInt(-30)),
		"prorated credit %s", result.Invoice.Total)

	updated, err := s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.Equal(premium.ID, updated.PricingID)
}

func (s *ServiceChangeSuite) TestDowngrade_DeferredWhenCreditsDisabled() {
	svc, premium := s.seedUpgradable(50, 20)
	// client_prorate_credits defaults to false

	result, err := s.service.ChangeService(s.GetContext(), svc.ID, ChangeServiceParams{
		NewPricingID: premium.ID,
	})
	s.NoError(err)
	s.True(result.Deferred)
	s.Nil(result.Invoice)

	updated, err := s.GetStores().ServiceRepo.Get(s.GetContext(), svc.ID)
	s.NoError(err)
	s.Equal(svc.PricingID, updated.PricingID, "old pricing kept until renewal")
	s.Require().NotNil(updated.PendingPricingID)
	s.Equal(premium.ID, *updated.PendingPricingID)

	// the deferred change takes effect with renewal billing
	s.True(updated.ApplyPendingChange())
	s.Equal(premium.ID, updated.PricingID)
	s.Nil(updated.PendingPricingID)
}

func (s *ServiceChangeSuite) TestChange_RejectsInactiveService() {
	svc, premium := s.seedUpgradable(20, 50)
	svc.ServiceStatus = types.ServiceStatusSuspended
	s.NoError(s.GetStores().ServiceRepo.Update(s.GetContext(), svc))

	_, err := s.service.ChangeService(s.GetContext(), svc.ID, ChangeServiceParams{
		NewPricingID: premium.ID,
	})
	s.Error(err)
}

func (s *ServiceChangeSuite) TestChange_RejectsCurrencyMismatch() {
	svc, premium := s.seedUpgradable(20, 50)
	premium.Currency = "EUR"

	_, err := s.service.ChangeService(s.GetContext(), svc.ID, ChangeServiceParams{
		NewPricingID: premium.ID,
	})
	s.Error(err)
}
