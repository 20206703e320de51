package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type LateFeeServiceSuite struct {
	testutil.BaseServiceTestSuite
	service    LateFeeService
	settingSvc SettingsService
	sender     *testutil.RecordingSender
	params     ServiceParams
}

func TestLateFeeService(t *testing.T) {
	suite.Run(t, new(LateFeeServiceSuite))
}

func (s *LateFeeServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()
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
		Notifier:             s.sender,
	}
	s.service = NewLateFeeService(s.params)
	s.settingSvc = NewSettingsService(s.params)
}

func (s *LateFeeServiceSuite) seedOverdueInvoice(total int64, due time.Time) *invoice.Invoice {
	cl := &client.Client{
		ID:              types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		FirstName:       "Teo",
		LastName:        "Silva",
		Email:           "teo@example.com",
		Country:         "US",
		DefaultCurrency: "USD",
		DeliveryMethod:  types.InvoiceDeliveryEmail,
		BaseModel:       types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ClientRepo.Create(s.GetContext(), cl))

	inv := &invoice.Invoice{
		ID:            types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber: types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		ClientID:      cl.ID,
		InvoiceStatus: types.InvoiceStatusActive,
		InvoiceType:   types.InvoiceTypeStandard,
		Currency:      "USD",
		DateBilled:    due.AddDate(0, 0, -14),
		DateDue:       due,
		BaseModel:     types.BaseModel{Status: types.StatusActive},
	}
	line := invoice.NewLineItem(types.LineItemTypeManual, "Hosting",
		decimal.NewFromInt(1), decimal.NewFromInt(total), "USD")
	s.NoError(inv.AddLine(line))
	inv.Recalculate(decimal.Zero)
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func (s *LateFeeServiceSuite) TestApplyLateFees_DisabledByDefault() {
	now := time.Now().UTC()
	s.seedOverdueInvoice(100, now.AddDate(0, 0, -10))

	applied, err := s.service.ApplyLateFees(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, applied, "zero fee amount disables the pass")
}

func (s *LateFeeServiceSuite) TestApplyLateFees_FixedOncePerInvoice() {
	now := time.Now().UTC()
	inv := s.seedOverdueInvoice(100, now.AddDate(0, 0, -10))
	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyLateFeeAmount, "5"))

	applied, err := s.service.ApplyLateFees(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, applied)

	updated, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.True(updated.LateFeeApplied)
	s.True(updated.Total.Equal(decimal.NewFromInt(105)), "total %s", updated.Total)
	s.Require().Len(updated.Lines, 2)
	s.Equal(types.LineItemTypeLateFee, updated.Lines[1].Type)
	s.Equal(1, s.sender.CountByTemplate(notification.TemplateLateFeeApplied))

	// an invoice accrues its late fee exactly once
	applied, err = s.service.ApplyLateFees(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, applied)

	updated, err = s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Len(updated.Lines, 2)
}

func (s *LateFeeServiceSuite) TestApplyLateFees_PercentOfUnpaid() {
	now := time.Now().UTC()
	inv := s.seedOverdueInvoice(200, now.AddDate(0, 0, -10))
	// half paid, so the unpaid basis is 100
	s.NoError(inv.ApplyPayment(decimal.NewFromInt(100), now))
	s.NoError(s.GetStores().InvoiceRepo.Update(s.GetContext(), inv))

	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyLateFeeAmount, "10"))
	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyLateFeeType, settings.LateFeeTypePercent))

	applied, err := s.service.ApplyLateFees(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, applied)

	updated, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	// 10% of the unpaid 100
	s.True(updated.Total.Equal(decimal.NewFromInt(210)), "total %s", updated.Total)
	s.True(updated.AmountDue().Equal(decimal.NewFromInt(110)))
}

func (s *LateFeeServiceSuite) TestApplyLateFees_RespectsGraceDays() {
	now := time.Now().UTC()
	s.seedOverdueInvoice(100, now.AddDate(0, 0, -2))
	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyLateFeeAmount, "5"))
	s.NoError(s.settingSvc.Set(s.GetContext(), settings.KeyLateFeeDaysAfterDue, "7"))

	applied, err := s.service.ApplyLateFees(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, applied, "inside the grace window")
}
