package service

import (
	"testing"
	"time"

	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/gateway"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/testutil"
	"github.com/billforge/billforge/internal/types"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/suite"
)

type AutodebitServiceSuite struct {
	testutil.BaseServiceTestSuite
	service AutodebitService
	gateway *testutil.MockGateway
	sender  *testutil.RecordingSender
	params  ServiceParams
}

func TestAutodebitService(t *testing.T) {
	suite.Run(t, new(AutodebitServiceSuite))
}

func (s *AutodebitServiceSuite) SetupTest() {
	s.BaseServiceTestSuite.SetupTest()
	stores := s.GetStores()

	s.gateway = testutil.NewMockGateway("cc")
	gateways := gateway.NewRegistry()
	gateways.Register(s.gateway)
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
		Gateways:             gateways,
		Notifier:             s.sender,
	}
	s.service = NewAutodebitService(s.params)
}

func (s *AutodebitServiceSuite) seedAutodebitClient() *client.Client {
	cl := &client.Client{
		ID:                 types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CLIENT),
		FirstName:          "Ravi",
		LastName:           "Mehta",
		Email:              "ravi@example.com",
		Country:            "US",
		DefaultCurrency:    "USD",
		DeliveryMethod:     types.InvoiceDeliveryEmail,
		AutodebitEnabled:   true,
		PaymentAccountID:   "tok_abc",
		PaymentAccountType: "cc",
		BaseModel:          types.BaseModel{Status: types.StatusActive},
	}
	s.NoError(s.GetStores().ClientRepo.Create(s.GetContext(), cl))
	return cl
}

func (s *AutodebitServiceSuite) seedDueInvoice(cl *client.Client, total int64, due time.Time) *invoice.Invoice {
	inv := &invoice.Invoice{
		ID:                types.GenerateUUIDWithPrefix(types.UUID_PREFIX_INVOICE),
		InvoiceNumber:     types.GenerateShortIDWithPrefix(types.SHORT_ID_PREFIX_INVOICE),
		ClientID:          cl.ID,
		InvoiceStatus:     types.InvoiceStatusActive,
		InvoiceType:       types.InvoiceTypeStandard,
		Currency:          "USD",
		AutodebitEligible: true,
		DateBilled:        due.AddDate(0, 0, -5),
		DateDue:           due,
		BaseModel:         types.BaseModel{Status: types.StatusActive},
	}
	line := invoice.NewLineItem(types.LineItemTypeManual, "Hosting",
		decimal.NewFromInt(1), decimal.NewFromInt(total), "USD")
	s.NoError(inv.AddLine(line))
	inv.Recalculate(decimal.Zero)
	s.NoError(s.GetStores().InvoiceRepo.Create(s.GetContext(), inv))
	return inv
}

func (s *AutodebitServiceSuite) TestRun_ChargesAndCloses() {
	now := time.Now().UTC()
	cl := s.seedAutodebitClient()
	inv := s.seedDueInvoice(cl, 50, now)

	charged, err := s.service.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, charged)
	s.Equal(1, s.gateway.ChargeCount())

	updated, err := s.GetStores().InvoiceRepo.Get(s.GetContext(), inv.ID)
	s.NoError(err)
	s.NotNil(updated.DateClosed)
	s.True(updated.AmountDue().IsZero())

	// the recorded transaction carries the gateway reference
	txns, err := s.GetStores().TransactionRepo.ListByInvoice(s.GetContext(), inv.ID)
	s.NoError(err)
	s.Require().Len(txns, 1)
	s.NotEmpty(txns[0].GatewayReference)
	s.Equal(types.TransactionStatusApproved, txns[0].TransactionStatus)

	// a closed invoice drops out of the due set
	charged, err = s.service.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, charged)
}

func (s *AutodebitServiceSuite) TestRun_DunningDisablesAfterCeiling() {
	now := time.Now().UTC()
	cl := s.seedAutodebitClient()
	s.seedDueInvoice(cl, 50, now)
	s.gateway.DeclineAll = true

	// the company default allows 3 attempts
	for i := 0; i < 3; i++ {
		charged, err := s.service.Run(s.GetContext(), now)
		s.NoError(err)
		s.Equal(0, charged)
	}

	updated, err := s.GetStores().ClientRepo.Get(s.GetContext(), cl.ID)
	s.NoError(err)
	s.False(updated.AutodebitEnabled, "third decline disables autodebit")
	s.Equal(3, updated.AutodebitFailures)
	s.Equal("tok_abc", updated.PaymentAccountID, "the stored account is kept")
	s.Equal(1, s.sender.CountByTemplate(notification.TemplateAutodebitDisabled),
		"exactly one disable notification")

	// disabled clients are skipped entirely
	charged, err := s.service.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, charged)
	s.Equal(3, s.gateway.ChargeCount())
}

func (s *AutodebitServiceSuite) TestRun_SuccessResetsDeclineStreak() {
	now := time.Now().UTC()
	cl := s.seedAutodebitClient()
	s.seedDueInvoice(cl, 50, now)
	s.gateway.DeclineNext = 2

	for i := 0; i < 2; i++ {
		_, err := s.service.Run(s.GetContext(), now)
		s.NoError(err)
	}
	updated, err := s.GetStores().ClientRepo.Get(s.GetContext(), cl.ID)
	s.NoError(err)
	s.Equal(2, updated.AutodebitFailures)

	charged, err := s.service.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(1, charged)

	updated, err = s.GetStores().ClientRepo.Get(s.GetContext(), cl.ID)
	s.NoError(err)
	s.Zero(updated.AutodebitFailures, "a successful charge clears the streak")
	s.True(updated.AutodebitEnabled)
}

func (s *AutodebitServiceSuite) TestRun_TransportErrorCountsNoDecline() {
	now := time.Now().UTC()
	cl := s.seedAutodebitClient()
	s.seedDueInvoice(cl, 50, now)
	s.gateway.FailAll = true

	charged, err := s.service.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, charged)

	updated, err := s.GetStores().ClientRepo.Get(s.GetContext(), cl.ID)
	s.NoError(err)
	s.Zero(updated.AutodebitFailures, "transport failures are transient")
	s.True(updated.AutodebitEnabled)
}

func (s *AutodebitServiceSuite) TestRun_RespectsLeadWindow() {
	now := time.Now().UTC()
	cl := s.seedAutodebitClient()
	// due in 10 days; the default window charges 1 day ahead
	s.seedDueInvoice(cl, 50, now.AddDate(0, 0, 10))

	charged, err := s.service.Run(s.GetContext(), now)
	s.NoError(err)
	s.Equal(0, charged)
	s.Zero(s.gateway.ChargeCount())
}
