package testutil

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/cache"
	"github.com/billforge/billforge/internal/config"
	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/coupon"
	"github.com/billforge/billforge/internal/domain/crontask"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/plan"
	"github.com/billforge/billforge/internal/domain/quotation"
	"github.com/billforge/billforge/internal/domain/recurringinvoice"
	"github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/domain/tax"
	"github.com/billforge/billforge/internal/domain/transaction"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/validator"
	"github.com/stretchr/testify/suite"
)

// Stores holds all the repository interfaces for testing
type Stores struct {
	ClientRepo           client.Repository
	PlanRepo             plan.Repository
	ServiceRepo          service.Repository
	CouponRepo           coupon.Repository
	TaxRuleRepo          tax.Repository
	InvoiceRepo          invoice.Repository
	QuotationRepo        quotation.Repository
	RecurringInvoiceRepo recurringinvoice.Repository
	TransactionRepo      transaction.Repository
	SettingsRepo         settings.Repository
	CronTaskRepo         crontask.Repository
}

// BaseServiceTestSuite provides common functionality for all service test
// suites
type BaseServiceTestSuite struct {
	suite.Suite
	ctx    context.Context
	stores Stores
	cache  cache.Cache
	logger *logger.Logger
	config *config.Configuration
	now    time.Time
}

// SetupSuite is called once before running the tests in the suite
func (s *BaseServiceTestSuite) SetupSuite() {
	validator.NewValidator()

	s.config = config.GetDefaultConfig()

	var err error
	s.logger, err = logger.NewLogger(s.config)
	if err != nil {
		s.T().Fatalf("failed to create logger: %v", err)
	}
}

// SetupTest is called before each test
func (s *BaseServiceTestSuite) SetupTest() {
	s.ctx = SetupContext()
	s.setupStores()
	s.cache = cache.NewInMemoryCache(s.config)
	s.now = time.Now().UTC()
}

// TearDownTest is called after each test
func (s *BaseServiceTestSuite) TearDownTest() {
	s.clearStores()
}

func (s *BaseServiceTestSuite) setupStores() {
	s.stores = Stores{
		ClientRepo:           NewInMemoryClientStore(),
		PlanRepo:             NewInMemoryPlanStore(),
		ServiceRepo:          NewInMemoryServiceStore(),
		CouponRepo:           NewInMemoryCouponStore(),
		TaxRuleRepo:          NewInMemoryTaxRuleStore(),
		InvoiceRepo:          NewInMemoryInvoiceStore(),
		QuotationRepo:        NewInMemoryQuotationStore(),
		RecurringInvoiceRepo: NewInMemoryRecurringInvoiceStore(),
		TransactionRepo:      NewInMemoryTransactionStore(),
		SettingsRepo:         NewInMemorySettingsStore(),
		CronTaskRepo:         NewInMemoryCronTaskStore(),
	}
}

func (s *BaseServiceTestSuite) clearStores() {
	s.stores.ClientRepo.(*InMemoryClientStore).Clear()
	s.stores.PlanRepo.(*InMemoryPlanStore).Clear()
	s.stores.ServiceRepo.(*InMemoryServiceStore).Clear()
	s.stores.CouponRepo.(*InMemoryCouponStore).Clear()
	s.stores.TaxRuleRepo.(*InMemoryTaxRuleStore).Clear()
	s.stores.InvoiceRepo.(*InMemoryInvoiceStore).Clear()
	s.stores.QuotationRepo.(*InMemoryQuotationStore).Clear()
	s.stores.RecurringInvoiceRepo.(*InMemoryRecurringInvoiceStore).Clear()
	s.stores.TransactionRepo.(*InMemoryTransactionStore).Clear()
	s.stores.SettingsRepo.(*InMemorySettingsStore).Clear()
	s.stores.CronTaskRepo.(*InMemoryCronTaskStore).Clear()
}

// GetContext returns the test context
func (s *BaseServiceTestSuite) GetContext() context.Context {
	return s.ctx
}

// GetStores returns the test stores
func (s *BaseServiceTestSuite) GetStores() Stores {
	return s.stores
}

// GetLogger returns the test logger
func (s *BaseServiceTestSuite) GetLogger() *logger.Logger {
	return s.logger
}

// GetConfig returns the test config
func (s *BaseServiceTestSuite) GetConfig() *config.Configuration {
	return s.config
}

// GetCache returns the test cache
func (s *BaseServiceTestSuite) GetCache() cache.Cache {
	return s.cache
}

// GetNow returns the suite's frozen reference time
func (s *BaseServiceTestSuite) GetNow() time.Time {
	return s.now
}
