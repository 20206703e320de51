package service

import (
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
	"github.com/billforge/billforge/internal/gateway"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/provisioning"
)

// ServiceParams bundles common dependencies injected into services
type ServiceParams struct {
	Logger *logger.Logger
	Config *config.Configuration
	Cache  cache.Cache

	// Repositories
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

	// Integrations
	Gateways *gateway.Registry
	Modules  *provisioning.Registry
	Notifier notification.Sender
}
