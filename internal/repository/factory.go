package repository

import (
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
	"github.com/billforge/billforge/internal/postgres"
	postgresRepo "github.com/billforge/billforge/internal/repository/postgres"
)

func NewClientRepository(db *postgres.DB, logger *logger.Logger) client.Repository {
	return postgresRepo.NewClientRepository(db, logger)
}

func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return postgresRepo.NewPlanRepository(db, logger)
}

func NewServiceRepository(db *postgres.DB, logger *logger.Logger) service.Repository {
	return postgresRepo.NewServiceRepository(db, logger)
}

func NewCouponRepository(db *postgres.DB, logger *logger.Logger) coupon.Repository {
	return postgresRepo.NewCouponRepository(db, logger)
}

func NewTaxRuleRepository(db *postgres.DB, logger *logger.Logger) tax.Repository {
	return postgresRepo.NewTaxRuleRepository(db, logger)
}

func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return postgresRepo.NewInvoiceRepository(db, logger)
}

func NewQuotationRepository(db *postgres.DB, logger *logger.Logger) quotation.Repository {
	return postgresRepo.NewQuotationRepository(db, logger)
}

func NewRecurringInvoiceRepository(db *postgres.DB, logger *logger.Logger) recurringinvoice.Repository {
	return postgresRepo.NewRecurringInvoiceRepository(db, logger)
}

func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return postgresRepo.NewTransactionRepository(db, logger)
}

func NewSettingsRepository(db *postgres.DB, logger *logger.Logger) settings.Repository {
	return postgresRepo.NewSettingsRepository(db, logger)
}

func NewCronTaskRepository(db *postgres.DB, logger *logger.Logger) crontask.Repository {
	return postgresRepo.NewCronTaskRepository(db, logger)
}
