package main

import (
	"context"
	"flag"
	"time"

	"github.com/billforge/billforge/internal/cache"
	"github.com/billforge/billforge/internal/config"
	"github.com/billforge/billforge/internal/cron"
	"github.com/billforge/billforge/internal/domain/client"
	"github.com/billforge/billforge/internal/domain/coupon"
	"github.com/billforge/billforge/internal/domain/crontask"
	"github.com/billforge/billforge/internal/domain/invoice"
	"github.com/billforge/billforge/internal/domain/plan"
	"github.com/billforge/billforge/internal/domain/quotation"
	"github.com/billforge/billforge/internal/domain/recurringinvoice"
	domainService "github.com/billforge/billforge/internal/domain/service"
	"github.com/billforge/billforge/internal/domain/settings"
	"github.com/billforge/billforge/internal/domain/tax"
	"github.com/billforge/billforge/internal/domain/transaction"
	"github.com/billforge/billforge/internal/gateway"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/notification"
	"github.com/billforge/billforge/internal/postgres"
	"github.com/billforge/billforge/internal/provisioning"
	"github.com/billforge/billforge/internal/repository"
	"github.com/billforge/billforge/internal/service"
	"github.com/billforge/billforge/internal/types"
	"go.uber.org/fx"
)

var (
	taskKey   = flag.String("task", "", "run a single task by key, ignoring its schedule")
	clearLock = flag.String("clear-lock", "", "force-clear the lock of a task left by a crashed run")
)

func init() {
	// Set UTC timezone for the entire application
	time.Local = time.UTC
}

func main() {
	flag.Parse()

	app := fx.New(
		fx.Provide(
			// Config
			config.NewConfig,

			// Logger
			logger.NewLogger,

			// Cache
			cache.NewInMemoryCache,

			// Postgres
			postgres.NewDB,

			// Repositories
			repository.NewClientRepository,
			repository.NewPlanRepository,
			repository.NewServiceRepository,
			repository.NewCouponRepository,
			repository.NewTaxRuleRepository,
			repository.NewInvoiceRepository,
			repository.NewQuotationRepository,
			repository.NewRecurringInvoiceRepository,
			repository.NewTransactionRepository,
			repository.NewSettingsRepository,
			repository.NewCronTaskRepository,

			// Integrations
			gateway.NewRegistry,
			provisioning.NewRegistry,
			provideNotifier,

			// Services and tasks
			provideServiceParams,
			provideTaskRegistry,
			cron.NewRunner,
		),
		fx.Invoke(run),
	)
	app.Run()
}

func provideNotifier(log *logger.Logger) notification.Sender {
	return notification.NewLogSender(log)
}

func provideServiceParams(
	cfg *config.Configuration,
	log *logger.Logger,
	c cache.Cache,
	clientRepo client.Repository,
	planRepo plan.Repository,
	serviceRepo domainService.Repository,
	couponRepo coupon.Repository,
	taxRuleRepo tax.Repository,
	invoiceRepo invoice.Repository,
	quotationRepo quotation.Repository,
	recurringRepo recurringinvoice.Repository,
	transactionRepo transaction.Repository,
	settingsRepo settings.Repository,
	cronTaskRepo crontask.Repository,
	gateways *gateway.Registry,
	modules *provisioning.Registry,
	notifier notification.Sender,
) service.ServiceParams {
	return service.ServiceParams{
		Logger:               log,
		Config:               cfg,
		Cache:                c,
		ClientRepo:           clientRepo,
		PlanRepo:             planRepo,
		ServiceRepo:          serviceRepo,
		CouponRepo:           couponRepo,
		TaxRuleRepo:          taxRuleRepo,
		InvoiceRepo:          invoiceRepo,
		QuotationRepo:        quotationRepo,
		RecurringInvoiceRepo: recurringRepo,
		TransactionRepo:      transactionRepo,
		SettingsRepo:         settingsRepo,
		CronTaskRepo:         cronTaskRepo,
		Gateways:             gateways,
		Modules:              modules,
		Notifier:             notifier,
	}
}

func provideTaskRegistry(params service.ServiceParams) *cron.Registry {
	registry := cron.NewRegistry()
	cron.RegisterSystemTasks(registry, params)
	return registry
}

// run executes one pass and exits; the process is meant to be invoked
// from the system scheduler every few minutes
func run(
	lc fx.Lifecycle,
	shutdowner fx.Shutdowner,
	cfg *config.Configuration,
	runner *cron.Runner,
	cronTaskRepo crontask.Repository,
	db *postgres.DB,
	log *logger.Logger,
) {
	lc.Append(fx.Hook{
		OnStart: func(ctx context.Context) error {
			go func() {
				defer func() { _ = shutdowner.Shutdown() }()

				runCtx := types.SetActor(context.Background(), types.DefaultActorID, types.ActorTypeSystem)
				now := time.Now().UTC()

				if *clearLock != "" {
					if err := runner.ForceClearLock(runCtx, *clearLock); err != nil {
						log.Errorw("failed to clear task lock", "task_key", *clearLock, "error", err)
					}
					return
				}

				if err := cron.EnsureSystemTasks(runCtx, cronTaskRepo); err != nil {
					log.Errorw("failed to ensure system tasks", "error", err)
					return
				}

				if *taskKey != "" {
					if err := runner.RunByKey(runCtx, *taskKey, now); err != nil {
						log.Errorw("task run failed", "task_key", *taskKey, "error", err)
					}
					return
				}

				started, err := runner.RunDue(runCtx, now)
				if err != nil {
					log.Errorw("cron pass failed", "error", err)
					return
				}
				log.Infow("cron pass complete", "tasks_started", started)
			}()
			return nil
		},
		OnStop: func(ctx context.Context) error {
			db.Close()
			return nil
		},
	})
}
