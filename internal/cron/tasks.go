package cron

import (
	"context"
	"fmt"
	"time"

	"github.com/billforge/billforge/internal/domain/crontask"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/service"
	"github.com/billforge/billforge/internal/types"
)

// System task keys
const (
	TaskCreateInvoices          = "create_invoices"
	TaskApplyLateFees           = "apply_late_fees"
	TaskAutodebit               = "autodebit"
	TaskSuspendServices         = "suspend_services"
	TaskUnsuspendServices       = "unsuspend_services"
	TaskCancelScheduledServices = "cancel_scheduled_services"
	TaskProcessServiceChanges   = "process_service_changes"
	TaskDeliverInvoices         = "deliver_invoices"
	TaskExpireQuotations        = "expire_quotations"
)

// RegisterSystemTasks wires every built-in automation pass into the
// registry
func RegisterSystemTasks(registry *Registry, params service.ServiceParams) {
	billing := service.NewBillingService(params)
	lateFees := service.NewLateFeeService(params)
	autodebit := service.NewAutodebitService(params)
	lifecycle := service.NewLifecycleService(params)
	renewals := service.NewRenewalService(params)
	invoices := service.NewInvoiceService(params)
	quotations := service.NewQuotationService(params)

	registry.Register(TaskCreateInvoices, func(ctx context.Context, now time.Time) (string, error) {
		renewalCount, err := billing.GenerateRenewalInvoices(ctx, now)
		if err != nil {
			return "", err
		}
		recurringCount, err := billing.GenerateRecurringInvoices(ctx, now)
		if err != nil {
			return fmt.Sprintf("created %d renewal invoices", renewalCount), err
		}
		return fmt.Sprintf("created %d renewal and %d recurring invoices", renewalCount, recurringCount), nil
	})

	registry.Register(TaskApplyLateFees, func(ctx context.Context, now time.Time) (string, error) {
		applied, err := lateFees.ApplyLateFees(ctx, now)
		return fmt.Sprintf("applied %d late fees", applied), err
	})

	registry.Register(TaskAutodebit, func(ctx context.Context, now time.Time) (string, error) {
		charged, err := autodebit.Run(ctx, now)
		return fmt.Sprintf("charged %d invoices", charged), err
	})

	registry.Register(TaskSuspendServices, func(ctx context.Context, now time.Time) (string, error) {
		suspended, err := lifecycle.SuspendOverdue(ctx, now)
		return fmt.Sprintf("suspended %d services", suspended), err
	})

	registry.Register(TaskUnsuspendServices, func(ctx context.Context, now time.Time) (string, error) {
		unsuspended, err := lifecycle.UnsuspendPaid(ctx, now)
		return fmt.Sprintf("unsuspended %d services", unsuspended), err
	})

	registry.Register(TaskCancelScheduledServices, func(ctx context.Context, now time.Time) (string, error) {
		canceled, err := lifecycle.ProcessScheduledCancellations(ctx, now)
		return fmt.Sprintf("canceled %d services", canceled), err
	})

	registry.Register(TaskProcessServiceChanges, func(ctx context.Context, now time.Time) (string, error) {
		renewed, err := renewals.ProcessDueRenewals(ctx, now)
		return fmt.Sprintf("renewed %d services", renewed), err
	})

	registry.Register(TaskDeliverInvoices, func(ctx context.Context, now time.Time) (string, error) {
		delivered, err := invoices.DeliverPending(ctx)
		return fmt.Sprintf("delivered %d invoices", delivered), err
	})

	registry.Register(TaskExpireQuotations, func(ctx context.Context, now time.Time) (string, error) {
		expired, err := quotations.ExpireDue(ctx, now)
		return fmt.Sprintf("expired %d quotations", expired), err
	})
}

// SystemTaskDefinitions returns the default schedule rows for every
// system task. Billing passes run daily in the early morning; the
// faster-moving passes poll on short intervals.
func SystemTaskDefinitions() []*crontask.Task {
	daily := func(key, at string) *crontask.Task {
		return &crontask.Task{
			Key:          key,
			TaskType:     types.TaskTypeSystem,
			ScheduleType: types.ScheduleTypeTime,
			TimeOfDay:    at,
			Enabled:      true,
		}
	}
	interval := func(key string, minutes int) *crontask.Task {
		return &crontask.Task{
			Key:             key,
			TaskType:        types.TaskTypeSystem,
			ScheduleType:    types.ScheduleTypeInterval,
			IntervalMinutes: minutes,
			Enabled:         true,
		}
	}

	return []*crontask.Task{
		daily(TaskCreateInvoices, "01:00"),
		daily(TaskApplyLateFees, "02:00"),
		daily(TaskAutodebit, "03:00"),
		daily(TaskSuspendServices, "04:00"),
		daily(TaskCancelScheduledServices, "05:00"),
		interval(TaskUnsuspendServices, 15),
		interval(TaskProcessServiceChanges, 15),
		interval(TaskDeliverInvoices, 5),
		interval(TaskExpireQuotations, 60),
	}
}

// EnsureSystemTasks creates any missing system task rows. Existing rows
// keep their staff-edited schedules.
func EnsureSystemTasks(ctx context.Context, repo crontask.Repository) error {
	for _, def := range SystemTaskDefinitions() {
		if _, err := repo.GetByKey(ctx, def.Key); err == nil {
			continue
		} else if !ierr.IsNotFound(err) {
			return err
		}

		def.ID = types.GenerateUUIDWithPrefix(types.UUID_PREFIX_CRON_TASK)
		def.BaseModel = types.GetDefaultBaseModel(ctx)
		if err := def.Validate(); err != nil {
			return err
		}
		if err := repo.Create(ctx, def); err != nil {
			return err
		}
	}
	return nil
}
