package postgres

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/service"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type serviceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewServiceRepository creates a new postgres service repository
func NewServiceRepository(db *postgres.DB, logger *logger.Logger) service.Repository {
	return &serviceRepository{db: db, logger: logger}
}

const serviceColumns = `
	id, client_id, package_id, pricing_id, parent_service_id, coupon_id,
	qty, override_price, override_currency,
	service_status, suspension_reason, cancellation_reason,
	date_added, date_renews, date_suspended, date_canceled,
	renewal_attempts, max_renewal_attempts, in_manual_queue, pending_pricing_id,
	status, created_at, updated_at, created_by, updated_by`

func (r *serviceRepository) Create(ctx context.Context, svc *service.Service) error {
	r.logger.Debugw("creating service", "service_id", svc.ID, "client_id", svc.ClientID)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO services (
				id, client_id, package_id, pricing_id, parent_service_id, coupon_id,
				qty, override_price, override_currency,
				service_status, suspension_reason, cancellation_reason,
				date_added, date_renews, date_suspended, date_canceled,
				renewal_attempts, max_renewal_attempts, in_manual_queue, pending_pricing_id,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :client_id, :package_id, :pricing_id, :parent_service_id, :coupon_id,
				:qty, :override_price, :override_currency,
				:service_status, :suspension_reason, :cancellation_reason,
				:date_added, :date_renews, :date_suspended, :date_canceled,
				:renewal_attempts, :max_renewal_attempts, :in_manual_queue, :pending_pricing_id,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, svc); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create service").
				Mark(ierr.ErrDatabase)
		}
		return r.replaceSelections(ctx, svc)
	})
}

func (r *serviceRepository) Get(ctx context.Context, id string) (*service.Service, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get service").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("service not found").
			WithHintf("service %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var svc service.Service
	if err := rows.StructScan(&svc); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan service").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if err := r.loadSelections(ctx, &svc); err != nil {
		return nil, err
	}
	return &svc, nil
}

func (r *serviceRepository) Update(ctx context.Context, svc *service.Service) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE services SET
				client_id = :client_id,
				package_id = :package_id,
				pricing_id = :pricing_id,
				parent_service_id = :parent_service_id,
				coupon_id = :coupon_id,
				qty = :qty,
				override_price = :override_price,
				override_currency = :override_currency,
				service_status = :service_status,
				suspension_reason = :suspension_reason,
				cancellation_reason = :cancellation_reason,
				date_added = :date_added,
				date_renews = :date_renews,
				date_suspended = :date_suspended,
				date_canceled = :date_canceled,
				renewal_attempts = :renewal_attempts,
				max_renewal_attempts = :max_renewal_attempts,
				in_manual_queue = :in_manual_queue,
				pending_pricing_id = :pending_pricing_id,
				status = :status,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		result, err := r.db.NamedExecContext(ctx, query, svc)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to update service").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("service not found").
				WithHintf("service %s does not exist", svc.ID).
				Mark(ierr.ErrNotFound)
		}

		arg := map[string]interface{}{"service_id": svc.ID}
		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM service_options WHERE service_id = :service_id`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear service options").
				Mark(ierr.ErrDatabase)
		}
		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM service_pending_options WHERE service_id = :service_id`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear pending service options").
				Mark(ierr.ErrDatabase)
		}
		return r.replaceSelections(ctx, svc)
	})
}

// replaceSelections writes the option selection rows; the caller clears
// existing rows first on update
func (r *serviceRepository) replaceSelections(ctx context.Context, svc *service.Service) error {
	for optionID, valueID := range svc.OptionSelections {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO service_options (service_id, option_id, option_value_id)
			VALUES (:service_id, :option_id, :option_value_id)`,
			map[string]interface{}{
				"service_id":      svc.ID,
				"option_id":       optionID,
				"option_value_id": valueID,
			}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store service option").
				Mark(ierr.ErrDatabase)
		}
	}
	for optionID, valueID := range svc.PendingOptions {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO service_pending_options (service_id, option_id, option_value_id)
			VALUES (:service_id, :option_id, :option_value_id)`,
			map[string]interface{}{
				"service_id":      svc.ID,
				"option_id":       optionID,
				"option_value_id": valueID,
			}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store pending service option").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *serviceRepository) loadSelections(ctx context.Context, svc *service.Service) error {
	selections, err := r.selectionMap(ctx, "service_options", svc.ID)
	if err != nil {
		return err
	}
	pending, err := r.selectionMap(ctx, "service_pending_options", svc.ID)
	if err != nil {
		return err
	}
	svc.OptionSelections = selections
	svc.PendingOptions = pending
	return nil
}

func (r *serviceRepository) selectionMap(ctx context.Context, table, serviceID string) (map[string]string, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT option_id, option_value_id FROM `+table+` WHERE service_id = :service_id`,
		map[string]interface{}{"service_id": serviceID})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to load service options").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var selections map[string]string
	for rows.Next() {
		var optionID, valueID string
		if err := rows.Scan(&optionID, &valueID); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan service option").
				Mark(ierr.ErrDatabase)
		}
		if selections == nil {
			selections = make(map[string]string)
		}
		selections[optionID] = valueID
	}
	return selections, nil
}

func (r *serviceRepository) list(ctx context.Context, query string, arg interface{}) ([]*service.Service, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list services").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var services []*service.Service
	for rows.Next() {
		var svc service.Service
		if err := rows.StructScan(&svc); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan service").
				Mark(ierr.ErrDatabase)
		}
		services = append(services, &svc)
	}
	rows.Close()

	for _, svc := range services {
		if err := r.loadSelections(ctx, svc); err != nil {
			return nil, err
		}
	}
	return services, nil
}

func (r *serviceRepository) ListByClient(ctx context.Context, clientID string) ([]*service.Service, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE client_id = :client_id ORDER BY id`,
		map[string]interface{}{"client_id": clientID})
}

func (r *serviceRepository) ListChildren(ctx context.Context, parentServiceID string) ([]*service.Service, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE parent_service_id = :parent_id ORDER BY id`,
		map[string]interface{}{"parent_id": parentServiceID})
}

func (r *serviceRepository) ListRenewalsDue(ctx context.Context, horizon time.Time, includeSuspended bool) ([]*service.Service, error) {
	statuses := `('active')`
	if includeSuspended {
		statuses = `('active', 'suspended')`
	}
	return r.list(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE service_status IN `+statuses+`
		  AND date_renews IS NOT NULL
		  AND date_renews <= :horizon
		ORDER BY id`,
		map[string]interface{}{"horizon": horizon})
}

func (r *serviceRepository) ListScheduledCancellations(ctx context.Context, asOf time.Time) ([]*service.Service, error) {
	return r.list(ctx, `
		SELECT `+serviceColumns+`
		FROM services
		WHERE service_status <> 'canceled'
		  AND date_canceled IS NOT NULL
		  AND date_canceled <= :as_of
		ORDER BY id`,
		map[string]interface{}{"as_of": asOf})
}

func (r *serviceRepository) ListSuspended(ctx context.Context) ([]*service.Service, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE service_status = 'suspended' ORDER BY id`,
		map[string]interface{}{})
}

func (r *serviceRepository) ListManualQueue(ctx context.Context) ([]*service.Service, error) {
	return r.list(ctx,
		`SELECT `+serviceColumns+` FROM services WHERE in_manual_queue = true ORDER BY id`,
		map[string]interface{}{})
}

func (r *serviceRepository) CountLiveByClient(ctx context.Context, clientID string) (int, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT count(*) AS n FROM services
		WHERE client_id = :client_id
		  AND service_status IN ('active', 'suspended')`,
		map[string]interface{}{"client_id": clientID})
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("failed to count live services").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, ierr.WithError(err).
				WithHint("failed to scan live service count").
				Mark(ierr.ErrDatabase)
		}
	}
	return n, nil
}
