package postgres

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/recurringinvoice"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type recurringInvoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewRecurringInvoiceRepository creates a new postgres recurring invoice repository
func NewRecurringInvoiceRepository(db *postgres.DB, logger *logger.Logger) recurringinvoice.Repository {
	return &recurringInvoiceRepository{db: db, logger: logger}
}

const recurringColumns = `
	id, client_id, currency, title, term, period,
	duration, generated_count, next_generation, due_days,
	autodebit_eligible, delivery_method,
	status, created_at, updated_at, created_by, updated_by`

func (r *recurringInvoiceRepository) Create(ctx context.Context, ri *recurringinvoice.RecurringInvoice) error {
	r.logger.Debugw("creating recurring invoice", "recurring_invoice_id", ri.ID)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO recurring_invoices (
				id, client_id, currency, title, term, period,
				duration, generated_count, next_generation, due_days,
				autodebit_eligible, delivery_method,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :client_id, :currency, :title, :term, :period,
				:duration, :generated_count, :next_generation, :due_days,
				:autodebit_eligible, :delivery_method,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, ri); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create recurring invoice").
				Mark(ierr.ErrDatabase)
		}
		return r.insertLines(ctx, ri)
	})
}

func (r *recurringInvoiceRepository) insertLines(ctx context.Context, ri *recurringinvoice.RecurringInvoice) error {
	for i, line := range ri.Lines {
		arg := map[string]interface{}{
			"id":                   line.ID,
			"recurring_invoice_id": ri.ID,
			"description":          line.Description,
			"qty":                  line.Qty,
			"unit_amount":          line.UnitAmount,
			"amount":               line.Amount,
			"taxable":              line.Taxable,
			"sort_order":           i,
		}
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO recurring_invoice_lines (
				id, recurring_invoice_id, description, qty, unit_amount, amount, taxable, sort_order
			) VALUES (
				:id, :recurring_invoice_id, :description, :qty, :unit_amount, :amount, :taxable, :sort_order
			)`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store recurring invoice line").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *recurringInvoiceRepository) Get(ctx context.Context, id string) (*recurringinvoice.RecurringInvoice, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+recurringColumns+` FROM recurring_invoices WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get recurring invoice").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("recurring invoice not found").
			WithHintf("recurring invoice %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var ri recurringinvoice.RecurringInvoice
	if err := rows.StructScan(&ri); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan recurring invoice").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if err := r.loadLines(ctx, &ri); err != nil {
		return nil, err
	}
	return &ri, nil
}

func (r *recurringInvoiceRepository) loadLines(ctx context.Context, ri *recurringinvoice.RecurringInvoice) error {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, recurring_invoice_id, description, qty, unit_amount, amount, taxable, sort_order
		FROM recurring_invoice_lines
		WHERE recurring_invoice_id = :recurring_invoice_id ORDER BY sort_order`,
		map[string]interface{}{"recurring_invoice_id": ri.ID})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load recurring invoice lines").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	for rows.Next() {
		var line recurringinvoice.Line
		if err := rows.StructScan(&line); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan recurring invoice line").
				Mark(ierr.ErrDatabase)
		}
		ri.Lines = append(ri.Lines, &line)
	}
	return nil
}

func (r *recurringInvoiceRepository) Update(ctx context.Context, ri *recurringinvoice.RecurringInvoice) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE recurring_invoices SET
				client_id = :client_id,
				currency = :currency,
				title = :title,
				term = :term,
				period = :period,
				duration = :duration,
				generated_count = :generated_count,
				next_generation = :next_generation,
				due_days = :due_days,
				autodebit_eligible = :autodebit_eligible,
				delivery_method = :delivery_method,
				status = :status,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		result, err := r.db.NamedExecContext(ctx, query, ri)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to update recurring invoice").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("recurring invoice not found").
				WithHintf("recurring invoice %s does not exist", ri.ID).
				Mark(ierr.ErrNotFound)
		}

		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM recurring_invoice_lines WHERE recurring_invoice_id = :recurring_invoice_id`,
			map[string]interface{}{"recurring_invoice_id": ri.ID}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear recurring invoice lines").
				Mark(ierr.ErrDatabase)
		}
		return r.insertLines(ctx, ri)
	})
}

func (r *recurringInvoiceRepository) list(ctx context.Context, query string, arg interface{}) ([]*recurringinvoice.RecurringInvoice, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list recurring invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var templates []*recurringinvoice.RecurringInvoice
	for rows.Next() {
		var ri recurringinvoice.RecurringInvoice
		if err := rows.StructScan(&ri); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan recurring invoice").
				Mark(ierr.ErrDatabase)
		}
		templates = append(templates, &ri)
	}
	rows.Close()

	for _, ri := range templates {
		if err := r.loadLines(ctx, ri); err != nil {
			return nil, err
		}
	}
	return templates, nil
}

func (r *recurringInvoiceRepository) ListByClient(ctx context.Context, clientID string) ([]*recurringinvoice.RecurringInvoice, error) {
	return r.list(ctx,
		`SELECT `+recurringColumns+` FROM recurring_invoices
		 WHERE client_id = :client_id ORDER BY id`,
		map[string]interface{}{"client_id": clientID})
}

func (r *recurringInvoiceRepository) ListDue(ctx context.Context, now time.Time) ([]*recurringinvoice.RecurringInvoice, error) {
	return r.list(ctx, `
		SELECT `+recurringColumns+` FROM recurring_invoices
		WHERE status = 'active'
		  AND next_generation <= :now
		  AND (duration = 0 OR generated_count < duration)
		ORDER BY id`,
		map[string]interface{}{"now": now})
}

func (r *recurringInvoiceRepository) CountActiveByClient(ctx context.Context, clientID string) (int, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT count(*) AS n FROM recurring_invoices
		WHERE client_id = :client_id AND status = 'active'`,
		map[string]interface{}{"client_id": clientID})
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("failed to count recurring invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, ierr.WithError(err).
				WithHint("failed to scan recurring invoice count").
				Mark(ierr.ErrDatabase)
		}
	}
	return n, nil
}
