package postgres

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/invoice"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type invoiceRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewInvoiceRepository creates a new postgres invoice repository
func NewInvoiceRepository(db *postgres.DB, logger *logger.Logger) invoice.Repository {
	return &invoiceRepository{db: db, logger: logger}
}

const invoiceColumns = `
	id, invoice_number, client_id, invoice_status, invoice_type, currency,
	date_billed, date_due, date_closed,
	autodebit_eligible, delivery_method, date_delivered,
	recurring_invoice_id, late_fee_applied,
	subtotal, tax_total, total, amount_paid,
	status, created_at, updated_at, created_by, updated_by`

const lineItemColumns = `
	id, invoice_id, type, service_id, description,
	qty, unit_amount, amount, taxable, parent_index, sort_order`

func (r *invoiceRepository) Create(ctx context.Context, inv *invoice.Invoice) error {
	r.logger.Debugw("creating invoice",
		"invoice_id", inv.ID, "invoice_number", inv.InvoiceNumber)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO invoices (
				id, invoice_number, client_id, invoice_status, invoice_type, currency,
				date_billed, date_due, date_closed,
				autodebit_eligible, delivery_method, date_delivered,
				recurring_invoice_id, late_fee_applied,
				subtotal, tax_total, total, amount_paid,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :invoice_number, :client_id, :invoice_status, :invoice_type, :currency,
				:date_billed, :date_due, :date_closed,
				:autodebit_eligible, :delivery_method, :date_delivered,
				:recurring_invoice_id, :late_fee_applied,
				:subtotal, :tax_total, :total, :amount_paid,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, inv); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create invoice").
				Mark(ierr.ErrDatabase)
		}
		return r.insertLines(ctx, inv)
	})
}

// insertLines persists the invoice lines with their positions; the line
// order is load-bearing for parent references and display
func (r *invoiceRepository) insertLines(ctx context.Context, inv *invoice.Invoice) error {
	for i, line := range inv.Lines {
		arg := map[string]interface{}{
			"id":           line.ID,
			"invoice_id":   inv.ID,
			"type":         line.Type,
			"service_id":   line.ServiceID,
			"description":  line.Description,
			"qty":          line.Qty,
			"unit_amount":  line.UnitAmount,
			"amount":       line.Amount,
			"taxable":      line.Taxable,
			"parent_index": line.ParentIndex,
			"sort_order":   i,
		}
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO invoice_line_items (
				id, invoice_id, type, service_id, description,
				qty, unit_amount, amount, taxable, parent_index, sort_order
			) VALUES (
				:id, :invoice_id, :type, :service_id, :description,
				:qty, :unit_amount, :amount, :taxable, :parent_index, :sort_order
			)`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store invoice line").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *invoiceRepository) Get(ctx context.Context, id string) (*invoice.Invoice, error) {
	return r.getWhere(ctx, `id = :arg`, id)
}

func (r *invoiceRepository) GetByNumber(ctx context.Context, invoiceNumber string) (*invoice.Invoice, error) {
	return r.getWhere(ctx, `invoice_number = :arg`, invoiceNumber)
}

func (r *invoiceRepository) getWhere(ctx context.Context, where, arg string) (*invoice.Invoice, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+invoiceColumns+` FROM invoices WHERE `+where,
		map[string]interface{}{"arg": arg})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get invoice").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("invoice not found").
			WithHintf("invoice %s does not exist", arg).
			Mark(ierr.ErrNotFound)
	}

	var inv invoice.Invoice
	if err := rows.StructScan(&inv); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan invoice").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if err := r.loadLines(ctx, &inv); err != nil {
		return nil, err
	}
	return &inv, nil
}

func (r *invoiceRepository) loadLines(ctx context.Context, inv *invoice.Invoice) error {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+lineItemColumns+` FROM invoice_line_items
		 WHERE invoice_id = :invoice_id ORDER BY sort_order`,
		map[string]interface{}{"invoice_id": inv.ID})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load invoice lines").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	for rows.Next() {
		var line invoice.LineItem
		if err := rows.StructScan(&line); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan invoice line").
				Mark(ierr.ErrDatabase)
		}
		inv.Lines = append(inv.Lines, &line)
	}
	return nil
}

func (r *invoiceRepository) Update(ctx context.Context, inv *invoice.Invoice) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE invoices SET
				invoice_number = :invoice_number,
				client_id = :client_id,
				invoice_status = :invoice_status,
				invoice_type = :invoice_type,
				currency = :currency,
				date_billed = :date_billed,
				date_due = :date_due,
				date_closed = :date_closed,
				autodebit_eligible = :autodebit_eligible,
				delivery_method = :delivery_method,
				date_delivered = :date_delivered,
				recurring_invoice_id = :recurring_invoice_id,
				late_fee_applied = :late_fee_applied,
				subtotal = :subtotal,
				tax_total = :tax_total,
				total = :total,
				amount_paid = :amount_paid,
				status = :status,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		result, err := r.db.NamedExecContext(ctx, query, inv)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to update invoice").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("invoice not found").
				WithHintf("invoice %s does not exist", inv.ID).
				Mark(ierr.ErrNotFound)
		}

		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM invoice_line_items WHERE invoice_id = :invoice_id`,
			map[string]interface{}{"invoice_id": inv.ID}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear invoice lines").
				Mark(ierr.ErrDatabase)
		}
		return r.insertLines(ctx, inv)
	})
}

func (r *invoiceRepository) list(ctx context.Context, query string, arg interface{}) ([]*invoice.Invoice, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var invoices []*invoice.Invoice
	for rows.Next() {
		var inv invoice.Invoice
		if err := rows.StructScan(&inv); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan invoice").
				Mark(ierr.ErrDatabase)
		}
		invoices = append(invoices, &inv)
	}
	rows.Close()

	for _, inv := range invoices {
		if err := r.loadLines(ctx, inv); err != nil {
			return nil, err
		}
	}
	return invoices, nil
}

const openInvoice = `
	invoice_status = 'active' AND date_closed IS NULL AND total - amount_paid > 0`

func (r *invoiceRepository) ListByClient(ctx context.Context, clientID string) ([]*invoice.Invoice, error) {
	return r.list(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE client_id = :client_id ORDER BY date_due, id`,
		map[string]interface{}{"client_id": clientID})
}

func (r *invoiceRepository) ListOpen(ctx context.Context, clientID string) ([]*invoice.Invoice, error) {
	return r.list(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE client_id = :client_id AND `+openInvoice+`
		 ORDER BY date_due, id`,
		map[string]interface{}{"client_id": clientID})
}

func (r *invoiceRepository) ListOverdue(ctx context.Context, now time.Time, graceDays int) ([]*invoice.Invoice, error) {
	// overdue by at least graceDays counted in whole UTC days
	dueBefore := utcDayStart(now).AddDate(0, 0, -graceDays+1)
	return r.list(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE `+openInvoice+` AND date_due < :due_before
		 ORDER BY date_due, id`,
		map[string]interface{}{"due_before": dueBefore})
}

func (r *invoiceRepository) ListAutodebitDue(ctx context.Context, now time.Time, daysBeforeDue int) ([]*invoice.Invoice, error) {
	// due within daysBeforeDue UTC days; already-overdue invoices qualify
	dueBefore := utcDayStart(now).AddDate(0, 0, daysBeforeDue+1)
	return r.list(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE `+openInvoice+` AND autodebit_eligible = true AND date_due < :due_before
		 ORDER BY date_due, id`,
		map[string]interface{}{"due_before": dueBefore})
}

func (r *invoiceRepository) ListUndelivered(ctx context.Context) ([]*invoice.Invoice, error) {
	return r.list(ctx,
		`SELECT `+invoiceColumns+` FROM invoices
		 WHERE invoice_status = 'active' AND date_delivered IS NULL
		 ORDER BY date_due, id`,
		map[string]interface{}{})
}

func (r *invoiceRepository) CountOpenByClient(ctx context.Context, clientID string) (int, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT count(*) AS n FROM invoices
		 WHERE client_id = :client_id AND `+openInvoice,
		map[string]interface{}{"client_id": clientID})
	if err != nil {
		return 0, ierr.WithError(err).
			WithHint("failed to count open invoices").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return 0, ierr.WithError(err).
				WithHint("failed to scan open invoice count").
				Mark(ierr.ErrDatabase)
		}
	}
	return n, nil
}

func (r *invoiceRepository) ExistsForServicePeriod(ctx context.Context, serviceID string, renewsAt time.Time) (bool, error) {
	// renewal invoices come due on the service's renewal date, so a
	// non-void invoice with a service line due that UTC day means the
	// period is already billed
	dayStart := utcDayStart(renewsAt)
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT count(*) AS n
		FROM invoices i
		JOIN invoice_line_items l ON l.invoice_id = i.id
		WHERE i.invoice_status <> 'void'
		  AND i.date_due >= :day_start AND i.date_due < :day_end
		  AND l.type = 'service' AND l.service_id = :service_id`,
		map[string]interface{}{
			"service_id": serviceID,
			"day_start":  dayStart,
			"day_end":    dayStart.AddDate(0, 0, 1),
		})
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("failed to check billed period").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, ierr.WithError(err).
				WithHint("failed to scan billed period count").
				Mark(ierr.ErrDatabase)
		}
	}
	return n > 0, nil
}

func utcDayStart(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
