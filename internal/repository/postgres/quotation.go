package postgres

import (
	"context"
	"time"

	"github.com/billforge/billforge/internal/domain/quotation"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type quotationRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewQuotationRepository creates a new postgres quotation repository
func NewQuotationRepository(db *postgres.DB, logger *logger.Logger) quotation.Repository {
	return &quotationRepository{db: db, logger: logger}
}

const quotationColumns = `
	id, quotation_number, client_id, quotation_status, currency, title, notes,
	date_created, date_expires, date_invoiced, deposit_percentage,
	subtotal, tax_total, total,
	status, created_at, updated_at, created_by, updated_by`

func (r *quotationRepository) Create(ctx context.Context, q *quotation.Quotation) error {
	r.logger.Debugw("creating quotation",
		"quotation_id", q.ID, "quotation_number", q.QuotationNumber)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO quotations (
				id, quotation_number, client_id, quotation_status, currency, title, notes,
				date_created, date_expires, date_invoiced, deposit_percentage,
				subtotal, tax_total, total,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :quotation_number, :client_id, :quotation_status, :currency, :title, :notes,
				:date_created, :date_expires, :date_invoiced, :deposit_percentage,
				:subtotal, :tax_total, :total,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, q); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create quotation").
				Mark(ierr.ErrDatabase)
		}
		return r.insertChildren(ctx, q)
	})
}

func (r *quotationRepository) insertChildren(ctx context.Context, q *quotation.Quotation) error {
	for i, line := range q.Lines {
		arg := map[string]interface{}{
			"id":           line.ID,
			"quotation_id": q.ID,
			"description":  line.Description,
			"qty":          line.Qty,
			"unit_amount":  line.UnitAmount,
			"amount":       line.Amount,
			"taxable":      line.Taxable,
			"sort_order":   i,
		}
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO quotation_lines (
				id, quotation_id, description, qty, unit_amount, amount, taxable, sort_order
			) VALUES (
				:id, :quotation_id, :description, :qty, :unit_amount, :amount, :taxable, :sort_order
			)`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store quotation line").
				Mark(ierr.ErrDatabase)
		}
	}
	for _, invoiceID := range q.InvoiceIDs {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO quotation_invoices (quotation_id, invoice_id)
			VALUES (:quotation_id, :invoice_id)`,
			map[string]interface{}{"quotation_id": q.ID, "invoice_id": invoiceID}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to link quotation invoice").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *quotationRepository) Get(ctx context.Context, id string) (*quotation.Quotation, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+quotationColumns+` FROM quotations WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get quotation").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("quotation not found").
			WithHintf("quotation %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var q quotation.Quotation
	if err := rows.StructScan(&q); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan quotation").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if err := r.loadChildren(ctx, &q); err != nil {
		return nil, err
	}
	return &q, nil
}

func (r *quotationRepository) loadChildren(ctx context.Context, q *quotation.Quotation) error {
	arg := map[string]interface{}{"quotation_id": q.ID}

	lineRows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, quotation_id, description, qty, unit_amount, amount, taxable, sort_order
		FROM quotation_lines WHERE quotation_id = :quotation_id ORDER BY sort_order`, arg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load quotation lines").
			Mark(ierr.ErrDatabase)
	}
	defer lineRows.Close()
	for lineRows.Next() {
		var line quotation.Line
		if err := lineRows.StructScan(&line); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan quotation line").
				Mark(ierr.ErrDatabase)
		}
		q.Lines = append(q.Lines, &line)
	}
	lineRows.Close()

	invoiceRows, err := r.db.NamedQueryContext(ctx, `
		SELECT invoice_id FROM quotation_invoices
		WHERE quotation_id = :quotation_id ORDER BY invoice_id`, arg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load quotation invoices").
			Mark(ierr.ErrDatabase)
	}
	defer invoiceRows.Close()
	for invoiceRows.Next() {
		var id string
		if err := invoiceRows.Scan(&id); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan quotation invoice link").
				Mark(ierr.ErrDatabase)
		}
		q.InvoiceIDs = append(q.InvoiceIDs, id)
	}
	return nil
}

func (r *quotationRepository) Update(ctx context.Context, q *quotation.Quotation) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE quotations SET
				quotation_number = :quotation_number,
				client_id = :client_id,
				quotation_status = :quotation_status,
				currency = :currency,
				title = :title,
				notes = :notes,
				date_created = :date_created,
				date_expires = :date_expires,
				date_invoiced = :date_invoiced,
				deposit_percentage = :deposit_percentage,
				subtotal = :subtotal,
				tax_total = :tax_total,
				total = :total,
				status = :status,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		result, err := r.db.NamedExecContext(ctx, query, q)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to update quotation").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("quotation not found").
				WithHintf("quotation %s does not exist", q.ID).
				Mark(ierr.ErrNotFound)
		}

		arg := map[string]interface{}{"quotation_id": q.ID}
		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM quotation_lines WHERE quotation_id = :quotation_id`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear quotation lines").
				Mark(ierr.ErrDatabase)
		}
		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM quotation_invoices WHERE quotation_id = :quotation_id`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear quotation invoice links").
				Mark(ierr.ErrDatabase)
		}
		return r.insertChildren(ctx, q)
	})
}

func (r *quotationRepository) list(ctx context.Context, query string, arg interface{}) ([]*quotation.Quotation, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list quotations").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var quotations []*quotation.Quotation
	for rows.Next() {
		var q quotation.Quotation
		if err := rows.StructScan(&q); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan quotation").
				Mark(ierr.ErrDatabase)
		}
		quotations = append(quotations, &q)
	}
	rows.Close()

	for _, q := range quotations {
		if err := r.loadChildren(ctx, q); err != nil {
			return nil, err
		}
	}
	return quotations, nil
}

func (r *quotationRepository) ListByClient(ctx context.Context, clientID string) ([]*quotation.Quotation, error) {
	return r.list(ctx,
		`SELECT `+quotationColumns+` FROM quotations
		 WHERE client_id = :client_id ORDER BY id`,
		map[string]interface{}{"client_id": clientID})
}

func (r *quotationRepository) ListExpiring(ctx context.Context, now time.Time) ([]*quotation.Quotation, error) {
	return r.list(ctx,
		`SELECT `+quotationColumns+` FROM quotations
		 WHERE quotation_status IN ('draft', 'pending') AND date_expires < :now
		 ORDER BY id`,
		map[string]interface{}{"now": now})
}
