package postgres

import (
	"context"

	"github.com/billforge/billforge/internal/domain/transaction"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type transactionRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewTransactionRepository creates a new postgres transaction repository
func NewTransactionRepository(db *postgres.DB, logger *logger.Logger) transaction.Repository {
	return &transactionRepository{db: db, logger: logger}
}

const transactionColumns = `
	id, client_id, transaction_type, transaction_status, currency, amount,
	gateway_name, gateway_reference, parent_transaction_id, date_received,
	status, created_at, updated_at, created_by, updated_by`

func (r *transactionRepository) Create(ctx context.Context, t *transaction.Transaction) error {
	r.logger.Debugw("creating transaction",
		"transaction_id", t.ID, "client_id", t.ClientID)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO transactions (
				id, client_id, transaction_type, transaction_status, currency, amount,
				gateway_name, gateway_reference, parent_transaction_id, date_received,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :client_id, :transaction_type, :transaction_status, :currency, :amount,
				:gateway_name, :gateway_reference, :parent_transaction_id, :date_received,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, t); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create transaction").
				Mark(ierr.ErrDatabase)
		}
		return r.insertApplications(ctx, t)
	})
}

func (r *transactionRepository) insertApplications(ctx context.Context, t *transaction.Transaction) error {
	for _, app := range t.Applications {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO transaction_applications (id, transaction_id, invoice_id, amount, date_applied)
			VALUES (:id, :transaction_id, :invoice_id, :amount, :date_applied)`, app); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store transaction application").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *transactionRepository) Get(ctx context.Context, id string) (*transaction.Transaction, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+transactionColumns+` FROM transactions WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get transaction").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("transaction not found").
			WithHintf("transaction %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var t transaction.Transaction
	if err := rows.StructScan(&t); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan transaction").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if err := r.loadApplications(ctx, &t); err != nil {
		return nil, err
	}
	return &t, nil
}

func (r *transactionRepository) loadApplications(ctx context.Context, t *transaction.Transaction) error {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, transaction_id, invoice_id, amount, date_applied
		FROM transaction_applications
		WHERE transaction_id = :transaction_id ORDER BY date_applied, id`,
		map[string]interface{}{"transaction_id": t.ID})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load transaction applications").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	for rows.Next() {
		var app transaction.Application
		if err := rows.StructScan(&app); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan transaction application").
				Mark(ierr.ErrDatabase)
		}
		t.Applications = append(t.Applications, &app)
	}
	return nil
}

func (r *transactionRepository) Update(ctx context.Context, t *transaction.Transaction) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE transactions SET
				client_id = :client_id,
				transaction_type = :transaction_type,
				transaction_status = :transaction_status,
				currency = :currency,
				amount = :amount,
				gateway_name = :gateway_name,
				gateway_reference = :gateway_reference,
				parent_transaction_id = :parent_transaction_id,
				date_received = :date_received,
				status = :status,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		result, err := r.db.NamedExecContext(ctx, query, t)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to update transaction").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("transaction not found").
				WithHintf("transaction %s does not exist", t.ID).
				Mark(ierr.ErrNotFound)
		}

		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM transaction_applications WHERE transaction_id = :transaction_id`,
			map[string]interface{}{"transaction_id": t.ID}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear transaction applications").
				Mark(ierr.ErrDatabase)
		}
		return r.insertApplications(ctx, t)
	})
}

func (r *transactionRepository) list(ctx context.Context, query string, arg interface{}) ([]*transaction.Transaction, error) {
	rows, err := r.db.NamedQueryContext(ctx, query, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list transactions").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var transactions []*transaction.Transaction
	for rows.Next() {
		var t transaction.Transaction
		if err := rows.StructScan(&t); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan transaction").
				Mark(ierr.ErrDatabase)
		}
		transactions = append(transactions, &t)
	}
	rows.Close()

	for _, t := range transactions {
		if err := r.loadApplications(ctx, t); err != nil {
			return nil, err
		}
	}
	return transactions, nil
}

func (r *transactionRepository) ListByClient(ctx context.Context, clientID string) ([]*transaction.Transaction, error) {
	return r.list(ctx,
		`SELECT `+transactionColumns+` FROM transactions
		 WHERE client_id = :client_id ORDER BY id`,
		map[string]interface{}{"client_id": clientID})
}

func (r *transactionRepository) ListByInvoice(ctx context.Context, invoiceID string) ([]*transaction.Transaction, error) {
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions t
		WHERE EXISTS (
			SELECT 1 FROM transaction_applications a
			WHERE a.transaction_id = t.id AND a.invoice_id = :invoice_id
		)
		ORDER BY id`,
		map[string]interface{}{"invoice_id": invoiceID})
}

func (r *transactionRepository) ListWithCredit(ctx context.Context, clientID string) ([]*transaction.Transaction, error) {
	// settled transactions whose applications do not exhaust the amount
	return r.list(ctx, `
		SELECT `+transactionColumns+` FROM transactions t
		WHERE t.client_id = :client_id
		  AND t.transaction_status = 'approved'
		  AND t.amount > (
			SELECT COALESCE(SUM(a.amount), 0)
			FROM transaction_applications a
			WHERE a.transaction_id = t.id
		  )
		ORDER BY id`,
		map[string]interface{}{"client_id": clientID})
}
