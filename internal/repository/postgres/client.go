package postgres

import (
	"context"

	"github.com/billforge/billforge/internal/domain/client"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type clientRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewClientRepository creates a new postgres client repository
func NewClientRepository(db *postgres.DB, logger *logger.Logger) client.Repository {
	return &clientRepository{db: db, logger: logger}
}

const clientColumns = `
	id, group_id, first_name, last_name, email, country, state,
	default_currency, delivery_method, tax_exempt,
	autodebit_enabled, payment_account_id, payment_account_type, autodebit_failures,
	status, created_at, updated_at, created_by, updated_by`

func (r *clientRepository) Create(ctx context.Context, c *client.Client) error {
	query := `
		INSERT INTO clients (
			id, group_id, first_name, last_name, email, country, state,
			default_currency, delivery_method, tax_exempt,
			autodebit_enabled, payment_account_id, payment_account_type, autodebit_failures,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :group_id, :first_name, :last_name, :email, :country, :state,
			:default_currency, :delivery_method, :tax_exempt,
			:autodebit_enabled, :payment_account_id, :payment_account_type, :autodebit_failures,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating client", "client_id", c.ID)
	if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create client").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *clientRepository) Get(ctx context.Context, id string) (*client.Client, error) {
	query := `SELECT ` + clientColumns + ` FROM clients WHERE id = :id`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get client").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("client not found").
			WithHintf("client %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var c client.Client
	if err := rows.StructScan(&c); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan client").
			Mark(ierr.ErrDatabase)
	}
	return &c, nil
}

func (r *clientRepository) Update(ctx context.Context, c *client.Client) error {
	query := `
		UPDATE clients SET
			group_id = :group_id,
			first_name = :first_name,
			last_name = :last_name,
			email = :email,
			country = :country,
			state = :state,
			default_currency = :default_currency,
			delivery_method = :delivery_method,
			tax_exempt = :tax_exempt,
			autodebit_enabled = :autodebit_enabled,
			payment_account_id = :payment_account_id,
			payment_account_type = :payment_account_type,
			autodebit_failures = :autodebit_failures,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, c)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update client").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("client not found").
			WithHintf("client %s does not exist", c.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *clientRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM clients WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to delete client").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("client not found").
			WithHintf("client %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *clientRepository) ListAutodebitable(ctx context.Context) ([]*client.Client, error) {
	query := `
		SELECT ` + clientColumns + `
		FROM clients
		WHERE status = 'active'
		  AND autodebit_enabled = true
		  AND payment_account_id <> ''
		ORDER BY id`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list autodebitable clients").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var clients []*client.Client
	for rows.Next() {
		var c client.Client
		if err := rows.StructScan(&c); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan client").
				Mark(ierr.ErrDatabase)
		}
		clients = append(clients, &c)
	}
	return clients, nil
}
