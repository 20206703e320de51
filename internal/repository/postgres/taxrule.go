package postgres

import (
	"context"

	"github.com/billforge/billforge/internal/domain/tax"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type taxRuleRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewTaxRuleRepository creates a new postgres tax rule repository
func NewTaxRuleRepository(db *postgres.DB, logger *logger.Logger) tax.Repository {
	return &taxRuleRepository{db: db, logger: logger}
}

const taxRuleColumns = `
	id, level, type, name, amount, country, state,
	status, created_at, updated_at, created_by, updated_by`

func (r *taxRuleRepository) Create(ctx context.Context, rule *tax.Rule) error {
	query := `
		INSERT INTO tax_rules (
			id, level, type, name, amount, country, state,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :level, :type, :name, :amount, :country, :state,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`

	r.logger.Debugw("creating tax rule", "tax_rule_id", rule.ID)
	if _, err := r.db.NamedExecContext(ctx, query, rule); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create tax rule").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *taxRuleRepository) Get(ctx context.Context, id string) (*tax.Rule, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+taxRuleColumns+` FROM tax_rules WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get tax rule").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("tax rule not found").
			WithHintf("tax rule %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var rule tax.Rule
	if err := rows.StructScan(&rule); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan tax rule").
			Mark(ierr.ErrDatabase)
	}
	return &rule, nil
}

func (r *taxRuleRepository) Update(ctx context.Context, rule *tax.Rule) error {
	query := `
		UPDATE tax_rules SET
			level = :level,
			type = :type,
			name = :name,
			amount = :amount,
			country = :country,
			state = :state,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, rule)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update tax rule").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("tax rule not found").
			WithHintf("tax rule %s does not exist", rule.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *taxRuleRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.NamedExecContext(ctx,
		`DELETE FROM tax_rules WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to delete tax rule").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("tax rule not found").
			WithHintf("tax rule %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *taxRuleRepository) ListActive(ctx context.Context) ([]*tax.Rule, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+taxRuleColumns+` FROM tax_rules WHERE status = 'active' ORDER BY level, id`,
		map[string]interface{}{})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list tax rules").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var rules []*tax.Rule
	for rows.Next() {
		var rule tax.Rule
		if err := rows.StructScan(&rule); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan tax rule").
				Mark(ierr.ErrDatabase)
		}
		rules = append(rules, &rule)
	}
	return rules, nil
}
