package postgres

import (
	"context"

	"github.com/billforge/billforge/internal/domain/plan"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
	"github.com/billforge/billforge/internal/types"
)

type planRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewPlanRepository creates a new postgres package repository
func NewPlanRepository(db *postgres.DB, logger *logger.Logger) plan.Repository {
	return &planRepository{db: db, logger: logger}
}

func (r *planRepository) CreatePackage(ctx context.Context, pkg *plan.Package) error {
	r.logger.Debugw("creating package", "package_id", pkg.ID)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO packages (
				id, group_id, name, description, module_key, taxable,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :group_id, :name, :description, :module_key, :taxable,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, pkg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create package").
				Mark(ierr.ErrDatabase)
		}

		for _, pricing := range pkg.Pricings {
			if err := r.insertPricing(ctx, pricing); err != nil {
				return err
			}
		}
		for _, opt := range pkg.Options {
			if err := r.insertOption(ctx, opt); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *planRepository) insertPricing(ctx context.Context, pricing *plan.Pricing) error {
	query := `
		INSERT INTO package_pricings (
			id, package_id, term, period, currency,
			price, price_renews, setup_fee, cancel_fee,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :package_id, :term, :period, :currency,
			:price, :price_renews, :setup_fee, :cancel_fee,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := r.db.NamedExecContext(ctx, query, pricing); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create package pricing").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) insertOption(ctx context.Context, opt *plan.Option) error {
	query := `
		INSERT INTO package_options (
			id, package_id, name,
			status, created_at, updated_at, created_by, updated_by
		) VALUES (
			:id, :package_id, :name,
			:status, :created_at, :updated_at, :created_by, :updated_by
		)`
	if _, err := r.db.NamedExecContext(ctx, query, opt); err != nil {
		return ierr.WithError(err).
			WithHint("failed to create package option").
			Mark(ierr.ErrDatabase)
	}

	for _, v := range opt.Values {
		valueQuery := `
			INSERT INTO option_values (
				id, option_id, name, value,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :option_id, :name, :value,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, valueQuery, v); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create option value").
				Mark(ierr.ErrDatabase)
		}
		for _, p := range v.Pricings {
			pricingQuery := `
				INSERT INTO option_pricings (
					id, option_value_id, term, period, currency, price, setup_fee,
					status, created_at, updated_at, created_by, updated_by
				) VALUES (
					:id, :option_value_id, :term, :period, :currency, :price, :setup_fee,
					:status, :created_at, :updated_at, :created_by, :updated_by
				)`
			if _, err := r.db.NamedExecContext(ctx, pricingQuery, p); err != nil {
				return ierr.WithError(err).
					WithHint("failed to create option pricing").
					Mark(ierr.ErrDatabase)
			}
		}
	}

	for _, set := range opt.Logic {
		setQuery := `
			INSERT INTO option_logic_sets (id, option_id, target_value_id, action)
			VALUES (:id, :option_id, :target_value_id, :action)`
		if _, err := r.db.NamedExecContext(ctx, setQuery, set); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create option logic set").
				Mark(ierr.ErrDatabase)
		}
		for _, cond := range set.Conditions {
			condQuery := `
				INSERT INTO option_logic_conditions (id, logic_set_id, trigger_option_id, trigger_value_id)
				VALUES (:id, :logic_set_id, :trigger_option_id, :trigger_value_id)`
			if _, err := r.db.NamedExecContext(ctx, condQuery, cond); err != nil {
				return ierr.WithError(err).
					WithHint("failed to create option logic condition").
					Mark(ierr.ErrDatabase)
			}
		}
	}
	return nil
}

func (r *planRepository) GetPackage(ctx context.Context, id string) (*plan.Package, error) {
	query := `
		SELECT id, group_id, name, description, module_key, taxable,
		       status, created_at, updated_at, created_by, updated_by
		FROM packages WHERE id = :id`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get package").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("package not found").
			WithHintf("package %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var pkg plan.Package
	if err := rows.StructScan(&pkg); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan package").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if pkg.Pricings, err = r.loadPricings(ctx, id); err != nil {
		return nil, err
	}
	if pkg.Options, err = r.loadOptions(ctx, id); err != nil {
		return nil, err
	}
	return &pkg, nil
}

func (r *planRepository) loadPricings(ctx context.Context, packageID string) ([]*plan.Pricing, error) {
	query := `
		SELECT id, package_id, term, period, currency,
		       price, price_renews, setup_fee, cancel_fee,
		       status, created_at, updated_at, created_by, updated_by
		FROM package_pricings
		WHERE package_id = :package_id
		ORDER BY term, period`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"package_id": packageID})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list package pricings").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var pricings []*plan.Pricing
	for rows.Next() {
		var p plan.Pricing
		if err := rows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan package pricing").
				Mark(ierr.ErrDatabase)
		}
		pricings = append(pricings, &p)
	}
	return pricings, nil
}

// loadOptions assembles the full option tree for a package: options, their
// values and per-term value pricings, and the enable/disable logic sets.
func (r *planRepository) loadOptions(ctx context.Context, packageID string) ([]*plan.Option, error) {
	arg := map[string]interface{}{"package_id": packageID}

	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, package_id, name,
		       status, created_at, updated_at, created_by, updated_by
		FROM package_options
		WHERE package_id = :package_id
		ORDER BY id`, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list package options").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var options []*plan.Option
	byOption := make(map[string]*plan.Option)
	for rows.Next() {
		var o plan.Option
		if err := rows.StructScan(&o); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan package option").
				Mark(ierr.ErrDatabase)
		}
		options = append(options, &o)
		byOption[o.ID] = &o
	}
	rows.Close()
	if len(options) == 0 {
		return nil, nil
	}

	valueRows, err := r.db.NamedQueryContext(ctx, `
		SELECT v.id, v.option_id, v.name, v.value,
		       v.status, v.created_at, v.updated_at, v.created_by, v.updated_by
		FROM option_values v
		JOIN package_options o ON o.id = v.option_id
		WHERE o.package_id = :package_id
		ORDER BY v.id`, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list option values").
			Mark(ierr.ErrDatabase)
	}
	defer valueRows.Close()

	byValue := make(map[string]*plan.OptionValue)
	for valueRows.Next() {
		var v plan.OptionValue
		if err := valueRows.StructScan(&v); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan option value").
				Mark(ierr.ErrDatabase)
		}
		byValue[v.ID] = &v
		if opt := byOption[v.OptionID]; opt != nil {
			opt.Values = append(opt.Values, &v)
		}
	}
	valueRows.Close()

	pricingRows, err := r.db.NamedQueryContext(ctx, `
		SELECT p.id, p.option_value_id, p.term, p.period, p.currency, p.price, p.setup_fee,
		       p.status, p.created_at, p.updated_at, p.created_by, p.updated_by
		FROM option_pricings p
		JOIN option_values v ON v.id = p.option_value_id
		JOIN package_options o ON o.id = v.option_id
		WHERE o.package_id = :package_id
		ORDER BY p.term, p.period`, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list option pricings").
			Mark(ierr.ErrDatabase)
	}
	defer pricingRows.Close()

	for pricingRows.Next() {
		var p plan.OptionPricing
		if err := pricingRows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan option pricing").
				Mark(ierr.ErrDatabase)
		}
		if v := byValue[p.OptionValueID]; v != nil {
			v.Pricings = append(v.Pricings, &p)
		}
	}
	pricingRows.Close()

	setRows, err := r.db.NamedQueryContext(ctx, `
		SELECT s.id, s.option_id, s.target_value_id, s.action
		FROM option_logic_sets s
		JOIN package_options o ON o.id = s.option_id
		WHERE o.package_id = :package_id
		ORDER BY s.id`, arg)
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list option logic sets").
			Mark(ierr.ErrDatabase)
	}
	defer setRows.Close()

	bySet := make(map[string]*plan.OptionLogicSet)
	for setRows.Next() {
		var s plan.OptionLogicSet
		if err := setRows.StructScan(&s); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan option logic set").
				Mark(ierr.ErrDatabase)
		}
		bySet[s.ID] = &s
		if opt := byOption[s.OptionID]; opt != nil {
			opt.Logic = append(opt.Logic, &s)
		}
	}
	setRows.Close()

	if len(bySet) > 0 {
		condRows, err := r.db.NamedQueryContext(ctx, `
			SELECT c.id, c.logic_set_id, c.trigger_option_id, c.trigger_value_id
			FROM option_logic_conditions c
			JOIN option_logic_sets s ON s.id = c.logic_set_id
			JOIN package_options o ON o.id = s.option_id
			WHERE o.package_id = :package_id
			ORDER BY c.id`, arg)
		if err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to list option logic conditions").
				Mark(ierr.ErrDatabase)
		}
		defer condRows.Close()

		for condRows.Next() {
			var c plan.OptionLogicCondition
			if err := condRows.StructScan(&c); err != nil {
				return nil, ierr.WithError(err).
					WithHint("failed to scan option logic condition").
					Mark(ierr.ErrDatabase)
			}
			if set := bySet[c.LogicSetID]; set != nil {
				set.Conditions = append(set.Conditions, &c)
			}
		}
	}

	return options, nil
}

func (r *planRepository) UpdatePackage(ctx context.Context, pkg *plan.Package) error {
	query := `
		UPDATE packages SET
			group_id = :group_id,
			name = :name,
			description = :description,
			module_key = :module_key,
			taxable = :taxable,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	result, err := r.db.NamedExecContext(ctx, query, pkg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to update package").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		return ierr.NewError("package not found").
			WithHintf("package %s does not exist", pkg.ID).
			Mark(ierr.ErrNotFound)
	}
	return nil
}

func (r *planRepository) GetPricing(ctx context.Context, id string) (*plan.Pricing, error) {
	query := `
		SELECT id, package_id, term, period, currency,
		       price, price_renews, setup_fee, cancel_fee,
		       status, created_at, updated_at, created_by, updated_by
		FROM package_pricings WHERE id = :id`

	rows, err := r.db.NamedQueryContext(ctx, query, map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get pricing").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("pricing not found").
			WithHintf("pricing %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var p plan.Pricing
	if err := rows.StructScan(&p); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan pricing").
			Mark(ierr.ErrDatabase)
	}
	return &p, nil
}

func (r *planRepository) UpdatePricing(ctx context.Context, pricing *plan.Pricing) error {
	existing, err := r.GetPricing(ctx, pricing.ID)
	if err != nil {
		return err
	}

	// Term, period and currency freeze once any service references the row
	if pricing.Term != existing.Term || pricing.Period != existing.Period ||
		!types.IsMatchingCurrency(pricing.Currency, existing.Currency) {
		inUse, err := r.pricingInUse(ctx, pricing.ID)
		if err != nil {
			return err
		}
		if inUse {
			return ierr.NewError("pricing term is frozen").
				WithHint("Term, period and currency cannot change on a pricing referenced by services").
				Mark(ierr.ErrInvalidOperation)
		}
	}

	query := `
		UPDATE package_pricings SET
			term = :term,
			period = :period,
			currency = :currency,
			price = :price,
			price_renews = :price_renews,
			setup_fee = :setup_fee,
			cancel_fee = :cancel_fee,
			status = :status,
			updated_at = :updated_at,
			updated_by = :updated_by
		WHERE id = :id`

	if _, err := r.db.NamedExecContext(ctx, query, pricing); err != nil {
		return ierr.WithError(err).
			WithHint("failed to update pricing").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *planRepository) pricingInUse(ctx context.Context, pricingID string) (bool, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT count(*) AS n FROM services
		WHERE pricing_id = :id OR pending_pricing_id = :id`,
		map[string]interface{}{"id": pricingID})
	if err != nil {
		return false, ierr.WithError(err).
			WithHint("failed to count pricing references").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var n int
	if rows.Next() {
		if err := rows.Scan(&n); err != nil {
			return false, ierr.WithError(err).
				WithHint("failed to scan pricing reference count").
				Mark(ierr.ErrDatabase)
		}
	}
	return n > 0, nil
}

func (r *planRepository) GetOptionValue(ctx context.Context, id string) (*plan.OptionValue, error) {
	rows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, option_id, name, value,
		       status, created_at, updated_at, created_by, updated_by
		FROM option_values WHERE id = :id`,
		map[string]interface{}{"id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get option value").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("option value not found").
			WithHintf("option value %s does not exist", id).
			Mark(ierr.ErrNotFound)
	}

	var v plan.OptionValue
	if err := rows.StructScan(&v); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan option value").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	pricingRows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, option_value_id, term, period, currency, price, setup_fee,
		       status, created_at, updated_at, created_by, updated_by
		FROM option_pricings
		WHERE option_value_id = :option_value_id
		ORDER BY term, period`,
		map[string]interface{}{"option_value_id": id})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list option pricings").
			Mark(ierr.ErrDatabase)
	}
	defer pricingRows.Close()

	for pricingRows.Next() {
		var p plan.OptionPricing
		if err := pricingRows.StructScan(&p); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan option pricing").
				Mark(ierr.ErrDatabase)
		}
		v.Pricings = append(v.Pricings, &p)
	}
	return &v, nil
}
