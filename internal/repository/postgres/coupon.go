package postgres

import (
	"context"

	"github.com/billforge/billforge/internal/domain/coupon"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type couponRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewCouponRepository creates a new postgres coupon repository
func NewCouponRepository(db *postgres.DB, logger *logger.Logger) coupon.Repository {
	return &couponRepository{db: db, logger: logger}
}

const couponColumns = `
	id, code, coupon_status, max_qty, used_qty, start_date, end_date,
	recurring, limit_recurring, internal_use_only, apply_package_options,
	status, created_at, updated_at, created_by, updated_by`

func (r *couponRepository) Create(ctx context.Context, c *coupon.Coupon) error {
	r.logger.Debugw("creating coupon", "coupon_id", c.ID, "code", c.Code)

	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			INSERT INTO coupons (
				id, code, coupon_status, max_qty, used_qty, start_date, end_date,
				recurring, limit_recurring, internal_use_only, apply_package_options,
				status, created_at, updated_at, created_by, updated_by
			) VALUES (
				:id, :code, :coupon_status, :max_qty, :used_qty, :start_date, :end_date,
				:recurring, :limit_recurring, :internal_use_only, :apply_package_options,
				:status, :created_at, :updated_at, :created_by, :updated_by
			)`
		if _, err := r.db.NamedExecContext(ctx, query, c); err != nil {
			return ierr.WithError(err).
				WithHint("failed to create coupon").
				Mark(ierr.ErrDatabase)
		}
		return r.insertChildren(ctx, c)
	})
}

func (r *couponRepository) insertChildren(ctx context.Context, c *coupon.Coupon) error {
	for _, a := range c.Amounts {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO coupon_amounts (id, coupon_id, currency, type, amount)
			VALUES (:id, :coupon_id, :currency, :type, :amount)`, a); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store coupon amount").
				Mark(ierr.ErrDatabase)
		}
	}
	for _, t := range c.Terms {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO coupon_terms (id, coupon_id, term, period, enabled)
			VALUES (:id, :coupon_id, :term, :period, :enabled)`, t); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store coupon term restriction").
				Mark(ierr.ErrDatabase)
		}
	}
	for _, pkgID := range c.PackageIDs {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO coupon_packages (coupon_id, package_id)
			VALUES (:coupon_id, :package_id)`,
			map[string]interface{}{"coupon_id": c.ID, "package_id": pkgID}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store coupon package restriction").
				Mark(ierr.ErrDatabase)
		}
	}
	for _, groupID := range c.PackageGroupIDs {
		if _, err := r.db.NamedExecContext(ctx, `
			INSERT INTO coupon_package_groups (coupon_id, group_id)
			VALUES (:coupon_id, :group_id)`,
			map[string]interface{}{"coupon_id": c.ID, "group_id": groupID}); err != nil {
			return ierr.WithError(err).
				WithHint("failed to store coupon group restriction").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *couponRepository) deleteChildren(ctx context.Context, couponID string) error {
	arg := map[string]interface{}{"coupon_id": couponID}
	for _, table := range []string{"coupon_amounts", "coupon_terms", "coupon_packages", "coupon_package_groups"} {
		if _, err := r.db.NamedExecContext(ctx,
			`DELETE FROM `+table+` WHERE coupon_id = :coupon_id`, arg); err != nil {
			return ierr.WithError(err).
				WithHint("failed to clear coupon children").
				Mark(ierr.ErrDatabase)
		}
	}
	return nil
}

func (r *couponRepository) Get(ctx context.Context, id string) (*coupon.Coupon, error) {
	return r.getWhere(ctx, `id = :arg`, id)
}

func (r *couponRepository) GetByCode(ctx context.Context, code string) (*coupon.Coupon, error) {
	return r.getWhere(ctx, `code = :arg`, code)
}

func (r *couponRepository) getWhere(ctx context.Context, where, arg string) (*coupon.Coupon, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT `+couponColumns+` FROM coupons WHERE `+where,
		map[string]interface{}{"arg": arg})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get coupon").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("coupon not found").
			WithHintf("coupon %s does not exist", arg).
			Mark(ierr.ErrNotFound)
	}

	var c coupon.Coupon
	if err := rows.StructScan(&c); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan coupon").
			Mark(ierr.ErrDatabase)
	}
	rows.Close()

	if err := r.loadChildren(ctx, &c); err != nil {
		return nil, err
	}
	return &c, nil
}

func (r *couponRepository) loadChildren(ctx context.Context, c *coupon.Coupon) error {
	arg := map[string]interface{}{"coupon_id": c.ID}

	amountRows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, coupon_id, currency, type, amount
		FROM coupon_amounts WHERE coupon_id = :coupon_id ORDER BY currency`, arg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load coupon amounts").
			Mark(ierr.ErrDatabase)
	}
	defer amountRows.Close()
	for amountRows.Next() {
		var a coupon.Amount
		if err := amountRows.StructScan(&a); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan coupon amount").
				Mark(ierr.ErrDatabase)
		}
		c.Amounts = append(c.Amounts, &a)
	}
	amountRows.Close()

	termRows, err := r.db.NamedQueryContext(ctx, `
		SELECT id, coupon_id, term, period, enabled
		FROM coupon_terms WHERE coupon_id = :coupon_id ORDER BY term, period`, arg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load coupon term restrictions").
			Mark(ierr.ErrDatabase)
	}
	defer termRows.Close()
	for termRows.Next() {
		var t coupon.TermRestriction
		if err := termRows.StructScan(&t); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan coupon term restriction").
				Mark(ierr.ErrDatabase)
		}
		c.Terms = append(c.Terms, &t)
	}
	termRows.Close()

	pkgRows, err := r.db.NamedQueryContext(ctx, `
		SELECT package_id FROM coupon_packages WHERE coupon_id = :coupon_id ORDER BY package_id`, arg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load coupon package restrictions").
			Mark(ierr.ErrDatabase)
	}
	defer pkgRows.Close()
	for pkgRows.Next() {
		var id string
		if err := pkgRows.Scan(&id); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan coupon package restriction").
				Mark(ierr.ErrDatabase)
		}
		c.PackageIDs = append(c.PackageIDs, id)
	}
	pkgRows.Close()

	groupRows, err := r.db.NamedQueryContext(ctx, `
		SELECT group_id FROM coupon_package_groups WHERE coupon_id = :coupon_id ORDER BY group_id`, arg)
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to load coupon group restrictions").
			Mark(ierr.ErrDatabase)
	}
	defer groupRows.Close()
	for groupRows.Next() {
		var id string
		if err := groupRows.Scan(&id); err != nil {
			return ierr.WithError(err).
				WithHint("failed to scan coupon group restriction").
				Mark(ierr.ErrDatabase)
		}
		c.PackageGroupIDs = append(c.PackageGroupIDs, id)
	}

	return nil
}

func (r *couponRepository) Update(ctx context.Context, c *coupon.Coupon) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		query := `
			UPDATE coupons SET
				code = :code,
				coupon_status = :coupon_status,
				max_qty = :max_qty,
				used_qty = :used_qty,
				start_date = :start_date,
				end_date = :end_date,
				recurring = :recurring,
				limit_recurring = :limit_recurring,
				internal_use_only = :internal_use_only,
				apply_package_options = :apply_package_options,
				status = :status,
				updated_at = :updated_at,
				updated_by = :updated_by
			WHERE id = :id`

		result, err := r.db.NamedExecContext(ctx, query, c)
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to update coupon").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("coupon not found").
				WithHintf("coupon %s does not exist", c.ID).
				Mark(ierr.ErrNotFound)
		}

		if err := r.deleteChildren(ctx, c.ID); err != nil {
			return err
		}
		return r.insertChildren(ctx, c)
	})
}

func (r *couponRepository) Delete(ctx context.Context, id string) error {
	return r.db.WithTx(ctx, func(ctx context.Context) error {
		if err := r.deleteChildren(ctx, id); err != nil {
			return err
		}
		result, err := r.db.NamedExecContext(ctx,
			`DELETE FROM coupons WHERE id = :id`,
			map[string]interface{}{"id": id})
		if err != nil {
			return ierr.WithError(err).
				WithHint("failed to delete coupon").
				Mark(ierr.ErrDatabase)
		}
		if n, _ := result.RowsAffected(); n == 0 {
			return ierr.NewError("coupon not found").
				WithHintf("coupon %s does not exist", id).
				Mark(ierr.ErrNotFound)
		}
		return nil
	})
}

// IncrementUsage bumps used_qty atomically so concurrent redemptions
// cannot overshoot max_qty
func (r *couponRepository) IncrementUsage(ctx context.Context, id string) error {
	result, err := r.db.NamedExecContext(ctx, `
		UPDATE coupons SET used_qty = used_qty + 1
		WHERE id = :id AND (max_qty = 0 OR used_qty < max_qty)`,
		map[string]interface{}{"id": id})
	if err != nil {
		return ierr.WithError(err).
			WithHint("failed to increment coupon usage").
			Mark(ierr.ErrDatabase)
	}
	if n, _ := result.RowsAffected(); n == 0 {
		if _, getErr := r.Get(ctx, id); getErr != nil {
			return getErr
		}
		return ierr.NewError("coupon quantity exhausted").
			WithHintf("coupon %s has no remaining uses", id).
			Mark(ierr.ErrInvalidOperation)
	}
	return nil
}
