package postgres

import (
	"context"

	"github.com/billforge/billforge/internal/domain/settings"
	ierr "github.com/billforge/billforge/internal/errors"
	"github.com/billforge/billforge/internal/logger"
	"github.com/billforge/billforge/internal/postgres"
)

type settingsRepository struct {
	db     *postgres.DB
	logger *logger.Logger
}

// NewSettingsRepository creates a new postgres settings repository
func NewSettingsRepository(db *postgres.DB, logger *logger.Logger) settings.Repository {
	return &settingsRepository{db: db, logger: logger}
}

func (r *settingsRepository) Get(ctx context.Context, key string) (*settings.Setting, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT key, value, updated_at, updated_by FROM settings WHERE key = :key`,
		map[string]interface{}{"key": key})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to get setting").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	if !rows.Next() {
		return nil, ierr.NewError("setting not found").
			WithHintf("setting %s has no stored value", key).
			Mark(ierr.ErrNotFound)
	}

	var s settings.Setting
	if err := rows.StructScan(&s); err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to scan setting").
			Mark(ierr.ErrDatabase)
	}
	return &s, nil
}

func (r *settingsRepository) GetAll(ctx context.Context) ([]*settings.Setting, error) {
	rows, err := r.db.NamedQueryContext(ctx,
		`SELECT key, value, updated_at, updated_by FROM settings ORDER BY key`,
		map[string]interface{}{})
	if err != nil {
		return nil, ierr.WithError(err).
			WithHint("failed to list settings").
			Mark(ierr.ErrDatabase)
	}
	defer rows.Close()

	var out []*settings.Setting
	for rows.Next() {
		var s settings.Setting
		if err := rows.StructScan(&s); err != nil {
			return nil, ierr.WithError(err).
				WithHint("failed to scan setting").
				Mark(ierr.ErrDatabase)
		}
		out = append(out, &s)
	}
	return out, nil
}

func (r *settingsRepository) Set(ctx context.Context, setting *settings.Setting) error {
	query := `
		INSERT INTO settings (key, value, updated_at, updated_by)
		VALUES (:key, :value, :updated_at, :updated_by)
		ON CONFLICT (key) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at,
			updated_by = EXCLUDED.updated_by`

	if _, err := r.db.NamedExecContext(ctx, query, setting); err != nil {
		return ierr.WithError(err).
			WithHint("failed to store setting").
			Mark(ierr.ErrDatabase)
	}
	return nil
}

func (r *settingsRepository) Delete(ctx context.Context, key string) error {
	if _, err := r.db.NamedExecContext(ctx,
		`DELETE FROM settings WHERE key = :key`,
		map[string]interface{}{"key": key}); err != nil {
		return ierr.WithError(err).
			WithHint("failed to delete setting").
			Mark(ierr.ErrDatabase)
	}
	return nil
}
