package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bannedemails/internal/domain"

	"github.com/lib/pq"
)

type settingsRepository struct {
	DB *sql.DB
}

// NewSettingsRepository returns a domain.SettingsStore implemented with Postgres.
func NewSettingsRepository(db *sql.DB) domain.SettingsStore {
	return &settingsRepository{DB: db}
}

func (r *settingsRepository) GetStrings(ctx context.Context, key string) ([]string, error) {
	query := `SELECT value FROM settings WHERE key = $1`
	var values []string
	err := r.DB.QueryRowContext(ctx, query, key).Scan(pq.Array(&values))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrSettingNotFound
		}
		return nil, err
	}
	if values == nil {
		values = []string{}
	}
	return values, nil
}

func (r *settingsRepository) SetStrings(ctx context.Context, key string, values []string) error {
	if values == nil {
		values = []string{}
	}
	query := `
		INSERT INTO settings (key, value, updated_at)
		VALUES ($1, $2, NOW())
		ON CONFLICT (key) DO UPDATE SET value = EXCLUDED.value, updated_at = NOW()
	`
	_, err := r.DB.ExecContext(ctx, query, key, pq.Array(values))
	return err
}
