package postgres

import (
	"context"
	"database/sql"
	"errors"

	"bannedemails/internal/domain"
)

type accountRepository struct {
	DB *sql.DB
}

// NewAccountRepository returns a domain.AccountRepository reading the host users table.
func NewAccountRepository(db *sql.DB) domain.AccountRepository {
	return &accountRepository{DB: db}
}

func (r *accountRepository) GetByID(ctx context.Context, id string) (*domain.Account, error) {
	query := `
		SELECT id, login, email
		FROM users
		WHERE id = $1
	`
	return r.scanOne(ctx, query, id)
}

func (r *accountRepository) GetByLogin(ctx context.Context, login string) (*domain.Account, error) {
	query := `
		SELECT id, login, email
		FROM users
		WHERE login = $1
	`
	return r.scanOne(ctx, query, login)
}

func (r *accountRepository) scanOne(ctx context.Context, query string, arg string) (*domain.Account, error) {
	a := &domain.Account{}
	err := r.DB.QueryRowContext(ctx, query, arg).Scan(&a.ID, &a.Login, &a.Email)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, domain.ErrAccountNotFound
		}
		return nil, err
	}
	return a, nil
}
