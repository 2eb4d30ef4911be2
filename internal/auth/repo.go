package auth

import (
	"context"
	"errors"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"
)

// Repo is the Postgres UserStore.
type Repo struct{ DB *pgxpool.Pool }

func (r *Repo) Create(ctx context.Context, a Account) error {
	_, err := r.DB.Exec(ctx, `
		INSERT INTO users(id, email, password_hash)
		VALUES ($1, $2, $3)`, a.ID, a.Email, a.PasswordHash)
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) && pgErr.Code == "23505" {
		return ErrEmailTaken
	}
	return err
}

func (r *Repo) FindByEmail(ctx context.Context, email string) (Account, error) {
	var a Account
	err := r.DB.QueryRow(ctx, `
		SELECT id, email, password_hash FROM users WHERE email=$1`, email).
		Scan(&a.ID, &a.Email, &a.PasswordHash)
	if errors.Is(err, pgx.ErrNoRows) {
		return Account{}, ErrInvalidCredentials
	}
	return a, err
}
