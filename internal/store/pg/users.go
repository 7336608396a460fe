package pg

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

type userRepo struct {
	pool *pgxpool.Pool
}

const userColumns = `id, email, email_verified, name, given_name, family_name, screen_name,
phone_number, phone_verified, address, locale, password_hash, created_at, disabled_at, disabled_until`

func scanUser(row pgx.Row) (*repository.User, error) {
	var u repository.User
	err := row.Scan(&u.ID, &u.Email, &u.EmailVerified, &u.Name, &u.GivenName, &u.FamilyName,
		&u.ScreenName, &u.PhoneNumber, &u.PhoneVerified, &u.Address, &u.Locale,
		&u.PasswordHash, &u.CreatedAt, &u.DisabledAt, &u.DisabledUntil)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &u, nil
}

func (r *userRepo) GetByID(ctx context.Context, userID string) (*repository.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id = $1`, userID)
	return scanUser(row)
}

func (r *userRepo) GetByEmail(ctx context.Context, email string) (*repository.User, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE lower(email) = lower($1)`, email)
	return scanUser(row)
}

func (r *userRepo) Create(ctx context.Context, in repository.CreateUserInput) (*repository.User, error) {
	id := uuid.NewString()
	row := r.pool.QueryRow(ctx, `
INSERT INTO users (id, email, name, given_name, family_name, screen_name, password_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7)
RETURNING `+userColumns,
		id, in.Email, in.Name, in.GivenName, in.FamilyName, in.ScreenName, in.PasswordHash)

	u, err := scanUser(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return u, nil
}

func (r *userRepo) List(ctx context.Context, limit, offset int) ([]repository.User, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := r.pool.Query(ctx, `
SELECT `+userColumns+` FROM users ORDER BY created_at LIMIT $1 OFFSET $2`, limit, offset)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.User
	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *u)
	}
	return out, rows.Err()
}

func (r *userRepo) Delete(ctx context.Context, userID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM users WHERE id = $1`, userID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *userRepo) Disable(ctx context.Context, userID string, until *time.Time) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE users SET disabled_at = now(), disabled_until = $2 WHERE id = $1`, userID, until)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

// isUniqueViolation reporta si el error es un unique_violation (23505).
func isUniqueViolation(err error) bool {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		return pgErr.Code == "23505"
	}
	return strings.Contains(err.Error(), "23505")
}
