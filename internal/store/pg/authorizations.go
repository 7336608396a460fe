package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

type authzRepo struct {
	pool *pgxpool.Pool
}

const authzColumns = `id, subject, client_id, type, status, scopes, created_at, revoked_at`

func scanAuthorization(row pgx.Row) (*repository.Authorization, error) {
	var a repository.Authorization
	err := row.Scan(&a.ID, &a.Subject, &a.ClientID, &a.Type, &a.Status,
		&a.Scopes, &a.CreatedAt, &a.RevokedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &a, nil
}

func (r *authzRepo) List(ctx context.Context, subject, clientID string, status repository.AuthorizationStatus,
	typ repository.AuthorizationType, scopes []string) ([]repository.Authorization, error) {

	// scopes @> : el scope set otorgado debe cubrir los scopes pedidos.
	rows, err := r.pool.Query(ctx, `
SELECT `+authzColumns+` FROM authorizations
WHERE subject = $1 AND client_id = $2 AND status = $3 AND type = $4 AND scopes @> $5
ORDER BY created_at`,
		subject, clientID, status, typ, scopes)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *authzRepo) ListBySubject(ctx context.Context, subject string) ([]repository.Authorization, error) {
	rows, err := r.pool.Query(ctx, `
SELECT `+authzColumns+` FROM authorizations WHERE subject = $1 ORDER BY created_at`, subject)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Authorization
	for rows.Next() {
		a, err := scanAuthorization(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

func (r *authzRepo) Create(ctx context.Context, in repository.CreateAuthorizationInput) (*repository.Authorization, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO authorizations (id, subject, client_id, type, status, scopes)
VALUES ($1, $2, $3, $4, $5, $6)
RETURNING `+authzColumns,
		uuid.NewString(), in.Subject, in.ClientID, in.Type, in.Status, in.Scopes)
	return scanAuthorization(row)
}

func (r *authzRepo) Revoke(ctx context.Context, id string) error {
	tag, err := r.pool.Exec(ctx, `
UPDATE authorizations SET status = $2, revoked_at = now() WHERE id = $1`,
		id, repository.AuthorizationRevoked)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
