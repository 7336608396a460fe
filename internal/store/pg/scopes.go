package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

type scopeRepo struct {
	pool *pgxpool.Pool
}

const scopeColumns = `id, name, display_name, claims, resources, system, created_at`

func scanScope(row pgx.Row) (*repository.Scope, error) {
	var s repository.Scope
	err := row.Scan(&s.ID, &s.Name, &s.DisplayName, &s.Claims, &s.Resources, &s.System, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &s, nil
}

func (r *scopeRepo) GetByName(ctx context.Context, name string) (*repository.Scope, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+scopeColumns+` FROM scopes WHERE name = $1`, name)
	return scanScope(row)
}

func (r *scopeRepo) List(ctx context.Context) ([]repository.Scope, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+scopeColumns+` FROM scopes ORDER BY name`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Scope
	for rows.Next() {
		s, err := scanScope(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *s)
	}
	return out, rows.Err()
}

func (r *scopeRepo) Upsert(ctx context.Context, in repository.ScopeInput) (*repository.Scope, error) {
	row := r.pool.QueryRow(ctx, `
INSERT INTO scopes (id, name, display_name, claims, resources, system)
VALUES ($1, $2, $3, $4, $5, $6)
ON CONFLICT (name) DO UPDATE SET
    display_name = EXCLUDED.display_name,
    claims       = EXCLUDED.claims,
    resources    = EXCLUDED.resources,
    system       = EXCLUDED.system
RETURNING `+scopeColumns,
		uuid.NewString(), in.Name, in.DisplayName, in.Claims, in.Resources, in.System)
	return scanScope(row)
}

func (r *scopeRepo) Delete(ctx context.Context, name string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM scopes WHERE name = $1`, name)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}
