package pg

import (
	"context"
	"errors"

	"github.com/google/uuid"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

type clientRepo struct {
	pool *pgxpool.Pool
}

const clientColumns = `id, client_id, name, type, consent_type, redirect_uris, scopes, secret_hash`

func scanClient(row pgx.Row) (*repository.Client, error) {
	var c repository.Client
	err := row.Scan(&c.ID, &c.ClientID, &c.Name, &c.Type, &c.ConsentType,
		&c.RedirectURIs, &c.Scopes, &c.SecretHash)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, repository.ErrNotFound
		}
		return nil, err
	}
	return &c, nil
}

func (r *clientRepo) Get(ctx context.Context, clientID string) (*repository.Client, error) {
	row := r.pool.QueryRow(ctx, `SELECT `+clientColumns+` FROM clients WHERE client_id = $1`, clientID)
	return scanClient(row)
}

func (r *clientRepo) List(ctx context.Context) ([]repository.Client, error) {
	rows, err := r.pool.Query(ctx, `SELECT `+clientColumns+` FROM clients ORDER BY client_id`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	var out []repository.Client
	for rows.Next() {
		c, err := scanClient(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *c)
	}
	return out, rows.Err()
}

func (r *clientRepo) Create(ctx context.Context, in repository.ClientInput) (*repository.Client, error) {
	var secretHash string
	if in.Secret != "" {
		h, err := bcrypt.GenerateFromPassword([]byte(in.Secret), bcrypt.DefaultCost)
		if err != nil {
			return nil, err
		}
		secretHash = string(h)
	}

	row := r.pool.QueryRow(ctx, `
INSERT INTO clients (id, client_id, name, type, consent_type, redirect_uris, scopes, secret_hash)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
RETURNING `+clientColumns,
		uuid.NewString(), in.ClientID, in.Name, in.Type, in.ConsentType,
		in.RedirectURIs, in.Scopes, secretHash)

	c, err := scanClient(row)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, repository.ErrConflict
		}
		return nil, err
	}
	return c, nil
}

func (r *clientRepo) Delete(ctx context.Context, clientID string) error {
	tag, err := r.pool.Exec(ctx, `DELETE FROM clients WHERE client_id = $1`, clientID)
	if err != nil {
		return err
	}
	if tag.RowsAffected() == 0 {
		return repository.ErrNotFound
	}
	return nil
}

func (r *clientRepo) IsRedirectURIAllowed(client *repository.Client, uri string) bool {
	if client == nil {
		return false
	}
	for _, u := range client.RedirectURIs {
		if u == uri {
			return true
		}
	}
	return false
}

func (r *clientRepo) IsScopeAllowed(client *repository.Client, scope string) bool {
	if client == nil {
		return false
	}
	for _, s := range client.Scopes {
		if s == scope {
			return true
		}
	}
	return false
}
