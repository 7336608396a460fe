// Package pg implementa store.DataAccessLayer sobre PostgreSQL.
// Usa pgxpool directamente.
package pg

import (
	"context"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	"github.com/dropDatabas3/aliceid/internal/store"
)

type DAL struct {
	pool *pgxpool.Pool
}

// Config del pool de conexiones.
type Config struct {
	DSN             string
	MaxConns        int
	ConnMaxLifetime time.Duration
}

// New abre el pool, verifica la conexión y aplica el schema.
func New(ctx context.Context, cfg Config) (*DAL, error) {
	poolCfg, err := pgxpool.ParseConfig(cfg.DSN)
	if err != nil {
		return nil, fmt.Errorf("pg: parse DSN: %w", err)
	}
	if cfg.MaxConns > 0 {
		poolCfg.MaxConns = int32(cfg.MaxConns)
	} else {
		poolCfg.MaxConns = 10
	}
	if cfg.ConnMaxLifetime > 0 {
		poolCfg.MaxConnLifetime = cfg.ConnMaxLifetime
	}

	pool, err := pgxpool.NewWithConfig(ctx, poolCfg)
	if err != nil {
		return nil, fmt.Errorf("pg: connect: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: ping: %w", err)
	}
	if _, err := pool.Exec(ctx, schema); err != nil {
		pool.Close()
		return nil, fmt.Errorf("pg: apply schema: %w", err)
	}
	return &DAL{pool: pool}, nil
}

var _ store.DataAccessLayer = (*DAL)(nil)

func (d *DAL) Users() repository.UserRepository                   { return &userRepo{pool: d.pool} }
func (d *DAL) Clients() repository.ClientRepository               { return &clientRepo{pool: d.pool} }
func (d *DAL) Scopes() repository.ScopeRepository                 { return &scopeRepo{pool: d.pool} }
func (d *DAL) Authorizations() repository.AuthorizationRepository { return &authzRepo{pool: d.pool} }

func (d *DAL) Ping(ctx context.Context) error { return d.pool.Ping(ctx) }
func (d *DAL) Close()                         { d.pool.Close() }
