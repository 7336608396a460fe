// Package store define la capa de acceso a datos del servicio.
//
// Backends:
//   - memory (in-process, desarrollo/testing)
//   - pg (PostgreSQL vía pgxpool, producción)
package store

import (
	"context"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

// DataAccessLayer agrupa los repositorios del dominio detrás de un backend.
// Los writes son read-your-writes: un record creado es visible para la
// siguiente lectura sobre la misma instancia.
type DataAccessLayer interface {
	Users() repository.UserRepository
	Clients() repository.ClientRepository
	Scopes() repository.ScopeRepository
	Authorizations() repository.AuthorizationRepository

	// Ping verifica la conexión al backend.
	Ping(ctx context.Context) error

	// Close libera recursos del backend.
	Close()
}
