package repository

import (
	"context"
	"time"
)

// Scope representa un scope OAuth con su metadata de claims.
// Los scopes estándar (openid, email, profile, address, phone) tienen el
// mapping de claims fijo en el catálogo (internal/oidc); los demás llevan
// sus claims como metadata persistida aquí.
type Scope struct {
	ID          string
	Name        string
	DisplayName string   // Nombre amigable para el consent screen
	Claims      []string // Claims incluidos cuando se otorga este scope
	Resources   []string // Resource identifiers asociados
	System      bool     // true para scopes built-in
	CreatedAt   time.Time
}

// ScopeInput contiene los datos para crear/actualizar un scope.
type ScopeInput struct {
	Name        string
	DisplayName string
	Claims      []string
	Resources   []string
	System      bool
}

// ScopeRepository define operaciones sobre OAuth scopes.
type ScopeRepository interface {
	// GetByName busca un scope por nombre. Retorna ErrNotFound si no existe.
	GetByName(ctx context.Context, name string) (*Scope, error)

	// List lista todos los scopes.
	List(ctx context.Context) ([]Scope, error)

	// Upsert crea un scope si no existe, o actualiza si ya existe.
	// El nombre no se puede cambiar para preservar authorizations existentes.
	Upsert(ctx context.Context, input ScopeInput) (*Scope, error)

	// Delete elimina un scope.
	Delete(ctx context.Context, name string) error
}
