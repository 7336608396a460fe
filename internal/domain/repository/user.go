package repository

import (
	"context"
	"time"
)

// User representa un usuario final del identity provider.
type User struct {
	ID            string
	Email         string
	EmailVerified bool
	Name          string
	GivenName     string
	FamilyName    string
	ScreenName    string
	PhoneNumber   string
	PhoneVerified bool
	Address       string
	Locale        string
	PasswordHash  string
	CreatedAt     time.Time
	DisabledAt    *time.Time
	DisabledUntil *time.Time
}

// CreateUserInput contiene los datos para crear un usuario.
type CreateUserInput struct {
	Email        string
	PasswordHash string
	Name         string
	GivenName    string
	FamilyName   string
	ScreenName   string
}

// UserRepository define operaciones sobre usuarios.
type UserRepository interface {
	// GetByID busca un usuario por ID. Retorna ErrNotFound si no existe.
	GetByID(ctx context.Context, userID string) (*User, error)

	// GetByEmail busca un usuario por email. Retorna ErrNotFound si no existe.
	GetByEmail(ctx context.Context, email string) (*User, error)

	// Create crea un nuevo usuario. Retorna ErrConflict si el email ya existe.
	Create(ctx context.Context, input CreateUserInput) (*User, error)

	// List lista usuarios con paginación simple.
	List(ctx context.Context, limit, offset int) ([]User, error)

	// Delete elimina un usuario por ID. Retorna ErrNotFound si no existe.
	Delete(ctx context.Context, userID string) error

	// Disable deshabilita un usuario hasta la fecha dada (nil = indefinido).
	Disable(ctx context.Context, userID string, until *time.Time) error
}

// CanSignIn indica si el usuario puede iniciar sesión (no deshabilitado,
// o con un lockout ya vencido).
func (u *User) CanSignIn(now time.Time) bool {
	if u == nil {
		return false
	}
	if u.DisabledAt == nil {
		return true
	}
	return u.DisabledUntil != nil && now.After(*u.DisabledUntil)
}
