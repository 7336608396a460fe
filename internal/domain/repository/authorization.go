package repository

import (
	"context"
	"time"
)

// AuthorizationType distingue grants durables de grants de un solo uso.
type AuthorizationType string

const (
	AuthorizationPermanent AuthorizationType = "permanent"
	AuthorizationAdHoc     AuthorizationType = "ad_hoc"
)

// AuthorizationStatus es el estado de un authorization record.
type AuthorizationStatus string

const (
	AuthorizationValid   AuthorizationStatus = "valid"
	AuthorizationRevoked AuthorizationStatus = "revoked"
)

// Authorization es el registro durable que vincula subject, client y el
// scope set otorgado. Un record Permanent/Valid permite silent grant en
// requests futuros con los mismos scopes (o un subset).
type Authorization struct {
	ID        string
	Subject   string
	ClientID  string
	Type      AuthorizationType
	Status    AuthorizationStatus
	Scopes    []string
	CreatedAt time.Time
	RevokedAt *time.Time
}

// CreateAuthorizationInput contiene los datos para crear un authorization record.
type CreateAuthorizationInput struct {
	Subject  string
	ClientID string
	Type     AuthorizationType
	Status   AuthorizationStatus
	Scopes   []string
}

// AuthorizationRepository define operaciones sobre authorization records.
type AuthorizationRepository interface {
	// List retorna los records del par (subject, client) que coinciden con
	// status, type y cuyo scope set cubre los scopes pedidos. Puede retornar
	// varios: el engine desempata por CreatedAt más reciente.
	List(ctx context.Context, subject, clientID string, status AuthorizationStatus,
		typ AuthorizationType, scopes []string) ([]Authorization, error)

	// ListBySubject lista todos los records de un subject (para admin/revocación).
	ListBySubject(ctx context.Context, subject string) ([]Authorization, error)

	// Create persiste un nuevo authorization record.
	Create(ctx context.Context, input CreateAuthorizationInput) (*Authorization, error)

	// Revoke marca un record como revocado. La revocación la dispara una
	// acción administrativa o el borrado del usuario, nunca el engine.
	Revoke(ctx context.Context, id string) error
}
