package repository

import "context"

// ConsentType define la política de consent de un client.
// El set es cerrado: nunca cambia durante la evaluación de un request.
type ConsentType string

const (
	// ConsentImplicit: el consent se asume otorgado, nunca se pregunta.
	ConsentImplicit ConsentType = "implicit"
	// ConsentExplicit: el usuario debe aprobar; un grant previo permite skip.
	ConsentExplicit ConsentType = "explicit"
	// ConsentExternal: un operador otorga el acceso fuera de banda; sin
	// registro previo el request se rechaza.
	ConsentExternal ConsentType = "external"
	// ConsentSystematic: el usuario debe aprobar en cada request.
	ConsentSystematic ConsentType = "systematic"
)

// Valid reporta si el valor pertenece al set cerrado de consent types.
func (t ConsentType) Valid() bool {
	switch t {
	case ConsentImplicit, ConsentExplicit, ConsentExternal, ConsentSystematic:
		return true
	}
	return false
}

const (
	ClientTypePublic       = "public"
	ClientTypeConfidential = "confidential"
)

// Client representa un cliente OIDC/OAuth.
type Client struct {
	ID           string
	ClientID     string // identificador público
	Name         string // display name para el consent screen
	Type         string // "public" | "confidential"
	ConsentType  ConsentType
	RedirectURIs []string
	Scopes       []string
	SecretHash   string
}

// ClientInput contiene los datos para crear/actualizar un client.
type ClientInput struct {
	ClientID     string
	Name         string
	Type         string
	ConsentType  ConsentType
	RedirectURIs []string
	Scopes       []string
	Secret       string
}

// ClientRepository define operaciones sobre OIDC clients.
type ClientRepository interface {
	// Get obtiene un client por su client_id público.
	// Retorna ErrNotFound si no existe.
	Get(ctx context.Context, clientID string) (*Client, error)

	// List lista todos los clients.
	List(ctx context.Context) ([]Client, error)

	// Create crea un nuevo client. Retorna ErrConflict si ya existe.
	Create(ctx context.Context, input ClientInput) (*Client, error)

	// Delete elimina un client.
	Delete(ctx context.Context, clientID string) error

	// IsRedirectURIAllowed verifica que la URI esté registrada para el client.
	IsRedirectURIAllowed(client *Client, uri string) bool

	// IsScopeAllowed verifica si un scope está permitido para el client.
	IsScopeAllowed(client *Client, scope string) bool
}
