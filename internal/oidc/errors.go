package oidc

import "errors"

// Fatal faults. These signal deployment misconfiguration, not recoverable
// request state: they abort request processing and are never mapped to an
// OAuth error redirect.
var (
	// ErrMissingRequestContext indica que el middleware no proveyó el
	// AuthorizationRequest. Es un error de programación.
	ErrMissingRequestContext = errors.New("oidc: authorization request not supplied")

	// ErrUnsupportedGrantType indica que llegó un grant_type que el engine
	// nunca debió recibir (error de wiring del endpoint).
	ErrUnsupportedGrantType = errors.New("oidc: unsupported grant type")
)
