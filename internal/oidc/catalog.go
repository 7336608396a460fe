package oidc

import (
	"context"
	"errors"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

// ScopeOpenID is handled outside the routing table: its implicit claim
// (sub) is always present in the identity token via the issuer itself.
const ScopeOpenID = "openid"

// Standard scope names with a fixed claim mapping baked into the catalog.
const (
	ScopeEmail   = "email"
	ScopeProfile = "profile"
	ScopeAddress = "address"
	ScopePhone   = "phone"
)

// standardScopeClaims es el mapping fijo scope → claims de los scopes
// estándar OIDC. openid se excluye a propósito (ver ScopeOpenID).
var standardScopeClaims = map[string][]string{
	ScopeEmail: {"email", "email_verified"},
	ScopeProfile: {
		"name", "family_name", "given_name", "middle_name", "nickname",
		"preferred_username", "profile", "picture", "website", "gender",
		"birthdate", "zoneinfo", "locale", "updated_at",
	},
	ScopeAddress: {"address"},
	ScopePhone:   {"phone_number", "phone_number_verified"},
}

// ScopeMetadataSource resolves claim metadata for non-standard scopes.
// repository.ScopeRepository satisfies it.
type ScopeMetadataSource interface {
	GetByName(ctx context.Context, name string) (*repository.Scope, error)
}

// ScopeClaimCatalog maps scope names to the claim types they authorize:
// a fixed table for the standard scopes plus externally stored metadata
// for everything else.
type ScopeClaimCatalog struct {
	meta ScopeMetadataSource
}

// NewScopeClaimCatalog creates the catalog over the given metadata source.
func NewScopeClaimCatalog(meta ScopeMetadataSource) *ScopeClaimCatalog {
	return &ScopeClaimCatalog{meta: meta}
}

// IsStandard reports whether the scope has a baked-in claim mapping.
// openid is standard but carries no routed claims.
func (c *ScopeClaimCatalog) IsStandard(name string) bool {
	if name == ScopeOpenID {
		return true
	}
	_, ok := standardScopeClaims[name]
	return ok
}

// StandardClaims returns a copy of the fixed claim list for a standard
// scope, or nil for openid and non-standard scopes.
func (c *ScopeClaimCatalog) StandardClaims(name string) []string {
	claims, ok := standardScopeClaims[name]
	if !ok {
		return nil
	}
	out := make([]string, len(claims))
	copy(out, claims)
	return out
}

// DynamicClaims looks up the claim list of a non-standard scope from the
// external metadata store. A scope with no metadata yields (nil, false).
func (c *ScopeClaimCatalog) DynamicClaims(ctx context.Context, name string) ([]string, bool, error) {
	if c.meta == nil {
		return nil, false, nil
	}
	sc, err := c.meta.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, false, nil
		}
		return nil, false, err
	}
	if sc == nil || len(sc.Claims) == 0 {
		return nil, false, nil
	}
	out := make([]string, len(sc.Claims))
	copy(out, sc.Claims)
	return out, true, nil
}
