package oidc

import (
	"context"

	"github.com/dropDatabas3/aliceid/internal/observability/logger"
)

// Destination identifies a token a claim may be placed into.
type Destination string

const (
	DestinationIdentityToken Destination = "id_token"
	DestinationAccessToken   Destination = "access_token"
)

// ClaimDestinationMap maps a claim type to the non-empty set of tokens it
// may appear in. A claim with no destination is absent from the map and
// dropped from both tokens.
type ClaimDestinationMap map[string][]Destination

// InIdentityToken reports whether the claim is routed to the id_token.
func (m ClaimDestinationMap) InIdentityToken(claim string) bool {
	return m.has(claim, DestinationIdentityToken)
}

// InAccessToken reports whether the claim is routed to the access token.
func (m ClaimDestinationMap) InAccessToken(claim string) bool {
	return m.has(claim, DestinationAccessToken)
}

func (m ClaimDestinationMap) has(claim string, d Destination) bool {
	for _, dst := range m[claim] {
		if dst == d {
			return true
		}
	}
	return false
}

// ClaimDestinationRouter computes, per claim, which issued tokens it may
// appear in given the granted scope set. Routing is pure and deterministic
// once the catalog lookups are resolved.
type ClaimDestinationRouter struct {
	catalog *ScopeClaimCatalog
}

// NewClaimDestinationRouter creates a router over the given catalog.
func NewClaimDestinationRouter(catalog *ScopeClaimCatalog) *ClaimDestinationRouter {
	return &ClaimDestinationRouter{catalog: catalog}
}

// Route resolves the destination map for the principal's claims under its
// granted scopes. Rules:
//
//   - standard scopes (except openid) route their fixed claim list to the
//     identity token; email additionally routes its claims to the access
//     token, and profile routes exactly the single claim "name" there
//   - openid is skipped: sub reaches the identity token via the issuer
//   - non-standard scopes route their stored claim list to both tokens
//   - claims not covered by any granted scope get no destination and are
//     omitted (logged, not an error)
func (r *ClaimDestinationRouter) Route(ctx context.Context, scopes []string, claims []Claim) (ClaimDestinationMap, error) {
	log := logger.From(ctx).With(logger.Component("oidc"), logger.Op("destinations.route"))

	idClaims := map[string]struct{}{}
	accessClaims := map[string]struct{}{}

	for _, scope := range scopes {
		switch {
		case scope == ScopeOpenID:
			// sub is placed by the issuer, never routed here

		case r.catalog.IsStandard(scope):
			fixed := r.catalog.StandardClaims(scope)
			for _, c := range fixed {
				idClaims[c] = struct{}{}
			}
			switch scope {
			case ScopeEmail:
				for _, c := range fixed {
					accessClaims[c] = struct{}{}
				}
			case ScopeProfile:
				accessClaims["name"] = struct{}{}
			}

		default:
			dyn, ok, err := r.catalog.DynamicClaims(ctx, scope)
			if err != nil {
				return nil, err
			}
			if !ok {
				log.Debug("scope has no claim metadata", logger.Scope(scope))
				continue
			}
			for _, c := range dyn {
				idClaims[c] = struct{}{}
				accessClaims[c] = struct{}{}
			}
		}
	}

	out := make(ClaimDestinationMap, len(claims))
	for _, claim := range claims {
		_, inID := idClaims[claim.Type]
		_, inAccess := accessClaims[claim.Type]
		switch {
		case inID && inAccess:
			out[claim.Type] = []Destination{DestinationIdentityToken, DestinationAccessToken}
		case inID:
			out[claim.Type] = []Destination{DestinationIdentityToken}
		case inAccess:
			// Unreachable under the rules above (access implies identity),
			// kept so a future rule change cannot silently drop claims.
			out[claim.Type] = []Destination{DestinationAccessToken}
		default:
			log.Debug("claim not covered by any granted scope, omitted",
				logger.Claim(claim.Type))
		}
	}

	return out, nil
}
