package oidc

import (
	"context"
	"errors"
	"fmt"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
)

// GrantType is the closed set of token-endpoint grants this engine serves.
type GrantType string

const (
	GrantAuthorizationCode GrantType = "authorization_code"
	GrantRefreshToken      GrantType = "refresh_token"
)

// ParseGrantType validates the wire value. Anything outside the supported
// set is a fatal wiring fault, not a per-request failure.
func ParseGrantType(s string) (GrantType, error) {
	switch GrantType(s) {
	case GrantAuthorizationCode, GrantRefreshToken:
		return GrantType(s), nil
	}
	return "", fmt.Errorf("%w: %q", ErrUnsupportedGrantType, s)
}

// IdentityStore is the external user store consulted on token exchange.
type IdentityStore interface {
	// FindUser resolves the user behind a stored principal's subject.
	// Returns repository.ErrNotFound if the user no longer exists.
	FindUser(ctx context.Context, subject string) (*repository.User, error)

	// CanSignIn reports whether the user is still allowed to sign in
	// (not locked out or disabled).
	CanSignIn(ctx context.Context, user *repository.User) bool
}

// ExchangeOutcome is the result of a token exchange evaluation.
type ExchangeOutcome int

const (
	// ExchangeReissue: the stored principal is still valid, hand it to the
	// token issuer with its claim destinations.
	ExchangeReissue ExchangeOutcome = iota
	// ExchangeInvalidGrant: the client must re-authenticate the end user.
	ExchangeInvalidGrant
)

// Exchange error descriptions surfaced in the OAuth error body. No internal
// detail (subject ids, store errors) leaks into these.
const (
	descTokenNoLongerValid = "token no longer valid"
	descUserCannotSignIn   = "user no longer allowed to sign in"
)

// ExchangeResult is the typed outcome of TokenExchangeHandler.Exchange.
type ExchangeResult struct {
	Outcome      ExchangeOutcome
	Principal    *Principal
	Destinations ClaimDestinationMap

	// ErrorDescription accompanies invalid_grant on the wire.
	ErrorDescription string
}

// TokenExchangeHandler re-validates the stored principal on
// authorization_code/refresh_token exchanges and routes its claims.
type TokenExchangeHandler struct {
	identity IdentityStore
	router   *ClaimDestinationRouter
}

// NewTokenExchangeHandler creates the handler.
func NewTokenExchangeHandler(identity IdentityStore, router *ClaimDestinationRouter) *TokenExchangeHandler {
	return &TokenExchangeHandler{identity: identity, router: router}
}

// Exchange evaluates a token-endpoint request for the given grant. The
// user behind the stored principal must still exist and still be allowed
// to sign in; otherwise the grant is invalid. An unsupported grant type
// aborts loudly — the endpoint wiring must never let one through.
func (h *TokenExchangeHandler) Exchange(ctx context.Context, grant GrantType, stored *Principal) (ExchangeResult, error) {
	log := logger.From(ctx).With(logger.Component("oidc"), logger.Op("exchange"),
		logger.GrantType(string(grant)))

	switch grant {
	case GrantAuthorizationCode, GrantRefreshToken:
	default:
		return ExchangeResult{}, fmt.Errorf("%w: %q", ErrUnsupportedGrantType, grant)
	}

	if stored == nil || stored.Subject == "" {
		log.Warn("stored principal missing on exchange")
		return ExchangeResult{Outcome: ExchangeInvalidGrant, ErrorDescription: descTokenNoLongerValid}, nil
	}

	user, err := h.identity.FindUser(ctx, stored.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			log.Info("user behind stored principal no longer exists")
			return ExchangeResult{Outcome: ExchangeInvalidGrant, ErrorDescription: descTokenNoLongerValid}, nil
		}
		return ExchangeResult{}, err
	}
	if user == nil {
		return ExchangeResult{Outcome: ExchangeInvalidGrant, ErrorDescription: descTokenNoLongerValid}, nil
	}

	if !h.identity.CanSignIn(ctx, user) {
		log.Info("user no longer allowed to sign in")
		return ExchangeResult{Outcome: ExchangeInvalidGrant, ErrorDescription: descUserCannotSignIn}, nil
	}

	dest, err := h.router.Route(ctx, stored.Scopes, stored.Claims)
	if err != nil {
		return ExchangeResult{}, err
	}

	return ExchangeResult{
		Outcome:      ExchangeReissue,
		Principal:    stored,
		Destinations: dest,
	}, nil
}
