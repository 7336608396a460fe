// Package oidc implements the authorization and consent decision engine:
// the logic that, for an incoming authorize or token request, decides
// whether to challenge for login, require consent, silently grant or
// reject, and which user claims land in which issued token.
//
// The engine owns no durable state. Stores (users, clients, scopes,
// authorization records) are external collaborators injected through the
// repository interfaces; decision outcomes are typed results, never
// errors, so callers map them to HTTP responses without unwinding.
package oidc
