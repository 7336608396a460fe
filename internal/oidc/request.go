package oidc

import "time"

// Prompt values the engine understands (space-delimited subset on the wire).
const (
	PromptNone    = "none"
	PromptLogin   = "login"
	PromptConsent = "consent"
)

// AuthorizationRequest is the immutable, already-parsed authorize request.
type AuthorizationRequest struct {
	ClientID     string
	ResponseType string
	RedirectURI  string
	Scopes       []string
	Prompt       []string
	MaxAge       *int64 // seconds; nil = not requested
	State        string
	Nonce        string

	// OriginalURI is the incoming request's path+query, carried on a login
	// challenge so the caller lands back on the same authorization request.
	OriginalURI string
}

// PromptHas reports whether the prompt set contains the given value.
func (r *AuthorizationRequest) PromptHas(v string) bool {
	for _, p := range r.Prompt {
		if p == v {
			return true
		}
	}
	return false
}

// HasScope reports whether the request asks for the given scope.
func (r *AuthorizationRequest) HasScope(name string) bool {
	for _, s := range r.Scopes {
		if s == name {
			return true
		}
	}
	return false
}

// AuthenticationResult is produced by the external authentication
// collaborator (session layer) for the current request.
type AuthenticationResult struct {
	Succeeded bool
	Principal *Principal
	IssuedAt  time.Time
}
