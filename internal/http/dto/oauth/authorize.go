// Package oauth contains DTOs for the OAuth2/OIDC endpoints.
package oauth

import "time"

// AuthorizeRequest contains the parsed params for GET|POST /connect/authorize.
type AuthorizeRequest struct {
	ResponseType string `json:"response_type"`
	ClientID     string `json:"client_id"`
	RedirectURI  string `json:"redirect_uri"`
	Scope        string `json:"scope"`
	State        string `json:"state"`
	Nonce        string `json:"nonce"`
	Prompt       string `json:"prompt"`  // space-delimited, e.g. "none", "login consent"
	MaxAge       string `json:"max_age"` // seconds, empty = no freshness constraint
}

// DecisionRequest contains the consent form submission for
// POST /connect/authorize/decision. It carries the original authorize
// parameters back (hidden form fields) plus the user's choice.
type DecisionRequest struct {
	AuthorizeRequest
	Accept bool `json:"accept"`
}

// ClaimPair is a claim carried inside a cached code/refresh payload.
type ClaimPair struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// AuthCodePayload is stored in cache (keyed by the hashed code) when an
// auth code is issued, and consumed one-shot by the token endpoint.
type AuthCodePayload struct {
	Subject     string      `json:"subject"`
	ClientID    string      `json:"client_id"`
	RedirectURI string      `json:"redirect_uri"`
	Scopes      []string    `json:"scopes"`
	Claims      []ClaimPair `json:"claims"`
	Nonce       string      `json:"nonce"`
	ExpiresAt   time.Time   `json:"expires_at"`
}

// RefreshPayload is stored in cache (keyed by the hashed refresh token).
type RefreshPayload struct {
	Subject   string      `json:"subject"`
	ClientID  string      `json:"client_id"`
	Scopes    []string    `json:"scopes"`
	Claims    []ClaimPair `json:"claims"`
	ExpiresAt time.Time   `json:"expires_at"`
}

// SessionPayload represents cached session data from the login UI.
// Stored in cache with key "sid:<hash(cookie_value)>".
type SessionPayload struct {
	UserID   string    `json:"user_id"`
	IssuedAt time.Time `json:"issued_at"` // authentication instant, drives max_age
	Expires  time.Time `json:"expires"`
}

// ScopeDisplay is one requested scope as shown on the consent screen.
type ScopeDisplay struct {
	Name        string `json:"name"`
	DisplayName string `json:"display_name"`
}

// ConsentFormData is the payload rendered when user approval is required.
type ConsentFormData struct {
	ClientID    string         `json:"client_id"`
	ClientName  string         `json:"client_name"`
	Scopes      []ScopeDisplay `json:"scopes"`
	SubmitURL   string         `json:"submit_url"`
	State       string         `json:"state"`
	RedirectURI string         `json:"redirect_uri"`
}

// AuthResultType indicates the outcome of the authorization request.
type AuthResultType int

const (
	// AuthResultSuccess - issue auth code and redirect
	AuthResultSuccess AuthResultType = iota
	// AuthResultNeedLogin - redirect to login UI
	AuthResultNeedLogin
	// AuthResultConsent - render the consent form
	AuthResultConsent
	// AuthResultError - redirect with error params
	AuthResultError
)

// AuthResult is the outcome from AuthorizeService.Authorize.
type AuthResult struct {
	Type AuthResultType

	// For Success
	Code  string
	State string

	// For NeedLogin
	LoginURL string

	// For Consent
	Consent *ConsentFormData

	// For Error
	ErrorCode        string
	ErrorDescription string

	// Common
	RedirectURI string
}
