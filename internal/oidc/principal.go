package oidc

// Claim is a single (type, value) attribute about the subject.
type Claim struct {
	Type  string `json:"type"`
	Value string `json:"value"`
}

// Principal is the signed-off identity handed to the token issuer: the
// subject, its claims in stable order, and the granted scope/resource sets.
type Principal struct {
	Subject   string   `json:"sub"`
	Claims    []Claim  `json:"claims"`
	Scopes    []string `json:"scopes"`
	Resources []string `json:"resources,omitempty"`
}

// ClaimValue returns the first value for the given claim type.
func (p *Principal) ClaimValue(typ string) (string, bool) {
	if p == nil {
		return "", false
	}
	for _, c := range p.Claims {
		if c.Type == typ {
			return c.Value, true
		}
	}
	return "", false
}

// HasScope reports whether the scope was granted to the principal.
func (p *Principal) HasScope(name string) bool {
	if p == nil {
		return false
	}
	for _, s := range p.Scopes {
		if s == name {
			return true
		}
	}
	return false
}
