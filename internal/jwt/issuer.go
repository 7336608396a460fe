package jwt

import (
	"strings"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"

	"github.com/dropDatabas3/aliceid/internal/oidc"
)

// Issuer firma access tokens e id tokens con la clave activa. Los claims
// del principal se filtran por el ClaimDestinationMap calculado por el
// motor: cada token lleva solo los claims ruteados a su destino.
type Issuer struct {
	Iss        string        // "iss"
	Keys       *KeySet       // clave activa
	AccessTTL  time.Duration // TTL del access token (ej: 15m)
	IDTokenTTL time.Duration // TTL del id token (ej: 15m)
}

func NewIssuer(iss string, ks *KeySet) *Issuer {
	return &Issuer{
		Iss:        iss,
		Keys:       ks,
		AccessTTL:  15 * time.Minute,
		IDTokenTTL: 15 * time.Minute,
	}
}

// IssueAccess emite el access token: claims estándar + los claims del
// principal cuyo destino incluye access_token + scope (space-delimited).
func (i *Issuer) IssueAccess(p *oidc.Principal, clientID string, dest oidc.ClaimDestinationMap) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.AccessTTL)

	claims := jwtv5.MapClaims{
		"iss":   i.Iss,
		"sub":   p.Subject,
		"aud":   clientID,
		"iat":   now.Unix(),
		"nbf":   now.Unix(),
		"exp":   exp.Unix(),
		"scope": strings.Join(p.Scopes, " "),
	}
	for _, c := range p.Claims {
		if dest.InAccessToken(c.Type) {
			claims[c.Type] = c.Value
		}
	}
	if len(p.Resources) > 0 {
		claims["aud"] = append([]string{clientID}, p.Resources...)
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

// IssueIDToken emite el id token: claims estándar + nonce + los claims del
// principal cuyo destino incluye id_token.
func (i *Issuer) IssueIDToken(p *oidc.Principal, clientID, nonce string, dest oidc.ClaimDestinationMap) (string, time.Time, error) {
	now := time.Now().UTC()
	exp := now.Add(i.IDTokenTTL)

	claims := jwtv5.MapClaims{
		"iss": i.Iss,
		"sub": p.Subject,
		"aud": clientID,
		"iat": now.Unix(),
		"nbf": now.Unix(),
		"exp": exp.Unix(),
	}
	if nonce != "" {
		claims["nonce"] = nonce
	}
	for _, c := range p.Claims {
		if dest.InIdentityToken(c.Type) {
			claims[c.Type] = c.Value
		}
	}

	signed, err := i.sign(claims)
	if err != nil {
		return "", time.Time{}, err
	}
	return signed, exp, nil
}

func (i *Issuer) sign(claims jwtv5.MapClaims) (string, error) {
	tk := jwtv5.NewWithClaims(jwtv5.SigningMethodEdDSA, claims)
	tk.Header["kid"] = i.Keys.KID
	tk.Header["typ"] = "JWT"
	return tk.SignedString(i.Keys.Priv)
}

// Keyfunc devuelve un jwt.Keyfunc que valida con la clave pública activa.
func (i *Issuer) Keyfunc() jwtv5.Keyfunc {
	return func(*jwtv5.Token) (any, error) {
		return i.Keys.Pub, nil
	}
}
