package oauth

import (
	"strconv"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	"github.com/dropDatabas3/aliceid/internal/oidc"
)

// buildPrincipal materializes the signed-off identity for a user: every
// populated profile attribute becomes a claim, in stable order. Which
// claims end up in which token is the router's job, not ours.
func buildPrincipal(u *repository.User, scopes []string) *oidc.Principal {
	var claims []oidc.Claim
	add := func(typ, val string) {
		if val != "" {
			claims = append(claims, oidc.Claim{Type: typ, Value: val})
		}
	}

	add("email", u.Email)
	if u.Email != "" {
		add("email_verified", strconv.FormatBool(u.EmailVerified))
	}
	add("name", u.Name)
	add("given_name", u.GivenName)
	add("family_name", u.FamilyName)
	add("preferred_username", u.ScreenName)
	add("phone_number", u.PhoneNumber)
	if u.PhoneNumber != "" {
		add("phone_number_verified", strconv.FormatBool(u.PhoneVerified))
	}
	add("address", u.Address)
	add("locale", u.Locale)

	return &oidc.Principal{
		Subject: u.ID,
		Claims:  claims,
		Scopes:  append([]string(nil), scopes...),
	}
}
