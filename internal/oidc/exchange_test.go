package oidc

import (
	"context"
	"errors"
	"testing"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

// fakeIdentity is an in-memory IdentityStore for exchange tests.
type fakeIdentity struct {
	users    map[string]*repository.User
	disabled map[string]bool
	err      error
}

func (f *fakeIdentity) FindUser(_ context.Context, subject string) (*repository.User, error) {
	if f.err != nil {
		return nil, f.err
	}
	u, ok := f.users[subject]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return u, nil
}

func (f *fakeIdentity) CanSignIn(_ context.Context, user *repository.User) bool {
	if user == nil {
		return false
	}
	return !f.disabled[user.ID]
}

func exchangeHandler(ident *fakeIdentity) *TokenExchangeHandler {
	router := NewClaimDestinationRouter(NewScopeClaimCatalog(nil))
	return NewTokenExchangeHandler(ident, router)
}

func TestParseGrantType(t *testing.T) {
	for _, s := range []string{"authorization_code", "refresh_token"} {
		g, err := ParseGrantType(s)
		if err != nil {
			t.Fatalf("ParseGrantType(%q): %v", s, err)
		}
		if string(g) != s {
			t.Fatalf("ParseGrantType(%q) = %q", s, g)
		}
	}
	for _, s := range []string{"client_credentials", "password", "", "AUTHORIZATION_CODE"} {
		if _, err := ParseGrantType(s); !errors.Is(err, ErrUnsupportedGrantType) {
			t.Fatalf("ParseGrantType(%q): expected ErrUnsupportedGrantType, got %v", s, err)
		}
	}
}

func TestExchange_UnsupportedGrantIsFatal(t *testing.T) {
	h := exchangeHandler(&fakeIdentity{})
	_, err := h.Exchange(context.Background(), GrantType("client_credentials"), &Principal{Subject: "u1"})
	if !errors.Is(err, ErrUnsupportedGrantType) {
		t.Fatalf("expected ErrUnsupportedGrantType, got %v", err)
	}
}

func TestExchange_DeletedUserInvalidatesGrant(t *testing.T) {
	h := exchangeHandler(&fakeIdentity{users: map[string]*repository.User{}})
	stored := &Principal{
		Subject: "u-gone",
		Scopes:  []string{"openid", "email"},
		Claims:  []Claim{{Type: "email", Value: "a@b.com"}},
	}

	res, err := h.Exchange(context.Background(), GrantRefreshToken, stored)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if res.Outcome != ExchangeInvalidGrant {
		t.Fatalf("got %v, want invalid grant", res.Outcome)
	}
	if res.ErrorDescription != "token no longer valid" {
		t.Fatalf("error description = %q", res.ErrorDescription)
	}
}

func TestExchange_DisabledUserInvalidatesGrant(t *testing.T) {
	ident := &fakeIdentity{
		users:    map[string]*repository.User{"u1": {ID: "u1", Email: "a@b.com"}},
		disabled: map[string]bool{"u1": true},
	}
	h := exchangeHandler(ident)

	res, err := h.Exchange(context.Background(), GrantRefreshToken, &Principal{Subject: "u1"})
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if res.Outcome != ExchangeInvalidGrant {
		t.Fatalf("got %v, want invalid grant", res.Outcome)
	}
	if res.ErrorDescription != "user no longer allowed to sign in" {
		t.Fatalf("error description = %q", res.ErrorDescription)
	}
}

func TestExchange_NilStoredPrincipal(t *testing.T) {
	h := exchangeHandler(&fakeIdentity{})

	res, err := h.Exchange(context.Background(), GrantAuthorizationCode, nil)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if res.Outcome != ExchangeInvalidGrant || res.ErrorDescription != "token no longer valid" {
		t.Fatalf("got %v / %q", res.Outcome, res.ErrorDescription)
	}
}

func TestExchange_ValidUserReissues(t *testing.T) {
	ident := &fakeIdentity{users: map[string]*repository.User{"u1": {ID: "u1", Email: "a@b.com"}}}
	h := exchangeHandler(ident)
	stored := &Principal{
		Subject: "u1",
		Scopes:  []string{"openid", "email"},
		Claims: []Claim{
			{Type: "email", Value: "a@b.com"},
			{Type: "email_verified", Value: "true"},
		},
	}

	res, err := h.Exchange(context.Background(), GrantRefreshToken, stored)
	if err != nil {
		t.Fatalf("Exchange: %v", err)
	}
	if res.Outcome != ExchangeReissue {
		t.Fatalf("got %v, want reissue", res.Outcome)
	}
	if res.Principal != stored {
		t.Fatal("reissue must carry the stored principal through")
	}
	if !res.Destinations.InIdentityToken("email") || !res.Destinations.InAccessToken("email") {
		t.Fatalf("email destinations missing: %v", res.Destinations)
	}
}

func TestExchange_StoreErrorPropagates(t *testing.T) {
	boom := errors.New("pg down")
	h := exchangeHandler(&fakeIdentity{err: boom})

	_, err := h.Exchange(context.Background(), GrantAuthorizationCode, &Principal{Subject: "u1"})
	if !errors.Is(err, boom) {
		t.Fatalf("expected store error to propagate, got %v", err)
	}
}
