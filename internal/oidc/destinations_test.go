package oidc

import (
	"context"
	"reflect"
	"testing"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

// fakeScopeMeta is an in-memory ScopeMetadataSource for router tests.
type fakeScopeMeta struct {
	claims map[string][]string
}

func (f *fakeScopeMeta) GetByName(_ context.Context, name string) (*repository.Scope, error) {
	if f == nil {
		return nil, repository.ErrNotFound
	}
	if c, ok := f.claims[name]; ok {
		return &repository.Scope{Name: name, Claims: c}, nil
	}
	return nil, repository.ErrNotFound
}

func newRouter(meta *fakeScopeMeta) *ClaimDestinationRouter {
	return NewClaimDestinationRouter(NewScopeClaimCatalog(meta))
}

func TestRoute_EmailScope(t *testing.T) {
	// scopes = [openid, email], claims include one uncovered claim (name)
	r := newRouter(nil)
	claims := []Claim{
		{Type: "email", Value: "a@b.com"},
		{Type: "email_verified", Value: "true"},
		{Type: "name", Value: "A B"},
	}

	got, err := r.Route(context.Background(), []string{"openid", "email"}, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if !got.InIdentityToken("email") || !got.InAccessToken("email") {
		t.Fatalf("email should reach both tokens, got %v", got["email"])
	}
	if !got.InIdentityToken("email_verified") || !got.InAccessToken("email_verified") {
		t.Fatalf("email_verified should reach both tokens, got %v", got["email_verified"])
	}
	if _, ok := got["name"]; ok {
		t.Fatalf("name is not granted by any scope, must be omitted, got %v", got["name"])
	}
}

func TestRoute_ProfileScope(t *testing.T) {
	// profile routes its claims to the id token, and only "name" to the access token
	r := newRouter(nil)
	claims := []Claim{
		{Type: "name", Value: "A B"},
		{Type: "family_name", Value: "B"},
	}

	got, err := r.Route(context.Background(), []string{"openid", "profile"}, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}

	if want := []Destination{DestinationIdentityToken, DestinationAccessToken}; !reflect.DeepEqual(got["name"], want) {
		t.Fatalf("name destinations = %v, want %v", got["name"], want)
	}
	if want := []Destination{DestinationIdentityToken}; !reflect.DeepEqual(got["family_name"], want) {
		t.Fatalf("family_name destinations = %v, want %v", got["family_name"], want)
	}
}

func TestRoute_NonStandardScopeBothTokens(t *testing.T) {
	meta := &fakeScopeMeta{claims: map[string][]string{
		"payroll": {"employee_id", "department"},
	}}
	r := newRouter(meta)
	claims := []Claim{
		{Type: "employee_id", Value: "e-77"},
		{Type: "department", Value: "ops"},
	}

	got, err := r.Route(context.Background(), []string{"openid", "payroll"}, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	for _, c := range []string{"employee_id", "department"} {
		if !got.InIdentityToken(c) || !got.InAccessToken(c) {
			t.Fatalf("%s from non-standard scope should reach both tokens, got %v", c, got[c])
		}
	}
}

func TestRoute_UnknownScopeMetadataSkipped(t *testing.T) {
	r := newRouter(&fakeScopeMeta{claims: map[string][]string{}})
	claims := []Claim{{Type: "whatever", Value: "x"}}

	got, err := r.Route(context.Background(), []string{"openid", "ghost"}, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("claims of a scope with no metadata must be dropped, got %v", got)
	}
}

func TestRoute_Idempotent(t *testing.T) {
	meta := &fakeScopeMeta{claims: map[string][]string{
		"payroll": {"employee_id"},
	}}
	r := newRouter(meta)
	scopes := []string{"openid", "email", "profile", "payroll"}
	claims := []Claim{
		{Type: "email", Value: "a@b.com"},
		{Type: "name", Value: "A"},
		{Type: "employee_id", Value: "e-1"},
		{Type: "uncovered", Value: "z"},
	}

	first, err := r.Route(context.Background(), scopes, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	second, err := r.Route(context.Background(), scopes, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if !reflect.DeepEqual(first, second) {
		t.Fatalf("Route is not idempotent:\n first=%v\nsecond=%v", first, second)
	}
}

func TestRoute_OpenIDCarriesNoClaims(t *testing.T) {
	r := newRouter(nil)
	claims := []Claim{{Type: "sub", Value: "u1"}, {Type: "email", Value: "a@b.com"}}

	got, err := r.Route(context.Background(), []string{"openid"}, claims)
	if err != nil {
		t.Fatalf("Route: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("openid alone must route nothing (sub is issuer territory), got %v", got)
	}
}
