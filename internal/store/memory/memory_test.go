package memory

import (
	"context"
	"testing"
	"time"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

func TestAuthorizationList_ScopeCoverage(t *testing.T) {
	d := New()
	ctx := context.Background()

	_, err := d.Authorizations().Create(ctx, repository.CreateAuthorizationInput{
		Subject:  "u1",
		ClientID: "app",
		Type:     repository.AuthorizationPermanent,
		Status:   repository.AuthorizationValid,
		Scopes:   []string{"openid", "email"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}

	// Subset of the granted scopes matches.
	got, err := d.Authorizations().List(ctx, "u1", "app",
		repository.AuthorizationValid, repository.AuthorizationPermanent, []string{"openid"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 1 {
		t.Fatalf("subset request: got %d records, want 1", len(got))
	}

	// A scope outside the granted set does not.
	got, err = d.Authorizations().List(ctx, "u1", "app",
		repository.AuthorizationValid, repository.AuthorizationPermanent, []string{"openid", "profile"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("superset request: got %d records, want 0", len(got))
	}
}

func TestAuthorizationRevoke_FiltersFromList(t *testing.T) {
	d := New()
	ctx := context.Background()

	a, err := d.Authorizations().Create(ctx, repository.CreateAuthorizationInput{
		Subject:  "u1",
		ClientID: "app",
		Type:     repository.AuthorizationPermanent,
		Status:   repository.AuthorizationValid,
		Scopes:   []string{"openid"},
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if err := d.Authorizations().Revoke(ctx, a.ID); err != nil {
		t.Fatalf("Revoke: %v", err)
	}

	got, err := d.Authorizations().List(ctx, "u1", "app",
		repository.AuthorizationValid, repository.AuthorizationPermanent, []string{"openid"})
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(got) != 0 {
		t.Fatalf("revoked record still listed")
	}

	all, err := d.Authorizations().ListBySubject(ctx, "u1")
	if err != nil {
		t.Fatalf("ListBySubject: %v", err)
	}
	if len(all) != 1 || all[0].Status != repository.AuthorizationRevoked || all[0].RevokedAt == nil {
		t.Fatalf("record not marked revoked: %+v", all)
	}
}

func TestUserDisable_LockoutWindow(t *testing.T) {
	d := New()
	ctx := context.Background()

	u, err := d.Users().Create(ctx, repository.CreateUserInput{Email: "a@b.c"})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if !u.CanSignIn(time.Now()) {
		t.Fatal("fresh user cannot sign in")
	}

	until := time.Now().Add(time.Hour)
	if err := d.Users().Disable(ctx, u.ID, &until); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	u, err = d.Users().GetByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetByID: %v", err)
	}
	if u.CanSignIn(time.Now()) {
		t.Fatal("locked-out user can sign in")
	}
	if !u.CanSignIn(time.Now().Add(2 * time.Hour)) {
		t.Fatal("expired lockout still blocks sign in")
	}

	// Permanent disable: no until.
	if err := d.Users().Disable(ctx, u.ID, nil); err != nil {
		t.Fatalf("Disable: %v", err)
	}
	u, _ = d.Users().GetByID(ctx, u.ID)
	if u.CanSignIn(time.Now().Add(24 * time.Hour)) {
		t.Fatal("permanently disabled user can sign in")
	}
}

func TestClientCreate_HashesSecret(t *testing.T) {
	d := New()
	ctx := context.Background()

	c, err := d.Clients().Create(ctx, repository.ClientInput{
		ClientID:    "app",
		Type:        repository.ClientTypeConfidential,
		ConsentType: repository.ConsentExplicit,
		Secret:      "s3cret",
	})
	if err != nil {
		t.Fatalf("Create: %v", err)
	}
	if c.SecretHash == "" || c.SecretHash == "s3cret" {
		t.Fatalf("secret stored in clear or empty: %q", c.SecretHash)
	}

	if _, err := d.Clients().Create(ctx, repository.ClientInput{ClientID: "app"}); err != repository.ErrConflict {
		t.Fatalf("duplicate client_id: got %v, want ErrConflict", err)
	}
}
