package oidc

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
)

// fakeAuthzRepo records Create calls; List/Revoke are not exercised here.
type fakeAuthzRepo struct {
	created []repository.CreateAuthorizationInput
}

func (f *fakeAuthzRepo) List(context.Context, string, string, repository.AuthorizationStatus, repository.AuthorizationType, []string) ([]repository.Authorization, error) {
	return nil, nil
}

func (f *fakeAuthzRepo) ListBySubject(context.Context, string) ([]repository.Authorization, error) {
	return nil, nil
}

func (f *fakeAuthzRepo) Create(_ context.Context, in repository.CreateAuthorizationInput) (*repository.Authorization, error) {
	f.created = append(f.created, in)
	return &repository.Authorization{
		ID:        uuid.NewString(),
		Subject:   in.Subject,
		ClientID:  in.ClientID,
		Type:      in.Type,
		Status:    in.Status,
		Scopes:    in.Scopes,
		CreatedAt: time.Now(),
	}, nil
}

func (f *fakeAuthzRepo) Revoke(context.Context, string) error { return nil }

func TestFindOrCreate_ReusesMostRecent(t *testing.T) {
	repo := &fakeAuthzRepo{}
	m := NewAuthorizationRecordManager(repo)

	base := time.Date(2025, 3, 1, 12, 0, 0, 0, time.UTC)
	existing := []repository.Authorization{
		authRecord("older", base),
		authRecord("newer", base.Add(time.Hour)),
	}

	got, err := m.FindOrCreate(context.Background(), "u1", "client-1", []string{"openid", "email"}, existing)
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if got.ID != "newer" {
		t.Fatalf("expected the most recent record, got %q", got.ID)
	}
	if len(repo.created) != 0 {
		t.Fatalf("no record should be created when one exists, got %d creates", len(repo.created))
	}
}

func TestFindOrCreate_CreatesPermanentValid(t *testing.T) {
	repo := &fakeAuthzRepo{}
	m := NewAuthorizationRecordManager(repo)

	scopes := []string{"openid", "email"}
	got, err := m.FindOrCreate(context.Background(), "u1", "client-1", scopes, nil)
	if err != nil {
		t.Fatalf("FindOrCreate: %v", err)
	}
	if len(repo.created) != 1 {
		t.Fatalf("expected exactly one create, got %d", len(repo.created))
	}

	in := repo.created[0]
	if in.Type != repository.AuthorizationPermanent || in.Status != repository.AuthorizationValid {
		t.Fatalf("created %s/%s, want permanent/valid", in.Type, in.Status)
	}
	if in.Subject != "u1" || in.ClientID != "client-1" {
		t.Fatalf("created for %s/%s", in.Subject, in.ClientID)
	}
	if got == nil || got.Type != repository.AuthorizationPermanent {
		t.Fatalf("returned record = %+v", got)
	}

	// The stored scope slice must not alias the caller's.
	scopes[0] = "mutated"
	if in.Scopes[0] != "openid" {
		t.Fatal("granted scopes must be copied, not aliased")
	}
}
