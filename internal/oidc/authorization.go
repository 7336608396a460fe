package oidc

import (
	"context"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
)

// AuthorizationRecordManager finds or creates the durable permanent
// authorization linking a subject, a client and a granted scope set.
type AuthorizationRecordManager struct {
	repo repository.AuthorizationRepository
}

// NewAuthorizationRecordManager creates the manager over the given store.
func NewAuthorizationRecordManager(repo repository.AuthorizationRepository) *AuthorizationRecordManager {
	return &AuthorizationRecordManager{repo: repo}
}

// FindOrCreate returns the most recently created entry of existing, or
// persists a new Permanent/Valid record with the granted scopes. existing
// is pre-filtered by the caller (status=Valid, type=Permanent, matching
// scopes). Scope sets of existing records are never mutated: a consent
// with different scopes always allocates a new record.
//
// Two requests racing on an empty existing set may both create a record;
// that duplicate is harmless — either is found and reused next time.
func (m *AuthorizationRecordManager) FindOrCreate(ctx context.Context, subject, clientID string,
	grantedScopes []string, existing []repository.Authorization) (*repository.Authorization, error) {

	log := logger.From(ctx).With(logger.Component("oidc"), logger.Op("authorization.findOrCreate"))

	if auth := mostRecent(existing); auth != nil {
		log.Debug("reusing permanent authorization",
			logger.Subject(subject), logger.ClientID(clientID), logger.String("authorization_id", auth.ID))
		return auth, nil
	}

	scopes := make([]string, len(grantedScopes))
	copy(scopes, grantedScopes)

	auth, err := m.repo.Create(ctx, repository.CreateAuthorizationInput{
		Subject:  subject,
		ClientID: clientID,
		Type:     repository.AuthorizationPermanent,
		Status:   repository.AuthorizationValid,
		Scopes:   scopes,
	})
	if err != nil {
		return nil, err
	}

	log.Info("permanent authorization created",
		logger.Subject(subject), logger.ClientID(clientID), logger.Scopes(scopes))
	return auth, nil
}
