package oauth

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	dto "github.com/dropDatabas3/aliceid/internal/http/dto/oauth"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
	"github.com/dropDatabas3/aliceid/internal/oidc"
)

// DecisionService handles the consent form submission.
type DecisionService interface {
	Decide(ctx context.Context, r *http.Request, req dto.DecisionRequest) (dto.AuthResult, error)
}

type decisionService struct {
	*authorizeService
}

// NewDecisionService creates a DecisionService sharing the authorize deps.
func NewDecisionService(d AuthorizeDeps) DecisionService {
	return &decisionService{NewAuthorizeService(d).(*authorizeService)}
}

// Decide processes an accept/deny submission. The consent policy is
// re-evaluated against the store before honoring an accept: a forged POST
// must not bypass what the policy would never grant (e.g. an external
// client with no operator-issued record).
func (s *decisionService) Decide(ctx context.Context, r *http.Request, req dto.DecisionRequest) (dto.AuthResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("DecisionService.Decide"))

	areq, err := parseAuthorizeRequest(r, req.AuthorizeRequest)
	if err != nil {
		return dto.AuthResult{}, err
	}

	client, err := s.dal.Clients().Get(ctx, areq.ClientID)
	if err != nil {
		log.Debug("client resolution failed", logger.Err(err), logger.ClientID(areq.ClientID))
		return dto.AuthResult{}, ErrInvalidClient
	}
	if !s.dal.Clients().IsRedirectURIAllowed(client, areq.RedirectURI) {
		return dto.AuthResult{}, ErrInvalidRedirect
	}

	_, auth := s.authenticate(ctx, r)
	if !auth.Succeeded {
		return dto.AuthResult{
			Type:     dto.AuthResultNeedLogin,
			LoginURL: s.buildLoginURL(r, ""),
		}, nil
	}

	if !req.Accept {
		log.Info("consent denied", logger.Subject(auth.Principal.Subject), logger.ClientID(areq.ClientID))
		return errorRedirect(areq, "access_denied", "the user denied the request"), nil
	}

	user, err := s.dal.Users().GetByID(ctx, auth.Principal.Subject)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return errorRedirect(areq, "login_required", "login required"), nil
		}
		return dto.AuthResult{}, err
	}
	if !user.CanSignIn(time.Now()) {
		return errorRedirect(areq, "login_required", "login required"), nil
	}
	principal := buildPrincipal(user, areq.Scopes)

	existing, err := s.dal.Authorizations().List(ctx, principal.Subject, areq.ClientID,
		repository.AuthorizationValid, repository.AuthorizationPermanent, areq.Scopes)
	if err != nil {
		return dto.AuthResult{}, err
	}

	// Defensive re-check: the POST does not get to override the policy.
	decision := s.consent.Decide(client.ConsentType, existing, areq.Prompt)
	if decision.Decision == oidc.DecisionConsentRequired {
		log.Warn("consent submission rejected by policy", logger.ClientID(areq.ClientID))
		return errorRedirect(areq, "consent_required", "consent required"), nil
	}

	if _, err := s.records.FindOrCreate(ctx, principal.Subject, areq.ClientID, areq.Scopes, existing); err != nil {
		return dto.AuthResult{}, err
	}

	log.Info("consent accepted", logger.Subject(principal.Subject),
		logger.ClientID(areq.ClientID), logger.Scopes(areq.Scopes))

	return s.issueCode(ctx, areq, principal)
}
