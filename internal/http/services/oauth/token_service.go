package oauth

import (
	"context"
	"encoding/json"
	"strings"
	"time"

	"golang.org/x/crypto/bcrypt"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	dto "github.com/dropDatabas3/aliceid/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/aliceid/internal/jwt"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
	"github.com/dropDatabas3/aliceid/internal/oidc"
	tokens "github.com/dropDatabas3/aliceid/internal/security/token"
	"github.com/dropDatabas3/aliceid/internal/store"
)

// TokenService handles POST /connect/token.
type TokenService interface {
	// Exchange resolves the grant. A non-nil *TokenError is a protocol-level
	// rejection (invalid_grant, invalid_client); err is reserved for wiring
	// faults and store failures.
	Exchange(ctx context.Context, req dto.TokenRequest) (dto.TokenResponse, *dto.TokenError, error)
}

// TokenDeps contains dependencies for TokenService.
type TokenDeps struct {
	DAL        store.DataAccessLayer
	Cache      CacheClient
	Exchanger  *oidc.TokenExchangeHandler
	Issuer     *jwtx.Issuer
	RefreshTTL time.Duration
}

type tokenService struct {
	dal        store.DataAccessLayer
	cache      CacheClient
	exchanger  *oidc.TokenExchangeHandler
	issuer     *jwtx.Issuer
	refreshTTL time.Duration
}

// NewTokenService creates a new TokenService.
func NewTokenService(d TokenDeps) TokenService {
	refreshTTL := d.RefreshTTL
	if refreshTTL <= 0 {
		refreshTTL = 30 * 24 * time.Hour
	}
	return &tokenService{
		dal:        d.DAL,
		cache:      d.Cache,
		exchanger:  d.Exchanger,
		issuer:     d.Issuer,
		refreshTTL: refreshTTL,
	}
}

func (s *tokenService) Exchange(ctx context.Context, req dto.TokenRequest) (dto.TokenResponse, *dto.TokenError, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.Exchange"),
		logger.GrantType(req.GrantType))

	grant, err := oidc.ParseGrantType(req.GrantType)
	if err != nil {
		return dto.TokenResponse{}, nil, err
	}

	if tErr := s.authenticateClient(ctx, req); tErr != nil {
		log.Debug("client authentication failed", logger.ClientID(req.ClientID))
		return dto.TokenResponse{}, tErr, nil
	}

	var (
		stored *oidc.Principal
		nonce  string
		tErr   *dto.TokenError
	)
	switch grant {
	case oidc.GrantAuthorizationCode:
		stored, nonce, tErr = s.consumeCode(req)
	case oidc.GrantRefreshToken:
		stored, tErr = s.consumeRefresh(req)
	}
	if tErr != nil {
		log.Debug("grant rejected", logger.String("error", tErr.Error))
		return dto.TokenResponse{}, tErr, nil
	}

	result, err := s.exchanger.Exchange(ctx, grant, stored)
	if err != nil {
		return dto.TokenResponse{}, nil, err
	}
	if result.Outcome == oidc.ExchangeInvalidGrant {
		return dto.TokenResponse{}, &dto.TokenError{
			Error:            "invalid_grant",
			ErrorDescription: result.ErrorDescription,
		}, nil
	}

	return s.issueTokens(ctx, req.ClientID, nonce, result)
}

// authenticateClient verifies the secret of confidential clients.
func (s *tokenService) authenticateClient(ctx context.Context, req dto.TokenRequest) *dto.TokenError {
	if req.ClientID == "" {
		return &dto.TokenError{Error: "invalid_client", ErrorDescription: "client_id required"}
	}
	client, err := s.dal.Clients().Get(ctx, req.ClientID)
	if err != nil {
		return &dto.TokenError{Error: "invalid_client", ErrorDescription: "unknown client"}
	}
	if client.Type == repository.ClientTypeConfidential {
		if req.ClientSecret == "" ||
			bcrypt.CompareHashAndPassword([]byte(client.SecretHash), []byte(req.ClientSecret)) != nil {
			return &dto.TokenError{Error: "invalid_client", ErrorDescription: "client authentication failed"}
		}
	}
	return nil
}

// consumeCode redeems an authorization code one-shot.
func (s *tokenService) consumeCode(req dto.TokenRequest) (*oidc.Principal, string, *dto.TokenError) {
	if strings.TrimSpace(req.Code) == "" {
		return nil, "", &dto.TokenError{Error: "invalid_request", ErrorDescription: "code required"}
	}

	key := cacheKeyPrefixCode + tokens.SHA256Base64URL(req.Code)
	b, found := s.cache.Get(key)
	// One-shot: the code is gone whether the rest succeeds or not.
	s.cache.Delete(key)
	if !found {
		return nil, "", &dto.TokenError{Error: "invalid_grant", ErrorDescription: "code invalid or expired"}
	}

	var payload dto.AuthCodePayload
	if json.Unmarshal(b, &payload) != nil || time.Now().After(payload.ExpiresAt) {
		return nil, "", &dto.TokenError{Error: "invalid_grant", ErrorDescription: "code invalid or expired"}
	}
	if payload.ClientID != req.ClientID || payload.RedirectURI != req.RedirectURI {
		return nil, "", &dto.TokenError{Error: "invalid_grant", ErrorDescription: "code was issued to another client"}
	}

	return &oidc.Principal{
		Subject: payload.Subject,
		Claims:  fromClaimPairs(payload.Claims),
		Scopes:  payload.Scopes,
	}, payload.Nonce, nil
}

// consumeRefresh redeems a refresh token, rotating it.
func (s *tokenService) consumeRefresh(req dto.TokenRequest) (*oidc.Principal, *dto.TokenError) {
	if strings.TrimSpace(req.RefreshToken) == "" {
		return nil, &dto.TokenError{Error: "invalid_request", ErrorDescription: "refresh_token required"}
	}

	key := cacheKeyPrefixRefresh + tokens.SHA256Base64URL(req.RefreshToken)
	b, found := s.cache.Get(key)
	s.cache.Delete(key)
	if !found {
		return nil, &dto.TokenError{Error: "invalid_grant", ErrorDescription: "refresh token invalid or expired"}
	}

	var payload dto.RefreshPayload
	if json.Unmarshal(b, &payload) != nil || time.Now().After(payload.ExpiresAt) {
		return nil, &dto.TokenError{Error: "invalid_grant", ErrorDescription: "refresh token invalid or expired"}
	}
	if payload.ClientID != req.ClientID {
		return nil, &dto.TokenError{Error: "invalid_grant", ErrorDescription: "refresh token was issued to another client"}
	}

	return &oidc.Principal{
		Subject: payload.Subject,
		Claims:  fromClaimPairs(payload.Claims),
		Scopes:  payload.Scopes,
	}, nil
}

// issueTokens signs the access/id tokens and rotates the refresh token.
func (s *tokenService) issueTokens(ctx context.Context, clientID, nonce string, result oidc.ExchangeResult) (dto.TokenResponse, *dto.TokenError, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("TokenService.issueTokens"))

	access, exp, err := s.issuer.IssueAccess(result.Principal, clientID, result.Destinations)
	if err != nil {
		return dto.TokenResponse{}, nil, err
	}

	resp := dto.TokenResponse{
		AccessToken: access,
		TokenType:   "Bearer",
		ExpiresIn:   int64(time.Until(exp).Seconds()),
		Scope:       strings.Join(result.Principal.Scopes, " "),
	}

	if result.Principal.HasScope(oidc.ScopeOpenID) {
		idToken, _, err := s.issuer.IssueIDToken(result.Principal, clientID, nonce, result.Destinations)
		if err != nil {
			return dto.TokenResponse{}, nil, err
		}
		resp.IDToken = idToken
	}

	refresh, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		return dto.TokenResponse{}, nil, err
	}
	payload := dto.RefreshPayload{
		Subject:   result.Principal.Subject,
		ClientID:  clientID,
		Scopes:    result.Principal.Scopes,
		Claims:    toClaimPairs(result.Principal.Claims),
		ExpiresAt: time.Now().Add(s.refreshTTL),
	}
	payloadBytes, _ := json.Marshal(payload)
	s.cache.Set(cacheKeyPrefixRefresh+tokens.SHA256Base64URL(refresh), payloadBytes, s.refreshTTL)
	resp.RefreshToken = refresh

	log.Info("tokens issued", logger.Subject(result.Principal.Subject), logger.ClientID(clientID))
	return resp, nil, nil
}

// NewIdentityStore adapts the user repository to the engine's IdentityStore.
func NewIdentityStore(dal store.DataAccessLayer) oidc.IdentityStore {
	return &storeIdentity{dal: dal}
}

type storeIdentity struct {
	dal store.DataAccessLayer
}

func (s *storeIdentity) FindUser(ctx context.Context, subject string) (*repository.User, error) {
	return s.dal.Users().GetByID(ctx, subject)
}

func (s *storeIdentity) CanSignIn(_ context.Context, user *repository.User) bool {
	return user.CanSignIn(time.Now())
}
