package oauth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"net/url"
	"strings"
	"testing"
	"time"

	jwtv5 "github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/require"

	cachememory "github.com/dropDatabas3/aliceid/internal/cache/memory"
	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	dto "github.com/dropDatabas3/aliceid/internal/http/dto/oauth"
	jwtx "github.com/dropDatabas3/aliceid/internal/jwt"
	"github.com/dropDatabas3/aliceid/internal/oidc"
	tokens "github.com/dropDatabas3/aliceid/internal/security/token"
	storememory "github.com/dropDatabas3/aliceid/internal/store/memory"
)

const (
	testRedirectURI = "https://app.example/cb"
	testLoginURL    = "/login"
	testCookie      = "sid"
)

type flowEnv struct {
	dal       *storememory.DAL
	cache     CacheClient
	authorize AuthorizeService
	decision  DecisionService
	token     TokenService
	issuer    *jwtx.Issuer
	user      *repository.User
}

func newFlowEnv(t *testing.T) *flowEnv {
	t.Helper()
	ctx := context.Background()

	dal := storememory.New()
	c := cachememory.New(time.Minute)

	for _, in := range []repository.ScopeInput{
		{Name: "openid", DisplayName: "Identidad", Claims: []string{"sub"}, System: true},
		{Name: "email", DisplayName: "Email", Claims: []string{"email", "email_verified"}, System: true},
		{Name: "profile", DisplayName: "Perfil", Claims: []string{"name", "preferred_username"}, System: true},
	} {
		_, err := dal.Scopes().Upsert(ctx, in)
		require.NoError(t, err)
	}

	user, err := dal.Users().Create(ctx, repository.CreateUserInput{
		Email:      "ana@example.com",
		Name:       "Ana Pérez",
		ScreenName: "ana",
	})
	require.NoError(t, err)

	keys, err := jwtx.NewEd25519("test")
	require.NoError(t, err)
	issuer := jwtx.NewIssuer("https://id.example", keys)

	deps := AuthorizeDeps{
		DAL:        dal,
		Cache:      c,
		Evaluator:  oidc.NewRequestEvaluator(),
		Consent:    oidc.NewConsentDecisionEngine(),
		Records:    oidc.NewAuthorizationRecordManager(dal.Authorizations()),
		CookieName: testCookie,
		LoginURL:   testLoginURL,
		CodeTTL:    time.Minute,
	}
	catalog := oidc.NewScopeClaimCatalog(dal.Scopes())
	exchanger := oidc.NewTokenExchangeHandler(NewIdentityStore(dal), oidc.NewClaimDestinationRouter(catalog))

	return &flowEnv{
		dal:       dal,
		cache:     c,
		authorize: NewAuthorizeService(deps),
		decision:  NewDecisionService(deps),
		token: NewTokenService(TokenDeps{
			DAL:       dal,
			Cache:     c,
			Exchanger: exchanger,
			Issuer:    issuer,
		}),
		issuer: issuer,
		user:   user,
	}
}

func (e *flowEnv) addClient(t *testing.T, clientID string, consent repository.ConsentType, clientType, secret string) *repository.Client {
	t.Helper()
	c, err := e.dal.Clients().Create(context.Background(), repository.ClientInput{
		ClientID:     clientID,
		Name:         "Test App",
		Type:         clientType,
		ConsentType:  consent,
		RedirectURIs: []string{testRedirectURI},
		Scopes:       []string{"openid", "email", "profile"},
		Secret:       secret,
	})
	require.NoError(t, err)
	return c
}

// seedSession plants a live session in the cache and returns the cookie value.
func (e *flowEnv) seedSession(t *testing.T, userID string) string {
	t.Helper()
	sid := "sess-" + userID
	b, err := json.Marshal(dto.SessionPayload{
		UserID:   userID,
		IssuedAt: time.Now().Add(-time.Minute),
		Expires:  time.Now().Add(time.Hour),
	})
	require.NoError(t, err)
	e.cache.Set("sid:"+tokens.SHA256Base64URL(sid), b, time.Hour)
	return sid
}

func authorizeHTTPRequest(req dto.AuthorizeRequest, sid string) *http.Request {
	q := url.Values{}
	q.Set("response_type", req.ResponseType)
	q.Set("client_id", req.ClientID)
	q.Set("redirect_uri", req.RedirectURI)
	q.Set("scope", req.Scope)
	r := httptest.NewRequest(http.MethodGet, "/connect/authorize?"+q.Encode(), nil)
	if sid != "" {
		r.AddCookie(&http.Cookie{Name: testCookie, Value: sid})
	}
	return r
}

func baseAuthorizeRequest(clientID string) dto.AuthorizeRequest {
	return dto.AuthorizeRequest{
		ResponseType: "code",
		ClientID:     clientID,
		RedirectURI:  testRedirectURI,
		Scope:        "openid email",
		State:        "xyz",
		Nonce:        "n-1",
	}
}

func TestAuthorize_ImplicitConsentGrantsSilently(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentImplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	req := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)
	require.NotEmpty(t, res.Code)
	require.Equal(t, "xyz", res.State)

	// The silent grant leaves a permanent record behind.
	records, err := env.dal.Authorizations().List(context.Background(), env.user.ID, "app",
		repository.AuthorizationValid, repository.AuthorizationPermanent, []string{"openid", "email"})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestAuthorize_ExplicitConsentShowsForm(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentExplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	req := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultConsent, res.Type)
	require.NotNil(t, res.Consent)
	require.Equal(t, "Test App", res.Consent.ClientName)

	// Scope display names come from the catalog.
	names := map[string]string{}
	for _, s := range res.Consent.Scopes {
		names[s.Name] = s.DisplayName
	}
	require.Equal(t, "Email", names["email"])
}

func TestAuthorize_ExplicitConsentReusesGrant(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentExplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	_, err := env.dal.Authorizations().Create(context.Background(), repository.CreateAuthorizationInput{
		Subject:  env.user.ID,
		ClientID: "app",
		Type:     repository.AuthorizationPermanent,
		Status:   repository.AuthorizationValid,
		Scopes:   []string{"openid", "email", "profile"},
	})
	require.NoError(t, err)

	req := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)
}

func TestAuthorize_ExternalConsentWithoutRecordIsRejected(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentExternal, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	req := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	require.Equal(t, "consent_required", res.ErrorCode)
}

func TestAuthorize_NoSessionChallengesLogin(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentImplicit, repository.ClientTypePublic, "")

	req := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, ""), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultNeedLogin, res.Type)
	require.True(t, strings.HasPrefix(res.LoginURL, testLoginURL+"?return_to="))
}

func TestAuthorize_ScopeNotAllowedForClient(t *testing.T) {
	env := newFlowEnv(t)
	c, err := env.dal.Clients().Create(context.Background(), repository.ClientInput{
		ClientID:     "narrow",
		ConsentType:  repository.ConsentImplicit,
		Type:         repository.ClientTypePublic,
		RedirectURIs: []string{testRedirectURI},
		Scopes:       []string{"openid"},
	})
	require.NoError(t, err)
	require.NotNil(t, c)
	sid := env.seedSession(t, env.user.ID)

	req := baseAuthorizeRequest("narrow")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	require.Equal(t, "invalid_scope", res.ErrorCode)
}

func TestAuthorize_UnknownClientFailsBeforeRedirect(t *testing.T) {
	env := newFlowEnv(t)
	req := baseAuthorizeRequest("ghost")
	_, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(req, ""), req)
	require.ErrorIs(t, err, ErrInvalidClient)
}

func TestDecision_AcceptIssuesCode(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentExplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	req := dto.DecisionRequest{AuthorizeRequest: baseAuthorizeRequest("app"), Accept: true}
	res, err := env.decision.Decide(context.Background(), authorizeHTTPRequest(req.AuthorizeRequest, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)
	require.NotEmpty(t, res.Code)

	records, err := env.dal.Authorizations().List(context.Background(), env.user.ID, "app",
		repository.AuthorizationValid, repository.AuthorizationPermanent, []string{"openid", "email"})
	require.NoError(t, err)
	require.Len(t, records, 1)
}

func TestDecision_DenyRedirectsAccessDenied(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentExplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	req := dto.DecisionRequest{AuthorizeRequest: baseAuthorizeRequest("app"), Accept: false}
	res, err := env.decision.Decide(context.Background(), authorizeHTTPRequest(req.AuthorizeRequest, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	require.Equal(t, "access_denied", res.ErrorCode)

	records, err := env.dal.Authorizations().ListBySubject(context.Background(), env.user.ID)
	require.NoError(t, err)
	require.Empty(t, records)
}

// A forged accept for an external client must not mint the record the
// operator never issued.
func TestDecision_ForgedAcceptForExternalClientRejected(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentExternal, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	req := dto.DecisionRequest{AuthorizeRequest: baseAuthorizeRequest("app"), Accept: true}
	res, err := env.decision.Decide(context.Background(), authorizeHTTPRequest(req.AuthorizeRequest, sid), req)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultError, res.Type)
	require.Equal(t, "consent_required", res.ErrorCode)

	records, err := env.dal.Authorizations().ListBySubject(context.Background(), env.user.ID)
	require.NoError(t, err)
	require.Empty(t, records)
}

func TestToken_CodeExchangeIssuesTokens(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentImplicit, repository.ClientTypeConfidential, "s3cret")
	sid := env.seedSession(t, env.user.ID)

	areq := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(areq, sid), areq)
	require.NoError(t, err)
	require.Equal(t, dto.AuthResultSuccess, res.Type)

	treq := dto.TokenRequest{
		GrantType:    "authorization_code",
		Code:         res.Code,
		RedirectURI:  testRedirectURI,
		ClientID:     "app",
		ClientSecret: "s3cret",
	}
	resp, tErr, err := env.token.Exchange(context.Background(), treq)
	require.NoError(t, err)
	require.Nil(t, tErr)
	require.Equal(t, "Bearer", resp.TokenType)
	require.NotEmpty(t, resp.AccessToken)
	require.NotEmpty(t, resp.IDToken)
	require.NotEmpty(t, resp.RefreshToken)
	require.Equal(t, "openid email", resp.Scope)

	// The access token verifies against the active key and carries the
	// subject and the nonce goes to the id token only.
	parsed, err := jwtv5.Parse(resp.AccessToken, env.issuer.Keyfunc())
	require.NoError(t, err)
	claims := parsed.Claims.(jwtv5.MapClaims)
	require.Equal(t, env.user.ID, claims["sub"])
	require.Equal(t, "https://id.example", claims["iss"])

	idParsed, err := jwtv5.Parse(resp.IDToken, env.issuer.Keyfunc())
	require.NoError(t, err)
	idClaims := idParsed.Claims.(jwtv5.MapClaims)
	require.Equal(t, "n-1", idClaims["nonce"])
	require.Equal(t, "ana@example.com", idClaims["email"])

	// One-shot: replaying the code fails.
	_, tErr, err = env.token.Exchange(context.Background(), treq)
	require.NoError(t, err)
	require.NotNil(t, tErr)
	require.Equal(t, "invalid_grant", tErr.Error)
}

func TestToken_RefreshRotation(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentImplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	areq := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(areq, sid), areq)
	require.NoError(t, err)

	first, tErr, err := env.token.Exchange(context.Background(), dto.TokenRequest{
		GrantType:   "authorization_code",
		Code:        res.Code,
		RedirectURI: testRedirectURI,
		ClientID:    "app",
	})
	require.NoError(t, err)
	require.Nil(t, tErr)

	second, tErr, err := env.token.Exchange(context.Background(), dto.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: first.RefreshToken,
		ClientID:     "app",
	})
	require.NoError(t, err)
	require.Nil(t, tErr)
	require.NotEmpty(t, second.AccessToken)
	require.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The consumed refresh token no longer works.
	_, tErr, err = env.token.Exchange(context.Background(), dto.TokenRequest{
		GrantType:    "refresh_token",
		RefreshToken: first.RefreshToken,
		ClientID:     "app",
	})
	require.NoError(t, err)
	require.NotNil(t, tErr)
	require.Equal(t, "invalid_grant", tErr.Error)
}

func TestToken_ConfidentialClientNeedsSecret(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentImplicit, repository.ClientTypeConfidential, "s3cret")

	_, tErr, err := env.token.Exchange(context.Background(), dto.TokenRequest{
		GrantType:    "authorization_code",
		Code:         "whatever",
		RedirectURI:  testRedirectURI,
		ClientID:     "app",
		ClientSecret: "wrong",
	})
	require.NoError(t, err)
	require.NotNil(t, tErr)
	require.Equal(t, "invalid_client", tErr.Error)
}

func TestToken_CodeBoundToClientAndRedirect(t *testing.T) {
	env := newFlowEnv(t)
	env.addClient(t, "app", repository.ConsentImplicit, repository.ClientTypePublic, "")
	env.addClient(t, "other", repository.ConsentImplicit, repository.ClientTypePublic, "")
	sid := env.seedSession(t, env.user.ID)

	areq := baseAuthorizeRequest("app")
	res, err := env.authorize.Authorize(context.Background(), authorizeHTTPRequest(areq, sid), areq)
	require.NoError(t, err)

	_, tErr, err := env.token.Exchange(context.Background(), dto.TokenRequest{
		GrantType:   "authorization_code",
		Code:        res.Code,
		RedirectURI: testRedirectURI,
		ClientID:    "other",
	})
	require.NoError(t, err)
	require.NotNil(t, tErr)
	require.Equal(t, "invalid_grant", tErr.Error)
}
