// Package oauth contains services for the OAuth2/OIDC endpoints.
package oauth

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	dto "github.com/dropDatabas3/aliceid/internal/http/dto/oauth"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
	"github.com/dropDatabas3/aliceid/internal/oidc"
	tokens "github.com/dropDatabas3/aliceid/internal/security/token"
	"github.com/dropDatabas3/aliceid/internal/store"
)

// Cache key prefixes
const (
	cacheKeyPrefixSID     = "sid:"
	cacheKeyPrefixCode    = "code:"
	cacheKeyPrefixRefresh = "refresh:"
	cacheKeyPrefixRecheck = "recheck:"
)

const recheckFlagTTL = 5 * time.Minute

// Errors for the authorize flow (pre-redirect validation).
var (
	ErrMissingParams   = errors.New("missing required parameters")
	ErrInvalidScope    = errors.New("scope must include openid")
	ErrInvalidMaxAge   = errors.New("max_age must be a non-negative integer")
	ErrInvalidClient   = errors.New("invalid client")
	ErrInvalidRedirect = errors.New("redirect_uri not allowed")
	ErrCodeGenFailed   = errors.New("failed to generate auth code")
)

// AuthorizeService handles the OAuth2 authorization flow.
type AuthorizeService interface {
	Authorize(ctx context.Context, r *http.Request, req dto.AuthorizeRequest) (dto.AuthResult, error)
}

// CacheClient abstracts cache operations needed by the oauth services.
type CacheClient interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration)
	Delete(key string)
}

// AuthorizeDeps contains dependencies for AuthorizeService.
type AuthorizeDeps struct {
	DAL        store.DataAccessLayer
	Cache      CacheClient
	Evaluator  *oidc.RequestEvaluator
	Consent    *oidc.ConsentDecisionEngine
	Records    *oidc.AuthorizationRecordManager
	CookieName string
	LoginURL   string // login UI, receives return_to
	CodeTTL    time.Duration
}

type authorizeService struct {
	dal        store.DataAccessLayer
	cache      CacheClient
	evaluator  *oidc.RequestEvaluator
	consent    *oidc.ConsentDecisionEngine
	records    *oidc.AuthorizationRecordManager
	cookieName string
	loginURL   string
	codeTTL    time.Duration
}

// NewAuthorizeService creates a new AuthorizeService.
func NewAuthorizeService(d AuthorizeDeps) AuthorizeService {
	codeTTL := d.CodeTTL
	if codeTTL <= 0 {
		codeTTL = 2 * time.Minute
	}
	return &authorizeService{
		dal:        d.DAL,
		cache:      d.Cache,
		evaluator:  d.Evaluator,
		consent:    d.Consent,
		records:    d.Records,
		cookieName: d.CookieName,
		loginURL:   d.LoginURL,
		codeTTL:    codeTTL,
	}
}

// Authorize handles the full authorization flow.
func (s *authorizeService) Authorize(ctx context.Context, r *http.Request, req dto.AuthorizeRequest) (dto.AuthResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.Authorize"))

	// 1. Parse and validate the request
	areq, err := parseAuthorizeRequest(r, req)
	if err != nil {
		return dto.AuthResult{}, err
	}

	// 2. Resolve client and validate redirect/scopes
	client, err := s.dal.Clients().Get(ctx, areq.ClientID)
	if err != nil {
		log.Debug("client resolution failed", logger.Err(err), logger.ClientID(areq.ClientID))
		return dto.AuthResult{}, ErrInvalidClient
	}
	if !s.dal.Clients().IsRedirectURIAllowed(client, areq.RedirectURI) {
		log.Debug("redirect validation failed", logger.ClientID(areq.ClientID))
		return dto.AuthResult{}, ErrInvalidRedirect
	}
	for _, scope := range areq.Scopes {
		if scope == oidc.ScopeOpenID {
			continue
		}
		if !s.dal.Clients().IsScopeAllowed(client, scope) {
			log.Debug("scope validation failed", logger.Scope(scope))
			return errorRedirect(areq, "invalid_scope", "scope not allowed"), nil
		}
	}

	// 3. Authenticate via session cookie
	sid, auth := s.authenticate(ctx, r)
	log.Debug("auth result", logger.Bool("authenticated", auth.Succeeded))

	// 4. Session freshness / re-authentication
	flag := s.loadRecheckFlag(sid, areq.ClientID)
	eval, err := s.evaluator.Evaluate(areq, auth, flag)
	if err != nil {
		return dto.AuthResult{}, err
	}
	s.storeRecheckFlag(sid, areq.ClientID, flag)

	switch eval.Outcome {
	case oidc.EvalLoginRequired:
		return errorRedirect(areq, "login_required", "login required"), nil
	case oidc.EvalChallenge:
		return dto.AuthResult{
			Type:     dto.AuthResultNeedLogin,
			LoginURL: s.buildLoginURL(r, eval.RedirectTarget),
		}, nil
	}
	// A spent recheck flag lets an unauthenticated request through the
	// evaluator; without a principal there is nothing to continue with.
	if eval.Principal == nil {
		return errorRedirect(areq, "login_required", "login required"), nil
	}

	// 5. Load the user and build the principal
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

	// 6. Consent decision
	existing, err := s.dal.Authorizations().List(ctx, principal.Subject, areq.ClientID,
		repository.AuthorizationValid, repository.AuthorizationPermanent, areq.Scopes)
	if err != nil {
		return dto.AuthResult{}, err
	}

	decision := s.consent.Decide(client.ConsentType, existing, areq.Prompt)
	log.Debug("consent decision", logger.Decision(decision.Decision.String()), logger.ClientID(areq.ClientID))

	switch decision.Decision {
	case oidc.DecisionConsentRequired:
		return errorRedirect(areq, "consent_required", "consent required"), nil

	case oidc.DecisionShowConsentForm:
		form, err := s.buildConsentForm(ctx, client, areq)
		if err != nil {
			return dto.AuthResult{}, err
		}
		return dto.AuthResult{Type: dto.AuthResultConsent, Consent: form}, nil
	}

	// 7. Silent grant: ensure the permanent record exists and issue the code
	if _, err := s.records.FindOrCreate(ctx, principal.Subject, areq.ClientID, areq.Scopes, existing); err != nil {
		return dto.AuthResult{}, err
	}
	return s.issueCode(ctx, areq, principal)
}

// issueCode generates the opaque code, caches its payload under the hash
// and returns the success redirect.
func (s *authorizeService) issueCode(ctx context.Context, areq *oidc.AuthorizationRequest, principal *oidc.Principal) (dto.AuthResult, error) {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("AuthorizeService.issueCode"))

	code, err := tokens.GenerateOpaqueToken(32)
	if err != nil {
		log.Error("code generation failed", logger.Err(err))
		return dto.AuthResult{}, ErrCodeGenFailed
	}

	payload := dto.AuthCodePayload{
		Subject:     principal.Subject,
		ClientID:    areq.ClientID,
		RedirectURI: areq.RedirectURI,
		Scopes:      principal.Scopes,
		Claims:      toClaimPairs(principal.Claims),
		Nonce:       areq.Nonce,
		ExpiresAt:   time.Now().Add(s.codeTTL),
	}
	payloadBytes, _ := json.Marshal(payload)
	s.cache.Set(cacheKeyPrefixCode+tokens.SHA256Base64URL(code), payloadBytes, s.codeTTL)

	log.Info("auth code issued", logger.Subject(principal.Subject), logger.ClientID(areq.ClientID))

	return dto.AuthResult{
		Type:        dto.AuthResultSuccess,
		Code:        code,
		State:       areq.State,
		RedirectURI: areq.RedirectURI,
	}, nil
}

// buildConsentForm resolves display info for the consent screen.
func (s *authorizeService) buildConsentForm(ctx context.Context, client *repository.Client, areq *oidc.AuthorizationRequest) (*dto.ConsentFormData, error) {
	form := &dto.ConsentFormData{
		ClientID:    client.ClientID,
		ClientName:  client.Name,
		SubmitURL:   "/connect/authorize/decision",
		State:       areq.State,
		RedirectURI: areq.RedirectURI,
	}
	for _, name := range areq.Scopes {
		display := name
		if sc, err := s.dal.Scopes().GetByName(ctx, name); err == nil && sc.DisplayName != "" {
			display = sc.DisplayName
		} else if err != nil && !errors.Is(err, repository.ErrNotFound) {
			return nil, err
		}
		form.Scopes = append(form.Scopes, dto.ScopeDisplay{Name: name, DisplayName: display})
	}
	return form, nil
}

// authenticate resolves the session cookie against the cache. Returns the
// raw session id (for the recheck flag key) and the authentication result.
func (s *authorizeService) authenticate(ctx context.Context, r *http.Request) (string, oidc.AuthenticationResult) {
	ck, err := r.Cookie(s.cookieName)
	if err != nil || ck == nil || strings.TrimSpace(ck.Value) == "" {
		return "", oidc.AuthenticationResult{}
	}

	key := cacheKeyPrefixSID + tokens.SHA256Base64URL(ck.Value)
	b, found := s.cache.Get(key)
	if !found {
		return ck.Value, oidc.AuthenticationResult{}
	}

	var sp dto.SessionPayload
	if json.Unmarshal(b, &sp) != nil || !time.Now().Before(sp.Expires) {
		return ck.Value, oidc.AuthenticationResult{}
	}

	return ck.Value, oidc.AuthenticationResult{
		Succeeded: true,
		Principal: &oidc.Principal{Subject: sp.UserID},
		IssuedAt:  sp.IssuedAt,
	}
}

// Recheck flag persistence: one flag per (session, client) pair. The flag
// only breaks challenge loops; it expires on its own.

func (s *authorizeService) recheckKey(sid, clientID string) string {
	return cacheKeyPrefixRecheck + tokens.SHA256Base64URL(sid) + ":" + clientID
}

func (s *authorizeService) loadRecheckFlag(sid, clientID string) *oidc.RecheckFlag {
	flag := &oidc.RecheckFlag{}
	if sid == "" {
		return flag
	}
	if b, ok := s.cache.Get(s.recheckKey(sid, clientID)); ok && string(b) == "1" {
		flag.Attempted = true
	}
	return flag
}

func (s *authorizeService) storeRecheckFlag(sid, clientID string, flag *oidc.RecheckFlag) {
	if sid == "" {
		return
	}
	key := s.recheckKey(sid, clientID)
	if flag.Attempted {
		s.cache.Set(key, []byte("1"), recheckFlagTTL)
	} else {
		s.cache.Delete(key)
	}
}

// buildLoginURL constructs the URL to redirect for login.
func (s *authorizeService) buildLoginURL(r *http.Request, returnTo string) string {
	if returnTo == "" {
		returnTo = r.URL.RequestURI()
	}
	return fmt.Sprintf("%s?return_to=%s", s.loginURL, url.QueryEscape(returnTo))
}

// parseAuthorizeRequest validates the wire params and produces the
// immutable request the engine evaluates.
func parseAuthorizeRequest(r *http.Request, req dto.AuthorizeRequest) (*oidc.AuthorizationRequest, error) {
	if req.ResponseType != "code" || req.ClientID == "" || req.RedirectURI == "" || req.Scope == "" {
		return nil, ErrMissingParams
	}
	scopes := strings.Fields(req.Scope)
	hasOpenID := false
	for _, sc := range scopes {
		if sc == oidc.ScopeOpenID {
			hasOpenID = true
			break
		}
	}
	if !hasOpenID {
		return nil, ErrInvalidScope
	}

	var maxAge *int64
	if req.MaxAge != "" {
		v, err := strconv.ParseInt(req.MaxAge, 10, 64)
		if err != nil || v < 0 {
			return nil, ErrInvalidMaxAge
		}
		maxAge = &v
	}

	return &oidc.AuthorizationRequest{
		ClientID:     req.ClientID,
		ResponseType: req.ResponseType,
		RedirectURI:  req.RedirectURI,
		Scopes:       scopes,
		Prompt:       strings.Fields(req.Prompt),
		MaxAge:       maxAge,
		State:        req.State,
		Nonce:        req.Nonce,
		OriginalURI:  r.URL.RequestURI(),
	}, nil
}

func errorRedirect(areq *oidc.AuthorizationRequest, code, desc string) dto.AuthResult {
	return dto.AuthResult{
		Type:             dto.AuthResultError,
		RedirectURI:      areq.RedirectURI,
		State:            areq.State,
		ErrorCode:        code,
		ErrorDescription: desc,
	}
}

func toClaimPairs(claims []oidc.Claim) []dto.ClaimPair {
	out := make([]dto.ClaimPair, len(claims))
	for i, c := range claims {
		out[i] = dto.ClaimPair{Type: c.Type, Value: c.Value}
	}
	return out
}

func fromClaimPairs(pairs []dto.ClaimPair) []oidc.Claim {
	out := make([]oidc.Claim, len(pairs))
	for i, p := range pairs {
		out[i] = oidc.Claim{Type: p.Type, Value: p.Value}
	}
	return out
}
