// Package oauth - controllers for the /connect/* endpoints.
package oauth

import (
	"encoding/json"
	"net/http"
	"net/url"
	"strings"

	"go.uber.org/zap"

	dto "github.com/dropDatabas3/aliceid/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/aliceid/internal/http/errors"
	svc "github.com/dropDatabas3/aliceid/internal/http/services/oauth"
	"github.com/dropDatabas3/aliceid/internal/metrics"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
)

// AuthorizeController handles the authorization endpoint and the consent
// form submission.
type AuthorizeController struct {
	authorize svc.AuthorizeService
	decision  svc.DecisionService
}

// NewAuthorizeController creates the controller.
func NewAuthorizeController(a svc.AuthorizeService, d svc.DecisionService) *AuthorizeController {
	return &AuthorizeController{authorize: a, decision: d}
}

// Authorize handles GET|POST /connect/authorize.
func (c *AuthorizeController) Authorize(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Authorize"))

	w.Header().Add("Vary", "Cookie")

	req := authorizeRequestFromValues(requestValues(r))
	log.Debug("authorize request",
		logger.ClientID(req.ClientID),
		logger.String("response_type", req.ResponseType),
		logger.String("scope", req.Scope))

	result, err := c.authorize.Authorize(ctx, r, req)
	if err != nil {
		metrics.RecordAuthorizeDecision("error")
		writeAuthorizeError(w, log, err)
		return
	}
	c.respond(w, r, result)
}

// Decision handles POST /connect/authorize/decision.
func (c *AuthorizeController) Decision(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("AuthorizeController.Decision"))

	if err := r.ParseForm(); err != nil {
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("malformed form body"))
		return
	}

	req := dto.DecisionRequest{
		AuthorizeRequest: authorizeRequestFromValues(r.PostForm),
		// The original form posts submit.Accept / submit.Deny buttons.
		Accept: r.PostForm.Has("submit.Accept"),
	}

	result, err := c.decision.Decide(ctx, r, req)
	if err != nil {
		metrics.RecordConsentSubmission("rejected")
		writeAuthorizeError(w, log, err)
		return
	}

	switch {
	case result.Type == dto.AuthResultSuccess:
		metrics.RecordConsentSubmission("accepted")
	case result.ErrorCode == "access_denied":
		metrics.RecordConsentSubmission("denied")
	default:
		metrics.RecordConsentSubmission("rejected")
	}
	c.respond(w, r, result)
}

// respond maps an AuthResult onto the wire.
func (c *AuthorizeController) respond(w http.ResponseWriter, r *http.Request, result dto.AuthResult) {
	switch result.Type {
	case dto.AuthResultSuccess:
		metrics.RecordAuthorizeDecision("success")
		loc := addQueryParam(result.RedirectURI, "code", result.Code)
		if result.State != "" {
			loc = addQueryParam(loc, "state", result.State)
		}
		http.Redirect(w, r, loc, http.StatusFound)

	case dto.AuthResultNeedLogin:
		metrics.RecordAuthorizeDecision("need_login")
		http.Redirect(w, r, result.LoginURL, http.StatusFound)

	case dto.AuthResultConsent:
		metrics.RecordAuthorizeDecision("consent_form")
		w.Header().Set("Content-Type", "application/json; charset=utf-8")
		w.Header().Set("Cache-Control", "no-store")
		w.WriteHeader(http.StatusOK)
		_ = json.NewEncoder(w).Encode(result.Consent)

	case dto.AuthResultError:
		metrics.RecordAuthorizeDecision(result.ErrorCode)
		w.Header().Set("Cache-Control", "no-store")
		w.Header().Set("Pragma", "no-cache")
		loc := addQueryParam(result.RedirectURI, "error", result.ErrorCode)
		if result.ErrorDescription != "" {
			loc = addQueryParam(loc, "error_description", result.ErrorDescription)
		}
		if result.State != "" {
			loc = addQueryParam(loc, "state", result.State)
		}
		http.Redirect(w, r, loc, http.StatusFound)
	}
}

// writeAuthorizeError maps pre-redirect failures to JSON errors. Redirect
// validation failed, so redirecting the error would be an open redirect.
func writeAuthorizeError(w http.ResponseWriter, log *zap.Logger, err error) {
	switch err {
	case svc.ErrMissingParams:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("missing required parameters"))
	case svc.ErrInvalidScope:
		httperrors.WriteError(w, httperrors.New(http.StatusBadRequest, "invalid_scope", "scope must include openid"))
	case svc.ErrInvalidMaxAge:
		httperrors.WriteError(w, httperrors.ErrBadRequest.WithDetail("max_age must be a non-negative integer"))
	case svc.ErrInvalidClient:
		httperrors.WriteError(w, httperrors.New(http.StatusBadRequest, "invalid_client", "client not found"))
	case svc.ErrInvalidRedirect:
		httperrors.WriteError(w, httperrors.New(http.StatusBadRequest, "invalid_redirect_uri", "redirect_uri not allowed"))
	default:
		log.Error("authorize failed", logger.Err(err))
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
	}
}

// requestValues merges query (GET) or form (POST) params.
func requestValues(r *http.Request) url.Values {
	if r.Method == http.MethodPost {
		_ = r.ParseForm()
		return r.Form
	}
	return r.URL.Query()
}

func authorizeRequestFromValues(v url.Values) dto.AuthorizeRequest {
	return dto.AuthorizeRequest{
		ResponseType: strings.TrimSpace(v.Get("response_type")),
		ClientID:     strings.TrimSpace(v.Get("client_id")),
		RedirectURI:  strings.TrimSpace(v.Get("redirect_uri")),
		Scope:        strings.TrimSpace(v.Get("scope")),
		State:        strings.TrimSpace(v.Get("state")),
		Nonce:        strings.TrimSpace(v.Get("nonce")),
		Prompt:       strings.TrimSpace(v.Get("prompt")),
		MaxAge:       strings.TrimSpace(v.Get("max_age")),
	}
}

// addQueryParam appends a query parameter to a URL.
func addQueryParam(u, key, value string) string {
	sep := "?"
	if strings.Contains(u, "?") {
		sep = "&"
	}
	return u + sep + url.QueryEscape(key) + "=" + url.QueryEscape(value)
}
