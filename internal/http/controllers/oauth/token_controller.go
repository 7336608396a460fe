package oauth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	dto "github.com/dropDatabas3/aliceid/internal/http/dto/oauth"
	httperrors "github.com/dropDatabas3/aliceid/internal/http/errors"
	svc "github.com/dropDatabas3/aliceid/internal/http/services/oauth"
	"github.com/dropDatabas3/aliceid/internal/metrics"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
	"github.com/dropDatabas3/aliceid/internal/oidc"
)

// TokenController handles POST /connect/token.
type TokenController struct {
	service svc.TokenService
}

// NewTokenController creates the controller.
func NewTokenController(s svc.TokenService) *TokenController {
	return &TokenController{service: s}
}

// Token handles the token endpoint. Errors follow the OAuth wire format
// {error, error_description}.
func (c *TokenController) Token(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("TokenController.Token"))

	if err := r.ParseForm(); err != nil {
		writeTokenError(w, http.StatusBadRequest, dto.TokenError{
			Error: "invalid_request", ErrorDescription: "malformed form body",
		})
		return
	}

	req := dto.TokenRequest{
		GrantType:    strings.TrimSpace(r.PostForm.Get("grant_type")),
		Code:         strings.TrimSpace(r.PostForm.Get("code")),
		RedirectURI:  strings.TrimSpace(r.PostForm.Get("redirect_uri")),
		RefreshToken: strings.TrimSpace(r.PostForm.Get("refresh_token")),
		ClientID:     strings.TrimSpace(r.PostForm.Get("client_id")),
		ClientSecret: strings.TrimSpace(r.PostForm.Get("client_secret")),
	}
	// Basic auth is an alternative client authentication channel.
	if user, pass, ok := r.BasicAuth(); ok {
		req.ClientID = user
		req.ClientSecret = pass
	}

	resp, tErr, err := c.service.Exchange(ctx, req)
	if err != nil {
		if errors.Is(err, oidc.ErrUnsupportedGrantType) {
			metrics.RecordTokenExchange(req.GrantType, "error")
			writeTokenError(w, http.StatusBadRequest, dto.TokenError{
				Error: "unsupported_grant_type", ErrorDescription: "grant type not supported",
			})
			return
		}
		log.Error("token exchange failed", logger.Err(err))
		metrics.RecordTokenExchange(req.GrantType, "error")
		httperrors.WriteError(w, httperrors.ErrInternalServerError)
		return
	}
	if tErr != nil {
		metrics.RecordTokenExchange(req.GrantType, tErr.Error)
		status := http.StatusBadRequest
		if tErr.Error == "invalid_client" {
			status = http.StatusUnauthorized
		}
		writeTokenError(w, status, *tErr)
		return
	}

	metrics.RecordTokenExchange(req.GrantType, "issued")
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.Header().Set("Pragma", "no-cache")
	w.WriteHeader(http.StatusOK)
	_ = json.NewEncoder(w).Encode(resp)
}

func writeTokenError(w http.ResponseWriter, status int, tErr dto.TokenError) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.Header().Set("Cache-Control", "no-store")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(tErr)
}
