package oauth

import (
	"context"
	"net/http"
	"strings"

	"github.com/dropDatabas3/aliceid/internal/observability/logger"
	tokens "github.com/dropDatabas3/aliceid/internal/security/token"
	"github.com/dropDatabas3/aliceid/internal/store"
)

// LogoutService terminates the session behind the cookie.
type LogoutService interface {
	// Logout drops the cached session and resolves the post-logout
	// redirect. Returns the redirect target ("" = render a plain page).
	Logout(ctx context.Context, r *http.Request) string
}

// LogoutDeps contains dependencies for LogoutService.
type LogoutDeps struct {
	DAL        store.DataAccessLayer
	Cache      CacheClient
	CookieName string
}

type logoutService struct {
	dal        store.DataAccessLayer
	cache      CacheClient
	cookieName string
}

// NewLogoutService creates a new LogoutService.
func NewLogoutService(d LogoutDeps) LogoutService {
	return &logoutService{dal: d.DAL, cache: d.Cache, cookieName: d.CookieName}
}

func (s *logoutService) Logout(ctx context.Context, r *http.Request) string {
	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("LogoutService.Logout"))

	if ck, err := r.Cookie(s.cookieName); err == nil && ck != nil && strings.TrimSpace(ck.Value) != "" {
		s.cache.Delete(cacheKeyPrefixSID + tokens.SHA256Base64URL(ck.Value))
		log.Info("session terminated")
	}

	// The redirect target is only honored for registered clients.
	redirect := strings.TrimSpace(r.FormValue("post_logout_redirect_uri"))
	if redirect == "" {
		return ""
	}
	clientID := strings.TrimSpace(r.FormValue("client_id"))
	if clientID == "" {
		return ""
	}
	client, err := s.dal.Clients().Get(ctx, clientID)
	if err != nil {
		return ""
	}
	if !s.dal.Clients().IsRedirectURIAllowed(client, redirect) {
		return ""
	}
	return redirect
}
