package oauth

import (
	"net/http"

	svc "github.com/dropDatabas3/aliceid/internal/http/services/oauth"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
)

// LogoutController handles GET|POST /connect/logout.
type LogoutController struct {
	service    svc.LogoutService
	cookieName string
}

// NewLogoutController creates the controller.
func NewLogoutController(s svc.LogoutService, cookieName string) *LogoutController {
	return &LogoutController{service: s, cookieName: cookieName}
}

// Logout terminates the session, expires the cookie and redirects if a
// registered post-logout target was supplied.
func (c *LogoutController) Logout(w http.ResponseWriter, r *http.Request) {
	ctx := r.Context()
	log := logger.From(ctx).With(logger.Layer("controller"), logger.Op("LogoutController.Logout"))

	redirect := c.service.Logout(ctx, r)

	http.SetCookie(w, &http.Cookie{
		Name:     c.cookieName,
		Value:    "",
		Path:     "/",
		MaxAge:   -1,
		HttpOnly: true,
	})

	if redirect != "" {
		log.Debug("post-logout redirect", logger.String("target", redirect))
		http.Redirect(w, r, redirect, http.StatusFound)
		return
	}
	w.WriteHeader(http.StatusNoContent)
}
