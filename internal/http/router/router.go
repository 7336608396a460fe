// Package router aggregates the /connect/* routes.
package router

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	oauthctrl "github.com/dropDatabas3/aliceid/internal/http/controllers/oauth"
	httperrors "github.com/dropDatabas3/aliceid/internal/http/errors"
	mw "github.com/dropDatabas3/aliceid/internal/http/middlewares"
	"github.com/dropDatabas3/aliceid/internal/metrics"
)

// Deps contains all dependencies for the router.
type Deps struct {
	Authorize *oauthctrl.AuthorizeController
	Token     *oauthctrl.TokenController
	Logout    *oauthctrl.LogoutController
}

// New builds the chi router with the shared middleware chain.
func New(d Deps) http.Handler {
	r := chi.NewRouter()

	r.Use(mw.WithRequestContext())
	r.Use(mw.WithAccessLog())
	r.Use(mw.WithRecover())
	r.Use(metrics.WithMetrics)

	r.Route("/connect", func(r chi.Router) {
		r.Get("/authorize", d.Authorize.Authorize)
		r.Post("/authorize", d.Authorize.Authorize)
		r.Post("/authorize/decision", d.Authorize.Decision)
		r.Post("/token", d.Token.Token)
		r.Get("/logout", d.Logout.Logout)
		r.Post("/logout", d.Logout.Logout)
	})

	r.Get("/healthz", func(w http.ResponseWriter, _ *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrRouteNotFound)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		httperrors.WriteError(w, httperrors.ErrMethodNotAllowed)
	})

	return r
}
