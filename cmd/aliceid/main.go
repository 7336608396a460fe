package main

import (
	"context"
	"errors"
	"flag"
	"log"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"golang.org/x/sync/errgroup"

	cachememory "github.com/dropDatabas3/aliceid/internal/cache/memory"
	cacheredis "github.com/dropDatabas3/aliceid/internal/cache/redis"
	"github.com/dropDatabas3/aliceid/internal/config"
	"github.com/dropDatabas3/aliceid/internal/domain/repository"
	oauthctrl "github.com/dropDatabas3/aliceid/internal/http/controllers/oauth"
	"github.com/dropDatabas3/aliceid/internal/http/router"
	svc "github.com/dropDatabas3/aliceid/internal/http/services/oauth"
	jwtx "github.com/dropDatabas3/aliceid/internal/jwt"
	"github.com/dropDatabas3/aliceid/internal/metrics"
	"github.com/dropDatabas3/aliceid/internal/observability/logger"
	"github.com/dropDatabas3/aliceid/internal/oidc"
	"github.com/dropDatabas3/aliceid/internal/store"
	storememory "github.com/dropDatabas3/aliceid/internal/store/memory"
	storepg "github.com/dropDatabas3/aliceid/internal/store/pg"
)

func main() {
	if err := godotenv.Load(); err != nil {
		log.Printf("no .env file loaded: %v", err)
	}

	cfgPath := flag.String("config", defaultConfigPath(), "ruta al config.yaml")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		log.Fatalf("config: %v", err)
	}

	logger.Init(logger.Config{
		Env:         cfg.App.Env,
		Level:       os.Getenv("LOG_LEVEL"),
		ServiceName: "aliceid",
	})
	defer func() { _ = logger.Sync() }()
	zlog := logger.L()

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	dal, err := buildStore(ctx, cfg)
	if err != nil {
		zlog.Fatal("store init failed", logger.Err(err))
	}
	defer dal.Close()

	cacheClient := buildCache(cfg)

	if err := seedStandardScopes(ctx, dal); err != nil {
		zlog.Fatal("scope seeding failed", logger.Err(err))
	}

	keys, err := jwtx.NewEd25519(cfg.JWT.KID)
	if err != nil {
		zlog.Fatal("signing key generation failed", logger.Err(err))
	}
	issuer := jwtx.NewIssuer(cfg.JWT.Issuer, keys)
	issuer.AccessTTL = config.Duration(cfg.JWT.AccessTTL)
	issuer.IDTokenTTL = config.Duration(cfg.JWT.AccessTTL)

	// Motor de decisión: evaluación de request, consent y routing de claims.
	catalog := oidc.NewScopeClaimCatalog(dal.Scopes())
	claimRouter := oidc.NewClaimDestinationRouter(catalog)
	exchanger := oidc.NewTokenExchangeHandler(svc.NewIdentityStore(dal), claimRouter)

	authorizeDeps := svc.AuthorizeDeps{
		DAL:        dal,
		Cache:      cacheClient,
		Evaluator:  oidc.NewRequestEvaluator(),
		Consent:    oidc.NewConsentDecisionEngine(),
		Records:    oidc.NewAuthorizationRecordManager(dal.Authorizations()),
		CookieName: cfg.OAuth.Session.CookieName,
		LoginURL:   cfg.OAuth.LoginURL,
		CodeTTL:    config.Duration(cfg.OAuth.CodeTTL),
	}

	authorizeCtrl := oauthctrl.NewAuthorizeController(
		svc.NewAuthorizeService(authorizeDeps),
		svc.NewDecisionService(authorizeDeps),
	)
	tokenCtrl := oauthctrl.NewTokenController(svc.NewTokenService(svc.TokenDeps{
		DAL:        dal,
		Cache:      cacheClient,
		Exchanger:  exchanger,
		Issuer:     issuer,
		RefreshTTL: config.Duration(cfg.JWT.RefreshTTL),
	}))
	logoutCtrl := oauthctrl.NewLogoutController(svc.NewLogoutService(svc.LogoutDeps{
		DAL:        dal,
		Cache:      cacheClient,
		CookieName: cfg.OAuth.Session.CookieName,
	}), cfg.OAuth.Session.CookieName)

	handler := router.New(router.Deps{
		Authorize: authorizeCtrl,
		Token:     tokenCtrl,
		Logout:    logoutCtrl,
	})

	metricsHandler, err := metrics.Register(nil)
	if err != nil {
		zlog.Fatal("metrics registration failed", logger.Err(err))
	}
	metricsMux := http.NewServeMux()
	metricsMux.Handle("/metrics", metricsHandler)

	srv := &http.Server{
		Addr:         cfg.Server.Addr,
		Handler:      handler,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}
	metricsSrv := &http.Server{
		Addr:    cfg.Server.MetricsAddr,
		Handler: metricsMux,
	}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		zlog.Info("server listening",
			logger.String("addr", cfg.Server.Addr),
			logger.String("env", cfg.App.Env),
			logger.String("storage", cfg.Storage.Driver),
			logger.String("cache", cfg.Cache.Kind),
		)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		zlog.Info("metrics listening", logger.String("addr", cfg.Server.MetricsAddr))
		if err := metricsSrv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return err
		}
		return nil
	})
	g.Go(func() error {
		<-gctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer cancel()
		_ = metricsSrv.Shutdown(shutdownCtx)
		return srv.Shutdown(shutdownCtx)
	})

	if err := g.Wait(); err != nil {
		zlog.Fatal("server failed", logger.Err(err))
	}
	zlog.Info("server stopped")
}

func defaultConfigPath() string {
	if p := os.Getenv("CONFIG_PATH"); p != "" {
		return p
	}
	return "config.yaml"
}

func buildStore(ctx context.Context, cfg *config.Config) (store.DataAccessLayer, error) {
	switch cfg.Storage.Driver {
	case "postgres":
		return storepg.New(ctx, storepg.Config{
			DSN:             cfg.Storage.DSN,
			MaxConns:        cfg.Storage.Postgres.MaxConns,
			ConnMaxLifetime: config.Duration(cfg.Storage.Postgres.ConnMaxLifetime),
		})
	default:
		return storememory.New(), nil
	}
}

func buildCache(cfg *config.Config) svc.CacheClient {
	if cfg.Cache.Kind == "redis" {
		return cacheredis.New(cfg.Cache.Redis.Addr, cfg.Cache.Redis.Password, cfg.Cache.Redis.DB)
	}
	return cachememory.New(config.Duration(cfg.Cache.Memory.DefaultTTL))
}

// seedStandardScopes garantiza que los scopes estándar existan con sus
// claims asociados. Upsert es idempotente: no pisa scopes custom.
func seedStandardScopes(ctx context.Context, dal store.DataAccessLayer) error {
	seeds := []repository.ScopeInput{
		{Name: "openid", DisplayName: "Identidad", Claims: []string{"sub"}, System: true},
		{Name: "email", DisplayName: "Email", Claims: []string{"email", "email_verified"}, System: true},
		{Name: "profile", DisplayName: "Perfil", Claims: []string{"name", "given_name", "family_name", "preferred_username", "picture", "locale"}, System: true},
		{Name: "address", DisplayName: "Dirección", Claims: []string{"address"}, System: true},
		{Name: "phone", DisplayName: "Teléfono", Claims: []string{"phone_number", "phone_number_verified"}, System: true},
	}
	for _, s := range seeds {
		if _, err := dal.Scopes().Upsert(ctx, s); err != nil {
			return err
		}
	}
	return nil
}
