// Package logger provides a singleton Zap logger with context-based scoping.
//
// # Usage
//
// Inicialización (una vez en main.go):
//
//	logger.Init(logger.Config{
//	    Env:   cfg.App.Env,    // "dev" o "prod"
//	    Level: cfg.App.LogLevel,
//	})
//	defer logger.Sync()
//
// En controllers/services (con contexto):
//
//	log := logger.From(ctx).With(logger.Layer("service"), logger.Op("oauth.authorize"))
//	log.Info("silent grant", logger.ClientID(clientID), logger.Subject(sub))
//
// Sin contexto (fallback al singleton):
//
//	logger.L().Info("service started")
package logger
